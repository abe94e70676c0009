package demo

import (
	"context"
)

// Result is the outcome of a whole demo parse.
type Result struct {
	Header       Header            `json:"header"`
	ServerInfo   ServerInfo        `json:"serverInfo"`
	Players      []*PlayerInfo     `json:"players"`
	Events       []*GameEvent      `json:"events"`
	Positions    *PlayerTicks      `json:"positions"`
	Entities     []*Entity         `json:"-"` // Live at the end of the parse.
	Cvars        map[string]string `json:"cvars"`
	StringTables []*StringTable    `json:"-"`
	Stats        StatsSnapshot     `json:"stats"`
}

// Result copies the registries of p.
func (p *Parser) Result() *Result {
	players := make([]*PlayerInfo, 0, len(p.playerInfos))
	for _, pi := range p.playerInfos {
		if pi != nil {
			players = append(players, pi)
		}
	}
	entities := p.Entities()
	for i, e := range entities {
		entities[i] = e.clone()
	}
	return &Result{
		Header:       p.header,
		ServerInfo:   p.serverInfo,
		Players:      players,
		Events:       p.events,
		Positions:    p.positions,
		Entities:     entities,
		Cvars:        p.cvars.Map(),
		StringTables: p.stringTables,
		Stats:        p.stats.Snapshot(),
	}
}

// Parse decodes buf with a fresh Parser. The result is returned even on
// error and holds what was decoded up to the failure.
func Parse(ctx context.Context, buf []byte, opts Options) (*Result, error) {
	p := NewParser(opts)
	err := p.Parse(ctx, buf)
	return p.Result(), err
}
