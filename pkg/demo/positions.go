package demo

import (
	"encoding/json"
	"sort"
)

//
// Per tick player positions taken from the player entities.
//

const (
	propOrigin  = "m_vecOrigin"
	propOriginZ = "m_vecOrigin[2]"
	propPitch   = "m_angEyeAngles[0]"
	propYaw     = "m_angEyeAngles[1]"
	propTeam    = "m_iTeamNum"

	teamTerrorist = 2
)

type PlayerTick struct {
	Tick   int32   `json:"tick"`
	Slot   int     `json:"slot"`
	UserID int32   `json:"userId"`
	Name   string  `json:"name"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Z      float32 `json:"z"`
	Pitch  float32 `json:"pitch"`
	Yaw    float32 `json:"yaw"`
	Team   string  `json:"team"`
}

// PlayerTicks groups player positions by tick.
type PlayerTicks struct {
	Start int32 `json:"start"` // First recorded tick, -1 if none.
	ticks map[int32][]PlayerTick
}

func NewPlayerTicks() *PlayerTicks {
	return &PlayerTicks{
		Start: -1,
		ticks: map[int32][]PlayerTick{},
	}
}

// Set replaces the positions recorded for tick.
func (pt *PlayerTicks) Set(tick int32, players []PlayerTick) {
	if pt.Start < 0 || tick < pt.Start {
		pt.Start = tick
	}
	pt.ticks[tick] = players
}

func (pt *PlayerTicks) At(tick int32) []PlayerTick {
	return pt.ticks[tick]
}

func (pt *PlayerTicks) Len() int {
	return len(pt.ticks)
}

// Ticks returns the recorded ticks in ascending order.
func (pt *PlayerTicks) Ticks() []int32 {
	ticks := make([]int32, 0, len(pt.ticks))
	for t := range pt.ticks {
		ticks = append(ticks, t)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	return ticks
}

func (pt *PlayerTicks) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start int32                  `json:"start"`
		Ticks map[int32][]PlayerTick `json:"ticks"`
	}{pt.Start, pt.ticks})
}

// playerTick reads the position of the entity of player slot i.
func playerTick(tick int32, pi *PlayerInfo, e *Entity) (PlayerTick, bool) {
	origin, ok := e.Vector(propOrigin)
	if !ok {
		return PlayerTick{}, false
	}
	z, ok := e.Float(propOriginZ)
	if !ok {
		return PlayerTick{}, false
	}
	pitch, ok := e.Float(propPitch)
	if !ok {
		return PlayerTick{}, false
	}
	yaw, ok := e.Float(propYaw)
	if !ok {
		return PlayerTick{}, false
	}

	team := "CT"
	if t, ok := e.Int(propTeam); ok && t == teamTerrorist {
		team = "T"
	}

	return PlayerTick{
		Tick:   tick,
		Slot:   pi.Slot,
		UserID: pi.UserID,
		Name:   pi.Name,
		X:      origin.X,
		Y:      origin.Y,
		Z:      z,
		Pitch:  pitch,
		Yaw:    yaw,
		Team:   team,
	}, true
}

// recordPositions snapshots all connected players at the current tick.
func (p *Parser) recordPositions() {
	if p.opts.SkipPositions {
		return
	}
	filter, err := p.opts.PlayerFilter.Get()
	hasFilter := err == nil

	var players []PlayerTick
	for slot, pi := range p.playerInfos {
		if pi == nil || pi.Disconnected {
			continue
		}
		if hasFilter && pi.Name != filter {
			continue
		}
		id := slot + 1
		if id >= MaxEdicts || p.entities[id] == nil {
			continue
		}
		if t, ok := playerTick(p.tick, pi, p.entities[id]); ok {
			players = append(players, t)
		}
	}
	if len(players) > 0 {
		p.positions.Set(p.tick, players)
	}
}
