package demo

import (
	"github.com/qw-group/srcdemo-go/pkg/netmsg"
)

//
// Game events resolved against the descriptor list of the demo.
//

type GameEvent struct {
	Tick   int32          `json:"tick"`
	ID     int32          `json:"id"`
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields"`
}

// Keys holding a user id, their player names are added as "<key>_name".
var playerKeys = map[string]bool{
	"userid":   true,
	"attacker": true,
	"assister": true,
}

func (p *Parser) setGameEventList(m *netmsg.GameEventList) {
	p.eventDescriptors = make(map[int32]*netmsg.GameEventDescriptor, len(m.Descriptors))
	for i := range m.Descriptors {
		d := &m.Descriptors[i]
		p.eventDescriptors[d.EventID] = d
	}
	p.log.Trace().Str("ctx", "Parser").Str("event", "gameEventList").Int("descriptors", len(m.Descriptors)).Msg("")
}

func gameEventValue(k netmsg.GameEventKey) any {
	switch k.Type {
	case netmsg.EventKeyString:
		return k.ValString
	case netmsg.EventKeyFloat:
		return k.ValFloat
	case netmsg.EventKeyLong:
		return k.ValLong
	case netmsg.EventKeyShort:
		return k.ValShort
	case netmsg.EventKeyByte:
		return k.ValByte
	case netmsg.EventKeyBool:
		return k.ValBool
	case netmsg.EventKeyUint64:
		return k.ValUint64
	case netmsg.EventKeyWString:
		return string(k.ValWString)
	}
	return nil
}

func (p *Parser) handleGameEvent(m *netmsg.GameEvent) {
	d, ok := p.eventDescriptors[m.EventID]
	if !ok {
		p.log.Debug().Str("ctx", "Parser").Str("event", "gameEvent").Int32("id", m.EventID).Msg("unknown descriptor")
		return
	}

	ev := &GameEvent{
		Tick:   p.tick,
		ID:     m.EventID,
		Name:   d.Name,
		Fields: make(map[string]any, len(m.Keys)),
	}
	for i, k := range m.Keys {
		if i >= len(d.Keys) {
			break
		}
		name := d.Keys[i].Name
		v := gameEventValue(k)
		ev.Fields[name] = v

		if playerKeys[name] {
			if pi := p.playerByUserID(int32(k.ValShort)); pi != nil {
				ev.Fields[name+"_name"] = pi.Name
			}
		}
	}

	p.events = append(p.events, ev)
	p.stats.GameEvents.Inc()
	if p.opts.OnGameEvent != nil {
		p.opts.OnGameEvent(ev)
	}

	p.log.Trace().Str("ctx", "Parser").Str("event", "gameEvent").Str("name", ev.Name).Int32("tick", ev.Tick).Msg("")
}

func (p *Parser) playerByUserID(userID int32) *PlayerInfo {
	for _, pi := range p.playerInfos {
		if pi != nil && pi.UserID == userID {
			return pi
		}
	}
	return nil
}
