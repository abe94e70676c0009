package demo

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/qw-group/srcdemo-go/pkg/bitbuf"
	"github.com/qw-group/srcdemo-go/pkg/netmsg"
)

//
// Entity delta decoding of svc_PacketEntities.
//

type UpdateType int

const (
	EnterPVS UpdateType = iota
	LeavePVS
	DeltaEnt
	PreserveEnt
	Finished
)

var updateTypeNames = [...]string{"EnterPVS", "LeavePVS", "DeltaEnt", "PreserveEnt", "Finished"}

func (u UpdateType) String() string {
	if u >= 0 && int(u) < len(updateTypeNames) {
		return updateTypeNames[u]
	}
	return "Failed"
}

type headerFlags uint8

const (
	fhdrLeavePVS headerFlags = 1 << iota
	fhdrDelete
	fhdrEnterPVS
)

type entityUpdate struct {
	Type  UpdateType
	ID    int
	flags headerFlags
}

// entityUpdates iterates the update headers of one packet. On delta packets
// live entities no header mentions come out as PreserveEnt.
type entityUpdates struct {
	r           *bitbuf.BitReader
	live        func(id int) bool
	isDelta     bool
	headerCount int
	headerBase  int
	oldCursor   int // Next live entity which may be preserved.

	pending    bool // Header read but not returned yet.
	isEntity   bool
	newEntity  int
	flags      headerFlags
	headerDone bool
}

func newEntityUpdates(r *bitbuf.BitReader, m *netmsg.PacketEntities, live func(id int) bool) *entityUpdates {
	return &entityUpdates{
		r:           r,
		live:        live,
		isDelta:     m.IsDelta,
		headerCount: int(m.UpdatedEntries),
		headerBase:  -1,
	}
}

// nextLive returns the first live entity id at or after the cursor, MaxEdicts if none.
func (it *entityUpdates) nextLive() int {
	for id := it.oldCursor; id < MaxEdicts; id++ {
		if it.live(id) {
			return id
		}
	}
	return MaxEdicts
}

func (it *entityUpdates) readHeader() {
	it.headerCount--
	it.isEntity = it.headerCount >= 0
	it.flags = 0
	if !it.isEntity {
		return
	}

	it.newEntity = it.headerBase + 1 + int(it.r.ReadUBitVar())
	it.headerBase = it.newEntity

	if !it.r.ReadBool() {
		if it.r.ReadBool() {
			it.flags |= fhdrEnterPVS
		}
	} else {
		it.flags |= fhdrLeavePVS
		if it.r.ReadBool() {
			it.flags |= fhdrDelete
		}
	}
}

// next returns the next update, Finished once the packet is done.
func (it *entityUpdates) next() (entityUpdate, error) {
	if it.headerDone {
		return it.preserveRest(), nil
	}

	if !it.pending {
		it.readHeader()
		if err := it.r.Err(); err != nil {
			return entityUpdate{}, err
		}
		it.pending = true
	}

	if !it.isEntity || it.newEntity > entitySentinel {
		it.headerDone = true
		it.pending = false
		return it.preserveRest(), nil
	}

	if it.isDelta {
		if old := it.nextLive(); old < it.newEntity {
			it.oldCursor = old + 1
			return entityUpdate{Type: PreserveEnt, ID: old}, nil
		}
	}

	it.pending = false
	if it.newEntity+1 > it.oldCursor {
		it.oldCursor = it.newEntity + 1
	}

	u := entityUpdate{ID: it.newEntity, flags: it.flags}
	switch {
	case it.flags&fhdrEnterPVS != 0:
		u.Type = EnterPVS
	case it.flags&fhdrLeavePVS != 0:
		u.Type = LeavePVS
	default:
		u.Type = DeltaEnt
	}
	return u, nil
}

func (it *entityUpdates) preserveRest() entityUpdate {
	if it.isDelta {
		if old := it.nextLive(); old < MaxEdicts {
			it.oldCursor = old + 1
			return entityUpdate{Type: PreserveEnt, ID: old}
		}
	}
	return entityUpdate{Type: Finished}
}

func (p *Parser) readPacketEntities(m *netmsg.PacketEntities) (err error) {
	defer func() { err = multierror.Prefix(err, "Parser.readPacketEntities:") }()

	r := bitbuf.NewBitReader(m.EntityData)
	it := newEntityUpdates(r, m, func(id int) bool { return p.entities[id] != nil })

	for {
		u, err := it.next()
		if err != nil {
			return err
		}
		if u.Type == Finished {
			break
		}

		skip, err := p.applyEntityUpdate(r, u, m.IsDelta)
		if err != nil {
			return err
		}
		if skip {
			p.log.Debug().Str("ctx", "Parser").Str("event", "skipPacketEntities").Int("entity", u.ID).Msg("")
			return nil
		}
	}

	return r.Err()
}

// applyEntityUpdate performs one update. skip asks to drop the rest of the packet.
func (p *Parser) applyEntityUpdate(r *bitbuf.BitReader, u entityUpdate, isDelta bool) (skip bool, err error) {
	p.stats.EntityUpdates.Inc()

	switch u.Type {
	case EnterPVS:
		classIndex := int(r.ReadUBits(p.classBits))
		serial := int(r.ReadUBits(serialNumBits))
		if err := r.Err(); err != nil {
			return false, err
		}
		if u.ID >= MaxEdicts {
			return false, fmt.Errorf("EnterPVS: entity %d: %w", u.ID, ErrMalformedFraming)
		}
		if classIndex >= len(p.serverClasses) {
			return false, fmt.Errorf("EnterPVS: entity %d: class %d out of %d: %w", u.ID, classIndex, len(p.serverClasses), ErrMalformedFraming)
		}

		e := p.entities[u.ID]
		switch {
		case e == nil:
			e = newEntity(u.ID, classIndex, serial)
			p.entities[u.ID] = e
		case e.ClassID != classIndex || e.SerialNum != serial:
			e.ClassID = classIndex
			e.SerialNum = serial
			e.resetProps()
		}

		p.log.Trace().Str("ctx", "Parser").Str("event", "enterPVS").Int("entity", u.ID).
			Int("class", classIndex).Int("serial", serial).Msg("")

		return p.readNewEntity(r, e)

	case LeavePVS:
		if !isDelta {
			return false, fmt.Errorf("LeavePVS on full update: entity %d: %w", u.ID, ErrMalformedFraming)
		}
		if u.ID < MaxEdicts {
			p.entities[u.ID] = nil
		}
		p.log.Trace().Str("ctx", "Parser").Str("event", "leavePVS").Int("entity", u.ID).
			Bool("delete", u.flags&fhdrDelete != 0).Msg("")

	case DeltaEnt:
		var e *Entity
		if u.ID < MaxEdicts {
			e = p.entities[u.ID]
		}
		if e == nil {
			return false, fmt.Errorf("DeltaEnt: entity %d does not exist: %w", u.ID, ErrMalformedFraming)
		}
		return p.readNewEntity(r, e)

	case PreserveEnt:
		if !isDelta {
			return false, fmt.Errorf("PreserveEnt on full update: entity %d: %w", u.ID, ErrMalformedFraming)
		}
		if u.ID >= MaxEdicts {
			return false, fmt.Errorf("PreserveEnt: entity %d: %w", u.ID, ErrMalformedFraming)
		}
	}

	return false, nil
}

// readNewEntity reads the changed field indices of e followed by their values.
func (p *Parser) readNewEntity(r *bitbuf.BitReader, e *Entity) (skip bool, err error) {
	// Data tables sent later may have shrunk the class list.
	if e.ClassID < 0 || e.ClassID >= len(p.serverClasses) {
		return false, fmt.Errorf("entity %d: class %d out of %d: %w", e.ID, e.ClassID, len(p.serverClasses), ErrMalformedFraming)
	}
	sc := p.serverClasses[e.ClassID]

	newWay := r.ReadBool()
	indices := p.fieldIndices[:0]
	last := -1
	for {
		i, ok := r.ReadFieldIndex(last, newWay)
		if !ok {
			break
		}
		indices = append(indices, i)
		last = i
	}
	p.fieldIndices = indices
	if err := r.Err(); err != nil {
		return false, err
	}

	for _, i := range indices {
		if i >= len(sc.FlattenedProps) {
			p.stats.UnknownFields.Inc()
			p.log.Debug().Str("ctx", "Parser").Str("event", "unknownField").Int("entity", e.ID).
				Str("class", sc.Name).Int("field", i).Int("props", len(sc.FlattenedProps)).Msg("")

			switch p.opts.FieldErrors {
			case FieldErrorFail:
				return false, fmt.Errorf("entity %d class %q field %d: %w", e.ID, sc.Name, i, ErrUnknownField)
			case FieldErrorSkipPacket:
				return true, nil
			default:
				return false, nil
			}
		}

		def := sc.FlattenedProps[i]
		v, err := decodeProp(r, def, p.log)
		if err != nil {
			return false, fmt.Errorf("entity %d: %w", e.ID, err)
		}
		if err := r.Err(); err != nil {
			return false, fmt.Errorf("entity %d prop %q: %w", e.ID, def.Name, err)
		}
		e.set(def, v)
	}
	return false, nil
}
