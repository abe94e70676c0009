package demo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/qw-group/srcdemo-go/pkg/bitbuf"
	"github.com/qw-group/srcdemo-go/pkg/cvars"
	"github.com/qw-group/srcdemo-go/pkg/netmsg"
	"github.com/rs/zerolog"
)

//
// Demo session: header, top-level command loop and message dispatch.
//

type DemoCommand uint8

const (
	DemSignon       DemoCommand = 1
	DemPacket       DemoCommand = 2
	DemSyncTick     DemoCommand = 3
	DemConsoleCmd   DemoCommand = 4
	DemUserCmd      DemoCommand = 5
	DemDataTables   DemoCommand = 6
	DemStop         DemoCommand = 7
	DemCustomData   DemoCommand = 8
	DemStringTables DemoCommand = 9
)

var demoCommandNames = map[DemoCommand]string{
	DemSignon:       "dem_signon",
	DemPacket:       "dem_packet",
	DemSyncTick:     "dem_synctick",
	DemConsoleCmd:   "dem_consolecmd",
	DemUserCmd:      "dem_usercmd",
	DemDataTables:   "dem_datatables",
	DemStop:         "dem_stop",
	DemCustomData:   "dem_customdata",
	DemStringTables: "dem_stringtables",
}

func (c DemoCommand) String() string {
	if s, ok := demoCommandNames[c]; ok {
		return s
	}
	return "dem_" + strconv.Itoa(int(c))
}

const (
	// Two split screen slots of flags, view origin/angles and local view angles.
	cmdInfoSize = 2 * (4 + 6*3*4)
)

// ServerInfo is what svc_ServerInfo told about the server.
type ServerInfo struct {
	Protocol     int32   `json:"protocol"`
	MaxClients   int32   `json:"maxClients"`
	MaxClasses   int32   `json:"maxClasses"`
	TickInterval float32 `json:"tickInterval"`
	GameDir      string  `json:"gameDir"`
	MapName      string  `json:"mapName"`
	HostName     string  `json:"hostName"`
	IsHLTV       bool    `json:"hltv"`
}

// Parser holds every registry of one demo parse.
// It is not safe for concurrent use, except Stats.
type Parser struct {
	opts  Options
	log   *zerolog.Logger
	codec MessageCodec
	stats Stats

	header           Header
	serverInfo       ServerInfo
	tick             int32
	sendTables       []*SendTable
	serverClasses    []*ServerClass
	classBits        int
	entities         [MaxEdicts]*Entity
	stringTables     []*StringTable
	playerInfos      []*PlayerInfo
	eventDescriptors map[int32]*netmsg.GameEventDescriptor
	events           []*GameEvent
	cvars            *cvars.StoreTs
	positions        *PlayerTicks
	fieldIndices     []int // Scratch for readNewEntity.
}

func NewParser(opts Options) *Parser {
	opts = opts.withDefaults()
	return &Parser{
		opts:             opts,
		log:              opts.Logger,
		codec:            opts.Codec,
		eventDescriptors: map[int32]*netmsg.GameEventDescriptor{},
		cvars:            cvars.NewStoreTs(),
		positions:        NewPlayerTicks(),
	}
}

// Parse decodes a whole demo. On error the registries keep what was decoded so far.
func (p *Parser) Parse(ctx context.Context, buf []byte) (err error) {
	defer func() { err = multierror.Prefix(err, "Parser.Parse:") }()

	r := bitbuf.NewReader(buf)
	if p.header, err = readHeader(r, p.opts.HeaderEncoding); err != nil {
		return err
	}
	p.stats.Bytes.Store(int64(r.Pos()))

	p.log.Debug().Str("ctx", "Parser").Str("event", "header").Str("map", p.header.MapName).
		Str("server", p.header.ServerName).Int32("protocol", p.header.NetworkProtocol).
		Int32("ticks", p.header.PlaybackTicks).Msg("")

	budget, budgetErr := p.opts.FrameBudget.Get()
	for r.Remaining() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if budgetErr == nil && p.stats.Commands.Load() >= int64(budget) {
			p.log.Debug().Str("ctx", "Parser").Str("event", "frameBudget").Int("budget", budget).Msg("")
			return nil
		}

		stop, err := p.readCommand(r)
		p.stats.Commands.Inc()
		p.stats.Bytes.Store(int64(r.Pos()))
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}

	p.log.Debug().Str("ctx", "Parser").Str("event", "done").Int64("commands", p.stats.Commands.Load()).
		Int("entities", len(p.Entities())).Int("players", len(p.playerInfos)).Msg("")
	return nil
}

// readSized reads an int32 length prefixed block.
func readSized(r *bitbuf.Reader) ([]byte, error) {
	size := r.ReadInt32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, fmt.Errorf("negative size %d: %w", size, ErrMalformedFraming)
	}
	b := r.ReadView(int(size))
	return b, r.Err()
}

// readCommand reads one top-level command, stop is set by dem_stop.
func (p *Parser) readCommand(r *bitbuf.Reader) (stop bool, err error) {
	cmd := DemoCommand(r.ReadUint8())
	tick := r.ReadInt32()
	playerSlot := r.ReadUint8()
	if err := r.Err(); err != nil {
		return false, multierror.Prefix(err, "readCommand:")
	}

	defer func() { err = multierror.Prefix(err, cmd.String()+":") }()

	p.tick = tick
	p.stats.Tick.Store(tick)

	switch cmd {
	case DemSyncTick:
		// Nothing.

	case DemStop:
		p.log.Trace().Str("ctx", "Parser").Str("event", "stop").Int32("tick", tick).Msg("")
		return true, nil

	case DemConsoleCmd:
		b, err := readSized(r)
		if err != nil {
			return false, err
		}
		p.log.Trace().Str("ctx", "Parser").Str("event", "consoleCmd").Str("cmd", trimNUL(string(b))).Msg("")

	case DemUserCmd:
		r.ReadInt32() // Outgoing sequence.
		if _, err := readSized(r); err != nil {
			return false, err
		}

	case DemCustomData:
		r.ReadInt32() // Callback index.
		if _, err := readSized(r); err != nil {
			return false, err
		}

	case DemDataTables:
		b, err := readSized(r)
		if err != nil {
			return false, err
		}
		return false, p.readDataTables(bitbuf.NewBitReader(b))

	case DemStringTables:
		b, err := readSized(r)
		if err != nil {
			return false, err
		}
		return false, p.readStringTablesDump(bitbuf.NewBitReader(b))

	case DemSignon, DemPacket:
		if err := p.readPacket(r); err != nil {
			return false, err
		}
		p.stats.Packets.Inc()
		if cmd == DemPacket {
			p.recordPositions()
		}

	default:
		p.log.Debug().Str("ctx", "Parser").Str("event", "unknownCommand").Uint8("cmd", uint8(cmd)).
			Uint8("slot", playerSlot).Int("pos", r.Pos()).Msg("")
	}

	return false, nil
}

func (p *Parser) readPacket(r *bitbuf.Reader) error {
	r.Skip(cmdInfoSize)
	r.ReadInt32() // Sequence in.
	r.ReadInt32() // Sequence out.
	b, err := readSized(r)
	if err != nil {
		return err
	}

	msgs := bitbuf.NewReader(b)
	for msgs.Remaining() > 0 {
		cmd := netmsg.Cmd(msgs.ReadVarUint32())
		size := int(msgs.ReadVarUint32())
		if err := msgs.Err(); err != nil {
			return err
		}
		if size > msgs.Remaining() {
			return fmt.Errorf("%v size %d overruns packet, %d left: %w", cmd, size, msgs.Remaining(), ErrMalformedFraming)
		}
		if err := p.handleMessage(cmd, msgs.ReadView(size)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) handleMessage(cmd netmsg.Cmd, b []byte) error {
	p.stats.Messages.Inc()

	msg, err := p.codec.Decode(cmd, b)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedFraming, err)
	}

	switch m := msg.(type) {
	case *netmsg.Tick:
		p.tick = int32(m.Tick)
		p.stats.Tick.Store(p.tick)
	case *netmsg.SetConVar:
		pairs := make([][2]string, 0, len(m.ConVars))
		for _, cv := range m.ConVars {
			pairs = append(pairs, [2]string{cv.Name, cv.Value})
		}
		if err := p.cvars.SetAll(pairs); err != nil {
			p.log.Debug().Str("ctx", "Parser").Str("event", "setConVar").Err(err).Msg("")
		}
	case *netmsg.ServerInfo:
		p.serverInfo = ServerInfo{
			Protocol:     m.Protocol,
			MaxClients:   m.MaxClients,
			MaxClasses:   m.MaxClasses,
			TickInterval: m.TickInterval,
			GameDir:      m.GameDir,
			MapName:      m.MapName,
			HostName:     m.HostName,
			IsHLTV:       m.IsHLTV,
		}
		p.log.Trace().Str("ctx", "Parser").Str("event", "serverInfo").Str("map", m.MapName).
			Float32("tickInterval", m.TickInterval).Int32("maxClasses", m.MaxClasses).Msg("")
	case *netmsg.CreateStringTable:
		return p.createStringTable(m)
	case *netmsg.UpdateStringTable:
		return p.updateStringTable(m)
	case *netmsg.PacketEntities:
		return p.readPacketEntities(m)
	case *netmsg.GameEventList:
		p.setGameEventList(m)
	case *netmsg.GameEvent:
		p.handleGameEvent(m)
	case *netmsg.Print:
		p.log.Trace().Str("ctx", "Parser").Str("event", "print").Str("text", m.Text).Msg("")
	}
	return nil
}

func (p *Parser) Stats() *Stats {
	return &p.stats
}

func (p *Parser) Header() Header {
	return p.header
}

func (p *Parser) ServerInfo() ServerInfo {
	return p.serverInfo
}

// Tick is the last tick seen.
func (p *Parser) Tick() int32 {
	return p.tick
}

// Entity returns the live entity with id, nil if the slot is empty.
func (p *Parser) Entity(id int) *Entity {
	if id < 0 || id >= MaxEdicts {
		return nil
	}
	return p.entities[id]
}

// Entities returns live entities ordered by id.
func (p *Parser) Entities() []*Entity {
	var list []*Entity
	for _, e := range p.entities {
		if e != nil {
			list = append(list, e)
		}
	}
	return list
}

// PlayerInfos is indexed by userinfo slot, unused slots are nil.
func (p *Parser) PlayerInfos() []*PlayerInfo {
	return p.playerInfos
}

func (p *Parser) ServerClasses() []*ServerClass {
	return p.serverClasses
}

func (p *Parser) SendTables() []*SendTable {
	return p.sendTables
}

func (p *Parser) StringTables() []*StringTable {
	return p.stringTables
}

func (p *Parser) Positions() *PlayerTicks {
	return p.positions
}

func (p *Parser) GameEvents() []*GameEvent {
	return p.events
}

func (p *Parser) Cvars() *cvars.StoreTs {
	return p.cvars
}
