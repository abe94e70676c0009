package netmsg

import (
	"errors"
	"math"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"google.golang.org/protobuf/encoding/protowire"
)

//
// Protobuf wire decoding of the message subset. Field numbers follow
// netmessages.proto of the CS:GO protocol.
//

var (
	ErrWireType = errors.New("unexpected wire type")
)

// Codec decodes message payloads by command id.
// Commands without a decoder come back as *Unknown.
type Codec struct{}

func (Codec) Decode(cmd Cmd, b []byte) (m Message, err error) {
	defer func() { err = multierror.Prefix(err, cmd.String()+":") }()

	switch cmd {
	case NetTick:
		m, err = decodeTick(b)
	case NetSetConVar:
		m, err = decodeSetConVar(b)
	case NetSignonState:
		m, err = decodeSignonState(b)
	case SvcServerInfo:
		m, err = decodeServerInfo(b)
	case SvcSendTable:
		m, err = decodeSendTable(b)
	case SvcCreateStringTable:
		m, err = decodeCreateStringTable(b)
	case SvcUpdateStringTable:
		m, err = decodeUpdateStringTable(b)
	case SvcPacketEntities:
		m, err = decodePacketEntities(b)
	case SvcGameEventList:
		m, err = decodeGameEventList(b)
	case SvcGameEvent:
		m, err = decodeGameEvent(b)
	case SvcPrint:
		m, err = decodePrint(b)
	default:
		m = &Unknown{Command: cmd, Raw: b}
	}
	return m, err
}

// field is one decoded key/value pair of a protobuf message.
type field struct {
	num protowire.Number
	typ protowire.Type
	u   uint64 // Varint and fixed values.
	b   []byte // Length delimited values, shares the input buffer.
}

func (f field) int32() int32     { return int32(f.u) }
func (f field) uint32() uint32   { return uint32(f.u) }
func (f field) bool() bool       { return f.u != 0 }
func (f field) float32() float32 { return math.Float32frombits(uint32(f.u)) }
func (f field) string() string   { return string(f.b) }

func (f field) bytes() []byte {
	return append([]byte(nil), f.b...)
}

// eachField walks the top level fields of a message in wire order.
func eachField(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.u, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.u = uint64(v)
		case protowire.Fixed64Type:
			f.u, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// expect fails when a known field arrives with another wire type.
func expect(f field, typ protowire.Type) error {
	if f.typ != typ {
		return multierror.Prefix(ErrWireType, "field "+strconv.Itoa(int(f.num))+":")
	}
	return nil
}

func decodeTick(b []byte) (*Tick, error) {
	m := &Tick{}
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			m.Tick = f.uint32()
		case 4:
			m.HostComputationTime = f.uint32()
		case 5:
			m.HostComputationTimeStdDev = f.uint32()
		case 6:
			m.HostFrameStartTimeStdDev = f.uint32()
		}
		return nil
	})
	return m, err
}

func decodeSetConVar(b []byte) (*SetConVar, error) {
	m := &SetConVar{}
	err := eachField(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		if err := expect(f, protowire.BytesType); err != nil {
			return err
		}
		// CMsg_CVars.
		return eachField(f.b, func(f field) error {
			if f.num != 1 {
				return nil
			}
			if err := expect(f, protowire.BytesType); err != nil {
				return err
			}
			var cv ConVar
			err := eachField(f.b, func(f field) error {
				switch f.num {
				case 1:
					cv.Name = f.string()
				case 2:
					cv.Value = f.string()
				}
				return nil
			})
			m.ConVars = append(m.ConVars, cv)
			return err
		})
	})
	return m, err
}

func decodeSignonState(b []byte) (*SignonState, error) {
	m := &SignonState{}
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			m.SignonState = f.uint32()
		case 2:
			m.SpawnCount = f.uint32()
		case 3:
			m.NumServerPlayers = f.uint32()
		case 5:
			m.MapName = f.string()
		}
		return nil
	})
	return m, err
}

func decodeServerInfo(b []byte) (*ServerInfo, error) {
	m := &ServerInfo{}
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			m.Protocol = f.int32()
		case 2:
			m.ServerCount = f.int32()
		case 3:
			m.IsDedicated = f.bool()
		case 5:
			m.IsHLTV = f.bool()
		case 7:
			m.OS = f.int32()
		case 8:
			m.MapCRC = f.uint32()
		case 11:
			m.MaxClients = f.int32()
		case 12:
			m.MaxClasses = f.int32()
		case 13:
			m.PlayerSlot = f.int32()
		case 14:
			if err := expect(f, protowire.Fixed32Type); err != nil {
				return err
			}
			m.TickInterval = f.float32()
		case 15:
			m.GameDir = f.string()
		case 16:
			m.MapName = f.string()
		case 17:
			m.MapGroupName = f.string()
		case 18:
			m.SkyName = f.string()
		case 19:
			m.HostName = f.string()
		}
		return nil
	})
	return m, err
}

func decodeSendTable(b []byte) (*SendTable, error) {
	m := &SendTable{}
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			m.IsEnd = f.bool()
		case 2:
			m.NetTableName = f.string()
		case 3:
			m.NeedsDecoder = f.bool()
		case 4:
			if err := expect(f, protowire.BytesType); err != nil {
				return err
			}
			p, err := decodeSendTableProp(f.b)
			if err != nil {
				return err
			}
			m.Props = append(m.Props, p)
		}
		return nil
	})
	return m, err
}

func decodeSendTableProp(b []byte) (p SendTableProp, err error) {
	err = eachField(b, func(f field) error {
		switch f.num {
		case 1:
			p.Type = f.int32()
		case 2:
			p.VarName = f.string()
		case 3:
			p.Flags = f.int32()
		case 4:
			p.Priority = f.int32()
		case 5:
			p.DTName = f.string()
		case 6:
			p.NumElements = f.int32()
		case 7:
			if err := expect(f, protowire.Fixed32Type); err != nil {
				return err
			}
			p.LowValue = f.float32()
		case 8:
			if err := expect(f, protowire.Fixed32Type); err != nil {
				return err
			}
			p.HighValue = f.float32()
		case 9:
			p.NumBits = f.int32()
		}
		return nil
	})
	return p, err
}

func decodeCreateStringTable(b []byte) (*CreateStringTable, error) {
	m := &CreateStringTable{}
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			m.Name = f.string()
		case 2:
			m.MaxEntries = f.int32()
		case 3:
			m.NumEntries = f.int32()
		case 4:
			m.UserDataFixedSize = f.bool()
		case 5:
			m.UserDataSize = f.int32()
		case 6:
			m.UserDataSizeBits = f.int32()
		case 7:
			m.Flags = f.int32()
		case 8:
			m.StringData = f.bytes()
		}
		return nil
	})
	return m, err
}

func decodeUpdateStringTable(b []byte) (*UpdateStringTable, error) {
	m := &UpdateStringTable{}
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			m.TableID = f.int32()
		case 2:
			m.NumChangedEntries = f.int32()
		case 3:
			m.StringData = f.bytes()
		}
		return nil
	})
	return m, err
}

func decodePacketEntities(b []byte) (*PacketEntities, error) {
	m := &PacketEntities{}
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			m.MaxEntries = f.int32()
		case 2:
			m.UpdatedEntries = f.int32()
		case 3:
			m.IsDelta = f.bool()
		case 4:
			m.UpdateBaseline = f.bool()
		case 5:
			m.Baseline = f.int32()
		case 6:
			m.DeltaFrom = f.int32()
		case 7:
			m.EntityData = f.bytes()
		}
		return nil
	})
	return m, err
}

func decodeGameEventList(b []byte) (*GameEventList, error) {
	m := &GameEventList{}
	err := eachField(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		if err := expect(f, protowire.BytesType); err != nil {
			return err
		}
		var d GameEventDescriptor
		err := eachField(f.b, func(f field) error {
			switch f.num {
			case 1:
				d.EventID = f.int32()
			case 2:
				d.Name = f.string()
			case 3:
				if err := expect(f, protowire.BytesType); err != nil {
					return err
				}
				var k GameEventKeyDescriptor
				err := eachField(f.b, func(f field) error {
					switch f.num {
					case 1:
						k.Type = f.int32()
					case 2:
						k.Name = f.string()
					}
					return nil
				})
				d.Keys = append(d.Keys, k)
				return err
			}
			return nil
		})
		m.Descriptors = append(m.Descriptors, d)
		return err
	})
	return m, err
}

func decodeGameEvent(b []byte) (*GameEvent, error) {
	m := &GameEvent{}
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			m.EventName = f.string()
		case 2:
			m.EventID = f.int32()
		case 3:
			if err := expect(f, protowire.BytesType); err != nil {
				return err
			}
			k, err := decodeGameEventKey(f.b)
			m.Keys = append(m.Keys, k)
			return err
		case 4:
			m.Passthrough = f.int32()
		}
		return nil
	})
	return m, err
}

func decodeGameEventKey(b []byte) (k GameEventKey, err error) {
	err = eachField(b, func(f field) error {
		switch f.num {
		case 1:
			k.Type = f.int32()
		case 2:
			k.ValString = f.string()
		case 3:
			if err := expect(f, protowire.Fixed32Type); err != nil {
				return err
			}
			k.ValFloat = f.float32()
		case 4:
			k.ValLong = f.int32()
		case 5:
			k.ValShort = f.int32()
		case 6:
			k.ValByte = f.int32()
		case 7:
			k.ValBool = f.bool()
		case 8:
			k.ValUint64 = f.u
		case 9:
			k.ValWString = f.bytes()
		}
		return nil
	})
	return k, err
}

func decodePrint(b []byte) (*Print, error) {
	m := &Print{}
	err := eachField(b, func(f field) error {
		if f.num == 1 {
			m.Text = f.string()
		}
		return nil
	})
	return m, err
}
