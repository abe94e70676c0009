package netmsg

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

//
// Protobuf wire encoding of the message subset, used to build demo packets
// in tests and tools. Zero values are omitted like proto3 does.
//

type enc []byte

func (e *enc) varint(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	*e = protowire.AppendTag(*e, num, protowire.VarintType)
	*e = protowire.AppendVarint(*e, v)
}

func (e *enc) int32(num protowire.Number, v int32) {
	// Negative int32 values are sign extended to 64 bits on the wire.
	e.varint(num, uint64(int64(v)))
}

func (e *enc) bool(num protowire.Number, v bool) {
	if v {
		e.varint(num, 1)
	}
}

func (e *enc) float32(num protowire.Number, v float32) {
	if v == 0 {
		return
	}
	*e = protowire.AppendTag(*e, num, protowire.Fixed32Type)
	*e = protowire.AppendFixed32(*e, math.Float32bits(v))
}

func (e *enc) bytes(num protowire.Number, v []byte) {
	if len(v) == 0 {
		return
	}
	*e = protowire.AppendTag(*e, num, protowire.BytesType)
	*e = protowire.AppendBytes(*e, v)
}

func (e *enc) string(num protowire.Number, v string) {
	e.bytes(num, []byte(v))
}

// message always emits the field, so empty sub messages keep their slot.
func (e *enc) message(num protowire.Number, v []byte) {
	*e = protowire.AppendTag(*e, num, protowire.BytesType)
	*e = protowire.AppendBytes(*e, v)
}

// Marshal encodes m into its wire payload. *Unknown is returned raw.
func Marshal(m Message) []byte {
	var e enc
	switch m := m.(type) {
	case *Tick:
		e.varint(1, uint64(m.Tick))
		e.varint(4, uint64(m.HostComputationTime))
		e.varint(5, uint64(m.HostComputationTimeStdDev))
		e.varint(6, uint64(m.HostFrameStartTimeStdDev))
	case *SetConVar:
		var cvars enc
		for _, cv := range m.ConVars {
			var c enc
			c.string(1, cv.Name)
			c.string(2, cv.Value)
			cvars.message(1, c)
		}
		e.message(1, cvars)
	case *SignonState:
		e.varint(1, uint64(m.SignonState))
		e.varint(2, uint64(m.SpawnCount))
		e.varint(3, uint64(m.NumServerPlayers))
		e.string(5, m.MapName)
	case *ServerInfo:
		e.int32(1, m.Protocol)
		e.int32(2, m.ServerCount)
		e.bool(3, m.IsDedicated)
		e.bool(5, m.IsHLTV)
		e.int32(7, m.OS)
		if m.MapCRC != 0 {
			e = protowire.AppendTag(e, 8, protowire.Fixed32Type)
			e = protowire.AppendFixed32(e, m.MapCRC)
		}
		e.int32(11, m.MaxClients)
		e.int32(12, m.MaxClasses)
		e.int32(13, m.PlayerSlot)
		e.float32(14, m.TickInterval)
		e.string(15, m.GameDir)
		e.string(16, m.MapName)
		e.string(17, m.MapGroupName)
		e.string(18, m.SkyName)
		e.string(19, m.HostName)
	case *SendTable:
		e.bool(1, m.IsEnd)
		e.string(2, m.NetTableName)
		e.bool(3, m.NeedsDecoder)
		for _, p := range m.Props {
			var pe enc
			pe.int32(1, p.Type)
			pe.string(2, p.VarName)
			pe.int32(3, p.Flags)
			pe.int32(4, p.Priority)
			pe.string(5, p.DTName)
			pe.int32(6, p.NumElements)
			pe.float32(7, p.LowValue)
			pe.float32(8, p.HighValue)
			pe.int32(9, p.NumBits)
			e.message(4, pe)
		}
	case *CreateStringTable:
		e.string(1, m.Name)
		e.int32(2, m.MaxEntries)
		e.int32(3, m.NumEntries)
		e.bool(4, m.UserDataFixedSize)
		e.int32(5, m.UserDataSize)
		e.int32(6, m.UserDataSizeBits)
		e.int32(7, m.Flags)
		e.bytes(8, m.StringData)
	case *UpdateStringTable:
		e.int32(1, m.TableID)
		e.int32(2, m.NumChangedEntries)
		e.bytes(3, m.StringData)
	case *PacketEntities:
		e.int32(1, m.MaxEntries)
		e.int32(2, m.UpdatedEntries)
		e.bool(3, m.IsDelta)
		e.bool(4, m.UpdateBaseline)
		e.int32(5, m.Baseline)
		e.int32(6, m.DeltaFrom)
		e.bytes(7, m.EntityData)
	case *GameEventList:
		for _, d := range m.Descriptors {
			var de enc
			de.int32(1, d.EventID)
			de.string(2, d.Name)
			for _, k := range d.Keys {
				var ke enc
				ke.int32(1, k.Type)
				ke.string(2, k.Name)
				de.message(3, ke)
			}
			e.message(1, de)
		}
	case *GameEvent:
		e.string(1, m.EventName)
		e.int32(2, m.EventID)
		for _, k := range m.Keys {
			var ke enc
			ke.int32(1, k.Type)
			ke.string(2, k.ValString)
			ke.float32(3, k.ValFloat)
			ke.int32(4, k.ValLong)
			ke.int32(5, k.ValShort)
			ke.int32(6, k.ValByte)
			ke.bool(7, k.ValBool)
			ke.varint(8, k.ValUint64)
			ke.bytes(9, k.ValWString)
			e.message(3, ke)
		}
		e.int32(4, m.Passthrough)
	case *Print:
		e.string(1, m.Text)
	case *Unknown:
		return append([]byte(nil), m.Raw...)
	}
	return e
}
