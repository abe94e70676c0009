package netmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestCodec_Decode(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"tick", &Tick{Tick: 1234, HostComputationTime: 5}},
		{"convars", &SetConVar{ConVars: []ConVar{{Name: "mp_roundtime", Value: "1.92"}, {Name: "sv_cheats", Value: "0"}}}},
		{"server info", &ServerInfo{Protocol: 13700, MaxClasses: 283, TickInterval: 0.015625, MapName: "de_mirage", HostName: "GOTV"}},
		{"send table", &SendTable{NetTableName: "DT_CSPlayer", Props: []SendTableProp{
			{Type: 1, VarName: "m_flSimulationTime", Flags: 1 << 0, Priority: 128, NumBits: 8, LowValue: -1, HighValue: 1},
			{Type: 6, VarName: "baseclass", DTName: "DT_BasePlayer", Priority: 128},
		}}},
		{"send table end", &SendTable{IsEnd: true}},
		{"create string table", &CreateStringTable{Name: "userinfo", MaxEntries: 256, NumEntries: 2, UserDataSizeBits: 12, StringData: []byte{1, 2, 3}}},
		{"update string table", &UpdateStringTable{TableID: 7, NumChangedEntries: 1, StringData: []byte{9}}},
		{"packet entities", &PacketEntities{MaxEntries: 2048, UpdatedEntries: 3, IsDelta: true, DeltaFrom: -1, EntityData: []byte{0xFF, 0x01}}},
		{"game event list", &GameEventList{Descriptors: []GameEventDescriptor{
			{EventID: 23, Name: "player_death", Keys: []GameEventKeyDescriptor{{Type: EventKeyShort, Name: "userid"}, {Type: EventKeyBool, Name: "headshot"}}},
		}}},
		{"game event", &GameEvent{EventID: 23, Keys: []GameEventKey{{Type: EventKeyShort, ValShort: 3}, {Type: EventKeyBool, ValBool: true}, {Type: EventKeyUint64, ValUint64: 76561198000000000}}}},
		{"signon state", &SignonState{SignonState: 6, SpawnCount: 2, MapName: "de_dust2"}},
		{"print", &Print{Text: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Codec{}.Decode(tt.msg.Cmd(), Marshal(tt.msg))
			require.NoError(t, err)
			assert.Equal(t, tt.msg, got)
		})
	}
}

func TestCodec_UnknownCommand(t *testing.T) {
	got, err := Codec{}.Decode(SvcVoiceData, []byte{1, 2})
	require.NoError(t, err)
	u, ok := got.(*Unknown)
	require.True(t, ok)
	assert.Equal(t, SvcVoiceData, u.Cmd())
	assert.Equal(t, []byte{1, 2}, u.Raw)
}

func TestCodec_SkipsUnknownFields(t *testing.T) {
	b := protowire.AppendTag(nil, 99, protowire.BytesType)
	b = protowire.AppendString(b, "ignored")
	b = append(b, Marshal(&Tick{Tick: 7})...)

	got, err := Codec{}.Decode(NetTick, b)
	require.NoError(t, err)
	assert.Equal(t, &Tick{Tick: 7}, got)
}

func TestCodec_Errors(t *testing.T) {
	t.Run("truncated", func(t *testing.T) {
		b := Marshal(&PacketEntities{EntityData: []byte{1, 2, 3, 4}})
		_, err := Codec{}.Decode(SvcPacketEntities, b[:len(b)-2])
		assert.Error(t, err)
	})

	t.Run("wrong wire type", func(t *testing.T) {
		b := protowire.AppendTag(nil, 14, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
		_, err := Codec{}.Decode(SvcServerInfo, b)
		assert.ErrorIs(t, err, ErrWireType)
	})
}

func TestCmd_String(t *testing.T) {
	assert.Equal(t, "svc_PacketEntities", SvcPacketEntities.String())
	assert.Equal(t, "net_Tick", NetTick.String())
	assert.Equal(t, "cmd_99", Cmd(99).String())
	assert.False(t, Cmd(32).Known())
	assert.True(t, SvcGetCvarValue.Known())
}
