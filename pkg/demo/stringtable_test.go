package demo

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/qw-group/srcdemo-go/pkg/bitbuf"
	"github.com/qw-group/srcdemo-go/pkg/netmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// putEntry writes one string table entry. index < 0 means the implicit next
// index, hist < 0 a literal name.
func putEntry(w *bitbuf.BitWriter, indexBits, index int, name string, hist, n int, userData []byte) {
	w.PutBool(index < 0)
	if index >= 0 {
		w.PutUBits(uint32(index), indexBits)
	}
	w.PutBool(name != "" || hist >= 0)
	if name != "" || hist >= 0 {
		w.PutBool(hist >= 0)
		if hist >= 0 {
			w.PutUBits(uint32(hist), substringBits)
			w.PutUBits(uint32(n), substringBits)
		}
		w.PutCString(name)
	}
	w.PutBool(userData != nil)
	if userData != nil {
		w.PutUBits(uint32(len(userData)), maxUserDataBits)
		w.PutBytes(userData)
	}
}

func TestStringTable_SubstringReuse(t *testing.T) {
	p := newTestParser(t, Options{})

	w := bitbuf.NewBitWriter()
	w.PutBool(false)
	putEntry(w, 6, -1, "player_weapon_ak47", -1, 0, nil)
	putEntry(w, 6, -1, "knife", 0, 14, nil)
	putEntry(w, 6, 10, "ten", -1, 0, nil)
	putEntry(w, 6, -1, "_m4a1", 1, 13, nil)

	err := p.createStringTable(&netmsg.CreateStringTable{
		Name:       "modelprecache",
		MaxEntries: 64,
		NumEntries: 4,
		StringData: w.Bytes(),
	})
	require.NoError(t, err)

	tbl := p.findStringTable("modelprecache")
	require.NotNil(t, tbl)
	require.Len(t, tbl.Entries, 12)
	assert.Equal(t, "player_weapon_ak47", tbl.Entries[0].String)
	assert.Equal(t, "player_weapon_knife", tbl.Entries[1].String)
	assert.Equal(t, "ten", tbl.Entries[10].String)
	assert.Equal(t, "player_weapon_m4a1", tbl.Entries[11].String)
}

func TestStringTable_Errors(t *testing.T) {
	tests := []struct {
		name  string
		data  func(w *bitbuf.BitWriter)
		check func(t *testing.T, p *Parser, err error)
	}{
		{
			name: "missing history entry",
			data: func(w *bitbuf.BitWriter) {
				w.PutBool(false)
				putEntry(w, 6, -1, "x", 3, 2, nil)
			},
			check: func(t *testing.T, p *Parser, err error) {
				assert.ErrorIs(t, err, ErrMalformedFraming)
			},
		},
		{
			name: "truncated",
			data: func(w *bitbuf.BitWriter) {
				w.PutBool(false)
				w.PutBool(true)
				w.PutBool(true)
				w.PutBool(false)
				w.PutString("ab")
			},
			check: func(t *testing.T, p *Parser, err error) {
				assert.ErrorIs(t, err, ErrTruncatedBuffer)
			},
		},
		{
			name: "dictionary encoded",
			data: func(w *bitbuf.BitWriter) {
				w.PutBool(true)
				putEntry(w, 6, -1, "x", -1, 0, nil)
			},
			check: func(t *testing.T, p *Parser, err error) {
				require.NoError(t, err)
				assert.Empty(t, p.findStringTable("t").Entries)
				assert.EqualValues(t, 1, p.Stats().UnsupportedTables.Load())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestParser(t, Options{})
			w := bitbuf.NewBitWriter()
			tt.data(w)
			err := p.createStringTable(&netmsg.CreateStringTable{
				Name:       "t",
				MaxEntries: 64,
				NumEntries: 1,
				StringData: w.Bytes(),
			})
			tt.check(t, p, err)
		})
	}
}

func TestStringTable_FixedSizeUserData(t *testing.T) {
	p := newTestParser(t, Options{})

	w := bitbuf.NewBitWriter()
	w.PutBool(false)
	w.PutBool(true)
	w.PutBool(true)
	w.PutBool(false)
	w.PutCString("light")
	w.PutBool(true)
	w.PutUBits(0xABC, 12)

	err := p.createStringTable(&netmsg.CreateStringTable{
		Name:              "lightstyles",
		MaxEntries:        64,
		NumEntries:        1,
		UserDataFixedSize: true,
		UserDataSize:      2,
		UserDataSizeBits:  12,
		StringData:        w.Bytes(),
	})
	require.NoError(t, err)

	e := p.StringTables()[0].Entries[0]
	assert.Equal(t, "light", e.String)
	assert.Equal(t, []byte{0xBC, 0x0A}, e.UserData)
}

func TestStringTable_UpdateByCreationOrder(t *testing.T) {
	p := newTestParser(t, Options{})

	for _, name := range []string{"downloadables", "userinfo"} {
		w := bitbuf.NewBitWriter()
		w.PutBool(false)
		require.NoError(t, p.createStringTable(&netmsg.CreateStringTable{Name: name, MaxEntries: 256, StringData: w.Bytes()}))
	}

	w := bitbuf.NewBitWriter()
	w.PutBool(false)
	putEntry(w, 8, 3, "7", -1, 0, MarshalPlayerInfo(&PlayerInfo{Name: "alice", UserID: 7}))
	require.NoError(t, p.updateStringTable(&netmsg.UpdateStringTable{TableID: 1, NumChangedEntries: 1, StringData: w.Bytes()}))

	require.Len(t, p.PlayerInfos(), 4)
	assert.Nil(t, p.PlayerInfos()[0])
	pi := p.PlayerInfos()[3]
	require.NotNil(t, pi)
	assert.Equal(t, "alice", pi.Name)
	assert.EqualValues(t, 7, pi.UserID)
	assert.Equal(t, 3, pi.Slot)
	assert.False(t, pi.Disconnected)

	// Short user data, the player left.
	w = bitbuf.NewBitWriter()
	w.PutBool(false)
	putEntry(w, 8, 3, "", -1, 0, []byte{0})
	require.NoError(t, p.updateStringTable(&netmsg.UpdateStringTable{TableID: 1, NumChangedEntries: 1, StringData: w.Bytes()}))

	pi = p.PlayerInfos()[3]
	assert.True(t, pi.Disconnected)
	assert.Equal(t, "alice", pi.Name)
	assert.Equal(t, "7", p.StringTables()[1].Entries[3].String)

	// Unknown table, skipped.
	assert.NoError(t, p.updateStringTable(&netmsg.UpdateStringTable{TableID: 5, NumChangedEntries: 1, StringData: w.Bytes()}))
}

func TestStringHistory(t *testing.T) {
	var h stringHistory
	for i := 0; i <= stringHistorySize; i++ {
		h.push(fmt.Sprintf("s%d", i))
	}
	require.Len(t, h.items, stringHistorySize)
	assert.Equal(t, "s1", h.items[0])
	assert.Equal(t, fmt.Sprintf("s%d", stringHistorySize), h.items[stringHistorySize-1])

	s, ok := h.prefix(0, 10)
	assert.True(t, ok)
	assert.Equal(t, "s1", s)

	_, ok = h.prefix(stringHistorySize, 1)
	assert.False(t, ok)
}

func TestStringTablesDump(t *testing.T) {
	p := newTestParser(t, Options{})

	b := stringTablesDump(
		&StringTable{Name: "modelprecache", Entries: []StringTableEntry{{String: ""}, {String: "models/a.mdl"}}},
		&StringTable{Name: userInfoTable, Entries: []StringTableEntry{
			{String: "2", UserData: MarshalPlayerInfo(&PlayerInfo{Name: "bob", UserID: 2, IsFakePlayer: true})},
		}},
	)
	require.NoError(t, p.readStringTablesDump(bitbuf.NewBitReader(b)))

	require.Len(t, p.StringTables(), 2)
	assert.Equal(t, "models/a.mdl", p.findStringTable("modelprecache").Entries[1].String)
	require.Len(t, p.PlayerInfos(), 1)
	assert.Equal(t, "bob", p.PlayerInfos()[0].Name)
	assert.True(t, p.PlayerInfos()[0].IsFakePlayer)

	// A second dump updates the existing tables.
	require.NoError(t, p.readStringTablesDump(bitbuf.NewBitReader(b)))
	assert.Len(t, p.StringTables(), 2)
}

func TestStringTablesDump_ClientEntries(t *testing.T) {
	p := newTestParser(t, Options{})

	w := bitbuf.NewBitWriter()
	w.PutUint8(1)
	w.PutCString("instancebaseline")
	w.PutUint16(1)
	w.PutCString("40")
	w.PutBool(true)
	w.PutUint16(3)
	w.PutBytes([]byte{1, 2, 3})
	w.PutBool(true)
	w.PutUint16(1)
	w.PutCString("client")
	w.PutBool(true)
	w.PutUint16(2)
	w.PutBytes([]byte{9, 9})

	r := bitbuf.NewBitReader(w.Bytes())
	require.NoError(t, p.readStringTablesDump(r))
	assert.Zero(t, r.BitsLeft()/8)

	tbl := p.findStringTable("instancebaseline")
	require.Len(t, tbl.Entries, 1)
	assert.Equal(t, "40", tbl.Entries[0].String)
	assert.Equal(t, []byte{1, 2, 3}, tbl.Entries[0].UserData)
}

func TestPlayerInfo_Layout(t *testing.T) {
	in := &PlayerInfo{
		Version:         0x0102030405060708,
		XUID:            76561197960265728,
		Name:            "alice",
		UserID:          -2,
		GUID:            "STEAM_1:0:123",
		FriendsID:       0xCAFE,
		FriendsName:     "al",
		IsFakePlayer:    false,
		IsHLTV:          true,
		CustomFiles:     [4]uint32{1, 2, 3, 0xDEADBEEF},
		FilesDownloaded: 4,
	}
	b := MarshalPlayerInfo(in)
	require.Len(t, b, 340)

	assert.Equal(t, uint64(0x0102030405060708), binary.BigEndian.Uint64(b[0:]))
	assert.Equal(t, "alice", cString(b[16:144]))
	assert.Equal(t, uint32(0xFFFFFFFE), binary.BigEndian.Uint32(b[144:]))
	assert.Equal(t, "STEAM_1:0:123", cString(b[148:181]))
	assert.Equal(t, uint32(0xCAFE), binary.BigEndian.Uint32(b[184:]))
	assert.Equal(t, "al", cString(b[188:316]))
	assert.Equal(t, byte(0), b[316])
	assert.Equal(t, byte(1), b[317])
	assert.Equal(t, uint32(0xDEADBEEF), binary.LittleEndian.Uint32(b[332:]))
	assert.Equal(t, byte(4), b[336])

	out := parsePlayerInfo(7, b)
	in.Slot = 7
	assert.Equal(t, in, out)

	short := parsePlayerInfo(2, b[:playerInfoMinSize-1])
	assert.True(t, short.Disconnected)
	assert.Equal(t, 2, short.Slot)
	assert.Empty(t, short.Name)

	assert.False(t, parsePlayerInfo(2, b[:playerInfoMinSize]).Disconnected)
}

func TestStringTable_NamelessEntryHistory(t *testing.T) {
	p := newTestParser(t, Options{})

	w := bitbuf.NewBitWriter()
	w.PutBool(false)
	putEntry(w, 6, -1, "player_weapon_ak47", -1, 0, nil)
	// Same entry again, user data only.
	putEntry(w, 6, 0, "", -1, 0, []byte{1})
	// Reuses the history slot of the nameless entry.
	putEntry(w, 6, 1, "x", 1, 6, nil)

	err := p.createStringTable(&netmsg.CreateStringTable{
		Name:       "modelprecache",
		MaxEntries: 64,
		NumEntries: 3,
		StringData: w.Bytes(),
	})
	require.NoError(t, err)

	tbl := p.findStringTable("modelprecache")
	require.NotNil(t, tbl)
	require.Len(t, tbl.Entries, 2)
	assert.Equal(t, "player_weapon_ak47", tbl.Entries[0].String)
	assert.Equal(t, []byte{1}, tbl.Entries[0].UserData)
	assert.Equal(t, "x", tbl.Entries[1].String)
}
