package demo

import (
	"testing"

	"github.com/qw-group/srcdemo-go/pkg/bitbuf"
	"github.com/qw-group/srcdemo-go/pkg/netmsg"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// Builders for synthetic demos.

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func intProp(name string, numBits int) netmsg.SendTableProp {
	return netmsg.SendTableProp{
		Type:     int32(PropInt),
		VarName:  name,
		Flags:    int32(PropUnsigned),
		NumBits:  int32(numBits),
		Priority: 128,
	}
}

func floatProp(name string) netmsg.SendTableProp {
	return netmsg.SendTableProp{
		Type:     int32(PropFloat),
		VarName:  name,
		Flags:    int32(PropNoScale),
		Priority: 128,
	}
}

var (
	testSendTables = []*netmsg.SendTable{
		{
			NetTableName: "DT_World",
			Props:        []netmsg.SendTableProp{intProp("m_nModelIndex", 12)},
		},
		{
			NetTableName: "DT_CSPlayer",
			Props: []netmsg.SendTableProp{
				intProp("m_iHealth", 8),
				{Type: int32(PropVectorXY), VarName: propOrigin, Flags: int32(PropNoScale), Priority: 128},
				floatProp(propOriginZ),
				floatProp(propPitch),
				floatProp(propYaw),
				intProp(propTeam, 6),
			},
		},
		{
			NetTableName: "DT_WeaponAK47",
			Props: []netmsg.SendTableProp{
				intProp("m_iClip1", 8),
				intProp("m_iState", 3),
			},
		},
	}

	testServerClasses = []ServerClass{
		{ClassID: 0, Name: "CWorld", DTName: "DT_World"},
		{ClassID: 1, Name: "CCSPlayer", DTName: "DT_CSPlayer"},
		{ClassID: 2, Name: "CAK47", DTName: "DT_WeaponAK47"},
	}
)

const (
	classPlayer = 1
	classAK47   = 2
	// bits.Len(3)
	testClassBits = 2
)

func dataTablesPayload(tables []*netmsg.SendTable, classes []ServerClass) []byte {
	w := bitbuf.NewBitWriter()
	putMsg := func(m *netmsg.SendTable) {
		b := netmsg.Marshal(m)
		w.PutVarUint32(uint32(netmsg.SvcSendTable))
		w.PutVarUint32(uint32(len(b)))
		w.PutBytes(b)
	}
	for _, t := range tables {
		putMsg(t)
	}
	putMsg(&netmsg.SendTable{IsEnd: true})

	w.PutInt16(int16(len(classes)))
	for _, sc := range classes {
		w.PutInt16(int16(sc.ClassID))
		w.PutCString(sc.Name)
		w.PutCString(sc.DTName)
	}
	return w.Bytes()
}

func newTestParser(t *testing.T, opts Options) *Parser {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = nopLogger()
	}
	p := NewParser(opts)
	require.NoError(t, p.readDataTables(bitbuf.NewBitReader(dataTablesPayload(testSendTables, testServerClasses))))
	return p
}

// entityWriter packs the entity data of one svc_PacketEntities.
type entityWriter struct {
	w    *bitbuf.BitWriter
	base int
}

func newEntityWriter() *entityWriter {
	return &entityWriter{w: bitbuf.NewBitWriter(), base: -1}
}

func (ew *entityWriter) header(id int, leave, enterOrDelete bool) {
	ew.w.PutUBitVar(uint32(id - ew.base - 1))
	ew.base = id
	ew.w.PutBool(leave)
	ew.w.PutBool(enterOrDelete)
}

func (ew *entityWriter) enter(id, class, serial int) {
	ew.header(id, false, true)
	ew.w.PutUBits(uint32(class), testClassBits)
	ew.w.PutUBits(uint32(serial), serialNumBits)
}

func (ew *entityWriter) delta(id int) {
	ew.header(id, false, false)
}

func (ew *entityWriter) leave(id int) {
	ew.header(id, true, true)
}

func (ew *entityWriter) fields(newWay bool, indices ...int) {
	ew.w.PutBool(newWay)
	last := -1
	for _, i := range indices {
		ew.w.PutFieldIndex(i, last, newWay)
		last = i
	}
	ew.w.PutFieldIndexEnd(newWay)
}

func (ew *entityWriter) message(updated int, isDelta bool) *netmsg.PacketEntities {
	return &netmsg.PacketEntities{
		MaxEntries:     MaxEdicts,
		UpdatedEntries: int32(updated),
		IsDelta:        isDelta,
		EntityData:     ew.w.Bytes(),
	}
}

// demoWriter builds a whole demo file.
type demoWriter struct {
	w *bitbuf.Writer
}

func newDemoWriter(h Header) *demoWriter {
	dw := &demoWriter{w: bitbuf.NewWriter(4096)}
	dw.w.PutData(MarshalHeader(&h))
	return dw
}

func (dw *demoWriter) frame(cmd DemoCommand, tick int32) {
	dw.w.PutUint8(uint8(cmd))
	dw.w.PutInt32(tick)
	dw.w.PutUint8(0)
}

func (dw *demoWriter) sized(cmd DemoCommand, tick int32, payload []byte) {
	dw.frame(cmd, tick)
	dw.w.PutInt32(int32(len(payload)))
	dw.w.PutData(payload)
}

func packetPayload(msgs ...netmsg.Message) []byte {
	w := bitbuf.NewWriter(256)
	for _, m := range msgs {
		b := netmsg.Marshal(m)
		w.PutVarUint32(uint32(m.Cmd()))
		w.PutVarUint32(uint32(len(b)))
		w.PutData(b)
	}
	return w.Bytes()
}

func (dw *demoWriter) packetRaw(cmd DemoCommand, tick int32, payload []byte) {
	dw.frame(cmd, tick)
	dw.w.PutData(make([]byte, cmdInfoSize))
	dw.w.PutInt32(1)
	dw.w.PutInt32(2)
	dw.w.PutInt32(int32(len(payload)))
	dw.w.PutData(payload)
}

func (dw *demoWriter) packet(cmd DemoCommand, tick int32, msgs ...netmsg.Message) {
	dw.packetRaw(cmd, tick, packetPayload(msgs...))
}

func (dw *demoWriter) Bytes() []byte {
	return dw.w.Bytes()
}

// stringTablesDump encodes a DEM_STRINGTABLES payload without client side entries.
func stringTablesDump(tables ...*StringTable) []byte {
	w := bitbuf.NewBitWriter()
	w.PutUint8(uint8(len(tables)))
	for _, t := range tables {
		w.PutCString(t.Name)
		w.PutUint16(uint16(len(t.Entries)))
		for _, e := range t.Entries {
			w.PutCString(e.String)
			w.PutBool(e.UserData != nil)
			if e.UserData != nil {
				w.PutUint16(uint16(len(e.UserData)))
				w.PutBytes(e.UserData)
			}
		}
		w.PutBool(false)
	}
	return w.Bytes()
}
