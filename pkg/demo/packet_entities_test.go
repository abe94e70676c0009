package demo

import (
	"testing"

	"github.com/qw-group/srcdemo-go/pkg/bitbuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketEntities_Lifecycle(t *testing.T) {
	p := newTestParser(t, Options{})

	// Full update, entity 5 enters with clip and state.
	ew := newEntityWriter()
	ew.enter(5, classAK47, 7)
	ew.fields(true, 0, 1)
	ew.w.PutUBits(25, 8)
	ew.w.PutUBits(2, 3)
	require.NoError(t, p.readPacketEntities(ew.message(1, false)))

	e := p.Entity(5)
	require.NotNil(t, e)
	assert.Equal(t, classAK47, e.ClassID)
	assert.Equal(t, 7, e.SerialNum)
	clip, ok := e.Int("m_iClip1")
	require.True(t, ok)
	assert.EqualValues(t, 25, clip)

	// Delta, only the state changes.
	ew = newEntityWriter()
	ew.delta(5)
	ew.fields(false, 1)
	ew.w.PutUBits(4, 3)
	require.NoError(t, p.readPacketEntities(ew.message(1, true)))

	state, ok := p.Entity(5).Int("m_iState")
	require.True(t, ok)
	assert.EqualValues(t, 4, state)
	clip, _ = p.Entity(5).Int("m_iClip1")
	assert.EqualValues(t, 25, clip)

	// Leave.
	ew = newEntityWriter()
	ew.leave(5)
	require.NoError(t, p.readPacketEntities(ew.message(1, true)))
	assert.Nil(t, p.Entity(5))
	assert.Empty(t, p.Entities())
	assert.EqualValues(t, 3, p.Stats().EntityUpdates.Load())
}

func TestPacketEntities_EnterKeepsOrResetsProps(t *testing.T) {
	p := newTestParser(t, Options{})

	ew := newEntityWriter()
	ew.enter(9, classAK47, 1)
	ew.fields(true, 0)
	ew.w.PutUBits(30, 8)
	require.NoError(t, p.readPacketEntities(ew.message(1, false)))

	// Same class and serial.
	ew = newEntityWriter()
	ew.enter(9, classAK47, 1)
	ew.fields(true, 1)
	ew.w.PutUBits(1, 3)
	require.NoError(t, p.readPacketEntities(ew.message(1, true)))

	_, ok := p.Entity(9).Int("m_iClip1")
	assert.True(t, ok)
	assert.Len(t, p.Entity(9).Props(), 2)

	// New serial, a different object took the slot.
	ew = newEntityWriter()
	ew.enter(9, classAK47, 2)
	ew.fields(true, 1)
	ew.w.PutUBits(3, 3)
	require.NoError(t, p.readPacketEntities(ew.message(1, true)))

	_, ok = p.Entity(9).Int("m_iClip1")
	assert.False(t, ok)
	assert.Equal(t, 2, p.Entity(9).SerialNum)
	assert.Len(t, p.Entity(9).Props(), 1)
}

func TestPacketEntities_FullUpdateErrors(t *testing.T) {
	p := newTestParser(t, Options{})
	p.entities[5] = newEntity(5, classAK47, 0)

	ew := newEntityWriter()
	ew.leave(5)
	err := p.readPacketEntities(ew.message(1, false))
	assert.ErrorIs(t, err, ErrMalformedFraming)

	_, err = p.applyEntityUpdate(bitbuf.NewBitReader(nil), entityUpdate{Type: PreserveEnt, ID: 5}, false)
	assert.ErrorIs(t, err, ErrMalformedFraming)

	ew = newEntityWriter()
	ew.delta(6)
	ew.fields(false)
	err = p.readPacketEntities(ew.message(1, false))
	assert.ErrorIs(t, err, ErrMalformedFraming, "delta of a missing entity")

	ew = newEntityWriter()
	ew.enter(7, 3, 0)
	err = p.readPacketEntities(ew.message(1, false))
	assert.ErrorIs(t, err, ErrMalformedFraming, "class out of range")
}

func TestPacketEntities_Truncated(t *testing.T) {
	p := newTestParser(t, Options{})

	ew := newEntityWriter()
	ew.enter(5, classAK47, 7)
	ew.fields(true, 0)
	m := ew.message(1, false)

	err := p.readPacketEntities(m)
	assert.ErrorIs(t, err, ErrTruncatedBuffer)
}

func TestEntityUpdates_Preserve(t *testing.T) {
	live := map[int]bool{1: true, 3: true, 7: true}

	ew := newEntityWriter()
	ew.delta(3)
	m := ew.message(1, true)

	it := newEntityUpdates(bitbuf.NewBitReader(m.EntityData), m, func(id int) bool { return live[id] })
	var got []entityUpdate
	for {
		u, err := it.next()
		require.NoError(t, err)
		got = append(got, entityUpdate{Type: u.Type, ID: u.ID})
		if u.Type == Finished {
			break
		}
	}

	assert.Equal(t, []entityUpdate{
		{Type: PreserveEnt, ID: 1},
		{Type: DeltaEnt, ID: 3},
		{Type: PreserveEnt, ID: 7},
		{Type: Finished},
	}, got)
}

func TestEntityUpdates_FullUpdateDoesNotPreserve(t *testing.T) {
	ew := newEntityWriter()
	ew.enter(3, 0, 0)
	m := ew.message(1, false)

	it := newEntityUpdates(bitbuf.NewBitReader(m.EntityData), m, func(int) bool { return true })
	u, err := it.next()
	require.NoError(t, err)
	assert.Equal(t, EnterPVS, u.Type)
	assert.Equal(t, 3, u.ID)
}

func TestPacketEntities_UnknownField(t *testing.T) {
	tests := []struct {
		name   string
		policy FieldErrorPolicy
		check  func(t *testing.T, p *Parser, err error)
	}{
		{
			name:   "continue",
			policy: FieldErrorContinue,
			check: func(t *testing.T, p *Parser, err error) {
				require.NoError(t, err)
				require.NotNil(t, p.Entity(6))
				state, _ := p.Entity(6).Int("m_iState")
				assert.EqualValues(t, 5, state)
			},
		},
		{
			name:   "skip packet",
			policy: FieldErrorSkipPacket,
			check: func(t *testing.T, p *Parser, err error) {
				require.NoError(t, err)
				assert.Nil(t, p.Entity(6))
			},
		},
		{
			name:   "fail",
			policy: FieldErrorFail,
			check: func(t *testing.T, p *Parser, err error) {
				assert.ErrorIs(t, err, ErrUnknownField)
				assert.Nil(t, p.Entity(6))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestParser(t, Options{FieldErrors: tt.policy})
			p.entities[5] = newEntity(5, classAK47, 0)

			ew := newEntityWriter()
			ew.delta(5)
			ew.fields(false, 0, 5)
			ew.w.PutUBits(30, 8)
			ew.enter(6, classAK47, 1)
			ew.fields(false, 1)
			ew.w.PutUBits(5, 3)

			err := p.readPacketEntities(ew.message(2, true))
			tt.check(t, p, err)

			clip, _ := p.Entity(5).Int("m_iClip1")
			assert.EqualValues(t, 30, clip)
			assert.EqualValues(t, 1, p.Stats().UnknownFields.Load())
		})
	}
}

func TestUpdateType_String(t *testing.T) {
	assert.Equal(t, "EnterPVS", EnterPVS.String())
	assert.Equal(t, "Finished", Finished.String())
	assert.Equal(t, "Failed", UpdateType(42).String())
}

func TestParseFieldErrorPolicy(t *testing.T) {
	for _, p := range []FieldErrorPolicy{FieldErrorContinue, FieldErrorSkipPacket, FieldErrorFail} {
		got, err := ParseFieldErrorPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParseFieldErrorPolicy("ignore")
	assert.Error(t, err)
}

func TestEntity_MarshalJSON(t *testing.T) {
	e := newEntity(3, 1, 2)
	e.set(&SendProp{Name: "m_iHealth"}, int32(100))
	e.set(&SendProp{Name: "m_iHealth"}, int32(90))

	b, err := e.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"classId":1,"serial":2,"props":{"m_iHealth":90}}`, string(b))

	c := e.clone()
	c.set(&SendProp{Name: "m_iArmor"}, int32(5))
	assert.Len(t, e.Props(), 1)
	assert.Len(t, c.Props(), 2)
}

func TestPacketEntities_DeltaAfterClassListShrinks(t *testing.T) {
	p := newTestParser(t, Options{})

	ew := newEntityWriter()
	ew.enter(5, classAK47, 1)
	ew.fields(true, 0)
	ew.w.PutUBits(30, 8)
	require.NoError(t, p.readPacketEntities(ew.message(1, false)))

	// New data tables with the world class only.
	require.NoError(t, p.readDataTables(bitbuf.NewBitReader(dataTablesPayload(testSendTables, testServerClasses[:1]))))
	require.NotNil(t, p.Entity(5))

	ew = newEntityWriter()
	ew.delta(5)
	ew.fields(false, 0)
	ew.w.PutUBits(12, 8)

	var err error
	assert.NotPanics(t, func() { err = p.readPacketEntities(ew.message(1, true)) })
	assert.ErrorIs(t, err, ErrMalformedFraming)
}
