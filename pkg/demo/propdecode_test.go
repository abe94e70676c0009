package demo

import (
	"math"
	"strings"
	"testing"

	"github.com/qw-group/srcdemo-go/pkg/bitbuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeProp(t *testing.T) {
	elem := &SendProp{Name: "elem", Type: PropInt, Flags: PropUnsigned, NumBits: 5}

	tests := []struct {
		name  string
		prop  *SendProp
		write func(w *bitbuf.BitWriter)
		want  any
	}{
		{
			name:  "unsigned int",
			prop:  &SendProp{Type: PropInt, Flags: PropUnsigned, NumBits: 7},
			write: func(w *bitbuf.BitWriter) { w.PutUBits(100, 7) },
			want:  int32(100),
		},
		{
			name:  "signed int",
			prop:  &SendProp{Type: PropInt, NumBits: 6},
			write: func(w *bitbuf.BitWriter) { w.PutBits(-3, 6) },
			want:  int32(-3),
		},
		{
			name:  "unsigned varint",
			prop:  &SendProp{Type: PropInt, Flags: PropUnsigned | PropVarInt},
			write: func(w *bitbuf.BitWriter) { w.PutVarUint32(300) },
			want:  int32(300),
		},
		{
			name:  "signed varint",
			prop:  &SendProp{Type: PropInt, Flags: PropVarInt},
			write: func(w *bitbuf.BitWriter) { w.PutSignedVarInt32(-300) },
			want:  int32(-300),
		},
		{
			name: "unsigned int64",
			prop: &SendProp{Type: PropInt64, Flags: PropUnsigned, NumBits: 40},
			write: func(w *bitbuf.BitWriter) {
				w.PutUBits(0x3456789A, 32)
				w.PutUBits(0x12, 8)
			},
			want: int64(0x123456789A),
		},
		{
			name: "signed int64",
			prop: &SendProp{Type: PropInt64, NumBits: 40},
			write: func(w *bitbuf.BitWriter) {
				w.PutBool(true)
				w.PutUBits(5, 32)
				w.PutUBits(0, 7)
			},
			want: int64(-5),
		},
		{
			name:  "varint int64",
			prop:  &SendProp{Type: PropInt64, Flags: PropVarInt},
			write: func(w *bitbuf.BitWriter) { w.PutSignedVarInt64(-1 << 40) },
			want:  int64(-1 << 40),
		},
		{
			name:  "interpolated float",
			prop:  &SendProp{Type: PropFloat, NumBits: 8, LowValue: -10, HighValue: 245},
			write: func(w *bitbuf.BitWriter) { w.PutUBits(255, 8) },
			want:  float32(245),
		},
		{
			name:  "no scale float",
			prop:  &SendProp{Type: PropFloat, Flags: PropNoScale},
			write: func(w *bitbuf.BitWriter) { w.PutFloat32(-12.5) },
			want:  float32(-12.5),
		},
		{
			name:  "coord float",
			prop:  &SendProp{Type: PropFloat, Flags: PropCoord},
			write: func(w *bitbuf.BitWriter) { w.PutBitCoord(-100.5) },
			want:  float32(-100.5),
		},
		{
			name:  "coord mp integral",
			prop:  &SendProp{Type: PropFloat, Flags: PropCoordMPIntegral},
			write: func(w *bitbuf.BitWriter) { w.PutBitCoordMP(42, bitbuf.CoordIntegral) },
			want:  float32(42),
		},
		{
			name:  "cell coord",
			prop:  &SendProp{Type: PropFloat, Flags: PropCellCoord, NumBits: 10},
			write: func(w *bitbuf.BitWriter) { w.PutBitCellCoord(33.25, 10, bitbuf.CoordFull) },
			want:  float32(33.25),
		},
		{
			name: "vector",
			prop: &SendProp{Type: PropVector, Flags: PropNoScale},
			write: func(w *bitbuf.BitWriter) {
				w.PutFloat32(1)
				w.PutFloat32(2)
				w.PutFloat32(3)
			},
			want: Vector{X: 1, Y: 2, Z: 3},
		},
		{
			name: "vector xy",
			prop: &SendProp{Type: PropVectorXY, Flags: PropNoScale},
			write: func(w *bitbuf.BitWriter) {
				w.PutFloat32(-4)
				w.PutFloat32(8)
			},
			want: Vector{X: -4, Y: 8},
		},
		{
			name: "string",
			prop: &SendProp{Type: PropString},
			write: func(w *bitbuf.BitWriter) {
				w.PutUBits(5, maxStringBits)
				w.PutString("de_mm")
			},
			want: "de_mm",
		},
		{
			name: "array",
			prop: &SendProp{Type: PropArray, NumElements: 4, ArrayElement: elem},
			write: func(w *bitbuf.BitWriter) {
				w.PutUBits(2, 3)
				w.PutUBits(3, 5)
				w.PutUBits(9, 5)
			},
			want: []any{int32(3), int32(9)},
		},
		{
			name:  "data table",
			prop:  &SendProp{Type: PropDataTable},
			write: func(w *bitbuf.BitWriter) {},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := bitbuf.NewBitWriter()
			w.PutBit(1) // Misalign.
			tt.write(w)

			r := bitbuf.NewBitReader(w.Bytes())
			r.ReadBit()
			got, err := decodeProp(r, tt.prop, nopLogger())
			require.NoError(t, err)
			require.NoError(t, r.Err())
			assert.Equal(t, tt.want, got)
			assert.Equal(t, w.BitLen(), r.BitPos())
		})
	}
}

func TestDecodeProp_NormalVector(t *testing.T) {
	w := bitbuf.NewBitWriter()
	w.PutBitNormal(0.6)
	w.PutBitNormal(0)
	w.PutBool(true)

	v, err := decodeProp(bitbuf.NewBitReader(w.Bytes()), &SendProp{Type: PropVector, Flags: PropNormal}, nopLogger())
	require.NoError(t, err)
	vec := v.(Vector)
	assert.InDelta(t, 0.6, vec.X, 0.001)
	assert.InDelta(t, 0, vec.Y, 0.001)
	assert.InDelta(t, -0.8, vec.Z, 0.001)
	assert.InDelta(t, 1, math.Sqrt(float64(vec.X*vec.X+vec.Y*vec.Y+vec.Z*vec.Z)), 0.001)
}

func TestDecodeProp_LongString(t *testing.T) {
	w := bitbuf.NewBitWriter()
	w.PutUBits(maxStringBufferSize-1, maxStringBits)
	w.PutString(strings.Repeat("x", maxStringBufferSize-1))

	v, err := decodeProp(bitbuf.NewBitReader(w.Bytes()), &SendProp{Type: PropString}, nopLogger())
	require.NoError(t, err)
	assert.Len(t, v, maxStringBufferSize-1)
}

func TestDecodeProp_Errors(t *testing.T) {
	r := bitbuf.NewBitReader([]byte{0xff})
	_, err := decodeProp(r, &SendProp{Name: "bad", Type: PropArray, NumElements: 2}, nopLogger())
	assert.ErrorIs(t, err, ErrMalformedFraming)

	_, err = decodeProp(r, &SendProp{Name: "bad", Type: PropType(42)}, nopLogger())
	assert.ErrorIs(t, err, ErrMalformedFraming)

	r = bitbuf.NewBitReader([]byte{0xff})
	decodeProp(r, &SendProp{Type: PropInt, NumBits: 16}, nopLogger())
	assert.ErrorIs(t, r.Err(), ErrTruncatedBuffer)
}
