package demo

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/adam-lavrik/go-imath/ix"
	"github.com/qw-group/srcdemo-go/pkg/bitbuf"
	"github.com/rs/zerolog"
)

//
// Property value decoders, one per SendProp type.
//

const (
	// String props carry a 9 bit length.
	maxStringBits       = 9
	maxStringBufferSize = 1 << maxStringBits
)

func decodeProp(r *bitbuf.BitReader, p *SendProp, log *zerolog.Logger) (any, error) {
	switch p.Type {
	case PropInt:
		return decodeInt(r, p), nil
	case PropFloat:
		return decodeFloat(r, p), nil
	case PropVector:
		return decodeVector(r, p), nil
	case PropVectorXY:
		return decodeVectorXY(r, p), nil
	case PropString:
		return decodeString(r, p, log), nil
	case PropArray:
		return decodeArray(r, p, log)
	case PropDataTable:
		return nil, nil
	case PropInt64:
		return decodeInt64(r, p), nil
	}
	return nil, fmt.Errorf("prop %q: unknown type %d: %w", p.Name, p.Type, ErrMalformedFraming)
}

func decodeInt(r *bitbuf.BitReader, p *SendProp) int32 {
	if p.Has(PropVarInt) {
		if p.Has(PropUnsigned) {
			return int32(r.ReadVarUint32())
		}
		return r.ReadSignedVarInt32()
	}
	if p.Has(PropUnsigned) {
		return int32(r.ReadUBits(p.NumBits))
	}
	return r.ReadBits(p.NumBits)
}

func decodeInt64(r *bitbuf.BitReader, p *SendProp) int64 {
	if p.Has(PropVarInt) {
		if p.Has(PropUnsigned) {
			return int64(r.ReadVarUint64())
		}
		return r.ReadSignedVarInt64()
	}

	var neg bool
	var low, high uint32
	if p.Has(PropUnsigned) {
		low = r.ReadUBits(32)
		high = r.ReadUBits(ix.Max(p.NumBits-32, 0))
	} else {
		neg = r.ReadBool()
		low = r.ReadUBits(32)
		high = r.ReadUBits(ix.Max(p.NumBits-32-1, 0))
	}
	v := int64(high)<<32 | int64(low)
	if neg {
		v = -v
	}
	return v
}

// decodeSpecialFloat handles the encodings selected by flags.
func decodeSpecialFloat(r *bitbuf.BitReader, p *SendProp) (float32, bool) {
	switch {
	case p.Has(PropCoord):
		return r.ReadBitCoord(), true
	case p.Has(PropCoordMP):
		return r.ReadBitCoordMP(bitbuf.CoordFull), true
	case p.Has(PropCoordMPLowPrecision):
		return r.ReadBitCoordMP(bitbuf.CoordLowPrecision), true
	case p.Has(PropCoordMPIntegral):
		return r.ReadBitCoordMP(bitbuf.CoordIntegral), true
	case p.Has(PropNoScale):
		return r.ReadBitFloat(), true
	case p.Has(PropNormal):
		return r.ReadBitNormal(), true
	case p.Has(PropCellCoord):
		return r.ReadBitCellCoord(p.NumBits, bitbuf.CoordFull), true
	case p.Has(PropCellCoordLowPrecision):
		return r.ReadBitCellCoord(p.NumBits, bitbuf.CoordLowPrecision), true
	case p.Has(PropCellCoordIntegral):
		return r.ReadBitCellCoord(p.NumBits, bitbuf.CoordIntegral), true
	}
	return 0, false
}

func decodeFloat(r *bitbuf.BitReader, p *SendProp) float32 {
	if v, ok := decodeSpecialFloat(r, p); ok {
		return v
	}
	raw := r.ReadUBits(p.NumBits)
	max := uint64(1)<<uint(p.NumBits) - 1
	if max == 0 {
		return p.LowValue
	}
	frac := float32(float64(raw) / float64(max))
	return p.LowValue + (p.HighValue-p.LowValue)*frac
}

func decodeVectorXY(r *bitbuf.BitReader, p *SendProp) Vector {
	return Vector{
		X: decodeFloat(r, p),
		Y: decodeFloat(r, p),
	}
}

func decodeVector(r *bitbuf.BitReader, p *SendProp) Vector {
	v := decodeVectorXY(r, p)
	if !p.Has(PropNormal) {
		v.Z = decodeFloat(r, p)
		return v
	}

	// Unit vector, only the sign of Z is sent.
	neg := r.ReadBool()
	sq := v.X*v.X + v.Y*v.Y
	if sq < 1 {
		v.Z = float32(math.Sqrt(float64(1 - sq)))
	}
	if neg {
		v.Z = -v.Z
	}
	return v
}

func decodeString(r *bitbuf.BitReader, p *SendProp, log *zerolog.Logger) string {
	n := int(r.ReadUBits(maxStringBits))
	if n >= maxStringBufferSize {
		log.Warn().Str("ctx", "propDecode").Str("event", "stringTooLong").Str("prop", p.Name).Int("len", n).Msg("")
		n = maxStringBufferSize - 1
	}
	return r.ReadString(n)
}

func decodeArray(r *bitbuf.BitReader, p *SendProp, log *zerolog.Logger) ([]any, error) {
	if p.ArrayElement == nil {
		return nil, fmt.Errorf("array prop %q has no element prop: %w", p.Name, ErrMalformedFraming)
	}

	// floor(log2(n))+1 bits, not ceil(log2(n)): 4 elements take 3 bits.
	n := int(r.ReadUBits(bits.Len(uint(p.NumElements))))
	values := make([]any, 0, ix.Min(n, p.NumElements+1))
	for i := 0; i < n; i++ {
		v, err := decodeProp(r, p.ArrayElement, log)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
