package bitbuf

import (
	"math"

	"golang.org/x/text/encoding"
)

//
// Bit addressable reader. Bit 0 of a byte is its least significant bit,
// multi-byte values are little-endian, so byte and bit reads interleave freely.
//

const (
	// Field index value which terminates a field index list.
	fieldIndexEnd = 0xFFF
)

type BitReader struct {
	b     []byte
	pos   int  // Byte offset.
	bit   uint // Bit offset inside b[pos], 0..7.
	error bool
}

func NewBitReader(b []byte) *BitReader {
	return &BitReader{b: b}
}

// Err returns ErrTruncatedBuffer once any read went past the buffer end.
func (r *BitReader) Err() error {
	if r.error {
		return ErrTruncatedBuffer
	}
	return nil
}

// Combined read position in bits.
func (r *BitReader) BitPos() int {
	return r.pos*8 + int(r.bit)
}

// Bits left to read.
func (r *BitReader) BitsLeft() int {
	return (len(r.b)-r.pos)*8 - int(r.bit)
}

// Aligned reports whether the cursor sits on a byte boundary.
func (r *BitReader) Aligned() bool {
	return r.bit == 0
}

func (r *BitReader) needBits(n int) bool {
	if r.error || n < 0 || n > r.BitsLeft() {
		r.error = true
		return false
	}
	return true
}

func (r *BitReader) readBit() uint32 {
	v := uint32(r.b[r.pos]>>r.bit) & 1
	r.bit++
	if r.bit > 7 {
		r.bit = 0
		r.pos++
	}
	return v
}

func (r *BitReader) ReadBit() uint32 {
	if !r.needBits(1) {
		return 0
	}
	return r.readBit()
}

func (r *BitReader) ReadBool() bool {
	return r.ReadBit() != 0
}

// ReadUBits reads an unsigned value of n bits (0..32), least significant bit first.
func (r *BitReader) ReadUBits(n int) uint32 {
	if n > 32 || !r.needBits(n) {
		r.error = true
		return 0
	}
	var v uint32
	for i := 0; i < n; {
		if r.bit == 0 && n-i >= 8 {
			// Whole byte.
			v |= uint32(r.b[r.pos]) << i
			r.pos++
			i += 8
		} else {
			v |= r.readBit() << i
			i++
		}
	}
	return v
}

// ReadBits reads n bits and sign extends the value using bit n-1.
func (r *BitReader) ReadBits(n int) int32 {
	v := r.ReadUBits(n)
	if n > 0 && n < 32 && v&(1<<(n-1)) != 0 {
		v |= ^uint32(0) << n
	}
	return int32(v)
}

// ReadUBitVar reads 6 bits, the top two of them select 0, 4, 8 or 28 extra bits.
func (r *BitReader) ReadUBitVar() uint32 {
	v := r.ReadUBits(6)
	switch v & (16 | 32) {
	case 16:
		v = (v & 15) | (r.ReadUBits(4) << 4)
	case 32:
		v = (v & 15) | (r.ReadUBits(8) << 4)
	case 48:
		v = (v & 15) | (r.ReadUBits(32-4) << 4)
	}
	return v
}

// ReadFieldIndex reads the next entity field index delta coded against last.
// ok is false when the end marker is read (or the reader failed).
func (r *BitReader) ReadFieldIndex(last int, newWay bool) (index int, ok bool) {
	if newWay && r.ReadBool() {
		return last + 1, !r.error
	}

	var v uint32
	if newWay && r.ReadBool() {
		v = r.ReadUBits(3)
	} else {
		v = r.ReadUBits(7)
		switch v & (32 | 64) {
		case 32:
			v = (v &^ 96) | (r.ReadUBits(2) << 5)
		case 64:
			v = (v &^ 96) | (r.ReadUBits(4) << 5)
		case 96:
			v = (v &^ 96) | (r.ReadUBits(7) << 5)
		}
	}

	if v == fieldIndexEnd || r.error {
		return -1, false
	}
	return last + 1 + int(v), true
}

func (r *BitReader) ReadUint8() uint8 {
	return uint8(r.ReadUBits(8))
}

func (r *BitReader) ReadInt16() int16 {
	return int16(r.ReadUBits(16))
}

func (r *BitReader) ReadUint16() uint16 {
	return uint16(r.ReadUBits(16))
}

func (r *BitReader) ReadInt32() int32 {
	return int32(r.ReadUBits(32))
}

func (r *BitReader) ReadUint32() uint32 {
	return r.ReadUBits(32)
}

func (r *BitReader) ReadFloat32() float32 {
	return math.Float32frombits(r.ReadUBits(32))
}

// ReadBitFloat reads a raw IEEE 754 float.
func (r *BitReader) ReadBitFloat() float32 {
	return r.ReadFloat32()
}

// ReadBytes returns a copy of the next n bytes.
func (r *BitReader) ReadBytes(n int) []byte {
	if !r.needBits(n * 8) {
		return nil
	}
	v := make([]byte, n)
	if r.bit == 0 {
		copy(v, r.b[r.pos:r.pos+n])
		r.pos += n
		return v
	}
	for i := range v {
		v[i] = uint8(r.ReadUBits(8))
	}
	return v
}

// ReadBitsAsBytes reads n bits into ceil(n/8) bytes, the last byte holds
// the trailing n%8 bits.
func (r *BitReader) ReadBitsAsBytes(n int) []byte {
	if !r.needBits(n) {
		return nil
	}
	v := r.ReadBytes(n / 8)
	if rest := n % 8; rest != 0 {
		v = append(v, uint8(r.ReadUBits(rest)))
	}
	return v
}

// ReadString reads exactly n bytes.
func (r *BitReader) ReadString(n int) string {
	return string(r.ReadBytes(n))
}

// ReadFixedString reads exactly n bytes and decodes them with enc.
func (r *BitReader) ReadFixedString(n int, enc encoding.Encoding) string {
	raw := r.ReadBytes(n)
	if raw == nil {
		return ""
	}
	return decodeString(raw, enc)
}

// ReadCString reads up to maxLen bytes stopping at NUL, the NUL is consumed.
func (r *BitReader) ReadCString(maxLen int) string {
	buf := make([]byte, 0, 32)
	for i := 0; i < maxLen; i++ {
		c := r.ReadUint8()
		if c == 0 || r.error {
			break
		}
		buf = append(buf, c)
	}
	return string(buf)
}

// SkipBits advances the cursor by n bits.
func (r *BitReader) SkipBits(n int) {
	if !r.needBits(n) {
		return
	}
	total := r.BitPos() + n
	r.pos = total / 8
	r.bit = uint(total % 8)
}

func (r *BitReader) ReadVarUint32() uint32 {
	return ReadVarUint32(r)
}

func (r *BitReader) ReadSignedVarInt32() int32 {
	return ZigZagDecode32(ReadVarUint32(r))
}

func (r *BitReader) ReadVarUint64() uint64 {
	return ReadVarUint64(r)
}

func (r *BitReader) ReadSignedVarInt64() int64 {
	return ZigZagDecode64(ReadVarUint64(r))
}

// peek runs fn on a copy of the reader, so the read position stays.
func (r *BitReader) peek(fn func(p *BitReader)) {
	p := *r
	fn(&p)
	r.error = p.error
}

func (r *BitReader) PeekBit() (v uint32) {
	r.peek(func(p *BitReader) { v = p.ReadBit() })
	return v
}

func (r *BitReader) PeekUBits(n int) (v uint32) {
	r.peek(func(p *BitReader) { v = p.ReadUBits(n) })
	return v
}
