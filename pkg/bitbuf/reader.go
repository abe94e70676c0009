package bitbuf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"

	"github.com/adam-lavrik/go-imath/ix"
	"golang.org/x/text/encoding"
)

//
// Byte aligned reader for primitive types like uint16/uint32/float32/string etc.
//

var (
	ErrTruncatedBuffer = errors.New("truncated buffer")
)

// Reader reads little-endian values from a fixed buffer.
// A read past the end of the buffer puts the reader into the failed state:
// the read returns a zero value, every following read is a no-op and Err
// reports ErrTruncatedBuffer.
type Reader struct {
	b     []byte
	rPos  int
	error bool
}

func NewReader(b []byte) *Reader {
	r := &Reader{}
	r.Reset(b)
	return r
}

func (r *Reader) Reset(b []byte) {
	r.b = b
	r.rPos = 0
	r.error = false
}

// Err returns ErrTruncatedBuffer once any read went past the buffer end.
func (r *Reader) Err() error {
	if r.error {
		return ErrTruncatedBuffer
	}
	return nil
}

// Read position.
func (r *Reader) Pos() int {
	return r.rPos
}

// Underlying buffer len.
func (r *Reader) Len() int {
	return len(r.b)
}

// Bytes left to read.
func (r *Reader) Remaining() int {
	return len(r.b) - r.rPos
}

// need marks the reader as failed when n more bytes are not available.
func (r *Reader) need(n int) bool {
	if r.error || n < 0 || r.rPos+n > len(r.b) {
		r.error = true
		return false
	}
	return true
}

func (r *Reader) ReadUint8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.b[r.rPos]
	r.rPos += 1
	return v
}

func (r *Reader) ReadInt16() int16 {
	return int16(r.ReadUint16())
}

func (r *Reader) ReadUint16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.b[r.rPos:])
	r.rPos += 2
	return v
}

func (r *Reader) ReadInt32() int32 {
	return int32(r.ReadUint32())
}

func (r *Reader) ReadUint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.b[r.rPos:])
	r.rPos += 4
	return v
}

func (r *Reader) ReadFloat32() float32 {
	return math.Float32frombits(r.ReadUint32())
}

// ReadBytes returns a copy of the next n bytes.
func (r *Reader) ReadBytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := make([]byte, n)
	copy(v, r.b[r.rPos:r.rPos+n])
	r.rPos += n
	return v
}

// ReadView returns the next n bytes without copying.
// The slice aliases the underlying buffer, which must not be modified.
func (r *Reader) ReadView(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.b[r.rPos : r.rPos+n : r.rPos+n]
	r.rPos += n
	return v
}

// Skip advances the read position by n bytes.
func (r *Reader) Skip(n int) {
	if r.need(n) {
		r.rPos += n
	}
}

// Sub returns a reader over the next n bytes and advances past them.
// The sub reader shares the underlying buffer.
func (r *Reader) Sub(n int) *Reader {
	if !r.need(n) {
		return &Reader{error: true}
	}
	sub := NewReader(r.b[r.rPos : r.rPos+n : r.rPos+n])
	r.rPos += n
	return sub
}

// ReadFixedString reads exactly n bytes and decodes them with enc.
// A nil enc returns the bytes unchanged. NUL padding is kept.
func (r *Reader) ReadFixedString(n int, enc encoding.Encoding) string {
	raw := r.ReadBytes(n)
	if raw == nil {
		return ""
	}
	return decodeString(raw, enc)
}

// ReadCString reads up to maxLen bytes stopping at NUL, the NUL is consumed.
// If maxLen bytes were read without NUL then nothing more is consumed.
func (r *Reader) ReadCString(maxLen int) string {
	if r.error || maxLen <= 0 {
		return ""
	}
	end := ix.Min(len(r.b), r.rPos+maxLen)
	idx := bytes.IndexByte(r.b[r.rPos:end], 0)
	if idx == -1 {
		if end-r.rPos < maxLen {
			// Buffer ended before either NUL or maxLen.
			r.error = true
			return ""
		}
		s := string(r.b[r.rPos:end])
		r.rPos = end
		return s
	}
	s := string(r.b[r.rPos : r.rPos+idx])
	r.rPos += idx + 1 // Skip zero byte.
	return s
}

func (r *Reader) ReadVarUint32() uint32 {
	return ReadVarUint32(r)
}

func (r *Reader) ReadSignedVarInt32() int32 {
	return ZigZagDecode32(ReadVarUint32(r))
}

// peek runs fn on a copy of the reader, so the read position stays.
// Running out of data still fails the reader.
func (r *Reader) peek(fn func(p *Reader)) {
	p := *r
	fn(&p)
	r.error = p.error
}

func (r *Reader) PeekUint8() (v uint8) {
	r.peek(func(p *Reader) { v = p.ReadUint8() })
	return v
}

func (r *Reader) PeekUint16() (v uint16) {
	r.peek(func(p *Reader) { v = p.ReadUint16() })
	return v
}

func (r *Reader) PeekInt32() (v int32) {
	r.peek(func(p *Reader) { v = p.ReadInt32() })
	return v
}

func (r *Reader) PeekUint32() (v uint32) {
	r.peek(func(p *Reader) { v = p.ReadUint32() })
	return v
}

func (r *Reader) PeekVarUint32() (v uint32) {
	r.peek(func(p *Reader) { v = p.ReadVarUint32() })
	return v
}

func decodeString(raw []byte, enc encoding.Encoding) string {
	if enc == nil {
		return string(raw)
	}
	s, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(s)
}
