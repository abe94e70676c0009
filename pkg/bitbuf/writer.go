package bitbuf

import (
	"encoding/binary"
	"fmt"
	"math"
)

//
// Writers mirror the readers. The decoder never writes demos, they serve
// to build packets in tests and tools.
//

// Writer serializes primitive types like uint16/uint32/float32/string etc.
// The buffer grows on demand.
type Writer struct {
	b []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{b: make([]byte, 0, capacity)}
}

func (w *Writer) Bytes() []byte {
	return w.b
}

// Write position, equals to how much bytes written.
func (w *Writer) Len() int {
	return len(w.b)
}

func (w *Writer) PutUint8(v uint8) {
	w.b = append(w.b, v)
}

func (w *Writer) PutUint16(v uint16) {
	w.b = binary.LittleEndian.AppendUint16(w.b, v)
}

func (w *Writer) PutInt16(v int16) {
	w.PutUint16(uint16(v))
}

func (w *Writer) PutUint32(v uint32) {
	w.b = binary.LittleEndian.AppendUint32(w.b, v)
}

func (w *Writer) PutInt32(v int32) {
	w.PutUint32(uint32(v))
}

// Updates previously written value, does not advance write position.
func (w *Writer) UpdateUint32At(v uint32, pos int) {
	if pos < 0 || pos+4 > len(w.b) {
		panic(fmt.Sprintf("bitbuf: UpdateUint32At(%v) out of range %v", pos, len(w.b)))
	}
	binary.LittleEndian.PutUint32(w.b[pos:], v)
}

func (w *Writer) PutFloat32(v float32) {
	w.PutUint32(math.Float32bits(v))
}

func (w *Writer) PutData(b []byte) {
	w.b = append(w.b, b...)
}

// Write string without NUL terminator.
func (w *Writer) PutString2(s string) {
	w.b = append(w.b, s...)
}

func (w *Writer) PutString(s string) {
	w.PutString2(s)
	w.PutUint8(0)
}

func (w *Writer) PutStringf(format string, a ...interface{}) {
	w.PutString(fmt.Sprintf(format, a...))
}

// PutFixedString writes s truncated or NUL padded to exactly n bytes.
func (w *Writer) PutFixedString(s string, n int) {
	if len(s) > n {
		s = s[:n]
	}
	w.PutString2(s)
	for i := len(s); i < n; i++ {
		w.PutUint8(0)
	}
}

func (w *Writer) PutVarUint32(v uint32) {
	w.b = AppendVarUint32(w.b, v)
}

func (w *Writer) PutSignedVarInt32(v int32) {
	w.PutVarUint32(ZigZagEncode32(v))
}

// BitWriter packs values least significant bit first.
type BitWriter struct {
	b     []byte
	nBits int
}

func NewBitWriter() *BitWriter {
	return &BitWriter{}
}

// Bytes returns the written data, the last byte is zero padded.
func (w *BitWriter) Bytes() []byte {
	return w.b
}

func (w *BitWriter) BitLen() int {
	return w.nBits
}

func (w *BitWriter) PutBit(v uint32) {
	if w.nBits%8 == 0 {
		w.b = append(w.b, 0)
	}
	if v&1 != 0 {
		w.b[w.nBits/8] |= 1 << (w.nBits % 8)
	}
	w.nBits++
}

func (w *BitWriter) PutBool(v bool) {
	if v {
		w.PutBit(1)
	} else {
		w.PutBit(0)
	}
}

// PutUBits writes the low n bits of v.
func (w *BitWriter) PutUBits(v uint32, n int) {
	for i := 0; i < n; i++ {
		w.PutBit(v >> i)
	}
}

func (w *BitWriter) PutBits(v int32, n int) {
	w.PutUBits(uint32(v), n)
}

func (w *BitWriter) PutUBitVar(v uint32) {
	switch {
	case v < 1<<4:
		w.PutUBits(v, 6)
	case v < 1<<8:
		w.PutUBits(v&15|16, 6)
		w.PutUBits(v>>4, 4)
	case v < 1<<12:
		w.PutUBits(v&15|32, 6)
		w.PutUBits(v>>4, 8)
	default:
		w.PutUBits(v&15|48, 6)
		w.PutUBits(v>>4, 32-4)
	}
}

// PutFieldIndex writes index delta coded against last, index must be greater than last.
func (w *BitWriter) PutFieldIndex(index, last int, newWay bool) {
	w.putFieldIndexDelta(uint32(index-last-1), newWay)
}

// PutFieldIndexEnd terminates a field index list.
func (w *BitWriter) PutFieldIndexEnd(newWay bool) {
	w.putFieldIndexDelta(fieldIndexEnd, newWay)
}

func (w *BitWriter) putFieldIndexDelta(d uint32, newWay bool) {
	if newWay {
		if d == 0 {
			w.PutBit(1)
			return
		}
		w.PutBit(0)
		if d < 8 {
			w.PutBit(1)
			w.PutUBits(d, 3)
			return
		}
		w.PutBit(0)
	}
	switch {
	case d < 1<<5:
		w.PutUBits(d, 7)
	case d < 1<<7:
		w.PutUBits(d&31|32, 7)
		w.PutUBits(d>>5, 2)
	case d < 1<<9:
		w.PutUBits(d&31|64, 7)
		w.PutUBits(d>>5, 4)
	default:
		w.PutUBits(d&31|96, 7)
		w.PutUBits(d>>5, 7)
	}
}

func (w *BitWriter) PutUint8(v uint8) {
	w.PutUBits(uint32(v), 8)
}

func (w *BitWriter) PutUint16(v uint16) {
	w.PutUBits(uint32(v), 16)
}

func (w *BitWriter) PutInt16(v int16) {
	w.PutUBits(uint32(uint16(v)), 16)
}

func (w *BitWriter) PutUint32(v uint32) {
	w.PutUBits(v, 32)
}

func (w *BitWriter) PutInt32(v int32) {
	w.PutUBits(uint32(v), 32)
}

func (w *BitWriter) PutFloat32(v float32) {
	w.PutUint32(math.Float32bits(v))
}

func (w *BitWriter) PutBytes(b []byte) {
	for _, c := range b {
		w.PutUint8(c)
	}
}

// Write string without NUL terminator.
func (w *BitWriter) PutString(s string) {
	w.PutBytes([]byte(s))
}

func (w *BitWriter) PutCString(s string) {
	w.PutString(s)
	w.PutUint8(0)
}

func (w *BitWriter) PutVarUint32(v uint32) {
	w.PutBytes(AppendVarUint32(nil, v))
}

func (w *BitWriter) PutSignedVarInt32(v int32) {
	w.PutVarUint32(ZigZagEncode32(v))
}

func (w *BitWriter) PutVarUint64(v uint64) {
	w.PutBytes(AppendVarUint64(nil, v))
}

func (w *BitWriter) PutSignedVarInt64(v int64) {
	w.PutVarUint64(ZigZagEncode64(v))
}
