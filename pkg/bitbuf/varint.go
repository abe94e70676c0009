package bitbuf

//
// Protobuf style base-128 varints and zigzag mapping.
//

const (
	MaxVarint32Bytes = 5
	MaxVarint64Bytes = 10
)

// ByteSource is anything a varint can be pulled from one byte at a time.
type ByteSource interface {
	ReadUint8() uint8
}

// ReadVarUint32 reads at most 5 bytes, bits beyond 32 are dropped.
func ReadVarUint32(r ByteSource) uint32 {
	var v uint32
	for i := 0; i < MaxVarint32Bytes; i++ {
		b := r.ReadUint8()
		v |= uint32(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			break
		}
	}
	return v
}

// ReadVarUint64 reads at most 10 bytes.
func ReadVarUint64(r ByteSource) uint64 {
	var v uint64
	for i := 0; i < MaxVarint64Bytes; i++ {
		b := r.ReadUint8()
		v |= uint64(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			break
		}
	}
	return v
}

func ZigZagEncode32(n int32) uint32 {
	return uint32(n<<1) ^ uint32(n>>31)
}

func ZigZagDecode32(n uint32) int32 {
	return int32(n>>1) ^ -int32(n&1)
}

func ZigZagEncode64(n int64) uint64 {
	return uint64(n<<1) ^ uint64(n>>63)
}

func ZigZagDecode64(n uint64) int64 {
	return int64(n>>1) ^ -int64(n&1)
}

func AppendVarUint32(b []byte, v uint32) []byte {
	return AppendVarUint64(b, uint64(v))
}

func AppendVarUint64(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}
