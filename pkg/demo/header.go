package demo

import (
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/qw-group/srcdemo-go/pkg/bitbuf"
	"golang.org/x/text/encoding"
)

const (
	demoMagic = "HL2DEMO\x00"
	maxOSPath = 260
)

// Header is the fixed size block at the start of every demo.
type Header struct {
	Magic           string  `json:"-"`
	DemoProtocol    int32   `json:"demoProtocol"`
	NetworkProtocol int32   `json:"networkProtocol"`
	ServerName      string  `json:"serverName"`
	ClientName      string  `json:"clientName"`
	MapName         string  `json:"mapName"`
	GameDirectory   string  `json:"gameDirectory"`
	PlaybackTime    float32 `json:"playbackTime"`
	PlaybackTicks   int32   `json:"playbackTicks"`
	PlaybackFrames  int32   `json:"playbackFrames"`
	SignonLength    int32   `json:"signonLength"`
}

func (h *Header) Duration() time.Duration {
	return time.Duration(float64(h.PlaybackTime) * float64(time.Second))
}

// TickRate is ticks per second, 0 if unknown.
func (h *Header) TickRate() float64 {
	if h.PlaybackTime <= 0 {
		return 0
	}
	return float64(h.PlaybackTicks) / float64(h.PlaybackTime)
}

func trimNUL(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return s[:i]
	}
	return s
}

func readHeader(r *bitbuf.Reader, enc encoding.Encoding) (h Header, err error) {
	defer func() { err = multierror.Prefix(err, "readHeader:") }()

	h.Magic = r.ReadFixedString(len(demoMagic), nil)
	if err := r.Err(); err != nil {
		return h, err
	}
	if h.Magic != demoMagic {
		return h, ErrBadMagic
	}

	h.DemoProtocol = r.ReadInt32()
	h.NetworkProtocol = r.ReadInt32()
	h.ServerName = trimNUL(r.ReadFixedString(maxOSPath, enc))
	h.ClientName = trimNUL(r.ReadFixedString(maxOSPath, enc))
	h.MapName = trimNUL(r.ReadFixedString(maxOSPath, enc))
	h.GameDirectory = trimNUL(r.ReadFixedString(maxOSPath, enc))
	h.PlaybackTime = r.ReadFloat32()
	h.PlaybackTicks = r.ReadInt32()
	h.PlaybackFrames = r.ReadInt32()
	h.SignonLength = r.ReadInt32()

	return h, r.Err()
}

// MarshalHeader is the inverse of readHeader for raw strings.
func MarshalHeader(h *Header) []byte {
	w := bitbuf.NewWriter(1072)
	w.PutString2(demoMagic)
	w.PutInt32(h.DemoProtocol)
	w.PutInt32(h.NetworkProtocol)
	w.PutFixedString(h.ServerName, maxOSPath)
	w.PutFixedString(h.ClientName, maxOSPath)
	w.PutFixedString(h.MapName, maxOSPath)
	w.PutFixedString(h.GameDirectory, maxOSPath)
	w.PutFloat32(h.PlaybackTime)
	w.PutInt32(h.PlaybackTicks)
	w.PutInt32(h.PlaybackFrames)
	w.PutInt32(h.SignonLength)
	return w.Bytes()
}
