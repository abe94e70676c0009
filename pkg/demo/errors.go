package demo

import (
	"errors"

	"github.com/qw-group/srcdemo-go/pkg/bitbuf"
)

var (
	// A read went past the end of a buffer.
	ErrTruncatedBuffer = bitbuf.ErrTruncatedBuffer
	// A framed size overruns its container, or an entity update is illegal for the update kind.
	ErrMalformedFraming = errors.New("malformed framing")
	// An entity update references a field index the server class does not have.
	ErrUnknownField = errors.New("unknown field")
	// Not a Source demo.
	ErrBadMagic = errors.New("bad demo magic")
)
