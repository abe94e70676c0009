package demo

import (
	"fmt"

	"github.com/markphelps/optional"
	"github.com/qw-group/srcdemo-go/pkg/netmsg"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"
)

// MessageCodec turns a framed NET_/SVC_ payload into a tagged message.
type MessageCodec interface {
	Decode(cmd netmsg.Cmd, b []byte) (netmsg.Message, error)
}

// FieldErrorPolicy says what an entity update referencing an unknown field index does.
type FieldErrorPolicy int

const (
	// Stop decoding the entity, keep going with the packet.
	FieldErrorContinue FieldErrorPolicy = iota
	// Drop the rest of the packet entities message.
	FieldErrorSkipPacket
	// Abort the parse with ErrUnknownField.
	FieldErrorFail
)

var fieldErrorPolicyNames = map[FieldErrorPolicy]string{
	FieldErrorContinue:   "continue",
	FieldErrorSkipPacket: "skip",
	FieldErrorFail:       "fail",
}

func (p FieldErrorPolicy) String() string {
	if s, ok := fieldErrorPolicyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("FieldErrorPolicy(%d)", int(p))
}

func ParseFieldErrorPolicy(s string) (FieldErrorPolicy, error) {
	for p, name := range fieldErrorPolicyNames {
		if name == s {
			return p, nil
		}
	}
	return FieldErrorContinue, fmt.Errorf("unknown field error policy %q", s)
}

type Options struct {
	Logger         *zerolog.Logger   // Nop if nil.
	Codec          MessageCodec      // netmsg.Codec if nil.
	FieldErrors    FieldErrorPolicy  // Unknown field index handling.
	FrameBudget    optional.Int      // Stop after that many top-level commands.
	PlayerFilter   optional.String   // Record positions of this player name only.
	SkipPositions  bool              // Do not record per tick player positions.
	OnGameEvent    func(*GameEvent)  // Called for every resolved game event.
	HeaderEncoding encoding.Encoding // Header string fields, raw bytes if nil.
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		l := zerolog.Nop()
		o.Logger = &l
	}
	if o.Codec == nil {
		o.Codec = netmsg.Codec{}
	}
	return o
}
