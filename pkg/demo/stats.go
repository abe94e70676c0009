package demo

import (
	"go.uber.org/atomic"
)

// Stats are progress counters, safe to read while a parse runs.
type Stats struct {
	Bytes             atomic.Int64 // Read position in the demo.
	Commands          atomic.Int64
	Packets           atomic.Int64
	Messages          atomic.Int64
	EntityUpdates     atomic.Int64
	GameEvents        atomic.Int64
	UnknownFields     atomic.Int64
	UnresolvedTables  atomic.Int64
	UnsupportedTables atomic.Int64
	Tick              atomic.Int32
}

// StatsSnapshot is a plain copy of Stats.
type StatsSnapshot struct {
	Bytes             int64 `json:"bytes"`
	Commands          int64 `json:"commands"`
	Packets           int64 `json:"packets"`
	Messages          int64 `json:"messages"`
	EntityUpdates     int64 `json:"entityUpdates"`
	GameEvents        int64 `json:"gameEvents"`
	UnknownFields     int64 `json:"unknownFields"`
	UnresolvedTables  int64 `json:"unresolvedTables"`
	UnsupportedTables int64 `json:"unsupportedTables"`
	Tick              int32 `json:"tick"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Bytes:             s.Bytes.Load(),
		Commands:          s.Commands.Load(),
		Packets:           s.Packets.Load(),
		Messages:          s.Messages.Load(),
		EntityUpdates:     s.EntityUpdates.Load(),
		GameEvents:        s.GameEvents.Load(),
		UnknownFields:     s.UnknownFields.Load(),
		UnresolvedTables:  s.UnresolvedTables.Load(),
		UnsupportedTables: s.UnsupportedTables.Load(),
		Tick:              s.Tick.Load(),
	}
}
