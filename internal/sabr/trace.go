package sabr

import (
	"log/slog"

	"github.com/jmylchreest/sabrgo/internal/sabr/ump"
	"github.com/jmylchreest/sabrgo/pkg/diskslice"
)

// traceMemoryThreshold is deliberately small: a debug trace is meant to
// capture the tail of a long-running session's response parts, not hold a
// whole multi-hour live stream in RAM. Past this threshold diskslice spills
// the buffer to a temp file instead of growing the process's heap.
const traceMemoryThreshold = 2 * 1024 * 1024

// TraceEntry is one parsed response part, recorded when SessionConfig.Debug
// is set.
type TraceEntry struct {
	RequestNumber int64  `json:"request_number"`
	RequestID     string `json:"request_id"`
	PartType      string `json:"part_type"`
	PartSize      int    `json:"part_size"`
}

// newTraceBuffer allocates the disk-spilling trace buffer for a session with
// Debug enabled. name scopes the temp file so concurrent sessions don't
// collide.
func newTraceBuffer(name string) (*diskslice.DiskSlice[TraceEntry], error) {
	return diskslice.New[TraceEntry](diskslice.Options{
		MemoryThreshold:   traceMemoryThreshold,
		EstimatedItemSize: 128,
		Name:              name,
	})
}

// traceRecord appends one parsed part to the session's trace buffer, if
// tracing is enabled. A failed append only logs: losing a trace entry must
// never fail the download it is observing.
func (s *Session) traceRecord(requestID string, part ump.Part) {
	if s.trace == nil {
		return
	}
	entry := TraceEntry{
		RequestNumber: s.requestNumber,
		RequestID:     requestID,
		PartType:      part.Type.String(),
		PartSize:      len(part.Data),
	}
	if err := s.trace.Append(entry); err != nil {
		s.logger.Warn("trace: append failed", slog.String("error", err.Error()))
	}
}

// Trace returns the session's recorded parts in order, or nil if
// SessionConfig.Debug was not set. It loads the full buffer into memory,
// which is fine for the debug endpoint's purposes but not for anything
// driving the download itself.
func (s *Session) Trace() ([]TraceEntry, error) {
	if s.trace == nil {
		return nil, nil
	}
	return s.trace.ToSlice()
}

// closeTrace releases the trace buffer's temp file, if one was allocated.
func (s *Session) closeTrace() {
	if s.trace == nil {
		return
	}
	if err := s.trace.Close(); err != nil {
		s.logger.Warn("trace: close failed", slog.String("error", err.Error()))
	}
}
