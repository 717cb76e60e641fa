package logging

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/swail/pedcount/pkg/humanfmt"
)

type field struct {
	key string
	val interface{}
}

// CompletionEvent builds a consistent "something finished" log line. In
// pretty mode counts, sizes and durations get an "_h" companion field.
type CompletionEvent struct {
	log     zerolog.Logger
	event   string
	phase   string
	elapsed time.Duration
	fields  []field
}

// NewCompletionEvent creates a new completion event builder.
func NewCompletionEvent(log zerolog.Logger, event, phase string, elapsed time.Duration) *CompletionEvent {
	return &CompletionEvent{
		log:     log,
		event:   event,
		phase:   phase,
		elapsed: elapsed,
	}
}

func (ce *CompletionEvent) add(key string, val interface{}) *CompletionEvent {
	ce.fields = append(ce.fields, field{key, val})
	return ce
}

// Str adds a string field.
func (ce *CompletionEvent) Str(key, val string) *CompletionEvent {
	return ce.add(key, val)
}

// Int adds an int field.
func (ce *CompletionEvent) Int(key string, val int) *CompletionEvent {
	return ce.add(key, val)
}

// Count adds a count with optional human-readable companion.
func (ce *CompletionEvent) Count(key string, n int64) *CompletionEvent {
	ce.add(key, n)
	if IsPrettyMode() {
		ce.add(key+"_h", humanfmt.Count(n))
	}
	return ce
}

// Bytes adds a byte count with optional human-readable companion.
func (ce *CompletionEvent) Bytes(key string, n int64) *CompletionEvent {
	ce.add(key, n)
	if IsPrettyMode() {
		ce.add(key+"_h", humanfmt.Bytes(n))
	}
	return ce
}

// Throughput adds read throughput over the event's elapsed time.
func (ce *CompletionEvent) Throughput(bytes int64) *CompletionEvent {
	if ce.elapsed <= 0 {
		return ce
	}
	ce.add("throughput_bps", float64(bytes)/ce.elapsed.Seconds())
	if IsPrettyMode() {
		ce.add("throughput_h", humanfmt.Throughput(bytes, ce.elapsed))
	}
	return ce
}

// Log emits the event at info level.
func (ce *CompletionEvent) Log(msg string) {
	ce.emit(ce.log.Info(), msg)
}

func (ce *CompletionEvent) emit(e *zerolog.Event, msg string) {
	e = e.Str("event", ce.event).
		Str("phase", ce.phase).
		Int64("duration_ms", ce.elapsed.Milliseconds())
	if IsPrettyMode() {
		e = e.Str("duration_h", humanfmt.Duration(ce.elapsed))
	}
	for _, f := range ce.fields {
		e = e.Interface(f.key, f.val)
	}
	e.Msg(msg)
}

// QueryComplete starts a completion event for a finished query.
func QueryComplete(log zerolog.Logger, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "query_completed", "query", elapsed)
}

// FileCreated starts a completion event for a written output file.
func FileCreated(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "file_created", phase, elapsed)
}
