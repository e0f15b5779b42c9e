package history

import (
	"sync"
	"time"

	"github.com/urmzd/telemetry-hub/pkg/event"
)

// DefaultCapacity is used when a Log is created with a non-positive capacity.
const DefaultCapacity = 10000

// Log is a bounded, append-only buffer of broadcast events.
// When full, the oldest event is dropped to make room for the newest.
type Log struct {
	mu       sync.RWMutex
	events   []event.Event
	start    int
	size     int
	capacity int
}

// New creates an empty Log holding at most capacity events.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		events:   make([]event.Event, capacity),
		capacity: capacity,
	}
}

// Append records e, evicting the oldest event if the log is full.
func (l *Log) Append(e event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.size < l.capacity {
		l.events[(l.start+l.size)%l.capacity] = e
		l.size++
		return
	}
	l.events[l.start] = e
	l.start = (l.start + 1) % l.capacity
}

// Len returns the number of events currently held.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Capacity returns the maximum number of events the log holds.
func (l *Log) Capacity() int {
	return l.capacity
}

// Snapshot returns every held event, oldest first.
func (l *Log) Snapshot() []event.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

func (l *Log) snapshotLocked() []event.Event {
	out := make([]event.Event, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.events[(l.start+i)%l.capacity]
	}
	return out
}

// Clear empties the log and returns how many events were removed.
func (l *Log) Clear() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.size
	for i := range l.events {
		l.events[i] = nil
	}
	l.start, l.size = 0, 0
	return n
}

// Filter selects events from the log. Zero values leave a criterion unset.
type Filter struct {
	Kind  event.Kind
	ID    string
	From  time.Time // exclusive
	To    time.Time // exclusive
	Limit int
}

// Result is the answer to a Query.
type Result struct {
	Events   []event.Event `json:"data"`
	Total    int           `json:"total_records"`
	Filtered int           `json:"filtered_records"`
}

// Query returns a point-in-time copy of the events matching f, oldest first.
// Criteria apply in order: kind, id, from, to, then limit keeps the most
// recent matches. Events without an id never match an id filter.
func (l *Log) Query(f Filter) Result {
	l.mu.RLock()
	all := l.snapshotLocked()
	l.mu.RUnlock()

	matched := make([]event.Event, 0, len(all))
	for _, e := range all {
		if f.matches(e) {
			matched = append(matched, e)
		}
	}

	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[len(matched)-f.Limit:]
	}

	return Result{
		Events:   matched,
		Total:    len(all),
		Filtered: len(matched),
	}
}

func (f Filter) matches(e event.Event) bool {
	if f.Kind != "" && e.Kind() != f.Kind {
		return false
	}
	if f.ID != "" {
		id, ok := event.ID(e)
		if !ok || id != f.ID {
			return false
		}
	}
	if !f.From.IsZero() && !e.Time().After(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.Time().Before(f.To) {
		return false
	}
	return true
}
