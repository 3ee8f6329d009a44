// ABOUTME: Event types for the append-only run log plus filtering and summary queries.
// ABOUTME: Events are kept on the record during a run and archived to SQLite afterward.

package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies what happened at a point in the run.
type EventType string

const (
	EventRunStarted     EventType = "run.started"
	EventRunCompleted   EventType = "run.completed"
	EventRunBlocked     EventType = "run.blocked"
	EventStageStarted   EventType = "stage.started"
	EventStageCompleted EventType = "stage.completed"
	EventStageDegraded  EventType = "stage.degraded"
	EventStageRetrying  EventType = "stage.retrying"
)

// Event is one entry in a run's append-only log.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Stage     string    `json:"stage,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// newEvent stamps an ID and timestamp.
func newEvent(t EventType, stage, message string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Stage:     stage,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// EventHandler receives events as the engine emits them, in order.
type EventHandler func(Event)

// EventFilter selects a subset of a run's events. Zero values match
// everything; Limit 0 means unlimited.
type EventFilter struct {
	Types []EventType
	Stage string
	Since time.Time
	Limit int
}

// Apply returns the events matching the filter, preserving order.
func (f EventFilter) Apply(events []Event) []Event {
	var out []Event
	for _, ev := range events {
		if !f.matches(ev) {
			continue
		}
		out = append(out, ev)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

func (f EventFilter) matches(ev Event) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if ev.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Stage != "" && ev.Stage != f.Stage {
		return false
	}
	if !f.Since.IsZero() && ev.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// EventSummary aggregates a run's log for quick inspection.
type EventSummary struct {
	Total     int               `json:"total"`
	ByType    map[EventType]int `json:"by_type"`
	FirstTime time.Time         `json:"first_time,omitempty"`
	LastTime  time.Time         `json:"last_time,omitempty"`
}

// Summarize counts events per type and records the log's time span.
func Summarize(events []Event) EventSummary {
	s := EventSummary{ByType: make(map[EventType]int)}
	for _, ev := range events {
		s.Total++
		s.ByType[ev.Type]++
		if s.FirstTime.IsZero() || ev.Timestamp.Before(s.FirstTime) {
			s.FirstTime = ev.Timestamp
		}
		if ev.Timestamp.After(s.LastTime) {
			s.LastTime = ev.Timestamp
		}
	}
	return s
}
