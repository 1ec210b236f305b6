package types

import "time"

// EventType defines the type of event emitted by a session.
type EventType string

const (
	EventTypeLog           EventType = "log"            // EventTypeLog carries a human-readable status line.
	EventTypeRunStart      EventType = "run_start"      // EventTypeRunStart indicates a bulk run has started.
	EventTypeRunProgress   EventType = "run_progress"   // EventTypeRunProgress indicates one item of a bulk run finished.
	EventTypeRunEnd        EventType = "run_end"        // EventTypeRunEnd indicates a bulk run has finished.
	EventTypeGroupProgress EventType = "group_progress" // EventTypeGroupProgress indicates a group page was loaded.
	EventTypeGroupLoaded   EventType = "group_loaded"   // EventTypeGroupLoaded indicates a group load reached a terminal state.
	EventTypeCollectRound  EventType = "collect_round"  // EventTypeCollectRound indicates one load-all round finished.
	EventTypeRefreshed     EventType = "refreshed"      // EventTypeRefreshed indicates the working set was re-enumerated.
	EventTypeBusy          EventType = "busy"           // EventTypeBusy indicates a change in the running state.
	EventTypeMutated       EventType = "mutated"        // EventTypeMutated indicates the ledger changed for an item.
)

// LogLevel is the severity of a log event.
type LogLevel string

const (
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// Event represents something that happened during a session.
type Event struct {
	// Type indicates the kind of event.
	Type EventType

	// Time is when the event was emitted.
	Time time.Time

	// Level is set for log events.
	Level LogLevel

	// Message is the human-readable text of the event.
	Message string

	// ItemID identifies the conversation for per-item events.
	ItemID string

	// GroupID identifies the project for group events.
	GroupID string

	// Action is the action being applied, if any.
	Action Action

	// Done and Total describe progress for run, group and collect events.
	Done  int
	Total int

	// Err is set when the event reports a failure.
	Err error

	// Busy is set for busy events.
	Busy bool

	// Summary is set for run end events.
	Summary *RunSummary
}

// NewLogEvent creates a log event.
func NewLogEvent(level LogLevel, message string) Event {
	return Event{Type: EventTypeLog, Time: time.Now(), Level: level, Message: message}
}

// NewBusyEvent creates a busy status event.
func NewBusyEvent(busy bool) Event {
	return Event{Type: EventTypeBusy, Time: time.Now(), Busy: busy}
}

// NewRunProgressEvent creates a per-item progress event for a bulk run.
func NewRunProgressEvent(action Action, itemID string, done, total int, err error) Event {
	return Event{
		Type:   EventTypeRunProgress,
		Time:   time.Now(),
		Action: action,
		ItemID: itemID,
		Done:   done,
		Total:  total,
		Err:    err,
	}
}

// NewRunEndEvent creates a run end event.
func NewRunEndEvent(summary RunSummary) Event {
	return Event{Type: EventTypeRunEnd, Time: time.Now(), Action: summary.Action, Summary: &summary}
}

// NewGroupProgressEvent creates a group page progress event.
func NewGroupProgressEvent(groupID string, loaded int) Event {
	return Event{Type: EventTypeGroupProgress, Time: time.Now(), GroupID: groupID, Done: loaded}
}

// Emitter receives session events.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

// Emit calls f(e).
func (f EmitterFunc) Emit(e Event) { f(e) }

// Discard is an Emitter that drops every event.
var Discard Emitter = EmitterFunc(func(Event) {})
