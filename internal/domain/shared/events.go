package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain events. They are published after the owning transaction commits.
const (
	EventAttendanceSubmitted  EventType = "attendance.submitted"
	EventAttendanceRolledBack EventType = "attendance.rolled_back"
	EventAttendanceDayClosed  EventType = "attendance.day_closed"

	EventPointsAdjusted EventType = "ledger.adjusted"

	EventRecordExecuted EventType = "discipline.record_executed"
	EventLogCreated     EventType = "discipline.log_created"
	EventLogDeleted     EventType = "discipline.log_deleted"

	EventDirectoryChanged EventType = "directory.changed"
)

// Event is the base interface for all domain events.
type Event interface {
	EventType() EventType
	OccurredAt() time.Time
	// AggregateID identifies the entity the event is about.
	AggregateID() string
	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (e BaseEvent) EventType() EventType  { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) AggregateID() string   { return e.AggregateId }

// NewBaseEvent creates a new base event stamped with at.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{Type: eventType, Timestamp: at, AggregateId: aggregateID}
}

// ═══════════════════════════════════════════════════════════════════════════
// Attendance Events
// ═══════════════════════════════════════════════════════════════════════════

// AttendanceSubmittedEvent is emitted when a submission commits.
type AttendanceSubmittedEvent struct {
	BaseEvent
	AttendanceID int64     `json:"attendance_id"`
	UserID       int64     `json:"user_id"`
	StudentID    *int64    `json:"student_id,omitempty"`
	Status       string    `json:"status"`
	Date         time.Time `json:"date"`
	LedgerDelta  int       `json:"ledger_delta"`
}

func (e AttendanceSubmittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"attendance_id": e.AttendanceID,
		"user_id":       e.UserID,
		"student_id":    e.StudentID,
		"status":        e.Status,
		"date":          e.Date.Format("2006-01-02"),
		"ledger_delta":  e.LedgerDelta,
	}
}

// AttendanceRolledBackEvent is emitted after a whole day is rolled back.
type AttendanceRolledBackEvent struct {
	BaseEvent
	Date     time.Time `json:"date"`
	Reverted int       `json:"reverted"`
}

func (e AttendanceRolledBackEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"date":     e.Date.Format("2006-01-02"),
		"reverted": e.Reverted,
	}
}

// AttendanceDayClosedEvent is emitted when the end-of-day job marks absentees.
type AttendanceDayClosedEvent struct {
	BaseEvent
	Date         time.Time `json:"date"`
	MarkedAbsent int       `json:"marked_absent"`
}

func (e AttendanceDayClosedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"date":          e.Date.Format("2006-01-02"),
		"marked_absent": e.MarkedAbsent,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Ledger & Discipline Events
// ═══════════════════════════════════════════════════════════════════════════

// PointsAdjustedEvent is emitted once per committed ledger delta.
type PointsAdjustedEvent struct {
	BaseEvent
	StudentID int64  `json:"student_id"`
	Delta     int    `json:"delta"`
	NewTotal  int    `json:"new_total"`
	Reason    string `json:"reason"`
}

func (e PointsAdjustedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"delta":      e.Delta,
		"new_total":  e.NewTotal,
		"reason":     e.Reason,
	}
}

// RecordExecutedEvent is emitted when a teacher executes a pending record.
type RecordExecutedEvent struct {
	BaseEvent
	RecordID  int64  `json:"record_id"`
	StudentID int64  `json:"student_id"`
	TeacherID int64  `json:"teacher_id"`
	Decision  string `json:"decision"`
	LogsDone  int    `json:"logs_done"`
}

func (e RecordExecutedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"record_id":  e.RecordID,
		"student_id": e.StudentID,
		"teacher_id": e.TeacherID,
		"decision":   e.Decision,
		"logs_done":  e.LogsDone,
	}
}

// LogChangedEvent is emitted for manual log creation and deletion.
type LogChangedEvent struct {
	BaseEvent
	LogID     int64 `json:"log_id"`
	StudentID int64 `json:"student_id"`
	RuleID    int64 `json:"rule_id"`
	Delta     int   `json:"delta"`
}

func (e LogChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"log_id":     e.LogID,
		"student_id": e.StudentID,
		"rule_id":    e.RuleID,
		"delta":      e.Delta,
	}
}

// DirectoryChangedEvent is emitted when students, teachers or grades change.
type DirectoryChangedEvent struct {
	BaseEvent
	Entity string `json:"entity"`
	Action string `json:"action"`
}

func (e DirectoryChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"entity": e.Entity, "action": e.Action}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) error { return nil }

// EventRecorder buffers events raised inside a transaction so they can be
// published only after it commits.
type EventRecorder struct {
	events []Event
}

// Record appends e.
func (r *EventRecorder) Record(e Event) {
	r.events = append(r.events, e)
}

// Flush publishes buffered events in order and clears the buffer.
// Every event is attempted; publishing errors are collected.
func (r *EventRecorder) Flush(p EventPublisher) []error {
	var errs []error
	for _, e := range r.events {
		if err := p.Publish(e); err != nil {
			errs = append(errs, err)
		}
	}
	r.events = nil
	return errs
}

// Events returns the buffered events.
func (r *EventRecorder) Events() []Event {
	return r.events
}
