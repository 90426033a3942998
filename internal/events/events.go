package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the service.
const (
	EventClassroomCreated = "classroom.created"
	EventClassroomJoined  = "classroom.joined"
	EventMaterialUploaded = "material.uploaded"
	EventMaterialDeleted  = "material.deleted"
)

// Event is the envelope published to the notification stream.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// NewEvent builds an event envelope with a fresh ID.
func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// EventPublisher publishes notification events. Publishing is best-effort:
// the request that triggered the event has already committed.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// ===== EVENT PAYLOADS =====

type ClassroomCreatedEvent struct {
	ClassroomID uint   `json:"classroom_id"`
	Name        string `json:"name"`
	Section     int    `json:"section"`
	ClassCode   string `json:"class_code"`
	TeacherID   uint   `json:"teacher_id"`
}

type ClassroomJoinedEvent struct {
	ClassroomID uint   `json:"classroom_id"`
	StudentID   uint   `json:"student_id"`
	Username    string `json:"username"`
}

type MaterialUploadedEvent struct {
	MaterialID  uint   `json:"material_id"`
	ClassroomID uint   `json:"classroom_id"`
	UploaderID  uint   `json:"uploader_id"`
	Name        string `json:"name"`
}

type MaterialDeletedEvent struct {
	MaterialID  uint   `json:"material_id"`
	ClassroomID uint   `json:"classroom_id"`
	DeletedBy   uint   `json:"deleted_by"`
}
