// Package events defines the lifecycle event sink consumed by the
// catalog services.
//
// Events are published after the local database transaction commits,
// so listeners never observe an event for a rolled-back write. Delivery
// is fire-and-forget: a failing publish is logged and never changes the
// caller-visible outcome.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published by the catalog.
const (
	TypeFileCreated         = "file.created"
	TypeFileUpdated         = "file.updated"
	TypeFileRenamed         = "file.renamed"
	TypeFileVersionUploaded = "file.version_uploaded"
	TypeFileDeleted         = "file.deleted"
	TypeFileHardDeleted     = "file.hard_deleted"
	TypeFileMoved           = "file.moved"
	TypeFileRestored        = "file.restored"
	TypeFileShared          = "file.shared"
	TypeFileUnshared        = "file.unshared"
)

// Event is a catalog lifecycle notification.
type Event struct {
	EventID   string            `json:"event_id"`
	Type      string            `json:"event_type"`
	FileID    string            `json:"file_id"`
	UserID    string            `json:"user_id"`
	Version   int               `json:"version,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Payload   any               `json:"payload,omitempty"`
}

// New creates an event with a fresh id and the current timestamp.
func New(eventType, fileID, userID string, version int) Event {
	return Event{
		EventID:   uuid.New().String(),
		Type:      eventType,
		FileID:    fileID,
		UserID:    userID,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}
}

// WithMetadata returns a copy of the event carrying extra metadata.
func (e Event) WithMetadata(md map[string]string) Event {
	e.Metadata = md
	return e
}

// WithPayload returns a copy of the event carrying a payload.
func (e Event) WithPayload(payload any) Event {
	e.Payload = payload
	return e
}

// Sink delivers catalog events to interested listeners.
type Sink interface {
	// Publish delivers the event. Implementations should be fast;
	// callers invoke Publish after commit and log failures only.
	Publish(ctx context.Context, event Event) error
}
