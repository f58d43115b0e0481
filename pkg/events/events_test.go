package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC()
	event := New(TypeFileCreated, "file-1", "user-1", 3)
	after := time.Now().UTC()

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, TypeFileCreated, event.Type)
	assert.Equal(t, "file-1", event.FileID)
	assert.Equal(t, "user-1", event.UserID)
	assert.Equal(t, 3, event.Version)
	assert.False(t, event.Timestamp.Before(before))
	assert.False(t, event.Timestamp.After(after))
}

func TestNew_UniqueEventIDs(t *testing.T) {
	t.Parallel()

	a := New(TypeFileCreated, "f", "u", 1)
	b := New(TypeFileCreated, "f", "u", 1)

	assert.NotEqual(t, a.EventID, b.EventID)
}

func TestWithMetadata_DoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	original := New(TypeFileShared, "f", "u", 1)
	decorated := original.WithMetadata(map[string]string{"shared_with": "other"})

	assert.Nil(t, original.Metadata)
	require.NotNil(t, decorated.Metadata)
	assert.Equal(t, "other", decorated.Metadata["shared_with"])
	assert.Equal(t, original.EventID, decorated.EventID)
}

func TestEvent_JSONShape(t *testing.T) {
	t.Parallel()

	event := New(TypeFileMoved, "file-1", "user-1", 2).
		WithMetadata(map[string]string{"old_path": "/a", "new_path": "/b"})

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "file.moved", decoded["event_type"])
	assert.Equal(t, "file-1", decoded["file_id"])
	assert.Equal(t, "user-1", decoded["user_id"])
	assert.NotContains(t, decoded, "payload")
}

func TestLogSink_Publish(t *testing.T) {
	t.Parallel()

	sink := NewLogSink()
	err := sink.Publish(context.Background(), New(TypeFileDeleted, "f", "u", 1))

	require.NoError(t, err)
}
