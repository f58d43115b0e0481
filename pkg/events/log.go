package events

import (
	"context"

	"github.com/driveos/filecore/internal/logger"
)

// LogSink writes events to the structured log. Used when no broker is
// configured, and as a development fallback.
type LogSink struct{}

// NewLogSink creates a sink that logs each event.
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Publish logs the event at info level.
func (s *LogSink) Publish(_ context.Context, event Event) error {
	logger.Info("catalog event",
		logger.KeyEventType, event.Type,
		logger.KeyFileID, event.FileID,
		logger.KeyUserID, event.UserID,
		logger.KeyVersion, event.Version,
	)
	return nil
}
