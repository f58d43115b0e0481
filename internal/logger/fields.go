package logger

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so catalog
// events can be aggregated and queried by field.
const (
	// Catalog entities
	KeyFileID    = "file_id"
	KeyParentID  = "parent_id"
	KeyOwnerID   = "owner_id"
	KeyUserID    = "user_id"
	KeyShareID   = "share_id"
	KeyVersion   = "version"
	KeyPath      = "path"
	KeyName      = "name"
	KeySize      = "size"
	KeyLevel     = "level"
	KeyStorePath = "storage_path"

	// Operations
	KeyOperation = "operation"
	KeyEventType = "event_type"
	KeyDuration  = "duration_ms"
	KeyError     = "error"
)
