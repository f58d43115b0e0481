package models

import "time"

// PermissionLevel represents the access level a direct grant assigns on
// a file.
//
// Levels are totally ordered; each level includes all lower levels:
//
//	read < write < delete < share < admin
type PermissionLevel string

const (
	// LevelRead allows reading the file and its metadata.
	LevelRead PermissionLevel = "read"

	// LevelWrite allows renaming and uploading new content.
	LevelWrite PermissionLevel = "write"

	// LevelDelete allows moving the file to trash.
	LevelDelete PermissionLevel = "delete"

	// LevelShare allows granting access to other users.
	LevelShare PermissionLevel = "share"

	// LevelAdmin allows every operation on the file.
	LevelAdmin PermissionLevel = "admin"
)

// Rank returns the numeric rank of the level for comparison.
// Higher values indicate more permissive access.
//
// Returns:
//   - 1: read
//   - 2: write
//   - 3: delete
//   - 4: share
//   - 5: admin
//   - 0: anything else
func (p PermissionLevel) Rank() int {
	switch p {
	case LevelRead:
		return 1
	case LevelWrite:
		return 2
	case LevelDelete:
		return 3
	case LevelShare:
		return 4
	case LevelAdmin:
		return 5
	default:
		return 0
	}
}

// Includes returns true if this level covers the required level.
func (p PermissionLevel) Includes(required PermissionLevel) bool {
	return p.Rank() >= required.Rank() && p.Rank() > 0
}

// IsValid returns true if this is a valid permission level.
func (p PermissionLevel) IsValid() bool {
	return p.Rank() > 0
}

// String returns the string representation of the level.
func (p PermissionLevel) String() string {
	return string(p)
}

// ParsePermissionLevel converts a string to a PermissionLevel.
// Returns the empty level if the string is not valid.
func ParsePermissionLevel(s string) PermissionLevel {
	p := PermissionLevel(s)
	if p.IsValid() {
		return p
	}
	return ""
}

// SharePermission represents the access level carried by a share grant.
//
// Shares carry a coarser axis than direct grants: read, write, admin.
type SharePermission string

const (
	// ShareRead allows the recipient to read the file.
	ShareRead SharePermission = "read"

	// ShareWrite allows the recipient to read and modify the file.
	ShareWrite SharePermission = "write"

	// ShareAdmin allows the recipient full access, including delete
	// and re-share on the required-level axis.
	ShareAdmin SharePermission = "admin"
)

// Rank returns the numeric rank of the share permission.
func (p SharePermission) Rank() int {
	switch p {
	case ShareRead:
		return 1
	case ShareWrite:
		return 2
	case ShareAdmin:
		return 3
	default:
		return 0
	}
}

// CanRead returns true if this share level allows reading.
func (p SharePermission) CanRead() bool {
	return p.Rank() >= ShareRead.Rank()
}

// CanWrite returns true if this share level allows writing.
func (p SharePermission) CanWrite() bool {
	return p.Rank() >= ShareWrite.Rank()
}

// CanAdmin returns true if this share level allows delete/share/admin.
func (p SharePermission) CanAdmin() bool {
	return p.Rank() >= ShareAdmin.Rank()
}

// IsValid returns true if this is a valid share permission.
func (p SharePermission) IsValid() bool {
	return p.Rank() > 0
}

// String returns the string representation of the share permission.
func (p SharePermission) String() string {
	return string(p)
}

// ParseSharePermission converts a string to a SharePermission.
// Returns ShareRead if the string is not valid.
func ParseSharePermission(s string) SharePermission {
	p := SharePermission(s)
	if p.IsValid() {
		return p
	}
	return ShareRead
}

// ToPermissionLevel maps a share permission onto the direct-grant axis.
// The mapping is an explicit lookup so the share-to-grant translation
// lives in exactly one place.
func (p SharePermission) ToPermissionLevel() PermissionLevel {
	switch p {
	case ShareWrite:
		return LevelWrite
	case ShareAdmin:
		return LevelAdmin
	default:
		return LevelRead
	}
}

// Satisfies reports whether this share level grants the required
// direct-grant level: read is granted by any share, write requires a
// write or admin share, and delete/share/admin require an admin share.
func (p SharePermission) Satisfies(required PermissionLevel) bool {
	switch required {
	case LevelRead:
		return p.CanRead()
	case LevelWrite:
		return p.CanWrite()
	case LevelDelete, LevelShare, LevelAdmin:
		return p.CanAdmin()
	default:
		return false
	}
}

// FilePermission is a direct grant assigning an explicit level to a
// non-owner user. Multiple rows per (file, user) may exist; the
// resolver uses the highest.
type FilePermission struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	FileID    string          `gorm:"not null;size:36;index:idx_permissions_file_user" json:"file_id"`
	UserID    string          `gorm:"not null;size:36;index:idx_permissions_file_user" json:"user_id"`
	Level     PermissionLevel `gorm:"not null;size:16" json:"level"`
	GrantedBy string          `gorm:"not null;size:36" json:"granted_by"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for FilePermission.
func (FilePermission) TableName() string {
	return "file_permissions"
}
