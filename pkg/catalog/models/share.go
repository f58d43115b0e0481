package models

import "time"

// FileShare is a time-bounded grant created by the owner for a specific
// target user. One row per (file, target user); re-sharing the same
// pair updates the existing row.
//
// IsActive is written true at creation and is NOT authoritative for
// liveness: nothing flips it on expiry or revoke. A share is active iff
// ExpiresAt is nil or in the future, evaluated at query time. The
// column is kept for compatibility with existing consumers of the
// table.
type FileShare struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	FileID           string          `gorm:"not null;size:36;uniqueIndex:idx_shares_file_user" json:"file_id"`
	SharedWithUserID string          `gorm:"not null;size:36;uniqueIndex:idx_shares_file_user;index" json:"shared_with_user_id"`
	Permission       SharePermission `gorm:"not null;size:16" json:"permission"`
	CreatedBy        string          `gorm:"not null;size:36" json:"created_by"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
	IsActive         bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`

	// Preloaded owning file for listing endpoints (optional).
	File *File `gorm:"foreignKey:FileID" json:"file,omitempty"`
}

// TableName returns the table name for FileShare.
func (FileShare) TableName() string {
	return "file_shares"
}

// Active reports whether the share is live at the given instant.
// Expiry comparison is the source of truth, not the IsActive flag.
func (s *FileShare) Active(now time.Time) bool {
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}
