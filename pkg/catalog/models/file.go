package models

import (
	"fmt"
	"time"
)

// File is the canonical catalog record for a file or folder.
//
// Paths are unique per owner among non-deleted records. The uniqueness
// is enforced at the service layer with a query-time check rather than
// a database constraint, because soft-deleted records may keep a path
// that a live record later reuses.
//
// The parent/child hierarchy is stored as a plain parent-id foreign
// key; children are derived by query. This keeps the tree free of
// object reference cycles and makes ancestor walks simple iterative
// lookups.
type File struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Name        string     `gorm:"not null;size:255" json:"name"`
	Path        string     `gorm:"not null;size:1024;index:idx_files_owner_path" json:"path"`
	ParentID    *string    `gorm:"size:36;index" json:"parent_id,omitempty"`
	OwnerID     string     `gorm:"not null;size:36;index:idx_files_owner_path" json:"owner_id"`
	Size        int64      `gorm:"not null;default:0" json:"size"`
	MimeType    string     `gorm:"size:255" json:"mime_type,omitempty"`
	Hash        string     `gorm:"size:128" json:"hash,omitempty"`
	IsFolder    bool       `gorm:"not null;default:false" json:"is_folder"`
	Version     int        `gorm:"not null;default:1" json:"version"`
	StoragePath string     `gorm:"size:1024" json:"storage_path,omitempty"`
	IsDeleted   bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships. Versions, shares and grants are lifetime-bound to
	// the file: purging the file purges these rows.
	Versions    []FileVersion    `gorm:"foreignKey:FileID" json:"-"`
	Shares      []FileShare      `gorm:"foreignKey:FileID" json:"-"`
	Permissions []FilePermission `gorm:"foreignKey:FileID" json:"-"`

	// Presigned URLs, decorated per request (not stored in DB)
	UploadURL   string `gorm:"-" json:"upload_url,omitempty"`
	DownloadURL string `gorm:"-" json:"download_url,omitempty"`
}

// TableName returns the table name for File.
func (File) TableName() string {
	return "files"
}

// SoftDelete marks the record as deleted without removing the row.
func (f *File) SoftDelete() {
	now := time.Now()
	f.IsDeleted = true
	f.DeletedAt = &now
}

// Restore clears the soft-delete markers.
func (f *File) Restore() {
	f.IsDeleted = false
	f.DeletedAt = nil
}

// StoragePathFor returns the deterministic blob key for a given version
// of this file. Format: files/{fileId}/v{version}/data.
func (f *File) StoragePathFor(version int) string {
	return fmt.Sprintf("files/%s/v%d/data", f.ID, version)
}

// FileVersion is an immutable snapshot of a file's content pointer.
//
// Version numbers are unique per file and never reused; the owning
// file's version counter is always >= the highest version number.
type FileVersion struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	FileID      string    `gorm:"not null;size:36;uniqueIndex:idx_versions_file_number" json:"file_id"`
	Version     int       `gorm:"not null;uniqueIndex:idx_versions_file_number" json:"version"`
	Size        int64     `gorm:"not null" json:"size"`
	Hash        string    `gorm:"size:128" json:"hash,omitempty"`
	StoragePath string    `gorm:"size:1024" json:"storage_path,omitempty"`
	CreatedBy   string    `gorm:"not null;size:36" json:"created_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for FileVersion.
func (FileVersion) TableName() string {
	return "file_versions"
}
