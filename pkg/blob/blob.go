// Package blob provides the client interface to the external blob
// storage service holding file content.
//
// The catalog never stores bytes itself; it hands out presigned upload
// and download URLs and keeps a storage pointer per version. Calls made
// after a successful catalog commit (URL issuance, deletion, pruning
// cleanup) are best-effort: failures are logged, never surfaced.
package blob

import "context"

// Store is the blob storage collaborator consumed by the catalog.
type Store interface {
	// IssueUploadURL returns a presigned URL the client uses to upload
	// the content for the given version of a file.
	IssueUploadURL(ctx context.Context, storagePath string) (string, error)

	// IssueDownloadURL returns a presigned URL for reading the content
	// at the given storage pointer.
	IssueDownloadURL(ctx context.Context, storagePath string) (string, error)

	// Delete removes the blob at the given storage pointer.
	Delete(ctx context.Context, storagePath string) error

	// SaveVersionMetadata registers a version's storage pointer with
	// the blob store. Called synchronously during version restore so a
	// concurrent download never sees a version the store does not know.
	SaveVersionMetadata(ctx context.Context, fileID string, version int, storagePath string, size int64) error
}
