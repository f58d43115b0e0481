package catalog

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/driveos/filecore/internal/logger"
	"github.com/driveos/filecore/pkg/blob"
	"github.com/driveos/filecore/pkg/catalog/models"
	"github.com/driveos/filecore/pkg/catalog/store"
	"github.com/driveos/filecore/pkg/events"
	"github.com/driveos/filecore/pkg/metrics"
	"github.com/driveos/filecore/pkg/quota"
)

// FileCatalog is the canonical file/folder record store. It owns path
// uniqueness, the parent/child hierarchy, soft delete, and move/rename,
// and coordinates the quota and blob collaborators around each write.
type FileCatalog struct {
	store   *store.GORMStore
	access  *AccessResolver
	blob    blob.Store
	quota   quota.Coordinator
	events  events.Sink
	metrics metrics.CatalogMetrics
	cfg     Config
}

// NewFileCatalog creates the catalog service.
func NewFileCatalog(st *store.GORMStore, access *AccessResolver, blobStore blob.Store, quotaCoord quota.Coordinator, sink events.Sink, m metrics.CatalogMetrics, cfg Config) *FileCatalog {
	cfg.ApplyDefaults()
	return &FileCatalog{
		store:   st,
		access:  access,
		blob:    blobStore,
		quota:   quotaCoord,
		events:  sink,
		metrics: m,
		cfg:     cfg,
	}
}

// publish delivers a lifecycle event after commit. Failures are logged,
// never surfaced.
func publish(ctx context.Context, sink events.Sink, event events.Event) {
	if sink == nil {
		return
	}
	if err := sink.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish event",
			logger.KeyEventType, event.Type,
			logger.KeyFileID, event.FileID,
			logger.KeyError, err,
		)
	}
}

// record reports one operation to the metrics recorder.
func record(m metrics.CatalogMetrics, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RecordOperation(operation, outcome, time.Since(start))
}

// CreateFileParams carries the fields of a new catalog record.
type CreateFileParams struct {
	Name     string
	Path     string
	OwnerID  string
	Size     int64
	MimeType string
	Hash     string
	IsFolder bool
	ParentID *string
}

// CreateFile persists a new file or folder record.
//
// The path must be free among the owner's live records and the parent,
// when given, must be a live folder owned by the same user. For files
// the owner's quota is checked for the full size before any write; a
// denial aborts with ErrQuotaExceeded and no row is created. After the
// commit the quota usage update and upload URL issuance are best-effort.
func (c *FileCatalog) CreateFile(ctx context.Context, params CreateFileParams) (file *models.File, err error) {
	start := time.Now()
	defer func() { record(c.metrics, "create_file", start, err) }()

	if !params.IsFolder && c.cfg.MaxFileSize > 0 && params.Size > c.cfg.MaxFileSize.Int64() {
		return nil, models.ErrFileTooLarge
	}

	exists, err := c.store.LivePathExists(ctx, params.OwnerID, params.Path)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrDuplicatePath
	}

	if params.ParentID != nil {
		parent, err := c.store.GetLiveFile(ctx, *params.ParentID)
		if err != nil || !parent.IsFolder || parent.OwnerID != params.OwnerID {
			return nil, models.ErrParentNotFound
		}
	}

	if !params.IsFolder && params.Size > 0 {
		allowed, err := c.quota.CheckQuota(ctx, params.OwnerID, params.Size)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrQuotaUnavailable, err)
		}
		if !allowed {
			if c.metrics != nil {
				c.metrics.RecordQuotaDenied()
			}
			return nil, models.ErrQuotaExceeded
		}
	}

	file = &models.File{
		ID:       uuid.New().String(),
		Name:     params.Name,
		Path:     params.Path,
		ParentID: params.ParentID,
		OwnerID:  params.OwnerID,
		Size:     params.Size,
		MimeType: params.MimeType,
		Hash:     params.Hash,
		IsFolder: params.IsFolder,
		Version:  1,
	}
	if !params.IsFolder {
		file.StoragePath = file.StoragePathFor(1)
	}

	if _, err := c.store.CreateFile(ctx, file); err != nil {
		return nil, err
	}

	if !params.IsFolder {
		if params.Size > 0 {
			if err := c.quota.UpdateStorageUsed(ctx, params.OwnerID, params.Size); err != nil {
				logger.Warn("failed to update quota usage after create",
					logger.KeyFileID, file.ID,
					logger.KeyOwnerID, params.OwnerID,
					logger.KeyError, err,
				)
			}
		}
		if c.blob != nil {
			url, err := c.blob.IssueUploadURL(ctx, file.StoragePath)
			if err != nil {
				logger.Warn("failed to issue upload URL",
					logger.KeyFileID, file.ID,
					logger.KeyStorePath, file.StoragePath,
					logger.KeyError, err,
				)
			} else {
				file.UploadURL = url
			}
		}
	}

	publish(ctx, c.events, events.New(events.TypeFileCreated, file.ID, params.OwnerID, file.Version))
	return file, nil
}

// GetFile returns the live record, decorated with a best-effort
// download URL for files. Requires read access.
func (c *FileCatalog) GetFile(ctx context.Context, fileID, callerID string) (*models.File, error) {
	file, err := c.store.GetLiveFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	ok, err := c.access.CheckPermission(ctx, fileID, callerID, models.LevelRead)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrPermissionDenied
	}

	c.decorateDownloadURL(ctx, file)
	return file, nil
}

// GetFileByPath returns the live record at path in the owner's
// namespace.
func (c *FileCatalog) GetFileByPath(ctx context.Context, ownerID, filePath string) (*models.File, error) {
	file, err := c.store.GetLiveFileByPath(ctx, ownerID, filePath)
	if err != nil {
		return nil, err
	}
	c.decorateDownloadURL(ctx, file)
	return file, nil
}

func (c *FileCatalog) decorateDownloadURL(ctx context.Context, file *models.File) {
	if c.blob == nil || file.IsFolder || file.StoragePath == "" {
		return
	}
	url, err := c.blob.IssueDownloadURL(ctx, file.StoragePath)
	if err != nil {
		logger.Debug("failed to issue download URL",
			logger.KeyFileID, file.ID,
			logger.KeyError, err,
		)
		return
	}
	file.DownloadURL = url
}

// UpdatePatch carries the mutable fields of a record. Nil fields are
// left untouched.
type UpdatePatch struct {
	Name     *string
	Size     *int64
	Hash     *string
	MimeType *string
}

// UpdateFile applies a patch to a live record.
//
// Renames require write access; content-only updates require read
// access, an intentionally permissive policy for shared collaborators.
// When size or hash changes, the pre-update content pointer is archived
// as a version tagged with the current counter, then the counter is
// incremented and the storage pointer rotated. Growth is checked
// against the owner's quota before any write.
func (c *FileCatalog) UpdateFile(ctx context.Context, fileID, callerID string, patch UpdatePatch) (file *models.File, err error) {
	start := time.Now()
	defer func() { record(c.metrics, "update_file", start, err) }()

	file, err = c.store.GetLiveFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	renamed := patch.Name != nil && *patch.Name != file.Name
	contentChanged := (patch.Size != nil && *patch.Size != file.Size) ||
		(patch.Hash != nil && *patch.Hash != file.Hash)

	required := models.LevelRead
	if renamed {
		required = models.LevelWrite
	}
	ok, err := c.access.CheckPermission(ctx, fileID, callerID, required)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrPermissionDenied
	}

	var sizeDelta int64
	if contentChanged && patch.Size != nil {
		newSize := *patch.Size
		if c.cfg.MaxFileSize > 0 && newSize > c.cfg.MaxFileSize.Int64() {
			return nil, models.ErrFileTooLarge
		}
		sizeDelta = newSize - file.Size
		if sizeDelta > 0 {
			allowed, err := c.quota.CheckQuota(ctx, file.OwnerID, sizeDelta)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", models.ErrQuotaUnavailable, err)
			}
			if !allowed {
				if c.metrics != nil {
					c.metrics.RecordQuotaDenied()
				}
				return nil, models.ErrQuotaExceeded
			}
		}
	}

	var newPath string
	if renamed {
		newPath = siblingPath(file.Path, *patch.Name)
		exists, err := c.store.LivePathExists(ctx, file.OwnerID, newPath)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, models.ErrDuplicatePath
		}
	}

	err = c.store.Transaction(ctx, func(tx *store.GORMStore) error {
		if contentChanged {
			archive := &models.FileVersion{
				FileID:      file.ID,
				Version:     file.Version,
				Size:        file.Size,
				Hash:        file.Hash,
				StoragePath: file.StoragePath,
				CreatedBy:   callerID,
			}
			if _, err := tx.CreateVersion(ctx, archive); err != nil {
				// The current state may already be snapshotted under the
				// counter value, e.g. right after a restore.
				if !errors.Is(err, models.ErrDuplicateVersion) {
					return err
				}
			}

			if patch.Size != nil {
				file.Size = *patch.Size
			}
			if patch.Hash != nil {
				file.Hash = *patch.Hash
			}
			file.Version++
			file.StoragePath = file.StoragePathFor(file.Version)
		}

		if patch.MimeType != nil {
			file.MimeType = *patch.MimeType
		}

		if renamed {
			file.Name = *patch.Name
			file.Path = newPath
			if file.IsFolder {
				if err := recomputeDescendantPaths(ctx, tx, file); err != nil {
					return err
				}
			}
		}

		return tx.SaveFile(ctx, file)
	})
	if err != nil {
		return nil, err
	}

	if contentChanged {
		pruneVersions(ctx, c.store, c.blob, c.metrics, c.cfg, file)

		if sizeDelta != 0 {
			if err := c.quota.UpdateStorageUsed(ctx, file.OwnerID, sizeDelta); err != nil {
				logger.Warn("failed to update quota usage after update",
					logger.KeyFileID, file.ID,
					logger.KeyOwnerID, file.OwnerID,
					logger.KeyError, err,
				)
			}
		}
		if c.blob != nil {
			url, err := c.blob.IssueUploadURL(ctx, file.StoragePath)
			if err != nil {
				logger.Warn("failed to issue upload URL",
					logger.KeyFileID, file.ID,
					logger.KeyError, err,
				)
			} else {
				file.UploadURL = url
			}
		}
	}

	eventType := events.TypeFileUpdated
	if renamed && !contentChanged {
		eventType = events.TypeFileRenamed
	}
	event := events.New(eventType, file.ID, callerID, file.Version)
	if md := c.sharedUserMetadata(ctx, file.ID); md != nil {
		event = event.WithMetadata(md)
	}
	publish(ctx, c.events, event)

	return file, nil
}

// sharedUserMetadata lists the users the file is actively shared with,
// so event listeners can fan notifications out to collaborators.
func (c *FileCatalog) sharedUserMetadata(ctx context.Context, fileID string) map[string]string {
	shares, err := c.store.ListActiveSharesByFile(ctx, fileID, time.Now())
	if err != nil || len(shares) == 0 {
		return nil
	}
	ids := make([]byte, 0, len(shares)*37)
	for i, s := range shares {
		if i > 0 {
			ids = append(ids, ',')
		}
		ids = append(ids, s.SharedWithUserID...)
	}
	return map[string]string{"shared_with": string(ids)}
}

// siblingPath replaces the last path segment with name.
func siblingPath(oldPath, name string) string {
	dir := path.Dir(oldPath)
	if dir == "." || dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// childPath joins a parent folder path with a child name. A nil parent
// places the child at the root of the owner's namespace.
func childPath(parent *models.File, name string) string {
	if parent == nil {
		return "/" + name
	}
	return parent.Path + "/" + name
}

// recomputeDescendantPaths rewrites the path of every live descendant
// after the folder itself has been given its new path. Depth-first, one
// record at a time.
func recomputeDescendantPaths(ctx context.Context, tx *store.GORMStore, folder *models.File) error {
	children, err := tx.ListChildren(ctx, folder.ID)
	if err != nil {
		return err
	}
	for _, child := range children {
		child.Path = folder.Path + "/" + child.Name
		if err := tx.SaveFile(ctx, child); err != nil {
			return err
		}
		if child.IsFolder {
			if err := recomputeDescendantPaths(ctx, tx, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteFile moves a live record to trash, or permanently removes an
// already-trashed record. Requires delete access.
//
// Soft-deleting a folder soft-deletes its live children depth-first.
// The blob deletion and quota decrement after a soft delete are
// best-effort. A second delete purges the row together with its
// versions, shares, and grants.
func (c *FileCatalog) DeleteFile(ctx context.Context, fileID, callerID string) (err error) {
	start := time.Now()
	defer func() { record(c.metrics, "delete_file", start, err) }()

	file, err := c.store.GetFile(ctx, fileID)
	if err != nil {
		return err
	}

	ok, err := c.access.CheckPermission(ctx, fileID, callerID, models.LevelDelete)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrPermissionDenied
	}

	if file.IsDeleted {
		return c.hardDelete(ctx, file, callerID)
	}

	err = c.store.Transaction(ctx, func(tx *store.GORMStore) error {
		return softDeleteTree(ctx, tx, file)
	})
	if err != nil {
		return err
	}

	if !file.IsFolder {
		c.cleanupBlob(ctx, file)
		if file.Size > 0 {
			if err := c.quota.UpdateStorageUsed(ctx, file.OwnerID, -file.Size); err != nil {
				logger.Warn("failed to update quota usage after delete",
					logger.KeyFileID, file.ID,
					logger.KeyOwnerID, file.OwnerID,
					logger.KeyError, err,
				)
			}
		}
	}

	publish(ctx, c.events, events.New(events.TypeFileDeleted, file.ID, callerID, file.Version))
	return nil
}

// softDeleteTree marks the record and, for folders, every live
// descendant as deleted. Depth-first so children land in trash before
// their parent.
func softDeleteTree(ctx context.Context, tx *store.GORMStore, file *models.File) error {
	if file.IsFolder {
		children, err := tx.ListChildren(ctx, file.ID)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := softDeleteTree(ctx, tx, child); err != nil {
				return err
			}
		}
	}
	file.SoftDelete()
	return tx.SaveFile(ctx, file)
}

// hardDelete purges a trashed record. The quota was already adjusted at
// soft-delete time, so only the blob cleanup and the row cascade remain.
func (c *FileCatalog) hardDelete(ctx context.Context, file *models.File, callerID string) error {
	c.cleanupBlob(ctx, file)

	versions, err := c.store.ListVersions(ctx, file.ID)
	if err == nil {
		for _, v := range versions {
			if v.StoragePath != "" && v.StoragePath != file.StoragePath {
				c.deleteBlobPath(ctx, file.ID, v.StoragePath)
			}
		}
	}

	if err := c.store.HardDeleteFile(ctx, file.ID); err != nil {
		return err
	}

	publish(ctx, c.events, events.New(events.TypeFileHardDeleted, file.ID, callerID, file.Version))
	return nil
}

func (c *FileCatalog) cleanupBlob(ctx context.Context, file *models.File) {
	if file.IsFolder || file.StoragePath == "" {
		return
	}
	c.deleteBlobPath(ctx, file.ID, file.StoragePath)
}

func (c *FileCatalog) deleteBlobPath(ctx context.Context, fileID, storagePath string) {
	if c.blob == nil {
		return
	}
	if err := c.blob.Delete(ctx, storagePath); err != nil {
		logger.Warn("failed to delete blob",
			logger.KeyFileID, fileID,
			logger.KeyStorePath, storagePath,
			logger.KeyError, err,
		)
	}
}

// MoveFile reparents a live record. Requires write access on the file
// and on both the source and destination folders.
//
// The destination must be a live folder in the same namespace and must
// not be the file itself or any of its descendants. The file's path is
// recomputed from the new parent; for folders every descendant path is
// rewritten depth-first. A collision with a live record rejects the
// move and leaves the tree unchanged.
func (c *FileCatalog) MoveFile(ctx context.Context, fileID string, newParentID *string, callerID string) (file *models.File, err error) {
	start := time.Now()
	defer func() { record(c.metrics, "move_file", start, err) }()

	file, err = c.store.GetLiveFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	ok, err := c.access.CheckPermission(ctx, fileID, callerID, models.LevelWrite)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrPermissionDenied
	}

	if file.ParentID != nil {
		ok, err := c.access.CheckPermission(ctx, *file.ParentID, callerID, models.LevelWrite)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, models.ErrPermissionDenied
		}
	}

	var parent *models.File
	if newParentID != nil {
		if *newParentID == fileID {
			return nil, models.ErrFolderCycle
		}

		parent, err = c.store.GetLiveFile(ctx, *newParentID)
		if err != nil {
			return nil, models.ErrParentNotFound
		}
		if !parent.IsFolder {
			return nil, models.ErrNotAFolder
		}
		if parent.OwnerID != file.OwnerID {
			return nil, models.ErrParentNotFound
		}

		ok, err := c.access.CheckPermission(ctx, parent.ID, callerID, models.LevelWrite)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, models.ErrPermissionDenied
		}

		// Cycle guard: walk the destination's ancestor chain; any hit
		// on the moved file means it would become its own ancestor.
		if file.IsFolder {
			if err := c.ensureNotDescendant(ctx, fileID, parent); err != nil {
				return nil, err
			}
		}
	}

	newPath := childPath(parent, file.Name)
	if newPath != file.Path {
		exists, err := c.store.LivePathExists(ctx, file.OwnerID, newPath)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, models.ErrDuplicatePath
		}
	}

	err = c.store.Transaction(ctx, func(tx *store.GORMStore) error {
		file.ParentID = newParentID
		file.Path = newPath
		if err := tx.SaveFile(ctx, file); err != nil {
			return err
		}
		if file.IsFolder {
			return recomputeDescendantPaths(ctx, tx, file)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, c.events, events.New(events.TypeFileMoved, file.ID, callerID, file.Version))
	return file, nil
}

// ensureNotDescendant walks up from candidate and fails with
// ErrFolderCycle if fileID appears in the ancestor chain.
func (c *FileCatalog) ensureNotDescendant(ctx context.Context, fileID string, candidate *models.File) error {
	current := candidate
	for current.ParentID != nil {
		if *current.ParentID == fileID {
			return models.ErrFolderCycle
		}
		next, err := c.store.GetFile(ctx, *current.ParentID)
		if err != nil {
			return err
		}
		current = next
	}
	return nil
}

// ListFiles returns a page of the owner's live records, folders first.
func (c *FileCatalog) ListFiles(ctx context.Context, params store.ListFilesParams) ([]*models.File, int64, error) {
	return c.store.ListFiles(ctx, params)
}

// SearchFiles returns live records whose name matches the query,
// anywhere in the owner's namespace.
func (c *FileCatalog) SearchFiles(ctx context.Context, ownerID, query string, limit, offset int) ([]*models.File, int64, error) {
	return c.store.ListFiles(ctx, store.ListFilesParams{
		OwnerID: ownerID,
		Search:  query,
		Limit:   limit,
		Offset:  offset,
	})
}

// ListTrash returns a page of the owner's trashed records.
func (c *FileCatalog) ListTrash(ctx context.Context, ownerID string, limit, offset int) ([]*models.File, int64, error) {
	return c.store.ListTrash(ctx, ownerID, limit, offset)
}

// RestoreFile brings a trashed record back to life. Owner-only.
//
// Deleted ancestors are re-activated along the way so the restored
// record is reachable again. Restoring fails when a live record has
// taken the path in the meantime.
func (c *FileCatalog) RestoreFile(ctx context.Context, fileID, callerID string) (file *models.File, err error) {
	start := time.Now()
	defer func() { record(c.metrics, "restore_file", start, err) }()

	file, err = c.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != callerID {
		return nil, models.ErrPermissionDenied
	}
	if !file.IsDeleted {
		return file, nil
	}

	exists, err := c.store.LivePathExists(ctx, file.OwnerID, file.Path)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrDuplicatePath
	}

	err = c.store.Transaction(ctx, func(tx *store.GORMStore) error {
		// Re-activate deleted ancestors bottom-up so the restored
		// record has a live parent chain.
		parentID := file.ParentID
		for parentID != nil {
			parent, err := tx.GetFile(ctx, *parentID)
			if err != nil {
				return err
			}
			if parent.IsDeleted {
				parent.Restore()
				if err := tx.SaveFile(ctx, parent); err != nil {
					return err
				}
			}
			parentID = parent.ParentID
		}

		file.Restore()
		return tx.SaveFile(ctx, file)
	})
	if err != nil {
		return nil, err
	}

	if !file.IsFolder && file.Size > 0 {
		if err := c.quota.UpdateStorageUsed(ctx, file.OwnerID, file.Size); err != nil {
			logger.Warn("failed to update quota usage after restore",
				logger.KeyFileID, file.ID,
				logger.KeyOwnerID, file.OwnerID,
				logger.KeyError, err,
			)
		}
	}

	publish(ctx, c.events, events.New(events.TypeFileRestored, file.ID, callerID, file.Version))
	return file, nil
}

// EmptyTrash permanently removes every trashed record for the owner.
// Returns the number of purged records.
//
// When the blob deletion for a record fails, the database row is kept
// so the content pointer is not orphaned silently; the record is picked
// up again by the next sweep.
func (c *FileCatalog) EmptyTrash(ctx context.Context, ownerID string) (purged int, err error) {
	start := time.Now()
	defer func() { record(c.metrics, "empty_trash", start, err) }()

	trashed, err := c.store.ListTrashAll(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	for _, file := range trashed {
		if !file.IsFolder && file.StoragePath != "" && c.blob != nil {
			if err := c.blob.Delete(ctx, file.StoragePath); err != nil {
				logger.Warn("skipping trash purge, blob delete failed",
					logger.KeyFileID, file.ID,
					logger.KeyStorePath, file.StoragePath,
					logger.KeyError, err,
				)
				continue
			}
		}

		if err := c.store.HardDeleteFile(ctx, file.ID); err != nil {
			logger.Warn("failed to purge trashed file",
				logger.KeyFileID, file.ID,
				logger.KeyError, err,
			)
			continue
		}
		purged++

		publish(ctx, c.events, events.New(events.TypeFileHardDeleted, file.ID, ownerID, file.Version))
	}

	return purged, nil
}
