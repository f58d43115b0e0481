package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/driveos/filecore/internal/logger"
	"github.com/driveos/filecore/pkg/blob"
	"github.com/driveos/filecore/pkg/catalog/models"
	"github.com/driveos/filecore/pkg/catalog/store"
	"github.com/driveos/filecore/pkg/events"
	"github.com/driveos/filecore/pkg/metrics"
)

// VersionManager creates, prunes, and restores historical snapshots of
// a file's content pointer.
type VersionManager struct {
	store   *store.GORMStore
	access  *AccessResolver
	blob    blob.Store
	events  events.Sink
	metrics metrics.CatalogMetrics
	cfg     Config
}

// NewVersionManager creates the version service.
func NewVersionManager(st *store.GORMStore, access *AccessResolver, blobStore blob.Store, sink events.Sink, m metrics.CatalogMetrics, cfg Config) *VersionManager {
	cfg.ApplyDefaults()
	return &VersionManager{
		store:   st,
		access:  access,
		blob:    blobStore,
		events:  sink,
		metrics: m,
		cfg:     cfg,
	}
}

// VersionParams carries an explicit version snapshot. The number is
// supplied by the caller, never auto-assigned, matching the
// archive-on-update pattern used by the catalog.
type VersionParams struct {
	Version     int
	Size        int64
	Hash        string
	StoragePath string
}

// CreateVersion records a snapshot for the file. Requires write access.
//
// A number that already exists for the file is rejected. A number above
// the file's counter bumps the counter to match, keeping the invariant
// that the counter is never below the highest stored number. After the
// insert, retention pruning removes snapshots beyond the count cap or
// older than the retention window, never touching the number that
// equals the current counter.
func (v *VersionManager) CreateVersion(ctx context.Context, fileID, callerID string, params VersionParams) (version *models.FileVersion, err error) {
	start := time.Now()
	defer func() { record(v.metrics, "create_version", start, err) }()

	file, err := v.store.GetLiveFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	ok, err := v.access.CheckPermission(ctx, fileID, callerID, models.LevelWrite)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrPermissionDenied
	}

	if params.Version < 1 {
		return nil, models.ErrInvalidVersion
	}

	storagePath := params.StoragePath
	if storagePath == "" {
		storagePath = file.StoragePathFor(params.Version)
	}

	version = &models.FileVersion{
		FileID:      fileID,
		Version:     params.Version,
		Size:        params.Size,
		Hash:        params.Hash,
		StoragePath: storagePath,
		CreatedBy:   callerID,
	}

	err = v.store.Transaction(ctx, func(tx *store.GORMStore) error {
		if _, err := tx.CreateVersion(ctx, version); err != nil {
			return err
		}
		if params.Version > file.Version {
			file.Version = params.Version
			return tx.SaveFile(ctx, file)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pruneVersions(ctx, v.store, v.blob, v.metrics, v.cfg, file)

	publish(ctx, v.events, events.New(events.TypeFileVersionUploaded, fileID, callerID, params.Version))
	return version, nil
}

// GetVersions returns the file's snapshots, newest first. Requires read
// access.
func (v *VersionManager) GetVersions(ctx context.Context, fileID, callerID string) ([]*models.FileVersion, error) {
	if _, err := v.store.GetFile(ctx, fileID); err != nil {
		return nil, err
	}

	ok, err := v.access.CheckPermission(ctx, fileID, callerID, models.LevelRead)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrPermissionDenied
	}

	return v.store.ListVersions(ctx, fileID)
}

// GetVersion returns one snapshot by number. Requires read access.
func (v *VersionManager) GetVersion(ctx context.Context, fileID string, number int, callerID string) (*models.FileVersion, error) {
	ok, err := v.access.CheckPermission(ctx, fileID, callerID, models.LevelRead)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrPermissionDenied
	}

	return v.store.GetVersion(ctx, fileID, number)
}

// RestoreVersion makes a historical snapshot the file's live content.
// Requires write access.
//
// This is a forward copy, not an in-place revert: the pre-restore state
// is archived under the current counter value, the target's content
// pointer is written to the record under counter+1, and the target
// snapshot itself is untouched. The new storage pointer is registered
// with the blob store before returning so a concurrent download never
// sees a version the store does not know about.
func (v *VersionManager) RestoreVersion(ctx context.Context, fileID string, targetVersion int, callerID string) (file *models.File, err error) {
	start := time.Now()
	defer func() { record(v.metrics, "restore_version", start, err) }()

	file, err = v.store.GetLiveFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	ok, err := v.access.CheckPermission(ctx, fileID, callerID, models.LevelWrite)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrPermissionDenied
	}

	target, err := v.store.GetVersion(ctx, fileID, targetVersion)
	if err != nil {
		return nil, err
	}

	newNumber := file.Version + 1

	err = v.store.Transaction(ctx, func(tx *store.GORMStore) error {
		archive := &models.FileVersion{
			FileID:      fileID,
			Version:     file.Version,
			Size:        file.Size,
			Hash:        file.Hash,
			StoragePath: file.StoragePath,
			CreatedBy:   callerID,
		}
		if _, err := tx.CreateVersion(ctx, archive); err != nil {
			// The current state may already be snapshotted under the
			// counter value, e.g. after an explicit version upload.
			if !errors.Is(err, models.ErrDuplicateVersion) {
				return err
			}
		}

		restored := &models.FileVersion{
			FileID:      fileID,
			Version:     newNumber,
			Size:        target.Size,
			Hash:        target.Hash,
			StoragePath: target.StoragePath,
			CreatedBy:   callerID,
		}
		if _, err := tx.CreateVersion(ctx, restored); err != nil {
			return err
		}

		file.Size = target.Size
		file.Hash = target.Hash
		file.StoragePath = target.StoragePath
		file.Version = newNumber
		return tx.SaveFile(ctx, file)
	})
	if err != nil {
		return nil, err
	}

	if v.blob != nil {
		if err := v.blob.SaveVersionMetadata(ctx, fileID, newNumber, file.StoragePath, file.Size); err != nil {
			logger.Warn("failed to register restored version with blob store",
				logger.KeyFileID, fileID,
				logger.KeyVersion, newNumber,
				logger.KeyError, err,
			)
		}
	}

	publish(ctx, v.events, events.New(events.TypeFileRestored, fileID, callerID, newNumber))
	return file, nil
}

// pruneVersions enforces retention after an insert: snapshots beyond
// the count cap or older than the retention window are removed, oldest
// first. The snapshot whose number equals the file's current counter is
// always spared. Both the explicit upload path and the archive-on-update
// path run this after every insert. Blob cleanup for pruned snapshots is
// best-effort.
func pruneVersions(ctx context.Context, st *store.GORMStore, blobStore blob.Store, m metrics.CatalogMetrics, cfg Config, file *models.File) {
	versions, err := st.ListVersions(ctx, file.ID)
	if err != nil {
		logger.Warn("failed to list versions for pruning",
			logger.KeyFileID, file.ID,
			logger.KeyError, err,
		)
		return
	}

	cutoff := time.Now().AddDate(0, 0, -cfg.VersionRetentionDays)

	// ListVersions is newest-number first; walk from the tail so the
	// oldest snapshots go first.
	pruned := 0
	kept := len(versions)
	for i := len(versions) - 1; i >= 0; i-- {
		ver := versions[i]
		if ver.Version == file.Version {
			continue
		}

		overCap := kept > cfg.MaxVersionsPerFile
		expired := ver.CreatedAt.Before(cutoff)
		if !overCap && !expired {
			continue
		}

		if err := st.DeleteVersion(ctx, ver.ID); err != nil {
			logger.Warn("failed to prune version",
				logger.KeyFileID, file.ID,
				logger.KeyVersion, ver.Version,
				logger.KeyError, err,
			)
			continue
		}
		kept--
		pruned++

		if ver.StoragePath != "" && ver.StoragePath != file.StoragePath && blobStore != nil {
			if err := blobStore.Delete(ctx, ver.StoragePath); err != nil {
				logger.Warn("failed to delete pruned version blob",
					logger.KeyFileID, file.ID,
					logger.KeyVersion, ver.Version,
					logger.KeyStorePath, ver.StoragePath,
					logger.KeyError, err,
				)
			}
		}
	}

	if pruned > 0 {
		if m != nil {
			m.RecordVersionsPruned(pruned)
		}
		logger.Debug("pruned file versions",
			logger.KeyFileID, file.ID,
			"pruned", pruned,
		)
	}
}
