package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/driveos/filecore/internal/logger"
	"github.com/driveos/filecore/pkg/catalog/models"
	"github.com/driveos/filecore/pkg/catalog/store"
	"github.com/driveos/filecore/pkg/events"
	"github.com/driveos/filecore/pkg/metrics"
)

// ShareRegistry owns the lifecycle of time-bounded share grants:
// create/update, revoke, listing, and the expiry sweep. Shares are read
// by the access resolver; liveness is always determined by expiry
// comparison at query time, never by the sweep having run.
type ShareRegistry struct {
	store   *store.GORMStore
	events  events.Sink
	metrics metrics.CatalogMetrics
	cfg     Config
}

// NewShareRegistry creates the share service.
func NewShareRegistry(st *store.GORMStore, sink events.Sink, m metrics.CatalogMetrics, cfg Config) *ShareRegistry {
	cfg.ApplyDefaults()
	return &ShareRegistry{
		store:   st,
		events:  sink,
		metrics: m,
		cfg:     cfg,
	}
}

// ShareFile grants targetUserID access to the file. Owner-only.
//
// Sharing with yourself is rejected, as is sharing once the file's
// active-share count has reached the configured cap. Re-sharing an
// already-shared (file, user) pair updates the existing row in place
// rather than creating a duplicate. A missing expiry defaults to now
// plus the configured window.
func (r *ShareRegistry) ShareFile(ctx context.Context, fileID, ownerID, targetUserID string, level models.SharePermission, expiresAt *time.Time) (share *models.FileShare, err error) {
	start := time.Now()
	defer func() { record(r.metrics, "share_file", start, err) }()

	file, err := r.store.GetLiveFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != ownerID {
		return nil, models.ErrPermissionDenied
	}
	if targetUserID == ownerID {
		return nil, models.ErrSelfShare
	}
	if !level.IsValid() {
		level = models.ShareRead
	}

	now := time.Now()
	if expiresAt == nil {
		expiry := now.AddDate(0, 0, r.cfg.DefaultShareExpiryDays)
		expiresAt = &expiry
	}

	existing, err := r.store.GetShare(ctx, fileID, targetUserID)
	if err != nil && !errors.Is(err, models.ErrShareNotFound) {
		return nil, err
	}

	if existing != nil {
		existing.Permission = level
		existing.ExpiresAt = expiresAt
		if err := r.store.UpdateShare(ctx, existing); err != nil {
			return nil, err
		}
		share = existing
	} else {
		count, err := r.store.CountActiveShares(ctx, fileID, now)
		if err != nil {
			return nil, err
		}
		if count >= int64(r.cfg.MaxSharesPerFile) {
			return nil, models.ErrShareLimitReached
		}

		share = &models.FileShare{
			FileID:           fileID,
			SharedWithUserID: targetUserID,
			Permission:       level,
			CreatedBy:        ownerID,
			ExpiresAt:        expiresAt,
		}
		if _, err := r.store.CreateShare(ctx, share); err != nil {
			return nil, err
		}
	}

	event := events.New(events.TypeFileShared, fileID, ownerID, file.Version).
		WithMetadata(map[string]string{
			"shared_with": targetUserID,
			"permission":  level.String(),
		})
	publish(ctx, r.events, event)

	return share, nil
}

// RevokeShare removes the share for (file, target user). Owner-only.
// Revocation deletes the row outright; there is no flag flip.
func (r *ShareRegistry) RevokeShare(ctx context.Context, fileID, ownerID, targetUserID string) (err error) {
	start := time.Now()
	defer func() { record(r.metrics, "revoke_share", start, err) }()

	file, err := r.store.GetLiveFile(ctx, fileID)
	if err != nil {
		return err
	}
	if file.OwnerID != ownerID {
		return models.ErrPermissionDenied
	}

	share, err := r.store.GetShare(ctx, fileID, targetUserID)
	if err != nil {
		return err
	}

	if err := r.store.DeleteShare(ctx, share.ID); err != nil {
		return err
	}

	event := events.New(events.TypeFileUnshared, fileID, ownerID, file.Version).
		WithMetadata(map[string]string{"shared_with": targetUserID})
	publish(ctx, r.events, event)

	return nil
}

// RevokeShareByID removes a share by its id. Allowed for the file owner
// and for the share recipient, who may leave a share they no longer
// want.
func (r *ShareRegistry) RevokeShareByID(ctx context.Context, shareID, callerID string) error {
	share, err := r.store.GetShareByID(ctx, shareID)
	if err != nil {
		return err
	}

	file, err := r.store.GetFile(ctx, share.FileID)
	if err != nil {
		return err
	}
	if callerID != file.OwnerID && callerID != share.SharedWithUserID {
		return models.ErrPermissionDenied
	}

	if err := r.store.DeleteShare(ctx, share.ID); err != nil {
		return err
	}

	event := events.New(events.TypeFileUnshared, share.FileID, callerID, file.Version).
		WithMetadata(map[string]string{"shared_with": share.SharedWithUserID})
	publish(ctx, r.events, event)

	return nil
}

// RevokeAllShares removes every share on the file. Owner-only.
// Returns the number of rows removed.
func (r *ShareRegistry) RevokeAllShares(ctx context.Context, fileID, ownerID string) (int64, error) {
	file, err := r.store.GetLiveFile(ctx, fileID)
	if err != nil {
		return 0, err
	}
	if file.OwnerID != ownerID {
		return 0, models.ErrPermissionDenied
	}

	removed, err := r.store.DeleteSharesByFile(ctx, fileID)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		publish(ctx, r.events, events.New(events.TypeFileUnshared, fileID, ownerID, file.Version))
	}

	return removed, nil
}

// ListMyShares returns the active shares on every live file the user
// owns, with the owning file preloaded.
func (r *ShareRegistry) ListMyShares(ctx context.Context, ownerID string) ([]*models.FileShare, error) {
	return r.store.ListActiveSharesByOwner(ctx, ownerID, time.Now())
}

// ListSharedWithMe returns a page of the active shares granted to the
// user, with the owning file preloaded. Shares on deleted files are
// excluded.
func (r *ShareRegistry) ListSharedWithMe(ctx context.Context, userID string, limit, offset int) ([]*models.FileShare, int64, error) {
	return r.store.ListActiveSharesForUser(ctx, userID, time.Now(), limit, offset)
}

// GetFileShares returns the active shares on a file. Owner-only.
func (r *ShareRegistry) GetFileShares(ctx context.Context, fileID, callerID string) ([]*models.FileShare, error) {
	file, err := r.store.GetLiveFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != callerID {
		return nil, models.ErrPermissionDenied
	}

	return r.store.ListActiveSharesByFile(ctx, fileID, time.Now())
}

// CleanupExpiredShares hard-deletes every share whose expiry has
// passed. Housekeeping only: active-share queries compare expiry at
// query time and never depend on this sweep having run.
func (r *ShareRegistry) CleanupExpiredShares(ctx context.Context) (int64, error) {
	removed, err := r.store.DeleteExpiredShares(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		if r.metrics != nil {
			r.metrics.RecordSharesExpired(int(removed))
		}
		logger.Info("swept expired shares", "removed", removed)
	}

	return removed, nil
}
