package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/driveos/filecore/pkg/catalog/models"
)

// ============================================
// SHARE OPERATIONS
// ============================================

// "Active" is always evaluated against expires_at at query time. The
// is_active column is written at creation but never consulted here.

// GetShare returns the share row for (file, target user), expired or not.
func (s *GORMStore) GetShare(ctx context.Context, fileID, sharedWithUserID string) (*models.FileShare, error) {
	var share models.FileShare
	err := s.db.WithContext(ctx).
		Where("file_id = ? AND shared_with_user_id = ?", fileID, sharedWithUserID).
		First(&share).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrShareNotFound)
	}
	return &share, nil
}

// GetShareByID returns the share row with the given id.
func (s *GORMStore) GetShareByID(ctx context.Context, id string) (*models.FileShare, error) {
	var share models.FileShare
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&share).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrShareNotFound)
	}
	return &share, nil
}

// GetActiveShare returns the live share for (file, target user), or
// ErrShareNotFound if none exists or the row has expired.
func (s *GORMStore) GetActiveShare(ctx context.Context, fileID, sharedWithUserID string, now time.Time) (*models.FileShare, error) {
	var share models.FileShare
	err := s.db.WithContext(ctx).
		Where("file_id = ? AND shared_with_user_id = ?", fileID, sharedWithUserID).
		Where("expires_at IS NULL OR expires_at > ?", now).
		First(&share).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrShareNotFound)
	}
	return &share, nil
}

// CreateShare inserts a new share row.
func (s *GORMStore) CreateShare(ctx context.Context, share *models.FileShare) (string, error) {
	if share.ID == "" {
		share.ID = uuid.New().String()
	}
	share.IsActive = true
	share.CreatedAt = time.Now()

	if err := s.db.WithContext(ctx).Create(share).Error; err != nil {
		return "", err
	}
	return share.ID, nil
}

// UpdateShare overwrites the level and expiry of an existing row.
func (s *GORMStore) UpdateShare(ctx context.Context, share *models.FileShare) error {
	result := s.db.WithContext(ctx).
		Model(&models.FileShare{}).
		Where("id = ?", share.ID).
		Updates(map[string]any{
			"permission": share.Permission,
			"expires_at": share.ExpiresAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrShareNotFound
	}
	return nil
}

// DeleteShare hard-deletes a share row. Revocation removes the row
// outright, there is no flag flip.
func (s *GORMStore) DeleteShare(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.FileShare{}).Error
}

// DeleteSharesByFile removes every share row for a file.
func (s *GORMStore) DeleteSharesByFile(ctx context.Context, fileID string) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Delete(&models.FileShare{})
	return result.RowsAffected, result.Error
}

// CountActiveShares counts the live shares on a file.
func (s *GORMStore) CountActiveShares(ctx context.Context, fileID string, now time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.FileShare{}).
		Where("file_id = ?", fileID).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Count(&count).Error
	return count, err
}

// ListSharesByFile returns every share row for a file, expired included.
func (s *GORMStore) ListSharesByFile(ctx context.Context, fileID string) ([]*models.FileShare, error) {
	var shares []*models.FileShare
	err := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Find(&shares).Error
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// ListActiveSharesByFile returns the live shares on a file.
func (s *GORMStore) ListActiveSharesByFile(ctx context.Context, fileID string, now time.Time) ([]*models.FileShare, error) {
	var shares []*models.FileShare
	err := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("created_at ASC").
		Find(&shares).Error
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// ListActiveSharesForUser returns the live shares granted to a user,
// with the owning file preloaded (deleted files excluded).
func (s *GORMStore) ListActiveSharesForUser(ctx context.Context, userID string, now time.Time, limit, offset int) ([]*models.FileShare, int64, error) {
	q := s.db.WithContext(ctx).
		Model(&models.FileShare{}).
		Joins("JOIN files ON files.id = file_shares.file_id AND files.is_deleted = ?", false).
		Where("file_shares.shared_with_user_id = ?", userID).
		Where("file_shares.expires_at IS NULL OR file_shares.expires_at > ?", now)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var shares []*models.FileShare
	q = q.Preload("File").Order("file_shares.created_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&shares).Error; err != nil {
		return nil, 0, err
	}
	return shares, total, nil
}

// ListActiveSharesByOwner returns the live shares on every live file
// owned by ownerID, with the owning file preloaded.
func (s *GORMStore) ListActiveSharesByOwner(ctx context.Context, ownerID string, now time.Time) ([]*models.FileShare, error) {
	var shares []*models.FileShare
	err := s.db.WithContext(ctx).
		Joins("JOIN files ON files.id = file_shares.file_id AND files.is_deleted = ?", false).
		Where("files.owner_id = ?", ownerID).
		Where("file_shares.expires_at IS NULL OR file_shares.expires_at > ?", now).
		Preload("File").
		Find(&shares).Error
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// DeleteExpiredShares hard-deletes every share whose expiry has passed.
// Returns the number of rows removed. This sweep is housekeeping only;
// active-share queries never depend on it having run.
func (s *GORMStore) DeleteExpiredShares(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&models.FileShare{})
	return result.RowsAffected, result.Error
}
