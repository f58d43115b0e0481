package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/driveos/filecore/pkg/catalog/models"
)

// ============================================
// VERSION OPERATIONS
// ============================================

// CreateVersion inserts a version snapshot. The (file, number) pair is
// unique; inserting an existing number returns ErrDuplicateVersion.
func (s *GORMStore) CreateVersion(ctx context.Context, version *models.FileVersion) (string, error) {
	if version.ID == "" {
		version.ID = uuid.New().String()
	}
	version.CreatedAt = time.Now()

	if err := s.db.WithContext(ctx).Create(version).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", models.ErrDuplicateVersion
		}
		return "", err
	}
	return version.ID, nil
}

// GetVersion returns the snapshot with the given number for a file.
func (s *GORMStore) GetVersion(ctx context.Context, fileID string, number int) (*models.FileVersion, error) {
	var version models.FileVersion
	err := s.db.WithContext(ctx).
		Where("file_id = ? AND version = ?", fileID, number).
		First(&version).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrVersionNotFound)
	}
	return &version, nil
}

// ListVersions returns all snapshots for a file, newest number first.
func (s *GORMStore) ListVersions(ctx context.Context, fileID string) ([]*models.FileVersion, error) {
	var versions []*models.FileVersion
	err := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("version DESC").
		Find(&versions).Error
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// CountVersions returns the number of snapshots stored for a file.
func (s *GORMStore) CountVersions(ctx context.Context, fileID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.FileVersion{}).
		Where("file_id = ?", fileID).
		Count(&count).Error
	return count, err
}

// DeleteVersion removes a single snapshot row.
func (s *GORMStore) DeleteVersion(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.FileVersion{}).Error
}
