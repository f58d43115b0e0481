package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/driveos/filecore/pkg/catalog/models"
)

// ============================================
// DIRECT GRANT OPERATIONS
// ============================================

// CreatePermission inserts a direct grant row.
func (s *GORMStore) CreatePermission(ctx context.Context, perm *models.FilePermission) (string, error) {
	if perm.ID == "" {
		perm.ID = uuid.New().String()
	}
	perm.CreatedAt = time.Now()

	if err := s.db.WithContext(ctx).Create(perm).Error; err != nil {
		return "", err
	}
	return perm.ID, nil
}

// ListPermissions returns every grant row for (file, user).
func (s *GORMStore) ListPermissions(ctx context.Context, fileID, userID string) ([]*models.FilePermission, error) {
	var perms []*models.FilePermission
	err := s.db.WithContext(ctx).
		Where("file_id = ? AND user_id = ?", fileID, userID).
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	return perms, nil
}

// HighestPermission returns the most permissive grant for (file, user),
// or nil if the user has no grants. Rank comparison happens here, in
// one place, rather than in SQL: levels are ordered small integers.
func (s *GORMStore) HighestPermission(ctx context.Context, fileID, userID string) (*models.FilePermission, error) {
	perms, err := s.ListPermissions(ctx, fileID, userID)
	if err != nil {
		return nil, err
	}

	var highest *models.FilePermission
	for _, p := range perms {
		if highest == nil || p.Level.Rank() > highest.Level.Rank() {
			highest = p
		}
	}
	return highest, nil
}

// DeletePermission removes a single grant row.
func (s *GORMStore) DeletePermission(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.FilePermission{}).Error
}

// DeletePermissionsByFile removes every grant row for a file.
func (s *GORMStore) DeletePermissionsByFile(ctx context.Context, fileID string) error {
	return s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Delete(&models.FilePermission{}).Error
}
