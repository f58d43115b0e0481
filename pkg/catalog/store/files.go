package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/driveos/filecore/pkg/catalog/models"
)

// ============================================
// FILE OPERATIONS
// ============================================

// CreateFile inserts a new catalog record, assigning an id if missing.
func (s *GORMStore) CreateFile(ctx context.Context, file *models.File) (string, error) {
	if file.ID == "" {
		file.ID = uuid.New().String()
	}
	if file.Version == 0 {
		file.Version = 1
	}
	now := time.Now()
	file.CreatedAt = now
	file.UpdatedAt = now

	if err := s.db.WithContext(ctx).Create(file).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", models.ErrDuplicatePath
		}
		return "", err
	}
	return file.ID, nil
}

// GetFile returns the record with the given id, deleted or not.
func (s *GORMStore) GetFile(ctx context.Context, id string) (*models.File, error) {
	var file models.File
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&file).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrFileNotFound)
	}
	return &file, nil
}

// GetLiveFile returns the record with the given id, excluding
// soft-deleted records.
func (s *GORMStore) GetLiveFile(ctx context.Context, id string) (*models.File, error) {
	var file models.File
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&file).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrFileNotFound)
	}
	return &file, nil
}

// GetOwnedFile returns the record with the given id owned by ownerID.
func (s *GORMStore) GetOwnedFile(ctx context.Context, id, ownerID string) (*models.File, error) {
	var file models.File
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&file).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrFileNotFound)
	}
	return &file, nil
}

// GetLiveFileByPath returns the non-deleted record at path in the
// owner's namespace.
func (s *GORMStore) GetLiveFileByPath(ctx context.Context, ownerID, path string) (*models.File, error) {
	var file models.File
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND path = ? AND is_deleted = ?", ownerID, path, false).
		First(&file).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrFileNotFound)
	}
	return &file, nil
}

// LivePathExists reports whether a non-deleted record at path exists in
// the owner's namespace.
func (s *GORMStore) LivePathExists(ctx context.Context, ownerID, path string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.File{}).
		Where("owner_id = ? AND path = ? AND is_deleted = ?", ownerID, path, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveFile persists all fields of the record.
func (s *GORMStore) SaveFile(ctx context.Context, file *models.File) error {
	file.UpdatedAt = time.Now()
	result := s.db.WithContext(ctx).Save(file)
	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			return models.ErrDuplicatePath
		}
		return result.Error
	}
	return nil
}

// ListFilesParams narrows a live-file listing.
type ListFilesParams struct {
	OwnerID  string
	ParentID *string // nil lists root-level records
	Search   string  // case-insensitive name substring match
	Limit    int
	Offset   int
}

// ListFiles returns a page of live records plus the total match count.
// With a Search term the parent filter is ignored and the whole
// namespace is searched, mirroring the search endpoint.
func (s *GORMStore) ListFiles(ctx context.Context, params ListFilesParams) ([]*models.File, int64, error) {
	q := s.db.WithContext(ctx).
		Model(&models.File{}).
		Where("owner_id = ? AND is_deleted = ?", params.OwnerID, false)

	if params.Search != "" {
		q = q.Where("name LIKE ?", "%"+params.Search+"%")
	} else if params.ParentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *params.ParentID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var files []*models.File
	q = q.Order("is_folder DESC, name ASC")
	if params.Limit > 0 {
		q = q.Limit(params.Limit).Offset(params.Offset)
	}
	if err := q.Find(&files).Error; err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

// ListChildren returns the live records whose parent is parentID.
func (s *GORMStore) ListChildren(ctx context.Context, parentID string) ([]*models.File, error) {
	var files []*models.File
	err := s.db.WithContext(ctx).
		Where("parent_id = ? AND is_deleted = ?", parentID, false).
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ListTrash returns a page of soft-deleted records for the owner.
func (s *GORMStore) ListTrash(ctx context.Context, ownerID string, limit, offset int) ([]*models.File, int64, error) {
	q := s.db.WithContext(ctx).
		Model(&models.File{}).
		Where("owner_id = ? AND is_deleted = ?", ownerID, true)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var files []*models.File
	q = q.Order("deleted_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&files).Error; err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

// ListTrashAll returns every soft-deleted record for the owner.
func (s *GORMStore) ListTrashAll(ctx context.Context, ownerID string) ([]*models.File, error) {
	var files []*models.File
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND is_deleted = ?", ownerID, true).
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// HardDeleteFile permanently removes the record together with its
// versions, shares, and direct grants.
func (s *GORMStore) HardDeleteFile(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var file models.File
		if err := tx.Where("id = ?", id).First(&file).Error; err != nil {
			return convertNotFoundError(err, models.ErrFileNotFound)
		}

		if err := tx.Where("file_id = ?", id).Delete(&models.FileVersion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", id).Delete(&models.FileShare{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", id).Delete(&models.FilePermission{}).Error; err != nil {
			return err
		}

		return tx.Delete(&file).Error
	})
}
