// Package catalog implements the file catalog services: the canonical
// file/folder record store, version history, access resolution, and the
// share registry.
//
// Each mutating operation runs inside a single database transaction.
// Calls to the quota and blob collaborators are outside that
// transaction: a failing pre-write check aborts the operation, while a
// failing post-commit side call is logged and never changes the
// caller-visible result.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/driveos/filecore/pkg/catalog/models"
	"github.com/driveos/filecore/pkg/catalog/store"
)

// AccessResolver computes the effective permission for a (file, user)
// pair from three layers: ownership, direct grants, and shares.
type AccessResolver struct {
	store *store.GORMStore
}

// NewAccessResolver creates a resolver backed by the given store.
func NewAccessResolver(st *store.GORMStore) *AccessResolver {
	return &AccessResolver{store: st}
}

// CheckPermission reports whether userID holds at least the required
// level on the file. Resolution order, first match wins:
//
//  1. Owner always passes.
//  2. The highest direct grant, if it includes the required level.
//  3. The active share for (file, user), mapped onto the required
//     axis: read is satisfied by any share, write by a write or admin
//     share, delete/share/admin only by an admin share.
func (r *AccessResolver) CheckPermission(ctx context.Context, fileID, userID string, required models.PermissionLevel) (bool, error) {
	file, err := r.store.GetFile(ctx, fileID)
	if err != nil {
		return false, err
	}

	if file.OwnerID == userID {
		return true, nil
	}

	grant, err := r.store.HighestPermission(ctx, fileID, userID)
	if err != nil {
		return false, err
	}
	if grant != nil && grant.Level.Includes(required) {
		return true, nil
	}

	share, err := r.store.GetActiveShare(ctx, fileID, userID, time.Now())
	if err != nil {
		if errors.Is(err, models.ErrShareNotFound) {
			return false, nil
		}
		return false, err
	}
	return share.Permission.Satisfies(required), nil
}

// GetUserPermission returns the effective level userID holds on the
// file, or the empty level when no access exists. Owners resolve to
// admin regardless of grant tables.
func (r *AccessResolver) GetUserPermission(ctx context.Context, fileID, userID string) (models.PermissionLevel, error) {
	file, err := r.store.GetFile(ctx, fileID)
	if err != nil {
		return "", err
	}

	if file.OwnerID == userID {
		return models.LevelAdmin, nil
	}

	grant, err := r.store.HighestPermission(ctx, fileID, userID)
	if err != nil {
		return "", err
	}

	var level models.PermissionLevel
	if grant != nil {
		level = grant.Level
	}

	share, err := r.store.GetActiveShare(ctx, fileID, userID, time.Now())
	if err != nil && !errors.Is(err, models.ErrShareNotFound) {
		return "", err
	}
	if share != nil {
		if shareLevel := share.Permission.ToPermissionLevel(); shareLevel.Rank() > level.Rank() {
			level = shareLevel
		}
	}

	return level, nil
}

// AccessType classifies how a user reaches a file.
type AccessType string

const (
	// AccessOwner means the user owns the file.
	AccessOwner AccessType = "owner"

	// AccessGranted means access comes from a direct grant.
	AccessGranted AccessType = "granted"

	// AccessShared means access comes from an active share.
	AccessShared AccessType = "shared"

	// AccessNone means the user has no access at all.
	AccessNone AccessType = "none"
)

// AccessContext summarizes a user's capabilities on a file. Owners also
// see the file's active shares.
type AccessContext struct {
	AccessType     AccessType          `json:"access_type"`
	EffectiveLevel string              `json:"effective_level,omitempty"`
	CanRead        bool                `json:"can_read"`
	CanWrite       bool                `json:"can_write"`
	CanDelete      bool                `json:"can_delete"`
	CanShare       bool                `json:"can_share"`
	ExistingShares []*models.FileShare `json:"existing_shares,omitempty"`
}

// GetFileAccessContext resolves the full capability set userID holds on
// the file.
func (r *AccessResolver) GetFileAccessContext(ctx context.Context, fileID, userID string) (*AccessContext, error) {
	file, err := r.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	if file.OwnerID == userID {
		shares, err := r.store.ListActiveSharesByFile(ctx, fileID, now)
		if err != nil {
			return nil, err
		}
		return &AccessContext{
			AccessType:     AccessOwner,
			EffectiveLevel: models.LevelAdmin.String(),
			CanRead:        true,
			CanWrite:       true,
			CanDelete:      true,
			CanShare:       true,
			ExistingShares: shares,
		}, nil
	}

	grant, err := r.store.HighestPermission(ctx, fileID, userID)
	if err != nil {
		return nil, err
	}

	share, err := r.store.GetActiveShare(ctx, fileID, userID, now)
	if err != nil && !errors.Is(err, models.ErrShareNotFound) {
		return nil, err
	}

	accessType := AccessNone
	var level models.PermissionLevel
	if grant != nil {
		accessType = AccessGranted
		level = grant.Level
	}
	if share != nil {
		if shareLevel := share.Permission.ToPermissionLevel(); shareLevel.Rank() > level.Rank() {
			accessType = AccessShared
			level = shareLevel
		}
	}

	return &AccessContext{
		AccessType:     accessType,
		EffectiveLevel: level.String(),
		CanRead:        level.Includes(models.LevelRead),
		CanWrite:       level.Includes(models.LevelWrite),
		CanDelete:      level.Includes(models.LevelDelete),
		CanShare:       level.Includes(models.LevelShare),
	}, nil
}
