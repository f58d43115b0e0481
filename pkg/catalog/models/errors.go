package models

import "errors"

// Common errors for catalog operations.
var (
	// File errors
	ErrFileNotFound    = errors.New("file not found")
	ErrParentNotFound  = errors.New("parent folder does not exist or is not a folder")
	ErrDuplicatePath   = errors.New("a file with this path already exists")
	ErrFolderCycle     = errors.New("cannot move a folder into itself or its descendants")
	ErrNotAFolder      = errors.New("target is not a folder")

	// Version errors
	ErrVersionNotFound  = errors.New("version not found")
	ErrDuplicateVersion = errors.New("version number already exists for this file")
	ErrInvalidVersion   = errors.New("version number must be positive")

	// Share errors
	ErrShareNotFound     = errors.New("share not found")
	ErrSelfShare         = errors.New("cannot share a file with yourself")
	ErrShareLimitReached = errors.New("maximum number of active shares reached")

	// Permission errors
	ErrPermissionDenied = errors.New("permission denied")

	// Quota errors
	ErrQuotaExceeded    = errors.New("storage quota exceeded")
	ErrQuotaUnavailable = errors.New("quota service unavailable")
	ErrFileTooLarge     = errors.New("file exceeds the maximum allowed size")
)
