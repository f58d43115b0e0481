// Package models provides shared domain types for the FileCore catalog.
//
// This package contains all data models used by the catalog, version,
// share, and permission services. It provides a single source of truth
// for domain types with GORM annotations for database persistence.
package models

// AllModels returns all models for database migration.
func AllModels() []any {
	return []any{
		&File{},
		&FileVersion{},
		&FileShare{},
		&FilePermission{},
	}
}
