package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/driveos/filecore/pkg/catalog/models"
)

func (e *testEnv) grant(t *testing.T, fileID, userID string, level models.PermissionLevel) {
	t.Helper()
	_, err := e.store.CreatePermission(context.Background(), &models.FilePermission{
		FileID:    fileID,
		UserID:    userID,
		Level:     level,
		GrantedBy: "granter",
	})
	if err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}
}

func (e *testEnv) check(t *testing.T, fileID, userID string, level models.PermissionLevel) bool {
	t.Helper()
	ok, err := e.access.CheckPermission(context.Background(), fileID, userID, level)
	if err != nil {
		t.Fatalf("CheckPermission(%s, %s): %v", userID, level, err)
	}
	return ok
}

func TestCheckPermission(t *testing.T) {
	ctx := context.Background()
	allLevels := []models.PermissionLevel{
		models.LevelRead, models.LevelWrite, models.LevelDelete, models.LevelShare, models.LevelAdmin,
	}

	t.Run("owner passes every level", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})

		for _, level := range allLevels {
			if !env.check(t, file.ID, "owner", level) {
				t.Errorf("owner denied %s", level)
			}
		}
	})

	t.Run("stranger is denied everything", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})

		for _, level := range allLevels {
			if env.check(t, file.ID, "stranger", level) {
				t.Errorf("stranger allowed %s", level)
			}
		}
	})

	t.Run("direct grant covers its level and below", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})
		env.grant(t, file.ID, "u2", models.LevelWrite)

		if !env.check(t, file.ID, "u2", models.LevelRead) {
			t.Error("write grant should cover read")
		}
		if !env.check(t, file.ID, "u2", models.LevelWrite) {
			t.Error("write grant should cover write")
		}
		if env.check(t, file.ID, "u2", models.LevelDelete) {
			t.Error("write grant must not cover delete")
		}
	})

	t.Run("highest of several grants wins", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})
		env.grant(t, file.ID, "u2", models.LevelRead)
		env.grant(t, file.ID, "u2", models.LevelShare)
		env.grant(t, file.ID, "u2", models.LevelWrite)

		if !env.check(t, file.ID, "u2", models.LevelShare) {
			t.Error("share grant should win among read/write/share")
		}
		if env.check(t, file.ID, "u2", models.LevelAdmin) {
			t.Error("admin should stay denied")
		}
	})

	t.Run("share mapping onto the required axis", func(t *testing.T) {
		cases := []struct {
			share models.SharePermission
			level models.PermissionLevel
			want  bool
		}{
			{models.ShareRead, models.LevelRead, true},
			{models.ShareRead, models.LevelWrite, false},
			{models.ShareWrite, models.LevelRead, true},
			{models.ShareWrite, models.LevelWrite, true},
			{models.ShareWrite, models.LevelDelete, false},
			{models.ShareAdmin, models.LevelDelete, true},
			{models.ShareAdmin, models.LevelShare, true},
			{models.ShareAdmin, models.LevelAdmin, true},
		}

		for _, tc := range cases {
			env := newTestEnv(t, Config{})
			file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})
			if _, err := env.shares.ShareFile(ctx, file.ID, "owner", "u2", tc.share, nil); err != nil {
				t.Fatalf("ShareFile: %v", err)
			}

			if got := env.check(t, file.ID, "u2", tc.level); got != tc.want {
				t.Errorf("%s share, %s required: got %v, want %v", tc.share, tc.level, got, tc.want)
			}
		}
	})

	t.Run("expired share grants nothing even when flagged active", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})

		past := time.Now().Add(-time.Hour)
		if _, err := env.store.CreateShare(ctx, &models.FileShare{
			FileID:           file.ID,
			SharedWithUserID: "u2",
			Permission:       models.ShareAdmin,
			CreatedBy:        "owner",
			ExpiresAt:        &past,
		}); err != nil {
			t.Fatalf("CreateShare: %v", err)
		}

		if env.check(t, file.ID, "u2", models.LevelRead) {
			t.Error("expired share should grant nothing")
		}
	})

	t.Run("share layers on top of an insufficient grant", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})
		env.grant(t, file.ID, "u2", models.LevelRead)
		if _, err := env.shares.ShareFile(ctx, file.ID, "owner", "u2", models.ShareAdmin, nil); err != nil {
			t.Fatalf("ShareFile: %v", err)
		}

		if !env.check(t, file.ID, "u2", models.LevelDelete) {
			t.Error("admin share should satisfy delete despite the read grant")
		}
	})
}

func TestGetUserPermission(t *testing.T) {
	ctx := context.Background()

	t.Run("owner resolves to admin", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})

		level, err := env.access.GetUserPermission(ctx, file.ID, "owner")
		if err != nil {
			t.Fatalf("GetUserPermission: %v", err)
		}
		if level != models.LevelAdmin {
			t.Errorf("level = %s, want admin", level)
		}
	})

	t.Run("highest of grant and share wins", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})
		env.grant(t, file.ID, "u2", models.LevelDelete)
		if _, err := env.shares.ShareFile(ctx, file.ID, "owner", "u2", models.ShareWrite, nil); err != nil {
			t.Fatalf("ShareFile: %v", err)
		}

		level, err := env.access.GetUserPermission(ctx, file.ID, "u2")
		if err != nil {
			t.Fatalf("GetUserPermission: %v", err)
		}
		if level != models.LevelDelete {
			t.Errorf("level = %s, want delete (grant outranks write share)", level)
		}
	})

	t.Run("no access resolves to the empty level", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})

		level, err := env.access.GetUserPermission(ctx, file.ID, "stranger")
		if err != nil {
			t.Fatalf("GetUserPermission: %v", err)
		}
		if level != "" {
			t.Errorf("level = %q, want empty", level)
		}
	})
}

func TestGetFileAccessContext(t *testing.T) {
	ctx := context.Background()

	t.Run("owner context includes active shares", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})
		if _, err := env.shares.ShareFile(ctx, file.ID, "owner", "u2", models.ShareRead, nil); err != nil {
			t.Fatalf("ShareFile: %v", err)
		}

		acc, err := env.access.GetFileAccessContext(ctx, file.ID, "owner")
		if err != nil {
			t.Fatalf("GetFileAccessContext: %v", err)
		}
		if acc.AccessType != AccessOwner || !acc.CanShare {
			t.Errorf("context = %+v", acc)
		}
		if len(acc.ExistingShares) != 1 {
			t.Errorf("shares = %d, want 1", len(acc.ExistingShares))
		}
	})

	t.Run("share recipient sees shared access", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})
		if _, err := env.shares.ShareFile(ctx, file.ID, "owner", "u2", models.ShareWrite, nil); err != nil {
			t.Fatalf("ShareFile: %v", err)
		}

		acc, err := env.access.GetFileAccessContext(ctx, file.ID, "u2")
		if err != nil {
			t.Fatalf("GetFileAccessContext: %v", err)
		}
		if acc.AccessType != AccessShared {
			t.Errorf("access type = %s, want shared", acc.AccessType)
		}
		if !acc.CanRead || !acc.CanWrite || acc.CanDelete || acc.CanShare {
			t.Errorf("capabilities = %+v", acc)
		}
	})

	t.Run("stranger sees none", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})

		acc, err := env.access.GetFileAccessContext(ctx, file.ID, "stranger")
		if err != nil {
			t.Fatalf("GetFileAccessContext: %v", err)
		}
		if acc.AccessType != AccessNone || acc.CanRead {
			t.Errorf("context = %+v", acc)
		}
	})
}
