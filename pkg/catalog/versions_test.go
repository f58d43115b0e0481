package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/driveos/filecore/pkg/catalog/models"
	"github.com/driveos/filecore/pkg/events"
)

// updateContent drives an archive-on-update cycle so tests can build a
// version history the same way the write path does.
func (e *testEnv) updateContent(t *testing.T, fileID string, size int64, hash string) *models.File {
	t.Helper()
	file, err := e.catalog.UpdateFile(context.Background(), fileID, "owner", UpdatePatch{Size: &size, Hash: &hash})
	if err != nil {
		t.Fatalf("UpdateFile(size=%d): %v", size, err)
	}
	return file
}

func TestCreateVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit snapshot above the counter bumps it", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner", Size: 10, Hash: "h1"})

		version, err := env.versions.CreateVersion(ctx, file.ID, "owner", VersionParams{Version: 3, Size: 30, Hash: "h3"})
		if err != nil {
			t.Fatalf("CreateVersion: %v", err)
		}
		if version.StoragePath != file.StoragePathFor(3) {
			t.Errorf("storage path = %q", version.StoragePath)
		}

		got, err := env.catalog.GetFile(ctx, file.ID, "owner")
		if err != nil {
			t.Fatalf("GetFile: %v", err)
		}
		if got.Version != 3 {
			t.Errorf("counter = %d, want 3", got.Version)
		}
	})

	t.Run("duplicate number is rejected", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})

		if _, err := env.versions.CreateVersion(ctx, file.ID, "owner", VersionParams{Version: 2, Size: 20}); err != nil {
			t.Fatalf("CreateVersion: %v", err)
		}
		_, err := env.versions.CreateVersion(ctx, file.ID, "owner", VersionParams{Version: 2, Size: 99})
		if !errors.Is(err, models.ErrDuplicateVersion) {
			t.Errorf("err = %v, want ErrDuplicateVersion", err)
		}
	})

	t.Run("non-positive number is rejected", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})

		_, err := env.versions.CreateVersion(ctx, file.ID, "owner", VersionParams{Version: 0, Size: 1})
		if !errors.Is(err, models.ErrInvalidVersion) {
			t.Errorf("err = %v, want ErrInvalidVersion", err)
		}
	})

	t.Run("requires write access", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})
		if _, err := env.shares.ShareFile(ctx, file.ID, "owner", "u2", models.ShareRead, nil); err != nil {
			t.Fatalf("ShareFile: %v", err)
		}

		_, err := env.versions.CreateVersion(ctx, file.ID, "u2", VersionParams{Version: 2, Size: 1})
		if !errors.Is(err, models.ErrPermissionDenied) {
			t.Errorf("err = %v, want ErrPermissionDenied", err)
		}
	})
}

func TestVersionRetention(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Config{MaxVersionsPerFile: 2})
	file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner", Size: 10})

	for n := 2; n <= 5; n++ {
		if _, err := env.versions.CreateVersion(ctx, file.ID, "owner", VersionParams{
			Version: n, Size: int64(n * 10), Hash: fmt.Sprintf("h%d", n),
		}); err != nil {
			t.Fatalf("CreateVersion(%d): %v", n, err)
		}
	}

	versions, err := env.versions.GetVersions(ctx, file.ID, "owner")
	if err != nil {
		t.Fatalf("GetVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("kept = %d snapshots, want 2", len(versions))
	}
	// Newest first; the oldest snapshots were pruned.
	if versions[0].Version != 5 || versions[1].Version != 4 {
		t.Errorf("kept = v%d, v%d, want v5, v4", versions[0].Version, versions[1].Version)
	}

	// Pruned snapshots also lose their blob objects.
	if len(env.blob.deleted) != 2 {
		t.Errorf("blob deletes = %v, want the two pruned paths", env.blob.deleted)
	}
}

func TestVersionRetentionOnUpdate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Config{MaxVersionsPerFile: 3})
	file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner", Size: 10, Hash: "h1"})

	// Each content update archives the previous state; the cap holds on
	// this path too, not only on explicit uploads.
	for n := 2; n <= 7; n++ {
		env.updateContent(t, file.ID, int64(n*10), fmt.Sprintf("h%d", n))
	}

	versions, err := env.versions.GetVersions(ctx, file.ID, "owner")
	if err != nil {
		t.Fatalf("GetVersions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("kept = %d snapshots, want 3", len(versions))
	}
	if versions[0].Version != 6 || versions[2].Version != 4 {
		t.Errorf("kept = v%d..v%d, want v6..v4", versions[0].Version, versions[2].Version)
	}

	// The pruned snapshots lose their blob objects as well.
	if len(env.blob.deleted) != 3 {
		t.Errorf("blob deletes = %v, want the three pruned paths", env.blob.deleted)
	}
}

func TestGetVersions(t *testing.T) {
	ctx := context.Background()

	t.Run("newest first", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner", Size: 10, Hash: "h1"})
		env.updateContent(t, file.ID, 20, "h2")
		env.updateContent(t, file.ID, 30, "h3")

		versions, err := env.versions.GetVersions(ctx, file.ID, "owner")
		if err != nil {
			t.Fatalf("GetVersions: %v", err)
		}
		if len(versions) != 2 {
			t.Fatalf("versions = %d, want 2", len(versions))
		}
		if versions[0].Version != 2 || versions[1].Version != 1 {
			t.Errorf("order = v%d, v%d, want v2, v1", versions[0].Version, versions[1].Version)
		}
	})

	t.Run("requires read access", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})

		_, err := env.versions.GetVersions(ctx, file.ID, "stranger")
		if !errors.Is(err, models.ErrPermissionDenied) {
			t.Errorf("err = %v, want ErrPermissionDenied", err)
		}
	})

	t.Run("missing snapshot", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner"})

		_, err := env.versions.GetVersion(ctx, file.ID, 9, "owner")
		if !errors.Is(err, models.ErrVersionNotFound) {
			t.Errorf("err = %v, want ErrVersionNotFound", err)
		}
	})
}

func TestRestoreVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("forward copy archives the current state", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner", Size: 10, Hash: "h1"})
		v1Path := file.StoragePath
		env.updateContent(t, file.ID, 20, "h2")
		current := env.updateContent(t, file.ID, 30, "h3")
		if current.Version != 3 {
			t.Fatalf("counter = %d, want 3 before restore", current.Version)
		}

		restored, err := env.versions.RestoreVersion(ctx, file.ID, 1, "owner")
		if err != nil {
			t.Fatalf("RestoreVersion: %v", err)
		}

		if restored.Version != 4 {
			t.Errorf("counter = %d, want 4", restored.Version)
		}
		if restored.Size != 10 || restored.Hash != "h1" || restored.StoragePath != v1Path {
			t.Errorf("record = size %d hash %s path %s, want v1 content", restored.Size, restored.Hash, restored.StoragePath)
		}

		// The pre-restore state is archived under the old counter.
		archived, err := env.versions.GetVersion(ctx, file.ID, 3, "owner")
		if err != nil {
			t.Fatalf("archived snapshot missing: %v", err)
		}
		if archived.Size != 30 || archived.Hash != "h3" {
			t.Errorf("archive = %+v, want pre-restore state", archived)
		}

		// The target snapshot itself is untouched.
		target, err := env.versions.GetVersion(ctx, file.ID, 1, "owner")
		if err != nil {
			t.Fatalf("target snapshot gone: %v", err)
		}
		if target.Size != 10 || target.Hash != "h1" {
			t.Errorf("target mutated: %+v", target)
		}

		// The new pointer is registered with the blob store synchronously.
		want := fmt.Sprintf("%s/v4", file.ID)
		found := false
		for _, s := range env.blob.saved {
			if s == want {
				found = true
			}
		}
		if !found {
			t.Errorf("blob metadata saves = %v, want %s", env.blob.saved, want)
		}

		if last := env.sink.last(); last == nil || last.Type != events.TypeFileRestored || last.Version != 4 {
			t.Errorf("last event = %+v", last)
		}
	})

	t.Run("archive step tolerates an existing snapshot at the counter", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner", Size: 10, Hash: "h1"})

		// An explicit upload can leave a snapshot at the counter value.
		if _, err := env.versions.CreateVersion(ctx, file.ID, "owner", VersionParams{Version: 1, Size: 10, Hash: "h1"}); err != nil {
			t.Fatalf("CreateVersion: %v", err)
		}

		restored, err := env.versions.RestoreVersion(ctx, file.ID, 1, "owner")
		if err != nil {
			t.Fatalf("RestoreVersion: %v", err)
		}
		if restored.Version != 2 {
			t.Errorf("counter = %d, want 2", restored.Version)
		}
	})

	t.Run("content updates keep working after a restore", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner", Size: 10, Hash: "h1"})
		env.updateContent(t, file.ID, 20, "h2")

		if _, err := env.versions.RestoreVersion(ctx, file.ID, 1, "owner"); err != nil {
			t.Fatalf("RestoreVersion: %v", err)
		}

		// The restore left a snapshot at the counter value; the next
		// update's archive reuses it instead of failing.
		updated := env.updateContent(t, file.ID, 40, "h4")
		if updated.Version != 4 || updated.Size != 40 {
			t.Errorf("record = v%d size %d, want v4 size 40", updated.Version, updated.Size)
		}

		versions, err := env.versions.GetVersions(ctx, file.ID, "owner")
		if err != nil {
			t.Fatalf("GetVersions: %v", err)
		}
		if len(versions) != 3 {
			t.Fatalf("versions = %d, want 3", len(versions))
		}
		if versions[0].Version != 3 || versions[0].Size != 10 || versions[0].Hash != "h1" {
			t.Errorf("archive = %+v, want the restored state under v3", versions[0])
		}
	})

	t.Run("missing target fails", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner", Size: 10})

		_, err := env.versions.RestoreVersion(ctx, file.ID, 7, "owner")
		if !errors.Is(err, models.ErrVersionNotFound) {
			t.Errorf("err = %v, want ErrVersionNotFound", err)
		}
	})

	t.Run("requires write access", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		file := env.mustCreateFile(t, CreateFileParams{Name: "doc.txt", Path: "/doc.txt", OwnerID: "owner", Size: 10, Hash: "h1"})
		env.updateContent(t, file.ID, 20, "h2")
		if _, err := env.shares.ShareFile(ctx, file.ID, "owner", "u2", models.ShareRead, nil); err != nil {
			t.Fatalf("ShareFile: %v", err)
		}

		_, err := env.versions.RestoreVersion(ctx, file.ID, 1, "u2")
		if !errors.Is(err, models.ErrPermissionDenied) {
			t.Errorf("err = %v, want ErrPermissionDenied", err)
		}
	})
}
