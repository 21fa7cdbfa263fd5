package drive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/minnesingerthule/VRIL-Storage/internal/logging"
	"github.com/minnesingerthule/VRIL-Storage/internal/models"
	"github.com/minnesingerthule/VRIL-Storage/internal/storage"
	"github.com/minnesingerthule/VRIL-Storage/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	st, err := store.NewSQLiteStore(store.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "drive.db"),
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	if err := st.Connect(ctx); err != nil {
		t.Fatalf("failed to connect store: %v", err)
	}
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	blobs, err := storage.NewLocalStorage(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	return NewService(st.DB(), blobs, logging.Discard(), 1<<20)
}

func newTestUser(t *testing.T, s *Service, email string) *models.User {
	t.Helper()
	user := models.User{Email: email, PasswordHash: "irrelevant"}
	if err := s.db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &user
}

func TestEnsureRootIdempotent(t *testing.T) {
	s := newTestService(t)
	user := newTestUser(t, s, "a@x.com")
	ctx := context.Background()

	first, err := s.EnsureRoot(ctx, user.ID)
	if err != nil {
		t.Fatalf("EnsureRoot failed: %v", err)
	}
	second, err := s.EnsureRoot(ctx, user.ID)
	if err != nil {
		t.Fatalf("EnsureRoot failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("root ids differ: %d vs %d", first.ID, second.ID)
	}
	if first.ParentID != nil || first.Trashed {
		t.Fatalf("root is not a parentless untrashed folder: %+v", first)
	}
	if first.Name != RootFolderName {
		t.Fatalf("root name = %q, want %q", first.Name, RootFolderName)
	}
}

func TestEnsureRootConcurrent(t *testing.T) {
	s := newTestService(t)
	user := newTestUser(t, s, "a@x.com")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.EnsureRoot(ctx, user.ID); err != nil {
				t.Errorf("EnsureRoot failed: %v", err)
			}
		}()
	}
	wg.Wait()

	var count int64
	if err := s.db.Model(&models.Folder{}).
		Where("owner_id = ? AND parent_id IS NULL AND trashed = ?", user.ID, false).
		Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one root folder, got %d", count)
	}
}

func TestCreateFolder(t *testing.T) {
	s := newTestService(t)
	user := newTestUser(t, s, "a@x.com")
	other := newTestUser(t, s, "b@x.com")
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, user, "  Projects  ", nil)
	if err != nil {
		t.Fatalf("CreateFolder failed: %v", err)
	}
	if folder.Name != "Projects" {
		t.Errorf("name not trimmed: %q", folder.Name)
	}
	root, _ := s.EnsureRoot(ctx, user.ID)
	if folder.ParentID == nil || *folder.ParentID != root.ID {
		t.Errorf("folder parent = %v, want root %d", folder.ParentID, root.ID)
	}

	if _, err := s.CreateFolder(ctx, user, "   ", nil); !errors.Is(err, ErrInvalidName) {
		t.Errorf("empty name error = %v, want ErrInvalidName", err)
	}

	// A folder owned by someone else is not a valid parent.
	otherRoot, _ := s.EnsureRoot(ctx, other.ID)
	if _, err := s.CreateFolder(ctx, user, "Sneaky", &otherRoot.ID); !errors.Is(err, ErrInvalidParent) {
		t.Errorf("cross-owner parent error = %v, want ErrInvalidParent", err)
	}
}

func TestUpdateFolderCrossOwnerReparent(t *testing.T) {
	s := newTestService(t)
	user := newTestUser(t, s, "a@x.com")
	other := newTestUser(t, s, "b@x.com")
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, user, "Mine", nil)
	if err != nil {
		t.Fatalf("CreateFolder failed: %v", err)
	}
	otherRoot, _ := s.EnsureRoot(ctx, other.ID)

	_, err = s.UpdateFolder(ctx, user, folder.ID, FolderPatch{ParentID: &otherRoot.ID})
	if !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("reparent error = %v, want ErrInvalidParent", err)
	}

	// Updating someone else's folder surfaces as not found, never forbidden.
	_, err = s.UpdateFolder(ctx, other, folder.ID, FolderPatch{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign update error = %v, want ErrNotFound", err)
	}
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func TestRenameFolderAndFile(t *testing.T) {
	s := newTestService(t)
	user := newTestUser(t, s, "a@x.com")
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, user, "Old", nil)
	if err != nil {
		t.Fatalf("CreateFolder failed: %v", err)
	}

	renamed, err := s.UpdateFolder(ctx, user, folder.ID, FolderPatch{Name: strPtr("  New Name  ")})
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if renamed.Name != "New Name" {
		t.Errorf("folder name = %q, want trimmed %q", renamed.Name, "New Name")
	}
	var storedFolder models.Folder
	if err := s.db.First(&storedFolder, folder.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if storedFolder.Name != "New Name" {
		t.Errorf("persisted folder name = %q", storedFolder.Name)
	}

	file, err := s.UploadFile(ctx, user, nil, strings.NewReader("x"), "notes.txt", "text/plain")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	updated, err := s.UpdateFile(ctx, user, file.ID, FilePatch{Name: strPtr(" notes v2.txt ")})
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if updated.OriginalName != "notes v2.txt" {
		t.Errorf("file name = %q, want trimmed %q", updated.OriginalName, "notes v2.txt")
	}
	var storedFile models.File
	if err := s.db.First(&storedFile, file.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if storedFile.OriginalName != "notes v2.txt" {
		t.Errorf("persisted file name = %q", storedFile.OriginalName)
	}
	// The on-disk name stays stable across renames.
	if storedFile.StoredName != file.StoredName {
		t.Errorf("stored name changed on rename: %q vs %q", storedFile.StoredName, file.StoredName)
	}
}

func TestRenameRejectsBlankNames(t *testing.T) {
	s := newTestService(t)
	user := newTestUser(t, s, "a@x.com")
	ctx := context.Background()

	folder, _ := s.CreateFolder(ctx, user, "Keep", nil)
	file, err := s.UploadFile(ctx, user, nil, strings.NewReader("x"), "keep.txt", "text/plain")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if _, err := s.UpdateFolder(ctx, user, folder.ID, FolderPatch{Name: strPtr("   ")}); !errors.Is(err, ErrInvalidName) {
		t.Errorf("blank folder rename error = %v, want ErrInvalidName", err)
	}
	if _, err := s.UpdateFile(ctx, user, file.ID, FilePatch{Name: strPtr("\t")}); !errors.Is(err, ErrInvalidName) {
		t.Errorf("blank file rename error = %v, want ErrInvalidName", err)
	}

	// A rejected rename leaves the stored names untouched.
	var storedFolder models.Folder
	s.db.First(&storedFolder, folder.ID)
	if storedFolder.Name != "Keep" {
		t.Errorf("folder name mutated by rejected rename: %q", storedFolder.Name)
	}
	var storedFile models.File
	s.db.First(&storedFile, file.ID)
	if storedFile.OriginalName != "keep.txt" {
		t.Errorf("file name mutated by rejected rename: %q", storedFile.OriginalName)
	}
}

func TestTrashedFolderNotAValidParent(t *testing.T) {
	s := newTestService(t)
	user := newTestUser(t, s, "a@x.com")
	ctx := context.Background()

	bin, _ := s.CreateFolder(ctx, user, "Bin", nil)
	other, _ := s.CreateFolder(ctx, user, "Other", nil)
	if _, err := s.UpdateFolder(ctx, user, bin.ID, FolderPatch{Trashed: boolPtr(true)}); err != nil {
		t.Fatalf("trash failed: %v", err)
	}

	if _, err := s.CreateFolder(ctx, user, "Inside", &bin.ID); !errors.Is(err, ErrInvalidParent) {
		t.Errorf("create under trashed folder error = %v, want ErrInvalidParent", err)
	}
	if _, err := s.UploadFile(ctx, user, &bin.ID, strings.NewReader("x"), "x.txt", "text/plain"); !errors.Is(err, ErrInvalidParent) {
		t.Errorf("upload into trashed folder error = %v, want ErrInvalidParent", err)
	}
	if _, err := s.UpdateFolder(ctx, user, other.ID, FolderPatch{ParentID: &bin.ID}); !errors.Is(err, ErrInvalidParent) {
		t.Errorf("reparent into trashed folder error = %v, want ErrInvalidParent", err)
	}
}

func TestFolderTrashRestore(t *testing.T) {
	s := newTestService(t)
	user := newTestUser(t, s, "a@x.com")
	ctx := context.Background()

	parent, _ := s.CreateFolder(ctx, user, "Parent", nil)
	child, _ := s.CreateFolder(ctx, user, "Child", &parent.ID)

	trashed, err := s.UpdateFolder(ctx, user, child.ID, FolderPatch{Trashed: boolPtr(true)})
	if err != nil {
		t.Fatalf("trash failed: %v", err)
	}
	if !trashed.Trashed {
		t.Fatal("folder not marked trashed")
	}
	if trashed.OriginalParentID == nil || *trashed.OriginalParentID != parent.ID {
		t.Fatalf("original parent = %v, want %d", trashed.OriginalParentID, parent.ID)
	}

	restored, err := s.UpdateFolder(ctx, user, child.ID, FolderPatch{Trashed: boolPtr(false)})
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if restored.Trashed {
		t.Fatal("folder still trashed after restore")
	}
	if restored.ParentID == nil || *restored.ParentID != parent.ID {
		t.Fatalf("restored parent = %v, want %d", restored.ParentID, parent.ID)
	}
	if restored.OriginalParentID != nil {
		t.Fatalf("original parent not cleared: %v", restored.OriginalParentID)
	}
}

func TestFolderRestoreFallsBackToRoot(t *testing.T) {
	s := newTestService(t)
	user := newTestUser(t, s, "a@x.com")
	ctx := context.Background()

	parent, _ := s.CreateFolder(ctx, user, "Doomed", nil)
	child, _ := s.CreateFolder(ctx, user, "Child", &parent.ID)

	if _, err := s.UpdateFolder(ctx, user, child.ID, FolderPatch{Trashed: boolPtr(true)}); err != nil {
		t.Fatalf("trash failed: %v", err)
	}
	if err := s.DeleteFolder(ctx, user, parent.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	restored, err := s.UpdateFolder(ctx, user, child.ID, FolderPatch{Trashed: boolPtr(false)})
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	root, _ := s.EnsureRoot(ctx, user.ID)
	if restored.ParentID == nil || *restored.ParentID != root.ID {
		t.Fatalf("restored parent = %v, want root %d", restored.ParentID, root.ID)
	}
}

func TestDeleteFolderCascades(t *testing.T) {
	s := newTestService(t)
	user := newTestUser(t, s, "a@x.com")
	ctx := context.Background()

	a, _ := s.CreateFolder(ctx, user, "A", nil)
	b, _ := s.CreateFolder(ctx, user, "B", &a.ID)

	file, err := s.UploadFile(ctx, user, &b.ID, strings.NewReader("payload"), "notes.txt", "text/plain")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if err := s.DeleteFolder(ctx, user, a.ID); err != nil {
		t.Fatalf("DeleteFolder failed: %v", err)
	}

	var count int64
	s.db.Model(&models.Folder{}).Where("id IN ?", []uint{a.ID, b.ID}).Count(&count)
	if count != 0 {
		t.Fatalf("expected cascading delete, %d folders remain", count)
	}

	// The file survives, re-filed into the root.
	var kept models.File
	if err := s.db.First(&kept, file.ID).Error; err != nil {
		t.Fatalf("file row gone: %v", err)
	}
	root, _ := s.EnsureRoot(ctx, user.ID)
	if kept.FolderID == nil || *kept.FolderID != root.ID {
		t.Fatalf("file parent = %v, want root %d", kept.FolderID, root.ID)
	}
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	s := newTestService(t)
	user := newTestUser(t, s, "a@x.com")
	ctx := context.Background()

	projects, err := s.CreateFolder(ctx, user, "Projects", nil)
	if err != nil {
		t.Fatalf("CreateFolder failed: %v", err)
	}

	payload := []byte("0123456789")
	file, err := s.UploadFile(ctx, user, &projects.ID, bytes.NewReader(payload), "report.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("UploadFile failed: %v", err)
	}
	if file.SizeBytes != int64(len(payload)) {
		t.Errorf("size = %d, want %d", file.SizeBytes, len(payload))
	}
	if file.StoredName == file.OriginalName {
		t.Error("stored name must differ from display name")
	}

	state, err := s.DriveState(ctx, user)
	if err != nil {
		t.Fatalf("DriveState failed: %v", err)
	}
	root, _ := s.EnsureRoot(ctx, user.ID)
	if state.RootFolderID != root.ID {
		t.Errorf("rootFolderId = %d, want %d", state.RootFolderID, root.ID)
	}

	var projectsView *FolderView
	for i := range state.Folders {
		if state.Folders[i].Name == "Projects" {
			projectsView = &state.Folders[i]
		}
	}
	if projectsView == nil {
		t.Fatal("Projects folder missing from state")
	}
	if projectsView.ParentID == nil || *projectsView.ParentID != root.ID {
		t.Errorf("Projects parent = %v, want root %d", projectsView.ParentID, root.ID)
	}

	if len(state.Files) != 1 {
		t.Fatalf("expected 1 file in state, got %d", len(state.Files))
	}
	fv := state.Files[0]
	if fv.Name != "report.pdf" || fv.Type != "pdf" || fv.SizeBytes != 10 {
		t.Errorf("file view = %+v", fv)
	}
	if fv.ParentID == nil || *fv.ParentID != projects.ID {
		t.Errorf("file parent = %v, want %d", fv.ParentID, projects.ID)
	}

	blob, meta, err := s.DownloadFile(ctx, user, file.ID)
	if err != nil {
		t.Fatalf("DownloadFile failed: %v", err)
	}
	defer blob.Close()
	got, err := io.ReadAll(blob)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("downloaded bytes differ: %q", got)
	}
	if meta.OriginalName != "report.pdf" {
		t.Errorf("display name = %q", meta.OriginalName)
	}
}

func TestUploadInvalidParent(t *testing.T) {
	s := newTestService(t)
	user := newTestUser(t, s, "a@x.com")
	other := newTestUser(t, s, "b@x.com")
	ctx := context.Background()

	otherRoot, _ := s.EnsureRoot(ctx, other.ID)
	_, err := s.UploadFile(ctx, user, &otherRoot.ID, strings.NewReader("x"), "x.txt", "text/plain")
	if !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("error = %v, want ErrInvalidParent", err)
	}
}

func TestSharingControlsAccess(t *testing.T) {
	s := newTestService(t)
	owner := newTestUser(t, s, "a@x.com")
	viewer := newTestUser(t, s, "b@x.com")
	ctx := context.Background()

	file, err := s.UploadFile(ctx, owner, nil, strings.NewReader("secret"), "secret.txt", "text/plain")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if _, _, err := s.DownloadFile(ctx, viewer, file.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("unshared download error = %v, want ErrForbidden", err)
	}
	if shared, _ := s.SharedFiles(ctx); len(shared) != 0 {
		t.Fatalf("shared listing not empty: %d", len(shared))
	}

	if _, err := s.UpdateFile(ctx, owner, file.ID, FilePatch{IsShared: boolPtr(true)}); err != nil {
		t.Fatalf("share failed: %v", err)
	}

	shared, err := s.SharedFiles(ctx)
	if err != nil || len(shared) != 1 || shared[0].ID != file.ID {
		t.Fatalf("shared listing = %v (err %v), want the shared file", shared, err)
	}
	blob, _, err := s.DownloadFile(ctx, viewer, file.ID)
	if err != nil {
		t.Fatalf("shared download failed: %v", err)
	}
	blob.Close()

	// Trashed files drop out of the shared listing.
	if _, err := s.UpdateFile(ctx, owner, file.ID, FilePatch{Trashed: boolPtr(true)}); err != nil {
		t.Fatalf("trash failed: %v", err)
	}
	if shared, _ := s.SharedFiles(ctx); len(shared) != 0 {
		t.Fatal("trashed file still in shared listing")
	}
	if _, err := s.UpdateFile(ctx, owner, file.ID, FilePatch{Trashed: boolPtr(false)}); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if _, err := s.UpdateFile(ctx, owner, file.ID, FilePatch{IsShared: boolPtr(false)}); err != nil {
		t.Fatalf("unshare failed: %v", err)
	}
	if _, _, err := s.DownloadFile(ctx, viewer, file.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("post-unshare download error = %v, want ErrForbidden", err)
	}
}

func TestFileTrashRestore(t *testing.T) {
	s := newTestService(t)
	user := newTestUser(t, s, "a@x.com")
	ctx := context.Background()

	folder, _ := s.CreateFolder(ctx, user, "Docs", nil)
	file, err := s.UploadFile(ctx, user, &folder.ID, strings.NewReader("x"), "a.txt", "text/plain")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	trashed, err := s.UpdateFile(ctx, user, file.ID, FilePatch{Trashed: boolPtr(true)})
	if err != nil {
		t.Fatalf("trash failed: %v", err)
	}
	if trashed.OriginalFolderID == nil || *trashed.OriginalFolderID != folder.ID {
		t.Fatalf("original folder = %v, want %d", trashed.OriginalFolderID, folder.ID)
	}

	restored, err := s.UpdateFile(ctx, user, file.ID, FilePatch{Trashed: boolPtr(false)})
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if restored.FolderID == nil || *restored.FolderID != folder.ID {
		t.Fatalf("restored folder = %v, want %d", restored.FolderID, folder.ID)
	}
	if restored.OriginalFolderID != nil {
		t.Fatal("original folder not cleared")
	}
}

func TestDeleteFileRemovesBlobAndRow(t *testing.T) {
	s := newTestService(t)
	user := newTestUser(t, s, "a@x.com")
	ctx := context.Background()

	file, err := s.UploadFile(ctx, user, nil, strings.NewReader("bye"), "bye.txt", "text/plain")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	storedName := file.StoredName

	if err := s.DeleteFile(ctx, user, file.ID); err != nil {
		t.Fatalf("DeleteFile failed: %v", err)
	}

	state, err := s.DriveState(ctx, user)
	if err != nil {
		t.Fatalf("DriveState failed: %v", err)
	}
	if len(state.Files) != 0 {
		t.Fatalf("file still listed after delete")
	}

	if _, _, err := s.DownloadFile(ctx, user, file.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("download after delete error = %v, want ErrNotFound", err)
	}
	if _, err := s.blobs.Stat(user.ID, storedName); err == nil {
		t.Fatal("blob still on disk after delete")
	}
}

func TestDownloadMissingBlob(t *testing.T) {
	s := newTestService(t)
	user := newTestUser(t, s, "a@x.com")
	ctx := context.Background()

	file, err := s.UploadFile(ctx, user, nil, strings.NewReader("x"), "x.txt", "text/plain")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	// Simulate a delete racing the download.
	if err := s.blobs.Remove(user.ID, file.StoredName); err != nil {
		t.Fatalf("blob remove failed: %v", err)
	}

	if _, _, err := s.DownloadFile(ctx, user, file.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestQuotaCountsNonTrashed(t *testing.T) {
	s := newTestService(t)
	user := newTestUser(t, s, "a@x.com")
	ctx := context.Background()

	a, _ := s.UploadFile(ctx, user, nil, strings.NewReader("12345"), "a.txt", "text/plain")
	if _, err := s.UploadFile(ctx, user, nil, strings.NewReader("123"), "b.txt", "text/plain"); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	quota, err := s.Quota(ctx, user)
	if err != nil {
		t.Fatalf("Quota failed: %v", err)
	}
	if quota.Used != 8 {
		t.Errorf("used = %d, want 8", quota.Used)
	}
	if quota.Limit != 1<<20 {
		t.Errorf("limit = %d, want %d", quota.Limit, 1<<20)
	}

	if _, err := s.UpdateFile(ctx, user, a.ID, FilePatch{Trashed: boolPtr(true)}); err != nil {
		t.Fatalf("trash failed: %v", err)
	}
	quota, _ = s.Quota(ctx, user)
	if quota.Used != 3 {
		t.Errorf("used after trash = %d, want 3", quota.Used)
	}
}
