package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minnesingerthule/VRIL-Storage/internal/logging"
	"github.com/minnesingerthule/VRIL-Storage/internal/models"
	"github.com/minnesingerthule/VRIL-Storage/internal/storage"
	"gorm.io/gorm"
)

// RootFolderName is the label given to lazily created root folders.
const RootFolderName = "My Drive"

// Service implements the folder tree and file operations. Every call is
// one unit of work against the store; the handle is injected, never a
// package-level singleton.
type Service struct {
	db         *gorm.DB
	blobs      storage.Provider
	log        logging.Logger
	quotaBytes int64

	roots rootLocks
}

func NewService(db *gorm.DB, blobs storage.Provider, log logging.Logger, quotaBytes int64) *Service {
	return &Service{
		db:         db,
		blobs:      blobs,
		log:        log,
		quotaBytes: quotaBytes,
	}
}

// FolderPatch carries a partial folder update. Nil fields are left
// untouched; there is no way to clear ParentID back to NULL here.
type FolderPatch struct {
	Name             *string `json:"name"`
	Trashed          *bool   `json:"trashed"`
	ParentID         *uint   `json:"parentId"`
	OriginalParentID *uint   `json:"originalParentId"`
}

// FilePatch carries a partial file update with the same semantics.
type FilePatch struct {
	Name             *string `json:"name"`
	Starred          *bool   `json:"starred"`
	IsShared         *bool   `json:"isShared"`
	Trashed          *bool   `json:"trashed"`
	ParentID         *uint   `json:"parentId"`
	OriginalParentID *uint   `json:"originalParentId"`
}

// EnsureRoot returns the user's untrashed, parentless folder, creating it
// if absent. Safe under concurrent first-access for the same user.
func (s *Service) EnsureRoot(ctx context.Context, userID uint) (*models.Folder, error) {
	unlock := s.roots.lock(userID)
	defer unlock()

	var root models.Folder
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND parent_id IS NULL AND trashed = ?", userID, false).
		First(&root).Error
	if err == nil {
		return &root, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	root = models.Folder{OwnerID: userID, Name: RootFolderName}
	if err := s.db.WithContext(ctx).Create(&root).Error; err != nil {
		return nil, err
	}
	s.log.Debug("created root folder %d for user %d", root.ID, userID)
	return &root, nil
}

// ownedFolder loads a folder under the ownership rule. A folder that
// exists but belongs to someone else surfaces as not found.
func (s *Service) ownedFolder(ctx context.Context, userID, folderID uint) (*models.Folder, error) {
	var folder models.Folder
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", folderID, userID).
		First(&folder).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: folder %d", ErrNotFound, folderID)
	}
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

func (s *Service) ownedFile(ctx context.Context, userID, fileID uint) (*models.File, error) {
	var file models.File
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", fileID, userID).
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: file %d", ErrNotFound, fileID)
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// checkParent verifies that a prospective parent folder is owned by the
// caller and still in the tree. Applied at create and reparent time for
// folders and files; trashed folders are detached and take no children.
func (s *Service) checkParent(ctx context.Context, userID, parentID uint) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Folder{}).
		Where("id = ? AND owner_id = ? AND trashed = ?", parentID, userID, false).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: folder %d", ErrInvalidParent, parentID)
	}
	return nil
}

// restoreTarget picks the parent a restored item goes back to: its
// original parent if that folder still exists untrashed, the root
// otherwise.
func (s *Service) restoreTarget(ctx context.Context, userID uint, original *uint) (*uint, error) {
	if original != nil {
		var count int64
		err := s.db.WithContext(ctx).Model(&models.Folder{}).
			Where("id = ? AND owner_id = ? AND trashed = ?", *original, userID, false).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return original, nil
		}
	}
	root, err := s.EnsureRoot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &root.ID, nil
}

// CreateFolder creates a folder under parentID, defaulting to the root.
func (s *Service) CreateFolder(ctx context.Context, user *models.User, name string, parentID *uint) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is empty", ErrInvalidName)
	}

	root, err := s.EnsureRoot(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	pid := &root.ID
	if parentID != nil {
		if err := s.checkParent(ctx, user.ID, *parentID); err != nil {
			return nil, err
		}
		pid = parentID
	}

	folder := models.Folder{
		OwnerID:  user.ID,
		Name:     name,
		ParentID: pid,
	}
	if err := s.db.WithContext(ctx).Create(&folder).Error; err != nil {
		return nil, err
	}
	return &folder, nil
}

// UpdateFolder applies a partial update. Trash and restore are handled
// server-side: trashing captures the current parent, restoring moves the
// folder back and clears the marker.
func (s *Service) UpdateFolder(ctx context.Context, user *models.User, folderID uint, patch FolderPatch) (*models.Folder, error) {
	folder, err := s.ownedFolder(ctx, user.ID, folderID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: folder name is empty", ErrInvalidName)
		}
		folder.Name = name
	}

	if patch.ParentID != nil {
		if err := s.checkParent(ctx, user.ID, *patch.ParentID); err != nil {
			return nil, err
		}
		folder.ParentID = patch.ParentID
	}

	if patch.Trashed != nil && *patch.Trashed != folder.Trashed {
		if *patch.Trashed {
			// Detach from the tree; deleting the old parent must not
			// drag trashed descendants along.
			folder.OriginalParentID = folder.ParentID
			folder.ParentID = nil
			folder.Trashed = true
		} else {
			target, err := s.restoreTarget(ctx, user.ID, folder.OriginalParentID)
			if err != nil {
				return nil, err
			}
			folder.ParentID = target
			folder.OriginalParentID = nil
			folder.Trashed = false
		}
	}

	// Kept for callers that manage restore targets themselves.
	if patch.OriginalParentID != nil {
		folder.OriginalParentID = patch.OriginalParentID
	}

	if err := s.db.WithContext(ctx).Save(folder).Error; err != nil {
		return nil, err
	}
	return folder, nil
}

// DeleteFolder removes a folder and all descendant folders in one
// transaction. Files sitting in any removed folder are re-filed into the
// root instead of being left with a dangling parent.
func (s *Service) DeleteFolder(ctx context.Context, user *models.User, folderID uint) error {
	folder, err := s.ownedFolder(ctx, user.ID, folderID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := map[uint]bool{folder.ID: true}
		ids := []uint{folder.ID}
		frontier := []uint{folder.ID}

		for len(frontier) > 0 {
			var children []models.Folder
			if err := tx.Where("owner_id = ? AND parent_id IN ?", user.ID, frontier).
				Find(&children).Error; err != nil {
				return err
			}
			frontier = frontier[:0]
			for _, child := range children {
				if seen[child.ID] {
					continue
				}
				seen[child.ID] = true
				ids = append(ids, child.ID)
				frontier = append(frontier, child.ID)
			}
		}

		// Re-file into the root unless the root itself is being deleted.
		var target any
		var root models.Folder
		err := tx.Where("owner_id = ? AND parent_id IS NULL AND trashed = ?", user.ID, false).
			First(&root).Error
		switch {
		case err == nil && !seen[root.ID]:
			target = root.ID
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := tx.Model(&models.File{}).
			Where("owner_id = ? AND folder_id IN ?", user.ID, ids).
			Update("folder_id", target).Error; err != nil {
			return err
		}

		return tx.Where("owner_id = ? AND id IN ?", user.ID, ids).
			Delete(&models.Folder{}).Error
	})
}

// UploadFile streams the blob into storage and records the metadata row.
// The row is only created after the blob write succeeded; if the row
// cannot be committed the blob is removed again.
func (s *Service) UploadFile(ctx context.Context, user *models.User, folderID *uint, reader io.Reader, originalName, contentType string) (*models.File, error) {
	if originalName == "" {
		originalName = "file"
	}
	originalName = filepath.Base(originalName)

	root, err := s.EnsureRoot(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	fid := &root.ID
	if folderID != nil {
		if err := s.checkParent(ctx, user.ID, *folderID); err != nil {
			return nil, err
		}
		fid = folderID
	}

	storedName := fmt.Sprintf("%d_%s_%s", user.ID, uuid.NewString(), originalName)

	size, err := s.blobs.Save(reader, user.ID, storedName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	file := models.File{
		OwnerID:      user.ID,
		FolderID:     fid,
		StoredName:   storedName,
		OriginalName: originalName,
		ContentType:  contentType,
		SizeBytes:    size,
	}
	if err := s.db.WithContext(ctx).Create(&file).Error; err != nil {
		if rmErr := s.blobs.Remove(user.ID, storedName); rmErr != nil {
			s.log.Warn("orphaned blob %s after failed metadata commit: %v", storedName, rmErr)
		}
		return nil, err
	}

	s.log.Info("user %d uploaded %q (%d bytes)", user.ID, originalName, size)
	return &file, nil
}

// UpdateFile applies a partial update with the same trash/restore
// semantics as folders.
func (s *Service) UpdateFile(ctx context.Context, user *models.User, fileID uint, patch FilePatch) (*models.File, error) {
	file, err := s.ownedFile(ctx, user.ID, fileID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: file name is empty", ErrInvalidName)
		}
		file.OriginalName = name
	}

	if patch.Starred != nil {
		file.Starred = *patch.Starred
	}
	if patch.IsShared != nil {
		file.IsShared = *patch.IsShared
	}

	if patch.ParentID != nil {
		if err := s.checkParent(ctx, user.ID, *patch.ParentID); err != nil {
			return nil, err
		}
		file.FolderID = patch.ParentID
	}

	if patch.Trashed != nil && *patch.Trashed != file.Trashed {
		if *patch.Trashed {
			file.OriginalFolderID = file.FolderID
			file.FolderID = nil
			file.Trashed = true
		} else {
			target, err := s.restoreTarget(ctx, user.ID, file.OriginalFolderID)
			if err != nil {
				return nil, err
			}
			file.FolderID = target
			file.OriginalFolderID = nil
			file.Trashed = false
		}
	}

	if patch.OriginalParentID != nil {
		file.OriginalFolderID = patch.OriginalParentID
	}

	if err := s.db.WithContext(ctx).Save(file).Error; err != nil {
		return nil, err
	}
	return file, nil
}

// DeleteFile removes the blob, then the row. A blob already gone from
// disk is tolerated; the row must never be deleted before the removal
// attempt, or unaddressable blobs pile up.
func (s *Service) DeleteFile(ctx context.Context, user *models.User, fileID uint) error {
	file, err := s.ownedFile(ctx, user.ID, fileID)
	if err != nil {
		return err
	}

	if err := s.blobs.Remove(file.OwnerID, file.StoredName); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return s.db.WithContext(ctx).Delete(&models.File{}, file.ID).Error
}

// DownloadFile opens the blob for a file the requester may read: the
// owner always, anyone else only while the file is shared. A metadata
// row whose blob is missing surfaces as not found, not a crash.
func (s *Service) DownloadFile(ctx context.Context, requester *models.User, fileID uint) (io.ReadCloser, *models.File, error) {
	var file models.File
	err := s.db.WithContext(ctx).First(&file, fileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("%w: file %d", ErrNotFound, fileID)
	}
	if err != nil {
		return nil, nil, err
	}

	if !file.IsShared && file.OwnerID != requester.ID {
		return nil, nil, fmt.Errorf("%w: file %d", ErrForbidden, fileID)
	}

	blob, err := s.blobs.Open(file.OwnerID, file.StoredName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: blob for file %d missing", ErrNotFound, fileID)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return blob, &file, nil
}

// DriveState returns the full folder and file listing for a user, all
// trash states included, creating the root lazily.
func (s *Service) DriveState(ctx context.Context, user *models.User) (*State, error) {
	root, err := s.EnsureRoot(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	var folders []models.Folder
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", user.ID).
		Order("id").
		Find(&folders).Error; err != nil {
		return nil, err
	}

	var files []models.File
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", user.ID).
		Order("id").
		Find(&files).Error; err != nil {
		return nil, err
	}

	state := &State{
		RootFolderID: root.ID,
		Folders:      make([]FolderView, 0, len(folders)),
		Files:        make([]FileView, 0, len(files)),
	}
	for _, f := range folders {
		state.Folders = append(state.Folders, NewFolderView(f))
	}
	for _, f := range files {
		state.Files = append(state.Files, NewFileView(f))
	}
	return state, nil
}

// SharedFiles lists every shared, non-trashed file across all users.
// Any authenticated session may call this; the listing is deliberately
// system-wide.
func (s *Service) SharedFiles(ctx context.Context) ([]FileView, error) {
	var files []models.File
	if err := s.db.WithContext(ctx).
		Where("is_shared = ? AND trashed = ?", true, false).
		Order("id").
		Find(&files).Error; err != nil {
		return nil, err
	}

	views := make([]FileView, 0, len(files))
	for _, f := range files {
		views = append(views, NewFileView(f))
	}
	return views, nil
}

// Quota reports the user's non-trashed byte usage against the configured
// limit.
func (s *Service) Quota(ctx context.Context, user *models.User) (QuotaInfo, error) {
	var used int64
	err := s.db.WithContext(ctx).Model(&models.File{}).
		Select("ifnull(sum(size_bytes), 0)").
		Where("owner_id = ? AND trashed = ?", user.ID, false).
		Scan(&used).Error
	if err != nil {
		return QuotaInfo{}, err
	}
	return QuotaInfo{Used: used, Limit: s.quotaBytes}, nil
}
