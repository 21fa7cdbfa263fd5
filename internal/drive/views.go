package drive

import (
	"time"

	"github.com/minnesingerthule/VRIL-Storage/internal/models"
)

// API views. The wire contract uses camelCase names and an inferred type
// tag; the GORM models stay internal.

type FolderView struct {
	ID               uint   `json:"id"`
	Name             string `json:"name"`
	ParentID         *uint  `json:"parentId"`
	Trashed          bool   `json:"trashed"`
	OriginalParentID *uint  `json:"originalParentId"`
}

type FileView struct {
	ID               uint      `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	OwnerID          uint      `json:"ownerId"`
	ParentID         *uint     `json:"parentId"`
	SizeBytes        int64     `json:"sizeBytes"`
	Starred          bool      `json:"starred"`
	IsShared         bool      `json:"isShared"`
	Trashed          bool      `json:"trashed"`
	OriginalParentID *uint     `json:"originalParentId"`
	ModifiedAt       time.Time `json:"modifiedAt"`
}

// State is the full listing for one user. Trash is a flag, not a separate
// namespace, so trashed entries are included.
type State struct {
	RootFolderID uint         `json:"rootFolderId"`
	Folders      []FolderView `json:"folders"`
	Files        []FileView   `json:"files"`
}

type QuotaInfo struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

func NewFolderView(f models.Folder) FolderView {
	return FolderView{
		ID:               f.ID,
		Name:             f.Name,
		ParentID:         f.ParentID,
		Trashed:          f.Trashed,
		OriginalParentID: f.OriginalParentID,
	}
}

func NewFileView(f models.File) FileView {
	return FileView{
		ID:               f.ID,
		Name:             f.OriginalName,
		Type:             InferType(f.OriginalName),
		OwnerID:          f.OwnerID,
		ParentID:         f.FolderID,
		SizeBytes:        f.SizeBytes,
		Starred:          f.Starred,
		IsShared:         f.IsShared,
		Trashed:          f.Trashed,
		OriginalParentID: f.OriginalFolderID,
		ModifiedAt:       f.UpdatedAt,
	}
}
