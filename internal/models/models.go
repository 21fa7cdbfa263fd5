package models

import (
	"time"
)

// User owns a folder tree and a set of files. Deleting a user cascades
// to everything it owns.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`

	Folders []Folder `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Files   []File   `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
}

// Folder is a node in the per-user tree. A nil ParentID marks the root
// folder; every user has exactly one untrashed, parentless folder.
// OriginalParentID remembers where a trashed folder should be restored to.
type Folder struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	OwnerID          uint      `gorm:"not null;index" json:"owner_id"`
	Name             string    `gorm:"size:255;not null" json:"name"`
	ParentID         *uint     `gorm:"index" json:"parent_id"`
	Trashed          bool      `gorm:"not null;default:false" json:"trashed"`
	OriginalParentID *uint     `json:"original_parent_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// File is a metadata row backed by a blob on disk. StoredName is the
// collision-resistant on-disk name; OriginalName is what the user sees.
type File struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	OwnerID          uint      `gorm:"not null;index" json:"owner_id"`
	FolderID         *uint     `gorm:"index" json:"folder_id"`
	StoredName       string    `gorm:"size:255;not null" json:"-"`
	OriginalName     string    `gorm:"size:255;not null" json:"name"`
	ContentType      string    `gorm:"size:100" json:"content_type"`
	SizeBytes        int64     `gorm:"not null;default:0" json:"size_bytes"`
	Starred          bool      `gorm:"not null;default:false" json:"starred"`
	IsShared         bool      `gorm:"not null;default:false" json:"is_shared"`
	Trashed          bool      `gorm:"not null;default:false" json:"trashed"`
	OriginalFolderID *uint     `json:"original_folder_id"`
	CreatedAt        time.Time `json:"uploaded_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
