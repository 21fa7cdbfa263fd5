package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Provider abstracts the blob area. Blobs are addressed by the owning
// user id and the collision-resistant stored name recorded in metadata.
type Provider interface {
	Save(reader io.Reader, userID uint, storedName string) (int64, error)
	Open(userID uint, storedName string) (io.ReadCloser, error)
	Remove(userID uint, storedName string) error
	Stat(userID uint, storedName string) (int64, error)
}

// LocalStorage keeps blobs on the local filesystem, one subdirectory per
// user id under BaseDir.
type LocalStorage struct {
	BaseDir string
}

func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStorage{BaseDir: baseDir}, nil
}

func (s *LocalStorage) userDir(userID uint) string {
	return filepath.Join(s.BaseDir, strconv.FormatUint(uint64(userID), 10))
}

func (s *LocalStorage) path(userID uint, storedName string) string {
	return filepath.Join(s.userDir(userID), storedName)
}

// Save streams the reader into the user's directory. The bytes go to a
// temp file first and are renamed into place only after the copy
// completes, so an interrupted upload never leaves a partial blob under
// the stored name.
func (s *LocalStorage) Save(reader io.Reader, userID uint, storedName string) (int64, error) {
	dir := s.userDir(userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create user directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	written, err := io.Copy(tmp, reader)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("failed to write blob: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(userID, storedName)); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("failed to finalize blob: %w", err)
	}
	return written, nil
}

func (s *LocalStorage) Open(userID uint, storedName string) (io.ReadCloser, error) {
	return os.Open(s.path(userID, storedName))
}

// Remove deletes a blob. A blob that is already gone is not an error.
func (s *LocalStorage) Remove(userID uint, storedName string) error {
	err := os.Remove(s.path(userID, storedName))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStorage) Stat(userID uint, storedName string) (int64, error) {
	info, err := os.Stat(s.path(userID, storedName))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
