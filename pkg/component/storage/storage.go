// Package storage provides local file storage for uploaded documents,
// partitioned by company to keep tenants isolated on disk.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileStorage stores uploaded files under root/company_{id}/.
type FileStorage struct {
	root string
}

// New creates a FileStorage rooted at the given directory.
func New(root string) (*FileStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &FileStorage{root: root}, nil
}

// Save writes content to a unique path derived from the original filename and
// returns the path relative to the storage root.
func (s *FileStorage) Save(content []byte, filename string, companyID int64) (string, error) {
	dir := filepath.Join(s.root, fmt.Sprintf("company_%d", companyID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create company dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	name := fmt.Sprintf("%d_%s%s", time.Now().Unix(), uuid.New().String()[:8], ext)
	relPath := filepath.Join(fmt.Sprintf("company_%d", companyID), name)

	if err := os.WriteFile(filepath.Join(s.root, relPath), content, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return relPath, nil
}

// Resolve returns the absolute path for a stored relative path.
// Paths escaping the storage root are rejected.
func (s *FileStorage) Resolve(relPath string) (string, error) {
	abs := filepath.Join(s.root, relPath)
	cleanRoot, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}
	cleanAbs, err := filepath.Abs(abs)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(cleanAbs, cleanRoot+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %q escapes storage root", relPath)
	}
	return cleanAbs, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *FileStorage) Delete(relPath string) error {
	abs, err := s.Resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// Exists reports whether a stored file is present on disk.
func (s *FileStorage) Exists(relPath string) bool {
	abs, err := s.Resolve(relPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}
