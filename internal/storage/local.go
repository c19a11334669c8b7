// Package storage persists uploaded attachments on the local filesystem and
// hands back the relative URL paths stored on tickets and messages.
package storage

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// LocalStore saves multipart uploads under a directory served as /uploads.
type LocalStore struct {
	dir     string
	maxSize int64
}

// NewLocalStore ensures the upload directory exists.
func NewLocalStore(dir string, maxSize int64) (*LocalStore, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, maxSize: maxSize}, nil
}

// Dir returns the directory backing the /uploads static mount.
func (s *LocalStore) Dir() string {
	return s.dir
}

// SaveAll writes every file in the multipart field and returns their
// relative /uploads paths.
func (s *LocalStore) SaveAll(c *fiber.Ctx, files []*multipart.FileHeader) ([]string, error) {
	paths := make([]string, 0, len(files))
	for _, file := range files {
		if s.maxSize > 0 && file.Size > s.maxSize {
			return nil, apperrors.NewValidationError("attachment too large", map[string]any{
				"file_name": file.Filename,
				"max_bytes": s.maxSize,
			})
		}
		name := uuid.NewString() + sanitizeExt(file.Filename)
		if err := c.SaveFile(file, filepath.Join(s.dir, name)); err != nil {
			return nil, fmt.Errorf("save attachment: %w", err)
		}
		paths = append(paths, "/uploads/"+name)
	}
	return paths, nil
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '.' {
			return ""
		}
	}
	return ext
}
