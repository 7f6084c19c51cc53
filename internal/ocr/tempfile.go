package ocr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kapu/baselink-bot/internal/domain"
)

// TempStore writes attachments to uniquely named files so concurrent
// interactions uploading the same filename never collide.
type TempStore struct {
	dir string
}

func NewTempStore(dir string) *TempStore {
	if dir == "" {
		dir = os.TempDir()
	}
	return &TempStore{dir: dir}
}

// Write stores att and returns its path plus a cleanup func removing it.
func (s *TempStore) Write(att *domain.ImageAttachment) (string, func(), error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	path := filepath.Join(s.dir, "baselink-"+uuid.NewString()+safeExt(att.Filename))
	if err := os.WriteFile(path, att.Data, 0o600); err != nil {
		return "", nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	return path, func() { _ = os.Remove(path) }, nil
}

func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tif", ".tiff":
		return ext
	default:
		return ".png"
	}
}
