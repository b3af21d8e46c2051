package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSStore writes uploads under a base directory. FullPath is the stored path
// joined onto publicBase so the dashboard can link straight to the object.
type FSStore struct {
	baseDir    string
	publicBase string
}

func NewFSStore(baseDir, publicBase string) *FSStore {
	return &FSStore{
		baseDir:    baseDir,
		publicBase: strings.TrimSuffix(publicBase, "/"),
	}
}

func (s *FSStore) Upload(_ context.Context, key string, data []byte) (UploadResult, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return UploadResult{}, fmt.Errorf("storage key is required")
	}

	target := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return UploadResult{}, fmt.Errorf("create storage dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return UploadResult{}, fmt.Errorf("write object: %w", err)
	}

	result := UploadResult{Path: key, FullPath: key}
	if s.publicBase != "" {
		result.FullPath = s.publicBase + "/" + key
	}
	return result, nil
}
