// Package storage holds uploaded file bytes and hands back the paths that go
// on the file row.
package storage

import "context"

// UploadResult carries the stored object's relative path and the URL-ish full
// path the dashboard links to.
type UploadResult struct {
	Path     string
	FullPath string
}

type Store interface {
	Upload(ctx context.Context, key string, data []byte) (UploadResult, error)
}
