// Package backupstore is where pantry exports are written.
package backupstore

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound   = errors.New("backup not found")
	ErrInvalidKey = errors.New("invalid backup key")
)

type Store interface {
	Save(ctx context.Context, prefix, contentType string, r io.Reader) (key string, err error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}
