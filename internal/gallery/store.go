package gallery

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by stores when a key does not exist.
var ErrObjectNotFound = errors.New("gallery: object not found")

// Object describes a stored object.
type Object struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// ObjectStore provides access to object storage.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	List(ctx context.Context, prefix string) ([]Object, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}
