// Package proofstore abstracts the object storage bucket holding payment
// proof images. Paths are "<user_id>/<file>"; tickets reference proofs by
// path, never by value.
package proofstore

import (
	"context"
	"io"
	"time"
)

// Object describes one stored proof image.
type Object struct {
	Path      string
	CreatedAt time.Time
	Size      int64
}

// Store is the storage surface the app consumes: upload, presigned
// download, prefix listing, and batch delete.
type Store interface {
	Upload(ctx context.Context, path, contentType string, body io.Reader) error
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Remove(ctx context.Context, paths ...string) error
}
