// Package storage holds the blob stores uploaded profile files can live in.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/config"
)

// ErrObjectNotFound is returned by DownloadFile when the object does not exist
var ErrObjectNotFound = errors.New("storage object not found")

// StorageClient is a blob store addressed by object name.
type StorageClient interface {
	UploadFile(ctx context.Context, objectName string, data io.Reader, contentType string) error
	// DownloadFile returns the object content and its size, or -1 when the size is unknown.
	DownloadFile(ctx context.Context, objectName string) (io.ReadCloser, int64, error)
	DeleteFile(ctx context.Context, objectName string) error
}

// New returns the client selected by cfg.Storage.Backend.
// The inline backend keeps bytes in the database and yields a nil client.
func New(ctx context.Context, cfg *config.Config) (StorageClient, error) {
	switch cfg.Storage.Backend {
	case config.StorageInline, "":
		return nil, nil
	case config.StorageGCS:
		client, err := NewCloudStorageClient(ctx, cfg.Storage.GCS.Bucket)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.StorageS3:
		client, err := NewS3Client(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
