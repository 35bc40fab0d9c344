package provider

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ensure interface is implemented
var _ ObjectStore = (*GCSStore)(nil)

// GCSStore implements ObjectStore on Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a GCS-backed object store. credentialsFile may be empty,
// in which case application default credentials are used.
func NewGCSStore(ctx context.Context, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

// Upload writes body to bucket/key, optionally gzip-compressing it in flight.
func (g *GCSStore) Upload(ctx context.Context, bucket, key string, body io.Reader, mimeType string, gzipEnabled bool) error {
	// The writer runs on its own cancellable context so a failed copy
	// aborts the upload instead of committing the bytes written so far.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := g.client.Bucket(bucket).Object(key).NewWriter(wctx)
	w.ContentType = mimeType

	var dst io.Writer = w
	var gz *gzip.Writer
	if gzipEnabled {
		w.ContentEncoding = "gzip"
		gz = gzip.NewWriter(w)
		dst = gz
	}

	if _, err := io.Copy(dst, body); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("gcs upload gs://%s/%s: %w", bucket, key, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			cancel()
			_ = w.Close()
			return fmt.Errorf("gcs upload gs://%s/%s: %w", bucket, key, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs upload gs://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// UploadFile uploads a local file to bucket/key.
func (g *GCSStore) UploadFile(ctx context.Context, bucket, key, localPath, mimeType string, gzipEnabled bool) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", localPath, err)
	}
	defer f.Close()

	return g.Upload(ctx, bucket, key, f, mimeType, gzipEnabled)
}

// OpenWriteStream opens an incremental writer to bucket/key. The object is
// finalized when the writer is closed; a mid-stream abort can leave a
// partially composed object behind.
func (g *GCSStore) OpenWriteStream(ctx context.Context, bucket, key string) (io.WriteCloser, error) {
	return g.client.Bucket(bucket).Object(key).NewWriter(ctx), nil
}

// ObjectExists reports whether bucket/key exists.
func (g *GCSStore) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := g.client.Bucket(bucket).Object(key).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("gcs attrs gs://%s/%s: %w", bucket, key, err)
}

// DeleteObject removes bucket/key.
func (g *GCSStore) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := g.client.Bucket(bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("gcs delete gs://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// CopyObject performs a server-side copy of srcKey to dstKey within bucket.
func (g *GCSStore) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	b := g.client.Bucket(bucket)
	if _, err := b.Object(dstKey).CopierFrom(b.Object(srcKey)).Run(ctx); err != nil {
		return fmt.Errorf("gcs copy gs://%s/%s -> %s: %w", bucket, srcKey, dstKey, err)
	}
	return nil
}

// Close releases the underlying client.
func (g *GCSStore) Close() error {
	return g.client.Close()
}
