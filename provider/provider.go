package provider

import (
	"context"
	"io"
	"time"
)

// FileInfo represents the standard metadata for a file or a directory
// across different storage abstractions.
type FileInfo interface {
	Name() string
	Size() int64
	IsDir() bool
	ModTime() time.Time
}

// SourceFileSystem is the read side of a transfer: the remote system files
// are pulled from. A typical implementation is an SFTP server, but a local
// filesystem works too (useful for development and tests).
type SourceFileSystem interface {
	// Stat returns the FileInfo for the given path.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// ListTree walks the tree rooted at basePath and returns the absolute
	// paths of all regular files whose full path starts with prefix and,
	// when delimiter is non-empty, ends with delimiter. Order follows the
	// underlying listing.
	ListTree(ctx context.Context, basePath, prefix, delimiter string) ([]string, error)

	// RetrieveFile downloads the remote file at remotePath into the local
	// file at localPath, creating or truncating it. prefetch is a hint to
	// pipeline read-ahead requests when the transport supports it.
	RetrieveFile(ctx context.Context, remotePath, localPath string, prefetch bool) error

	// OpenReadStream opens the remote file for streaming reads.
	OpenReadStream(ctx context.Context, path string) (io.ReadCloser, error)

	// DeleteFile removes the remote file.
	DeleteFile(ctx context.Context, path string) error
}

// ObjectStore is the write side of a transfer: a bucket-addressed object
// storage backend such as GCS or S3.
type ObjectStore interface {
	// Upload writes body to bucket/key with the given mime type. When gzip
	// is set the body is compressed on the way in and the object is marked
	// with a gzip content encoding.
	Upload(ctx context.Context, bucket, key string, body io.Reader, mimeType string, gzip bool) error

	// UploadFile uploads the contents of a local file to bucket/key.
	UploadFile(ctx context.Context, bucket, key, localPath, mimeType string, gzip bool) error

	// OpenWriteStream opens a writer to bucket/key. The object becomes
	// visible (or is finalized) when the writer is closed; a write or close
	// error may leave a partial object behind depending on the backend.
	OpenWriteStream(ctx context.Context, bucket, key string) (io.WriteCloser, error)

	// ObjectExists reports whether bucket/key currently exists.
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)

	// DeleteObject removes bucket/key.
	DeleteObject(ctx context.Context, bucket, key string) error

	// CopyObject performs a server-side copy of srcKey to dstKey within the
	// same bucket.
	CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error
}
