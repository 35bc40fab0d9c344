package provider

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ensure interface is implemented
var _ SourceFileSystem = (*LocalFileSystem)(nil)

// LocalFileSystem implements SourceFileSystem for posix-compliant local
// filesystems. It exists for development runs and tests where standing up an
// SFTP server is overkill.
type LocalFileSystem struct{}

// NewLocalFileSystem creates a LocalFileSystem operating on absolute or
// relative paths directly.
func NewLocalFileSystem() *LocalFileSystem {
	return &LocalFileSystem{}
}

func (l *LocalFileSystem) Stat(ctx context.Context, path string) (FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// ListTree walks basePath and returns files matching the prefix/delimiter
// constraints in walk order.
func (l *LocalFileSystem) ListTree(ctx context.Context, basePath, prefix, delimiter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() {
			return nil
		}
		if MatchTreeEntry(path, prefix, delimiter) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tree %q: %w", basePath, err)
	}

	return files, nil
}

func (l *LocalFileSystem) RetrieveFile(ctx context.Context, remotePath, localPath string, prefetch bool) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	src, err := os.Open(remotePath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy %q: %w", remotePath, err)
	}
	return dst.Close()
}

func (l *LocalFileSystem) OpenReadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return os.Open(path)
}

func (l *LocalFileSystem) DeleteFile(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return os.Remove(path)
}
