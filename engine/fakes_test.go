package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/franksops/goshuttle/provider"
)

type fakeFileInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return f.size }
func (f fakeFileInfo) IsDir() bool        { return f.isDir }
func (f fakeFileInfo) ModTime() time.Time { return f.modTime }

// fakeSource is an in-memory SourceFileSystem recording every call.
type fakeSource struct {
	mu    sync.Mutex
	paths []string          // listing order
	files map[string][]byte // path -> content

	listCalls   int
	retrieved   []string // remote paths retrieved
	deleted     []string // remote paths deleted
	retrieveErr error
	deleteErr   error
}

func newFakeSource() *fakeSource {
	return &fakeSource{files: make(map[string][]byte)}
}

func (s *fakeSource) addFile(path string, content []byte) {
	s.paths = append(s.paths, path)
	s.files[path] = content
}

func (s *fakeSource) Stat(ctx context.Context, path string) (provider.FileInfo, error) {
	content, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return fakeFileInfo{name: path, size: int64(len(content))}, nil
}

func (s *fakeSource) ListTree(ctx context.Context, basePath, prefix, delimiter string) ([]string, error) {
	s.mu.Lock()
	s.listCalls++
	s.mu.Unlock()

	var out []string
	for _, p := range s.paths {
		if provider.MatchTreeEntry(p, prefix, delimiter) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeSource) RetrieveFile(ctx context.Context, remotePath, localPath string, prefetch bool) error {
	s.mu.Lock()
	s.retrieved = append(s.retrieved, remotePath)
	s.mu.Unlock()

	if s.retrieveErr != nil {
		return s.retrieveErr
	}
	content, ok := s.files[remotePath]
	if !ok {
		return fmt.Errorf("file not found: %s", remotePath)
	}
	return os.WriteFile(localPath, content, 0644)
}

func (s *fakeSource) OpenReadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	content, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (s *fakeSource) DeleteFile(ctx context.Context, path string) error {
	s.mu.Lock()
	s.deleted = append(s.deleted, path)
	s.mu.Unlock()

	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.files, path)
	return nil
}

// storeOp records one object-store call in invocation order.
type storeOp struct {
	op     string // "upload", "upload_file", "open_write", "exists", "delete", "copy"
	bucket string
	key    string
}

// fakeStore is an in-memory ObjectStore with an ordered operation log.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte // bucket/key -> content
	ops     []storeOp

	uploadedFiles []string // local paths handed to UploadFile
	lastCtx       context.Context

	uploadErr error
	// swallowUploads makes Upload succeed without creating the object,
	// simulating a client whose write never materialized.
	swallowUploads bool
	// failWrites makes stream writers error on Write.
	failWrites bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) record(op, bucket, key string) {
	s.mu.Lock()
	s.ops = append(s.ops, storeOp{op: op, bucket: bucket, key: key})
	s.mu.Unlock()
}

func (s *fakeStore) object(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[bucket+"/"+key]
	return b, ok
}

func (s *fakeStore) opIndex(op, key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.ops {
		if o.op == op && o.key == key {
			return i
		}
	}
	return -1
}

func (s *fakeStore) Upload(ctx context.Context, bucket, key string, body io.Reader, mimeType string, gzip bool) error {
	s.record("upload", bucket, key)
	if s.uploadErr != nil {
		return s.uploadErr
	}
	content, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if s.swallowUploads {
		return nil
	}
	s.mu.Lock()
	s.objects[bucket+"/"+key] = content
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) UploadFile(ctx context.Context, bucket, key, localPath, mimeType string, gzip bool) error {
	s.record("upload_file", bucket, key)
	s.mu.Lock()
	s.uploadedFiles = append(s.uploadedFiles, localPath)
	s.lastCtx = ctx
	s.mu.Unlock()

	if s.uploadErr != nil {
		return s.uploadErr
	}
	content, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[bucket+"/"+key] = content
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) OpenWriteStream(ctx context.Context, bucket, key string) (io.WriteCloser, error) {
	s.record("open_write", bucket, key)
	return &fakeWriteStream{store: s, bucket: bucket, key: key, fail: s.failWrites}, nil
}

func (s *fakeStore) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	s.record("exists", bucket, key)
	_, ok := s.object(bucket, key)
	return ok, nil
}

func (s *fakeStore) DeleteObject(ctx context.Context, bucket, key string) error {
	s.record("delete", bucket, key)
	s.mu.Lock()
	delete(s.objects, bucket+"/"+key)
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	s.record("copy", bucket, dstKey)
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.objects[bucket+"/"+srcKey]
	if !ok {
		return fmt.Errorf("object not found: %s/%s", bucket, srcKey)
	}
	s.objects[bucket+"/"+dstKey] = content
	return nil
}

// fakeWriteStream buffers writes and commits the object on Close.
type fakeWriteStream struct {
	store  *fakeStore
	bucket string
	key    string
	buf    bytes.Buffer
	fail   bool
}

func (w *fakeWriteStream) Write(p []byte) (int, error) {
	if w.fail {
		// Commit what arrived so far: a partially written object, as a
		// real incremental writer can leave behind.
		w.store.mu.Lock()
		w.store.objects[w.bucket+"/"+w.key] = append([]byte(nil), w.buf.Bytes()...)
		w.store.mu.Unlock()
		return 0, fmt.Errorf("write failed")
	}
	return w.buf.Write(p)
}

func (w *fakeWriteStream) Close() error {
	if w.fail {
		return nil
	}
	w.store.mu.Lock()
	w.store.objects[w.bucket+"/"+w.key] = append([]byte(nil), w.buf.Bytes()...)
	w.store.mu.Unlock()
	return nil
}
