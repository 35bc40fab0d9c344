package engine

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/franksops/goshuttle/provider"
)

// Engine moves files from a source filesystem into an object store according
// to a TransferSpec. It holds no state across invocations.
type Engine struct {
	src      provider.SourceFileSystem
	store    provider.ObjectStore
	log      zerolog.Logger
	bufs     *BufferPool
	reporter ProgressReporter
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithProgressReporter installs a reporter that receives per-file byte
// progress during transfers.
func WithProgressReporter(r ProgressReporter) Option {
	return func(e *Engine) { e.reporter = r }
}

// WithBufferPool overrides the pool used for stream-mode copies.
func WithBufferPool(bp *BufferPool) Option {
	return func(e *Engine) { e.bufs = bp }
}

// New creates a transfer engine over the given source and destination.
func New(src provider.SourceFileSystem, store provider.ObjectStore, opts ...Option) *Engine {
	e := &Engine{
		src:   src,
		store: store,
		log:   zerolog.Nop(),
		bufs:  NewBufferPool(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run performs one invocation's worth of transfer work: validate the spec,
// resolve the source path into pairs, transfer each pair with the selected
// strategy, and delete sources when move semantics are requested.
//
// Pairs are processed sequentially unless spec.Concurrency asks for more,
// and the first error aborts the remaining pairs either way. Retries are the
// caller's responsibility.
func (e *Engine) Run(ctx context.Context, spec TransferSpec) error {
	spec = spec.Normalized()
	if err := spec.Validate(); err != nil {
		return err
	}

	pairs, err := e.ResolvePairs(ctx, spec)
	if err != nil {
		return err
	}

	if spec.Concurrency > 1 && len(pairs) > 1 {
		return e.runParallel(ctx, spec, pairs)
	}

	for _, pair := range pairs {
		if err := e.transferPair(ctx, spec, pair); err != nil {
			return err
		}
	}
	return nil
}

// ResolvePairs expands the spec's source path into concrete transfer pairs.
// The spec should be normalized first; Run does this automatically.
func (e *Engine) ResolvePairs(ctx context.Context, spec TransferSpec) ([]PathPair, error) {
	return NewResolver(e.src).Resolve(ctx, spec.SourcePath, spec.DestinationPath)
}

func (e *Engine) runParallel(ctx context.Context, spec TransferSpec, pairs []PathPair) error {
	jobChan := make(JobChannel, len(pairs))
	pool := NewWorkerPool(ctx, jobChan, func(ctx context.Context, pair PathPair) error {
		return e.transferPair(ctx, spec, pair)
	})
	// Releases the pool's derived context once the run is over.
	defer pool.Stop()
	pool.SetWorkerCount(spec.Concurrency)

	for _, pair := range pairs {
		jobChan <- pair
	}
	close(jobChan)

	return pool.Wait()
}

// transferPair executes the selected strategy for one pair and, on success,
// applies move semantics.
func (e *Engine) transferPair(ctx context.Context, spec TransferSpec, pair PathPair) error {
	var err error
	switch spec.Mode {
	case ModeBuffered:
		err = e.copyBuffered(ctx, spec, pair)
	case ModeStreamGetFo:
		err = e.streamDirect(ctx, spec, pair)
	case ModeStreamUploadFromFile:
		err = e.streamViaTemp(ctx, spec, pair)
	default:
		// Validate catches this before any I/O; kept for direct callers.
		err = &ValidationError{Param: "stream_method", Reason: fmt.Sprintf("unrecognized method %q", spec.Mode)}
	}
	if err != nil {
		return err
	}

	if spec.MoveObject {
		e.log.Info().Str("source", pair.Source).Msg("deleting source after transfer")
		if err := e.src.DeleteFile(ctx, pair.Source); err != nil {
			// The upload already completed; deletion failure is surfaced
			// without rolling it back.
			return fmt.Errorf("failed to delete source %q after transfer: %w", pair.Source, err)
		}
	}
	return nil
}

// copyBuffered downloads the file into scoped local temporary storage, then
// uploads it. The temp file is removed on every exit path.
func (e *Engine) copyBuffered(ctx context.Context, spec TransferSpec, pair PathPair) error {
	e.log.Info().
		Str("source", pair.Source).
		Str("bucket", spec.DestinationBucket).
		Str("key", pair.DestinationKey).
		Msg("executing buffered copy")

	tmp, err := os.CreateTemp("", "goshuttle-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := e.src.RetrieveFile(ctx, pair.Source, tmpPath, spec.Prefetch); err != nil {
		return &TransferError{Source: pair.Source, Bucket: spec.DestinationBucket, Key: pair.DestinationKey, Op: "retrieve", Err: err}
	}

	if err := e.store.UploadFile(ctx, spec.DestinationBucket, pair.DestinationKey, tmpPath, spec.MimeType, spec.Gzip); err != nil {
		return &TransferError{Source: pair.Source, Bucket: spec.DestinationBucket, Key: pair.DestinationKey, Op: "upload", Err: err}
	}

	if e.reporter != nil {
		if info, err := os.Stat(tmpPath); err == nil {
			e.reporter.Progress(info.Size(), info.Size())
		}
	}
	return nil
}

// streamDirect pipes bytes from a source read stream straight into a write
// stream on the final destination object. A mid-stream failure can leave a
// partially written destination object behind; that is an accepted property
// of this strategy, not mitigated here.
func (e *Engine) streamDirect(ctx context.Context, spec TransferSpec, pair PathPair) error {
	e.log.Info().
		Str("source", pair.Source).
		Str("bucket", spec.DestinationBucket).
		Str("key", pair.DestinationKey).
		Msg("executing direct stream")

	var total int64
	if info, err := e.src.Stat(ctx, pair.Source); err == nil {
		total = info.Size()
	}

	src, err := e.src.OpenReadStream(ctx, pair.Source)
	if err != nil {
		return &TransferError{Source: pair.Source, Bucket: spec.DestinationBucket, Key: pair.DestinationKey, Op: "open source", Err: err}
	}
	defer src.Close()

	dst, err := e.store.OpenWriteStream(ctx, spec.DestinationBucket, pair.DestinationKey)
	if err != nil {
		return &TransferError{Source: pair.Source, Bucket: spec.DestinationBucket, Key: pair.DestinationKey, Op: "open destination", Err: err}
	}

	buf := e.bufs.Get()
	defer e.bufs.Put(buf)

	pw := NewProgressWriter(dst, total, e.reporter)
	if _, err := io.CopyBuffer(pw, src, *buf); err != nil {
		_ = dst.Close()
		return &TransferError{Source: pair.Source, Bucket: spec.DestinationBucket, Key: pair.DestinationKey, Op: "stream copy", Err: err}
	}

	if err := dst.Close(); err != nil {
		return &TransferError{Source: pair.Source, Bucket: spec.DestinationBucket, Key: pair.DestinationKey, Op: "finalize stream", Err: err}
	}
	return nil
}

// streamViaTemp streams the file into <key>.tmp and promotes it to the final
// key only after confirming the temporary object exists. The existence check
// is the commit signal: if the temporary object is absent after the upload
// call, no destination object is produced.
func (e *Engine) streamViaTemp(ctx context.Context, spec TransferSpec, pair PathPair) error {
	bucket := spec.DestinationBucket
	tempKey := pair.DestinationKey + ".tmp"

	e.log.Info().
		Str("source", pair.Source).
		Str("bucket", bucket).
		Str("key", pair.DestinationKey).
		Msg("executing stream via temporary object")

	// A leftover temp object from a prior failed attempt would corrupt the
	// commit check below; clear it first.
	exists, err := e.store.ObjectExists(ctx, bucket, tempKey)
	if err != nil {
		return &TransferError{Source: pair.Source, Bucket: bucket, Key: pair.DestinationKey, Op: "check temp object", Err: err}
	}
	if exists {
		e.log.Warn().
			Str("bucket", bucket).
			Str("temp_key", tempKey).
			Msg("stale temporary object found, deleting for fresh upload")
		if err := e.store.DeleteObject(ctx, bucket, tempKey); err != nil {
			return &TransferError{Source: pair.Source, Bucket: bucket, Key: pair.DestinationKey, Op: "delete stale temp object", Err: err}
		}
	}

	src, err := e.src.OpenReadStream(ctx, pair.Source)
	if err != nil {
		return &TransferError{Source: pair.Source, Bucket: bucket, Key: pair.DestinationKey, Op: "open source", Err: err}
	}
	defer src.Close()

	if err := e.store.Upload(ctx, bucket, tempKey, src, spec.MimeType, spec.Gzip); err != nil {
		return &TransferError{Source: pair.Source, Bucket: bucket, Key: pair.DestinationKey, Op: "upload temp object", Err: err}
	}

	exists, err = e.store.ObjectExists(ctx, bucket, tempKey)
	if err != nil {
		return &TransferError{Source: pair.Source, Bucket: bucket, Key: pair.DestinationKey, Op: "verify temp object", Err: err}
	}
	if !exists {
		ferr := &FinalizationError{Bucket: bucket, Key: pair.DestinationKey, TempKey: tempKey}
		e.log.Error().
			Str("bucket", bucket).
			Str("temp_key", tempKey).
			Msg("upload failed: temporary object not found after upload")
		return ferr
	}

	if err := e.store.CopyObject(ctx, bucket, tempKey, pair.DestinationKey); err != nil {
		return &TransferError{Source: pair.Source, Bucket: bucket, Key: pair.DestinationKey, Op: "promote temp object", Err: err}
	}

	// Temp cleanup after promotion is best effort; the destination object
	// is already in place.
	if err := e.store.DeleteObject(ctx, bucket, tempKey); err != nil {
		e.log.Warn().
			Str("bucket", bucket).
			Str("temp_key", tempKey).
			Err(err).
			Msg("failed to delete temporary object after promotion")
	}
	return nil
}
