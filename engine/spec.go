package engine

import (
	"fmt"
	"strings"
)

// Wildcard is the single placeholder character allowed in a source path.
// At most one may appear; it matches any sequence of characters.
const Wildcard = "*"

// DefaultMimeType is applied when a spec does not name one.
const DefaultMimeType = "application/octet-stream"

// StreamMode selects the transfer strategy for an invocation.
type StreamMode string

const (
	// ModeBuffered downloads each file to local temporary storage and then
	// uploads it. Requires local disk space for the largest file.
	ModeBuffered StreamMode = "buffered"

	// ModeStreamGetFo pipes bytes from a source read stream straight into a
	// write stream on the final destination object. Fast with prefetch, but
	// a mid-stream failure can leave a partial destination object.
	ModeStreamGetFo StreamMode = "getfo"

	// ModeStreamUploadFromFile streams into a temporary object and promotes
	// it to the final key only once the temporary object is confirmed to
	// exist, so no partial final object is ever visible.
	ModeStreamUploadFromFile StreamMode = "upload_from_file"
)

// ParseStreamMode maps the invocation-level use_stream/stream_method pair to
// a StreamMode. An unrecognized method fails before any I/O is attempted.
func ParseStreamMode(useStream bool, method string) (StreamMode, error) {
	if !useStream {
		return ModeBuffered, nil
	}
	switch method {
	case "", string(ModeStreamUploadFromFile):
		return ModeStreamUploadFromFile, nil
	case string(ModeStreamGetFo):
		return ModeStreamGetFo, nil
	default:
		return "", &ValidationError{
			Param:  "stream_method",
			Reason: fmt.Sprintf("unrecognized method %q", method),
		}
	}
}

// TransferSpec describes one invocation's worth of transfer work. It is
// immutable for the duration of a Run.
type TransferSpec struct {
	// SourcePath is the remote path to transfer. May contain at most one
	// wildcard, in which case every matching file is transferred.
	SourcePath string

	// DestinationBucket is the bucket to upload to. Normalized with
	// NormalizeBucketName before use.
	DestinationBucket string

	// DestinationPath is the object key (or key prefix for wildcard
	// sources). Empty means "use the source file's base name". Normalized
	// with NormalizeDestinationPath before use.
	DestinationPath string

	// MimeType of the uploaded objects. Defaults to DefaultMimeType.
	MimeType string

	// Gzip compresses objects in flight and marks them gzip-encoded.
	Gzip bool

	// MoveObject deletes each source file after its successful transfer.
	MoveObject bool

	// Mode selects the transfer strategy. Defaults to ModeBuffered.
	Mode StreamMode

	// Prefetch enables read-ahead pipelining on retrieval.
	Prefetch bool

	// MaxConcurrentPrefetchRequests bounds the pipelining of ModeStreamGetFo.
	// Zero means unbounded.
	MaxConcurrentPrefetchRequests int

	// Concurrency is the number of pairs transferred at once. Zero or one
	// keeps the strictly sequential contract.
	Concurrency int
}

// Normalized returns a copy of the spec with bucket and destination path
// normalization and defaults applied.
func (s TransferSpec) Normalized() TransferSpec {
	s.DestinationBucket = NormalizeBucketName(s.DestinationBucket)
	s.DestinationPath = NormalizeDestinationPath(s.DestinationPath)
	if s.MimeType == "" {
		s.MimeType = DefaultMimeType
	}
	if s.Mode == "" {
		s.Mode = ModeBuffered
	}
	return s
}

// Validate rejects specs that cannot be executed. It performs no I/O.
func (s TransferSpec) Validate() error {
	if s.SourcePath == "" {
		return &ValidationError{Param: "source_path", Reason: "must not be empty"}
	}
	if s.DestinationBucket == "" {
		return &ValidationError{Param: "destination_bucket", Reason: "must not be empty"}
	}
	if n := strings.Count(s.SourcePath, Wildcard); n > 1 {
		return &ValidationError{
			Param:  "source_path",
			Reason: fmt.Sprintf("only one wildcard %q is allowed, found %d in %q", Wildcard, n, s.SourcePath),
		}
	}
	switch s.Mode {
	case ModeBuffered, ModeStreamGetFo, ModeStreamUploadFromFile:
	default:
		return &ValidationError{
			Param:  "stream_method",
			Reason: fmt.Sprintf("unrecognized method %q", s.Mode),
		}
	}
	if s.MaxConcurrentPrefetchRequests < 0 {
		return &ValidationError{
			Param:  "max_concurrent_prefetch_requests",
			Reason: "must not be negative",
		}
	}
	return nil
}

// NormalizeBucketName strips a leading scheme prefix such as "gs://" or
// "s3://" and any surrounding slashes from a bucket name.
func NormalizeBucketName(name string) string {
	if i := strings.Index(name, "://"); i >= 0 {
		name = name[i+3:]
	}
	return strings.Trim(name, "/")
}

// NormalizeDestinationPath strips one leading slash from a destination path.
// Object keys are bucket-relative and never start with "/".
func NormalizeDestinationPath(path string) string {
	return strings.TrimPrefix(path, "/")
}
