package engine

import "fmt"

// ValidationError reports a TransferSpec that cannot be executed. It is
// always raised before any remote I/O is attempted.
type ValidationError struct {
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
}

// TransferError reports a failed retrieval, upload or stream copy for one
// PathPair. It aborts the remaining pairs of the invocation.
type TransferError struct {
	Source string
	Bucket string
	Key    string
	Op     string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s -> %s/%s: %s: %v", e.Source, e.Bucket, e.Key, e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// FinalizationError reports that the temporary object written by the
// upload-from-file stream strategy was absent after the upload call
// returned. No destination object is produced for the pair.
type FinalizationError struct {
	Bucket  string
	Key     string
	TempKey string
}

func (e *FinalizationError) Error() string {
	return fmt.Sprintf("finalize %s/%s: temporary object %s not found after upload", e.Bucket, e.Key, e.TempKey)
}
