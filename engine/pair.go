package engine

// PathPair is one resolved transfer: an absolute path on the source
// filesystem and the object key it lands under in the destination bucket.
type PathPair struct {
	// Source is the absolute file path to read from the source filesystem.
	Source string

	// DestinationKey is the object key to write in the destination bucket.
	// Never starts with "/".
	DestinationKey string
}

// JobChannel is a channel used to queue and dispatch PathPairs to workers
// in the worker pool.
type JobChannel chan PathPair
