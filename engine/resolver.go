package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/franksops/goshuttle/provider"
)

// Resolver expands a source path, possibly containing one wildcard, into the
// concrete list of transfer pairs for an invocation.
type Resolver struct {
	Source provider.SourceFileSystem
}

// NewResolver creates a Resolver listing against the given source filesystem.
func NewResolver(src provider.SourceFileSystem) *Resolver {
	return &Resolver{Source: src}
}

// Resolve produces the ordered PathPair sequence for sourcePath.
//
// Without a wildcard the result is a single pair whose key defaults to the
// source's base name when destinationPath is empty. With one wildcard the
// source tree is listed and every match becomes a pair, with the matched
// path's base directory replaced by destinationPath. Two or more wildcards
// fail before any remote call is issued.
func (r *Resolver) Resolve(ctx context.Context, sourcePath, destinationPath string) ([]PathPair, error) {
	count := strings.Count(sourcePath, Wildcard)
	if count > 1 {
		return nil, &ValidationError{
			Param:  "source_path",
			Reason: fmt.Sprintf("only one wildcard %q is allowed, found %d in %q", Wildcard, count, sourcePath),
		}
	}

	if count == 0 {
		key := destinationPath
		if key == "" {
			key = baseName(sourcePath)
		}
		return []PathPair{{Source: sourcePath, DestinationKey: objectKey(key)}}, nil
	}

	prefix, delimiter, _ := strings.Cut(sourcePath, Wildcard)
	basePath := dirOf(prefix)

	files, err := r.Source.ListTree(ctx, basePath, prefix, delimiter)
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", basePath, err)
	}

	pairs := make([]PathPair, 0, len(files))
	for _, file := range files {
		// Swap the base directory for the destination prefix, keeping the
		// rest of the matched path intact.
		key := strings.Replace(file, basePath, destinationPath, 1)
		pairs = append(pairs, PathPair{Source: file, DestinationKey: objectKey(key)})
	}

	return pairs, nil
}

// dirOf returns the text before the last "/" of p, or "" when p has none.
func dirOf(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

// baseName returns the text after the last "/" of p, or p itself.
func baseName(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return p
	}
	return p[i+1:]
}

// objectKey enforces the PathPair invariant that keys are bucket-relative.
func objectKey(key string) string {
	return strings.TrimPrefix(key, "/")
}
