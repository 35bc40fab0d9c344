package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveNoWildcard(t *testing.T) {
	src := newFakeSource()
	r := NewResolver(src)

	t.Run("explicit destination", func(t *testing.T) {
		pairs, err := r.Resolve(context.Background(), "/home/user/data.csv", "archive/renamed.csv")
		require.NoError(t, err)
		require.Len(t, pairs, 1)
		assert.Equal(t, "/home/user/data.csv", pairs[0].Source)
		assert.Equal(t, "archive/renamed.csv", pairs[0].DestinationKey)
	})

	t.Run("empty destination falls back to base name", func(t *testing.T) {
		pairs, err := r.Resolve(context.Background(), "/home/user/data.csv", "")
		require.NoError(t, err)
		require.Len(t, pairs, 1)
		assert.Equal(t, "data.csv", pairs[0].DestinationKey)
	})

	t.Run("no remote calls issued", func(t *testing.T) {
		assert.Zero(t, src.listCalls)
	})
}

func TestResolveWildcard(t *testing.T) {
	src := newFakeSource()
	src.addFile("/home/user/data.csv", []byte("a"))
	src.addFile("/home/user/reports/jan.csv", []byte("b"))
	src.addFile("/home/user/readme.txt", []byte("c"))

	r := NewResolver(src)

	pairs, err := r.Resolve(context.Background(), "/home/user/*.csv", "archive")
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	// Base directory is swapped for the destination prefix, the rest of the
	// matched path is preserved.
	assert.Equal(t, "/home/user/data.csv", pairs[0].Source)
	assert.Equal(t, "archive/data.csv", pairs[0].DestinationKey)
	assert.Equal(t, "/home/user/reports/jan.csv", pairs[1].Source)
	assert.Equal(t, "archive/reports/jan.csv", pairs[1].DestinationKey)

	assert.Equal(t, 1, src.listCalls)
}

func TestResolveWildcardEmptyDestination(t *testing.T) {
	src := newFakeSource()
	src.addFile("/home/user/data.csv", []byte("a"))

	pairs, err := NewResolver(src).Resolve(context.Background(), "/home/user/*.csv", "")
	require.NoError(t, err)
	require.Len(t, pairs, 1)

	// Keys are bucket-relative, never starting with "/".
	assert.Equal(t, "data.csv", pairs[0].DestinationKey)
}

func TestResolveWildcardMidSegment(t *testing.T) {
	src := newFakeSource()
	src.addFile("/exports/batch_01.csv", []byte("a"))
	src.addFile("/exports/batch_02.csv", []byte("b"))
	src.addFile("/exports/other_01.csv", []byte("c"))

	pairs, err := NewResolver(src).Resolve(context.Background(), "/exports/batch_*.csv", "out")
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "out/batch_01.csv", pairs[0].DestinationKey)
	assert.Equal(t, "out/batch_02.csv", pairs[1].DestinationKey)
}

func TestResolveWildcardNoMatches(t *testing.T) {
	src := newFakeSource()
	src.addFile("/home/user/readme.txt", []byte("a"))

	pairs, err := NewResolver(src).Resolve(context.Background(), "/home/user/*.csv", "archive")
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestResolveMultipleWildcardsFailsBeforeListing(t *testing.T) {
	src := newFakeSource()
	src.addFile("/home/user/data.csv", []byte("a"))

	_, err := NewResolver(src).Resolve(context.Background(), "/home/*/*.csv", "archive")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "source_path", verr.Param)
	assert.Contains(t, verr.Reason, "found 2")
	assert.Zero(t, src.listCalls, "no remote call may be issued for an invalid path")
}

func TestDirOfAndBaseName(t *testing.T) {
	assert.Equal(t, "/home/user", dirOf("/home/user/"))
	assert.Equal(t, "/home/user", dirOf("/home/user/data"))
	assert.Equal(t, "", dirOf("data"))
	assert.Equal(t, "", dirOf(""))

	assert.Equal(t, "data.csv", baseName("/home/user/data.csv"))
	assert.Equal(t, "data.csv", baseName("data.csv"))
	assert.Equal(t, "", baseName("/home/user/"))
}
