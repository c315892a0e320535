package postgres

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesEmptyPendingQueue(t *testing.T) {
	b := New(Config{DSN: "unused"}, zerolog.Nop())
	require.NotNil(t, b)
	assert.True(t, b.pending.Empty())
}

func TestWriteSnapshotEnqueuesWithoutTouchingDB(t *testing.T) {
	b := New(Config{DSN: "unused"}, zerolog.Nop())
	require.NoError(t, b.WriteSnapshot([]byte("a")))
	require.NoError(t, b.WriteSnapshot([]byte("b")))
	assert.Equal(t, 2, b.pending.Len())
}

func TestFlushKeepsOnlyLatestQueuedSnapshot(t *testing.T) {
	b := New(Config{DSN: "unused"}, zerolog.Nop())
	b.pending.Push([]byte("stale"), []byte("latest"))

	items := b.pending.GetAndEmpty()
	require.Len(t, items, 2)
	assert.Equal(t, []byte("latest"), items[len(items)-1])
	assert.True(t, b.pending.Empty())
}
