package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/retrieval"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/session"
)

type countingEmbedder struct {
	calls int
}

func (e *countingEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	e.calls++
	return []float32{1, 0, 0}, nil
}

func (e *countingEmbedder) Dimension() int { return 3 }

type staticSource struct{}

func (staticSource) Documents() ([]retrieval.Document, error) {
	return []retrieval.Document{{Name: "notes.md", Text: "hello"}}, nil
}

func newTestIndex(t *testing.T) (*retrieval.Index, *countingEmbedder) {
	t.Helper()

	embedder := &countingEmbedder{}
	idx, err := retrieval.NewIndex(retrieval.IndexConfig{
		Embedder: embedder,
		Source:   staticSource{},
	})
	require.NoError(t, err)

	return idx, embedder
}

func TestScheduler(t *testing.T) {
	t.Run("should reject non-positive intervals", func(t *testing.T) {
		_, err := New(Config{
			Cleaner:   session.NewCleaner(session.NewStore(), time.Minute),
			Intervals: Intervals{SessionSweep: -1, LeasePrune: time.Minute, IndexResync: time.Minute},
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "interval")
	})

	t.Run("should start and stop with no components configured", func(t *testing.T) {
		s, err := New(Config{})
		require.NoError(t, err)

		s.Start()
		s.Stop()
	})

	t.Run("should skip index resync when the index is clean", func(t *testing.T) {
		idx, embedder := newTestIndex(t)

		s, err := New(Config{Index: idx})
		require.NoError(t, err)

		s.resyncIndex()
		assert.Equal(t, 0, embedder.calls, "clean index must not trigger a rebuild")
	})

	t.Run("should rebuild the index once per dirty mark", func(t *testing.T) {
		idx, embedder := newTestIndex(t)
		idx.MarkDirty()

		s, err := New(Config{Index: idx})
		require.NoError(t, err)

		s.resyncIndex()
		assert.Equal(t, 1, embedder.calls)

		s.resyncIndex()
		assert.Equal(t, 1, embedder.calls, "dirty flag is consumed by the rebuild")
	})
}
