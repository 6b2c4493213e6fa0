package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Arash-Rostami/AI-Agent-sub000/internal/metrics"
)

const (
	// DefaultTopK is how many chunks a search returns when the caller does
	// not say otherwise.
	DefaultTopK = 3

	// ScoreThreshold is the exclusive lower bound on cosine similarity.
	// Chunks scoring at or below it are noise and never surface.
	ScoreThreshold = 0.3
)

// Chunk is one embedded slice of a source document.
type Chunk struct {
	Document  string
	Ordinal   int
	Text      string
	Embedding []float32

	magnitude float64
}

// Hit is one search result.
type Hit struct {
	Chunk Chunk
	Score float64
}

// Index holds embedded chunks in memory and answers cosine similarity
// queries. Rebuilds swap the chunk set wholesale; searches against the old
// set keep working until the swap.
type Index struct {
	embedder EmbeddingProvider
	source   DocumentSource
	store    *ChunkStore // optional
	chunkLen int

	mu     sync.RWMutex
	chunks []Chunk

	dirtyMu sync.Mutex
	dirty   bool
}

// IndexConfig holds index construction parameters.
type IndexConfig struct {
	Embedder  EmbeddingProvider
	Source    DocumentSource
	Store     *ChunkStore // nil disables persistence
	ChunkSize int
}

// NewIndex creates an empty index.
func NewIndex(cfg IndexConfig) (*Index, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}

	return &Index{
		embedder: cfg.Embedder,
		source:   cfg.Source,
		store:    cfg.Store,
		chunkLen: cfg.ChunkSize,
	}, nil
}

// Len reports the number of indexed chunks.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// MarkDirty flags the index for resync. The watcher calls this on file
// changes; the scheduler picks it up.
func (idx *Index) MarkDirty() {
	idx.dirtyMu.Lock()
	idx.dirty = true
	idx.dirtyMu.Unlock()
}

// ConsumeDirty reports and clears the dirty flag.
func (idx *Index) ConsumeDirty() bool {
	idx.dirtyMu.Lock()
	defer idx.dirtyMu.Unlock()
	was := idx.dirty
	idx.dirty = false
	return was
}

// Stats summarizes one rebuild. TotalChunks counts every chunk the source
// produced; SkippedChunks is the subset whose embedding failed.
type Stats struct {
	FilesProcessed int
	TotalChunks    int
	SkippedChunks  int
}

// Rebuild re-reads every source document, embeds its chunks, and swaps the
// in-memory set wholesale. Chunks whose embedding fails are skipped and
// counted, not fatal; the rebuild fails only when the source itself is
// unreadable.
func (idx *Index) Rebuild(ctx context.Context) (Stats, error) {
	if idx.source == nil {
		return Stats{}, fmt.Errorf("index has no document source")
	}

	docs, err := idx.source.Documents()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load documents: %w", err)
	}

	var fresh []Chunk
	total := 0
	skipped := 0

	for _, doc := range docs {
		for ordinal, text := range SplitChunks(doc.Text, idx.chunkLen) {
			total++
			embedding, err := idx.embedder.Embed(ctx, text)
			if err != nil {
				skipped++
				log.Warn().
					Err(err).
					Str("document", doc.Name).
					Int("ordinal", ordinal).
					Msg("Failed to embed chunk, skipping")
				continue
			}

			fresh = append(fresh, Chunk{
				Document:  doc.Name,
				Ordinal:   ordinal,
				Text:      text,
				Embedding: embedding,
				magnitude: magnitude(embedding),
			})
		}
	}

	if idx.store != nil {
		if err := idx.store.ReplaceAll(ctx, fresh); err != nil {
			log.Error().Err(err).Msg("Failed to persist chunks, index stays in memory only")
		}
	}

	idx.mu.Lock()
	idx.chunks = fresh
	idx.mu.Unlock()
	metrics.SetRetrievalChunks(len(fresh))

	log.Info().
		Int("documents", len(docs)).
		Int("chunks", total).
		Int("skipped", skipped).
		Msg("Retrieval index rebuilt")
	return Stats{FilesProcessed: len(docs), TotalChunks: total, SkippedChunks: skipped}, nil
}

// WarmUp loads persisted chunks into memory without touching the embedder.
// A missing or empty store leaves the index empty.
func (idx *Index) WarmUp(ctx context.Context) error {
	if idx.store == nil {
		return nil
	}

	chunks, err := idx.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load persisted chunks: %w", err)
	}
	for i := range chunks {
		chunks[i].magnitude = magnitude(chunks[i].Embedding)
	}

	idx.mu.Lock()
	idx.chunks = chunks
	idx.mu.Unlock()
	metrics.SetRetrievalChunks(len(chunks))

	log.Info().Int("chunks", len(chunks)).Msg("Retrieval index warmed from store")
	return nil
}

// Search embeds the query and returns the topK most similar chunks scoring
// strictly above the threshold. An empty query or empty index returns no
// hits and no error.
func (idx *Index) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	if query == "" || idx.Len() == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	start := time.Now()
	defer func() {
		metrics.RecordRetrievalSearch(time.Since(start))
	}()

	queryVec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	queryMag := magnitude(queryVec)
	if queryMag == 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var hits []Hit
	for _, chunk := range idx.chunks {
		// Vectors from a different embedding model cannot be compared.
		if len(chunk.Embedding) != len(queryVec) || chunk.magnitude == 0 {
			continue
		}

		score := dot(queryVec, chunk.Embedding) / (queryMag * chunk.magnitude)
		if score > ScoreThreshold {
			hits = append(hits, Hit{Chunk: chunk, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func magnitude(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}
