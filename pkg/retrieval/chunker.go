package retrieval

import "strings"

// DefaultChunkSize is the chunk length in runes. Chunks do not overlap;
// the embedding model tolerates sentences cut mid-way better than the
// index tolerates duplicated text inflating similarity scores.
const DefaultChunkSize = 2000

// SplitChunks cuts text into consecutive chunks of at most size runes.
// Whitespace-only chunks are dropped.
func SplitChunks(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := string(runes[start:end])
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
