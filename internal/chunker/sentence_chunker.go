package chunker

import (
	"docassist/internal/domain"
	"docassist/internal/textutil"
)

// SentenceChunker groups whole sentences into windows that share
// overlap sentences with the previous window. A window also closes once it
// would grow past maxChars; a single longer sentence still forms its own chunk.
type SentenceChunker struct {
	perChunk int
	overlap  int
	maxChars int
}

func NewSentenceChunker(perChunk, overlap, maxChars int) *SentenceChunker {
	if perChunk <= 0 {
		perChunk = 5
	}
	overlap = max(0, min(overlap, perChunk-1))
	return &SentenceChunker{perChunk: perChunk, overlap: overlap, maxChars: maxChars}
}

func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	spans := textutil.SentenceSpans(document.Content)
	var chunks []domain.Chunk
	for start := 0; start < len(spans); {
		end := c.windowEnd(spans, start)
		from, to := spans[start][0], spans[end-1][1]
		chunks = append(chunks, newChunk(document, len(chunks), from, document.Content[from:to]))
		if end == len(spans) {
			break
		}
		start = max(start+1, end-c.overlap)
	}
	return chunks, nil
}

func (c *SentenceChunker) windowEnd(spans [][2]int, start int) int {
	end := start + 1
	for end < len(spans) && end-start < c.perChunk {
		if c.maxChars > 0 && spans[end][1]-spans[start][0] > c.maxChars {
			break
		}
		end++
	}
	return end
}
