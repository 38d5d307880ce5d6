package chunker

import (
	"fmt"
	"strconv"

	"docassist/internal/config"
	"docassist/internal/domain"
)

// New builds the chunker selected by cfg.Type.
func New(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "", "recursive":
		return NewRecursiveChunker(cfg.ChunkSize, cfg.ChunkOverlap, cfg.Separators), nil
	case "sentence":
		return NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences, cfg.ChunkSize), nil
	default:
		return nil, fmt.Errorf("%w: unknown chunker type %q", domain.ErrConfiguration, cfg.Type)
	}
}

func newChunk(doc domain.Document, idx, offset int, text string) domain.Chunk {
	return domain.Chunk{
		DocumentID: doc.ID,
		ChunkID:    doc.ID + ":" + strconv.Itoa(idx),
		Source:     doc.Source,
		Text:       text,
		Index:      idx,
		Offset:     offset,
	}
}
