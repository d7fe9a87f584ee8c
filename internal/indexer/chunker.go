// Package indexer turns tenant knowledge bases into immutable, searchable indexes and
// keeps the live index of each tenant behind an atomically swapped reference.
package indexer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/karte/internal/knowledge"
	"github.com/hyperjump/karte/internal/models"
)

// DefaultChunkSize is the target chunk length in words.
const DefaultChunkSize = 250

// Chunker splits sections into word windows of at most chunkSize words. A window is cut
// only at whitespace and, when a sentence ends in its second half, right after that sentence.
type Chunker struct {
	chunkSize int
}

// NewChunker creates a chunker with the given window size in words.
func NewChunker(chunkSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Chunker{chunkSize: chunkSize}
}

// Split returns the windows of text. Text that fits in one window is returned whole.
func (c *Chunker) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var out []string
	for start := 0; start < len(words); {
		end := start + c.chunkSize
		if end >= len(words) {
			end = len(words)
		} else {
			half := start + c.chunkSize/2
			for i := end; i > half; i-- {
				if endsSentence(words[i-1]) {
					end = i
					break
				}
			}
		}
		out = append(out, strings.Join(words[start:end], " "))
		start = end
	}
	return out
}

// Chunk splits every section of src into chunks. Positions run across sections, and IDs
// derive from tenant, path and position, so the same source always yields the same chunks.
func (c *Chunker) Chunk(tenant string, src knowledge.Source) []*models.Chunk {
	var chunks []*models.Chunk
	pos := 0
	for _, section := range src.Sections {
		for _, text := range c.Split(Preprocess(section)) {
			chunks = append(chunks, &models.Chunk{
				ID:       ChunkID(tenant, src.Path, pos),
				Tenant:   tenant,
				Category: src.Category,
				Disease:  src.Disease,
				Source:   src.Path,
				Position: pos,
				Content:  text,
			})
			pos++
		}
	}
	return chunks
}

// ChunkID is the stable identifier of the chunk at pos in a tenant's source file.
func ChunkID(tenant, path string, pos int) string {
	return fmt.Sprintf("%s/%s#%d", tenant, path, pos)
}

func endsSentence(word string) bool {
	w := strings.TrimRight(word, `"')]”’`)
	return strings.HasSuffix(w, ".") || strings.HasSuffix(w, "!") || strings.HasSuffix(w, "?")
}
