package indexer

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/andresdiegolanda/ai-context-orchestrator/internal/vectorindex"
)

// DefaultMaxTokens is the chunk token budget used when none is configured.
const DefaultMaxTokens = 512

var paragraphSplit = regexp.MustCompile(`\n{2,}`)

// Chunker splits raw text into bounded-size chunks on paragraph boundaries.
//
// Paragraphs are runs of text separated by blank lines. Trimmed paragraphs
// accumulate into a buffer until appending the next one would push the
// estimated token count (characters / 4) over the budget, at which point the
// buffer closes as one chunk. A single paragraph that alone exceeds the
// budget is never split mid-paragraph; it becomes one oversized chunk. That
// is deliberate: the budget is a close-before-appending rule, and keeping
// paragraphs intact matters more than a hard ceiling.
type Chunker struct {
	maxTokens int
}

// NewChunker creates a chunker with the given token budget.
func NewChunker(maxTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Chunker{maxTokens: maxTokens}
}

// ChunkContent splits content into chunks carrying the source file path and
// its fingerprint. Chunk indices are sequential starting at 0; chunk IDs are
// freshly generated UUIDs, independent of content. Empty or all-whitespace
// input yields no chunks. Returned chunks have no vectors yet.
func (c *Chunker) ChunkContent(content, sourceFile, fingerprint string) []vectorindex.Chunk {
	var chunks []vectorindex.Chunk
	var buf strings.Builder
	chunkIndex := 0

	for _, paragraph := range paragraphSplit.Split(content, -1) {
		trimmed := strings.TrimSpace(paragraph)
		if trimmed == "" {
			continue
		}

		// Rough token estimate: ~4 characters per token.
		estimatedTokens := (buf.Len() + len(trimmed)) / 4

		if estimatedTokens > c.maxTokens && buf.Len() > 0 {
			chunks = append(chunks, c.newChunk(buf.String(), sourceFile, fingerprint, chunkIndex))
			chunkIndex++
			buf.Reset()
		}

		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(trimmed)
	}

	if buf.Len() > 0 {
		chunks = append(chunks, c.newChunk(buf.String(), sourceFile, fingerprint, chunkIndex))
	}

	return chunks
}

func (c *Chunker) newChunk(text, sourceFile, fingerprint string, index int) vectorindex.Chunk {
	return vectorindex.Chunk{
		ID:          uuid.New().String(),
		Text:        strings.TrimSpace(text),
		SourceFile:  sourceFile,
		ChunkIndex:  index,
		Fingerprint: fingerprint,
	}
}
