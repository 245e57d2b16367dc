package indexer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// defaultChunkSize is the target chunk length in characters.
	defaultChunkSize = 1000

	// defaultMaxTokens caps a chunk so it survives embedding-side
	// truncation intact.
	defaultMaxTokens = 500

	// chunkEncoding is the tokenizer used for token counting.
	chunkEncoding = "cl100k_base"
)

// Chunker splits document text into sentence-aligned chunks sized for
// the embedding model.
type Chunker struct {
	chunkSize int
	maxTokens int
	encoding  *tiktoken.Tiktoken
}

// NewChunker creates a chunker. Zero values select the defaults.
func NewChunker(chunkSize, maxTokens int) (*Chunker, error) {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	encoding, err := tiktoken.GetEncoding(chunkEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", chunkEncoding, err)
	}

	return &Chunker{
		chunkSize: chunkSize,
		maxTokens: maxTokens,
		encoding:  encoding,
	}, nil
}

// Chunk splits text on sentence boundaries into chunks of roughly the
// configured size. Chunks that would exceed the token cap are split
// again at the token level.
func (c *Chunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	var current []string
	currentSize := 0

	for _, sentence := range strings.Split(text, ". ") {
		if currentSize+len(sentence) > c.chunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, ". ")+".")
			current = []string{sentence}
			currentSize = len(sentence)
		} else {
			current = append(current, sentence)
			currentSize += len(sentence)
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, ". "))
	}

	bounded := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		bounded = append(bounded, c.splitByTokens(chunk)...)
	}
	return bounded
}

// CountTokens returns the token count of a text under the chunker's
// encoding.
func (c *Chunker) CountTokens(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// splitByTokens cuts a chunk into token-cap sized pieces. Most chunks
// fit and pass through unchanged.
func (c *Chunker) splitByTokens(chunk string) []string {
	tokens := c.encoding.Encode(chunk, nil, nil)
	if len(tokens) <= c.maxTokens {
		return []string{chunk}
	}

	var parts []string
	for start := 0; start < len(tokens); start += c.maxTokens {
		end := start + c.maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		part := strings.TrimSpace(c.encoding.Decode(tokens[start:end]))
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
