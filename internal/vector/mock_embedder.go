package vector

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"strings"
	"unicode"
)

// MockEmbedder is a deterministic, offline implementation of the Embedder
// interface. Each token of the text is hashed onto one signed dimension, so
// texts that share vocabulary land close together. That is enough for the
// grouping pipeline to form meaningful folders in tests and demos.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder creates a new MockEmbedder with the specified dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &MockEmbedder{
		dimensions: dimensions,
	}
}

// Initialize sets up the embedder with any required configuration.
func (e *MockEmbedder) Initialize() error {
	return nil
}

// Dimensions reports the configured vector length.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// CreateEmbedding generates a unit-length embedding for the given text.
func (e *MockEmbedder) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrBlankText
	}

	embedding := make([]float32, e.dimensions)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, tok := range tokens {
		hash := md5.Sum([]byte(tok))
		idx := binary.LittleEndian.Uint32(hash[:4]) % uint32(e.dimensions)
		if hash[4]&1 == 0 {
			embedding[idx]++
		} else {
			embedding[idx]--
		}
	}

	// Punctuation-only text still deserves a stable, non-zero vector.
	if L2Norm(embedding) == 0 {
		hash := md5.Sum([]byte(text))
		for i := range embedding {
			hashIdx := (i * 4) % len(hash)
			seed := binary.LittleEndian.Uint32(append(hash[hashIdx:], hash[:4]...))
			embedding[i] = float32(seed%1000)/500.0 - 1.0
		}
	}

	return Normalize(embedding), nil
}

// CreateEmbeddings embeds each text in order.
func (e *MockEmbedder) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.CreateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
