// Package vector provides the numeric primitives of the grouping core and
// the embedders that turn item text into vectors.
package vector

import (
	"context"
	"errors"
)

const (
	// DefaultEmbeddingDimensions is the vector size used when none is configured.
	DefaultEmbeddingDimensions = 384

	// DefaultBatchSize defines how many texts are sent to a remote embedder per call.
	DefaultBatchSize = 64
)

// ErrBlankText is returned when asked to embed an empty or whitespace-only text.
var ErrBlankText = errors.New("text is blank")

// Embedder defines the interface for creating vector embeddings from text.
type Embedder interface {
	// CreateEmbedding converts text into a vector representation.
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)

	// CreateEmbeddings converts a batch of texts, preserving order.
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the length of the vectors this embedder returns.
	Dimensions() int

	// Initialize sets up the embedder with any required configuration.
	Initialize() error
}
