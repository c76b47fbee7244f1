// Package util holds small helpers shared by the serving layers.
package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// NewItemID returns a random item id.
func NewItemID() string {
	return uuid.New().String()
}

// SeedItemID returns the stable id of the i-th built-in sample item.
func SeedItemID(i int) string {
	return fmt.Sprintf("mock_doc_%d", i)
}

// ContentHash returns a short, stable fingerprint of text. It is used to
// spot duplicate submissions within one ingest batch.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}
