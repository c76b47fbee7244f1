package providers

import (
	"context"
	"slices"
	"sync"
)

// Recorder is an in-process LLMProvider that answers every call with a fixed
// label or error and keeps the texts it was sent. The namer tests use it in
// place of a real backend.
type Recorder struct {
	ProviderName string
	Output       string
	Err          error

	mu    sync.Mutex
	calls [][]string
}

func (r *Recorder) Name() string { return r.ProviderName }

func (r *Recorder) Label(_ context.Context, texts []string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, slices.Clone(texts))
	r.mu.Unlock()
	return r.Output, r.Err
}

// Calls returns the texts of every Label call so far, oldest first.
func (r *Recorder) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}
