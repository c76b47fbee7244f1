// Package server exposes the latentfs organizer over MCP (stdio) and a JSON
// HTTP API.
package server

import (
	"context"

	"github.com/localrivet/latentfs/internal/gate"
	"github.com/localrivet/latentfs/internal/model"
	"github.com/localrivet/latentfs/internal/organizer"
	"github.com/localrivet/latentfs/internal/telemetry"
)

// ToolServer is a serving surface that can be initialized, started and
// stopped.
type ToolServer interface {
	// Initialize registers handlers and checks dependencies.
	Initialize() error

	// Start serves until the transport closes.
	Start() error

	// Stop gracefully shuts down the server.
	Stop() error
}

// Organizer is the subset of *organizer.Organizer the servers call.
type Organizer interface {
	Ingest(ctx context.Context, texts []string, metadata map[string]string) ([]string, error)
	Items(ctx context.Context) ([]model.Item, error)
	Groups(ctx context.Context) (*organizer.RebuildResult, error)
	Reassign(ctx context.Context, itemID, targetGroupID string) (*organizer.ReassignResult, error)
	DeleteItem(ctx context.Context, id string) error
	ClearItems(ctx context.Context) (int, error)
	CountItems(ctx context.Context) (int, error)
	Gate() *gate.Gate
	Metrics() *telemetry.MetricsCollector
}

var _ Organizer = (*organizer.Organizer)(nil)
