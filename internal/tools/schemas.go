// Package tools defines the MCP tool names and the request and response
// schemas of the latentfs service.
package tools

import (
	"time"

	"github.com/localrivet/latentfs/internal/model"
	"github.com/localrivet/latentfs/internal/namer"
	"github.com/localrivet/latentfs/internal/telemetry"
)

const (
	// ToolIngestItems is the name of the ingest_items MCP tool
	ToolIngestItems = "ingest_items"

	// ToolListItems is the name of the list_items MCP tool
	ToolListItems = "list_items"

	// ToolRebuildGroups is the name of the rebuild_groups MCP tool
	ToolRebuildGroups = "rebuild_groups"

	// ToolReassignItem is the name of the reassign_item MCP tool
	ToolReassignItem = "reassign_item"

	// ToolDeleteItem is the name of the delete_item MCP tool
	ToolDeleteItem = "delete_item"

	// ToolClearItems is the name of the clear_items MCP tool
	ToolClearItems = "clear_items"

	// ToolHealth is the name of the health MCP tool
	ToolHealth = "health"

	// ClearConfirmation must be sent with clear_items to wipe the store
	ClearConfirmation = "confirm"

	// Response status values
	StatusSuccess = "success"
	StatusError   = "error"
)

// IngestItemsRequest defines the input schema for ingest_items tool
type IngestItemsRequest struct {
	// Texts are the documents to embed and store. None may be blank.
	Texts []string `json:"texts"`

	// Metadata is attached to every ingested item
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IngestItemsResponse defines the output schema for ingest_items tool
type IngestItemsResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// IDs are the new item ids in input order
	IDs []string `json:"ids,omitempty"`

	Count int `json:"count"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`

	// Code classifies the error, e.g. "validation" or "not_found"
	Code string `json:"code,omitempty"`
}

// ListItemsRequest defines the input schema for list_items tool
type ListItemsRequest struct {
	// IncludeVectors adds each item's vector to the response
	IncludeVectors bool `json:"include_vectors,omitempty"`
}

// ItemView is the wire form of a stored item
type ItemView struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	GroupID   string            `json:"group_id,omitempty"`
	Vector    []float32         `json:"vector,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewItemView converts an item, dropping its vector unless withVector.
func NewItemView(it model.Item, withVector bool) ItemView {
	v := ItemView{
		ID:        it.ID,
		Text:      it.Text,
		GroupID:   it.GroupID,
		Metadata:  it.Metadata,
		CreatedAt: it.CreatedAt,
	}
	if withVector {
		v.Vector = it.Vector
	}
	return v
}

// ListItemsResponse defines the output schema for list_items tool
type ListItemsResponse struct {
	Status string     `json:"status"`
	Items  []ItemView `json:"items"`
	Count  int        `json:"count"`
	Error  string     `json:"error,omitempty"`
	Code   string     `json:"code,omitempty"`
}

// RebuildGroupsRequest defines the input schema for rebuild_groups tool
type RebuildGroupsRequest struct{}

// RebuildGroupsResponse defines the output schema for rebuild_groups tool
type RebuildGroupsResponse struct {
	Status string `json:"status"`

	// Groups are the labeled folders in partition order
	Groups []model.Group `json:"groups"`

	// Diagnostics lists groups dropped or degraded during the rebuild
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
	Code      string    `json:"code,omitempty"`
}

// ZeroNormWarning is reported when a reassigned item's nudged vector is all
// zeros. Such an item has no direction and groups arbitrarily until it is
// re-embedded or nudged again.
const ZeroNormWarning = "nudged vector has zero norm; the item's grouping is arbitrary until it is reassigned again"

// ReassignItemRequest defines the input schema for reassign_item tool
type ReassignItemRequest struct {
	// ItemID is the item to move
	ItemID string `json:"item_id"`

	// TargetGroupID is the group the item should move toward
	TargetGroupID string `json:"target_group_id"`
}

// ReassignItemResponse defines the output schema for reassign_item tool
type ReassignItemResponse struct {
	Status     string `json:"status"`
	NewGroupID string `json:"new_group_id,omitempty"`

	// Stale is true when the rebuild was skipped because another one ran
	// within the debounce window
	Stale bool `json:"stale"`

	Groups           []model.Group      `json:"groups,omitempty"`
	Diagnostics      []model.Diagnostic `json:"diagnostics,omitempty"`
	SimilarityBefore float64            `json:"similarity_before"`
	SimilarityAfter  float64            `json:"similarity_after"`

	// ZeroNorm is set when the nudge cancelled the item's vector out. Warning
	// then carries ZeroNormWarning.
	ZeroNorm bool   `json:"zero_norm"`
	Warning  string `json:"warning,omitempty"`

	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// DeleteItemRequest defines the input schema for delete_item tool
type DeleteItemRequest struct {
	// ID is the unique identifier of the item to delete
	ID string `json:"id"`
}

// DeleteItemResponse defines the output schema for delete_item tool
type DeleteItemResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

// ClearItemsRequest defines the input schema for clear_items tool
type ClearItemsRequest struct {
	// Confirmation must be ClearConfirmation to prevent accidental clearing
	Confirmation string `json:"confirmation"`
}

// ClearItemsResponse defines the output schema for clear_items tool
type ClearItemsResponse struct {
	Status       string `json:"status"`
	DeletedCount int    `json:"deleted_count"`
	Error        string `json:"error,omitempty"`
	Code         string `json:"code,omitempty"`
}

// HealthRequest defines the input schema for health tool
type HealthRequest struct{}

// HealthResponse reports store reachability, the rebuild gate and the
// namer's condition.
type HealthResponse struct {
	Status      string              `json:"status"`
	ItemCount   int                 `json:"item_count"`
	LastRebuild *time.Time          `json:"last_rebuild,omitempty"`
	GateAdmits  uint64              `json:"gate_admits"`
	GateDenials uint64              `json:"gate_denials"`
	Namer       *namer.HealthReport `json:"namer,omitempty"`
	Metrics     *telemetry.Snapshot `json:"metrics,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
	Error       string              `json:"error,omitempty"`
	Code        string              `json:"code,omitempty"`
}
