// Package model holds the records shared by the grouping core, the item
// stores and the serving layers.
package model

import (
	"fmt"
	"time"
)

// GroupIDPrefix is the prefix of every group id emitted by a partition run.
const GroupIDPrefix = "cluster_"

// GroupID returns the id of the group at the given zero-based index.
func GroupID(index int) string {
	return fmt.Sprintf("%s%d", GroupIDPrefix, index)
}

// Item is a vector-bearing entity with a stable identifier.
type Item struct {
	ID     string    `json:"id" msgpack:"id"`
	Text   string    `json:"text" msgpack:"text"`
	Vector []float32 `json:"vector" msgpack:"vector"`
	// GroupID is the last persisted group assignment. Empty means the item
	// has never been grouped.
	GroupID   string            `json:"group_id,omitempty" msgpack:"group_id"`
	Metadata  map[string]string `json:"metadata,omitempty" msgpack:"metadata"`
	CreatedAt time.Time         `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" msgpack:"updated_at"`
}

// HasGroup reports whether the item carries a persisted group assignment.
func (i Item) HasGroup() bool {
	return i.GroupID != ""
}

// Group is one folder produced by a partition run. Groups are recomputed on
// every run; only the per-item GroupID is ever persisted.
type Group struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Centroid         []float32 `json:"centroid"`
	MemberIDs        []string  `json:"member_ids"`
	RepresentativeID string    `json:"representative_id"`
}

// Contains reports whether id is a member of the group.
func (g Group) Contains(id string) bool {
	for _, m := range g.MemberIDs {
		if m == id {
			return true
		}
	}
	return false
}

// Diagnostic stages.
const (
	StageCentroid       = "centroid"
	StageRepresentative = "representative"
	StageNaming         = "naming"
	StagePersist        = "persist"
)

// Diagnostic records a group that was dropped or degraded during a rebuild.
type Diagnostic struct {
	GroupID string `json:"group_id"`
	Stage   string `json:"stage"`
	ItemID  string `json:"item_id,omitempty"`
	Message string `json:"message"`
}
