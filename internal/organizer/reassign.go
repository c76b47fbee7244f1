package organizer

import (
	"context"
	"errors"
	"time"

	"github.com/localrivet/latentfs/internal/errortypes"
	"github.com/localrivet/latentfs/internal/model"
	"github.com/localrivet/latentfs/internal/partition"
	"github.com/localrivet/latentfs/internal/telemetry"
)

// ReassignResult is the outcome of a manual reassignment.
type ReassignResult struct {
	ItemID     string `json:"item_id"`
	NewGroupID string `json:"new_group_id"`
	// Groups is a fresh rebuild when the gate admitted the request, or the
	// unpersisted pre-nudge view when it did not.
	Groups      []model.Group      `json:"groups"`
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`
	// Stale is set when the rebuild was debounced. NewGroupID is then the
	// item's last persisted group.
	Stale            bool      `json:"stale"`
	SimilarityBefore float64   `json:"similarity_before"`
	SimilarityAfter  float64   `json:"similarity_after"`
	ZeroNorm         bool      `json:"zero_norm,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Reassign nudges an item's vector toward the centroid of targetGroupID,
// persists the new vector, and rebuilds groups unless a rebuild ran within
// the debounce window.
func (o *Organizer) Reassign(ctx context.Context, itemID, targetGroupID string) (*ReassignResult, error) {
	result, err := o.reassign(ctx, itemID, targetGroupID)
	if err != nil {
		o.metrics.IncrementCounter(telemetry.MetricReassignFailures, 1)
		return nil, err
	}
	o.metrics.IncrementCounter(telemetry.MetricReassigns, 1)
	return result, nil
}

func (o *Organizer) reassign(ctx context.Context, itemID, targetGroupID string) (*ReassignResult, error) {
	item, err := o.store.Get(ctx, itemID)
	if err != nil {
		return nil, o.storeError(err, "failed to load item", itemID)
	}

	items, err := o.store.GetAll(ctx)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to load items")
	}
	if len(items) == 0 {
		return nil, errortypes.NotFoundError(errortypes.ErrNoItems, "no items to group")
	}

	p, err := o.partitioner.Partition(items, o.targetK)
	if err != nil {
		return nil, err
	}
	members, ok := p[targetGroupID]
	if !ok {
		return nil, errortypes.NotFoundError(errortypes.ErrTargetGroupNotFound, "target group not found").
			WithField("target_group_id", targetGroupID).
			WithField("available_groups", p.IDs())
	}

	centroid, err := partition.CentroidOf(members)
	if err != nil {
		return nil, err
	}
	nudged, err := o.nudger.Nudge(item.Vector, centroid)
	if err != nil {
		return nil, err
	}
	if nudged.ZeroNorm {
		o.metrics.IncrementCounter(telemetry.MetricZeroNormNudges, 1)
	}
	if err := o.store.SetVector(ctx, itemID, nudged.Vector); err != nil {
		return nil, o.storeError(err, "failed to persist nudged vector", itemID)
	}

	result := &ReassignResult{
		ItemID:           itemID,
		SimilarityBefore: nudged.SimilarityBefore,
		SimilarityAfter:  nudged.SimilarityAfter,
		ZeroNorm:         nudged.ZeroNorm,
	}

	if !o.gate.Admit() {
		o.metrics.IncrementCounter(telemetry.MetricGateDenials, 1)
		o.logger.Info("Rebuild debounced, returning previous view",
			"item_id", itemID,
			"target_group_id", targetGroupID,
			"window", o.gate.Window())

		groups, diags, err := o.summarize(ctx, p)
		if err != nil {
			return nil, err
		}
		result.Groups, result.Diagnostics = groups, diags
		result.Stale = true
		result.NewGroupID = item.GroupID
		if !item.HasGroup() {
			result.NewGroupID, _ = p.GroupOf(itemID)
		}
		result.Timestamp = time.Now()
		return result, nil
	}
	o.metrics.IncrementCounter(telemetry.MetricGateAdmits, 1)

	items, err = o.store.GetAll(ctx)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to reload items")
	}
	rebuilt, err := o.RebuildGroups(ctx, items)
	if err != nil {
		return nil, err
	}

	newGroupID, ok := groupContaining(rebuilt.Groups, itemID)
	if !ok {
		return nil, errortypes.InternalError(errortypes.ErrLostDuringRebuild, "item missing from rebuilt groups").
			WithField("item_id", itemID).
			WithField("partition_group_id", rebuilt.Assignments[itemID]).
			WithField("diagnostics", rebuilt.Diagnostics).
			WithField("items", len(items))
	}

	result.NewGroupID = newGroupID
	result.Groups = rebuilt.Groups
	result.Diagnostics = rebuilt.Diagnostics
	result.Timestamp = rebuilt.Timestamp

	o.logger.Info("Reassigned item",
		"item_id", itemID,
		"target_group_id", targetGroupID,
		"new_group_id", newGroupID,
		"similarity_before", nudged.SimilarityBefore,
		"similarity_after", nudged.SimilarityAfter)
	return result, nil
}

func groupContaining(groups []model.Group, itemID string) (string, bool) {
	for _, g := range groups {
		if g.Contains(itemID) {
			return g.ID, true
		}
	}
	return "", false
}

// IsLost reports whether err means an item vanished during a rebuild.
func IsLost(err error) bool {
	return errors.Is(err, errortypes.ErrLostDuringRebuild)
}
