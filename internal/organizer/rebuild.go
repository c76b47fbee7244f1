package organizer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/localrivet/latentfs/internal/errortypes"
	"github.com/localrivet/latentfs/internal/model"
	"github.com/localrivet/latentfs/internal/namer"
	"github.com/localrivet/latentfs/internal/partition"
	"github.com/localrivet/latentfs/internal/telemetry"
)

// labelTexts is how many member texts are passed to the namer.
const labelTexts = 3

// RebuildResult is the outcome of one rebuild.
type RebuildResult struct {
	// Groups are the fully summarized groups in partition order.
	Groups []model.Group `json:"groups"`
	// Diagnostics lists every degraded group and failed persist.
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`
	// Assignments maps every partitioned item to its partition group id,
	// including items of groups that were dropped. Only ids that also appear
	// in Groups are persisted.
	Assignments map[string]string `json:"-"`
	Timestamp   time.Time         `json:"timestamp"`
}

// RebuildGroups partitions items, summarizes and labels every group, and
// persists each surviving member's group id. A group whose post-processing
// fails is dropped and reported in Diagnostics; the other groups are
// unaffected. Members of dropped groups have their stored group id cleared,
// since the previous id may now name a different group.
func (o *Organizer) RebuildGroups(ctx context.Context, items []model.Item) (*RebuildResult, error) {
	start := time.Now()
	defer func() {
		o.metrics.RecordTimer(telemetry.MetricRebuildTime, time.Since(start))
	}()

	if len(items) == 0 {
		return nil, errortypes.NotFoundError(errortypes.ErrNoItems, "no items to group")
	}

	p, err := o.partitioner.Partition(items, o.targetK)
	if err != nil {
		return nil, err
	}

	groups, diags, err := o.summarize(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, errortypes.InternalError(errortypes.ErrPartitionUnusable, "every group failed post-processing").
			WithField("partitioned_groups", len(p)).
			WithField("diagnostics", len(diags))
	}

	diags = append(diags, o.persist(ctx, groups)...)
	diags = append(diags, o.clearDropped(ctx, p, groups)...)

	o.metrics.IncrementCounter(telemetry.MetricRebuilds, 1)
	o.metrics.IncrementCounter(telemetry.MetricGroupsEmitted, int64(len(groups)))
	o.metrics.RecordTimestamp(telemetry.MetricLastRebuild)

	o.logger.Info("Rebuilt groups",
		"items", len(items),
		"groups", len(groups),
		"diagnostics", len(diags),
		"duration", time.Since(start))

	return &RebuildResult{
		Groups:      groups,
		Diagnostics: diags,
		Assignments: assignments(p),
		Timestamp:   time.Now(),
	}, nil
}

// summarize computes centroid, representative and label for every group of
// p with bounded concurrency. It never persists anything. Groups come back
// in partition order.
func (o *Organizer) summarize(ctx context.Context, p partition.Partition) ([]model.Group, []model.Diagnostic, error) {
	ids := p.IDs()
	slots := make([]*model.Group, len(ids))
	failures := make([]*model.Diagnostic, len(ids))

	var eg errgroup.Group
	eg.SetLimit(o.namingConcurrency)
	for i, id := range ids {
		eg.Go(func() error {
			g, diag := o.summarizeGroup(ctx, i, id, p[id])
			slots[i], failures[i] = g, diag
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var groups []model.Group
	var diags []model.Diagnostic
	for i := range ids {
		if slots[i] != nil {
			groups = append(groups, *slots[i])
		}
		if failures[i] != nil {
			diags = append(diags, *failures[i])
		}
	}
	return groups, diags, nil
}

// summarizeGroup returns either the finished group or the diagnostic that
// explains why it was dropped. With fallback labels a naming failure yields
// both.
func (o *Organizer) summarizeGroup(ctx context.Context, index int, id string, members []model.Item) (*model.Group, *model.Diagnostic) {
	degrade := func(stage string, err error) *model.Diagnostic {
		o.metrics.IncrementCounter(telemetry.MetricGroupsDegraded, 1)
		o.logger.Warn("Dropping group from rebuild",
			"group_id", id,
			"stage", stage,
			"members", len(members),
			"error", err)
		return &model.Diagnostic{GroupID: id, Stage: stage, Message: err.Error()}
	}

	centroid, err := partition.CentroidOf(members)
	if err != nil {
		return nil, degrade(model.StageCentroid, err)
	}

	rep, err := o.partitioner.RepresentativeOf(members, centroid)
	if err != nil {
		return nil, degrade(model.StageRepresentative, err)
	}

	texts := make([]string, 0, labelTexts)
	for _, m := range members {
		if len(texts) == labelTexts {
			break
		}
		texts = append(texts, m.Text)
	}

	var diag *model.Diagnostic
	name, err := o.namer.Name(ctx, texts)
	if err != nil {
		if !o.fallbackLabels {
			return nil, degrade(model.StageNaming, err)
		}
		name = namer.FallbackLabel(index)
		diag = &model.Diagnostic{
			GroupID: id,
			Stage:   model.StageNaming,
			Message: fmt.Sprintf("namer failed, using %q: %v", name, err),
		}
		o.logger.Warn("Namer failed, using fallback label", "group_id", id, "label", name, "error", err)
	}

	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}

	return &model.Group{
		ID:               id,
		Name:             name,
		Centroid:         centroid,
		MemberIDs:        memberIDs,
		RepresentativeID: rep.ID,
	}, diag
}

// persist records each member's group id, one group after another. A failed
// write is reported but keeps the group.
func (o *Organizer) persist(ctx context.Context, groups []model.Group) []model.Diagnostic {
	var diags []model.Diagnostic
	for _, g := range groups {
		for _, id := range g.MemberIDs {
			if err := o.store.SetGroup(ctx, id, g.ID); err != nil {
				o.metrics.IncrementCounter(telemetry.MetricPersistFailures, 1)
				o.logger.Warn("Failed to persist group assignment",
					"group_id", g.ID,
					"item_id", id,
					"error", err)
				diags = append(diags, model.Diagnostic{
					GroupID: g.ID,
					Stage:   model.StagePersist,
					ItemID:  id,
					Message: err.Error(),
				})
			}
		}
	}
	return diags
}

// clearDropped resets the stored group id of every item whose group did not
// survive post-processing.
func (o *Organizer) clearDropped(ctx context.Context, p partition.Partition, kept []model.Group) []model.Diagnostic {
	survived := make(map[string]bool, len(kept))
	for _, g := range kept {
		survived[g.ID] = true
	}

	var diags []model.Diagnostic
	for _, gid := range p.IDs() {
		if survived[gid] {
			continue
		}
		for _, m := range p[gid] {
			if err := o.store.SetGroup(ctx, m.ID, ""); err != nil {
				o.metrics.IncrementCounter(telemetry.MetricPersistFailures, 1)
				o.logger.Warn("Failed to clear group assignment",
					"group_id", gid,
					"item_id", m.ID,
					"error", err)
				diags = append(diags, model.Diagnostic{
					GroupID: gid,
					Stage:   model.StagePersist,
					ItemID:  m.ID,
					Message: err.Error(),
				})
			}
		}
	}
	return diags
}

func assignments(p partition.Partition) map[string]string {
	out := make(map[string]string)
	for gid, members := range p {
		for _, m := range members {
			out[m.ID] = gid
		}
	}
	return out
}
