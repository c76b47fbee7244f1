package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/localrivet/latentfs/internal/namer"
	"github.com/localrivet/latentfs/internal/tools"
)

// buildHealth assembles a health response. An unreachable store makes the
// service unhealthy; an unhealthy namer only degrades it because labels
// still come from the keyword fallback.
func buildHealth(ctx context.Context, org Organizer, namerHealth NamerHealthFunc, logger *slog.Logger) tools.HealthResponse {
	resp := tools.HealthResponse{
		Status:    string(namer.StatusHealthy),
		Timestamp: time.Now(),
	}

	count, err := org.CountItems(ctx)
	if err != nil {
		logger.Warn("Health check: store unreachable", "error", err)
		resp.Status = string(namer.StatusUnhealthy)
		resp.Error = err.Error()
		resp.Code = errorCode(err)
	}
	resp.ItemCount = count

	if g := org.Gate(); g != nil {
		if last, ok := g.LastRun(); ok {
			resp.LastRebuild = &last
		}
		resp.GateAdmits, resp.GateDenials = g.Stats()
	}

	if m := org.Metrics(); m != nil {
		snap := m.Snapshot()
		resp.Metrics = &snap
	}

	if namerHealth != nil {
		report, err := namerHealth(ctx)
		switch {
		case err != nil:
			logger.Warn("Health check: namer report failed", "error", err)
			if resp.Status == string(namer.StatusHealthy) {
				resp.Status = string(namer.StatusDegraded)
			}
		default:
			resp.Namer = report
			if report.Status != namer.StatusHealthy && resp.Status == string(namer.StatusHealthy) {
				resp.Status = string(namer.StatusDegraded)
			}
		}
	}

	return resp
}
