package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/localrivet/latentfs/internal/errortypes"
	"github.com/localrivet/latentfs/internal/gate"
	"github.com/localrivet/latentfs/internal/model"
	"github.com/localrivet/latentfs/internal/namer"
	"github.com/localrivet/latentfs/internal/organizer"
	"github.com/localrivet/latentfs/internal/telemetry"
	"github.com/localrivet/latentfs/internal/tools"
)

var testError = errors.New("test error")

// MockOrganizer implements the Organizer interface for testing
type MockOrganizer struct {
	Stored        []model.Item
	IngestedTexts []string
	DeletedIDs    []string
	ClearedAll    bool
	Rebuild       *organizer.RebuildResult
	Reassigned    *organizer.ReassignResult
	ReturnError   error

	gate    *gate.Gate
	metrics *telemetry.MetricsCollector
}

func newMockOrganizer() *MockOrganizer {
	return &MockOrganizer{
		gate:    gate.New(time.Second),
		metrics: telemetry.NewMetricsCollector(),
	}
}

func (m *MockOrganizer) Ingest(_ context.Context, texts []string, _ map[string]string) ([]string, error) {
	if m.ReturnError != nil {
		return nil, m.ReturnError
	}
	ids := make([]string, len(texts))
	for i, text := range texts {
		if text == "" {
			return nil, errortypes.ValidationError(errortypes.ErrEmptyInput, "text must not be blank")
		}
		ids[i] = "id-" + text
		m.IngestedTexts = append(m.IngestedTexts, text)
		m.Stored = append(m.Stored, model.Item{ID: ids[i], Text: text, Vector: []float32{1, 0}})
	}
	return ids, nil
}

func (m *MockOrganizer) Items(context.Context) ([]model.Item, error) {
	if m.ReturnError != nil {
		return nil, m.ReturnError
	}
	return m.Stored, nil
}

func (m *MockOrganizer) Groups(context.Context) (*organizer.RebuildResult, error) {
	if m.ReturnError != nil {
		return nil, m.ReturnError
	}
	if len(m.Stored) == 0 {
		return nil, errortypes.NotFoundError(errortypes.ErrNoItems, "no items to group")
	}
	return m.Rebuild, nil
}

func (m *MockOrganizer) Reassign(_ context.Context, itemID, targetGroupID string) (*organizer.ReassignResult, error) {
	if m.ReturnError != nil {
		return nil, m.ReturnError
	}
	if targetGroupID == "missing" {
		return nil, errortypes.NotFoundError(errortypes.ErrTargetGroupNotFound, "target group not found").
			WithField("target_group_id", targetGroupID)
	}
	return m.Reassigned, nil
}

func (m *MockOrganizer) DeleteItem(_ context.Context, id string) error {
	if m.ReturnError != nil {
		return m.ReturnError
	}
	for i, it := range m.Stored {
		if it.ID == id {
			m.Stored = append(m.Stored[:i], m.Stored[i+1:]...)
			m.DeletedIDs = append(m.DeletedIDs, id)
			return nil
		}
	}
	return errortypes.NotFoundError(errortypes.ErrItemNotFound, "item not found").WithField("item_id", id)
}

func (m *MockOrganizer) ClearItems(context.Context) (int, error) {
	if m.ReturnError != nil {
		return 0, m.ReturnError
	}
	n := len(m.Stored)
	m.Stored = nil
	m.ClearedAll = true
	return n, nil
}

func (m *MockOrganizer) CountItems(context.Context) (int, error) {
	if m.ReturnError != nil {
		return 0, m.ReturnError
	}
	return len(m.Stored), nil
}

func (m *MockOrganizer) Gate() *gate.Gate                     { return m.gate }
func (m *MockOrganizer) Metrics() *telemetry.MetricsCollector { return m.metrics }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, org Organizer, opts ...Option) *MCPToolServer {
	t.Helper()
	s := NewMCPToolServer(org, append([]Option{WithLogger(quietLogger())}, opts...)...)
	if err := s.Initialize(); err != nil {
		t.Fatalf("Failed to initialize server: %v", err)
	}
	return s
}

func TestInitializeRequiresOrganizer(t *testing.T) {
	s := NewMCPToolServer(nil, WithLogger(quietLogger()))
	if err := s.Initialize(); err == nil {
		t.Fatal("Expected error for missing organizer")
	}
	if err := s.Start(); err == nil {
		t.Fatal("Expected error starting an uninitialized server")
	}
}

func TestIngestItems(t *testing.T) {
	org := newMockOrganizer()
	s := newTestServer(t, org)

	resp, err := s.handleIngestItems(nil, tools.IngestItemsRequest{Texts: []string{"alpha", "beta"}})
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if resp.Status != tools.StatusSuccess {
		t.Fatalf("Expected success, got %s: %s", resp.Status, resp.Error)
	}
	if resp.Count != 2 || resp.IDs[0] != "id-alpha" {
		t.Errorf("Unexpected response: %+v", resp)
	}

	resp, _ = s.handleIngestItems(nil, tools.IngestItemsRequest{Texts: []string{""}})
	if resp.Status != tools.StatusError || resp.Code != string(errortypes.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %+v", resp)
	}
}

func TestListItems(t *testing.T) {
	org := newMockOrganizer()
	org.Stored = []model.Item{{ID: "a", Text: "alpha", Vector: []float32{1, 2}, GroupID: "cluster_0"}}
	s := newTestServer(t, org)

	resp, _ := s.handleListItems(nil, tools.ListItemsRequest{})
	if resp.Status != tools.StatusSuccess || resp.Count != 1 {
		t.Fatalf("Unexpected response: %+v", resp)
	}
	if resp.Items[0].Vector != nil {
		t.Error("Expected vectors to be omitted by default")
	}

	resp, _ = s.handleListItems(nil, tools.ListItemsRequest{IncludeVectors: true})
	if len(resp.Items[0].Vector) != 2 {
		t.Error("Expected vectors when requested")
	}
}

func TestRebuildGroups(t *testing.T) {
	org := newMockOrganizer()
	s := newTestServer(t, org)

	resp, _ := s.handleRebuildGroups(nil, tools.RebuildGroupsRequest{})
	if resp.Status != tools.StatusError || resp.Code != string(errortypes.ErrorTypeNotFound) {
		t.Errorf("Expected not_found on an empty store, got %+v", resp)
	}

	org.Stored = []model.Item{{ID: "a", Text: "alpha"}}
	org.Rebuild = &organizer.RebuildResult{
		Groups:      []model.Group{{ID: "cluster_0", Name: "Alpha", MemberIDs: []string{"a"}, RepresentativeID: "a"}},
		Diagnostics: []model.Diagnostic{{GroupID: "cluster_1", Stage: model.StageNaming, Message: "boom"}},
		Timestamp:   time.Now(),
	}
	resp, _ = s.handleRebuildGroups(nil, tools.RebuildGroupsRequest{})
	if resp.Status != tools.StatusSuccess || len(resp.Groups) != 1 || len(resp.Diagnostics) != 1 {
		t.Errorf("Unexpected response: %+v", resp)
	}
}

func TestReassignItem(t *testing.T) {
	org := newMockOrganizer()
	org.Reassigned = &organizer.ReassignResult{
		ItemID:           "a",
		NewGroupID:       "cluster_1",
		Stale:            true,
		SimilarityBefore: 0.1,
		SimilarityAfter:  0.9,
	}
	s := newTestServer(t, org)

	resp, _ := s.handleReassignItem(nil, tools.ReassignItemRequest{ItemID: "a", TargetGroupID: "cluster_1"})
	if resp.Status != tools.StatusSuccess {
		t.Fatalf("Expected success, got %+v", resp)
	}
	if resp.NewGroupID != "cluster_1" || !resp.Stale || resp.SimilarityAfter != 0.9 {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if resp.ZeroNorm || resp.Warning != "" {
		t.Errorf("Expected no zero-norm warning, got %+v", resp)
	}

	resp, _ = s.handleReassignItem(nil, tools.ReassignItemRequest{ItemID: "a", TargetGroupID: "missing"})
	if resp.Status != tools.StatusError || resp.Code != string(errortypes.ErrorTypeNotFound) {
		t.Errorf("Expected not_found, got %+v", resp)
	}

	resp, _ = s.handleReassignItem(nil, tools.ReassignItemRequest{ItemID: " "})
	if resp.Status != tools.StatusError || resp.Code != string(errortypes.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %+v", resp)
	}
}

func TestReassignItemZeroNorm(t *testing.T) {
	org := newMockOrganizer()
	org.Reassigned = &organizer.ReassignResult{
		ItemID:           "p",
		NewGroupID:       "cluster_0",
		SimilarityBefore: -1,
		ZeroNorm:         true,
	}
	s := newTestServer(t, org)

	resp, _ := s.handleReassignItem(nil, tools.ReassignItemRequest{ItemID: "p", TargetGroupID: "cluster_0"})
	if resp.Status != tools.StatusSuccess {
		t.Fatalf("Expected success, got %+v", resp)
	}
	if !resp.ZeroNorm {
		t.Error("Expected zero_norm to be reported")
	}
	if resp.Warning != tools.ZeroNormWarning {
		t.Errorf("Expected zero-norm warning, got %q", resp.Warning)
	}
}

func TestDeleteAndClearItems(t *testing.T) {
	org := newMockOrganizer()
	org.Stored = []model.Item{{ID: "a"}, {ID: "b"}}
	s := newTestServer(t, org)

	del, _ := s.handleDeleteItem(nil, tools.DeleteItemRequest{ID: "a"})
	if del.Status != tools.StatusSuccess || len(org.DeletedIDs) != 1 {
		t.Errorf("Expected delete success, got %+v", del)
	}
	del, _ = s.handleDeleteItem(nil, tools.DeleteItemRequest{ID: "zzz"})
	if del.Status != tools.StatusError || del.Code != string(errortypes.ErrorTypeNotFound) {
		t.Errorf("Expected not_found, got %+v", del)
	}

	clr, _ := s.handleClearItems(nil, tools.ClearItemsRequest{Confirmation: "yes"})
	if clr.Status != tools.StatusError || org.ClearedAll {
		t.Errorf("Clear without confirmation must be rejected, got %+v", clr)
	}

	clr, _ = s.handleClearItems(nil, tools.ClearItemsRequest{Confirmation: tools.ClearConfirmation})
	if clr.Status != tools.StatusSuccess || clr.DeletedCount != 1 || !org.ClearedAll {
		t.Errorf("Expected clear success, got %+v", clr)
	}
}

func TestDatabaseFailureSurfacesAsError(t *testing.T) {
	org := newMockOrganizer()
	org.ReturnError = errortypes.DatabaseError(testError, "failed to load items")
	s := newTestServer(t, org)

	resp, err := s.handleListItems(nil, tools.ListItemsRequest{})
	if err != nil {
		t.Fatalf("Handlers report failures in the response, got %v", err)
	}
	if resp.Status != tools.StatusError || resp.Code != string(errortypes.ErrorTypeDatabase) {
		t.Errorf("Expected database error, got %+v", resp)
	}
}

func TestHealth(t *testing.T) {
	org := newMockOrganizer()
	org.Stored = []model.Item{{ID: "a"}}
	org.gate.Admit()

	s := newTestServer(t, org, WithNamerHealth(func(context.Context) (*namer.HealthReport, error) {
		return &namer.HealthReport{Status: namer.StatusDegraded}, nil
	}))

	resp, _ := s.handleHealth(nil, tools.HealthRequest{})
	if resp.Status != string(namer.StatusDegraded) {
		t.Errorf("Expected degraded status from namer, got %s", resp.Status)
	}
	if resp.ItemCount != 1 || resp.LastRebuild == nil || resp.GateAdmits != 1 {
		t.Errorf("Unexpected health response: %+v", resp)
	}
	if resp.Namer == nil || resp.Metrics == nil {
		t.Error("Expected namer report and metrics snapshot")
	}

	org.ReturnError = errortypes.DatabaseError(testError, "store closed")
	resp, _ = s.handleHealth(nil, tools.HealthRequest{})
	if resp.Status != string(namer.StatusUnhealthy) {
		t.Errorf("Expected unhealthy with a failing store, got %s", resp.Status)
	}
}
