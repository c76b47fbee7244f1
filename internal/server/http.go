package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/localrivet/latentfs/internal/errortypes"
	"github.com/localrivet/latentfs/internal/model"
	"github.com/localrivet/latentfs/internal/namer"
	"github.com/localrivet/latentfs/internal/tools"
)

const (
	// maxBodyBytes caps request bodies.
	maxBodyBytes = 10 << 20

	shutdownTimeout = 5 * time.Second
)

// IngestRequest is the body of POST /ingest.
type IngestRequest struct {
	Texts    []string          `json:"texts"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IngestResponse is returned by POST /ingest.
type IngestResponse struct {
	Success     bool     `json:"success"`
	DocumentIDs []string `json:"document_ids"`
	Count       int      `json:"count"`
	Message     string   `json:"message"`
}

// Document is the HTTP form of a stored item.
type Document struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Embedding []float32         `json:"embedding"`
	ClusterID *string           `json:"cluster_id"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// DocumentsResponse is returned by GET /documents.
type DocumentsResponse struct {
	Documents []Document `json:"documents"`
	Count     int        `json:"count"`
}

// Folder is the HTTP form of a group.
type Folder struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Centroid            []float32 `json:"centroid"`
	DocumentIDs         []string  `json:"document_ids"`
	RepresentativeDocID string    `json:"representative_doc_id"`
}

// ClusterResponse is returned by GET /cluster.
type ClusterResponse struct {
	Folders     []Folder           `json:"folders"`
	Documents   []Document         `json:"documents"`
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// ReEmbedRequest is the body of POST /re-embed.
type ReEmbedRequest struct {
	DocumentID     string `json:"document_id"`
	TargetFolderID string `json:"target_folder_id"`
}

// ReEmbedResponse is returned by POST /re-embed.
type ReEmbedResponse struct {
	Success          bool            `json:"success"`
	NewClusterID     string          `json:"new_cluster_id"`
	Stale            bool            `json:"stale"`
	SimilarityBefore float64         `json:"similarity_before"`
	SimilarityAfter  float64         `json:"similarity_after"`
	ZeroNorm         bool            `json:"zero_norm"`
	Warning          string          `json:"warning,omitempty"`
	UpdatedClusters  ClusterResponse `json:"updated_clusters"`
}

// HTTPServer serves the organizer as a JSON API.
type HTTPServer struct {
	addr   string
	org    Organizer
	opts   options
	logger *slog.Logger
	mux    *http.ServeMux
	srv    *http.Server
}

// NewHTTPServer creates an HTTP API server listening on addr.
func NewHTTPServer(addr string, org Organizer, opts ...Option) *HTTPServer {
	o := buildOptions(opts)
	return &HTTPServer{
		addr:   addr,
		org:    org,
		opts:   o,
		logger: o.logger.With("component", "http"),
	}
}

// Initialize registers the routes.
func (s *HTTPServer) Initialize() error {
	if s.org == nil {
		return errortypes.ConfigError(ErrMissingDependencies, "server initialization failed")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /ingest", s.handleIngest)
	mux.HandleFunc("GET /documents", s.handleDocuments)
	mux.HandleFunc("DELETE /documents/{id}", s.handleDeleteDocument)
	mux.HandleFunc("GET /cluster", s.handleCluster)
	mux.HandleFunc("POST /re-embed", s.handleReEmbed)
	mux.HandleFunc("GET /health", s.handleHealth)
	s.mux = mux

	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Handler returns the routed handler wrapped with request logging.
func (s *HTTPServer) Handler() http.Handler {
	if s.mux == nil {
		return http.NotFoundHandler()
	}
	return s.logRequests(s.mux)
}

// Start listens until Stop is called.
func (s *HTTPServer) Start() error {
	if s.srv == nil {
		return errortypes.ConfigError(ErrServerNotInitialized, "cannot start server")
	}
	s.logger.Info("Starting HTTP API", "addr", s.addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errortypes.NetworkError(err, "http server failed").WithField("addr", s.addr)
	}
	return nil
}

// Stop drains in-flight requests.
func (s *HTTPServer) Stop() error {
	if s.srv == nil {
		return nil
	}
	s.logger.Info("Stopping HTTP API")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errortypes.ValidationError(err, "malformed JSON body")
	}
	return nil
}

func (s *HTTPServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := decodeBody(w, r, &req); err != nil {
		HandleError(w, err)
		return
	}

	ctx, cancel := s.opts.requestContext(r.Context())
	defer cancel()

	ids, err := s.org.Ingest(ctx, req.Texts, req.Metadata)
	if err != nil {
		HandleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, IngestResponse{
		Success:     true,
		DocumentIDs: ids,
		Count:       len(ids),
		Message:     fmt.Sprintf("Successfully ingested %d documents", len(ids)),
	})
}

func (s *HTTPServer) handleDocuments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.opts.requestContext(r.Context())
	defer cancel()

	items, err := s.org.Items(ctx)
	if err != nil {
		HandleError(w, err)
		return
	}
	docs := toDocuments(items)
	writeJSON(w, http.StatusOK, DocumentsResponse{Documents: docs, Count: len(docs)})
}

func (s *HTTPServer) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	ctx, cancel := s.opts.requestContext(r.Context())
	defer cancel()

	if err := s.org.DeleteItem(ctx, id); err != nil {
		HandleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Document %s deleted", id),
	})
}

func (s *HTTPServer) handleCluster(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.opts.requestContext(r.Context())
	defer cancel()

	res, err := s.org.Groups(ctx)
	if err != nil {
		if errors.Is(err, errortypes.ErrNoItems) {
			HandleNotFound(w, "No documents available for clustering", err)
			return
		}
		HandleError(w, err)
		return
	}

	resp, err := s.clusterResponse(ctx, res.Groups, res.Diagnostics, res.Timestamp)
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleReEmbed(w http.ResponseWriter, r *http.Request) {
	var req ReEmbedRequest
	if err := decodeBody(w, r, &req); err != nil {
		HandleError(w, err)
		return
	}
	if strings.TrimSpace(req.DocumentID) == "" || strings.TrimSpace(req.TargetFolderID) == "" {
		HandleBadRequest(w, "document_id and target_folder_id are required", errortypes.ErrEmptyInput)
		return
	}

	ctx, cancel := s.opts.requestContext(r.Context())
	defer cancel()

	res, err := s.org.Reassign(ctx, req.DocumentID, req.TargetFolderID)
	if err != nil {
		HandleError(w, err)
		return
	}

	clusters, err := s.clusterResponse(ctx, res.Groups, res.Diagnostics, res.Timestamp)
	if err != nil {
		HandleError(w, err)
		return
	}
	resp := ReEmbedResponse{
		Success:          true,
		NewClusterID:     res.NewGroupID,
		Stale:            res.Stale,
		SimilarityBefore: res.SimilarityBefore,
		SimilarityAfter:  res.SimilarityAfter,
		ZeroNorm:         res.ZeroNorm,
		UpdatedClusters:  clusters,
	}
	if res.ZeroNorm {
		resp.Warning = tools.ZeroNormWarning
		s.logger.Warn("Re-embedded document has a zero-norm vector", "document_id", req.DocumentID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.opts.requestContext(r.Context())
	defer cancel()

	resp := buildHealth(ctx, s.org, s.opts.namerHealth, s.logger)
	status := http.StatusOK
	if resp.Status == string(namer.StatusUnhealthy) {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// clusterResponse pairs groups with a fresh read of the items so the
// documents carry their persisted cluster ids.
func (s *HTTPServer) clusterResponse(ctx context.Context, groups []model.Group, diags []model.Diagnostic, ts time.Time) (ClusterResponse, error) {
	items, err := s.org.Items(ctx)
	if err != nil {
		return ClusterResponse{}, err
	}

	folders := make([]Folder, len(groups))
	for i, g := range groups {
		folders[i] = Folder{
			ID:                  g.ID,
			Name:                g.Name,
			Centroid:            g.Centroid,
			DocumentIDs:         g.MemberIDs,
			RepresentativeDocID: g.RepresentativeID,
		}
	}
	return ClusterResponse{
		Folders:     folders,
		Documents:   toDocuments(items),
		Diagnostics: diags,
		Timestamp:   ts,
	}, nil
}

func toDocuments(items []model.Item) []Document {
	docs := make([]Document, len(items))
	for i, it := range items {
		d := Document{
			ID:        it.ID,
			Text:      it.Text,
			Embedding: it.Vector,
			Metadata:  it.Metadata,
			CreatedAt: it.CreatedAt,
			UpdatedAt: it.UpdatedAt,
		}
		if it.HasGroup() {
			gid := it.GroupID
			d.ClusterID = &gid
		}
		if d.Metadata == nil {
			d.Metadata = map[string]string{}
		}
		docs[i] = d
	}
	return docs
}

var (
	_ ToolServer = (*HTTPServer)(nil)
	_ ToolServer = (*MCPToolServer)(nil)
)
