package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/localrivet/gomcp/server"

	"github.com/localrivet/latentfs/internal/errortypes"
	"github.com/localrivet/latentfs/internal/namer"
	"github.com/localrivet/latentfs/internal/tools"
)

// Common server error types
var (
	ErrServerNotInitialized = errors.New("server not initialized")
	ErrMissingDependencies  = errors.New("one or more required dependencies are nil")
)

// DefaultRequestTimeout bounds one tool call or HTTP request.
const DefaultRequestTimeout = 2 * time.Minute

// NamerHealthFunc reports the AI namer's condition for the health tool.
type NamerHealthFunc func(ctx context.Context) (*namer.HealthReport, error)

type options struct {
	logger      *slog.Logger
	namerHealth NamerHealthFunc
	timeout     time.Duration
}

// Option configures a server.
type Option func(*options)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithNamerHealth adds the namer's health report to health responses.
func WithNamerHealth(fn NamerHealthFunc) Option {
	return func(o *options) { o.namerHealth = fn }
}

// WithRequestTimeout bounds each request. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), timeout: DefaultRequestTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

func (o options) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, o.timeout)
}

// MCPToolServer implements ToolServer for MCP clients over stdio.
type MCPToolServer struct {
	org       Organizer
	opts      options
	logger    *slog.Logger
	mcpServer server.Server
}

// NewMCPToolServer creates a new MCPToolServer instance.
func NewMCPToolServer(org Organizer, opts ...Option) *MCPToolServer {
	o := buildOptions(opts)
	return &MCPToolServer{
		org:    org,
		opts:   o,
		logger: o.logger.With("component", "mcp"),
	}
}

// Initialize registers every tool with the MCP server.
func (s *MCPToolServer) Initialize() error {
	s.logger.Info("Initializing MCP tool server")

	if s.org == nil {
		return errortypes.ConfigError(ErrMissingDependencies, "server initialization failed")
	}

	srv := server.NewServer("latentfs")

	srv = srv.Tool(tools.ToolIngestItems, "Embed and store texts as new items",
		s.handleIngestItems)

	srv = srv.Tool(tools.ToolListItems, "List every stored item with its current group",
		s.handleListItems)

	srv = srv.Tool(tools.ToolRebuildGroups, "Partition all items into labeled semantic folders",
		s.handleRebuildGroups)

	srv = srv.Tool(tools.ToolReassignItem, "Move an item toward a target folder and rebuild the folders",
		s.handleReassignItem)

	srv = srv.Tool(tools.ToolDeleteItem, "Delete a specific item by ID",
		s.handleDeleteItem)

	srv = srv.Tool(tools.ToolClearItems, "Delete every item from the store",
		s.handleClearItems)

	srv = srv.Tool(tools.ToolHealth, "Report store, namer and rebuild gate health",
		s.handleHealth)

	s.mcpServer = srv
	s.logger.Info("MCP tool server initialized successfully", "tool_count", 7)
	return nil
}

// Start runs the MCP server on stdio until stdin closes.
func (s *MCPToolServer) Start() error {
	if s.mcpServer == nil {
		return errortypes.ConfigError(ErrServerNotInitialized, "cannot start server")
	}

	s.logger.Info("Starting MCP tool server")
	return s.mcpServer.AsStdio().Run()
}

// Stop gracefully shuts down the MCP server.
func (s *MCPToolServer) Stop() error {
	s.logger.Info("Stopping MCP tool server")
	// The stdio transport exits when stdin is closed
	return nil
}

// failure logs err and returns the client message and code for it.
func (s *MCPToolServer) failure(tool string, err error) (string, string) {
	errortypes.LogError(s.logger, err)
	s.logger.Warn("Tool call failed", "tool", tool, "error", err)
	return err.Error(), errorCode(err)
}

func (s *MCPToolServer) handleIngestItems(_ *server.Context, req tools.IngestItemsRequest) (tools.IngestItemsResponse, error) {
	s.logger.Info("Processing ingest_items request", "texts", len(req.Texts))

	ctx, cancel := s.opts.requestContext(context.Background())
	defer cancel()

	response := tools.IngestItemsResponse{Status: tools.StatusSuccess}

	ids, err := s.org.Ingest(ctx, req.Texts, req.Metadata)
	if err != nil {
		response.Status = tools.StatusError
		response.Error, response.Code = s.failure(tools.ToolIngestItems, err)
		return response, nil
	}

	response.IDs = ids
	response.Count = len(ids)
	s.logger.Info("Successfully ingested items", "count", len(ids))
	return response, nil
}

func (s *MCPToolServer) handleListItems(_ *server.Context, req tools.ListItemsRequest) (tools.ListItemsResponse, error) {
	ctx, cancel := s.opts.requestContext(context.Background())
	defer cancel()

	response := tools.ListItemsResponse{Status: tools.StatusSuccess, Items: []tools.ItemView{}}

	items, err := s.org.Items(ctx)
	if err != nil {
		response.Status = tools.StatusError
		response.Error, response.Code = s.failure(tools.ToolListItems, err)
		return response, nil
	}

	for _, it := range items {
		response.Items = append(response.Items, tools.NewItemView(it, req.IncludeVectors))
	}
	response.Count = len(items)
	return response, nil
}

func (s *MCPToolServer) handleRebuildGroups(_ *server.Context, _ tools.RebuildGroupsRequest) (tools.RebuildGroupsResponse, error) {
	s.logger.Info("Processing rebuild_groups request")

	ctx, cancel := s.opts.requestContext(context.Background())
	defer cancel()

	response := tools.RebuildGroupsResponse{Status: tools.StatusSuccess}

	res, err := s.org.Groups(ctx)
	if err != nil {
		response.Status = tools.StatusError
		response.Error, response.Code = s.failure(tools.ToolRebuildGroups, err)
		return response, nil
	}

	response.Groups = res.Groups
	response.Diagnostics = res.Diagnostics
	response.Timestamp = res.Timestamp
	s.logger.Info("Successfully rebuilt groups", "groups", len(res.Groups), "diagnostics", len(res.Diagnostics))
	return response, nil
}

func (s *MCPToolServer) handleReassignItem(_ *server.Context, req tools.ReassignItemRequest) (tools.ReassignItemResponse, error) {
	s.logger.Info("Processing reassign_item request", "item_id", req.ItemID, "target_group_id", req.TargetGroupID)

	response := tools.ReassignItemResponse{Status: tools.StatusSuccess}

	if strings.TrimSpace(req.ItemID) == "" || strings.TrimSpace(req.TargetGroupID) == "" {
		err := errortypes.ValidationError(errortypes.ErrEmptyInput, "item_id and target_group_id are required")
		response.Status = tools.StatusError
		response.Error, response.Code = s.failure(tools.ToolReassignItem, err)
		return response, nil
	}

	ctx, cancel := s.opts.requestContext(context.Background())
	defer cancel()

	res, err := s.org.Reassign(ctx, req.ItemID, req.TargetGroupID)
	if err != nil {
		response.Status = tools.StatusError
		response.Error, response.Code = s.failure(tools.ToolReassignItem, err)
		return response, nil
	}

	response.NewGroupID = res.NewGroupID
	response.Stale = res.Stale
	response.Groups = res.Groups
	response.Diagnostics = res.Diagnostics
	response.SimilarityBefore = res.SimilarityBefore
	response.SimilarityAfter = res.SimilarityAfter
	if res.ZeroNorm {
		response.ZeroNorm = true
		response.Warning = tools.ZeroNormWarning
		s.logger.Warn("Reassigned item has a zero-norm vector", "item_id", req.ItemID, "target_group_id", req.TargetGroupID)
	}
	return response, nil
}

func (s *MCPToolServer) handleDeleteItem(_ *server.Context, req tools.DeleteItemRequest) (tools.DeleteItemResponse, error) {
	s.logger.Info("Processing delete_item request", "id", req.ID)

	ctx, cancel := s.opts.requestContext(context.Background())
	defer cancel()

	response := tools.DeleteItemResponse{Status: tools.StatusSuccess}

	if err := s.org.DeleteItem(ctx, req.ID); err != nil {
		response.Status = tools.StatusError
		response.Error, response.Code = s.failure(tools.ToolDeleteItem, err)
		return response, nil
	}

	s.logger.Info("Successfully deleted item", "id", req.ID)
	return response, nil
}

func (s *MCPToolServer) handleClearItems(_ *server.Context, req tools.ClearItemsRequest) (tools.ClearItemsResponse, error) {
	s.logger.Info("Processing clear_items request")

	response := tools.ClearItemsResponse{Status: tools.StatusSuccess}

	if req.Confirmation != tools.ClearConfirmation {
		response.Status = tools.StatusError
		response.Error = "Confirmation required. Set confirmation to 'confirm' to proceed with clearing all items"
		response.Code = string(errortypes.ErrorTypeValidation)
		s.logger.Warn("Clear items operation rejected: missing confirmation")
		return response, nil
	}

	ctx, cancel := s.opts.requestContext(context.Background())
	defer cancel()

	count, err := s.org.ClearItems(ctx)
	if err != nil {
		response.Status = tools.StatusError
		response.Error, response.Code = s.failure(tools.ToolClearItems, err)
		return response, nil
	}

	s.logger.Info("Successfully cleared items", "count", count)
	response.DeletedCount = count
	return response, nil
}

func (s *MCPToolServer) handleHealth(_ *server.Context, _ tools.HealthRequest) (tools.HealthResponse, error) {
	ctx, cancel := s.opts.requestContext(context.Background())
	defer cancel()
	return buildHealth(ctx, s.org, s.opts.namerHealth, s.logger), nil
}
