// Package mcp exposes the planner and the individual planning tools as a
// Model Context Protocol server.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tripmazer/wayfarer/internal/logging"
	"github.com/tripmazer/wayfarer/pkg/domain"
	"github.com/tripmazer/wayfarer/pkg/runner"
)

const runResourceTemplate = "wayfarer://runs/{id}"

// Engine defines what the MCP server needs from the planner.
type Engine interface {
	Plan(ctx context.Context, query string) (*domain.RunResult, error)
	InvokeTool(ctx context.Context, name string, req domain.ToolRequest) (domain.ToolResult, error)
	Run(ctx context.Context, id string) (*domain.RunResult, error)
	Tools() []domain.ToolName
}

// PlanArgs are the arguments of the plan_trip tool.
type PlanArgs struct {
	Query string `json:"query"`
}

// ToolArgs are the arguments shared by the per-tool MCP tools.
type ToolArgs struct {
	Origin        string   `json:"origin"`
	Destination   string   `json:"destination"`
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
	Travelers     int      `json:"travelers"`
	Budget        float64  `json:"budget"`
	Currency      string   `json:"currency"`
	International bool     `json:"international"`
	Interests     []string `json:"interests"`
	Dietary       string   `json:"dietary"`
}

func (a ToolArgs) request() domain.ToolRequest {
	return domain.ToolRequest{
		Origin:        a.Origin,
		Destination:   a.Destination,
		StartDate:     a.StartDate,
		EndDate:       a.EndDate,
		Travelers:     a.Travelers,
		Budget:        a.Budget,
		Currency:      a.Currency,
		International: a.International,
		Interests:     a.Interests,
		Dietary:       a.Dietary,
	}
}

// ToolResponse is the structured output of a per-tool call.
type ToolResponse struct {
	Tool     domain.ToolName `json:"tool" jsonschema_description:"The tool that ran"`
	Result   string          `json:"result" jsonschema_description:"Tool output as Markdown"`
	Attempts int             `json:"attempts" jsonschema_description:"Calls made, retries included"`
}

// RunArgs are the arguments of the get_run tool.
type RunArgs struct {
	ID string `json:"id"`
}

// Server wraps the planner and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, version string, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("wayfarer-mcp", version, server.WithToolCapabilities(false)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("plan_trip",
		mcp.WithDescription("Plan a trip from a free-text request. Returns the combined Markdown plan and the budget summary."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Travel request, e.g. '4 days in Goa from Pune for 2, budget 40000 rupees'")),
		mcp.WithOutputSchema[domain.RunResult](),
	), mcp.NewStructuredToolHandler(s.handlePlan))

	descriptions := map[domain.ToolName]string{
		domain.ToolTransport: "Find transport options between origin and destination within a budget.",
		domain.ToolLodging:   "Find places to stay at the destination within a budget.",
		domain.ToolItinerary: "Draft a day-by-day itinerary within a budget.",
		domain.ToolDining:    "Suggest restaurants at the destination within a budget.",
	}
	for _, name := range s.engine.Tools() {
		desc, ok := descriptions[name]
		if !ok {
			desc = fmt.Sprintf("Run the %s planning tool.", name)
		}
		s.mcpServer.AddTool(mcp.NewTool(string(name),
			mcp.WithDescription(desc),
			mcp.WithString("destination", mcp.Required(), mcp.Description("Destination city or region")),
			mcp.WithNumber("travelers", mcp.Required(), mcp.Description("Number of travelers"), mcp.Min(1)),
			mcp.WithNumber("budget", mcp.Required(), mcp.Description("Budget for this tool, in currency units")),
			mcp.WithString("origin", mcp.Description("Departure city")),
			mcp.WithString("start_date", mcp.Description("First day of the trip")),
			mcp.WithString("end_date", mcp.Description("Last day of the trip")),
			mcp.WithString("currency", mcp.Description("Currency symbol or code")),
			mcp.WithBoolean("international", mcp.Description("Whether the trip crosses a border")),
			mcp.WithArray("interests", mcp.WithStringItems(), mcp.Description("Traveler interests")),
			mcp.WithString("dietary", mcp.Description("Dietary preferences")),
			mcp.WithOutputSchema[ToolResponse](),
		), mcp.NewStructuredToolHandler(s.toolHandler(name)))
	}

	s.mcpServer.AddTool(mcp.NewTool("get_run",
		mcp.WithDescription("Fetch the result of an earlier plan_trip call by run ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Run ID returned by plan_trip")),
		mcp.WithOutputSchema[domain.RunResult](),
	), mcp.NewStructuredToolHandler(s.handleGetRun))
}

func (s *Server) handlePlan(ctx context.Context, request mcp.CallToolRequest, args PlanArgs) (domain.RunResult, error) {
	query, err := runner.SanitizeInput(args.Query)
	if err != nil {
		s.logger.Warn("MCP plan: input rejected", "err", err, "size", len(args.Query))
		return domain.RunResult{}, fmt.Errorf("input rejected: %w", err)
	}
	res, err := s.engine.Plan(ctx, query)
	if err != nil {
		return domain.RunResult{}, err
	}
	return *res, nil
}

func (s *Server) toolHandler(name domain.ToolName) func(context.Context, mcp.CallToolRequest, ToolArgs) (ToolResponse, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args ToolArgs) (ToolResponse, error) {
		res, err := s.engine.InvokeTool(ctx, string(name), args.request())
		if err != nil {
			return ToolResponse{}, err
		}
		return ToolResponse{Tool: res.Tool, Result: res.Output, Attempts: res.Attempts}, nil
	}
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest, args RunArgs) (domain.RunResult, error) {
	res, err := s.engine.Run(ctx, args.ID)
	if err != nil {
		return domain.RunResult{}, err
	}
	return *res, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(runResourceTemplate, "Stored planning run",
		mcp.WithTemplateDescription("Result of a finished planning run, as JSON."),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readRun)
}

func (s *Server) readRun(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var id string
	if v, ok := request.Params.Arguments["id"]; ok {
		switch t := v.(type) {
		case string:
			id = t
		case []string:
			if len(t) > 0 {
				id = t[0]
			}
		}
	}
	res, err := s.engine.Run(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
