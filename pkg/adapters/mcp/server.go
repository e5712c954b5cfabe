package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/vignette"
	"github.com/aretw0/vignette/internal/logging"
	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/export"
	"github.com/aretw0/vignette/pkg/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DocumentURI names the resource holding the whole document.
const DocumentURI = "vignette://document"

// RunView is the get_run payload.
type RunView struct {
	Run      domain.Run       `json:"run" jsonschema_description:"The run"`
	Variants []domain.Variant `json:"variants" jsonschema_description:"Every variant of the run, in index order"`
}

// Server wraps the vignette Engine and exposes it as an MCP Server.
type Server struct {
	engine    *vignette.Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine *vignette.Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("vignette-mcp", strings.TrimSpace(vignette.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is cancelled.
// baseURL is the address clients use to reach it.
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

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
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
	// TOOL: generate_variants
	generateTool := mcp.NewTool("generate_variants",
		mcp.WithDescription("Generate a reproducible batch of prompt variants for a scene rendered with a technique."),
		mcp.WithString("scene_id", mcp.Required(), mcp.Description("Scene card id")),
		mcp.WithString("technique_id", mcp.Required(), mcp.Description("Technique id")),
		mcp.WithString("run_id", mcp.Description("Run id (optional, generated when omitted)")),
		mcp.WithNumber("variant_count", mcp.Description("Number of variants, clamped to 1..24 (default 12)")),
		mcp.WithNumber("base_seed", mcp.Description("Seed the whole batch derives from (optional)")),
		mcp.WithNumber("pass_threshold", mcp.Min(0), mcp.Max(100), mcp.Description("QC pass threshold (default 80)")),
		mcp.WithOutputSchema[vignette.GenerateResult](),
	)
	s.mcpServer.AddTool(generateTool, mcp.NewStructuredToolHandler(s.handleGenerate))

	// TOOL: submit_qc
	qcTool := mcp.NewTool("submit_qc",
		mcp.WithDescription("Grade a variant. Sub-scores are 0..5; the weighted score decides pass or fail unless the variant is the run's best."),
		mcp.WithString("variant_id", mcp.Required(), mcp.Description("Variant id")),
		mcp.WithObject("qc_breakdown", mcp.Required(),
			mcp.Description("Sub-scores: character_consistency, composition_consistency, artifact_cleanliness, text_safety"),
			mcp.Properties(map[string]any{
				"character_consistency":   map[string]any{"type": "number", "minimum": 0, "maximum": 5},
				"composition_consistency": map[string]any{"type": "number", "minimum": 0, "maximum": 5},
				"artifact_cleanliness":    map[string]any{"type": "number", "minimum": 0, "maximum": 5},
				"text_safety":             map[string]any{"type": "number", "minimum": 0, "maximum": 5},
			}),
		),
		mcp.WithNumber("threshold", mcp.Min(0), mcp.Max(100), mcp.Description("New pass threshold for the whole run (optional)")),
		mcp.WithOutputSchema[vignette.QCResult](),
	)
	s.mcpServer.AddTool(qcTool, mcp.NewStructuredToolHandler(s.handleSubmitQC))

	// TOOL: mark_best
	bestTool := mcp.NewTool("mark_best",
		mcp.WithDescription("Make a variant the best of its run, regardless of its score."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run id")),
		mcp.WithString("variant_id", mcp.Required(), mcp.Description("Variant id within the run")),
		mcp.WithOutputSchema[vignette.BestResult](),
	)
	s.mcpServer.AddTool(bestTool, mcp.NewStructuredToolHandler(s.handleMarkBest))

	// TOOL: get_run
	s.mcpServer.AddTool(mcp.NewTool("get_run",
		mcp.WithDescription("Get a run with its variants, as JSON or as a Markdown report."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run id")),
		mcp.WithString("format", mcp.Enum("json", "markdown"), mcp.Description("Output format (default json)")),
	), s.handleGetRun)
}

// Handler methods for structured tools

func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (vignette.GenerateResult, error) {
	var req vignette.GenerateRequest
	if err := schema.Decode(schema.GenerateRequestSchema(), args, &req); err != nil {
		return vignette.GenerateResult{}, s.reject("generate_variants", err)
	}
	res, err := s.engine.Generate(ctx, req)
	if err != nil {
		return vignette.GenerateResult{}, s.reject("generate_variants", err)
	}
	return res, nil
}

func (s *Server) handleSubmitQC(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (vignette.QCResult, error) {
	var req vignette.QCRequest
	sch := schema.QCRequestSchema().With("variant_id", schema.NonEmptyString())
	if err := schema.Decode(sch, args, &req); err != nil {
		return vignette.QCResult{}, s.reject("submit_qc", err)
	}
	res, err := s.engine.UpdateQC(ctx, req)
	if err != nil {
		return vignette.QCResult{}, s.reject("submit_qc", err)
	}
	return res, nil
}

func (s *Server) handleMarkBest(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (vignette.BestResult, error) {
	var req struct {
		RunID     string `mapstructure:"run_id"`
		VariantID string `mapstructure:"variant_id"`
	}
	sch := schema.BestRequestSchema().With("run_id", schema.NonEmptyString())
	if err := schema.Decode(sch, args, &req); err != nil {
		return vignette.BestResult{}, s.reject("mark_best", err)
	}
	res, err := s.engine.MarkBest(ctx, req.RunID, req.VariantID)
	if err != nil {
		return vignette.BestResult{}, s.reject("mark_best", err)
	}
	return res, nil
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := request.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	run, variants, err := s.engine.Run(ctx, runID)
	if err != nil {
		return mcp.NewToolResultError(s.reject("get_run", err).Error()), nil
	}

	switch format := request.GetString("format", "json"); format {
	case "markdown":
		doc, err := s.engine.Document(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("read failed: %v", err)), nil
		}
		return mcp.NewToolResultText(export.Markdown(export.Report{
			Run:       run,
			Scene:     doc.Scene(run.SceneID),
			Technique: doc.Technique(run.TechniqueID),
			Variants:  variants,
		})), nil
	case "json":
		jsonBytes, err := json.Marshal(RunView{Run: run, Variants: variants})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", format)), nil
	}
}

// reject logs a failed tool call and words the error for the model. Validation
// failures list every offending field on one line.
func (s *Server) reject(tool string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, schema.ErrInvalid) {
		s.logger.Debug("MCP tool rejected", "tool", tool, "err", err)
	} else {
		s.logger.Error("MCP tool failed", "tool", tool, "err", err)
	}
	if errs := schema.ValidationErrors(err); len(errs) > 1 {
		parts := make([]string, len(errs))
		for i, e := range errs {
			parts[i] = e.Error()
		}
		return fmt.Errorf("%w: %s", schema.ErrInvalid, strings.Join(parts, "; "))
	}
	return err
}

func (s *Server) registerResources() {
	// EXPOSE: vignette://document
	s.mcpServer.AddResource(mcp.NewResource(DocumentURI, "Vignette Document",
		mcp.WithMIMEType("application/json"),
	), s.readDocument)
}

func (s *Server) readDocument(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	doc, err := s.engine.Document(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DocumentURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
