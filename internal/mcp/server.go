package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-score-reader/internal/config"
	"github.com/a3tai/mcp-score-reader/internal/descriptions"
	"github.com/a3tai/mcp-score-reader/internal/history"
	"github.com/a3tai/mcp-score-reader/internal/report"
	"github.com/a3tai/mcp-score-reader/internal/scoring"
	"github.com/a3tai/mcp-score-reader/internal/service"
	"github.com/a3tai/mcp-score-reader/internal/stats"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	svc       *service.Service
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// ToolInfo describes a registered tool for the server info response.
type ToolInfo struct {
	Name        string
	Description string
	Parameters  string
}

var tools = []ToolInfo{
	{
		Name:        "score_parse_file",
		Description: "Extract student id, name and category scores from one evaluation form (.docx)",
		Parameters:  "path (required), evaluation_type (self|batch, default self)",
	},
	{
		Name:        "score_process_files",
		Description: "Score a batch of evaluation forms and write the multi-sheet spreadsheet report",
		Parameters:  "paths (required, array), evaluation_type (self|batch, default self)",
	},
	{
		Name:        "score_list_history",
		Description: "List the most recent generated reports, newest first",
		Parameters:  "none",
	},
	{
		Name:        "score_delete_report",
		Description: "Delete a generated report and its spreadsheet",
		Parameters:  "id (required), password (required)",
	},
	{
		Name:        "score_statistics",
		Description: "Show processed file counts and average processing time",
		Parameters:  "none",
	},
	{
		Name:        "score_server_info",
		Description: "Show server configuration, limits and available tools",
		Parameters:  "none",
	},
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc *service.Service, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		svc:       svc,
		mcpServer: mcpServer,
		logger:    logger,
	}
	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func evaluationTypeOption() mcp.ToolOption {
	return mcp.WithString("evaluation_type",
		mcp.Description("Which score column to read: self (自评) or batch (班评)"),
		mcp.Enum(string(scoring.EvaluationSelf), string(scoring.EvaluationBatch)),
	)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"score_parse_file",
		mcp.WithDescription(descriptions.ScoreParseFileDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the .docx form, relative to the upload directory or absolute within it"),
		),
		evaluationTypeOption(),
	), s.handleParseFile)

	s.mcpServer.AddTool(mcp.NewTool(
		"score_process_files",
		mcp.WithDescription(descriptions.ScoreProcessFilesDescription),
		mcp.WithArray("paths",
			mcp.Required(),
			mcp.Description("Paths to the .docx forms, in report order"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		evaluationTypeOption(),
	), s.handleProcessFiles)

	s.mcpServer.AddTool(mcp.NewTool(
		"score_list_history",
		mcp.WithDescription(descriptions.ScoreListHistoryDescription),
	), s.handleListHistory)

	s.mcpServer.AddTool(mcp.NewTool(
		"score_delete_report",
		mcp.WithDescription(descriptions.ScoreDeleteReportDescription),
		mcp.WithString("id", mcp.Required(), mcp.Description("Report id from score_list_history")),
		mcp.WithString("password", mcp.Required(), mcp.Description("Admin password")),
	), s.handleDeleteReport)

	s.mcpServer.AddTool(mcp.NewTool(
		"score_statistics",
		mcp.WithDescription(descriptions.ScoreStatisticsDescription),
	), s.handleStatistics)

	s.mcpServer.AddTool(mcp.NewTool(
		"score_server_info",
		mcp.WithDescription(descriptions.ScoreServerInfoDescription),
	), s.handleServerInfo)
}

func evaluationType(request mcp.CallToolRequest) (scoring.EvaluationType, error) {
	raw, _ := request.GetArguments()["evaluation_type"].(string)
	return scoring.ParseEvaluationType(raw)
}

func (s *Server) handleParseFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := evaluationType(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := s.svc.ParseFile(ctx, path, t)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Evaluation form: %s (%s)\n\n", path, t)
	text += report.RenderText(report.NewTable([]scoring.StudentRecord{rec}).Summary())
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleProcessFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := stringSlice(request.GetArguments()["paths"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := evaluationType(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.svc.Process(ctx, service.ProcessRequest{Type: t, Paths: paths})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatProcessResult(res)), nil
}

func (s *Server) handleListHistory(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.svc.History(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(entries)), nil
}

func (s *Server) handleDeleteReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	password, err := request.RequireString("password")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.svc.Delete(ctx, id, password); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Report %s deleted", id)), nil
}

func (s *Server) handleStatistics(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatStatistics(s.svc.Statistics())), nil
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}

func stringSlice(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss, nil
		}
		return nil, errors.New("required argument \"paths\" must be an array of strings")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, errors.New("required argument \"paths\" must be an array of strings")
		}
		out = append(out, str)
	}
	return out, nil
}

func (s *Server) formatProcessResult(res *service.ProcessResult) string {
	text := fmt.Sprintf("Report generated: %s\n", res.ReportID)
	text += fmt.Sprintf("Evaluation type: %s\n", res.Type)
	text += fmt.Sprintf("Students: %d\n", len(res.Records))
	text += fmt.Sprintf("Output: %s\n", res.OutputPath)
	text += fmt.Sprintf("Download: %s\n", s.downloadURL(res.ReportID))
	text += fmt.Sprintf("Processing time: %.2fs\n\n", res.Elapsed.Seconds())
	text += res.Text
	return text
}

func formatHistory(entries []history.Entry) string {
	if len(entries) == 0 {
		return "No reports generated yet"
	}
	text := fmt.Sprintf("Recent reports (%d):\n", len(entries))
	for i, e := range entries {
		text += fmt.Sprintf("\n%d. %s [%s]\n", i+1, e.ID, e.Type)
		text += fmt.Sprintf("   File: %s\n", e.FileName)
		text += fmt.Sprintf("   Created: %s (%.2fs)\n", e.Timestamp, e.ProcessingTime)
		text += fmt.Sprintf("   Sources: %s\n", strings.Join(e.OriginalFiles, ", "))
	}
	return text
}

func formatStatistics(snap stats.Snapshot) string {
	text := "Processing Statistics\n"
	text += fmt.Sprintf("Total files: %d\n", snap.TotalFiles)
	text += fmt.Sprintf("Average time per file: %.2fs\n", snap.AverageSeconds)
	for _, t := range []scoring.EvaluationType{scoring.EvaluationSelf, scoring.EvaluationBatch} {
		ts := snap.ByType[t]
		text += fmt.Sprintf("  %s: %d files, %.2fs\n", t, ts.Files, ts.ProcessingTime)
	}
	return text
}

func (s *Server) formatServerInfo() string {
	text := fmt.Sprintf("%s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("Upload directory: %s\n", s.svc.UploadDirectory())
	text += fmt.Sprintf("Output directory: %s\n", s.config.OutputDirectory)
	text += fmt.Sprintf("Max file size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("Max batch size: %d MB\n", s.config.BatchMaxSize/(1024*1024))
	text += fmt.Sprintf("Self-evaluation rate limit: %d per minute\n", s.config.SelfRateLimit)
	text += fmt.Sprintf("History: %s (%d entries)\n", s.config.HistoryBackend, s.config.HistoryLimit)

	text += "\nAvailable Tools:\n"
	for _, tool := range tools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}
	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

func (s *Server) runStdioMode(_ context.Context) error {
	s.logger.Debug("starting score MCP server in stdio mode",
		"upload_dir", s.config.UploadDirectory)

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
