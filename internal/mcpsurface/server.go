// Package mcpsurface exposes the sheet diff engine as MCP tools so an
// editor or agent can request a comparison without shelling out to the
// CLI. Grounded on server/mcp/server.go and tools.go (the teacher's
// mark3labs/mcp-go wiring for its "query"/"list_databases" tools):
// the same NewMCPServer/AddTool/StreamableHTTPServer shape, with the
// SQL session dependency replaced by the diff engine's own public
// entry points (engine.Diff, engine.DiffDatabaseMode).
package mcpsurface

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/sheetdiff/sheetdiff/internal/config"
	"github.com/sheetdiff/sheetdiff/internal/diffop"
	"github.com/sheetdiff/sheetdiff/internal/engine"
	"github.com/sheetdiff/sheetdiff/internal/grid"
	"github.com/sheetdiff/sheetdiff/internal/sink"
	"github.com/sheetdiff/sheetdiff/internal/stringpool"
	"github.com/sheetdiff/sheetdiff/internal/workbook"
)

// toolDeps holds nothing but request-scoped state; unlike the teacher's
// ToolDeps there is no shared *api.DB session to hold open, since every
// diff call opens its own two workbooks and tears them down.
type toolDeps struct{}

// Serve starts the MCP server (blocking), exposing "diff" and
// "diff_database_mode" tools over streamable HTTP at addr.
func Serve(addr string) error {
	deps := &toolDeps{}

	srv := mcpserver.NewMCPServer(
		"sheetdiff",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	diffTool := mcp.NewTool("diff",
		mcp.WithDescription("Compute a structured diff between two xlsx/xlsm workbooks and return the JSON report (spec.md report shape: version/strings/ops/complete/warnings)."),
		mcp.WithString("old_path", mcp.Description("Path to the old workbook"), mcp.Required()),
		mcp.WithString("new_path", mcp.Description("Path to the new workbook"), mcp.Required()),
		mcp.WithString("preset", mcp.Description("Config preset: fastest, balanced (default), most_precise")),
		mcp.WithString("with_metrics", mcp.Description("\"true\" to attach per-stage timing/count metrics to the report")),
	)

	dbModeTool := mcp.NewTool("diff_database_mode",
		mcp.WithDescription("Diff one sheet of two workbooks by primary-key columns instead of row alignment, for table-shaped sheets."),
		mcp.WithString("old_path", mcp.Description("Path to the old workbook"), mcp.Required()),
		mcp.WithString("new_path", mcp.Description("Path to the new workbook"), mcp.Required()),
		mcp.WithString("sheet", mcp.Description("Sheet name present on both sides"), mcp.Required()),
		mcp.WithString("key_columns", mcp.Description("Comma-separated 0-based column indices forming the row key"), mcp.Required()),
	)

	srv.AddTool(diffTool, deps.handleDiff)
	srv.AddTool(dbModeTool, deps.handleDiffDatabaseMode)

	httpServer := mcpserver.NewStreamableHTTPServer(srv, mcpserver.WithEndpointPath("/mcp"))

	log.Printf("[mcpsurface] serving diff tools on %s", addr)
	return httpServer.Start(addr)
}

func (d *toolDeps) handleDiff(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	oldPath := request.GetString("old_path", "")
	newPath := request.GetString("new_path", "")
	if oldPath == "" || newPath == "" {
		return mcp.NewToolResultError("old_path and new_path are required"), nil
	}

	cfg, err := presetConfig(request.GetString("preset", "balanced"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg.CollectMetrics = strings.EqualFold(request.GetString("with_metrics", ""), "true")

	oldWB, err := workbook.Open(oldPath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("opening %s: %v", oldPath, err)), nil
	}
	newWB, err := workbook.Open(newPath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("opening %s: %v", newPath, err)), nil
	}

	pool := stringpool.New()
	report, err := engine.Diff(oldWB, newWB, cfg, pool)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("diff failed: %v", err)), nil
	}

	text, err := reportText(report)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (d *toolDeps) handleDiffDatabaseMode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	oldPath := request.GetString("old_path", "")
	newPath := request.GetString("new_path", "")
	sheet := request.GetString("sheet", "")
	keyCols := request.GetString("key_columns", "")
	if oldPath == "" || newPath == "" || sheet == "" || keyCols == "" {
		return mcp.NewToolResultError("old_path, new_path, sheet, and key_columns are required"), nil
	}

	cols, err := parseKeyColumns(keyCols)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	oldWB, err := workbook.Open(oldPath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("opening %s: %v", oldPath, err)), nil
	}
	newWB, err := workbook.Open(newPath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("opening %s: %v", newPath, err)), nil
	}

	oldGrid, err := sheetGrid(oldWB, sheet)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newGrid, err := sheetGrid(newWB, sheet)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pool := stringpool.New()
	vs := sink.NewVecSink()
	summary, err := engine.DiffDatabaseMode(oldGrid, newGrid, cols, pool, config.Default(), vs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("diff failed: %v", err)), nil
	}
	report := diffop.FromOpsAndSummary(vs.Ops(), summary, pool.Strings())

	text, err := reportText(report)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func sheetGrid(wb *engine.Workbook, name string) (*grid.Grid, error) {
	for _, sh := range wb.Sheets {
		if sh.Name == name {
			return sh.Grid, nil
		}
	}
	return nil, fmt.Errorf("sheet %q not found", name)
}

func presetConfig(preset string) (*config.DiffConfig, error) {
	name := strings.ToLower(preset)
	if name == "" {
		name = "balanced"
	}
	return config.Preset(name)
}

func parseKeyColumns(raw string) ([]uint32, error) {
	parts := strings.Split(raw, ",")
	cols := make([]uint32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		idx, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid key column %q: %w", p, err)
		}
		cols = append(cols, uint32(idx))
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("key_columns given but no columns parsed")
	}
	return cols, nil
}

func reportText(report diffop.DiffReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	return string(data), nil
}
