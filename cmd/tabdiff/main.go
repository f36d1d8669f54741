// Command tabdiff is the CLI front end for the sheet diff engine
// (spec.md §6's "CLI command surface" collaborator interface): `diff`
// compares two workbooks, `info` lists past comparisons recorded by
// internal/persistence, and `serve-mcp` exposes the same entry points
// as MCP tools for editor/agent integrations.
//
// Flag parsing follows sqldef's cmd/*def.go idiom: option structs
// handed to jessevdk/go-flags rather than the stdlib flag package,
// extended here with go-flags' subcommand support (AddCommand +
// Execute) since this CLI has three distinct modes instead of one.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/sheetdiff/sheetdiff/internal/config"
	"github.com/sheetdiff/sheetdiff/internal/diffop"
	"github.com/sheetdiff/sheetdiff/internal/engine"
	"github.com/sheetdiff/sheetdiff/internal/grid"
	"github.com/sheetdiff/sheetdiff/internal/mcpsurface"
	"github.com/sheetdiff/sheetdiff/internal/metrics"
	"github.com/sheetdiff/sheetdiff/internal/persistence"
	"github.com/sheetdiff/sheetdiff/internal/sink"
	"github.com/sheetdiff/sheetdiff/internal/stringpool"
	"github.com/sheetdiff/sheetdiff/internal/workbook"
)

// Exit codes per spec.md §6: 0 = no ops and complete, 1 = any op
// emitted or completion is false, >1 reserved for invocation errors.
const (
	exitClean      = 0
	exitHasChanges = 1
	exitInvocation = 2
)

func main() {
	var topOpts struct{}
	parser := flags.NewParser(&topOpts, flags.Default)
	parser.Name = "tabdiff"

	parser.AddCommand("diff", "Compare two workbooks", "Loads two xlsx/xlsm workbooks and prints a JSON diff report (or a --jsonl stream).", &diffCommand{})
	parser.AddCommand("info", "List recorded comparisons", "Lists the most recent diff runs recorded with diff --history-dir.", &infoCommand{})
	parser.AddCommand("serve-mcp", "Serve diff tools over MCP", "Exposes diff/diff_database_mode as MCP tools over streamable HTTP.", &serveMCPCommand{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(exitClean)
		}
		os.Exit(exitInvocation)
	}
}

type diffCommand struct {
	Preset     string `long:"preset" description:"Config preset: fastest, balanced, most_precise" default:"balanced"`
	ConfigFile string `long:"config" description:"Path to a JSON DiffConfig overriding --preset" value-name:"path"`
	JSONLines  bool   `long:"jsonl" description:"Stream JSON-Lines (Begin/op.../End) instead of one JSON report"`
	Timeout    uint64 `long:"timeout-seconds" description:"Abort and mark the report incomplete after this many seconds" value-name:"seconds"`
	MaxMemory  uint64 `long:"max-memory-mb" description:"Fall back to positional diff if the estimated peak exceeds this" value-name:"mb"`
	KeyColumns string `long:"key-columns" description:"Comma-separated 0-based column indices; enables database-mode diff on --sheet" value-name:"cols"`
	Sheet      string `long:"sheet" description:"Sheet name to diff in database mode" value-name:"name"`
	HistoryDir string `long:"history-dir" description:"Badger directory recording this comparison for later 'tabdiff info' lookups" value-name:"dir"`
	Metrics    bool   `long:"metrics" description:"Collect per-stage timing/count metrics and print them to stderr"`

	Args struct {
		Old string `positional-arg-name:"old.xlsx"`
		New string `positional-arg-name:"new.xlsx"`
	} `positional-args:"yes" required:"yes"`
}

func (c *diffCommand) Execute(_ []string) error {
	cfg, err := c.resolveConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "tabdiff:", err)
		os.Exit(exitInvocation)
	}

	oldWB, err := workbook.Open(c.Args.Old)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tabdiff: %s: %v\n", c.Args.Old, err)
		os.Exit(exitInvocation)
	}
	newWB, err := workbook.Open(c.Args.New)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tabdiff: %s: %v\n", c.Args.New, err)
		os.Exit(exitInvocation)
	}

	pool := stringpool.New()

	var (
		opCount  int
		complete bool
		warnings []string
		runStats *metrics.Snapshot
	)
	if c.KeyColumns != "" {
		opCount, complete, warnings, runStats, err = c.runDatabaseMode(oldWB, newWB, cfg, pool)
	} else {
		opCount, complete, warnings, runStats, err = c.runWorkbookDiff(oldWB, newWB, cfg, pool)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "tabdiff:", err)
		os.Exit(exitInvocation)
	}

	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "tabdiff: warning:", w)
	}

	if c.Metrics && runStats != nil {
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(runStats)
	}

	if c.HistoryDir != "" {
		recordHistory(c.HistoryDir, c.Args.Old, c.Args.New, opCount, complete, warnings)
	}

	if opCount == 0 && complete {
		os.Exit(exitClean)
	}
	os.Exit(exitHasChanges)
	return nil
}

func (c *diffCommand) resolveConfig() (*config.DiffConfig, error) {
	if c.ConfigFile != "" {
		return config.LoadOrDefault(c.ConfigFile)
	}
	preset := strings.ToLower(c.Preset)
	if preset == "" {
		preset = "balanced"
	}
	cfg, err := config.Preset(preset)
	if err != nil {
		return nil, err
	}
	if c.Timeout > 0 {
		cfg.TimeoutSeconds = c.Timeout
	}
	if c.MaxMemory > 0 {
		cfg.MaxMemoryMB = c.MaxMemory
	}
	if c.Metrics {
		cfg.CollectMetrics = true
	}
	return cfg, nil
}

func (c *diffCommand) runWorkbookDiff(oldWB, newWB *engine.Workbook, cfg *config.DiffConfig, pool *stringpool.Pool) (int, bool, []string, *metrics.Snapshot, error) {
	if c.JSONLines {
		s := sink.NewJSONLinesSink(os.Stdout)
		summary, err := engine.DiffStreaming(oldWB, newWB, cfg, pool, s)
		if err != nil {
			return 0, false, nil, nil, err
		}
		return summary.OpCount, summary.Complete, summary.Warnings, summary.Metrics, nil
	}

	report, err := engine.Diff(oldWB, newWB, cfg, pool)
	if err != nil {
		return 0, false, nil, nil, err
	}
	if err := json.NewEncoder(os.Stdout).Encode(report); err != nil {
		return 0, false, nil, nil, err
	}
	return len(report.Ops), report.Complete, report.Warnings, report.Metrics, nil
}

func (c *diffCommand) runDatabaseMode(oldWB, newWB *engine.Workbook, cfg *config.DiffConfig, pool *stringpool.Pool) (int, bool, []string, *metrics.Snapshot, error) {
	oldGrid, err := sheetGrid(oldWB, c.Sheet)
	if err != nil {
		return 0, false, nil, nil, err
	}
	newGrid, err := sheetGrid(newWB, c.Sheet)
	if err != nil {
		return 0, false, nil, nil, err
	}
	keyCols, err := parseKeyColumns(c.KeyColumns)
	if err != nil {
		return 0, false, nil, nil, err
	}

	if c.JSONLines {
		s := sink.NewJSONLinesSink(os.Stdout)
		summary, err := engine.DiffDatabaseMode(oldGrid, newGrid, keyCols, pool, cfg, s)
		if err != nil {
			return 0, false, nil, nil, err
		}
		return summary.OpCount, summary.Complete, summary.Warnings, summary.Metrics, nil
	}

	vs := sink.NewVecSink()
	summary, err := engine.DiffDatabaseMode(oldGrid, newGrid, keyCols, pool, cfg, vs)
	if err != nil {
		return 0, false, nil, nil, err
	}
	report := diffop.FromOpsAndSummary(vs.Ops(), summary, pool.Strings())
	if err := json.NewEncoder(os.Stdout).Encode(report); err != nil {
		return 0, false, nil, nil, err
	}
	return len(report.Ops), report.Complete, report.Warnings, report.Metrics, nil
}

type infoCommand struct {
	HistoryDir string `long:"history-dir" description:"Badger directory previously passed to 'diff --history-dir'" required:"yes" value-name:"dir"`
	Limit      int    `long:"limit" description:"Maximum records to print, newest first (0 = no limit)" default:"20"`
}

func (c *infoCommand) Execute(_ []string) error {
	store, err := persistence.Open(c.HistoryDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tabdiff:", err)
		os.Exit(exitInvocation)
	}
	defer store.Close()

	records, err := store.Recent(c.Limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tabdiff:", err)
		os.Exit(exitInvocation)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			fmt.Fprintln(os.Stderr, "tabdiff:", err)
			os.Exit(exitInvocation)
		}
	}
	os.Exit(exitClean)
	return nil
}

type serveMCPCommand struct {
	Addr string `long:"addr" description:"Listen address for the MCP streamable-HTTP endpoint" default:":8089"`
}

func (c *serveMCPCommand) Execute(_ []string) error {
	if err := mcpsurface.Serve(c.Addr); err != nil {
		fmt.Fprintln(os.Stderr, "tabdiff: mcp server:", err)
		os.Exit(exitInvocation)
	}
	return nil
}

func sheetGrid(wb *engine.Workbook, name string) (*grid.Grid, error) {
	for _, sh := range wb.Sheets {
		if sh.Name == name {
			return sh.Grid, nil
		}
	}
	return nil, fmt.Errorf("sheet %q not found", name)
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
		return nil, fmt.Errorf("--key-columns given but no columns parsed")
	}
	return cols, nil
}

func recordHistory(dir, oldPath, newPath string, opCount int, complete bool, warnings []string) {
	store, err := persistence.Open(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tabdiff: history:", err)
		return
	}
	defer store.Close()
	if _, err := store.Append(persistence.Record{
		OldPath:  oldPath,
		NewPath:  newPath,
		OpCount:  opCount,
		Complete: complete,
		Warnings: warnings,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "tabdiff: history:", err)
	}
}
