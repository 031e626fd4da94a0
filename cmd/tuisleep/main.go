// Package main provides the CLI entrypoint for tuisleep.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/tuisleep/internal/analysis"
	"github.com/verte-zerg/tuisleep/internal/config"
	"github.com/verte-zerg/tuisleep/internal/dashboard"
	"github.com/verte-zerg/tuisleep/internal/dataset"
	"github.com/verte-zerg/tuisleep/internal/history"
	"github.com/verte-zerg/tuisleep/internal/logging"
	"github.com/verte-zerg/tuisleep/internal/model"
	"github.com/verte-zerg/tuisleep/internal/predictor"
	"github.com/verte-zerg/tuisleep/internal/render"
	"github.com/verte-zerg/tuisleep/internal/sample"
	"github.com/verte-zerg/tuisleep/internal/server"
	"github.com/verte-zerg/tuisleep/internal/store"
)

const (
	defaultAddr        = ":8080"
	defaultCurveWindow = 4
)

var (
	logLevel string
	logger   = zap.NewNop()

	analysisData   string
	analysisModel  string
	analysisRecord bool

	reportColor bool
	reportWidth int

	serveAddr string

	sampleSeed  int64
	sampleStart string
	sampleOut   string

	historySince  string
	historyLast   int
	historyWindow int

	installForce bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "tuisleep",
		Short:             "Weekly sleep analyser",
		SilenceUsage:      true,
		SilenceErrors:     false,
		PersistentPreRunE: setupCmd,
		PersistentPostRun: func(*cobra.Command, []string) {
			// Sync fails on terminals; nothing to report.
			_ = logger.Sync()
		},
		RunE: runDashboardCmd,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", logging.DefaultLevel, "log level (debug, info, warn, error)")
	addAnalysisFlags(rootCmd, true)

	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSampleCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newModelCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func addAnalysisFlags(cmd *cobra.Command, withFile bool) {
	if withFile {
		cmd.Flags().StringVar(&analysisData, "file", "", "weekly CSV dataset (default: bundled sample week)")
	}
	cmd.Flags().StringVar(&analysisModel, "model", config.DefaultModelPath(), "score model artifact (.yaml or .msgpack)")
	cmd.Flags().BoolVar(&analysisRecord, "record", true, "store successful analyses in the history database")
}

// setupCmd loads the config file and builds the logger for every command.
// The dashboard owns the terminal, so it logs to a file.
func setupCmd(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "config" {
		return nil
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "file", &analysisData, fileCfg.Analysis.Data)
	applyStringConfig(cmd, "model", &analysisModel, fileCfg.Analysis.Model)
	applyBoolConfig(cmd, "record", &analysisRecord, fileCfg.Analysis.Record)
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Serve.Addr)

	logFile := ""
	if fileCfg.Log.File != nil {
		logFile = *fileCfg.Log.File
	} else if cmd == cmd.Root() {
		logFile = config.DefaultLogPath()
	}
	l, err := logging.New(logLevel, logFile)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func runDashboardCmd(_ *cobra.Command, _ []string) error {
	engine, st, err := openEngine(analysisRecord)
	if err != nil {
		return err
	}
	defer closeStore(st)

	var hist history.Lister
	if st != nil {
		hist = st
	}
	m := dashboard.NewModel(engine, hist, dashboard.Config{
		DataPath:  analysisData,
		ModelPath: analysisModel,
		History:   model.HistoryConfig{CurveWindow: defaultCurveWindow},
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	return nil
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a plain-text weekly report",
		Args:  cobra.NoArgs,
		RunE:  runReportCmd,
	}
	addAnalysisFlags(cmd, true)
	cmd.Flags().BoolVar(&reportColor, "color", false, "force colored output")
	cmd.Flags().IntVar(&reportWidth, "width", 0, "output width (default: terminal width)")
	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	if reportWidth < 0 {
		return fmt.Errorf("--width must be >= 0")
	}
	engine, st, err := openEngine(analysisRecord)
	if err != nil {
		return err
	}
	defer closeStore(st)

	out := render.NewText(cmd.OutOrStdout(), render.WithWidth(reportWidth), render.WithColor(reportColor))
	report, err := engine.AnalyzeFile(cmd.Context(), analysisData)
	if err != nil {
		if rerr := out.RenderError(err); rerr != nil {
			return err
		}
		// Already printed in place of the report.
		cmd.SilenceErrors = true
		return err
	}
	if err := analysis.Present(report, out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := out.RenderPredictions(report.Days()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	addAnalysisFlags(cmd, false)
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	engine, st, err := openEngine(analysisRecord)
	if err != nil {
		return err
	}
	defer closeStore(st)

	var hist server.History
	if st != nil {
		hist = st
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logErrf("Listening on %s\n", serveAddr)
	if err := server.New(engine, hist, logger).ListenAndServe(ctx, serveAddr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func newSampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate a synthetic weekly dataset",
		Args:  cobra.NoArgs,
		RunE:  runSampleCmd,
	}
	cmd.Flags().Int64Var(&sampleSeed, "seed", 0, "random seed (default: time-based)")
	cmd.Flags().StringVar(&sampleStart, "start", "", "first date (YYYY-MM-DD, default: six days ago)")
	cmd.Flags().StringVarP(&sampleOut, "output", "o", "", "output CSV path (default: stdout)")
	return cmd
}

func runSampleCmd(cmd *cobra.Command, _ []string) error {
	start, err := resolveStart(sampleStart, time.Now())
	if err != nil {
		return err
	}
	week := sample.New(sampleSeed).Week(start)
	if sampleOut == "" {
		return dataset.Write(cmd.OutOrStdout(), week)
	}
	if err := writeFileAtomic(sampleOut, func(w io.Writer) error {
		return dataset.Write(w, week)
	}); err != nil {
		return err
	}
	logErrf("Wrote %s\n", sampleOut)
	return nil
}

func resolveStart(value string, now time.Time) (time.Time, error) {
	if value == "" {
		y, m, d := now.AddDate(0, 0, -(model.DaysPerWeek - 1)).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	start, err := time.Parse(model.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --start value: %w", err)
	}
	return start, nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored weekly scores",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N analyses")
	cmd.Flags().IntVar(&historyWindow, "window", defaultCurveWindow, "moving average window")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if historyWindow < 0 {
		return fmt.Errorf("--window must be >= 0")
	}
	since, err := resolveSince(historySince)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	report, err := history.BuildReport(cmd.Context(), st, model.HistoryConfig{
		Since:       since,
		Last:        historyLast,
		CurveWindow: historyWindow,
	})
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := history.RenderSummary(out, report.Analyses); err != nil {
		return err
	}
	if len(report.Analyses) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	if err := history.RenderCurve(out, report.Analyses, report.Window, 0, 0, false); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	if err := history.RenderTable(out, report.Analyses); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	return history.RenderDays(out, report.LatestDays)
}

func resolveSince(value string) (*time.Time, error) {
	since, err := history.ParseSince(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --since value: %w", err)
	}
	return since, nil
}

func newModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage the score model artifact",
		Args:  cobra.NoArgs,
	}
	install := &cobra.Command{
		Use:   "install",
		Short: "Install the bundled reference model",
		Args:  cobra.NoArgs,
		RunE:  runModelInstallCmd,
	}
	install.Flags().StringVar(&analysisModel, "model", config.DefaultModelPath(), "destination (.yaml or .msgpack)")
	install.Flags().BoolVar(&installForce, "force", false, "overwrite an existing artifact")
	cmd.AddCommand(install)
	return cmd
}

func runModelInstallCmd(_ *cobra.Command, _ []string) error {
	if err := installModel(analysisModel, installForce); err != nil {
		return err
	}
	logErrf("Wrote %s\n", analysisModel)
	return nil
}

func installModel(path string, force bool) error {
	format, err := predictor.FormatForPath(path)
	if err != nil {
		return err
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("model already exists: %s (use --force to overwrite)", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat model: %w", err)
		}
	}

	data := predictor.StarterArtifact()
	if format != predictor.FormatYAML {
		art, err := predictor.ParseStarter()
		if err != nil {
			return fmt.Errorf("failed to read bundled model: %w", err)
		}
		if data, err = predictor.Encode(art, format); err != nil {
			return fmt.Errorf("failed to encode model: %w", err)
		}
	}
	return writeFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// openEngine loads the model and, when recording, the history store. The
// returned store is nil if it is disabled or could not be opened.
func openEngine(record bool) (*analysis.Engine, *store.Store, error) {
	m, err := predictor.Load(analysisModel)
	if err != nil {
		return nil, nil, modelLoadError(analysisModel, err)
	}
	opts := []analysis.Option{analysis.WithLogger(logger)}
	if !record {
		return analysis.NewEngine(m, opts...), nil, nil
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		logger.Warn("history disabled", zap.Error(err))
		return analysis.NewEngine(m, opts...), nil, nil
	}
	opts = append(opts, analysis.WithRecorder(st))
	return analysis.NewEngine(m, opts...), st, nil
}

func modelLoadError(path string, err error) error {
	return fmt.Errorf("failed to load score model: %w\nexpected model at: %s\nInstall the reference model: tuisleep model install", err, path)
}

func closeStore(st *store.Store) {
	if st == nil {
		return
	}
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// writeFileAtomic writes through a temp file in the target directory so a
// failed write never leaves a truncated file behind.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	writer := bufio.NewWriter(tmpFile)
	if err := write(writer); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Lookup(name) == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Lookup(name) == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tuisleep configuration
# Uncomment a value to enable it. CLI flags override config values.

[analysis]
# model = %q   # Score model artifact (.yaml or .msgpack)
# data = ""              # Weekly CSV opened at start (empty: bundled sample week)
# record = true          # Store successful analyses in the history database

[serve]
# addr = %q          # HTTP API listen address

[log]
# level = %q          # debug, info, warn, error
# file = ""              # Log file (dashboard default: %s)
`,
		config.DefaultModelPath(),
		defaultAddr,
		logging.DefaultLevel,
		config.DefaultLogPath(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
