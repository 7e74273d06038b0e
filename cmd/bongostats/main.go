// Package main provides the CLI entrypoint for bongostats.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/bongostats/internal/activity"
	"github.com/verte-zerg/bongostats/internal/autosave"
	"github.com/verte-zerg/bongostats/internal/config"
	"github.com/verte-zerg/bongostats/internal/dayfile"
	"github.com/verte-zerg/bongostats/internal/feed"
	"github.com/verte-zerg/bongostats/internal/keynames"
	"github.com/verte-zerg/bongostats/internal/model"
	"github.com/verte-zerg/bongostats/internal/stats"
	"github.com/verte-zerg/bongostats/internal/statsui"
	"github.com/verte-zerg/bongostats/internal/store"
	"github.com/verte-zerg/bongostats/internal/tui"
	"github.com/verte-zerg/bongostats/internal/wrapped"
)

const (
	formatTUI   = "tui"
	formatJSON  = "json"
	formatPlain = "plain"

	dateLayout = "2006-01-02"
)

var (
	rootBaseDir    string
	rootConfigPath string
	rootVerbose    bool
	rootIndex      bool

	runEvents   string
	runEvery    int
	runInterval float64
	runMinGap   float64

	wrappedYear    int
	wrappedJSON    bool
	wrappedPlain   bool
	wrappedTop     int
	wrappedWorkers int

	historyFrom string
	historyTo   string
	historyTop  int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bongostats",
		Short:         "Keyboard and mouse activity statistics",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootBaseDir, "base-dir", config.DefaultBaseDir(), "folder holding the DATA directory")
	flags.StringVar(&rootConfigPath, "config", config.DefaultConfigPath(), "config file path")
	flags.BoolVarP(&rootVerbose, "verbose", "v", false, "debug logging on stderr")
	flags.BoolVar(&rootIndex, "index", true, "mirror saved days into the history index")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newRecordCmd())
	rootCmd.AddCommand(newTodayCmd())
	rootCmd.AddCommand(newWrappedCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newKeyCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Record activity until interrupted",
		Long: "Record activity until interrupted. Without --events the terminal view\n" +
			"captures keys and mouse clicks; with --events, lines of the form\n" +
			"\"key <code|name>\", \"mouse <LEFT|RIGHT|MIDDLE>\" or \"save\" are read\n" +
			"from the file (\"-\" for stdin).",
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}
	cmd.Flags().StringVar(&runEvents, "events", "", "read events from a file or - for stdin")
	cmd.Flags().IntVar(&runEvery, "every", autosave.DefaultEvery, "save after this many events")
	cmd.Flags().Float64Var(&runInterval, "interval", autosave.DefaultInterval.Seconds(), "periodic save interval in seconds")
	cmd.Flags().Float64Var(&runMinGap, "min-gap", autosave.DefaultMinGap.Seconds(), "minimum seconds between event-triggered saves")
	return cmd
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Verbose)
	st, closeIndex := openActivity(cfg, logger)
	defer closeIndex()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	saver := autosave.New(st, autosave.Config{
		Every:    cfg.SaveEvery,
		Interval: cfg.SaveInterval,
		MinGap:   cfg.SaveMinGap,
		Logger:   logger,
	})
	saveCtx, stopSaver := context.WithCancel(context.Background())
	saveDone := make(chan error, 1)
	go func() {
		saveDone <- saver.Run(saveCtx)
	}()

	var runErr error
	if cfg.EventsPath != "" {
		runErr = runFeed(ctx, cfg.EventsPath, st, saver, logger)
	} else {
		runErr = runCapture(ctx, st, saver)
	}

	stopSaver()
	if err := <-saveDone; err != nil {
		logErrf("final save failed: %v\n", err)
		if runErr == nil {
			runErr = fmt.Errorf("failed to save: %w", err)
		}
	}
	logger.Debug("run finished", "saves", saver.Saves(), "minutes", st.TotalMinutesOpen())
	return runErr
}

func runCapture(ctx context.Context, st *activity.Store, saver *autosave.Saver) error {
	m := tui.NewModel(st, tui.Options{Notify: saver.Notify})
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func runFeed(ctx context.Context, path string, st *activity.Store, saver *autosave.Saver, logger *slog.Logger) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open events: %w", err)
		}
		defer func() {
			if cerr := file.Close(); cerr != nil {
				// Best-effort close of a read-only file.
				_ = cerr
			}
		}()
		r = file
	}

	f := &feed.Feed{Recorder: st, Saver: st, OnEvent: saver.Notify, Logger: logger}
	type result struct {
		stats feed.Stats
		err   error
	}
	done := make(chan result, 1)
	go func() {
		s, err := f.Run(ctx, r)
		done <- result{stats: s, err: err}
	}()

	select {
	case <-ctx.Done():
		// A blocked stdin read cannot be interrupted; the final save still runs.
		return nil
	case res := <-done:
		logger.Info("events consumed",
			"keys", res.stats.Keys,
			"clicks", res.stats.Clicks,
			"saves", res.stats.Saves,
			"skipped", res.stats.Skipped)
		if res.err != nil && !errors.Is(res.err, context.Canceled) {
			return fmt.Errorf("failed to read events: %w", res.err)
		}
		return nil
	}
}

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record inputs and save immediately",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "key <code|name>...",
		Short: "Record key presses",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRecordKeyCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "mouse <LEFT|RIGHT|MIDDLE>...",
		Short: "Record mouse clicks",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRecordMouseCmd,
	})
	return cmd
}

func runRecordKeyCmd(cmd *cobra.Command, args []string) error {
	codes := make([]int, 0, len(args))
	for _, arg := range args {
		code, err := feed.ParseKey(arg)
		if err != nil {
			return err
		}
		codes = append(codes, code)
	}
	return recordAndSave(cmd, func(st *activity.Store) error {
		for _, code := range codes {
			st.RecordKeyPress(code)
		}
		return nil
	})
}

func runRecordMouseCmd(cmd *cobra.Command, args []string) error {
	return recordAndSave(cmd, func(st *activity.Store) error {
		for _, arg := range args {
			if !st.RecordMouseClick(arg) {
				return fmt.Errorf("unknown mouse button %q (want LEFT, RIGHT or MIDDLE)", arg)
			}
		}
		return nil
	})
}

func recordAndSave(cmd *cobra.Command, record func(*activity.Store) error) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Verbose)
	st, closeIndex := openActivity(cfg, logger)
	defer closeIndex()

	if err := record(st); err != nil {
		return err
	}
	if err := st.Save(); err != nil {
		return fmt.Errorf("failed to save: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s key presses today\n", st.Today(), stats.FormatCount(st.TotalKeyPresses()))
	return err
}

func newTodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's counters",
		Args:  cobra.NoArgs,
		RunE:  runTodayCmd,
	}
}

func runTodayCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Verbose)
	st := activity.Open(cfg.BaseDir, activity.WithLogger(logger))
	out := cmd.OutOrStdout()
	return stats.RenderToday(out, st.Snapshot(), stats.Options{
		Width: stats.TerminalWidth(),
		Color: stats.UseColor(out),
		Top:   cfg.Top,
		Names: keynames.Name,
	})
}

func newWrappedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wrapped",
		Short: "Show the year summary",
		Args:  cobra.NoArgs,
		RunE:  runWrappedCmd,
	}
	cmd.Flags().IntVar(&wrappedYear, "year", 0, "year to summarize (default: current year)")
	cmd.Flags().BoolVar(&wrappedJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&wrappedPlain, "plain", false, "print a text report instead of the interactive view")
	cmd.Flags().IntVar(&wrappedTop, "top", wrapped.DefaultTop, "number of ranked inputs")
	cmd.Flags().IntVar(&wrappedWorkers, "workers", 0, "parallel file reads (0 = number of CPUs)")
	cmd.MarkFlagsMutuallyExclusive("json", "plain")
	return cmd
}

func runWrappedCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Verbose)
	loc := dayfile.Locator{BaseDir: cfg.BaseDir}
	agg := wrapped.Aggregator{
		Names:   keynames.Name,
		Logger:  logger,
		Workers: cfg.Workers,
		Top:     cfg.Top,
	}
	load := func(year int) (model.AggregateReport, error) {
		return agg.Year(loc.YearFolder(year), year)
	}

	out := cmd.OutOrStdout()
	format := cfg.WrappedFormat
	if format == formatTUI && !isTerminal(out) {
		format = formatPlain
	}
	switch format {
	case formatJSON:
		report, err := load(cfg.WrappedYear)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case formatPlain:
		report, err := load(cfg.WrappedYear)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		return stats.RenderWrapped(out, report, stats.Options{
			Width: stats.TerminalWidth(),
			Color: stats.UseColor(out),
			Top:   cfg.Top,
			Names: keynames.Name,
		})
	}

	m := statsui.NewModel(load, statsui.Options{
		Year:    cfg.WrappedYear,
		Names:   keynames.Name,
		YearDir: loc.YearFolder,
	})
	defer func() {
		if cerr := m.Close(); cerr != nil {
			logger.Debug("failed to close watcher", "err", cerr)
		}
	}()
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run wrapped TUI: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show indexed day totals",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyFrom, "from", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&historyTo, "to", "", "last day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyTop, "top", wrapped.DefaultTop, "number of busiest days and keys")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	from, err := parseDay("from", historyFrom)
	if err != nil {
		return err
	}
	to, err := parseDay("to", historyTo)
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return fmt.Errorf("--to must not be before --from")
	}
	if historyTop <= 0 {
		return fmt.Errorf("--top must be > 0")
	}

	st, err := store.Open(config.IndexPath(cfg.BaseDir))
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	h, err := stats.BuildHistory(cmd.Context(), st, from, to)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	return stats.RenderHistory(out, h, stats.Options{
		Width: stats.TerminalWidth(),
		Color: stats.UseColor(out),
		Top:   historyTop,
		Names: keynames.Name,
	})
}

func newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key <query>",
		Short: "Look up key codes by name or number",
		Args:  cobra.ExactArgs(1),
		RunE:  runKeyCmd,
	}
}

func runKeyCmd(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	query := strings.TrimSpace(args[0])
	if code, err := strconv.Atoi(query); err == nil {
		_, err := fmt.Fprintf(out, "%d\t%s\n", code, keynames.Name(code))
		return err
	}
	matches := keynames.Find(query)
	if len(matches) == 0 {
		return fmt.Errorf("no key matches %q", query)
	}
	for _, m := range matches {
		if _, err := fmt.Fprintf(out, "%d\t%s\n", m.Code, m.Name); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
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
	path := rootConfigPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.Template), 0o644); err != nil {
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

// resolveConfig merges flags, the config file and defaults. Flags that were
// set explicitly win over the file.
func resolveConfig(cmd *cobra.Command) (model.Config, error) {
	fileCfg, err := config.LoadConfig(rootConfigPath)
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return buildConfig(cmd, fileCfg, time.Now())
}

func buildConfig(cmd *cobra.Command, fileCfg config.FileConfig, now time.Time) (model.Config, error) {
	baseDir := rootBaseDir
	index := rootIndex
	top := wrappedTop
	workers := wrappedWorkers
	every := runEvery
	interval := runInterval
	minGap := runMinGap

	applyStringConfig(cmd, "base-dir", &baseDir, fileCfg.Stats.BaseDir)
	applyBoolConfig(cmd, "index", &index, fileCfg.Stats.Index)
	applyIntConfig(cmd, "top", &top, fileCfg.Stats.Top)
	applyIntConfig(cmd, "workers", &workers, fileCfg.Stats.Workers)
	applyIntConfig(cmd, "every", &every, fileCfg.Autosave.Every)
	applyFloatConfig(cmd, "interval", &interval, fileCfg.Autosave.Interval)
	applyFloatConfig(cmd, "min-gap", &minGap, fileCfg.Autosave.MinGap)

	year := wrappedYear
	if year == 0 {
		year = now.Year()
	}
	format := formatTUI
	switch {
	case wrappedJSON:
		format = formatJSON
	case wrappedPlain:
		format = formatPlain
	}

	cfg := model.Config{
		BaseDir:       config.ExpandHome(strings.TrimSpace(baseDir)),
		Top:           top,
		Workers:       workers,
		Index:         index,
		SaveEvery:     every,
		SaveInterval:  secondsToDuration(interval),
		SaveMinGap:    secondsToDuration(minGap),
		Verbose:       rootVerbose,
		EventsPath:    runEvents,
		WrappedYear:   year,
		WrappedFormat: format,
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg model.Config) error {
	if cfg.BaseDir == "" {
		return fmt.Errorf("--base-dir must not be empty")
	}
	if cfg.Top <= 0 {
		return fmt.Errorf("--top must be > 0")
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("--workers must be >= 0")
	}
	if cfg.SaveEvery <= 0 {
		return fmt.Errorf("--every must be > 0")
	}
	if cfg.SaveInterval <= 0 {
		return fmt.Errorf("--interval must be > 0")
	}
	if cfg.SaveMinGap < 0 {
		return fmt.Errorf("--min-gap must be >= 0")
	}
	if cfg.WrappedYear < 1 || cfg.WrappedYear > 9999 {
		return fmt.Errorf("--year must be between 1 and 9999")
	}
	return nil
}

// openActivity opens the store and, when enabled, the history index. The
// returned func closes the index.
func openActivity(cfg model.Config, logger *slog.Logger) (*activity.Store, func()) {
	opts := []activity.Option{
		activity.WithLogger(logger),
		activity.WithKeyNames(keynames.Name),
		activity.WithAggregateWorkers(cfg.Workers),
	}
	closeIndex := func() {}
	if cfg.Index {
		idx, err := store.Open(config.IndexPath(cfg.BaseDir))
		if err != nil {
			logger.Warn("history index disabled", "err", err)
		} else {
			opts = append(opts, activity.WithIndex(idx))
			closeIndex = func() {
				if cerr := idx.Close(); cerr != nil {
					logErrf("failed to close db: %v\n", cerr)
				}
			}
		}
	}
	return activity.Open(cfg.BaseDir, opts...), closeIndex
}

func parseDay(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s value: %w", flag, err)
	}
	return t, nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
