package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/atikulmunna/logrank/internal/logs"
	"github.com/atikulmunna/logrank/internal/output"
	"github.com/atikulmunna/logrank/internal/parser"
	"github.com/atikulmunna/logrank/internal/pipeline"
	"github.com/atikulmunna/logrank/internal/source"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|-]",
	Short: "Rank status codes and error sources in an access log",
	Long: `Parse an access log (Common or Combined Log Format by default), count
responses per status code and error responses per client address, print a
summary and write both rankings as CSV files.

Examples:
  logrank analyze /var/log/nginx/access.log
  logrank analyze access.log --out-dir reports --top 20
  cat access.log | logrank analyze - --output json --no-csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	f := analyzeCmd.Flags()
	f.StringP("out-dir", "d", ".", "directory for CSV reports")
	f.StringP("format", "f", "clf", "log format: clf, json, auto, regex")
	f.String("pattern", "", "regex for --format regex (groups ip and status, or 1 and 6)")
	f.IntP("workers", "w", 0, "parser goroutines (default: number of CPUs)")
	f.Int("threshold", 400, "lowest status code counted as an error")
	f.IntP("top", "n", 10, "rows shown per table in text output (0 = all)")
	f.StringP("output", "o", "text", "terminal output: text, json")
	f.Bool("no-csv", false, "skip writing CSV reports")

	for key, flag := range map[string]string{
		"output.dir":             "out-dir",
		"parser.format":          "format",
		"parser.pattern":         "pattern",
		"pipeline.workers":       "workers",
		"report.error_threshold": "threshold",
		"report.top":             "top",
		"output.format":          "output",
		"output.no_csv":          "no-csv",
	} {
		cobra.CheckErr(viper.BindPFlag(key, f.Lookup(flag)))
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(viper.GetViper())
	if len(args) == 1 {
		cfg.Input = args[0]
	}

	if cfg.Input == source.StdinName && !stdinIsPiped() {
		fmt.Fprintln(cmd.ErrOrStderr(), "Reading access log from standard input (Ctrl-D to finish)...")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return analyze(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// analyze runs one file through the pipeline, renders the summary to stdout
// and writes the CSV reports. Progress and logs go to stderr.
func analyze(ctx context.Context, cfg Config, stdout, stderr io.Writer) error {
	logger, err := logs.New(stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	p, err := parser.New(cfg.Format, cfg.Pattern)
	if err != nil {
		return err
	}
	renderer, err := output.New(cfg.Output, stdout, cfg.Top)
	if err != nil {
		return err
	}

	src, err := source.Open(cfg.Input)
	if errors.Is(err, source.ErrNotFound) {
		return fmt.Errorf("input file %q not found", cfg.Input)
	}
	if err != nil {
		return err
	}

	progress := output.NewProgress(stderr)
	progress.Step("Loading data from %s", src.Name())

	pl := pipeline.New(p,
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithErrorThreshold(cfg.ErrorThreshold),
		pipeline.WithLogger(logger),
	)

	var res *pipeline.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return src.Start(gctx) })
	g.Go(func() error {
		var err error
		res, err = pl.Run(gctx, src.Lines())
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	progress.Step("Parsed %d of %d lines (%d rejected)", res.Stats.Accepted, res.Stats.Lines, res.Stats.Rejected)

	if err := renderer.Render(res); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}

	if cfg.NoCSV {
		progress.Done("Log analysis complete.")
		return nil
	}

	sink := &output.CSVSink{Dir: cfg.OutDir, StatusFile: cfg.StatusFile, ErrorIPFile: cfg.ErrorIPFile}
	paths, err := sink.Write(res.Status, res.ErrorIPs)
	if err != nil {
		return fmt.Errorf("write reports: %w", err)
	}
	progress.Done("Log analysis complete. Output files created:", paths...)
	return nil
}

// stdinIsPiped reports whether standard input is not a terminal.
func stdinIsPiped() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}
