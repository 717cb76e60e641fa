// Package cli implements the command-line interface for pedcount.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/swail/pedcount/internal/logctx"
	"github.com/swail/pedcount/pkg/logging"
	"github.com/swail/pedcount/pkg/memdiag"
	"github.com/swail/pedcount/pkg/pipeline"
	"github.com/swail/pedcount/pkg/report"
)

// Exit codes returned by ExitCode.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
	ExitNoData  = 3
)

// Run executes the CLI with the given arguments, printing the ranking to
// stdout.
func Run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loadDotEnv()
	return run(ctx, args, os.Stdout, os.Stderr)
}

// ExitCode maps an error returned by Run to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, pipeline.ErrNoDataForWindow):
		return ExitNoData
	default:
		return ExitFailure
	}
}

// Message renders an error returned by Run for the terminal. A window
// without data is reported as an outcome rather than a failure.
func Message(err error) string {
	if errors.Is(err, pipeline.ErrNoDataForWindow) {
		return "No data available: " + err.Error()
	}
	return "error: " + err.Error()
}

func newFlagSet(o *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("pedcount", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.date, "date", "", "date to count pedestrians - dd/mm/yyyy")
	fs.StringVar(&o.date, "d", "", "shorthand for --date")
	fs.StringVar(&o.month, "month", "", "month to count pedestrians - mm/yyyy")
	fs.StringVar(&o.month, "m", "", "shorthand for --month")
	fs.StringVar(&o.topN, "topn", getEnv("PEDCOUNT_TOPN", fmt.Sprint(DefaultTopN)), "top n pedestrian sites to list")
	fs.StringVar(&o.topN, "n", getEnv("PEDCOUNT_TOPN", fmt.Sprint(DefaultTopN)), "shorthand for --topn")

	fs.StringVar(&o.source, "source", getEnv("PEDCOUNT_SOURCE", string(pipeline.BackendLocal)), "data source: local or s3")
	fs.StringVar(&o.file, "file", getEnv("PEDCOUNT_FILE", DefaultDataFile), "local CSV dataset (.csv or .csv.gz)")
	fs.StringVar(&o.s3URI, "s3-uri", getEnv("PEDCOUNT_S3_URI", ""), "dataset object for the s3 source (s3://bucket/key)")
	fs.IntVar(&o.sensors, "sensors", getEnvAsInt("PEDCOUNT_SENSORS", 78), "number of sensors; one chunk holds a day of readings")
	fs.IntVar(&o.chunkRows, "chunk-rows", getEnvAsInt("PEDCOUNT_CHUNK_ROWS", 0), "rows per local chunk (overrides --sensors)")
	fs.Int64Var(&o.maxPay, "max-payload", getEnvAsInt64("PEDCOUNT_MAX_PAYLOAD", 0), "max bytes of an s3 query response (0 = quarter of RAM)")

	fs.StringVar(&o.region, "region", getEnv("PEDCOUNT_S3_REGION", ""), "AWS region override")
	fs.StringVar(&o.profile, "profile", getEnv("PEDCOUNT_S3_PROFILE", ""), "AWS shared config profile")
	fs.StringVar(&o.endpoint, "endpoint", getEnv("PEDCOUNT_S3_ENDPOINT", ""), "S3-compatible endpoint URL")
	fs.BoolVar(&o.pathStyle, "path-style", getEnvAsBool("PEDCOUNT_S3_PATH_STYLE", false), "use path-style S3 addressing")

	fs.StringVar(&o.out, "out", getEnv("PEDCOUNT_OUT", ""), "also save the ranking to a directory or s3://bucket/prefix")
	fs.StringVar(&o.outFormat, "out-format", getEnv("PEDCOUNT_OUT_FORMAT", string(report.FormatCSV)), "saved ranking format: csv or parquet")

	fs.BoolVar(&o.debug, "debug", getEnvAsBool("PEDCOUNT_DEBUG", false), "enable debug logging")
	fs.BoolVar(&o.human, "human", getEnvAsBool("PEDCOUNT_HUMAN", false), "human-friendly log output")
	return fs
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var o options
	fs := newFlagSet(&o, stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", ErrUsage, fs.Args())
	}

	logging.InitWriter(stderr, o.debug, o.human)
	log := logging.WithPhase("query")

	cfg, warnings, err := buildConfig(o)
	if err != nil {
		fs.Usage()
		return err
	}
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	ctx = logctx.WithLogger(ctx, log)
	ctx = logctx.WithStr(ctx, "backend", string(cfg.Backend))
	ctx = logctx.WithInt(ctx, "top_n", cfg.TopN)
	log = logctx.FromContext(ctx)

	log.Debug().
		Str("window_kind", cfg.Window.Kind.String()).
		Str("file", cfg.LocalPath).
		Int("chunk_rows", cfg.ChunkRows).
		Str("bucket", cfg.Remote.Bucket).
		Str("key", cfg.Remote.Key).
		Msg("starting query")

	mem := memdiag.NewTracker(memdiag.DefaultConfig(), log)
	mem.Start()
	res, err := pipeline.Run(ctx, cfg)
	mem.Stop()
	if errors.Is(err, pipeline.ErrNoDataForWindow) {
		log.Info().Err(err).Msg("no data for window")
		return err
	}
	if err != nil {
		log.Error().Err(err).Msg("query failed")
		return fmt.Errorf("run query: %w", err)
	}

	ctx = logctx.WithStr(ctx, "window", res.Window.Label())
	mem.Sample()
	logging.QueryComplete(logctx.FromContext(ctx), res.Elapsed).
		Int("chunks", res.Stats.Chunks).
		Count("rows_scanned", res.Stats.RowsScanned).
		Count("rows_matched", res.Stats.RowsMatched).
		Count("rows_ranked", int64(res.Records)).
		Bytes("bytes_read", res.Stats.BytesRead).
		Throughput(res.Stats.BytesRead).
		Int("sites", len(res.Ranking)).
		Bytes("peak_heap", int64(mem.PeakHeap())).
		Log("query completed")

	if err := report.PrintTable(stdout, res.Ranking); err != nil {
		return err
	}

	if o.out != "" {
		format, _ := report.ParseFormat(o.outFormat)
		sink, err := report.NewSink(ctx, o.out, o.s3Options())
		if err != nil {
			return fmt.Errorf("open output %s: %w", o.out, err)
		}
		if _, err := report.Write(ctx, sink, res.Window.Label(), cfg.TopN, format, res.Ranking); err != nil {
			return fmt.Errorf("save ranking: %w", err)
		}
	}
	return nil
}
