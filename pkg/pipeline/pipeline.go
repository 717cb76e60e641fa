// Package pipeline answers the top-N sites query for one time window:
// fetch the month from the configured backend, narrow it to a day when
// asked, and rank the sites.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/swail/pedcount/pkg/ranking"
	"github.com/swail/pedcount/pkg/recordsource"
	"github.com/swail/pedcount/pkg/s3store"
)

// ErrNoDataForWindow means the query succeeded but no records fell in the
// window. It is an expected outcome, not a malfunction.
var ErrNoDataForWindow = errors.New("no data for window")

// Backend selects the record source.
type Backend string

const (
	// BackendLocal reads a local CSV file in chunks.
	BackendLocal Backend = "local"
	// BackendS3 queries a CSV object in S3 with predicate pushdown.
	BackendS3 Backend = "s3"
)

// ParseBackend parses a backend name.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendLocal, BackendS3:
		return Backend(s), nil
	default:
		return "", fmt.Errorf("unknown backend %q (supported: %s, %s)", s, BackendLocal, BackendS3)
	}
}

// RemoteConfig configures the S3 backend.
type RemoteConfig struct {
	Bucket string
	Key    string
	// MaxPayloadBytes caps the in-memory query response; zero selects
	// recordsource.DefaultMaxPayloadBytes.
	MaxPayloadBytes int64
	// S3 configures the client built when Selector is nil.
	S3 s3store.Options
	// Selector overrides the S3 client, e.g. with a pre-built one.
	Selector recordsource.Selector
}

// Config is the complete description of one query.
type Config struct {
	Window  Window
	TopN    int
	Backend Backend

	// LocalPath is the CSV file read by BackendLocal.
	LocalPath string
	// ChunkRows is the local chunk size; zero selects
	// recordsource.DefaultChunkRows.
	ChunkRows int

	Remote RemoteConfig

	// Now is the clock used to resolve WindowToday; nil means time.Now.
	Now func() time.Time
}

// Validate checks that the configuration names a usable backend and n.
func (c Config) Validate() error {
	if c.TopN < 1 {
		return fmt.Errorf("top n must be at least 1, got %d", c.TopN)
	}
	switch c.Backend {
	case BackendLocal:
		if c.LocalPath == "" {
			return errors.New("local backend requires a file path")
		}
	case BackendS3:
		if c.Remote.Bucket == "" || c.Remote.Key == "" {
			return errors.New("s3 backend requires a bucket and key")
		}
	default:
		_, err := ParseBackend(string(c.Backend))
		return err
	}
	return nil
}

// Result is the outcome of a successful run.
type Result struct {
	Window  ResolvedWindow
	Ranking ranking.Ranking
	// Records is the number of records that were ranked.
	Records int
	Stats   recordsource.ScanStats
	Elapsed time.Duration
}

// Run executes one query. It returns ErrNoDataForWindow when the window
// holds no records, and the recordsource error classes for storage and
// parsing failures.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	window, err := cfg.Window.Resolve(now())
	if err != nil {
		return nil, fmt.Errorf("resolve window: %w", err)
	}

	src, err := openSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	records, err := src.Fetch(ctx, window.Year, window.Month)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", window.Label(), err)
	}
	if window.HasDay() {
		records = ranking.FilterDay(records, window.Day)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w %s", ErrNoDataForWindow, window.Label())
	}

	result := &Result{
		Window:  window,
		Ranking: ranking.TopN(records, cfg.TopN),
		Records: len(records),
		Elapsed: time.Since(start),
	}
	if sr, ok := src.(recordsource.StatsReporter); ok {
		result.Stats = sr.Stats()
	}
	return result, nil
}

func openSource(ctx context.Context, cfg Config) (recordsource.RecordSource, error) {
	switch cfg.Backend {
	case BackendS3:
		sel := cfg.Remote.Selector
		if sel == nil {
			client, err := s3store.NewClient(ctx, cfg.Remote.S3)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", recordsource.ErrDataUnavailable, err)
			}
			sel = client
		}
		return recordsource.NewRemoteQuerySource(sel, recordsource.RemoteConfig{
			Bucket:          cfg.Remote.Bucket,
			Key:             cfg.Remote.Key,
			MaxPayloadBytes: cfg.Remote.MaxPayloadBytes,
		}), nil
	default:
		return recordsource.NewLocalChunkedSource(cfg.LocalPath, cfg.ChunkRows), nil
	}
}
