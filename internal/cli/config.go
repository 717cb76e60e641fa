package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/swail/pedcount/pkg/pipeline"
	"github.com/swail/pedcount/pkg/recordsource"
	"github.com/swail/pedcount/pkg/report"
	"github.com/swail/pedcount/pkg/s3store"
)

// ErrUsage marks invalid command-line input.
var ErrUsage = errors.New("usage error")

const (
	// DefaultTopN is used when --topn is missing or invalid.
	DefaultTopN = 10
	// DefaultDataFile is the dataset file name as published by the City of
	// Melbourne open data portal.
	DefaultDataFile = "Pedestrian_Counting_System_-_Monthly__counts_per_hour_.csv"

	dateLayout  = "02/01/2006"
	monthLayout = "01/2006"
)

// options holds raw flag values before validation.
type options struct {
	date      string
	month     string
	topN      string
	source    string
	file      string
	s3URI     string
	sensors   int
	chunkRows int
	maxPay    int64
	region    string
	profile   string
	endpoint  string
	pathStyle bool
	out       string
	outFormat string
	debug     bool
	human     bool
}

// loadDotEnv loads a .env file from the working directory if present.
func loadDotEnv() {
	_ = godotenv.Load()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, err := strconv.ParseInt(getEnv(key, ""), 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

// parseTopN applies the lenient --topn rules: anything that is not a
// positive integer falls back to DefaultTopN with a warning.
func parseTopN(s string) (n int, warning string) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return DefaultTopN, fmt.Sprintf("invalid top sites number %q, using default of %d", s, DefaultTopN)
	}
	if n < 1 {
		return DefaultTopN, fmt.Sprintf("positive number of top sites required, using default of %d", DefaultTopN)
	}
	return n, ""
}

func parseWindow(date, month string) (pipeline.Window, error) {
	switch {
	case date != "" && month != "":
		return pipeline.Window{}, fmt.Errorf("%w: --date and --month are mutually exclusive", ErrUsage)
	case month != "":
		t, err := time.Parse(monthLayout, month)
		if err != nil {
			return pipeline.Window{}, fmt.Errorf("%w: incorrect month %q, should be mm/yyyy", ErrUsage, month)
		}
		return pipeline.MonthWindow(t.Year(), int(t.Month())), nil
	case date != "":
		t, err := time.Parse(dateLayout, date)
		if err != nil {
			return pipeline.Window{}, fmt.Errorf("%w: incorrect date %q, should be dd/mm/yyyy", ErrUsage, date)
		}
		return pipeline.DateWindow(t.Year(), int(t.Month()), t.Day()), nil
	default:
		return pipeline.TodayWindow(), nil
	}
}

func (o options) s3Options() s3store.Options {
	return s3store.Options{
		Region:    o.region,
		Profile:   o.profile,
		Endpoint:  o.endpoint,
		PathStyle: o.pathStyle,
	}
}

// buildConfig validates options and produces the pipeline configuration.
// The returned warnings are logged by the caller.
func buildConfig(o options) (pipeline.Config, []string, error) {
	var warnings []string

	window, err := parseWindow(o.date, o.month)
	if err != nil {
		return pipeline.Config{}, nil, err
	}

	topN, warn := parseTopN(o.topN)
	if warn != "" {
		warnings = append(warnings, warn)
	}

	backend, err := pipeline.ParseBackend(o.source)
	if err != nil {
		return pipeline.Config{}, nil, fmt.Errorf("%w: --source: %w", ErrUsage, err)
	}

	if o.out != "" {
		if _, err := report.ParseFormat(o.outFormat); err != nil {
			return pipeline.Config{}, nil, fmt.Errorf("%w: --out-format: %w", ErrUsage, err)
		}
	}

	cfg := pipeline.Config{
		Window:  window,
		TopN:    topN,
		Backend: backend,
	}

	switch backend {
	case pipeline.BackendLocal:
		if o.file == "" {
			return pipeline.Config{}, nil, fmt.Errorf("%w: --file is required for the local source", ErrUsage)
		}
		cfg.LocalPath = o.file
		cfg.ChunkRows = o.chunkRows
		if cfg.ChunkRows <= 0 {
			cfg.ChunkRows = recordsource.ChunkRowsForSensors(o.sensors)
		}
	case pipeline.BackendS3:
		if o.s3URI == "" {
			return pipeline.Config{}, nil, fmt.Errorf("%w: --s3-uri is required for the s3 source", ErrUsage)
		}
		bucket, key, err := s3store.ParseObjectURI(o.s3URI)
		if err != nil {
			return pipeline.Config{}, nil, fmt.Errorf("%w: --s3-uri: %w", ErrUsage, err)
		}
		cfg.Remote = pipeline.RemoteConfig{
			Bucket:          bucket,
			Key:             key,
			MaxPayloadBytes: o.maxPay,
			S3:              o.s3Options(),
		}
	}

	return cfg, warnings, nil
}
