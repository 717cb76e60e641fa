// Package recordsource retrieves the pedestrian records of one (year, month)
// window from interchangeable storage backends.
package recordsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/swail/pedcount/pkg/pedestrian"
)

var (
	// ErrDataUnavailable indicates the backing storage could not be reached,
	// the object is missing, or the expected header is absent.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrSchemaMismatch indicates data that cannot be parsed into a record.
	ErrSchemaMismatch = pedestrian.ErrSchemaMismatch
)

// RecordSource returns every record of the given year and month.
type RecordSource interface {
	Fetch(ctx context.Context, year, month int) (pedestrian.RecordSet, error)
}

// ScanStats describes the work done by the most recent Fetch.
type ScanStats struct {
	// Chunks is the number of chunks read locally, or payload fragments
	// received remotely.
	Chunks int
	// RowsScanned counts data rows read, excluding any header.
	RowsScanned int64
	// RowsMatched counts rows that fell inside the window.
	RowsMatched int64
	// BytesRead is the number of bytes read from storage (compressed size
	// for gzip files).
	BytesRead int64
}

// StatsReporter is implemented by sources that record ScanStats.
type StatsReporter interface {
	Stats() ScanStats
}

// Verify interface compliance at compile time.
var (
	_ RecordSource  = (*LocalChunkedSource)(nil)
	_ RecordSource  = (*RemoteQuerySource)(nil)
	_ StatsReporter = (*LocalChunkedSource)(nil)
	_ StatsReporter = (*RemoteQuerySource)(nil)
)

// newCSVReader creates a csv.Reader for pedestrian count files.
// Field counts are checked during record parsing, not by the reader.
func newCSVReader(r io.Reader) *csv.Reader {
	csvr := csv.NewReader(r)
	csvr.ReuseRecord = true
	csvr.FieldsPerRecord = -1
	csvr.LazyQuotes = true
	return csvr
}

// classifyReadErr maps a csv read failure to the error taxonomy. Malformed
// CSV is a schema problem; anything else is an I/O problem.
func classifyReadErr(err error, what string) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("%w: %s: %w", ErrSchemaMismatch, what, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrDataUnavailable, what, err)
}

// countingReader counts bytes passing through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err //nolint:wrapcheck // pass-through reader must return io.EOF unwrapped
}
