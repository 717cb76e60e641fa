package recordsource

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/swail/pedcount/pkg/pedestrian"
)

// DefaultSensors is the number of sensors in the City of Melbourne dataset.
// One day of readings is DefaultSensors * 24 rows.
const DefaultSensors = 78

// DefaultChunkRows is the default chunk size: one full day of readings.
const DefaultChunkRows = DefaultSensors * pedestrian.HoursPerDay

// ChunkRowsForSensors returns the chunk size covering one day of readings
// from the given number of sensors.
func ChunkRowsForSensors(sensors int) int {
	if sensors <= 0 {
		return DefaultChunkRows
	}
	return sensors * pedestrian.HoursPerDay
}

// LocalChunkedSource reads a local CSV file in fixed-size chunks, keeping
// only the rows of the requested window. Only rows whose Year and Month
// match are parsed into records, so rows outside the window are never
// validated, as with the storage-side filter of RemoteQuerySource.
type LocalChunkedSource struct {
	path      string
	chunkRows int
	stats     ScanStats
}

// NewLocalChunkedSource creates a source for the CSV file at path. Files
// ending in .gz are decompressed on the fly. chunkRows <= 0 selects
// DefaultChunkRows.
func NewLocalChunkedSource(path string, chunkRows int) *LocalChunkedSource {
	if chunkRows <= 0 {
		chunkRows = DefaultChunkRows
	}
	return &LocalChunkedSource{
		path:      path,
		chunkRows: chunkRows,
	}
}

// ChunkRows returns the number of rows read per chunk.
func (s *LocalChunkedSource) ChunkRows() int {
	return s.chunkRows
}

// Stats returns the scan statistics of the most recent Fetch.
func (s *LocalChunkedSource) Stats() ScanStats {
	return s.stats
}

// Fetch scans the whole file once and returns the rows of year/month in
// file order.
func (s *LocalChunkedSource) Fetch(ctx context.Context, year, month int) (pedestrian.RecordSet, error) {
	monthName, err := pedestrian.MonthName(month)
	if err != nil {
		return nil, fmt.Errorf("resolve month: %w", err)
	}

	s.stats = ScanStats{}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrDataUnavailable, s.path, err)
	}
	defer f.Close()

	counter := &countingReader{r: f}
	defer func() { s.stats.BytesRead = counter.n }()

	var r io.Reader = counter
	if strings.HasSuffix(strings.ToLower(s.path), ".gz") {
		gzr, err := gzip.NewReader(counter)
		if err != nil {
			return nil, fmt.Errorf("%w: create gzip reader for %s: %w", ErrDataUnavailable, s.path, err)
		}
		defer gzr.Close()
		r = gzr
	}

	csvr := newCSVReader(r)
	header, err := csvr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s is empty, header row missing", ErrDataUnavailable, s.path)
	}
	if err != nil {
		return nil, classifyReadErr(err, "read header of "+s.path)
	}
	columns, err := pedestrian.NewHeaderMap(header)
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", s.path, err)
	}

	var matched pedestrian.RecordSet

	for eof := false; !eof; {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %w", ErrDataUnavailable, s.path, err)
		}

		rows := 0
		for rows < s.chunkRows {
			fields, err := csvr.Read()
			if errors.Is(err, io.EOF) {
				eof = true
				break
			}
			if err != nil {
				return nil, classifyReadErr(err, "read "+s.path)
			}
			rows++

			if !columns.InWindow(fields, year, monthName) {
				continue
			}
			rec, err := columns.Parse(fields)
			if err != nil {
				line, _ := csvr.FieldPos(0)
				return nil, fmt.Errorf("parse %s line %d: %w", s.path, line, err)
			}
			matched = append(matched, rec)
		}

		if rows == 0 {
			break
		}
		s.stats.Chunks++
		s.stats.RowsScanned += int64(rows)
	}

	s.stats.RowsMatched = int64(len(matched))
	return matched, nil
}
