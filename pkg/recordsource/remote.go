package recordsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/swail/pedcount/pkg/pedestrian"
	"github.com/swail/pedcount/pkg/sysmem"
)

// SelectRequest is a server-side filtered query over a CSV object whose
// first row holds the column names.
type SelectRequest struct {
	Bucket     string
	Key        string
	Expression string
	// Gzip marks the object as gzip-compressed.
	Gzip bool
}

// Fragments is a finite lazy sequence of payload fragments. Next returns
// io.EOF once the sequence is exhausted.
type Fragments interface {
	Next() ([]byte, error)
	Close() error
}

// Selector runs a SelectRequest against object storage. Each call starts a
// fresh fragment sequence, so a failed query can be retried from the start.
type Selector interface {
	Select(ctx context.Context, req SelectRequest) (Fragments, error)
}

// RemoteConfig locates the remote dataset.
type RemoteConfig struct {
	Bucket string
	Key    string
	// MaxPayloadBytes caps the reassembled response. Zero selects
	// DefaultMaxPayloadBytes.
	MaxPayloadBytes int64
}

// DefaultMaxPayloadBytes returns a quarter of system memory.
func DefaultMaxPayloadBytes() int64 {
	return int64(sysmem.TotalBytes() / 4)
}

// RemoteQuerySource pushes the year/month filter down to object storage and
// parses only the matching rows it receives.
type RemoteQuerySource struct {
	selector Selector
	cfg      RemoteConfig
	stats    ScanStats
}

// NewRemoteQuerySource creates a source querying cfg.Bucket/cfg.Key through sel.
func NewRemoteQuerySource(sel Selector, cfg RemoteConfig) *RemoteQuerySource {
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = DefaultMaxPayloadBytes()
	}
	return &RemoteQuerySource{
		selector: sel,
		cfg:      cfg,
	}
}

// Stats returns the scan statistics of the most recent Fetch.
func (s *RemoteQuerySource) Stats() ScanStats {
	return s.stats
}

// SelectExpression builds the pushdown predicate for one month. The month
// comparison ignores case and surrounding space, matching local parsing.
func SelectExpression(year int, monthName string) string {
	return fmt.Sprintf(
		`SELECT * FROM s3object s WHERE CAST(TRIM(s."%s") AS INT) = %d AND LOWER(TRIM(s."%s")) = '%s'`,
		pedestrian.Columns[pedestrian.ColYear], year,
		pedestrian.Columns[pedestrian.ColMonth], strings.ToLower(monthName),
	)
}

// Fetch runs the filtered query and parses the reassembled payload.
func (s *RemoteQuerySource) Fetch(ctx context.Context, year, month int) (pedestrian.RecordSet, error) {
	monthName, err := pedestrian.MonthName(month)
	if err != nil {
		return nil, fmt.Errorf("resolve month: %w", err)
	}

	s.stats = ScanStats{}
	uri := fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, s.cfg.Key)

	payload, err := s.collect(ctx, SelectRequest{
		Bucket:     s.cfg.Bucket,
		Key:        s.cfg.Key,
		Expression: SelectExpression(year, monthName),
		Gzip:       strings.HasSuffix(strings.ToLower(s.cfg.Key), ".gz"),
	})
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", uri, err)
	}

	records, err := s.parse(payload)
	if err != nil {
		return nil, fmt.Errorf("parse select response from %s: %w", uri, err)
	}
	s.stats.RowsMatched = int64(len(records))
	return records, nil
}

// collect concatenates every fragment of one query response.
func (s *RemoteQuerySource) collect(ctx context.Context, req SelectRequest) ([]byte, error) {
	frags, err := s.selector.Select(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	defer frags.Close()

	var buf bytes.Buffer
	for {
		p, err := frags.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read fragment %d: %w", ErrDataUnavailable, s.stats.Chunks, err)
		}
		if int64(buf.Len()+len(p)) > s.cfg.MaxPayloadBytes {
			return nil, fmt.Errorf("%w: response exceeds %d byte limit", ErrDataUnavailable, s.cfg.MaxPayloadBytes)
		}
		buf.Write(p)
		s.stats.Chunks++
		s.stats.BytesRead += int64(len(p))
	}
	return buf.Bytes(), nil
}

// parse applies the positional schema; the response may or may not repeat
// the header row.
func (s *RemoteQuerySource) parse(payload []byte) (pedestrian.RecordSet, error) {
	csvr := newCSVReader(bytes.NewReader(payload))

	var records pedestrian.RecordSet
	for first := true; ; first = false {
		fields, err := csvr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, classifyReadErr(err, "read rows")
		}
		if first && pedestrian.IsHeader(fields) {
			continue
		}

		rec, err := pedestrian.ParseRow(fields)
		if err != nil {
			line, _ := csvr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		s.stats.RowsScanned++
		records = append(records, rec)
	}
}
