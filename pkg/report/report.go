// Package report renders a site ranking and persists it under a name
// derived from the query window and n.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/swail/pedcount/internal/logctx"
	"github.com/swail/pedcount/pkg/humanfmt"
	"github.com/swail/pedcount/pkg/logging"
	"github.com/swail/pedcount/pkg/pedestrian"
	"github.com/swail/pedcount/pkg/ranking"
)

// Format is an output encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ParseFormat parses an output format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatParquet:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (supported: csv, parquet)", s)
	}
}

// ContentType returns the MIME type used when uploading the format.
func (f Format) ContentType() string {
	if f == FormatParquet {
		return "application/vnd.apache.parquet"
	}
	return "text/csv"
}

// FileName names the report for a window label such as "2020-03-01".
func FileName(windowLabel string, n int, f Format) string {
	return fmt.Sprintf("pedestrian_top%d_%s.%s", n, windowLabel, f)
}

// Encode writes the ranking to w in the given format.
func Encode(w io.Writer, r ranking.Ranking, f Format) error {
	switch f {
	case FormatCSV:
		return encodeCSV(w, r)
	case FormatParquet:
		return encodeParquet(w, r)
	default:
		return fmt.Errorf("unsupported output format %q", f)
	}
}

func encodeCSV(w io.Writer, r ranking.Ranking) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range r {
		if err := cw.Write([]string{e.Site, strconv.FormatInt(e.Total, 10)}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func encodeParquet(w io.Writer, r ranking.Ranking) error {
	pw := parquet.NewGenericWriter[ranking.SiteTotal](w)
	if _, err := pw.Write(r); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

func header() []string {
	return []string{pedestrian.Columns[pedestrian.ColSensorName], pedestrian.Columns[pedestrian.ColHourlyCount]}
}

// PrintTable writes the ranking as an aligned two-column table.
func PrintTable(w io.Writer, r ranking.Ranking) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	h := header()
	fmt.Fprintf(tw, "%s\t%s\n", h[0], h[1])
	for _, e := range r {
		fmt.Fprintf(tw, "%s\t%s\n", e.Site, humanfmt.Thousands(e.Total))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}

// Write encodes the ranking and stores it in sink under FileName. It
// returns the location of the stored report.
func Write(ctx context.Context, sink Sink, windowLabel string, n int, f Format, r ranking.Ranking) (string, error) {
	start := time.Now()

	var buf bytes.Buffer
	if err := Encode(&buf, r, f); err != nil {
		return "", fmt.Errorf("encode %s report: %w", f, err)
	}
	size := int64(buf.Len())

	name := FileName(windowLabel, n, f)
	location, err := sink.Put(ctx, name, f.ContentType(), &buf)
	if err != nil {
		return "", fmt.Errorf("store report %s: %w", name, err)
	}

	logging.FileCreated(logctx.FromContext(ctx), "report", time.Since(start)).
		Str("location", location).
		Str("format", string(f)).
		Int("sites", len(r)).
		Bytes("size", size).
		Log("report written")

	return location, nil
}
