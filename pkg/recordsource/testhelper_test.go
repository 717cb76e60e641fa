package recordsource

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testHeader = "ID,Date_Time,Year,Month,Mdate,Day,Time,Sensor_ID,Sensor_Name,Hourly_Counts\n"

// testRows returns data rows spanning two months of two years, three
// sensors, two days, every hour.
func testRows() []string {
	var rows []string
	id := 1
	for _, ym := range []struct {
		year  int
		month string
	}{{2019, "March"}, {2020, "February"}, {2020, "March"}} {
		for day := 1; day <= 2; day++ {
			for hour := 0; hour < 24; hour++ {
				for sensor, name := range []string{"Bourke Street Mall (North)", "Town Hall (West)", "Princes Bridge"} {
					rows = append(rows, fmt.Sprintf("%d,%02d/%02d/%d %02d:00:00,%d,%s,%d,Sunday,%d,%d,%s,%d",
						id, day, 3, ym.year, hour, ym.year, ym.month, day, hour, sensor+1, name, (id*7)%500))
					id++
				}
			}
		}
	}
	return rows
}

func writeCSV(t *testing.T, name string, rows []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	content := testHeader + strings.Join(rows, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func writeGzipCSV(t *testing.T, name string, rows []string) string {
	t.Helper()
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	_, _ = gzw.Write([]byte(testHeader + strings.Join(rows, "\n") + "\n"))
	gzw.Close()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// filterRows mimics server-side filtering for the fake selector.
func filterRows(rows []string, year int, month string) []string {
	var out []string
	for _, r := range rows {
		fields := strings.Split(r, ",")
		if fields[2] == fmt.Sprint(year) && fields[3] == month {
			out = append(out, r)
		}
	}
	return out
}

// fakeSelector returns a canned payload split into fragments of fragSize bytes.
type fakeSelector struct {
	payload  []byte
	fragSize int
	err      error
	fragErr  error

	requests []SelectRequest
	closed   int
}

func (f *fakeSelector) Select(_ context.Context, req SelectRequest) (Fragments, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	size := f.fragSize
	if size <= 0 {
		size = len(f.payload) + 1
	}
	var frags [][]byte
	for p := f.payload; len(p) > 0; {
		n := min(size, len(p))
		frags = append(frags, p[:n])
		p = p[n:]
	}
	return &sliceFragments{owner: f, frags: frags, err: f.fragErr}, nil
}

type sliceFragments struct {
	owner *fakeSelector
	frags [][]byte
	err   error
}

func (s *sliceFragments) Next() ([]byte, error) {
	if len(s.frags) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	p := s.frags[0]
	s.frags = s.frags[1:]
	return p, nil
}

func (s *sliceFragments) Close() error {
	s.owner.closed++
	return nil
}

var errUnreachable = errors.New("dial tcp: connection refused")
