package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/swail/pedcount/pkg/ranking"
	"github.com/swail/pedcount/pkg/recordsource"
)

const header = "ID,Date_Time,Year,Month,Mdate,Day,Time,Sensor_ID,Sensor_Name,Hourly_Counts\n"

var scenarioRows = []string{
	"1,03/01/2020 00:00:00,2020,March,1,Sunday,0,1,A,5",
	"2,03/01/2020 00:00:00,2020,March,1,Sunday,0,2,B,10",
	"3,03/02/2020 00:00:00,2020,March,2,Monday,0,1,A,3",
	"4,04/01/2020 00:00:00,2020,April,1,Wednesday,0,1,A,100",
	"5,03/01/2019 00:00:00,2019,March,1,Friday,0,2,B,100",
}

func writeDataset(t *testing.T, rows []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pedestrian.csv")
	if err := os.WriteFile(path, []byte(header+strings.Join(rows, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

type stubSelector struct {
	payload string
	err     error
	req     recordsource.SelectRequest
}

func (s *stubSelector) Select(_ context.Context, req recordsource.SelectRequest) (recordsource.Fragments, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &onceFragments{p: []byte(s.payload)}, nil
}

type onceFragments struct {
	p    []byte
	done bool
}

func (f *onceFragments) Next() ([]byte, error) {
	if f.done || len(f.p) == 0 {
		return nil, io.EOF
	}
	f.done = true
	return f.p, nil
}

func (f *onceFragments) Close() error { return nil }

func TestRunLocalDate(t *testing.T) {
	cfg := Config{
		Window:    DateWindow(2020, 3, 1),
		TopN:      10,
		Backend:   BackendLocal,
		LocalPath: writeDataset(t, scenarioRows),
	}

	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := ranking.Ranking{{Site: "B", Total: 10}, {Site: "A", Total: 5}}
	if !reflect.DeepEqual(res.Ranking, want) {
		t.Errorf("Ranking = %+v, want %+v", res.Ranking, want)
	}
	if res.Window.Label() != "2020-03-01" {
		t.Errorf("Window = %s, want 2020-03-01", res.Window.Label())
	}
	if res.Records != 2 {
		t.Errorf("Records = %d, want 2", res.Records)
	}
	if res.Stats.RowsScanned != int64(len(scenarioRows)) || res.Stats.RowsMatched != 3 {
		t.Errorf("Stats = %+v", res.Stats)
	}
}

func TestRunLocalMonth(t *testing.T) {
	cfg := Config{
		Window:    MonthWindow(2020, 3),
		TopN:      1,
		Backend:   BackendLocal,
		LocalPath: writeDataset(t, scenarioRows),
	}

	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := ranking.Ranking{{Site: "B", Total: 10}}
	if !reflect.DeepEqual(res.Ranking, want) {
		t.Errorf("Ranking = %+v, want %+v", res.Ranking, want)
	}
	if res.Window.HasDay() {
		t.Error("month window has a day")
	}
}

func TestRunToday(t *testing.T) {
	cfg := Config{
		Window:    TodayWindow(),
		TopN:      10,
		Backend:   BackendLocal,
		LocalPath: writeDataset(t, scenarioRows),
		Now:       func() time.Time { return time.Date(2020, time.March, 2, 15, 4, 5, 0, time.Local) },
	}

	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := ranking.Ranking{{Site: "A", Total: 3}}
	if !reflect.DeepEqual(res.Ranking, want) {
		t.Errorf("Ranking = %+v, want %+v", res.Ranking, want)
	}
}

func TestRunNoDataForWindow(t *testing.T) {
	path := writeDataset(t, scenarioRows)

	for _, w := range []Window{MonthWindow(2021, 3), DateWindow(2020, 3, 15)} {
		_, err := Run(context.Background(), Config{Window: w, TopN: 10, Backend: BackendLocal, LocalPath: path})
		if !errors.Is(err, ErrNoDataForWindow) {
			t.Errorf("Run(%+v) error = %v, want ErrNoDataForWindow", w, err)
		}
		if errors.Is(err, recordsource.ErrDataUnavailable) {
			t.Errorf("Run(%+v): no-data reported as unavailable", w)
		}
	}
}

func TestRunRemote(t *testing.T) {
	sel := &stubSelector{payload: scenarioRows[0] + "\n" + scenarioRows[1] + "\n" + scenarioRows[2] + "\n"}
	cfg := Config{
		Window:  DateWindow(2020, 3, 1),
		TopN:    10,
		Backend: BackendS3,
		Remote:  RemoteConfig{Bucket: "peds", Key: "hourly.csv", Selector: sel},
	}

	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := ranking.Ranking{{Site: "B", Total: 10}, {Site: "A", Total: 5}}
	if !reflect.DeepEqual(res.Ranking, want) {
		t.Errorf("Ranking = %+v, want %+v", res.Ranking, want)
	}
	if sel.req.Bucket != "peds" || sel.req.Key != "hourly.csv" {
		t.Errorf("request = %+v", sel.req)
	}
	if !strings.Contains(sel.req.Expression, "'march'") {
		t.Errorf("expression = %s", sel.req.Expression)
	}
}

func TestRunBackendsAgree(t *testing.T) {
	path := writeDataset(t, scenarioRows)
	local, err := Run(context.Background(), Config{Window: MonthWindow(2020, 3), TopN: 10, Backend: BackendLocal, LocalPath: path})
	if err != nil {
		t.Fatalf("local Run: %v", err)
	}

	sel := &stubSelector{payload: strings.Join(scenarioRows[:3], "\n") + "\n"}
	remote, err := Run(context.Background(), Config{
		Window: MonthWindow(2020, 3), TopN: 10, Backend: BackendS3,
		Remote: RemoteConfig{Bucket: "b", Key: "k", Selector: sel},
	})
	if err != nil {
		t.Fatalf("remote Run: %v", err)
	}
	if !reflect.DeepEqual(local.Ranking, remote.Ranking) {
		t.Errorf("local %+v != remote %+v", local.Ranking, remote.Ranking)
	}
}

func TestRunPropagatesSourceErrors(t *testing.T) {
	_, err := Run(context.Background(), Config{
		Window: MonthWindow(2020, 3), TopN: 10, Backend: BackendLocal,
		LocalPath: filepath.Join(t.TempDir(), "missing.csv"),
	})
	if !errors.Is(err, recordsource.ErrDataUnavailable) {
		t.Errorf("missing file: error = %v, want ErrDataUnavailable", err)
	}

	_, err = Run(context.Background(), Config{
		Window: MonthWindow(2020, 3), TopN: 10, Backend: BackendS3,
		Remote: RemoteConfig{Bucket: "b", Key: "k", Selector: &stubSelector{err: errors.New("no such bucket")}},
	})
	if !errors.Is(err, recordsource.ErrDataUnavailable) {
		t.Errorf("select failure: error = %v, want ErrDataUnavailable", err)
	}

	_, err = Run(context.Background(), Config{
		Window: MonthWindow(2020, 3), TopN: 10, Backend: BackendS3,
		Remote: RemoteConfig{Bucket: "b", Key: "k", Selector: &stubSelector{payload: "not,a,record\n"}},
	})
	if !errors.Is(err, recordsource.ErrSchemaMismatch) {
		t.Errorf("bad payload: error = %v, want ErrSchemaMismatch", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"local ok", Config{TopN: 1, Backend: BackendLocal, LocalPath: "x.csv"}, false},
		{"s3 ok", Config{TopN: 3, Backend: BackendS3, Remote: RemoteConfig{Bucket: "b", Key: "k"}}, false},
		{"zero n", Config{TopN: 0, Backend: BackendLocal, LocalPath: "x.csv"}, true},
		{"local without path", Config{TopN: 1, Backend: BackendLocal}, true},
		{"s3 without key", Config{TopN: 1, Backend: BackendS3, Remote: RemoteConfig{Bucket: "b"}}, true},
		{"unknown backend", Config{TopN: 1, Backend: "ftp"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseBackend(t *testing.T) {
	for _, s := range []string{"local", "s3"} {
		if b, err := ParseBackend(s); err != nil || string(b) != s {
			t.Errorf("ParseBackend(%q) = %q, %v", s, b, err)
		}
	}
	if _, err := ParseBackend("S3 "); err == nil {
		t.Error("ParseBackend(\"S3 \") expected error")
	}
}
