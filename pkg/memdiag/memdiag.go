// Package memdiag samples heap usage while a query runs.
//
// Enable periodic debug logging with PEDCOUNT_MEM_DEBUG=1.
// Enable the pprof server with PEDCOUNT_MEM_PPROF=<addr>, e.g. localhost:6060.
package memdiag

import (
	"net/http"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	// Registers pprof handlers on DefaultServeMux for the pprof HTTP server.
	_ "net/http/pprof"

	"github.com/rs/zerolog"

	"github.com/swail/pedcount/pkg/humanfmt"
)

// Config holds configuration for memory diagnostics.
type Config struct {
	// Enabled controls whether periodic sampling is active.
	Enabled bool

	// PprofAddr starts a pprof server on this address when non-empty.
	PprofAddr string

	// LogInterval is the interval between samples.
	LogInterval time.Duration
}

// DefaultConfig returns the default configuration, reading from environment.
func DefaultConfig() Config {
	return Config{
		Enabled:     os.Getenv("PEDCOUNT_MEM_DEBUG") == "1",
		PprofAddr:   os.Getenv("PEDCOUNT_MEM_PPROF"),
		LogInterval: time.Second,
	}
}

// Stats holds the subset of runtime memory statistics that is logged.
type Stats struct {
	HeapAlloc uint64
	HeapInuse uint64
	Sys       uint64
	NumGC     uint32
}

// Read reads current memory statistics.
func Read() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Stats{
		HeapAlloc: m.HeapAlloc,
		HeapInuse: m.HeapInuse,
		Sys:       m.Sys,
		NumGC:     m.NumGC,
	}
}

// Tracker records the peak heap allocation seen across samples.
type Tracker struct {
	config  Config
	log     zerolog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	started atomic.Bool

	mu       sync.Mutex
	peakHeap uint64
}

// NewTracker creates a tracker that logs to log.
func NewTracker(config Config, log zerolog.Logger) *Tracker {
	if config.LogInterval <= 0 {
		config.LogInterval = time.Second
	}
	return &Tracker{
		config: config,
		log:    log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Enabled reports whether periodic sampling is configured.
func (t *Tracker) Enabled() bool {
	return t.config.Enabled
}

// Start begins periodic sampling if enabled.
func (t *Tracker) Start() {
	if !t.config.Enabled {
		return
	}
	if !t.started.CompareAndSwap(false, true) {
		return
	}

	if addr := t.config.PprofAddr; addr != "" {
		go func() {
			t.log.Info().Str("addr", addr).Msg("starting pprof server")
			if err := http.ListenAndServe(addr, nil); err != nil {
				t.log.Error().Err(err).Msg("pprof server failed")
			}
		}()
	}

	go t.loop()
}

// Stop stops periodic sampling and takes a final sample.
func (t *Tracker) Stop() {
	if !t.started.Load() {
		return
	}
	close(t.stopCh)
	<-t.doneCh
}

// Sample reads memory statistics, updates the peak and returns the sample.
func (t *Tracker) Sample() Stats {
	stats := Read()
	t.mu.Lock()
	if stats.HeapAlloc > t.peakHeap {
		t.peakHeap = stats.HeapAlloc
	}
	t.mu.Unlock()
	return stats
}

// PeakHeap returns the peak heap allocation seen.
func (t *Tracker) PeakHeap() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peakHeap
}

func (t *Tracker) logNow(reason string) {
	stats := t.Sample()
	t.log.Debug().
		Str("reason", reason).
		Str("heap_alloc", humanfmt.Bytes(int64(stats.HeapAlloc))).
		Str("heap_inuse", humanfmt.Bytes(int64(stats.HeapInuse))).
		Str("sys_total", humanfmt.Bytes(int64(stats.Sys))).
		Str("peak_heap", humanfmt.Bytes(int64(t.PeakHeap()))).
		Uint32("num_gc", stats.NumGC).
		Msg("memory stats")
}

func (t *Tracker) loop() {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.config.LogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			t.logNow("shutdown")
			return
		case <-ticker.C:
			t.logNow("periodic")
		}
	}
}
