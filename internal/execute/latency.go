package execute

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/cockroachdb/errors"
)

const (
	minLatencyMicros = 1
	maxLatencyMicros = int64(time.Minute / time.Microsecond)
)

// LatencyStats summarizes per-record evaluation time in microseconds.
type LatencyStats struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean_us"`
	P50   int64   `json:"p50_us"`
	P90   int64   `json:"p90_us"`
	P99   int64   `json:"p99_us"`
	Max   int64   `json:"max_us"`
}

// latency is not safe for concurrent use; run guards it.
type latency struct {
	h *hdrhistogram.Histogram
}

func newLatency() *latency {
	return &latency{h: hdrhistogram.New(minLatencyMicros, maxLatencyMicros, 3)}
}

// record adds d, clamped to the trackable range.
func (l *latency) record(d time.Duration) error {
	us := min(max(d.Microseconds(), minLatencyMicros), maxLatencyMicros)

	return errors.Wrapf(l.h.RecordValue(us), "record latency %dus", us)
}

func (l *latency) stats() LatencyStats {
	if l.h.TotalCount() == 0 {
		return LatencyStats{}
	}

	return LatencyStats{
		Count: l.h.TotalCount(),
		Mean:  l.h.Mean(),
		P50:   l.h.ValueAtQuantile(50),
		P90:   l.h.ValueAtQuantile(90),
		P99:   l.h.ValueAtQuantile(99),
		Max:   l.h.Max(),
	}
}
