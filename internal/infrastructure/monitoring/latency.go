package monitoring

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// latencyWindow is the number of recent samples kept per series
const latencyWindow = 1024

// LatencySummary describes recent durations in milliseconds
type LatencySummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean_ms"`
	StdDev float64 `json:"stddev_ms"`
	P50    float64 `json:"p50_ms"`
	P90    float64 `json:"p90_ms"`
	P99    float64 `json:"p99_ms"`
	Max    float64 `json:"max_ms"`
}

// window is a fixed-size ring of samples. Not safe for concurrent use.
type window struct {
	samples []float64
	next    int
	full    bool
}

func newWindow(size int) *window {
	return &window{samples: make([]float64, size)}
}

func (w *window) add(d time.Duration) {
	w.samples[w.next] = float64(d) / float64(time.Millisecond)
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

// values returns a sorted copy of the retained samples
func (w *window) values() []float64 {
	n := w.next
	if w.full {
		n = len(w.samples)
	}
	out := make([]float64, n)
	copy(out, w.samples[:n])
	sort.Float64s(out)
	return out
}

func (w *window) summary() LatencySummary {
	sorted := w.values()
	if len(sorted) == 0 {
		return LatencySummary{}
	}
	s := LatencySummary{
		Count: len(sorted),
		P50:   stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P90:   stat.Quantile(0.90, stat.Empirical, sorted, nil),
		P99:   stat.Quantile(0.99, stat.Empirical, sorted, nil),
		Max:   sorted[len(sorted)-1],
	}
	if len(sorted) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(sorted, nil)
	} else {
		s.Mean = sorted[0]
	}
	return s
}
