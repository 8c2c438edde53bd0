package recordlog

import (
	gometrics "github.com/rcrowley/go-metrics"
)

// ----------------------------------------------------------------------------
// Record size statistics
// ----------------------------------------------------------------------------

const (
	sampleReservoirSize = 1028
	sampleAlpha         = 0.015
)

// SizeSummary is a point in time view of the record size distribution
type SizeSummary struct {
	Count int64   `json:"count"`
	Min   int64   `json:"min"`
	Max   int64   `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P99   float64 `json:"p99"`
}

// Stats tracks the size distribution of appended records using an
// exponentially decaying sample, so recent traffic dominates the estimate.
// The underlying histogram is thread-safe.
type Stats struct {
	sizes gometrics.Histogram
}

func newStats() *Stats {
	return &Stats{
		sizes: gometrics.NewHistogram(gometrics.NewExpDecaySample(sampleReservoirSize, sampleAlpha)),
	}
}

func (s *Stats) observe(size int) {
	s.sizes.Update(int64(size))
}

func (s *Stats) clear() {
	s.sizes.Clear()
}

// Summary returns the current size distribution
func (s *Stats) Summary() SizeSummary {
	snap := s.sizes.Snapshot()
	if snap.Count() == 0 {
		return SizeSummary{}
	}
	ps := snap.Percentiles([]float64{0.5, 0.99})
	return SizeSummary{
		Count: snap.Count(),
		Min:   snap.Min(),
		Max:   snap.Max(),
		Mean:  snap.Mean(),
		P50:   ps[0],
		P99:   ps[1],
	}
}
