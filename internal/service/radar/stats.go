package radar

import "math"

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdev is the population standard deviation.
func stdev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	avg := mean(values)
	var variance float64
	for _, v := range values {
		diff := v - avg
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)))
}

// tail returns the last n elements of s (all of them if shorter).
func tail[T any](s []T, n int) []T {
	if n <= 0 || n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

func pluck(samples []Snapshot, f func(Snapshot) float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = f(s)
	}
	return out
}

// trueRange of cur against the previous close.
func trueRange(cur, prev Snapshot) float64 {
	hl := cur.High - cur.Low
	hc := math.Abs(cur.High - prev.Price)
	lc := math.Abs(cur.Low - prev.Price)
	return math.Max(hl, math.Max(hc, lc))
}

// averageTrueRange over the last period true ranges of samples.
func averageTrueRange(samples []Snapshot, period int) float64 {
	if len(samples) < 2 {
		return 0
	}
	ranges := make([]float64, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		ranges = append(ranges, trueRange(samples[i], samples[i-1]))
	}
	return mean(tail(ranges, period))
}

func stepReturns(samples []Snapshot) []float64 {
	if len(samples) < 2 {
		return nil
	}
	out := make([]float64, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		if samples[i-1].Price <= 0 {
			continue
		}
		out = append(out, samples[i].Price/samples[i-1].Price-1)
	}
	return out
}

func maxHigh(samples []Snapshot) float64 {
	m := math.Inf(-1)
	for _, s := range samples {
		m = math.Max(m, s.High)
	}
	return m
}

func minLow(samples []Snapshot) float64 {
	m := math.Inf(1)
	for _, s := range samples {
		m = math.Min(m, s.Low)
	}
	return m
}

func finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, finite(v, 0)))
}
