// internal/stats/stats.go
// Package stats computes summary statistics over raw benchmark timing samples.
package stats

import (
	"errors"
	"math"
	"sort"
	"time"
)

// DefaultMinSamples is the sample count required before the normal
// approximation behind the confidence interval is considered reliable.
const DefaultMinSamples = 30

// ErrInsufficientSamples is returned when fewer than two samples are supplied;
// variance is undefined below that.
var ErrInsufficientSamples = errors.New("stats: at least two samples required")

// Interval is a closed confidence interval in nanoseconds.
type Interval struct {
	LowerNs float64 `json:"lower_ns"`
	UpperNs float64 `json:"upper_ns"`
}

// Quartiles holds the IQR-based outlier fences.
type Quartiles struct {
	Q1Ns         float64 `json:"q1_ns"`
	Q3Ns         float64 `json:"q3_ns"`
	IQRNs        float64 `json:"iqr_ns"`
	LowerFenceNs float64 `json:"lower_fence_ns"`
	UpperFenceNs float64 `json:"upper_fence_ns"`
}

// Analysis is the immutable statistic bundle derived from one sample set.
// Samples flagged as outliers are reported but never removed: dropping them
// silently would bias regression detection against the stored baseline.
type Analysis struct {
	SampleCount                int       `json:"sample_count"`
	MeanNs                     float64   `json:"mean_ns"`
	MinNs                      float64   `json:"min_ns"`
	MaxNs                      float64   `json:"max_ns"`
	StdDevNs                   float64   `json:"std_dev_ns"`
	StdErrorNs                 float64   `json:"std_error_ns"`
	P5Ns                       float64   `json:"p5_ns"`
	P25Ns                      float64   `json:"p25_ns"`
	P50Ns                      float64   `json:"p50_ns"`
	P75Ns                      float64   `json:"p75_ns"`
	P95Ns                      float64   `json:"p95_ns"`
	P99Ns                      float64   `json:"p99_ns"`
	ConfidenceInterval95       Interval  `json:"confidence_interval_95"`
	ConfidenceInterval99       Interval  `json:"confidence_interval_99"`
	Quartiles                  Quartiles `json:"quartiles"`
	OutlierCount               int       `json:"outlier_count"`
	OutlierPercent             float64   `json:"outlier_percent"`
	Skewness                   float64   `json:"skewness"`
	Kurtosis                   float64   `json:"kurtosis"`
	CoefficientOfVariation     float64   `json:"coefficient_of_variation"`
	IsStatisticallySignificant bool      `json:"is_statistically_significant"`
}

// Analyzer computes Analysis bundles. MinSamples gates the significance flag,
// not the computation: intervals are still produced for small sample sets.
type Analyzer struct {
	MinSamples int
}

// NewAnalyzer returns an analyzer with the default significance gate.
func NewAnalyzer() *Analyzer {
	return &Analyzer{MinSamples: DefaultMinSamples}
}

// Analyze derives the full statistic bundle from raw duration samples.
func (a *Analyzer) Analyze(samples []time.Duration) (*Analysis, error) {
	if len(samples) < 2 {
		return nil, ErrInsufficientSamples
	}

	sorted := make([]float64, len(samples))
	for i, s := range samples {
		sorted[i] = float64(s.Nanoseconds())
	}
	sort.Float64s(sorted)

	n := float64(len(sorted))
	mean := sum(sorted) / n

	var sqDiff float64
	for _, v := range sorted {
		d := v - mean
		sqDiff += d * d
	}
	// Population standard deviation: every measured iteration is in the set.
	stdDev := math.Sqrt(sqDiff / n)
	stdErr := stdDev / math.Sqrt(n)

	quartiles := computeQuartiles(sorted)
	outliers := 0
	for _, v := range sorted {
		if v < quartiles.LowerFenceNs || v > quartiles.UpperFenceNs {
			outliers++
		}
	}

	cov := math.Inf(1)
	if mean != 0 {
		cov = stdDev / math.Abs(mean)
	}

	analysis := &Analysis{
		SampleCount:          len(sorted),
		MeanNs:               mean,
		MinNs:                sorted[0],
		MaxNs:                sorted[len(sorted)-1],
		StdDevNs:             stdDev,
		StdErrorNs:           stdErr,
		P5Ns:                 Percentile(sorted, 5),
		P25Ns:                Percentile(sorted, 25),
		P50Ns:                Percentile(sorted, 50),
		P75Ns:                Percentile(sorted, 75),
		P95Ns:                Percentile(sorted, 95),
		P99Ns:                Percentile(sorted, 99),
		ConfidenceInterval95: confidenceInterval(mean, stdErr, 1.96),
		ConfidenceInterval99: confidenceInterval(mean, stdErr, 2.576),
		Quartiles:            quartiles,
		OutlierCount:         outliers,
		OutlierPercent:       float64(outliers) / n * 100.0,
		Skewness:             skewness(sorted, mean, stdDev),
		Kurtosis:             kurtosis(sorted, mean, stdDev),
		CoefficientOfVariation: cov,
		// The normal approximation behind the interval holds for n >= MinSamples.
		IsStatisticallySignificant: len(sorted) >= a.minSamples(),
	}
	return analysis, nil
}

func (a *Analyzer) minSamples() int {
	if a.MinSamples > 0 {
		return a.MinSamples
	}
	return DefaultMinSamples
}

// Percentile computes a percentile over sorted data using linear
// interpolation between the two nearest ranks, resolving exact hits
// toward the lower index.
func Percentile(sorted []float64, percentile float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	p := math.Max(0, math.Min(100, percentile))
	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1.0-weight) + sorted[upper]*weight
}

func confidenceInterval(mean, stdErr, z float64) Interval {
	margin := z * stdErr
	return Interval{LowerNs: mean - margin, UpperNs: mean + margin}
}

func computeQuartiles(sorted []float64) Quartiles {
	q1 := Percentile(sorted, 25)
	q3 := Percentile(sorted, 75)
	iqr := q3 - q1
	return Quartiles{
		Q1Ns:         q1,
		Q3Ns:         q3,
		IQRNs:        iqr,
		LowerFenceNs: q1 - 1.5*iqr,
		UpperFenceNs: q3 + 1.5*iqr,
	}
}

func skewness(data []float64, mean, stdDev float64) float64 {
	n := float64(len(data))
	if stdDev == 0 || n < 3 {
		return 0
	}
	var sumCubed float64
	for _, v := range data {
		d := (v - mean) / stdDev
		sumCubed += d * d * d
	}
	return (n / ((n - 1) * (n - 2))) * sumCubed
}

func kurtosis(data []float64, mean, stdDev float64) float64 {
	n := float64(len(data))
	if stdDev == 0 || n < 4 {
		return 0
	}
	var sumFourth float64
	for _, v := range data {
		d := (v - mean) / stdDev
		sumFourth += d * d * d * d
	}
	raw := (n * (n + 1) / ((n - 1) * (n - 2) * (n - 3))) * sumFourth
	correction := 3.0 * (n - 1) * (n - 1) / ((n - 2) * (n - 3))
	return raw - correction
}

func sum(data []float64) float64 {
	var total float64
	for _, v := range data {
		total += v
	}
	return total
}
