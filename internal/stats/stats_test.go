package stats

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"
)

func durations(values ...int64) []time.Duration {
	out := make([]time.Duration, len(values))
	for i, v := range values {
		out[i] = time.Duration(v)
	}
	return out
}

func TestAnalyzeBasics(t *testing.T) {
	analyzer := NewAnalyzer()
	analysis, err := analyzer.Analyze(durations(1000, 2000, 3000, 4000, 5000))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.MeanNs != 3000 {
		t.Fatalf("mean: %v", analysis.MeanNs)
	}
	if analysis.P50Ns != 3000 {
		t.Fatalf("median: %v", analysis.P50Ns)
	}
	if analysis.MinNs != 1000 || analysis.MaxNs != 5000 {
		t.Fatalf("bounds: %v..%v", analysis.MinNs, analysis.MaxNs)
	}
	if analysis.SampleCount != 5 {
		t.Fatalf("count: %d", analysis.SampleCount)
	}
	// Population stddev of 1000..5000 step 1000 is sqrt(2_000_000).
	if want := math.Sqrt(2_000_000); math.Abs(analysis.StdDevNs-want) > 1e-9 {
		t.Fatalf("stddev: %v want %v", analysis.StdDevNs, want)
	}
}

func TestAnalyzeInsufficientSamples(t *testing.T) {
	analyzer := NewAnalyzer()
	if _, err := analyzer.Analyze(nil); !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("empty input: %v", err)
	}
	if _, err := analyzer.Analyze(durations(42)); !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("single sample: %v", err)
	}
}

func TestPercentileMonotonicity(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := 2 + r.Intn(200)
		samples := make([]time.Duration, n)
		for i := range samples {
			samples[i] = time.Duration(r.Int63n(1_000_000) + 1)
		}
		analysis, err := NewAnalyzer().Analyze(samples)
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if analysis.MinNs > analysis.P50Ns || analysis.P50Ns > analysis.P95Ns ||
			analysis.P95Ns > analysis.P99Ns || analysis.P99Ns > analysis.MaxNs {
			t.Fatalf("percentiles not monotonic: min=%v p50=%v p95=%v p99=%v max=%v",
				analysis.MinNs, analysis.P50Ns, analysis.P95Ns, analysis.P99Ns, analysis.MaxNs)
		}
	}
}

func TestSignificanceGating(t *testing.T) {
	analyzer := NewAnalyzer()

	small := make([]time.Duration, 29)
	for i := range small {
		small[i] = time.Duration(1000 + i)
	}
	analysis, err := analyzer.Analyze(small)
	if err != nil {
		t.Fatalf("Analyze small: %v", err)
	}
	if analysis.IsStatisticallySignificant {
		t.Fatal("29 samples must not be significant")
	}
	if analysis.ConfidenceInterval95.LowerNs == 0 && analysis.ConfidenceInterval95.UpperNs == 0 {
		t.Fatal("interval should still be computed below the gate")
	}

	large := make([]time.Duration, 30)
	for i := range large {
		large[i] = time.Duration(1000 + i)
	}
	analysis, err = analyzer.Analyze(large)
	if err != nil {
		t.Fatalf("Analyze large: %v", err)
	}
	if !analysis.IsStatisticallySignificant {
		t.Fatal("30 samples should be significant")
	}
}

func TestHighPrecisionGate(t *testing.T) {
	analyzer := &Analyzer{MinSamples: 1000}
	samples := make([]time.Duration, 999)
	for i := range samples {
		samples[i] = time.Duration(500 + i%7)
	}
	analysis, err := analyzer.Analyze(samples)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.IsStatisticallySignificant {
		t.Fatal("999 samples below a 1000 gate must not be significant")
	}
}

func TestConfidenceIntervalNormalApproximation(t *testing.T) {
	samples := make([]time.Duration, 100)
	for i := range samples {
		samples[i] = time.Duration(1000 + (i%10)*100)
	}
	analysis, err := NewAnalyzer().Analyze(samples)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	margin := 1.96 * analysis.StdDevNs / math.Sqrt(float64(analysis.SampleCount))
	if got := analysis.ConfidenceInterval95.UpperNs - analysis.MeanNs; math.Abs(got-margin) > 1e-9 {
		t.Fatalf("ci margin: got %v want %v", got, margin)
	}
	if analysis.ConfidenceInterval95.LowerNs >= analysis.ConfidenceInterval95.UpperNs {
		t.Fatal("interval inverted")
	}
}

func TestOutliersReportedNotRemoved(t *testing.T) {
	samples := durations(1000, 1100, 1050, 1020, 980, 100_000)
	analysis, err := NewAnalyzer().Analyze(samples)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.OutlierCount != 1 {
		t.Fatalf("outlier count: %d", analysis.OutlierCount)
	}
	if analysis.SampleCount != 6 {
		t.Fatalf("outliers must not be dropped: count %d", analysis.SampleCount)
	}
	if analysis.MaxNs != 100_000 {
		t.Fatalf("max should include outlier: %v", analysis.MaxNs)
	}
}

func TestIdenticalSamples(t *testing.T) {
	analysis, err := NewAnalyzer().Analyze(durations(5000, 5000, 5000, 5000))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.StdDevNs != 0 {
		t.Fatalf("stddev of identical samples: %v", analysis.StdDevNs)
	}
	if analysis.Skewness != 0 || analysis.Kurtosis != 0 {
		t.Fatalf("shape metrics should collapse to zero: %v %v", analysis.Skewness, analysis.Kurtosis)
	}
}

func TestCompareSignificance(t *testing.T) {
	base := &Analysis{MeanNs: 1000, ConfidenceInterval95: Interval{LowerNs: 990, UpperNs: 1010}}
	faster := &Analysis{MeanNs: 900, ConfidenceInterval95: Interval{LowerNs: 890, UpperNs: 910}}
	slower := &Analysis{MeanNs: 1100, ConfidenceInterval95: Interval{LowerNs: 1090, UpperNs: 1110}}
	noisy := &Analysis{MeanNs: 1005, ConfidenceInterval95: Interval{LowerNs: 995, UpperNs: 1015}}

	if got := Compare(base, faster); got.Significance != SignificantImprovement {
		t.Fatalf("improvement: %+v", got)
	}
	cmp := Compare(base, slower)
	if cmp.Significance != SignificantRegression {
		t.Fatalf("regression: %+v", cmp)
	}
	if math.Abs(cmp.PercentChange-10.0) > 1e-9 {
		t.Fatalf("percent change: %v", cmp.PercentChange)
	}
	if got := Compare(base, noisy); got.Significance != NotSignificant {
		t.Fatalf("overlap: %+v", got)
	}
}

func TestPercentileInterpolation(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}
	if got := Percentile(sorted, 50); got != 25 {
		t.Fatalf("p50 of even set: %v", got)
	}
	if got := Percentile(sorted, 0); got != 10 {
		t.Fatalf("p0: %v", got)
	}
	if got := Percentile(sorted, 100); got != 40 {
		t.Fatalf("p100: %v", got)
	}
	if got := Percentile([]float64{7}, 95); got != 7 {
		t.Fatalf("single element: %v", got)
	}
}
