// internal/stats/compare.go
package stats

// Significance classifies a baseline/current comparison.
type Significance string

const (
	// NotSignificant means the 95% confidence intervals overlap.
	NotSignificant Significance = "not_significant"
	// SignificantImprovement means the current mean is lower and the intervals are disjoint.
	SignificantImprovement Significance = "significant_improvement"
	// SignificantRegression means the current mean is higher and the intervals are disjoint.
	SignificantRegression Significance = "significant_regression"
)

// Comparison captures the relationship between a stored baseline analysis
// and a freshly measured one.
type Comparison struct {
	PercentChange    float64      `json:"percent_change"`
	AbsoluteChangeNs float64      `json:"absolute_change_ns"`
	Significance     Significance `json:"significance"`
	BaselineMeanNs   float64      `json:"baseline_mean_ns"`
	CurrentMeanNs    float64      `json:"current_mean_ns"`
}

// Compare measures the current analysis against a baseline. Significance is a
// confidence-interval overlap check: overlapping intervals cannot distinguish
// the two means regardless of the raw delta.
func Compare(baseline, current *Analysis) Comparison {
	diff := current.MeanNs - baseline.MeanNs
	percent := 0.0
	if baseline.MeanNs != 0 {
		percent = diff / baseline.MeanNs * 100.0
	}

	baseCI := baseline.ConfidenceInterval95
	curCI := current.ConfidenceInterval95
	overlaps := baseCI.UpperNs >= curCI.LowerNs && curCI.UpperNs >= baseCI.LowerNs

	significance := NotSignificant
	if !overlaps {
		if percent > 0 {
			significance = SignificantRegression
		} else {
			significance = SignificantImprovement
		}
	}

	return Comparison{
		PercentChange:    percent,
		AbsoluteChangeNs: diff,
		Significance:     significance,
		BaselineMeanNs:   baseline.MeanNs,
		CurrentMeanNs:    current.MeanNs,
	}
}
