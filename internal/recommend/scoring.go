package recommend

import (
	"math"
	"strings"
)

const (
	baseConfidence = 80
	minConfidence  = 50
	maxConfidence  = 95
	minAdultAge    = 18
	edgeSeniorAge  = 75
)

type outcomeRule struct {
	metric          Metric
	improvementOff  int
	improvementCap  int
	timeframeFactor float64
	confidenceOff   int
	confidenceCap   int
}

// outcomeRules is ordered: pain, mobility, function.
var outcomeRules = []outcomeRule{
	{metric: MetricPainReduction, improvementOff: 0, improvementCap: 90, timeframeFactor: 0.6, confidenceOff: 5, confidenceCap: 95},
	{metric: MetricMobilityImprovement, improvementOff: -5, improvementCap: 85, timeframeFactor: 1.0, confidenceOff: 0, confidenceCap: 90},
	{metric: MetricFunctionImprovement, improvementOff: -10, improvementCap: 80, timeframeFactor: 1.2, confidenceOff: -5, confidenceCap: 85},
}

// adjustedSuccessRate applies every modifier against the same base. Clamping
// happens per metric, not here.
func adjustedSuccessRate(base int, p PatientProfile) int {
	rate := base
	if p.Age < 30 {
		rate += 10
	}
	if p.Age > seniorAge {
		rate -= 15
	}
	switch p.Lifestyle {
	case LifestyleVeryActive:
		rate += 5
	case LifestyleSedentary:
		rate -= 10
	case LifestyleActive:
	}
	return rate
}

func projectOutcomes(successRate, duration int, p PatientProfile) []ExpectedOutcome {
	s := adjustedSuccessRate(successRate, p)
	outcomes := make([]ExpectedOutcome, 0, len(outcomeRules))
	for _, r := range outcomeRules {
		outcomes = append(outcomes, ExpectedOutcome{
			Metric:              r.metric,
			ExpectedImprovement: clamp(s+r.improvementOff, 0, r.improvementCap),
			Timeframe:           int(math.Ceil(float64(duration) * r.timeframeFactor)),
			Confidence:          clamp(s+r.confidenceOff, 0, r.confidenceCap),
		})
	}
	return outcomes
}

// confidenceScore is the overall trust heuristic for a plan.
func (e *Engine) confidenceScore(p PatientProfile) int {
	score := baseConfidence
	if hasCoreFields(p) {
		score += 10
	}
	if _, ok := e.common[normalizeCondition(p.Condition)]; ok {
		score += 10
	}
	if p.Age > edgeSeniorAge || p.Age < minAdultAge {
		score -= 10
	}
	return clamp(score, minConfidence, maxConfidence)
}

// hasCoreFields reports whether condition, severity and pain are all set.
// PainLevel is not optional today, so only the first two can be missing.
func hasCoreFields(p PatientProfile) bool {
	return strings.TrimSpace(p.Condition) != "" && p.Severity.Valid()
}
