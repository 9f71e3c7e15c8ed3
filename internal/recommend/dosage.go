package recommend

import (
	"cmp"
	"math"
)

const (
	minFrequency = 2
	maxFrequency = 5

	highPainFrequency = 7 // pain above this drops a session
	lowPainFrequency  = 3 // pain below this adds a session
	seniorAge         = 65
)

// clamp bounds v to [lo, hi]. Every adjustment step goes through it so that
// floors and ceilings apply after each step rather than once at the end.
func clamp[T cmp.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

func baseFrequency(s Severity) int {
	switch s {
	case SeverityMild:
		return 2
	case SeveritySevere:
		return 4
	default:
		return 3
	}
}

// adjustFrequency applies pain, then lifestyle, then age. Order matters when
// several floors or ceilings trigger together.
func adjustFrequency(base int, p PatientProfile) int {
	f := clamp(base, minFrequency, maxFrequency)

	if p.PainLevel > highPainFrequency {
		f = clamp(f-1, minFrequency, maxFrequency)
	} else if p.PainLevel < lowPainFrequency {
		f = clamp(f+1, minFrequency, maxFrequency)
	}

	switch p.Lifestyle {
	case LifestyleSedentary:
		f = clamp(f-1, minFrequency, maxFrequency)
	case LifestyleVeryActive:
		f = clamp(f+1, minFrequency, maxFrequency)
	case LifestyleActive:
	}

	if p.Age > seniorAge {
		f = clamp(f-1, minFrequency, maxFrequency)
	}
	return f
}

func ageModifier(age int) float64 {
	switch {
	case age < 30:
		return 1.1
	case age > 60:
		return 0.8
	default:
		return 1.0
	}
}

func lifestyleModifier(l Lifestyle) float64 {
	switch l {
	case LifestyleSedentary:
		return 0.8
	case LifestyleVeryActive:
		return 1.2
	default:
		return 1.0
	}
}

// adjustDuration divides the base weeks by the combined modifier, so younger
// and more active patients get shorter plans.
func adjustDuration(base int, p PatientProfile) int {
	modifier := ageModifier(p.Age) * lifestyleModifier(p.Lifestyle)
	weeks := int(math.Round(float64(base) / modifier))
	return max(weeks, 1)
}
