package recommend

import "math"

const (
	minIntensity = 2
	maxIntensity = 8
	// seniorIntensityFloor is higher than minIntensity: an older patient's
	// reduction never lands below 3.
	seniorIntensityFloor = 3

	highPainIntensity = 6
)

type phaseSpec struct {
	fraction  float64
	intensity int
}

var phaseSpecs = map[Phase]phaseSpec{
	PhaseInitial:      {fraction: 0.6, intensity: 3},
	PhaseIntermediate: {fraction: 0.8, intensity: 5},
	PhaseAdvanced:     {fraction: 1.0, intensity: 7},
}

type phaseStart struct {
	phase Phase
	week  int
}

// phaseSchedule partitions a plan of the given length into phases.
func phaseSchedule(duration int) []phaseStart {
	switch {
	case duration <= 4:
		return []phaseStart{{PhaseInitial, 1}, {PhaseIntermediate, 3}}
	case duration <= 8:
		return []phaseStart{{PhaseInitial, 1}, {PhaseIntermediate, 3}, {PhaseAdvanced, 6}}
	default:
		return []phaseStart{{PhaseInitial, 1}, {PhaseIntermediate, 4}, {PhaseAdvanced, 8}}
	}
}

func buildProgression(duration int, exercises []string, p PatientProfile) []ProgressionStep {
	schedule := phaseSchedule(duration)
	steps := make([]ProgressionStep, 0, len(schedule))
	for _, start := range schedule {
		spec := phaseSpecs[start.phase]
		steps = append(steps, ProgressionStep{
			Week:      start.week,
			Phase:     start.phase,
			Exercises: exercisePrefix(exercises, spec.fraction),
			Intensity: phaseIntensity(spec.intensity, p),
		})
	}
	return steps
}

// exercisePrefix returns the first ceil(len*fraction) ids as a fresh slice.
func exercisePrefix(exercises []string, fraction float64) []string {
	n := int(math.Ceil(float64(len(exercises)) * fraction))
	n = clamp(n, 0, len(exercises))
	out := make([]string, n)
	copy(out, exercises[:n])
	return out
}

func phaseIntensity(seed int, p PatientProfile) int {
	intensity := seed
	if p.PainLevel > highPainIntensity {
		intensity = clamp(intensity-2, minIntensity, 10)
	}
	if p.Lifestyle == LifestyleVeryActive {
		intensity = clamp(intensity+1, 1, maxIntensity)
	}
	if p.Age > seniorAge {
		intensity = clamp(intensity-1, seniorIntensityFloor, 10)
	}
	return intensity
}
