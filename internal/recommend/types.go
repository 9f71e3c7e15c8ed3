package recommend

// Severity is the clinical staging of a condition.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Lifestyle is the patient's habitual activity level.
type Lifestyle string

const (
	LifestyleSedentary  Lifestyle = "sedentary"
	LifestyleActive     Lifestyle = "active"
	LifestyleVeryActive Lifestyle = "very_active"
)

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "Other"
)

type MobilityLevel string

const (
	MobilityLow    MobilityLevel = "low"
	MobilityMedium MobilityLevel = "medium"
	MobilityHigh   MobilityLevel = "high"
)

// Phase names a stage of the progression plan. Phases are ordered.
type Phase string

const (
	PhaseInitial      Phase = "initial"
	PhaseIntermediate Phase = "intermediate"
	PhaseAdvanced     Phase = "advanced"
)

// Metric is a projected clinical outcome.
type Metric string

const (
	MetricPainReduction       Metric = "pain_reduction"
	MetricMobilityImprovement Metric = "mobility_improvement"
	MetricFunctionImprovement Metric = "function_improvement"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityMild, SeverityModerate, SeveritySevere:
		return true
	}
	return false
}

func (l Lifestyle) Valid() bool {
	switch l {
	case LifestyleSedentary, LifestyleActive, LifestyleVeryActive:
		return true
	}
	return false
}

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

func (m MobilityLevel) Valid() bool {
	switch m {
	case MobilityLow, MobilityMedium, MobilityHigh:
		return true
	}
	return false
}

// PatientProfile is the fully resolved input to the engine.
// Gender, MobilityLevel and Goals are carried but not consumed by any rule yet.
type PatientProfile struct {
	Age           int           `json:"age" yaml:"age" validate:"gte=0,lte=130"`
	Gender        Gender        `json:"gender,omitempty" yaml:"gender,omitempty" validate:"omitempty,oneof=M F Other"`
	Condition     string        `json:"condition" yaml:"condition"`
	Severity      Severity      `json:"severity" yaml:"severity" validate:"required,oneof=mild moderate severe"`
	PainLevel     int           `json:"painLevel" yaml:"painLevel" validate:"gte=0,lte=10"`
	MobilityLevel MobilityLevel `json:"mobilityLevel,omitempty" yaml:"mobilityLevel,omitempty" validate:"omitempty,oneof=low medium high"`
	Lifestyle     Lifestyle     `json:"lifestyle" yaml:"lifestyle" validate:"required,oneof=sedentary active very_active"`
	Goals         []string      `json:"goals,omitempty" yaml:"goals,omitempty"`
}

type ProgressionStep struct {
	Week      int      `json:"week"`
	Phase     Phase    `json:"phase"`
	Exercises []string `json:"exercises"`
	Intensity int      `json:"intensity"`
}

type ExpectedOutcome struct {
	Metric              Metric `json:"metric"`
	ExpectedImprovement int    `json:"expectedImprovement"`
	Timeframe           int    `json:"timeframe"`
	Confidence          int    `json:"confidence"`
}

// TreatmentRecommendation is the engine output. It is created fresh per call.
type TreatmentRecommendation struct {
	ExerciseIDs      []string          `json:"exerciseIds"`
	VideoIDs         []string          `json:"videoIds"`
	Frequency        int               `json:"frequency"`
	Duration         int               `json:"duration"`
	ProgressionPlan  []ProgressionStep `json:"progressionPlan"`
	ExpectedOutcomes []ExpectedOutcome `json:"expectedOutcomes"`
	ConfidenceScore  int               `json:"confidenceScore"`
	Reasoning        string            `json:"reasoning"`

	// Fallback is set when the condition did not match the knowledge base.
	Fallback         bool   `json:"fallback"`
	KnowledgeVersion string `json:"knowledgeVersion"`
}
