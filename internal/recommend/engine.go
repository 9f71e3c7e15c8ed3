// Package recommend turns a patient profile into a physiotherapy treatment
// plan: exercise and video selection, dosage, phased progression, projected
// outcomes, an overall confidence score and a written rationale.
//
// The Engine is a pure function of its knowledge base and input. It holds no
// mutable state and is safe for concurrent use.
package recommend

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Engine struct {
	version    string
	conditions map[string]KnowledgeEntry
	fallback   FallbackEntry
	common     map[string]struct{}
	policy     InputPolicy
}

type Option func(*Engine)

// WithInputPolicy sets how out-of-range profiles are handled. Default is PolicyReject.
func WithInputPolicy(p InputPolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// NewEngine builds an engine over kb. The knowledge base is copied, so later
// changes by the caller do not leak into generated plans.
func NewEngine(kb Knowledge, opts ...Option) (*Engine, error) {
	if errs := ValidateKnowledge(kb); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKnowledge, errors.Join(errs...))
	}

	e := &Engine{
		version:    kb.Version,
		conditions: make(map[string]KnowledgeEntry, len(kb.Conditions)),
		fallback:   copyFallback(kb.Fallback),
		common:     make(map[string]struct{}, len(kb.CommonConditions)),
		policy:     PolicyReject,
	}
	for name, entry := range kb.Conditions {
		e.conditions[normalizeCondition(name)] = copyEntry(entry)
	}
	for _, name := range kb.CommonConditions {
		e.common[normalizeCondition(name)] = struct{}{}
	}
	for _, opt := range opts {
		opt(e)
	}
	policy, err := ParseInputPolicy(string(e.policy))
	if err != nil {
		return nil, err
	}
	e.policy = policy
	return e, nil
}

// Version is the knowledge base version stamped on every plan.
func (e *Engine) Version() string { return e.version }

func (e *Engine) Policy() InputPolicy { return e.policy }

// Conditions lists the known condition keys in sorted order.
func (e *Engine) Conditions() []string {
	names := make([]string, 0, len(e.conditions))
	for name := range e.conditions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolved is the base plan before modifiers.
type resolved struct {
	exercises   []string
	videos      []string
	frequency   int
	duration    int
	successRate int
	fallback    bool
}

// resolve looks the condition up in the table. Unknown conditions, including
// the empty string, get the generic fallback rather than an error.
func (e *Engine) resolve(condition string, s Severity) resolved {
	entry, ok := e.conditions[normalizeCondition(condition)]
	if !ok {
		return resolved{
			exercises:   e.fallback.Exercises,
			videos:      e.fallback.Videos,
			frequency:   e.fallback.Frequency,
			duration:    e.fallback.Duration,
			successRate: e.fallback.SuccessRate,
			fallback:    true,
		}
	}
	return resolved{
		exercises:   entry.Exercises.For(s),
		videos:      entry.Videos.For(s),
		frequency:   baseFrequency(s),
		duration:    entry.Duration.For(s),
		successRate: entry.SuccessRate.For(s),
	}
}

// Generate builds the treatment recommendation for p. The only error is an
// invalid profile under PolicyReject.
func (e *Engine) Generate(p PatientProfile) (TreatmentRecommendation, error) {
	p, err := e.Admit(p)
	if err != nil {
		return TreatmentRecommendation{}, err
	}

	base := e.resolve(p.Condition, p.Severity)
	frequency := adjustFrequency(base.frequency, p)
	duration := adjustDuration(base.duration, p)

	return TreatmentRecommendation{
		ExerciseIDs:      cloneIDs(base.exercises),
		VideoIDs:         cloneIDs(base.videos),
		Frequency:        frequency,
		Duration:         duration,
		ProgressionPlan:  buildProgression(duration, base.exercises, p),
		ExpectedOutcomes: projectOutcomes(base.successRate, duration, p),
		ConfidenceScore:  e.confidenceScore(p),
		Reasoning:        buildReasoning(p, duration, frequency),
		Fallback:         base.fallback,
		KnowledgeVersion: e.version,
	}, nil
}

// IsKnown reports whether condition has a table entry.
func (e *Engine) IsKnown(condition string) bool {
	_, ok := e.conditions[normalizeCondition(condition)]
	return ok
}

func cloneIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func copyEntry(entry KnowledgeEntry) KnowledgeEntry {
	cloneSet := func(b BySeverity[[]string]) BySeverity[[]string] {
		return BySeverity[[]string]{
			Mild:     cloneIDs(b.Mild),
			Moderate: cloneIDs(b.Moderate),
			Severe:   cloneIDs(b.Severe),
		}
	}
	entry.Exercises = cloneSet(entry.Exercises)
	entry.Videos = cloneSet(entry.Videos)
	return entry
}

func copyFallback(fb FallbackEntry) FallbackEntry {
	fb.Exercises = cloneIDs(fb.Exercises)
	fb.Videos = cloneIDs(fb.Videos)
	return fb
}

// Summary is a one-line description for logs.
func (r TreatmentRecommendation) Summary() string {
	phases := make([]string, 0, len(r.ProgressionPlan))
	for _, step := range r.ProgressionPlan {
		phases = append(phases, fmt.Sprintf("%s@w%d", step.Phase, step.Week))
	}
	return fmt.Sprintf("%dx/week for %d weeks [%s] confidence=%d", r.Frequency, r.Duration, strings.Join(phases, " "), r.ConfidenceScore)
}
