package recommend

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidKnowledge = errors.New("invalid knowledge base")

// BySeverity holds one value per severity.
type BySeverity[T any] struct {
	Mild     T `json:"mild" yaml:"mild"`
	Moderate T `json:"moderate" yaml:"moderate"`
	Severe   T `json:"severe" yaml:"severe"`
}

// For selects the value for s. Profiles are normalised before dispatch, so
// anything that is not mild or severe reads the moderate column.
func (b BySeverity[T]) For(s Severity) T {
	switch s {
	case SeverityMild:
		return b.Mild
	case SeveritySevere:
		return b.Severe
	default:
		return b.Moderate
	}
}

func (b BySeverity[T]) each(fn func(Severity, T)) {
	fn(SeverityMild, b.Mild)
	fn(SeverityModerate, b.Moderate)
	fn(SeveritySevere, b.Severe)
}

// KnowledgeEntry is the reference data for one condition. Exercise order is
// selection priority.
type KnowledgeEntry struct {
	Exercises   BySeverity[[]string] `json:"exercises" yaml:"exercises"`
	Videos      BySeverity[[]string] `json:"videos" yaml:"videos"`
	Duration    BySeverity[int]      `json:"duration" yaml:"duration"`
	SuccessRate BySeverity[int]      `json:"successRate" yaml:"successRate"`
}

// FallbackEntry is the generic plan for conditions outside the table.
type FallbackEntry struct {
	Exercises   []string `json:"exercises" yaml:"exercises"`
	Videos      []string `json:"videos" yaml:"videos"`
	Frequency   int      `json:"frequency" yaml:"frequency"`
	Duration    int      `json:"duration" yaml:"duration"`
	SuccessRate int      `json:"successRate" yaml:"successRate"`
}

// Knowledge is the versioned condition table injected into the Engine.
type Knowledge struct {
	Version          string                    `json:"version" yaml:"version"`
	Conditions       map[string]KnowledgeEntry `json:"conditions" yaml:"conditions"`
	Fallback         FallbackEntry             `json:"fallback" yaml:"fallback"`
	CommonConditions []string                  `json:"commonConditions" yaml:"commonConditions"`
}

func normalizeCondition(condition string) string {
	return strings.ToLower(strings.TrimSpace(condition))
}

// DefaultKnowledge returns the built-in condition table.
func DefaultKnowledge() Knowledge {
	return Knowledge{
		Version: "2024.1",
		Conditions: map[string]KnowledgeEntry{
			"lombalgia": {
				Exercises: BySeverity[[]string]{
					Mild:     []string{"alongamento_lombar", "ponte_gluteo", "gato_camelo", "prancha_modificada", "caminhada_leve"},
					Moderate: []string{"respiracao_diafragmatica", "alongamento_lombar", "joelho_peito", "ponte_gluteo", "gato_camelo"},
					Severe:   []string{"respiracao_diafragmatica", "posicao_alivio_lombar", "joelho_peito", "mobilizacao_pelvica"},
				},
				Videos: BySeverity[[]string]{
					Mild:     []string{"video_lombar_alongamento", "video_lombar_fortalecimento"},
					Moderate: []string{"video_lombar_mobilidade", "video_lombar_alongamento"},
					Severe:   []string{"video_lombar_alivio_dor", "video_postura_sono"},
				},
				Duration:    BySeverity[int]{Mild: 4, Moderate: 6, Severe: 10},
				SuccessRate: BySeverity[int]{Mild: 85, Moderate: 75, Severe: 60},
			},
			"cervicalgia": {
				Exercises: BySeverity[[]string]{
					Mild:     []string{"alongamento_cervical", "retracao_cervical", "rotacao_cervical", "elevacao_ombros"},
					Moderate: []string{"retracao_cervical", "alongamento_trapezio", "isometria_cervical", "mobilizacao_escapular"},
					Severe:   []string{"respiracao_diafragmatica", "isometria_cervical_leve", "relaxamento_trapezio"},
				},
				Videos: BySeverity[[]string]{
					Mild:     []string{"video_cervical_alongamento", "video_ergonomia_trabalho"},
					Moderate: []string{"video_cervical_isometria", "video_ergonomia_trabalho"},
					Severe:   []string{"video_cervical_alivio_dor", "video_relaxamento_guiado"},
				},
				Duration:    BySeverity[int]{Mild: 4, Moderate: 6, Severe: 8},
				SuccessRate: BySeverity[int]{Mild: 85, Moderate: 75, Severe: 65},
			},
			"ombro": {
				Exercises: BySeverity[[]string]{
					Mild:     []string{"pendulo_codman", "rotacao_externa_elastico", "elevacao_escapular", "flexao_ombro_bastao", "remada_elastico"},
					Moderate: []string{"pendulo_codman", "deslizamento_parede", "rotacao_externa_isometrica", "flexao_ombro_bastao"},
					Severe:   []string{"pendulo_codman", "mobilizacao_passiva_ombro", "isometria_ombro_leve"},
				},
				Videos: BySeverity[[]string]{
					Mild:     []string{"video_ombro_fortalecimento", "video_ombro_mobilidade"},
					Moderate: []string{"video_ombro_mobilidade", "video_ombro_pendulo"},
					Severe:   []string{"video_ombro_pendulo", "video_ombro_cuidados"},
				},
				Duration:    BySeverity[int]{Mild: 6, Moderate: 8, Severe: 12},
				SuccessRate: BySeverity[int]{Mild: 80, Moderate: 70, Severe: 55},
			},
			"joelho": {
				Exercises: BySeverity[[]string]{
					Mild:     []string{"agachamento_parcial", "extensao_joelho_sentado", "step_up", "ponte_gluteo", "equilibrio_unipodal"},
					Moderate: []string{"isometria_quadriceps", "extensao_joelho_sentado", "elevacao_perna_estendida", "agachamento_parcial"},
					Severe:   []string{"isometria_quadriceps", "mobilizacao_patelar", "elevacao_perna_estendida"},
				},
				Videos: BySeverity[[]string]{
					Mild:     []string{"video_joelho_fortalecimento", "video_joelho_equilibrio"},
					Moderate: []string{"video_joelho_quadriceps", "video_joelho_fortalecimento"},
					Severe:   []string{"video_joelho_isometria", "video_joelho_cuidados"},
				},
				Duration:    BySeverity[int]{Mild: 6, Moderate: 8, Severe: 12},
				SuccessRate: BySeverity[int]{Mild: 80, Moderate: 70, Severe: 55},
			},
			"tendinite": {
				Exercises: BySeverity[[]string]{
					Mild:     []string{"excentrico_punho", "alongamento_flexores", "alongamento_extensores", "preensao_bola"},
					Moderate: []string{"isometria_punho", "alongamento_flexores", "excentrico_punho"},
					Severe:   []string{"repouso_relativo", "isometria_punho_leve", "crioterapia_orientada"},
				},
				Videos: BySeverity[[]string]{
					Mild:     []string{"video_tendinite_excentrico", "video_ergonomia_trabalho"},
					Moderate: []string{"video_tendinite_isometria", "video_ergonomia_trabalho"},
					Severe:   []string{"video_tendinite_cuidados", "video_crioterapia"},
				},
				Duration:    BySeverity[int]{Mild: 4, Moderate: 6, Severe: 10},
				SuccessRate: BySeverity[int]{Mild: 85, Moderate: 72, Severe: 60},
			},
			"fascite_plantar": {
				Exercises: BySeverity[[]string]{
					Mild:     []string{"alongamento_panturrilha", "rolamento_plantar", "toalha_dedos", "elevacao_calcanhar"},
					Moderate: []string{"alongamento_fascia", "alongamento_panturrilha", "rolamento_plantar"},
					Severe:   []string{"alongamento_fascia_leve", "rolamento_plantar", "crioterapia_orientada"},
				},
				Videos: BySeverity[[]string]{
					Mild:     []string{"video_fascite_alongamento", "video_fascite_fortalecimento"},
					Moderate: []string{"video_fascite_alongamento", "video_calcados"},
					Severe:   []string{"video_fascite_alivio_dor", "video_calcados"},
				},
				Duration:    BySeverity[int]{Mild: 4, Moderate: 8, Severe: 12},
				SuccessRate: BySeverity[int]{Mild: 82, Moderate: 70, Severe: 58},
			},
		},
		Fallback: FallbackEntry{
			Exercises:   []string{"avaliacao_geral", "exercicios_basicos", "alongamento_geral"},
			Videos:      []string{"introducao_fisioterapia", "exercicios_gerais"},
			Frequency:   2,
			Duration:    6,
			SuccessRate: 70,
		},
		CommonConditions: []string{"lombalgia", "cervicalgia", "ombro", "joelho"},
	}
}

// LoadKnowledge reads a knowledge base from a YAML or JSON file. Condition
// keys are lower-cased and the result is validated; two keys that collapse to
// the same name are rejected.
func LoadKnowledge(path string) (Knowledge, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Knowledge{}, fmt.Errorf("read knowledge file: %w", err)
	}

	// JSON documents are valid YAML, so one decoder covers both formats.
	var kb Knowledge
	if err := yaml.Unmarshal(raw, &kb); err != nil {
		return Knowledge{}, fmt.Errorf("parse knowledge file %s: %w", path, err)
	}

	names := make([]string, 0, len(kb.Conditions))
	for name := range kb.Conditions {
		names = append(names, name)
	}
	sort.Strings(names)

	conditions := make(map[string]KnowledgeEntry, len(kb.Conditions))
	for _, name := range names {
		key := normalizeCondition(name)
		if _, dup := conditions[key]; dup {
			return Knowledge{}, fmt.Errorf("%w: duplicate condition %q after normalisation", ErrInvalidKnowledge, key)
		}
		conditions[key] = kb.Conditions[name]
	}
	kb.Conditions = conditions

	if errs := ValidateKnowledge(kb); len(errs) > 0 {
		return Knowledge{}, fmt.Errorf("%w: %w", ErrInvalidKnowledge, errors.Join(errs...))
	}
	return kb, nil
}

// ValidateKnowledge checks a knowledge base for structural errors.
// Returns a slice of errors (empty if valid).
func ValidateKnowledge(kb Knowledge) []error {
	var errs []error

	if strings.TrimSpace(kb.Version) == "" {
		errs = append(errs, fmt.Errorf("knowledge version is required"))
	}

	names := make([]string, 0, len(kb.Conditions))
	for name := range kb.Conditions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if name == "" || name != normalizeCondition(name) {
			errs = append(errs, fmt.Errorf("condition %q: key must be lower-case and trimmed", name))
		}
		entry := kb.Conditions[name]
		entry.Exercises.each(func(s Severity, ids []string) {
			errs = append(errs, checkIDs(fmt.Sprintf("condition %q: exercises.%s", name, s), ids)...)
		})
		entry.Videos.each(func(s Severity, ids []string) {
			errs = append(errs, checkIDs(fmt.Sprintf("condition %q: videos.%s", name, s), ids)...)
		})
		entry.Duration.each(func(s Severity, weeks int) {
			if weeks <= 0 {
				errs = append(errs, fmt.Errorf("condition %q: duration.%s must be positive, got %d", name, s, weeks))
			}
		})
		entry.SuccessRate.each(func(s Severity, rate int) {
			if rate < 0 || rate > 100 {
				errs = append(errs, fmt.Errorf("condition %q: successRate.%s must be within 0..100, got %d", name, s, rate))
			}
		})
	}

	fb := kb.Fallback
	errs = append(errs, checkIDs("fallback: exercises", fb.Exercises)...)
	errs = append(errs, checkIDs("fallback: videos", fb.Videos)...)
	if fb.Frequency < minFrequency || fb.Frequency > maxFrequency {
		errs = append(errs, fmt.Errorf("fallback: frequency must be within %d..%d, got %d", minFrequency, maxFrequency, fb.Frequency))
	}
	if fb.Duration <= 0 {
		errs = append(errs, fmt.Errorf("fallback: duration must be positive, got %d", fb.Duration))
	}
	if fb.SuccessRate < 0 || fb.SuccessRate > 100 {
		errs = append(errs, fmt.Errorf("fallback: successRate must be within 0..100, got %d", fb.SuccessRate))
	}

	return errs
}

func checkIDs(where string, ids []string) []error {
	if len(ids) == 0 {
		return []error{fmt.Errorf("%s: at least one id is required", where)}
	}
	var errs []error
	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, fmt.Errorf("%s[%d]: id is empty", where, i))
			continue
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("%s[%d]: duplicate id %q", where, i, id))
		}
		seen[id] = true
	}
	return errs
}
