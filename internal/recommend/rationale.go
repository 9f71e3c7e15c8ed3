package recommend

import (
	"fmt"
	"strings"
)

const (
	clauseSenior    = "Devido à idade do paciente, a progressão será mais cautelosa, com atenção redobrada à tolerância aos exercícios."
	clauseHighPain  = "Considerando o nível elevado de dor, o tratamento inicia com exercícios de baixa intensidade para controle sintomático."
	clauseSedentary = "Como o estilo de vida é sedentário, o plano enfatiza educação em saúde e estratégias de motivação para adesão."
	clauseClosing   = "Este plano deve ser reavaliado periodicamente e ajustado conforme a evolução clínica observada pelo fisioterapeuta."

	unnamedCondition = "condição não especificada"
)

func severityLabel(s Severity) string {
	switch s {
	case SeverityMild:
		return "leve"
	case SeveritySevere:
		return "grave"
	default:
		return "moderada"
	}
}

// buildReasoning assembles the rationale. Clauses are appended in a fixed
// order and never rewrite one another.
func buildReasoning(p PatientProfile, duration, frequency int) string {
	condition := strings.TrimSpace(p.Condition)
	if condition == "" {
		condition = unnamedCondition
	}

	clauses := []string{
		fmt.Sprintf("Plano para %s de grau %s com duração de %d semanas e frequência de %d sessões por semana.",
			condition, severityLabel(p.Severity), duration, frequency),
	}
	if p.Age > seniorAge {
		clauses = append(clauses, clauseSenior)
	}
	if p.PainLevel > highPainIntensity {
		clauses = append(clauses, clauseHighPain)
	}
	if p.Lifestyle == LifestyleSedentary {
		clauses = append(clauses, clauseSedentary)
	}
	clauses = append(clauses, clauseClosing)

	return strings.Join(clauses, " ")
}
