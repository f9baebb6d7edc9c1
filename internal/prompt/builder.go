// Package prompt builds the meta, domain and self-reflection prompts sent to
// the completion service. Every function here is pure string composition.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/finval/pkg/models"
)

// BuildMetaPrompt produces the instructional prompt describing how a
// specialist should structure its validation of the given criteria.
func BuildMetaPrompt(agentLabel, taskDescription string, criteria []models.Criterion) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are an expert prompt engineer and %s validation specialist.\n", agentLabel)
	sb.WriteString("Your task is to create the most effective prompt for validating financial statements.\n\n")
	fmt.Fprintf(&sb, "TASK: %s\n\n", taskDescription)
	sb.WriteString("VALIDATION CRITERIA:\n")
	sb.WriteString(FormatCriteria(criteria))
	sb.WriteString("\n\nUsing meta prompting principles, create a systematic validation framework that:\n")
	for i, d := range metaDirectives {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, d)
	}
	sb.WriteString("\nGenerate an optimized prompt that will ensure thorough and accurate validation.\n")

	return sb.String()
}

// BuildDomainPrompt fills the statement-specific template for kind with the
// document text and criteria. Unknown kinds yield an empty string.
func BuildDomainPrompt(kind models.AgentKind, documentText string, criteria []models.Criterion) string {
	tmpl, ok := domainTemplate(kind)
	if !ok {
		return ""
	}

	r := strings.NewReplacer(
		documentPlaceholder, documentText,
		criteriaPlaceholder, FormatCriteria(criteria),
	)
	return r.Replace(tmpl)
}

// BuildReflectionPrompt asks the model to critique and improve a prior analysis.
func BuildReflectionPrompt(priorAnalysis string) string {
	var sb strings.Builder

	sb.WriteString("Review your validation analysis below and perform self-reflection:\n\n")
	sb.WriteString("VALIDATION RESULT:\n")
	sb.WriteString(priorAnalysis)
	sb.WriteString("\n\nSelf-reflection questions:\n")
	for i, q := range reflectionQuestions {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, q)
	}
	sb.WriteString("\nProvide an improved validation analysis addressing any gaps identified.\n")

	return sb.String()
}

// FormatCriteria renders criteria as a "- " bullet list, one per line.
func FormatCriteria(criteria []models.Criterion) string {
	lines := make([]string, len(criteria))
	for i, c := range criteria {
		lines[i] = "- " + string(c)
	}
	return strings.Join(lines, "\n")
}

func domainTemplate(kind models.AgentKind) (string, bool) {
	switch kind {
	case models.AgentBalanceSheet:
		return balanceSheetTemplate, true
	case models.AgentProfitLoss:
		return profitLossTemplate, true
	case models.AgentCashFlow:
		return cashFlowTemplate, true
	case models.AgentNotes:
		return notesTemplate, true
	default:
		return "", false
	}
}
