// Package validation runs a single financial statement validator against
// extracted document text.
//
// # Overview
//
// Each statement type (balance sheet, profit and loss, cash flow, notes) is
// described by a Profile: the disclosure criteria the validator checks, the
// task it is asked to perform, and whether its first analysis is put through
// a self-reflection pass. One generic Agent executes any Profile.
//
// # Flow
//
//  1. Build the statement-specific prompt from the profile's criteria.
//  2. Ask the completion client for an initial analysis.
//  3. For reflecting profiles, ask the client to critique and improve that
//     analysis.
//  4. Score the final analysis text with Score.
//
// An Agent makes at most two completion calls per Validate. It holds no
// per-request state and may be shared between goroutines.
//
// # Usage
//
//	client, _ := api.NewClient(api.ClientConfig{})
//	agent := validation.NewAgent(validation.DefaultProfile(models.AgentCashFlow), client)
//	result, err := agent.Validate(ctx, documentText)
//	if err != nil {
//	    // *api.CompletionError, or the context's error
//	}
//	fmt.Println(result.ComplianceScore)
//
// # Scoring
//
// Score is a lexical heuristic: it counts marker words in the analysis.
// Markers overlap on purpose ("incomplete" also contains "complete"), so a
// single word may move the score in both directions.
package validation
