// Package orchestrator runs the enabled statement validators over one
// document and folds their outcomes into a ValidationReport.
//
// The orchestrator provides:
//   - Agent selection: enabled kinds are de-duplicated and put in canonical
//     order (balance sheet, profit and loss, cash flow, notes)
//   - Failure isolation: an agent that fails is recorded as an AgentFailure
//     and the remaining agents still run
//   - Progress reporting: a callback and an optional event stream report each
//     finished agent with a monotonically increasing completed count
//
// Agents run sequentially unless WithConcurrency is given, in which case they
// fan out on an errgroup with a bounded limit. Report ordering is the same in
// both modes.
//
// Example usage:
//
//	orch, err := orchestrator.New(orchestrator.RequiredConfig{Client: client},
//	    orchestrator.WithConcurrency(4),
//	    orchestrator.WithProgress(func(p orchestrator.Progress) {
//	        fmt.Printf("%d/%d %s\n", p.Completed, p.Total, p.Kind.Label())
//	    }),
//	)
//	report, err := orch.Run(ctx, models.ValidationRequest{
//	    DocumentText:  text,
//	    EnabledAgents: models.AllAgentKinds(),
//	})
package orchestrator
