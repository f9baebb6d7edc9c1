// Package tui provides the terminal progress view for finval's validate command.
//
// The view is read-only. It shows one row per enabled agent (pending,
// running, done with its score, or failed with the reason), an overall
// progress bar and a short activity log. Users can only quit with 'q' or
// Ctrl+C, which cancels a run that is still in flight.
//
// Usage:
//
//	emitter := orchestrator.NewEventEmitter(64)
//	program, app := tui.NewProgressProgram(kinds, cancel)
//	go tui.ForwardEvents(program, emitter)
//	go func() {
//	    report, err := orch.Run(ctx, req)
//	    emitter.Close()
//	    program.Send(tui.DoneMsg{Report: report, Err: err})
//	}()
//	program.Run()
package tui
