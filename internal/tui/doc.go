// Package tui provides the live terminal view for a research round.
//
// The view is read-only: it shows each capability task moving through
// its lifecycle while the round runs, then the round outcome. Users can
// quit early with 'q' or Ctrl+C, which cancels the round and returns
// whatever partial result exists.
//
// Usage:
//
//	program, _ := tui.NewRoundProgram(query)
//	go program.Run()
//
//	// Forward task state changes
//	program.Send(tui.TaskEventMsg{TaskID: id, Capability: "literature", State: "running"})
//
//	// Signal completion
//	program.Send(tui.RoundDoneMsg{Status: "ok", Fused: 12, Confidence: 0.81})
package tui
