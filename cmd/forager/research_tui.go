package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kestrelbio/forager/internal/agent"
	"github.com/kestrelbio/forager/internal/logging"
	"github.com/kestrelbio/forager/internal/orchestrator"
	"github.com/kestrelbio/forager/internal/tui"
	"github.com/kestrelbio/forager/pkg/models"
)

// runWithTUI runs the round behind a live progress view. Quitting the
// view cancels the round; the partial result is still returned.
func runWithTUI(ctx context.Context, sessionID string, query models.Query, caps []models.Capability, registry *agent.Registry, opts []orchestrator.Option) (*models.AggregatedResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan orchestrator.Event, 64)
	opts = append(opts, orchestrator.WithEvents(events))
	orch := orchestrator.New(registry, logging.Component(log, "orchestrator"), opts...)

	program, app := tui.NewRoundProgram(query.Text)

	go forwardEvents(program, events)

	type roundOutput struct {
		result *models.AggregatedResult
		err    error
	}
	done := make(chan roundOutput, 1)
	go func() {
		result, err := orch.Run(ctx, sessionID, query, caps)
		// No events are emitted after Run returns; closing lets the
		// forwarder exit instead of leaking.
		close(events)
		msg := tui.RoundDoneMsg{}
		if result != nil {
			msg.Status = string(result.Status)
			msg.Fused = len(result.Fused)
			msg.Confidence = result.Confidence
		}
		if err != nil {
			msg.Err = err.Error()
		}
		program.Send(msg)
		done <- roundOutput{result: result, err: err}
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		out := <-done
		if out.err == nil {
			return out.result, err
		}
		return out.result, out.err
	}

	if app.Aborted() {
		cancel()
	}
	out := <-done
	return out.result, out.err
}

// msgSender is the part of *tea.Program the forwarder needs.
type msgSender interface {
	Send(msg tea.Msg)
}

// forwardEvents converts orchestrator events to TUI messages until the
// events channel is closed.
func forwardEvents(sender msgSender, events <-chan orchestrator.Event) {
	for ev := range events {
		sender.Send(tui.TaskEventMsg{
			TaskID:     ev.TaskID,
			Capability: string(ev.Capability),
			State:      string(ev.State),
			Attempt:    ev.Attempt,
			Err:        ev.Err,
		})
	}
}
