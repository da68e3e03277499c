package main

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kestrelbio/forager/internal/orchestrator"
	"github.com/kestrelbio/forager/internal/tui"
	"github.com/kestrelbio/forager/pkg/models"
)

type msgRecorder struct {
	msgs []tea.Msg
}

func (r *msgRecorder) Send(msg tea.Msg) {
	r.msgs = append(r.msgs, msg)
}

func TestForwardEvents_StopsWhenChannelCloses(t *testing.T) {
	events := make(chan orchestrator.Event, 4)
	rec := &msgRecorder{}

	returned := make(chan struct{})
	go func() {
		forwardEvents(rec, events)
		close(returned)
	}()

	events <- orchestrator.Event{
		TaskID:     "t1",
		Capability: models.CapabilityLiterature,
		State:      models.TaskRunning,
		Attempt:    1,
	}
	events <- orchestrator.Event{
		TaskID:     "t1",
		Capability: models.CapabilityLiterature,
		State:      models.TaskCompleted,
		Attempt:    1,
	}
	close(events)

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not return after the events channel closed")
	}

	if len(rec.msgs) != 2 {
		t.Fatalf("forwarded %d messages, want 2", len(rec.msgs))
	}
	first, ok := rec.msgs[0].(tui.TaskEventMsg)
	if !ok {
		t.Fatalf("message type = %T, want TaskEventMsg", rec.msgs[0])
	}
	if first.TaskID != "t1" || first.Capability != "literature" || first.State != "running" {
		t.Errorf("forwarded message = %+v", first)
	}
}
