package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"capsule/internal/session"
	"capsule/internal/ui"
)

type captureOutcome struct {
	captures []*session.Capture
	err      error
}

func runCaptureWithUI(ctx context.Context, title string, roots []session.Root, opts session.Options, jobs int) ([]*session.Capture, error) {
	events := make(chan session.Event, 256)
	outcomeCh := make(chan captureOutcome, 1)

	go func() {
		res, err := session.CaptureAll(ctx, roots, opts, jobs, session.ChannelSink(events))
		outcomeCh <- captureOutcome{captures: res, err: err}
		close(events)
	}()

	names := make([]string, len(roots))
	for i, r := range roots {
		names[i] = r.Name
	}
	model := ui.NewProgressModel(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.captures, uiErr
	}
	return outcome.captures, outcome.err
}
