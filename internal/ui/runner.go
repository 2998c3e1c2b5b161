package ui

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"shellpure/internal/driver"
)

type batchOutcome struct {
	results []*driver.FileResult
	err     error
}

// RunBatch runs fn in the background while a progress view renders its
// events to out. fn must send its events to the sink it is given.
func RunBatch(out io.Writer, title string, files []string, fn func(driver.ProgressSink) ([]*driver.FileResult, error)) ([]*driver.FileResult, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan batchOutcome, 1)

	go func() {
		res, err := fn(driver.ChannelSink{Ch: events})
		outcomeCh <- batchOutcome{results: res, err: err}
		close(events)
	}()

	model := NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil))
	_, uiErr := program.Run()
	if uiErr != nil {
		// модель больше не читает канал, дочитываем сами
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
