package live

import (
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"buttonbench/internal/bench"
)

// Controller owns a running live UI program. The engine writes events into
// the channel handed to Start; closing that channel shuts the UI down.
type Controller struct {
	program *tea.Program
	done    chan struct{}
}

// Start launches the live UI over an engine event stream.
func Start(stdout io.Writer, events <-chan bench.Event, meta Meta, opts Options) *Controller {
	if stdout == nil {
		stdout = os.Stdout
	}
	model := NewModel(events, meta, opts)
	program := tea.NewProgram(model, tea.WithOutput(stdout), tea.WithAltScreen())
	controller := &Controller{
		program: program,
		done:    make(chan struct{}),
	}
	go func() {
		_, _ = program.Run()
		close(controller.done)
	}()
	return controller
}

// Wait blocks until the UI has exited.
func (c *Controller) Wait() {
	if c == nil {
		return
	}
	<-c.done
}
