// Package progress provides terminal progress indicators.
package progress

import (
	"os"

	"github.com/pterm/pterm"

	"gitcli/internal/termcolor"
)

// Spinner displays an animated spinner on stderr while a long-running
// operation is in progress. It is only displayed when stderr is a TTY;
// in non-interactive environments (piped output, CI, E2E tests) it is silent.
type Spinner struct {
	msg      string
	printer  pterm.SpinnerPrinter
	active   *pterm.SpinnerPrinter
	disabled bool
}

// New creates a Spinner that will display msg alongside the animation.
func New(msg string) *Spinner {
	return &Spinner{
		msg:      msg,
		printer:  pterm.DefaultSpinner.WithWriter(os.Stderr),
		disabled: !termcolor.IsTerminal(os.Stderr.Fd()),
	}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	if s.disabled {
		return
	}
	active, err := s.printer.Start(s.msg)
	if err != nil {
		s.disabled = true
		return
	}
	s.active = active
}

// Stop halts the spinner animation and clears the line.
func (s *Spinner) Stop() {
	if s.active == nil {
		return
	}
	_ = s.active.Stop()
	s.active = nil
}
