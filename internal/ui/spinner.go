package ui

import (
	"time"

	"github.com/briandowns/spinner"
)

// Spinner wraps the spinner library with the package's color and unicode
// settings applied.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner creates a spinner suffixed with message. It starts stopped.
func NewSpinner(message string) *Spinner {
	charSet := spinner.CharSets[14] // ⣾⣽⣻⢿⡿⣟⣯⣷
	if !UseUnicode {
		charSet = spinner.CharSets[0] // |/-\
	}

	s := spinner.New(charSet, 100*time.Millisecond)
	s.Suffix = " " + message

	if UseColors {
		s.Color("cyan")
	}

	return &Spinner{s: s}
}

// Start starts the spinner.
func (sp *Spinner) Start() {
	sp.s.Start()
}

// Stop stops the spinner.
func (sp *Spinner) Stop() {
	sp.s.Stop()
}

// WithSpinner runs fn behind a spinner showing progress, then prints done
// on success or the error text on failure.
func WithSpinner(progress, done string, fn func() error) error {
	sp := NewSpinner(progress)
	sp.Start()

	err := fn()
	sp.Stop()

	if err != nil {
		ErrorMsg(err.Error())
		return err
	}

	SuccessMsg(done)
	return nil
}
