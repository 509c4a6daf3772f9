package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	successColor = "\x1b[32m"
	defaultColor = "\x1b[0m"
)

var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// ProgressIndicator renders a spinner on stderr while a long running
// operation is in flight.
type ProgressIndicator struct {
	mu      sync.Mutex
	writer  io.Writer
	message string
	last    string
	delay   time.Duration
	done    chan struct{}
	// StopMsg is printed once the indicator stops, when set.
	StopMsg string
}

// NewProgressIndicator instantiates a progress indicator refreshing the
// spinner every d.
func NewProgressIndicator(msg string, d time.Duration) *ProgressIndicator {
	return &ProgressIndicator{
		writer:  os.Stderr,
		message: msg,
		delay:   d,
		done:    make(chan struct{}, 1),
	}
}

// Start begins rendering the spinner.
func (pi *ProgressIndicator) Start() {
	go func() {
		for i := 0; ; i++ {
			select {
			case <-pi.done:
				return
			default:
				pi.mu.Lock()
				frame := spinnerFrames[i%len(spinnerFrames)]
				out := fmt.Sprintf("\r%s %s%c%s", pi.message, successColor, frame, defaultColor)
				fmt.Fprint(pi.writer, out)
				pi.last = out
				pi.mu.Unlock()
				time.Sleep(pi.delay)
			}
		}
	}()
}

// Stop clears the spinner line and prints the stop message, when set.
func (pi *ProgressIndicator) Stop() {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	n := utf8.RuneCountInString(pi.last)
	fmt.Fprint(pi.writer, "\r"+strings.Repeat(" ", n)+"\r")
	pi.last = ""
	if len(pi.StopMsg) > 0 {
		fmt.Fprintln(pi.writer, pi.StopMsg)
	}
	pi.done <- struct{}{}
}
