// Package notify shows transient messages about completed actions.
//
// Implementations:
//   - CLI: pterm prefixed lines on the terminal
//   - JSON: one event object per line, for scripts
//   - Recorder: keeps messages in memory for tests
package notify

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// Level of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notifier receives user-facing messages
type Notifier interface {
	Success(message string)
	Error(message string)
	Info(message string)
}

// Event is one notification
type Event struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// CLI prints notifications with pterm prefixes
type CLI struct {
	verbosity int
}

// NewCLI returns a terminal notifier. Info messages need verbosity >= 1.
func NewCLI(verbosity int) *CLI {
	return &CLI{verbosity: verbosity}
}

func (c *CLI) Success(message string) { pterm.Success.Println(message) }
func (c *CLI) Error(message string)   { pterm.Error.Println(message) }

func (c *CLI) Info(message string) {
	if c.verbosity >= 1 {
		pterm.Info.Println(message)
	}
}

// JSON writes one Event per line
type JSON struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSON returns a notifier writing to w
func NewJSON(w io.Writer) *JSON {
	return &JSON{enc: json.NewEncoder(w)}
}

func (j *JSON) emit(level Level, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.enc.Encode(Event{Level: level, Message: message, Timestamp: time.Now()})
}

func (j *JSON) Success(message string) { j.emit(LevelSuccess, message) }
func (j *JSON) Error(message string)   { j.emit(LevelError, message) }
func (j *JSON) Info(message string)    { j.emit(LevelInfo, message) }

// Recorder stores events
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) add(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Level: level, Message: message, Timestamp: time.Now()})
}

func (r *Recorder) Success(message string) { r.add(LevelSuccess, message) }
func (r *Recorder) Error(message string)   { r.add(LevelError, message) }
func (r *Recorder) Info(message string)    { r.add(LevelInfo, message) }

// Events returns a copy of what was recorded
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Messages returns the messages at level
func (r *Recorder) Messages(level Level) []string {
	var out []string
	for _, e := range r.Events() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// Nop discards everything
type Nop struct{}

func (Nop) Success(string) {}
func (Nop) Error(string)   {}
func (Nop) Info(string)    {}
