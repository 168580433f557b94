package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

const LoginPath = "/login"

type Notification struct {
	Level       Level
	Title       string
	Description string
}

// Sink receives user-facing notifications. Implementations must not block.
type Sink interface {
	Notify(n Notification)
}

type Navigator interface {
	Navigate(path string)
}

type Discard struct{}

func (Discard) Notify(Notification) {}
func (Discard) Navigate(string)     {}

type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) Notify(n Notification) {
	fields := []zap.Field{zap.String("level", string(n.Level)), zap.String("title", n.Title)}
	if n.Description != "" {
		fields = append(fields, zap.String("description", n.Description))
	}
	if n.Level == LevelError {
		s.Log.Warn("notification", fields...)
		return
	}
	s.Log.Info("notification", fields...)
}

func (s LogSink) Navigate(path string) {
	s.Log.Info("navigate", zap.String("path", path))
}

// TerminalSink prints notifications as coloured one-liners.
type TerminalSink struct {
	Out io.Writer
	// Hints maps navigation targets to what the terminal user should do instead.
	Hints map[string]string
}

func (s TerminalSink) Notify(n Notification) {
	var c *color.Color
	switch n.Level {
	case LevelSuccess:
		c = color.New(color.FgGreen)
	case LevelError:
		c = color.New(color.FgRed, color.Bold)
	default:
		c = color.New(color.FgCyan)
	}
	line := n.Title
	if n.Description != "" {
		line += ": " + n.Description
	}
	_, _ = c.Fprintln(s.Out, line)
}

func (s TerminalSink) Navigate(path string) {
	if hint, ok := s.Hints[path]; ok {
		_, _ = color.New(color.FgYellow).Fprintln(s.Out, hint)
		return
	}
	_, _ = fmt.Fprintf(s.Out, "-> %s\n", path)
}

// Recorder keeps everything it is sent. Safe for concurrent use.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
	paths         []string
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

func (r *Recorder) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

func (r *Recorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// Last returns the most recent notification, or the zero value.
func (r *Recorder) Last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notifications) == 0 {
		return Notification{}
	}
	return r.notifications[len(r.notifications)-1]
}
