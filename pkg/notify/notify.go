package notify

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Type classifies a notification for display.
type Type int

const (
	Info Type = iota
	Success
	Warning
	Error
)

func (t Type) String() string {
	switch t {
	case Info:
		return "info"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is one user-facing message about a submission or job.
type Notification struct {
	Type    Type
	Title   string
	Message string
	JobID   string
}

// Notifier delivers notifications to the user. The orchestration layers
// surface each failure through this channel exactly once; callers of a
// notifying component never re-report its errors.
type Notifier interface {
	Send(n Notification) error
}

// ConsoleNotifier prints one colored line per notification to stderr,
// keeping stdout free for rendered results.
type ConsoleNotifier struct {
	out io.Writer
}

// NewConsoleNotifier creates a console notifier writing to stderr.
func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{out: os.Stderr}
}

// NewConsoleNotifierTo creates a console notifier writing to w.
func NewConsoleNotifierTo(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: w}
}

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

func (c *ConsoleNotifier) Send(n Notification) error {
	var painter *color.Color
	var glyph string
	switch n.Type {
	case Success:
		painter, glyph = successColor, "✓"
	case Warning:
		painter, glyph = warningColor, "⚠"
	case Error:
		painter, glyph = errorColor, "✗"
	default:
		painter, glyph = infoColor, "•"
	}

	line := n.Message
	if n.Title != "" {
		line = fmt.Sprintf("%s: %s", n.Title, n.Message)
	}
	if n.JobID != "" {
		line = fmt.Sprintf("%s (job %s)", line, n.JobID)
	}

	_, err := fmt.Fprintln(c.out, painter.Sprintf("%s %s", glyph, line))
	return err
}

// MultiNotifier fans a notification out to several notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

func (m *MultiNotifier) Send(n Notification) error {
	failed := 0
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("notify: %d of %d notifiers failed", failed, len(m.notifiers))
	}
	return nil
}

// NoopNotifier discards all notifications.
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error {
	return nil
}
