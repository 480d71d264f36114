package link

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Direction tells whether an event is logged before (up) or after (down) the
// rest of the chain ran.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Event is what the logger link reports. Result and Elapsed are only set on
// the way down.
type Event struct {
	Direction Direction
	Op        *Operation
	Result    *Result
	Elapsed   time.Duration
}

// Failed reports whether the event carries an error result.
func (e Event) Failed() bool {
	return e.Direction == Down && e.Result != nil && e.Result.Err != nil
}

// DefaultLogEnabled logs everything in development and only failed results
// otherwise.
func DefaultLogEnabled(development bool) func(Event) bool {
	return func(ev Event) bool {
		return development || ev.Failed()
	}
}

// LoggerOptions configures the logger link.
type LoggerOptions struct {
	// Enabled filters events; nil means DefaultLogEnabled(false).
	Enabled func(Event) bool
	// Logger receives the lines; defaults to stderr without a prefix.
	Logger *log.Logger
	// MaxPayload truncates logged inputs and results; 0 means 512 bytes.
	MaxPayload int
}

var typeColors = map[OpType]lipgloss.Color{
	Query:        lipgloss.Color("#72e3ff"),
	Mutation:     lipgloss.Color("#c5a3fc"),
	Subscription: lipgloss.Color("#ff49e1"),
}

// Logger logs operations on their way up and results on their way down.
func Logger(opts LoggerOptions) Link {
	enabled := opts.Enabled
	if enabled == nil {
		enabled = DefaultLogEnabled(false)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}
	limit := opts.MaxPayload
	if limit <= 0 {
		limit = 512
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, op *Operation) Result {
			if enabled(Event{Direction: Up, Op: op}) {
				logger.Printf("%s %s input=%s", tag(">>", op, false), op.Path, payload(op.Input, limit))
			}

			start := time.Now()
			res := next(ctx, op)
			ev := Event{Direction: Down, Op: op, Result: &res, Elapsed: time.Since(start)}
			if enabled(ev) {
				ms := ev.Elapsed.Milliseconds()
				if res.Err != nil {
					logger.Printf("%s %s (%dms) error=%v", tag("<<", op, true), op.Path, ms, res.Err)
				} else {
					logger.Printf("%s %s (%dms) result=%s", tag("<<", op, false), op.Path, ms, truncate(string(res.Data), limit))
				}
			}
			return res
		}
	}
}

func tag(arrow string, op *Operation, failed bool) string {
	style := lipgloss.NewStyle().Foreground(typeColors[op.Type])
	if failed {
		style = style.Bold(true).Foreground(lipgloss.Color("#ff5555"))
	}
	return style.Render(fmt.Sprintf("%s %s #%d", arrow, op.Type, op.ID))
}

func payload(v any, limit int) string {
	if v == nil {
		return "undefined"
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return truncate(fmt.Sprintf("%v", v), limit)
	}
	return truncate(string(raw), limit)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
