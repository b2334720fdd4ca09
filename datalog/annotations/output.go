package annotations

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// OutputFormatter formats events for human-readable display.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
	renderer *RelationRenderer
}

// NewOutputFormatter creates a formatter with color support detection.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}

	// Auto-detect color support
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isTerminal(f.Fd())
	}

	return &OutputFormatter{
		useColor: useColor,
		writer:   w,
		renderer: NewRelationRenderer(useColor),
	}
}

// Handle implements the Handler interface - prints events as they occur
func (f *OutputFormatter) Handle(event Event) {
	output := f.Format(event)
	if output != "" {
		fmt.Fprintln(f.writer, output)
	}
}

// Format converts an event to a human-readable string.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)

	switch event.Name {
	case ProgramInvoked:
		return fmt.Sprintf("%s Program: %s in %d strata",
			latency,
			f.colorizeCount("Relations", event.Data["relations.count"].(int)),
			event.Data["strata.count"].(int))

	case ProgramComplete:
		success := event.Data["success"].(bool)
		if !success {
			return fmt.Sprintf("%s %s Program failed: %v",
				latency,
				f.colorize("✗", color.FgRed),
				event.Data["error"])
		}
		return fmt.Sprintf("%s %s Program done with %s with %s total.",
			latency,
			f.colorize("===", color.FgGreen),
			f.colorizeCount("Relations", event.Data["relations.count"].(int)),
			f.colorizeCount("Tuples", event.Data["tuples.count"].(int)))

	case StratumBegin:
		kind := "stratum"
		if event.Data["recursive"].(bool) {
			kind = "recursive stratum"
		}
		return fmt.Sprintf("%s %s %s %d %s starting",
			latency,
			f.colorize("===", color.FgYellow),
			kind,
			event.Data["stratum"].(int),
			f.renderer.RenderNames(event.Data["relations"].([]string)))

	case StratumComplete:
		success := event.Data["success"].(bool)
		if !success {
			return fmt.Sprintf("%s %s stratum %d failed: %v",
				latency,
				f.colorize("✗", color.FgRed),
				event.Data["stratum"].(int),
				event.Data["error"])
		}
		text := fmt.Sprintf("%s stratum %d completed with %s",
			latency,
			event.Data["stratum"].(int),
			f.colorizeCount("Tuples", event.Data["tuples.count"].(int)))
		if n := event.Data["iterations"].(int); n > 0 {
			text += fmt.Sprintf(" after %d iterations", n)
		}
		return text

	case FixpointIteration:
		return fmt.Sprintf("%s   iteration %d of stratum %d: %s",
			latency,
			event.Data["iteration"].(int),
			event.Data["stratum"].(int),
			f.colorizeCount("Tuples", event.Data["tuples.count"].(int)))

	case RelationMerged:
		return fmt.Sprintf("%s   %s %s %s (+%s)",
			latency,
			event.Data["source"],
			f.colorize("→", color.FgYellow),
			event.Data["target"],
			f.colorizeCount("Tuples", event.Data["tuples.added"].(int)))

	case RelationSubsumed:
		return fmt.Sprintf("%s   %s erased from %s",
			latency,
			f.colorizeCount("Tuples", event.Data["tuples.erased"].(int)),
			event.Data["relation"])

	case RelationReleased:
		return fmt.Sprintf("%s   released %s",
			latency,
			f.renderer.RenderRelation(RelationInfo{
				Name:       event.Data["relation"].(string),
				TupleCount: event.Data["tuples.count"].(int),
			}))

	case IOLoad, IOStore:
		verb := "loaded"
		if event.Name == IOStore {
			verb = "stored"
		}
		if success, _ := event.Data["success"].(bool); !success {
			return fmt.Sprintf("%s %s %s %s failed: %v",
				latency,
				f.colorize("✗", color.FgRed),
				event.Data["operation"],
				event.Data["relation"],
				event.Data["error"])
		}
		return fmt.Sprintf("%s %s %s (%s)",
			latency,
			verb,
			f.renderer.RenderRelation(RelationInfo{
				Name:       event.Data["relation"].(string),
				TupleCount: event.Data["tuples.count"].(int),
			}),
			event.Data["operation"])

	case ErrorEvaluation:
		return fmt.Sprintf("%s %s %v", latency, f.colorize("✗", color.FgRed), event.Data["error"])

	default:
		// Generic format for unknown events
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)
	}
}

// formatLatency formats a duration as [XXXms] or [XXXµs] with color coding.
func (f *OutputFormatter) formatLatency(d time.Duration) string {
	// Use microseconds for sub-millisecond durations
	if d < time.Millisecond {
		us := d.Microseconds()
		s := fmt.Sprintf("[%dµs]", us)
		if !f.useColor {
			return s
		}
		return color.GreenString(s)
	}

	// Use floating-point milliseconds to preserve precision
	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("[%.1fms]", ms)

	if !f.useColor {
		return s
	}

	switch {
	case ms < 50:
		return color.GreenString(s)
	case ms < 200:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

// colorizeCount formats a count with a label, using color based on the label type.
func (f *OutputFormatter) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%s %s", humanize.Comma(int64(count)), label)

	if !f.useColor {
		return text
	}

	// Different colors for different types
	switch strings.ToLower(label) {
	case "relations":
		return color.CyanString(text)
	case "tuples":
		return color.MagentaString(text)
	default:
		return text
	}
}

// colorize applies color if enabled.
func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// ConsoleHandler creates a handler that prints formatted events to stdout.
func ConsoleHandler() Handler {
	formatter := NewOutputFormatter(os.Stdout)
	return func(event Event) {
		fmt.Fprintln(formatter.writer, formatter.Format(event))
	}
}

// isTerminal checks if the file descriptor is a terminal.
func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
