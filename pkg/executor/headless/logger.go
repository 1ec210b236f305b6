package headless

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
)

// LogLevel represents the logging verbosity level
type LogLevel int

const (
	// LogLevelQuiet shows only warnings, errors and the final summary
	LogLevelQuiet LogLevel = iota
	// LogLevelNormal shows standard execution progress (default)
	LogLevelNormal
	// LogLevelVerbose shows per-item progress and the JSON report
	LogLevelVerbose
	// LogLevelDebug shows all internal details for debugging
	LogLevelDebug
)

// Logger prints job progress for a terminal or CI log.
type Logger struct {
	mu     sync.Mutex
	level  LogLevel
	writer io.Writer
	color  bool

	startTime time.Time
	stepCount int
}

const (
	colorReset     = "\033[0m"
	colorCyan      = "\033[36m"
	colorSalmon    = "\033[38;5;217m" // Salmon pink #FFB3BA
	colorYellow    = "\033[33m"
	colorRed       = "\033[31m"
	colorGray      = "\033[90m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
	colorBoldWhite = "\033[1;37m"
)

// NewLogger creates a colored logger on stdout with the specified level
func NewLogger(level LogLevel) *Logger {
	return NewWriterLogger(level, os.Stdout, true)
}

// NewWriterLogger creates a logger on w. color toggles ANSI escapes.
func NewWriterLogger(level LogLevel, w io.Writer, color bool) *Logger {
	return &Logger{
		level:     level,
		writer:    w,
		color:     color,
		startTime: time.Now(),
	}
}

func (l *Logger) paint(code, s string) string {
	if !l.color {
		return s
	}
	return code + s + colorReset
}

func (l *Logger) line(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.writer, s)
}

// Header prints a prominent header message
func (l *Logger) Header(message string) {
	if l.level < LogLevelNormal {
		return
	}
	rule := l.paint(colorBoldWhite, strings.Repeat("=", 70))
	l.line("\n" + rule)
	l.line(l.paint(colorBoldWhite, "  "+message))
	l.line(rule)
}

// Step prints a numbered step in the execution
func (l *Logger) Step(message string) {
	if l.level < LogLevelNormal {
		return
	}
	l.mu.Lock()
	l.stepCount++
	n := l.stepCount
	l.mu.Unlock()
	l.line("\n" + l.paint(colorCyan, fmt.Sprintf("[%d] %s", n, message)))
}

// Successf prints a success message with checkmark
func (l *Logger) Successf(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		l.line(l.paint(colorBoldGreen, "✓ "+fmt.Sprintf(format, args...)))
	}
}

// Infof prints an informational message
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		l.line(l.paint(colorSalmon, fmt.Sprintf(format, args...)))
	}
}

// Warningf prints a warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.line(l.paint(colorYellow, "⚠ Warning: "+fmt.Sprintf(format, args...)))
}

// Errorf prints an error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.line(l.paint(colorBoldRed, "✗ Error: "+fmt.Sprintf(format, args...)))
}

// Verbosef prints detailed information (only in verbose mode)
func (l *Logger) Verbosef(format string, args ...interface{}) {
	if l.level >= LogLevelVerbose {
		l.line(l.paint(colorGray, "→ "+fmt.Sprintf(format, args...)))
	}
}

// Debugf prints debug information (only in debug mode)
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level >= LogLevelDebug {
		l.line(l.paint(colorGray, "[DEBUG] "+fmt.Sprintf(format, args...)))
	}
}

// ItemDone logs one processed conversation.
func (l *Logger) ItemDone(itemID string, done, total int, err error) {
	switch {
	case err != nil:
		if l.level >= LogLevelNormal {
			l.line(l.paint(colorRed, fmt.Sprintf("  ✗ %s (%d/%d): %v", itemID, done, total, err)))
		}
	case l.level == LogLevelNormal:
		l.line(l.paint(colorGray, fmt.Sprintf("  • %d/%d", done, total)))
	case l.level >= LogLevelVerbose:
		l.line(l.paint(colorGray, fmt.Sprintf("  • %s (%d/%d)", itemID, done, total)))
	}
}

// Summary prints a final execution summary
func (l *Logger) Summary(summary *ExecutionSummary) {
	rule := l.paint(colorBoldWhite, strings.Repeat("=", 70))
	l.line("")
	l.line(rule)
	l.line(l.paint(colorBoldWhite, "  EXECUTION SUMMARY"))
	l.line(rule)

	l.printStatus(summary.Status)
	l.line(fmt.Sprintf("  Action: %s", summary.Action))
	l.line(fmt.Sprintf("  Duration: %s", summary.Duration.Round(time.Millisecond)))

	m := summary.Metrics
	l.line("\n  📊 Metrics:")
	l.line(fmt.Sprintf("    Loaded: %d chats, %d projects", m.ChatsLoaded, m.ProjectsLoaded))
	l.line(fmt.Sprintf("    Planned: %d", m.Planned))
	if !summary.DryRun {
		l.line(fmt.Sprintf("    Processed: %d (ok %d, failed %d)", m.Processed, m.OK, m.Failed))
	}

	if summary.Run != nil && len(summary.Run.Failures) > 0 {
		l.line("\n  ✗ Failures:")
		for _, f := range summary.Run.Failures {
			l.line(l.paint(colorRed, fmt.Sprintf("    • %s %s: %s", f.ItemID, f.Title, f.Error)))
		}
	}

	if summary.Error != "" {
		l.line("")
		l.line(l.paint(colorBoldRed, "  Error Details:"))
		l.line(l.paint(colorRed, "    "+summary.Error))
	}
	l.line(rule)

	if l.level >= LogLevelVerbose {
		l.printJSON(summary)
	}
	l.line("")
}

func (l *Logger) printStatus(status string) {
	switch status {
	case statusSuccess:
		l.line("  Status: " + l.paint(colorBoldGreen, "✓ SUCCESS"))
	case statusPartialSuccess:
		l.line("  Status: " + l.paint(colorYellow, "⚠ PARTIAL SUCCESS"))
	case statusDryRun:
		l.line("  Status: " + l.paint(colorCyan, "◌ DRY RUN"))
	case statusStopped:
		l.line("  Status: " + l.paint(colorYellow, "■ STOPPED"))
	case statusFailed:
		l.line("  Status: " + l.paint(colorBoldRed, "✗ FAILED"))
	default:
		l.line("  Status: " + status)
	}
}

// printJSON writes the summary as JSON, highlighted when colors are on.
func (l *Logger) printJSON(summary *ExecutionSummary) {
	data, err := summary.JSON()
	if err != nil {
		l.Errorf("%v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.writer)
	if l.color {
		if err := quick.Highlight(l.writer, string(data), "json", "terminal256", "monokai"); err == nil {
			fmt.Fprintln(l.writer)
			return
		}
	}
	fmt.Fprintln(l.writer, string(data))
}

// parseLogLevel converts a string log level to LogLevel type
func parseLogLevel(level string) LogLevel {
	switch level {
	case "quiet":
		return LogLevelQuiet
	case "normal":
		return LogLevelNormal
	case "verbose":
		return LogLevelVerbose
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelNormal
	}
}
