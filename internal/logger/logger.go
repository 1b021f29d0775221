package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// Color printers shared by the formatter and the CLI helpers
var (
	SuccessColor = color.New(color.FgGreen, color.Bold)
	ErrorColor   = color.New(color.FgRed, color.Bold)
	WarnColor    = color.New(color.FgYellow, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	DebugColor   = color.New(color.FgWhite)

	HighlightColor = color.New(color.FgMagenta, color.Bold)
	DimColor       = color.New(color.FgHiBlack)
	NumberColor    = color.New(color.FgYellow)
)

// Logger defines the interface for logging
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	WithFields(fields map[string]interface{}) Logger
	WithField(key string, value interface{}) Logger

	// StartOperation returns a logger that reports elapsed time on completion
	StartOperation(name string) OperationLogger
}

// OperationLogger tracks timing for operations
type OperationLogger interface {
	Update(msg string, args ...any)
	Complete(msg string, args ...any)
	Fail(msg string, args ...any)
}

type logger struct {
	entry *logrus.Entry
}

type operationLogger struct {
	name      string
	startTime time.Time
	parent    *logger
}

// ParseLevel maps a textual level to logrus, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// New creates a logger writing to stdout
func New(level, format string) Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter creates a logger writing to w. format "json" selects the
// logrus JSON formatter, anything else the clean text formatter.
func NewWithWriter(w io.Writer, level, format string) Logger {
	l := logrus.New()
	l.SetLevel(ParseLevel(level))
	l.SetOutput(w)

	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&CleanFormatter{})
	}

	return &logger{entry: logrus.NewEntry(l)}
}

// NewSilent creates a logger that discards all output
func NewSilent() Logger {
	return NewWithWriter(io.Discard, "info", "text")
}

func (l *logger) Debug(msg string, args ...any) { l.log(logrus.DebugLevel, msg, args...) }
func (l *logger) Info(msg string, args ...any)  { l.log(logrus.InfoLevel, msg, args...) }
func (l *logger) Warn(msg string, args ...any)  { l.log(logrus.WarnLevel, msg, args...) }
func (l *logger) Error(msg string, args ...any) { l.log(logrus.ErrorLevel, msg, args...) }

func (l *logger) StartOperation(name string) OperationLogger {
	return &operationLogger{
		name:      name,
		startTime: time.Now(),
		parent:    l,
	}
}

func (l *logger) WithFields(fields map[string]interface{}) Logger {
	return &logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *logger) WithField(key string, value interface{}) Logger {
	return &logger{entry: l.entry.WithField(key, value)}
}

func (ol *operationLogger) Update(msg string, args ...any) {
	ol.parent.Info(fmt.Sprintf("[%s] %s", ol.name, msg),
		append(args, "elapsed", time.Since(ol.startTime).String())...)
}

func (ol *operationLogger) Complete(msg string, args ...any) {
	ol.parent.Info(fmt.Sprintf("[%s] COMPLETED: %s", ol.name, msg),
		append(args, "duration", formatDuration(time.Since(ol.startTime)))...)
}

func (ol *operationLogger) Fail(msg string, args ...any) {
	ol.parent.Error(fmt.Sprintf("[%s] FAILED: %s", ol.name, msg),
		append(args, "duration", formatDuration(time.Since(ol.startTime)))...)
}

// log skips field allocation entirely when the level is disabled
func (l *logger) log(level logrus.Level, msg string, args ...any) {
	if l == nil || l.entry == nil {
		return
	}
	if !l.entry.Logger.IsLevelEnabled(level) {
		return
	}

	entry := l.entry
	if fields := fieldsFromArgs(args...); fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Log(level, msg)
}

// fieldsFromArgs converts variadic key/value pairs into logrus fields.
// A value without a string key is stored as argN.
func fieldsFromArgs(args ...any) logrus.Fields {
	if len(args) == 0 {
		return nil
	}

	fields := make(logrus.Fields, len(args)/2+1)
	for i := 0; i < len(args); {
		if i+1 < len(args) {
			if key, ok := args[i].(string); ok {
				fields[key] = args[i+1]
				i += 2
				continue
			}
		}
		fields[fmt.Sprintf("arg%d", i)] = args[i]
		i++
	}
	return fields
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %dm %ds", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
	}
}

// CleanFormatter formats log entries as a single human-readable line:
//
//	INFO  [2006-01-02T15:04:05] message key=value (1.2s)
type CleanFormatter struct {
	levelStrings     map[logrus.Level]string
	levelStringsOnce sync.Once
}

// skippedFields never make it to the text output
var skippedFields = map[string]bool{
	"elapsed":   true,
	"timestamp": true,
	"message":   true,
}

func (f *CleanFormatter) getLevelStrings() map[logrus.Level]string {
	f.levelStringsOnce.Do(func() {
		f.levelStrings = map[logrus.Level]string{
			logrus.DebugLevel: DebugColor.Sprint("DEBUG"),
			logrus.InfoLevel:  SuccessColor.Sprint("INFO "),
			logrus.WarnLevel:  WarnColor.Sprint("WARN "),
			logrus.ErrorLevel: ErrorColor.Sprint("ERROR"),
			logrus.FatalLevel: ErrorColor.Sprint("FATAL"),
			logrus.PanicLevel: ErrorColor.Sprint("PANIC"),
			logrus.TraceLevel: DebugColor.Sprint("TRACE"),
		}
	})
	return f.levelStrings
}

// Format implements logrus.Formatter
func (f *CleanFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	levelStrings := f.getLevelStrings()
	levelText, ok := levelStrings[entry.Level]
	if !ok {
		levelText = levelStrings[logrus.InfoLevel]
	}

	buf.WriteString(levelText)
	buf.WriteString(" [")
	buf.WriteString(entry.Time.Format("2006-01-02T15:04:05"))
	buf.WriteString("] ")
	buf.WriteString(entry.Message)

	// map iteration is random; sort for stable output
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if !skippedFields[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var duration string
	for _, k := range keys {
		v := entry.Data[k]
		if k == "duration" {
			duration = fmt.Sprint(v)
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(InfoColor.Sprint(k))
		buf.WriteByte('=')
		fmt.Fprint(buf, v)
	}
	if duration != "" {
		buf.WriteString(" (")
		buf.WriteString(NumberColor.Sprint(duration))
		buf.WriteByte(')')
	}

	buf.WriteByte('\n')

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}
