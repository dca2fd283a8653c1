package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options describes logger configuration supplied at creation time.
type Options struct {
	Level         string
	HumanReadable bool
	Writer        io.Writer
}

// Logger wraps zerolog so actions can report progress without depending on zerolog directly.
type Logger struct {
	base zerolog.Logger
}

// New creates a configured Logger instance based on Options. Output defaults to stderr so
// it never mixes with the standard output of spawned tools.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	var output io.Writer = writer
	if opts.HumanReadable {
		console := zerolog.NewConsoleWriter()
		console.Out = writer
		console.TimeFormat = time.Kitchen
		output = console
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &Logger{base: logger}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{base: zerolog.Nop()}
}

// WithFields returns a derived logger that always writes the supplied fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	if l == nil {
		return nil
	}

	builder := l.base.With()
	for key, value := range fields {
		builder = builder.Interface(key, value)
	}

	return &Logger{base: builder.Logger()}
}

// With returns a derived logger carrying a single string field.
func (l *Logger) With(key, value string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{base: l.base.With().Str(key, value).Logger()}
}

// Info writes an informational log entry.
func (l *Logger) Info(msg string) {
	if l == nil {
		return
	}
	l.base.Info().Msg(msg)
}

// Debug writes a debug-level log entry if enabled.
func (l *Logger) Debug(msg string) {
	if l == nil {
		return
	}
	l.base.Debug().Msg(msg)
}

// Warn writes a warning entry, attaching err when non-nil.
func (l *Logger) Warn(err error, msg string) {
	if l == nil {
		return
	}
	event := l.base.Warn()
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(msg)
}

// Error writes an error log entry including the supplied error context.
func (l *Logger) Error(err error, msg string) {
	if l == nil {
		return
	}
	event := l.base.Error()
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(msg)
}

// Duration writes an informational entry with an elapsed time field.
func (l *Logger) Duration(msg string, d time.Duration) {
	if l == nil {
		return
	}
	l.base.Info().Dur("duration", d).Msg(msg)
}
