// pkg/logger/logger.go
package logger

import (
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Logger is a thin wrapper around charmbracelet/log. One instance is created
// per run and handed explicitly to each component; there is no package-level
// singleton.
type Logger struct {
	*charmlog.Logger
}

// New creates a new logger writing to stderr with a component prefix.
func New(prefix string) *Logger {
	l := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           charmlog.InfoLevel,
	})
	return &Logger{Logger: l}
}

// WithPrefix returns a child logger for a sub-component.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{Logger: l.Logger.WithPrefix(prefix)}
}

// SetVerbose baixa o nível para debug quando on é true.
func (l *Logger) SetVerbose(on bool) {
	if on {
		l.SetLevel(charmlog.DebugLevel)
	}
}
