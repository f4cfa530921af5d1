package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the process logger. It embeds logrus so callers use the usual
// WithField / WithError chains.
type Logger struct {
	*logrus.Logger
}

// New builds a logger from a level name ("debug", "info", ...) and a format
// ("text" or "json"). Unknown levels fall back to info.
func New(level, format string) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(strings.TrimSpace(format), "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return &Logger{Logger: l}
}

// NewDefault returns an info-level text logger tagged with component.
func NewDefault(component string) *Logger {
	return New("info", "text").Component(component)
}

// Component returns a logger sharing this one's output and level whose entries
// all carry a component field.
func (l *Logger) Component(name string) *Logger {
	child := logrus.New()
	child.SetOutput(l.Out)
	child.SetLevel(l.GetLevel())
	child.SetFormatter(l.Formatter)
	child.ReportCaller = l.ReportCaller
	child.AddHook(componentHook{name: name})
	return &Logger{Logger: child}
}

type componentHook struct {
	name string
}

func (h componentHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h componentHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["component"]; !ok {
		e.Data["component"] = h.name
	}
	return nil
}
