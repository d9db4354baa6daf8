package helpers

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LoggerOptions tunes NewLogger. Zero values pick stdout and an env-based level.
type LoggerOptions struct {
	App   string
	Env   string
	Level string // logrus level name; empty means debug in development, info elsewhere
	Out   io.Writer
}

// NewLogger builds the process logger: text output in development, JSON elsewhere.
func NewLogger(opts LoggerOptions) *logrus.Logger {
	logger := logrus.New()
	if opts.Out != nil {
		logger.SetOutput(opts.Out)
	} else {
		logger.SetOutput(os.Stdout)
	}
	dev := opts.Env == "development"
	if dev {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level := logrus.InfoLevel
	if dev {
		level = logrus.DebugLevel
	}
	var badLevel error
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			badLevel = err
		} else {
			level = parsed
		}
	}
	logger.SetLevel(level)

	entry := logger.WithFields(logrus.Fields{"app": opts.App, "env": opts.Env})
	if badLevel != nil {
		entry.WithError(badLevel).Warn("ignoring LOG_LEVEL")
	}
	entry.WithField("level", level.String()).Info("logger initialized")
	return logger
}

// LogError logs msg at error level with err folded into fields.
func LogError(logger *logrus.Logger, msg string, err error, fields logrus.Fields) {
	if logger == nil {
		return
	}
	entry := logger.WithFields(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}
