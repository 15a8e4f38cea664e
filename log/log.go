// Package log configures the logrus loggers used by the graph.
package log

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

const (
	// DebugEnv enables debug output when set to a true value.
	DebugEnv = "GRAPH_DEBUG"
	// LevelEnv sets the log level by name. It takes precedence over
	// DebugEnv.
	LevelEnv = "GRAPH_LOG_LEVEL"
)

var level = logrus.InfoLevel

func init() {
	level = levelFromEnv(os.Getenv(DebugEnv), os.Getenv(LevelEnv))
}

func levelFromEnv(debug, name string) logrus.Level {
	if l, err := logrus.ParseLevel(name); err == nil {
		return l
	}
	if on, _ := strconv.ParseBool(debug); on {
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}

// GetLogger returns a new logger instance with the level taken from the
// environment.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Debug reports whether debug output was requested.
func Debug() bool {
	return level >= logrus.DebugLevel
}

// Component returns l with the component field set.
func Component(l logrus.FieldLogger, name string) logrus.FieldLogger {
	return l.WithField("component", name)
}
