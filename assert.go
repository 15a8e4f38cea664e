package graph

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"

	"pipelined.dev/graph/log"
)

var logger = log.Component(log.GetLogger(), "graph")

// SetLogger replaces the logger used by the graph.
func SetLogger(l logrus.FieldLogger) {
	logger = l
}

// assert reports a violated invariant and returns cond. Violations abort
// the current operation but never the process.
func assert(cond bool, format string, args ...interface{}) bool {
	if cond {
		return true
	}
	entry := logger.WithField("assertion", fmt.Sprintf(format, args...))
	if _, file, line, ok := runtime.Caller(1); ok {
		entry = entry.WithField("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line))
	}
	entry.Error("assertion failed")
	return false
}
