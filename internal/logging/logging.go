// Package logging configures KuLo's diagnostic logger: structured output to
// stderr via logrus, independent of the rendered log stream on stdout. The
// verbosity count from `-v`/`-vv` selects warn/info/debug. Grounded on
// grovetools-core/logging/logger.go's logrus.New()-plus-level-plus-formatter
// pattern, narrowed to KuLo's single always-stderr sink.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the diagnostic logger for one run. verbosity follows the CLI's
// `-v` count: 0 → warn, 1 → info, 2+ → debug.
func New(verbosity int) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})

	switch {
	case verbosity >= 2:
		logger.SetLevel(logrus.DebugLevel)
	case verbosity == 1:
		logger.SetLevel(logrus.InfoLevel)
	default:
		logger.SetLevel(logrus.WarnLevel)
	}

	return logger
}
