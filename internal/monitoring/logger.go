// Package monitoring holds the package-level diagnostic loggers used by the
// calculator packages. Library code calls Logf and Debugf; the CLI points them
// at a zap logger.
package monitoring

import (
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger or UseZap. Tests can mute it with SetLogger(nil).
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf receives high-volume detail. It is a no-op until UseZap installs a
// logger.
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

// SetLogger replaces Logf. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// NewZapLogger builds a production zap logger, at debug level when verbose.
func NewZapLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// UseZap routes Logf and Debugf through l.
func UseZap(l *zap.Logger) {
	s := l.Sugar()
	Logf = s.Infof
	Debugf = s.Debugf
}
