package logger

import (
	"go.uber.org/zap"
)

// Logger is the process-wide sugared logger. It starts as a no-op so
// packages can log during init without a nil check; main swaps in the
// real logger via Initialize.
var Logger *zap.SugaredLogger

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize configures the global logger. Development output is the
// default; set jsonOutput for machine-readable logs.
func Initialize(jsonOutput bool) error {
	var (
		zl  *zap.Logger
		err error
	)
	if jsonOutput {
		zl, err = zap.NewProduction()
	} else {
		zl, err = zap.NewDevelopment()
	}
	if err != nil {
		return err
	}
	Logger = zl.Sugar()
	return nil
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	_ = Logger.Sync()
}
