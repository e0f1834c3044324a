// Package logger builds the zap logger shared by the API server and the seed command.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the output format and threshold.
type Options struct {
	// Development switches to colored console output.
	Development bool
	// Level is a zap level name such as "debug" or "warn". Empty picks debug
	// for development and info otherwise.
	Level string
	// Command is attached to every entry as the "cmd" field.
	Command string
}

// New builds a logger for opts. Entries go to stderr; errors carry a stack trace.
func New(opts Options) (*zap.Logger, error) {
	level, err := parseLevel(opts.Level, opts.Development)
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	if opts.Development {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(ec)
	} else {
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(ec)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return build(core, opts.Command), nil
}

func build(core zapcore.Core, command string) *zap.Logger {
	log := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	if command != "" {
		log = log.With(zap.String("cmd", command))
	}
	return log
}

func parseLevel(name string, development bool) (zapcore.Level, error) {
	if name == "" {
		if development {
			return zap.DebugLevel, nil
		}
		return zap.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}
