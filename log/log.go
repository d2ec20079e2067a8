// Package log builds zap loggers from pluggable cores.
package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Plugin is a core that decides where entries are written.
type Plugin = zapcore.Core

func NewLogger(plugin Plugin, options ...zap.Option) *zap.Logger {
	return zap.New(plugin, append(defaultOptions(), options...)...)
}

func NewPlugin(writer zapcore.WriteSyncer, enabler zapcore.LevelEnabler) Plugin {
	return zapcore.NewCore(zapcore.NewJSONEncoder(EncoderConfig()), writer, enabler)
}

func NewStdoutPlugin(enabler zapcore.LevelEnabler) Plugin {
	return NewPlugin(zapcore.Lock(zapcore.AddSync(os.Stdout)), enabler)
}

func NewStderrPlugin(enabler zapcore.LevelEnabler) Plugin {
	return NewPlugin(zapcore.Lock(zapcore.AddSync(os.Stderr)), enabler)
}

// NewFilePlugin writes to a rotating file. Close the returned closer when
// done logging.
func NewFilePlugin(filePath string, enabler zapcore.LevelEnabler) (Plugin, io.Closer) {
	writer := rotating(filePath)
	return NewPlugin(zapcore.AddSync(writer), enabler), writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// FromConfig builds the process logger. Without a file it logs to stderr,
// leaving stdout to command output.
func FromConfig(level, file string) (*zap.Logger, io.Closer, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	if file == "" {
		return NewLogger(NewStderrPlugin(lvl)), nopCloser{}, nil
	}
	plugin, closer := NewFilePlugin(file, lvl)
	return NewLogger(plugin), closer, nil
}
