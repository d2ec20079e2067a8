package jsonstorage

import (
	"io"

	"go.uber.org/zap"
)

type options struct {
	logger     *zap.Logger
	path       string
	writer     io.Writer
	BatchCount int
}

var defaultOptions = options{
	logger:     zap.NewNop(),
	BatchCount: 1,
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithPath appends to the file at path, creating it if needed.
func WithPath(path string) Option {
	return func(opts *options) {
		opts.path = path
	}
}

// WithWriter writes to w instead of a file.
func WithWriter(w io.Writer) Option {
	return func(opts *options) {
		opts.writer = w
	}
}

func WithBatchCount(batchCount int) Option {
	return func(opts *options) {
		opts.BatchCount = batchCount
	}
}
