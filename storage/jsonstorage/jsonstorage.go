// Package jsonstorage saves cells as JSON lines.
package jsonstorage

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/wenzapen/scout/storage"
)

type JSONStorage struct {
	dataDocker []*storage.Cell
	w          io.Writer
	file       *os.File
	options
}

func New(opts ...Option) (*JSONStorage, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.BatchCount < 1 {
		options.BatchCount = 1
	}

	s := &JSONStorage{options: options, w: options.writer}
	if s.path != "" {
		f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", s.path, err)
		}
		s.file, s.w = f, f
	}
	if s.w == nil {
		s.w = os.Stdout
	}
	return s, nil
}

// Save buffers cells and writes them out every BatchCount cells.
func (s *JSONStorage) Save(cells ...*storage.Cell) error {
	for _, cell := range cells {
		s.dataDocker = append(s.dataDocker, cell)
		if len(s.dataDocker) >= s.BatchCount {
			if err := s.Flush(); err != nil {
				s.logger.Error("write cells failed", zap.Error(err))
				return err
			}
		}
	}
	return nil
}

func (s *JSONStorage) Flush() error {
	if len(s.dataDocker) == 0 {
		return nil
	}
	defer func() {
		s.dataDocker = nil
	}()
	bw := bufio.NewWriter(s.w)
	for _, cell := range s.dataDocker {
		line, err := sonic.Marshal(cell)
		if err != nil {
			return fmt.Errorf("encode cell: %w", err)
		}
		bw.Write(line)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	s.logger.Debug("cells written", zap.Int("count", len(s.dataDocker)))
	return nil
}

// Close flushes pending cells and closes the file, if any.
func (s *JSONStorage) Close() error {
	err := s.Flush()
	if s.file != nil {
		if cerr := s.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
