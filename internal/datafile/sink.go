// Package datafile writes the plain-text run header and per-trial trajectory
// files.
package datafile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrNotOpen is returned when writing to or closing a sink with no open file.
var ErrNotOpen = errors.New("sink not open")

// Opener creates named output files.
type Opener interface {
	Create(name string) (io.WriteCloser, error)
}

// DirOpener creates files inside Dir, creating the directory on first use.
type DirOpener struct {
	Dir string
}

// Create truncates or creates name inside the opener directory.
func (o DirOpener) Create(name string) (io.WriteCloser, error) {
	if o.Dir != "" {
		if err := os.MkdirAll(o.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	return os.Create(filepath.Join(o.Dir, name))
}

// Sink is a line-oriented writer over one file at a time.
type Sink struct {
	opener Opener
	file   io.WriteCloser
	buf    *bufio.Writer
	name   string
}

// NewSink returns a closed sink.
func NewSink(opener Opener) *Sink {
	return &Sink{opener: opener}
}

// Open starts a new file, closing any file still open.
func (s *Sink) Open(name string) error {
	if s.file != nil {
		if err := s.Close(); err != nil {
			return err
		}
	}
	f, err := s.opener.Create(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	s.file = f
	s.buf = bufio.NewWriter(f)
	s.name = name
	return nil
}

// WriteLine appends text and a newline.
func (s *Sink) WriteLine(text string) error {
	if s.file == nil {
		return ErrNotOpen
	}
	if _, err := s.buf.WriteString(text); err != nil {
		return fmt.Errorf("write %s: %w", s.name, err)
	}
	if err := s.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("write %s: %w", s.name, err)
	}
	return nil
}

// Close flushes and closes the current file.
func (s *Sink) Close() error {
	if s.file == nil {
		return ErrNotOpen
	}
	f, buf, name := s.file, s.buf, s.name
	s.file, s.buf, s.name = nil, nil, ""
	if err := buf.Flush(); err != nil {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close after a failed flush.
			_ = cerr
		}
		return fmt.Errorf("flush %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}
