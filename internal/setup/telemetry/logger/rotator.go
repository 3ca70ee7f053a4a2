// Package logger provides a log file writer bounded by line count.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Rotator appends to a log file and, once twice maxLines lines have been
// written, rewrites the file to hold only the last maxLines.
type Rotator struct {
	file     *os.File
	ring     *ring
	path     string
	maxLines int
	mu       sync.Mutex
}

// Open opens or creates the log file at path.
func Open(path string, maxLines int) (*Rotator, error) {
	if maxLines <= 0 {
		return nil, fmt.Errorf("invalid line limit %d", maxLines)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	return &Rotator{
		file:     file,
		ring:     newRing(maxLines),
		path:     path,
		maxLines: maxLines,
	}, nil
}

// Write implements io.Writer.
func (r *Rotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.file.Write(p)
	if err != nil {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		r.ring.push(line)
	}

	if r.ring.seen >= 2*r.maxLines {
		if err := r.compact(); err != nil {
			return n, fmt.Errorf("failed to rotate log file: %w", err)
		}
	}

	return n, nil
}

// Sync flushes the file.
func (r *Rotator) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Sync()
}

// Close closes the file.
func (r *Rotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}

// compact replaces the file with the kept lines through a temp file.
func (r *Rotator) compact() error {
	temp, err := os.CreateTemp(filepath.Dir(r.path), "rotate-")
	if err != nil {
		return err
	}
	tempPath := temp.Name()

	content := strings.Join(r.ring.ordered(), "\n") + "\n"
	if _, err := temp.WriteString(content); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return err
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	r.file.Close()
	os.Remove(r.path) // rename over an open file fails on Windows

	if err := os.Rename(tempPath, r.path); err != nil {
		return err
	}

	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	r.file = file
	r.ring.seen = r.ring.size
	return nil
}
