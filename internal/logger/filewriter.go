package logger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	fileBufferSize     = 32 * 1024
	fileFlushInterval  = 5 * time.Second
	logFilePermissions = 0o600
)

// fileWriter is a buffered, periodically flushed log file.
type fileWriter struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	stop   chan struct{}
	done   chan struct{}
	closed bool
}

func openFileWriter(path string) (*fileWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions) //nolint:gosec // path from config
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	w := &fileWriter{
		file: f,
		buf:  bufio.NewWriterSize(f, fileBufferSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.flushLoop()
	return w, nil
}

func (w *fileWriter) flushLoop() {
	defer close(w.done)
	ticker := time.NewTicker(fileFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			_ = w.Flush()
		}
	}
}

func (w *fileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, errors.New("log writer is closed")
	}
	return w.buf.Write(p)
}

// Flush writes buffered data to the OS without fsync.
func (w *fileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.buf.Flush()
}

// Close flushes, syncs and closes the file. Safe to call more than once.
func (w *fileWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stop)
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()
	return errors.Join(w.buf.Flush(), w.file.Sync(), w.file.Close())
}
