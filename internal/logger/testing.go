package logger

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// NewDiscardLogger returns a Logger that drops everything.
func NewDiscardLogger() Logger {
	return NewSlogLogger(io.Discard, LogLevelError, time.UTC)
}

// SyncBuffer is a bytes.Buffer safe for concurrent writes and reads.
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewBufferLogger returns a Logger at the given level together with the
// buffer it writes to, for asserting on log output in tests.
func NewBufferLogger(level LogLevel) (Logger, *SyncBuffer) {
	buf := &SyncBuffer{}
	return NewSlogLogger(buf, level, time.UTC), buf
}
