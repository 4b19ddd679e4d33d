package testutil

import (
	"bytes"
	"strings"
	"sync"
	"sync/atomic"
)

// ConcurrencyTracker records how many callers are inside a section at once
// and the highest count seen.
type ConcurrencyTracker struct {
	current atomic.Int64
	peak    atomic.Int64
}

// Enter marks one caller entering the section.
func (c *ConcurrencyTracker) Enter() {
	n := c.current.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

// Leave marks one caller leaving the section.
func (c *ConcurrencyTracker) Leave() {
	c.current.Add(-1)
}

// Current returns the number of callers inside the section.
func (c *ConcurrencyTracker) Current() int {
	return int(c.current.Load())
}

// Peak returns the highest number of callers seen inside the section at once.
func (c *ConcurrencyTracker) Peak() int {
	return int(c.peak.Load())
}

// SafeBuffer is an io.Writer safe for concurrent use, typically handed to a
// slog handler whose output a test inspects.
type SafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write appends p to the buffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything written so far.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Contains reports whether substr has been written.
func (b *SafeBuffer) Contains(substr string) bool {
	return strings.Contains(b.String(), substr)
}

// Lines returns the non-empty lines written so far.
func (b *SafeBuffer) Lines() []string {
	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
