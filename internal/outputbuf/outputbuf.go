// SPDX-License-Identifier: Apache-2.0

// Package outputbuf implements the bounded per-host output buffer. Appends
// are amortized O(1); old lines are evicted past the capacity while absolute line
// numbers stay stable so scroll positions survive evictions.
package outputbuf

// DefaultCapacity is the per-host line cap used when callers pass no limit.
const DefaultCapacity = 500

// Buffer is a bounded FIFO of output lines. The zero value is not usable;
// construct with New. Buffer is not safe for concurrent use: the controller
// is its only writer and reader.
type Buffer struct {
	lines []string
	cap   int
	base  int // absolute index of lines[0]
}

// New returns a buffer holding at most capacity lines. A non-positive
// capacity falls back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{cap: capacity}
}

// Append adds a line, evicting the oldest line when the buffer is full.
func (b *Buffer) Append(line string) {
	b.lines = append(b.lines, line)
	if len(b.lines) > b.cap {
		b.lines[0] = ""
		b.lines = b.lines[1:]
		b.base++
	}
}

// Len returns the number of lines currently held.
func (b *Buffer) Len() int { return len(b.lines) }

// Base returns the absolute index of the oldest retained line.
func (b *Buffer) Base() int { return b.base }

// Total returns the absolute index one past the newest line, i.e. the number
// of lines ever appended.
func (b *Buffer) Total() int { return b.base + len(b.lines) }

// Snapshot returns up to count lines starting at absolute index from.
// Requests preceding the retained window are clamped forward; requests past
// the end return an empty slice. The returned slice is a copy.
func (b *Buffer) Snapshot(from, count int) []string {
	if count <= 0 {
		return nil
	}
	if from < b.base {
		from = b.base
	}
	start := from - b.base
	if start >= len(b.lines) {
		return nil
	}
	end := start + count
	if end > len(b.lines) {
		end = len(b.lines)
	}
	out := make([]string, end-start)
	copy(out, b.lines[start:end])
	return out
}

// Tail returns the newest count lines.
func (b *Buffer) Tail(count int) []string {
	if count <= 0 {
		return nil
	}
	if count > len(b.lines) {
		count = len(b.lines)
	}
	return b.Snapshot(b.Total()-count, count)
}
