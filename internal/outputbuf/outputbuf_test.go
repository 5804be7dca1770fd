// SPDX-License-Identifier: Apache-2.0

package outputbuf

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(b *Buffer, n int) {
	for i := 0; i < n; i++ {
		b.Append(fmt.Sprintf("line-%d", i))
	}
}

func TestAppendBelowCapacity(t *testing.T) {
	b := New(5)
	fill(b, 3)

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 0, b.Base())
	assert.Equal(t, 3, b.Total())
	assert.Equal(t, []string{"line-0", "line-1", "line-2"}, b.Snapshot(0, 10))
}

func TestEvictionKeepsAbsoluteIndices(t *testing.T) {
	b := New(3)
	fill(b, 5)

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 2, b.Base())
	assert.Equal(t, 5, b.Total())
	assert.Equal(t, []string{"line-2", "line-3", "line-4"}, b.Snapshot(b.Base(), 3))
}

func TestSnapshotClamping(t *testing.T) {
	b := New(3)
	fill(b, 5)

	// Requests before the retained window clamp forward.
	assert.Equal(t, []string{"line-2", "line-3"}, b.Snapshot(0, 2))
	// Requests past the end are empty.
	assert.Empty(t, b.Snapshot(5, 2))
	// Non-positive counts are empty.
	assert.Empty(t, b.Snapshot(2, 0))
	// Counts past the end are truncated.
	assert.Equal(t, []string{"line-4"}, b.Snapshot(4, 10))
}

func TestSnapshotReturnsCopy(t *testing.T) {
	b := New(3)
	fill(b, 2)

	snap := b.Snapshot(0, 2)
	require.Len(t, snap, 2)
	snap[0] = "mutated"
	assert.Equal(t, []string{"line-0", "line-1"}, b.Snapshot(0, 2))
}

func TestTail(t *testing.T) {
	b := New(4)
	fill(b, 6)

	assert.Equal(t, []string{"line-4", "line-5"}, b.Tail(2))
	assert.Equal(t, []string{"line-2", "line-3", "line-4", "line-5"}, b.Tail(100))
	assert.Empty(t, b.Tail(0))
}

func TestDefaultCapacityFallback(t *testing.T) {
	b := New(0)
	fill(b, DefaultCapacity+10)

	assert.Equal(t, DefaultCapacity, b.Len())
	assert.Equal(t, 10, b.Base())
}
