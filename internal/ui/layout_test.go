// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridEmptyInputs(t *testing.T) {
	rects, visible := Grid(0, 40, 3)
	assert.Nil(t, rects)
	assert.Zero(t, visible)

	rects, visible = Grid(120, 40, 0)
	assert.Nil(t, rects)
	assert.Zero(t, visible)
}

func TestGridTooSmallForAnyTile(t *testing.T) {
	// Narrower than one bordered tile.
	rects, visible := Grid(MinTileWidth, 40, 2)
	assert.Nil(t, rects)
	assert.Zero(t, visible)

	rects, visible = Grid(120, MinTileHeight, 2)
	assert.Nil(t, rects)
	assert.Zero(t, visible)
}

func TestGridSingleHost(t *testing.T) {
	rects, visible := Grid(120, 40, 1)
	require.Equal(t, 1, visible)
	require.Len(t, rects, 1)
	assert.Equal(t, 0, rects[0].Row)
	assert.Equal(t, 0, rects[0].Col)
	assert.GreaterOrEqual(t, rects[0].Width, MinTileWidth+2)
	assert.Equal(t, 40, rects[0].Height)
}

func TestGridAllFit(t *testing.T) {
	rects, visible := Grid(180, 40, 4)
	require.Equal(t, 4, visible)
	require.Len(t, rects, 4)

	for _, r := range rects {
		assert.GreaterOrEqual(t, r.Width, MinTileWidth+2)
		assert.GreaterOrEqual(t, r.Height, MinTileHeight+2)
		assert.GreaterOrEqual(t, r.Row, 0)
		assert.GreaterOrEqual(t, r.Col, 0)
		assert.LessOrEqual(t, r.Col+r.Width, 180)
		assert.LessOrEqual(t, r.Row+r.Height, 40)
	}

	// Row-major order: first rect at the origin, no duplicates.
	assert.Equal(t, 0, rects[0].Row)
	assert.Equal(t, 0, rects[0].Col)
	seen := make(map[Rect]bool)
	for _, r := range rects {
		assert.False(t, seen[r])
		seen[r] = true
	}
}

func TestGridOverflowShowsFirstHosts(t *testing.T) {
	// One tile column, four tile rows available, ten hosts requested.
	width := MinTileWidth + 2
	height := 4 * (MinTileHeight + 2)
	rects, visible := Grid(width, height, 10)
	assert.Equal(t, 4, visible)
	assert.Len(t, rects, 4)
}

func TestGridTilesNeverUndersized(t *testing.T) {
	for _, dims := range [][3]int{{84, 16, 2}, {200, 50, 7}, {90, 100, 9}} {
		rects, _ := Grid(dims[0], dims[1], dims[2])
		for _, r := range rects {
			assert.GreaterOrEqual(t, r.Width, MinTileWidth+2, "dims %v", dims)
			assert.GreaterOrEqual(t, r.Height, MinTileHeight+2, "dims %v", dims)
		}
	}
}

func TestFullscreen(t *testing.T) {
	r := Fullscreen(120, 40)
	assert.Equal(t, Rect{Row: 2, Col: 0, Width: 120, Height: 37}, r)

	// Degenerate terminals clamp instead of going negative.
	r = Fullscreen(120, 2)
	assert.Zero(t, r.Height)
}

func TestMenuCentered(t *testing.T) {
	r := Menu(100, 50)
	assert.Equal(t, 80, r.Width)
	assert.Equal(t, 40, r.Height)
	assert.Equal(t, 10, r.Col)
	assert.Equal(t, 5, r.Row)
}
