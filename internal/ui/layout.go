// SPDX-License-Identifier: Apache-2.0

// Package ui implements the build monitor TUI: a grid of per-host tiles
// with full-screen, menu and minimized views, driven by executor events
// through the Bubble Tea update loop.
package ui

import "math"

// Minimum inner tile size. Tiles also carry a one-cell border on each side.
const (
	MinTileWidth  = 40
	MinTileHeight = 6
)

// Rect is a tile rectangle in terminal cells. Row and Col are zero-based.
type Rect struct {
	Row, Col      int
	Width, Height int
}

// Grid tiles count hosts into the given area. It prefers the row count
// whose tiles are closest to a comfortable aspect ratio while respecting
// the minimum tile size; when not all hosts fit it returns rects for the
// first visible ones only.
func Grid(width, height, count int) (rects []Rect, visible int) {
	if count <= 0 || width <= 0 || height <= 0 {
		return nil, 0
	}

	outerW := MinTileWidth + 2
	outerH := MinTileHeight + 2

	maxCols := width / outerW
	maxRows := height / outerH
	if maxCols == 0 || maxRows == 0 {
		return nil, 0
	}

	if maxCols*maxRows < count {
		// Not everything fits. Show as many as possible; the menu still
		// reaches the hidden ones.
		visible = maxCols * maxRows
	} else {
		visible = count
	}

	bestCols := 1
	bestScore := math.Inf(1)
	for cols := 1; cols <= maxCols; cols++ {
		rows := (visible + cols - 1) / cols
		if rows > maxRows {
			continue
		}
		tileW := width / cols
		tileH := height / rows
		// A terminal cell is roughly twice as tall as wide; score how far
		// the tile is from a square on screen.
		aspect := float64(tileW) / (2.0 * float64(tileH))
		score := math.Abs(math.Log(aspect))
		if score < bestScore {
			bestScore = score
			bestCols = cols
		}
	}

	cols := bestCols
	rows := (visible + cols - 1) / cols
	tileW := width / cols
	tileH := height / rows

	rects = make([]Rect, 0, visible)
	for i := 0; i < visible; i++ {
		r := i / cols
		c := i % cols
		rects = append(rects, Rect{
			Row:    r * tileH,
			Col:    c * tileW,
			Width:  tileW,
			Height: tileH,
		})
	}
	return rects, visible
}

// Fullscreen returns the content rectangle for full-screen mode: the whole
// terminal minus a two-row header and a one-row footer.
func Fullscreen(width, height int) Rect {
	h := height - 3
	if h < 0 {
		h = 0
	}
	return Rect{Row: 2, Col: 0, Width: width, Height: h}
}

// Menu returns the centered overlay box, sized to 80% of the terminal.
func Menu(width, height int) Rect {
	w := width * 8 / 10
	h := height * 8 / 10
	if w < 1 {
		w = width
	}
	if h < 1 {
		h = height
	}
	return Rect{Row: (height - h) / 2, Col: (width - w) / 2, Width: w, Height: h}
}
