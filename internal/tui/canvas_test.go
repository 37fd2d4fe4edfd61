package tui

import (
	"testing"

	"github.com/verte-zerg/tuireach/internal/geometry"
)

func TestPaintCoversMarkerCells(t *testing.T) {
	cv := canvas{cols: 10, rows: 5, cellW: 8, cellH: 16}
	marker := geometry.Marker{
		Center:     cv.toPixel(4, 2),
		HalfWidth:  12,
		HalfHeight: 20,
		Shape:      geometry.Rectangle,
		Color:      geometry.ColorTarget,
	}
	grid := paint([]geometry.Marker{marker}, cv)

	for r := 0; r < cv.rows; r++ {
		for c := 0; c < cv.cols; c++ {
			want := c >= 3 && c <= 5 && r >= 1 && r <= 3
			if grid[r][c].set != want {
				t.Fatalf("cell (%d,%d): set=%v want %v", c, r, grid[r][c].set, want)
			}
		}
	}
}

func TestPaintLaterMarkersWin(t *testing.T) {
	cv := canvas{cols: 6, rows: 3, cellW: 8, cellH: 16}
	center := cv.toPixel(2, 1)
	markers := []geometry.Marker{
		geometry.Circle(center, 30, geometry.ColorOrigin),
		geometry.Circle(center, 2, geometry.ColorFeedback),
	}
	grid := paint(markers, cv)
	if grid[1][2].color != geometry.ColorFeedback {
		t.Fatalf("expected feedback on top, got %v", grid[1][2].color)
	}
	if grid[1][1].color != geometry.ColorOrigin {
		t.Fatalf("expected origin around the feedback cell, got %v", grid[1][1].color)
	}
}

func TestPaintClipsOffscreenMarkers(t *testing.T) {
	cv := canvas{cols: 4, rows: 2, cellW: 8, cellH: 16}
	markers := []geometry.Marker{geometry.Circle(geometry.Point{X: -100, Y: -100}, 20, geometry.ColorTarget)}
	grid := paint(markers, cv)
	for _, row := range grid {
		for _, c := range row {
			if c.set {
				t.Fatalf("offscreen marker painted a cell")
			}
		}
	}
}

func TestRenderBlankRows(t *testing.T) {
	cv := canvas{cols: 5, rows: 2, cellW: 8, cellH: 16}
	lines := render(paint(nil, cv))
	if len(lines) != 2 || lines[0] != "     " {
		t.Fatalf("unexpected blank render: %q", lines)
	}
}

func TestGlyphIsSingleColumn(t *testing.T) {
	for _, s := range []geometry.Shape{geometry.Ellipse, geometry.Rectangle} {
		if g := glyph(s); len([]rune(g)) != 1 {
			t.Fatalf("glyph for %v is %q", s, g)
		}
	}
}
