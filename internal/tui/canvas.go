package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tuireach/internal/geometry"
)

// canvas maps terminal cells to the pixel space the controller works in.
type canvas struct {
	cols  int
	rows  int
	cellW float64
	cellH float64
}

// size is the pixel extent of the canvas.
func (c canvas) size() geometry.Size {
	return geometry.Size{Width: float64(c.cols) * c.cellW, Height: float64(c.rows) * c.cellH}
}

// toPixel returns the pixel position of the center of a cell.
func (c canvas) toPixel(col, row int) geometry.Point {
	return geometry.Point{
		X: (float64(col) + 0.5) * c.cellW,
		Y: (float64(row) + 0.5) * c.cellH,
	}
}

func (c canvas) toCell(p geometry.Point) (col, row int) {
	return int(math.Floor(p.X / c.cellW)), int(math.Floor(p.Y / c.cellH))
}

type cell struct {
	set   bool
	shape geometry.Shape
	color geometry.ColorTag
}

// paint rasterises markers in draw order, later markers covering earlier
// ones. A marker smaller than a cell still paints the cell holding its center.
func paint(markers []geometry.Marker, cv canvas) [][]cell {
	grid := make([][]cell, cv.rows)
	for r := range grid {
		grid[r] = make([]cell, cv.cols)
	}
	if cv.cellW <= 0 || cv.cellH <= 0 {
		return grid
	}
	for i := range markers {
		m := &markers[i]
		c0, r0 := cv.toCell(geometry.Point{X: m.Center.X - m.HalfWidth, Y: m.Center.Y - m.HalfHeight})
		c1, r1 := cv.toCell(geometry.Point{X: m.Center.X + m.HalfWidth, Y: m.Center.Y + m.HalfHeight})
		cc, cr := cv.toCell(m.Center)
		for r := max(r0, 0); r <= min(r1, cv.rows-1); r++ {
			for c := max(c0, 0); c <= min(c1, cv.cols-1); c++ {
				if (c == cc && r == cr) || geometry.Contains(m, cv.toPixel(c, r)) {
					grid[r][c] = cell{set: true, shape: m.Shape, color: m.Color}
				}
			}
		}
	}
	return grid
}

// render turns a painted grid into styled lines, batching runs of equal
// cells into one styled segment.
func render(grid [][]cell) []string {
	lines := make([]string, len(grid))
	for r, row := range grid {
		var b strings.Builder
		for start := 0; start < len(row); {
			end := start + 1
			for end < len(row) && row[end] == row[start] {
				end++
			}
			b.WriteString(renderRun(row[start], end-start))
			start = end
		}
		lines[r] = b.String()
	}
	return lines
}

func renderRun(c cell, n int) string {
	if !c.set {
		return strings.Repeat(" ", n)
	}
	return colorStyle(c.color).Render(strings.Repeat(glyph(c.shape), n))
}

// glyph picks a single-column block for the shape, falling back to ASCII on
// terminals that render the block wider than one cell.
func glyph(s geometry.Shape) string {
	var g, fallback string
	switch s {
	case geometry.Ellipse:
		g, fallback = "█", "@"
	case geometry.Rectangle:
		g, fallback = "▓", "#"
	default:
		return "?"
	}
	if runewidth.StringWidth(g) != 1 {
		return fallback
	}
	return g
}

var (
	originStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	targetStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FA34D"))
	feedbackStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	rawCursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A6FA5"))
	syncOnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	syncOffStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#101010"))
	unknownStyle   = lipgloss.NewStyle()
)

func colorStyle(tag geometry.ColorTag) lipgloss.Style {
	switch tag {
	case geometry.ColorOrigin:
		return originStyle
	case geometry.ColorTarget:
		return targetStyle
	case geometry.ColorFeedback:
		return feedbackStyle
	case geometry.ColorRawCursor:
		return rawCursorStyle
	case geometry.ColorSyncOn:
		return syncOnStyle
	case geometry.ColorSyncOff:
		return syncOffStyle
	default:
		return unknownStyle
	}
}
