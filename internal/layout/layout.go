// Package layout computes the adaptive thumbnail grid: how many columns fit
// a viewport, how wide each cell is stretched so the row fills the width
// exactly, and which cells intersect the visible part of a scrolled grid.
//
// All functions are pure and allocation-light so they can run on every
// resize and scroll event.
package layout

import "math"

// Layout is the result of fitting a grid into a viewport width.
type Layout struct {
	ViewportWidth float64 `json:"viewportWidth"`
	NominalSize   float64 `json:"nominalSize"`
	Gap           float64 `json:"gap"`
	Columns       int     `json:"columns"`
	CellSize      float64 `json:"cellSize"`
	// Valid is false until a positive viewport width has been observed.
	// An invalid layout renders nothing.
	Valid bool `json:"valid"`
}

// Rect is an axis-aligned rectangle in grid pixel space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Cell is one rendered grid position.
type Cell struct {
	Index  int  `json:"index"`
	Row    int  `json:"row"`
	Column int  `json:"column"`
	Rect   Rect `json:"rect"`
}

// Compute fits cells of nominalCellSize separated by gap into viewportWidth.
// The last column may drop its trailing gap; leftover width is spread over
// the columns, so Columns*(CellSize+Gap) covers the viewport to within one
// gap.
func Compute(viewportWidth, nominalCellSize, gap float64) Layout {
	if !(gap > 0) {
		gap = 0
	}
	l := Layout{
		ViewportWidth: viewportWidth,
		NominalSize:   nominalCellSize,
		Gap:           gap,
		Columns:       1,
		CellSize:      nominalCellSize,
	}
	if !(viewportWidth > 0) || !(nominalCellSize > 0) || math.IsInf(viewportWidth, 0) || math.IsInf(nominalCellSize, 0) {
		return l
	}

	slot := nominalCellSize + gap
	l.Columns = max(1, int(math.Floor((viewportWidth+gap)/slot)))
	leftover := max(0, viewportWidth-float64(l.Columns)*slot)
	l.CellSize = nominalCellSize + leftover/float64(l.Columns)
	l.Valid = true
	return l
}

// RowHeight is the vertical pitch of the grid. Cells are square.
func (l Layout) RowHeight() float64 {
	return l.CellSize + l.Gap
}

// Rows returns the number of rows needed for count records.
func (l Layout) Rows(count int) int {
	if count <= 0 || l.Columns <= 0 {
		return 0
	}
	return (count + l.Columns - 1) / l.Columns
}

// CellRect returns the pixel rectangle of the cell at a linear index.
func (l Layout) CellRect(index int) Rect {
	cols := max(1, l.Columns)
	row, col := index/cols, index%cols
	pitch := l.CellSize + l.Gap
	return Rect{
		X:      float64(col) * pitch,
		Y:      float64(row) * pitch,
		Width:  l.CellSize,
		Height: l.CellSize,
	}
}

// Window lists the cells in the rows that intersect the vertical extent of
// visible, widened by overscan rows on each side. Every column of those rows
// is included; indices at or beyond recordCount are skipped.
func (l Layout) Window(visible Rect, recordCount, overscan int) []Cell {
	r := VisibleIndexRange(visible.Y, visible.Height, l.Columns, l.RowHeight(), overscan, recordCount)
	if !l.Valid || r.Empty() {
		return nil
	}
	cells := make([]Cell, 0, r.Len())
	for i := r.First; i <= r.Last; i++ {
		cells = append(cells, Cell{
			Index:  i,
			Row:    i / l.Columns,
			Column: i % l.Columns,
			Rect:   l.CellRect(i),
		})
	}
	return cells
}
