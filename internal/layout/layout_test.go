package layout

import (
	"math"
	"testing"
)

func TestComputeExactFill(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		width       float64
		nominal     float64
		gap         float64
		wantColumns int
		tolerance   float64
	}{
		{name: "reference viewport", width: 1000, nominal: 200, gap: 12, wantColumns: 4},
		{name: "exact multiple", width: 848, nominal: 200, gap: 12, wantColumns: 4},
		{name: "just short of another column", width: 1047, nominal: 200, gap: 12, wantColumns: 4},
		{name: "trailing gap absorbed", width: 1048, nominal: 200, gap: 12, wantColumns: 5, tolerance: 12},
		{name: "narrower than one cell", width: 120, nominal: 200, gap: 12, wantColumns: 1},
		{name: "no gap", width: 1000, nominal: 250, gap: 0, wantColumns: 4},
		{name: "fractional width", width: 1366.5, nominal: 180, gap: 8, wantColumns: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := Compute(tt.width, tt.nominal, tt.gap)
			if !l.Valid {
				t.Fatal("layout should be valid")
			}
			if l.Columns != tt.wantColumns {
				t.Errorf("columns = %d, want %d", l.Columns, tt.wantColumns)
			}
			if l.CellSize < tt.nominal && tt.width >= tt.nominal+tt.gap {
				t.Errorf("cell size %.2f shrank below nominal %.2f", l.CellSize, tt.nominal)
			}
			if tt.width >= tt.nominal+tt.gap {
				used := float64(l.Columns) * (l.CellSize + tt.gap)
				tol := max(1, tt.tolerance)
				if math.Abs(used-tt.width) > tol {
					t.Errorf("columns*(cell+gap) = %.3f, want %.3f within %.0fpx", used, tt.width, tol)
				}
			}
		})
	}
}

func TestComputeReferenceCellSize(t *testing.T) {
	t.Parallel()

	l := Compute(1000, 200, 12)
	if l.CellSize != 238 {
		t.Errorf("cell size = %v, want 238", l.CellSize)
	}
	if l.RowHeight() != 250 {
		t.Errorf("row height = %v, want 250", l.RowHeight())
	}
}

func TestComputeInvalidViewport(t *testing.T) {
	t.Parallel()

	for _, w := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		l := Compute(w, 200, 12)
		if l.Valid || l.Columns != 1 {
			t.Errorf("Compute(%v) = %+v, want invalid single column", w, l)
		}
		if cells := l.Window(Rect{Height: 1000}, 50, 2); len(cells) != 0 {
			t.Errorf("Compute(%v) window has %d cells, want none", w, len(cells))
		}
	}
	if l := Compute(1000, 0, 12); l.Valid {
		t.Error("zero nominal size should not produce a valid layout")
	}
}

func TestRows(t *testing.T) {
	t.Parallel()

	l := Compute(1000, 200, 12)
	for count, want := range map[int]int{0: 0, 1: 1, 4: 1, 5: 2, 101: 26} {
		if got := l.Rows(count); got != want {
			t.Errorf("Rows(%d) = %d, want %d", count, got, want)
		}
	}
}

func TestCellRect(t *testing.T) {
	t.Parallel()

	l := Compute(1000, 200, 12)
	got := l.CellRect(5)
	want := Rect{X: 250, Y: 250, Width: 238, Height: 238}
	if got != want {
		t.Errorf("CellRect(5) = %+v, want %+v", got, want)
	}
}

func TestWindow(t *testing.T) {
	t.Parallel()

	l := Compute(1000, 200, 12) // 4 columns, 250px rows

	cells := l.Window(Rect{Y: 500, Height: 400}, 100, 0)
	// Rows 2..4 intersect [500, 900] under the ceil rule.
	if len(cells) != 12 || cells[0].Index != 8 || cells[len(cells)-1].Index != 19 {
		t.Fatalf("window = %d cells from %d", len(cells), cells[0].Index)
	}
	if cells[0].Row != 2 || cells[0].Column != 0 || cells[3].Column != 3 {
		t.Errorf("unexpected positions: %+v %+v", cells[0], cells[3])
	}

	// The final partial row is truncated at recordCount.
	cells = l.Window(Rect{Y: 0, Height: 10_000}, 10, 3)
	if len(cells) != 10 || cells[9].Index != 9 {
		t.Errorf("partial row window = %d cells", len(cells))
	}

	if cells := l.Window(Rect{Height: 1000}, 0, 2); len(cells) != 0 {
		t.Errorf("zero records produced %d cells", len(cells))
	}
}

func TestVisibleIndexRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		top       float64
		height    float64
		columns   int
		rowHeight float64
		overscan  int
		count     int
		want      IndexRange
	}{
		{name: "top of grid", top: 0, height: 500, columns: 4, rowHeight: 250, overscan: 0, count: 100, want: IndexRange{0, 11}},
		{name: "overscan clamps at zero", top: 0, height: 500, columns: 4, rowHeight: 250, overscan: 5, count: 100, want: IndexRange{0, 31}},
		{name: "middle with overscan", top: 1000, height: 500, columns: 4, rowHeight: 250, overscan: 1, count: 100, want: IndexRange{12, 31}},
		{name: "clamped at end", top: 5000, height: 2000, columns: 4, rowHeight: 250, overscan: 2, count: 101, want: IndexRange{72, 100}},
		{name: "scrolled past content", top: 100_000, height: 500, columns: 4, rowHeight: 250, overscan: 0, count: 10, want: emptyRange},
		{name: "no records", top: 0, height: 500, columns: 4, rowHeight: 250, overscan: 1, count: 0, want: emptyRange},
		{name: "zero row height", top: 0, height: 500, columns: 4, rowHeight: 0, overscan: 1, count: 10, want: emptyRange},
		{name: "zero viewport height", top: 0, height: 0, columns: 4, rowHeight: 250, overscan: 1, count: 10, want: emptyRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := VisibleIndexRange(tt.top, tt.height, tt.columns, tt.rowHeight, tt.overscan, tt.count)
			if got != tt.want {
				t.Errorf("VisibleIndexRange = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestVisibleIndexRangeStaysInBounds(t *testing.T) {
	t.Parallel()

	for count := 0; count < 40; count++ {
		for top := -300.0; top < 3000; top += 137 {
			for _, overscan := range []int{-1, 0, 1, 3} {
				r := VisibleIndexRange(top, 333, 3, 101, overscan, count)
				if r.Empty() {
					continue
				}
				if r.First < 0 || r.Last >= count || r.First > r.Last {
					t.Fatalf("count=%d top=%v overscan=%d: range %+v out of bounds", count, top, overscan, r)
				}
			}
		}
	}
}

func TestVisibleIndexRangeExtremeInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		top      float64
		overscan int
		count    int
		want     IndexRange
	}{
		{name: "max overscan", top: 1000, overscan: math.MaxInt, count: 100, want: IndexRange{0, 99}},
		{name: "max overscan past content", top: 100_000, overscan: math.MaxInt, count: 10, want: IndexRange{0, 9}},
		{name: "huge scroll offset", top: 1e300, overscan: 1, count: 10, want: emptyRange},
		{name: "huge scroll offset with max overscan", top: 1e300, overscan: math.MaxInt, count: 10, want: emptyRange},
		{name: "infinite scroll offset", top: math.Inf(1), overscan: 2, count: 10, want: emptyRange},
		{name: "overscan reaches back from past the end", top: 1000, overscan: 2, count: 10, want: IndexRange{8, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := VisibleIndexRange(tt.top, 500, 4, 250, tt.overscan, tt.count)
			if got != tt.want {
				t.Errorf("VisibleIndexRange = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestVisibleIndexRangeLargeColumnCount(t *testing.T) {
	t.Parallel()

	got := VisibleIndexRange(0, 500, math.MaxInt, 250, math.MaxInt, 7)
	if want := (IndexRange{0, 6}); got != want {
		t.Errorf("VisibleIndexRange = %+v, want %+v", got, want)
	}
}

func TestIndexRangeHelpers(t *testing.T) {
	t.Parallel()

	r := IndexRange{First: 3, Last: 5}
	if r.Len() != 3 || !r.Contains(3) || !r.Contains(5) || r.Contains(6) {
		t.Errorf("helpers wrong for %+v", r)
	}
	if !emptyRange.Empty() || emptyRange.Len() != 0 || emptyRange.Contains(0) {
		t.Error("empty range helpers wrong")
	}
}
