package layout

import "math"

// IndexRange is an inclusive range of linear record indices.
type IndexRange struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

var emptyRange = IndexRange{First: 0, Last: -1}

// Empty reports whether the range contains no index.
func (r IndexRange) Empty() bool {
	return r.Last < r.First
}

// Len is the number of indices in the range.
func (r IndexRange) Len() int {
	if r.Empty() {
		return 0
	}
	return r.Last - r.First + 1
}

// Contains reports whether i lies in the range.
func (r IndexRange) Contains(i int) bool {
	return !r.Empty() && i >= r.First && i <= r.Last
}

// VisibleIndexRange returns the records whose rows intersect
// [scrollTop, scrollTop+scrollHeight), extended by overscan rows above and
// below. The result is always within [0, recordCount).
func VisibleIndexRange(scrollTop, scrollHeight float64, columns int, rowHeight float64, overscan, recordCount int) IndexRange {
	if recordCount <= 0 || columns <= 0 || !(rowHeight > 0) || !(scrollHeight > 0) || math.IsInf(rowHeight, 0) {
		return emptyRange
	}
	scrollTop = max(0, scrollTop)

	rows := (recordCount-1)/columns + 1
	overscanRows := float64(max(0, overscan))
	firstRow := rowAt(math.Floor(scrollTop/rowHeight)-overscanRows, rows)
	lastRow := min(rows-1, rowAt(math.Ceil((scrollTop+scrollHeight)/rowHeight)+overscanRows, rows))
	if firstRow > lastRow {
		return emptyRange
	}

	start := lastRow * columns
	return IndexRange{
		First: firstRow * columns,
		Last:  start + min(columns-1, recordCount-1-start),
	}
}

// rowAt converts a row position to an int in [0, limit]. Overscan is added
// in float64 so huge values saturate instead of wrapping.
func rowAt(pos float64, limit int) int {
	switch {
	case !(pos < float64(limit)):
		return limit
	case pos <= 0:
		return 0
	}
	return int(pos)
}
