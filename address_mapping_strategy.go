package formulagraph

import (
	"slices"
)

// addressStrategy stores the vertex ids of one sheet.
type addressStrategy interface {
	get(col, row int) VertexID
	set(col, row int, id VertexID)
	remove(col, row int)
	addRows(row, count int)
	removeRows(start, end int)
	addColumns(col, count int)
	removeColumns(start, end int)
	width() int
	height() int
	entries(fn func(col, row int, id VertexID))
	rowEntries(row int, fn func(col int, id VertexID))
	columnEntries(col int, fn func(row int, id VertexID))
	isDense() bool
}

// AddressMappingPolicy chooses the storage strategy of a sheet from its fill
// ratio, the share of non-empty cells in the sheet's bounding box.
type AddressMappingPolicy interface {
	UseDense(fill float64) bool
}

// AlwaysDense stores every sheet in nested slices.
type AlwaysDense struct{}

// UseDense implements AddressMappingPolicy.
func (AlwaysDense) UseDense(float64) bool { return true }

// AlwaysSparse stores every sheet in maps.
type AlwaysSparse struct{}

// UseDense implements AddressMappingPolicy.
func (AlwaysSparse) UseDense(float64) bool { return false }

// DenseSparseChooseBasedOnThreshold picks dense storage when the fill ratio
// exceeds Threshold.
type DenseSparseChooseBasedOnThreshold struct {
	Threshold float64
}

// UseDense implements AddressMappingPolicy.
func (p DenseSparseChooseBasedOnThreshold) UseDense(fill float64) bool {
	return fill > p.Threshold
}

// denseStrategy keeps rows of vertex ids; rows grow on demand.
type denseStrategy struct {
	rows [][]VertexID
	w    int
}

func newDenseStrategy(width, height int) *denseStrategy {
	return &denseStrategy{rows: make([][]VertexID, 0, height), w: width}
}

func (s *denseStrategy) get(col, row int) VertexID {
	if row < 0 || row >= len(s.rows) || col < 0 || col >= len(s.rows[row]) {
		return noVertex
	}
	return s.rows[row][col]
}

func (s *denseStrategy) set(col, row int, id VertexID) {
	for len(s.rows) <= row {
		s.rows = append(s.rows, nil)
	}
	r := s.rows[row]
	if len(r) <= col {
		r = append(r, make([]VertexID, col+1-len(r))...)
		s.rows[row] = r
	}
	r[col] = id
	if col+1 > s.w {
		s.w = col + 1
	}
}

func (s *denseStrategy) remove(col, row int) {
	if row < len(s.rows) && col < len(s.rows[row]) {
		s.rows[row][col] = noVertex
	}
}

func (s *denseStrategy) addRows(row, count int) {
	if row >= len(s.rows) {
		return
	}
	s.rows = slices.Insert(s.rows, row, make([][]VertexID, count)...)
}

func (s *denseStrategy) removeRows(start, end int) {
	if start >= len(s.rows) {
		return
	}
	s.rows = slices.Delete(s.rows, start, min(end, len(s.rows)))
}

func (s *denseStrategy) addColumns(col, count int) {
	for i, r := range s.rows {
		if col < len(r) {
			s.rows[i] = slices.Insert(r, col, make([]VertexID, count)...)
		}
	}
	if col < s.w {
		s.w += count
	}
}

func (s *denseStrategy) removeColumns(start, end int) {
	s.w = 0
	for i, r := range s.rows {
		if start < len(r) {
			r = slices.Delete(r, start, min(end, len(r)))
			s.rows[i] = r
		}
		s.w = max(s.w, len(r))
	}
}

func (s *denseStrategy) width() int  { return s.w }
func (s *denseStrategy) height() int { return len(s.rows) }

func (s *denseStrategy) entries(fn func(col, row int, id VertexID)) {
	for row, r := range s.rows {
		for col, id := range r {
			if id != noVertex {
				fn(col, row, id)
			}
		}
	}
}

func (s *denseStrategy) rowEntries(row int, fn func(col int, id VertexID)) {
	if row < 0 || row >= len(s.rows) {
		return
	}
	for col, id := range s.rows[row] {
		if id != noVertex {
			fn(col, id)
		}
	}
}

func (s *denseStrategy) columnEntries(col int, fn func(row int, id VertexID)) {
	for row, r := range s.rows {
		if col < len(r) && r[col] != noVertex {
			fn(row, r[col])
		}
	}
}

func (s *denseStrategy) isDense() bool { return true }

// sparseStrategy keeps a map per column.
type sparseStrategy struct {
	cols map[int]map[int]VertexID
	w, h int
}

func newSparseStrategy(width, height int) *sparseStrategy {
	return &sparseStrategy{cols: make(map[int]map[int]VertexID), w: width, h: height}
}

func (s *sparseStrategy) get(col, row int) VertexID {
	return s.cols[col][row]
}

func (s *sparseStrategy) set(col, row int, id VertexID) {
	c, ok := s.cols[col]
	if !ok {
		c = make(map[int]VertexID)
		s.cols[col] = c
	}
	c[row] = id
	s.w, s.h = max(s.w, col+1), max(s.h, row+1)
}

func (s *sparseStrategy) remove(col, row int) {
	if c, ok := s.cols[col]; ok {
		delete(c, row)
		if len(c) == 0 {
			delete(s.cols, col)
		}
	}
}

// shiftKeys rebuilds m moving keys >= from by delta and dropping keys in
// [dropStart, dropEnd).
func shiftKeys(m map[int]VertexID, from, delta, dropStart, dropEnd int) map[int]VertexID {
	out := make(map[int]VertexID, len(m))
	for k, id := range m {
		switch {
		case k >= dropStart && k < dropEnd:
		case k >= from:
			out[k+delta] = id
		default:
			out[k] = id
		}
	}
	return out
}

func (s *sparseStrategy) addRows(row, count int) {
	for col, c := range s.cols {
		s.cols[col] = shiftKeys(c, row, count, 0, 0)
	}
	if row < s.h {
		s.h += count
	}
}

func (s *sparseStrategy) removeRows(start, end int) {
	for col, c := range s.cols {
		if c = shiftKeys(c, end, start-end, start, end); len(c) == 0 {
			delete(s.cols, col)
		} else {
			s.cols[col] = c
		}
	}
	if start < s.h {
		s.h -= min(end, s.h) - start
	}
}

func (s *sparseStrategy) addColumns(col, count int) {
	next := make(map[int]map[int]VertexID, len(s.cols))
	for c, m := range s.cols {
		if c >= col {
			c += count
		}
		next[c] = m
	}
	s.cols = next
	if col < s.w {
		s.w += count
	}
}

func (s *sparseStrategy) removeColumns(start, end int) {
	next := make(map[int]map[int]VertexID, len(s.cols))
	for c, m := range s.cols {
		switch {
		case c >= start && c < end:
			continue
		case c >= end:
			c -= end - start
		}
		next[c] = m
	}
	s.cols = next
	if start < s.w {
		s.w -= min(end, s.w) - start
	}
}

func (s *sparseStrategy) width() int  { return s.w }
func (s *sparseStrategy) height() int { return s.h }

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s *sparseStrategy) entries(fn func(col, row int, id VertexID)) {
	type cell struct{ col, row int }
	cells := make([]cell, 0)
	for col, c := range s.cols {
		for row := range c {
			cells = append(cells, cell{col, row})
		}
	}
	slices.SortFunc(cells, func(a, b cell) int {
		if a.row != b.row {
			return a.row - b.row
		}
		return a.col - b.col
	})
	for _, c := range cells {
		fn(c.col, c.row, s.cols[c.col][c.row])
	}
}

func (s *sparseStrategy) rowEntries(row int, fn func(col int, id VertexID)) {
	for _, col := range sortedKeys(s.cols) {
		if id, ok := s.cols[col][row]; ok {
			fn(col, id)
		}
	}
}

func (s *sparseStrategy) columnEntries(col int, fn func(row int, id VertexID)) {
	c := s.cols[col]
	for _, row := range sortedKeys(c) {
		fn(row, c[row])
	}
}

func (s *sparseStrategy) isDense() bool { return false }
