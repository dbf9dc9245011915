package formulagraph

import "slices"

// RangeMapping indexes range vertices by their exact rectangle.
type RangeMapping struct {
	sheets map[int]map[AbsoluteCellRange]VertexID
}

func newRangeMapping() *RangeMapping {
	return &RangeMapping{sheets: make(map[int]map[AbsoluteCellRange]VertexID)}
}

func (m *RangeMapping) get(rng AbsoluteCellRange) (VertexID, bool) {
	id, ok := m.sheets[rng.Sheet()][rng]
	return id, ok
}

func (m *RangeMapping) set(rng AbsoluteCellRange, id VertexID) {
	s, ok := m.sheets[rng.Sheet()]
	if !ok {
		s = make(map[AbsoluteCellRange]VertexID)
		m.sheets[rng.Sheet()] = s
	}
	s[rng] = id
}

func (m *RangeMapping) remove(rng AbsoluteCellRange) {
	if s, ok := m.sheets[rng.Sheet()]; ok {
		delete(s, rng)
		if len(s) == 0 {
			delete(m.sheets, rng.Sheet())
		}
	}
}

// findSmallerRange looks up the range that is rng minus its last row. It
// returns the smaller vertex, if any, and the rows rng adds on top of it.
func (m *RangeMapping) findSmallerRange(rng AbsoluteCellRange) (VertexID, AbsoluteCellRange, bool) {
	if rng.IsFinite() && rng.Height() > 1 {
		if id, ok := m.get(rng.withoutLastRow()); ok {
			return id, rng.lastRow(), true
		}
	}
	return noVertex, rng, false
}

// rangeEntry pairs a range with its vertex.
type rangeEntry struct {
	rng AbsoluteCellRange
	id  VertexID
}

// inSheet returns the ranges of a sheet ordered by position, top-left first,
// then by size.
func (m *RangeMapping) inSheet(sheet int) []rangeEntry {
	s := m.sheets[sheet]
	out := make([]rangeEntry, 0, len(s))
	for rng, id := range s {
		out = append(out, rangeEntry{rng, id})
	}
	slices.SortFunc(out, func(a, b rangeEntry) int {
		for _, d := range [...]int{
			a.rng.Start.Row - b.rng.Start.Row, a.rng.Start.Col - b.rng.Start.Col,
			a.rng.End.Row - b.rng.End.Row, a.rng.End.Col - b.rng.End.Col,
		} {
			if d != 0 {
				return d
			}
		}
		return 0
	})
	return out
}

// update rewrites the ranges of a sheet with fn, which returns the new
// rectangle, or false to drop the entry. Entries which land on the same
// rectangle are reported as collisions: the first one keeps the key.
func (m *RangeMapping) update(sheet int, fn func(AbsoluteCellRange) (AbsoluteCellRange, bool)) (changed []rangeEntry, dropped []VertexID, collisions [][2]VertexID) {
	entries := m.inSheet(sheet)
	delete(m.sheets, sheet)
	for _, e := range entries {
		next, keep := fn(e.rng)
		if !keep {
			dropped = append(dropped, e.id)
			continue
		}
		if other, taken := m.get(next); taken {
			collisions = append(collisions, [2]VertexID{other, e.id})
			continue
		}
		m.set(next, e.id)
		if next != e.rng {
			changed = append(changed, rangeEntry{next, e.id})
		}
	}
	return changed, dropped, collisions
}

// removeSheet drops all ranges of a sheet and returns their vertices.
func (m *RangeMapping) removeSheet(sheet int) []VertexID {
	var ids []VertexID
	for _, e := range m.inSheet(sheet) {
		ids = append(ids, e.id)
	}
	delete(m.sheets, sheet)
	return ids
}

// containedIn returns the ranges lying completely inside rng.
func (m *RangeMapping) containedIn(rng AbsoluteCellRange) []rangeEntry {
	var out []rangeEntry
	for _, e := range m.inSheet(rng.Sheet()) {
		if rng.ContainsRange(e.rng) {
			out = append(out, e)
		}
	}
	return out
}
