package formulagraph

import (
	"log"
	"slices"
)

// valueIndex lists the rows holding one value in one column. Rows are
// absolute, ascending and free of duplicates as of version.
type valueIndex struct {
	version int
	rows    []int
}

// ColumnIndex maps sheet, column and value to the rows holding the value.
// Entries are synced lazily: each remembers the transformation version it
// was last brought up to date with and replays only the row insertions and
// deletions logged since. Column edits, moves and sheet removal are applied
// eagerly.
type ColumnIndex struct {
	index  map[int]map[int]map[Value]*valueIndex
	lazy   *LazilyTransformingAstService
	binary *ColumnBinarySearch
	arith  *arithmetic
	stats  *Statistics
	logger *log.Logger
}

// NewColumnIndex creates an empty index which falls back to binary for keys
// it has no entry for.
func NewColumnIndex(lazy *LazilyTransformingAstService, binary *ColumnBinarySearch, stats *Statistics, logger *log.Logger) *ColumnIndex {
	return &ColumnIndex{
		index:  make(map[int]map[int]map[Value]*valueIndex),
		lazy:   lazy,
		binary: binary,
		arith:  binary.arith,
		stats:  stats,
		logger: logger,
	}
}

// indexKey normalizes a value into its map key, or reports false for values
// which are never indexed.
func (ci *ColumnIndex) indexKey(v Value) (Value, bool) {
	switch v.Type {
	case ValueNumber, ValueBoolean:
		return v.key(), true
	case ValueString:
		return StringValue(ci.arith.normalize(v.String)), true
	}
	return Value{}, false
}

func (ci *ColumnIndex) column(sheet, col int, create bool) map[Value]*valueIndex {
	cols, ok := ci.index[sheet]
	if !ok {
		if !create {
			return nil
		}
		cols = make(map[int]map[Value]*valueIndex)
		ci.index[sheet] = cols
	}
	values, ok := cols[col]
	if !ok && create {
		values = make(map[Value]*valueIndex)
		cols[col] = values
	}
	return values
}

// ensureRecent replays the row edits of sheet logged after the entry's
// version.
func (ci *ColumnIndex) ensureRecent(entry *valueIndex, sheet int) {
	current := ci.lazy.Version()
	if entry.version == current {
		return
	}
	edits := ci.lazy.rowEdits(sheet, entry.version)
	entry.version = current
	if len(edits) == 0 {
		return
	}
	ci.stats.inc(statColumnIndexSync)
	if ci.logger != nil && len(edits) > 1 {
		ci.logger.Printf("[ColumnIndex] replaying %d row edits on sheet %d", len(edits), sheet)
	}
	for _, t := range edits {
		rows := entry.rows[:0]
		for _, r := range entry.rows {
			if nr, ok := t.transformIndex(r); ok {
				rows = append(rows, nr)
			}
		}
		entry.rows = rows
	}
}

// Add implements ColumnSearchStrategy.
func (ci *ColumnIndex) Add(value Value, addr SimpleCellAddress) {
	key, ok := ci.indexKey(value)
	if !ok {
		return
	}
	values := ci.column(addr.Sheet, addr.Col, true)
	entry, ok := values[key]
	if !ok {
		entry = &valueIndex{version: ci.lazy.Version()}
		values[key] = entry
	}
	ci.ensureRecent(entry, addr.Sheet)
	i, found := slices.BinarySearch(entry.rows, addr.Row)
	if !found {
		entry.rows = slices.Insert(entry.rows, i, addr.Row)
	}
}

// Remove implements ColumnSearchStrategy.
func (ci *ColumnIndex) Remove(value Value, addr SimpleCellAddress) {
	key, ok := ci.indexKey(value)
	if !ok {
		return
	}
	values := ci.column(addr.Sheet, addr.Col, false)
	entry, ok := values[key]
	if !ok {
		return
	}
	ci.ensureRecent(entry, addr.Sheet)
	if i, found := slices.BinarySearch(entry.rows, addr.Row); found {
		entry.rows = slices.Delete(entry.rows, i, i+1)
	}
	if len(entry.rows) == 0 {
		delete(values, key)
	}
}

// Change implements ColumnSearchStrategy.
func (ci *ColumnIndex) Change(old, new Value, addr SimpleCellAddress) {
	if sameValue(old, new) {
		return
	}
	ci.Remove(old, addr)
	ci.Add(new, addr)
}

// shiftColumns re-keys the columns of a sheet through fn; columns for which
// fn reports false are dropped.
func (ci *ColumnIndex) shiftColumns(sheet int, fn func(int) (int, bool)) {
	cols, ok := ci.index[sheet]
	if !ok {
		return
	}
	next := make(map[int]map[Value]*valueIndex, len(cols))
	for col, values := range cols {
		if nc, ok := fn(col); ok {
			next[nc] = values
		}
	}
	ci.index[sheet] = next
}

// AddColumns implements ColumnSearchStrategy.
func (ci *ColumnIndex) AddColumns(sheet, col, count int) {
	ci.shiftColumns(sheet, newAddColumnsTransformer(sheet, col, count).transformIndex)
}

// RemoveColumns implements ColumnSearchStrategy.
func (ci *ColumnIndex) RemoveColumns(span Span) {
	ci.shiftColumns(span.Sheet, newRemoveColumnsTransformer(span).transformIndex)
}

// RemoveSheet implements ColumnSearchStrategy.
func (ci *ColumnIndex) RemoveSheet(sheet int) {
	delete(ci.index, sheet)
}

// MoveValues implements ColumnSearchStrategy.
func (ci *ColumnIndex) MoveValues(moves []ValueMove) {
	for _, m := range moves {
		ci.Remove(m.Value, m.From)
	}
	for _, m := range moves {
		ci.Add(m.Value, m.To)
	}
}

// Find implements ColumnSearchStrategy. Exact lookups on grid columns are
// answered from the index; everything else goes to binary search.
func (ci *ColumnIndex) Find(key Value, rng *RangeValue, sorted bool) int {
	area, ok := rng.Range()
	if !ok || area.Width() != 1 || area.IsEmpty() {
		return ci.binary.Find(key, rng, sorted)
	}
	k, ok := ci.indexKey(key)
	if !ok {
		return ci.binary.Find(key, rng, sorted)
	}
	entry, ok := ci.column(area.Sheet(), area.Start.Col, false)[k]
	if !ok {
		return ci.binary.Find(key, rng, sorted)
	}
	ci.ensureRecent(entry, area.Sheet())
	i, _ := slices.BinarySearch(entry.rows, area.Start.Row)
	if i < len(entry.rows) && entry.rows[i] <= area.End.Row {
		return entry.rows[i] - area.Start.Row
	}
	if sorted {
		return ci.binary.Find(key, rng, sorted)
	}
	return -1
}

// AdvancedFind implements ColumnSearchStrategy.
func (ci *ColumnIndex) AdvancedFind(key Value, rng *RangeValue, matchType int) int {
	if matchType == 0 && rng.Width() == 1 && !(key.Type == ValueString && (ci.arith.wildcards || ci.arith.regex)) {
		return ci.Find(key, rng, false)
	}
	return ci.binary.AdvancedFind(key, rng, matchType)
}

// entries returns the synced rows of one value, for tests and debugging.
func (ci *ColumnIndex) entries(sheet, col int, value Value) []int {
	key, ok := ci.indexKey(value)
	if !ok {
		return nil
	}
	entry, ok := ci.column(sheet, col, false)[key]
	if !ok {
		return nil
	}
	ci.ensureRecent(entry, sheet)
	return slices.Clone(entry.rows)
}
