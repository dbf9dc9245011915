package formulagraph

// ColumnSearchStrategy serves VLOOKUP and MATCH. Strategies which keep their
// own index are told about every value change through the hooks.
type ColumnSearchStrategy interface {
	// Find returns the row offset of key in the single column rng, or -1.
	// With sorted set the largest value not greater than key matches.
	Find(key Value, rng *RangeValue, sorted bool) int
	// AdvancedFind returns the offset of key in a single row or column for
	// MATCH match types -1, 0 and 1, or -1.
	AdvancedFind(key Value, rng *RangeValue, matchType int) int

	Add(value Value, addr SimpleCellAddress)
	Remove(value Value, addr SimpleCellAddress)
	Change(old, new Value, addr SimpleCellAddress)
	AddColumns(sheet, col, count int)
	RemoveColumns(span Span)
	RemoveSheet(sheet int)
	MoveValues(moves []ValueMove)
}

// ValueMove is one cell value relocated by a move.
type ValueMove struct {
	Value    Value
	From, To SimpleCellAddress
}

// applyChanges reports value transitions to a strategy.
func applyChanges(s ColumnSearchStrategy, changes []cellChange) {
	for _, c := range changes {
		s.Change(c.old, c.new, c.addr)
	}
}
