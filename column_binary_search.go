package formulagraph

// ColumnBinarySearch searches the values of a range directly. It keeps no
// state, so its hooks are no-ops.
type ColumnBinarySearch struct {
	arith     *arithmetic
	threshold int
}

// NewColumnBinarySearch creates the stateless strategy. Ranges shorter than
// threshold are scanned linearly.
func NewColumnBinarySearch(arith *arithmetic, threshold int) *ColumnBinarySearch {
	return &ColumnBinarySearch{arith: arith, threshold: threshold}
}

// vector reads the values of a single row or column.
func vector(rng *RangeValue) []Value {
	var out []Value
	if rng.Width() == 1 || rng.Height() != 1 {
		out = make([]Value, rng.Height())
		for i := range out {
			out[i] = rng.At(0, i)
		}
		return out
	}
	out = make([]Value, rng.Width())
	for i := range out {
		out[i] = rng.At(i, 0)
	}
	return out
}

// equal reports whether two values are of one type and compare equal.
func (s *ColumnBinarySearch) equal(key, v Value) bool {
	return key.Type == v.Type && s.arith.compare(key, v) == 0
}

// indexOf returns the first exact match.
func (s *ColumnBinarySearch) indexOf(key Value, values []Value) int {
	for i, v := range values {
		if s.equal(key, v) {
			return i
		}
	}
	return -1
}

// lastNotGreater scans for the last value of the key's type not greater
// than key, stopping at the first greater one.
func (s *ColumnBinarySearch) lastNotGreater(key Value, values []Value) int {
	found := -1
	for i, v := range values {
		if v.Type != key.Type {
			continue
		}
		if s.arith.compare(v, key) > 0 {
			break
		}
		found = i
	}
	return found
}

// lowerBound binary searches ascending values for the last one not greater
// than key. Values are ordered by type first.
func (s *ColumnBinarySearch) lowerBound(key Value, values []Value) int {
	lo, hi := 0, len(values)-1
	found := -1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		v := values[mid]
		if v.IsEmpty() || s.arith.compare(v, key) <= 0 {
			found, lo = mid, mid+1
		} else {
			hi = mid - 1
		}
	}
	// blanks inside the column can stop the search past a greater value
	for found >= 0 && (values[found].Type != key.Type || s.arith.compare(values[found], key) > 0) {
		found--
	}
	return found
}

// Find implements ColumnSearchStrategy.
func (s *ColumnBinarySearch) Find(key Value, rng *RangeValue, sorted bool) int {
	values := vector(rng)
	switch {
	case !sorted:
		return s.indexOf(key, values)
	case len(values) < s.threshold:
		return s.lastNotGreater(key, values)
	}
	return s.lowerBound(key, values)
}

// AdvancedFind implements ColumnSearchStrategy.
func (s *ColumnBinarySearch) AdvancedFind(key Value, rng *RangeValue, matchType int) int {
	values := vector(rng)
	switch {
	case matchType == 0:
		if key.Type == ValueString && (s.arith.wildcards || s.arith.regex) {
			re := s.arith.buildMatcher(key.String)
			for i, v := range values {
				if v.Type == ValueString && re.MatchString(v.String) {
					return i
				}
			}
			return -1
		}
		return s.indexOf(key, values)
	case matchType > 0:
		if len(values) < s.threshold {
			return s.lastNotGreater(key, values)
		}
		return s.lowerBound(key, values)
	}
	// descending: the last value not smaller than key
	found := -1
	for i, v := range values {
		if v.Type != key.Type {
			continue
		}
		if s.arith.compare(v, key) < 0 {
			break
		}
		found = i
	}
	return found
}

func (s *ColumnBinarySearch) Add(Value, SimpleCellAddress)           {}
func (s *ColumnBinarySearch) Remove(Value, SimpleCellAddress)        {}
func (s *ColumnBinarySearch) Change(_, _ Value, _ SimpleCellAddress) {}
func (s *ColumnBinarySearch) AddColumns(int, int, int)               {}
func (s *ColumnBinarySearch) RemoveColumns(Span)                     {}
func (s *ColumnBinarySearch) RemoveSheet(int)                        {}
func (s *ColumnBinarySearch) MoveValues([]ValueMove)                 {}
