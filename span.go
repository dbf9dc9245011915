package formulagraph

// Span is a half-open run [Start, End) of row or column indices on one
// sheet. Whether it counts rows or columns is decided by its user.
type Span struct {
	Sheet int
	Start int
	End   int
}

// NewSpan creates a span of count indices starting at start.
func NewSpan(sheet, start, count int) Span {
	return Span{Sheet: sheet, Start: start, End: start + count}
}

// Count returns the number of indices in the span.
func (s Span) Count() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// Last returns the last index covered by the span.
func (s Span) Last() int { return s.End - 1 }

// IsEmpty reports whether the span covers nothing.
func (s Span) IsEmpty() bool { return s.Count() == 0 }

// Contains reports whether index i falls inside the span.
func (s Span) Contains(i int) bool { return i >= s.Start && i < s.End }

// Intersect returns the overlap of two spans on the same sheet.
func (s Span) Intersect(o Span) (Span, bool) {
	if s.Sheet != o.Sheet {
		return Span{}, false
	}
	start, end := max(s.Start, o.Start), min(s.End, o.End)
	if start >= end {
		return Span{}, false
	}
	return Span{Sheet: s.Sheet, Start: start, End: end}, true
}

// FirstIndexFrom returns the span trimmed to start no earlier than i.
func (s Span) FirstIndexFrom(i int) Span {
	if i > s.Start {
		s.Start = i
	}
	return s
}
