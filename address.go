// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package formulagraph

import (
	"fmt"
	"strconv"
	"strings"
)

// Unbounded marks the open end of a whole-column or whole-row range.
const Unbounded = 1<<31 - 1

// maxColumnNameLength bounds the letters of a column name (XFD).
const maxColumnNameLength = 3

// SimpleCellAddress is an absolute, zero-based cell position.
type SimpleCellAddress struct {
	Sheet int
	Col   int
	Row   int
}

// Addr builds a SimpleCellAddress.
func Addr(sheet, col, row int) SimpleCellAddress {
	return SimpleCellAddress{Sheet: sheet, Col: col, Row: row}
}

// IsValid reports whether both coordinates are non-negative.
func (a SimpleCellAddress) IsValid() bool {
	return a.Sheet >= 0 && a.Col >= 0 && a.Row >= 0
}

// String renders the address in A1 notation without a sheet.
func (a SimpleCellAddress) String() string {
	name, err := CoordinatesToCellName(a.Col, a.Row)
	if err != nil {
		return fmt.Sprintf("R%dC%d", a.Row, a.Col)
	}
	return name
}

// AbsoluteCellRange is an inclusive rectangle on one sheet. End.Row or
// End.Col may be Unbounded for whole-column and whole-row ranges.
type AbsoluteCellRange struct {
	Start SimpleCellAddress
	End   SimpleCellAddress
}

// NewRange builds a range spanning two corners of one sheet, normalizing
// their order.
func NewRange(start, end SimpleCellAddress) AbsoluteCellRange {
	if start.Col > end.Col {
		start.Col, end.Col = end.Col, start.Col
	}
	if start.Row > end.Row {
		start.Row, end.Row = end.Row, start.Row
	}
	end.Sheet = start.Sheet
	return AbsoluteCellRange{Start: start, End: end}
}

// RangeFrom builds the range of width×height cells whose top-left corner is
// start.
func RangeFrom(start SimpleCellAddress, width, height int) AbsoluteCellRange {
	return AbsoluteCellRange{Start: start, End: Addr(start.Sheet, start.Col+width-1, start.Row+height-1)}
}

// Sheet returns the sheet of the range.
func (r AbsoluteCellRange) Sheet() int { return r.Start.Sheet }

// Width returns the number of columns covered.
func (r AbsoluteCellRange) Width() int { return r.End.Col - r.Start.Col + 1 }

// Height returns the number of rows covered.
func (r AbsoluteCellRange) Height() int { return r.End.Row - r.Start.Row + 1 }

// IsFinite reports whether the range has a fixed bottom-right corner.
func (r AbsoluteCellRange) IsFinite() bool {
	return r.End.Row != Unbounded && r.End.Col != Unbounded
}

// Contains reports whether addr is inside the range.
func (r AbsoluteCellRange) Contains(addr SimpleCellAddress) bool {
	return addr.Sheet == r.Start.Sheet &&
		addr.Col >= r.Start.Col && addr.Col <= r.End.Col &&
		addr.Row >= r.Start.Row && addr.Row <= r.End.Row
}

// ContainsRange reports whether o lies completely inside r.
func (r AbsoluteCellRange) ContainsRange(o AbsoluteCellRange) bool {
	return r.Contains(o.Start) && r.Contains(o.End)
}

// Intersects reports whether the two ranges share a cell.
func (r AbsoluteCellRange) Intersects(o AbsoluteCellRange) bool {
	return r.Start.Sheet == o.Start.Sheet &&
		r.Start.Col <= o.End.Col && o.Start.Col <= r.End.Col &&
		r.Start.Row <= o.End.Row && o.Start.Row <= r.End.Row
}

// Intersection returns the overlap of two ranges.
func (r AbsoluteCellRange) Intersection(o AbsoluteCellRange) (AbsoluteCellRange, bool) {
	if !r.Intersects(o) {
		return AbsoluteCellRange{}, false
	}
	return AbsoluteCellRange{
		Start: Addr(r.Start.Sheet, max(r.Start.Col, o.Start.Col), max(r.Start.Row, o.Start.Row)),
		End:   Addr(r.Start.Sheet, min(r.End.Col, o.End.Col), min(r.End.Row, o.End.Row)),
	}, true
}

// Clamp limits an unbounded range to the given sheet extent. The result may
// be empty (End before Start) when the sheet has no data there.
func (r AbsoluteCellRange) Clamp(width, height int) AbsoluteCellRange {
	if r.End.Row == Unbounded {
		r.End.Row = height - 1
	}
	if r.End.Col == Unbounded {
		r.End.Col = width - 1
	}
	return r
}

// IsEmpty reports whether a clamped range covers no cell.
func (r AbsoluteCellRange) IsEmpty() bool {
	return r.End.Row < r.Start.Row || r.End.Col < r.Start.Col
}

// withoutLastRow returns the range minus its bottom row.
func (r AbsoluteCellRange) withoutLastRow() AbsoluteCellRange {
	r.End.Row--
	return r
}

// lastRow returns the bottom row of the range as a range.
func (r AbsoluteCellRange) lastRow() AbsoluteCellRange {
	r.Start.Row = r.End.Row
	return r
}

// Addresses calls fn for every address in row-major order; iteration stops
// when fn returns false. Unbounded ranges must be clamped first.
func (r AbsoluteCellRange) Addresses(fn func(SimpleCellAddress) bool) {
	for row := r.Start.Row; row <= r.End.Row; row++ {
		for col := r.Start.Col; col <= r.End.Col; col++ {
			if !fn(Addr(r.Start.Sheet, col, row)) {
				return
			}
		}
	}
}

// String renders the range in A1:B2 notation.
func (r AbsoluteCellRange) String() string {
	switch {
	case r.End.Row == Unbounded:
		return ColumnNumberToName(r.Start.Col) + ":" + ColumnNumberToName(r.End.Col)
	case r.End.Col == Unbounded:
		return strconv.Itoa(r.Start.Row+1) + ":" + strconv.Itoa(r.End.Row+1)
	}
	return r.Start.String() + ":" + r.End.String()
}

// CellAddress is a reference as written in a formula. Relative coordinates
// are stored as offsets from the formula's own cell; absolute ones as plain
// indices. Sheet is -1 when the reference carries no sheet prefix.
type CellAddress struct {
	Sheet       int
	Col         int
	Row         int
	ColAbsolute bool
	RowAbsolute bool
}

// NewCellAddress builds a reference to target as seen from base.
func NewCellAddress(target, base SimpleCellAddress, colAbs, rowAbs, withSheet bool) CellAddress {
	c := CellAddress{Sheet: -1, Col: target.Col, Row: target.Row, ColAbsolute: colAbs, RowAbsolute: rowAbs}
	if withSheet {
		c.Sheet = target.Sheet
	}
	if !colAbs {
		c.Col -= base.Col
	}
	if !rowAbs {
		c.Row -= base.Row
	}
	return c
}

// SheetOf returns the sheet the reference points to from base.
func (c CellAddress) SheetOf(base SimpleCellAddress) int {
	if c.Sheet < 0 {
		return base.Sheet
	}
	return c.Sheet
}

// ToSimple resolves the reference against the formula cell base.
func (c CellAddress) ToSimple(base SimpleCellAddress) SimpleCellAddress {
	a := SimpleCellAddress{Sheet: c.SheetOf(base), Col: c.Col, Row: c.Row}
	if !c.ColAbsolute {
		a.Col += base.Col
	}
	if !c.RowAbsolute {
		a.Row += base.Row
	}
	return a
}

// ShiftedByRows moves the stored row coordinate.
func (c CellAddress) ShiftedByRows(n int) CellAddress {
	c.Row += n
	return c
}

// ShiftedByColumns moves the stored column coordinate.
func (c CellAddress) ShiftedByColumns(n int) CellAddress {
	c.Col += n
	return c
}

// shiftRelativeDimensions moves only the relative coordinates.
func (c CellAddress) shiftRelativeDimensions(cols, rows int) CellAddress {
	if !c.ColAbsolute {
		c.Col += cols
	}
	if !c.RowAbsolute {
		c.Row += rows
	}
	return c
}

// shiftAbsoluteDimensions moves only the absolute coordinates.
func (c CellAddress) shiftAbsoluteDimensions(cols, rows int) CellAddress {
	if c.ColAbsolute {
		c.Col += cols
	}
	if c.RowAbsolute {
		c.Row += rows
	}
	return c
}

// moved retargets the reference, seen from base, to a cell moved by
// (cols, rows) onto sheet.
func (c CellAddress) moved(base SimpleCellAddress, sheet, cols, rows int) CellAddress {
	if c.Sheet >= 0 || sheet != base.Sheet {
		c.Sheet = sheet
	}
	c.Col += cols
	c.Row += rows
	return c
}

// ColumnNumberToName converts a zero-based column index to its letters, e.g.
// 0 to "A" and 27 to "AB".
func ColumnNumberToName(col int) string {
	if col < 0 {
		return ""
	}
	var b [8]byte
	i := len(b)
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		i--
		b[i] = byte('A' + (n-1)%26)
	}
	return string(b[i:])
}

// ColumnNameToNumber converts column letters to a zero-based index.
func ColumnNameToNumber(name string) (int, error) {
	if name == "" || len(name) > maxColumnNameLength {
		return -1, fmt.Errorf("%w: column %q", ErrInvalidAddress, name)
	}
	col := 0
	for _, r := range strings.ToUpper(name) {
		if r < 'A' || r > 'Z' {
			return -1, fmt.Errorf("%w: column %q", ErrInvalidAddress, name)
		}
		col = col*26 + int(r-'A') + 1
	}
	return col - 1, nil
}

// CoordinatesToCellName converts zero-based coordinates to A1 notation.
func CoordinatesToCellName(col, row int) (string, error) {
	if col < 0 || row < 0 {
		return "", ErrInvalidAddress
	}
	return ColumnNumberToName(col) + strconv.Itoa(row+1), nil
}

// CellNameToCoordinates converts A1 notation (without $) to zero-based
// coordinates.
func CellNameToCoordinates(cell string) (int, int, error) {
	ref, ok := splitCellReference(cell)
	if !ok || !ref.hasCol || !ref.hasRow || ref.colAbs || ref.rowAbs {
		return -1, -1, fmt.Errorf("%w: %q", ErrInvalidAddress, cell)
	}
	return ref.col, ref.row, nil
}

// cellToken is a parsed A1 token such as $B$3, B or 12.
type cellToken struct {
	col, row       int
	colAbs, rowAbs bool
	hasCol, hasRow bool
}

// splitCellReference parses one side of an A1 reference. It accepts full
// cells (B3), bare columns (B) and bare rows (3), each optionally anchored.
func splitCellReference(s string) (cellToken, bool) {
	var tok cellToken
	i := 0
	if i < len(s) && s[i] == '$' {
		tok.colAbs = true
		i++
	}
	start := i
	for i < len(s) && ((s[i] >= 'A' && s[i] <= 'Z') || (s[i] >= 'a' && s[i] <= 'z')) {
		i++
	}
	if i > start {
		col, err := ColumnNameToNumber(s[start:i])
		if err != nil {
			return tok, false
		}
		tok.col, tok.hasCol = col, true
	} else if tok.colAbs {
		// "$3" anchors the row, not a column.
		tok.colAbs, tok.rowAbs = false, true
	}
	if i < len(s) && s[i] == '$' {
		if !tok.hasCol {
			return tok, false
		}
		tok.rowAbs = true
		i++
	}
	if i < len(s) {
		row, err := strconv.Atoi(s[i:])
		if err != nil || row < 1 {
			return tok, false
		}
		tok.row, tok.hasRow = row-1, true
	}
	if !tok.hasRow && tok.rowAbs && tok.hasCol {
		return tok, false
	}
	return tok, tok.hasCol || tok.hasRow
}

// ParseAddress parses "Sheet!A1" or "A1" using sheets for the name lookup and
// defaultSheet when no sheet is given.
func ParseAddress(text string, sheets *SheetMapping, defaultSheet int) (SimpleCellAddress, error) {
	sheet := defaultSheet
	if i := strings.LastIndexByte(text, '!'); i >= 0 {
		id, err := sheets.FetchID(strings.Trim(text[:i], "'"))
		if err != nil {
			return SimpleCellAddress{}, err
		}
		sheet, text = id, text[i+1:]
	}
	col, row, err := CellNameToCoordinates(strings.ReplaceAll(text, "$", ""))
	if err != nil {
		return SimpleCellAddress{}, err
	}
	return Addr(sheet, col, row), nil
}
