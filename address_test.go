package formulagraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnNames(t *testing.T) {
	for col, name := range map[int]string{0: "A", 25: "Z", 26: "AA", 27: "AB", 701: "ZZ", 702: "AAA", 16383: "XFD"} {
		assert.Equal(t, name, ColumnNumberToName(col))
		got, err := ColumnNameToNumber(name)
		require.NoError(t, err, name)
		assert.Equal(t, col, got, name)
	}
	assert.Equal(t, "", ColumnNumberToName(-1))
	got, err := ColumnNameToNumber("ab")
	require.NoError(t, err)
	assert.Equal(t, 27, got)
	for _, name := range []string{"", "AAAA", "A1", "-"} {
		_, err := ColumnNameToNumber(name)
		assert.ErrorIs(t, err, ErrInvalidAddress, name)
	}
}

func TestCellNameToCoordinates(t *testing.T) {
	for _, c := range []struct {
		cell     string
		col, row int
	}{
		{"A1", 0, 0},
		{"b12", 1, 11},
		{"XFD1048576", 16383, 1048575},
	} {
		col, row, err := CellNameToCoordinates(c.cell)
		require.NoError(t, err, c.cell)
		assert.Equal(t, c.col, col, c.cell)
		assert.Equal(t, c.row, row, c.cell)
		name, err := CoordinatesToCellName(col, row)
		require.NoError(t, err)
		assert.Equal(t, Addr(0, col, row).String(), name)
	}
	for _, cell := range []string{"", "A", "1", "A0", "1A", "$A1", "AAAA1", "A-1"} {
		_, _, err := CellNameToCoordinates(cell)
		assert.ErrorIs(t, err, ErrInvalidAddress, cell)
	}
	_, err := CoordinatesToCellName(-1, 0)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestSplitCellReference(t *testing.T) {
	for _, c := range []struct {
		text string
		want cellToken
		ok   bool
	}{
		{"$B$3", cellToken{col: 1, row: 2, colAbs: true, rowAbs: true, hasCol: true, hasRow: true}, true},
		{"B$3", cellToken{col: 1, row: 2, rowAbs: true, hasCol: true, hasRow: true}, true},
		{"$C", cellToken{col: 2, colAbs: true, hasCol: true}, true},
		{"$7", cellToken{row: 6, rowAbs: true, hasRow: true}, true},
		{"12", cellToken{row: 11, hasRow: true}, true},
		{"B$", cellToken{}, false},
		{"", cellToken{}, false},
	} {
		got, ok := splitCellReference(c.text)
		assert.Equal(t, c.ok, ok, c.text)
		if ok {
			assert.Equal(t, c.want, got, c.text)
		}
	}
}

func TestParseAddress(t *testing.T) {
	sheets := NewSheetMapping()
	_, err := sheets.AddSheet("My Sheet")
	require.NoError(t, err)
	_, err = sheets.AddSheet("Data")
	require.NoError(t, err)

	for text, want := range map[string]SimpleCellAddress{
		"'My Sheet'!B2": Addr(0, 1, 1),
		"data!$C$3":     Addr(1, 2, 2),
		"Z9":            Addr(1, 25, 8),
	} {
		got, err := ParseAddress(text, sheets, 1)
		require.NoError(t, err, text)
		assert.Equal(t, want, got, text)
	}

	_, err = ParseAddress("Nope!A1", sheets, 0)
	var noSheet ErrNoSuchSheet
	assert.ErrorAs(t, err, &noSheet)
	_, err = ParseAddress("Data!A", sheets, 0)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAbsoluteCellRange(t *testing.T) {
	r := NewRange(Addr(0, 2, 3), Addr(0, 0, 0))
	assert.Equal(t, "A1:C4", r.String())
	assert.Equal(t, 3, r.Width())
	assert.Equal(t, 4, r.Height())
	assert.True(t, r.IsFinite())
	assert.True(t, r.Contains(Addr(0, 2, 3)))
	assert.False(t, r.Contains(Addr(1, 0, 0)))
	assert.Equal(t, r, RangeFrom(Addr(0, 0, 0), 3, 4))

	other := NewRange(Addr(0, 1, 1), Addr(0, 3, 5))
	inter, ok := r.Intersection(other)
	require.True(t, ok)
	assert.Equal(t, "B2:C4", inter.String())
	_, ok = r.Intersection(NewRange(Addr(0, 4, 0), Addr(0, 5, 1)))
	assert.False(t, ok)
	assert.True(t, r.ContainsRange(NewRange(Addr(0, 1, 1), Addr(0, 2, 2))))
	assert.False(t, r.ContainsRange(other))

	cols := AbsoluteCellRange{Start: Addr(0, 1, 0), End: Addr(0, 2, Unbounded)}
	assert.Equal(t, "B:C", cols.String())
	assert.False(t, cols.IsFinite())
	clamped := cols.Clamp(10, 4)
	assert.Equal(t, "B1:C4", clamped.String())
	assert.True(t, cols.Clamp(10, 0).IsEmpty())

	rows := AbsoluteCellRange{Start: Addr(0, 0, 1), End: Addr(0, Unbounded, 3)}
	assert.Equal(t, "2:4", rows.String())

	var visited []SimpleCellAddress
	NewRange(Addr(0, 0, 0), Addr(0, 1, 1)).Addresses(func(a SimpleCellAddress) bool {
		visited = append(visited, a)
		return len(visited) < 3
	})
	assert.Equal(t, []SimpleCellAddress{Addr(0, 0, 0), Addr(0, 1, 0), Addr(0, 0, 1)}, visited)
}

func TestCellAddressResolution(t *testing.T) {
	base := Addr(0, 1, 1)
	ref := NewCellAddress(Addr(0, 3, 5), base, false, true, false)
	assert.Equal(t, CellAddress{Sheet: -1, Col: 2, Row: 5, RowAbsolute: true}, ref)
	assert.Equal(t, Addr(2, 4, 5), ref.ToSimple(Addr(2, 2, 2)))

	withSheet := NewCellAddress(Addr(1, 0, 0), base, false, false, true)
	assert.Equal(t, 1, withSheet.SheetOf(base))
	assert.Equal(t, Addr(1, 0, 0), withSheet.ToSimple(base))

	assert.Equal(t, 3, ref.ShiftedByRows(-2).Row)
	assert.Equal(t, 7, ref.ShiftedByColumns(5).Col)
}
