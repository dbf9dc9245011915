package formulagraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contentGrid(t *testing.T, rows [][]any) [][]cellContent {
	t.Helper()
	grid := make([][]cellContent, len(rows))
	for r, row := range rows {
		grid[r] = make([]cellContent, len(row))
		for c, raw := range row {
			var err error
			grid[r][c], err = parseCellContent(raw)
			require.NoError(t, err)
		}
	}
	return grid
}

func TestNumericRectangles(t *testing.T) {
	grid := contentGrid(t, [][]any{
		{1, 2, 3, "x"},
		{4, 5, 6, nil},
		{7, "=A1", 9},
		{10, 11},
	})
	for _, c := range []struct {
		threshold int
		want      []AbsoluteCellRange
	}{
		{4, []AbsoluteCellRange{RangeFrom(Addr(0, 0, 0), 3, 2)}},
		{2, []AbsoluteCellRange{RangeFrom(Addr(0, 0, 0), 3, 2), RangeFrom(Addr(0, 0, 2), 1, 2)}},
		{7, nil},
	} {
		assert.Equal(t, c.want, numericRectangles(0, grid, c.threshold), "threshold %d", c.threshold)
	}
}

func matrixRows() [][]any {
	return [][]any{
		{1, 2, 3, "=SUM(A1:C3)", "=MATCH(8,B1:B3,0)"},
		{4, 5, 6, "=B2*2"},
		{7, 8, 9, "=A3+C1"},
	}
}

func kindAt(t *testing.T, e *Engine, cell string) vertexKind {
	t.Helper()
	return e.graph.g.get(e.addresses.cell(mustAddress(t, e, cell))).kind
}

func TestMatrixDetection(t *testing.T) {
	e := buildEngine(t, matrixRows(), Options{MatrixDetection: true, MatrixDetectionThreshold: 9, UseColumnIndex: true})
	require.Len(t, e.graph.matrices, 1)
	assert.Equal(t, kindMatrix, kindAt(t, e, "A1"))
	assert.Equal(t, e.addresses.cell(mustAddress(t, e, "A1")), e.addresses.cell(mustAddress(t, e, "C3")))
	for cell, want := range map[string]float64{"B2": 5, "D1": 45, "E1": 3, "D2": 10, "D3": 10} {
		assertValue(t, NumberValue(want), cellValue(t, e, cell), cell)
	}
	assert.Empty(t, cellFormula(t, e, "B2"))

	dependents, err := e.Dependents(mustAddress(t, e, "B2"))
	require.NoError(t, err)
	assert.Equal(t, []SimpleCellAddress{mustAddress(t, e, "D1"), mustAddress(t, e, "E1"), mustAddress(t, e, "D2")}, dependents)

	// editing one cell splits the block and recomputes its readers
	changes, err := e.SetCellContents(mustAddress(t, e, "B2"), 50)
	require.NoError(t, err)
	assert.Empty(t, e.graph.matrices)
	assert.Equal(t, kindValue, kindAt(t, e, "A1"))
	assert.Equal(t, []ExportedChange{
		{Address: Addr(0, 3, 0), Value: NumberValue(90)},
		{Address: Addr(0, 1, 1), Value: NumberValue(50)},
		{Address: Addr(0, 3, 1), Value: NumberValue(100)},
	}, changes)

	changes, err = e.SetCellContents(mustAddress(t, e, "C1"), 30)
	require.NoError(t, err)
	assert.Equal(t, []ExportedChange{
		{Address: Addr(0, 2, 0), Value: NumberValue(30)},
		{Address: Addr(0, 3, 0), Value: NumberValue(117)},
		{Address: Addr(0, 3, 2), Value: NumberValue(37)},
	}, changes)

	_, err = e.SetCellContents(mustAddress(t, e, "B3"), 50)
	require.NoError(t, err)
	assertValue(t, CellError(ErrorNA), cellValue(t, e, "E1"))
}

func TestMatrixStructuralEdits(t *testing.T) {
	e := buildEngine(t, matrixRows(), Options{MatrixDetection: true, MatrixDetectionThreshold: 9})
	require.Len(t, e.graph.matrices, 1)

	_, err := e.AddRows(0, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, e.graph.matrices)
	for cell, want := range map[string]float64{"A3": 4, "D1": 45, "D3": 10, "D4": 10} {
		assertValue(t, NumberValue(want), cellValue(t, e, cell), cell)
	}
	assert.Equal(t, "=SUM(A1:C4)", cellFormula(t, e, "D1"))

	_, err = e.SetCellContents(mustAddress(t, e, "A2"), 100)
	require.NoError(t, err)
	assertValue(t, NumberValue(145), cellValue(t, e, "D1"))
}

func TestMatrixSheetRemoval(t *testing.T) {
	e, err := BuildFromSheetsOrdered([]Sheet{
		{Name: "Sheet1", Rows: [][]any{{"=SUM(Data!A1:B2)", "=Data!B2"}}},
		{Name: "Data", Rows: [][]any{{1, 2}, {3, 4}}},
	}, Options{MatrixDetection: true, MatrixDetectionThreshold: 4})
	require.NoError(t, err)
	defer e.Close()
	require.Len(t, e.graph.matrices, 1)
	assertValue(t, NumberValue(10), cellValue(t, e, "A1"))
	assertValue(t, NumberValue(4), cellValue(t, e, "B1"))

	_, err = e.RemoveSheet(1)
	require.NoError(t, err)
	assert.Empty(t, e.graph.matrices)
	assertValue(t, CellError(ErrorRef), cellValue(t, e, "A1"))
	assertValue(t, CellError(ErrorRef), cellValue(t, e, "B1"))
}

func TestMatrixDetectionThreshold(t *testing.T) {
	for _, opts := range []Options{{MatrixDetection: true}, {MatrixDetectionThreshold: 4}} {
		e := buildEngine(t, matrixRows(), opts)
		assert.Empty(t, e.graph.matrices)
		assert.Equal(t, kindValue, kindAt(t, e, "A1"))
		assertValue(t, NumberValue(45), cellValue(t, e, "D1"))
	}
}

func TestArrayValues(t *testing.T) {
	e := buildEngine(t, [][]any{
		{1, 2, nil, "=TRANSPOSE(A1:B1)"},
		{3, 4},
	}, Options{MatrixDetection: true, MatrixDetectionThreshold: 4})

	block, err := e.ArrayValues(mustAddress(t, e, "B2"))
	require.NoError(t, err)
	require.NotNil(t, block)
	assert.Equal(t, 2, block.Width)
	assert.Equal(t, 2, block.Height)
	assertValue(t, NumberValue(4), block.At(1, 1))
	block.Data[1][1] = StringValue("changed")
	assertValue(t, NumberValue(4), cellValue(t, e, "B2"))

	spill, err := e.ArrayValues(mustAddress(t, e, "D2"))
	require.NoError(t, err)
	require.NotNil(t, spill)
	assert.Equal(t, 1, spill.Width)
	assertValue(t, NumberValue(2), spill.At(0, 1))
	spill.Data[0][0] = NumberValue(99)
	assertValue(t, NumberValue(1), cellValue(t, e, "D1"))

	none, err := e.ArrayValues(mustAddress(t, e, "C1"))
	require.NoError(t, err)
	assert.Nil(t, none)
	_, err = e.ArrayValues(Addr(5, 0, 0))
	assert.Error(t, err)
}
