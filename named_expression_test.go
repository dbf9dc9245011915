package formulagraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedExpressions(t *testing.T) {
	e := buildEngine(t, [][]any{
		{10, "=Rate*A1"},
		{20, "=SUM(Prices)"},
		{30, "=Rate+Later"},
	})
	for _, cell := range []string{"B1", "B2", "B3"} {
		assertValue(t, CellError(ErrorName), cellValue(t, e, cell), cell)
	}

	_, err := e.AddNamedExpression("Rate", "=Sheet1!$A$1")
	require.NoError(t, err)
	_, err = e.AddNamedExpression("prices", "=Sheet1!$A$1:$A$3")
	require.NoError(t, err)
	assertValue(t, NumberValue(100), cellValue(t, e, "B1"))
	assertValue(t, NumberValue(60), cellValue(t, e, "B2"))
	assertValue(t, CellError(ErrorName), cellValue(t, e, "B3"))

	changes, err := e.ChangeNamedExpression("RATE", 2)
	require.NoError(t, err)
	assert.Equal(t, []ExportedChange{{Address: Addr(0, 1, 0), Value: NumberValue(20)}}, changes)
	f, err := e.NamedExpressionFormula("rate")
	require.NoError(t, err)
	assert.Equal(t, "=2", f)

	_, err = e.AddNamedExpression("Later", "=Rate*3")
	require.NoError(t, err)
	assertValue(t, NumberValue(8), cellValue(t, e, "B3"))
	v, err := e.NamedExpressionValue("later")
	require.NoError(t, err)
	assertValue(t, NumberValue(6), v)

	changes, err = e.SetCellContents(mustAddress(t, e, "A1"), 5)
	require.NoError(t, err)
	assert.Equal(t, []ExportedChange{
		{Address: Addr(0, 0, 0), Value: NumberValue(5)},
		{Address: Addr(0, 1, 0), Value: NumberValue(10)},
		{Address: Addr(0, 1, 1), Value: NumberValue(55)},
	}, changes)

	_, err = e.RemoveNamedExpression("rate")
	require.NoError(t, err)
	assertValue(t, CellError(ErrorName), cellValue(t, e, "B1"))
	assertValue(t, CellError(ErrorName), cellValue(t, e, "B3"))
	assert.Equal(t, []string{"LATER", "PRICES"}, e.NamedExpressions())

	// readers of the removed name pick up the new definition
	_, err = e.AddNamedExpression("Rate", 4)
	require.NoError(t, err)
	assertValue(t, NumberValue(20), cellValue(t, e, "B1"))
	assertValue(t, NumberValue(16), cellValue(t, e, "B3"))
	assert.Equal(t, []string{"LATER", "PRICES", "RATE"}, e.NamedExpressions())
}

func TestNamedExpressionsFollowEdits(t *testing.T) {
	e := buildEngine(t, [][]any{{1}, {2}, {3}, {nil, "=SUM(Block)*Factor"}})
	_, err := e.AddNamedExpression("Block", "=Sheet1!$A$1:$A$3")
	require.NoError(t, err)
	_, err = e.AddNamedExpression("Factor", "=Sheet1!$A$2")
	require.NoError(t, err)
	assertValue(t, NumberValue(12), cellValue(t, e, "B4"))

	_, err = e.AddRows(0, 1, 1)
	require.NoError(t, err)
	assertValue(t, NumberValue(12), cellValue(t, e, "B5"))
	for name, want := range map[string]string{"block": "=Sheet1!$A$1:$A$4", "factor": "=Sheet1!$A$3"} {
		f, err := e.NamedExpressionFormula(name)
		require.NoError(t, err)
		assert.Equal(t, want, f, name)
	}
	dependents, err := e.Dependents(mustAddress(t, e, "A3"))
	require.NoError(t, err)
	assert.Equal(t, []SimpleCellAddress{mustAddress(t, e, "B5")}, dependents)

	_, err = e.SetCellContents(mustAddress(t, e, "A2"), 10)
	require.NoError(t, err)
	assertValue(t, NumberValue(32), cellValue(t, e, "B5"))

	_, err = e.RemoveRows(0, 2, 1)
	require.NoError(t, err)
	v, err := e.NamedExpressionValue("Factor")
	require.NoError(t, err)
	assertValue(t, CellError(ErrorRef), v)
	assertValue(t, CellError(ErrorRef), cellValue(t, e, "B4"))
}

func TestNamedExpressionErrors(t *testing.T) {
	e := buildEngine(t, [][]any{{1}})
	var events []Event
	for _, typ := range []EventType{NamedExpressionAdded, NamedExpressionRemoved} {
		e.On(typ, func(ev Event) { events = append(events, ev) })
	}

	for _, name := range []string{"A1", "xfd10", "1abc", "TRUE", "my name", ""} {
		_, err := e.AddNamedExpression(name, 1)
		assert.ErrorIs(t, err, ErrNamedExpressionName, name)
	}
	for _, expr := range []string{"=A1", "=Sheet1!A1", "=$A$1", "=SUM(Sheet1!$A$1:A2)", "=Sheet1!A:A"} {
		_, err := e.AddNamedExpression("Rate", expr)
		assert.ErrorIs(t, err, ErrRelativeNamedReference, expr)
	}
	_, err := e.AddNamedExpression("Rate", "=SUM(")
	assert.ErrorIs(t, err, ErrFormulaSyntax)
	_, err = e.AddNamedExpression("Rate", nil)
	assert.ErrorIs(t, err, ErrUnsupportedContent)
	assert.Empty(t, e.NamedExpressions())

	_, err = e.AddNamedExpression("_tax.rate", "=Sheet1!$A$1*2")
	require.NoError(t, err)
	var exists ErrNamedExpressionExists
	_, err = e.AddNamedExpression("_TAX.RATE", 3)
	assert.ErrorAs(t, err, &exists)

	var missing ErrNoSuchNamedExpression
	_, err = e.ChangeNamedExpression("nothing", 1)
	assert.ErrorAs(t, err, &missing)
	_, err = e.RemoveNamedExpression("nothing")
	assert.ErrorAs(t, err, &missing)
	_, err = e.NamedExpressionFormula("nothing")
	assert.ErrorAs(t, err, &missing)
	_, err = e.NamedExpressionValue("nothing")
	assert.ErrorAs(t, err, &missing)

	_, err = e.RemoveNamedExpression("_tax.rate")
	require.NoError(t, err)
	assert.Equal(t, []Event{
		{Type: NamedExpressionAdded, Name: "_TAX.RATE"},
		{Type: NamedExpressionRemoved, Name: "_TAX.RATE"},
	}, events)
}
