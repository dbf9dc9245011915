package formulagraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformIndex(t *testing.T) {
	insert := newAddRowsTransformer(0, 3, 2)
	remove := newRemoveRowsTransformer(NewSpan(0, 3, 2))
	for _, c := range []struct {
		t      *spanTransformer
		in     int
		out    int
		remain bool
	}{
		{insert, 2, 2, true},
		{insert, 3, 5, true},
		{insert, 9, 11, true},
		{remove, 2, 2, true},
		{remove, 3, 0, false},
		{remove, 4, 0, false},
		{remove, 5, 3, true},
	} {
		out, ok := c.t.transformIndex(c.in)
		assert.Equal(t, c.remain, ok, "%d", c.in)
		if ok {
			assert.Equal(t, c.out, out, "%d", c.in)
		}
	}
}

func TestSpanTransformerRewritesFormulas(t *testing.T) {
	p, sheetName := newTestParser(t)
	for _, c := range []struct {
		name    string
		formula string
		base    SimpleCellAddress
		tr      Transformer
		want    string
		at      SimpleCellAddress
	}{
		{
			name: "insert rows", formula: "=A1+A5+SUM(A2:A6)", base: Addr(0, 1, 0),
			tr: newAddRowsTransformer(0, 2, 2), want: "=A1+A7+SUM(A2:A8)", at: Addr(0, 1, 0),
		},
		{
			name: "formula below insertion moves", formula: "=A1+$A$5", base: Addr(0, 1, 9),
			tr: newAddRowsTransformer(0, 2, 1), want: "=A1+$A$6", at: Addr(0, 1, 10),
		},
		{
			name: "other sheet untouched", formula: "=A5", base: Addr(1, 0, 0),
			tr: newAddRowsTransformer(0, 0, 3), want: "=A5", at: Addr(1, 0, 0),
		},
		{
			name: "reference into other sheet", formula: "=Sheet1!A5", base: Addr(1, 0, 0),
			tr: newAddRowsTransformer(0, 0, 3), want: "=Sheet1!A8", at: Addr(1, 0, 0),
		},
		{
			name: "removed reference", formula: "=A3+1", base: Addr(0, 1, 0),
			tr: newRemoveRowsTransformer(NewSpan(0, 2, 1)), want: "=#REF!+1", at: Addr(0, 1, 0),
		},
		{
			name: "insert columns", formula: "=A1*C1", base: Addr(0, 0, 3),
			tr: newAddColumnsTransformer(0, 1, 1), want: "=A1*D1", at: Addr(0, 0, 3),
		},
	} {
		t.Run(c.name, func(t *testing.T) {
			ast, err := p.Parse(c.formula, c.base)
			require.NoError(t, err)
			at := c.tr.Transform(ast, c.base)
			assert.Equal(t, c.at, at)
			assert.Equal(t, c.want, Unparse(ast, at, sheetName))
		})
	}
}

func TestLazyTransformLog(t *testing.T) {
	lazy := NewLazilyTransformingAstService(&Statistics{})
	p, sheetName := newTestParser(t)
	ast, err := p.Parse("=A2", Addr(0, 1, 0))
	require.NoError(t, err)

	lazy.add(newAddRowsTransformer(0, 0, 1))
	lazy.add(newAddRowsTransformer(1, 0, 1))
	lazy.add(newAddRowsTransformer(0, 5, 1))
	require.Equal(t, 3, lazy.Version())
	assert.Len(t, lazy.rowEdits(0, 0), 2)
	assert.Len(t, lazy.rowEdits(0, 1), 1)

	at, version := lazy.Apply(ast, Addr(0, 1, 0), 0)
	assert.Equal(t, 3, version)
	assert.Equal(t, Addr(0, 1, 1), at)
	assert.Equal(t, "=A3", Unparse(ast, at, sheetName))

	// nothing left to replay
	again, v := lazy.Apply(ast, at, version)
	assert.Equal(t, at, again)
	assert.Equal(t, version, v)
}
