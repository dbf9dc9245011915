package formulagraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T) (*Parser, func(int) string) {
	t.Helper()
	sheets := NewSheetMapping()
	for _, name := range []string{"Sheet1", "Data", "My Sheet"} {
		_, err := sheets.AddSheet(name)
		require.NoError(t, err)
	}
	return NewParser(sheets, 32), func(id int) string {
		name, _ := sheets.Name(id)
		return name
	}
}

func TestParseUnparseRoundTrip(t *testing.T) {
	p, sheetName := newTestParser(t)
	base := Addr(0, 2, 2)
	for _, formula := range []string{
		"=A1+B2*2",
		"=SUM($A$1:B3)",
		`=IF(A1>=1,"yes","no")`,
		"=-A1%",
		"={1,2;3,4}",
		"=Data!A1:B2",
		"='My Sheet'!C3",
		"=A:B",
		"=(1+2)*3",
		"=TRUE",
		"=#REF!+1",
		"=SUM(A1,,2)",
		"=FOO",
		`="a""b"&C1`,
		"=2^3^2",
	} {
		ast, err := p.Parse(formula, base)
		require.NoError(t, err, formula)
		assert.Equal(t, formula, Unparse(ast, base, sheetName), formula)
	}
}

func TestParseRelativeReferences(t *testing.T) {
	p, sheetName := newTestParser(t)
	ast, err := p.Parse("=A1+$A1+A$1+$A$1", Addr(0, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, "=B2+$A2+B$1+$A$1", Unparse(ast, Addr(0, 2, 2), sheetName))

	ref := ast.Args[0].Args[0].Args[0]
	assert.Equal(t, AstCellReference, ref.Type)
	assert.Equal(t, CellAddress{Sheet: -1, Col: -1, Row: -1}, ref.Ref)
}

func TestParsePrecedence(t *testing.T) {
	p, _ := newTestParser(t)
	ast, err := p.Parse("=1+2*3", Addr(0, 0, 0))
	require.NoError(t, err)
	require.Equal(t, AstBinary, ast.Type)
	assert.Equal(t, "+", ast.Op)
	assert.Equal(t, "*", ast.Args[1].Op)

	ast, err = p.Parse(`=1&2=3`, Addr(0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "=", ast.Op)
	assert.Equal(t, "&", ast.Args[0].Op)
}

func TestParseNodes(t *testing.T) {
	p, _ := newTestParser(t)
	base := Addr(0, 0, 0)

	ast, err := p.Parse("=Nope!A1", base)
	require.NoError(t, err)
	assert.Equal(t, AstError, ast.Type)
	assert.Equal(t, ErrorRef, ast.Error)

	ast, err = p.Parse("=sum(data!A1:a2)", base)
	require.NoError(t, err)
	assert.Equal(t, AstFunctionCall, ast.Type)
	assert.Equal(t, "SUM", ast.Name)
	assert.Equal(t, AstCellRange, ast.Args[0].Type)
	assert.Equal(t, 1, ast.Args[0].Ref.Sheet)

	ast, err = p.Parse("={1,2,3}", base)
	require.NoError(t, err)
	require.Equal(t, AstArray, ast.Type)
	assert.Len(t, ast.Rows, 1)
	assert.Len(t, ast.Rows[0], 3)

	for formula, want := range map[string]string{"=Rate*2": "RATE", "=_tax.rate*2": "_TAX.RATE"} {
		ast, err = p.Parse(formula, base)
		require.NoError(t, err, formula)
		require.Equal(t, AstBinary, ast.Type, formula)
		assert.Equal(t, AstName, ast.Args[0].Type, formula)
		assert.Equal(t, want, ast.Args[0].Name, formula)
	}
}

func TestParseErrors(t *testing.T) {
	p, _ := newTestParser(t)
	for _, formula := range []string{"=", "=SUM(", "=1+", "=A1:B", "=Data!FOO", "={1,2;3}"} {
		_, err := p.Parse(formula, Addr(0, 0, 0))
		assert.ErrorIs(t, err, ErrFormulaSyntax, formula)
	}
}

func TestParserTokenCache(t *testing.T) {
	p, _ := newTestParser(t)
	for range 3 {
		_, err := p.Parse("=A1+1", Addr(0, 0, 0))
		require.NoError(t, err)
	}
	_, err := p.Parse("=A1+1", Addr(0, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, 1, p.cache.Len())
}
