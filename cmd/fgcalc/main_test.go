package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmniMCP-AI/formulagraph"
)

const testWorkbook = `
[[sheet]]
name = "Sheet1"
rows = [
  [1, 2, "=A1+B1"],
  ["=C1*10"],
]

[[sheet]]
name = "Totals"
rows = [["=SUM(Sheet1!A1:C1)"]]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(append([]string{"fgcalc"}, args...))
	return out.String(), err
}

func TestLoadWorkbook(t *testing.T) {
	wb, err := loadWorkbook(writeFile(t, "book.toml", testWorkbook))
	require.NoError(t, err)
	require.Len(t, wb.sheets, 2)
	assert.Equal(t, "Sheet1", wb.sheets[0].Name)
	assert.Len(t, wb.sheets[0].Rows, 2)
	assert.Equal(t, "=A1+B1", wb.sheets[0].Rows[0][2])
	assert.Empty(t, wb.names)

	_, err = loadWorkbook(writeFile(t, "empty.toml", "title = 'x'\n"))
	assert.ErrorContains(t, err, "has no sheets")
	_, err = loadWorkbook(writeFile(t, "bad.toml", "[[sheet]\n"))
	assert.ErrorContains(t, err, "failed to parse workbook")
	_, err = loadWorkbook(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadOptions(t *testing.T) {
	opts, err := loadOptions("", false)
	require.NoError(t, err)
	assert.Nil(t, opts.Logger)
	assert.Nil(t, opts.AddressMappingPolicy)

	opts, err = loadOptions(writeFile(t, "opts.toml", `
address_mapping = "threshold"
dense_threshold = 0.5
use_column_index = true
async_function_timeout = "250ms"
use_wildcards = false
max_rows = 100
matrix_detection = true
matrix_detection_threshold = 4
`), true)
	require.NoError(t, err)
	assert.NotNil(t, opts.Logger)
	assert.Equal(t, formulagraph.DenseSparseChooseBasedOnThreshold{Threshold: 0.5}, opts.AddressMappingPolicy)
	assert.True(t, opts.UseColumnIndex)
	assert.Equal(t, 250*time.Millisecond, opts.AsyncFunctionTimeout)
	require.NotNil(t, opts.UseWildcards)
	assert.False(t, *opts.UseWildcards)
	assert.Equal(t, 100, opts.MaxRows)
	assert.True(t, opts.MatrixDetection)
	assert.Equal(t, 4, opts.MatrixDetectionThreshold)

	for content, msg := range map[string]string{
		`address_mapping = "tiled"`:     "unknown address_mapping",
		`async_function_timeout = "1x"`: "async_function_timeout",
		`max_rows = "many"`:             "failed to parse options",
	} {
		_, err := loadOptions(writeFile(t, "opts.toml", content), false)
		assert.ErrorContains(t, err, msg, content)
	}
}

func TestEvalCommand(t *testing.T) {
	book := writeFile(t, "book.toml", testWorkbook)
	out, err := runApp(t, "eval", "--formulas", book)
	require.NoError(t, err)
	assert.Equal(t, "Sheet1!A1\t1\n"+
		"Sheet1!B1\t2\n"+
		"Sheet1!C1\t3\t=A1+B1\n"+
		"Sheet1!A2\t30\t=C1*10\n"+
		"Totals!A1\t6\t=SUM(Sheet1!A1:C1)\n", out)

	out, err = runApp(t, "eval", book, book)
	require.NoError(t, err)
	assert.Contains(t, out, "# "+book+"\n")
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("Totals!A1\t6\n")))

	_, err = runApp(t, "eval")
	assert.ErrorContains(t, err, "missing workbook")
	_, err = runApp(t, "eval", book, filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEvalNamedExpressions(t *testing.T) {
	book := writeFile(t, "names.toml", `
[names]
Rate = "=Sheet1!$A$1"
Bonus = "5"

[[sheet]]
name = "Sheet1"
rows = [[2, "=Rate*10+Bonus"]]
`)
	out, err := runApp(t, "eval", book)
	require.NoError(t, err)
	assert.Equal(t, "Sheet1!A1\t2\nSheet1!B1\t25\n", out)

	bad := writeFile(t, "bad.toml", `
[names]
Rate = "=A1"

[[sheet]]
name = "Sheet1"
rows = [[1]]
`)
	_, err = runApp(t, "eval", bad)
	assert.ErrorIs(t, err, formulagraph.ErrRelativeNamedReference)
	assert.ErrorContains(t, err, "name Rate")
}

func TestDepsCommand(t *testing.T) {
	book := writeFile(t, "book.toml", testWorkbook)
	out, err := runApp(t, "deps", book, "Sheet1!C1")
	require.NoError(t, err)
	assert.Contains(t, out, "Sheet1!C1\n")
	assert.Contains(t, out, "  reads\tSheet1!A1:A1\n")
	assert.Contains(t, out, "  reads\tSheet1!B1:B1\n")
	assert.Contains(t, out, "  read by\tSheet1!A2\n")

	_, err = runApp(t, "deps", book)
	assert.ErrorContains(t, err, "usage")
}

func TestOrderCommand(t *testing.T) {
	out, err := runApp(t, "order", writeFile(t, "book.toml", testWorkbook))
	require.NoError(t, err)
	c1 := bytes.Index([]byte(out), []byte("Sheet1!C1"))
	a2 := bytes.Index([]byte(out), []byte("Sheet1!A2"))
	require.GreaterOrEqual(t, c1, 0)
	assert.Greater(t, a2, c1)
	assert.NotContains(t, out, "(cycle)")
}
