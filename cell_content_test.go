package formulagraph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCellContent(t *testing.T) {
	for _, c := range []struct {
		raw   any
		kind  contentKind
		value Value
	}{
		{nil, contentEmpty, EmptyValue()},
		{"", contentEmpty, EmptyValue()},
		{"   ", contentEmpty, EmptyValue()},
		{"=A1", contentFormula, EmptyValue()},
		{"'123", contentValue, StringValue("123")},
		{"12.5", contentValue, NumberValue(12.5)},
		{" 1,000 ", contentValue, NumberValue(1000)},
		{"50%", contentValue, NumberValue(0.5)},
		{"1,00", contentValue, StringValue("1,00")},
		{"true", contentValue, BoolValue(true)},
		{"#N/A", contentValue, CellError(ErrorNA)},
		{"Inf", contentValue, StringValue("Inf")},
		{"hello", contentValue, StringValue("hello")},
		{3, contentValue, NumberValue(3)},
		{uint8(7), contentValue, NumberValue(7)},
		{float32(0.5), contentValue, NumberValue(0.5)},
		{false, contentValue, BoolValue(false)},
		{math.NaN(), contentValue, CellError(ErrorNum)},
		{StringValue("x"), contentValue, StringValue("x")},
		{EmptyValue(), contentEmpty, EmptyValue()},
	} {
		got, err := parseCellContent(c.raw)
		require.NoError(t, err, "%v", c.raw)
		assert.Equal(t, c.kind, got.kind, "%v", c.raw)
		assertValue(t, c.value, got.value, "%v", c.raw)
	}

	formula, err := parseCellContent("=SUM(A1)")
	require.NoError(t, err)
	assert.Equal(t, "=SUM(A1)", formula.raw)

	for _, raw := range []any{PendingValue(), struct{}{}, []int{1}} {
		_, err := parseCellContent(raw)
		assert.ErrorIs(t, err, ErrUnsupportedContent, "%v", raw)
	}
}

func TestParseNumber(t *testing.T) {
	for text, want := range map[string]float64{
		"1":         1,
		"-2.5":      -2.5,
		"1e3":       1000,
		"12,345.5":  12345.5,
		"1,234,567": 1234567,
		"25 %":      0.25,
	} {
		got, ok := parseNumber(text)
		require.True(t, ok, text)
		assert.InDelta(t, want, got, 1e-12, text)
	}
	for _, text := range []string{"", "abc", "NaN", "Inf", "0x10", "1,2", "%", "1.2.3"} {
		_, ok := parseNumber(text)
		assert.False(t, ok, text)
	}
}
