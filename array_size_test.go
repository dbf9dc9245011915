package formulagraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArraySizePredictor(t *testing.T) {
	parser := NewParser(NewSheetMapping(), 16)
	dims := func(int) (int, int) { return 3, 5 }
	base := Addr(0, 9, 9)
	for _, c := range []struct {
		formula string
		arith   bool
		want    ArraySize
		err     bool
	}{
		{formula: "=MMULT(A1:C2,E1:H3)", want: ArraySize{Width: 4, Height: 2}},
		{formula: "=MMULT(A1:C2,E1:H2)", err: true},
		{formula: "=TRANSPOSE(A1:C2)", want: ArraySize{Width: 2, Height: 3}},
		{formula: "=TRANSPOSE(A:B)", want: ArraySize{Width: 5, Height: 2}},
		{formula: "=MAXPOOL(A1:D4,2)", want: ArraySize{Width: 2, Height: 2}},
		{formula: "=MEDIANPOOL(A1:D4,2,1)", want: ArraySize{Width: 3, Height: 3}},
		{formula: "=MAXPOOL(A1:C3,2)", err: true},
		{formula: "={1,2;3,4}", want: ArraySize{Width: 2, Height: 2}},
		{formula: "={1,2,3}", want: ArraySize{Width: 3, Height: 1}},
		{formula: "=A1:B2*2", err: true},
		{formula: "=A1:B2*2", arith: true, want: ArraySize{Width: 2, Height: 2}},
		{formula: "=-A1:A3", arith: true, want: ArraySize{Width: 1, Height: 3}},
		{formula: "=A1:B2", want: ArraySize{Width: 2, Height: 2, IsRef: true}},
		{formula: "=A1", want: ArraySize{Width: 1, Height: 1, IsRef: true}},
		{formula: "=ARRAYFORMULA(A1:B2*2)", want: ArraySize{Width: 2, Height: 2}},
		{formula: "=ARRAY_CONSTRAIN(A1:D4,2,3)", want: ArraySize{Width: 3, Height: 2}},
		{formula: "=ARRAY_CONSTRAIN(A1:B2,5,5)", want: ArraySize{Width: 2, Height: 2}},
		{formula: "=ARRAY_CONSTRAIN(A1:B2,0,5)", err: true},
		{formula: "=SWITCH(1,1,{1,2,3},2,5)", want: ArraySize{Width: 3, Height: 1}},
		{formula: "=FILTER(A1:B4,C1:C4)", want: ArraySize{Width: 2, Height: 4}},
		{formula: "=FILTER(A1:B4,C1:C3)", err: true},
		{formula: "=SUM(A1:B4)", want: ArraySize{Width: 1, Height: 1}},
		{formula: `="x"&"y"`, want: ArraySize{Width: 1, Height: 1}},
	} {
		ast, err := parser.Parse(c.formula, base)
		require.NoError(t, err, c.formula)
		p := NewArraySizePredictor(c.arith, NewFunctionRegistry(), dims)
		got := p.Predict(ast, base)
		if c.err {
			assert.Equal(t, ErrorValue, got.Err, c.formula)
			assert.True(t, got.IsScalar(), c.formula)
			continue
		}
		assert.Equal(t, ErrorNone, got.Err, "%s: %s", c.formula, got.Message)
		assert.Equal(t, c.want.Width, got.Width, c.formula)
		assert.Equal(t, c.want.Height, got.Height, c.formula)
		assert.Equal(t, c.want.IsRef, got.IsRef, c.formula)
	}
}

func TestArraySizeIsScalar(t *testing.T) {
	assert.True(t, ArraySize{Width: 1, Height: 1}.IsScalar())
	assert.True(t, ArraySize{Width: 3, Height: 2, IsRef: true}.IsScalar())
	assert.True(t, errorSize("x").IsScalar())
	assert.False(t, ArraySize{Width: 1, Height: 2}.IsScalar())
}

func TestPoolDimension(t *testing.T) {
	for _, c := range []struct {
		dim, window, stride, want int
		ok                        bool
	}{
		{4, 2, 2, 2, true},
		{4, 2, 1, 3, true},
		{5, 3, 2, 2, true},
		{3, 2, 2, 0, false},
		{2, 3, 1, 0, false},
		{4, 2, 3, 0, false},
		{4, 0, 1, 0, false},
	} {
		got, ok := poolDimension(c.dim, c.window, c.stride)
		assert.Equal(t, c.ok, ok, "%+v", c)
		if ok {
			assert.Equal(t, c.want, got, "%+v", c)
		}
	}
}
