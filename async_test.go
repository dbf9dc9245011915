package formulagraph

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func double(calls *atomic.Int32) AsyncFunction {
	return func(ctx context.Context, args []Value) (Value, error) {
		calls.Add(1)
		n, _, ok := toNumber(args[0])
		if !ok {
			return Value{}, errors.New("not a number")
		}
		return NumberValue(2 * n), nil
	}
}

// blocking waits for the call context to end.
func blocking(ctx context.Context, _ []Value) (Value, error) {
	<-ctx.Done()
	return Value{}, ctx.Err()
}

func newAsyncEngine(t *testing.T, opts ...Options) *Engine {
	t.Helper()
	e, err := NewEngine(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	_, err = e.AddSheet("Sheet1")
	require.NoError(t, err)
	return e
}

func waitAsync(t *testing.T, e *Engine) []ExportedChange {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	changes, err := e.WaitForAsync(ctx)
	require.NoError(t, err)
	return changes
}

func TestAsyncFunctionResolves(t *testing.T) {
	var calls atomic.Int32
	e := newAsyncEngine(t)
	require.NoError(t, e.RegisterAsyncFunction("DOUBLE", double(&calls)))

	_, err := e.SetCellContents(Addr(0, 0, 0), 21)
	require.NoError(t, err)
	_, err = e.SetCellContents(Addr(0, 1, 0), "=DOUBLE(A1)+1")
	require.NoError(t, err)
	_, err = e.SetCellContents(Addr(0, 2, 0), "=B1*2")
	require.NoError(t, err)
	assertValue(t, PendingValue(), cellValue(t, e, "B1"))
	assertValue(t, PendingValue(), cellValue(t, e, "C1"))

	changes := waitAsync(t, e)
	assert.Equal(t, []ExportedChange{
		{Address: Addr(0, 1, 0), Value: NumberValue(43)},
		{Address: Addr(0, 2, 0), Value: NumberValue(86)},
	}, changes)
	assert.Equal(t, int32(1), calls.Load())

	// unrelated edits reuse the resolved call
	_, err = e.SetCellContents(Addr(0, 3, 0), "x")
	require.NoError(t, err)
	assertValue(t, NumberValue(43), cellValue(t, e, "B1"))

	// new arguments start a new call
	_, err = e.SetCellContents(Addr(0, 0, 0), 5)
	require.NoError(t, err)
	assertValue(t, PendingValue(), cellValue(t, e, "B1"))
	waitAsync(t, e)
	assertValue(t, NumberValue(11), cellValue(t, e, "B1"))
	assertValue(t, NumberValue(22), cellValue(t, e, "C1"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestAsyncFunctionRegisteredAfterBuild(t *testing.T) {
	var calls atomic.Int32
	e := buildEngine(t, [][]any{{4, "=DOUBLE(A1)"}})
	assertValue(t, CellError(ErrorName), cellValue(t, e, "B1"))

	require.NoError(t, e.RegisterAsyncFunction("double", double(&calls)))
	assertValue(t, PendingValue(), cellValue(t, e, "B1"))
	waitAsync(t, e)
	assertValue(t, NumberValue(8), cellValue(t, e, "B1"))
}

func TestAsyncFunctionFailures(t *testing.T) {
	var calls atomic.Int32
	e := newAsyncEngine(t, Options{AsyncFunctionTimeout: 20 * time.Millisecond})
	require.NoError(t, e.RegisterAsyncFunction("DOUBLE", double(&calls)))
	require.NoError(t, e.RegisterAsyncFunction("HANG", blocking))

	for _, c := range []struct {
		formula string
		want    Value
	}{
		{`=DOUBLE("abc")`, CellError(ErrorValue)},
		{`=HANG(1)`, CellError(ErrorTimeout)},
		{`=DOUBLE(1/0)`, CellError(ErrorDivByZero)},
	} {
		_, err := e.SetCellContents(Addr(0, 0, 0), c.formula)
		require.NoError(t, err)
		waitAsync(t, e)
		assertValue(t, c.want, cellValue(t, e, "A1"), c.formula)
	}
}

func TestWaitForAsyncHonoursContext(t *testing.T) {
	e := newAsyncEngine(t)
	require.NoError(t, e.RegisterAsyncFunction("HANG", blocking))
	_, err := e.SetCellContents(Addr(0, 0, 0), "=HANG()")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = e.WaitForAsync(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assertValue(t, PendingValue(), cellValue(t, e, "A1"))

	changes, err := e.ProcessAsync()
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestCloseCancelsAsyncCalls(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)
	_, err = e.AddSheet("Sheet1")
	require.NoError(t, err)
	require.NoError(t, e.RegisterAsyncFunction("HANG", blocking))
	_, err = e.SetCellContents(Addr(0, 0, 0), "=HANG(1)")
	require.NoError(t, err)
	_, err = e.SetCellContents(Addr(0, 0, 1), "=HANG(2)")
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	_, err = e.WaitForAsync(context.Background())
	assert.ErrorIs(t, err, ErrEngineClosed)
	_, err = e.SetCellContents(Addr(0, 0, 2), 1)
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestAsyncKey(t *testing.T) {
	assert.Equal(t, asyncKey("F", []Value{NumberValue(1), StringValue("1")}), asyncKey("F", []Value{NumberValue(1), StringValue("1")}))
	assert.NotEqual(t, asyncKey("F", []Value{NumberValue(1)}), asyncKey("F", []Value{StringValue("1")}))
	assert.NotEqual(t, asyncKey("F", []Value{StringValue("a,b")}), asyncKey("F", []Value{StringValue("a"), StringValue("b")}))
}
