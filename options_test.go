package formulagraph

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOptionsDefaults(t *testing.T) {
	opts, err := getOptions()
	require.NoError(t, err)
	assert.Equal(t, DefaultVLookupThreshold, opts.VLookupThreshold)
	assert.Equal(t, DefaultIterationLimit, opts.IterationLimit)
	assert.Equal(t, DefaultConvergenceTolerance, opts.ConvergenceTolerance)
	assert.Equal(t, DefaultAsyncFunctionTimeout, opts.AsyncFunctionTimeout)
	assert.Equal(t, DefaultPrecisionEpsilon, opts.PrecisionEpsilon)
	assert.Equal(t, DefaultMaxRows, opts.MaxRows)
	assert.Equal(t, DefaultMaxColumns, opts.MaxColumns)
	assert.False(t, opts.MatrixDetection)
	assert.Equal(t, DefaultMatrixThreshold, opts.MatrixDetectionThreshold)
	assert.Equal(t, DenseSparseChooseBasedOnThreshold{Threshold: DefaultDenseThreshold}, opts.AddressMappingPolicy)
	assert.True(t, opts.useWildcards())
}

func TestGetOptionsLastWins(t *testing.T) {
	opts, err := getOptions(Options{IterationLimit: 7}, Options{MaxRows: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, opts.MaxRows)
	assert.Equal(t, DefaultIterationLimit, opts.IterationLimit)
}

func TestGetOptionsRegexDisablesWildcards(t *testing.T) {
	opts, err := getOptions(Options{UseRegularExpressions: true})
	require.NoError(t, err)
	assert.False(t, opts.useWildcards())

	_, err = getOptions(Options{UseRegularExpressions: true, UseWildcards: Bool(true)})
	var optErr ErrOption
	require.ErrorAs(t, err, &optErr)
	assert.Equal(t, "UseRegularExpressions", optErr.Field)
}

func TestGetOptionsValidation(t *testing.T) {
	for _, c := range []struct {
		name  string
		opts  Options
		field string
	}{
		{"negative threshold", Options{VLookupThreshold: -1}, "VLookupThreshold"},
		{"negative iterations", Options{IterationLimit: -1}, "IterationLimit"},
		{"negative tolerance", Options{ConvergenceTolerance: -0.5}, "ConvergenceTolerance"},
		{"negative timeout", Options{AsyncFunctionTimeout: -time.Second}, "AsyncFunctionTimeout"},
		{"epsilon too large", Options{PrecisionEpsilon: 1}, "PrecisionEpsilon"},
		{"negative rows", Options{MaxRows: -1}, "MaxRows"},
		{"negative columns", Options{MaxColumns: -3}, "MaxColumns"},
		{"negative cache", Options{TokenCacheSize: -1}, "TokenCacheSize"},
		{"negative matrix threshold", Options{MatrixDetection: true, MatrixDetectionThreshold: -4}, "MatrixDetectionThreshold"},
		{"dense threshold", Options{AddressMappingPolicy: DenseSparseChooseBasedOnThreshold{Threshold: 1.5}}, "AddressMappingPolicy"},
	} {
		t.Run(c.name, func(t *testing.T) {
			_, err := getOptions(c.opts)
			var optErr ErrOption
			require.ErrorAs(t, err, &optErr)
			assert.Equal(t, c.field, optErr.Field)

			_, err = NewEngine(c.opts)
			assert.ErrorAs(t, err, &optErr)
		})
	}
}

func TestOptionsClone(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	e, err := NewEngine(Options{IterationLimit: 5, UseColumnIndex: true, Logger: logger})
	require.NoError(t, err)
	defer e.Close()

	clone, err := e.Options()
	require.NoError(t, err)
	assert.Equal(t, 5, clone.IterationLimit)
	assert.True(t, clone.UseColumnIndex)
	assert.Same(t, logger, clone.Logger)

	clone.IterationLimit = 50
	again, err := e.Options()
	require.NoError(t, err)
	assert.Equal(t, 5, again.IterationLimit)
}
