package main

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/OmniMCP-AI/formulagraph"
)

// workbookFile is the TOML layout of a workbook:
//
//	[names]
//	Rate = "=Sheet1!$A$1"
//
//	[[sheet]]
//	name = "Sheet1"
//	rows = [[1, 2, "=A1+B1*Rate"]]
type workbookFile struct {
	Names  map[string]string `toml:"names"`
	Sheets []sheetFile       `toml:"sheet"`
}

// workbook is a loaded workbook: its sheets and named expressions.
type workbook struct {
	sheets []formulagraph.Sheet
	names  map[string]string
}

// build creates an engine holding the workbook and defines its names in
// name order.
func (wb *workbook) build(opts formulagraph.Options) (*formulagraph.Engine, error) {
	e, err := formulagraph.BuildFromSheetsOrdered(wb.sheets, opts)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(wb.names))
	for name := range wb.names {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if _, err := e.AddNamedExpression(name, wb.names[name]); err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("name %s: %w", name, err)
		}
	}
	return e, nil
}

type sheetFile struct {
	Name string  `toml:"name"`
	Rows [][]any `toml:"rows"`
}

// optionsFile is the TOML layout of engine options.
type optionsFile struct {
	AddressMapping          string  `toml:"address_mapping"`
	DenseThreshold          float64 `toml:"dense_threshold"`
	UseColumnIndex          bool    `toml:"use_column_index"`
	VLookupThreshold        int     `toml:"vlookup_threshold"`
	AllowCircularReferences bool    `toml:"allow_circular_references"`
	IterationLimit          int     `toml:"iteration_limit"`
	ConvergenceTolerance    float64 `toml:"convergence_tolerance"`
	UseArrayArithmetic      bool    `toml:"use_array_arithmetic"`
	AsyncFunctionTimeout    string  `toml:"async_function_timeout"`
	PrecisionEpsilon        float64 `toml:"precision_epsilon"`
	CaseSensitive           bool    `toml:"case_sensitive"`
	UseWildcards            *bool   `toml:"use_wildcards"`
	UseRegularExpressions   bool    `toml:"use_regular_expressions"`
	MaxRows                 int     `toml:"max_rows"`
	MaxColumns              int     `toml:"max_columns"`
	MatrixDetection         bool    `toml:"matrix_detection"`
	MatrixThreshold         int     `toml:"matrix_detection_threshold"`
}

func loadWorkbook(path string) (*workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wb workbookFile
	if err := toml.Unmarshal(data, &wb); err != nil {
		return nil, fmt.Errorf("failed to parse workbook %s: %w", path, err)
	}
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	sheets := make([]formulagraph.Sheet, len(wb.Sheets))
	for i, s := range wb.Sheets {
		sheets[i] = formulagraph.Sheet{Name: s.Name, Rows: s.Rows}
	}
	return &workbook{sheets: sheets, names: wb.Names}, nil
}

// loadOptions reads engine options from path; an empty path gives the
// defaults.
func loadOptions(path string, verbose bool) (formulagraph.Options, error) {
	var opts formulagraph.Options
	if verbose {
		opts.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	if path == "" {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}
	var f optionsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return opts, fmt.Errorf("failed to parse options %s: %w", path, err)
	}
	switch strings.ToLower(f.AddressMapping) {
	case "":
	case "dense":
		opts.AddressMappingPolicy = formulagraph.AlwaysDense{}
	case "sparse":
		opts.AddressMappingPolicy = formulagraph.AlwaysSparse{}
	case "threshold":
		opts.AddressMappingPolicy = formulagraph.DenseSparseChooseBasedOnThreshold{Threshold: f.DenseThreshold}
	default:
		return opts, fmt.Errorf("unknown address_mapping %q", f.AddressMapping)
	}
	if f.AsyncFunctionTimeout != "" {
		d, err := time.ParseDuration(f.AsyncFunctionTimeout)
		if err != nil {
			return opts, fmt.Errorf("async_function_timeout: %w", err)
		}
		opts.AsyncFunctionTimeout = d
	}
	opts.UseColumnIndex = f.UseColumnIndex
	opts.VLookupThreshold = f.VLookupThreshold
	opts.AllowCircularReferences = f.AllowCircularReferences
	opts.IterationLimit = f.IterationLimit
	opts.ConvergenceTolerance = f.ConvergenceTolerance
	opts.UseArrayArithmetic = f.UseArrayArithmetic
	opts.PrecisionEpsilon = f.PrecisionEpsilon
	opts.CaseSensitive = f.CaseSensitive
	opts.UseWildcards = f.UseWildcards
	opts.UseRegularExpressions = f.UseRegularExpressions
	opts.MaxRows = f.MaxRows
	opts.MaxColumns = f.MaxColumns
	opts.MatrixDetection = f.MatrixDetection
	opts.MatrixDetectionThreshold = f.MatrixThreshold
	return opts, nil
}
