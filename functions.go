package formulagraph

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// FunctionImpl computes a function call.
type FunctionImpl func(call *FunctionCall) Result

// AsyncFunction computes a function off the engine goroutine. Arguments are
// evaluated to scalars first; ctx is cancelled on timeout or engine Close.
type AsyncFunction func(ctx context.Context, args []Value) (Value, error)

// SizeFunc predicts the result size of a call from its arguments.
type SizeFunc func(p *ArraySizePredictor, args []*Ast, base SimpleCellAddress, arith bool) ArraySize

// FunctionMetadata describes one registered function.
type FunctionMetadata struct {
	Impl  FunctionImpl
	Async AsyncFunction
	// Size is nil for functions which always return one value.
	Size SizeFunc
	// GeometryOnly functions inspect where their reference arguments point,
	// never the values, so they add no dependencies.
	GeometryOnly bool
	// Volatile functions are recomputed on every evaluation.
	Volatile bool
	// Structural functions are recomputed on every row, column or move
	// operation.
	Structural bool
	// ArrayArgs evaluates the arguments with elementwise arithmetic.
	ArrayArgs bool
}

// FunctionRegistry maps upper-case function names to their metadata. Every
// engine owns one, seeded with the built-ins.
type FunctionRegistry struct {
	functions map[string]*FunctionMetadata
}

var functionNamePattern = regexp.MustCompile(`^[A-Z][A-Z0-9._]*$`)

// NewFunctionRegistry creates a registry holding the built-in functions.
func NewFunctionRegistry() *FunctionRegistry {
	r := &FunctionRegistry{functions: make(map[string]*FunctionMetadata, len(builtinFunctions))}
	for name, fn := range builtinFunctions {
		meta := *fn
		r.functions[name] = &meta
	}
	return r
}

// Get returns the metadata of a function.
func (r *FunctionRegistry) Get(name string) (*FunctionMetadata, bool) {
	if r == nil {
		return nil, false
	}
	fn, ok := r.functions[strings.ToUpper(name)]
	return fn, ok
}

// Register adds or replaces a function.
func (r *FunctionRegistry) Register(name string, meta FunctionMetadata) error {
	name = strings.ToUpper(strings.TrimSpace(name))
	if !functionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrFunctionName, name)
	}
	if meta.Impl == nil && meta.Async == nil {
		return fmt.Errorf("%w: %s has no implementation", ErrFunctionName, name)
	}
	r.functions[name] = &meta
	return nil
}

func (r *FunctionRegistry) isVolatile(name string) bool {
	fn, ok := r.Get(name)
	return ok && fn.Volatile
}

func (r *FunctionRegistry) isStructural(name string) bool {
	fn, ok := r.Get(name)
	return ok && fn.Structural
}

// Names returns the registered function names.
func (r *FunctionRegistry) Names() []string {
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	return names
}

var builtinFunctions map[string]*FunctionMetadata

func init() {
	builtinFunctions = map[string]*FunctionMetadata{
		"SUM":             {Impl: fnSUM},
		"COUNT":           {Impl: fnCOUNT},
		"MIN":             {Impl: fnMIN},
		"MAX":             {Impl: fnMAX},
		"AVERAGE":         {Impl: fnAVERAGE},
		"IF":              {Impl: fnIF, Size: sizeIF},
		"IFERROR":         {Impl: fnIFERROR},
		"SUMIF":           {Impl: fnSUMIF},
		"SUMIFS":          {Impl: fnSUMIFS},
		"COUNTIF":         {Impl: fnCOUNTIF},
		"COUNTIFS":        {Impl: fnCOUNTIFS},
		"AVERAGEIF":       {Impl: fnAVERAGEIF},
		"AVERAGEIFS":      {Impl: fnAVERAGEIFS},
		"VLOOKUP":         {Impl: fnVLOOKUP},
		"MATCH":           {Impl: fnMATCH},
		"MMULT":           {Impl: fnMMULT, Size: sizeMMULT, ArrayArgs: true},
		"TRANSPOSE":       {Impl: fnTRANSPOSE, Size: sizeTRANSPOSE, ArrayArgs: true},
		"MAXPOOL":         {Impl: fnMAXPOOL, Size: sizePool, ArrayArgs: true},
		"MEDIANPOOL":      {Impl: fnMEDIANPOOL, Size: sizePool, ArrayArgs: true},
		"FILTER":          {Impl: fnFILTER, Size: sizeFILTER, ArrayArgs: true},
		"SWITCH":          {Impl: fnSWITCH, Size: sizeSWITCH},
		"ARRAY_CONSTRAIN": {Impl: fnARRAYCONSTRAIN, Size: sizeARRAYCONSTRAIN, ArrayArgs: true},
		"ARRAYFORMULA":    {Impl: fnARRAYFORMULA, Size: sizeARRAYFORMULA, ArrayArgs: true},
		"ROW":             {Impl: fnROW, GeometryOnly: true, Structural: true},
		"COLUMN":          {Impl: fnCOLUMN, GeometryOnly: true, Structural: true},
		"ROWS":            {Impl: fnROWS, GeometryOnly: true, Structural: true},
		"COLUMNS":         {Impl: fnCOLUMNS, GeometryOnly: true, Structural: true},
		"RAND":            {Impl: fnRAND, Volatile: true},
		"NOW":             {Impl: fnNOW, Volatile: true},
	}
}

// sizeIF covers both branches.
func sizeIF(p *ArraySizePredictor, args []*Ast, base SimpleCellAddress, arith bool) ArraySize {
	if len(args) < 2 || len(args) > 3 {
		return errorSize("IF requires 2 or 3 arguments")
	}
	out := scalarSize()
	for _, arg := range args[1:] {
		s := p.predict(arg, base, arith)
		if s.Err != ErrorNone {
			return s
		}
		if s.IsRef {
			continue
		}
		out.Width, out.Height = max(out.Width, s.Width), max(out.Height, s.Height)
	}
	return out
}
