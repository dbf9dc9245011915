// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package formulagraph

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/tiendc/go-deepcopy"
)

// ExportedChange is the new value of one cell after an operation.
type ExportedChange struct {
	Address SimpleCellAddress
	Value   Value
}

// Sheet is the content of one sheet for BuildFromSheetsOrdered. Rows hold raw
// cell input as accepted by SetCellContents.
type Sheet struct {
	Name string
	Rows [][]any
}

// changeSet merges value transitions per cell: the first old value and the
// last new one are kept.
type changeSet struct {
	order  []SimpleCellAddress
	byAddr map[SimpleCellAddress]*cellChange
}

func (c *changeSet) add(changes ...cellChange) {
	for _, ch := range changes {
		if cur, ok := c.byAddr[ch.addr]; ok {
			cur.new = ch.new
			continue
		}
		if c.byAddr == nil {
			c.byAddr = make(map[SimpleCellAddress]*cellChange)
		}
		cc := ch
		c.byAddr[ch.addr] = &cc
		c.order = append(c.order, ch.addr)
	}
}

// take returns the net changes sorted by sheet, row and column, and resets
// the set.
func (c *changeSet) take() []ExportedChange {
	var out []ExportedChange
	for _, a := range c.order {
		if ch := c.byAddr[a]; !sameValue(ch.old, ch.new) {
			out = append(out, ExportedChange{Address: a, Value: ch.new})
		}
	}
	slices.SortFunc(out, func(a, b ExportedChange) int {
		x, y := a.Address, b.Address
		switch {
		case x.Sheet != y.Sheet:
			return x.Sheet - y.Sheet
		case x.Row != y.Row:
			return x.Row - y.Row
		}
		return x.Col - y.Col
	})
	*c = changeSet{}
	return out
}

// Engine keeps the values of a workbook of formulas up to date as cells,
// rows, columns and sheets are edited. An engine is not safe for concurrent
// use; async function results are applied on the caller's goroutine by
// ProcessAsync and WaitForAsync.
type Engine struct {
	opts      *Options
	logger    *log.Logger
	stats     *Statistics
	sheets    *SheetMapping
	addresses *AddressMapping
	lazy      *LazilyTransformingAstService
	registry  *FunctionRegistry
	graph     *DependencyGraph
	parser    *Parser
	predictor *ArraySizePredictor
	arith     *arithmetic
	search    ColumnSearchStrategy
	ip        *Interpreter
	evaluator *Evaluator
	async     *asyncRunner
	events    *emitter

	batchDepth int
	pending    changeSet
	closed     bool
}

// NewEngine creates an engine without sheets.
func NewEngine(opts ...Options) (*Engine, error) {
	options, err := getOptions(opts...)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		opts:     options,
		logger:   options.Logger,
		stats:    &Statistics{},
		sheets:   NewSheetMapping(),
		registry: NewFunctionRegistry(),
		events:   newEmitter(),
	}
	e.addresses = NewAddressMapping(options.AddressMappingPolicy)
	e.lazy = NewLazilyTransformingAstService(e.stats)
	e.graph = newDependencyGraph(e.addresses, e.lazy, e.registry, options.MaxRows, options.MaxColumns)
	e.parser = NewParser(e.sheets, options.TokenCacheSize)
	e.predictor = NewArraySizePredictor(options.UseArrayArithmetic, e.registry, func(sheet int) (int, int) {
		return e.addresses.Width(sheet), e.addresses.Height(sheet)
	})
	e.arith = newArithmetic(options)
	binary := NewColumnBinarySearch(e.arith, options.VLookupThreshold)
	if options.UseColumnIndex {
		e.search = NewColumnIndex(e.lazy, binary, e.stats, options.Logger)
	} else {
		e.search = binary
	}
	e.async = newAsyncRunner(options.AsyncFunctionTimeout, options.Logger)
	e.ip = newInterpreter(e.graph, e.registry, e.arith, e.search, e.stats, e.async, options.UseArrayArithmetic)
	e.evaluator = newEvaluator(e.graph, e.ip, e.search, e.stats, options)
	return e, nil
}

// BuildFromSheets creates an engine holding the given sheets, added in name
// order, and computes every formula.
func BuildFromSheets(sheets map[string][][]any, opts ...Options) (*Engine, error) {
	names := make([]string, 0, len(sheets))
	for name := range sheets {
		names = append(names, name)
	}
	sort.Strings(names)
	ordered := make([]Sheet, len(names))
	for i, name := range names {
		ordered[i] = Sheet{Name: name, Rows: sheets[name]}
	}
	return BuildFromSheetsOrdered(ordered, opts...)
}

// BuildFromSheetsOrdered creates an engine holding the given sheets in order
// and computes every formula.
func BuildFromSheetsOrdered(sheets []Sheet, opts ...Options) (*Engine, error) {
	e, err := NewEngine(opts...)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	ids := make([]int, len(sheets))
	for i, s := range sheets {
		width, filled := 0, 0
		for _, row := range s.Rows {
			width = max(width, len(row))
			for _, cell := range row {
				if cell != nil && cell != "" {
					filled++
				}
			}
		}
		if len(s.Rows) > e.opts.MaxRows || width > e.opts.MaxColumns {
			e.Close()
			return nil, fmt.Errorf("sheet %s: %w", s.Name, ErrSheetSizeLimit)
		}
		if ids[i], err = e.sheets.AddSheet(s.Name); err != nil {
			e.Close()
			return nil, err
		}
		e.graph.addSheet(ids[i], width, len(s.Rows), filled)
	}
	grids := make([][][]cellContent, len(sheets))
	for i, s := range sheets {
		grids[i] = make([][]cellContent, len(s.Rows))
		for r, row := range s.Rows {
			grids[i][r] = make([]cellContent, len(row))
			for c, raw := range row {
				if grids[i][r][c], err = parseCellContent(raw); err != nil {
					e.Close()
					return nil, fmt.Errorf("%s!%s: %w", s.Name, Addr(ids[i], c, r), err)
				}
			}
		}
		if e.opts.MatrixDetection {
			e.detectMatrices(ids[i], grids[i])
		}
	}
	for i, grid := range grids {
		for r, row := range grid {
			for c, content := range row {
				if content.kind != contentEmpty {
					e.setContent(Addr(ids[i], c, r), content)
				}
			}
		}
	}
	applyChanges(e.search, e.graph.takeChanges())
	e.graph.takeDirty()
	e.evaluator.Run()
	e.stats.add(statBuild, time.Since(start))
	if e.logger != nil {
		e.logger.Printf("[Engine] built %d sheets with %d vertices in %s", len(sheets), e.graph.g.size(), time.Since(start))
	}
	return e, nil
}

// detectMatrices stores the numeric blocks of a sheet which reach the
// detection threshold as matrices and blanks their cells in grid.
func (e *Engine) detectMatrices(sheet int, grid [][]cellContent) {
	rects := numericRectangles(sheet, grid, e.opts.MatrixDetectionThreshold)
	for _, rect := range rects {
		values := newArrayValue(rect.Width(), rect.Height())
		rect.Addresses(func(a SimpleCellAddress) bool {
			values.Data[a.Row-rect.Start.Row][a.Col-rect.Start.Col] = grid[a.Row][a.Col].value
			grid[a.Row][a.Col] = cellContent{}
			return true
		})
		e.graph.setMatrix(rect, values)
	}
	if e.logger != nil && len(rects) > 0 {
		e.logger.Printf("[Engine] sheet %d: stored %d numeric blocks as matrices", sheet, len(rects))
	}
}

// On registers a handler for an event type.
func (e *Engine) On(t EventType, h EventHandler) {
	e.events.on(t, h)
}

// Stats returns a snapshot of the engine statistics.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// ResetStats zeroes the statistics.
func (e *Engine) ResetStats() {
	e.stats.reset()
}

// Options returns a copy of the effective options.
func (e *Engine) Options() (*Options, error) {
	return e.opts.Clone()
}

// setContent writes classified content to addr. Formula text which does not
// parse is stored with an #ERROR! value.
func (e *Engine) setContent(addr SimpleCellAddress, c cellContent) {
	switch c.kind {
	case contentEmpty:
		e.graph.SetEmpty(addr)
	case contentValue:
		e.graph.SetValue(addr, c.raw, c.value)
	case contentFormula:
		ast, err := e.parser.Parse(c.raw, addr)
		if err != nil {
			if e.logger != nil {
				e.logger.Printf("[Engine] %s at %s: %v", c.raw, addr, err)
			}
			ast = errorAst(ErrorError, err.Error())
		}
		e.graph.SetFormula(addr, ast, c.raw, e.predictor.Predict(ast, addr))
	}
}

// absorb reports the changes made by the last graph mutation to the search
// strategy and queues them for export.
func (e *Engine) absorb() {
	changes := e.graph.takeChanges()
	applyChanges(e.search, changes)
	e.pending.add(changes...)
}

// recompute evaluates what the pending edits made dirty and returns the net
// changes since the last export.
func (e *Engine) recompute() []ExportedChange {
	e.pending.add(e.evaluator.PartialRun(e.graph.takeDirty())...)
	out := e.pending.take()
	if len(out) > 0 {
		e.events.emit(Event{Type: ValuesUpdated, Changes: out})
	}
	return out
}

// mutate runs a validated edit and, outside a batch, recomputes.
func (e *Engine) mutate(fn func() error) ([]ExportedChange, error) {
	if e.closed {
		return nil, ErrEngineClosed
	}
	if err := fn(); err != nil {
		return nil, err
	}
	e.absorb()
	if e.batchDepth > 0 {
		return nil, nil
	}
	return e.recompute(), nil
}

// Batch runs fn and recomputes once for all edits it made. Edits inside fn
// return no changes; the net changes are returned by Batch. An error from fn
// is returned after the edits made so far are recomputed.
func (e *Engine) Batch(fn func(*Engine) error) ([]ExportedChange, error) {
	if e.closed {
		return nil, ErrEngineClosed
	}
	e.batchDepth++
	err := fn(e)
	e.batchDepth--
	if e.batchDepth > 0 {
		return nil, err
	}
	return e.recompute(), err
}

func (e *Engine) checkSheet(sheet int) error {
	if !e.sheets.Has(sheet) {
		return ErrNoSuchSheet{SheetID: sheet}
	}
	return nil
}

func (e *Engine) checkAddress(addr SimpleCellAddress) error {
	if !addr.IsValid() {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, addr)
	}
	if err := e.checkSheet(addr.Sheet); err != nil {
		return err
	}
	if addr.Row >= e.opts.MaxRows || addr.Col >= e.opts.MaxColumns {
		return ErrSheetSizeLimit
	}
	return nil
}

// SetCellContents writes raw content to a cell. Strings starting with "="
// are formulas; see parseCellContent for literals. Writing into an array
// formula's spill area shrinks the array.
func (e *Engine) SetCellContents(addr SimpleCellAddress, raw any) ([]ExportedChange, error) {
	return e.mutate(func() error {
		if err := e.checkAddress(addr); err != nil {
			return err
		}
		content, err := parseCellContent(raw)
		if err != nil {
			return err
		}
		e.setContent(addr, content)
		return nil
	})
}

func (e *Engine) checkSpan(sheet, start, count int) error {
	if err := e.checkSheet(sheet); err != nil {
		return err
	}
	if start < 0 {
		return fmt.Errorf("%w: index %d", ErrInvalidAddress, start)
	}
	if count <= 0 {
		return ErrInvalidCount
	}
	return nil
}

// AddRows inserts count empty rows before row start.
func (e *Engine) AddRows(sheet, start, count int) ([]ExportedChange, error) {
	return e.mutate(func() error {
		if err := e.checkSpan(sheet, start, count); err != nil {
			return err
		}
		if e.addresses.Height(sheet)+count > e.opts.MaxRows {
			return ErrSheetSizeLimit
		}
		if !e.graph.canInsert(rowAxis, sheet, start) {
			return ErrArrayInRange
		}
		e.graph.insertSpan(rowAxis, sheet, start, count)
		return nil
	})
}

// RemoveRows deletes count rows starting at row start.
func (e *Engine) RemoveRows(sheet, start, count int) ([]ExportedChange, error) {
	return e.mutate(func() error {
		if err := e.checkSpan(sheet, start, count); err != nil {
			return err
		}
		span := NewSpan(sheet, start, count)
		if !e.graph.canRemove(rowAxis, span) {
			return ErrArrayInRange
		}
		e.graph.removeSpan(rowAxis, span)
		return nil
	})
}

// AddColumns inserts count empty columns before column start.
func (e *Engine) AddColumns(sheet, start, count int) ([]ExportedChange, error) {
	return e.mutate(func() error {
		if err := e.checkSpan(sheet, start, count); err != nil {
			return err
		}
		if e.addresses.Width(sheet)+count > e.opts.MaxColumns {
			return ErrSheetSizeLimit
		}
		if !e.graph.canInsert(columnAxis, sheet, start) {
			return ErrArrayInRange
		}
		e.graph.insertSpan(columnAxis, sheet, start, count)
		e.search.AddColumns(sheet, start, count)
		return nil
	})
}

// RemoveColumns deletes count columns starting at column start.
func (e *Engine) RemoveColumns(sheet, start, count int) ([]ExportedChange, error) {
	return e.mutate(func() error {
		if err := e.checkSpan(sheet, start, count); err != nil {
			return err
		}
		span := NewSpan(sheet, start, count)
		if !e.graph.canRemove(columnAxis, span) {
			return ErrArrayInRange
		}
		e.graph.removeSpan(columnAxis, span)
		e.search.RemoveColumns(span)
		return nil
	})
}

// MoveCells moves the content of src so that its top-left corner lands on
// dst, overwriting what was there. References to moved cells follow them.
func (e *Engine) MoveCells(src AbsoluteCellRange, dst SimpleCellAddress) ([]ExportedChange, error) {
	return e.mutate(func() error {
		if !src.IsFinite() || src.IsEmpty() {
			return fmt.Errorf("%w: %v", ErrInvalidAddress, src)
		}
		if err := e.checkAddress(src.Start); err != nil {
			return err
		}
		if err := e.checkAddress(src.End); err != nil {
			return err
		}
		target := RangeFrom(dst, src.Width(), src.Height())
		if err := e.checkAddress(dst); err != nil {
			return err
		}
		if err := e.checkAddress(target.End); err != nil {
			return err
		}
		if !e.graph.canMove(src, target) {
			return ErrArrayInRange
		}
		var moves []ValueMove
		before := make(map[SimpleCellAddress]Value)
		src.Addresses(func(a SimpleCellAddress) bool {
			v := e.graph.CellValue(a)
			before[a] = v
			if !v.IsEmpty() {
				moves = append(moves, ValueMove{Value: v, From: a, To: Addr(dst.Sheet, a.Col-src.Start.Col+dst.Col, a.Row-src.Start.Row+dst.Row)})
			}
			return true
		})
		target.Addresses(func(a SimpleCellAddress) bool {
			if _, ok := before[a]; !ok {
				before[a] = e.graph.CellValue(a)
			}
			return true
		})
		e.graph.moveCells(src, dst)
		e.absorb()
		e.search.MoveValues(moves)
		for _, area := range []AbsoluteCellRange{src, target} {
			area.Addresses(func(a SimpleCellAddress) bool {
				e.pending.add(cellChange{addr: a, old: before[a], new: e.graph.CellValue(a)})
				return true
			})
		}
		return nil
	})
}

// AddSheet adds an empty sheet. Its id is available from SheetID.
func (e *Engine) AddSheet(name string) ([]ExportedChange, error) {
	var id int
	changes, err := e.mutate(func() error {
		var err error
		if id, err = e.sheets.AddSheet(name); err != nil {
			return err
		}
		e.graph.addSheet(id, 0, 0, 0)
		return nil
	})
	if err == nil {
		e.events.emit(Event{Type: SheetAdded, SheetID: id, SheetName: name})
	}
	return changes, err
}

// RemoveSheet removes a sheet with its content. References into it become
// #REF!.
func (e *Engine) RemoveSheet(sheet int) ([]ExportedChange, error) {
	var name string
	changes, err := e.mutate(func() error {
		if err := e.checkSheet(sheet); err != nil {
			return err
		}
		if e.sheets.Count() == 1 {
			return ErrLastSheet
		}
		name, _ = e.sheets.Name(sheet)
		e.graph.removeSheet(sheet)
		e.search.RemoveSheet(sheet)
		return e.sheets.RemoveSheet(sheet)
	})
	if err == nil {
		e.events.emit(Event{Type: SheetRemoved, SheetID: sheet, SheetName: name})
	}
	return changes, err
}

// RenameSheet changes the name of a sheet. Formulas keep pointing at it.
func (e *Engine) RenameSheet(sheet int, name string) ([]ExportedChange, error) {
	var old string
	changes, err := e.mutate(func() error {
		var err error
		if old, err = e.sheets.RenameSheet(sheet, name); err != nil {
			return err
		}
		e.graph.renameSheet(sheet)
		return nil
	})
	if err == nil {
		e.events.emit(Event{Type: SheetRenamed, SheetID: sheet, SheetName: name, OldName: old})
	}
	return changes, err
}

// ClearSheet empties every cell of a sheet.
func (e *Engine) ClearSheet(sheet int) ([]ExportedChange, error) {
	return e.mutate(func() error {
		if err := e.checkSheet(sheet); err != nil {
			return err
		}
		e.graph.clearSheet(sheet)
		return nil
	})
}

// CellValue returns the computed value of a cell.
func (e *Engine) CellValue(addr SimpleCellAddress) (Value, error) {
	if err := e.checkAddress(addr); err != nil {
		return Value{}, err
	}
	return e.graph.CellValue(addr), nil
}

// CellFormula returns the formula of a cell rewritten to its current
// position, or "" when the cell holds no formula. Only the top-left cell of
// an array formula has one.
func (e *Engine) CellFormula(addr SimpleCellAddress) (string, error) {
	if err := e.checkAddress(addr); err != nil {
		return "", err
	}
	f := e.graph.formula(e.addresses.cell(addr))
	if f == nil || f.address != addr {
		return "", nil
	}
	if f.ast.Type == AstError && f.ast.Error == ErrorError {
		return f.raw, nil
	}
	return Unparse(f.ast, f.address, e.sheetName), nil
}

// ArrayValues returns a copy of the block of values holding addr when the
// cell belongs to an array formula or a detected matrix, and nil otherwise.
// The copy is the caller's to change.
func (e *Engine) ArrayValues(addr SimpleCellAddress) (*ArrayValue, error) {
	if err := e.checkAddress(addr); err != nil {
		return nil, err
	}
	v := e.graph.g.get(e.addresses.cell(addr))
	var src *ArrayValue
	switch {
	case v == nil:
	case v.kind == kindMatrix:
		src = v.matrix.values
	case v.kind == kindArray:
		src = e.graph.sync(v).array.values
	}
	if src == nil {
		return nil, nil
	}
	var dst ArrayValue
	if err := deepcopy.Copy(&dst, *src); err != nil {
		return nil, fmt.Errorf("copy array values: %w", err)
	}
	return &dst, nil
}

func (e *Engine) sheetName(id int) string {
	name, _ := e.sheets.Name(id)
	return name
}

// SheetValues returns the computed values of a sheet's used area.
func (e *Engine) SheetValues(sheet int) ([][]Value, error) {
	width, height, err := e.Dimensions(sheet)
	if err != nil {
		return nil, err
	}
	out := make([][]Value, height)
	for r := range out {
		out[r] = make([]Value, width)
		for c := range out[r] {
			out[r][c] = e.graph.CellValue(Addr(sheet, c, r))
		}
	}
	return out, nil
}

// Dimensions returns the used width and height of a sheet.
func (e *Engine) Dimensions(sheet int) (width, height int, err error) {
	if err := e.checkSheet(sheet); err != nil {
		return 0, 0, err
	}
	return e.addresses.Width(sheet), e.addresses.Height(sheet), nil
}

// SheetID returns the id of the named sheet.
func (e *Engine) SheetID(name string) (int, bool) {
	return e.sheets.ID(name)
}

// SheetName returns the name of a sheet.
func (e *Engine) SheetName(sheet int) (string, bool) {
	return e.sheets.Name(sheet)
}

// Sheets returns the sheet names in creation order.
func (e *Engine) Sheets() []string {
	ids := e.sheets.Sheets()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = e.sheetName(id)
	}
	return names
}

// Address parses "Sheet!A1", or "A1" on the first sheet.
func (e *Engine) Address(text string) (SimpleCellAddress, error) {
	sheet := -1
	if ids := e.sheets.Sheets(); len(ids) > 0 {
		sheet = ids[0]
	}
	addr, err := ParseAddress(strings.TrimSpace(text), e.sheets, sheet)
	if err != nil {
		return SimpleCellAddress{}, err
	}
	if err := e.checkAddress(addr); err != nil {
		return SimpleCellAddress{}, err
	}
	return addr, nil
}

// FormatAddress renders addr as "Sheet!A1".
func (e *Engine) FormatAddress(addr SimpleCellAddress) string {
	return quoteSheet(e.sheetName(addr.Sheet)) + "!" + addr.String()
}

// RegisterFunction adds or replaces a function. Formulas already calling it
// are recomputed and the changes reported through ValuesUpdated.
func (e *Engine) RegisterFunction(name string, meta FunctionMetadata) error {
	if e.closed {
		return ErrEngineClosed
	}
	if err := e.registry.Register(name, meta); err != nil {
		return err
	}
	e.refreshCallers(strings.ToUpper(strings.TrimSpace(name)), meta)
	return nil
}

// RegisterAsyncFunction adds a function computed off the engine goroutine.
// Cells calling it hold a pending value until the result is applied by
// ProcessAsync or WaitForAsync.
func (e *Engine) RegisterAsyncFunction(name string, fn AsyncFunction) error {
	return e.RegisterFunction(name, FunctionMetadata{Async: fn})
}

// refreshCallers marks the formulas calling name dirty and recomputes them.
func (e *Engine) refreshCallers(name string, meta FunctionMetadata) {
	calls := func(n string) bool { return n == name }
	e.graph.g.forEach(func(id VertexID, v *vertex) {
		if !v.isFormula() || !containsFunction(v.formula.ast, calls) {
			return
		}
		if meta.Volatile {
			e.graph.g.volatile[id] = struct{}{}
		}
		if meta.Structural {
			e.graph.g.structural[id] = struct{}{}
		}
		e.graph.markDirty(id)
	})
	if e.batchDepth == 0 {
		e.recompute()
	}
}

// ProcessAsync applies the async results which arrived so far without
// blocking and recomputes the cells depending on them.
func (e *Engine) ProcessAsync() ([]ExportedChange, error) {
	if e.closed {
		return nil, ErrEngineClosed
	}
	results := e.async.drain()
	if len(results) == 0 {
		return nil, nil
	}
	start := time.Now()
	var roots []VertexID
	for _, r := range results {
		v := e.graph.g.get(r.vertex)
		if v == nil || !v.isFormula() {
			continue
		}
		call, ok := v.formula.async[r.key]
		if !ok || call.id != r.id {
			continue
		}
		call.resolved, call.value = true, r.value
		roots = append(roots, r.vertex)
	}
	e.stats.add(statAsync, time.Since(start))
	if len(roots) == 0 {
		return nil, nil
	}
	e.pending.add(e.evaluator.PartialRun(roots)...)
	out := e.pending.take()
	if len(out) > 0 {
		e.events.emit(Event{Type: ValuesUpdated, Changes: out})
	}
	return out, nil
}

// WaitForAsync applies async results until no call is running, or ctx is
// done. It returns the changes of every application in order.
func (e *Engine) WaitForAsync(ctx context.Context) ([]ExportedChange, error) {
	var all []ExportedChange
	for {
		changes, err := e.ProcessAsync()
		if err != nil {
			return all, err
		}
		all = append(all, changes...)
		if !e.async.busy() {
			return all, nil
		}
		select {
		case <-e.async.notify:
		case <-ctx.Done():
			return all, ctx.Err()
		}
	}
}

// Close cancels running async calls and waits for them to return. The
// engine can not be used afterwards.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.async.close()
	return nil
}

// EvaluationOrder returns the formula cells in the order a full
// recomputation visits them. Cells of one cycle form one group; every other
// group holds a single cell.
func (e *Engine) EvaluationOrder() [][]SimpleCellAddress {
	var all []VertexID
	e.graph.g.forEach(func(id VertexID, _ *vertex) {
		all = append(all, id)
	})
	var out [][]SimpleCellAddress
	for _, comp := range topoSort(e.graph.g, all) {
		var group []SimpleCellAddress
		for _, id := range comp.ids {
			if addr, ok := e.graph.vertexAddress(id); ok {
				group = append(group, addr)
			}
		}
		if len(group) > 0 {
			out = append(out, group)
		}
	}
	return out
}

// Precedents returns the cells and ranges the formula at addr reads.
func (e *Engine) Precedents(addr SimpleCellAddress) ([]AbsoluteCellRange, error) {
	if err := e.checkAddress(addr); err != nil {
		return nil, err
	}
	f := e.graph.formula(e.addresses.cell(addr))
	if f == nil {
		return nil, nil
	}
	var out []AbsoluteCellRange
	for _, dep := range collectDependencies(f.ast, f.address, e.registry) {
		switch {
		case dep.name != "":
			// names are not cells
		case dep.isRange:
			out = append(out, dep.rng)
		default:
			out = append(out, RangeFrom(dep.addr, 1, 1))
		}
	}
	return out, nil
}

// Dependents returns the formula cells reading addr directly or through a
// range, in creation order.
func (e *Engine) Dependents(addr SimpleCellAddress) ([]SimpleCellAddress, error) {
	if err := e.checkAddress(addr); err != nil {
		return nil, err
	}
	id := e.addresses.cell(addr)
	if id == noVertex {
		return nil, nil
	}
	matrix := e.graph.g.get(id).kind == kindMatrix
	var out []SimpleCellAddress
	for _, r := range e.graph.readers(id) {
		if matrix && !e.graph.readsCell(r, addr) {
			continue
		}
		if a, ok := e.graph.vertexAddress(r); ok {
			out = append(out, a)
		}
	}
	return out, nil
}
