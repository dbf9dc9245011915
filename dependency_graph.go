// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package formulagraph

import (
	"slices"
)

// cellChange is a value transition of one cell made outside evaluation,
// e.g. by writing a literal or freeing part of an array.
type cellChange struct {
	addr     SimpleCellAddress
	old, new Value
}

// DependencyGraph owns the vertices of an engine together with the address
// and range indexes pointing at them. Edges run from a cell or range to the
// formulas and ranges reading it.
type DependencyGraph struct {
	g         *graph
	addresses *AddressMapping
	ranges    *RangeMapping
	arrays    map[VertexID]struct{}
	matrices  map[VertexID]struct{}
	lazy      *LazilyTransformingAstService
	registry  *FunctionRegistry

	maxRows    int
	maxColumns int

	// names maps an upper-cased named expression to its vertex; nameOf is
	// the reverse. Undefined names read by formulas hold empty vertices.
	names  map[string]VertexID
	nameOf map[VertexID]string

	dirty   map[VertexID]struct{}
	changes []cellChange
}

func newDependencyGraph(addresses *AddressMapping, lazy *LazilyTransformingAstService, registry *FunctionRegistry, maxRows, maxColumns int) *DependencyGraph {
	return &DependencyGraph{
		g:          newGraph(),
		addresses:  addresses,
		ranges:     newRangeMapping(),
		arrays:     make(map[VertexID]struct{}),
		matrices:   make(map[VertexID]struct{}),
		lazy:       lazy,
		registry:   registry,
		maxRows:    maxRows,
		maxColumns: maxColumns,
		names:      make(map[string]VertexID),
		nameOf:     make(map[VertexID]string),
		dirty:      make(map[VertexID]struct{}),
	}
}

// sync replays pending structural edits on a formula vertex.
func (d *DependencyGraph) sync(v *vertex) *formulaCell {
	f := v.formula
	f.address, f.version = d.lazy.Apply(f.ast, f.address, f.version)
	return f
}

// formula returns the up to date formula of id, or nil.
func (d *DependencyGraph) formula(id VertexID) *formulaCell {
	v := d.g.get(id)
	if v == nil || !v.isFormula() {
		return nil
	}
	return d.sync(v)
}

// CellValue returns the current value at addr.
func (d *DependencyGraph) CellValue(addr SimpleCellAddress) Value {
	v := d.g.get(d.addresses.cell(addr))
	if v == nil {
		return EmptyValue()
	}
	if v.kind == kindArray {
		d.sync(v)
	}
	return v.cellValue(addr)
}

// arrayRange returns the rectangle owned by an array vertex.
func (d *DependencyGraph) arrayRange(id VertexID) AbsoluteCellRange {
	f := d.sync(d.g.get(id))
	return RangeFrom(f.address, f.array.width, f.array.height)
}

func (d *DependencyGraph) clamp(rng AbsoluteCellRange) AbsoluteCellRange {
	if rng.IsFinite() {
		return rng
	}
	return rng.Clamp(d.addresses.Width(rng.Sheet()), d.addresses.Height(rng.Sheet()))
}

func (d *DependencyGraph) markDirty(ids ...VertexID) {
	for _, id := range ids {
		d.dirty[id] = struct{}{}
	}
}

func (d *DependencyGraph) markDependentsDirty(id VertexID) {
	d.markDirty(d.g.dependents(id)...)
}

// markSpecialDirty marks the vertices whose value may change on any
// structural edit.
func (d *DependencyGraph) markSpecialDirty(sheet int) {
	for id := range d.g.structural {
		d.dirty[id] = struct{}{}
	}
	for id := range d.g.infinite {
		if d.g.get(id).rng.rng.Sheet() == sheet {
			d.dirty[id] = struct{}{}
		}
	}
}

// takeDirty returns and clears the vertices awaiting recomputation in
// creation order.
func (d *DependencyGraph) takeDirty() []VertexID {
	ids := make([]VertexID, 0, len(d.dirty))
	for id := range d.dirty {
		if d.g.exists(id) {
			ids = append(ids, id)
		}
	}
	clear(d.dirty)
	d.sortBySeq(ids)
	return ids
}

func (d *DependencyGraph) sortBySeq(ids []VertexID) {
	slices.SortFunc(ids, func(a, b VertexID) int {
		sa, sb := d.g.vertices[a].seq, d.g.vertices[b].seq
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	})
}

func (d *DependencyGraph) noteChange(addr SimpleCellAddress, old, new Value) {
	if !sameValue(old, new) {
		d.changes = append(d.changes, cellChange{addr: addr, old: old, new: new})
	}
}

func (d *DependencyGraph) takeChanges() []cellChange {
	out := d.changes
	d.changes = nil
	return out
}

// place stores id at addr and subscribes it to the whole row and column
// ranges covering addr.
func (d *DependencyGraph) place(addr SimpleCellAddress, id VertexID) {
	_ = d.addresses.SetCell(addr, id)
	for rid := range d.g.infinite {
		if d.g.get(rid).rng.rng.Contains(addr) {
			d.g.addEdge(id, rid)
		}
	}
}

// fetchOrCreateEmpty returns the vertex at addr, creating an empty
// placeholder when the cell has no content.
func (d *DependencyGraph) fetchOrCreateEmpty(addr SimpleCellAddress) VertexID {
	if id := d.addresses.cell(addr); id != noVertex {
		return id
	}
	id := d.g.add(&vertex{kind: kindEmpty})
	d.place(addr, id)
	return id
}

// release removes the vertices among ids which nobody reads any more.
// Unused ranges are always removed; empty placeholders are removed when
// they lie inside one of areas, which is how their address is found.
func (d *DependencyGraph) release(ids []VertexID, areas []AbsoluteCellRange) {
	for len(ids) > 0 {
		empties := make(map[VertexID]struct{})
		var next []VertexID
		var nextAreas []AbsoluteCellRange
		for _, id := range ids {
			v := d.g.get(id)
			if v == nil || d.g.out[id].len() > 0 {
				continue
			}
			if name, ok := d.nameOf[id]; ok {
				if v.kind == kindEmpty {
					delete(d.names, name)
					delete(d.nameOf, id)
					d.g.remove(id)
				}
				continue
			}
			switch v.kind {
			case kindEmpty:
				empties[id] = struct{}{}
			case kindRange:
				d.ranges.remove(v.rng.rng)
				next = append(next, d.g.remove(id)...)
				nextAreas = append(nextAreas, v.rng.rng)
			}
		}
		for _, area := range areas {
			if len(empties) == 0 {
				break
			}
			d.clamp(area).Addresses(func(a SimpleCellAddress) bool {
				id := d.addresses.cell(a)
				if _, ok := empties[id]; ok {
					_ = d.addresses.RemoveCell(a)
					d.g.remove(id)
					delete(empties, id)
				}
				return len(empties) > 0
			})
		}
		ids, areas = next, nextAreas
	}
}

// cellDependencies returns the single cells a formula reads as 1×1 areas.
func (d *DependencyGraph) cellDependencies(f *formulaCell) []AbsoluteCellRange {
	var areas []AbsoluteCellRange
	for _, dep := range collectDependencies(f.ast, f.address, d.registry) {
		if !dep.isRange && dep.name == "" {
			areas = append(areas, RangeFrom(dep.addr, 1, 1))
		}
	}
	return areas
}

// detach drops the incoming edges of a formula vertex and releases what it
// used to read.
func (d *DependencyGraph) detach(id VertexID) {
	v := d.g.get(id)
	var areas []AbsoluteCellRange
	if v.isFormula() {
		areas = d.cellDependencies(d.sync(v))
	}
	former := slices.Clone(d.g.dependencies(id))
	for _, dep := range former {
		d.g.removeEdge(dep, id)
	}
	d.release(former, areas)
}

// dropVertex removes a cell vertex with its edges. The caller clears the
// address mapping.
func (d *DependencyGraph) dropVertex(id VertexID) {
	if v := d.g.get(id); v != nil && v.isFormula() {
		d.detach(id)
	}
	d.g.remove(id)
	delete(d.arrays, id)
	delete(d.matrices, id)
}

// reads reports whether the vertex dd reads the single cell addr.
func (d *DependencyGraph) reads(dd VertexID, addr SimpleCellAddress) bool {
	v := d.g.get(dd)
	switch {
	case v == nil:
		return false
	case v.kind == kindRange:
		return v.rng.rng.Contains(addr)
	case v.isFormula():
		for _, area := range d.cellDependencies(d.sync(v)) {
			if area.Start == addr {
				return true
			}
		}
	}
	return false
}

// vacate prepares addr for new content. It returns the vertex which keeps
// the cell's dependents and may be overwritten in place, or noVertex.
func (d *DependencyGraph) vacate(addr SimpleCellAddress) VertexID {
	id := d.addresses.cell(addr)
	v := d.g.get(id)
	if v == nil {
		return noVertex
	}
	switch v.kind {
	case kindMatrix:
		d.explodeMatrix(id)
		return d.vacate(addr)
	case kindArray:
		if f := d.sync(v); f.address != addr {
			d.shrinkArray(id, addr)
			return d.vacate(addr)
		}
		d.shrinkArrayTo(id, 1, 1)
		delete(d.arrays, id)
		fallthrough
	case kindFormula:
		d.detach(id)
		delete(d.g.volatile, id)
		delete(d.g.structural, id)
	}
	return id
}

// shrinkArray frees the cell addr of an array by keeping the larger of the
// block left of it and the block above it.
func (d *DependencyGraph) shrinkArray(id VertexID, addr SimpleCellAddress) {
	f := d.sync(d.g.get(id))
	w, h := f.array.width, f.array.height
	dc, dr := addr.Col-f.address.Col, addr.Row-f.address.Row
	if dc*h >= w*dr {
		d.shrinkArrayTo(id, dc, h)
		return
	}
	d.shrinkArrayTo(id, w, dr)
}

// shrinkArrayTo cuts an array down to width×height. Freed cells lose their
// vertex and their readers are subscribed to empty placeholders.
func (d *DependencyGraph) shrinkArrayTo(id VertexID, width, height int) {
	v := d.g.get(id)
	f := d.sync(v)
	old := RangeFrom(f.address, f.array.width, f.array.height)
	kept := RangeFrom(f.address, width, height)
	var freed []SimpleCellAddress
	old.Addresses(func(a SimpleCellAddress) bool {
		if !kept.Contains(a) {
			d.noteChange(a, v.cellValue(a), EmptyValue())
			_ = d.addresses.RemoveCell(a)
			freed = append(freed, a)
		}
		return true
	})
	f.array.width, f.array.height = width, height
	if vals := f.array.values; vals != nil {
		cut := newArrayValue(width, height)
		for r := range height {
			for c := range width {
				cut.Data[r][c] = vals.At(c, r)
			}
		}
		f.array.values = cut
	}
	readers := slices.Clone(d.g.dependents(id))
	for _, a := range freed {
		ph := noVertex
		for _, dd := range readers {
			if d.reads(dd, a) {
				if ph == noVertex {
					ph = d.fetchOrCreateEmpty(a)
				}
				d.g.addEdge(ph, dd)
			}
		}
	}
	d.markDirty(readers...)
}

// SetValue stores a literal at addr.
func (d *DependencyGraph) SetValue(addr SimpleCellAddress, raw string, parsed Value) {
	old := d.CellValue(addr)
	payload := &valueCell{raw: raw, parsed: parsed}
	id := d.vacate(addr)
	if id == noVertex {
		id = d.g.add(&vertex{kind: kindValue, value: payload})
		d.place(addr, id)
	} else {
		v := d.g.get(id)
		*v = vertex{kind: kindValue, seq: v.seq, value: payload}
	}
	d.noteChange(addr, old, parsed)
	d.markDirty(id)
}

// SetEmpty clears addr. A vertex which still has readers stays behind as an
// empty placeholder.
func (d *DependencyGraph) SetEmpty(addr SimpleCellAddress) {
	old := d.CellValue(addr)
	id := d.vacate(addr)
	if id == noVertex {
		return
	}
	d.noteChange(addr, old, EmptyValue())
	if d.g.out[id].len() > 0 {
		v := d.g.get(id)
		*v = vertex{kind: kindEmpty, seq: v.seq}
		d.markDirty(id)
		return
	}
	_ = d.addresses.RemoveCell(addr)
	d.g.remove(id)
}

// fits reports whether an array may occupy rect: it must stay inside the
// sheet limits and every cell but the origin must be free.
func (d *DependencyGraph) fits(rect AbsoluteCellRange) bool {
	if rect.End.Row >= d.maxRows || rect.End.Col >= d.maxColumns {
		return false
	}
	ok := true
	rect.Addresses(func(a SimpleCellAddress) bool {
		if a == rect.Start {
			return true
		}
		if v := d.g.get(d.addresses.cell(a)); v != nil && v.kind != kindEmpty {
			ok = false
		}
		return ok
	})
	return ok
}

// SetFormula stores a formula at addr. A formula whose predicted size is not
// scalar becomes an array owning its whole rectangle, unless the rectangle
// is taken, in which case it holds REF.
func (d *DependencyGraph) SetFormula(addr SimpleCellAddress, ast *Ast, raw string, size ArraySize) VertexID {
	old := d.CellValue(addr)
	f := &formulaCell{ast: ast, raw: raw, address: addr, version: d.lazy.Version()}
	kind := kindFormula
	id := d.vacate(addr)
	switch {
	case size.Err != ErrorNone:
		f.shapeError = CellError(size.Err, size.Message)
	case !size.IsScalar():
		if rect := RangeFrom(addr, size.Width, size.Height); d.fits(rect) {
			kind = kindArray
			f.array = &arraySpill{size: size, width: size.Width, height: size.Height}
		} else {
			f.shapeError = CellError(ErrorRef, "array result would overwrite data")
		}
	}
	if id == noVertex {
		id = d.g.add(&vertex{kind: kind, formula: f})
		d.place(addr, id)
	} else {
		v := d.g.get(id)
		*v = vertex{kind: kind, seq: v.seq, formula: f}
	}
	if kind == kindArray {
		d.claim(id, RangeFrom(addr, size.Width, size.Height))
	}
	d.processCellDependencies(collectDependencies(ast, addr, d.registry), id)
	f.volatile = containsFunction(ast, d.registry.isVolatile)
	f.structural = containsFunction(ast, d.registry.isStructural)
	if f.volatile {
		d.g.volatile[id] = struct{}{}
	}
	if f.structural {
		d.g.structural[id] = struct{}{}
	}
	d.noteChange(addr, old, EmptyValue())
	d.markDirty(id)
	return id
}

// claim maps every cell of rect to the array vertex id, taking over the
// readers of placeholders found there.
func (d *DependencyGraph) claim(id VertexID, rect AbsoluteCellRange) {
	d.arrays[id] = struct{}{}
	rect.Addresses(func(a SimpleCellAddress) bool {
		if a == rect.Start {
			return true
		}
		if ph := d.addresses.cell(a); ph != noVertex {
			for _, dd := range d.g.dependents(ph) {
				d.g.addEdge(id, dd)
			}
			_ = d.addresses.RemoveCell(a)
			d.g.remove(ph)
		}
		d.place(a, id)
		return true
	})
}

// processCellDependencies adds the edges from everything a formula reads.
func (d *DependencyGraph) processCellDependencies(deps []dependency, id VertexID) {
	for _, dep := range deps {
		if dep.name != "" {
			d.g.addEdge(d.nameVertex(dep.name), id)
			continue
		}
		if dep.isRange {
			if !d.addresses.HasSheet(dep.rng.Sheet()) {
				continue
			}
			d.g.addEdge(d.rangeVertex(dep.rng), id)
			continue
		}
		if !d.addresses.HasSheet(dep.addr.Sheet) {
			continue
		}
		d.g.addEdge(d.fetchOrCreateEmpty(dep.addr), id)
	}
}

// rangeVertex returns the vertex of rng, creating and wiring it on first
// use.
func (d *DependencyGraph) rangeVertex(rng AbsoluteCellRange) VertexID {
	if id, ok := d.ranges.get(rng); ok {
		return id
	}
	id := d.g.add(&vertex{kind: kindRange, rng: newRangeVertex(rng)})
	d.ranges.set(rng, id)
	d.attachRange(id)
	return id
}

// attachRange adds the incoming edges of a range vertex. A finite range
// chains from the range one row shorter when it exists and reads only its
// last row directly; otherwise it reads every cell. Whole row and column
// ranges read the cells present now and are kept subscribed by place.
func (d *DependencyGraph) attachRange(id VertexID) {
	rv := d.g.get(id).rng
	rng := rv.rng
	if !rng.IsFinite() {
		d.g.infinite[id] = struct{}{}
		clamped := d.clamp(rng)
		if clamped.IsEmpty() {
			return
		}
		visit := func(a SimpleCellAddress, cid VertexID) {
			if rng.Contains(a) {
				d.g.addEdge(cid, id)
			}
		}
		if rng.End.Row == Unbounded {
			d.addresses.ColumnsEntries(Span{Sheet: rng.Sheet(), Start: rng.Start.Col, End: clamped.End.Col + 1}, visit)
		} else {
			d.addresses.RowsEntries(Span{Sheet: rng.Sheet(), Start: rng.Start.Row, End: clamped.End.Row + 1}, visit)
		}
		return
	}
	smaller, rest, ok := d.ranges.findSmallerRange(rng)
	rv.bruteForce = !ok
	if ok {
		d.g.addEdge(smaller, id)
	}
	rest.Addresses(func(a SimpleCellAddress) bool {
		d.g.addEdge(d.fetchOrCreateEmpty(a), id)
		return true
	})
	// a brute force range one row taller can now chain from this one
	taller := rng
	taller.End.Row++
	if tid, ok := d.ranges.get(taller); ok && d.g.get(tid).rng.bruteForce {
		rng.Addresses(func(a SimpleCellAddress) bool {
			d.g.removeEdge(d.addresses.cell(a), tid)
			return true
		})
		d.g.addEdge(id, tid)
		d.g.get(tid).rng.bruteForce = false
	}
}

// rebuildRange rewires a range vertex whose rectangle changed.
func (d *DependencyGraph) rebuildRange(id VertexID) {
	for _, dep := range slices.Clone(d.g.dependencies(id)) {
		d.g.removeEdge(dep, id)
	}
	delete(d.g.infinite, id)
	d.attachRange(id)
}

// mergeRange moves the readers of victim onto survivor, two range vertices
// which ended up with the same rectangle, and removes victim.
func (d *DependencyGraph) mergeRange(survivor, victim VertexID) {
	for _, dd := range slices.Clone(d.g.dependents(victim)) {
		d.g.addEdge(survivor, dd)
	}
	d.markDependentsDirty(victim)
	d.g.remove(victim)
}

// arraysOn returns the array vertices of a sheet with their rectangles.
func (d *DependencyGraph) arraysOn(sheet int) []rangeEntry {
	var out []rangeEntry
	for id := range d.arrays {
		if r := d.arrayRange(id); r.Sheet() == sheet {
			out = append(out, rangeEntry{rng: r, id: id})
		}
	}
	return out
}

// canInsert reports whether inserting at index at does not split an array.
func (d *DependencyGraph) canInsert(ax axis, sheet, at int) bool {
	for _, e := range d.arraysOn(sheet) {
		if ax.of(e.rng.Start) < at && at <= ax.of(e.rng.End) {
			return false
		}
	}
	return true
}

// canRemove reports whether every array touching span lies inside it.
func (d *DependencyGraph) canRemove(ax axis, span Span) bool {
	for _, e := range d.arraysOn(span.Sheet) {
		start, end := ax.of(e.rng.Start), ax.of(e.rng.End)
		if start < span.End && end >= span.Start && (start < span.Start || end >= span.End) {
			return false
		}
	}
	return true
}

// canMove reports whether no array intersects any of areas.
func (d *DependencyGraph) canMove(areas ...AbsoluteCellRange) bool {
	for id := range d.arrays {
		r := d.arrayRange(id)
		for _, area := range areas {
			if r.Intersects(area) {
				return false
			}
		}
	}
	return true
}

// insertSpan inserts count rows or columns before index at.
func (d *DependencyGraph) insertSpan(ax axis, sheet, at, count int) {
	d.explodeMatrices(sheet)
	if ax == rowAxis {
		d.lazy.add(newAddRowsTransformer(sheet, at, count))
		_ = d.addresses.AddRows(sheet, at, count)
	} else {
		d.lazy.add(newAddColumnsTransformer(sheet, at, count))
		_ = d.addresses.AddColumns(sheet, at, count)
	}
	changed, _, _ := d.ranges.update(sheet, func(r AbsoluteCellRange) (AbsoluteCellRange, bool) {
		if ax.unbounded(r) {
			return r, true
		}
		start, end := ax.of(r.Start), ax.of(r.End)
		switch {
		case start >= at:
			r.Start, r.End = ax.with(r.Start, start+count), ax.with(r.End, end+count)
		case at <= end:
			r.End = ax.with(r.End, end+count)
		}
		return r, true
	})
	d.applyRangeChanges(changed)
	d.markSpecialDirty(sheet)
}

// removeSpan deletes the rows or columns of span.
func (d *DependencyGraph) removeSpan(ax axis, span Span) {
	d.explodeMatrices(span.Sheet)
	var victims []VertexID
	seen := make(map[VertexID]struct{})
	collect := func(_ SimpleCellAddress, id VertexID) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			victims = append(victims, id)
		}
	}
	if ax == rowAxis {
		d.addresses.RowsEntries(span, collect)
	} else {
		d.addresses.ColumnsEntries(span, collect)
	}
	for _, id := range victims {
		if d.g.exists(id) {
			d.markDependentsDirty(id)
		}
	}
	for _, id := range victims {
		if d.g.exists(id) {
			d.dropVertex(id)
		}
	}
	if ax == rowAxis {
		d.lazy.add(newRemoveRowsTransformer(span))
		_ = d.addresses.RemoveRows(span)
	} else {
		d.lazy.add(newRemoveColumnsTransformer(span))
		_ = d.addresses.RemoveColumns(span)
	}
	n := span.Count()
	changed, dropped, collisions := d.ranges.update(span.Sheet, func(r AbsoluteCellRange) (AbsoluteCellRange, bool) {
		if ax.unbounded(r) {
			return r, true
		}
		start, end := ax.of(r.Start), ax.of(r.End)
		if start >= span.Start && end < span.End {
			return r, false
		}
		switch {
		case start >= span.End:
			start -= n
		case start >= span.Start:
			start = span.Start
		}
		switch {
		case end >= span.End:
			end -= n
		case end >= span.Start:
			end = span.Start - 1
		}
		r.Start, r.End = ax.with(r.Start, start), ax.with(r.End, end)
		return r, !r.IsEmpty()
	})
	for _, id := range dropped {
		if d.g.exists(id) {
			d.markDependentsDirty(id)
			d.g.remove(id)
		}
	}
	var merged []VertexID
	for _, pair := range collisions {
		d.mergeRange(pair[0], pair[1])
		merged = append(merged, pair[0])
	}
	d.applyRangeChanges(changed, merged...)
	d.markSpecialDirty(span.Sheet)
}

// applyRangeChanges stores new rectangles on range vertices. Ranges which
// only moved keep their edges; resized ones and the survivors of merges
// are rewired.
func (d *DependencyGraph) applyRangeChanges(changed []rangeEntry, merged ...VertexID) {
	resized := slices.Clone(merged)
	for _, e := range changed {
		rv := d.g.get(e.id).rng
		if rv.rng.Width() != e.rng.Width() || rv.rng.Height() != e.rng.Height() {
			resized = append(resized, e.id)
		}
		rv.rng = e.rng
	}
	slices.Sort(resized)
	for _, id := range slices.Compact(resized) {
		d.rebuildRange(id)
		d.markDirty(id)
	}
}

// movedVertex is one vertex relocated by moveCells.
type movedVertex struct {
	from, to SimpleCellAddress
	id       VertexID
}

// moveCells relocates the content of src so that its top-left corner lands
// on dst. Content previously at the target is overwritten; its readers now
// read the moved-in cells.
func (d *DependencyGraph) moveCells(src AbsoluteCellRange, dst SimpleCellAddress) {
	d.explodeMatrices(src.Sheet())
	if dst.Sheet != src.Sheet() {
		d.explodeMatrices(dst.Sheet)
	}
	dCol, dRow := dst.Col-src.Start.Col, dst.Row-src.Start.Row
	target := RangeFrom(dst, src.Width(), src.Height())
	var moved []movedVertex
	d.addresses.RowsEntries(Span{Sheet: src.Sheet(), Start: src.Start.Row, End: src.End.Row + 1}, func(a SimpleCellAddress, id VertexID) {
		if src.Contains(a) {
			moved = append(moved, movedVertex{from: a, to: Addr(dst.Sheet, a.Col+dCol, a.Row+dRow), id: id})
		}
	})
	for _, m := range moved {
		_ = d.addresses.RemoveCell(m.from)
	}
	d.lazy.add(newMoveTransformer(src, dst.Sheet, dCol, dRow))

	overwritten := make(map[SimpleCellAddress]VertexID)
	target.Addresses(func(a SimpleCellAddress) bool {
		if id := d.addresses.cell(a); id != noVertex {
			overwritten[a] = id
			_ = d.addresses.RemoveCell(a)
		}
		return true
	})
	for _, m := range moved {
		d.place(m.to, m.id)
		d.markDirty(m.id)
	}
	for _, m := range moved {
		old, ok := overwritten[m.to]
		if !ok {
			continue
		}
		delete(overwritten, m.to)
		for _, dd := range d.g.dependents(old) {
			d.g.addEdge(m.id, dd)
		}
		d.markDependentsDirty(old)
		d.noteChange(m.to, d.g.get(old).cellValue(m.to), EmptyValue())
		d.dropVertex(old)
	}
	for a, old := range overwritten {
		d.noteChange(a, d.g.get(old).cellValue(a), EmptyValue())
		if d.g.out[old].len() == 0 {
			d.dropVertex(old)
			continue
		}
		if v := d.g.get(old); v.isFormula() {
			d.detach(old)
			delete(d.g.volatile, old)
			delete(d.g.structural, old)
		}
		v := d.g.get(old)
		*v = vertex{kind: kindEmpty, seq: v.seq}
		_ = d.addresses.SetCell(a, old)
		d.markDirty(old)
	}

	for _, e := range d.ranges.containedIn(src) {
		next := RangeFrom(Addr(dst.Sheet, e.rng.Start.Col+dCol, e.rng.Start.Row+dRow), e.rng.Width(), e.rng.Height())
		d.ranges.remove(e.rng)
		if other, ok := d.ranges.get(next); ok {
			d.mergeRange(other, e.id)
			d.markDirty(other)
			continue
		}
		d.ranges.set(next, e.id)
		d.g.get(e.id).rng.rng = next
		d.markDirty(e.id)
	}
	// ranges which stayed behind read the vacated cells through
	// placeholders
	for _, m := range moved {
		for _, dd := range slices.Clone(d.g.dependents(m.id)) {
			v := d.g.get(dd)
			if v.kind != kindRange {
				continue
			}
			rng := v.rng.rng
			if rng.Contains(m.from) {
				d.g.addEdge(d.fetchOrCreateEmpty(m.from), dd)
				d.markDirty(dd)
			}
			if !rng.Contains(m.to) {
				d.g.removeEdge(m.id, dd)
				d.markDirty(dd)
			}
		}
	}
	d.markSpecialDirty(src.Sheet())
	if dst.Sheet != src.Sheet() {
		d.markSpecialDirty(dst.Sheet)
	}
}

// addSheet registers the storage of a new sheet.
func (d *DependencyGraph) addSheet(sheet, width, height, filled int) {
	d.addresses.AutoAddSheet(sheet, width, height, filled)
	d.lazy.add(&sheetTransformer{sheet: sheet})
}

// renameSheet logs a rename so the transformation history stays complete.
func (d *DependencyGraph) renameSheet(sheet int) {
	d.lazy.add(&sheetTransformer{sheet: sheet})
}

// sheetVertices returns the distinct vertices stored on a sheet.
func (d *DependencyGraph) sheetVertices(sheet int) []VertexID {
	var ids []VertexID
	seen := make(map[VertexID]struct{})
	d.addresses.SheetEntries(sheet, func(_ SimpleCellAddress, id VertexID) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	})
	return ids
}

// removeSheet drops every vertex of a sheet. References into it become REF.
func (d *DependencyGraph) removeSheet(sheet int) {
	victims := d.sheetVertices(sheet)
	for _, id := range victims {
		d.markDependentsDirty(id)
	}
	for _, id := range victims {
		if d.g.exists(id) {
			d.dropVertex(id)
		}
	}
	for _, id := range d.ranges.removeSheet(sheet) {
		if d.g.exists(id) {
			d.markDependentsDirty(id)
			d.g.remove(id)
		}
	}
	d.lazy.add(&sheetTransformer{sheet: sheet, remove: true})
	_ = d.addresses.RemoveSheet(sheet)
}

// clearSheet empties every cell of a sheet, keeping placeholders for cells
// other sheets still read.
func (d *DependencyGraph) clearSheet(sheet int) {
	var addrs []SimpleCellAddress
	d.addresses.SheetEntries(sheet, func(a SimpleCellAddress, id VertexID) {
		if v := d.g.get(id); v.kind != kindArray || d.sync(v).address == a {
			addrs = append(addrs, a)
		}
	})
	for _, a := range addrs {
		d.SetEmpty(a)
	}
}

// vertexAddress returns the cell a formula vertex lives in. Named
// expressions live in no cell.
func (d *DependencyGraph) vertexAddress(id VertexID) (SimpleCellAddress, bool) {
	if f := d.formula(id); f != nil && f.name == "" {
		return f.address, true
	}
	return SimpleCellAddress{}, false
}

// readers returns the formula vertices reading id directly or through
// ranges and named expressions.
func (d *DependencyGraph) readers(id VertexID) []VertexID {
	var out []VertexID
	seen := map[VertexID]struct{}{id: {}}
	stack := slices.Clone(d.g.dependents(id))
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		if _, named := d.nameOf[n]; named || d.g.get(n).kind == kindRange {
			stack = append(stack, d.g.dependents(n)...)
			continue
		}
		out = append(out, n)
	}
	d.sortBySeq(out)
	return out
}
