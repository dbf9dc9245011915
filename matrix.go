package formulagraph

import (
	"slices"
)

// numericRectangles finds blocks of number literals in the classified cells
// of a sheet. Scanning row by row, each free number starts a block which
// grows right and then down while every cell is a free number. Blocks of
// fewer than threshold cells are left alone.
func numericRectangles(sheet int, grid [][]cellContent, threshold int) []AbsoluteCellRange {
	taken := make(map[[2]int]struct{})
	free := func(r, c int) bool {
		if r >= len(grid) || c >= len(grid[r]) {
			return false
		}
		if _, ok := taken[[2]int{r, c}]; ok {
			return false
		}
		cell := grid[r][c]
		return cell.kind == contentValue && cell.value.Type == ValueNumber
	}
	var out []AbsoluteCellRange
	for r, row := range grid {
		for c := range row {
			if !free(r, c) {
				continue
			}
			w := 1
			for free(r, c+w) {
				w++
			}
			h := 1
			for ; ; h++ {
				full := true
				for i := range w {
					if !free(r+h, c+i) {
						full = false
						break
					}
				}
				if !full {
					break
				}
			}
			if w*h < threshold {
				continue
			}
			for y := r; y < r+h; y++ {
				for x := c; x < c+w; x++ {
					taken[[2]int{y, x}] = struct{}{}
				}
			}
			out = append(out, RangeFrom(Addr(sheet, c, r), w, h))
		}
	}
	return out
}

// setMatrix stores a block of numbers as one vertex mapped at every cell of
// rect.
func (d *DependencyGraph) setMatrix(rect AbsoluteCellRange, values *ArrayValue) VertexID {
	id := d.g.add(&vertex{kind: kindMatrix, matrix: &matrixBlock{origin: rect.Start, values: values}})
	d.matrices[id] = struct{}{}
	rect.Addresses(func(a SimpleCellAddress) bool {
		d.place(a, id)
		d.noteChange(a, EmptyValue(), values.At(a.Col-rect.Start.Col, a.Row-rect.Start.Row))
		return true
	})
	return id
}

// matrixRange returns the rectangle of a matrix vertex.
func (d *DependencyGraph) matrixRange(id VertexID) AbsoluteCellRange {
	m := d.g.get(id).matrix
	return RangeFrom(m.origin, m.values.Width, m.values.Height)
}

// explodeMatrix replaces a matrix by one value vertex per cell. Formulas
// reading the matrix are subscribed to the cells they read and ranges
// crossing it are rewired.
func (d *DependencyGraph) explodeMatrix(id VertexID) {
	m := d.g.get(id).matrix
	rect := d.matrixRange(id)
	readers := slices.Clone(d.g.dependents(id))
	d.g.remove(id)
	delete(d.matrices, id)
	rect.Addresses(func(a SimpleCellAddress) bool {
		val := m.values.At(a.Col-rect.Start.Col, a.Row-rect.Start.Row)
		_ = d.addresses.RemoveCell(a)
		cid := d.g.add(&vertex{kind: kindValue, value: &valueCell{raw: val.Text(), parsed: val}})
		d.place(a, cid)
		for _, dd := range readers {
			if v := d.g.get(dd); v != nil && v.kind != kindRange && d.reads(dd, a) {
				d.g.addEdge(cid, dd)
			}
		}
		return true
	})
	for _, e := range d.ranges.inSheet(rect.Sheet()) {
		if e.rng.IsFinite() && e.rng.Intersects(rect) {
			d.rebuildRange(e.id)
		}
	}
}

// explodeMatrices explodes every matrix of a sheet ahead of a structural
// edit.
func (d *DependencyGraph) explodeMatrices(sheet int) {
	var ids []VertexID
	for id := range d.matrices {
		if d.g.get(id).matrix.origin.Sheet == sheet {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	for _, id := range ids {
		d.explodeMatrix(id)
	}
}

// readsCell reports whether the formula vertex id reads addr through a
// cell reference, a range or a named expression.
func (d *DependencyGraph) readsCell(id VertexID, addr SimpleCellAddress) bool {
	f := d.formula(id)
	if f == nil {
		return false
	}
	for _, dep := range collectDependencies(f.ast, f.address, d.registry) {
		switch {
		case dep.name != "":
			return true
		case dep.isRange && dep.rng.Contains(addr):
			return true
		case !dep.isRange && dep.addr == addr:
			return true
		}
	}
	return false
}
