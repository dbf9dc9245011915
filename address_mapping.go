package formulagraph

// AddressMapping maps cell addresses to vertex ids, one strategy per sheet.
type AddressMapping struct {
	policy AddressMappingPolicy
	sheets map[int]addressStrategy
}

// NewAddressMapping creates a mapping which picks strategies with policy.
func NewAddressMapping(policy AddressMappingPolicy) *AddressMapping {
	if policy == nil {
		policy = DenseSparseChooseBasedOnThreshold{Threshold: 0.8}
	}
	return &AddressMapping{policy: policy, sheets: make(map[int]addressStrategy)}
}

// AutoAddSheet registers a sheet whose bounding box is width×height with
// filled non-empty cells, choosing the strategy with the policy. The choice
// is final for the life of the sheet.
func (m *AddressMapping) AutoAddSheet(sheet, width, height, filled int) {
	fill := 0.0
	if width*height > 0 {
		fill = float64(filled) / float64(width*height)
	}
	if m.policy.UseDense(fill) {
		m.sheets[sheet] = newDenseStrategy(width, height)
		return
	}
	m.sheets[sheet] = newSparseStrategy(width, height)
}

// HasSheet reports whether a sheet is registered.
func (m *AddressMapping) HasSheet(sheet int) bool {
	_, ok := m.sheets[sheet]
	return ok
}

// IsDense reports the storage strategy chosen for a sheet.
func (m *AddressMapping) IsDense(sheet int) (bool, error) {
	s, err := m.strategy(sheet)
	if err != nil {
		return false, err
	}
	return s.isDense(), nil
}

// RemoveSheet drops the storage of a sheet.
func (m *AddressMapping) RemoveSheet(sheet int) error {
	if _, err := m.strategy(sheet); err != nil {
		return err
	}
	delete(m.sheets, sheet)
	return nil
}

func (m *AddressMapping) strategy(sheet int) (addressStrategy, error) {
	s, ok := m.sheets[sheet]
	if !ok {
		return nil, ErrNoSuchSheet{SheetID: sheet}
	}
	return s, nil
}

// GetCell returns the vertex at addr, or noVertex.
func (m *AddressMapping) GetCell(addr SimpleCellAddress) (VertexID, error) {
	s, err := m.strategy(addr.Sheet)
	if err != nil {
		return noVertex, err
	}
	return s.get(addr.Col, addr.Row), nil
}

// cell is GetCell for callers which have already validated the sheet.
func (m *AddressMapping) cell(addr SimpleCellAddress) VertexID {
	if s, ok := m.sheets[addr.Sheet]; ok {
		return s.get(addr.Col, addr.Row)
	}
	return noVertex
}

// SetCell stores a vertex at addr.
func (m *AddressMapping) SetCell(addr SimpleCellAddress, id VertexID) error {
	if !addr.IsValid() {
		return ErrInvalidAddress
	}
	s, err := m.strategy(addr.Sheet)
	if err != nil {
		return err
	}
	s.set(addr.Col, addr.Row, id)
	return nil
}

// RemoveCell clears addr.
func (m *AddressMapping) RemoveCell(addr SimpleCellAddress) error {
	s, err := m.strategy(addr.Sheet)
	if err != nil {
		return err
	}
	s.remove(addr.Col, addr.Row)
	return nil
}

// MoveCell moves the vertex at src to dst. It fails when src has no vertex
// or dst already holds one.
func (m *AddressMapping) MoveCell(src, dst SimpleCellAddress) error {
	from, err := m.strategy(src.Sheet)
	if err != nil {
		return err
	}
	to, err := m.strategy(dst.Sheet)
	if err != nil {
		return err
	}
	id := from.get(src.Col, src.Row)
	if id == noVertex {
		return ErrSourceEmpty
	}
	if to.get(dst.Col, dst.Row) != noVertex {
		return ErrTargetOccupied
	}
	from.remove(src.Col, src.Row)
	to.set(dst.Col, dst.Row, id)
	return nil
}

// AddRows inserts count empty rows before row.
func (m *AddressMapping) AddRows(sheet, row, count int) error {
	s, err := m.strategy(sheet)
	if err != nil {
		return err
	}
	s.addRows(row, count)
	return nil
}

// RemoveRows deletes the rows of span.
func (m *AddressMapping) RemoveRows(span Span) error {
	s, err := m.strategy(span.Sheet)
	if err != nil {
		return err
	}
	s.removeRows(span.Start, span.End)
	return nil
}

// AddColumns inserts count empty columns before col.
func (m *AddressMapping) AddColumns(sheet, col, count int) error {
	s, err := m.strategy(sheet)
	if err != nil {
		return err
	}
	s.addColumns(col, count)
	return nil
}

// RemoveColumns deletes the columns of span.
func (m *AddressMapping) RemoveColumns(span Span) error {
	s, err := m.strategy(span.Sheet)
	if err != nil {
		return err
	}
	s.removeColumns(span.Start, span.End)
	return nil
}

// Height returns the number of rows in use on a sheet.
func (m *AddressMapping) Height(sheet int) int {
	if s, ok := m.sheets[sheet]; ok {
		return s.height()
	}
	return 0
}

// Width returns the number of columns in use on a sheet.
func (m *AddressMapping) Width(sheet int) int {
	if s, ok := m.sheets[sheet]; ok {
		return s.width()
	}
	return 0
}

// SheetEntries calls fn for each occupied address of a sheet in row-major
// order.
func (m *AddressMapping) SheetEntries(sheet int, fn func(SimpleCellAddress, VertexID)) {
	if s, ok := m.sheets[sheet]; ok {
		s.entries(func(col, row int, id VertexID) { fn(Addr(sheet, col, row), id) })
	}
}

// RowsEntries calls fn for each occupied address inside the rows of span.
func (m *AddressMapping) RowsEntries(span Span, fn func(SimpleCellAddress, VertexID)) {
	s, ok := m.sheets[span.Sheet]
	if !ok {
		return
	}
	for row := span.Start; row < min(span.End, s.height()); row++ {
		s.rowEntries(row, func(col int, id VertexID) { fn(Addr(span.Sheet, col, row), id) })
	}
}

// ColumnsEntries calls fn for each occupied address inside the columns of
// span.
func (m *AddressMapping) ColumnsEntries(span Span, fn func(SimpleCellAddress, VertexID)) {
	s, ok := m.sheets[span.Sheet]
	if !ok {
		return
	}
	for col := span.Start; col < min(span.End, s.width()); col++ {
		s.columnEntries(col, func(row int, id VertexID) { fn(Addr(span.Sheet, col, row), id) })
	}
}
