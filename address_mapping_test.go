package formulagraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mappedCell struct {
	addr SimpleCellAddress
	id   VertexID
}

func mappedCells(m *AddressMapping, sheet int) []mappedCell {
	var out []mappedCell
	m.SheetEntries(sheet, func(a SimpleCellAddress, id VertexID) {
		out = append(out, mappedCell{a, id})
	})
	return out
}

func TestAddressMappingStrategies(t *testing.T) {
	for _, policy := range []AddressMappingPolicy{AlwaysDense{}, AlwaysSparse{}} {
		m := NewAddressMapping(policy)
		m.AutoAddSheet(0, 3, 3, 4)
		dense, err := m.IsDense(0)
		require.NoError(t, err)
		assert.Equal(t, policy.UseDense(0), dense)

		require.NoError(t, m.SetCell(Addr(0, 0, 0), 1))
		require.NoError(t, m.SetCell(Addr(0, 2, 0), 2))
		require.NoError(t, m.SetCell(Addr(0, 1, 1), 3))
		require.NoError(t, m.SetCell(Addr(0, 0, 2), 4))
		assert.Equal(t, []mappedCell{
			{Addr(0, 0, 0), 1}, {Addr(0, 2, 0), 2}, {Addr(0, 1, 1), 3}, {Addr(0, 0, 2), 4},
		}, mappedCells(m, 0), "%T", policy)

		require.NoError(t, m.AddRows(0, 1, 2))
		assert.Equal(t, 5, m.Height(0))
		assert.Equal(t, []mappedCell{
			{Addr(0, 0, 0), 1}, {Addr(0, 2, 0), 2}, {Addr(0, 1, 3), 3}, {Addr(0, 0, 4), 4},
		}, mappedCells(m, 0), "%T", policy)

		require.NoError(t, m.RemoveRows(NewSpan(0, 0, 1)))
		assert.Equal(t, 4, m.Height(0))
		assert.Equal(t, []mappedCell{{Addr(0, 1, 2), 3}, {Addr(0, 0, 3), 4}}, mappedCells(m, 0), "%T", policy)

		require.NoError(t, m.AddColumns(0, 1, 1))
		assert.Equal(t, 4, m.Width(0))
		assert.Equal(t, []mappedCell{{Addr(0, 2, 2), 3}, {Addr(0, 0, 3), 4}}, mappedCells(m, 0), "%T", policy)

		require.NoError(t, m.RemoveColumns(NewSpan(0, 0, 1)))
		assert.Equal(t, []mappedCell{{Addr(0, 1, 2), 3}}, mappedCells(m, 0), "%T", policy)

		require.NoError(t, m.MoveCell(Addr(0, 1, 2), Addr(0, 0, 0)))
		assert.ErrorIs(t, m.MoveCell(Addr(0, 1, 2), Addr(0, 0, 1)), ErrSourceEmpty)
		require.NoError(t, m.SetCell(Addr(0, 1, 1), 9))
		assert.ErrorIs(t, m.MoveCell(Addr(0, 1, 1), Addr(0, 0, 0)), ErrTargetOccupied)

		var rows []mappedCell
		m.RowsEntries(NewSpan(0, 0, 2), func(a SimpleCellAddress, id VertexID) { rows = append(rows, mappedCell{a, id}) })
		assert.Equal(t, []mappedCell{{Addr(0, 0, 0), 3}, {Addr(0, 1, 1), 9}}, rows, "%T", policy)
		var cols []mappedCell
		m.ColumnsEntries(NewSpan(0, 1, 1), func(a SimpleCellAddress, id VertexID) { cols = append(cols, mappedCell{a, id}) })
		assert.Equal(t, []mappedCell{{Addr(0, 1, 1), 9}}, cols, "%T", policy)

		require.NoError(t, m.RemoveCell(Addr(0, 1, 1)))
		id, err := m.GetCell(Addr(0, 1, 1))
		require.NoError(t, err)
		assert.Equal(t, noVertex, id)
	}
}

func TestAddressMappingPolicyChoice(t *testing.T) {
	m := NewAddressMapping(DenseSparseChooseBasedOnThreshold{Threshold: 0.8})
	m.AutoAddSheet(0, 10, 10, 50)
	m.AutoAddSheet(1, 2, 2, 4)
	m.AutoAddSheet(2, 0, 0, 0)
	for sheet, want := range map[int]bool{0: false, 1: true, 2: false} {
		dense, err := m.IsDense(sheet)
		require.NoError(t, err)
		assert.Equal(t, want, dense, "sheet %d", sheet)
	}

	require.NoError(t, m.RemoveSheet(1))
	assert.False(t, m.HasSheet(1))
	var noSheet ErrNoSuchSheet
	_, err := m.GetCell(Addr(1, 0, 0))
	assert.ErrorAs(t, err, &noSheet)
	assert.ErrorAs(t, m.RemoveSheet(1), &noSheet)
	assert.ErrorIs(t, m.SetCell(Addr(0, -1, 0), 1), ErrInvalidAddress)
	assert.Equal(t, 0, m.Height(7))
}
