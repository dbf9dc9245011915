package formulagraph

import (
	"strings"

	"golang.org/x/text/cases"
)

// sheetEntry is one registered sheet.
type sheetEntry struct {
	id   int
	name string
}

// SheetMapping is the name to id registry of one engine. Names are compared
// with Unicode case folding; ids are never reused, so a reference to a
// removed sheet can not silently start pointing at a new one.
type SheetMapping struct {
	byID  []*sheetEntry
	byKey map[string]int
	fold  cases.Caser
}

// NewSheetMapping creates an empty registry.
func NewSheetMapping() *SheetMapping {
	return &SheetMapping{byKey: make(map[string]int), fold: cases.Fold()}
}

func (m *SheetMapping) key(name string) string {
	return m.fold.String(strings.TrimSpace(name))
}

// AddSheet registers a sheet and returns its id.
func (m *SheetMapping) AddSheet(name string) (int, error) {
	if strings.TrimSpace(name) == "" {
		return -1, ErrSheetNameEmpty
	}
	k := m.key(name)
	if _, ok := m.byKey[k]; ok {
		return -1, ErrSheetNameTaken{Name: name}
	}
	id := len(m.byID)
	m.byID = append(m.byID, &sheetEntry{id: id, name: name})
	m.byKey[k] = id
	return id, nil
}

// ID returns the id of the named sheet.
func (m *SheetMapping) ID(name string) (int, bool) {
	id, ok := m.byKey[m.key(name)]
	return id, ok
}

// FetchID returns the id of the named sheet or ErrNoSuchSheet.
func (m *SheetMapping) FetchID(name string) (int, error) {
	if id, ok := m.ID(name); ok {
		return id, nil
	}
	return -1, ErrNoSuchSheet{SheetID: -1, SheetName: name}
}

// Name returns the display name of a sheet.
func (m *SheetMapping) Name(id int) (string, bool) {
	if !m.Has(id) {
		return "", false
	}
	return m.byID[id].name, true
}

// Has reports whether the id is registered.
func (m *SheetMapping) Has(id int) bool {
	return id >= 0 && id < len(m.byID) && m.byID[id] != nil
}

// RemoveSheet unregisters a sheet.
func (m *SheetMapping) RemoveSheet(id int) error {
	if !m.Has(id) {
		return ErrNoSuchSheet{SheetID: id}
	}
	delete(m.byKey, m.key(m.byID[id].name))
	m.byID[id] = nil
	return nil
}

// RenameSheet changes the display name of a sheet and returns the old one.
// Renaming to a case variant of the current name is allowed.
func (m *SheetMapping) RenameSheet(id int, name string) (string, error) {
	if !m.Has(id) {
		return "", ErrNoSuchSheet{SheetID: id}
	}
	if strings.TrimSpace(name) == "" {
		return "", ErrSheetNameEmpty
	}
	entry := m.byID[id]
	oldKey, newKey := m.key(entry.name), m.key(name)
	if other, ok := m.byKey[newKey]; ok && other != id {
		return "", ErrSheetNameTaken{Name: name}
	}
	old := entry.name
	delete(m.byKey, oldKey)
	m.byKey[newKey] = id
	entry.name = name
	return old, nil
}

// Sheets returns the ids of all registered sheets in creation order.
func (m *SheetMapping) Sheets() []int {
	ids := make([]int, 0, len(m.byKey))
	for _, e := range m.byID {
		if e != nil {
			ids = append(ids, e.id)
		}
	}
	return ids
}

// Count returns the number of registered sheets.
func (m *SheetMapping) Count() int { return len(m.byKey) }
