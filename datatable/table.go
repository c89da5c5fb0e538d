// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package datatable

import (
	"fmt"
	"sync"
)

// Table is the concrete, mutable storage behind every DataSource. Every row
// holds exactly one cell per column.
//
// A Table has a single logical owner. Concurrent reads are safe; the lazily
// built formatted-value cache and id/label index are guarded internally.
type Table struct {
	cols []Column
	rows []Row
	p    Properties

	mu          sync.Mutex
	formatCache map[cellKey]string
	refs        map[string]int
	refsDirty   bool
	// layout counts changes to column ids, labels and positions.
	layout uint64
}

type cellKey struct {
	row, col int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		formatCache: make(map[cellKey]string),
		refsDirty:   true,
	}
}

var _ DataSource = (*Table)(nil)

// NumberOfRows implements DataSource.
func (t *Table) NumberOfRows() int { return len(t.rows) }

// NumberOfColumns implements DataSource.
func (t *Table) NumberOfColumns() int { return len(t.cols) }

func (t *Table) column(col int) (*Column, error) {
	if err := ValidateColumnIndex(t, col); err != nil {
		return nil, err
	}
	return &t.cols[col], nil
}

func (t *Table) cell(row, col int) (*Cell, error) {
	if err := ValidateRowIndex(t, row); err != nil {
		return nil, err
	}
	if err := ValidateColumnIndex(t, col); err != nil {
		return nil, err
	}
	return &t.rows[row].Cells[col], nil
}

// ColumnID implements DataSource.
func (t *Table) ColumnID(col int) (string, error) {
	c, err := t.column(col)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

// ColumnLabel implements DataSource.
func (t *Table) ColumnLabel(col int) (string, error) {
	c, err := t.column(col)
	if err != nil {
		return "", err
	}
	return c.Label, nil
}

// ColumnPattern implements DataSource.
func (t *Table) ColumnPattern(col int) (string, error) {
	c, err := t.column(col)
	if err != nil {
		return "", err
	}
	return c.Pattern, nil
}

// ColumnRole implements DataSource.
func (t *Table) ColumnRole(col int) (string, error) {
	c, err := t.column(col)
	if err != nil {
		return "", err
	}
	role, _ := c.P[roleProperty].(string)
	return role, nil
}

// ColumnType implements DataSource.
func (t *Table) ColumnType(col int) (DataType, error) {
	c, err := t.column(col)
	if err != nil {
		return TypeUnspecified, err
	}
	return c.Type, nil
}

// ColumnProperty implements DataSource.
func (t *Table) ColumnProperty(col int, name string) (interface{}, error) {
	c, err := t.column(col)
	if err != nil {
		return nil, err
	}
	return c.P[name], nil
}

// ColumnProperties implements DataSource.
func (t *Table) ColumnProperties(col int) (Properties, error) {
	c, err := t.column(col)
	if err != nil {
		return nil, err
	}
	return c.P, nil
}

// ColumnIndex implements DataSource.
func (t *Table) ColumnIndex(ref ColumnRef) int {
	switch r := ref.(type) {
	case Index:
		if int(r) < 0 || int(r) >= len(t.cols) {
			return -1
		}
		return int(r)
	case ID:
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.refsDirty || t.refs == nil {
			t.refs = buildRefIndex(t)
			t.refsDirty = false
		}
		if idx, ok := t.refs[string(r)]; ok {
			return idx
		}
		return -1
	default:
		return -1
	}
}

// buildRefIndex maps every id, then every label, to the first column
// carrying it.
func buildRefIndex(ds DataSource) map[string]int {
	refs := make(map[string]int, 2*ds.NumberOfColumns())
	for c := 0; c < ds.NumberOfColumns(); c++ {
		if id, err := ds.ColumnID(c); err == nil && id != "" {
			if _, seen := refs[id]; !seen {
				refs[id] = c
			}
		}
	}
	for c := 0; c < ds.NumberOfColumns(); c++ {
		if label, err := ds.ColumnLabel(c); err == nil && label != "" {
			if _, seen := refs[label]; !seen {
				refs[label] = c
			}
		}
	}
	return refs
}

// Cell implements DataSource. The returned cell shares its properties map
// with the table.
func (t *Table) Cell(row, col int) (Cell, error) {
	c, err := t.cell(row, col)
	if err != nil {
		return Cell{}, err
	}
	return *c, nil
}

// Value implements DataSource.
func (t *Table) Value(row, col int) (Value, error) {
	c, err := t.cell(row, col)
	if err != nil {
		return Value{}, err
	}
	return c.V, nil
}

// FormattedValue implements DataSource. Explicit formatted values win;
// otherwise the default format is computed once and cached.
func (t *Table) FormattedValue(row, col int) (string, error) {
	c, err := t.cell(row, col)
	if err != nil {
		return "", err
	}
	if c.F != nil {
		return *c.F, nil
	}
	key := cellKey{row, col}
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.formatCache[key]; ok {
		return f, nil
	}
	f := FormatValue(t.cols[col].Type, c.V)
	if t.formatCache == nil {
		t.formatCache = make(map[cellKey]string)
	}
	t.formatCache[key] = f
	return f, nil
}

// Property implements DataSource.
func (t *Table) Property(row, col int, name string) (interface{}, error) {
	c, err := t.cell(row, col)
	if err != nil {
		return nil, err
	}
	return c.P[name], nil
}

// Properties implements DataSource.
func (t *Table) Properties(row, col int) (Properties, error) {
	c, err := t.cell(row, col)
	if err != nil {
		return nil, err
	}
	return c.P, nil
}

// RowProperty implements DataSource.
func (t *Table) RowProperty(row int, name string) (interface{}, error) {
	if err := ValidateRowIndex(t, row); err != nil {
		return nil, err
	}
	return t.rows[row].P[name], nil
}

// RowProperties implements DataSource.
func (t *Table) RowProperties(row int) (Properties, error) {
	if err := ValidateRowIndex(t, row); err != nil {
		return nil, err
	}
	return t.rows[row].P, nil
}

// TableProperty implements DataSource.
func (t *Table) TableProperty(name string) interface{} { return t.p[name] }

// TableProperties implements DataSource.
func (t *Table) TableProperties() Properties { return t.p }

// SortedRows implements DataSource.
func (t *Table) SortedRows(spec SortSpec) ([]int, error) { return SortedRows(t, spec) }

// FilteredRows implements DataSource.
func (t *Table) FilteredRows(f Filter) ([]int, error) { return FilteredRows(t, f) }

// ColumnRange implements DataSource.
func (t *Table) ColumnRange(col ColumnRef) (Range, error) { return ColumnRange(t, col) }

// DistinctValues implements DataSource.
func (t *Table) DistinctValues(col ColumnRef) ([]Value, error) { return DistinctValues(t, col) }

// UnderlyingTableRowIndex implements DataSource. A table is its own
// underlying table.
func (t *Table) UnderlyingTableRowIndex(row int) (int, error) {
	if err := ValidateRowIndex(t, row); err != nil {
		return -1, err
	}
	return row, nil
}

// UnderlyingTableColumnIndex implements DataSource.
func (t *Table) UnderlyingTableColumnIndex(col int) (int, error) {
	if err := ValidateColumnIndex(t, col); err != nil {
		return -1, err
	}
	return col, nil
}

// ToDataTable implements DataSource by returning a deep copy.
func (t *Table) ToDataTable() (*Table, error) { return t.Clone(), nil }

// Clone returns a deep copy of the table. Caches are not copied.
func (t *Table) Clone() *Table {
	out := NewTable()
	out.cols = make([]Column, len(t.cols))
	for i := range t.cols {
		out.cols[i] = t.cols[i].clone()
	}
	out.rows = make([]Row, len(t.rows))
	for i := range t.rows {
		out.rows[i] = t.rows[i].clone()
	}
	out.p = t.p.Clone()
	return out
}

// Columns returns a deep copy of the column specs.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.cols))
	for i := range t.cols {
		out[i] = t.cols[i].clone()
	}
	return out
}

func (t *Table) invalidateFormats() {
	t.mu.Lock()
	t.formatCache = make(map[cellKey]string)
	t.mu.Unlock()
}

func (t *Table) invalidateFormat(row, col int) {
	t.mu.Lock()
	delete(t.formatCache, cellKey{row, col})
	t.mu.Unlock()
}

func (t *Table) invalidateRefs() {
	t.mu.Lock()
	t.refsDirty = true
	t.layout++
	t.mu.Unlock()
}

func (t *Table) layoutVersion() (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.layout, true
}

// invalidateStructure drops every positional cache after an insert or remove.
func (t *Table) invalidateStructure() {
	t.mu.Lock()
	t.formatCache = make(map[cellKey]string)
	t.refsDirty = true
	t.layout++
	t.mu.Unlock()
}

// Sort reorders the rows in place. The sort is stable.
func (t *Table) Sort(spec SortSpec) error {
	order, err := SortedRows(t, spec)
	if err != nil {
		return err
	}
	rows := make([]Row, len(order))
	for i, r := range order {
		rows[i] = t.rows[r]
	}
	t.rows = rows
	t.invalidateFormats()
	return nil
}

// String returns a short summary of the shape of t.
func (t *Table) String() string {
	return fmt.Sprintf("Table(%d cols x %d rows)", len(t.cols), len(t.rows))
}
