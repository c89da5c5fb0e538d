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
	"slices"
)

// insertChunkSize bounds the number of rows spliced in by one copy.
const insertChunkSize = 10000

// AddColumn appends a column and returns its index. Every existing row
// receives a null cell.
func (t *Table) AddColumn(col Column) (int, error) {
	if err := t.InsertColumn(len(t.cols), col); err != nil {
		return -1, err
	}
	return len(t.cols) - 1, nil
}

// InsertColumn inserts a column at index at (0 <= at <= NumberOfColumns).
// The type defaults to string and must be a known type.
func (t *Table) InsertColumn(at int, col Column) error {
	if at < 0 || at > len(t.cols) {
		return fmt.Errorf("%w: insert position %d (column count %d)", ErrInvalidColumn, at, len(t.cols))
	}
	norm, err := col.normalize()
	if err != nil {
		return err
	}
	t.cols = slices.Insert(t.cols, at, norm)
	for i := range t.rows {
		t.rows[i].Cells = slices.Insert(t.rows[i].Cells, at, Cell{})
	}
	t.invalidateStructure()
	return nil
}

// RemoveColumn removes a single column.
func (t *Table) RemoveColumn(col int) error { return t.RemoveColumns(col, 1) }

// RemoveColumns removes count columns starting at start. count is clamped
// to the columns available.
func (t *Table) RemoveColumns(start, count int) error {
	if err := ValidateColumnIndex(t, start); err != nil {
		return err
	}
	if count <= 0 {
		return nil
	}
	end := min(start+count, len(t.cols))
	t.cols = slices.Delete(t.cols, start, end)
	for i := range t.rows {
		t.rows[i].Cells = slices.Delete(t.rows[i].Cells, start, end)
	}
	t.invalidateStructure()
	return nil
}

// AddRow appends one row and returns its index. With no arguments an
// empty row is added; otherwise exactly one entry per column is required.
// Entries are normalized by ParseCell and validated against the column type.
func (t *Table) AddRow(cells ...interface{}) (int, error) {
	if len(cells) == 0 {
		return t.AddEmptyRows(1)
	}
	return t.AddRows([][]interface{}{cells})
}

// AddRows appends rows and returns the index of the last added row. The
// whole batch is validated before any row is added.
func (t *Table) AddRows(rows [][]interface{}) (int, error) {
	if err := t.InsertRows(len(t.rows), rows); err != nil {
		return -1, err
	}
	return len(t.rows) - 1, nil
}

// AddEmptyRows appends n rows of null cells and returns the index of the
// last one.
func (t *Table) AddEmptyRows(n int) (int, error) {
	if err := t.InsertEmptyRows(len(t.rows), n); err != nil {
		return -1, err
	}
	return len(t.rows) - 1, nil
}

// InsertRows inserts rows before row at (0 <= at <= NumberOfRows). Either
// every row is inserted or, on error, the table is left untouched.
func (t *Table) InsertRows(at int, rows [][]interface{}) error {
	if at < 0 || at > len(t.rows) {
		return fmt.Errorf("%w: insert position %d (row count %d)", ErrInvalidRow, at, len(t.rows))
	}
	prepared := make([]Row, len(rows))
	for i, raw := range rows {
		if len(raw) != len(t.cols) {
			return fmt.Errorf("%w: row %d has %d cells, table has %d columns", ErrShapeMismatch, at+i, len(raw), len(t.cols))
		}
		cells := make([]Cell, len(raw))
		for c, entry := range raw {
			cell, err := normalizeCell(entry, t.cols[c].Type)
			if err != nil {
				return fmt.Errorf("row %d column %d: %w", at+i, c, err)
			}
			cells[c] = cell
		}
		prepared[i] = Row{Cells: cells}
	}
	t.spliceRows(at, prepared)
	return nil
}

// InsertEmptyRows inserts n rows of null cells before row at.
func (t *Table) InsertEmptyRows(at, n int) error {
	if at < 0 || at > len(t.rows) {
		return fmt.Errorf("%w: insert position %d (row count %d)", ErrInvalidRow, at, len(t.rows))
	}
	if n < 0 {
		return fmt.Errorf("%w: negative row count %d", ErrInvalidRow, n)
	}
	prepared := make([]Row, n)
	for i := range prepared {
		prepared[i] = Row{Cells: make([]Cell, len(t.cols))}
	}
	t.spliceRows(at, prepared)
	return nil
}

// spliceRows inserts already validated rows in chunks.
func (t *Table) spliceRows(at int, rows []Row) {
	if len(rows) == 0 {
		return
	}
	t.rows = slices.Grow(t.rows, len(rows))
	for start := 0; start < len(rows); start += insertChunkSize {
		end := min(start+insertChunkSize, len(rows))
		t.rows = slices.Insert(t.rows, at+start, rows[start:end]...)
		log().V(4).Info("inserted row chunk", "at", at+start, "rows", end-start)
	}
	t.invalidateStructure()
	log().V(1).Info("inserted rows", "at", at, "rows", len(rows), "total", len(t.rows))
}

// RemoveRow removes a single row.
func (t *Table) RemoveRow(row int) error { return t.RemoveRows(row, 1) }

// RemoveRows removes count rows starting at start. count is clamped to the
// rows available.
func (t *Table) RemoveRows(start, count int) error {
	if err := ValidateRowIndex(t, start); err != nil {
		return err
	}
	if count <= 0 {
		return nil
	}
	end := min(start+count, len(t.rows))
	t.rows = slices.Delete(t.rows, start, end)
	t.invalidateStructure()
	return nil
}

// CellOption changes one part of a cell in SetCell.
type CellOption func(*cellUpdate)

type cellUpdate struct {
	value      interface{}
	setValue   bool
	formatted  *string
	setFormat  bool
	properties Properties
	setProps   bool
}

// WithValue sets the cell value.
func WithValue(v interface{}) CellOption {
	return func(u *cellUpdate) {
		u.value = v
		u.setValue = true
	}
}

// WithFormatted sets the explicit formatted value.
func WithFormatted(f string) CellOption {
	return func(u *cellUpdate) {
		u.formatted = &f
		u.setFormat = true
	}
}

// ClearFormatted removes the explicit formatted value.
func ClearFormatted() CellOption {
	return func(u *cellUpdate) {
		u.formatted = nil
		u.setFormat = true
	}
}

// WithProperties replaces the cell properties.
func WithProperties(p Properties) CellOption {
	return func(u *cellUpdate) {
		u.properties = p
		u.setProps = true
	}
}

// SetCell updates a cell. Parts without an option are left unchanged.
// Setting a value invalidates the cached default format of the cell.
func (t *Table) SetCell(row, col int, opts ...CellOption) error {
	c, err := t.cell(row, col)
	if err != nil {
		return err
	}
	var u cellUpdate
	for _, opt := range opts {
		opt(&u)
	}
	next := *c
	if u.setValue {
		v, err := ValueOf(u.value)
		if err != nil {
			return fmt.Errorf("row %d column %d: %w", row, col, err)
		}
		if next.V, err = coerce(v, t.cols[col].Type); err != nil {
			return fmt.Errorf("row %d column %d: %w", row, col, err)
		}
	}
	if u.setFormat {
		next.F = u.formatted
	}
	if u.setProps {
		next.P = u.properties.Clone()
	}
	*c = next
	if u.setValue {
		t.invalidateFormat(row, col)
	}
	return nil
}

// SetValue sets the value of a cell and drops its formatted value.
func (t *Table) SetValue(row, col int, v interface{}) error {
	return t.SetCell(row, col, WithValue(v), ClearFormatted())
}

// SetFormattedValue sets the explicit formatted value of a cell.
func (t *Table) SetFormattedValue(row, col int, f string) error {
	return t.SetCell(row, col, WithFormatted(f))
}

// SetProperty implements DataSource.
func (t *Table) SetProperty(row, col int, name string, value interface{}) error {
	c, err := t.cell(row, col)
	if err != nil {
		return err
	}
	if c.P == nil {
		c.P = Properties{}
	}
	c.P[name] = value
	return nil
}

// SetProperties replaces the properties of a cell.
func (t *Table) SetProperties(row, col int, p Properties) error {
	return t.SetCell(row, col, WithProperties(p))
}

// SetRowProperty implements DataSource.
func (t *Table) SetRowProperty(row int, name string, value interface{}) error {
	if err := ValidateRowIndex(t, row); err != nil {
		return err
	}
	if t.rows[row].P == nil {
		t.rows[row].P = Properties{}
	}
	t.rows[row].P[name] = value
	return nil
}

// SetRowProperties replaces the properties of a row.
func (t *Table) SetRowProperties(row int, p Properties) error {
	if err := ValidateRowIndex(t, row); err != nil {
		return err
	}
	t.rows[row].P = p.Clone()
	return nil
}

// SetColumnProperty implements DataSource.
func (t *Table) SetColumnProperty(col int, name string, value interface{}) error {
	c, err := t.column(col)
	if err != nil {
		return err
	}
	if c.P == nil {
		c.P = Properties{}
	}
	c.P[name] = value
	return nil
}

// SetColumnProperties replaces the properties of a column.
func (t *Table) SetColumnProperties(col int, p Properties) error {
	c, err := t.column(col)
	if err != nil {
		return err
	}
	c.P = p.Clone()
	return nil
}

// SetColumnLabel renames a column label.
func (t *Table) SetColumnLabel(col int, label string) error {
	c, err := t.column(col)
	if err != nil {
		return err
	}
	c.Label = label
	t.invalidateRefs()
	return nil
}

// SetColumnPattern sets the format pattern of a column.
func (t *Table) SetColumnPattern(col int, pattern string) error {
	c, err := t.column(col)
	if err != nil {
		return err
	}
	c.Pattern = pattern
	return nil
}

// SetTableProperty implements DataSource.
func (t *Table) SetTableProperty(name string, value interface{}) {
	if t.p == nil {
		t.p = Properties{}
	}
	t.p[name] = value
}

// SetTableProperties replaces the table properties.
func (t *Table) SetTableProperties(p Properties) { t.p = p.Clone() }
