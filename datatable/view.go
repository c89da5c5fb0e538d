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

// View is a non-materializing projection over another DataSource, either a
// Table or another View. It selects, reorders and computes columns and
// selects and reorders rows. A View never stores values of plain columns;
// computed cells are cached until the column or row set changes.
//
// The wrapped source is borrowed and must outlive the view.
type View struct {
	src DataSource

	cols []viewCol
	// rows is nil while the view shows every wrapped row in order.
	rows []int

	mu         sync.Mutex
	calcCache  map[calcKey]Cell
	generation uint64
	refs       map[string]int
	// refsLayout is the layout version refs was built at.
	refsLayout uint64
}

// layoutVersioned is implemented by sources that count changes to their
// column ids, labels and positions. The flag is false when the count cannot
// be trusted.
type layoutVersioned interface {
	layoutVersion() (uint64, bool)
}

// viewCol is a normalized view column: a wrapped column index, or a
// computed column with its source resolved.
type viewCol struct {
	index int
	calc  *ComputedColumn
}

type calcKey struct {
	col, row int
}

var _ DataSource = (*View)(nil)

// NewView returns a view showing every column and row of src.
func NewView(src DataSource) (*View, error) {
	if src == nil {
		return nil, ErrNoDataSource
	}
	v := &View{src: src}
	v.cols = make([]viewCol, src.NumberOfColumns())
	for i := range v.cols {
		v.cols[i] = viewCol{index: i}
	}
	v.invalidate()
	return v, nil
}

// DataSource returns the wrapped object.
func (v *View) DataSource() DataSource { return v.src }

func (v *View) invalidate() {
	v.mu.Lock()
	v.calcCache = make(map[calcKey]Cell)
	v.generation++
	v.refs = nil
	v.mu.Unlock()
}

// SetColumns replaces the column set. Every entry is validated before the
// view changes. ID entries resolve to plain column indices; a computed
// column with a SourceColumn defaults its calculation to CalcIdentity and
// its type to the source column type.
func (v *View) SetColumns(cols ...ViewColumn) error {
	if err := ValidateColumnSet(v.src, cols); err != nil {
		return err
	}
	next := make([]viewCol, len(cols))
	for i, c := range cols {
		vc, err := v.normalizeColumn(c)
		if err != nil {
			return fmt.Errorf("view column %d: %w", i, err)
		}
		next[i] = vc
	}
	v.cols = next
	v.invalidate()
	return nil
}

func (v *View) normalizeColumn(c ViewColumn) (viewCol, error) {
	switch col := c.(type) {
	case Index:
		return viewCol{index: int(col)}, nil
	case ID:
		idx, err := ValidateColumnReference(v.src, col)
		if err != nil {
			return viewCol{}, err
		}
		return viewCol{index: idx}, nil
	case *ComputedColumn:
		cc := col.clone()
		cc.source = -1
		if cc.SourceColumn != nil {
			idx, err := ValidateColumnReference(v.src, cc.SourceColumn)
			if err != nil {
				return viewCol{}, err
			}
			cc.source = idx
			cc.SourceColumn = Index(idx)
		}
		if cc.Calc == nil {
			cc.Calc = CalcIdentity
		}
		if n, ok := cc.Calc.(NamedCalc); ok {
			if !n.Valid() {
				return viewCol{}, fmt.Errorf("%w: unknown calculation %q", ErrInvalidColumnSpec, string(n))
			}
			if n.needsSource() && cc.source < 0 {
				return viewCol{}, fmt.Errorf("%w: calculation %q needs a source column", ErrInvalidColumnSpec, string(n))
			}
		}
		if cc.Type == TypeUnspecified {
			if defaultsToString(cc.Calc) || cc.source < 0 {
				cc.Type = TypeString
			} else {
				dt, err := v.src.ColumnType(cc.source)
				if err != nil {
					return viewCol{}, err
				}
				cc.Type = dt
			}
		}
		if cc.Role != "" {
			if cc.P == nil {
				cc.P = Properties{}
			}
			cc.P[roleProperty] = cc.Role
			cc.Role = ""
		}
		return viewCol{index: -1, calc: cc}, nil
	default:
		return viewCol{}, fmt.Errorf("%w: unsupported column %T", ErrInvalidColumnSpec, c)
	}
}

// HideColumns removes every plain view column showing one of the given
// wrapped column indices.
func (v *View) HideColumns(cols ...int) error {
	hidden := make(map[int]bool, len(cols))
	for _, c := range cols {
		if err := ValidateColumnIndex(v.src, c); err != nil {
			return err
		}
		hidden[c] = true
	}
	next := make([]viewCol, 0, len(v.cols))
	for _, vc := range v.cols {
		if vc.calc == nil && hidden[vc.index] {
			continue
		}
		next = append(next, vc)
	}
	v.cols = next
	v.invalidate()
	return nil
}

// SetRows shows the given wrapped rows in the given order. Duplicates are
// allowed.
func (v *View) SetRows(rows ...int) error {
	for _, r := range rows {
		if err := ValidateRowIndex(v.src, r); err != nil {
			return err
		}
	}
	next := make([]int, len(rows))
	copy(next, rows)
	v.rows = next
	v.invalidate()
	return nil
}

// SetRowRange shows the wrapped rows minRow..maxRow inclusive.
func (v *View) SetRowRange(minRow, maxRow int) error {
	if err := validateRowRange(v.src, minRow, maxRow); err != nil {
		return err
	}
	next := make([]int, 0, maxRow-minRow+1)
	for r := minRow; r <= maxRow; r++ {
		next = append(next, r)
	}
	v.rows = next
	v.invalidate()
	return nil
}

// HideRows removes the given wrapped rows from the current row set.
func (v *View) HideRows(rows ...int) error {
	hidden := make(map[int]bool, len(rows))
	for _, r := range rows {
		if err := ValidateRowIndex(v.src, r); err != nil {
			return err
		}
		hidden[r] = true
	}
	return v.hide(hidden)
}

// HideRowRange removes the wrapped rows minRow..maxRow inclusive.
func (v *View) HideRowRange(minRow, maxRow int) error {
	if err := validateRowRange(v.src, minRow, maxRow); err != nil {
		return err
	}
	hidden := make(map[int]bool, maxRow-minRow+1)
	for r := minRow; r <= maxRow; r++ {
		hidden[r] = true
	}
	return v.hide(hidden)
}

func (v *View) hide(hidden map[int]bool) error {
	current := v.Rows()
	next := make([]int, 0, len(current))
	for _, r := range current {
		if !hidden[r] {
			next = append(next, r)
		}
	}
	v.rows = next
	v.invalidate()
	return nil
}

// Columns returns the column set. Computed columns are copies with their
// defaults applied.
func (v *View) Columns() []ViewColumn {
	out := make([]ViewColumn, len(v.cols))
	for i, vc := range v.cols {
		if vc.calc != nil {
			out[i] = vc.calc.clone()
		} else {
			out[i] = Index(vc.index)
		}
	}
	return out
}

// Rows returns the wrapped row indices shown by the view.
func (v *View) Rows() []int {
	if v.rows == nil {
		out := make([]int, v.src.NumberOfRows())
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, len(v.rows))
	copy(out, v.rows)
	return out
}

// NumberOfRows implements DataSource.
func (v *View) NumberOfRows() int {
	if v.rows == nil {
		return v.src.NumberOfRows()
	}
	return len(v.rows)
}

// NumberOfColumns implements DataSource.
func (v *View) NumberOfColumns() int { return len(v.cols) }

func (v *View) column(col int) (viewCol, error) {
	if err := ValidateColumnIndex(v, col); err != nil {
		return viewCol{}, err
	}
	return v.cols[col], nil
}

// wrappedRow maps a view row to a row of the wrapped object.
func (v *View) wrappedRow(row int) (int, error) {
	if err := ValidateRowIndex(v, row); err != nil {
		return -1, err
	}
	if v.rows == nil {
		return row, nil
	}
	return v.rows[row], nil
}

// ColumnID implements DataSource.
func (v *View) ColumnID(col int) (string, error) {
	vc, err := v.column(col)
	if err != nil {
		return "", err
	}
	if vc.calc != nil {
		return vc.calc.ID, nil
	}
	return v.src.ColumnID(vc.index)
}

// ColumnLabel implements DataSource.
func (v *View) ColumnLabel(col int) (string, error) {
	vc, err := v.column(col)
	if err != nil {
		return "", err
	}
	if vc.calc != nil {
		return vc.calc.Label, nil
	}
	return v.src.ColumnLabel(vc.index)
}

// ColumnPattern implements DataSource.
func (v *View) ColumnPattern(col int) (string, error) {
	vc, err := v.column(col)
	if err != nil {
		return "", err
	}
	if vc.calc != nil {
		return vc.calc.Pattern, nil
	}
	return v.src.ColumnPattern(vc.index)
}

// ColumnRole implements DataSource.
func (v *View) ColumnRole(col int) (string, error) {
	vc, err := v.column(col)
	if err != nil {
		return "", err
	}
	if vc.calc != nil {
		role, _ := vc.calc.P[roleProperty].(string)
		return role, nil
	}
	return v.src.ColumnRole(vc.index)
}

// ColumnType implements DataSource.
func (v *View) ColumnType(col int) (DataType, error) {
	vc, err := v.column(col)
	if err != nil {
		return TypeUnspecified, err
	}
	if vc.calc != nil {
		return vc.calc.Type, nil
	}
	return v.src.ColumnType(vc.index)
}

// ColumnProperty implements DataSource.
func (v *View) ColumnProperty(col int, name string) (interface{}, error) {
	p, err := v.ColumnProperties(col)
	if err != nil {
		return nil, err
	}
	return p[name], nil
}

// ColumnProperties implements DataSource.
func (v *View) ColumnProperties(col int) (Properties, error) {
	vc, err := v.column(col)
	if err != nil {
		return nil, err
	}
	if vc.calc != nil {
		return vc.calc.P, nil
	}
	return v.src.ColumnProperties(vc.index)
}

// ColumnIndex implements DataSource.
func (v *View) ColumnIndex(ref ColumnRef) int {
	switch r := ref.(type) {
	case Index:
		if int(r) < 0 || int(r) >= len(v.cols) {
			return -1
		}
		return int(r)
	case ID:
		layout, cacheable := v.layoutVersion()
		v.mu.Lock()
		refs := v.refs
		if refs != nil && v.refsLayout != layout {
			refs = nil
		}
		v.mu.Unlock()
		if refs == nil {
			refs = buildRefIndex(v)
			if cacheable {
				v.mu.Lock()
				v.refs, v.refsLayout = refs, layout
				v.mu.Unlock()
			}
		}
		if idx, ok := refs[string(r)]; ok {
			return idx
		}
		return -1
	default:
		return -1
	}
}

// layoutVersion combines the view's own generation with the layout version
// of the wrapped source.
func (v *View) layoutVersion() (uint64, bool) {
	v.mu.Lock()
	gen := v.generation
	v.mu.Unlock()
	src, ok := v.src.(layoutVersioned)
	if !ok {
		return gen, false
	}
	layout, ok := src.layoutVersion()
	return gen + layout, ok
}

// Cell implements DataSource. Computed cells are calculated on first access
// and cached.
func (v *View) Cell(row, col int) (Cell, error) {
	vc, err := v.column(col)
	if err != nil {
		return Cell{}, err
	}
	wr, err := v.wrappedRow(row)
	if err != nil {
		return Cell{}, err
	}
	if vc.calc == nil {
		return v.src.Cell(wr, vc.index)
	}
	return v.computedCell(col, vc.calc, wr)
}

// Value implements DataSource.
func (v *View) Value(row, col int) (Value, error) {
	c, err := v.Cell(row, col)
	if err != nil {
		return Value{}, err
	}
	return c.V, nil
}

// FormattedValue implements DataSource.
func (v *View) FormattedValue(row, col int) (string, error) {
	vc, err := v.column(col)
	if err != nil {
		return "", err
	}
	wr, err := v.wrappedRow(row)
	if err != nil {
		return "", err
	}
	if vc.calc == nil {
		return v.src.FormattedValue(wr, vc.index)
	}
	c, err := v.computedCell(col, vc.calc, wr)
	if err != nil {
		return "", err
	}
	if c.F != nil {
		return *c.F, nil
	}
	return FormatValue(vc.calc.Type, c.V), nil
}

// Property implements DataSource.
func (v *View) Property(row, col int, name string) (interface{}, error) {
	p, err := v.Properties(row, col)
	if err != nil {
		return nil, err
	}
	return p[name], nil
}

// Properties implements DataSource.
func (v *View) Properties(row, col int) (Properties, error) {
	c, err := v.Cell(row, col)
	if err != nil {
		return nil, err
	}
	return c.P, nil
}

// RowProperty implements DataSource.
func (v *View) RowProperty(row int, name string) (interface{}, error) {
	wr, err := v.wrappedRow(row)
	if err != nil {
		return nil, err
	}
	return v.src.RowProperty(wr, name)
}

// RowProperties implements DataSource.
func (v *View) RowProperties(row int) (Properties, error) {
	wr, err := v.wrappedRow(row)
	if err != nil {
		return nil, err
	}
	return v.src.RowProperties(wr)
}

// TableProperty implements DataSource.
func (v *View) TableProperty(name string) interface{} { return v.src.TableProperty(name) }

// TableProperties implements DataSource.
func (v *View) TableProperties() Properties { return v.src.TableProperties() }

// SetProperty implements DataSource by writing through to the wrapped
// object. Cells of computed columns are read-only.
func (v *View) SetProperty(row, col int, name string, value interface{}) error {
	vc, err := v.column(col)
	if err != nil {
		return err
	}
	wr, err := v.wrappedRow(row)
	if err != nil {
		return err
	}
	if vc.calc != nil {
		return fmt.Errorf("%w: column %d is computed", ErrReadOnlyColumn, col)
	}
	return v.src.SetProperty(wr, vc.index, name, value)
}

// SetRowProperty implements DataSource by writing through to the wrapped object.
func (v *View) SetRowProperty(row int, name string, value interface{}) error {
	wr, err := v.wrappedRow(row)
	if err != nil {
		return err
	}
	return v.src.SetRowProperty(wr, name, value)
}

// SetColumnProperty implements DataSource. Properties of computed columns
// are owned by the view; others are written through.
func (v *View) SetColumnProperty(col int, name string, value interface{}) error {
	vc, err := v.column(col)
	if err != nil {
		return err
	}
	if vc.calc == nil {
		return v.src.SetColumnProperty(vc.index, name, value)
	}
	if vc.calc.P == nil {
		vc.calc.P = Properties{}
	}
	vc.calc.P[name] = value
	return nil
}

// SetTableProperty implements DataSource by writing through to the wrapped object.
func (v *View) SetTableProperty(name string, value interface{}) {
	v.src.SetTableProperty(name, value)
}

// SortedRows implements DataSource. The result holds view row indices.
func (v *View) SortedRows(spec SortSpec) ([]int, error) { return SortedRows(v, spec) }

// FilteredRows implements DataSource. The result holds view row indices.
func (v *View) FilteredRows(f Filter) ([]int, error) { return FilteredRows(v, f) }

// ColumnRange implements DataSource.
func (v *View) ColumnRange(col ColumnRef) (Range, error) { return ColumnRange(v, col) }

// DistinctValues implements DataSource.
func (v *View) DistinctValues(col ColumnRef) ([]Value, error) { return DistinctValues(v, col) }

// ViewColumnIndex returns the first view column showing wrapped column
// tableCol, or -1.
func (v *View) ViewColumnIndex(tableCol int) int {
	for i, vc := range v.cols {
		if vc.calc == nil && vc.index == tableCol {
			return i
		}
	}
	return -1
}

// ViewRowIndex returns the first view row showing wrapped row tableRow, or -1.
func (v *View) ViewRowIndex(tableRow int) int {
	if v.rows == nil {
		if tableRow < 0 || tableRow >= v.src.NumberOfRows() {
			return -1
		}
		return tableRow
	}
	for i, r := range v.rows {
		if r == tableRow {
			return i
		}
	}
	return -1
}

// TableColumnIndex returns the wrapped column shown by view column col.
// A computed column resolves to its source column, or -1 without one.
func (v *View) TableColumnIndex(col int) (int, error) {
	vc, err := v.column(col)
	if err != nil {
		return -1, err
	}
	if vc.calc != nil {
		return vc.calc.source, nil
	}
	return vc.index, nil
}

// TableRowIndex returns the wrapped row shown by view row row.
func (v *View) TableRowIndex(row int) (int, error) { return v.wrappedRow(row) }

// UnderlyingTableRowIndex implements DataSource.
func (v *View) UnderlyingTableRowIndex(row int) (int, error) {
	wr, err := v.wrappedRow(row)
	if err != nil {
		return -1, err
	}
	return v.src.UnderlyingTableRowIndex(wr)
}

// UnderlyingTableColumnIndex implements DataSource.
func (v *View) UnderlyingTableColumnIndex(col int) (int, error) {
	idx, err := v.TableColumnIndex(col)
	if err != nil || idx < 0 {
		return idx, err
	}
	return v.src.UnderlyingTableColumnIndex(idx)
}

// ToDataTable materializes the view, including every computed cell, into
// a new independent table.
func (v *View) ToDataTable() (*Table, error) {
	t := NewTable()
	for c := 0; c < v.NumberOfColumns(); c++ {
		col, err := v.columnSpec(c)
		if err != nil {
			return nil, err
		}
		if _, err := t.AddColumn(col); err != nil {
			return nil, err
		}
	}
	rows := make([]Row, v.NumberOfRows())
	for r := range rows {
		cells := make([]Cell, v.NumberOfColumns())
		for c := range cells {
			cell, err := v.Cell(r, c)
			if err != nil {
				return nil, err
			}
			cells[c] = cell.Clone()
		}
		p, err := v.RowProperties(r)
		if err != nil {
			return nil, err
		}
		rows[r] = Row{Cells: cells, P: p.Clone()}
	}
	t.spliceRows(0, rows)
	t.p = v.TableProperties().Clone()
	return t, nil
}

func (v *View) columnSpec(c int) (Column, error) {
	var col Column
	var err error
	if col.ID, err = v.ColumnID(c); err != nil {
		return col, err
	}
	if col.Label, err = v.ColumnLabel(c); err != nil {
		return col, err
	}
	if col.Type, err = v.ColumnType(c); err != nil {
		return col, err
	}
	if col.Pattern, err = v.ColumnPattern(c); err != nil {
		return col, err
	}
	p, err := v.ColumnProperties(c)
	if err != nil {
		return col, err
	}
	col.P = p.Clone()
	return col, nil
}

// Snapshot implements DataSource by materializing the view.
func (v *View) Snapshot() (*Snapshot, error) {
	t, err := v.ToDataTable()
	if err != nil {
		return nil, err
	}
	return t.Snapshot()
}
