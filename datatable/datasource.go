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

// DataSource is the capability set shared by Table and View. Algorithms and
// consumers are written against DataSource only.
//
// Reads are safe for concurrent use as long as no goroutine mutates the
// source or anything it wraps. All methods return errors rather than panic.
type DataSource interface {
	// NumberOfRows returns the total number of rows.
	NumberOfRows() int

	// NumberOfColumns returns the total number of columns.
	NumberOfColumns() int

	// ColumnID returns the id of the column at the given index.
	// Returns ErrInvalidColumn if col is out of range.
	ColumnID(col int) (string, error)

	// ColumnLabel returns the label of the column at the given index.
	ColumnLabel(col int) (string, error)

	// ColumnPattern returns the format pattern of the column at the given index.
	ColumnPattern(col int) (string, error)

	// ColumnRole returns the "role" column property, or "".
	ColumnRole(col int) (string, error)

	// ColumnType returns the data type of the column at the given index.
	ColumnType(col int) (DataType, error)

	// ColumnProperty returns a single column property, or nil.
	ColumnProperty(col int, name string) (interface{}, error)

	// ColumnProperties returns the column properties. The map is not copied.
	ColumnProperties(col int) (Properties, error)

	// ColumnIndex resolves an Index or an ID (id first, then label).
	// It returns -1 when the reference does not resolve.
	ColumnIndex(ref ColumnRef) int

	// Cell returns the cell at the specified row and column.
	// Returns ErrInvalidRow or ErrInvalidColumn for out of range indices.
	Cell(row, col int) (Cell, error)

	// Value returns the value at the specified row and column.
	Value(row, col int) (Value, error)

	// FormattedValue returns the explicit formatted value of a cell or its
	// default format.
	FormattedValue(row, col int) (string, error)

	// Property returns a single cell property, or nil.
	Property(row, col int, name string) (interface{}, error)

	// Properties returns the cell properties. The map is not copied.
	Properties(row, col int) (Properties, error)

	// RowProperty returns a single row property, or nil.
	RowProperty(row int, name string) (interface{}, error)

	// RowProperties returns the row properties. The map is not copied.
	RowProperties(row int) (Properties, error)

	// TableProperty returns a single table property, or nil.
	TableProperty(name string) interface{}

	// TableProperties returns the table properties. The map is not copied.
	TableProperties() Properties

	// SetProperty sets a cell property.
	SetProperty(row, col int, name string, value interface{}) error

	// SetRowProperty sets a row property.
	SetRowProperty(row int, name string, value interface{}) error

	// SetColumnProperty sets a column property.
	SetColumnProperty(col int, name string, value interface{}) error

	// SetTableProperty sets a table property.
	SetTableProperty(name string, value interface{})

	// SortedRows returns the row indices ordered by spec without changing the source.
	SortedRows(spec SortSpec) ([]int, error)

	// FilteredRows returns the ascending indices of the rows matching f.
	FilteredRows(f Filter) ([]int, error)

	// ColumnRange returns the minimum and maximum non-null values of a column.
	ColumnRange(col ColumnRef) (Range, error)

	// DistinctValues returns the sorted distinct values of a column.
	DistinctValues(col ColumnRef) ([]Value, error)

	// UnderlyingTableRowIndex resolves a row through every wrapping view
	// down to the original table.
	UnderlyingTableRowIndex(row int) (int, error)

	// UnderlyingTableColumnIndex resolves a column through every wrapping
	// view down to the original table. Computed columns without a source
	// resolve to -1.
	UnderlyingTableColumnIndex(col int) (int, error)

	// ToDataTable materializes the source into a new independent Table.
	ToDataTable() (*Table, error)

	// Snapshot returns a plain serializable copy of the source data.
	Snapshot() (*Snapshot, error)
}

// ColumnRef references a column either by position or by id/label.
type ColumnRef interface {
	columnRef()
}

// Index references a column by position.
type Index int

// ID references a column by id, falling back to label.
type ID string

func (Index) columnRef() {}
func (ID) columnRef()    {}

// Range is the result of ColumnRange. Min and Max are null when the column
// has no non-null values.
type Range struct {
	Min Value
	Max Value
}
