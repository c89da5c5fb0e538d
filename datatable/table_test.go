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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newPeople returns a table with a string, a number and a date column.
func newPeople(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable()
	_, err := tbl.AddColumn(Column{ID: "name", Label: "Name", Type: TypeString})
	require.NoError(t, err)
	_, err = tbl.AddColumn(Column{ID: "age", Label: "Age", Type: TypeNumber, Role: "data"})
	require.NoError(t, err)
	_, err = tbl.AddColumn(Column{ID: "joined", Label: "Joined", Type: TypeDate})
	require.NoError(t, err)
	_, err = tbl.AddRows([][]interface{}{
		{"Ann", 34, day(2020, 1, 15)},
		{"Bob", nil, day(2019, 6, 1)},
		{"Cid", 27, nil},
		{"Dee", 34, day(2021, 11, 30)},
	})
	require.NoError(t, err)
	return tbl
}

func TestTableColumns(t *testing.T) {
	tbl := newPeople(t)
	assert.Equal(t, 3, tbl.NumberOfColumns())
	assert.Equal(t, 4, tbl.NumberOfRows())

	role, err := tbl.ColumnRole(1)
	require.NoError(t, err)
	assert.Equal(t, "data", role)

	assert.Equal(t, 1, tbl.ColumnIndex(ID("age")))
	assert.Equal(t, 2, tbl.ColumnIndex(ID("Joined")))
	assert.Equal(t, -1, tbl.ColumnIndex(ID("missing")))
	assert.Equal(t, -1, tbl.ColumnIndex(Index(3)))
	assert.Equal(t, -1, tbl.ColumnIndex(Index(-1)))

	_, err = tbl.ColumnType(7)
	assert.ErrorIs(t, err, ErrInvalidColumn)

	_, err = tbl.AddColumn(Column{ID: "bad", Type: DataType(99)})
	assert.ErrorIs(t, err, ErrInvalidType)
	assert.Equal(t, 3, tbl.NumberOfColumns())
}

func TestTableDefaultColumnType(t *testing.T) {
	tbl := NewTable()
	idx, err := tbl.AddColumn(Column{ID: "x"})
	require.NoError(t, err)
	dt, err := tbl.ColumnType(idx)
	require.NoError(t, err)
	assert.Equal(t, TypeString, dt)
}

func TestTableInsertColumnShiftsCells(t *testing.T) {
	tbl := newPeople(t)
	require.NoError(t, tbl.InsertColumn(1, Column{ID: "flag", Type: TypeBoolean}))
	assert.Equal(t, 4, tbl.NumberOfColumns())

	for r := 0; r < tbl.NumberOfRows(); r++ {
		v, err := tbl.Value(r, 1)
		require.NoError(t, err)
		assert.True(t, v.IsNull())
	}
	v, err := tbl.Value(0, 2)
	require.NoError(t, err)
	assert.Equal(t, 34.0, v.NumberValue())
	assert.Equal(t, 2, tbl.ColumnIndex(ID("age")))

	require.NoError(t, tbl.RemoveColumns(1, 10))
	assert.Equal(t, 1, tbl.NumberOfColumns())
	assert.Equal(t, -1, tbl.ColumnIndex(ID("age")))
}

func TestTableAddRowShape(t *testing.T) {
	tbl := newPeople(t)
	_, err := tbl.AddRow("Eve", 30)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	idx, err := tbl.AddRow()
	require.NoError(t, err)
	assert.Equal(t, 4, idx)
	v, err := tbl.Value(4, 0)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	last, err := tbl.AddEmptyRows(3)
	require.NoError(t, err)
	assert.Equal(t, 7, last)
}

func TestTableTypeRejectionDoesNotMutate(t *testing.T) {
	tbl := newPeople(t)
	before, err := tbl.Snapshot()
	require.NoError(t, err)

	_, err = tbl.AddRows([][]interface{}{
		{"Eve", 30, nil},
		{"Fay", "thirty", nil},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.Contains(t, err.Error(), "row 5 column 1")
	assert.Equal(t, 4, tbl.NumberOfRows())

	err = tbl.SetValue(0, 1, "not a number")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	after, err := tbl.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTableNumericStringCoercion(t *testing.T) {
	tbl := newPeople(t)
	require.NoError(t, tbl.SetValue(0, 1, " 41.5 "))
	v, err := tbl.Value(0, 1)
	require.NoError(t, err)
	assert.Equal(t, KindNumber, v.Kind())
	assert.Equal(t, 41.5, v.NumberValue())
}

func TestTableParseCellObjects(t *testing.T) {
	tbl := newPeople(t)
	_, err := tbl.AddRow(
		map[string]interface{}{"v": "Eve", "f": "EVE", "p": map[string]interface{}{"bold": true}},
		Cell{V: Number(3)},
		nil,
	)
	require.NoError(t, err)

	f, err := tbl.FormattedValue(4, 0)
	require.NoError(t, err)
	assert.Equal(t, "EVE", f)
	p, err := tbl.Property(4, 0, "bold")
	require.NoError(t, err)
	assert.Equal(t, true, p)

	_, err = tbl.AddRow(map[string]interface{}{"v": "x", "f": 12}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCell)
	_, err = tbl.AddRow(map[string]interface{}{"v": "x", "p": "bold"}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCell)
}

func TestTableFormattedValueCacheCoherence(t *testing.T) {
	tbl := newPeople(t)
	f, err := tbl.FormattedValue(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Ann", f)

	require.NoError(t, tbl.SetValue(0, 0, "Anna"))
	f, err = tbl.FormattedValue(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Anna", f)

	require.NoError(t, tbl.SetFormattedValue(0, 0, "ANNA"))
	f, err = tbl.FormattedValue(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "ANNA", f)

	require.NoError(t, tbl.SetValue(0, 0, "Annie"))
	f, err = tbl.FormattedValue(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Annie", f)

	f, err = tbl.FormattedValue(1, 2)
	require.NoError(t, err)
	assert.Equal(t, "Jun 1, 2019", f)
	require.NoError(t, tbl.RemoveRow(0))
	f, err = tbl.FormattedValue(0, 2)
	require.NoError(t, err)
	assert.Equal(t, "Jun 1, 2019", f)
	f, err = tbl.FormattedValue(1, 2)
	require.NoError(t, err)
	assert.Equal(t, "", f)
}

func TestTableSetCellPartial(t *testing.T) {
	tbl := newPeople(t)
	require.NoError(t, tbl.SetCell(0, 1, WithFormatted("thirty-four")))
	require.NoError(t, tbl.SetCell(0, 1, WithProperties(Properties{"style": "x"})))

	c, err := tbl.Cell(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 34.0, c.V.NumberValue())
	require.NotNil(t, c.F)
	assert.Equal(t, "thirty-four", *c.F)
	assert.Equal(t, Properties{"style": "x"}, c.P)

	assert.ErrorIs(t, tbl.SetCell(9, 0, WithValue("x")), ErrInvalidRow)
}

func TestTableSortIsStable(t *testing.T) {
	tbl := newPeople(t)
	require.NoError(t, tbl.Sort(Desc(ID("age"))))

	var names []string
	for r := 0; r < tbl.NumberOfRows(); r++ {
		v, err := tbl.Value(r, 0)
		require.NoError(t, err)
		names = append(names, v.StringValue())
	}
	// Ann and Dee tie on 34 and keep their input order; null sorts last when descending.
	assert.Equal(t, []string{"Ann", "Dee", "Cid", "Bob"}, names)
}

func TestSortedRowsSpecs(t *testing.T) {
	tbl := newPeople(t)

	rows, err := tbl.SortedRows(Index(1))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 0, 3}, rows)

	rows, err = tbl.SortedRows(SortColumns{Desc(Index(1)), Desc(Index(0))})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 0, 2, 1}, rows)

	rows, err = tbl.SortedRows(SortColumn{Column: ID("name"), Compare: func(a, b Value) int {
		return -CompareValues(TypeString, a, b)
	}})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 1, 0}, rows)

	rows, err = tbl.SortedRows(RowComparator(func(a, b int) int { return compareInts(b, a) }))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 1, 0}, rows)

	_, err = tbl.SortedRows(SortColumns{Asc(Index(1)), Desc(ID("age"))})
	assert.ErrorIs(t, err, ErrDuplicateSortColumn)

	_, err = tbl.SortedRows(ID("nope"))
	assert.ErrorIs(t, err, ErrInvalidSortColumn)
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestStandardizeSortColumnsUsesAccessor(t *testing.T) {
	tbl := newPeople(t)
	values := map[int]Value{100: Number(3), 200: Number(1), 300: Number(2)}
	cmp, err := StandardizeSortColumns(tbl, Index(1), func(id, col int) Value {
		return values[id]
	})
	require.NoError(t, err)
	ids := []int{100, 200, 300}
	StableSort(ids, cmp)
	assert.Equal(t, []int{200, 300, 100}, ids)
}

func TestFilteredRowsRangeConsistency(t *testing.T) {
	tbl := newPeople(t)
	minV, maxV := Number(30), Number(40)
	rows, err := tbl.FilteredRows(ColumnFilters{{Column: Index(1), MinValue: &minV, MaxValue: &maxV}})
	require.NoError(t, err)

	var want []int
	for r := 0; r < tbl.NumberOfRows(); r++ {
		v, err := tbl.Value(r, 1)
		require.NoError(t, err)
		if !v.IsNull() && CompareValues(TypeNumber, minV, v) <= 0 && CompareValues(TypeNumber, v, maxV) <= 0 {
			want = append(want, r)
		}
	}
	assert.Equal(t, want, rows)
	assert.Equal(t, []int{0, 3}, rows)
}

func TestFilteredRowsClauses(t *testing.T) {
	tbl := newPeople(t)

	rows, err := tbl.FilteredRows(ColumnFilters{
		{Column: ID("age"), Value: Number(34).Ref()},
		{Column: ID("name"), Test: func(v Value, _, _ int, _ DataSource) bool { return v.StringValue() != "Ann" }},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, rows)

	maxV := Number(30)
	rows, err = tbl.FilteredRows(ColumnFilters{{Column: Index(1), MaxValue: &maxV}})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, rows)

	rows, err = tbl.FilteredRows(RowPredicate(func(ds DataSource, row int) (bool, error) {
		return row%2 == 0, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, rows)

	_, err = tbl.FilteredRows(ColumnFilters{{Column: Index(0)}})
	assert.ErrorIs(t, err, ErrInvalidFilter)
	_, err = tbl.FilteredRows(ColumnFilters{})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestColumnRangeAndDistinct(t *testing.T) {
	tbl := newPeople(t)
	rng, err := tbl.ColumnRange(ID("age"))
	require.NoError(t, err)
	assert.Equal(t, 27.0, rng.Min.NumberValue())
	assert.Equal(t, 34.0, rng.Max.NumberValue())

	distinct, err := tbl.DistinctValues(Index(1))
	require.NoError(t, err)
	require.Len(t, distinct, 3)
	assert.True(t, distinct[0].IsNull())
	assert.Equal(t, 27.0, distinct[1].NumberValue())
	assert.Equal(t, 34.0, distinct[2].NumberValue())

	empty := NewTable()
	_, err = empty.AddColumn(Column{ID: "n", Type: TypeNumber})
	require.NoError(t, err)
	_, err = empty.AddEmptyRows(2)
	require.NoError(t, err)
	rng, err = empty.ColumnRange(Index(0))
	require.NoError(t, err)
	assert.True(t, rng.Min.IsNull())
	assert.True(t, rng.Max.IsNull())
}

func TestTableCloneIsDeep(t *testing.T) {
	tbl := newPeople(t)
	require.NoError(t, tbl.SetProperty(0, 0, "k", "v"))
	cp := tbl.Clone()
	require.NoError(t, cp.SetValue(0, 0, "Zed"))
	require.NoError(t, cp.SetProperty(0, 0, "k", "changed"))

	v, err := tbl.Value(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Ann", v.StringValue())
	p, err := tbl.Property(0, 0, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", p)
}
