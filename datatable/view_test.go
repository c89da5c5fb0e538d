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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewIdentityTransparency(t *testing.T) {
	tbl := newPeople(t)
	v, err := NewView(tbl)
	require.NoError(t, err)

	require.Equal(t, tbl.NumberOfRows(), v.NumberOfRows())
	require.Equal(t, tbl.NumberOfColumns(), v.NumberOfColumns())
	for r := 0; r < tbl.NumberOfRows(); r++ {
		for c := 0; c < tbl.NumberOfColumns(); c++ {
			want, err := tbl.Value(r, c)
			require.NoError(t, err)
			got, err := v.Value(r, c)
			require.NoError(t, err)
			assert.True(t, want.Equal(got) || (want.IsNull() && got.IsNull()), "cell %d,%d", r, c)
		}
	}

	// Identity views follow rows added to the table afterwards.
	_, err = tbl.AddRow("Eve", 50, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, v.NumberOfRows())
}

func TestNewViewNilSource(t *testing.T) {
	_, err := NewView(nil)
	assert.ErrorIs(t, err, ErrNoDataSource)
}

func TestViewRowsAndColumns(t *testing.T) {
	tbl := newPeople(t)
	v, err := NewView(tbl)
	require.NoError(t, err)

	require.NoError(t, v.SetColumns(ID("age"), Index(0)))
	require.NoError(t, v.SetRows(3, 0, 3))

	assert.Equal(t, 2, v.NumberOfColumns())
	assert.Equal(t, 3, v.NumberOfRows())
	val, err := v.Value(0, 1)
	require.NoError(t, err)
	assert.Equal(t, "Dee", val.StringValue())
	val, err = v.Value(1, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ann", val.StringValue())

	id, err := v.ColumnID(0)
	require.NoError(t, err)
	assert.Equal(t, "age", id)
	assert.Equal(t, 1, v.ColumnIndex(ID("Name")))

	assert.Equal(t, 0, v.ViewRowIndex(3))
	assert.Equal(t, -1, v.ViewRowIndex(1))
	assert.Equal(t, 1, v.ViewColumnIndex(0))
	assert.Equal(t, -1, v.ViewColumnIndex(2))

	tr, err := v.TableRowIndex(1)
	require.NoError(t, err)
	assert.Equal(t, 0, tr)

	assert.ErrorIs(t, v.SetRows(0, 9), ErrInvalidRow)
	assert.Equal(t, 3, v.NumberOfRows())
	assert.ErrorIs(t, v.SetColumns(Index(0), ID("nope")), ErrColumnNotFound)
	assert.Equal(t, 2, v.NumberOfColumns())
}

func TestViewRowShapingIsPermanent(t *testing.T) {
	tbl := newPeople(t)
	v, err := NewView(tbl)
	require.NoError(t, err)
	require.NoError(t, v.SetRowRange(0, 3))
	assert.Equal(t, []int{0, 1, 2, 3}, v.Rows())

	_, err = tbl.AddRow("Eve", 50, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, v.NumberOfRows())

	require.NoError(t, v.HideRows(1))
	assert.Equal(t, []int{0, 2, 3}, v.Rows())
	require.NoError(t, v.HideRowRange(2, 3))
	assert.Equal(t, []int{0}, v.Rows())
	assert.ErrorIs(t, v.SetRowRange(3, 1), ErrInvalidRow)
}

func TestViewHideColumns(t *testing.T) {
	tbl := newPeople(t)
	v, err := NewView(tbl)
	require.NoError(t, err)
	require.NoError(t, v.HideColumns(1))
	assert.Equal(t, []ViewColumn{Index(0), Index(2)}, v.Columns())
}

func TestViewComputedColumns(t *testing.T) {
	tbl := newPeople(t)
	v, err := NewView(tbl)
	require.NoError(t, err)

	calls := 0
	double := CalcFunc(func(src DataSource, row int) (interface{}, error) {
		calls++
		val, err := src.Value(row, 1)
		if err != nil || val.IsNull() {
			return nil, err
		}
		return val.NumberValue() * 2, nil
	})
	require.NoError(t, v.SetColumns(
		Index(0),
		&ComputedColumn{Calc: double, Type: TypeNumber, ID: "double", Label: "Double"},
		&ComputedColumn{SourceColumn: ID("age"), Label: "Copy", Role: "annotation"},
		&ComputedColumn{Calc: CalcStringify, SourceColumn: Index(2)},
		&ComputedColumn{Calc: CalcEmptyString},
	))

	val, err := v.Value(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 68.0, val.NumberValue())
	_, err = v.Value(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "computed cells are cached")

	dt, err := v.ColumnType(2)
	require.NoError(t, err)
	assert.Equal(t, TypeNumber, dt)
	role, err := v.ColumnRole(2)
	require.NoError(t, err)
	assert.Equal(t, "annotation", role)
	val, err = v.Value(2, 2)
	require.NoError(t, err)
	assert.Equal(t, 27.0, val.NumberValue())

	dt, err = v.ColumnType(3)
	require.NoError(t, err)
	assert.Equal(t, TypeString, dt)
	val, err = v.Value(0, 3)
	require.NoError(t, err)
	assert.Equal(t, "Jan 15, 2020", val.StringValue())

	val, err = v.Value(1, 4)
	require.NoError(t, err)
	assert.Equal(t, "", val.StringValue())

	src, err := v.TableColumnIndex(2)
	require.NoError(t, err)
	assert.Equal(t, 1, src)
	src, err = v.TableColumnIndex(1)
	require.NoError(t, err)
	assert.Equal(t, -1, src)

	assert.ErrorIs(t, v.SetProperty(0, 1, "k", "v"), ErrReadOnlyColumn)

	require.NoError(t, v.SetRows(0))
	_, err = v.Value(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "row changes invalidate the cache")
}

func TestViewComputedColumnValidation(t *testing.T) {
	tbl := newPeople(t)
	v, err := NewView(tbl)
	require.NoError(t, err)

	err = v.SetColumns(&ComputedColumn{Calc: CalcFunc(func(DataSource, int) (interface{}, error) { return 1, nil })})
	assert.ErrorIs(t, err, ErrInvalidColumnSpec)

	err = v.SetColumns(&ComputedColumn{Calc: CalcIdentity, Type: TypeString})
	assert.ErrorIs(t, err, ErrInvalidColumnSpec)

	err = v.SetColumns(&ComputedColumn{Calc: NamedCalc("bogus"), SourceColumn: Index(0)})
	assert.ErrorIs(t, err, ErrInvalidColumnSpec)

	require.NoError(t, v.SetColumns(&ComputedColumn{
		Calc: CalcFunc(func(DataSource, int) (interface{}, error) { return "oops", nil }),
		Type: TypeNumber,
	}))
	_, err = v.Value(0, 0)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	boom := errors.New("boom")
	require.NoError(t, v.SetColumns(&ComputedColumn{
		Calc: CalcFunc(func(DataSource, int) (interface{}, error) { return nil, boom }),
		Type: TypeNumber,
	}))
	_, err = v.Value(0, 0)
	assert.ErrorIs(t, err, boom)
}

func TestViewFillColumns(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.AddColumn(Column{ID: "x", Type: TypeNumber})
	require.NoError(t, err)
	_, err = tbl.AddRows([][]interface{}{{nil}, {1}, {nil}, {nil}, {4}, {nil}})
	require.NoError(t, err)

	v, err := NewView(tbl)
	require.NoError(t, err)
	require.NoError(t, v.SetColumns(
		Index(0),
		&ComputedColumn{Calc: CalcFillFromTop, SourceColumn: Index(0)},
		&ComputedColumn{Calc: CalcFillFromBottom, SourceColumn: Index(0)},
	))

	// Rows are read in a scattered order; the fill uses wrapped row order.
	require.NoError(t, v.SetRows(5, 2, 0, 3))
	top := []interface{}{4.0, 1.0, nil, 1.0}
	bottom := []interface{}{nil, 4.0, 1.0, 4.0}
	for r := range top {
		val, err := v.Value(r, 1)
		require.NoError(t, err)
		assert.Equal(t, top[r], val.Interface(), "fillFromTop row %d", r)
		val, err = v.Value(r, 2)
		require.NoError(t, err)
		assert.Equal(t, bottom[r], val.Interface(), "fillFromBottom row %d", r)
	}

	// The per-row implementation agrees with the bulk pass.
	cc := v.Columns()[1].(*ComputedColumn)
	raw, err := CalcFillFromTop.Calculate(tbl, 3, cc)
	require.NoError(t, err)
	assert.Equal(t, Number(1), raw)
}

func TestViewMapFromSource(t *testing.T) {
	tbl := newPeople(t)
	v, err := NewView(tbl)
	require.NoError(t, err)
	require.NoError(t, v.SetColumns(&ComputedColumn{
		Calc:         CalcMapFromSource,
		SourceColumn: ID("age"),
		Type:         TypeString,
		Mapping:      map[string]interface{}{"34": "thirties", "27": "twenties"},
	}))
	want := []interface{}{"thirties", nil, "twenties", "thirties"}
	for r, w := range want {
		val, err := v.Value(r, 0)
		require.NoError(t, err)
		assert.Equal(t, w, val.Interface())
	}
}

func TestViewColumnIndexFollowsSourceLabels(t *testing.T) {
	tbl := newPeople(t)
	v, err := NewView(tbl)
	require.NoError(t, err)
	require.NoError(t, v.SetColumns(Index(1), Index(0)))
	outer, err := NewView(v)
	require.NoError(t, err)

	assert.Equal(t, 1, v.ColumnIndex(ID("Name")))
	assert.Equal(t, 1, outer.ColumnIndex(ID("Name")))

	require.NoError(t, tbl.SetColumnLabel(0, "Full name"))
	for _, ds := range []DataSource{v, outer} {
		assert.Equal(t, 1, ds.ColumnIndex(ID("Full name")))
		assert.Equal(t, -1, ds.ColumnIndex(ID("Name")))
		assert.Equal(t, 1, ds.ColumnIndex(ID("name")))
	}
}

func TestNestedViewsResolveToTable(t *testing.T) {
	tbl := newPeople(t)
	inner, err := NewView(tbl)
	require.NoError(t, err)
	require.NoError(t, inner.SetColumns(Index(2), Index(0)))
	require.NoError(t, inner.SetRows(3, 1))

	outer, err := NewView(inner)
	require.NoError(t, err)
	require.NoError(t, outer.SetColumns(Index(1), &ComputedColumn{SourceColumn: Index(0)}, &ComputedColumn{Calc: CalcEmptyString}))
	require.NoError(t, outer.SetRows(1))

	row, err := outer.UnderlyingTableRowIndex(0)
	require.NoError(t, err)
	assert.Equal(t, 1, row)

	col, err := outer.UnderlyingTableColumnIndex(0)
	require.NoError(t, err)
	assert.Equal(t, 0, col)
	col, err = outer.UnderlyingTableColumnIndex(1)
	require.NoError(t, err)
	assert.Equal(t, 2, col)
	col, err = outer.UnderlyingTableColumnIndex(2)
	require.NoError(t, err)
	assert.Equal(t, -1, col)

	val, err := outer.Value(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Bob", val.StringValue())
}

func TestViewToDataTable(t *testing.T) {
	tbl := newPeople(t)
	v, err := NewView(tbl)
	require.NoError(t, err)
	require.NoError(t, v.SetColumns(Index(0), &ComputedColumn{Calc: CalcStringify, SourceColumn: Index(1), ID: "age_s"}))
	require.NoError(t, v.SetRows(2, 0))

	out, err := v.ToDataTable()
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumberOfRows())
	assert.Equal(t, 2, out.NumberOfColumns())
	val, err := out.Value(0, 1)
	require.NoError(t, err)
	assert.Equal(t, "27", val.StringValue())

	require.NoError(t, tbl.SetValue(2, 0, "Changed"))
	val, err = out.Value(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Cid", val.StringValue())
}

func TestViewSpecRoundTrip(t *testing.T) {
	tbl := newPeople(t)
	v, err := NewView(tbl)
	require.NoError(t, err)
	require.NoError(t, v.SetColumns(
		Index(2),
		&ComputedColumn{Calc: CalcFillFromTop, SourceColumn: ID("age"), ID: "age_filled", Label: "Age"},
	))
	require.NoError(t, v.SetRows(3, 1))

	data, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":[2,{"calc":{"name":"fillFromTop"},"type":"number","sourceColumn":1,"id":"age_filled","label":"Age"}],"rows":[3,1]}`, string(data))

	restored, err := ViewFromJSON(tbl, data, nil)
	require.NoError(t, err)
	assert.Equal(t, v.Rows(), restored.Rows())
	assert.Equal(t, v.Columns(), restored.Columns())

	plain, err := NewView(tbl)
	require.NoError(t, err)
	data, err = plain.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":[0,1,2],"rows":null}`, string(data))

	require.NoError(t, v.SetColumns(&ComputedColumn{
		Calc: CalcFunc(func(DataSource, int) (interface{}, error) { return nil, nil }),
		Type: TypeString,
	}))
	_, err = v.MarshalJSON()
	assert.ErrorIs(t, err, ErrNotSerializable)
}
