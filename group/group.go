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

// Package group implements a sort-based GROUP BY over any datatable.DataSource.
package group

import (
	"errors"
	"fmt"

	"github.com/magpierre/tabula/datatable"
)

// ErrInvalidAggregation is returned for an aggregation without a function.
var ErrInvalidAggregation = errors.New("invalid aggregation")

// Modifier transforms a key value before grouping, e.g. a date to its month.
type Modifier func(v datatable.Value) (interface{}, error)

// AggregateFunc folds the values of one group into a single value.
type AggregateFunc func(values []datatable.Value) (interface{}, error)

// Key is a grouping key.
type Key struct {
	Column datatable.ColumnRef
	// Modifier is applied to the column value before grouping. Type is then
	// the declared result type; without a Modifier the source type is used.
	Modifier Modifier
	Type     datatable.DataType
	Label    string
	ID       string
}

// Aggregation is one aggregated output column.
type Aggregation struct {
	Column    datatable.ColumnRef
	Aggregate AggregateFunc
	// Type defaults to the type of Column, or to the type of the aggregated
	// values when they do not fit it (Count over strings is a number).
	Type  datatable.DataType
	Label string
	ID    string
}

type keyColumn struct {
	Key
	// index is the key column in the grouped source, source the column
	// of the original input it derives from.
	index  int
	source int
	dt     datatable.DataType
}

// Group groups the rows of src by keys and aggregates each group. Groups
// appear in ascending key order. Output columns are the keys followed by
// the aggregations, in the order given. With no keys every row belongs to
// one group.
func Group(src datatable.DataSource, keys []Key, aggs []Aggregation) (*datatable.Table, error) {
	if src == nil {
		return nil, datatable.ErrNoDataSource
	}
	log := datatable.Logger().WithName("group")

	ds, resolved, err := effectiveKeys(src, keys)
	if err != nil {
		return nil, err
	}
	aggIdx := make([]int, len(aggs))
	for i, a := range aggs {
		if a.Aggregate == nil {
			return nil, fmt.Errorf("%w: aggregation %d has no function", ErrInvalidAggregation, i)
		}
		idx, err := datatable.ValidateColumnReference(src, a.Column)
		if err != nil {
			return nil, fmt.Errorf("aggregation %d: %w", i, err)
		}
		aggIdx[i] = idx
	}

	order, err := sortedOrder(ds, resolved)
	if err != nil {
		return nil, err
	}

	var rows [][]interface{}
	for start := 0; start < len(order); {
		end := start + 1
		for end < len(order) {
			same, err := sameKeys(ds, resolved, order[start], order[end])
			if err != nil {
				return nil, err
			}
			if !same {
				break
			}
			end++
		}
		row, err := groupRow(ds, resolved, aggs, aggIdx, order[start:end])
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		start = end
	}
	out, err := outputTable(src, resolved, aggs, aggIdx, rows)
	if err != nil {
		return nil, err
	}
	if _, err := out.AddRows(rows); err != nil {
		return nil, err
	}
	log.V(1).Info("grouped rows", "rows", len(order), "groups", len(rows), "keys", len(keys), "aggregations", len(aggs))
	return out, nil
}

// effectiveKeys resolves keys against src. When a key has a modifier it
// returns a view that appends one computed column per modifier and points
// those keys at the computed columns.
func effectiveKeys(src datatable.DataSource, keys []Key) (datatable.DataSource, []keyColumn, error) {
	resolved := make([]keyColumn, len(keys))
	var computed []datatable.ViewColumn
	for i, k := range keys {
		idx, err := datatable.ValidateColumnReference(src, k.Column)
		if err != nil {
			return nil, nil, fmt.Errorf("key %d: %w", i, err)
		}
		dt, err := src.ColumnType(idx)
		if err != nil {
			return nil, nil, err
		}
		resolved[i] = keyColumn{Key: k, index: idx, source: idx, dt: dt}
		if k.Modifier == nil {
			continue
		}
		if k.Type != datatable.TypeUnspecified {
			resolved[i].dt = k.Type
		}
		resolved[i].index = src.NumberOfColumns() + len(computed)
		computed = append(computed, &datatable.ComputedColumn{
			Calc:         modifierCalc(k.Modifier, idx),
			Type:         resolved[i].dt,
			SourceColumn: datatable.Index(idx),
			ID:           k.ID,
			Label:        k.Label,
		})
	}
	if len(computed) == 0 {
		return src, resolved, nil
	}

	view, err := datatable.NewView(src)
	if err != nil {
		return nil, nil, err
	}
	cols := make([]datatable.ViewColumn, 0, src.NumberOfColumns()+len(computed))
	for c := 0; c < src.NumberOfColumns(); c++ {
		cols = append(cols, datatable.Index(c))
	}
	if err := view.SetColumns(append(cols, computed...)...); err != nil {
		return nil, nil, err
	}
	return view, resolved, nil
}

func modifierCalc(m Modifier, col int) datatable.CalcFunc {
	return func(src datatable.DataSource, row int) (interface{}, error) {
		v, err := src.Value(row, col)
		if err != nil {
			return nil, err
		}
		return m(v)
	}
}

func outputTable(src datatable.DataSource, keys []keyColumn, aggs []Aggregation, aggIdx []int, rows [][]interface{}) (*datatable.Table, error) {
	out := datatable.NewTable()
	for i, k := range keys {
		col, err := describe(src, k.source, k.ID, k.Label)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		col.Type = k.dt
		if _, err := out.AddColumn(col); err != nil {
			return nil, err
		}
	}
	for i, a := range aggs {
		col, err := describe(src, aggIdx[i], a.ID, a.Label)
		if err != nil {
			return nil, fmt.Errorf("aggregation %d: %w", i, err)
		}
		dt := a.Type
		if dt == datatable.TypeUnspecified {
			dt = resultType(col.Type, rows, len(keys)+i)
		}
		if dt != col.Type {
			col.Type = dt
			col.Pattern = ""
		}
		if _, err := out.AddColumn(col); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// resultType is the type of aggregated column pos: dt when the first
// non-null result fits it, otherwise the type matching that result.
func resultType(dt datatable.DataType, rows [][]interface{}, pos int) datatable.DataType {
	for _, row := range rows {
		v, err := datatable.ValueOf(row[pos])
		if err != nil {
			return dt
		}
		switch v.Kind() {
		case datatable.KindNull:
			continue
		case datatable.KindString:
			return datatable.TypeString
		case datatable.KindNumber:
			return datatable.TypeNumber
		case datatable.KindBoolean:
			return datatable.TypeBoolean
		case datatable.KindDate:
			if dt == datatable.TypeDate || dt == datatable.TypeDateTime {
				return dt
			}
			return datatable.TypeDateTime
		case datatable.KindTimeOfDay:
			return datatable.TypeTimeOfDay
		}
		return dt
	}
	return dt
}

// describe copies the spec of column col of src, overriding id and label
// when given.
func describe(src datatable.DataSource, col int, id, label string) (datatable.Column, error) {
	var c datatable.Column
	var err error
	if c.ID, err = src.ColumnID(col); err != nil {
		return c, err
	}
	if c.Label, err = src.ColumnLabel(col); err != nil {
		return c, err
	}
	if c.Type, err = src.ColumnType(col); err != nil {
		return c, err
	}
	if c.Pattern, err = src.ColumnPattern(col); err != nil {
		return c, err
	}
	if id != "" {
		c.ID = id
	}
	if label != "" {
		c.Label = label
	}
	return c, nil
}

func sortedOrder(ds datatable.DataSource, keys []keyColumn) ([]int, error) {
	if len(keys) == 0 {
		order := make([]int, ds.NumberOfRows())
		for i := range order {
			order[i] = i
		}
		return order, nil
	}
	spec := make(datatable.SortColumns, len(keys))
	for i, k := range keys {
		spec[i] = datatable.Asc(datatable.Index(k.index))
	}
	return datatable.SortedRows(ds, spec)
}

func sameKeys(ds datatable.DataSource, keys []keyColumn, a, b int) (bool, error) {
	for _, k := range keys {
		va, err := ds.Value(a, k.index)
		if err != nil {
			return false, err
		}
		vb, err := ds.Value(b, k.index)
		if err != nil {
			return false, err
		}
		if datatable.CompareValues(k.dt, va, vb) != 0 {
			return false, nil
		}
	}
	return true, nil
}

// groupRow emits the keys of the first row of a group followed by one
// aggregated value per aggregation.
func groupRow(ds datatable.DataSource, keys []keyColumn, aggs []Aggregation, aggIdx []int, rows []int) ([]interface{}, error) {
	out := make([]interface{}, 0, len(keys)+len(aggs))
	for _, k := range keys {
		v, err := ds.Value(rows[0], k.index)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	for i, a := range aggs {
		values := make([]datatable.Value, len(rows))
		for j, r := range rows {
			v, err := ds.Value(r, aggIdx[i])
			if err != nil {
				return nil, err
			}
			values[j] = v
		}
		agg, err := a.Aggregate(values)
		if err != nil {
			return nil, fmt.Errorf("aggregation %d: %w", i, err)
		}
		out = append(out, agg)
	}
	return out, nil
}
