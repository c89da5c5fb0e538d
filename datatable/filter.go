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

import "fmt"

// Filter selects rows. It is implemented by RowPredicate and ColumnFilters.
type Filter interface {
	rowFilter()
}

// RowPredicate keeps the rows for which it returns true.
type RowPredicate func(ds DataSource, row int) (bool, error)

// ColumnFilter is one per-column clause. At least one of Value, MinValue,
// MaxValue or Test must be set; all that are set must hold.
type ColumnFilter struct {
	Column ColumnRef
	// Value requires the cell value to compare equal.
	Value *Value
	// MinValue and MaxValue are inclusive bounds. A present bound excludes
	// null cells.
	MinValue *Value
	MaxValue *Value
	// Test is an arbitrary additional condition.
	Test func(v Value, row, col int, ds DataSource) bool
}

// ColumnFilters is a conjunction of column clauses.
type ColumnFilters []ColumnFilter

func (RowPredicate) rowFilter()  {}
func (ColumnFilters) rowFilter() {}

type resolvedFilter struct {
	ColumnFilter
	index int
	dt    DataType
}

func (f resolvedFilter) matches(ds DataSource, row int) (bool, error) {
	v, err := ds.Value(row, f.index)
	if err != nil {
		return false, err
	}
	if f.Value != nil && CompareValues(f.dt, v, *f.Value) != 0 {
		return false, nil
	}
	if f.MinValue != nil || f.MaxValue != nil {
		if v.IsNull() {
			return false, nil
		}
		if f.MinValue != nil && CompareValues(f.dt, v, *f.MinValue) < 0 {
			return false, nil
		}
		if f.MaxValue != nil && CompareValues(f.dt, v, *f.MaxValue) > 0 {
			return false, nil
		}
	}
	if f.Test != nil && !f.Test(v, row, f.index, ds) {
		return false, nil
	}
	return true, nil
}

func resolveColumnFilters(ds DataSource, filters ColumnFilters) ([]resolvedFilter, error) {
	if len(filters) == 0 {
		return nil, fmt.Errorf("%w: no column filters", ErrInvalidFilter)
	}
	out := make([]resolvedFilter, 0, len(filters))
	for i, f := range filters {
		idx, err := ValidateColumnReference(ds, f.Column)
		if err != nil {
			return nil, fmt.Errorf("%w: clause %d: %w", ErrInvalidFilter, i, err)
		}
		if f.Value == nil && f.MinValue == nil && f.MaxValue == nil && f.Test == nil {
			return nil, fmt.Errorf("%w: clause %d needs a value, a bound or a test", ErrInvalidFilter, i)
		}
		dt, err := ds.ColumnType(idx)
		if err != nil {
			return nil, err
		}
		out = append(out, resolvedFilter{ColumnFilter: f, index: idx, dt: dt})
	}
	return out, nil
}

// FilteredRows returns the ascending indices of the rows of ds matching f.
func FilteredRows(ds DataSource, f Filter) ([]int, error) {
	switch flt := f.(type) {
	case RowPredicate:
		if flt == nil {
			return nil, fmt.Errorf("%w: nil predicate", ErrInvalidFilter)
		}
		var rows []int
		for r := 0; r < ds.NumberOfRows(); r++ {
			ok, err := flt(ds, r)
			if err != nil {
				return nil, err
			}
			if ok {
				rows = append(rows, r)
			}
		}
		return nonNil(rows), nil
	case ColumnFilters:
		clauses, err := resolveColumnFilters(ds, flt)
		if err != nil {
			return nil, err
		}
		var rows []int
	next:
		for r := 0; r < ds.NumberOfRows(); r++ {
			for _, c := range clauses {
				ok, err := c.matches(ds, r)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue next
				}
			}
			rows = append(rows, r)
		}
		return nonNil(rows), nil
	case nil:
		return nil, fmt.Errorf("%w: nil filter", ErrInvalidFilter)
	default:
		return nil, fmt.Errorf("%w: unsupported filter %T", ErrInvalidFilter, f)
	}
}

func nonNil(rows []int) []int {
	if rows == nil {
		return []int{}
	}
	return rows
}
