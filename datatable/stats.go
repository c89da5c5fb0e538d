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

// ColumnRange returns the minimum and maximum non-null values of a column
// in one pass. Both are null when the column holds only nulls.
func ColumnRange(ds DataSource, ref ColumnRef) (Range, error) {
	col, err := ValidateColumnReference(ds, ref)
	if err != nil {
		return Range{}, err
	}
	dt, err := ds.ColumnType(col)
	if err != nil {
		return Range{}, err
	}
	var rng Range
	for r := 0; r < ds.NumberOfRows(); r++ {
		v, err := ds.Value(r, col)
		if err != nil {
			return Range{}, err
		}
		if v.IsNull() {
			continue
		}
		if rng.Min.IsNull() || CompareValues(dt, v, rng.Min) < 0 {
			rng.Min = v
		}
		if rng.Max.IsNull() || CompareValues(dt, v, rng.Max) > 0 {
			rng.Max = v
		}
	}
	return rng, nil
}

// DistinctValues returns the distinct values of a column in ascending
// order. A null, if present, is kept once and sorts first.
func DistinctValues(ds DataSource, ref ColumnRef) ([]Value, error) {
	col, err := ValidateColumnReference(ds, ref)
	if err != nil {
		return nil, err
	}
	dt, err := ds.ColumnType(col)
	if err != nil {
		return nil, err
	}
	values := make([]Value, 0, ds.NumberOfRows())
	for r := 0; r < ds.NumberOfRows(); r++ {
		v, err := ds.Value(r, col)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	StableSort(values, func(a, b Value) int { return CompareValues(dt, a, b) })

	out := values[:0]
	for i, v := range values {
		if i > 0 && CompareValues(dt, v, out[len(out)-1]) == 0 {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
