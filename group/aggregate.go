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

package group

import (
	"fmt"
	"strings"

	"github.com/magpierre/tabula/datatable"
)

// Sum adds the numeric values of a group. Nulls are skipped.
func Sum(values []datatable.Value) (interface{}, error) {
	var sum float64
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		if v.Kind() != datatable.KindNumber {
			return nil, fmt.Errorf("%w: sum of %s value", datatable.ErrTypeMismatch, v.Kind())
		}
		sum += v.NumberValue()
	}
	return sum, nil
}

// Count counts the non-null values of a group.
func Count(values []datatable.Value) (interface{}, error) {
	n := 0
	for _, v := range values {
		if !v.IsNull() {
			n++
		}
	}
	return n, nil
}

// Avg averages the numeric values of a group. It yields null for a group
// without non-null values.
func Avg(values []datatable.Value) (interface{}, error) {
	n, err := Count(values)
	if err != nil || n.(int) == 0 {
		return nil, err
	}
	sum, err := Sum(values)
	if err != nil {
		return nil, err
	}
	return sum.(float64) / float64(n.(int)), nil
}

// Min returns the smallest non-null value of a group, or null.
func Min(values []datatable.Value) (interface{}, error) {
	return extreme(values, -1), nil
}

// Max returns the largest non-null value of a group, or null.
func Max(values []datatable.Value) (interface{}, error) {
	return extreme(values, 1), nil
}

func extreme(values []datatable.Value, sign int) datatable.Value {
	best := datatable.Null()
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		if best.IsNull() || sign*datatable.CompareValues(datatable.TypeUnspecified, v, best) > 0 {
			best = v
		}
	}
	return best
}

// Month maps a date to its month number, 1 to 12.
func Month(v datatable.Value) (interface{}, error) {
	if v.IsNull() {
		return nil, nil
	}
	if v.Kind() != datatable.KindDate {
		return nil, fmt.Errorf("%w: month of %s value", datatable.ErrTypeMismatch, v.Kind())
	}
	return int(v.TimeValue().Month()), nil
}

// Year maps a date to its year.
func Year(v datatable.Value) (interface{}, error) {
	if v.IsNull() {
		return nil, nil
	}
	if v.Kind() != datatable.KindDate {
		return nil, fmt.Errorf("%w: year of %s value", datatable.ErrTypeMismatch, v.Kind())
	}
	return v.TimeValue().Year(), nil
}

// Lower maps a string to lower case.
func Lower(v datatable.Value) (interface{}, error) {
	if v.IsNull() {
		return nil, nil
	}
	if v.Kind() != datatable.KindString {
		return nil, fmt.Errorf("%w: lower of %s value", datatable.ErrTypeMismatch, v.Kind())
	}
	return strings.ToLower(v.StringValue()), nil
}

// ByMonth groups on the month of a date column.
func ByMonth(col datatable.ColumnRef) Key {
	return Key{Column: col, Modifier: Month, Type: datatable.TypeNumber}
}

// ByYear groups on the year of a date column.
func ByYear(col datatable.ColumnRef) Key {
	return Key{Column: col, Modifier: Year, Type: datatable.TypeNumber}
}

// AggregateByName returns the predefined aggregation called name.
func AggregateByName(name string) (AggregateFunc, error) {
	switch strings.ToLower(name) {
	case "sum":
		return Sum, nil
	case "count":
		return Count, nil
	case "avg", "average":
		return Avg, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	default:
		return nil, fmt.Errorf("%w: unknown aggregation %q", ErrInvalidAggregation, name)
	}
}
