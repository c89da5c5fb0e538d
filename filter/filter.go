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

// Package filter builds row filters over datatable data sources: composite
// AND/OR filters and a small text query language.
package filter

import (
	"github.com/magpierre/tabula/datatable"
)

// Filter decides whether a single row of a data source passes.
type Filter interface {
	// Evaluate reports whether row passes the filter.
	Evaluate(ds datatable.DataSource, row int) (bool, error)

	// Description returns a human readable form of the filter.
	Description() string
}

// Predicate adapts f to a datatable.RowPredicate so it can be passed to
// FilteredRows.
func Predicate(f Filter) datatable.RowPredicate {
	return func(ds datatable.DataSource, row int) (bool, error) {
		return f.Evaluate(ds, row)
	}
}

// Rows returns the ascending indices of the rows of ds that pass f.
func Rows(ds datatable.DataSource, f Filter) ([]int, error) {
	return ds.FilteredRows(Predicate(f))
}

// Apply returns a view over ds showing only the rows that pass f.
func Apply(ds datatable.DataSource, f Filter) (*datatable.View, error) {
	rows, err := Rows(ds, f)
	if err != nil {
		return nil, err
	}
	v, err := datatable.NewView(ds)
	if err != nil {
		return nil, err
	}
	if err := v.SetRows(rows...); err != nil {
		return nil, err
	}
	return v, nil
}
