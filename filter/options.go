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

package filter

import (
	"fmt"

	"github.com/magpierre/tabula/datatable"
)

// QueryOptions selects columns, filters rows and limits the result size.
type QueryOptions struct {
	// SelectedColumns are ids or labels; empty selects every column.
	SelectedColumns []string
	// Query is a text query as accepted by ParseQuery.
	Query string
	// Filter, when set, must pass as well as Query.
	Filter Filter
	// Limit caps the number of rows; zero or negative means no limit.
	Limit int
}

// DefaultQueryOptions returns options that keep every row and column.
func DefaultQueryOptions() *QueryOptions {
	return &QueryOptions{Limit: -1}
}

// Select returns a view over ds shaped by opts. Rows are filtered against
// all columns of ds before the column selection is applied.
func Select(ds datatable.DataSource, opts *QueryOptions) (*datatable.View, error) {
	if opts == nil {
		opts = DefaultQueryOptions()
	}
	q, err := ParseQuery(ds, opts.Query)
	if err != nil {
		return nil, err
	}
	var f Filter = q
	if opts.Filter != nil {
		f = All(q, opts.Filter)
	}
	v, err := Apply(ds, f)
	if err != nil {
		return nil, err
	}

	if len(opts.SelectedColumns) > 0 {
		cols := make([]datatable.ViewColumn, 0, len(opts.SelectedColumns))
		for _, name := range opts.SelectedColumns {
			idx := resolveColumn(ds, name)
			if idx < 0 {
				return nil, fmt.Errorf("%w: %s", datatable.ErrColumnNotFound, name)
			}
			cols = append(cols, datatable.Index(idx))
		}
		if err := v.SetColumns(cols...); err != nil {
			return nil, err
		}
	}

	if opts.Limit > 0 && opts.Limit < v.NumberOfRows() {
		if err := v.SetRows(v.Rows()[:opts.Limit]...); err != nil {
			return nil, err
		}
	}
	return v, nil
}
