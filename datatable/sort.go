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
	"slices"
)

// SortSpec describes a row ordering. It is implemented by Index and ID
// (single ascending column), SortColumn, SortColumns and RowComparator.
type SortSpec interface {
	sortSpec()
}

// SortColumn is one sort key.
type SortColumn struct {
	// Column is the key column.
	Column ColumnRef
	// Desc reverses the order of this key.
	Desc bool
	// Compare optionally replaces CompareValues for non-null values.
	Compare func(a, b Value) int
}

// SortColumns is an ordered sequence of sort keys, highest priority first.
type SortColumns []SortColumn

// RowComparator is a raw total order over row indices.
type RowComparator func(a, b int) int

func (Index) sortSpec()         {}
func (ID) sortSpec()            {}
func (SortColumn) sortSpec()    {}
func (SortColumns) sortSpec()   {}
func (RowComparator) sortSpec() {}

// Asc returns an ascending key on ref.
func Asc(ref ColumnRef) SortColumn { return SortColumn{Column: ref} }

// Desc returns a descending key on ref.
func Desc(ref ColumnRef) SortColumn { return SortColumn{Column: ref, Desc: true} }

type sortKey struct {
	index   int
	desc    bool
	compare func(a, b Value) int
	dt      DataType
}

func resolveSortKeys(ds DataSource, spec SortSpec) ([]sortKey, error) {
	var cols SortColumns
	switch s := spec.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil sort specification", ErrInvalidSortColumn)
	case Index:
		cols = SortColumns{{Column: s}}
	case ID:
		cols = SortColumns{{Column: s}}
	case SortColumn:
		cols = SortColumns{s}
	case SortColumns:
		cols = s
	default:
		return nil, fmt.Errorf("%w: unsupported sort specification %T", ErrInvalidSortColumn, spec)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: no sort columns", ErrInvalidSortColumn)
	}

	keys := make([]sortKey, 0, len(cols))
	seen := make(map[int]bool, len(cols))
	for i, c := range cols {
		idx, err := ValidateColumnReference(ds, c.Column)
		if err != nil {
			return nil, fmt.Errorf("%w: key %d: %w", ErrInvalidSortColumn, i, err)
		}
		if seen[idx] {
			return nil, fmt.Errorf("%w: column %d", ErrDuplicateSortColumn, idx)
		}
		seen[idx] = true
		dt, err := ds.ColumnType(idx)
		if err != nil {
			return nil, err
		}
		keys = append(keys, sortKey{index: idx, desc: c.Desc, compare: c.Compare, dt: dt})
	}
	return keys, nil
}

func comparatorFor(keys []sortKey, valueAt func(id, col int) Value) func(a, b int) int {
	return func(a, b int) int {
		for _, k := range keys {
			va, vb := valueAt(a, k.index), valueAt(b, k.index)
			var c int
			if k.compare != nil && !va.IsNull() && !vb.IsNull() {
				c = k.compare(va, vb)
			} else {
				c = CompareValues(k.dt, va, vb)
			}
			if c != 0 {
				if k.desc {
					return -c
				}
				return c
			}
		}
		return 0
	}
}

// StandardizeSortColumns turns spec into a single comparator over opaque row
// identifiers. valueAt returns the value of column col for identifier id,
// which decouples the comparator from the row representation. Keys are
// evaluated in priority order and the first non-equal key decides.
func StandardizeSortColumns(ds DataSource, spec SortSpec, valueAt func(id, col int) Value) (func(a, b int) int, error) {
	if rc, ok := spec.(RowComparator); ok {
		if rc == nil {
			return nil, fmt.Errorf("%w: nil comparator", ErrInvalidSortColumn)
		}
		return rc, nil
	}
	keys, err := resolveSortKeys(ds, spec)
	if err != nil {
		return nil, err
	}
	return comparatorFor(keys, valueAt), nil
}

// StableSort sorts items by cmp, keeping the input order of items that
// compare equal. It decorates every item with its original position and
// breaks ties on that position.
func StableSort[T any](items []T, cmp func(a, b T) int) {
	type decorated struct {
		item T
		pos  int
	}
	d := make([]decorated, len(items))
	for i := range items {
		d[i] = decorated{item: items[i], pos: i}
	}
	slices.SortFunc(d, func(x, y decorated) int {
		if c := cmp(x.item, y.item); c != 0 {
			return c
		}
		return compareInts(x.pos, y.pos)
	})
	for i := range d {
		items[i] = d[i].item
	}
}

// SortedRows returns the row indices of ds ordered by spec.
func SortedRows(ds DataSource, spec SortSpec) ([]int, error) {
	n := ds.NumberOfRows()
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}

	if rc, ok := spec.(RowComparator); ok {
		if rc == nil {
			return nil, fmt.Errorf("%w: nil comparator", ErrInvalidSortColumn)
		}
		StableSort(rows, rc)
		return rows, nil
	}

	keys, err := resolveSortKeys(ds, spec)
	if err != nil {
		return nil, err
	}

	// Values are fetched once per key so computed view columns run once per row.
	values := make(map[int][]Value, len(keys))
	for _, k := range keys {
		col := make([]Value, n)
		for r := 0; r < n; r++ {
			v, err := ds.Value(r, k.index)
			if err != nil {
				return nil, err
			}
			col[r] = v
		}
		values[k.index] = col
	}

	StableSort(rows, comparatorFor(keys, func(id, col int) Value {
		return values[col][id]
	}))
	log().V(1).Info("sorted rows", "rows", n, "keys", len(keys))
	return rows, nil
}
