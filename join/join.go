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

// Package join implements a sort-merge join of two datatable.DataSource
// values on a composite key.
package join

import (
	"errors"
	"fmt"
	"strings"

	"github.com/magpierre/tabula/datatable"
)

// ErrKeyTypeMismatch is returned when the two columns of a key pair have
// different types.
var ErrKeyTypeMismatch = errors.New("join key type mismatch")

// ErrInvalidKind is returned for an unknown join kind.
var ErrInvalidKind = errors.New("invalid join kind")

// Kind selects which unmatched rows a join keeps.
type Kind int

const (
	// Inner keeps matched rows only.
	Inner Kind = iota
	// Left also keeps unmatched rows of the left side.
	Left
	// Right also keeps unmatched rows of the right side.
	Right
	// Full keeps unmatched rows of both sides.
	Full
)

// String returns the name of a Kind.
func (k Kind) String() string {
	switch k {
	case Inner:
		return "inner"
	case Left:
		return "left"
	case Right:
		return "right"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ParseKind converts "inner", "left", "right" or "full" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inner":
		return Inner, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "full":
		return Full, nil
	default:
		return Inner, fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

func (k Kind) keepsLeft() bool  { return k == Left || k == Full }
func (k Kind) keepsRight() bool { return k == Right || k == Full }

// KeyPair pairs a key column of the left side with one of the right side.
type KeyPair struct {
	Left  datatable.ColumnRef
	Right datatable.ColumnRef
}

type side struct {
	ds    datatable.DataSource
	keys  []int
	cols  []int
	order []int
}

type keyType struct {
	left, right int
	dt          datatable.DataType
}

// Join joins left and right on keys. Both sides are stably sorted by their
// key columns and merged in one pass. The output holds the key columns
// (described by the left side), then leftCols, then rightCols.
//
// Every left row is paired with every right row of equal key, so duplicate
// keys on either side multiply. Key cells are copied with their formatted
// value and properties from the side that supplied the row, except for
// Full joins where only the raw key value is copied.
func Join(left, right datatable.DataSource, kind Kind, keys []KeyPair, leftCols, rightCols []datatable.ColumnRef) (*datatable.Table, error) {
	if left == nil || right == nil {
		return nil, datatable.ErrNoDataSource
	}
	if kind < Inner || kind > Full {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, int(kind))
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: join needs at least one key", datatable.ErrInvalidColumnSpec)
	}
	log := datatable.Logger().WithName("join")

	types := make([]keyType, len(keys))
	l := &side{ds: left, keys: make([]int, len(keys))}
	r := &side{ds: right, keys: make([]int, len(keys))}
	for i, k := range keys {
		li, err := datatable.ValidateColumnReference(left, k.Left)
		if err != nil {
			return nil, fmt.Errorf("left key %d: %w", i, err)
		}
		ri, err := datatable.ValidateColumnReference(right, k.Right)
		if err != nil {
			return nil, fmt.Errorf("right key %d: %w", i, err)
		}
		lt, err := left.ColumnType(li)
		if err != nil {
			return nil, err
		}
		rt, err := right.ColumnType(ri)
		if err != nil {
			return nil, err
		}
		if lt != rt {
			return nil, fmt.Errorf("%w: key %d is %s on the left and %s on the right", ErrKeyTypeMismatch, i, lt, rt)
		}
		l.keys[i], r.keys[i] = li, ri
		types[i] = keyType{left: li, right: ri, dt: lt}
	}
	var err error
	if l.cols, err = resolveColumns(left, leftCols); err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	if r.cols, err = resolveColumns(right, rightCols); err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}
	if l.order, err = sortByKeys(l); err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	if r.order, err = sortByKeys(r); err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}

	out, err := outputTable(l, r)
	if err != nil {
		return nil, err
	}

	m := &merger{kind: kind, l: l, r: r, types: types}
	if err := m.run(); err != nil {
		return nil, err
	}
	if _, err := out.AddRows(m.rows); err != nil {
		return nil, err
	}
	log.V(1).Info("joined", "kind", kind.String(), "left", len(l.order), "right", len(r.order), "rows", len(m.rows))
	return out, nil
}

func resolveColumns(ds datatable.DataSource, refs []datatable.ColumnRef) ([]int, error) {
	out := make([]int, len(refs))
	for i, ref := range refs {
		idx, err := datatable.ValidateColumnReference(ds, ref)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		out[i] = idx
	}
	return out, nil
}

func sortByKeys(s *side) ([]int, error) {
	spec := make(datatable.SortColumns, len(s.keys))
	for i, k := range s.keys {
		spec[i] = datatable.Asc(datatable.Index(k))
	}
	return datatable.SortedRows(s.ds, spec)
}

func outputTable(l, r *side) (*datatable.Table, error) {
	out := datatable.NewTable()
	add := func(ds datatable.DataSource, col int) error {
		c, err := describe(ds, col)
		if err != nil {
			return err
		}
		_, err = out.AddColumn(c)
		return err
	}
	for _, k := range l.keys {
		if err := add(l.ds, k); err != nil {
			return nil, err
		}
	}
	for _, c := range l.cols {
		if err := add(l.ds, c); err != nil {
			return nil, err
		}
	}
	for _, c := range r.cols {
		if err := add(r.ds, c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func describe(ds datatable.DataSource, col int) (datatable.Column, error) {
	var c datatable.Column
	var err error
	if c.ID, err = ds.ColumnID(col); err != nil {
		return c, err
	}
	if c.Label, err = ds.ColumnLabel(col); err != nil {
		return c, err
	}
	if c.Type, err = ds.ColumnType(col); err != nil {
		return c, err
	}
	if c.Pattern, err = ds.ColumnPattern(col); err != nil {
		return c, err
	}
	p, err := ds.ColumnProperties(col)
	if err != nil {
		return c, err
	}
	c.P = p.Clone()
	return c, nil
}
