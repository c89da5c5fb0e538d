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

package join

import "github.com/magpierre/tabula/datatable"

// merger walks both sorted sides with one cursor each.
type merger struct {
	kind  Kind
	l, r  *side
	types []keyType
	rows  [][]interface{}
}

// compare orders left row a against right row b on the composite key.
func (m *merger) compare(a, b int) (int, error) {
	for _, k := range m.types {
		va, err := m.l.ds.Value(a, k.left)
		if err != nil {
			return 0, err
		}
		vb, err := m.r.ds.Value(b, k.right)
		if err != nil {
			return 0, err
		}
		if c := datatable.CompareValues(k.dt, va, vb); c != 0 {
			return c, nil
		}
	}
	return 0, nil
}

func (m *merger) compareLeft(a, b int) (int, error) {
	for _, k := range m.types {
		va, err := m.l.ds.Value(a, k.left)
		if err != nil {
			return 0, err
		}
		vb, err := m.l.ds.Value(b, k.left)
		if err != nil {
			return 0, err
		}
		if c := datatable.CompareValues(k.dt, va, vb); c != 0 {
			return c, nil
		}
	}
	return 0, nil
}

// run merges the two sides. On a match the left row is paired with the
// whole run of equal right rows; the right cursor only moves past that run
// once the next left row has a different key, so left duplicates are each
// paired with the same right rows.
func (m *merger) run() error {
	lo, ro := m.l.order, m.r.order
	i, j := 0, 0
	for i < len(lo) && j < len(ro) {
		c, err := m.compare(lo[i], ro[j])
		if err != nil {
			return err
		}
		switch {
		case c < 0:
			if m.kind.keepsLeft() {
				if err := m.emit(lo[i], -1); err != nil {
					return err
				}
			}
			i++
		case c > 0:
			if m.kind.keepsRight() {
				if err := m.emit(-1, ro[j]); err != nil {
					return err
				}
			}
			j++
		default:
			end := j
			for end < len(ro) {
				c, err := m.compare(lo[i], ro[end])
				if err != nil {
					return err
				}
				if c != 0 {
					break
				}
				if err := m.emit(lo[i], ro[end]); err != nil {
					return err
				}
				end++
			}
			i++
			advance := i == len(lo)
			if !advance {
				c, err := m.compareLeft(lo[i-1], lo[i])
				if err != nil {
					return err
				}
				advance = c != 0
			}
			if advance {
				j = end
			}
		}
	}
	for ; i < len(lo) && m.kind.keepsLeft(); i++ {
		if err := m.emit(lo[i], -1); err != nil {
			return err
		}
	}
	for ; j < len(ro) && m.kind.keepsRight(); j++ {
		if err := m.emit(-1, ro[j]); err != nil {
			return err
		}
	}
	return nil
}

// emit appends one output row. A negative index means the side is absent.
func (m *merger) emit(a, b int) error {
	row := make([]interface{}, 0, len(m.types)+len(m.l.cols)+len(m.r.cols))
	for _, k := range m.types {
		var cell datatable.Cell
		var err error
		if a >= 0 {
			cell, err = m.l.ds.Cell(a, k.left)
		} else {
			cell, err = m.r.ds.Cell(b, k.right)
		}
		if err != nil {
			return err
		}
		if m.kind == Full {
			row = append(row, cell.V)
		} else {
			row = append(row, cell.Clone())
		}
	}
	cells := func(s *side, r int) error {
		for _, c := range s.cols {
			if r < 0 {
				row = append(row, nil)
				continue
			}
			cell, err := s.ds.Cell(r, c)
			if err != nil {
				return err
			}
			row = append(row, cell.Clone())
		}
		return nil
	}
	if err := cells(m.l, a); err != nil {
		return err
	}
	if err := cells(m.r, b); err != nil {
		return err
	}
	m.rows = append(m.rows, row)
	return nil
}
