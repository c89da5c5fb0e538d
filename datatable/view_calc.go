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

// computedCell returns the cell of computed view column col at wrapped row
// wr, calculating and caching it on a miss. The lock is not held while the
// calculation runs.
func (v *View) computedCell(col int, cc *ComputedColumn, wr int) (Cell, error) {
	key := calcKey{col: col, row: wr}
	v.mu.Lock()
	if c, ok := v.calcCache[key]; ok {
		v.mu.Unlock()
		return c, nil
	}
	gen := v.generation
	v.mu.Unlock()

	if n, ok := cc.Calc.(NamedCalc); ok && n.isFill() {
		if err := v.precomputeFill(col, cc, n, gen); err != nil {
			return Cell{}, err
		}
		v.mu.Lock()
		c, ok := v.calcCache[key]
		v.mu.Unlock()
		if ok {
			return c, nil
		}
	}

	raw, err := cc.Calc.Calculate(v.src, wr, cc)
	if err != nil {
		return Cell{}, fmt.Errorf("computed column %d row %d: %w", col, wr, err)
	}
	c, err := normalizeCell(raw, cc.Type)
	if err != nil {
		return Cell{}, fmt.Errorf("computed column %d row %d: %w", col, wr, err)
	}

	v.mu.Lock()
	if gen == v.generation {
		v.calcCache[key] = c
	}
	v.mu.Unlock()
	return c, nil
}

// precomputeFill materializes a fill column for every wrapped row in one
// linear pass.
func (v *View) precomputeFill(col int, cc *ComputedColumn, n NamedCalc, gen uint64) error {
	src, err := sourceOf(cc)
	if err != nil {
		return err
	}
	rows := v.src.NumberOfRows()
	cells := make([]Cell, rows)

	start, end, step := 0, rows, 1
	if n == CalcFillFromBottom {
		start, end, step = rows-1, -1, -1
	}
	last := Null()
	for r := start; r != end; r += step {
		val, err := v.src.Value(r, src)
		if err != nil {
			return fmt.Errorf("computed column %d row %d: %w", col, r, err)
		}
		if !val.IsNull() {
			last = val
		}
		filled, err := coerce(last, cc.Type)
		if err != nil {
			return fmt.Errorf("computed column %d row %d: %w", col, r, err)
		}
		cells[r] = Cell{V: filled}
	}

	v.mu.Lock()
	if gen == v.generation {
		for r := range cells {
			v.calcCache[calcKey{col: col, row: r}] = cells[r]
		}
	}
	v.mu.Unlock()
	log().V(1).Info("precomputed fill column", "column", col, "calc", string(n), "rows", rows)
	return nil
}
