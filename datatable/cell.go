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

// Cell holds a value, an optional explicit formatted value and optional properties.
type Cell struct {
	// V is the typed value.
	V Value
	// F is the explicit formatted value. When nil a default format is
	// computed on demand.
	F *string
	// P holds arbitrary cell properties.
	P Properties
}

// NewCell returns a cell holding v.
func NewCell(v Value) Cell { return Cell{V: v} }

// WithFormatted returns a copy of c carrying the explicit formatted value f.
func (c Cell) WithFormatted(f string) Cell {
	c.F = &f
	return c
}

// WithProperties returns a copy of c carrying p.
func (c Cell) WithProperties(p Properties) Cell {
	c.P = p
	return c
}

// Clone returns a deep copy of c.
func (c Cell) Clone() Cell {
	out := Cell{V: c.V, P: c.P.Clone()}
	if c.V.kind == KindTimeOfDay {
		out.V = TimeOf(c.V.tod)
	}
	if c.F != nil {
		f := *c.F
		out.F = &f
	}
	return out
}

// Row is an ordered sequence of cells plus optional row properties.
type Row struct {
	Cells []Cell
	P     Properties
}

func (r Row) clone() Row {
	cells := make([]Cell, len(r.Cells))
	for i := range r.Cells {
		cells[i] = r.Cells[i].Clone()
	}
	return Row{Cells: cells, P: r.P.Clone()}
}

// Column describes a table column.
type Column struct {
	ID      string
	Label   string
	Type    DataType
	Pattern string
	// Role is folded into P["role"] when the column is added.
	Role string
	P    Properties
}

func (c Column) clone() Column {
	c.P = c.P.Clone()
	return c
}

// normalize defaults the type, validates it and folds Role into the properties.
func (c Column) normalize() (Column, error) {
	if !c.Type.Valid() {
		return c, fmt.Errorf("%w: column %q has type %s", ErrInvalidType, c.ID, c.Type)
	}
	c.Type = c.Type.orDefault()
	c.P = c.P.Clone()
	if c.Role != "" {
		if c.P == nil {
			c.P = Properties{}
		}
		c.P[roleProperty] = c.Role
		c.Role = ""
	}
	return c, nil
}

const roleProperty = "role"

// ParseCell normalizes a cell entry. Cells and *Cell are taken as is;
// map[string]interface{} values are treated as cell objects with optional
// "v", "f" and "p" keys; anything else is a bare value.
func ParseCell(raw interface{}) (Cell, error) {
	switch x := raw.(type) {
	case Cell:
		return x.Clone(), nil
	case *Cell:
		if x == nil {
			return Cell{}, nil
		}
		return x.Clone(), nil
	case map[string]interface{}:
		return parseCellObject(x)
	case Properties:
		return parseCellObject(x)
	}
	v, err := ValueOf(raw)
	if err != nil {
		return Cell{}, err
	}
	return Cell{V: v}, nil
}

func parseCellObject(obj map[string]interface{}) (Cell, error) {
	var c Cell
	if raw, ok := obj["v"]; ok {
		v, err := ValueOf(raw)
		if err != nil {
			return Cell{}, err
		}
		c.V = v
	}
	if raw, ok := obj["f"]; ok && raw != nil {
		f, isString := raw.(string)
		if !isString {
			return Cell{}, fmt.Errorf("%w: formatted value must be a string, got %T", ErrInvalidCell, raw)
		}
		c.F = &f
	}
	if raw, ok := obj["p"]; ok && raw != nil {
		switch p := raw.(type) {
		case Properties:
			c.P = p.Clone()
		case map[string]interface{}:
			c.P = Properties(p).Clone()
		default:
			return Cell{}, fmt.Errorf("%w: properties must be an object, got %T", ErrInvalidCell, raw)
		}
	}
	return c, nil
}

// normalizeCell parses raw and validates it against the column type.
func normalizeCell(raw interface{}, dt DataType) (Cell, error) {
	c, err := ParseCell(raw)
	if err != nil {
		return Cell{}, err
	}
	v, err := coerce(c.V, dt)
	if err != nil {
		return Cell{}, err
	}
	c.V = v
	return c, nil
}
