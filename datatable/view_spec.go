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
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// ViewSpec is the serializable state of a view: its column set and, when
// the view is row-shaped, its row indices. It never holds data of the
// wrapped object.
type ViewSpec struct {
	Columns []ColumnSpec `json:"columns"`
	// Rows is nil for a view showing every wrapped row in order.
	Rows []int `json:"rows"`
}

// ColumnSpec is one view column in a ViewSpec. It encodes as a bare index
// for a plain column and as an object for a computed column.
type ColumnSpec struct {
	Index int

	Calc         *CalcDescriptor        `json:"calc,omitempty"`
	Type         DataType               `json:"type,omitempty"`
	SourceColumn *int                   `json:"sourceColumn,omitempty"`
	ID           string                 `json:"id,omitempty"`
	Label        string                 `json:"label,omitempty"`
	Pattern      string                 `json:"pattern,omitempty"`
	P            Properties             `json:"p,omitempty"`
	Mapping      map[string]interface{} `json:"mapping,omitempty"`
}

type computedColumnJSON struct {
	Calc         *CalcDescriptor        `json:"calc"`
	Type         DataType               `json:"type,omitempty"`
	SourceColumn *int                   `json:"sourceColumn,omitempty"`
	ID           string                 `json:"id,omitempty"`
	Label        string                 `json:"label,omitempty"`
	Pattern      string                 `json:"pattern,omitempty"`
	P            Properties             `json:"p,omitempty"`
	Mapping      map[string]interface{} `json:"mapping,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c ColumnSpec) MarshalJSON() ([]byte, error) {
	if c.Calc == nil {
		return json.Marshal(c.Index)
	}
	return json.Marshal(computedColumnJSON{
		Calc: c.Calc, Type: c.Type, SourceColumn: c.SourceColumn,
		ID: c.ID, Label: c.Label, Pattern: c.Pattern, P: c.P, Mapping: c.Mapping,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ColumnSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var idx int
		if err := json.Unmarshal(data, &idx); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidColumnSpec, err)
		}
		*c = ColumnSpec{Index: idx}
		return nil
	}
	var w computedColumnJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidColumnSpec, err)
	}
	if w.Calc == nil {
		return fmt.Errorf("%w: computed column without calc", ErrInvalidColumnSpec)
	}
	*c = ColumnSpec{
		Index: -1, Calc: w.Calc, Type: w.Type, SourceColumn: w.SourceColumn,
		ID: w.ID, Label: w.Label, Pattern: w.Pattern, P: w.P, Mapping: w.Mapping,
	}
	return nil
}

// Spec returns the serializable state of the view. It fails with
// ErrNotSerializable when a computed column uses a calculation that has no
// descriptor, such as a CalcFunc.
func (v *View) Spec() (*ViewSpec, error) {
	spec := &ViewSpec{Columns: make([]ColumnSpec, len(v.cols))}
	for i, vc := range v.cols {
		if vc.calc == nil {
			spec.Columns[i] = ColumnSpec{Index: vc.index}
			continue
		}
		sc, ok := vc.calc.Calc.(SerializableCalculation)
		if !ok {
			return nil, fmt.Errorf("%w: column %d uses %T", ErrNotSerializable, i, vc.calc.Calc)
		}
		d := sc.Descriptor()
		cs := ColumnSpec{
			Index: -1, Calc: &d, Type: vc.calc.Type,
			ID: vc.calc.ID, Label: vc.calc.Label, Pattern: vc.calc.Pattern,
			P: vc.calc.P.Clone(), Mapping: vc.calc.clone().Mapping,
		}
		if vc.calc.source >= 0 {
			src := vc.calc.source
			cs.SourceColumn = &src
		}
		spec.Columns[i] = cs
	}
	if v.rows != nil {
		spec.Rows = v.Rows()
	}
	return spec, nil
}

// MarshalJSON encodes the view spec.
func (v *View) MarshalJSON() ([]byte, error) {
	spec, err := v.Spec()
	if err != nil {
		return nil, err
	}
	return json.Marshal(spec)
}

// NewViewFromSpec builds a view over src from a spec. resolve turns
// calculation descriptors back into calculations; nil means
// ResolveNamedCalc.
func NewViewFromSpec(src DataSource, spec *ViewSpec, resolve CalcResolver) (*View, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: nil view spec", ErrInvalidColumnSpec)
	}
	if resolve == nil {
		resolve = ResolveNamedCalc
	}
	v, err := NewView(src)
	if err != nil {
		return nil, err
	}
	cols := make([]ViewColumn, len(spec.Columns))
	for i, cs := range spec.Columns {
		if cs.Calc == nil {
			cols[i] = Index(cs.Index)
			continue
		}
		calc, err := resolve(*cs.Calc)
		if err != nil {
			return nil, fmt.Errorf("view column %d: %w", i, err)
		}
		cc := &ComputedColumn{
			Calc: calc, Type: cs.Type, ID: cs.ID, Label: cs.Label,
			Pattern: cs.Pattern, P: cs.P, Mapping: cs.Mapping,
		}
		if cs.SourceColumn != nil {
			cc.SourceColumn = Index(*cs.SourceColumn)
		}
		cols[i] = cc
	}
	if err := v.SetColumns(cols...); err != nil {
		return nil, err
	}
	if spec.Rows != nil {
		if err := v.SetRows(spec.Rows...); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// ViewFromJSON decodes a view spec produced by View.MarshalJSON and applies
// it to src.
func ViewFromJSON(src DataSource, data []byte, resolve CalcResolver) (*View, error) {
	var spec ViewSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	return NewViewFromSpec(src, &spec, resolve)
}
