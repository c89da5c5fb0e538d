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
	"strconv"
)

// ViewColumn is one entry of a view column set. It is implemented by Index
// and ID (a plain column of the wrapped source) and by *ComputedColumn.
type ViewColumn interface {
	viewColumn()
}

func (Index) viewColumn()           {}
func (ID) viewColumn()              {}
func (*ComputedColumn) viewColumn() {}

// ComputedColumn is a view column whose values are produced by Calc rather
// than read from storage.
type ComputedColumn struct {
	// Calc produces the cell for each row. Defaults to CalcIdentity when
	// SourceColumn is set.
	Calc Calculation
	// Type is the declared type of the produced values. Defaults to the
	// source column type, or string for CalcEmptyString and CalcStringify.
	Type DataType
	// SourceColumn optionally names the wrapped column the calculation reads.
	SourceColumn ColumnRef
	ID           string
	Label        string
	Pattern      string
	Role         string
	P            Properties
	// Mapping is consulted by CalcMapFromSource.
	Mapping map[string]interface{}

	source int
}

// Source returns the resolved index of SourceColumn in the wrapped object,
// or -1. It is only meaningful on columns returned by View.Columns.
func (c *ComputedColumn) Source() int { return c.source }

func (c *ComputedColumn) clone() *ComputedColumn {
	out := *c
	out.P = c.P.Clone()
	if c.Mapping != nil {
		out.Mapping = make(map[string]interface{}, len(c.Mapping))
		for k, v := range c.Mapping {
			out.Mapping[k] = cloneAny(v)
		}
	}
	return &out
}

// Calculation produces the cell of a computed column. src is the object the
// view wraps and row is a row index of src. The result may be a Cell or any
// raw value accepted by ParseCell; it is validated against column.Type.
type Calculation interface {
	Calculate(src DataSource, row int, column *ComputedColumn) (interface{}, error)
}

// CalcFunc adapts a plain function to a Calculation. CalcFunc values cannot
// be serialized in a view spec.
type CalcFunc func(src DataSource, row int) (interface{}, error)

// Calculate implements Calculation.
func (f CalcFunc) Calculate(src DataSource, row int, _ *ComputedColumn) (interface{}, error) {
	return f(src, row)
}

// CalcDescriptor is the serializable form of a calculation: the name of a
// predefined calculation, or a script understood by a CalcResolver.
type CalcDescriptor struct {
	Name   string `json:"name,omitempty"`
	Script string `json:"script,omitempty"`
}

// SerializableCalculation is a Calculation that can be written into a view spec.
type SerializableCalculation interface {
	Calculation
	Descriptor() CalcDescriptor
}

// CalcResolver turns a descriptor read from a view spec back into a Calculation.
type CalcResolver func(CalcDescriptor) (Calculation, error)

// NamedCalc is one of the predefined calculations.
type NamedCalc string

const (
	// CalcIdentity copies the source cell.
	CalcIdentity NamedCalc = "identity"
	// CalcEmptyString yields "" for every row.
	CalcEmptyString NamedCalc = "emptyString"
	// CalcStringify yields the formatted value of the source cell.
	CalcStringify NamedCalc = "stringify"
	// CalcMapFromSource looks the source value up in ComputedColumn.Mapping.
	CalcMapFromSource NamedCalc = "mapFromSource"
	// CalcFillFromTop yields the nearest non-null source value at or above the row.
	CalcFillFromTop NamedCalc = "fillFromTop"
	// CalcFillFromBottom yields the nearest non-null source value at or below the row.
	CalcFillFromBottom NamedCalc = "fillFromBottom"
)

type namedCalcFunc func(src DataSource, row int, column *ComputedColumn) (interface{}, error)

// predefinedCalc is the closed lookup from name to implementation.
func predefinedCalc(name NamedCalc) (namedCalcFunc, bool) {
	switch name {
	case CalcIdentity:
		return calcIdentity, true
	case CalcEmptyString:
		return calcEmptyString, true
	case CalcStringify:
		return calcStringify, true
	case CalcMapFromSource:
		return calcMapFromSource, true
	case CalcFillFromTop:
		return calcFillFromTop, true
	case CalcFillFromBottom:
		return calcFillFromBottom, true
	default:
		return nil, false
	}
}

// Valid reports whether n names a predefined calculation.
func (n NamedCalc) Valid() bool {
	_, ok := predefinedCalc(n)
	return ok
}

// Calculate implements Calculation.
func (n NamedCalc) Calculate(src DataSource, row int, column *ComputedColumn) (interface{}, error) {
	fn, ok := predefinedCalc(n)
	if !ok {
		return nil, fmt.Errorf("%w: unknown calculation %q", ErrInvalidColumnSpec, string(n))
	}
	return fn(src, row, column)
}

// Descriptor implements SerializableCalculation.
func (n NamedCalc) Descriptor() CalcDescriptor { return CalcDescriptor{Name: string(n)} }

func (n NamedCalc) needsSource() bool { return n != CalcEmptyString }

func (n NamedCalc) isFill() bool { return n == CalcFillFromTop || n == CalcFillFromBottom }

// ResolveNamedCalc is the CalcResolver for predefined calculations only.
func ResolveNamedCalc(d CalcDescriptor) (Calculation, error) {
	if d.Script != "" {
		return nil, fmt.Errorf("%w: no resolver for scripted calculation", ErrInvalidColumnSpec)
	}
	n := NamedCalc(d.Name)
	if !n.Valid() {
		return nil, fmt.Errorf("%w: unknown calculation %q", ErrInvalidColumnSpec, d.Name)
	}
	return n, nil
}

func defaultsToString(c Calculation) bool {
	n, ok := c.(NamedCalc)
	return ok && (n == CalcEmptyString || n == CalcStringify)
}

func sourceOf(column *ComputedColumn) (int, error) {
	if column == nil || column.source < 0 {
		return -1, fmt.Errorf("%w: calculation needs a source column", ErrInvalidColumnSpec)
	}
	return column.source, nil
}

func calcIdentity(src DataSource, row int, column *ComputedColumn) (interface{}, error) {
	col, err := sourceOf(column)
	if err != nil {
		return nil, err
	}
	return src.Cell(row, col)
}

func calcEmptyString(DataSource, int, *ComputedColumn) (interface{}, error) {
	return "", nil
}

func calcStringify(src DataSource, row int, column *ComputedColumn) (interface{}, error) {
	col, err := sourceOf(column)
	if err != nil {
		return nil, err
	}
	return src.FormattedValue(row, col)
}

func calcMapFromSource(src DataSource, row int, column *ComputedColumn) (interface{}, error) {
	col, err := sourceOf(column)
	if err != nil {
		return nil, err
	}
	v, err := src.Value(row, col)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	return column.Mapping[mappingKey(v)], nil
}

// mappingKey is the string under which a value is looked up in a mapping.
func mappingKey(v Value) string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	default:
		return FormatValue(TypeUnspecified, v)
	}
}

func calcFillFromTop(src DataSource, row int, column *ComputedColumn) (interface{}, error) {
	return fillScan(src, row, column, -1)
}

func calcFillFromBottom(src DataSource, row int, column *ComputedColumn) (interface{}, error) {
	return fillScan(src, row, column, 1)
}

func fillScan(src DataSource, row int, column *ComputedColumn, step int) (interface{}, error) {
	col, err := sourceOf(column)
	if err != nil {
		return nil, err
	}
	if err := ValidateRowIndex(src, row); err != nil {
		return nil, err
	}
	for r := row; r >= 0 && r < src.NumberOfRows(); r += step {
		v, err := src.Value(r, col)
		if err != nil {
			return nil, err
		}
		if !v.IsNull() {
			return v, nil
		}
	}
	return Null(), nil
}
