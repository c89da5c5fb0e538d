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

package arrowadapter

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/goccy/go-json"
	"github.com/magpierre/tabula/datatable"
)

// Column describes the datatable column an Arrow field maps to. Metadata
// written by Schema wins over the Arrow type.
func Column(f arrow.Field) datatable.Column {
	c := datatable.Column{ID: f.Name, Label: f.Name, Type: TypeOf(f.Type)}
	meta := func(key string) (string, bool) {
		idx := f.Metadata.FindKey(key)
		if idx < 0 {
			return "", false
		}
		return f.Metadata.Values()[idx], true
	}
	if id, ok := meta(MetaID); ok {
		c.ID = id
	}
	if label, ok := meta(MetaLabel); ok {
		c.Label = label
	}
	if pattern, ok := meta(MetaPattern); ok {
		c.Pattern = pattern
	}
	if name, ok := meta(MetaType); ok {
		if dt, err := datatable.ParseDataType(name); err == nil && dt != datatable.TypeUnspecified {
			c.Type = dt
		}
	}
	return c
}

// TypeOf returns the datatable type that holds values of an Arrow type.
// Nested and binary types are carried as strings.
func TypeOf(t arrow.DataType) datatable.DataType {
	switch t.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64, arrow.DECIMAL128:
		return datatable.TypeNumber
	case arrow.BOOL:
		return datatable.TypeBoolean
	case arrow.DATE32, arrow.DATE64:
		return datatable.TypeDate
	case arrow.TIMESTAMP:
		return datatable.TypeDateTime
	case arrow.TIME32, arrow.TIME64:
		return datatable.TypeTimeOfDay
	default:
		return datatable.TypeString
	}
}

// FromRecord copies rec into a new table.
func FromRecord(rec arrow.Record) (*datatable.Table, error) {
	tbl, err := newTable(rec.Schema())
	if err != nil {
		return nil, err
	}
	if err := appendRecord(tbl, rec); err != nil {
		return nil, err
	}
	return tbl, nil
}

// FromTable copies every chunk of an Arrow table into a new table.
func FromTable(t arrow.Table) (*datatable.Table, error) {
	tbl, err := newTable(t.Schema())
	if err != nil {
		return nil, err
	}
	tr := array.NewTableReader(t, 0)
	defer tr.Release()
	for tr.Next() {
		if err := appendRecord(tbl, tr.Record()); err != nil {
			return nil, err
		}
	}
	if err := tr.Err(); err != nil {
		return nil, fmt.Errorf("error reading table: %w", err)
	}
	logger().V(1).Info("converted from arrow table", "rows", tbl.NumberOfRows(), "columns", tbl.NumberOfColumns())
	return tbl, nil
}

func newTable(schema *arrow.Schema) (*datatable.Table, error) {
	tbl := datatable.NewTable()
	for _, f := range schema.Fields() {
		if _, err := tbl.AddColumn(Column(f)); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

func appendRecord(tbl *datatable.Table, rec arrow.Record) error {
	rows := make([][]interface{}, rec.NumRows())
	for r := range rows {
		rows[r] = make([]interface{}, rec.NumCols())
	}
	for c, col := range rec.Columns() {
		dt, err := tbl.ColumnType(c)
		if err != nil {
			return err
		}
		for r := range rows {
			v, err := Value(col, r, dt)
			if err != nil {
				return fmt.Errorf("row %d column %d: %w", r, c, err)
			}
			rows[r][c] = v
		}
	}
	if len(rows) == 0 {
		return nil
	}
	_, err := tbl.AddRows(rows)
	return err
}

// Value reads position pos of col as a value of type dt.
func Value(col arrow.Array, pos int, dt datatable.DataType) (datatable.Value, error) {
	if col.IsNull(pos) {
		return datatable.Null(), nil
	}
	switch a := col.(type) {
	case *array.String:
		return datatable.String(a.Value(pos)), nil
	case *array.LargeString:
		return datatable.String(a.Value(pos)), nil
	case *array.Binary:
		return datatable.String(string(a.Value(pos))), nil
	case *array.Boolean:
		return datatable.Bool(a.Value(pos)), nil
	case *array.Int8:
		return datatable.Number(float64(a.Value(pos))), nil
	case *array.Int16:
		return datatable.Number(float64(a.Value(pos))), nil
	case *array.Int32:
		return datatable.Number(float64(a.Value(pos))), nil
	case *array.Int64:
		return datatable.Number(float64(a.Value(pos))), nil
	case *array.Uint8:
		return datatable.Number(float64(a.Value(pos))), nil
	case *array.Uint16:
		return datatable.Number(float64(a.Value(pos))), nil
	case *array.Uint32:
		return datatable.Number(float64(a.Value(pos))), nil
	case *array.Uint64:
		return datatable.Number(float64(a.Value(pos))), nil
	case *array.Float16:
		return datatable.Number(float64(a.Value(pos).Float32())), nil
	case *array.Float32:
		return datatable.Number(float64(a.Value(pos))), nil
	case *array.Float64:
		return datatable.Number(a.Value(pos)), nil
	case *array.Decimal128:
		scale := a.DataType().(*arrow.Decimal128Type).Scale
		return datatable.Number(a.Value(pos).ToFloat64(scale)), nil
	case *array.Date32:
		return datatable.Date(a.Value(pos).ToTime()), nil
	case *array.Date64:
		return datatable.Date(a.Value(pos).ToTime()), nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		t := a.Value(pos).ToTime(unit)
		if dt == datatable.TypeDate {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		return datatable.Date(t), nil
	case *array.Time32:
		unit := a.DataType().(*arrow.Time32Type).Unit
		return timeOfDay(int64(a.Value(pos)) * int64(unit.Multiplier()))
	case *array.Time64:
		unit := a.DataType().(*arrow.Time64Type).Unit
		return timeOfDay(int64(a.Value(pos)) * int64(unit.Multiplier()))
	case *array.Struct:
		b, err := json.Marshal(a.GetOneForMarshal(pos))
		if err != nil {
			return datatable.Null(), err
		}
		return datatable.String(string(b)), nil
	default:
		return datatable.String(col.ValueStr(pos)), nil
	}
}

// timeOfDay converts nanoseconds since midnight.
func timeOfDay(nanos int64) (datatable.Value, error) {
	d := time.Duration(nanos)
	tod, err := datatable.NewTimeOfDay(
		int(d/time.Hour),
		int(d%time.Hour/time.Minute),
		int(d%time.Minute/time.Second),
		int(d%time.Second/time.Millisecond),
	)
	if err != nil {
		return datatable.Null(), err
	}
	return datatable.TimeOf(tod), nil
}
