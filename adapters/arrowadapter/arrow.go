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

// Package arrowadapter converts between datatable sources and Apache Arrow
// records and tables.
//
// Column id, label, type and pattern travel in the field metadata under the
// keys MetaID, MetaLabel, MetaType and MetaPattern, so a table written to
// Arrow and read back keeps its column description.
package arrowadapter

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-logr/logr"
	"github.com/magpierre/tabula/datatable"
)

// Field metadata keys.
const (
	MetaID      = "datatable.id"
	MetaLabel   = "datatable.label"
	MetaType    = "datatable.type"
	MetaPattern = "datatable.pattern"
)

// ArrowType returns the Arrow type used to store a column of type dt.
func ArrowType(dt datatable.DataType) (arrow.DataType, error) {
	switch dt {
	case datatable.TypeString, datatable.TypeUnspecified:
		return arrow.BinaryTypes.String, nil
	case datatable.TypeNumber:
		return arrow.PrimitiveTypes.Float64, nil
	case datatable.TypeBoolean:
		return arrow.FixedWidthTypes.Boolean, nil
	case datatable.TypeDate:
		return arrow.FixedWidthTypes.Date32, nil
	case datatable.TypeDateTime:
		return arrow.FixedWidthTypes.Timestamp_ms, nil
	case datatable.TypeTimeOfDay:
		return arrow.FixedWidthTypes.Time32ms, nil
	default:
		return nil, fmt.Errorf("%w: %s columns have no arrow representation", datatable.ErrNotSerializable, dt)
	}
}

// Schema describes the columns of ds as an Arrow schema. Field names are
// column ids, falling back to the label and then to the position.
func Schema(ds datatable.DataSource) (*arrow.Schema, error) {
	fields := make([]arrow.Field, ds.NumberOfColumns())
	for col := range fields {
		id, err := ds.ColumnID(col)
		if err != nil {
			return nil, err
		}
		label, _ := ds.ColumnLabel(col)
		pattern, _ := ds.ColumnPattern(col)
		dt, _ := ds.ColumnType(col)
		at, err := ArrowType(dt)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", col, err)
		}
		name := id
		if name == "" {
			name = label
		}
		if name == "" {
			name = fmt.Sprintf("col_%d", col)
		}
		fields[col] = arrow.Field{
			Name:     name,
			Type:     at,
			Nullable: true,
			Metadata: arrow.NewMetadata(
				[]string{MetaID, MetaLabel, MetaType, MetaPattern},
				[]string{id, label, dt.String(), pattern},
			),
		}
	}
	return arrow.NewSchema(fields, nil), nil
}

// ToRecord copies every row of ds into a single Arrow record. The caller
// owns the record and must Release it. A nil allocator means the Go
// allocator.
func ToRecord(ds datatable.DataSource, mem memory.Allocator) (arrow.Record, error) {
	if ds == nil {
		return nil, datatable.ErrNoDataSource
	}
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	schema, err := Schema(ds)
	if err != nil {
		return nil, err
	}
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for col := 0; col < ds.NumberOfColumns(); col++ {
		fb := b.Field(col)
		fb.Reserve(ds.NumberOfRows())
		for row := 0; row < ds.NumberOfRows(); row++ {
			v, err := ds.Value(row, col)
			if err != nil {
				return nil, err
			}
			if err := appendValue(fb, v); err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", row, col, err)
			}
		}
	}
	rec := b.NewRecord()
	logger().V(1).Info("converted to arrow record", "rows", rec.NumRows(), "columns", rec.NumCols())
	return rec, nil
}

// ToTable is ToRecord wrapped into an Arrow table.
func ToTable(ds datatable.DataSource, mem memory.Allocator) (arrow.Table, error) {
	rec, err := ToRecord(ds, mem)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec}), nil
}

func appendValue(b array.Builder, v datatable.Value) error {
	if v.IsNull() {
		b.AppendNull()
		return nil
	}
	switch fb := b.(type) {
	case *array.StringBuilder:
		fb.Append(v.StringValue())
	case *array.Float64Builder:
		fb.Append(v.NumberValue())
	case *array.BooleanBuilder:
		fb.Append(v.BoolValue())
	case *array.Date32Builder:
		fb.Append(arrow.Date32FromTime(v.TimeValue()))
	case *array.TimestampBuilder:
		fb.Append(arrow.Timestamp(v.TimeValue().UnixMilli()))
	case *array.Time32Builder:
		tod := v.TimeOfDayValue()
		ms := ((tod.Hour()*60+tod.Minute())*60+tod.Second())*1000 + tod.Millisecond()
		fb.Append(arrow.Time32(ms))
	default:
		return fmt.Errorf("%w: unsupported builder %T", datatable.ErrInvalidType, b)
	}
	return nil
}

func logger() logr.Logger {
	return datatable.Logger().WithName("arrowadapter")
}
