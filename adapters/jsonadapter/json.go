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

// Package jsonadapter reads and writes tables as arrays of JSON records.
package jsonadapter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-logr/logr"
	"github.com/goccy/go-json"
	"github.com/magpierre/tabula/datatable"
)

// Read decodes an array of objects, or a single object, into a new table.
// Columns are the union of all keys in sorted order. A column whose values
// are all numbers, booleans or ISO 8601 dates gets that type; anything else
// is stored as a string, with nested values rendered as JSON.
func Read(r io.Reader) (*datatable.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}
	var records []map[string]interface{}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		var single map[string]interface{}
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		records = []map[string]interface{}{single}
	} else if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	keys := make(map[string]bool)
	for _, rec := range records {
		for k := range rec {
			keys[k] = true
		}
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	tbl := datatable.NewTable()
	rows := make([][]interface{}, len(records))
	for r := range rows {
		rows[r] = make([]interface{}, len(names))
	}
	for col, name := range names {
		dt := inferType(records, name)
		if _, err := tbl.AddColumn(datatable.Column{ID: name, Label: name, Type: dt}); err != nil {
			return nil, err
		}
		for r, rec := range records {
			v, err := toValue(dt, rec[name])
			if err != nil {
				return nil, fmt.Errorf("record %d key %q: %w", r, name, err)
			}
			rows[r][col] = v
		}
	}
	if len(rows) > 0 {
		if _, err := tbl.AddRows(rows); err != nil {
			return nil, err
		}
	}
	logger().V(1).Info("read JSON records", "rows", len(rows), "columns", len(names))
	return tbl, nil
}

// ReadFile reads the JSON file at path.
func ReadFile(path string) (*datatable.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func inferType(records []map[string]interface{}, key string) datatable.DataType {
	var dt datatable.DataType
	for _, rec := range records {
		raw, ok := rec[key]
		if !ok || raw == nil {
			continue
		}
		var next datatable.DataType
		switch x := raw.(type) {
		case float64:
			next = datatable.TypeNumber
		case bool:
			next = datatable.TypeBoolean
		case string:
			next = stringType(x)
		default:
			return datatable.TypeString
		}
		switch {
		case dt == datatable.TypeUnspecified || dt == next:
			dt = next
		case dt == datatable.TypeDate && next == datatable.TypeDateTime,
			dt == datatable.TypeDateTime && next == datatable.TypeDate:
			dt = datatable.TypeDateTime
		default:
			return datatable.TypeString
		}
	}
	if dt == datatable.TypeUnspecified {
		return datatable.TypeString
	}
	return dt
}

// stringType recognizes strings written by Write for dates and datetimes.
func stringType(s string) datatable.DataType {
	if v, err := datatable.ParseValue(datatable.TypeDateTime, s); err == nil && len(s) >= len("2006-01-02") && s[4] == '-' {
		if datatable.IsDateOnly(v.TimeValue()) && len(s) == len("2006-01-02") {
			return datatable.TypeDate
		}
		return datatable.TypeDateTime
	}
	return datatable.TypeString
}

func toValue(dt datatable.DataType, raw interface{}) (datatable.Value, error) {
	switch x := raw.(type) {
	case nil:
		return datatable.Null(), nil
	case string:
		if dt == datatable.TypeString {
			return datatable.String(x), nil
		}
		return datatable.ParseValue(dt, x)
	case float64, bool:
		if dt == datatable.TypeString {
			return datatable.String(fmt.Sprint(x)), nil
		}
		return datatable.ValueOf(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return datatable.Null(), err
		}
		return datatable.String(string(b)), nil
	}
}

// Records returns one map per row of ds keyed by column id. Dates and
// times of day are rendered with datatable.FormatISO.
func Records(ds datatable.DataSource) ([]map[string]interface{}, error) {
	names := make([]string, ds.NumberOfColumns())
	types := make([]datatable.DataType, len(names))
	for col := range names {
		id, err := ds.ColumnID(col)
		if err != nil {
			return nil, err
		}
		if id == "" {
			id, _ = ds.ColumnLabel(col)
		}
		if id == "" {
			id = fmt.Sprintf("col_%d", col)
		}
		names[col] = id
		types[col], _ = ds.ColumnType(col)
		if types[col] == datatable.TypeFunction {
			return nil, fmt.Errorf("%w: column %d holds functions", datatable.ErrNotSerializable, col)
		}
	}
	records := make([]map[string]interface{}, ds.NumberOfRows())
	for row := range records {
		rec := make(map[string]interface{}, len(names))
		for col, name := range names {
			v, err := ds.Value(row, col)
			if err != nil {
				return nil, err
			}
			switch v.Kind() {
			case datatable.KindDate, datatable.KindTimeOfDay:
				rec[name] = datatable.FormatISO(types[col], v)
			default:
				rec[name] = v.Interface()
			}
		}
		records[row] = rec
	}
	return records, nil
}

// Write encodes ds as an indented array of records.
func Write(w io.Writer, ds datatable.DataSource) error {
	records, err := Records(ds)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("%w: failed to encode JSON: %w", datatable.ErrExportFailed, err)
	}
	return nil
}

// WriteFile writes ds to a new JSON file at path.
func WriteFile(path string, ds datatable.DataSource) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer f.Close()
	return Write(f, ds)
}

func logger() logr.Logger {
	return datatable.Logger().WithName("jsonadapter")
}
