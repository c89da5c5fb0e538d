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

// Package csvadapter imports delimited text into tables and exports any data
// source as CSV.
package csvadapter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/magpierre/tabula/datatable"
)

// Config controls how CSV input is read.
type Config struct {
	// HasHeaders treats the first record as column ids.
	HasHeaders bool
	// TrimSpace trims leading and trailing white space of every field.
	TrimSpace bool
	// Delimiter separates fields; zero means detect from the first line.
	Delimiter rune
	// InferTypes picks the narrowest type every non-empty field of a
	// column parses as. Without it all columns are strings.
	InferTypes bool
}

// DefaultConfig returns a config for a headed file with a detected
// delimiter and type inference.
func DefaultConfig() Config {
	return Config{HasHeaders: true, TrimSpace: true, InferTypes: true}
}

var separators = []rune{',', ';', '\t', '|'}

// DetectDelimiter returns the most frequent separator in line, or a comma.
func DetectDelimiter(line string) rune {
	best, bestCount := ',', 0
	for _, sep := range separators {
		if n := strings.Count(line, string(sep)); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}

// DelimiterName returns a human readable name for a separator.
func DelimiterName(sep rune) string {
	switch sep {
	case ',':
		return "comma"
	case ';':
		return "semicolon"
	case '\t':
		return "tab"
	case '|':
		return "pipe"
	default:
		return string(sep)
	}
}

// Read parses CSV from r into a new table.
func Read(r io.Reader, cfg Config) (*datatable.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if cfg.Delimiter == 0 {
		first, _, _ := bytes.Cut(data, []byte("\n"))
		cfg.Delimiter = DetectDelimiter(string(first))
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = cfg.Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = cfg.TrimSpace
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if cfg.TrimSpace {
		for _, rec := range records {
			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
		}
	}

	var header []string
	if cfg.HasHeaders && len(records) > 0 {
		header, records = records[0], records[1:]
	}
	width := len(header)
	for _, rec := range records {
		width = max(width, len(rec))
	}

	tbl := datatable.NewTable()
	types := make([]datatable.DataType, width)
	for col := range types {
		types[col] = datatable.TypeString
		if cfg.InferTypes {
			types[col] = inferType(records, col)
		}
		id := fmt.Sprintf("col_%d", col)
		if col < len(header) && header[col] != "" {
			id = header[col]
		}
		if _, err := tbl.AddColumn(datatable.Column{ID: id, Label: id, Type: types[col]}); err != nil {
			return nil, err
		}
	}

	rows := make([][]interface{}, len(records))
	for r, rec := range records {
		rows[r] = make([]interface{}, width)
		for col, field := range rec {
			v, err := datatable.ParseValue(types[col], field)
			if err != nil {
				return nil, fmt.Errorf("record %d field %d: %w", r+1, col+1, err)
			}
			rows[r][col] = v
		}
	}
	if len(rows) > 0 {
		if _, err := tbl.AddRows(rows); err != nil {
			return nil, err
		}
	}
	logger().V(1).Info("read CSV", "rows", len(rows), "columns", width, "delimiter", DelimiterName(cfg.Delimiter))
	return tbl, nil
}

// ReadFile reads the CSV file at path.
func ReadFile(path string, cfg Config) (*datatable.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return Read(f, cfg)
}

var candidates = []datatable.DataType{
	datatable.TypeNumber,
	datatable.TypeBoolean,
	datatable.TypeDate,
	datatable.TypeDateTime,
	datatable.TypeTimeOfDay,
}

func inferType(records [][]string, col int) datatable.DataType {
	seen := false
	for _, dt := range candidates {
		ok := true
		for _, rec := range records {
			if col >= len(rec) || rec[col] == "" {
				continue
			}
			seen = true
			v, err := datatable.ParseValue(dt, rec[col])
			if err != nil || (dt == datatable.TypeDate && !datatable.IsDateOnly(v.TimeValue())) {
				ok = false
				break
			}
		}
		if !seen {
			return datatable.TypeString
		}
		if ok {
			return dt
		}
	}
	return datatable.TypeString
}

// WriteConfig controls CSV output.
type WriteConfig struct {
	// Header writes the column ids as the first line.
	Header bool
	// Raw writes values in a machine readable form (ISO 8601 dates, plain
	// numbers) instead of formatted values.
	Raw bool
}

// Write writes ds as CSV.
func Write(w io.Writer, ds datatable.DataSource, cfg WriteConfig) error {
	writer := csv.NewWriter(w)
	record := make([]string, ds.NumberOfColumns())
	if cfg.Header {
		for col := range record {
			id, err := ds.ColumnID(col)
			if err != nil {
				return err
			}
			record[col] = id
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("%w: %w", datatable.ErrExportFailed, err)
		}
	}
	if !cfg.Raw {
		if err := flush(writer); err != nil {
			return err
		}
		return datatable.WriteCSV(w, ds)
	}
	for row := 0; row < ds.NumberOfRows(); row++ {
		for col := range record {
			v, err := ds.Value(row, col)
			if err != nil {
				return err
			}
			dt, err := ds.ColumnType(col)
			if err != nil {
				return err
			}
			record[col] = datatable.FormatISO(dt, v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("%w: %w", datatable.ErrExportFailed, err)
		}
	}
	return flush(writer)
}

func flush(writer *csv.Writer) error {
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("%w: %w", datatable.ErrExportFailed, err)
	}
	return nil
}

// WriteFile writes ds to a new CSV file at path.
func WriteFile(path string, ds datatable.DataSource, cfg WriteConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer f.Close()
	return Write(f, ds, cfg)
}

func logger() logr.Logger {
	return datatable.Logger().WithName("csvadapter")
}
