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
	"regexp"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Wire format revisions. Both are accepted on input and behave the same.
const (
	Version05 = "0.5"
	Version06 = "0.6"

	// CurrentVersion is written by Snapshot.
	CurrentVersion = Version06
)

// Snapshot is the plain, serializable copy of a table: its column specs,
// rows of cells and table properties. Values are held typed; JSON encoding
// writes dates as Date(y,m,d[,h,mi,s[,ms]]) literals with a 0-based month
// and times of day as integer arrays.
type Snapshot struct {
	Version string
	Cols    []SnapshotColumn
	Rows    []SnapshotRow
	P       Properties
}

// SnapshotColumn is a column spec in a Snapshot.
type SnapshotColumn struct {
	ID      string     `json:"id"`
	Label   string     `json:"label"`
	Type    DataType   `json:"type"`
	Pattern string     `json:"pattern"`
	P       Properties `json:"p,omitempty"`
}

// SnapshotRow is a row in a Snapshot. A nil cell stands for a null cell.
type SnapshotRow struct {
	C []*Cell
	P Properties
}

func checkVersion(v string) error {
	switch v {
	case "", Version05, Version06:
		return nil
	default:
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidSnapshot, v)
	}
}

// Snapshot implements DataSource.
func (t *Table) Snapshot() (*Snapshot, error) {
	s := &Snapshot{
		Version: CurrentVersion,
		Cols:    make([]SnapshotColumn, len(t.cols)),
		Rows:    make([]SnapshotRow, len(t.rows)),
		P:       t.p.Clone(),
	}
	for i, c := range t.cols {
		s.Cols[i] = SnapshotColumn{ID: c.ID, Label: c.Label, Type: c.Type, Pattern: c.Pattern, P: c.P.Clone()}
	}
	for i, r := range t.rows {
		cells := make([]*Cell, len(r.Cells))
		for j := range r.Cells {
			c := r.Cells[j].Clone()
			cells[j] = &c
		}
		s.Rows[i] = SnapshotRow{C: cells, P: r.P.Clone()}
	}
	return s, nil
}

// NewTableFromSnapshot builds a table from a snapshot. Column types default
// to string, rows shorter than the column set are padded with nulls, and
// every value is validated against its column type.
func NewTableFromSnapshot(s *Snapshot) (*Table, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}
	if err := checkVersion(s.Version); err != nil {
		return nil, err
	}
	t := NewTable()
	for _, c := range s.Cols {
		if _, err := t.AddColumn(Column{ID: c.ID, Label: c.Label, Type: c.Type, Pattern: c.Pattern, P: c.P}); err != nil {
			return nil, err
		}
	}
	rows := make([]Row, len(s.Rows))
	for i, r := range s.Rows {
		if len(r.C) > len(t.cols) {
			return nil, fmt.Errorf("%w: row %d has %d cells, table has %d columns", ErrShapeMismatch, i, len(r.C), len(t.cols))
		}
		cells := make([]Cell, len(t.cols))
		for j, c := range r.C {
			if c == nil {
				continue
			}
			cell := c.Clone()
			v, err := coerce(cell.V, t.cols[j].Type)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			cell.V = v
			cells[j] = cell
		}
		rows[i] = Row{Cells: cells, P: r.P.Clone()}
	}
	t.spliceRows(0, rows)
	t.p = s.P.Clone()
	return t, nil
}

// ParseTable decodes the JSON wire format into a new table.
func ParseTable(data []byte) (*Table, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return NewTableFromSnapshot(&s)
}

// MarshalJSON encodes the table in the wire format. Tables with a
// function column are not serializable.
func (t *Table) MarshalJSON() ([]byte, error) {
	s, err := t.Snapshot()
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

type wireSnapshot struct {
	Version string           `json:"version,omitempty"`
	Cols    []SnapshotColumn `json:"cols"`
	Rows    []wireRow        `json:"rows"`
	P       Properties       `json:"p,omitempty"`
}

type wireRow struct {
	C []*wireCell `json:"c"`
	P Properties  `json:"p,omitempty"`
}

type wireCell struct {
	V json.RawMessage `json:"v"`
	F *string         `json:"f,omitempty"`
	P Properties      `json:"p,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	w := wireSnapshot{
		Version: s.Version,
		Cols:    s.Cols,
		Rows:    make([]wireRow, len(s.Rows)),
		P:       s.P,
	}
	if w.Cols == nil {
		w.Cols = []SnapshotColumn{}
	}
	for j, c := range s.Cols {
		if c.Type == TypeFunction {
			return nil, fmt.Errorf("%w: column %d (%q) has type function", ErrNotSerializable, j, c.ID)
		}
	}
	for i, r := range s.Rows {
		cells := make([]*wireCell, len(r.C))
		for j, c := range r.C {
			if c == nil {
				continue
			}
			raw, err := encodeWireValue(c.V)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			cells[j] = &wireCell{V: raw, F: c.F, P: c.P}
		}
		w.Rows[i] = wireRow{C: cells, P: r.P}
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler. Cell values are decoded
// according to their column type.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if err := checkVersion(w.Version); err != nil {
		return err
	}
	out := Snapshot{Version: w.Version, Cols: w.Cols, Rows: make([]SnapshotRow, len(w.Rows)), P: w.P}
	for i, r := range w.Rows {
		if len(r.C) > len(w.Cols) {
			return fmt.Errorf("%w: row %d has %d cells, table has %d columns", ErrShapeMismatch, i, len(r.C), len(w.Cols))
		}
		cells := make([]*Cell, len(r.C))
		for j, c := range r.C {
			if c == nil {
				continue
			}
			v, err := decodeWireValue(c.V, w.Cols[j].Type)
			if err != nil {
				return fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			cells[j] = &Cell{V: v, F: c.F, P: c.P}
		}
		out.Rows[i] = SnapshotRow{C: cells, P: r.P}
	}
	*s = out
	return nil
}

var nullJSON = []byte("null")

func encodeWireValue(v Value) (json.RawMessage, error) {
	switch v.kind {
	case KindNull:
		return nullJSON, nil
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBoolean:
		return json.Marshal(v.b)
	case KindDate:
		return json.Marshal(FormatDateLiteral(v.t))
	case KindTimeOfDay:
		return json.Marshal([]int(v.tod))
	default:
		return nil, fmt.Errorf("%w: %s value", ErrNotSerializable, v.kind)
	}
}

func decodeWireValue(raw json.RawMessage, dt DataType) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, nullJSON) {
		return Null(), nil
	}
	switch dt.orDefault() {
	case TypeDate, TypeDateTime:
		var lit string
		if err := json.Unmarshal(raw, &lit); err != nil {
			return Value{}, fmt.Errorf("%w: date value %s", ErrTypeMismatch, raw)
		}
		t, err := ParseDateLiteral(lit)
		if err != nil {
			return Value{}, err
		}
		return Date(t), nil
	case TypeTimeOfDay:
		var parts []int
		if err := json.Unmarshal(raw, &parts); err != nil {
			return Value{}, fmt.Errorf("%w: time of day value %s", ErrTypeMismatch, raw)
		}
		tod, err := NewTimeOfDay(parts...)
		if err != nil {
			return Value{}, err
		}
		return TimeOf(tod), nil
	case TypeFunction:
		return Value{}, fmt.Errorf("%w: function column", ErrNotSerializable)
	}
	var x interface{}
	if err := json.Unmarshal(raw, &x); err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	v, err := ValueOf(x)
	if err != nil {
		return Value{}, err
	}
	return coerce(v, dt)
}

var dateLiteral = regexp.MustCompile(`^Date\(\s*(-?\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*(?:,\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)$`)

// ParseDateLiteral parses Date(y,m,d[,h,mi,s[,ms]]) with a 0-based month.
// The result is in UTC. Anything else, including out of range components,
// is rejected.
func ParseDateLiteral(s string) (time.Time, error) {
	m := dateLiteral.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a Date literal", ErrTypeMismatch, s)
	}
	n := make([]int, 7)
	for i := 1; i < len(m); i++ {
		if m[i] == "" {
			continue
		}
		x, err := strconv.Atoi(m[i])
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q: %w", ErrTypeMismatch, s, err)
		}
		n[i-1] = x
	}
	year, month, day, hour, minute, sec, ms := n[0], n[1], n[2], n[3], n[4], n[5], n[6]
	if month > 11 || day < 1 || day > 31 || hour > 23 || minute > 59 || sec > 59 || ms > 999 {
		return time.Time{}, fmt.Errorf("%w: %q has an out of range component", ErrTypeMismatch, s)
	}
	t := time.Date(year, time.Month(month+1), day, hour, minute, sec, ms*int(time.Millisecond), time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %q is not a calendar date", ErrTypeMismatch, s)
	}
	return t, nil
}

// FormatDateLiteral renders t as a Date literal with a 0-based month. The
// time components are omitted for values without a time of day; other values
// are written in UTC, matching ParseDateLiteral.
func FormatDateLiteral(t time.Time) string {
	if IsDateOnly(t) {
		return fmt.Sprintf("Date(%d,%d,%d)", t.Year(), int(t.Month())-1, t.Day())
	}
	t = t.UTC()
	ms := t.Nanosecond() / int(time.Millisecond)
	if ms == 0 {
		return fmt.Sprintf("Date(%d,%d,%d,%d,%d,%d)", t.Year(), int(t.Month())-1, t.Day(), t.Hour(), t.Minute(), t.Second())
	}
	return fmt.Sprintf("Date(%d,%d,%d,%d,%d,%d,%d)", t.Year(), int(t.Month())-1, t.Day(), t.Hour(), t.Minute(), t.Second(), ms)
}
