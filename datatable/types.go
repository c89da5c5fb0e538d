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

// Package datatable provides an in-memory typed table, non-materializing views
// over tables, and the shared algorithms (sort, filter, range) both are built on.
package datatable

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// DataType represents the declared type of a column.
type DataType int

const (
	// TypeUnspecified is the zero DataType. Tables treat it as TypeString.
	TypeUnspecified DataType = iota
	// TypeString represents string data.
	TypeString
	// TypeNumber represents numeric data (float64).
	TypeNumber
	// TypeBoolean represents boolean data.
	TypeBoolean
	// TypeDate represents a calendar date without time of day.
	TypeDate
	// TypeDateTime represents a date with a time of day.
	TypeDateTime
	// TypeTimeOfDay represents a time of day as [hour, minute, second, millisecond, ...].
	TypeTimeOfDay
	// TypeFunction represents opaque function values. Such columns cannot be serialized.
	TypeFunction
)

// String returns the wire name of a DataType.
func (dt DataType) String() string {
	switch dt {
	case TypeUnspecified:
		return ""
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeDate:
		return "date"
	case TypeDateTime:
		return "datetime"
	case TypeTimeOfDay:
		return "timeofday"
	case TypeFunction:
		return "function"
	default:
		return fmt.Sprintf("unknown(%d)", int(dt))
	}
}

// Valid reports whether dt is one of the declared column types.
// TypeUnspecified is valid; it stands for "use the default".
func (dt DataType) Valid() bool {
	return dt >= TypeUnspecified && dt <= TypeFunction
}

// ParseDataType converts a wire type name to a DataType.
// The empty string yields TypeUnspecified.
func ParseDataType(s string) (DataType, error) {
	switch s {
	case "":
		return TypeUnspecified, nil
	case "string":
		return TypeString, nil
	case "number":
		return TypeNumber, nil
	case "boolean":
		return TypeBoolean, nil
	case "date":
		return TypeDate, nil
	case "datetime":
		return TypeDateTime, nil
	case "timeofday":
		return TypeTimeOfDay, nil
	case "function":
		return TypeFunction, nil
	default:
		return TypeUnspecified, fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (dt DataType) MarshalText() ([]byte, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, dt)
	}
	return []byte(dt.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (dt *DataType) UnmarshalText(text []byte) error {
	parsed, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*dt = parsed
	return nil
}

// orDefault maps TypeUnspecified to TypeString.
func (dt DataType) orDefault() DataType {
	if dt == TypeUnspecified {
		return TypeString
	}
	return dt
}

// Kind is the runtime tag of a Value.
type Kind int

const (
	// KindNull is the absent value.
	KindNull Kind = iota
	// KindString holds a string.
	KindString
	// KindNumber holds a float64.
	KindNumber
	// KindBoolean holds a bool.
	KindBoolean
	// KindDate holds a time.Time, for both date and datetime columns.
	KindDate
	// KindTimeOfDay holds a TimeOfDay.
	KindTimeOfDay
	// KindFunction holds an opaque function value.
	KindFunction
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	case KindTimeOfDay:
		return "timeofday"
	case KindFunction:
		return "function"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// TimeOfDay is an ordered sequence of 1 to 7 non-negative integers:
// hour, minute, second, millisecond and optional finer components.
type TimeOfDay []int

// NewTimeOfDay validates parts and returns them as a TimeOfDay.
func NewTimeOfDay(parts ...int) (TimeOfDay, error) {
	if len(parts) < 1 || len(parts) > 7 {
		return nil, fmt.Errorf("%w: time of day needs 1 to 7 components, got %d", ErrInvalidType, len(parts))
	}
	for i, p := range parts {
		if p < 0 {
			return nil, fmt.Errorf("%w: negative time of day component %d at position %d", ErrInvalidType, p, i)
		}
	}
	tod := make(TimeOfDay, len(parts))
	copy(tod, parts)
	return tod, nil
}

// Component returns the i-th component, or 0 when it is absent.
func (t TimeOfDay) Component(i int) int {
	if i < 0 || i >= len(t) {
		return 0
	}
	return t[i]
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return t.Component(0) }

// Minute returns the minute component, or 0.
func (t TimeOfDay) Minute() int { return t.Component(1) }

// Second returns the second component, or 0.
func (t TimeOfDay) Second() int { return t.Component(2) }

// Millisecond returns the millisecond component, or 0.
func (t TimeOfDay) Millisecond() int { return t.Component(3) }

// Value is a typed container for a single cell value.
// The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	t    time.Time
	tod  TimeOfDay
	fn   interface{}
}

// Null returns a null value.
func Null() Value { return Value{} }

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Date creates a date or datetime value.
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// TimeOf creates a time of day value. The components are copied.
func TimeOf(tod TimeOfDay) Value {
	c := make(TimeOfDay, len(tod))
	copy(c, tod)
	return Value{kind: KindTimeOfDay, tod: c}
}

// Func wraps an opaque function value for function-typed columns.
func Func(fn interface{}) Value {
	if fn == nil {
		return Null()
	}
	return Value{kind: KindFunction, fn: fn}
}

// ValueOf converts a native Go value to a Value.
// Supported inputs are nil, Value, *Value, string, bool, all integer and
// float types, time.Time, TimeOfDay, []int and func values.
func ValueOf(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case *Value:
		if x == nil {
			return Null(), nil
		}
		return *x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int8:
		return Number(float64(x)), nil
	case int16:
		return Number(float64(x)), nil
	case int32:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case uint:
		return Number(float64(x)), nil
	case uint8:
		return Number(float64(x)), nil
	case uint16:
		return Number(float64(x)), nil
	case uint32:
		return Number(float64(x)), nil
	case uint64:
		return Number(float64(x)), nil
	case time.Time:
		return Date(x), nil
	case *time.Time:
		if x == nil {
			return Null(), nil
		}
		return Date(*x), nil
	case TimeOfDay:
		tod, err := NewTimeOfDay(x...)
		if err != nil {
			return Null(), err
		}
		return Value{kind: KindTimeOfDay, tod: tod}, nil
	case []int:
		tod, err := NewTimeOfDay(x...)
		if err != nil {
			return Null(), err
		}
		return Value{kind: KindTimeOfDay, tod: tod}, nil
	}

	if reflect.TypeOf(raw).Kind() == reflect.Func {
		return Func(raw), nil
	}
	return Null(), fmt.Errorf("%w: unsupported value %T", ErrInvalidType, raw)
}

// MustValue is like ValueOf but panics on error. It is intended for literals
// in tests and examples.
func MustValue(raw interface{}) Value {
	v, err := ValueOf(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Kind returns the runtime tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// StringValue returns the string payload, or "" for other kinds.
func (v Value) StringValue() string { return v.str }

// NumberValue returns the numeric payload, or 0 for other kinds.
func (v Value) NumberValue() float64 { return v.num }

// BoolValue returns the boolean payload, or false for other kinds.
func (v Value) BoolValue() bool { return v.b }

// TimeValue returns the date payload, or the zero time for other kinds.
func (v Value) TimeValue() time.Time { return v.t }

// TimeOfDayValue returns a copy of the time of day payload.
func (v Value) TimeOfDayValue() TimeOfDay {
	if v.tod == nil {
		return nil
	}
	c := make(TimeOfDay, len(v.tod))
	copy(c, v.tod)
	return c
}

// Interface returns the native Go representation of v.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBoolean:
		return v.b
	case KindDate:
		return v.t
	case KindTimeOfDay:
		return v.TimeOfDayValue()
	case KindFunction:
		return v.fn
	default:
		return nil
	}
}

// Ref returns a pointer to a copy of v, for optional filter fields.
func (v Value) Ref() *Value { return &v }

// Equal reports whether v and other hold the same kind and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	if v.kind == KindFunction {
		return false
	}
	return compareSameKind(v, other) == 0
}

// String returns a debugging representation of v.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return strconv.Quote(v.str)
	case KindDate:
		return v.t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// normalizeTime moves t to UTC. A date keeps its calendar day; a datetime
// keeps its instant.
func normalizeTime(t time.Time, dt DataType) time.Time {
	if t.Location() == time.UTC {
		return t
	}
	if dt == TypeDate && IsDateOnly(t) {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	return t.UTC()
}

// IsDateOnly reports whether t carries no time of day offset.
func IsDateOnly(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// conforms reports whether v may be stored in a column of type dt.
func (v Value) conforms(dt DataType) bool {
	if v.kind == KindNull {
		return true
	}
	switch dt.orDefault() {
	case TypeString:
		return v.kind == KindString
	case TypeNumber:
		return v.kind == KindNumber
	case TypeBoolean:
		return v.kind == KindBoolean
	case TypeDate, TypeDateTime:
		return v.kind == KindDate
	case TypeTimeOfDay:
		return v.kind == KindTimeOfDay
	case TypeFunction:
		return true
	default:
		return false
	}
}

// coerce validates v against dt. A numeric column accepts a string value
// iff it parses as a number. Stored dates and datetimes are in UTC.
func coerce(v Value, dt DataType) (Value, error) {
	if v.conforms(dt) {
		if v.kind == KindDate {
			v.t = normalizeTime(v.t, dt.orDefault())
		}
		return v, nil
	}
	if dt.orDefault() == TypeNumber && v.kind == KindString {
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err == nil && !math.IsNaN(f) {
			return Number(f), nil
		}
	}
	return v, fmt.Errorf("%w: value %s (%s) is not of type %s", ErrTypeMismatch, v, v.kind, dt.orDefault())
}

// Properties is an arbitrary key/value map attached to a cell, row, column or table.
type Properties map[string]interface{}

// Clone returns a deep copy of p. Nested maps and slices are copied.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = cloneAny(v)
	}
	return out
}

func cloneAny(v interface{}) interface{} {
	switch x := v.(type) {
	case Properties:
		return x.Clone()
	case map[string]interface{}:
		return map[string]interface{}(Properties(x).Clone())
	case []interface{}:
		out := make([]interface{}, len(x))
		for i := range x {
			out[i] = cloneAny(x[i])
		}
		return out
	case []string:
		return append([]string(nil), x...)
	case []int:
		return append([]int(nil), x...)
	case []float64:
		return append([]float64(nil), x...)
	default:
		return v
	}
}
