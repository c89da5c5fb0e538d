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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompareValuesNullOrdering(t *testing.T) {
	samples := map[DataType]Value{
		TypeString:    String("a"),
		TypeNumber:    Number(-5),
		TypeBoolean:   Bool(false),
		TypeDate:      Date(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)),
		TypeDateTime:  Date(time.Date(2020, 5, 1, 10, 0, 0, 0, time.UTC)),
		TypeTimeOfDay: TimeOf(TimeOfDay{0}),
	}
	for dt, x := range samples {
		t.Run(dt.String(), func(t *testing.T) {
			assert.Zero(t, CompareValues(dt, Null(), Null()))
			assert.Negative(t, CompareValues(dt, Null(), x))
			assert.Positive(t, CompareValues(dt, x, Null()))
		})
	}
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name string
		dt   DataType
		a, b Value
		want int
	}{
		{"strings", TypeString, String("apple"), String("banana"), -1},
		{"equal strings", TypeString, String("x"), String("x"), 0},
		{"numbers", TypeNumber, Number(10), Number(2), 1},
		{"negative numbers", TypeNumber, Number(-3), Number(-1), -1},
		{"booleans", TypeBoolean, Bool(false), Bool(true), -1},
		{"dates", TypeDate,
			Date(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
			Date(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), 1},
		{"time of day missing components", TypeTimeOfDay, TimeOf(TimeOfDay{10, 30}), TimeOf(TimeOfDay{10, 30, 0, 0}), 0},
		{"time of day milliseconds", TypeTimeOfDay, TimeOf(TimeOfDay{10, 30, 0, 5}), TimeOf(TimeOfDay{10, 30}), 1},
		{"time of day hours", TypeTimeOfDay, TimeOf(TimeOfDay{9, 59, 59}), TimeOf(TimeOfDay{10}), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareValues(tt.dt, tt.a, tt.b)
			switch {
			case tt.want < 0:
				assert.Negative(t, got)
			case tt.want > 0:
				assert.Positive(t, got)
			default:
				assert.Zero(t, got)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		dt   DataType
		v    Value
		want string
	}{
		{"null", TypeNumber, Null(), ""},
		{"string", TypeString, String("hello"), "hello"},
		{"grouped number", TypeNumber, Number(1234.5), "1,234.5"},
		{"integer", TypeNumber, Number(42), "42"},
		{"boolean", TypeBoolean, Bool(true), "true"},
		{"date", TypeDate, Date(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)), "Mar 9, 2024"},
		{"datetime", TypeDateTime, Date(time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)), "Mar 9, 2024, 2:05:06 PM"},
		{"time of day minutes", TypeTimeOfDay, TimeOf(TimeOfDay{9, 5}), "09:05"},
		{"time of day seconds", TypeTimeOfDay, TimeOf(TimeOfDay{9, 5, 7}), "09:05:07"},
		{"time of day milliseconds only", TypeTimeOfDay, TimeOf(TimeOfDay{13, 0, 0, 5}), "13:00:00.005"},
		{"time of day zero seconds", TypeTimeOfDay, TimeOf(TimeOfDay{13, 0, 0, 0}), "13:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.dt, tt.v))
		})
	}
}

func TestStableSortKeepsEqualOrder(t *testing.T) {
	type item struct {
		key, pos int
	}
	items := []item{{2, 0}, {1, 1}, {2, 2}, {1, 3}, {0, 4}, {2, 5}}
	StableSort(items, func(a, b item) int { return compareInts(a.key, b.key) })
	assert.Equal(t, []item{{0, 4}, {1, 1}, {1, 3}, {2, 0}, {2, 2}, {2, 5}}, items)
}

func TestParseDataType(t *testing.T) {
	dt, err := ParseDataType("timeofday")
	assert.NoError(t, err)
	assert.Equal(t, TypeTimeOfDay, dt)

	dt, err = ParseDataType("")
	assert.NoError(t, err)
	assert.Equal(t, TypeUnspecified, dt)

	_, err = ParseDataType("decimal")
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestParseValueAndFormatISO(t *testing.T) {
	tests := []struct {
		dt   DataType
		text string
		want Value
	}{
		{TypeNumber, " 1,234.5 ", Number(1234.5)},
		{TypeBoolean, "TRUE", Bool(true)},
		{TypeDate, "2024-02-29", Date(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))},
		{TypeDate, "Mar 9, 2024", Date(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))},
		{TypeDateTime, "2024-02-29T13:04:05.5Z", Date(time.Date(2024, 2, 29, 13, 4, 5, 500000000, time.UTC))},
		{TypeDateTime, "Date(2024,1,29,13,4,5)", Date(time.Date(2024, 2, 29, 13, 4, 5, 0, time.UTC))},
		{TypeTimeOfDay, "07:05:09.250", TimeOf(TimeOfDay{7, 5, 9, 250})},
		{TypeString, "", Null()},
	}
	for _, tt := range tests {
		t.Run(tt.dt.String()+" "+tt.text, func(t *testing.T) {
			got, err := ParseValue(tt.dt, tt.text)
			assert.NoError(t, err)
			assert.Zero(t, CompareValues(tt.dt, tt.want, got), "%s != %s", tt.want, got)

			back, err := ParseValue(tt.dt, FormatISO(tt.dt, got))
			assert.NoError(t, err)
			assert.Zero(t, CompareValues(tt.dt, got, back))
		})
	}

	for _, bad := range []struct {
		dt   DataType
		text string
	}{
		{TypeNumber, "12abc"},
		{TypeBoolean, "maybe"},
		{TypeDate, "2024-13-01"},
		{TypeTimeOfDay, "25:00"},
		{TypeTimeOfDay, "12"},
	} {
		_, err := ParseValue(bad.dt, bad.text)
		assert.ErrorIs(t, err, ErrTypeMismatch, "%s %q", bad.dt, bad.text)
	}
}
