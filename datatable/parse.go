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
	"math"
	"strconv"
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"Jan 2, 2006, 3:04:05 PM",
	"Jan 2, 2006",
}

// ParseValue parses text as a value of type dt. Empty text is null. Dates
// accept ISO 8601, Date literals and the default date format, time of day accepts HH:mm[:ss[.SSS]].
func ParseValue(dt DataType, text string) (Value, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Null(), nil
	}
	switch dt.orDefault() {
	case TypeString:
		return String(text), nil
	case TypeNumber:
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil || math.IsNaN(f) {
			return Null(), fmt.Errorf("%w: %q is not a number", ErrTypeMismatch, text)
		}
		return Number(f), nil
	case TypeBoolean:
		b, err := strconv.ParseBool(strings.ToLower(s))
		if err != nil {
			return Null(), fmt.Errorf("%w: %q is not a boolean", ErrTypeMismatch, text)
		}
		return Bool(b), nil
	case TypeDate, TypeDateTime:
		t, err := parseTime(s)
		if err != nil {
			return Null(), err
		}
		return Date(t), nil
	case TypeTimeOfDay:
		tod, err := ParseTimeOfDay(s)
		if err != nil {
			return Null(), err
		}
		return TimeOf(tod), nil
	default:
		return Null(), fmt.Errorf("%w: cannot parse text as %s", ErrInvalidType, dt)
	}
}

func parseTime(s string) (time.Time, error) {
	if strings.HasPrefix(s, "Date(") {
		return ParseDateLiteral(s)
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a date", ErrTypeMismatch, s)
}

// ParseTimeOfDay parses HH:mm[:ss[.SSS]].
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	bad := fmt.Errorf("%w: %q is not a time of day", ErrTypeMismatch, s)
	clock, frac, hasFrac := strings.Cut(strings.TrimSpace(s), ".")
	fields := strings.Split(clock, ":")
	if len(fields) < 2 || len(fields) > 3 || (hasFrac && len(fields) != 3) {
		return nil, bad
	}
	if hasFrac {
		fields = append(fields, frac)
	}
	parts := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, bad
		}
		parts[i] = n
	}
	if parts[0] > 23 || parts[1] > 59 || (len(parts) > 2 && parts[2] > 59) {
		return nil, bad
	}
	return NewTimeOfDay(parts...)
}

// FormatISO renders v in a machine readable form that ParseValue reads
// back to the same value: plain numbers, ISO 8601 dates and HH:mm:ss[.SSS].
func FormatISO(dt DataType, v Value) string {
	switch v.Kind() {
	case KindNull:
		return ""
	case KindNumber:
		return strconv.FormatFloat(v.NumberValue(), 'f', -1, 64)
	case KindDate:
		t := v.TimeValue().UTC()
		if dt == TypeDate || (dt != TypeDateTime && IsDateOnly(t)) {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339Nano)
	case KindTimeOfDay:
		tod := v.TimeOfDayValue()
		s := fmt.Sprintf("%02d:%02d:%02d", tod.Hour(), tod.Minute(), tod.Second())
		if tod.Millisecond() != 0 {
			s += fmt.Sprintf(".%03d", tod.Millisecond())
		}
		return s
	default:
		return FormatValue(dt, v)
	}
}
