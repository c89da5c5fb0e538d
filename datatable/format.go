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
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	dateLayout     = "Jan 2, 2006"
	dateTimeLayout = "Jan 2, 2006, 3:04:05 PM"
)

// FormatValue returns the default, locale-free rendering of v for a column
// of type dt: thousands-grouped decimals for numbers, medium dates and
// HH:mm[:ss[.SSS]] for time of day. Null formats as the empty string.
func FormatValue(dt DataType, v Value) string {
	if v.kind == KindNull {
		return ""
	}
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return formatNumber(v.num)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindDate:
		return formatDate(dt, v.t)
	case KindTimeOfDay:
		return formatTimeOfDay(v.tod)
	case KindFunction:
		return fmt.Sprintf("%T", v.fn)
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "∞"
	case math.IsInf(f, -1):
		return "-∞"
	}
	// message.Printer keeps per-call state, so one is built per call.
	p := message.NewPrinter(language.English)
	return p.Sprint(number.Decimal(f, number.MaxFractionDigits(3)))
}

func formatDate(dt DataType, t time.Time) string {
	if dt == TypeDate || (dt != TypeDateTime && IsDateOnly(t)) {
		return t.Format(dateLayout)
	}
	return t.Format(dateTimeLayout)
}

// formatTimeOfDay renders HH:mm, adding seconds when seconds or milliseconds
// are nonzero and milliseconds when they are nonzero.
func formatTimeOfDay(t TimeOfDay) string {
	s := fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
	if t.Second() != 0 || t.Millisecond() != 0 {
		s += fmt.Sprintf(":%02d", t.Second())
	}
	if t.Millisecond() != 0 {
		s += fmt.Sprintf(".%03d", t.Millisecond())
	}
	return s
}
