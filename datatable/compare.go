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

import "strings"

// CompareValues orders a and b as values of a column of type dt.
// Null sorts before any non-null value and two nulls are equal. Time of day
// values compare component-wise with missing trailing components taken as 0.
// Values of mismatched kinds are ordered by kind.
func CompareValues(dt DataType, a, b Value) int {
	if a.kind == KindNull || b.kind == KindNull {
		switch {
		case a.kind == b.kind:
			return 0
		case a.kind == KindNull:
			return -1
		default:
			return 1
		}
	}
	if dt == TypeFunction {
		return 0
	}
	if a.kind != b.kind {
		return compareInts(int(a.kind), int(b.kind))
	}
	return compareSameKind(a, b)
}

func compareSameKind(a, b Value) int {
	switch a.kind {
	case KindString:
		return strings.Compare(a.str, b.str)
	case KindNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		default:
			return 0
		}
	case KindBoolean:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	case KindDate:
		return a.t.Compare(b.t)
	case KindTimeOfDay:
		return compareTimeOfDay(a.tod, b.tod)
	default:
		return 0
	}
}

func compareTimeOfDay(a, b TimeOfDay) int {
	n := max(len(a), len(b), 4)
	for i := 0; i < n; i++ {
		if c := compareInts(a.Component(i), b.Component(i)); c != 0 {
			return c
		}
	}
	return 0
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
