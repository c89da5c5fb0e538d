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

package filter

import (
	"fmt"
	"strings"

	"github.com/magpierre/tabula/datatable"
)

// LogicOp joins the results of two filters.
type LogicOp int

const (
	// LogicAND requires both sides to match.
	LogicAND LogicOp = iota
	// LogicOR requires either side to match.
	LogicOR
)

// String returns the query keyword of op.
func (op LogicOp) String() string {
	switch op {
	case LogicAND:
		return "AND"
	case LogicOR:
		return "OR"
	default:
		return fmt.Sprintf("LogicOp(%d)", int(op))
	}
}

func parseLogicOp(word string) (LogicOp, bool) {
	switch strings.ToUpper(word) {
	case "AND":
		return LogicAND, true
	case "OR":
		return LogicOR, true
	}
	return LogicAND, false
}

// decisive is the single result that settles op without looking further.
func (op LogicOp) decisive() (bool, error) {
	switch op {
	case LogicAND:
		return false, nil
	case LogicOR:
		return true, nil
	}
	return false, fmt.Errorf("%w: unknown logic operator %d", datatable.ErrInvalidFilter, int(op))
}

func (op LogicOp) combine(a, b bool) bool {
	if op == LogicOR {
		return a || b
	}
	return a && b
}

// CompositeFilter matches a row when all (LogicAND) or any (LogicOR) of its
// Filters match. Without Filters every row matches.
type CompositeFilter struct {
	Filters []Filter
	Logic   LogicOp
}

// All matches rows accepted by every filter in fs.
func All(fs ...Filter) *CompositeFilter {
	return &CompositeFilter{Filters: fs, Logic: LogicAND}
}

// Any matches rows accepted by at least one filter in fs.
func Any(fs ...Filter) *CompositeFilter {
	return &CompositeFilter{Filters: fs, Logic: LogicOR}
}

// Evaluate implements Filter, stopping at the first deciding result.
func (f *CompositeFilter) Evaluate(ds datatable.DataSource, row int) (bool, error) {
	if len(f.Filters) == 0 {
		return true, nil
	}
	stop, err := f.Logic.decisive()
	if err != nil {
		return false, err
	}
	for _, sub := range f.Filters {
		ok, err := sub.Evaluate(ds, row)
		if err != nil {
			return false, err
		}
		if ok == stop {
			return stop, nil
		}
	}
	return !stop, nil
}

// Description implements Filter.
func (f *CompositeFilter) Description() string {
	if len(f.Filters) == 0 {
		return "all rows"
	}
	parts := make([]string, len(f.Filters))
	for i, sub := range f.Filters {
		parts[i] = sub.Description()
	}
	return "(" + strings.Join(parts, " "+f.Logic.String()+" ") + ")"
}

// Not inverts a filter.
type Not struct {
	Filter Filter
}

// Evaluate implements Filter.
func (n Not) Evaluate(ds datatable.DataSource, row int) (bool, error) {
	ok, err := n.Filter.Evaluate(ds, row)
	return !ok && err == nil, err
}

// Description implements Filter.
func (n Not) Description() string {
	return "NOT " + n.Filter.Description()
}
