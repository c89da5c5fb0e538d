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

// CompOp is a comparison operator in a query expression.
type CompOp int

// Comparison operators, written = != > < >= <= and ~ in a query.
const (
	OpEqual CompOp = iota
	OpNotEqual
	OpGreater
	OpLess
	OpGreaterEqual
	OpLessEqual
	// OpContains matches a case-insensitive substring of the formatted value.
	OpContains
)

var operators = []struct {
	op     CompOp
	symbol string
}{
	{OpGreaterEqual, ">="},
	{OpLessEqual, "<="},
	{OpNotEqual, "!="},
	{OpEqual, "="},
	{OpGreater, ">"},
	{OpLess, "<"},
	{OpContains, "~"},
}

// String returns the operator symbol.
func (op CompOp) String() string {
	for _, o := range operators {
		if o.op == op {
			return o.symbol
		}
	}
	return fmt.Sprintf("unknown(%d)", int(op))
}

// Expression is a single comparison such as `age >= 30`. An expression with
// an empty Column is a free text search across every column.
type Expression struct {
	Column   string
	Operator CompOp
	Value    string

	index   int
	dt      datatable.DataType
	literal datatable.Value
}

// Query is a sequence of expressions joined by AND/OR, evaluated left to
// right without precedence. An empty query matches every row.
type Query struct {
	Expressions []Expression
	LogicOps    []LogicOp
}

// ParseQuery parses text against the columns of ds. Column names match ids
// first, then labels, ignoring case. Comparison literals are parsed as the
// column's type.
func ParseQuery(ds datatable.DataSource, text string) (*Query, error) {
	if ds == nil {
		return nil, datatable.ErrNoDataSource
	}
	q := &Query{}
	if strings.TrimSpace(text) == "" {
		return q, nil
	}
	for _, part := range splitByLogicOps(text) {
		if op, ok := parseLogicOp(part.text); ok && part.isOperator {
			q.LogicOps = append(q.LogicOps, op)
			continue
		}
		expr, err := parseExpression(ds, part.text)
		if err != nil {
			return nil, err
		}
		q.Expressions = append(q.Expressions, expr)
	}
	if len(q.Expressions) == 0 || len(q.LogicOps) != len(q.Expressions)-1 {
		return nil, fmt.Errorf("%w: mismatched expressions and operators in %q", datatable.ErrInvalidFilter, text)
	}
	return q, nil
}

type queryPart struct {
	text       string
	isOperator bool
}

// splitByLogicOps splits on AND/OR keywords that stand alone as words
// outside quoted literals.
func splitByLogicOps(query string) []queryPart {
	var parts []queryPart
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			parts = append(parts, queryPart{text: s})
		}
		current.Reset()
	}
	var quote byte
	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			current.WriteByte(c)
			i++
			continue
		case (c == '"' || c == '\'') && opensLiteral(query, i):
			quote = c
			current.WriteByte(c)
			i++
			continue
		}
		matched := false
		for _, kw := range []string{"AND", "OR"} {
			end := i + len(kw)
			if end > len(query) || !strings.EqualFold(query[i:end], kw) {
				continue
			}
			if (i == 0 || isWhitespace(query[i-1])) && (end == len(query) || isWhitespace(query[end])) {
				flush()
				parts = append(parts, queryPart{text: kw, isOperator: true})
				i = end
				matched = true
				break
			}
		}
		if !matched {
			current.WriteByte(query[i])
			i++
		}
	}
	flush()
	return parts
}

// opensLiteral reports whether the quote at i starts a literal rather than
// sitting inside a word such as O'Brien.
func opensLiteral(query string, i int) bool {
	return i == 0 || isWhitespace(query[i-1]) || strings.IndexByte("=<>!~", query[i-1]) >= 0
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// parseExpression picks the leftmost operator, preferring the longer symbol
// at the same position.
func parseExpression(ds datatable.DataSource, text string) (Expression, error) {
	text = strings.TrimSpace(text)
	pos, sym := -1, -1
	for i, o := range operators {
		idx := strings.Index(text, o.symbol)
		if idx <= 0 {
			continue
		}
		if pos < 0 || idx < pos {
			pos, sym = idx, i
		}
	}
	if pos < 0 {
		return Expression{Operator: OpContains, Value: strings.Trim(text, "\"'"), index: -1}, nil
	}
	o := operators[sym]
	expr := Expression{
		Column:   strings.TrimSpace(text[:pos]),
		Operator: o.op,
		Value:    strings.Trim(strings.TrimSpace(text[pos+len(o.symbol):]), "\"'"),
	}
	expr.index = resolveColumn(ds, expr.Column)
	if expr.index < 0 {
		return expr, fmt.Errorf("%w: %s", datatable.ErrColumnNotFound, expr.Column)
	}
	dt, err := ds.ColumnType(expr.index)
	if err != nil {
		return expr, err
	}
	expr.dt = dt
	if expr.Operator != OpContains {
		lit, err := datatable.ParseValue(dt, expr.Value)
		if err != nil {
			return expr, fmt.Errorf("%w: column %s: %w", datatable.ErrInvalidFilter, expr.Column, err)
		}
		expr.literal = lit
	}
	return expr, nil
}

func resolveColumn(ds datatable.DataSource, name string) int {
	if idx := ds.ColumnIndex(datatable.ID(name)); idx >= 0 {
		return idx
	}
	for col := 0; col < ds.NumberOfColumns(); col++ {
		if id, _ := ds.ColumnID(col); strings.EqualFold(id, name) {
			return col
		}
	}
	for col := 0; col < ds.NumberOfColumns(); col++ {
		if label, _ := ds.ColumnLabel(col); strings.EqualFold(label, name) {
			return col
		}
	}
	return -1
}

// Evaluate implements Filter.
func (e Expression) Evaluate(ds datatable.DataSource, row int) (bool, error) {
	if e.Column == "" {
		term := strings.ToLower(e.Value)
		for col := 0; col < ds.NumberOfColumns(); col++ {
			f, err := ds.FormattedValue(row, col)
			if err != nil {
				return false, err
			}
			if strings.Contains(strings.ToLower(f), term) {
				return true, nil
			}
		}
		return false, nil
	}
	if e.Operator == OpContains {
		f, err := ds.FormattedValue(row, e.index)
		if err != nil {
			return false, err
		}
		return strings.Contains(strings.ToLower(f), strings.ToLower(e.Value)), nil
	}
	v, err := ds.Value(row, e.index)
	if err != nil {
		return false, err
	}
	var cmp int
	if e.dt == datatable.TypeString && !v.IsNull() && !e.literal.IsNull() {
		cmp = strings.Compare(strings.ToLower(v.StringValue()), strings.ToLower(e.literal.StringValue()))
	} else {
		cmp = datatable.CompareValues(e.dt, v, e.literal)
	}
	switch e.Operator {
	case OpEqual:
		return cmp == 0, nil
	case OpNotEqual:
		return cmp != 0, nil
	}
	if v.IsNull() || e.literal.IsNull() {
		return false, nil
	}
	switch e.Operator {
	case OpGreater:
		return cmp > 0, nil
	case OpLess:
		return cmp < 0, nil
	case OpGreaterEqual:
		return cmp >= 0, nil
	case OpLessEqual:
		return cmp <= 0, nil
	default:
		return false, fmt.Errorf("%w: unknown operator %d", datatable.ErrInvalidFilter, e.Operator)
	}
}

// Description implements Filter.
func (e Expression) Description() string {
	if e.Column == "" {
		return fmt.Sprintf("%q", e.Value)
	}
	return fmt.Sprintf("%s %s %q", e.Column, e.Operator, e.Value)
}

// Evaluate implements Filter.
func (q *Query) Evaluate(ds datatable.DataSource, row int) (bool, error) {
	if q == nil || len(q.Expressions) == 0 {
		return true, nil
	}
	result, err := q.Expressions[0].Evaluate(ds, row)
	if err != nil {
		return false, err
	}
	for i, op := range q.LogicOps {
		next, err := q.Expressions[i+1].Evaluate(ds, row)
		if err != nil {
			return false, err
		}
		result = op.combine(result, next)
	}
	return result, nil
}

// Description implements Filter.
func (q *Query) Description() string {
	if q == nil || len(q.Expressions) == 0 {
		return "all rows"
	}
	var b strings.Builder
	b.WriteString(q.Expressions[0].Description())
	for i, op := range q.LogicOps {
		fmt.Fprintf(&b, " %s %s", op, q.Expressions[i+1].Description())
	}
	return b.String()
}
