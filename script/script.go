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

// Package script compiles Go source into view calculations using the yaegi
// interpreter.
//
// A script is either the body of
//
//	func Calc(row map[string]interface{}) interface{}
//
// or a complete file declaring package calc with such a function. The row
// map holds the values of the current row keyed by column id and by label,
// ids taking precedence. Time of day values are passed as []int.
package script

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/magpierre/tabula/datatable"
	"github.com/pkg/errors"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// ErrCompile is returned when a script cannot be interpreted.
var ErrCompile = errors.New("script compile error")

// ErrRuntime is returned when a compiled script fails while running.
var ErrRuntime = errors.New("script runtime error")

const bodyTemplate = `package calc

import (
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	_ = fmt.Sprint
	_ = math.Abs
	_ = strings.ToLower
	_ = time.Now
)

func Calc(row map[string]interface{}) interface{} {
%s
}
`

// Calc is a compiled script. It implements datatable.SerializableCalculation.
type Calc struct {
	source string
	out    bytes.Buffer

	mu sync.Mutex
	fn func(map[string]interface{}) interface{}
}

// Compile interprets src and returns the resulting calculation.
func Compile(src string) (*Calc, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errors.Wrap(ErrCompile, "empty script")
	}
	file := src
	if !strings.HasPrefix(strings.TrimSpace(src), "package ") {
		file = fmt.Sprintf(bodyTemplate, src)
	}

	c := &Calc{source: src}
	i := interp.New(interp.Options{Stdout: &c.out, Stderr: &c.out})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, errors.Wrap(err, "loading stdlib symbols")
	}
	if _, err := i.Eval(file); err != nil {
		return nil, errors.Wrapf(ErrCompile, "%v", err)
	}
	v, err := i.Eval("calc.Calc")
	if err != nil {
		return nil, errors.Wrapf(ErrCompile, "script must define calc.Calc: %v", err)
	}
	fn, ok := v.Interface().(func(map[string]interface{}) interface{})
	if !ok {
		return nil, errors.Wrapf(ErrCompile, "calc.Calc has type %s", v.Type())
	}
	c.fn = fn
	logger().V(1).Info("compiled script", "bytes", len(src))
	return c, nil
}

// Source returns the script text as given to Compile.
func (c *Calc) Source() string { return c.source }

// Output returns everything the script printed so far.
func (c *Calc) Output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}

// Calculate implements datatable.Calculation.
func (c *Calc) Calculate(src datatable.DataSource, row int, _ *datatable.ComputedColumn) (interface{}, error) {
	values, err := RowValues(src, row)
	if err != nil {
		return nil, err
	}
	return c.Call(values)
}

// Call runs the script on a prepared row map. Calls are serialized.
func (c *Calc) Call(row map[string]interface{}) (result interface{}, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrRuntime, "%v", r)
		}
	}()
	return c.fn(row), nil
}

// Descriptor implements datatable.SerializableCalculation.
func (c *Calc) Descriptor() datatable.CalcDescriptor {
	return datatable.CalcDescriptor{Script: c.source}
}

// RowValues returns the values of row keyed by column label and id.
func RowValues(src datatable.DataSource, row int) (map[string]interface{}, error) {
	n := src.NumberOfColumns()
	values := make([]interface{}, n)
	out := make(map[string]interface{}, 2*n)
	for col := 0; col < n; col++ {
		v, err := src.Value(row, col)
		if err != nil {
			return nil, err
		}
		values[col] = v.Interface()
		if tod, ok := values[col].(datatable.TimeOfDay); ok {
			values[col] = []int(tod)
		}
		if label, _ := src.ColumnLabel(col); label != "" {
			out[label] = values[col]
		}
	}
	for col := 0; col < n; col++ {
		if id, _ := src.ColumnID(col); id != "" {
			out[id] = values[col]
		}
	}
	return out, nil
}

func logger() logr.Logger {
	return datatable.Logger().WithName("script")
}
