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

package script

import (
	"sync"

	"github.com/magpierre/tabula/datatable"
)

// Resolver is a datatable.CalcResolver that compiles scripted descriptors
// and falls back to the predefined calculations. Compiled scripts are
// shared between views by source text.
type Resolver struct {
	mu       sync.Mutex
	compiled map[string]*Calc
}

// NewResolver returns an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{compiled: make(map[string]*Calc)}
}

// Resolve turns d into a calculation.
func (r *Resolver) Resolve(d datatable.CalcDescriptor) (datatable.Calculation, error) {
	if d.Script == "" {
		return datatable.ResolveNamedCalc(d)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.compiled[d.Script]; ok {
		return c, nil
	}
	c, err := Compile(d.Script)
	if err != nil {
		return nil, err
	}
	r.compiled[d.Script] = c
	return c, nil
}
