// Copyright (c) 2017 Intel Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package experiment

import (
	"fmt"
	"sort"

	"github.com/intelsdi-x/caliper/pkg/instrument"
	"github.com/pkg/errors"
)

// Select returns every combination of method, target and parameter values.
// The order is deterministic: methods, then targets, then parameter
// combinations in lexical order of parameter names.
func Select(methods []instrument.InstrumentedMethod, targets []Target, params map[string][]string) ([]Experiment, error) {
	if len(methods) == 0 {
		return nil, errors.New("no instrumented methods to select from")
	}
	if len(targets) == 0 {
		return nil, errors.New("no targets to select from")
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([][]string, 0, len(names))
	for _, name := range names {
		values := unique(params[name])
		if len(values) == 0 {
			return nil, errors.Errorf("parameter %q has no values", name)
		}
		sets = append(sets, values)
	}

	combinations := make([]map[string]string, 0)
	for _, tuple := range cartesianProduct(sets) {
		combinations = append(combinations, zip(names, tuple))
	}

	seen := map[string]bool{}
	var experiments []Experiment
	for _, method := range methods {
		for _, target := range targets {
			for _, combination := range combinations {
				e := Experiment{Method: method, Params: combination, Target: target}
				if seen[e.Key()] {
					continue
				}
				seen[e.Key()] = true
				experiments = append(experiments, e)
			}
		}
	}
	return experiments, nil
}

// cartesianProduct returns all tuples taking one value from each set. The
// product of no sets is a single empty tuple.
func cartesianProduct(sets [][]string) [][]string {
	product := [][]string{{}}
	for _, set := range sets {
		next := make([][]string, 0, len(product)*len(set))
		for _, prefix := range product {
			for _, value := range set {
				tuple := make([]string, len(prefix), len(prefix)+1)
				copy(tuple, prefix)
				next = append(next, append(tuple, value))
			}
		}
		product = next
	}
	return product
}

func zip(names, values []string) map[string]string {
	if len(names) != len(values) {
		panic(fmt.Sprintf("parameter combination has %d values for %d names", len(values), len(names)))
	}
	combination := make(map[string]string, len(names))
	for i, name := range names {
		combination[name] = values[i]
	}
	return combination
}

func unique(values []string) []string {
	seen := map[string]bool{}
	result := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}
