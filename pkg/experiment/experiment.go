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

// Package experiment holds the run data model: targets, experiments and the
// selection of all experiments of a run.
package experiment

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/intelsdi-x/caliper/pkg/instrument"
	"github.com/intelsdi-x/caliper/pkg/protocol"
)

// Experiment is one fully specified benchmark configuration. Two experiments
// are the same when their Keys are equal, even if built separately.
type Experiment struct {
	Method instrument.InstrumentedMethod
	Params map[string]string
	Target Target
}

// Key identifies the Experiment by value over method, params and target.
func (e Experiment) Key() string {
	return e.Method.Key() + "|" + quotedPairs(e.Params) + "|" + e.Target.Key()
}

// Equal reports whether both experiments describe the same configuration.
func (e Experiment) Equal(other Experiment) bool {
	return e.Key() == other.Key()
}

func (e Experiment) String() string {
	return fmt.Sprintf("%s{%s} on %s with %s", e.Method.Method.Name, paramString(e.Params),
		e.Target.Name, e.Method.Instrument.Name())
}

// Spec returns the description of the experiment sent to workers.
func (e Experiment) Spec(id int) protocol.ExperimentSpec {
	return protocol.ExperimentSpec{
		ID:         id,
		Method:     e.Method.Method.Name,
		Instrument: e.Method.Instrument.Name(),
		Options:    e.Method.Options,
		Params:     e.Params,
	}
}

func paramString(params map[string]string) string {
	pairs := make([]string, 0, len(params))
	for _, name := range sortedNames(params) {
		pairs = append(pairs, name+"="+params[name])
	}
	return strings.Join(pairs, ",")
}

// quotedPairs is paramString with names and values quoted, so that values
// holding separators cannot collide.
func quotedPairs(params map[string]string) string {
	pairs := make([]string, 0, len(params))
	for _, name := range sortedNames(params) {
		pairs = append(pairs, strconv.Quote(name)+"="+strconv.Quote(params[name]))
	}
	return strings.Join(pairs, ",")
}

func sortedNames(params map[string]string) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
