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

// Package worker is the benchmark side of the caliper protocol. A worker
// binary registers a Suite and calls Main, which serves exactly one request
// from the host and exits.
package worker

import (
	"reflect"
	"sort"
	"strconv"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/intelsdi-x/caliper/pkg/protocol"
	"github.com/pkg/errors"
)

// ErrSkip marks an experiment the benchmark cannot run in its configuration.
// Return it (or wrap it) from SetUp, or panic with it from a benchmark.
var ErrSkip = errors.New("benchmark skipped")

// Params are the parameter values of one experiment.
type Params map[string]string

// Get returns the value of name.
func (p Params) Get(name string) string {
	return p[name]
}

// Int returns the value of name as int.
func (p Params) Int(name string) (int, error) {
	value, err := strconv.Atoi(p[name])
	return value, errors.Wrapf(err, "parameter %s", name)
}

// Duration returns the value of name as time.Duration.
func (p Params) Duration(name string) (time.Duration, error) {
	value, err := time.ParseDuration(p[name])
	return value, errors.Wrapf(err, "parameter %s", name)
}

// Suite is a set of benchmarks sharing parameters and fixtures.
//
// Benchmarks maps names to functions. Runtime microbenchmarks are func(int)
// taking the number of repetitions, runtime macrobenchmarks are func() and
// arbitrary benchmarks are func() float64 returning the measured value. Names
// starting with a lower case letter are listed as unexported and rejected by
// the host.
type Suite struct {
	Name string
	// Params declares the default values of each parameter.
	Params map[string][]string
	// SetUp runs before every experiment, TearDown after it. Both are optional.
	SetUp      func(params Params) error
	TearDown   func(params Params) error
	Benchmarks map[string]interface{}
}

// Model returns the benchmark model of the suite with methods sorted by name.
func (s Suite) Model() protocol.BenchmarkModel {
	names := make([]string, 0, len(s.Benchmarks))
	for name := range s.Benchmarks {
		names = append(names, name)
	}
	sort.Strings(names)

	methods := make([]protocol.MethodModel, 0, len(names))
	for _, name := range names {
		methods = append(methods, methodModel(name, s.Benchmarks[name]))
	}
	return protocol.BenchmarkModel{Name: s.Name, Methods: methods, Parameters: s.Params}
}

func methodModel(name string, fn interface{}) protocol.MethodModel {
	first, _ := utf8.DecodeRuneInString(name)
	model := protocol.MethodModel{
		Name:     name,
		Params:   []string{},
		Returns:  []string{},
		Exported: unicode.IsUpper(first),
	}
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		// Not callable; the empty signature with an invalid return is rejected by every instrument.
		model.Returns = []string{"<not a function>"}
		return model
	}
	for i := 0; i < t.NumIn(); i++ {
		model.Params = append(model.Params, t.In(i).String())
	}
	for i := 0; i < t.NumOut(); i++ {
		model.Returns = append(model.Returns, t.Out(i).String())
	}
	return model
}

func (s Suite) setUp(params Params) error {
	if s.SetUp == nil {
		return nil
	}
	return callFixture(func() error { return s.SetUp(params) })
}

func (s Suite) tearDown(params Params) error {
	if s.TearDown == nil {
		return nil
	}
	return callFixture(func() error { return s.TearDown(params) })
}

func callFixture(fixture func() error) (err error) {
	defer recoverUser(&err)
	if err := fixture(); err != nil {
		if errors.Cause(err) == ErrSkip {
			return err
		}
		return &userError{err: err}
	}
	return nil
}

// benchmark returns the function registered under name.
func (s Suite) benchmark(name string) (interface{}, error) {
	fn, ok := s.Benchmarks[name]
	if !ok {
		return nil, &invalidBenchmark{message: "no benchmark named " + name}
	}
	return fn, nil
}
