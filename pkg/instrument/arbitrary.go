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

package instrument

import (
	"strings"
	"time"

	"github.com/intelsdi-x/caliper/pkg/measurement"
	"github.com/intelsdi-x/caliper/pkg/protocol"
	"github.com/pkg/errors"
)

// ArbitraryName is the name of the instrument for self measured benchmarks.
const ArbitraryName = "arbitrary"

// OptionUnit names the unit of values returned by arbitrary benchmarks.
const OptionUnit = "unit"

// Arbitrary records a single value returned by the benchmark itself. The
// value may depend on the whole machine, so its trials run serially.
type Arbitrary struct{}

// Name implements Instrument.
func (Arbitrary) Name() string { return ArbitraryName }

// Policy implements Instrument.
func (Arbitrary) Policy() Policy { return SERIAL }

// DefaultOptions implements Instrument.
func (Arbitrary) DefaultOptions() map[string]string {
	return map[string]string{
		OptionUnit:      "",
		OptionTimeLimit: "1m",
	}
}

// CreateInstrumentedMethod implements Instrument.
func (a Arbitrary) CreateInstrumentedMethod(method protocol.MethodModel, options map[string]string) (InstrumentedMethod, error) {
	if err := checkExported(method); err != nil {
		return InstrumentedMethod{}, err
	}
	if len(method.Params) != 0 {
		return InstrumentedMethod{}, errors.Errorf("%s: arbitrary benchmarks take no arguments, got (%s)",
			method.Name, strings.Join(method.Params, ", "))
	}
	if !sameTypes(method.Returns, []string{"float64"}) {
		return InstrumentedMethod{}, errors.Errorf("%s: arbitrary benchmarks must return float64, got (%s)",
			method.Name, strings.Join(method.Returns, ", "))
	}

	merged, err := mergeOptions(ArbitraryName, a.DefaultOptions(), options)
	if err != nil {
		return InstrumentedMethod{}, err
	}
	r := &optionReader{instrument: ArbitraryName, options: merged}
	r.duration(OptionTimeLimit)
	if r.err != nil {
		return InstrumentedMethod{}, r.err
	}
	return InstrumentedMethod{Method: method, Instrument: a, Options: merged}, nil
}

// NewCollector implements Instrument.
func (Arbitrary) NewCollector(InstrumentedMethod) measurement.Collector {
	return measurement.NewSingleShot()
}

// TimeLimit implements Instrument.
func (Arbitrary) TimeLimit(method InstrumentedMethod) time.Duration {
	limit, _ := time.ParseDuration(method.Options[OptionTimeLimit])
	return limit
}

// ValidateTrialResults implements Instrument.
func (Arbitrary) ValidateTrialResults(InstrumentedMethod, [][]protocol.Measurement) []string {
	return nil
}
