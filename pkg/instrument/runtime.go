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
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/intelsdi-x/caliper/pkg/measurement"
	"github.com/intelsdi-x/caliper/pkg/protocol"
	"github.com/pkg/errors"
)

// RuntimeName is the name of the wall time instrument.
const RuntimeName = "runtime"

// Options of the runtime instrument.
const (
	OptionWarmup             = "warmup"
	OptionMaxWarmupWallTime  = "maxWarmupWallTime"
	OptionMeasurements       = "measurements"
	OptionTimingInterval     = "timingInterval"
	OptionGCBeforeEach       = "gcBeforeEach"
	OptionSuggestGranularity = "suggestGranularity"
)

// granularityFactor is how many timer ticks a measurement needs before high
// resolution timing stops mattering.
const granularityFactor = 1000

// Signatures accepted by the runtime instrument.
var (
	microSignature = []string{"int"}
	macroSignature = []string{}
)

// Runtime measures wall time of repeated invocations. Methods taking a
// repetition count are microbenchmarks measured strictly. Methods without
// arguments are macrobenchmarks invoked once per measurement.
type Runtime struct{}

// Name implements Instrument.
func (Runtime) Name() string { return RuntimeName }

// Policy implements Instrument.
func (Runtime) Policy() Policy { return PARALLEL }

// DefaultOptions implements Instrument.
func (Runtime) DefaultOptions() map[string]string {
	return map[string]string{
		OptionWarmup:             "10s",
		OptionMaxWarmupWallTime:  "10m",
		OptionMeasurements:       "9",
		OptionTimingInterval:     "500ms",
		OptionGCBeforeEach:       "true",
		OptionSuggestGranularity: "false",
		OptionTimeLimit:          "5m",
	}
}

// IsMicro reports whether method takes a repetition count.
func IsMicro(method protocol.MethodModel) bool {
	return sameTypes(method.Params, microSignature)
}

// CreateInstrumentedMethod implements Instrument.
func (r Runtime) CreateInstrumentedMethod(method protocol.MethodModel, options map[string]string) (InstrumentedMethod, error) {
	if err := checkExported(method); err != nil {
		return InstrumentedMethod{}, err
	}
	if !sameTypes(method.Params, microSignature) && !sameTypes(method.Params, macroSignature) {
		return InstrumentedMethod{}, errors.Errorf("%s: runtime benchmarks take (int) or no arguments, got (%s)",
			method.Name, strings.Join(method.Params, ", "))
	}
	if len(method.Returns) != 0 {
		return InstrumentedMethod{}, errors.Errorf("%s: runtime benchmarks must not return values", method.Name)
	}

	merged, err := mergeOptions(RuntimeName, r.DefaultOptions(), options)
	if err != nil {
		return InstrumentedMethod{}, err
	}
	if _, err := readRuntimeOptions(merged); err != nil {
		return InstrumentedMethod{}, err
	}
	return InstrumentedMethod{Method: method, Instrument: r, Options: merged}, nil
}

type runtimeOptions struct {
	warmup             time.Duration
	maxWarmupWallTime  time.Duration
	measurements       int
	timingInterval     time.Duration
	gcBeforeEach       bool
	suggestGranularity bool
	timeLimit          time.Duration
}

func readRuntimeOptions(options map[string]string) (runtimeOptions, error) {
	r := &optionReader{instrument: RuntimeName, options: options}
	parsed := runtimeOptions{
		warmup:             r.duration(OptionWarmup),
		maxWarmupWallTime:  r.duration(OptionMaxWarmupWallTime),
		measurements:       r.positiveInt(OptionMeasurements),
		timingInterval:     r.duration(OptionTimingInterval),
		gcBeforeEach:       r.boolean(OptionGCBeforeEach),
		suggestGranularity: r.boolean(OptionSuggestGranularity),
		timeLimit:          r.duration(OptionTimeLimit),
	}
	return parsed, r.err
}

// NewCollector implements Instrument.
func (Runtime) NewCollector(method InstrumentedMethod) measurement.Collector {
	// Options were validated when the method was instrumented.
	options, _ := readRuntimeOptions(method.Options)
	return measurement.NewRepBased(measurement.RepBasedConfig{
		Strict:             IsMicro(method.Method),
		TargetWarmup:       options.warmup,
		MaxWarmupWallTime:  options.maxWarmupWallTime,
		TargetMeasurements: options.measurements,
	})
}

// TimeLimit implements Instrument.
func (Runtime) TimeLimit(method InstrumentedMethod) time.Duration {
	options, _ := readRuntimeOptions(method.Options)
	return options.timeLimit
}

// ValidateTrialResults implements Instrument. When suggestGranularity is set
// and even the fastest repetition took far longer than a timer tick, the
// macrobenchmark form is suggested.
func (Runtime) ValidateTrialResults(method InstrumentedMethod, trials [][]protocol.Measurement) []string {
	options, _ := readRuntimeOptions(method.Options)
	if !options.suggestGranularity || !IsMicro(method.Method) {
		return nil
	}

	fastest := math.Inf(1)
	for _, measurements := range trials {
		for _, m := range measurements {
			fastest = math.Min(fastest, m.PerRep())
		}
	}
	if math.IsInf(fastest, 1) {
		return nil
	}

	granularity := Granularity()
	threshold := granularity * granularityFactor
	if time.Duration(fastest) <= threshold {
		return nil
	}
	return []string{fmt.Sprintf(
		"%s does not need high resolution timing: the timer granularity (%s) is below 0.1%% of the "+
			"fastest measured runtime (%s). Consider writing it as a macrobenchmark without the repetition count.",
		method.Method.Name, granularity, time.Duration(fastest))}
}

func checkExported(method protocol.MethodModel) error {
	if !method.Exported {
		return errors.Errorf("%s: benchmark methods must be exported", method.Name)
	}
	return nil
}

func sameTypes(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		if actual[i] != expected[i] {
			return false
		}
	}
	return true
}
