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

// Package instrument defines how benchmark methods are measured. An Instrument
// validates which methods it can measure, picks the collector for a trial and
// checks the results of all trials of a method.
package instrument

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/intelsdi-x/caliper/pkg/measurement"
	"github.com/intelsdi-x/caliper/pkg/protocol"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Policy tells whether trials of an instrument may overlap.
type Policy int

const (
	// PARALLEL trials may run concurrently up to the pool size.
	PARALLEL Policy = iota
	// SERIAL trials never share the machine with other trials.
	SERIAL
)

func (p Policy) String() string {
	switch p {
	case PARALLEL:
		return "PARALLEL"
	case SERIAL:
		return "SERIAL"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// Instrument measures benchmark methods.
type Instrument interface {
	Name() string
	Policy() Policy
	// DefaultOptions lists every option the instrument understands.
	DefaultOptions() map[string]string
	// CreateInstrumentedMethod binds method to the instrument. It fails when
	// the method signature cannot be measured or an option is invalid.
	CreateInstrumentedMethod(method protocol.MethodModel, options map[string]string) (InstrumentedMethod, error)
	// NewCollector returns a fresh collector for one trial of method.
	NewCollector(method InstrumentedMethod) measurement.Collector
	// TimeLimit is the time budget of one trial.
	TimeLimit(method InstrumentedMethod) time.Duration
	// ValidateTrialResults inspects measurements of all trials of method and
	// returns messages for the user.
	ValidateTrialResults(method InstrumentedMethod, trials [][]protocol.Measurement) []string
}

// InstrumentedMethod is a method bound to the instrument measuring it.
type InstrumentedMethod struct {
	Method     protocol.MethodModel
	Instrument Instrument
	Options    map[string]string
}

// Key identifies the instrumented method by value.
func (m InstrumentedMethod) Key() string {
	return fmt.Sprintf("%q/%q{%s}", m.Method.Name, m.instrumentName(), joinSorted(m.Options, strconv.Quote))
}

func (m InstrumentedMethod) String() string {
	return fmt.Sprintf("%s/%s{%s}", m.Method.Name, m.instrumentName(), joinSorted(m.Options, nil))
}

func (m InstrumentedMethod) instrumentName() string {
	if m.Instrument == nil {
		return ""
	}
	return m.Instrument.Name()
}

// Policy returns scheduling policy of the underlying instrument.
func (m InstrumentedMethod) Policy() Policy {
	return m.Instrument.Policy()
}

// joinSorted renders values as k=v pairs sorted by key, each side passed
// through quote when it is set.
func joinSorted(values map[string]string, quote func(string) string) string {
	if quote == nil {
		quote = func(s string) string { return s }
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, quote(k)+"="+quote(values[k]))
	}
	return strings.Join(pairs, ",")
}

var registry = map[string]Instrument{
	RuntimeName:   Runtime{},
	ArbitraryName: Arbitrary{},
}

// ByName returns a registered instrument.
func ByName(name string) (Instrument, error) {
	instrument, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("unknown instrument %q, available: %s", name, strings.Join(Names(), ", "))
	}
	return instrument, nil
}

// Names returns names of registered instruments in lexical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InstrumentAll binds every method to each instrument that can measure it.
// Methods rejected by all instruments are skipped with a warning. It fails
// when nothing can be measured.
func InstrumentAll(methods []protocol.MethodModel, instruments []Instrument,
	options map[string]map[string]string) ([]InstrumentedMethod, error) {
	var result []InstrumentedMethod
	for _, method := range methods {
		var reasons []string
		for _, instrument := range instruments {
			instrumented, err := instrument.CreateInstrumentedMethod(method, options[instrument.Name()])
			if err != nil {
				if IsInvalidOption(err) {
					return nil, err
				}
				reasons = append(reasons, err.Error())
				continue
			}
			result = append(result, instrumented)
		}
		if len(reasons) == len(instruments) {
			log.Warnf("instrument: method %q skipped: %s", method.Name, strings.Join(reasons, "; "))
		}
	}
	if len(result) == 0 {
		return nil, errors.Errorf("no benchmark method can be measured by instrument(s) %s",
			strings.Join(instrumentNames(instruments), ", "))
	}
	return result, nil
}

func instrumentNames(instruments []Instrument) []string {
	names := make([]string, 0, len(instruments))
	for _, instrument := range instruments {
		names = append(names, instrument.Name())
	}
	return names
}
