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
	"testing"
	"time"

	"github.com/intelsdi-x/caliper/pkg/measurement"
	"github.com/intelsdi-x/caliper/pkg/protocol"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	micro     = protocol.MethodModel{Name: "Fib", Params: []string{"int"}, Exported: true}
	macro     = protocol.MethodModel{Name: "Build", Exported: true}
	arbitrary = protocol.MethodModel{Name: "Throughput", Returns: []string{"float64"}, Exported: true}
	hidden    = protocol.MethodModel{Name: "hidden", Params: []string{"int"}}
)

func perRep(nanos float64, reps float64) protocol.Measurement {
	return protocol.Measurement{
		Value:  protocol.Value{Magnitude: nanos * reps, Unit: protocol.NanosecondsUnit},
		Weight: reps,
	}
}

func TestRuntimeInstrument(t *testing.T) {
	Convey("While using runtime instrument", t, func() {
		runtime := Runtime{}
		So(runtime.Policy(), ShouldEqual, PARALLEL)

		Convey("Micro and macro signatures are accepted with default options", func() {
			m, err := runtime.CreateInstrumentedMethod(micro, nil)
			So(err, ShouldBeNil)
			So(m.Options[OptionMeasurements], ShouldEqual, "9")
			So(runtime.TimeLimit(m), ShouldEqual, 5*time.Minute)
			So(m.Policy(), ShouldEqual, PARALLEL)

			_, err = runtime.CreateInstrumentedMethod(macro, nil)
			So(err, ShouldBeNil)
		})

		Convey("Invalid bindings are rejected", func() {
			_, err := runtime.CreateInstrumentedMethod(hidden, nil)
			So(err, ShouldNotBeNil)
			_, err = runtime.CreateInstrumentedMethod(arbitrary, nil)
			So(err, ShouldNotBeNil)
			_, err = runtime.CreateInstrumentedMethod(
				protocol.MethodModel{Name: "Two", Params: []string{"int", "int"}, Exported: true}, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("Invalid options are rejected", func() {
			_, err := runtime.CreateInstrumentedMethod(micro, map[string]string{"bogus": "1"})
			So(IsInvalidOption(err), ShouldBeTrue)
			_, err = runtime.CreateInstrumentedMethod(micro, map[string]string{OptionMeasurements: "0"})
			So(IsInvalidOption(err), ShouldBeTrue)
			_, err = runtime.CreateInstrumentedMethod(micro, map[string]string{OptionWarmup: "soon"})
			So(IsInvalidOption(err), ShouldBeTrue)
		})

		Convey("Micro gets a strict collector and macro a lenient one", func() {
			options := map[string]string{OptionWarmup: "0s", OptionMeasurements: "1"}
			m, err := runtime.CreateInstrumentedMethod(micro, options)
			So(err, ShouldBeNil)
			gc := protocol.RuntimeEvent{Type: protocol.EventGC}

			strict := runtime.NewCollector(m)
			So(strict, ShouldHaveSameTypeAs, &measurement.RepBased{})
			strict.HandleMessage(protocol.StartMeasurement{})
			strict.HandleMessage(gc)
			strict.HandleMessage(protocol.StopMeasurement{Measurements: []protocol.Measurement{perRep(10, 1)}})
			So(strict.Measurements(), ShouldBeEmpty)

			m, err = runtime.CreateInstrumentedMethod(macro, options)
			So(err, ShouldBeNil)
			lenient := runtime.NewCollector(m)
			lenient.HandleMessage(protocol.StartMeasurement{})
			lenient.HandleMessage(gc)
			lenient.HandleMessage(protocol.StopMeasurement{Measurements: []protocol.Measurement{perRep(10, 1)}})
			So(lenient.Measurements(), ShouldHaveLength, 1)
			So(lenient.IsDoneCollecting(), ShouldBeTrue)
		})

		Convey("Granularity suggestion is made only when requested", func() {
			slow := [][]protocol.Measurement{{perRep(float64(time.Hour), 10)}}

			m, _ := runtime.CreateInstrumentedMethod(micro, nil)
			So(runtime.ValidateTrialResults(m, slow), ShouldBeEmpty)

			m, _ = runtime.CreateInstrumentedMethod(micro, map[string]string{OptionSuggestGranularity: "true"})
			So(runtime.ValidateTrialResults(m, slow), ShouldHaveLength, 1)

			Convey("And not for benchmarks close to the timer resolution", func() {
				fast := [][]protocol.Measurement{{perRep(0.001, 1000)}, {perRep(float64(time.Hour), 1)}}
				So(runtime.ValidateTrialResults(m, fast), ShouldBeEmpty)
			})
		})
	})
}

func TestArbitraryInstrument(t *testing.T) {
	Convey("While using arbitrary instrument", t, func() {
		a := Arbitrary{}
		So(a.Policy(), ShouldEqual, SERIAL)

		m, err := a.CreateInstrumentedMethod(arbitrary, map[string]string{OptionUnit: "ops"})
		So(err, ShouldBeNil)
		So(a.TimeLimit(m), ShouldEqual, time.Minute)
		So(a.NewCollector(m), ShouldHaveSameTypeAs, &measurement.SingleShot{})
		So(a.ValidateTrialResults(m, nil), ShouldBeEmpty)

		Convey("Only methods returning float64 are accepted", func() {
			_, err := a.CreateInstrumentedMethod(micro, nil)
			So(err, ShouldNotBeNil)
			_, err = a.CreateInstrumentedMethod(macro, nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestInstrumentedMethodKey(t *testing.T) {
	Convey("Separately built instrumented methods have equal keys", t, func() {
		first, _ := Runtime{}.CreateInstrumentedMethod(micro, map[string]string{OptionWarmup: "1s", OptionMeasurements: "3"})
		second, _ := Runtime{}.CreateInstrumentedMethod(micro, map[string]string{OptionMeasurements: "3", OptionWarmup: "1s"})
		So(first.Key(), ShouldEqual, second.Key())

		other, _ := Runtime{}.CreateInstrumentedMethod(micro, map[string]string{OptionMeasurements: "4"})
		So(first.Key(), ShouldNotEqual, other.Key())

		Convey("Option values holding separators do not collide", func() {
			joined := InstrumentedMethod{Method: micro, Instrument: Runtime{}, Options: map[string]string{"a": "1,b=2"}}
			split := InstrumentedMethod{Method: micro, Instrument: Runtime{}, Options: map[string]string{"a": "1", "b": "2"}}
			So(joined.Key(), ShouldNotEqual, split.Key())
		})
	})
}

func TestInstrumentAll(t *testing.T) {
	Convey("While instrumenting all methods", t, func() {
		instruments := []Instrument{Runtime{}, Arbitrary{}}

		Convey("Each method is bound to the instruments accepting it", func() {
			methods, err := InstrumentAll([]protocol.MethodModel{micro, macro, arbitrary, hidden}, instruments, nil)
			So(err, ShouldBeNil)
			So(methods, ShouldHaveLength, 3)
			So(methods[2].Instrument.Name(), ShouldEqual, ArbitraryName)
		})

		Convey("Invalid option fails the whole binding", func() {
			_, err := InstrumentAll([]protocol.MethodModel{micro}, instruments,
				map[string]map[string]string{RuntimeName: {"bogus": "x"}})
			So(IsInvalidOption(err), ShouldBeTrue)
		})

		Convey("Nothing to measure is an error", func() {
			_, err := InstrumentAll([]protocol.MethodModel{hidden}, instruments, nil)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Instruments are found by name", t, func() {
		i, err := ByName("runtime")
		So(err, ShouldBeNil)
		So(i.Name(), ShouldEqual, RuntimeName)
		_, err = ByName("allocation")
		So(err, ShouldNotBeNil)
		So(Names(), ShouldResemble, []string{ArbitraryName, RuntimeName})
	})

	Convey("Timer granularity is positive and stable", t, func() {
		So(Granularity(), ShouldBeGreaterThan, 0)
		So(Granularity(), ShouldEqual, Granularity())
	})
}
