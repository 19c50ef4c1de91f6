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

package worker

import (
	"fmt"
	"math"
	"runtime"
	"runtime/metrics"
	"strconv"
	"time"

	"github.com/intelsdi-x/caliper/pkg/instrument"
	"github.com/intelsdi-x/caliper/pkg/protocol"
	"github.com/pkg/errors"
)

const defaultTimingInterval = 500 * time.Millisecond

// Repetition estimates grow at most maxRepsGrowth times between warmup measurements.
const (
	maxRepsGrowth = 10
	maxReps       = math.MaxInt32
)

const gcCyclesMetric = "/gc/cycles/total:gc-cycles"

// gcCounter reads the number of completed GC cycles.
type gcCounter struct {
	samples []metrics.Sample
}

func newGCCounter() *gcCounter {
	return &gcCounter{samples: []metrics.Sample{{Name: gcCyclesMetric}}}
}

func (c *gcCounter) cycles() uint64 {
	metrics.Read(c.samples)
	if c.samples[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return c.samples[0].Value.Uint64()
}

// loopOptions are the instrument options a worker acts on.
type loopOptions struct {
	timingInterval time.Duration
	gcBeforeEach   bool
	unit           string
}

func parseLoopOptions(options map[string]string) (loopOptions, error) {
	parsed := loopOptions{timingInterval: defaultTimingInterval, unit: options[instrument.OptionUnit]}
	if value, ok := options[instrument.OptionTimingInterval]; ok {
		interval, err := time.ParseDuration(value)
		if err != nil || interval <= 0 {
			return parsed, &invalidBenchmark{message: fmt.Sprintf("invalid %s %q", instrument.OptionTimingInterval, value)}
		}
		parsed.timingInterval = interval
	}
	if value, ok := options[instrument.OptionGCBeforeEach]; ok {
		gc, err := strconv.ParseBool(value)
		if err != nil {
			return parsed, &invalidBenchmark{message: fmt.Sprintf("invalid %s %q", instrument.OptionGCBeforeEach, value)}
		}
		parsed.gcBeforeEach = gc
	}
	return parsed, nil
}

// nextReps estimates the repetitions that make one measurement last about interval.
func nextReps(reps int, elapsed, interval time.Duration) int {
	limit := math.Min(float64(reps)*maxRepsGrowth, maxReps)
	if elapsed <= 0 {
		return int(limit)
	}
	estimate := math.Min(float64(reps)*float64(interval)/float64(elapsed), limit)
	if estimate < 1 {
		return 1
	}
	return int(estimate)
}

// timed runs fn between start and stop messages and returns the host answer.
// A GC cycle completed while fn ran is reported before the stop.
func (s *session) timed(fn func() error, measurement func(elapsed time.Duration) protocol.Measurement) (protocol.ShouldContinue, error) {
	before := s.gc.cycles()
	if err := s.send(protocol.StartMeasurement{}); err != nil {
		return protocol.ShouldContinue{}, err
	}
	start := time.Now()
	if err := fn(); err != nil {
		return protocol.ShouldContinue{}, err
	}
	elapsed := time.Since(start)
	if after := s.gc.cycles(); after > before {
		event := protocol.RuntimeEvent{Type: protocol.EventGC, Details: fmt.Sprintf("%d GC cycle(s)", after-before)}
		if err := s.send(event); err != nil {
			return protocol.ShouldContinue{}, err
		}
	}
	if err := s.send(protocol.StopMeasurement{Measurements: []protocol.Measurement{measurement(elapsed)}}); err != nil {
		return protocol.ShouldContinue{}, err
	}
	return s.awaitContinue()
}

func nanoseconds(elapsed time.Duration, reps int) protocol.Measurement {
	return protocol.Measurement{
		Value:       protocol.Value{Magnitude: float64(elapsed.Nanoseconds()), Unit: protocol.NanosecondsUnit},
		Weight:      float64(reps),
		Description: "runtime",
	}
}

// runMicro measures fn with a repetition count estimated during warmup and
// fixed once the host reports warmup complete.
func (s *session) runMicro(fn func(int), options loopOptions) error {
	reps := 1
	for {
		if options.gcBeforeEach {
			runtime.GC()
		}
		current := reps
		answer, err := s.timed(
			func() (err error) {
				defer recoverUser(&err)
				fn(current)
				return nil
			},
			func(elapsed time.Duration) protocol.Measurement {
				if !s.warmupComplete {
					reps = nextReps(current, elapsed, options.timingInterval)
				}
				return nanoseconds(elapsed, current)
			})
		if err != nil || !answer.Continue {
			return err
		}
		s.warmupComplete = answer.WarmupComplete
	}
}

// runMacro measures one invocation of fn per measurement.
func (s *session) runMacro(fn func(), options loopOptions) error {
	for {
		if options.gcBeforeEach {
			runtime.GC()
		}
		answer, err := s.timed(
			func() (err error) {
				defer recoverUser(&err)
				fn()
				return nil
			},
			func(elapsed time.Duration) protocol.Measurement {
				return nanoseconds(elapsed, 1)
			})
		if err != nil || !answer.Continue {
			return err
		}
	}
}

// runArbitrary reports the value returned by fn as the only measurement.
func (s *session) runArbitrary(fn func() float64, options loopOptions) error {
	var value float64
	for {
		answer, err := s.timed(
			func() (err error) {
				defer recoverUser(&err)
				value = fn()
				return nil
			},
			func(time.Duration) protocol.Measurement {
				return protocol.Measurement{
					Value:       protocol.Value{Magnitude: value, Unit: options.unit},
					Weight:      1,
					Description: "arbitrary",
				}
			})
		if err != nil || !answer.Continue {
			return err
		}
	}
}

// invoke calls a benchmark once, the way a dry run does.
func invoke(fn interface{}) (err error) {
	defer recoverUser(&err)
	switch f := fn.(type) {
	case func(int):
		f(1)
	case func():
		f()
	case func() float64:
		f()
	default:
		return &invalidBenchmark{message: fmt.Sprintf("benchmark of type %T cannot be invoked", fn)}
	}
	return nil
}

// measure runs one trial of fn with the loop of instrumentName.
func (s *session) measure(instrumentName string, fn interface{}, options loopOptions) error {
	switch instrumentName {
	case instrument.RuntimeName:
		switch f := fn.(type) {
		case func(int):
			return s.runMicro(f, options)
		case func():
			return s.runMacro(f, options)
		}
	case instrument.ArbitraryName:
		if f, ok := fn.(func() float64); ok {
			return s.runArbitrary(f, options)
		}
	default:
		return &invalidBenchmark{message: "unknown instrument " + instrumentName}
	}
	return &invalidBenchmark{message: fmt.Sprintf("benchmark of type %T cannot be measured with %s", fn, instrumentName)}
}

var errHostClosed = errors.New("host closed the stream before the trial was complete")
