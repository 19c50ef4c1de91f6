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

package measurement

import (
	"testing"
	"time"

	"github.com/intelsdi-x/caliper/pkg/failure"
	"github.com/intelsdi-x/caliper/pkg/protocol"
	. "github.com/smartystreets/goconvey/convey"
)

func nanos(magnitude float64) protocol.StopMeasurement {
	return protocol.StopMeasurement{Measurements: []protocol.Measurement{{
		Value:       protocol.Value{Magnitude: magnitude, Unit: protocol.NanosecondsUnit},
		Weight:      1,
		Description: "runtime",
	}}}
}

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func measure(c Collector, stop protocol.StopMeasurement, events ...protocol.RuntimeEvent) error {
	if err := c.HandleMessage(protocol.StartMeasurement{}); err != nil {
		return err
	}
	for _, event := range events {
		if err := c.HandleMessage(event); err != nil {
			return err
		}
	}
	return c.HandleMessage(stop)
}

func TestRepBased(t *testing.T) {
	gc := protocol.RuntimeEvent{Type: protocol.EventGC, Details: "gc cycle"}

	Convey("While using rep based collector", t, func() {
		clock := &fakeClock{now: time.Unix(0, 0)}
		newCollector := func(strict bool) *RepBased {
			return NewRepBased(RepBasedConfig{
				Strict:             strict,
				TargetWarmup:       100 * time.Nanosecond,
				MaxWarmupWallTime:  time.Minute,
				TargetMeasurements: 3,
				Clock:              clock.Now,
			})
		}

		Convey("Warmup completes once cumulative time reaches the target", func() {
			c := newCollector(true)
			So(c.IsWarmupComplete(), ShouldBeFalse)
			So(measure(c, nanos(60)), ShouldBeNil)
			So(c.IsWarmupComplete(), ShouldBeFalse)
			So(measure(c, nanos(40)), ShouldBeNil)
			So(c.IsWarmupComplete(), ShouldBeTrue)

			Convey("And warmup measurements are discarded", func() {
				So(c.Measurements(), ShouldBeEmpty)
				So(c.Messages(), ShouldBeEmpty)
			})

			Convey("And collection is done exactly at the target count", func() {
				So(measure(c, nanos(10)), ShouldBeNil)
				So(c.IsDoneCollecting(), ShouldBeFalse)
				So(measure(c, nanos(11)), ShouldBeNil)
				So(c.IsDoneCollecting(), ShouldBeFalse)
				So(measure(c, nanos(12)), ShouldBeNil)
				So(c.IsDoneCollecting(), ShouldBeTrue)
				So(c.Measurements(), ShouldHaveLength, 3)
				So(c.Messages(), ShouldBeEmpty)
			})

			Convey("Strict collector discards a measurement disturbed by GC", func() {
				So(measure(c, nanos(10)), ShouldBeNil)
				So(measure(c, nanos(10), gc), ShouldBeNil)
				So(c.Measurements(), ShouldHaveLength, 1)
				So(c.Messages(), ShouldHaveLength, 1)
				So(c.GCEvents(), ShouldEqual, 1)
				So(c.Discarded(), ShouldEqual, 1)

				Convey("And only that one", func() {
					So(measure(c, nanos(10)), ShouldBeNil)
					So(c.Measurements(), ShouldHaveLength, 2)
				})
			})
		})

		Convey("Non strict collector keeps a disturbed measurement with a warning", func() {
			c := newCollector(false)
			So(measure(c, nanos(100)), ShouldBeNil)
			So(measure(c, nanos(10), protocol.RuntimeEvent{Type: protocol.EventRecompile}), ShouldBeNil)
			So(c.Measurements(), ShouldHaveLength, 1)
			So(c.Messages(), ShouldHaveLength, 1)
			So(c.Messages()[0], ShouldStartWith, "WARNING")
			So(c.RecompileEvents(), ShouldEqual, 1)
		})

		Convey("Events during warmup or outside timing are only counted", func() {
			c := newCollector(true)
			So(measure(c, nanos(50), gc), ShouldBeNil)
			So(c.HandleMessage(gc), ShouldBeNil)
			So(c.GCEvents(), ShouldEqual, 2)
			So(c.Messages(), ShouldBeEmpty)
		})

		Convey("Wall clock cap ends warmup early with a single warning", func() {
			c := newCollector(true)
			So(measure(c, nanos(1)), ShouldBeNil)
			clock.now = clock.now.Add(2 * time.Minute)
			So(c.IsWarmupComplete(), ShouldBeTrue)
			So(measure(c, nanos(5)), ShouldBeNil)
			So(measure(c, nanos(6)), ShouldBeNil)
			So(c.Measurements(), ShouldHaveLength, 2)
			So(c.Messages(), ShouldHaveLength, 1)
			So(c.Messages()[0], ShouldContainSubstring, "warmup was cut short")
		})

		Convey("Sequence errors are protocol violations", func() {
			c := newCollector(true)
			So(failure.IsProtocolViolation(c.HandleMessage(nanos(1))), ShouldBeTrue)
			So(c.HandleMessage(protocol.StartMeasurement{}), ShouldBeNil)
			So(failure.IsProtocolViolation(c.HandleMessage(protocol.StartMeasurement{})), ShouldBeTrue)
		})

		Convey("Unit mismatch is a protocol violation", func() {
			c := newCollector(true)
			stop := nanos(1)
			stop.Measurements[0].Value.Unit = "ms"
			So(failure.IsProtocolViolation(measure(c, stop)), ShouldBeTrue)
		})

		Convey("Unexpected message is a protocol violation", func() {
			c := newCollector(true)
			So(failure.IsProtocolViolation(c.HandleMessage(protocol.ModelRequest{})), ShouldBeTrue)
		})
	})
}

func TestSingleShot(t *testing.T) {
	Convey("While using single shot collector", t, func() {
		c := NewSingleShot()
		So(c.IsWarmupComplete(), ShouldBeTrue)
		So(c.IsDoneCollecting(), ShouldBeFalse)

		Convey("One stop message completes collection", func() {
			value := protocol.StopMeasurement{Measurements: []protocol.Measurement{{
				Value:  protocol.Value{Magnitude: 42, Unit: "widgets"},
				Weight: 1,
			}}}
			So(measure(c, value), ShouldBeNil)
			So(c.IsDoneCollecting(), ShouldBeTrue)
			So(c.Measurements(), ShouldHaveLength, 1)
			So(c.Messages(), ShouldBeEmpty)

			Convey("And a second one violates the protocol", func() {
				So(failure.IsProtocolViolation(c.HandleMessage(value)), ShouldBeTrue)
			})
		})

		Convey("Stop message with several measurements violates the protocol", func() {
			stop := protocol.StopMeasurement{Measurements: append(nanos(1).Measurements, nanos(2).Measurements...)}
			So(failure.IsProtocolViolation(c.HandleMessage(stop)), ShouldBeTrue)
		})
	})
}
