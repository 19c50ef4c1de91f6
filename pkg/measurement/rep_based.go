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
	"fmt"
	"time"

	"github.com/intelsdi-x/caliper/pkg/failure"
	"github.com/intelsdi-x/caliper/pkg/protocol"
	log "github.com/sirupsen/logrus"
)

// Clock returns current time. Tests replace it to control warmup wall time.
type Clock func() time.Time

// RepBasedConfig configures a RepBased collector.
type RepBasedConfig struct {
	// Strict invalidates measurements disturbed by runtime events. Otherwise
	// the event only yields a warning.
	Strict             bool
	TargetWarmup       time.Duration
	MaxWarmupWallTime  time.Duration
	TargetMeasurements int
	Clock              Clock
}

// RepBased collects nanosecond timings of repeated invocations. Measurements
// taken during warmup are discarded.
type RepBased struct {
	config RepBasedConfig
	start  time.Time

	measuring      bool
	elapsedWarmup  time.Duration
	invalidateNext bool
	truncateWarned bool

	gcEvents        int
	recompileEvents int
	discarded       int

	measurements []protocol.Measurement
	messages     []string
}

// NewRepBased returns a collector whose warmup wall time starts now.
func NewRepBased(config RepBasedConfig) *RepBased {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &RepBased{config: config, start: config.Clock()}
}

// HandleMessage implements Collector.
func (c *RepBased) HandleMessage(msg protocol.Message) error {
	switch m := msg.(type) {
	case protocol.StartMeasurement:
		if c.measuring {
			return failure.Violationf("measurement started twice")
		}
		c.measuring = true
		return nil

	case protocol.RuntimeEvent:
		c.handleEvent(m)
		return nil

	case protocol.StopMeasurement:
		if !c.measuring {
			return failure.Violationf("measurement stopped without being started")
		}
		err := c.handleStop(m)
		c.invalidateNext = false
		c.measuring = false
		return err
	}
	return failure.Violationf("unexpected %s message for rep based collector", msg.Kind())
}

func (c *RepBased) handleEvent(event protocol.RuntimeEvent) {
	switch event.Type {
	case protocol.EventGC:
		c.gcEvents++
	case protocol.EventRecompile:
		c.recompileEvents++
	}
	if !c.measuring || !c.IsWarmupComplete() {
		return
	}
	if c.config.Strict {
		c.invalidateNext = true
		c.messages = append(c.messages,
			fmt.Sprintf("%s event during timing, the measurement is discarded: %s", event.Type, event.Details))
		return
	}
	c.messages = append(c.messages,
		fmt.Sprintf("WARNING: %s event during timing, the measurement may be inaccurate: %s", event.Type, event.Details))
}

func (c *RepBased) handleStop(stop protocol.StopMeasurement) error {
	for _, m := range stop.Measurements {
		if m.Value.Unit != protocol.NanosecondsUnit {
			return failure.Violationf("expected measurement in %q, got %q", protocol.NanosecondsUnit, m.Value.Unit)
		}
	}

	if !c.IsWarmupComplete() {
		for _, m := range stop.Measurements {
			c.elapsedWarmup += time.Duration(m.Value.Magnitude)
		}
		return nil
	}

	if c.elapsedWarmup < c.config.TargetWarmup && !c.truncateWarned {
		c.truncateWarned = true
		c.messages = append(c.messages, fmt.Sprintf(
			"WARNING: warmup was cut short after %s of wall time with %s of %s target warmup elapsed",
			c.config.MaxWarmupWallTime, c.elapsedWarmup, c.config.TargetWarmup))
	}

	if c.invalidateNext {
		c.discarded += len(stop.Measurements)
		log.Debugf("measurement: discarding %d invalidated measurement(s)", len(stop.Measurements))
		return nil
	}
	c.measurements = append(c.measurements, stop.Measurements...)
	return nil
}

// IsWarmupComplete implements Collector. Warmup ends after the target time was
// spent in timed code or once the wall clock cap is exceeded.
func (c *RepBased) IsWarmupComplete() bool {
	return c.elapsedWarmup >= c.config.TargetWarmup ||
		c.config.Clock().Sub(c.start) > c.config.MaxWarmupWallTime
}

// IsDoneCollecting implements Collector.
func (c *RepBased) IsDoneCollecting() bool {
	return len(c.measurements) >= c.config.TargetMeasurements
}

// Measurements implements Collector.
func (c *RepBased) Measurements() []protocol.Measurement {
	return c.measurements
}

// Messages implements Collector.
func (c *RepBased) Messages() []string {
	return c.messages
}

// GCEvents returns the number of garbage collection events seen.
func (c *RepBased) GCEvents() int {
	return c.gcEvents
}

// RecompileEvents returns the number of recompilation events seen.
func (c *RepBased) RecompileEvents() int {
	return c.recompileEvents
}

// Discarded returns the number of measurements dropped after warmup.
func (c *RepBased) Discarded() int {
	return c.discarded
}
