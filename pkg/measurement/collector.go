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

// Package measurement holds collectors which decide, for one trial, which
// measurements reported by a worker are kept and when enough were gathered.
package measurement

import (
	"github.com/intelsdi-x/caliper/pkg/failure"
	"github.com/intelsdi-x/caliper/pkg/protocol"
)

// Collector accumulates measurements of one trial.
type Collector interface {
	// HandleMessage consumes start, stop and runtime event messages.
	// Contract violations are returned as failure.ProtocolViolation.
	HandleMessage(msg protocol.Message) error
	IsDoneCollecting() bool
	IsWarmupComplete() bool
	Measurements() []protocol.Measurement
	Messages() []string
}

// SingleShot expects exactly one stop message carrying exactly one
// measurement. It is used for benchmarks that return their measured value.
type SingleShot struct {
	measurements []protocol.Measurement
}

// NewSingleShot returns an empty SingleShot collector.
func NewSingleShot() *SingleShot {
	return &SingleShot{}
}

// HandleMessage implements Collector.
func (c *SingleShot) HandleMessage(msg protocol.Message) error {
	switch m := msg.(type) {
	case protocol.StartMeasurement, protocol.RuntimeEvent:
		return nil
	case protocol.StopMeasurement:
		if c.IsDoneCollecting() {
			return failure.Violationf("single shot measurement was already collected")
		}
		if len(m.Measurements) != 1 {
			return failure.Violationf("expected exactly one measurement, got %d", len(m.Measurements))
		}
		c.measurements = append(c.measurements, m.Measurements[0])
		return nil
	}
	return failure.Violationf("unexpected %s message for single shot collector", msg.Kind())
}

// IsDoneCollecting implements Collector.
func (c *SingleShot) IsDoneCollecting() bool {
	return len(c.measurements) > 0
}

// IsWarmupComplete implements Collector. There is no warmup.
func (c *SingleShot) IsWarmupComplete() bool {
	return true
}

// Measurements implements Collector.
func (c *SingleShot) Measurements() []protocol.Measurement {
	return c.measurements
}

// Messages implements Collector.
func (c *SingleShot) Messages() []string {
	return nil
}
