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

package protocol

import "fmt"

// Kind identifies the type of a message on the worker stream.
type Kind string

// Host to worker messages.
const (
	KindModelRequest   Kind = "model_request"
	KindDryRunRequest  Kind = "dry_run_request"
	KindTrialRequest   Kind = "trial_request"
	KindShouldContinue Kind = "should_continue"
)

// Worker to host messages.
const (
	KindStartMeasurement Kind = "start_measurement"
	KindStopMeasurement  Kind = "stop_measurement"
	KindRuntimeEvent     Kind = "runtime_event"
	KindFailure          Kind = "failure"
	KindBenchmarkModel   Kind = "benchmark_model"
	KindDryRunSuccess    Kind = "dry_run_success"
)

// Message is a single framed value exchanged with a worker.
type Message interface {
	Kind() Kind
}

// Writer sends messages to the other side of the stream.
type Writer interface {
	SendMessage(msg Message) error
}

// NanosecondsUnit is the only unit runtime measurements are expressed in.
const NanosecondsUnit = "ns"

// Value is a magnitude with unit.
type Value struct {
	Magnitude float64 `json:"magnitude"`
	Unit      string  `json:"unit"`
}

func (v Value) String() string {
	return fmt.Sprintf("%g%s", v.Magnitude, v.Unit)
}

// Measurement is a single value reported by a worker. Weight is the number of
// repetitions the value covers.
type Measurement struct {
	Value       Value   `json:"value"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
}

// PerRep returns the magnitude divided by weight.
func (m Measurement) PerRep() float64 {
	if m.Weight == 0 {
		return m.Value.Magnitude
	}
	return m.Value.Magnitude / m.Weight
}

// MethodModel describes the signature of one benchmark method found in a worker.
type MethodModel struct {
	Name     string   `json:"name"`
	Params   []string `json:"params"`
	Returns  []string `json:"returns"`
	Exported bool     `json:"exported"`
}

// ExperimentSpec identifies a unit of work for the worker.
type ExperimentSpec struct {
	ID         int               `json:"id"`
	Method     string            `json:"method"`
	Instrument string            `json:"instrument"`
	Options    map[string]string `json:"options,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// ModelRequest asks the worker for its benchmark model.
type ModelRequest struct{}

// Kind implements Message.
func (ModelRequest) Kind() Kind { return KindModelRequest }

// DryRunRequest asks the worker to set up and invoke each experiment once.
type DryRunRequest struct {
	Experiments []ExperimentSpec `json:"experiments"`
}

// Kind implements Message.
func (DryRunRequest) Kind() Kind { return KindDryRunRequest }

// TrialRequest asks the worker to run one trial of an experiment.
type TrialRequest struct {
	Experiment  ExperimentSpec `json:"experiment"`
	TrialNumber int            `json:"trial_number"`
}

// Kind implements Message.
func (TrialRequest) Kind() Kind { return KindTrialRequest }

// ShouldContinue answers each stop measurement message.
type ShouldContinue struct {
	Continue       bool `json:"continue"`
	WarmupComplete bool `json:"warmup_complete"`
}

// Kind implements Message.
func (ShouldContinue) Kind() Kind { return KindShouldContinue }

// StartMeasurement marks the beginning of a timed window.
type StartMeasurement struct{}

// Kind implements Message.
func (StartMeasurement) Kind() Kind { return KindStartMeasurement }

// StopMeasurement marks the end of a timed window.
type StopMeasurement struct {
	Measurements []Measurement `json:"measurements"`
}

// Kind implements Message.
func (StopMeasurement) Kind() Kind { return KindStopMeasurement }

// EventType is the kind of runtime interference.
type EventType string

// Runtime interference events.
const (
	EventGC        EventType = "gc"
	EventRecompile EventType = "recompile"
)

// RuntimeEvent reports interference by the runtime being measured.
type RuntimeEvent struct {
	Type    EventType `json:"type"`
	Details string    `json:"details,omitempty"`
}

// Kind implements Message.
func (RuntimeEvent) Kind() Kind { return KindRuntimeEvent }

// Failure types reported by workers.
const (
	FailureSkip             = "skip"
	FailureInvalidBenchmark = "invalid_benchmark"
	FailureUserCode         = "user_code"
	FailureInternal         = "internal"
)

// Failure reports an error raised inside the worker.
type Failure struct {
	Type        string   `json:"type"`
	Message     string   `json:"message"`
	StackFrames []string `json:"stack_frames,omitempty"`
}

// Kind implements Message.
func (Failure) Kind() Kind { return KindFailure }

// BenchmarkModel is the answer to ModelRequest.
type BenchmarkModel struct {
	Name       string              `json:"name"`
	Methods    []MethodModel       `json:"methods"`
	Parameters map[string][]string `json:"parameters,omitempty"`
}

// Kind implements Message.
func (BenchmarkModel) Kind() Kind { return KindBenchmarkModel }

// DryRunSuccess lists experiments that passed the dry run.
type DryRunSuccess struct {
	IDs     []int `json:"ids"`
	Skipped []int `json:"skipped,omitempty"`
}

// Kind implements Message.
func (DryRunSuccess) Kind() Kind { return KindDryRunSuccess }
