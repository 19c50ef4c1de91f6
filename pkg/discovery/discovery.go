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

// Package discovery contains processors that ask a worker about its
// benchmarks and check experiments with a dry run before any trial starts.
package discovery

import (
	"fmt"
	"strings"
	"time"

	"github.com/intelsdi-x/caliper/pkg/failure"
	"github.com/intelsdi-x/caliper/pkg/protocol"
)

// DefaultTimeLimit bounds model discovery and dry runs.
const DefaultTimeLimit = 2 * time.Minute

// workerFailure turns a failure reported by a worker into a TrialFailure.
func workerFailure(f protocol.Failure) error {
	message := f.Message
	if len(f.StackFrames) > 0 {
		message = fmt.Sprintf("%s\n\t%s", message, strings.Join(f.StackFrames, "\n\t"))
	}
	return &failure.TrialFailure{Type: f.Type, Message: message}
}

// ModelProcessor waits for the benchmark model of a worker.
type ModelProcessor struct {
	timeLimit time.Duration
	model     *protocol.BenchmarkModel
}

// NewModelProcessor returns a ModelProcessor. Zero timeLimit means DefaultTimeLimit.
func NewModelProcessor(timeLimit time.Duration) *ModelProcessor {
	if timeLimit == 0 {
		timeLimit = DefaultTimeLimit
	}
	return &ModelProcessor{timeLimit: timeLimit}
}

// TimeLimit implements supervisor.Processor.
func (p *ModelProcessor) TimeLimit() time.Duration { return p.timeLimit }

// HandleMessage implements supervisor.Processor.
func (p *ModelProcessor) HandleMessage(msg protocol.Message, _ protocol.Writer) (bool, error) {
	switch m := msg.(type) {
	case protocol.BenchmarkModel:
		if p.model != nil {
			return false, failure.Violationf("benchmark model was sent twice")
		}
		p.model = &m
		return true, nil
	case protocol.Failure:
		return false, workerFailure(m)
	}
	return false, failure.Violationf("unexpected %s message during model discovery", msg.Kind())
}

// InterruptedMessage implements supervisor.Processor.
func (p *ModelProcessor) InterruptedMessage() string {
	return "benchmark discovery was interrupted"
}

// PrematureExitMessage implements supervisor.Processor.
func (p *ModelProcessor) PrematureExitMessage() string {
	return "worker exited before reporting its benchmarks"
}

// TimeoutMessage implements supervisor.Processor.
func (p *ModelProcessor) TimeoutMessage() string {
	return fmt.Sprintf("worker did not report its benchmarks within %s", p.timeLimit)
}

// Model returns the discovered model. It is nil until the processor is done.
func (p *ModelProcessor) Model() *protocol.BenchmarkModel {
	return p.model
}

// DryRunProcessor waits for the outcome of a dry run of a set of experiments.
type DryRunProcessor struct {
	timeLimit time.Duration
	requested map[int]bool
	result    *protocol.DryRunSuccess
}

// NewDryRunProcessor returns a processor for a dry run of the given
// experiment ids. Zero timeLimit means DefaultTimeLimit.
func NewDryRunProcessor(timeLimit time.Duration, ids []int) *DryRunProcessor {
	if timeLimit == 0 {
		timeLimit = DefaultTimeLimit
	}
	requested := map[int]bool{}
	for _, id := range ids {
		requested[id] = true
	}
	return &DryRunProcessor{timeLimit: timeLimit, requested: requested}
}

// TimeLimit implements supervisor.Processor.
func (p *DryRunProcessor) TimeLimit() time.Duration { return p.timeLimit }

// HandleMessage implements supervisor.Processor.
func (p *DryRunProcessor) HandleMessage(msg protocol.Message, _ protocol.Writer) (bool, error) {
	switch m := msg.(type) {
	case protocol.DryRunSuccess:
		if p.result != nil {
			return false, failure.Violationf("dry run result was sent twice")
		}
		for _, id := range append(append([]int(nil), m.IDs...), m.Skipped...) {
			if !p.requested[id] {
				return false, failure.Violationf("dry run reported experiment %d which was not requested", id)
			}
		}
		p.result = &m
		return true, nil
	case protocol.Failure:
		return false, workerFailure(m)
	}
	return false, failure.Violationf("unexpected %s message during dry run", msg.Kind())
}

// InterruptedMessage implements supervisor.Processor.
func (p *DryRunProcessor) InterruptedMessage() string {
	return "dry run was interrupted"
}

// PrematureExitMessage implements supervisor.Processor.
func (p *DryRunProcessor) PrematureExitMessage() string {
	return "worker exited during the dry run"
}

// TimeoutMessage implements supervisor.Processor.
func (p *DryRunProcessor) TimeoutMessage() string {
	return fmt.Sprintf("dry run did not finish within %s", p.timeLimit)
}

// Succeeded returns ids of experiments that passed the dry run.
func (p *DryRunProcessor) Succeeded() []int {
	if p.result == nil {
		return nil
	}
	return p.result.IDs
}

// Skipped returns ids of experiments the benchmark asked to skip.
func (p *DryRunProcessor) Skipped() []int {
	if p.result == nil {
		return nil
	}
	return p.result.Skipped
}
