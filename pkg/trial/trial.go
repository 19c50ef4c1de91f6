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

// Package trial runs a single timed execution of an experiment in its own
// worker process.
package trial

import (
	"fmt"
	"strings"
	"time"

	"github.com/intelsdi-x/caliper/pkg/executor"
	"github.com/intelsdi-x/caliper/pkg/experiment"
	"github.com/intelsdi-x/caliper/pkg/failure"
	"github.com/intelsdi-x/caliper/pkg/measurement"
	"github.com/intelsdi-x/caliper/pkg/metrics"
	"github.com/intelsdi-x/caliper/pkg/protocol"
	log "github.com/sirupsen/logrus"
)

// Result of one completed trial. It is built once, when the collector is done.
type Result struct {
	Experiment   experiment.Experiment
	TrialNumber  int
	Measurements []protocol.Measurement
	Messages     []string
}

// CommandFor returns the command which starts a worker for target. The unit
// of work itself is sent over the worker stream.
func CommandFor(target experiment.Target) executor.Command {
	return executor.Command{
		Executable: target.Executable,
		Args:       append([]string(nil), target.Args...),
		Env:        append([]string(nil), target.Env...),
	}
}

// Processor feeds worker messages of one trial into the instrument collector.
type Processor struct {
	experiment experiment.Experiment
	number     int
	collector  measurement.Collector
	timeLimit  time.Duration
	metrics    *metrics.Metrics
	result     *Result
}

// NewProcessor returns a processor for trial number of e. Metrics may be nil.
func NewProcessor(e experiment.Experiment, number int, m *metrics.Metrics) *Processor {
	return &Processor{
		experiment: e,
		number:     number,
		collector:  e.Method.Instrument.NewCollector(e.Method),
		timeLimit:  e.Method.Instrument.TimeLimit(e.Method),
		metrics:    m,
	}
}

// TimeLimit implements supervisor.Processor.
func (p *Processor) TimeLimit() time.Duration {
	return p.timeLimit
}

// HandleMessage implements supervisor.Processor.
func (p *Processor) HandleMessage(msg protocol.Message, writer protocol.Writer) (bool, error) {
	if p.result != nil {
		return true, nil
	}

	switch m := msg.(type) {
	case protocol.Failure:
		return false, &failure.TrialFailure{Type: m.Type, Message: failureText(m)}

	case protocol.RuntimeEvent:
		p.metrics.RuntimeEvent(string(m.Type))
		return false, p.collector.HandleMessage(m)

	case protocol.StartMeasurement:
		return false, p.collector.HandleMessage(m)

	case protocol.StopMeasurement:
		if err := p.collector.HandleMessage(m); err != nil {
			return false, err
		}
		done := p.collector.IsDoneCollecting()
		reply := protocol.ShouldContinue{Continue: !done, WarmupComplete: p.collector.IsWarmupComplete()}
		if err := writer.SendMessage(reply); err != nil {
			// The read loop reports a worker that went away.
			log.Debugf("trial: cannot reply to worker: %v", err)
		}
		if done {
			p.result = &Result{
				Experiment:   p.experiment,
				TrialNumber:  p.number,
				Measurements: p.collector.Measurements(),
				Messages:     p.collector.Messages(),
			}
			p.metrics.MeasurementsAccepted(p.experiment.Method.Instrument.Name(), len(p.result.Measurements))
		}
		return done, nil
	}
	return false, failure.Violationf("unexpected %s message during trial", msg.Kind())
}

// InterruptedMessage implements supervisor.Processor.
func (p *Processor) InterruptedMessage() string {
	return fmt.Sprintf("trial %d of %s was interrupted", p.number, p.experiment)
}

// PrematureExitMessage implements supervisor.Processor.
func (p *Processor) PrematureExitMessage() string {
	return fmt.Sprintf("worker exited before trial %d of %s finished, %d measurement(s) were collected",
		p.number, p.experiment, len(p.collector.Measurements()))
}

// TimeoutMessage implements supervisor.Processor.
func (p *Processor) TimeoutMessage() string {
	return fmt.Sprintf("trial %d of %s did not finish within %s; increase the %s option of the %s instrument if it needs more time",
		p.number, p.experiment, p.timeLimit, "timeLimit", p.experiment.Method.Instrument.Name())
}

// Result returns the trial result. It is nil until the processor is done.
func (p *Processor) Result() *Result {
	return p.result
}

func failureText(f protocol.Failure) string {
	if len(f.StackFrames) == 0 {
		return f.Message
	}
	return fmt.Sprintf("%s\n\t%s", f.Message, strings.Join(f.StackFrames, "\n\t"))
}
