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

package runner

import (
	"fmt"
	"strings"
	"sync"

	"github.com/intelsdi-x/caliper/pkg/experiment"
	"github.com/intelsdi-x/caliper/pkg/instrument"
	"github.com/intelsdi-x/caliper/pkg/protocol"
	"github.com/intelsdi-x/caliper/pkg/scheduler"
	"github.com/intelsdi-x/caliper/pkg/trial"
	"github.com/intelsdi-x/caliper/pkg/visualization"
	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"
	"gopkg.in/cheggaaa/pb.v1"
)

type experimentResults struct {
	experiment experiment.Experiment
	trials     int
	failed     int
	perRep     []float64
	unit       string
	messages   []string
}

type methodResults struct {
	method    instrument.InstrumentedMethod
	remaining int
	trials    [][]protocol.Measurement
}

// aggregator collects trial outcomes as the scheduler delivers them. Once all
// trials of an instrumented method are in, the instrument validates them.
type aggregator struct {
	mu          sync.Mutex
	order       []string
	experiments map[string]*experimentResults
	methods     map[string]*methodResults
	notes       []string

	// progress counts finished trials when set.
	progress *pb.ProgressBar
}

func newAggregator(experiments []experiment.Experiment, trialsPerScenario int) *aggregator {
	a := &aggregator{
		experiments: map[string]*experimentResults{},
		methods:     map[string]*methodResults{},
	}
	for _, e := range experiments {
		a.order = append(a.order, e.Key())
		a.experiments[e.Key()] = &experimentResults{experiment: e}

		method := a.methods[e.Method.Key()]
		if method == nil {
			method = &methodResults{method: e.Method}
			a.methods[e.Method.Key()] = method
		}
		method.remaining += trialsPerScenario
	}
	return a
}

// TrialSucceeded implements scheduler.Handler.
func (a *aggregator) TrialSucceeded(t scheduler.ScheduledTrial, result trial.Result) {
	a.mu.Lock()
	defer a.mu.Unlock()

	results := a.experiments[t.Experiment().Key()]
	results.trials++
	for _, m := range result.Measurements {
		results.perRep = append(results.perRep, m.PerRep())
		results.unit = m.Value.Unit
	}
	for _, message := range result.Messages {
		results.messages = append(results.messages, fmt.Sprintf("trial %d: %s", t.Number(), message))
	}
	log.Infof("%s: %d measurement(s)", t, len(result.Measurements))
	a.advance(t)

	a.trialDone(t, result.Measurements)
}

// TrialFailed implements scheduler.Handler.
func (a *aggregator) TrialFailed(t scheduler.ScheduledTrial, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	results := a.experiments[t.Experiment().Key()]
	results.trials++
	results.failed++
	message := strings.SplitN(err.Error(), "\n", 2)[0]
	results.messages = append(results.messages, fmt.Sprintf("trial %d failed: %s", t.Number(), message))
	log.Errorf("%s failed: %v", t, err)
	a.advance(t)

	a.trialDone(t, nil)
}

func (a *aggregator) advance(t scheduler.ScheduledTrial) {
	if a.progress == nil {
		return
	}
	a.progress.Prefix(fmt.Sprintf("%s ", t))
	a.progress.Increment()
}

func (a *aggregator) trialDone(t scheduler.ScheduledTrial, measurements []protocol.Measurement) {
	method := a.methods[t.Experiment().Method.Key()]
	if measurements != nil {
		method.trials = append(method.trials, measurements)
	}
	method.remaining--
	if method.remaining > 0 || len(method.trials) == 0 {
		return
	}
	instrumented := method.method
	for _, message := range instrumented.Instrument.ValidateTrialResults(instrumented, method.trials) {
		log.Warnf("%s: %s", instrumented, message)
		a.notes = append(a.notes, fmt.Sprintf("%s: %s", instrumented, message))
	}
}

// rows returns one summary row per experiment in selection order.
func (a *aggregator) rows() []visualization.Row {
	a.mu.Lock()
	defer a.mu.Unlock()

	rows := make([]visualization.Row, 0, len(a.order))
	for _, key := range a.order {
		results := a.experiments[key]
		// No measurements means no median.
		median, err := stats.Median(results.perRep)
		rows = append(rows, visualization.Row{
			Experiment:   results.experiment.String(),
			Trials:       results.trials,
			Failed:       results.failed,
			Measurements: len(results.perRep),
			Median:       median,
			HasMedian:    err == nil,
			Unit:         results.unit,
			Messages:     append([]string(nil), results.messages...),
		})
	}
	return rows
}

func (a *aggregator) validationNotes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.notes...)
}
