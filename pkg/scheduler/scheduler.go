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

// Package scheduler runs trials of a run on a bounded pool, honoring the
// scheduling policy of their instruments, and delivers outcomes in the order
// trials complete.
package scheduler

import (
	"context"
	"fmt"

	"github.com/intelsdi-x/caliper/pkg/experiment"
	"github.com/intelsdi-x/caliper/pkg/failure"
	"github.com/intelsdi-x/caliper/pkg/instrument"
	"github.com/intelsdi-x/caliper/pkg/trial"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ScheduledTrial is one trial of an experiment. It is immutable.
type ScheduledTrial struct {
	experiment experiment.Experiment
	number     int
	policy     instrument.Policy
	task       trial.Task
}

// NewScheduledTrial returns a trial numbered from 1.
func NewScheduledTrial(e experiment.Experiment, number int, policy instrument.Policy, task trial.Task) ScheduledTrial {
	return ScheduledTrial{experiment: e, number: number, policy: policy, task: task}
}

// Experiment returns the measured experiment.
func (t ScheduledTrial) Experiment() experiment.Experiment { return t.experiment }

// Number returns the 1-based trial number.
func (t ScheduledTrial) Number() int { return t.number }

// Policy returns the scheduling policy.
func (t ScheduledTrial) Policy() instrument.Policy { return t.policy }

// Run executes the trial.
func (t ScheduledTrial) Run(ctx context.Context) (trial.Result, error) {
	return t.task(ctx)
}

func (t ScheduledTrial) String() string {
	return fmt.Sprintf("trial %d of %s", t.number, t.experiment)
}

// TaskFactory returns the task of trial number for the experiment known to
// workers as experimentID.
type TaskFactory func(e experiment.Experiment, experimentID, number int) trial.Task

// CreateTrials returns trialsPerScenario trials of every experiment, all first
// trials before all second trials. The experiment id is its index.
func CreateTrials(experiments []experiment.Experiment, trialsPerScenario int, factory TaskFactory) ([]ScheduledTrial, error) {
	if trialsPerScenario < 1 {
		return nil, errors.Errorf("number of trials must be at least 1, got %d", trialsPerScenario)
	}
	trials := make([]ScheduledTrial, 0, trialsPerScenario*len(experiments))
	for number := 1; number <= trialsPerScenario; number++ {
		for id, e := range experiments {
			trials = append(trials, NewScheduledTrial(e, number, e.Method.Policy(), factory(e, id, number)))
		}
	}
	return trials, nil
}

// Handler receives outcomes of trials in completion order.
type Handler interface {
	TrialSucceeded(t ScheduledTrial, result trial.Result)
	TrialFailed(t ScheduledTrial, err error)
}

// Scheduler runs trials on a pool of Threads workers.
type Scheduler struct {
	Threads int
}

// Schedule submits all trials and returns their futures in completion order.
// PARALLEL trials start right away. Each SERIAL trial starts only after every
// trial submitted before it has completed, successfully or not.
func Schedule(pool *Pool, trials []ScheduledTrial) []*Future {
	var parallel, serial []ScheduledTrial
	for _, t := range trials {
		if t.Policy() == instrument.SERIAL {
			serial = append(serial, t)
		} else {
			parallel = append(parallel, t)
		}
	}

	pending := make([]*Future, 0, len(trials))
	for _, t := range parallel {
		pending = append(pending, pool.Submit(t, nil))
	}

	prior := WhenAllComplete(pending...)
	for _, t := range serial {
		future := pool.Submit(t, prior)
		pending = append(pending, future)
		prior = afterAll(prior, future.Done())
	}
	return InCompletionOrder(pending)
}

// Run executes trials and routes every outcome to handler. Trial level
// failures are reported and the run goes on. Any other error cancels all
// outstanding trials and is returned.
func (s Scheduler) Run(ctx context.Context, trials []ScheduledTrial, handler Handler) error {
	pool := NewPool(ctx, s.Threads)
	defer pool.Shutdown()

	for i, future := range Schedule(pool, trials) {
		result, err := future.Get()
		t := future.Trial()
		switch {
		case err == nil:
			handler.TrialSucceeded(t, result)
		case failure.IsTrialLevel(err):
			handler.TrialFailed(t, err)
		default:
			log.Errorf("scheduler: %s failed fatally after %d of %d trials, cancelling the rest", t, i, len(trials))
			pool.Shutdown()
			return errors.Wrapf(err, "%s failed", t)
		}
	}
	return nil
}
