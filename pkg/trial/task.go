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

package trial

import (
	"context"
	"fmt"
	"time"

	"github.com/intelsdi-x/caliper/pkg/executor"
	"github.com/intelsdi-x/caliper/pkg/experiment"
	"github.com/intelsdi-x/caliper/pkg/failure"
	"github.com/intelsdi-x/caliper/pkg/metrics"
	"github.com/intelsdi-x/caliper/pkg/protocol"
	"github.com/intelsdi-x/caliper/pkg/stream"
	"github.com/intelsdi-x/caliper/pkg/supervisor"
)

// Task runs one trial to completion.
type Task func(ctx context.Context) (Result, error)

// Factory creates trial tasks sharing the run wide configuration.
type Factory struct {
	Registrar *executor.Registrar
	Launcher  stream.Launcher
	Metrics   *metrics.Metrics
	LogDir    string

	CleanupWindow  time.Duration
	ConnectTimeout time.Duration
	StopTimeout    time.Duration

	PrintWorkerLog bool
	KeepWorkerLogs bool
}

// Task returns a task running trial number of experiment e, which is known to
// workers as experimentID.
func (f *Factory) Task(e experiment.Experiment, experimentID, number int) Task {
	return func(ctx context.Context) (Result, error) {
		processor := NewProcessor(e, number, f.Metrics)
		s := supervisor.New(supervisor.Config{
			Command:   CommandFor(e.Target),
			Request:   protocol.TrialRequest{Experiment: e.Spec(experimentID), TrialNumber: number},
			Processor: processor,
			Registrar: f.Registrar,
			Launcher:  f.Launcher,
			LogDir:    f.LogDir,
			LogPrefix: fmt.Sprintf("trial-%d-%d", experimentID, number),
			Header: []string{
				fmt.Sprintf("experiment: %s", e),
				fmt.Sprintf("trial: %d", number),
			},
			CleanupWindow:  f.CleanupWindow,
			ConnectTimeout: f.ConnectTimeout,
			StopTimeout:    f.StopTimeout,
			PrintWorkerLog: f.PrintWorkerLog,
			KeepWorkerLogs: f.KeepWorkerLogs,
		})

		finished := f.Metrics.TrialStarted(e.Method.Instrument.Name())
		err := s.Run(ctx)
		switch {
		case err == nil:
			finished(metrics.OutcomeSuccess)
		case failure.IsTrialLevel(err):
			finished(metrics.OutcomeFailure)
			return Result{}, err
		default:
			finished(metrics.OutcomeFatal)
			return Result{}, err
		}

		result := processor.Result()
		if result == nil {
			return Result{}, failure.Violationf("worker %s finished without a result", s.ID())
		}
		return *result, nil
	}
}
