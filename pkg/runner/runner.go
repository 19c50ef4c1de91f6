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

// Package runner drives a whole run: it discovers the benchmarks of a worker
// binary, selects experiments, checks them with a dry run, schedules their
// trials and reports the aggregated results.
package runner

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/intelsdi-x/caliper/pkg/discovery"
	"github.com/intelsdi-x/caliper/pkg/executor"
	"github.com/intelsdi-x/caliper/pkg/experiment"
	"github.com/intelsdi-x/caliper/pkg/experiment/logger"
	"github.com/intelsdi-x/caliper/pkg/instrument"
	"github.com/intelsdi-x/caliper/pkg/metrics"
	"github.com/intelsdi-x/caliper/pkg/protocol"
	"github.com/intelsdi-x/caliper/pkg/scheduler"
	"github.com/intelsdi-x/caliper/pkg/stream"
	"github.com/intelsdi-x/caliper/pkg/supervisor"
	"github.com/intelsdi-x/caliper/pkg/trial"
	"github.com/intelsdi-x/caliper/pkg/utils/uuid"
	"github.com/intelsdi-x/caliper/pkg/visualization"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/cheggaaa/pb.v1"
)

const (
	workerLogsDir   = "worker-logs"
	metricsFileName = "metrics.prom"
)

// Report is the outcome of a run.
type Report struct {
	RunID       string
	RunDir      string
	Experiments []experiment.Experiment
	Rows        []visualization.Row
	Notes       []string
}

// Runner executes runs of one configuration.
type Runner struct {
	config    Config
	appName   string
	registrar *executor.Registrar
	launcher  stream.Launcher
	out       io.Writer

	runDir string
}

// New returns a Runner printing its report to out. Workers are registered in
// registrar so that they can be killed on interrupt.
func New(appName string, config Config, registrar *executor.Registrar, out io.Writer) *Runner {
	return &Runner{
		config:    config,
		appName:   appName,
		registrar: registrar,
		launcher:  executor.NewLocal(),
		out:       out,
	}
}

// Run executes one run. The report is returned also when trials failed; the
// error is set only when the run could not complete.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	c := r.config
	if c.Trials < 1 {
		return nil, errors.Errorf("number of trials must be at least 1, got %d", c.Trials)
	}
	targets, err := parseTargets(c.Targets, c.Worker, c.WorkerArgs)
	if err != nil {
		return nil, err
	}
	instruments, err := parseInstruments(c.Instruments)
	if err != nil {
		return nil, err
	}
	options, err := parseOptions(c.Options)
	if err != nil {
		return nil, err
	}
	userParams, err := parseParams(c.Params)
	if err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.New()}
	runDir, closeLog, err := logger.Initialize(r.appName, report.RunID, c.OutputDir, log.GetLevel())
	if err != nil {
		return nil, err
	}
	defer closeLog()
	report.RunDir = runDir
	r.runDir = runDir

	m := metrics.New()
	defer func() {
		metricsPath := path.Join(runDir, metricsFileName)
		if err := m.WriteToTextfile(metricsPath); err != nil {
			log.Warnf("cannot write metrics to %q: %v", metricsPath, err)
		}
	}()

	model, err := r.discover(ctx, targets[0])
	if err != nil {
		return report, err
	}
	log.Infof("suite %q has %d benchmark method(s)", model.Name, len(model.Methods))

	methods, err := instrument.InstrumentAll(model.Methods, instruments, options)
	if err != nil {
		return report, err
	}
	params, err := mergeParams(model.Parameters, userParams)
	if err != nil {
		return report, err
	}
	experiments, err := experiment.Select(methods, targets, params)
	if err != nil {
		return report, err
	}
	log.Infof("selected %d experiment(s)", len(experiments))

	experiments, err = r.dryRun(ctx, targets, experiments)
	if err != nil {
		return report, err
	}
	report.Experiments = experiments
	if len(experiments) == 0 {
		return report, errors.New("every experiment was skipped by the benchmark")
	}
	if c.DryRunOnly {
		for _, e := range experiments {
			fmt.Fprintln(r.out, e)
		}
		return report, nil
	}

	factory := &trial.Factory{
		Registrar:      r.registrar,
		Launcher:       r.launcher,
		Metrics:        m,
		LogDir:         path.Join(runDir, workerLogsDir),
		CleanupWindow:  c.CleanupWindow,
		ConnectTimeout: c.ConnectTimeout,
		PrintWorkerLog: c.PrintWorkerLog,
		KeepWorkerLogs: c.KeepWorkerLogs,
	}
	trials, err := scheduler.CreateTrials(experiments, c.Trials, factory.Task)
	if err != nil {
		return report, err
	}
	log.Infof("running %d trial(s) on %d thread(s)", len(trials), c.Threads)

	results := newAggregator(experiments, c.Trials)
	if c.Progress {
		bar := pb.New(len(trials))
		bar.Output = r.out
		bar.ShowCounters = true
		bar.ShowTimeLeft = true
		results.progress = bar.Start()
	}
	runErr := scheduler.Scheduler{Threads: c.Threads}.Run(ctx, trials, results)
	if results.progress != nil {
		results.progress.Finish()
	}

	report.Rows = results.rows()
	report.Notes = results.validationNotes()
	visualization.PrintReport(r.out,
		visualization.NewRunMetadata(report.RunID, runDir, experiment.Platform()),
		report.Rows, report.Notes)
	return report, runErr
}

// supervise runs one worker of target for a processor other than a trial.
func (r *Runner) supervise(ctx context.Context, target experiment.Target, request protocol.Message,
	processor supervisor.Processor, prefix string) error {
	s := supervisor.New(supervisor.Config{
		Command:        trial.CommandFor(target),
		Request:        request,
		Processor:      processor,
		Registrar:      r.registrar,
		Launcher:       r.launcher,
		LogDir:         path.Join(r.runDir, workerLogsDir),
		LogPrefix:      prefix,
		Header:         []string{"target: " + target.Name},
		CleanupWindow:  r.config.CleanupWindow,
		ConnectTimeout: r.config.ConnectTimeout,
		PrintWorkerLog: r.config.PrintWorkerLog,
		KeepWorkerLogs: r.config.KeepWorkerLogs,
	})
	return s.Run(ctx)
}

// discover asks a worker of target for its benchmark model.
func (r *Runner) discover(ctx context.Context, target experiment.Target) (*protocol.BenchmarkModel, error) {
	processor := discovery.NewModelProcessor(r.config.DiscoveryTimeout)
	if err := r.supervise(ctx, target, protocol.ModelRequest{}, processor, "discovery"); err != nil {
		return nil, errors.Wrapf(err, "benchmark discovery on target %s failed", target)
	}
	return processor.Model(), nil
}

// dryRun runs every experiment once per target and returns those not
// skipped. Any other failure aborts the run.
func (r *Runner) dryRun(ctx context.Context, targets []experiment.Target, experiments []experiment.Experiment) ([]experiment.Experiment, error) {
	passed := map[int]bool{}
	for _, target := range targets {
		var ids []int
		var specs []protocol.ExperimentSpec
		for id, e := range experiments {
			if e.Target.Key() == target.Key() {
				ids = append(ids, id)
				specs = append(specs, e.Spec(id))
			}
		}
		if len(specs) == 0 {
			continue
		}

		processor := discovery.NewDryRunProcessor(r.config.DiscoveryTimeout, ids)
		request := protocol.DryRunRequest{Experiments: specs}
		if err := r.supervise(ctx, target, request, processor, "dry-run-"+target.Name); err != nil {
			return nil, errors.Wrapf(err, "dry run on target %s failed", target)
		}
		for _, id := range processor.Succeeded() {
			passed[id] = true
		}
		for _, id := range processor.Skipped() {
			log.Infof("skipping %s", experiments[id])
		}
	}

	var ids []int
	for id := range passed {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	selected := make([]experiment.Experiment, 0, len(ids))
	for _, id := range ids {
		selected = append(selected, experiments[id])
	}
	return selected, nil
}
