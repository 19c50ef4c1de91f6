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

// Package supervisor drives one worker process through its lifecycle for one
// unit of work: model discovery, a dry run or a trial.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/intelsdi-x/caliper/pkg/executor"
	"github.com/intelsdi-x/caliper/pkg/failure"
	"github.com/intelsdi-x/caliper/pkg/protocol"
	"github.com/intelsdi-x/caliper/pkg/stream"
	"github.com/intelsdi-x/caliper/pkg/utils/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultCleanupWindow is the time a worker has to exit after its processor
// reported done.
const DefaultCleanupWindow = 10 * time.Second

// exitCodeWait bounds waiting for an exit code after the stream ended.
const exitCodeWait = time.Second

// Processor interprets the messages of one worker.
type Processor interface {
	// TimeLimit is the budget for the whole interaction.
	TimeLimit() time.Duration
	// HandleMessage consumes one message. Replies go to writer. Returns true
	// once the processor has everything it needs.
	HandleMessage(msg protocol.Message, writer protocol.Writer) (done bool, err error)
	// InterruptedMessage describes an interruption before done.
	InterruptedMessage() string
	// PrematureExitMessage describes a worker exit before done.
	PrematureExitMessage() string
	// TimeoutMessage describes running out of time before done.
	TimeoutMessage() string
}

// Config is everything a Supervisor needs.
type Config struct {
	Command   executor.Command
	Request   protocol.Message
	Processor Processor

	// Registrar receives the kill hook of the worker.
	Registrar *executor.Registrar
	// Launcher starts the worker. Defaults to executor.NewLocal().
	Launcher stream.Launcher

	// LogDir and LogPrefix place the output log of the worker.
	LogDir    string
	LogPrefix string
	// Header lines identify the unit of work in the output log.
	Header []string

	CleanupWindow  time.Duration
	ConnectTimeout time.Duration
	StopTimeout    time.Duration

	// PrintWorkerLog inlines worker output into failure messages.
	PrintWorkerLog bool
	// KeepWorkerLogs keeps output logs of successful workers.
	KeepWorkerLogs bool
}

// Supervisor runs a single worker. It can be run only once.
type Supervisor struct {
	config  Config
	id      string
	output  *executor.OutputLog
	channel *stream.Channel
	started bool
}

// New returns a Supervisor for config.
func New(config Config) *Supervisor {
	if config.CleanupWindow == 0 {
		config.CleanupWindow = DefaultCleanupWindow
	}
	if config.LogPrefix == "" {
		config.LogPrefix = config.Command.Name()
	}
	return &Supervisor{config: config, id: uuid.New()}
}

// ID returns the worker id written into the output log header.
func (s *Supervisor) ID() string {
	return s.id
}

// LogPath returns the location of the output log. It is empty before Run.
func (s *Supervisor) LogPath() string {
	if s.output == nil {
		return ""
	}
	return s.output.Path()
}

// Run starts the worker, sends the request and feeds the processor until it
// is done. The worker is always stopped and the output log closed on return.
func (s *Supervisor) Run(ctx context.Context) (err error) {
	if s.started {
		return errors.Errorf("worker %s was already supervised", s.id)
	}
	s.started = true

	output, err := executor.NewOutputLog(s.config.LogDir, s.config.LogPrefix)
	if err != nil {
		return err
	}
	s.output = output
	header := append([]string{
		"command: " + s.config.Command.String(),
		"worker id: " + s.id,
	}, s.config.Header...)
	if err := output.WriteHeader(header...); err != nil {
		output.Close()
		return err
	}

	s.channel = stream.New(s.config.Command, stream.Options{
		Output:         output.File(),
		Registrar:      s.config.Registrar,
		Launcher:       s.config.Launcher,
		ConnectTimeout: s.config.ConnectTimeout,
		StopTimeout:    s.config.StopTimeout,
	})

	defer func() {
		if stopErr := s.channel.Stop(); stopErr != nil {
			log.Warnf("supervisor: stopping worker %s failed: %v", s.id, stopErr)
		}
		s.finishLog(err)
	}()

	if err := s.channel.Start(); err != nil {
		return errors.Wrap(err, s.fatalMessage("worker could not be started"))
	}

	if err := s.channel.SendMessage(s.config.Request); err != nil {
		// A worker that is already gone is reported by the read loop.
		log.Debugf("supervisor: cannot send %s to %s: %v", s.config.Request.Kind(), s.id, err)
	}

	return s.loop(ctx)
}

func (s *Supervisor) loop(ctx context.Context) error {
	processor := s.config.Processor
	limit := processor.TimeLimit()
	deadline := time.Now().Add(limit)
	done := false

	for {
		item, err := s.channel.ReadItem(ctx, time.Until(deadline))
		if err != nil {
			if ctx.Err() == nil {
				// Malformed stream.
				return errors.Wrap(err, s.fatalMessage("worker stream failed"))
			}
			if done {
				log.Infof("supervisor: worker %s interrupted after its results were collected", s.id)
				return nil
			}
			s.channel.Fail(err)
			return errors.Wrap(err, s.fatalMessage(processor.InterruptedMessage()))
		}

		switch item.Kind {
		case stream.Data:
			msgDone, err := processor.HandleMessage(item.Message, s.channel)
			if err != nil {
				s.channel.Fail(err)
				return errors.Wrap(err, s.fatalMessage("worker message could not be handled"))
			}
			if msgDone && !done {
				done = true
				deadline = time.Now().Add(s.config.CleanupWindow)
				if err := s.channel.CloseWriter(); err != nil {
					log.Debugf("supervisor: %v", err)
				}
			}

		case stream.EOF:
			if done {
				return nil
			}
			exitCode := s.exitCode()
			s.channel.Fail(errors.New("premature exit"))
			return &failure.PrematureExit{
				ExitCode: exitCode,
				Message:  s.fatalMessage(processor.PrematureExitMessage()),
			}

		case stream.Timeout:
			if done {
				log.Warnf("supervisor: worker %s did not exit within %s of its results being collected",
					s.id, s.config.CleanupWindow)
				return nil
			}
			s.channel.Fail(errors.New("timeout"))
			if err := s.channel.Kill(); err != nil {
				log.Warnf("supervisor: killing worker %s failed: %v", s.id, err)
			}
			return &failure.WorkerTimeout{
				Limit:   limit,
				Message: s.fatalMessage(processor.TimeoutMessage()),
			}
		}
	}
}

func (s *Supervisor) exitCode() int {
	handle := s.channel.Handle()
	if handle == nil {
		return -1
	}
	handle.Wait(exitCodeWait)
	exitCode, err := handle.ExitCode()
	if err != nil {
		return -1
	}
	return exitCode
}

// fatalMessage appends worker output, or where to find it, to msg.
func (s *Supervisor) fatalMessage(msg string) string {
	if s.config.PrintWorkerLog {
		contents, err := s.output.Contents()
		if err == nil {
			return fmt.Sprintf("%s\nworker output:\n%s", msg, contents)
		}
		log.Debugf("supervisor: %v", err)
	}
	return fmt.Sprintf("%s (worker output stored in %q)", msg, s.output.Path())
}

func (s *Supervisor) finishLog(runErr error) {
	what := s.config.Command.String()
	if runErr != nil {
		executor.LogUnsuccessfulExecution(what, s.channel.Handle(), s.output)
		s.output.Close()
		return
	}
	executor.LogSuccessfulExecution(what, s.channel.Handle(), s.output)
	if s.config.KeepWorkerLogs {
		s.output.Close()
		return
	}
	if err := s.output.Erase(); err != nil {
		log.Warnf("supervisor: %v", err)
	}
}
