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

// Package failure holds the error taxonomy shared by the worker channel, the
// supervisor and the scheduler.
//
// LaunchError, PrematureExit and WorkerTimeout are fatal to a trial but not to
// a run. TrialFailure is a recognized user facing failure and never stops a run.
// ProtocolViolation indicates a bug in the worker or orchestrator and aborts
// the run.
package failure

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// LaunchError means the worker process or its channel could not start.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("cannot launch worker %q: %v", e.Command, e.Err)
}

// Unwrap returns the underlying launch error. LaunchError does not implement
// causer so that errors.Cause stops at the LaunchError.
func (e *LaunchError) Unwrap() error { return e.Err }

// PrematureExit means the worker exited before producing a result.
type PrematureExit struct {
	ExitCode int
	Message  string
}

func (e *PrematureExit) Error() string {
	return fmt.Sprintf("worker exited prematurely with exit code %d: %s", e.ExitCode, e.Message)
}

// WorkerTimeout means the worker did not report completion within its time limit.
type WorkerTimeout struct {
	Limit   time.Duration
	Message string
}

func (e *WorkerTimeout) Error() string {
	return fmt.Sprintf("worker timed out after %s: %s", e.Limit, e.Message)
}

// TrialFailure is a recognized benchmark failure reported to the user, for
// example a skipped or invalid benchmark.
type TrialFailure struct {
	Type    string
	Message string
}

func (e *TrialFailure) Error() string {
	if e.Type == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ProtocolViolation means the worker and the orchestrator disagree on the
// message contract.
type ProtocolViolation struct {
	Message string
}

func (e *ProtocolViolation) Error() string {
	return "protocol violation: " + e.Message
}

// Violationf returns a ProtocolViolation with a stack trace attached.
func Violationf(format string, args ...interface{}) error {
	return errors.WithStack(&ProtocolViolation{Message: fmt.Sprintf(format, args...)})
}

// Launch wraps err as a LaunchError.
func Launch(command string, err error) error {
	return errors.WithStack(&LaunchError{Command: command, Err: err})
}

// IsTrialLevel reports whether err ends a single trial but allows the run to
// continue.
func IsTrialLevel(err error) bool {
	switch errors.Cause(err).(type) {
	case *LaunchError, *PrematureExit, *WorkerTimeout, *TrialFailure:
		return true
	}
	return false
}

// IsTrialFailure reports whether err is a recognized user facing failure.
func IsTrialFailure(err error) bool {
	_, ok := errors.Cause(err).(*TrialFailure)
	return ok
}

// IsProtocolViolation reports whether err is a bug class failure.
func IsProtocolViolation(err error) bool {
	_, ok := errors.Cause(err).(*ProtocolViolation)
	return ok
}
