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

package executor

import (
	"fmt"
	"time"
)

// TaskState is an enum presenting current task state.
type TaskState int

const (
	// RUNNING task state means that task is still running.
	RUNNING TaskState = iota
	// TERMINATED task state means that task completed or stopped.
	TERMINATED
)

func (s TaskState) String() string {
	switch s {
	case RUNNING:
		return "RUNNING"
	case TERMINATED:
		return "TERMINATED"
	}
	return fmt.Sprintf("TaskState(%d)", int(s))
}

// TaskHandle represents a process which can be stopped or monitored.
type TaskHandle interface {
	fmt.Stringer
	// Stop sends SIGTERM to the task and SIGKILL when it does not terminate in time.
	Stop() error
	// Kill sends SIGKILL to the whole process group of the task.
	Kill() error
	// Status returns a state of the task.
	Status() TaskState
	// ExitCode returns a exitCode. If task is not terminated it returns error.
	ExitCode() (int, error)
	// Wait blocks until the task terminates or the timeout elapses.
	// Zero timeout means wait forever. It returns true if task is terminated.
	Wait(timeout time.Duration) bool
	// Done is closed when the task terminates.
	Done() <-chan struct{}
}

// getWaitTimeoutChan returns nil channel (blocking forever) for zero timeout.
func getWaitTimeoutChan(timeout time.Duration) <-chan time.Time {
	if timeout == 0 {
		return nil
	}
	return time.After(timeout)
}
