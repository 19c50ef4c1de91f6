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
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const defaultKillTimeout = 5 * time.Second

// Local is responsible for starting worker processes on the local machine.
// It runs command as current user.
type Local struct {
	killTimeout time.Duration
}

// NewLocal returns a Local instance.
func NewLocal() Local {
	return Local{killTimeout: defaultKillTimeout}
}

// NewLocalWithKillTimeout returns a Local instance which waits killTimeout
// between SIGTERM and SIGKILL when stopping tasks.
func NewLocalWithKillTimeout(killTimeout time.Duration) Local {
	return Local{killTimeout: killTimeout}
}

// Start launches the command with stdout and stderr written to output.
// Returned TaskHandle is able to stop & monitor the provisioned process.
func (l Local) Start(command Command, output io.Writer) (TaskHandle, error) {
	if command.Executable == "" {
		return nil, errors.New("empty executable")
	}
	log.Debug("Starting ", command.String())

	cmd := exec.Command(command.Executable, command.Args...)
	cmd.Env = append(os.Environ(), command.Env...)
	// It is important to set additional Process Group ID for parent process and his children
	// to have ability to kill all the children processes.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = output
	cmd.Stderr = output

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "cannot start %q", command.String())
	}
	log.Debug("Started with pid ", cmd.Process.Pid)

	task := &localTaskHandle{
		command:     command,
		cmd:         cmd,
		killTimeout: l.killTimeout,
		// waitEndChannel is closed when the wait is completed. It is not used
		// for passing any message.
		waitEndChannel: make(chan struct{}),
	}
	go task.wait()

	return task, nil
}

// localTaskHandle implements TaskHandle interface.
type localTaskHandle struct {
	command        Command
	cmd            *exec.Cmd
	killTimeout    time.Duration
	exitCode       int
	waitEndChannel chan struct{}
}

func (task *localTaskHandle) wait() {
	defer close(task.waitEndChannel)

	// Wait() returns an error for non zero exit codes. We grab the process
	// state in any case below.
	err := task.cmd.Wait()
	if task.cmd.ProcessState == nil {
		log.Errorf("Waiting for %q failed: %v", task.command.Name(), err)
		task.exitCode = -1
		return
	}

	status := task.cmd.ProcessState.Sys().(syscall.WaitStatus)
	if status.Exited() {
		task.exitCode = status.ExitStatus()
	} else {
		// Show what signal caused the termination.
		task.exitCode = -int(status.Signal())
	}

	log.Debugf("Ended %q (pid %d) with exit code %d", task.command.Name(), task.cmd.Process.Pid, task.exitCode)
}

// isTerminated checks if waitEndChannel is closed.
func (task *localTaskHandle) isTerminated() bool {
	select {
	case <-task.waitEndChannel:
		return true
	default:
		return false
	}
}

func (task *localTaskHandle) String() string {
	return fmt.Sprintf("%s (pid %d)", task.command.Name(), task.cmd.Process.Pid)
}

func (task *localTaskHandle) signal(sig syscall.Signal) error {
	if task.isTerminated() {
		return nil
	}
	// We signal the entire process group.
	// The kill syscall interprets a negated PID N as the process group N belongs to.
	log.Debug("Sending ", sig, " to PID ", -task.cmd.Process.Pid)
	err := syscall.Kill(-task.cmd.Process.Pid, sig)
	if err == syscall.ESRCH {
		// Process group is already gone.
		return nil
	}
	return err
}

// Stop terminates the task. It sends SIGTERM first and SIGKILL when the
// task does not terminate within kill timeout.
func (task *localTaskHandle) Stop() error {
	if task.isTerminated() {
		return nil
	}

	if err := task.signal(syscall.SIGTERM); err != nil {
		return errors.Wrapf(err, "cannot send SIGTERM to %s", task)
	}
	if task.Wait(task.killTimeout) {
		return nil
	}

	log.Warnf("%s did not terminate in %s after SIGTERM, killing", task, task.killTimeout)
	return task.Kill()
}

// Kill sends SIGKILL and waits for the process to be reaped.
func (task *localTaskHandle) Kill() error {
	if err := task.signal(syscall.SIGKILL); err != nil {
		return errors.Wrapf(err, "cannot send SIGKILL to %s", task)
	}
	if !task.Wait(task.killTimeout) {
		return errors.Errorf("cannot terminate %s", task)
	}
	return nil
}

// Status returns a state of the task.
func (task *localTaskHandle) Status() TaskState {
	if !task.isTerminated() {
		return RUNNING
	}
	return TERMINATED
}

// ExitCode returns the exit code; negative values are the signal which
// terminated the process.
func (task *localTaskHandle) ExitCode() (int, error) {
	if !task.isTerminated() {
		return -1, errors.Errorf("task %s is not terminated", task)
	}
	return task.exitCode, nil
}

// Wait waits for the command to finish with the given timeout time.
// It returns true if task is terminated.
func (task *localTaskHandle) Wait(timeout time.Duration) bool {
	if task.isTerminated() {
		return true
	}

	select {
	case <-task.waitEndChannel:
		return true
	case <-getWaitTimeoutChan(timeout):
		return false
	}
}

// Done implements TaskHandle.
func (task *localTaskHandle) Done() <-chan struct{} {
	return task.waitEndChannel
}
