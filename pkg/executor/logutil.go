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
	"bufio"
	"fmt"
	"math/rand"
	"strings"

	"github.com/sirupsen/logrus"
)

const tailLineCount = 5

// LogSuccessfulExecution is helper function for logging where the output of
// a finished worker was stored.
func LogSuccessfulExecution(whatWasExecuted string, handle TaskHandle, output *OutputLog) {
	id := rand.Intn(9999)
	logrus.Debugf("%4d Worker %q (%v) has ended", id, whatWasExecuted, handle)
	logrus.Debugf("%4d Output stored in %q", id, output.Path())
	if handle == nil {
		return
	}
	if exitCode, err := handle.ExitCode(); err == nil {
		logrus.Debugf("%4d Exit code: %d", id, exitCode)
	}
}

// LogUnsuccessfulExecution is helper function for logging the output tail of
// a worker that failed.
func LogUnsuccessfulExecution(whatWasExecuted string, handle TaskHandle, output *OutputLog) {
	tail, err := output.Tail(tailLineCount)
	if err != nil {
		tail = fmt.Sprintf("%v", err)
	}

	id := rand.Intn(9999)
	logrus.Errorf("%4d Worker %q might have ended prematurely (%v)", id, whatWasExecuted, handle)
	logrus.Errorf("%4d Output stored in %q", id, output.Path())
	logrus.Errorf("%4d Last %d lines of output", id, tailLineCount)
	ErrorLogLines(strings.NewReader(tail), id)

	if handle == nil {
		return
	}
	if exitCode, err := handle.ExitCode(); err != nil {
		logrus.Errorf("%4d Could not read exit code: %v", id, err)
	} else {
		logrus.Errorf("%4d Exit code: %d", id, exitCode)
	}
}

// ErrorLogLines takes reader and some ID (eg. PID) and prints each line
// from reader in a separate log.Errorf("%4d <line>", pid, line) .
// Rationale behind this function is fact, that logrus does not support multi-line logs.
func ErrorLogLines(r *strings.Reader, logID int) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logrus.Errorf("%4d %s", logID, scanner.Text())
	}
	err := scanner.Err()
	if err != nil {
		logrus.Errorf("%4d Printing from reader failed: %q", logID, err.Error())
	}
}
