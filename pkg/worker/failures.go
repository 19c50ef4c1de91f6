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

package worker

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/intelsdi-x/caliper/pkg/protocol"
	"github.com/pkg/errors"
)

// userError is an error raised by benchmark code.
type userError struct {
	err   error
	stack []string
}

func (e *userError) Error() string { return e.err.Error() }

// invalidBenchmark means the request does not fit the registered benchmark.
type invalidBenchmark struct {
	message string
}

func (e *invalidBenchmark) Error() string { return e.message }

// recoverUser turns a panic in benchmark code into *err.
func recoverUser(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if cause, ok := r.(error); ok && errors.Cause(cause) == ErrSkip {
		*err = cause
		return
	}
	*err = &userError{err: fmt.Errorf("panic: %v", r), stack: stackFrames()}
}

func stackFrames() []string {
	var frames []string
	for _, line := range strings.Split(string(debug.Stack()), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			frames = append(frames, line)
		}
	}
	return frames
}

// failureFor returns the message reporting err to the host.
func failureFor(err error) protocol.Failure {
	switch cause := errors.Cause(err).(type) {
	case *userError:
		return protocol.Failure{Type: protocol.FailureUserCode, Message: err.Error(), StackFrames: cause.stack}
	case *invalidBenchmark:
		return protocol.Failure{Type: protocol.FailureInvalidBenchmark, Message: err.Error()}
	}
	if errors.Cause(err) == ErrSkip {
		return protocol.Failure{Type: protocol.FailureSkip, Message: err.Error()}
	}
	return protocol.Failure{Type: protocol.FailureInternal, Message: fmt.Sprintf("%+v", err)}
}
