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

package stream

import "fmt"

// State is the lifecycle state of a Channel.
type State int

const (
	// NEW channel was not started yet.
	NEW State = iota
	// RUNNING channel has a live worker.
	RUNNING
	// STOPPING channel is shutting its worker down.
	STOPPING
	// TERMINATED channel finished its lifecycle.
	TERMINATED
	// FAILED channel could not start or broke.
	FAILED
)

func (s State) String() string {
	switch s {
	case NEW:
		return "NEW"
	case RUNNING:
		return "RUNNING"
	case STOPPING:
		return "STOPPING"
	case TERMINATED:
		return "TERMINATED"
	case FAILED:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == TERMINATED || s == FAILED
}

// canMoveTo allows only forward transitions; FAILED is reachable from every
// non terminal state.
func (s State) canMoveTo(to State) bool {
	if s.IsTerminal() {
		return false
	}
	if to == FAILED {
		return true
	}
	return to > s
}
