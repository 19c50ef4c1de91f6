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

package visualization

import (
	"fmt"
	"sort"
	"strings"
)

// RunMetadata encodes the metadata which is related to a run: its id, the
// directory holding its logs and the platform it was measured on.
type RunMetadata struct {
	runID    string
	runDir   string
	platform map[string]string
}

// NewRunMetadata is the RunMetadata constructor.
func NewRunMetadata(runID, runDir string, platform map[string]string) *RunMetadata {
	return &RunMetadata{
		runID,
		runDir,
		platform,
	}
}

// String returns a printable string with all run metadata.
func (metadata *RunMetadata) String() string {
	lines := []string{
		"Run id: " + metadata.runID,
		"Run directory: " + metadata.runDir,
	}
	keys := make([]string, 0, len(metadata.platform))
	for key := range metadata.platform {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", key, metadata.platform[key]))
	}
	return strings.Join(lines, "\n")
}
