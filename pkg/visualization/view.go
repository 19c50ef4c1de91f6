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
	"io"
)

// PrintList prints elements from list, each preceded by label.
func PrintList(w io.Writer, label string, list []string) {
	for _, value := range list {
		fmt.Fprintln(w, label+value)
	}
}

// PrintRunMetadata prints the run metadata.
func PrintRunMetadata(w io.Writer, metadata *RunMetadata) {
	fmt.Fprintln(w, "\n"+metadata.String())
}

// PrintReport prints the run metadata, the summary table, the messages of
// every experiment that has any and run wide notes.
func PrintReport(w io.Writer, metadata *RunMetadata, rows []Row, notes []string) {
	PrintRunMetadata(w, metadata)
	fmt.Fprintln(w)
	DrawTable(w, Summary(rows))
	for _, row := range rows {
		if len(row.Messages) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", row.Experiment)
		PrintList(w, "  ", row.Messages)
	}
	if len(notes) > 0 {
		fmt.Fprintln(w, "\nNotes:")
		PrintList(w, "  ", notes)
	}
}
