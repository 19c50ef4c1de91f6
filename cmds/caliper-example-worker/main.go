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

// Example worker binary. Run it with:
//
//	caliper --worker=caliper-example-worker --params=size=10,1000
package main

import (
	"sort"
	"strings"

	"github.com/intelsdi-x/caliper/pkg/worker"
	"github.com/pkg/errors"
)

var (
	words []string
	text  string
)

func setUp(params worker.Params) error {
	size, err := params.Int("size")
	if err != nil {
		return err
	}
	if size < 1 {
		return errors.Wrapf(worker.ErrSkip, "size %d", size)
	}
	words = make([]string, size)
	for i := range words {
		words[i] = strings.Repeat(string(rune('a'+i%26)), 1+i%7)
	}
	text = strings.Join(words, " ")
	return nil
}

// SortWords sorts a copy of the words reps times.
func SortWords(reps int) {
	buffer := make([]string, len(words))
	for i := 0; i < reps; i++ {
		copy(buffer, words)
		sort.Strings(buffer)
	}
}

// Join builds the text once.
func Join() {
	_ = strings.Join(words, " ")
}

// FieldsPerText reports how many words are split from the text.
func FieldsPerText() float64 {
	return float64(len(strings.Fields(text)))
}

func main() {
	worker.Main(worker.Suite{
		Name:   "strings",
		Params: map[string][]string{"size": {"10", "1000", "0"}},
		SetUp:  setUp,
		Benchmarks: map[string]interface{}{
			"SortWords":     SortWords,
			"Join":          Join,
			"FieldsPerText": FieldsPerText,
		},
	})
}
