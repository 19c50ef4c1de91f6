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

package experiment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Target is a runtime configuration of the worker binary benchmarks run in.
// It is created once per run and never modified.
type Target struct {
	Name       string
	Executable string
	Args       []string
	Env        []string
}

// Key identifies the Target by value.
func (t Target) Key() string {
	env := append([]string(nil), t.Env...)
	sort.Strings(env)
	return fmt.Sprintf("%q:%q%q%q", t.Name, t.Executable, t.Args, env)
}

func (t Target) String() string {
	return t.Name
}

// ParseTarget reads a target definition of the form
// "name=ENV1=V1 ENV2=V2". An empty environment part is allowed.
func ParseTarget(definition, executable string, args []string) (Target, error) {
	parts := strings.SplitN(definition, "=", 2)
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return Target{}, errors.Errorf("target %q has no name", definition)
	}

	target := Target{Name: name, Executable: executable, Args: args}
	if len(parts) == 2 {
		for _, env := range strings.Fields(parts[1]) {
			if !strings.Contains(env, "=") {
				return Target{}, errors.Errorf("target %q: %q is not a NAME=VALUE pair", name, env)
			}
			target.Env = append(target.Env, env)
		}
	}
	return target, nil
}
