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

package runner

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/intelsdi-x/caliper/pkg/experiment"
	"github.com/intelsdi-x/caliper/pkg/instrument"
	"github.com/pkg/errors"
)

// Config of one run. Tagged fields are exposed as flags by conf.Process.
type Config struct {
	Worker     string   `help:"Worker binary holding the benchmark suite" required:"true"`
	WorkerArgs []string `help:"Arguments passed to every worker invocation"`
	Targets    []string `help:"Targets to measure on as NAME=ENV=VALUE ENV2=VALUE2, repeatable" default:"default"`

	Instruments []string `help:"Instruments measuring the benchmarks" defaultFromField:"defaultInstruments"`
	Options     []string `help:"Instrument options as INSTRUMENT.OPTION=VALUE, repeatable"`
	Params      []string `help:"Benchmark parameters as NAME=VALUE1,VALUE2, repeatable; replaces declared values"`

	Trials  int `help:"Trials of every experiment" default:"1"`
	Threads int `help:"Trials running at once" defaultFromField:"defaultThreads"`

	DiscoveryTimeout time.Duration `help:"Time limit of benchmark discovery and of each dry run" default:"2m"`
	CleanupWindow    time.Duration `help:"Time a worker has to exit after delivering its result" default:"10s"`
	ConnectTimeout   time.Duration `help:"Time a worker has to connect after start" default:"30s"`

	PrintWorkerLog bool   `help:"Include worker output in failure messages"`
	KeepWorkerLogs bool   `help:"Keep output logs of successful workers"`
	OutputDir      string `help:"Directory runs are stored in, current directory if empty"`
	DryRunOnly     bool   `help:"Stop after the dry run and list the experiments"`
	Progress       bool   `help:"Show a progress bar of finished trials"`

	defaultInstruments string
	defaultThreads     string
}

// DefaultConfig returns a Config with defaults of fields depending on the platform.
func DefaultConfig() Config {
	return Config{
		defaultInstruments: strings.Join(instrument.Names(), ","),
		defaultThreads:     fmt.Sprintf("%d", runtime.NumCPU()),
	}
}

// parseTargets reads target definitions of the worker binary.
func parseTargets(definitions []string, worker string, args []string) ([]experiment.Target, error) {
	if len(definitions) == 0 {
		definitions = []string{"default"}
	}
	targets := make([]experiment.Target, 0, len(definitions))
	names := map[string]bool{}
	for _, definition := range definitions {
		target, err := experiment.ParseTarget(definition, worker, args)
		if err != nil {
			return nil, err
		}
		if names[target.Name] {
			return nil, errors.Errorf("target %q is defined twice", target.Name)
		}
		names[target.Name] = true
		targets = append(targets, target)
	}
	return targets, nil
}

// parseInstruments resolves instrument names.
func parseInstruments(names []string) ([]instrument.Instrument, error) {
	if len(names) == 0 {
		names = instrument.Names()
	}
	instruments := []instrument.Instrument{}
	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		i, err := instrument.ByName(name)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, i)
	}
	return instruments, nil
}

// parseOptions reads INSTRUMENT.OPTION=VALUE entries into options by instrument.
func parseOptions(entries []string) (map[string]map[string]string, error) {
	options := map[string]map[string]string{}
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		name, option, dotted := strings.Cut(key, ".")
		if !ok || !dotted || name == "" || option == "" {
			return nil, errors.Errorf("option %q is not INSTRUMENT.OPTION=VALUE", entry)
		}
		if _, err := instrument.ByName(name); err != nil {
			return nil, errors.Wrapf(err, "option %q", entry)
		}
		if options[name] == nil {
			options[name] = map[string]string{}
		}
		options[name][option] = value
	}
	return options, nil
}

// parseParams reads NAME=VALUE entries. An entry without "=" is one more
// value of the preceding name, so "size=1,10" split on commas still parses.
func parseParams(entries []string) (map[string][]string, error) {
	params := map[string][]string{}
	name := ""
	for _, entry := range entries {
		value := entry
		if key, rest, ok := strings.Cut(entry, "="); ok {
			name, value = strings.TrimSpace(key), rest
			if name == "" {
				return nil, errors.Errorf("parameter %q has no name", entry)
			}
		} else if name == "" {
			return nil, errors.Errorf("parameter value %q has no name", entry)
		}
		params[name] = append(params[name], value)
	}
	return params, nil
}

// mergeParams returns declared parameters with values given by the user
// replacing the declared ones. Users cannot invent parameters.
func mergeParams(declared, user map[string][]string) (map[string][]string, error) {
	merged := map[string][]string{}
	for name, values := range declared {
		merged[name] = values
	}
	var unknown []string
	for name, values := range user {
		if _, ok := declared[name]; !ok {
			unknown = append(unknown, name)
			continue
		}
		merged[name] = values
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, errors.Errorf("benchmark has no parameter(s) %s", strings.Join(unknown, ", "))
	}
	return merged, nil
}
