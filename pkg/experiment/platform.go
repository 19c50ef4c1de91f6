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
	"bufio"
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"regexp"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// CPUModelNameKey defines a key in the platform map
	CPUModelNameKey = "cpu_model"
	// KernelVersionKey defines a key in the platform map
	KernelVersionKey = "kernel_version"
	// PowerGovernorKey defines a key in the platform map
	PowerGovernorKey = "power_governor"
	// CPUCountKey defines a key in the platform map
	CPUCountKey = "cpu_count"
	// GoVersionKey defines a key in the platform map
	GoVersionKey = "go_version"
)

// Platform returns a description of the host the run is executed on.
// If an item could not be retrieved value for the key is empty string.
func Platform() map[string]string {
	platform := map[string]string{
		CPUCountKey:  fmt.Sprintf("%d", runtime.NumCPU()),
		GoVersionKey: runtime.Version(),
	}

	probes := []struct {
		key   string
		probe func() (string, error)
	}{
		{CPUModelNameKey, CPUModelName},
		{KernelVersionKey, KernelVersion},
		{PowerGovernorKey, PowerGovernor},
	}
	for _, p := range probes {
		item, err := p.probe()
		if err != nil {
			log.Debugf("Platform: Failed to get %s. Skipping. Error: %s", p.key, err.Error())
		}
		platform[p.key] = item
	}
	return platform
}

// CPUModelName reads /proc/cpuinfo and returns 'model name' line.
// Note that it returns only first occurrence of the model since mixed cpu models
// are not supported.
func CPUModelName() (string, error) {
	file, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return "", errors.Wrapf(err, "Cannot open /proc/cpuinfo file.")
	}
	defer file.Close()

	procScanner := bufio.NewScanner(file)
	for procScanner.Scan() {
		chunks := strings.SplitN(procScanner.Text(), ":", 2)
		if len(chunks) != 2 {
			continue
		}
		if strings.TrimSpace(chunks[0]) == "model name" {
			return strings.TrimSpace(chunks[1]), nil
		}
	}
	// Return error from scanner or newly created one.
	err = procScanner.Err()
	if err == nil {
		err = errors.New("Did not find phrase 'model name' in /proc/cpuinfo")
	}
	return "", err
}

// KernelVersion return kernel version as stated in /proc/version.
func KernelVersion() (string, error) {
	return readContents("/proc/version")
}

// PowerGovernor returns a comma separated list of CPU:power_policy.
// Example (snippet):
//    "0:performance,1:performance,10:performance"
// Frequency scaling changes benchmark results, so it is worth recording.
func PowerGovernor() (string, error) {
	dir := "/sys/devices/system/cpu"
	files, err := ioutil.ReadDir(dir)
	if err != nil {
		return "", errors.Wrapf(err, "Failed to scan sysfs for CPU devices")
	}

	re := regexp.MustCompile("^cpu[0-9]+$")
	output := []string{}
	for _, file := range files {
		if file.IsDir() && re.MatchString(file.Name()) {
			gov, err := readContents(path.Join(dir, file.Name(), "cpufreq/scaling_governor"))
			if err != nil {
				return "", err
			}
			output = append(output, fmt.Sprintf("%s:%s", strings.TrimPrefix(file.Name(), "cpu"), gov))
		}
	}
	return strings.Join(output, ","), nil
}

func readContents(file string) (string, error) {
	data, err := ioutil.ReadFile(file)
	if err != nil {
		return "", errors.Wrapf(err, "Failed to read %s", file)
	}
	return strings.TrimSpace(string(data)), nil
}
