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

package main

import (
	"context"
	"os"

	"github.com/intelsdi-x/caliper/pkg/conf"
	"github.com/intelsdi-x/caliper/pkg/executor"
	"github.com/intelsdi-x/caliper/pkg/runner"
	"github.com/intelsdi-x/caliper/pkg/utils/errutil"
	log "github.com/sirupsen/logrus"
)

const appName = "caliper"

var version = "dev"

func main() {
	conf.SetAppName(appName)
	conf.SetVersion(version)
	conf.SetHelp(`Caliper measures the benchmarks of a worker binary.
It discovers the benchmark methods of the worker, runs every experiment once
in a dry run and then runs the selected number of trials of each of them in
separate worker processes. All values can be set by CALIPER_* environment variables too.`)

	// Flags are defined from the config first, parsed and read back.
	config := runner.DefaultConfig()
	errutil.Check(conf.Process(&config))
	errutil.Check(conf.ParseFlags())
	errutil.Check(conf.Process(&config))

	log.SetLevel(conf.LogLevel())

	registrar := executor.NewRegistrar()
	stop := registrar.HandleInterrupt()
	defer stop()

	_, err := runner.New(appName, config, registrar, os.Stdout).Run(context.Background())
	errutil.CheckWithContext(err, "run failed")
}
