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

package logger

import (
	"io"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// LogFileName is the name of the host log inside a run directory.
const LogFileName = "caliper.log"

// CreateRunDir creates <outputDir>/<runID> and opens the host log in it.
func CreateRunDir(outputDir, runID string) (runDir string, logFile *os.File, err error) {
	if outputDir == "" {
		outputDir, err = os.Getwd()
		if err != nil {
			return "", nil, errors.Wrap(err, "cannot get working directory")
		}
	}
	runDir = path.Join(outputDir, runID)
	if err = os.MkdirAll(runDir, 0755); err != nil {
		return "", nil, errors.Wrapf(err, "cannot create run directory %q", runDir)
	}
	logFile, err = os.OpenFile(path.Join(runDir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", nil, errors.Wrapf(err, "cannot create log file in %q", runDir)
	}
	return runDir, logFile, nil
}

// Initialize creates the run directory and configures logrus to write both
// to the log file in it and to stderr. Returned function closes the log file.
func Initialize(appName, runID, outputDir string, level logrus.Level) (runDir string, closer func(), err error) {
	runDir, logFile, err := CreateRunDir(outputDir, runID)
	if err != nil {
		return "", nil, err
	}

	// Setup logging set to both output and logFile.
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.100"})
	logrus.SetOutput(io.MultiWriter(logFile, os.Stderr))
	logrus.Infof("Working directory %q", runDir)
	logrus.Info("Starting ", appName, " run with uid ", runID)

	return runDir, func() {
		logrus.SetOutput(os.Stderr)
		logFile.Close()
	}, nil
}
