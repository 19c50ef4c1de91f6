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
	"os"
	"path"
	"testing"

	"github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInitialize(t *testing.T) {
	Convey("Initializing logging creates run directory with a log file", t, func() {
		outputDir, err := os.MkdirTemp("", "logger")
		So(err, ShouldBeNil)
		defer os.RemoveAll(outputDir)

		runDir, closer, err := Initialize("caliper", "run-1", outputDir, logrus.InfoLevel)
		So(err, ShouldBeNil)
		So(runDir, ShouldEqual, path.Join(outputDir, "run-1"))
		logrus.Info("hello from test")
		closer()
		logrus.SetLevel(logrus.ErrorLevel)

		contents, err := os.ReadFile(path.Join(runDir, LogFileName))
		So(err, ShouldBeNil)
		So(string(contents), ShouldContainSubstring, "hello from test")
		So(string(contents), ShouldContainSubstring, "run-1")
	})
}
