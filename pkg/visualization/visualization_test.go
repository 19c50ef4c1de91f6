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
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSummary(t *testing.T) {
	Convey("While rendering a run summary", t, func() {
		rows := []Row{
			{Experiment: "runtime/Fib{n=10}@default", Trials: 3, Measurements: 27, Median: 123.45678, HasMedian: true, Unit: "ns"},
			{Experiment: "arbitrary/Throughput@default", Trials: 1, Failed: 1, Messages: []string{"worker exited prematurely"}},
		}

		Convey("Medians are rounded and missing values are dashes", func() {
			So(FormatValue(123.45678, true), ShouldEqual, "123.457")
			So(FormatValue(2, true), ShouldEqual, "2")
			So(FormatValue(0, false), ShouldEqual, "-")
			So(Summary(rows).Rows(), ShouldEqual, 2)

			var out bytes.Buffer
			DrawTable(&out, Summary(rows))
			So(out.String(), ShouldContainSubstring, "123.457")
			So(out.String(), ShouldContainSubstring, "| - ")
		})

		Convey("Report lists metadata, rows and messages", func() {
			var out bytes.Buffer
			PrintReport(&out, NewRunMetadata("42", "/tmp/run", map[string]string{"cpu_count": "8"}), rows,
				[]string{"runtime/Fib: consider a macrobenchmark"})
			report := out.String()
			So(report, ShouldContainSubstring, "Run id: 42")
			So(report, ShouldContainSubstring, "cpu_count: 8")
			So(report, ShouldContainSubstring, "123.457")
			So(report, ShouldContainSubstring, "runtime/Fib{n=10}@default")
			So(report, ShouldContainSubstring, "  worker exited prematurely")
			So(report, ShouldContainSubstring, "Notes:\n  runtime/Fib: consider a macrobenchmark")
		})
	})
}
