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

package metrics

import (
	"os"
	"path"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetrics(t *testing.T) {
	Convey("While recording trial metrics", t, func() {
		m := New()

		finished := m.TrialStarted("runtime")
		So(testutil.ToFloat64(m.activeWorkers), ShouldEqual, 1)
		m.MeasurementsAccepted("runtime", 9)
		m.RuntimeEvent("gc")
		finished(OutcomeSuccess)

		So(testutil.ToFloat64(m.activeWorkers), ShouldEqual, 0)
		So(testutil.ToFloat64(m.trialsStarted.WithLabelValues("runtime")), ShouldEqual, 1)
		So(testutil.ToFloat64(m.trialsFinished.WithLabelValues("runtime", OutcomeSuccess)), ShouldEqual, 1)
		So(testutil.ToFloat64(m.measurements.WithLabelValues("runtime")), ShouldEqual, 9)
		So(testutil.ToFloat64(m.runtimeEvents.WithLabelValues("gc")), ShouldEqual, 1)

		count, err := testutil.GatherAndCount(m.Gatherer(), "caliper_trial_duration_seconds")
		So(err, ShouldBeNil)
		So(count, ShouldEqual, 1)

		Convey("Metrics are written to a textfile", func() {
			dir, err := os.MkdirTemp("", "metrics")
			So(err, ShouldBeNil)
			defer os.RemoveAll(dir)

			file := path.Join(dir, "caliper.prom")
			So(m.WriteToTextfile(file), ShouldBeNil)
			contents, err := os.ReadFile(file)
			So(err, ShouldBeNil)
			So(string(contents), ShouldContainSubstring, "caliper_trials_finished_total")
		})
	})

	Convey("Nil metrics are a no-op", t, func() {
		var m *Metrics
		So(func() {
			m.TrialStarted("runtime")(OutcomeFailure)
			m.MeasurementsAccepted("runtime", 1)
			m.RuntimeEvent("gc")
		}, ShouldNotPanic)
	})
}
