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

package failure

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClassification(t *testing.T) {
	Convey("When errors are wrapped with context", t, func() {
		launch := errors.Wrap(Launch("sleep 10", errors.New("accept timeout")), "trial 1")
		premature := errors.Wrap(&PrematureExit{ExitCode: 1}, "trial 2")
		timeout := errors.Wrap(&WorkerTimeout{Limit: time.Second}, "trial 3")
		trial := errors.Wrap(&TrialFailure{Type: "skip", Message: "n too small"}, "trial 4")
		violation := errors.Wrap(Violationf("unit %q", "ms"), "trial 5")
		other := errors.New("disk full")

		Convey("Trial level failures are recognized through the wrapping", func() {
			So(IsTrialLevel(launch), ShouldBeTrue)
			So(IsTrialLevel(premature), ShouldBeTrue)
			So(IsTrialLevel(timeout), ShouldBeTrue)
			So(IsTrialLevel(trial), ShouldBeTrue)
		})

		Convey("Bug class and unknown errors are not trial level", func() {
			So(IsTrialLevel(violation), ShouldBeFalse)
			So(IsTrialLevel(other), ShouldBeFalse)
			So(IsProtocolViolation(violation), ShouldBeTrue)
		})

		Convey("Only TrialFailure is a recognized user facing failure", func() {
			So(IsTrialFailure(trial), ShouldBeTrue)
			So(IsTrialFailure(launch), ShouldBeFalse)
		})

		Convey("Launch errors keep the command and the cause in the message", func() {
			So(launch.Error(), ShouldContainSubstring, "sleep 10")
			So(launch.Error(), ShouldContainSubstring, "accept timeout")
		})
	})
}
