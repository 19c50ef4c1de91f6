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

package errcollection

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

// cleanup mimics a shutdown sequence where every step runs regardless of
// the steps before it.
func cleanup(steps ...func() error) error {
	var errs ErrorCollection
	for _, step := range steps {
		errs.Add(step())
	}
	return errs.GetErrIfAny()
}

func TestErrorCollection(t *testing.T) {
	succeed := func() error { return nil }

	Convey("Cleanup where every step succeeds reports nothing", t, func() {
		So(cleanup(succeed, succeed, succeed), ShouldBeNil)

		var errs ErrorCollection
		errs.Add(nil)
		So(errs.Len(), ShouldEqual, 0)
	})

	Convey("A single failed step is returned as is", t, func() {
		err := cleanup(succeed, func() error {
			return errors.Wrap(os.ErrClosed, "closing worker connection")
		}, succeed)
		So(err, ShouldNotBeNil)
		So(errors.Cause(err), ShouldEqual, os.ErrClosed)
		So(err.Error(), ShouldEqual, "closing worker connection: "+os.ErrClosed.Error())
	})

	Convey("Failures of kill and close are joined in cleanup order", t, func() {
		steps := []func() error{
			func() error { return errors.New("cannot kill worker 42") },
			succeed,
			func() error { return errors.New("listener already closed") },
		}
		err := cleanup(steps...)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldEqual, "cannot kill worker 42; listener already closed")
	})
}
