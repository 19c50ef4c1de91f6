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

package trial

import (
	"testing"

	"github.com/intelsdi-x/caliper/pkg/experiment"
	"github.com/intelsdi-x/caliper/pkg/failure"
	"github.com/intelsdi-x/caliper/pkg/instrument"
	"github.com/intelsdi-x/caliper/pkg/protocol"
	. "github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	sent []protocol.Message
}

func (r *recorder) SendMessage(msg protocol.Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

func ns(value float64) protocol.StopMeasurement {
	return protocol.StopMeasurement{Measurements: []protocol.Measurement{{
		Value:  protocol.Value{Magnitude: value, Unit: protocol.NanosecondsUnit},
		Weight: 1,
	}}}
}

func newExperiment(options map[string]string) experiment.Experiment {
	method, err := instrument.Runtime{}.CreateInstrumentedMethod(
		protocol.MethodModel{Name: "Fib", Params: []string{"int"}, Exported: true}, options)
	if err != nil {
		panic(err)
	}
	return experiment.Experiment{
		Method: method,
		Target: experiment.Target{Name: "default", Executable: "/bin/worker", Args: []string{"-v"}, Env: []string{"GOGC=100"}},
	}
}

func TestProcessor(t *testing.T) {
	Convey("While processing a trial", t, func() {
		e := newExperiment(map[string]string{
			instrument.OptionWarmup:       "10ns",
			instrument.OptionMeasurements: "2",
		})
		writer := &recorder{}
		p := NewProcessor(e, 3, nil)
		So(p.TimeLimit(), ShouldEqual, instrument.Runtime{}.TimeLimit(e.Method))

		send := func(msgs ...protocol.Message) (done bool) {
			for _, msg := range msgs {
				var err error
				done, err = p.HandleMessage(msg, writer)
				So(err, ShouldBeNil)
			}
			return done
		}

		Convey("Each stop is answered and the result is built when done", func() {
			So(send(protocol.StartMeasurement{}, ns(10)), ShouldBeFalse)
			So(writer.sent[0], ShouldResemble, protocol.ShouldContinue{Continue: true, WarmupComplete: true})
			So(send(protocol.StartMeasurement{}, ns(20)), ShouldBeFalse)
			So(p.Result(), ShouldBeNil)
			So(send(protocol.StartMeasurement{}, ns(30)), ShouldBeTrue)
			So(writer.sent[2], ShouldResemble, protocol.ShouldContinue{Continue: false, WarmupComplete: true})

			result := p.Result()
			So(result, ShouldNotBeNil)
			So(result.TrialNumber, ShouldEqual, 3)
			So(result.Measurements, ShouldHaveLength, 2)
			So(result.Messages, ShouldBeEmpty)
			So(result.Experiment.Equal(e), ShouldBeTrue)
		})

		Convey("Worker failure is a trial failure", func() {
			_, err := p.HandleMessage(protocol.Failure{Type: protocol.FailureUserCode, Message: "boom"}, writer)
			So(failure.IsTrialFailure(err), ShouldBeTrue)
		})

		Convey("Discovery messages are protocol violations", func() {
			_, err := p.HandleMessage(protocol.BenchmarkModel{}, writer)
			So(failure.IsProtocolViolation(err), ShouldBeTrue)
		})

		Convey("Messages mention the trial", func() {
			So(p.TimeoutMessage(), ShouldContainSubstring, "trial 3")
			So(p.PrematureExitMessage(), ShouldContainSubstring, "0 measurement(s)")
			So(p.InterruptedMessage(), ShouldContainSubstring, "Fib")
		})
	})

	Convey("Command is built from the target", t, func() {
		e := newExperiment(nil)
		command := CommandFor(e.Target)
		So(command.Executable, ShouldEqual, "/bin/worker")
		So(command.Args, ShouldResemble, []string{"-v"})
		So(command.Env, ShouldResemble, []string{"GOGC=100"})
	})
}
