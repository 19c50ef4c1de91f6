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

package stream

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/intelsdi-x/caliper/pkg/executor"
	"github.com/intelsdi-x/caliper/pkg/failure"
	"github.com/intelsdi-x/caliper/pkg/protocol"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
)

const helperEnv = "CALIPER_STREAM_TEST_HELPER"

// TestMain lets the test binary act as a worker when helperEnv is set.
func TestMain(m *testing.M) {
	if mode := os.Getenv(helperEnv); mode != "" {
		os.Exit(runHelper(mode))
	}
	os.Exit(m.Run())
}

func runHelper(mode string) int {
	conn, err := net.Dial("tcp", os.Getenv(AddressEnv))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer conn.Close()

	switch mode {
	case "echo":
		// Send every message back until the host closes its side.
		decoder := protocol.NewDecoder(conn)
		encoder := protocol.NewEncoder(conn)
		for {
			msg, err := decoder.Decode()
			if err == io.EOF {
				return 0
			}
			if err != nil {
				return 3
			}
			encoder.Encode(msg)
		}
	case "silent":
		io.Copy(io.Discard, conn)
		return 0
	case "burst":
		// Report and exit without waiting for the host.
		protocol.NewEncoder(conn).Encode(protocol.StartMeasurement{})
		return 0
	case "garbage":
		fmt.Fprintln(conn, "this is not a frame")
		io.Copy(io.Discard, conn)
		return 0
	}
	return 4
}

func helper(mode string) executor.Command {
	return executor.Command{
		Executable: os.Args[0],
		Args:       []string{"-test.run=^$"},
		Env:        []string{helperEnv + "=" + mode},
	}
}

func shell(script string) executor.Command {
	return executor.Command{Executable: "sh", Args: []string{"-c", script}}
}

func TestChannel(t *testing.T) {
	log.SetLevel(log.ErrorLevel)

	Convey("While using worker channel", t, func() {
		registrar := executor.NewRegistrar()
		opts := Options{
			Registrar:      registrar,
			ConnectTimeout: 5 * time.Second,
			StopTimeout:    2 * time.Second,
		}
		ctx := context.Background()

		Convey("When worker echoes messages", func() {
			channel := New(helper("echo"), opts)
			So(channel.State(), ShouldEqual, NEW)
			So(channel.Start(), ShouldBeNil)
			So(channel.State(), ShouldEqual, RUNNING)
			So(registrar.Len(), ShouldEqual, 1)

			Convey("Sent message is read back as DATA", func() {
				So(channel.SendMessage(protocol.ShouldContinue{Continue: true}), ShouldBeNil)
				item, err := channel.ReadItem(ctx, 5*time.Second)
				So(err, ShouldBeNil)
				So(item.Kind, ShouldEqual, Data)
				So(item.Message, ShouldResemble, protocol.ShouldContinue{Continue: true})
				So(channel.Stop(), ShouldBeNil)
			})

			Convey("Closing writer makes the worker exit and reader sees EOF repeatedly", func() {
				So(channel.CloseWriter(), ShouldBeNil)
				item, err := channel.ReadItem(ctx, 5*time.Second)
				So(err, ShouldBeNil)
				So(item.Kind, ShouldEqual, EOF)
				item, err = channel.ReadItem(ctx, time.Millisecond)
				So(err, ShouldBeNil)
				So(item.Kind, ShouldEqual, EOF)
				So(channel.Stop(), ShouldBeNil)

				exitCode, err := channel.ExitCode()
				So(err, ShouldBeNil)
				So(exitCode, ShouldEqual, 0)
			})

			Convey("Closing writer again after the worker exited is not an error", func() {
				So(channel.CloseWriter(), ShouldBeNil)
				So(channel.Handle().Wait(5*time.Second), ShouldBeTrue)
				So(channel.CloseWriter(), ShouldBeNil)
				So(channel.Stop(), ShouldBeNil)
				So(channel.State(), ShouldEqual, TERMINATED)
			})

			Convey("Stop is idempotent and terminal", func() {
				So(channel.Stop(), ShouldBeNil)
				So(channel.Stop(), ShouldBeNil)
				So(channel.Kill(), ShouldBeNil)
				So(channel.State(), ShouldEqual, TERMINATED)
				So(registrar.Len(), ShouldEqual, 0)

				Convey("And the channel cannot be started again", func() {
					So(channel.Start(), ShouldNotBeNil)
					So(channel.State(), ShouldEqual, TERMINATED)
				})
			})
		})

		Convey("When worker stays silent", func() {
			channel := New(helper("silent"), opts)
			So(channel.Start(), ShouldBeNil)
			defer channel.Stop()

			Convey("ReadItem times out and can be called again with a shorter timeout", func() {
				start := time.Now()
				item, err := channel.ReadItem(ctx, 100*time.Millisecond)
				So(err, ShouldBeNil)
				So(item.Kind, ShouldEqual, Timeout)
				So(time.Since(start), ShouldBeGreaterThanOrEqualTo, 100*time.Millisecond)

				item, err = channel.ReadItem(ctx, 0)
				So(err, ShouldBeNil)
				So(item.Kind, ShouldEqual, Timeout)
			})

			Convey("ReadItem returns context error on cancellation", func() {
				cancelled, cancel := context.WithCancel(ctx)
				cancel()
				_, err := channel.ReadItem(cancelled, time.Minute)
				So(err, ShouldEqual, context.Canceled)
			})

			Convey("Kill terminates the worker without waiting", func() {
				So(channel.Kill(), ShouldBeNil)
				So(channel.State(), ShouldEqual, TERMINATED)
			})
		})

		Convey("When worker writes garbage the channel fails with protocol violation", func() {
			channel := New(helper("garbage"), opts)
			So(channel.Start(), ShouldBeNil)
			defer channel.Stop()

			_, err := channel.ReadItem(ctx, 5*time.Second)
			So(err, ShouldNotBeNil)
			So(failure.IsProtocolViolation(err), ShouldBeTrue)
			So(channel.State(), ShouldEqual, FAILED)

			Convey("And stays failed after stop", func() {
				So(channel.Stop(), ShouldBeNil)
				So(channel.State(), ShouldEqual, FAILED)
			})
		})

		Convey("When worker reports and exits before the host reads", func() {
			channel := New(helper("burst"), opts)
			So(channel.Start(), ShouldBeNil)
			defer channel.Stop()
			So(channel.Handle().Wait(5*time.Second), ShouldBeTrue)

			Convey("Its message is still delivered before EOF", func() {
				item, err := channel.ReadItem(ctx, 5*time.Second)
				So(err, ShouldBeNil)
				So(item.Kind, ShouldEqual, Data)
				So(item.Message, ShouldResemble, protocol.StartMeasurement{})
				item, err = channel.ReadItem(ctx, 5*time.Second)
				So(err, ShouldBeNil)
				So(item.Kind, ShouldEqual, EOF)
				So(channel.Stop(), ShouldBeNil)
			})
		})

		Convey("When worker exits immediately with exit code 1", func() {
			channel := New(shell("exit 1"), opts)
			So(channel.Start(), ShouldBeNil)
			defer channel.Stop()

			Convey("Reader sees EOF", func() {
				item, err := channel.ReadItem(ctx, 5*time.Second)
				So(err, ShouldBeNil)
				So(item.Kind, ShouldEqual, EOF)

				exitCode, err := channel.ExitCode()
				So(err, ShouldBeNil)
				So(exitCode, ShouldEqual, 1)
			})
		})

		Convey("When worker never connects start fails with launch error", func() {
			opts.ConnectTimeout = 200 * time.Millisecond
			channel := New(shell("sleep 30"), opts)
			err := channel.Start()
			So(err, ShouldNotBeNil)
			_, ok := errors.Cause(err).(*failure.LaunchError)
			So(ok, ShouldBeTrue)
			So(channel.State(), ShouldEqual, FAILED)
			So(registrar.Len(), ShouldEqual, 0)
			So(channel.Handle().Status(), ShouldEqual, executor.TERMINATED)
		})

		Convey("When executable does not exist start fails with launch error", func() {
			channel := New(executor.Command{Executable: "/not/existing/worker"}, opts)
			err := channel.Start()
			So(failure.IsTrialLevel(err), ShouldBeTrue)
			So(channel.State(), ShouldEqual, FAILED)
		})
	})
}

func TestStateTransitions(t *testing.T) {
	Convey("States only move forward", t, func() {
		So(NEW.canMoveTo(RUNNING), ShouldBeTrue)
		So(RUNNING.canMoveTo(STOPPING), ShouldBeTrue)
		So(STOPPING.canMoveTo(TERMINATED), ShouldBeTrue)
		So(RUNNING.canMoveTo(NEW), ShouldBeFalse)
		So(RUNNING.canMoveTo(RUNNING), ShouldBeFalse)

		Convey("FAILED is reachable from every non terminal state only", func() {
			So(NEW.canMoveTo(FAILED), ShouldBeTrue)
			So(STOPPING.canMoveTo(FAILED), ShouldBeTrue)
			So(TERMINATED.canMoveTo(FAILED), ShouldBeFalse)
			So(FAILED.canMoveTo(TERMINATED), ShouldBeFalse)
		})
	})
}
