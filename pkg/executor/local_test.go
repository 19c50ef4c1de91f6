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

package executor

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
)

func shell(script string) Command {
	return Command{Executable: "sh", Args: []string{"-c", script}}
}

// TestLocal tests the execution of process on local machine.
func TestLocal(t *testing.T) {
	log.SetLevel(log.ErrorLevel)

	Convey("While using Local launcher", t, func() {
		l := NewLocalWithKillTimeout(2 * time.Second)
		output, err := NewOutputLog(t.TempDir(), "local")
		So(err, ShouldBeNil)
		defer output.Close()

		Convey("When blocking sleep command is executed", func() {
			task, err := l.Start(shell("sleep 300"), output.File())
			So(err, ShouldBeNil)

			Convey("Task should be still running and exit code not available", func() {
				So(task.Status(), ShouldEqual, RUNNING)
				_, err := task.ExitCode()
				So(err, ShouldNotBeNil)
				So(task.Stop(), ShouldBeNil)
			})

			Convey("When we wait for task termination with the 1ms timeout", func() {
				isTaskTerminated := task.Wait(1 * time.Millisecond)

				Convey("The timeout should exceed and the task not terminated ", func() {
					So(isTaskTerminated, ShouldBeFalse)
					So(task.Status(), ShouldEqual, RUNNING)
				})

				So(task.Stop(), ShouldBeNil)
			})

			Convey("When we stop the task it is terminated by SIGTERM", func() {
				So(task.Stop(), ShouldBeNil)
				So(task.Status(), ShouldEqual, TERMINATED)
				exitCode, err := task.ExitCode()
				So(err, ShouldBeNil)
				So(exitCode, ShouldEqual, -15)

				Convey("And subsequent stops and kills are no-ops", func() {
					So(task.Stop(), ShouldBeNil)
					So(task.Kill(), ShouldBeNil)
				})
			})

			Convey("When we kill the task it is terminated by SIGKILL", func() {
				So(task.Kill(), ShouldBeNil)
				exitCode, err := task.ExitCode()
				So(err, ShouldBeNil)
				So(exitCode, ShouldEqual, -9)
			})
		})

		Convey("When a task ignoring SIGTERM is stopped it is killed after kill timeout", func() {
			l = NewLocalWithKillTimeout(200 * time.Millisecond)
			task, err := l.Start(shell("trap '' TERM; sleep 300"), output.File())
			So(err, ShouldBeNil)
			// Give shell a moment to install the trap.
			time.Sleep(100 * time.Millisecond)

			So(task.Stop(), ShouldBeNil)
			So(task.Status(), ShouldEqual, TERMINATED)
		})

		Convey("When command `echo output; exit 3` is executed", func() {
			task, err := l.Start(shell("echo output; exit 3"), output.File())
			So(err, ShouldBeNil)
			So(task.Wait(0), ShouldBeTrue)

			Convey("The exit code is reported and output is captured in the log", func() {
				exitCode, err := task.ExitCode()
				So(err, ShouldBeNil)
				So(exitCode, ShouldEqual, 3)

				So(output.Close(), ShouldBeNil)
				contents, err := output.Contents()
				So(err, ShouldBeNil)
				So(contents, ShouldEqual, "output\n")
			})

			Convey("Done channel is closed", func() {
				_, open := <-task.Done()
				So(open, ShouldBeFalse)
			})
		})

		Convey("When executable does not exist start fails", func() {
			_, err := l.Start(Command{Executable: "/commandThatDoesNotExists"}, output.File())
			So(err, ShouldNotBeNil)
		})

		Convey("When executable is empty start fails", func() {
			_, err := l.Start(Command{}, output.File())
			So(err, ShouldNotBeNil)
		})
	})
}

func TestCommand(t *testing.T) {
	Convey("When a command is rendered", t, func() {
		cmd := Command{Executable: "/bin/worker", Args: []string{"--trial", "a b"}, Env: []string{"GOGC=50"}}

		Convey("Environment, executable and quoted arguments are shown", func() {
			So(cmd.String(), ShouldEqual, `GOGC=50 /bin/worker --trial "a b"`)
			So(cmd.Name(), ShouldEqual, "worker")
		})

		Convey("WithEnv does not modify the original command", func() {
			other := cmd.WithEnv("X=1")
			So(other.Env, ShouldResemble, []string{"GOGC=50", "X=1"})
			So(cmd.Env, ShouldResemble, []string{"GOGC=50"})
		})
	})
}
