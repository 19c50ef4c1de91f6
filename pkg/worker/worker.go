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

package worker

import (
	"io"
	"net"
	"os"

	"github.com/intelsdi-x/caliper/pkg/protocol"
	"github.com/intelsdi-x/caliper/pkg/stream"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Exit codes of a worker process.
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Main serves one request of the host and exits the process.
func Main(suite Suite) {
	os.Exit(Run(suite))
}

// Run connects to the host address found in the environment, serves one
// request and returns the exit code.
func Run(suite Suite) int {
	log.SetOutput(os.Stderr)
	if level, err := log.ParseLevel(os.Getenv("CALIPER_LOG")); err == nil {
		log.SetLevel(level)
	}

	address := os.Getenv(stream.AddressEnv)
	if address == "" {
		log.Errorf("%s is not set: workers are started by caliper", stream.AddressEnv)
		return ExitUsage
	}
	conn, err := net.Dial("tcp", address)
	if err != nil {
		log.Errorf("cannot connect to host at %s: %v", address, err)
		return ExitUsage
	}
	defer conn.Close()

	if err := Serve(conn, suite); err != nil {
		log.Errorf("%s: %v", suite.Name, err)
		return ExitFailure
	}
	return ExitSuccess
}

// session is the worker end of one stream.
type session struct {
	encoder        *protocol.Encoder
	decoder        *protocol.Decoder
	gc             *gcCounter
	warmupComplete bool
}

func (s *session) send(msg protocol.Message) error {
	return s.encoder.Encode(msg)
}

// awaitContinue reads the host answer to a stop measurement message.
func (s *session) awaitContinue() (protocol.ShouldContinue, error) {
	msg, err := s.decoder.Decode()
	if err == io.EOF {
		return protocol.ShouldContinue{}, errHostClosed
	}
	if err != nil {
		return protocol.ShouldContinue{}, err
	}
	answer, ok := msg.(protocol.ShouldContinue)
	if !ok {
		return protocol.ShouldContinue{}, errors.Errorf("expected %s, got %s", protocol.KindShouldContinue, msg.Kind())
	}
	return answer, nil
}

// Serve reads one request from conn and answers it. Errors are reported to
// the host as a failure message before being returned.
func Serve(conn io.ReadWriter, suite Suite) error {
	s := &session{
		encoder: protocol.NewEncoder(conn),
		decoder: protocol.NewDecoder(conn),
		gc:      newGCCounter(),
	}

	msg, err := s.decoder.Decode()
	if err != nil {
		return errors.Wrap(err, "cannot read request")
	}

	switch request := msg.(type) {
	case protocol.ModelRequest:
		err = s.send(suite.Model())
	case protocol.DryRunRequest:
		err = s.dryRun(suite, request)
	case protocol.TrialRequest:
		err = s.trial(suite, request)
	default:
		err = errors.Errorf("unexpected %s request", msg.Kind())
	}

	if err != nil && err != errHostClosed {
		if sendErr := s.send(failureFor(err)); sendErr != nil {
			log.Warnf("cannot report failure to host: %v", sendErr)
		}
	}
	return err
}

func (s *session) dryRun(suite Suite, request protocol.DryRunRequest) error {
	result := protocol.DryRunSuccess{IDs: []int{}}
	for _, spec := range request.Experiments {
		err := dryRunOne(suite, spec)
		switch {
		case err == nil:
			result.IDs = append(result.IDs, spec.ID)
		case errors.Cause(err) == ErrSkip:
			log.Infof("skipping %s%v: %v", spec.Method, spec.Params, err)
			result.Skipped = append(result.Skipped, spec.ID)
		default:
			return errors.Wrapf(err, "dry run of %s%v failed", spec.Method, spec.Params)
		}
	}
	return s.send(result)
}

func dryRunOne(suite Suite, spec protocol.ExperimentSpec) error {
	fn, err := suite.benchmark(spec.Method)
	if err != nil {
		return err
	}
	params := Params(spec.Params)
	if err := suite.setUp(params); err != nil {
		return err
	}
	err = invoke(fn)
	if tearDownErr := suite.tearDown(params); err == nil {
		err = tearDownErr
	}
	return err
}

func (s *session) trial(suite Suite, request protocol.TrialRequest) error {
	spec := request.Experiment
	fn, err := suite.benchmark(spec.Method)
	if err != nil {
		return err
	}
	options, err := parseLoopOptions(spec.Options)
	if err != nil {
		return err
	}

	params := Params(spec.Params)
	if err := suite.setUp(params); err != nil {
		return err
	}
	log.Debugf("trial %d of %s%v with %s", request.TrialNumber, spec.Method, spec.Params, spec.Instrument)
	err = s.measure(spec.Instrument, fn, options)
	if tearDownErr := suite.tearDown(params); tearDownErr != nil {
		// The host has its result already; the failure only reaches the worker log.
		log.Warnf("tear down after trial %d failed: %v", request.TrialNumber, tearDownErr)
	}
	return err
}
