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

package instrument

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Options shared by instruments.
const (
	OptionTimeLimit = "timeLimit"
)

// InvalidOptionError means an instrument option is unknown or malformed.
type InvalidOptionError struct {
	Instrument string
	Option     string
	Reason     string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid option %q for instrument %s: %s", e.Option, e.Instrument, e.Reason)
}

// IsInvalidOption reports whether err is caused by an InvalidOptionError.
func IsInvalidOption(err error) bool {
	_, ok := errors.Cause(err).(*InvalidOptionError)
	return ok
}

// mergeOptions overlays user options on defaults. Unknown keys are rejected.
func mergeOptions(instrument string, defaults, user map[string]string) (map[string]string, error) {
	merged := make(map[string]string, len(defaults))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range user {
		if _, ok := defaults[k]; !ok {
			return nil, errors.WithStack(&InvalidOptionError{Instrument: instrument, Option: k, Reason: "unknown option"})
		}
		merged[k] = v
	}
	return merged, nil
}

// optionReader parses typed option values and remembers the first error.
type optionReader struct {
	instrument string
	options    map[string]string
	err        error
}

func (r *optionReader) fail(option string, err error) {
	if r.err == nil {
		r.err = errors.WithStack(&InvalidOptionError{Instrument: r.instrument, Option: option, Reason: err.Error()})
	}
}

func (r *optionReader) duration(option string) time.Duration {
	d, err := time.ParseDuration(r.options[option])
	if err != nil {
		r.fail(option, err)
		return 0
	}
	if d < 0 {
		r.fail(option, errors.New("must not be negative"))
	}
	return d
}

func (r *optionReader) positiveInt(option string) int {
	n, err := strconv.Atoi(r.options[option])
	if err != nil {
		r.fail(option, err)
		return 0
	}
	if n < 1 {
		r.fail(option, errors.New("must be positive"))
	}
	return n
}

func (r *optionReader) boolean(option string) bool {
	b, err := strconv.ParseBool(r.options[option])
	if err != nil {
		r.fail(option, err)
	}
	return b
}
