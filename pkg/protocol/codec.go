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

package protocol

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// envelope is the frame written on the wire: one JSON object per line.
type envelope struct {
	Kind Kind            `json:"kind"`
	Body json.RawMessage `json:"body,omitempty"`
}

// Encoder writes newline delimited messages. It is safe for concurrent use.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes one framed message.
func (e *Encoder) Encode(msg Message) error {
	frame, err := Marshal(msg)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(frame); err != nil {
		return errors.Wrapf(err, "writing %s message failed", msg.Kind())
	}
	return nil
}

// SendMessage implements Writer.
func (e *Encoder) SendMessage(msg Message) error {
	return e.Encode(msg)
}

// Marshal returns a frame for msg including the trailing newline.
func Marshal(msg Message) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot marshal %s message", msg.Kind())
	}
	frame, err := json.Marshal(envelope{Kind: msg.Kind(), Body: body})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot marshal %s envelope", msg.Kind())
	}
	return append(frame, '\n'), nil
}

// Decoder reads newline delimited messages.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads the next message. It returns io.EOF when the stream ends on a
// frame boundary.
func (d *Decoder) Decode() (Message, error) {
	for {
		line, err := d.r.ReadBytes('\n')
		if len(line) == 0 || (len(line) == 1 && line[0] == '\n') {
			if err == io.EOF {
				return nil, io.EOF
			}
			if err != nil {
				return nil, errors.Wrap(err, "reading frame failed")
			}
			// Skip empty lines.
			continue
		}
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "reading frame failed")
		}
		return Unmarshal(line)
	}
}

// Unmarshal decodes a single frame.
func Unmarshal(frame []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, errors.Wrapf(err, "malformed frame %q", string(frame))
	}

	msg, err := newMessage(env.Kind)
	if err != nil {
		return nil, err
	}
	if len(env.Body) > 0 {
		if err := json.Unmarshal(env.Body, msg); err != nil {
			return nil, errors.Wrapf(err, "malformed %s body", env.Kind)
		}
	}
	return deref(msg), nil
}

func newMessage(kind Kind) (Message, error) {
	switch kind {
	case KindModelRequest:
		return &ModelRequest{}, nil
	case KindDryRunRequest:
		return &DryRunRequest{}, nil
	case KindTrialRequest:
		return &TrialRequest{}, nil
	case KindShouldContinue:
		return &ShouldContinue{}, nil
	case KindStartMeasurement:
		return &StartMeasurement{}, nil
	case KindStopMeasurement:
		return &StopMeasurement{}, nil
	case KindRuntimeEvent:
		return &RuntimeEvent{}, nil
	case KindFailure:
		return &Failure{}, nil
	case KindBenchmarkModel:
		return &BenchmarkModel{}, nil
	case KindDryRunSuccess:
		return &DryRunSuccess{}, nil
	}
	return nil, errors.Errorf("unknown message kind %q", kind)
}

// deref turns the pointer used for decoding back into the value type so that
// type switches always see values.
func deref(msg Message) Message {
	switch m := msg.(type) {
	case *ModelRequest:
		return *m
	case *DryRunRequest:
		return *m
	case *TrialRequest:
		return *m
	case *ShouldContinue:
		return *m
	case *StartMeasurement:
		return *m
	case *StopMeasurement:
		return *m
	case *RuntimeEvent:
		return *m
	case *Failure:
		return *m
	case *BenchmarkModel:
		return *m
	case *DryRunSuccess:
		return *m
	}
	return msg
}
