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

package scheduler

import (
	"context"
	"sync"

	"github.com/intelsdi-x/caliper/pkg/trial"
)

// Future is the pending outcome of one scheduled trial.
type Future struct {
	trial  ScheduledTrial
	cancel context.CancelFunc

	done   chan struct{}
	result trial.Result
	err    error

	mu        sync.Mutex
	completed bool
	listeners []func()
}

func newFuture(t ScheduledTrial, cancel context.CancelFunc) *Future {
	if cancel == nil {
		cancel = func() {}
	}
	return &Future{trial: t, cancel: cancel, done: make(chan struct{})}
}

// Trial returns the trial the outcome belongs to.
func (f *Future) Trial() ScheduledTrial {
	return f.trial
}

// Done is closed once the outcome is known.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the outcome is known.
func (f *Future) Get() (trial.Result, error) {
	<-f.done
	return f.result, f.err
}

// Cancel cancels the context the trial runs with. A trial that already
// finished is not affected.
func (f *Future) Cancel() {
	f.cancel()
}

// AddListener registers fn to be called once the outcome is known. It is
// called immediately when the future is already complete.
func (f *Future) AddListener(fn func()) {
	f.mu.Lock()
	if !f.completed {
		f.listeners = append(f.listeners, fn)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	fn()
}

// complete sets the outcome. Only the first call has an effect.
func (f *Future) complete(t ScheduledTrial, result trial.Result, err error) {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return
	}
	f.completed = true
	f.trial = t
	f.result = result
	f.err = err
	listeners := f.listeners
	f.listeners = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// WhenAllComplete returns a channel closed once every future is complete,
// whether it succeeded or not.
func WhenAllComplete(futures ...*Future) <-chan struct{} {
	signals := make([]<-chan struct{}, 0, len(futures))
	for _, f := range futures {
		signals = append(signals, f.Done())
	}
	return afterAll(signals...)
}

// afterAll returns a channel closed once every signal is closed.
func afterAll(signals ...<-chan struct{}) <-chan struct{} {
	all := make(chan struct{})
	go func() {
		defer close(all)
		for _, s := range signals {
			<-s
		}
	}()
	return all
}

// InCompletionOrder returns one output future per input. Outputs resolve in
// the order the inputs complete: whenever an input completes, the earliest
// unresolved output takes its outcome.
func InCompletionOrder(futures []*Future) []*Future {
	outputs := make([]*Future, len(futures))
	for i := range outputs {
		outputs[i] = newFuture(ScheduledTrial{}, nil)
	}

	var mu sync.Mutex
	pending := append([]*Future(nil), outputs...)
	for _, input := range futures {
		input := input
		input.AddListener(func() {
			mu.Lock()
			slot := pending[0]
			pending = pending[1:]
			// Completing under the lock keeps slot order equal to completion order.
			slot.complete(input.trial, input.result, input.err)
			mu.Unlock()
		})
	}
	return outputs
}
