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
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

// Pool runs trials with bounded concurrency. Its size is the only throttle
// on how many workers run at once.
type Pool struct {
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	shutdown bool
}

// NewPool returns a pool running at most size trials at once. Cancelling ctx
// cancels every trial.
func NewPool(ctx context.Context, size int) *Pool {
	if size < 1 {
		size = 1
	}
	poolCtx, cancel := context.WithCancel(ctx)
	return &Pool{sem: semaphore.NewWeighted(int64(size)), ctx: poolCtx, cancel: cancel}
}

// Submit schedules t to run once after is closed. A nil after means right
// away. Waiting for after does not occupy a pool slot.
func (p *Pool) Submit(t ScheduledTrial, after <-chan struct{}) *Future {
	taskCtx, cancel := context.WithCancel(p.ctx)
	future := newFuture(t, cancel)

	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		cancel()
		future.complete(t, trial.Result{}, errors.New("pool is shut down"))
		return future
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer cancel()

		if after != nil {
			select {
			case <-after:
			case <-taskCtx.Done():
				future.complete(t, trial.Result{}, taskCtx.Err())
				return
			}
		}
		if err := p.sem.Acquire(taskCtx, 1); err != nil {
			future.complete(t, trial.Result{}, err)
			return
		}
		defer p.sem.Release(1)

		result, err := t.Run(taskCtx)
		future.complete(t, result, err)
	}()
	return future
}

// Shutdown cancels all trials and waits until they return.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.shutdown = true
	p.mu.Unlock()
	p.cancel()
	p.wg.Wait()
}

// Wait blocks until all submitted trials complete.
func (p *Pool) Wait() {
	p.wg.Wait()
}
