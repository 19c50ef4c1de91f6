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
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"
)

// Registrar keeps track of running worker processes, so that an interrupted
// host process does not leave orphans. It is owned by the run and passed down
// to every worker channel.
type Registrar struct {
	sync.Mutex
	taskHandles map[int]TaskHandle
	nextID      int
}

// NewRegistrar returns an empty Registrar.
func NewRegistrar() *Registrar {
	return &Registrar{taskHandles: map[int]TaskHandle{}}
}

// Register adds the task to the registrar. Returned function removes it
// and is safe to call multiple times.
func (r *Registrar) Register(t TaskHandle) (deregister func()) {
	r.Lock()
	defer r.Unlock()
	id := r.nextID
	r.nextID++
	r.taskHandles[id] = t
	log.Debugf("clean: registered %v", t)

	var once sync.Once
	return func() {
		once.Do(func() {
			r.Lock()
			defer r.Unlock()
			delete(r.taskHandles, id)
			log.Debugf("clean: deregistered %v", t)
		})
	}
}

// Len returns number of registered tasks.
func (r *Registrar) Len() int {
	r.Lock()
	defer r.Unlock()
	return len(r.taskHandles)
}

// KillAll kills all registered tasks, most recently registered first.
func (r *Registrar) KillAll() {
	r.Lock()
	handles := make([]TaskHandle, 0, len(r.taskHandles))
	// Reverse order of registration.
	for i := r.nextID - 1; i >= 0; i-- {
		if t, ok := r.taskHandles[i]; ok {
			handles = append(handles, t)
			delete(r.taskHandles, i)
		}
	}
	r.Unlock()

	for _, t := range handles {
		log.Debugf("clean: killing '%v'...", t)
		if err := t.Kill(); err != nil {
			log.Errorf("clean: cannot kill '%v': %v", t, err)
		}
	}
}

// HandleInterrupt kills all registered tasks when SIGINT or SIGTERM arrives
// and then exits the process. Returned function stops the handling.
func (r *Registrar) HandleInterrupt() (stop func()) {
	c := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	log.Debugf("clean: interrupt handle initialized")

	go func() {
		select {
		case sig := <-c:
			log.Warnf("clean: killing %d worker(s) on signal '%v'", r.Len(), sig)
			r.KillAll()
			os.Exit(1)
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(c)
			close(done)
		})
	}
}
