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

// Package stream implements the worker channel: one child process and a
// framed, bidirectional message stream to it over a loopback socket.
package stream

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/intelsdi-x/caliper/pkg/executor"
	"github.com/intelsdi-x/caliper/pkg/failure"
	"github.com/intelsdi-x/caliper/pkg/protocol"
	errcollection "github.com/intelsdi-x/caliper/pkg/utils/err_collection"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// AddressEnv is the environment variable the worker reads the host address from.
const AddressEnv = "CALIPER_WORKER_ADDR"

const (
	defaultConnectTimeout = 30 * time.Second
	defaultStopTimeout    = 5 * time.Second
)

// ItemKind tags the values read from the channel.
type ItemKind int

const (
	// Data item carries a message.
	Data ItemKind = iota
	// EOF means the stream reached end of input.
	EOF
	// Timeout means nothing arrived within the requested time.
	Timeout
)

func (k ItemKind) String() string {
	switch k {
	case Data:
		return "DATA"
	case EOF:
		return "EOF"
	case Timeout:
		return "TIMEOUT"
	}
	return fmt.Sprintf("ItemKind(%d)", int(k))
}

// Item is a single value read from the channel.
type Item struct {
	Kind    ItemKind
	Message protocol.Message
}

// Options configure a Channel.
type Options struct {
	// Output receives stdout and stderr of the worker.
	Output io.Writer
	// Registrar gets a kill hook for the worker while the channel is alive.
	Registrar *executor.Registrar
	// Launcher starts the process. Defaults to executor.NewLocal().
	Launcher Launcher
	// ConnectTimeout bounds the time the worker has to connect back.
	ConnectTimeout time.Duration
	// StopTimeout bounds graceful shutdown before the worker is killed.
	StopTimeout time.Duration
}

// Launcher starts worker processes.
type Launcher interface {
	Start(command executor.Command, output io.Writer) (executor.TaskHandle, error)
}

// Channel owns one worker process and the stream to it.
// A Channel goes through its lifecycle exactly once.
type Channel struct {
	command executor.Command
	opts    Options

	mu    sync.Mutex
	state State

	listener   net.Listener
	conn       net.Conn
	halfClosed bool
	encoder    *protocol.Encoder
	handle     executor.TaskHandle
	deregister func()

	// reads carries decoded items; it is closed after EOF or a stream error.
	reads     chan read
	closed    chan struct{}
	eof       bool
	streamErr error

	stopOnce sync.Once
	stopErr  error
}

type read struct {
	msg protocol.Message
	err error
}

// New returns a Channel for the command. Nothing is started until Start.
func New(command executor.Command, opts Options) *Channel {
	if opts.Launcher == nil {
		opts.Launcher = executor.NewLocal()
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.StopTimeout == 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	return &Channel{
		command: command,
		opts:    opts,
		state:   NEW,
		reads:   make(chan read, 16),
		closed:  make(chan struct{}),
	}
}

// State returns the lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// transition moves the channel to the next state. It returns false when the
// transition would revisit a state.
func (c *Channel) transition(to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.canMoveTo(to) {
		return false
	}
	log.Debugf("stream: %s %s -> %s", c.command.Name(), c.state, to)
	c.state = to
	if to.IsTerminal() && c.deregister != nil {
		c.deregister()
	}
	return true
}

// Command returns the command the channel runs.
func (c *Channel) Command() executor.Command {
	return c.command
}

// Start launches the process and waits for it to connect.
func (c *Channel) Start() error {
	if c.State() != NEW {
		return errors.Errorf("channel for %q was already started", c.command.Name())
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		c.transition(FAILED)
		return failure.Launch(c.command.String(), errors.Wrap(err, "cannot listen for worker"))
	}
	c.listener = listener

	command := c.command.WithEnv(fmt.Sprintf("%s=%s", AddressEnv, listener.Addr().String()))
	handle, err := c.opts.Launcher.Start(command, c.opts.Output)
	if err != nil {
		listener.Close()
		c.transition(FAILED)
		return failure.Launch(c.command.String(), err)
	}

	c.mu.Lock()
	c.handle = handle
	if c.opts.Registrar != nil {
		c.deregister = c.opts.Registrar.Register(handle)
	}
	c.mu.Unlock()

	accepted := make(chan net.Conn, 1)
	acceptErr := make(chan error, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- conn
	}()

	select {
	case conn := <-accepted:
		c.connected(conn)
		return nil

	case <-handle.Done():
		// A short lived worker may have connected and exited already.
		conn, err := acceptAfterExit(listener, accepted, acceptErr)
		if err != nil {
			c.failLaunch(handle)
			return failure.Launch(c.command.String(), errors.Wrap(err, "accepting worker connection failed"))
		}
		if conn != nil {
			c.connected(conn)
			return nil
		}
		// Worker exited before connecting. Its stream is empty: the supervisor
		// sees EOF and reports a premature exit.
		log.Debugf("stream: %s exited before connecting", handle)
		listener.Close()
		c.transition(RUNNING)
		close(c.reads)
		return nil

	case err := <-acceptErr:
		c.failLaunch(handle)
		return failure.Launch(c.command.String(), errors.Wrap(err, "accepting worker connection failed"))

	case <-time.After(c.opts.ConnectTimeout):
		c.failLaunch(handle)
		return failure.Launch(c.command.String(),
			errors.Errorf("worker did not connect within %s", c.opts.ConnectTimeout))
	}
}

// acceptAfterExit returns the connection of a worker that has exited, or nil
// when it never connected. The listener queues connections in order, so a
// worker connection made before the exit is accepted ahead of a marker
// connection dialed afterwards.
func acceptAfterExit(listener net.Listener, accepted <-chan net.Conn, acceptErr <-chan error) (net.Conn, error) {
	marker, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to own listener")
	}
	defer marker.Close()

	select {
	case conn := <-accepted:
		if conn.RemoteAddr().String() == marker.LocalAddr().String() {
			conn.Close()
			return nil, nil
		}
		return conn, nil
	case err := <-acceptErr:
		return nil, err
	}
}

func (c *Channel) connected(conn net.Conn) {
	c.conn = conn
	c.encoder = protocol.NewEncoder(conn)
	c.transition(RUNNING)
	go c.readLoop(protocol.NewDecoder(conn))
}

func (c *Channel) failLaunch(handle executor.TaskHandle) {
	c.listener.Close()
	if err := handle.Kill(); err != nil {
		log.Errorf("stream: cannot kill %s: %v", handle, err)
	}
	c.transition(FAILED)
}

func (c *Channel) readLoop(decoder *protocol.Decoder) {
	defer close(c.reads)
	for {
		msg, err := decoder.Decode()
		if err == io.EOF {
			return
		}
		if err != nil {
			if isClosedConn(err) {
				return
			}
			c.push(read{err: err})
			return
		}
		if !c.push(read{msg: msg}) {
			return
		}
	}
}

// push hands r to the reader unless the channel is shutting down.
func (c *Channel) push(r read) bool {
	select {
	case c.reads <- r:
		return true
	case <-c.closed:
		return false
	}
}

func isClosedConn(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

// ReadItem blocks until a message arrives, the stream ends or timeout elapses.
// It returns ctx.Err() when ctx is cancelled first.
func (c *Channel) ReadItem(ctx context.Context, timeout time.Duration) (Item, error) {
	if c.eof {
		return Item{Kind: EOF}, nil
	}
	if c.streamErr != nil {
		return Item{}, c.streamErr
	}
	if timeout <= 0 {
		// Do not block, but still report anything already buffered.
		select {
		case r, ok := <-c.reads:
			return c.deliver(r, ok)
		default:
			return Item{Kind: Timeout}, nil
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r, ok := <-c.reads:
		return c.deliver(r, ok)
	case <-timer.C:
		return Item{Kind: Timeout}, nil
	case <-ctx.Done():
		return Item{}, ctx.Err()
	}
}

func (c *Channel) deliver(r read, ok bool) (Item, error) {
	if !ok {
		c.eof = true
		return Item{Kind: EOF}, nil
	}
	if r.err != nil {
		c.streamErr = failure.Violationf("malformed stream from %s: %v", c.command.Name(), r.err)
		c.Fail(c.streamErr)
		return Item{}, c.streamErr
	}
	return Item{Kind: Data, Message: r.msg}, nil
}

// SendMessage writes one framed message to the worker.
func (c *Channel) SendMessage(msg protocol.Message) error {
	if c.encoder == nil {
		return errors.Errorf("cannot send %s: worker %q is not connected", msg.Kind(), c.command.Name())
	}
	return c.encoder.Encode(msg)
}

// CloseWriter half closes the outbound side so that the worker sees no more
// requests are coming. Only the first call has an effect.
func (c *Channel) CloseWriter() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.halfClosed {
		return nil
	}
	c.halfClosed = true
	if tcp, ok := c.conn.(*net.TCPConn); ok {
		// ENOTCONN: the worker has already closed the connection.
		if err := tcp.CloseWrite(); err != nil && !isClosedConn(err) && !errors.Is(err, syscall.ENOTCONN) {
			return errors.Wrap(err, "cannot half close worker connection")
		}
	}
	return nil
}

// Fail marks the channel as failed. The process is not touched.
func (c *Channel) Fail(reason error) {
	if c.transition(FAILED) {
		log.Debugf("stream: %s failed: %v", c.command.Name(), reason)
	}
}

// ExitCode returns exit code of the worker once it has terminated.
func (c *Channel) ExitCode() (int, error) {
	c.mu.Lock()
	handle := c.handle
	c.mu.Unlock()
	if handle == nil {
		return -1, errors.New("worker was not started")
	}
	return handle.ExitCode()
}

// Handle returns the process handle. It is nil before Start.
func (c *Channel) Handle() executor.TaskHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// Stop gives the worker StopTimeout to exit after its input is closed, then
// kills it. It is idempotent.
func (c *Channel) Stop() error {
	c.stopOnce.Do(func() {
		c.stopErr = c.shutdown(false)
	})
	return c.stopErr
}

// Kill terminates the worker immediately. It is idempotent.
func (c *Channel) Kill() error {
	c.stopOnce.Do(func() {
		c.stopErr = c.shutdown(true)
	})
	return c.stopErr
}

func (c *Channel) shutdown(force bool) error {
	c.transition(STOPPING)
	defer close(c.closed)

	var errs errcollection.ErrorCollection
	handle := c.Handle()

	if handle != nil && !force {
		errs.Add(c.CloseWriter())
		if !handle.Wait(c.opts.StopTimeout) {
			log.Warnf("stream: %s did not exit within %s, killing", handle, c.opts.StopTimeout)
			force = true
		}
	}
	if handle != nil && force {
		errs.Add(handle.Kill())
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !isClosedConn(err) {
			errs.Add(err)
		}
	}
	if c.listener != nil {
		if err := c.listener.Close(); err != nil && !isClosedConn(err) {
			errs.Add(err)
		}
	}

	c.transition(TERMINATED)
	c.mu.Lock()
	if c.deregister != nil {
		c.deregister()
	}
	c.mu.Unlock()

	return errs.GetErrIfAny()
}
