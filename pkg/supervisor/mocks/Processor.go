package mocks

import (
	"time"

	"github.com/intelsdi-x/caliper/pkg/protocol"
	"github.com/stretchr/testify/mock"
)

// Processor mock
type Processor struct {
	mock.Mock
}

// TimeLimit provides a mock function with given fields:
func (_m *Processor) TimeLimit() time.Duration {
	ret := _m.Called()

	var r0 time.Duration
	if rf, ok := ret.Get(0).(func() time.Duration); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(time.Duration)
	}

	return r0
}

// HandleMessage provides a mock function with given fields: msg, writer
func (_m *Processor) HandleMessage(msg protocol.Message, writer protocol.Writer) (bool, error) {
	ret := _m.Called(msg, writer)

	var r0 bool
	if rf, ok := ret.Get(0).(func(protocol.Message, protocol.Writer) bool); ok {
		r0 = rf(msg, writer)
	} else {
		r0 = ret.Get(0).(bool)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(protocol.Message, protocol.Writer) error); ok {
		r1 = rf(msg, writer)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// InterruptedMessage provides a mock function with given fields:
func (_m *Processor) InterruptedMessage() string {
	ret := _m.Called()

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// PrematureExitMessage provides a mock function with given fields:
func (_m *Processor) PrematureExitMessage() string {
	ret := _m.Called()

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// TimeoutMessage provides a mock function with given fields:
func (_m *Processor) TimeoutMessage() string {
	ret := _m.Called()

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}
