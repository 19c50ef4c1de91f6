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

package conf

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"
)

// flagType is an internal interface for all flags. Every flag knows its
// environment variable and how to clear it.
type flagType interface {
	envName() string
	clear()
	defaultString() string
}

// definedFlags stores all the defined flags by name. Redefinition with the
// same type and default returns the existing flag.
var definedFlags = map[string]flagType{}

// cliAndEnvFlag is an option settable from CLI and environment variable.
type cliAndEnvFlag struct {
	*kingpin.FlagClause
}

func newCliAndEnvFlag(flagName string, description string, defaultValues ...string) *cliAndEnvFlag {
	if definedFlags[flagName] != nil {
		panic(fmt.Sprintf("flag %q was already defined", flagName))
	}

	c := &cliAndEnvFlag{FlagClause: app.Flag(flagName, description)}
	c.OverrideDefaultFromEnvar(c.envName())

	for _, defaultValue := range defaultValues {
		if defaultValue == "" {
			continue
		}
		c.Default(defaultValue)
	}

	return c
}

func envNameFor(flagName string) string {
	return fmt.Sprintf("%s_%s", EnvPrefix, strings.ToUpper(flagName))
}

// envName returns name converted to environment variable name, for instance
// "worker_log_dir" becomes "CALIPER_WORKER_LOG_DIR".
func (f *cliAndEnvFlag) envName() string {
	return envNameFor(f.Model().Name)
}

// clear unsets the corresponding environment variable.
func (f *cliAndEnvFlag) clear() {
	os.Unsetenv(f.envName())
}

// redefined returns the flag already registered under flagName. It panics when
// that flag has another type or default.
func redefined(flagName string, flagDef flagType, defaultValue string) flagType {
	existing := definedFlags[flagName]
	if existing == nil {
		return nil
	}
	if reflect.TypeOf(existing) != reflect.TypeOf(flagDef) {
		panic(fmt.Sprintf("flag %q was redefined with a different type", flagName))
	}
	if existing.defaultString() != defaultValue {
		panic(fmt.Sprintf("flag %q was redefined with a different default value", flagName))
	}
	return existing
}

func register(flagName string, flagDef flagType) {
	definedFlags[flagName] = flagDef
	isEnvParsed = false
}

// StringFlag represents flag with string value.
type StringFlag struct {
	*cliAndEnvFlag
	defaultValue string
	value        *string
}

func (s *StringFlag) defaultString() string { return s.defaultValue }

// NewStringFlag is a constructor of StringFlag struct.
func NewStringFlag(flagName string, description string, defaultValue string) *StringFlag {
	if existing := redefined(flagName, &StringFlag{}, defaultValue); existing != nil {
		return existing.(*StringFlag)
	}

	flagDef := &StringFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, defaultValue),
		defaultValue:  defaultValue,
	}
	flagDef.value = flagDef.String()
	register(flagName, flagDef)
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (s *StringFlag) Value() string {
	if !isEnvParsed {
		return s.defaultValue
	}
	return *s.value
}

// FileFlag represents flag with a path to an existing file.
type FileFlag struct {
	*StringFlag
}

// NewFileFlag is a constructor of FileFlag struct. Parsing fails when the file does not exist.
func NewFileFlag(flagName string, description string, defaultValue string) *FileFlag {
	if existing := redefined(flagName, &FileFlag{}, defaultValue); existing != nil {
		return existing.(*FileFlag)
	}

	flagDef := &FileFlag{
		StringFlag: &StringFlag{
			cliAndEnvFlag: newCliAndEnvFlag(flagName, description, defaultValue),
			defaultValue:  defaultValue,
		},
	}
	flagDef.value = flagDef.ExistingFile()
	register(flagName, flagDef)
	return flagDef
}

// IntFlag represents flag with int value.
type IntFlag struct {
	*cliAndEnvFlag
	defaultValue int
	value        *int
}

func (i *IntFlag) defaultString() string { return fmt.Sprintf("%d", i.defaultValue) }

// NewIntFlag is a constructor of IntFlag struct.
func NewIntFlag(flagName string, description string, defaultValue int) *IntFlag {
	if existing := redefined(flagName, &IntFlag{}, fmt.Sprintf("%d", defaultValue)); existing != nil {
		return existing.(*IntFlag)
	}

	flagDef := &IntFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, fmt.Sprintf("%d", defaultValue)),
		defaultValue:  defaultValue,
	}
	flagDef.value = flagDef.Int()
	register(flagName, flagDef)
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (i *IntFlag) Value() int {
	if !isEnvParsed {
		return i.defaultValue
	}
	return *i.value
}

// SliceFlag represents flag with slice value. It can be repeated and every
// occurrence may hold several comma separated elements.
type SliceFlag struct {
	*cliAndEnvFlag
	defaultValue []string
	value        *[]string
}

func (s *SliceFlag) defaultString() string { return strings.Join(s.defaultValue, stringListDelimiter) }

// NewSliceFlag is a constructor of SliceFlag struct.
func NewSliceFlag(flagName string, description string, elemsInDefaultSlice ...string) *SliceFlag {
	joined := strings.Join(elemsInDefaultSlice, stringListDelimiter)
	if existing := redefined(flagName, &SliceFlag{}, joined); existing != nil {
		return existing.(*SliceFlag)
	}

	flagDef := &SliceFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, joined),
		defaultValue:  elemsInDefaultSlice,
	}
	flagDef.value = StringList(flagDef)
	register(flagName, flagDef)
	return flagDef
}

// Value returns value of defined flag after parse.
func (s *SliceFlag) Value() []string {
	if !isEnvParsed {
		return append([]string{}, s.defaultValue...)
	}
	return append([]string{}, *s.value...)
}

// reset drops values accumulated by a previous parse.
func (s *SliceFlag) reset() {
	*s.value = (*s.value)[:0]
}

// BoolFlag represents flag with bool value.
type BoolFlag struct {
	*cliAndEnvFlag
	defaultValue bool
	value        *bool
}

func (b *BoolFlag) defaultString() string { return fmt.Sprintf("%v", b.defaultValue) }

// NewBoolFlag is a constructor of BoolFlag struct.
func NewBoolFlag(flagName string, description string, defaultValue bool) *BoolFlag {
	if existing := redefined(flagName, &BoolFlag{}, fmt.Sprintf("%v", defaultValue)); existing != nil {
		return existing.(*BoolFlag)
	}

	flagDef := &BoolFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, fmt.Sprintf("%v", defaultValue)),
		defaultValue:  defaultValue,
	}
	flagDef.value = flagDef.Bool()
	register(flagName, flagDef)
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (b *BoolFlag) Value() bool {
	if !isEnvParsed {
		return b.defaultValue
	}
	return *b.value
}

// DurationFlag represents flag with duration value.
type DurationFlag struct {
	*cliAndEnvFlag
	defaultValue time.Duration
	value        *time.Duration
}

func (d *DurationFlag) defaultString() string { return d.defaultValue.String() }

// NewDurationFlag is a constructor of DurationFlag struct.
func NewDurationFlag(flagName string, description string, defaultValue time.Duration) *DurationFlag {
	if existing := redefined(flagName, &DurationFlag{}, defaultValue.String()); existing != nil {
		return existing.(*DurationFlag)
	}

	flagDef := &DurationFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, defaultValue.String()),
		defaultValue:  defaultValue,
	}
	flagDef.value = flagDef.Duration()
	register(flagName, flagDef)
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (d *DurationFlag) Value() time.Duration {
	if !isEnvParsed {
		return d.defaultValue
	}
	return *d.value
}

// resetSlices clears every slice flag so that parsing again does not append
// to values from an earlier parse.
func resetSlices() {
	for _, flag := range definedFlags {
		if slice, ok := flag.(*SliceFlag); ok {
			slice.reset()
		}
	}
}
