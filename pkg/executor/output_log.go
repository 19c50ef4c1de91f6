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
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/intelsdi-x/caliper/pkg/utils/fs"
	"github.com/pkg/errors"
)

const headerSeparator = "----------------------------------------"

// OutputLog is the self describing file which captures output of a single
// worker invocation.
type OutputLog struct {
	file      *os.File
	closeOnce sync.Once
	closeErr  error
}

// NewOutputLog creates a new log file in dir. The name of the file starts
// with prefix.
func NewOutputLog(dir, prefix string) (*OutputLog, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create output directory %q", dir)
	}

	file, err := ioutil.TempFile(dir, prefix+"_")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create output file for %s", prefix)
	}
	return &OutputLog{file: file}, nil
}

// WriteHeader writes identity lines followed by a separator.
func (o *OutputLog) WriteHeader(lines ...string) error {
	header := strings.Join(lines, "\n") + "\n" + headerSeparator + "\n"
	if _, err := o.file.WriteString(header); err != nil {
		return errors.Wrapf(err, "cannot write header to %q", o.Path())
	}
	return nil
}

// Write implements io.Writer.
func (o *OutputLog) Write(p []byte) (int, error) {
	return o.file.Write(p)
}

// File returns the underlying file so that a process can write to it directly.
func (o *OutputLog) File() *os.File {
	return o.file
}

// Path returns the location of the log.
func (o *OutputLog) Path() string {
	return o.file.Name()
}

// Dir returns the directory the log lives in.
func (o *OutputLog) Dir() string {
	return path.Dir(o.file.Name())
}

// Close flushes and closes the log. It is safe to call it multiple times.
func (o *OutputLog) Close() error {
	o.closeOnce.Do(func() {
		if err := o.file.Sync(); err != nil {
			o.closeErr = errors.Wrapf(err, "cannot flush %q", o.Path())
		}
		if err := o.file.Close(); err != nil && o.closeErr == nil {
			o.closeErr = errors.Wrapf(err, "cannot close %q", o.Path())
		}
	})
	return o.closeErr
}

// Erase removes the log from disk.
func (o *OutputLog) Erase() error {
	o.Close()
	if err := os.Remove(o.Path()); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "cannot remove %q", o.Path())
	}
	return nil
}

// Contents returns the whole log.
func (o *OutputLog) Contents() (string, error) {
	data, err := ioutil.ReadFile(o.Path())
	if err != nil {
		return "", errors.Wrapf(err, "cannot read %q", o.Path())
	}
	return string(data), nil
}

// Tail returns last lineCount lines of the log.
func (o *OutputLog) Tail(lineCount int) (string, error) {
	return fs.ReadTail(o.Path(), lineCount)
}

func (o *OutputLog) String() string {
	return fmt.Sprintf("output log %q", o.Path())
}
