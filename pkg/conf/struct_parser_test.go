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
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNameFromFieldName(t *testing.T) {
	testData := map[string]string{
		"StringArg":  "string_arg",
		"string_arg": "string_arg",
		"STRINGARG":  "stringarg",
		"STRING_ARG": "string_arg",
		"StringARG":  "string_arg",
		"String1Arg": "string_1_arg",
		"StringArg1": "string_arg_1",
	}

	for fieldName, expectedResult := range testData {
		Convey(fmt.Sprintf("I should get the name = %q from field name = %q", expectedResult, fieldName), t, func() {
			So(nameFromFieldName(fieldName), ShouldEqual, expectedResult)
		})
	}
}

type correctTestConfig struct {
	StringArg         string `help:"test string" default:"default_string"`
	StringArg2        string `help:"test string" defaultFromField:"defaultStringArg2"`
	defaultStringArg2 string
	RequiredStringArg string `help:"test required string" required:"true"`
	ExcludedStringArg string

	IntArg         int           `help:"test int" default:"2"`
	DurationArg    time.Duration `help:"test duration" default:"5s"`
	BoolArg        bool          `help:"test bool" default:"true"`
	StringSliceArg []string      `help:"test slice" default:"a,b"`
	FileArg        string        `help:"test file" type:"file" defaultFromField:"defaultFileArg"`
	defaultFileArg string

	flagPrefix string
}

func setEnvFromFieldName(fieldName, value string) error {
	flagID := nameFromFieldName(fieldName)
	flag := definedFlags[flagID]
	if flag == nil {
		return errors.Errorf("no flag is defined with id: %s", flagID)
	}
	return os.Setenv(flag.envName(), value)
}

func TestStructTagFlags(t *testing.T) {
	Convey("When a struct exposes fields by using struct tags", t, func() {
		clearFlags()
		defer clearFlags()

		tmpFile, err := ioutil.TempFile("", "structTag")
		So(err, ShouldBeNil)
		defer os.Remove(tmpFile.Name())
		tmpFile.Close()

		config := &correctTestConfig{
			defaultStringArg2: "default_string2",
			defaultFileArg:    tmpFile.Name(),
			flagPrefix:        "test",
		}
		So(Process(config), ShouldBeNil)

		Convey("Fields get their defaults before parsing", func() {
			So(config.StringArg, ShouldEqual, "default_string")
			So(config.StringArg2, ShouldEqual, "default_string2")
			So(config.RequiredStringArg, ShouldEqual, "")
			So(config.ExcludedStringArg, ShouldEqual, "")
			So(config.IntArg, ShouldEqual, 2)
			So(config.DurationArg, ShouldEqual, 5*time.Second)
			So(config.BoolArg, ShouldBeTrue)
			So(config.StringSliceArg, ShouldResemble, []string{"a", "b"})
			So(config.FileArg, ShouldEqual, tmpFile.Name())
		})

		Convey("Required flags must be provided", func() {
			err := ParseEnv()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "required flag --test_required_string_arg not provided")
		})

		Convey("After parsing and processing again fields have custom values", func() {
			So(setEnvFromFieldName("testRequiredStringArg", "custom_string"), ShouldBeNil)
			So(setEnvFromFieldName("testIntArg", "4324"), ShouldBeNil)
			So(setEnvFromFieldName("testDurationArg", "10ms"), ShouldBeNil)
			So(setEnvFromFieldName("testBoolArg", "false"), ShouldBeNil)
			So(setEnvFromFieldName("testExcludedStringArg", "custom_string"), ShouldNotBeNil)

			So(ParseArgs([]string{"--test_string_slice_arg", "A,B,C"}), ShouldBeNil)
			So(Process(config), ShouldBeNil)

			So(config.StringArg, ShouldEqual, "default_string")
			So(config.RequiredStringArg, ShouldEqual, "custom_string")
			So(config.ExcludedStringArg, ShouldEqual, "")
			So(config.IntArg, ShouldEqual, 4324)
			So(config.DurationArg, ShouldEqual, 10*time.Millisecond)
			So(config.BoolArg, ShouldBeFalse)
			So(config.StringSliceArg, ShouldResemble, []string{"A", "B", "C"})
		})
	})
}

type wrongIntDefault struct {
	IntArg int `help:"test int" default:"not an Int"`
}

type wrongDurationDefault struct {
	DurationArg time.Duration `help:"test duration" default:"not a Duration"`
}

type wrongBoolDefault struct {
	BoolArg bool `help:"test bool" default:"not a Bool"`
}

type wrongSliceType struct {
	StringSliceArg []int `help:"test slice"`
}

type unsupportedType struct {
	FloatArg float64 `help:"this flag should not be supported"`
}

type missingHelp struct {
	StringArg string `default:"x"`
}

func TestIncorrectStructTags(t *testing.T) {
	Convey("While processing structs with wrong tags", t, func() {
		clearFlags()
		defer clearFlags()

		So(Process(&wrongIntDefault{}).Error(), ShouldContainSubstring, "wrong default value for Int type flag")
		So(Process(&wrongDurationDefault{}).Error(), ShouldContainSubstring, "wrong default value for Duration type flag")
		So(Process(&wrongBoolDefault{}).Error(), ShouldContainSubstring, "wrong default value for Bool type flag")
		So(Process(&wrongSliceType{}).Error(), ShouldContainSubstring, "[]int type not supported for a slice flag")
		So(Process(&unsupportedType{}).Error(), ShouldContainSubstring, "float64 type not supported for a flag")
		So(Process(&missingHelp{}).Error(), ShouldContainSubstring, "required help tag is missing")
		So(Process(wrongIntDefault{}), ShouldNotBeNil)
	})
}
