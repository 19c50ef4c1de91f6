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
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/camelcase"
	"github.com/pkg/errors"
)

const (
	// Tag for specifying the help description of the field. [Required]
	helpTag = "help"
	// Tag for specifying default value for field. [Optional]
	defaultTag = "default"
	// Tag for specifying name of the field which contain default value. [Optional]
	defaultFromFieldTag = "defaultFromField"
	// Tag for overriding the name of the field. [Optional]
	nameTag = "name"
	// Tag for specifying that the flag is required. [Optional]
	requiredTag = "required"
	// Tag for specifying that the flag string type means something more concrete. [Optional]
	stringTypeTag = "type"
	// Supported values of above are:
	stringTypeFile = "file"
	// Special field name indicating prefix for all flags in struct.
	prefixFieldName = "flagPrefix"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Process registers a flag for every tagged field of the struct data points
// to and sets the fields to the flag values. Before parsing these are the
// defaults, so Process is run once to define flags and again after ParseFlags.
func Process(data interface{}) error {
	value := reflect.ValueOf(data)
	if value.Kind() != reflect.Ptr || value.Elem().Kind() != reflect.Struct {
		return errors.Errorf("argument needs to be a pointer to struct, got %T", data)
	}

	dataValue := value.Elem()
	typeOfData := dataValue.Type()
	prefix := getStringFromField(dataValue.FieldByName(prefixFieldName))

	for i := 0; i < dataValue.NumField(); i++ {
		field := dataValue.Field(i)
		fieldStruct := typeOfData.Field(i)
		if !field.CanSet() {
			continue
		}
		// Embedded structs are not processed.
		if fieldStruct.Anonymous && field.Kind() == reflect.Struct {
			continue
		}

		f := &fieldProcessor{
			prefix:      prefix,
			data:        dataValue,
			field:       field,
			fieldStruct: fieldStruct,
		}
		if err := f.process(); err != nil {
			return errors.Wrapf(err, "field %s", fieldStruct.Name)
		}
	}
	return nil
}

func getStringFromField(field reflect.Value) string {
	if field.IsValid() && field.Kind() == reflect.String {
		return field.String()
	}
	return ""
}

// nameFromFieldName converts e.g. SomeField to some_field.
func nameFromFieldName(name string) string {
	words := []string{}
	for _, word := range camelcase.Split(name) {
		if word == "_" {
			continue
		}
		words = append(words, strings.ToLower(word))
	}
	return strings.Join(words, "_")
}

type fieldProcessor struct {
	prefix      string
	data        reflect.Value
	field       reflect.Value
	fieldStruct reflect.StructField
}

func (f *fieldProcessor) tag(name string) string {
	return f.fieldStruct.Tag.Get(name)
}

func (f *fieldProcessor) isAnyTagSpecified() bool {
	for _, tag := range []string{nameTag, defaultTag, defaultFromFieldTag, requiredTag, stringTypeTag} {
		if f.tag(tag) != "" {
			return true
		}
	}
	return false
}

func (f *fieldProcessor) flagName() string {
	name := f.tag(nameTag)
	if name == "" {
		name = f.fieldStruct.Name
	}
	return nameFromFieldName(f.prefix + name)
}

func (f *fieldProcessor) defaultValue() string {
	if value := f.tag(defaultTag); value != "" {
		return value
	}
	return getStringFromField(f.data.FieldByName(f.tag(defaultFromFieldTag)))
}

func (f *fieldProcessor) process() error {
	help := f.tag(helpTag)
	if help == "" {
		if f.isAnyTagSpecified() {
			return errors.New("required help tag is missing")
		}
		// Untagged fields are not flags.
		return nil
	}

	name := f.flagName()
	defaultValue := f.defaultValue()

	field := f.field
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		field = field.Elem()
	}

	var flagClause *cliAndEnvFlag
	switch {
	case field.Kind() == reflect.String:
		if f.tag(stringTypeTag) == stringTypeFile {
			flag := NewFileFlag(name, help, defaultValue)
			field.SetString(flag.Value())
			flagClause = flag.cliAndEnvFlag
		} else {
			flag := NewStringFlag(name, help, defaultValue)
			field.SetString(flag.Value())
			flagClause = flag.cliAndEnvFlag
		}

	case field.Type() == durationType:
		var duration time.Duration
		if defaultValue != "" {
			var err error
			if duration, err = time.ParseDuration(defaultValue); err != nil {
				return errors.Wrap(err, "wrong default value for Duration type flag")
			}
		}
		flag := NewDurationFlag(name, help, duration)
		field.SetInt(int64(flag.Value()))
		flagClause = flag.cliAndEnvFlag

	case field.Kind() == reflect.Int:
		var number int
		if defaultValue != "" {
			var err error
			if number, err = strconv.Atoi(defaultValue); err != nil {
				return errors.Wrap(err, "wrong default value for Int type flag")
			}
		}
		flag := NewIntFlag(name, help, number)
		field.SetInt(int64(flag.Value()))
		flagClause = flag.cliAndEnvFlag

	case field.Kind() == reflect.Bool:
		var boolean bool
		if defaultValue != "" {
			var err error
			if boolean, err = strconv.ParseBool(defaultValue); err != nil {
				return errors.Wrap(err, "wrong default value for Bool type flag")
			}
		}
		flag := NewBoolFlag(name, help, boolean)
		field.SetBool(flag.Value())
		flagClause = flag.cliAndEnvFlag

	case field.Kind() == reflect.Slice:
		if field.Type() != reflect.TypeOf([]string(nil)) {
			return errors.Errorf("%s type not supported for a slice flag", field.Type())
		}
		var defaults StringListValue
		if defaultValue != "" {
			defaults.Set(defaultValue)
		}
		flag := NewSliceFlag(name, help, defaults...)
		field.Set(reflect.ValueOf(flag.Value()))
		flagClause = flag.cliAndEnvFlag

	default:
		return errors.Errorf("%s type not supported for a flag", field.Type())
	}

	if f.tag(requiredTag) == "true" {
		flagClause.Required()
	}
	return nil
}
