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

package visualization

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places medians are rendered with.
const Precision = 3

// Row is the aggregated outcome of one experiment.
type Row struct {
	Experiment   string
	Trials       int
	Failed       int
	Measurements int
	// Median of per-repetition values, meaningful only if HasMedian.
	Median    float64
	HasMedian bool
	Unit      string
	Messages  []string
}

var summaryHeaders = []string{"Experiment", "Trials", "Failed", "Measurements", "Median", "Unit"}

// Summary returns the table of rows.
func Summary(rows []Row) *Table {
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, []string{
			row.Experiment,
			strconv.Itoa(row.Trials),
			strconv.Itoa(row.Failed),
			strconv.Itoa(row.Measurements),
			FormatValue(row.Median, row.HasMedian),
			row.Unit,
		})
	}
	return NewTable(summaryHeaders, data)
}

// FormatValue renders value rounded to Precision places, or "-" when there is
// no value.
func FormatValue(value float64, present bool) string {
	if !present {
		return "-"
	}
	return decimal.NewFromFloat(value).Round(Precision).String()
}
