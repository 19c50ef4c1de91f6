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

package instrument

import (
	"sync"
	"time"
)

const granularitySamples = 1000

var (
	granularityOnce sync.Once
	granularity     time.Duration
)

// Granularity estimates the resolution of the monotonic clock as the smallest
// observed non zero difference between consecutive readings. The estimate is
// computed once per process.
func Granularity() time.Duration {
	granularityOnce.Do(func() {
		granularity = estimateGranularity(granularitySamples)
	})
	return granularity
}

func estimateGranularity(samples int) time.Duration {
	smallest := time.Duration(0)
	for i := 0; i < samples; i++ {
		start := time.Now()
		var delta time.Duration
		for delta == 0 {
			delta = time.Since(start)
		}
		if smallest == 0 || delta < smallest {
			smallest = delta
		}
	}
	return smallest
}
