/*
 * Copyright (c) 2025, WSO2 LLC. (http://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitActions(t *testing.T) {
	tests := []struct {
		name     string
		actions  string
		expected []string
	}{
		{"empty", "", nil},
		{"single", "accept", []string{"accept"}},
		{"multiple", "reject,open,toggle=analytics,save", []string{"reject", "open", "toggle=analytics", "save"}},
		{"spaces trimmed", " accept , reject ", []string{"accept", "reject"}},
		{"empty segments dropped", "accept,,reject,", []string{"accept", "reject"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitActions(tt.actions))
		})
	}
}

func TestSeedMedium(t *testing.T) {
	medium := seedMedium("_ga=GA1.1; _fbp=fb.1; ;")

	cookies := medium.All()
	assert.Len(t, cookies, 2)
	value, ok := medium.Get("_ga")
	assert.True(t, ok)
	assert.Equal(t, "GA1.1", value)
}
