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

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wso2/identity-cookie-consent/internal/snapshot/model"
)

const validDocument = `{
	"version": 3,
	"categories": {
		"necessary": {"required": true, "sort_order": 0, "title": "Necessary"},
		"analytics": {"required": false, "sort_order": 10, "title": "Analytics"},
		"marketing": {"required": false, "sort_order": 20, "title": "Marketing"}
	},
	"services": {
		"ga4": {
			"category": "analytics",
			"loading_method": "direct",
			"cookies": [{"name": "_ga"}, {"name": "_ga_*"}]
		},
		"matomo": {
			"category": "analytics",
			"loading_method": "tag_manager",
			"cookies": [{"name": "_pk_id.*"}]
		},
		"fbpixel": {
			"category": "marketing",
			"cookies": [{"name": "_fbp"}]
		}
	}
}`

func TestParseValidDocument(t *testing.T) {
	snap, err := Parse([]byte(validDocument))
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Version)
	assert.Len(t, snap.Categories, 3)
	assert.Len(t, snap.Services, 3)

	assert.True(t, snap.IsRequired("necessary"))
	assert.False(t, snap.IsRequired("analytics"))
	assert.False(t, snap.IsRequired("unknown"))

	// Codes are copied from the document keys into the definitions.
	assert.Equal(t, "ga4", snap.Services["ga4"].Code)
	assert.Equal(t, "analytics", snap.Services["ga4"].Category)

	// Unset loading method defaults to direct.
	assert.Equal(t, model.LoadingDirect, snap.Services["fbpixel"].LoadingMethod)
}

func TestParseRejectsBrokenDocuments(t *testing.T) {
	tests := []struct {
		name     string
		document string
	}{
		{"invalid json", `{"version": `},
		{"unknown service category", `{
			"version": 1,
			"categories": {"necessary": {"required": true}},
			"services": {"ga4": {"category": "analytics"}}
		}`},
		{"no required category", `{
			"version": 1,
			"categories": {"analytics": {"required": false}},
			"services": {}
		}`},
		{"bad loading method", `{
			"version": 1,
			"categories": {"necessary": {"required": true}},
			"services": {"ga4": {"category": "necessary", "loading_method": "lazy"}}
		}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.document))
			assert.Error(t, err)
		})
	}
}

func TestSortedCategories(t *testing.T) {
	snap, err := Parse([]byte(validDocument))
	require.NoError(t, err)

	sorted := snap.SortedCategories()
	require.Len(t, sorted, 3)
	assert.Equal(t, "necessary", sorted[0].Code)
	assert.Equal(t, "analytics", sorted[1].Code)
	assert.Equal(t, "marketing", sorted[2].Code)
}

func TestPatternsForCategory(t *testing.T) {
	snap, err := Parse([]byte(validDocument))
	require.NoError(t, err)

	// Tag-manager services contribute their patterns too: their cookies are
	// set outside the engine but still have to be sweepable.
	patterns := snap.PatternsForCategory("analytics")
	assert.ElementsMatch(t, []string{"_ga", "_ga_*", "_pk_id.*"}, patterns)

	assert.Empty(t, snap.PatternsForCategory("necessary"))
	assert.Empty(t, snap.PatternsForCategory("unknown"))
}

func TestDefaultConsent(t *testing.T) {
	snap, err := Parse([]byte(validDocument))
	require.NoError(t, err)

	defaults := snap.DefaultConsent()
	assert.Equal(t, map[string]bool{
		"necessary": true,
		"analytics": false,
		"marketing": false,
	}, defaults)
}
