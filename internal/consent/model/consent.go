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

package model

// ConsentRecord is the durable, versioned user decision persisted across
// visits. A record is only honored when its version matches the currently
// configured consent version; anything else is treated as "never consented".
type ConsentRecord struct {
	Version    int             `json:"version"`
	Categories map[string]bool `json:"categories"`
}

// View identifies which banner pane is showing.
type View string

const (
	ViewMain    View = "main"
	ViewDetails View = "details"
)

// RuntimeConsentState is the transient in-memory mirror of the record plus
// banner UI state. It lives for one page only and never survives navigation.
type RuntimeConsentState struct {
	Categories      map[string]bool
	BannerVisible   bool
	View            View
	DetailsExpanded bool
}

// Grants returns a copy of the current category grant map.
func (s RuntimeConsentState) Grants() map[string]bool {
	out := make(map[string]bool, len(s.Categories))
	for k, v := range s.Categories {
		out[k] = v
	}
	return out
}
