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

import "sort"

// Loading methods define how a service's script reaches the page once its
// category is granted.
const (
	LoadingDirect        = "direct"      // script reference activated by the engine itself
	LoadingViaTagManager = "tag_manager" // fired by the tag manager off the data layer
	LoadingDisabled      = "disabled"    // configured but never activated
)

// AllowedLoadingMethods defines the valid set of service loading methods.
var AllowedLoadingMethods = map[string]bool{
	LoadingDirect:        true,
	LoadingViaTagManager: true,
	LoadingDisabled:      true,
}

// Category is a consent bucket. Required categories are always granted and
// cannot be toggled off.
type Category struct {
	Code        string `json:"code"`
	Required    bool   `json:"required"`
	SortOrder   int    `json:"sort_order"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Cookie describes one cookie a service may set. Name may contain the
// wildcard marker understood by the sweeper.
type Cookie struct {
	Name        string `json:"name"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// Service is a third-party script/tool bound to exactly one category.
type Service struct {
	Code          string   `json:"code"`
	Category      string   `json:"category"`
	Cookies       []Cookie `json:"cookies"`
	LoadingMethod string   `json:"loading_method"`
}

// Snapshot is the read-only configuration document produced by the
// server-side config loader, consumed once per page load. It is immutable
// after parse.
type Snapshot struct {
	Version    int                 `json:"version"`
	Categories map[string]Category `json:"categories"`
	Services   map[string]Service  `json:"services"`
}

// Category returns the category definition for code.
func (s *Snapshot) Category(code string) (Category, bool) {
	c, ok := s.Categories[code]
	return c, ok
}

// IsRequired reports whether code names a required category. Unknown codes
// are not required.
func (s *Snapshot) IsRequired(code string) bool {
	c, ok := s.Categories[code]
	return ok && c.Required
}

// SortedCategories returns all categories ordered by sort order, with code
// as the tie breaker so the ordering is deterministic.
func (s *Snapshot) SortedCategories() []Category {
	out := make([]Category, 0, len(s.Categories))
	for _, c := range s.Categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// ServicesForCategory returns every service bound to the category,
// regardless of loading method.
func (s *Snapshot) ServicesForCategory(code string) []Service {
	var out []Service
	for _, svc := range s.Services {
		if svc.Category == code {
			out = append(out, svc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// PatternsForCategory collects the cookie-name patterns of every service in
// the category. Disabled and tag-manager services contribute too: their
// cookies may have been set outside this engine's control and still have to
// be sweepable on revocation.
func (s *Snapshot) PatternsForCategory(code string) []string {
	var out []string
	for _, svc := range s.ServicesForCategory(code) {
		for _, c := range svc.Cookies {
			if c.Name != "" {
				out = append(out, c.Name)
			}
		}
	}
	return out
}

// DefaultConsent returns the category grant map a session starts from when
// no fresh record exists: required categories true, everything else false.
func (s *Snapshot) DefaultConsent() map[string]bool {
	out := make(map[string]bool, len(s.Categories))
	for code, c := range s.Categories {
		out[code] = c.Required
	}
	return out
}
