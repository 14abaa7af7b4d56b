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
	"encoding/json"
	"fmt"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/wso2/identity-cookie-consent/internal/snapshot/model"
	"github.com/wso2/identity-cookie-consent/internal/system/errors"
)

// snapshotDocument is the wire shape of the server-produced configuration:
// categories and services keyed by code, codes not repeated inside the
// definitions.
type snapshotDocument struct {
	Version    int                      `json:"version"`
	Categories map[string]categoryEntry `json:"categories"`
	Services   map[string]serviceEntry  `json:"services"`
}

type categoryEntry struct {
	Required    bool   `json:"required"`
	SortOrder   int    `json:"sort_order"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type serviceEntry struct {
	Category      string         `json:"category"`
	Cookies       []model.Cookie `json:"cookies"`
	LoadingMethod string         `json:"loading_method"`
}

// Parse decodes and validates a configuration snapshot document.
func Parse(data []byte) (*model.Snapshot, error) {

	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewServerError(errors.INVALID_CONFIG_SNAPSHOT,
			pkgerrors.Wrap(err, "unmarshalling snapshot document"))
	}

	snap := &model.Snapshot{
		Version:    doc.Version,
		Categories: make(map[string]model.Category, len(doc.Categories)),
		Services:   make(map[string]model.Service, len(doc.Services)),
	}

	for code, entry := range doc.Categories {
		if code == "" {
			return nil, errors.NewClientErrorWithDescription(
				errors.INVALID_CONFIG_SNAPSHOT, "category with empty code")
		}
		snap.Categories[code] = model.Category{
			Code:        code,
			Required:    entry.Required,
			SortOrder:   entry.SortOrder,
			Title:       entry.Title,
			Description: entry.Description,
		}
	}

	for code, entry := range doc.Services {
		if code == "" {
			return nil, errors.NewClientErrorWithDescription(
				errors.INVALID_CONFIG_SNAPSHOT, "service with empty code")
		}
		if _, ok := snap.Categories[entry.Category]; !ok {
			return nil, errors.NewClientErrorWithDescription(errors.UNKNOWN_CATEGORY,
				fmt.Sprintf("service %q references unknown category %q", code, entry.Category))
		}
		method := entry.LoadingMethod
		if method == "" {
			method = model.LoadingDirect
		}
		if !model.AllowedLoadingMethods[method] {
			return nil, errors.NewClientErrorWithDescription(errors.INVALID_LOADING_METHOD,
				fmt.Sprintf("service %q declares loading method %q", code, entry.LoadingMethod))
		}
		snap.Services[code] = model.Service{
			Code:          code,
			Category:      entry.Category,
			Cookies:       entry.Cookies,
			LoadingMethod: method,
		}
	}

	if !hasRequiredCategory(snap) {
		return nil, errors.NewClientErrorWithDescription(
			errors.INVALID_CONFIG_SNAPSHOT, "snapshot declares no required category")
	}

	return snap, nil
}

// LoadFromFile reads and parses a snapshot document from disk.
func LoadFromFile(path string) (*model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewServerError(errors.INVALID_CONFIG_SNAPSHOT,
			pkgerrors.Wrapf(err, "reading snapshot file %s", path))
	}
	return Parse(data)
}

func hasRequiredCategory(s *model.Snapshot) bool {
	for _, c := range s.Categories {
		if c.Required {
			return true
		}
	}
	return false
}
