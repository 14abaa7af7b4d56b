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

package store

import (
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/wso2/identity-cookie-consent/internal/consent/model"
	"github.com/wso2/identity-cookie-consent/internal/system/constants"
)

// encodeRecord serializes a record to its persisted form: JSON,
// URL-component-encoded exactly once.
func encodeRecord(record model.ConsentRecord) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", pkgerrors.Wrap(err, "marshalling consent record")
	}
	return url.QueryEscape(string(data)), nil
}

// decodeValue parses a persisted consent value. Any malformed input yields
// ok=false; malformed is equivalent to "never consented" and must not error
// out to the caller.
//
// Records written by older storefront releases were observed URL-encoded
// twice. Decoding is therefore retried while the value still looks encoded,
// bounded at MaxDecodePasses so a pathological value cannot loop.
func decodeValue(raw string) (model.ConsentRecord, bool) {
	value := raw
	for pass := 0; pass < constants.MaxDecodePasses; pass++ {
		if strings.HasPrefix(value, "{") {
			break
		}
		decoded, err := url.QueryUnescape(value)
		if err != nil || decoded == value {
			break
		}
		value = decoded
	}

	var wire struct {
		Version    json.RawMessage            `json:"version"`
		Categories map[string]json.RawMessage `json:"categories"`
	}
	if err := json.Unmarshal([]byte(value), &wire); err != nil {
		return model.ConsentRecord{}, false
	}

	version, ok := normalizeVersion(wire.Version)
	if !ok {
		return model.ConsentRecord{}, false
	}

	// A record without a categories object carries no decisions; treating it
	// as valid would hide the banner without any consent on file.
	if wire.Categories == nil {
		return model.ConsentRecord{}, false
	}

	categories := make(map[string]bool, len(wire.Categories))
	for code, rawVal := range wire.Categories {
		var granted bool
		if err := json.Unmarshal(rawVal, &granted); err != nil {
			// Wrong value type anywhere poisons the whole record.
			return model.ConsentRecord{}, false
		}
		categories[code] = granted
	}

	return model.ConsentRecord{Version: version, Categories: categories}, true
}

// normalizeVersion canonicalizes the persisted version to an int. Older
// records stored it as a numeric string; those are normalized rather than
// discarded. Everything after normalization is compared strictly.
func normalizeVersion(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if asNumber != math.Trunc(asNumber) {
			return 0, false
		}
		return int(asNumber), true
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		n, convErr := strconv.Atoi(strings.TrimSpace(asString))
		if convErr != nil {
			return 0, false
		}
		return n, true
	}

	return 0, false
}
