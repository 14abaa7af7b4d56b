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

package constants

// ConsentCookieName is the storage key under which the durable consent
// record is persisted in the client cookie jar.
const ConsentCookieName = "cookie-consent"

// DefaultExpiryDays is the retention window for a saved consent record.
const DefaultExpiryDays = 365

// Gating attributes consumed by the script activation engine.
const (
	CategoryAttribute  = "data-cookie-category"
	ServiceAttribute   = "data-consent-service"
	DeferredSrcAttr    = "data-consent-src"
	ActivatedAttribute = "data-consent-activated"

	// InertScriptType keeps a script element out of the live executable
	// DOM until its category is granted.
	InertScriptType      = "text/plain"
	ExecutableScriptType = "text/javascript"
)

// Tag-bridge event names pushed into the tag-manager data layer.
const (
	EventConsentDefault = "consent_default"
	EventConsentUpdate  = "consent_update"

	ConsentKeyPrefix = "consent_"
)

// Wildcard is the marker used in configured cookie-name patterns. It
// matches zero or more characters at its position.
const Wildcard = "*"

// MaxDecodePasses bounds the URL-decode normalization applied to persisted
// consent values. Legacy records were observed double-encoded; anything
// deeper is treated as malformed.
const MaxDecodePasses = 2
