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

package errors

const errorPrefix = "CCM-"

var (
	// Server error codes

	SAVE_CONSENT_RECORD = ErrorMessage{
		Code:    errorPrefix + "15001",
		Message: "Error while persisting the consent record.",
	}

	ENCODE_CONSENT_RECORD = ErrorMessage{
		Code:    errorPrefix + "15002",
		Message: "Error while serializing the consent record.",
	}

	ACTIVATE_SCRIPT_BLOCK = ErrorMessage{
		Code:    errorPrefix + "15003",
		Message: "Error while activating a gated script block.",
	}

	EXECUTE_INLINE_SCRIPT = ErrorMessage{
		Code:    errorPrefix + "15004",
		Message: "Error while executing an inline consent-gated script.",
	}

	// Client error codes

	INVALID_CONFIG_SNAPSHOT = ErrorMessage{
		Code:    errorPrefix + "10001",
		Message: "Invalid consent configuration snapshot.",
	}

	UNKNOWN_CATEGORY = ErrorMessage{
		Code:    errorPrefix + "10002",
		Message: "Unknown consent category code.",
	}

	INVALID_COOKIE_PATTERN = ErrorMessage{
		Code:    errorPrefix + "10003",
		Message: "Invalid cookie name pattern.",
	}

	MISSING_GATING_ATTRIBUTE = ErrorMessage{
		Code:    errorPrefix + "10004",
		Message: "Gated block is missing its category attribute.",
	}

	INVALID_LOADING_METHOD = ErrorMessage{
		Code:    errorPrefix + "10005",
		Message: "Unknown service loading method.",
	}
)
