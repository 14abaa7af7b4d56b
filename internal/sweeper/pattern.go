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

package sweeper

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/wso2/identity-cookie-consent/internal/system/constants"
)

// compilePattern builds an anchored matcher for a configured cookie-name
// pattern. Only the wildcard marker is special; every other character in
// the pattern is literal, so names like "_pk_id.*.*" match dots literally.
// The matcher covers the full cookie name start-to-end, never a substring.
func compilePattern(pattern string) (glob.Glob, error) {
	segments := strings.Split(pattern, constants.Wildcard)
	for i, seg := range segments {
		segments[i] = glob.QuoteMeta(seg)
	}
	return glob.Compile(strings.Join(segments, constants.Wildcard))
}

// isExact reports whether the pattern contains no wildcard and can be
// matched by plain string equality.
func isExact(pattern string) bool {
	return !strings.Contains(pattern, constants.Wildcard)
}
