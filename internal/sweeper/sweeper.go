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
	"time"

	"github.com/gobwas/glob"
	"github.com/wso2/identity-cookie-consent/internal/consent/store"
	snapshotmodel "github.com/wso2/identity-cookie-consent/internal/snapshot/model"
	"github.com/wso2/identity-cookie-consent/internal/system/cache"
	"github.com/wso2/identity-cookie-consent/internal/system/errors"
	"github.com/wso2/identity-cookie-consent/internal/system/log"
)

// matcherCacheTTL bounds how long a compiled pattern matcher is reused.
// Patterns come from the immutable snapshot, so a long TTL is safe.
const matcherCacheTTL = time.Hour

// Sweeper deletes client cookies belonging to a revoked category. Patterns
// are drawn from every service of the category, including disabled and
// tag-manager ones: their cookies may have been set outside this engine's
// control and still have to go.
type Sweeper struct {
	snapshot *snapshotmodel.Snapshot
	medium   store.Medium
	matchers *cache.Cache
}

// NewSweeper creates a sweeper over the given snapshot and cookie medium.
func NewSweeper(snapshot *snapshotmodel.Snapshot, medium store.Medium) *Sweeper {
	return &Sweeper{
		snapshot: snapshot,
		medium:   medium,
		matchers: cache.NewCache(matcherCacheTTL),
	}
}

// Sweep removes every cookie whose name matches a pattern of the revoked
// category and returns how many were removed. Sweeping a category with no
// matching cookies is a no-op; sweeping twice is safe.
func (s *Sweeper) Sweep(category string) int {

	logger := log.GetLogger()
	patterns := s.snapshot.PatternsForCategory(category)
	if len(patterns) == 0 {
		return 0
	}

	removed := 0
	for _, cookie := range s.medium.All() {
		if !s.matchesAny(cookie.Name, patterns) {
			continue
		}
		// Path-matching removal: an immediately-expired cookie on the
		// same path supersedes the live one.
		s.medium.Set(store.Cookie{
			Name:    cookie.Name,
			Path:    cookie.Path,
			Expires: time.Unix(0, 0),
			MaxAge:  -1,
		})
		removed++
		logger.Debug("Swept cookie for revoked category",
			log.String("cookie", cookie.Name), log.String("category", category))
	}
	return removed
}

func (s *Sweeper) matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if isExact(pattern) {
			if name == pattern {
				return true
			}
			continue
		}
		matcher, ok := s.matcher(pattern)
		if ok && matcher.Match(name) {
			return true
		}
	}
	return false
}

func (s *Sweeper) matcher(pattern string) (glob.Glob, bool) {

	if cached, ok := s.matchers.Get(pattern); ok {
		if matcher, ok := cached.(glob.Glob); ok {
			return matcher, true
		}
	}

	matcher, err := compilePattern(pattern)
	if err != nil {
		clientErr := errors.NewClientErrorWithDescription(errors.INVALID_COOKIE_PATTERN, pattern)
		log.GetLogger().Warn("Skipping uncompilable cookie pattern", log.Error(clientErr))
		return nil, false
	}
	s.matchers.Set(pattern, matcher)
	return matcher, true
}
