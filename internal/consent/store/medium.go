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
	"sort"
	"sync"
	"time"
)

// Cookie is the engine's view of a single client cookie. Setting a cookie
// with MaxAge < 0 or an Expires in the past removes it, mirroring browser
// semantics.
type Cookie struct {
	Name    string
	Value   string
	Path    string
	Expires time.Time
	MaxAge  int
}

// Expired reports whether the cookie is a removal marker.
func (c Cookie) Expired(now time.Time) bool {
	if c.MaxAge < 0 {
		return true
	}
	return !c.Expires.IsZero() && c.Expires.Before(now)
}

// Medium is the durable client-side slot the consent record and all swept
// cookies live in. Host integrations implement it over whatever bridge they
// have to the real cookie jar; tests and the simulator use CookieMedium.
//
// HTTP-only and cross-origin third-party cookies are invisible through any
// implementation of this interface. That limitation is accepted: such
// cookies cannot be swept from client code at all.
type Medium interface {
	// Get returns the value of the named cookie, if present.
	Get(name string) (string, bool)
	// Set writes or removes a cookie.
	Set(cookie Cookie)
	// All lists the currently live cookies.
	All() []Cookie
}

// CookieMedium is an in-memory Medium.
type CookieMedium struct {
	mutex   sync.RWMutex
	cookies map[string]Cookie
}

// NewCookieMedium creates an empty in-memory cookie jar.
func NewCookieMedium() *CookieMedium {
	return &CookieMedium{cookies: make(map[string]Cookie)}
}

func (m *CookieMedium) Get(name string) (string, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	c, ok := m.cookies[name]
	if !ok || c.Expired(time.Now()) {
		return "", false
	}
	return c.Value, true
}

func (m *CookieMedium) Set(cookie Cookie) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if cookie.Expired(time.Now()) {
		delete(m.cookies, cookie.Name)
		return
	}
	m.cookies[cookie.Name] = cookie
}

func (m *CookieMedium) All() []Cookie {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	now := time.Now()
	out := make([]Cookie, 0, len(m.cookies))
	for _, c := range m.cookies {
		if !c.Expired(now) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
