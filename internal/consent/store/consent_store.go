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
	"time"

	"github.com/wso2/identity-cookie-consent/internal/consent/model"
	"github.com/wso2/identity-cookie-consent/internal/system/config"
	"github.com/wso2/identity-cookie-consent/internal/system/constants"
	"github.com/wso2/identity-cookie-consent/internal/system/errors"
	"github.com/wso2/identity-cookie-consent/internal/system/log"
)

// ConsentStoreInterface defines durable read/write of the consent record.
type ConsentStoreInterface interface {
	Load() (model.ConsentRecord, bool)
	IsFresh(record model.ConsentRecord, currentVersion int) bool
	Save(record model.ConsentRecord) error
	Clear()
}

// ConsentStore is the only component permitted to touch the persisted
// consent record. It owns the storage key, the encoding and the expiry
// window.
type ConsentStore struct {
	medium     Medium
	cookieName string
	cookiePath string
	expiryDays int
}

// NewConsentStore creates a store over the given medium with the configured
// storage settings.
func NewConsentStore(medium Medium, cfg config.StorageConfig) *ConsentStore {

	name := cfg.CookieName
	if name == "" {
		name = constants.ConsentCookieName
	}
	path := cfg.CookiePath
	if path == "" {
		path = "/"
	}
	days := cfg.ExpiryDays
	if days <= 0 {
		days = constants.DefaultExpiryDays
	}
	return &ConsentStore{
		medium:     medium,
		cookieName: name,
		cookiePath: path,
		expiryDays: days,
	}
}

// Load reads the persisted record. Absent, malformed or wrong-typed values
// all come back as ok=false; the caller treats that as "never consented"
// and re-asks. Load never fails the caller.
func (s *ConsentStore) Load() (model.ConsentRecord, bool) {

	raw, ok := s.medium.Get(s.cookieName)
	if !ok || raw == "" {
		return model.ConsentRecord{}, false
	}

	record, ok := decodeValue(raw)
	if !ok {
		log.GetLogger().Debug("Discarding malformed persisted consent value",
			log.String("cookie", s.cookieName))
		return model.ConsentRecord{}, false
	}
	return record, true
}

// IsFresh reports whether the record was saved against the currently
// configured consent version. Versions are canonicalized to int at decode
// time and compared strictly here; a version bump forces re-consent.
func (s *ConsentStore) IsFresh(record model.ConsentRecord, currentVersion int) bool {
	return record.Version == currentVersion
}

// Save serializes and persists the record with the configured multi-month
// expiry. Saving repeatedly overwrites the same key. A write failure is
// reported but non-fatal for the session: consent simply will not survive
// the next load.
func (s *ConsentStore) Save(record model.ConsentRecord) error {

	encoded, err := encodeRecord(record)
	if err != nil {
		serverErr := errors.NewServerError(errors.ENCODE_CONSENT_RECORD, err)
		log.GetLogger().Error("Failed to serialize consent record", log.Error(serverErr))
		return serverErr
	}

	s.medium.Set(Cookie{
		Name:    s.cookieName,
		Value:   encoded,
		Path:    s.cookiePath,
		Expires: time.Now().AddDate(0, 0, s.expiryDays),
		MaxAge:  s.expiryDays * 24 * 60 * 60,
	})
	return nil
}

// Clear expires the persisted record.
func (s *ConsentStore) Clear() {
	s.medium.Set(Cookie{
		Name:    s.cookieName,
		Path:    s.cookiePath,
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	})
}
