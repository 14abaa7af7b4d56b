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

package provider

import (
	"github.com/wso2/identity-cookie-consent/internal/activation"
	"github.com/wso2/identity-cookie-consent/internal/consent/service"
	"github.com/wso2/identity-cookie-consent/internal/consent/store"
	snapshotmodel "github.com/wso2/identity-cookie-consent/internal/snapshot/model"
	"github.com/wso2/identity-cookie-consent/internal/sweeper"
	"github.com/wso2/identity-cookie-consent/internal/system/config"
	"github.com/wso2/identity-cookie-consent/internal/tagbridge"
)

// ConsentProviderInterface wires the consent engine out of a configuration
// snapshot and a cookie medium.
type ConsentProviderInterface interface {
	GetConsentManager() *service.Manager
}

// ConsentProvider is the default implementation of ConsentProviderInterface.
type ConsentProvider struct {
	snapshot *snapshotmodel.Snapshot
	medium   store.Medium
	queue    tagbridge.Queue
	storage  config.StorageConfig
}

// NewConsentProvider creates a provider. queue may be nil; the tag bridge
// target is then created transparently.
func NewConsentProvider(
	snapshot *snapshotmodel.Snapshot,
	medium store.Medium,
	queue tagbridge.Queue,
	storage config.StorageConfig,
) ConsentProviderInterface {
	return &ConsentProvider{
		snapshot: snapshot,
		medium:   medium,
		queue:    queue,
		storage:  storage,
	}
}

// GetConsentManager assembles the full engine: store, activation engine
// with inline-script executor, sweeper and tag-bridge emitter.
func (cp *ConsentProvider) GetConsentManager() *service.Manager {

	consentStore := store.NewConsentStore(cp.medium, cp.storage)
	executor := activation.NewScriptExecutor(nil)
	engine := activation.NewEngine(cp.snapshot, executor)
	sweep := sweeper.NewSweeper(cp.snapshot, cp.medium)
	emitter := tagbridge.NewEmitter(cp.queue)

	return service.NewManager(cp.snapshot, consentStore, engine, sweep, emitter)
}
