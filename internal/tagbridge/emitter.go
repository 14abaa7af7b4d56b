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

package tagbridge

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wso2/identity-cookie-consent/internal/system/constants"
	"github.com/wso2/identity-cookie-consent/internal/system/log"
)

// Queue is the external event queue consumed by the tag-management layer.
type Queue interface {
	Push(event map[string]interface{})
}

// DataLayer is an in-process Queue. The emitter creates one transparently
// when the host page did not provide a bridge target.
type DataLayer struct {
	mutex  sync.Mutex
	events []map[string]interface{}
}

// NewDataLayer creates an empty data layer.
func NewDataLayer() *DataLayer {
	return &DataLayer{}
}

// Push appends an event to the layer.
func (d *DataLayer) Push(event map[string]interface{}) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.events = append(d.events, event)
}

// Events returns a copy of the pushed events in order.
func (d *DataLayer) Events() []map[string]interface{} {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	out := make([]map[string]interface{}, len(d.events))
	copy(out, d.events)
	return out
}

// Emitter pushes structured consent events into the tag-manager queue.
// Pushes are best-effort and synchronous; there is no retry and no error
// path back to the caller.
type Emitter struct {
	queue Queue
}

// NewEmitter creates an emitter over the given queue. A nil queue is not an
// error: the bridge target is created transparently.
func NewEmitter(queue Queue) *Emitter {
	if queue == nil {
		queue = NewDataLayer()
	}
	return &Emitter{queue: queue}
}

// Queue returns the bridge target, which may have been auto-created.
func (e *Emitter) Queue() Queue {
	return e.queue
}

// Default emits the consent_default event reflecting the state before any
// user action this session.
func (e *Emitter) Default(grants map[string]bool) {
	e.push(constants.EventConsentDefault, grants)
}

// Update emits the consent_update event after an accept-all, reject-all or
// save-preferences action.
func (e *Emitter) Update(grants map[string]bool) {
	e.push(constants.EventConsentUpdate, grants)
}

func (e *Emitter) push(name string, grants map[string]bool) {

	event := map[string]interface{}{
		"event":      name,
		"event_id":   uuid.NewString(),
		"emitted_at": time.Now().UTC().Format(time.RFC3339),
	}
	for code, granted := range grants {
		event[constants.ConsentKeyPrefix+code] = granted
	}
	e.queue.Push(event)
	log.GetLogger().Debug("Pushed consent event to tag bridge", log.String("event", name))
}
