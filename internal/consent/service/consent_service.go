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
	"sync"

	"github.com/wso2/identity-cookie-consent/internal/activation"
	"github.com/wso2/identity-cookie-consent/internal/consent/model"
	"github.com/wso2/identity-cookie-consent/internal/consent/store"
	snapshotmodel "github.com/wso2/identity-cookie-consent/internal/snapshot/model"
	"github.com/wso2/identity-cookie-consent/internal/system/errors"
	"github.com/wso2/identity-cookie-consent/internal/system/log"
	"golang.org/x/net/html"
)

// ScriptActivator applies activation decisions to the page document.
type ScriptActivator interface {
	Apply(doc *html.Node, grants map[string]bool) []activation.Decision
}

// CookieSweeper deletes cookies belonging to a revoked category.
type CookieSweeper interface {
	Sweep(category string) int
}

// ConsentEmitter pushes consent events to the tag-management bridge.
type ConsentEmitter interface {
	Default(grants map[string]bool)
	Update(grants map[string]bool)
}

// ChangeListener receives the category grant map after every persisted
// consent change. This is the in-page "cookie-consent-updated" event.
type ChangeListener func(grants map[string]bool)

// PublishedState is the read-only snapshot exposed to third-party
// integration code after every transition. It replaces the implicit global
// window state of earlier storefront releases with an explicit publish step.
type PublishedState struct {
	Version int
	Consent map[string]bool
}

// Manager is the in-memory authority for consent choices during a session.
// It owns the runtime state, coordinates the store, activation engine,
// sweeper and tag bridge, and guarantees that persistence happens before
// activation, sweeping and event emission for the same user action.
//
// A Manager built without a snapshot degrades every operation to a no-op,
// so a configuration failure elsewhere on the page can never stop the user
// from dismissing the banner.
type Manager struct {
	mutex sync.Mutex

	snapshot  *snapshotmodel.Snapshot
	store     store.ConsentStoreInterface
	activator ScriptActivator
	sweeper   CookieSweeper
	emitter   ConsentEmitter

	doc       *html.Node
	runtime   model.RuntimeConsentState
	baseline  map[string]bool
	published PublishedState
	listeners []ChangeListener

	initialized bool
}

// NewManager wires a state machine from its collaborators. Any collaborator
// may be nil; the corresponding side effect is skipped.
func NewManager(
	snapshot *snapshotmodel.Snapshot,
	consentStore store.ConsentStoreInterface,
	activator ScriptActivator,
	sweeper CookieSweeper,
	emitter ConsentEmitter,
) *Manager {
	return &Manager{
		snapshot:  snapshot,
		store:     consentStore,
		activator: activator,
		sweeper:   sweeper,
		emitter:   emitter,
	}
}

// Initialize loads the persisted record, builds the runtime state and runs
// the initial activation pass. It is the page-load entry point.
func (m *Manager) Initialize(doc *html.Node) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.disabled() {
		log.GetLogger().Warn("Consent manager running without configuration; all operations are no-ops")
		return
	}
	m.doc = doc

	grants := m.snapshot.DefaultConsent()
	bannerVisible := true

	if record, ok := m.store.Load(); ok && m.store.IsFresh(record, m.snapshot.Version) {
		for code := range grants {
			if granted, present := record.Categories[code]; present {
				grants[code] = granted
			}
		}
		bannerVisible = false
	}
	m.forceRequired(grants)

	m.runtime = model.RuntimeConsentState{
		Categories:    grants,
		BannerVisible: bannerVisible,
		View:          model.ViewMain,
	}
	m.baseline = m.runtime.Grants()
	m.initialized = true

	m.publish()
	m.activate()
	if m.emitter != nil {
		m.emitter.Default(m.runtime.Grants())
	}
}

// AcceptAll grants every category, persists, closes the banner and runs the
// trailing effects.
func (m *Manager) AcceptAll() {
	m.mutex.Lock()
	if !m.ready() {
		m.mutex.Unlock()
		return
	}
	for code := range m.runtime.Categories {
		m.runtime.Categories[code] = true
	}
	grants := m.commit()
	m.mutex.Unlock()

	m.notify(grants)
}

// RejectAll revokes every non-required category, persists and runs the
// trailing effects, including the cookie sweep for newly-revoked categories.
func (m *Manager) RejectAll() {
	m.mutex.Lock()
	if !m.ready() {
		m.mutex.Unlock()
		return
	}
	for code := range m.runtime.Categories {
		m.runtime.Categories[code] = m.snapshot.IsRequired(code)
	}
	grants := m.commit()
	m.mutex.Unlock()

	m.notify(grants)
}

// ToggleCategory flips a single non-required category in the transient
// state only. Nothing is persisted or activated until SavePreferences.
// Toggling a required or unknown category is a no-op.
func (m *Manager) ToggleCategory(code string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.ready() {
		return
	}
	if _, known := m.snapshot.Category(code); !known || m.snapshot.IsRequired(code) {
		return
	}
	m.runtime.Categories[code] = !m.runtime.Categories[code]
}

// SavePreferences persists the current transient state as the new consent
// record and runs activation, sweeping and emission against the delta from
// the stored baseline.
func (m *Manager) SavePreferences() {
	m.mutex.Lock()
	if !m.ready() {
		m.mutex.Unlock()
		return
	}
	grants := m.commit()
	m.mutex.Unlock()

	m.notify(grants)
}

// OpenSettings shows the banner on its details pane. Pure UI transition.
func (m *Manager) OpenSettings() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.ready() {
		return
	}
	m.runtime.BannerVisible = true
	m.runtime.View = model.ViewDetails
}

// CloseSettings returns the banner to its main pane. Pure UI transition.
func (m *Manager) CloseSettings() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.ready() {
		return
	}
	m.runtime.View = model.ViewMain
}

// ToggleDetailsView expands or collapses the per-category details list.
func (m *Manager) ToggleDetailsView() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.ready() {
		return
	}
	m.runtime.DetailsExpanded = !m.runtime.DetailsExpanded
}

// ReopenBanner re-shows the banner in its last known view with the saved
// state pre-populated, discarding unsaved toggles. This is the handler for
// the external "open cookie settings" signal.
func (m *Manager) ReopenBanner() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.ready() {
		return
	}
	for code, granted := range m.baseline {
		m.runtime.Categories[code] = granted
	}
	m.runtime.BannerVisible = true
}

// OnChange registers a listener fired after every persisted consent change.
func (m *Manager) OnChange(listener ChangeListener) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if listener != nil {
		m.listeners = append(m.listeners, listener)
	}
}

// State returns a copy of the runtime consent state.
func (m *Manager) State() model.RuntimeConsentState {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	out := m.runtime
	out.Categories = m.runtime.Grants()
	return out
}

// Published returns the read-only snapshot for third-party integrations,
// refreshed after every consent change.
func (m *Manager) Published() PublishedState {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	out := PublishedState{Version: m.published.Version}
	out.Consent = make(map[string]bool, len(m.published.Consent))
	for k, v := range m.published.Consent {
		out.Consent[k] = v
	}
	return out
}

// Snapshot returns the immutable configuration document the manager was
// built from.
func (m *Manager) Snapshot() *snapshotmodel.Snapshot {
	return m.snapshot
}

// commit is the single write path: persist first, then activate, sweep
// newly-revoked categories, publish and emit. Caller holds the mutex;
// the returned grant map is handed to listeners after the lock drops.
func (m *Manager) commit() map[string]bool {

	m.forceRequired(m.runtime.Categories)

	record := model.ConsentRecord{
		Version:    m.snapshot.Version,
		Categories: m.runtime.Grants(),
	}
	if m.store != nil {
		// A write failure is non-fatal: the session proceeds on the new
		// state and the banner will simply reappear next load.
		if err := m.store.Save(record); err != nil {
			serverErr := errors.NewServerError(errors.SAVE_CONSENT_RECORD, err)
			log.GetLogger().Warn("Consent record not persisted", log.Error(serverErr))
		}
	}
	m.runtime.BannerVisible = false

	revoked := m.revokedSinceBaseline()
	m.baseline = m.runtime.Grants()

	m.publish()
	m.activate()
	if m.sweeper != nil {
		for _, code := range revoked {
			m.sweeper.Sweep(code)
		}
	}
	if m.emitter != nil {
		m.emitter.Update(m.runtime.Grants())
	}
	return m.runtime.Grants()
}

// revokedSinceBaseline lists categories that changed granted→revoked
// relative to the stored baseline, including ones the user never explicitly
// touched this session.
func (m *Manager) revokedSinceBaseline() []string {
	var out []string
	for code, wasGranted := range m.baseline {
		if wasGranted && !m.runtime.Categories[code] {
			out = append(out, code)
		}
	}
	return out
}

func (m *Manager) activate() {
	if m.activator == nil || m.doc == nil {
		return
	}
	m.activator.Apply(m.doc, m.runtime.Grants())
}

func (m *Manager) publish() {
	m.published = PublishedState{
		Version: m.snapshot.Version,
		Consent: m.runtime.Grants(),
	}
}

// notify fires change listeners outside the manager lock so a listener may
// safely read Published() or State().
func (m *Manager) notify(grants map[string]bool) {
	m.mutex.Lock()
	listeners := make([]ChangeListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mutex.Unlock()

	for _, listener := range listeners {
		listener(grants)
	}
}

func (m *Manager) forceRequired(grants map[string]bool) {
	for code, category := range m.snapshot.Categories {
		if category.Required {
			grants[code] = true
		}
	}
}

func (m *Manager) disabled() bool {
	return m.snapshot == nil
}

func (m *Manager) ready() bool {
	return !m.disabled() && m.initialized
}
