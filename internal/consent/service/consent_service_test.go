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
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wso2/identity-cookie-consent/internal/activation"
	"github.com/wso2/identity-cookie-consent/internal/consent/model"
	"github.com/wso2/identity-cookie-consent/internal/consent/store"
	snapshotmodel "github.com/wso2/identity-cookie-consent/internal/snapshot/model"
	"github.com/wso2/identity-cookie-consent/internal/sweeper"
	"github.com/wso2/identity-cookie-consent/internal/system/config"
	"github.com/wso2/identity-cookie-consent/internal/system/constants"
	"github.com/wso2/identity-cookie-consent/internal/tagbridge"
	"golang.org/x/net/html"
)

func testSnapshot() *snapshotmodel.Snapshot {
	return &snapshotmodel.Snapshot{
		Version: 1,
		Categories: map[string]snapshotmodel.Category{
			"necessary": {Code: "necessary", Required: true, SortOrder: 0},
			"analytics": {Code: "analytics", SortOrder: 10},
			"marketing": {Code: "marketing", SortOrder: 20},
		},
		Services: map[string]snapshotmodel.Service{
			"ga4": {
				Code:          "ga4",
				Category:      "analytics",
				LoadingMethod: snapshotmodel.LoadingDirect,
				Cookies: []snapshotmodel.Cookie{
					{Name: "_ga"},
					{Name: "_ga_*"},
				},
			},
			"fbpixel": {
				Code:          "fbpixel",
				Category:      "marketing",
				LoadingMethod: snapshotmodel.LoadingDirect,
				Cookies: []snapshotmodel.Cookie{
					{Name: "_fbp"},
				},
			},
		},
	}
}

type fixture struct {
	manager *Manager
	medium  *store.CookieMedium
	store   *store.ConsentStore
	layer   *tagbridge.DataLayer
	doc     *html.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	snap := testSnapshot()
	medium := store.NewCookieMedium()
	return newFixtureWithMedium(t, snap, medium)
}

func newFixtureWithMedium(t *testing.T, snap *snapshotmodel.Snapshot, medium *store.CookieMedium) *fixture {
	t.Helper()

	doc, err := html.Parse(strings.NewReader(
		`<html><head></head><body>` +
			`<script type="text/plain" data-cookie-category="analytics" data-consent-src="https://example.org/ga.js"></script>` +
			`<script type="text/plain" data-cookie-category="marketing" data-consent-src="https://example.org/fb.js"></script>` +
			`</body></html>`))
	require.NoError(t, err)

	consentStore := store.NewConsentStore(medium, config.StorageConfig{})
	layer := tagbridge.NewDataLayer()
	manager := NewManager(
		snap,
		consentStore,
		activation.NewEngine(snap, nil),
		sweeper.NewSweeper(snap, medium),
		tagbridge.NewEmitter(layer),
	)
	return &fixture{manager: manager, medium: medium, store: consentStore, layer: layer, doc: doc}
}

func scriptActivated(doc *html.Node, srcSuffix string) bool {
	var activated bool
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			for _, a := range n.Attr {
				if a.Key == "src" && strings.HasSuffix(a.Val, srcSuffix) {
					activated = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return activated
}

func TestInitializeWithoutRecord(t *testing.T) {
	f := newFixture(t)
	f.manager.Initialize(f.doc)

	state := f.manager.State()
	assert.True(t, state.BannerVisible)
	assert.Equal(t, map[string]bool{
		"necessary": true,
		"analytics": false,
		"marketing": false,
	}, state.Categories)

	events := f.layer.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "consent_default", events[0]["event"])
	assert.Equal(t, true, events[0]["consent_necessary"])
	assert.Equal(t, false, events[0]["consent_analytics"])

	assert.False(t, scriptActivated(f.doc, "ga.js"))
}

func TestInitializeWithFreshRecord(t *testing.T) {
	snap := testSnapshot()
	medium := store.NewCookieMedium()
	seed := store.NewConsentStore(medium, config.StorageConfig{})
	require.NoError(t, seed.Save(model.ConsentRecord{
		Version:    1,
		Categories: map[string]bool{"necessary": true, "analytics": true, "marketing": false},
	}))

	f := newFixtureWithMedium(t, snap, medium)
	f.manager.Initialize(f.doc)

	state := f.manager.State()
	assert.False(t, state.BannerVisible)
	assert.True(t, state.Categories["analytics"])
	assert.False(t, state.Categories["marketing"])

	// The initial activation pass runs the already-granted categories once.
	assert.True(t, scriptActivated(f.doc, "ga.js"))
	assert.False(t, scriptActivated(f.doc, "fb.js"))
}

func TestInitializeWithStaleVersionFallsBackToDefaults(t *testing.T) {
	snap := testSnapshot() // version 1
	medium := store.NewCookieMedium()
	seed := store.NewConsentStore(medium, config.StorageConfig{})
	require.NoError(t, seed.Save(model.ConsentRecord{
		Version:    0,
		Categories: map[string]bool{"necessary": true, "analytics": true, "marketing": true},
	}))

	f := newFixtureWithMedium(t, snap, medium)
	f.manager.Initialize(f.doc)

	// The stale record's grants are ignored wholesale.
	state := f.manager.State()
	assert.True(t, state.BannerVisible)
	assert.False(t, state.Categories["analytics"])
	assert.False(t, state.Categories["marketing"])
	assert.False(t, scriptActivated(f.doc, "ga.js"))
}

func TestInitializeWithRecordMissingCategoriesReasks(t *testing.T) {
	snap := testSnapshot() // version 1
	medium := store.NewCookieMedium()
	// A current-version record that never captured any decisions must not
	// pass for consent.
	medium.Set(store.Cookie{
		Name:  constants.ConsentCookieName,
		Value: url.QueryEscape(`{"version":1}`),
		Path:  "/",
	})

	f := newFixtureWithMedium(t, snap, medium)
	f.manager.Initialize(f.doc)

	state := f.manager.State()
	assert.True(t, state.BannerVisible)
	assert.False(t, state.Categories["analytics"])
	assert.False(t, scriptActivated(f.doc, "ga.js"))
}

func TestAcceptAll(t *testing.T) {
	f := newFixture(t)
	f.manager.Initialize(f.doc)
	f.manager.AcceptAll()

	state := f.manager.State()
	assert.False(t, state.BannerVisible)
	for code, granted := range state.Categories {
		assert.True(t, granted, "category %s", code)
	}

	loaded, ok := f.store.Load()
	require.True(t, ok)
	assert.True(t, f.store.IsFresh(loaded, testSnapshot().Version))
	for code, granted := range loaded.Categories {
		assert.True(t, granted, "persisted category %s", code)
	}

	assert.True(t, scriptActivated(f.doc, "ga.js"))
	assert.True(t, scriptActivated(f.doc, "fb.js"))

	events := f.layer.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "consent_update", events[1]["event"])
	assert.Equal(t, true, events[1]["consent_marketing"])
}

func TestRejectAll(t *testing.T) {
	f := newFixture(t)
	f.manager.Initialize(f.doc)
	f.manager.RejectAll()

	loaded, ok := f.store.Load()
	require.True(t, ok)
	assert.Equal(t, map[string]bool{
		"necessary": true,
		"analytics": false,
		"marketing": false,
	}, loaded.Categories)

	assert.False(t, f.manager.State().BannerVisible)
	assert.False(t, scriptActivated(f.doc, "ga.js"))
}

func TestRejectAllSweepsPreviouslyGrantedCategories(t *testing.T) {
	snap := testSnapshot()
	medium := store.NewCookieMedium()
	seed := store.NewConsentStore(medium, config.StorageConfig{})
	require.NoError(t, seed.Save(model.ConsentRecord{
		Version:    1,
		Categories: map[string]bool{"necessary": true, "analytics": true, "marketing": false},
	}))
	medium.Set(store.Cookie{Name: "_ga", Value: "GA1.1", Path: "/"})
	medium.Set(store.Cookie{Name: "_ga_AB12", Value: "GS1.1", Path: "/"})
	medium.Set(store.Cookie{Name: "_other", Value: "keep", Path: "/"})

	f := newFixtureWithMedium(t, snap, medium)
	f.manager.Initialize(f.doc)
	f.manager.RejectAll()

	names := map[string]bool{}
	for _, c := range medium.All() {
		names[c.Name] = true
	}
	assert.False(t, names["_ga"])
	assert.False(t, names["_ga_AB12"])
	assert.True(t, names["_other"])
	// The consent record itself survives the sweep.
	_, ok := f.store.Load()
	assert.True(t, ok)
}

func TestToggleCategoryIsTransient(t *testing.T) {
	f := newFixture(t)
	f.manager.Initialize(f.doc)
	f.manager.ToggleCategory("analytics")

	assert.True(t, f.manager.State().Categories["analytics"])

	// Nothing persisted, nothing activated until SavePreferences.
	_, ok := f.store.Load()
	assert.False(t, ok)
	assert.False(t, scriptActivated(f.doc, "ga.js"))
	assert.Len(t, f.layer.Events(), 1)
}

func TestToggleRequiredCategoryIsNoop(t *testing.T) {
	f := newFixture(t)
	f.manager.Initialize(f.doc)

	f.manager.ToggleCategory("necessary")
	assert.True(t, f.manager.State().Categories["necessary"])

	f.manager.ToggleCategory("does-not-exist")
	_, present := f.manager.State().Categories["does-not-exist"]
	assert.False(t, present)
}

func TestSavePreferencesScenario(t *testing.T) {
	// User enables analytics, leaves marketing untouched at its default.
	f := newFixture(t)
	f.medium.Set(store.Cookie{Name: "_fbp", Value: "fb.1", Path: "/"})
	f.manager.Initialize(f.doc)

	f.manager.ToggleCategory("analytics")
	f.manager.SavePreferences()

	loaded, ok := f.store.Load()
	require.True(t, ok)
	assert.Equal(t, map[string]bool{
		"necessary": true,
		"analytics": true,
		"marketing": false,
	}, loaded.Categories)

	assert.True(t, scriptActivated(f.doc, "ga.js"))
	assert.False(t, scriptActivated(f.doc, "fb.js"))

	// Marketing was never granted, so no sweep ran for it.
	_, fbpPresent := f.medium.Get("_fbp")
	assert.True(t, fbpPresent)
}

func TestSavePreferencesSweepsRevokedCategory(t *testing.T) {
	snap := testSnapshot()
	medium := store.NewCookieMedium()
	seed := store.NewConsentStore(medium, config.StorageConfig{})
	require.NoError(t, seed.Save(model.ConsentRecord{
		Version:    1,
		Categories: map[string]bool{"necessary": true, "analytics": true, "marketing": false},
	}))
	medium.Set(store.Cookie{Name: "_ga", Value: "GA1.1", Path: "/"})

	f := newFixtureWithMedium(t, snap, medium)
	f.manager.Initialize(f.doc)

	f.manager.ToggleCategory("analytics")
	f.manager.SavePreferences()

	loaded, ok := f.store.Load()
	require.True(t, ok)
	assert.False(t, loaded.Categories["analytics"])

	_, gaPresent := medium.Get("_ga")
	assert.False(t, gaPresent)
}

func TestRequiredCategoryInvariant(t *testing.T) {
	f := newFixture(t)
	f.manager.Initialize(f.doc)

	assert.True(t, f.manager.State().Categories["necessary"])
	f.manager.ToggleCategory("necessary")
	assert.True(t, f.manager.State().Categories["necessary"])
	f.manager.RejectAll()
	assert.True(t, f.manager.State().Categories["necessary"])

	loaded, ok := f.store.Load()
	require.True(t, ok)
	assert.True(t, loaded.Categories["necessary"])
}

func TestReopenBannerRestoresSavedState(t *testing.T) {
	f := newFixture(t)
	f.manager.Initialize(f.doc)
	f.manager.AcceptAll()

	f.manager.ToggleCategory("analytics") // transient, unsaved
	assert.False(t, f.manager.State().Categories["analytics"])

	f.manager.ReopenBanner()
	state := f.manager.State()
	assert.True(t, state.BannerVisible)
	assert.True(t, state.Categories["analytics"])
}

func TestUIStateTransitions(t *testing.T) {
	f := newFixture(t)
	f.manager.Initialize(f.doc)

	f.manager.OpenSettings()
	state := f.manager.State()
	assert.True(t, state.BannerVisible)
	assert.Equal(t, model.ViewDetails, state.View)

	f.manager.ToggleDetailsView()
	assert.True(t, f.manager.State().DetailsExpanded)

	f.manager.CloseSettings()
	assert.Equal(t, model.ViewMain, f.manager.State().View)

	// Pure UI transitions never persist.
	_, ok := f.store.Load()
	assert.False(t, ok)
}

func TestPublishedSnapshotRefreshes(t *testing.T) {
	f := newFixture(t)
	f.manager.Initialize(f.doc)

	published := f.manager.Published()
	assert.Equal(t, 1, published.Version)
	assert.False(t, published.Consent["analytics"])

	f.manager.AcceptAll()
	assert.True(t, f.manager.Published().Consent["analytics"])
}

func TestOnChangeListener(t *testing.T) {
	f := newFixture(t)
	f.manager.Initialize(f.doc)

	var got map[string]bool
	f.manager.OnChange(func(grants map[string]bool) {
		got = grants
		// Listeners may read back without deadlocking.
		_ = f.manager.Published()
	})

	f.manager.AcceptAll()
	require.NotNil(t, got)
	assert.True(t, got["marketing"])
}

func TestZeroOptionalCategories(t *testing.T) {
	snap := &snapshotmodel.Snapshot{
		Version: 1,
		Categories: map[string]snapshotmodel.Category{
			"necessary": {Code: "necessary", Required: true},
		},
	}
	f := newFixtureWithMedium(t, snap, store.NewCookieMedium())
	f.manager.Initialize(f.doc)

	f.manager.AcceptAll()
	loaded, ok := f.store.Load()
	require.True(t, ok)
	assert.Equal(t, map[string]bool{"necessary": true}, loaded.Categories)

	f.manager.RejectAll()
	loaded, ok = f.store.Load()
	require.True(t, ok)
	assert.Equal(t, map[string]bool{"necessary": true}, loaded.Categories)
}

func TestManagerWithoutSnapshotIsNoop(t *testing.T) {
	manager := NewManager(nil, nil, nil, nil, nil)
	manager.Initialize(nil)

	// None of these may panic; the user must always be able to dismiss.
	manager.AcceptAll()
	manager.RejectAll()
	manager.ToggleCategory("analytics")
	manager.SavePreferences()
	manager.OpenSettings()
	manager.CloseSettings()
	manager.ReopenBanner()

	assert.Empty(t, manager.State().Categories)
}

// Ordered collaborators verify the happens-before guarantee: persistence
// runs before activation, sweeping and emission for the same user action.

type seqRecorder struct {
	seq []string
}

type seqStore struct {
	rec *seqRecorder
	val model.ConsentRecord
	has bool
}

func (s *seqStore) Load() (model.ConsentRecord, bool)         { return s.val, s.has }
func (s *seqStore) IsFresh(r model.ConsentRecord, v int) bool { return r.Version == v }
func (s *seqStore) Save(model.ConsentRecord) error {
	s.rec.seq = append(s.rec.seq, "save")
	return nil
}
func (s *seqStore) Clear() {}

type seqActivator struct{ rec *seqRecorder }

func (a *seqActivator) Apply(*html.Node, map[string]bool) []activation.Decision {
	a.rec.seq = append(a.rec.seq, "activate")
	return nil
}

type seqSweeper struct{ rec *seqRecorder }

func (s *seqSweeper) Sweep(category string) int {
	s.rec.seq = append(s.rec.seq, "sweep:"+category)
	return 0
}

type seqEmitter struct{ rec *seqRecorder }

func (e *seqEmitter) Default(map[string]bool) { e.rec.seq = append(e.rec.seq, "default") }
func (e *seqEmitter) Update(map[string]bool)  { e.rec.seq = append(e.rec.seq, "update") }

func TestPersistHappensBeforeTrailingEffects(t *testing.T) {
	rec := &seqRecorder{}
	baseline := model.ConsentRecord{
		Version:    1,
		Categories: map[string]bool{"necessary": true, "analytics": true, "marketing": false},
	}

	doc, err := html.Parse(strings.NewReader("<html><body></body></html>"))
	require.NoError(t, err)

	manager := NewManager(
		testSnapshot(),
		&seqStore{rec: rec, val: baseline, has: true},
		&seqActivator{rec: rec},
		&seqSweeper{rec: rec},
		&seqEmitter{rec: rec},
	)
	manager.Initialize(doc)
	manager.RejectAll()

	assert.Equal(t, []string{
		"activate",
		"default",
		"save",
		"activate",
		"sweep:analytics",
		"update",
	}, rec.seq)
}
