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

// Command simulator drives the consent engine against a static HTML page
// and an in-memory cookie jar. It is a development harness for inspecting
// activation decisions, sweeps and tag-bridge events without a browser.
package main

import (
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/wso2/identity-cookie-consent/internal/consent/provider"
	"github.com/wso2/identity-cookie-consent/internal/consent/service"
	"github.com/wso2/identity-cookie-consent/internal/consent/store"
	snapshotservice "github.com/wso2/identity-cookie-consent/internal/snapshot/service"
	"github.com/wso2/identity-cookie-consent/internal/system/config"
	"github.com/wso2/identity-cookie-consent/internal/system/log"
	"github.com/wso2/identity-cookie-consent/internal/tagbridge"
	"golang.org/x/net/html"
)

func main() {
	configFile := flag.String("config", "config/deployment.yaml", "deployment configuration file")
	pageFile := flag.String("page", "", "HTML page to run the engine against")
	cookieSeed := flag.String("cookies", "", "seed cookies, name=value pairs separated by ';'")
	actions := flag.String("actions", "", "comma-separated actions: accept, reject, save, open, close, reopen, toggle=<code>")
	renderPage := flag.Bool("render", false, "render the mutated page to stdout")
	flag.Parse()

	ccmHome := getCCMHome()

	envFiles, err := filepath.Glob("config/*.env")
	if err == nil && len(envFiles) > 0 {
		_ = godotenv.Load(envFiles...)
	}

	ccmConfig, err := config.LoadConfig(ccmHome, *configFile)
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}
	if err := config.InitializeCCMRuntime(ccmHome, ccmConfig); err != nil {
		stdlog.Fatalf("Failed to initialize runtime: %v", err)
	}
	runtime := config.GetCCMRuntime()
	if err := log.Init(runtime.Config.Log.LogLevel); err != nil {
		stdlog.Fatalf("Failed to initialize logger: %v", err)
	}
	logger := log.GetLogger()

	snap, err := snapshotservice.LoadFromFile(filepath.Join(runtime.CCMHome, runtime.Config.Snapshot.Path))
	if err != nil {
		logger.Fatal("Failed to load configuration snapshot", log.Error(err))
	}

	doc, err := loadPage(*pageFile)
	if err != nil {
		logger.Fatal("Failed to load page", log.Error(err))
	}

	medium := seedMedium(*cookieSeed)
	layer := tagbridge.NewDataLayer()

	manager := provider.NewConsentProvider(snap, medium, layer, runtime.Config.Storage).GetConsentManager()
	manager.OnChange(func(grants map[string]bool) {
		logger.Info("Consent updated", log.Any("grants", grants))
	})
	manager.Initialize(doc)

	for _, action := range splitActions(*actions) {
		applyAction(manager, action)
	}

	state := manager.State()
	fmt.Printf("banner visible: %v\n", state.BannerVisible)
	for code, granted := range manager.Published().Consent {
		fmt.Printf("consent %-16s %v\n", code, granted)
	}
	fmt.Println("cookies:")
	for _, c := range medium.All() {
		fmt.Printf("  %s=%s\n", c.Name, c.Value)
	}
	fmt.Println("tag bridge events:")
	for _, ev := range layer.Events() {
		fmt.Printf("  %v\n", ev["event"])
	}

	if *renderPage {
		if err := html.Render(os.Stdout, doc); err != nil {
			logger.Error("Failed to render page", log.Error(err))
		}
		fmt.Println()
	}
}

func applyAction(manager *service.Manager, action string) {
	switch {
	case action == "accept":
		manager.AcceptAll()
	case action == "reject":
		manager.RejectAll()
	case action == "save":
		manager.SavePreferences()
	case action == "open":
		manager.OpenSettings()
	case action == "close":
		manager.CloseSettings()
	case action == "reopen":
		manager.ReopenBanner()
	case strings.HasPrefix(action, "toggle="):
		manager.ToggleCategory(strings.TrimPrefix(action, "toggle="))
	default:
		log.GetLogger().Warn("Ignoring unknown action", log.String("action", action))
	}
}

func splitActions(actions string) []string {
	var out []string
	for _, action := range strings.Split(actions, ",") {
		action = strings.TrimSpace(action)
		if action == "" {
			continue
		}
		out = append(out, action)
	}
	return out
}

func loadPage(path string) (*html.Node, error) {
	if path == "" {
		return html.Parse(strings.NewReader("<html><head></head><body></body></html>"))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return html.Parse(f)
}

func seedMedium(seed string) *store.CookieMedium {
	medium := store.NewCookieMedium()
	for _, pair := range strings.Split(seed, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		medium.Set(store.Cookie{Name: name, Value: value, Path: "/"})
	}
	return medium
}

func getCCMHome() string {
	if home := os.Getenv("CCM_HOME"); home != "" {
		return home
	}
	wd, err := os.Getwd()
	if err != nil {
		stdlog.Fatalf("Failed to resolve working directory: %v", err)
	}
	return wd
}
