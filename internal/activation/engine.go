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

package activation

import (
	"strings"

	snapshotmodel "github.com/wso2/identity-cookie-consent/internal/snapshot/model"
	"github.com/wso2/identity-cookie-consent/internal/system/constants"
	"github.com/wso2/identity-cookie-consent/internal/system/errors"
	"github.com/wso2/identity-cookie-consent/internal/system/log"
	"golang.org/x/net/html"
)

// Decision records what the engine did with one gated block.
type Decision struct {
	Category  string
	Element   string
	Activated bool
	Reason    string
}

const (
	ReasonGranted         = "category granted"
	ReasonNotGranted      = "category not granted"
	ReasonAlreadyActive   = "already activated"
	ReasonMissingCategory = "missing category attribute"
	ReasonUnknownCategory = "unknown category"
	ReasonServiceDisabled = "service disabled"
	ReasonUnknownService  = "unknown service"
)

// Engine scans a page for gated script/content blocks and activates those
// whose category is granted. Blocks whose category is not granted stay
// inert: their content remains unexecutable markup. The engine is safe to
// re-run after every consent change; a block is activated at most once per
// grant transition.
//
// Activation cannot be undone within a session. Revoking a category leaves
// already-executed blocks executed; the cookie sweeper handles their
// traces. A category that flips granted→revoked→granted may re-activate,
// which is acceptable because common tracking snippets are idempotent.
type Engine struct {
	snapshot *snapshotmodel.Snapshot
	executor *ScriptExecutor
}

// NewEngine creates an engine over the given snapshot. executor may be nil,
// in which case activated inline scripts are materialized but not run.
func NewEngine(snapshot *snapshotmodel.Snapshot, executor *ScriptExecutor) *Engine {
	return &Engine{snapshot: snapshot, executor: executor}
}

// Apply walks the document and applies activation for the given grants.
// It is idempotent: already-activated blocks are skipped.
func (e *Engine) Apply(doc *html.Node, grants map[string]bool) []Decision {

	var decisions []Decision
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if _, tagged := attr(n, constants.CategoryAttribute); !tagged {
			return
		}
		decisions = append(decisions, e.applyToBlock(n, grants))
	})
	return decisions
}

func (e *Engine) applyToBlock(n *html.Node, grants map[string]bool) Decision {

	logger := log.GetLogger()
	decision := Decision{Element: n.Data}

	category, _ := attr(n, constants.CategoryAttribute)
	decision.Category = category
	if category == "" {
		// Fail closed: a block we cannot attribute to a category never runs.
		clientErr := errors.NewClientError(errors.MISSING_GATING_ATTRIBUTE)
		logger.Warn("Leaving unattributable gated block inert", log.Error(clientErr))
		decision.Reason = ReasonMissingCategory
		return decision
	}
	if _, ok := e.snapshot.Category(category); !ok {
		clientErr := errors.NewClientErrorWithDescription(errors.UNKNOWN_CATEGORY, category)
		logger.Warn("Leaving gated block with unknown category inert", log.Error(clientErr))
		decision.Reason = ReasonUnknownCategory
		return decision
	}

	if svcCode, ok := attr(n, constants.ServiceAttribute); ok {
		svc, known := e.snapshot.Services[svcCode]
		if !known {
			logger.Warn("Leaving gated block with unknown service inert",
				log.String("service", svcCode))
			decision.Reason = ReasonUnknownService
			return decision
		}
		if svc.LoadingMethod == snapshotmodel.LoadingDisabled {
			decision.Reason = ReasonServiceDisabled
			return decision
		}
	}

	if !grants[category] {
		decision.Reason = ReasonNotGranted
		return decision
	}
	if _, done := attr(n, constants.ActivatedAttribute); done {
		decision.Reason = ReasonAlreadyActive
		return decision
	}
	if n.Data == "script" {
		// A gated script authored with a live type was already executed by
		// the host page; touching it again would run the snippet twice.
		if typ, ok := attr(n, "type"); ok && typ != constants.InertScriptType {
			decision.Reason = ReasonAlreadyActive
			return decision
		}
	}

	if n.Data == "script" {
		e.activateScript(n)
	} else {
		e.activateContent(n)
	}
	setAttr(n, constants.ActivatedAttribute, "true")

	decision.Activated = true
	decision.Reason = ReasonGranted
	logger.Debug("Activated gated block",
		log.String("category", category), log.String("element", n.Data))
	return decision
}

// activateScript turns an inert script element into an executable one.
// A deferred-source block gets its src set; an inline block additionally
// runs through the executor.
func (e *Engine) activateScript(n *html.Node) {

	setAttr(n, "type", constants.ExecutableScriptType)

	if src, ok := attr(n, constants.DeferredSrcAttr); ok && src != "" {
		setAttr(n, "src", src)
		return
	}

	body := textContent(n)
	if strings.TrimSpace(body) == "" {
		return
	}
	e.execute(body)
}

// activateContent materializes an inert content block: its escaped markup
// is parsed and attached as live children, and any inline scripts inside
// the materialized markup are executed.
func (e *Engine) activateContent(n *html.Node) {

	markup := textContent(n)
	if strings.TrimSpace(markup) == "" {
		return
	}

	nodes, err := html.ParseFragment(strings.NewReader(markup), n)
	if err != nil {
		serverErr := errors.NewServerError(errors.ACTIVATE_SCRIPT_BLOCK, err)
		log.GetLogger().Warn("Failed to materialize gated content block", log.Error(serverErr))
		return
	}

	removeChildren(n)
	for _, child := range nodes {
		n.AppendChild(child)
	}

	for _, child := range nodes {
		walk(child, func(inner *html.Node) {
			if inner.Type != html.ElementNode || inner.Data != "script" {
				return
			}
			if _, hasSrc := attr(inner, "src"); hasSrc {
				return
			}
			if body := textContent(inner); strings.TrimSpace(body) != "" {
				e.execute(body)
			}
		})
	}
}

// execute runs an inline script body. Execution failures are logged and
// swallowed so a broken third-party snippet can never break the host page.
func (e *Engine) execute(body string) {
	if e.executor == nil {
		return
	}
	if err := e.executor.Execute(body); err != nil {
		serverErr := errors.NewServerError(errors.EXECUTE_INLINE_SCRIPT, err)
		log.GetLogger().Warn("Inline script execution failed", log.Error(serverErr))
	}
}

func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func removeChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}
