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
	"time"

	"github.com/dop251/goja"
	pkgerrors "github.com/pkg/errors"
	"github.com/wso2/identity-cookie-consent/internal/system/cache"
)

const programCacheTTL = time.Hour

// ScriptExecutor runs the inline body of an activated Direct script block.
// Each run gets a fresh VM; compiled programs are cached per source so a
// category that is re-granted within one session does not recompile.
type ScriptExecutor struct {
	programs *cache.Cache
	globals  map[string]interface{}
}

// NewScriptExecutor creates an executor. globals are injected into every VM
// before a script runs, letting snippets reach the published consent state.
func NewScriptExecutor(globals map[string]interface{}) *ScriptExecutor {
	return &ScriptExecutor{
		programs: cache.NewCache(programCacheTTL),
		globals:  globals,
	}
}

// Execute compiles and runs source. Compilation results are cached keyed by
// the source text.
func (e *ScriptExecutor) Execute(source string) error {

	program, err := e.loadOrCompile(source)
	if err != nil {
		return pkgerrors.Wrap(err, "compiling inline script")
	}

	vm := goja.New()
	for name, value := range e.globals {
		if err := vm.Set(name, value); err != nil {
			return pkgerrors.Wrapf(err, "injecting global %s", name)
		}
	}
	if _, err := vm.RunProgram(program); err != nil {
		return pkgerrors.Wrap(err, "running inline script")
	}
	return nil
}

func (e *ScriptExecutor) loadOrCompile(source string) (*goja.Program, error) {
	if cached, ok := e.programs.Get(source); ok {
		if program, ok := cached.(*goja.Program); ok {
			return program, nil
		}
	}
	program, err := goja.Compile("", source, false)
	if err != nil {
		return nil, err
	}
	e.programs.Set(source, program)
	return program, nil
}
