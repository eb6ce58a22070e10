/*
Copyright 2022 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package exectest provides a recording RunnerImplementation for tests.
package exectest

import (
	"strings"
	"sync"

	"sigs.k8s.io/kubedev/pkg/exec"
)

// Call is one recorded invocation
type Call struct {
	Argv    []string
	Env     map[string]string
	Stdin   string
	Capture bool
}

// String returns the unexpanded command line
func (c Call) String() string {
	return strings.Join(c.Argv, " ")
}

// Response is what the fake returns for a call
type Response struct {
	Stdout   string
	ExitCode int
	Err      error
}

// Fake records every command and answers with the response computed
// by Handler. A nil Handler succeeds with empty output.
type Fake struct {
	mu      sync.Mutex
	Calls   []Call
	Handler func(Call) Response
}

// NewRunner returns a runner backed by a new fake
func NewRunner(handler func(Call) Response) (*exec.Runner, *Fake) {
	f := &Fake{Handler: handler}
	r := exec.NewRunner()
	r.SetImplementation(f)
	return r, f
}

func (f *Fake) Run(_ *exec.Options, cmd *exec.Cmd, capture bool) (*exec.Status, error) {
	env := map[string]string{}
	for k, v := range cmd.Env {
		env[k] = v
	}
	call := Call{Argv: cmd.Argv(), Env: env, Stdin: cmd.Stdin, Capture: capture}

	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	f.mu.Unlock()

	resp := Response{}
	if f.Handler != nil {
		resp = f.Handler(call)
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &exec.Status{ExitCode: resp.ExitCode, Stdout: resp.Stdout}, nil
}

// Argvs returns the argument vectors of all recorded calls
func (f *Fake) Argvs() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([][]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		res = append(res, c.Argv)
	}
	return res
}

// Lines returns the command lines of all recorded calls
func (f *Fake) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		res = append(res, c.String())
	}
	return res
}

// Find returns the calls whose command line starts with prefix
func (f *Fake) Find(prefix ...string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := strings.Join(prefix, " ")
	res := []Call{}
	for _, c := range f.Calls {
		if strings.HasPrefix(c.String(), p) {
			res = append(res, c)
		}
	}
	return res
}

// Index returns the position of the first call starting with prefix, or -1
func (f *Fake) Index(prefix ...string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := strings.Join(prefix, " ")
	for i, c := range f.Calls {
		if strings.HasPrefix(c.String(), p) {
			return i
		}
	}
	return -1
}

// HasPrefix reports whether the call's argv starts with the given elements
func (c Call) HasPrefix(prefix ...string) bool {
	if len(prefix) > len(c.Argv) {
		return false
	}
	for i := range prefix {
		if c.Argv[i] != prefix[i] {
			return false
		}
	}
	return true
}
