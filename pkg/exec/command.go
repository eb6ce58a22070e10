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

package exec

import (
	"os"
	"sort"
	"strings"
)

// Arg is a single element of a command's argument vector. Literal
// arguments are passed to the process verbatim. Reference arguments may
// contain ${NAME} placeholders which are replaced with the value of NAME
// from the subprocess environment right before the process is started,
// so the logged command line never carries the values themselves.
type Arg struct {
	value string
	ref   bool
}

// Lit returns a literal argument
func Lit(s string) Arg {
	return Arg{value: s}
}

// Ref returns an argument expanded from the subprocess environment
func Ref(template string) Arg {
	return Arg{value: template, ref: true}
}

// EnvRef returns the reference "${name}"
func EnvRef(name string) string {
	return "${" + name + "}"
}

// String returns the argument as it appears in logs
func (a Arg) String() string {
	return a.value
}

// IsRef reports whether the argument is expanded at execution time
func (a Arg) IsRef() bool {
	return a.ref
}

// Resolve returns the value passed to the process. Placeholders naming
// variables that are not set resolve to the empty string.
func (a Arg) Resolve(lookup func(string) (string, bool)) string {
	if !a.ref {
		return a.value
	}
	return os.Expand(a.value, func(name string) string {
		v, _ := lookup(name)
		return v
	})
}

// Cmd describes one invocation of an external program. It is built
// as an argument vector, no shell is involved in running it.
type Cmd struct {
	Name  string
	Args  []Arg
	Env   map[string]string
	Stdin string
}

// Command creates a new command with literal arguments
func Command(name string, args ...string) *Cmd {
	c := &Cmd{Name: name, Env: map[string]string{}}
	return c.Add(args...)
}

// Add appends literal arguments
func (c *Cmd) Add(args ...string) *Cmd {
	for _, a := range args {
		c.Args = append(c.Args, Lit(a))
	}
	return c
}

// AddRef appends an argument expanded from the subprocess environment
func (c *Cmd) AddRef(template string) *Cmd {
	c.Args = append(c.Args, Ref(template))
	return c
}

// AddArgs appends prebuilt arguments
func (c *Cmd) AddArgs(args ...Arg) *Cmd {
	c.Args = append(c.Args, args...)
	return c
}

// WithEnv merges vars into the environment added to the process
func (c *Cmd) WithEnv(vars map[string]string) *Cmd {
	if c.Env == nil {
		c.Env = map[string]string{}
	}
	for k, v := range vars {
		c.Env[k] = v
	}
	return c
}

// WithStdin sets data to be piped to the process standard input
func (c *Cmd) WithStdin(data string) *Cmd {
	c.Stdin = data
	return c
}

// Argv returns the unexpanded argument vector including the program name
func (c *Cmd) Argv() []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Name)
	for _, a := range c.Args {
		argv = append(argv, a.value)
	}
	return argv
}

// Resolve returns the argument vector passed to the process
func (c *Cmd) Resolve(lookup func(string) (string, bool)) []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Name)
	for _, a := range c.Args {
		argv = append(argv, a.Resolve(lookup))
	}
	return argv
}

// Lookup returns a lookup function that reads the command environment
// first and falls back to the inherited process environment.
func (c *Cmd) Lookup() func(string) (string, bool) {
	return func(name string) (string, bool) {
		if v, ok := c.Env[name]; ok {
			return v, true
		}
		return os.LookupEnv(name)
	}
}

// EnvNames returns the sorted names of the added environment variables
func (c *Cmd) EnvNames() []string {
	names := make([]string, 0, len(c.Env))
	for k := range c.Env {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// EnvList returns the added environment in KEY=VALUE form, sorted by key
func (c *Cmd) EnvList() []string {
	list := make([]string, 0, len(c.Env))
	for _, k := range c.EnvNames() {
		list = append(list, k+"="+c.Env[k])
	}
	return list
}

// String returns the command line as logged
func (c *Cmd) String() string {
	return strings.Join(c.Argv(), " ")
}
