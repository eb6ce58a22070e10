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
	"bytes"
	"errors"
	"fmt"
	"os"
	gexec "os/exec"
	"strings"

	"sigs.k8s.io/release-utils/command"
)

type RunnerImplementation interface {
	Run(opts *Options, cmd *Cmd, capture bool) (*Status, error)
}

type defaultRunnerImplementation struct{}

// Run executes the command. Commands reading standard input are started
// with os/exec as the command package offers no way to feed stdin.
func (ri *defaultRunnerImplementation) Run(opts *Options, cmd *Cmd, capture bool) (*Status, error) {
	argv := cmd.Resolve(cmd.Lookup())
	if cmd.Stdin != "" {
		return ri.runWithStdin(opts, cmd, argv, capture)
	}

	var c *command.Command
	if opts.CWD != "" {
		c = command.NewWithWorkDir(opts.CWD, argv[0], argv[1:]...)
	} else {
		c = command.New(argv[0], argv[1:]...)
	}
	if len(cmd.Env) > 0 {
		c = c.Env(cmd.EnvList()...)
	}

	var (
		st  *command.Status
		err error
	)
	if capture && !opts.Verbose {
		st, err = c.RunSilent()
	} else {
		st, err = c.Run()
	}
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", argv[0], err)
	}

	res := &Status{ExitCode: st.ExitCode()}
	if capture {
		res.Stdout = st.Output()
	}
	return res, nil
}

func (ri *defaultRunnerImplementation) runWithStdin(opts *Options, cmd *Cmd, argv []string, capture bool) (*Status, error) {
	c := gexec.Command(argv[0], argv[1:]...)
	c.Dir = opts.CWD
	c.Env = append(os.Environ(), cmd.EnvList()...)
	c.Stdin = strings.NewReader(cmd.Stdin)
	c.Stderr = os.Stderr

	var stdout bytes.Buffer
	if capture {
		c.Stdout = &stdout
	} else {
		c.Stdout = os.Stdout
	}

	err := c.Run()
	var exitErr *gexec.ExitError
	switch {
	case errors.As(err, &exitErr):
		return &Status{ExitCode: exitErr.ExitCode(), Stdout: stdout.String()}, nil
	case err != nil:
		return nil, fmt.Errorf("running %s: %w", argv[0], err)
	}
	return &Status{ExitCode: 0, Stdout: stdout.String()}, nil
}
