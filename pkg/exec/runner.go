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
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

func NewRunner() *Runner {
	return &Runner{
		Options: Options{
			Logger: logrus.StandardLogger(),
		},
		implementation: &defaultRunnerImplementation{},
	}
}

type Runner struct {
	Options        Options
	implementation RunnerImplementation
}

type Options struct {
	Verbose bool
	CWD     string
	Logger  *logrus.Logger
}

// Status is the outcome of a finished process
type Status struct {
	ExitCode int
	Stdout   string
}

// SetImplementation replaces the backend that starts the processes
func (r *Runner) SetImplementation(impl RunnerImplementation) {
	r.implementation = impl
}

// Execute runs the command, streaming its output, and returns the exit
// status. A non-zero exit is not an error, the error return is reserved
// for commands which could not be run at all.
func (r *Runner) Execute(cmd *Cmd) (int, error) {
	r.logCommand(cmd)
	st, err := r.implementation.Run(&r.Options, cmd, false)
	if err != nil {
		return -1, fmt.Errorf("executing %s: %w", cmd.Name, err)
	}
	return st.ExitCode, nil
}

// Output runs the command and returns its captured standard output
func (r *Runner) Output(cmd *Cmd) (stdout string, exitCode int, err error) {
	r.logCommand(cmd)
	st, err := r.implementation.Run(&r.Options, cmd, true)
	if err != nil {
		return "", -1, fmt.Errorf("executing %s: %w", cmd.Name, err)
	}
	return st.Stdout, st.ExitCode, nil
}

func (r *Runner) logCommand(cmd *Cmd) {
	if len(cmd.Env) > 0 {
		r.Options.Logger.Infof(
			"➡️  Executing %q (additional env vars: %s)", cmd.String(), strings.Join(cmd.EnvNames(), " "),
		)
		return
	}
	r.Options.Logger.Infof("➡️  Executing %q", cmd.String())
}

// ExitError is returned by Check when a command exits non-zero
type ExitError struct {
	Command  string
	ExitCode int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%q exited with status %d", e.Command, e.ExitCode)
}

// Check runs the command like Execute but treats a non-zero exit as an
// error of type *ExitError
func (r *Runner) Check(cmd *Cmd) error {
	code, err := r.Execute(cmd)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Command: cmd.String(), ExitCode: code}
	}
	return nil
}
