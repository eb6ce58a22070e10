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


package cmd

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sigs.k8s.io/kubedev/pkg/config"
	"sigs.k8s.io/kubedev/pkg/exec"
	"sigs.k8s.io/kubedev/pkg/systemtest"
)

type systemTestOptions struct {
	configPath string
	cwd        string
	verbose    bool
}

func (opts systemTestOptions) Validate() error {
	errs := []error{}
	if opts.configPath == "" {
		errs = append(errs, errors.New("no project descriptor specified"))
	}
	return errors.Join(errs...)
}

func addSystemTest(parentCmd *cobra.Command) {
	opts := systemTestOptions{}
	systemTestCmd := &cobra.Command{
		Short: "Run the system tests of an app",
		Long: `kubedev system-test APP

The system-test subcommand builds the test harness of APP from
./systemTests/APP/, starts the backing services declared in the
app's systemTest section on a fresh docker network and runs the
harness against them.

Cron jobs are tested in an ephemeral kind cluster: the app is
deployed with its helm chart and a sidecar lets the harness trigger
the job on demand.

Everything the run creates is removed when it finishes, whatever
the outcome.
	`,
		Use:               "system-test APP",
		Args:              cobra.ExactArgs(1),
		SilenceUsage:      true,
		PersistentPreRunE: initLogging,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return fmt.Errorf("validating options: %w", err)
			}
			return runSystemTest(opts, args[0])
		},
	}

	systemTestCmd.PersistentFlags().StringVarP(
		&opts.configPath,
		"config",
		"c",
		config.DefaultFile,
		"path to the kubedev project descriptor",
	)

	systemTestCmd.PersistentFlags().StringVarP(
		&opts.cwd,
		"cwd",
		"C",
		"",
		"project directory, defaults to the current directory",
	)

	systemTestCmd.PersistentFlags().BoolVar(
		&opts.verbose,
		"verbose",
		false,
		"stream the output of every command",
	)

	parentCmd.AddCommand(systemTestCmd)
}

func runSystemTest(opts systemTestOptions, app string) error {
	runner := exec.NewRunner()
	runner.Options.CWD = opts.cwd
	runner.Options.Verbose = opts.verbose

	workspace := config.NewWorkspace(opts.cwd, runner)
	project, err := config.Load(workspace.Path(opts.configPath))
	if err != nil {
		return fmt.Errorf("loading project descriptor: %w", err)
	}

	st := systemtest.New(project, runner, systemtest.Options{
		Workspace: workspace,
		Env:       config.OSEnv{},
	})
	res, err := st.Run(app)
	if err != nil {
		return err
	}
	if !res.Passed {
		if res.Err != nil {
			return fmt.Errorf("system tests of %s did not run: %w", app, res.Err)
		}
		return fmt.Errorf("system tests of %s failed", app)
	}
	logrus.Infof("System tests of %s passed", app)
	return nil
}
