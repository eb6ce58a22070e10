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

package systemtest

import (
	"fmt"

	"sigs.k8s.io/kubedev/pkg/cluster"
	"sigs.k8s.io/kubedev/pkg/config"
	"sigs.k8s.io/kubedev/pkg/docker"
	"sigs.k8s.io/kubedev/pkg/exec"
	"sigs.k8s.io/kubedev/pkg/run"
)

// HarnessDir is the directory holding the test harness of each app
const HarnessDir = "systemTests"

// HarnessRunner builds and runs the test harness container
type HarnessRunner struct {
	docker *docker.Client
	env    config.Env
}

// Build builds the harness image. Build arguments are passed by
// reference, their values only live in the build environment.
func (h *HarnessRunner) Build(rc run.Context, tc config.TestContainer, labels map[string]string) error {
	buildArgs := make([]docker.BuildArg, 0, len(tc.BuildArgs))
	for _, k := range sortedKeys(tc.BuildArgs) {
		buildArgs = append(buildArgs, docker.BuildArg{Name: k, Target: k})
	}
	err := h.docker.Build(docker.BuildOptions{
		Tag:       rc.HarnessImage(),
		Context:   fmt.Sprintf("./%s/%s/", HarnessDir, rc.App),
		BuildArgs: buildArgs,
		Env:       tc.BuildArgs,
		Labels:    labels,
	})
	if err != nil {
		return fmt.Errorf("building test harness: %w", err)
	}
	return nil
}

// Run runs the harness against the environment and reports whether the
// tests passed. kubeconfig is the host path of the cluster credentials,
// empty for runs without a cluster.
func (h *HarnessRunner) Run(
	rc run.Context, image config.ImageDescriptor, variables map[string]string, kubeconfig string,
) (bool, error) {
	args := []exec.Arg{}
	if kubeconfig != "" {
		args = append(args,
			exec.Lit("--volume"), exec.Lit(fmt.Sprintf("%s:%s", kubeconfig, cluster.KubeconfigMount)),
			exec.Lit("--env"), exec.Lit("KUBECONFIG="+cluster.KubeconfigMount),
		)
	}
	forwards, env := forwardEnvs("--env", image.ContainerEnvs, nil, h.env)
	args = append(args, forwards...)
	args = append(args, literalArgs("--env", variables)...)

	code, err := h.docker.RunInteractive(rc.Network(), rc.TestContainer(), rc.HarnessImage(), args, env)
	if err != nil {
		return false, fmt.Errorf("running test harness: %w", err)
	}
	return code == 0, nil
}
