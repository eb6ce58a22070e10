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

	"sigs.k8s.io/kubedev/pkg/config"
	"sigs.k8s.io/kubedev/pkg/docker"
	"sigs.k8s.io/kubedev/pkg/exec"
)

// forwardEnvs computes the arguments forwarding the required variables
// into a container as NAME=${TARGET} references, skipping the names in
// exclude, plus the environment the references are expanded from.
// Values of base64 variables only enter that environment encoded,
// under their target name.
func forwardEnvs(
	flag string, envs map[string]config.RequiredEnv, exclude map[string]string, e config.Env,
) ([]exec.Arg, map[string]string) {
	prepared, extra := config.PrepareEnvs(envs, e)
	args := []exec.Arg{}
	subprocessEnv := map[string]string{}
	for _, p := range prepared {
		if _, ok := exclude[p.Name]; ok {
			continue
		}
		args = append(args, exec.Lit(flag), exec.Ref(fmt.Sprintf("%s=%s", p.Name, exec.EnvRef(p.Target))))
		if v, ok := extra[p.Target]; ok {
			subprocessEnv[p.Target] = v
		} else if v, ok := e.LookupEnv(p.Name); ok {
			subprocessEnv[p.Name] = v
		}
	}
	return args, subprocessEnv
}

// literalArgs returns flag KEY=VALUE pairs sorted by key
func literalArgs(flag string, vars map[string]string) []exec.Arg {
	args := []exec.Arg{}
	for _, k := range sortedKeys(vars) {
		args = append(args, exec.Lit(flag), exec.Lit(fmt.Sprintf("%s=%s", k, vars[k])))
	}
	return args
}

// buildImage builds an app image at tag, forwarding its build-time
// variables as build arguments
func buildImage(d *docker.Client, img config.ImageDescriptor, tag string, e config.Env, labels map[string]string) error {
	prepared, extra := config.PrepareEnvs(img.BuildEnvs, e)
	env := map[string]string{}
	buildArgs := make([]docker.BuildArg, 0, len(prepared))
	for _, p := range prepared {
		buildArgs = append(buildArgs, docker.BuildArg{Name: p.Name, Target: p.Target})
		if v, ok := extra[p.Target]; ok {
			env[p.Target] = v
		} else if v, ok := e.LookupEnv(p.Name); ok {
			env[p.Name] = v
		}
	}
	return d.Build(docker.BuildOptions{
		Tag:       img.WithTag(tag),
		Context:   img.BuildPath,
		BuildArgs: buildArgs,
		Env:       env,
		Labels:    labels,
	})
}
