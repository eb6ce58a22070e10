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
	"github.com/sirupsen/logrus"

	"sigs.k8s.io/kubedev/pkg/config"
	"sigs.k8s.io/kubedev/pkg/docker"
	"sigs.k8s.io/kubedev/pkg/exec"
	"sigs.k8s.io/kubedev/pkg/run"
)

// localImageTag is the tag own apps are built at outside of CI
const localImageTag = "none"

// ServiceOrchestrator starts the backing services of a system test
type ServiceOrchestrator struct {
	docker    *docker.Client
	env       config.Env
	workspace config.Workspace
}

// Start starts the services one after the other in declaration order.
// A service that fails to start does not abort the run, it is recorded
// as not started.
func (o *ServiceOrchestrator) Start(network string, services []service) []run.StartedContainer {
	started := make([]run.StartedContainer, 0, len(services))
	for _, svc := range services {
		started = append(started, o.start(network, svc))
	}
	return started
}

func (o *ServiceOrchestrator) start(network string, svc service) run.StartedContainer {
	image := svc.image
	args := []exec.Arg{}
	env := map[string]string{}

	if svc.own != nil {
		if !config.IsCI(o.env) {
			image = svc.own.WithTag(localImageTag)
			if err := buildImage(o.docker, *svc.own, localImageTag, o.env, nil); err != nil {
				logrus.Errorf("Building image of service %s: %v", svc.ref, err)
				return run.NotStarted(svc.hostname)
			}
		}

		volumes, err := o.workspace.VolumeArgs(svc.own.Volumes)
		if err != nil {
			logrus.Errorf("Preparing volumes of service %s: %v", svc.ref, err)
			return run.NotStarted(svc.hostname)
		}
		for _, v := range volumes {
			args = append(args, exec.Lit(v))
		}

		forwards, forwardEnv := forwardEnvs("--env", svc.own.ContainerEnvs, svc.overrides, o.env)
		args = append(args, forwards...)
		env = forwardEnv
	}

	args = append(args, literalArgs("--env", svc.variables)...)
	for _, p := range svc.ports {
		args = append(args, exec.Lit("--publish"), exec.Lit(p))
	}

	return o.docker.CreateDetached(network, svc.hostname, image, args, env)
}
