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

package driver

import (
	"fmt"

	"sigs.k8s.io/kubedev/pkg/config"
	"sigs.k8s.io/kubedev/pkg/docker"
	"sigs.k8s.io/kubedev/pkg/exec"
	"sigs.k8s.io/kubedev/pkg/run"
)

// Provisioner is an interface to a type that can stand up and tear down
// the isolated runtime a system test runs in
type Provisioner interface {
	Provision(run.Context) error
	Destroy(run.Context) error
	// Kubeconfig returns the path and content of the credentials of the
	// provisioned cluster. Both are empty when there is no cluster.
	Kubeconfig() (path, content string)
}

// Options carry the collaborators of the drivers
type Options struct {
	Runner    *exec.Runner
	Docker    *docker.Client
	Workspace config.Workspace
}

// NewFromAppType returns the driver for the application type
func NewFromAppType(appType run.AppType, opts Options) (Provisioner, error) {
	var driver Provisioner
	switch appType {
	case run.Deployment:
		driver = &Network{docker: opts.Docker}
	case run.CronJob:
		driver = &KindCluster{runner: opts.Runner, docker: opts.Docker, workspace: opts.Workspace}
	default:
		return nil, fmt.Errorf("unable to get environment driver for app type %s", appType)
	}
	return driver, nil
}
