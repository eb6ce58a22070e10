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

package environment

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"sigs.k8s.io/kubedev/pkg/environment/driver"
	"sigs.k8s.io/kubedev/pkg/run"
)

// Environment is the isolated runtime of one system test run
type Environment struct {
	AppType run.AppType
	driver  driver.Provisioner
}

// New returns a new environment loaded with the driver matching the
// application type
func New(appType run.AppType, opts driver.Options) (env Environment, err error) {
	env = Environment{
		AppType: appType,
	}

	d, err := driver.NewFromAppType(appType, opts)
	if err != nil {
		return env, fmt.Errorf("getting driver: %w", err)
	}

	env.driver = d
	return env, nil
}

// Provision creates the network or cluster
func (e *Environment) Provision(rc run.Context) error {
	logrus.Infof("Provisioning %s environment %s", e.AppType, rc.Network())
	if err := e.driver.Provision(rc); err != nil {
		return fmt.Errorf("provisioning environment: %w", err)
	}
	return nil
}

// Destroy tears the environment down
func (e *Environment) Destroy(rc run.Context) error {
	return e.driver.Destroy(rc)
}

// HasCluster reports whether the environment runs a kubernetes cluster
func (e *Environment) HasCluster() bool {
	return e.AppType == run.CronJob
}

// Kubeconfig returns the path and content of the cluster credentials
func (e *Environment) Kubeconfig() (path, content string) {
	return e.driver.Kubeconfig()
}
