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
	"testing"

	"github.com/stretchr/testify/require"

	"sigs.k8s.io/kubedev/pkg/docker"
	"sigs.k8s.io/kubedev/pkg/environment/driver"
	"sigs.k8s.io/kubedev/pkg/exec/exectest"
	"sigs.k8s.io/kubedev/pkg/run"
)

func TestNew(t *testing.T) {
	env, err := New(run.CronJob, driver.Options{})
	require.NoError(t, err)
	require.True(t, env.HasCluster())

	env, err = New(run.Deployment, driver.Options{})
	require.NoError(t, err)
	require.False(t, env.HasCluster())

	_, err = New(run.AppType(42), driver.Options{})
	require.Error(t, err)
}

func TestProvisionError(t *testing.T) {
	r, _ := exectest.NewRunner(func(exectest.Call) exectest.Response {
		return exectest.Response{ExitCode: 1}
	})
	env, err := New(run.Deployment, driver.Options{Runner: r, Docker: docker.New(r)})
	require.NoError(t, err)
	err = env.Provision(run.Context{Project: "p", App: "a", Tag: "t"})
	require.ErrorContains(t, err, "provisioning environment")
}
