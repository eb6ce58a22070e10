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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"k8s.io/client-go/tools/clientcmd"

	"sigs.k8s.io/kubedev/pkg/config"
	"sigs.k8s.io/kubedev/pkg/docker"
	"sigs.k8s.io/kubedev/pkg/exec/exectest"
	"sigs.k8s.io/kubedev/pkg/run"
)

const kindKubeconfig = `apiVersion: v1
kind: Config
clusters:
- cluster:
    certificate-authority-data: Y2VydA==
    server: https://127.0.0.1:39627
  name: kind-kind-foo-service-asdf
contexts:
- context:
    cluster: kind-kind-foo-service-asdf
    user: kind-kind-foo-service-asdf
  name: kind-kind-foo-service-asdf
current-context: kind-kind-foo-service-asdf
users:
- name: kind-kind-foo-service-asdf
  user:
    client-certificate-data: Y2xpZW50
    client-key-data: a2V5
`

var testContext = run.Context{Project: "foo-service", App: "foo-job", Tag: "asdf"}

func TestNewFromAppType(t *testing.T) {
	d, err := NewFromAppType(run.Deployment, Options{})
	require.NoError(t, err)
	require.IsType(t, &Network{}, d)

	d, err = NewFromAppType(run.CronJob, Options{})
	require.NoError(t, err)
	require.IsType(t, &KindCluster{}, d)

	_, err = NewFromAppType(run.AppType(0), Options{})
	require.Error(t, err)
}

func TestNetwork(t *testing.T) {
	r, fake := exectest.NewRunner(nil)
	d, err := NewFromAppType(run.Deployment, Options{Runner: r, Docker: docker.New(r)})
	require.NoError(t, err)

	require.NoError(t, d.Provision(testContext))
	require.NoError(t, d.Destroy(testContext))
	path, content := d.Kubeconfig()
	require.Empty(t, path)
	require.Empty(t, content)

	require.Equal(t, []string{
		"docker network create local-foo-job-system-tests-asdf",
		"docker network rm local-foo-job-system-tests-asdf",
	}, fake.Lines())
}

func TestKindCluster(t *testing.T) {
	dir := t.TempDir()
	r, fake := exectest.NewRunner(func(c exectest.Call) exectest.Response {
		if c.HasPrefix("kind", "create") {
			if err := os.WriteFile(filepath.Join(dir, c.Argv[4]), []byte(kindKubeconfig), os.FileMode(0o600)); err != nil {
				return exectest.Response{Err: err}
			}
		}
		return exectest.Response{}
	})
	d, err := NewFromAppType(run.CronJob, Options{
		Runner: r, Docker: docker.New(r), Workspace: config.Workspace{Dir: dir},
	})
	require.NoError(t, err)

	require.NoError(t, d.Provision(testContext))
	require.Equal(t,
		"kind create cluster --kubeconfig .kubedev/kind_config_foo-service-asdf --wait 10m --name kind-foo-service-asdf",
		fake.Lines()[0],
	)
	require.Equal(t,
		map[string]string{"KIND_EXPERIMENTAL_DOCKER_NETWORK": "local-foo-job-system-tests-asdf"},
		fake.Calls[0].Env,
	)

	path, content := d.Kubeconfig()
	require.Equal(t, ".kubedev/kind_config_foo-service-asdf", path)
	require.Contains(t, content, "https://kind-foo-service-asdf-control-plane:6443")

	saved, err := clientcmd.LoadFromFile(filepath.Join(dir, path))
	require.NoError(t, err)
	require.Equal(t, "https://kind-foo-service-asdf-control-plane:6443", saved.Clusters["kind-kind-foo-service-asdf"].Server)
	require.Equal(t, []byte("cert"), saved.Clusters["kind-kind-foo-service-asdf"].CertificateAuthorityData)

	require.NoError(t, d.Destroy(testContext))
	require.Equal(t, []string{
		"kind delete cluster --name kind-foo-service-asdf",
		"docker network rm local-foo-job-system-tests-asdf",
	}, fake.Lines()[1:])
}

func TestKindClusterCreateFails(t *testing.T) {
	r, _ := exectest.NewRunner(func(exectest.Call) exectest.Response {
		return exectest.Response{ExitCode: 1}
	})
	d, err := NewFromAppType(run.CronJob, Options{
		Runner: r, Docker: docker.New(r), Workspace: config.Workspace{Dir: t.TempDir()},
	})
	require.NoError(t, err)
	require.Error(t, d.Provision(testContext))

	// both teardown steps are attempted and reported
	err = d.Destroy(testContext)
	require.ErrorContains(t, err, "deleting kind cluster")
	require.ErrorContains(t, err, "removing network")
}

func TestRewriteKubeconfigErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := RewriteKubeconfig(filepath.Join(dir, "missing"), "https://x:6443")
	require.Error(t, err)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("apiVersion: v1\nkind: Config\n"), os.FileMode(0o600)))
	_, err = RewriteKubeconfig(empty, "https://x:6443")
	require.Error(t, err)
}
