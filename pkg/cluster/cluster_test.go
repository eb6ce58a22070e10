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

package cluster

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	rbacv1 "k8s.io/api/rbac/v1"
	clocktesting "k8s.io/utils/clock/testing"
	"sigs.k8s.io/yaml"

	"sigs.k8s.io/kubedev/pkg/config"
	"sigs.k8s.io/kubedev/pkg/docker"
	"sigs.k8s.io/kubedev/pkg/exec/exectest"
	"sigs.k8s.io/kubedev/pkg/watcher"
)

const (
	testNetwork    = "local-foo-job-system-tests-asdf"
	testKubeconfig = "/work/.kubedev/kind_config_foo-service-asdf"
	toolPrefix     = "docker run -i --rm --network " + testNetwork + " --volume " + testKubeconfig + ":/tmp/kube_config"
)

func newTestBootstrapper(handler func(exectest.Call) exectest.Response) (*Bootstrapper, *exectest.Fake, *clocktesting.FakeClock) {
	r, fake := exectest.NewRunner(handler)
	fc := clocktesting.NewFakeClock(time.Now())
	p := &watcher.Poller{Clock: fc, Interval: watcher.DefaultInterval}
	return New(r, p, testNetwork, testKubeconfig, "/work/helm-chart/"), fake, fc
}

func tillerReady(c exectest.Call) exectest.Response {
	if strings.Contains(c.String(), "get deployments tiller-deploy") {
		return exectest.Response{Stdout: `{"status": {"availableReplicas": 1}}`}
	}
	return exectest.Response{}
}

func TestRBACManifest(t *testing.T) {
	m, err := RBACManifest()
	require.NoError(t, err)
	docs := strings.Split(m, "---\n")
	require.Len(t, docs, 3)

	role := rbacv1.ClusterRole{}
	require.NoError(t, yaml.Unmarshal([]byte(docs[0]), &role))
	require.Equal(t, "ClusterRole", role.Kind)
	require.Equal(t, "cluster-admin", role.Name)
	require.Equal(t, "true", role.Annotations["rbac.authorization.kubernetes.io/autoupdate"])
	require.Len(t, role.Rules, 2)
	require.Equal(t, []string{"*"}, role.Rules[1].NonResourceURLs)

	require.Contains(t, docs[1], "kind: ServiceAccount")
	require.Contains(t, docs[1], "namespace: kube-system")

	binding := rbacv1.ClusterRoleBinding{}
	require.NoError(t, yaml.Unmarshal([]byte(docs[2]), &binding))
	require.Equal(t, "tiller", binding.Name)
	require.Equal(t, "cluster-admin", binding.RoleRef.Name)
	require.Equal(t, "tiller", binding.Subjects[0].Name)
	require.Equal(t, "kube-system", binding.Subjects[0].Namespace)
}

func TestBootstrap(t *testing.T) {
	b, fake, _ := newTestBootstrapper(tillerReady)
	err := b.Bootstrap(Options{
		ImagePullSecrets:    "foo-creds",
		DockerAuthConfig:    `{"auths": {"secret": true}}`,
		HasDockerAuthConfig: true,
		Deploy: DeployOptions{
			Release: testNetwork,
			Tag:     "asdf",
			SetEnvs: []config.PreparedEnv{{Name: "A", Target: "A"}, {Name: "BIN", Target: "BIN_AS_BASE64"}},
			Env:     map[string]string{"KUBEDEV_PROJECT_NAME": "foo-service", "BIN_AS_BASE64": "eA=="},
		},
	})
	require.NoError(t, err)

	lines := fake.Lines()
	require.Equal(t, []string{
		toolPrefix + " bitnami/kubectl:1.18 --kubeconfig /tmp/kube_config apply -f -",
		toolPrefix + " bitnami/kubectl:1.18 --kubeconfig /tmp/kube_config create secret generic foo-creds" +
			" --type kubernetes.io/dockerconfigjson --from-literal=.dockerconfigjson=${DOCKER_AUTH_CONFIG}",
		toolPrefix + " alpine/helm:2.16.9 --kubeconfig /tmp/kube_config init --service-account tiller",
		toolPrefix + " bitnami/kubectl:1.18 --kubeconfig /tmp/kube_config --namespace kube-system get deployments tiller-deploy -o json",
		toolPrefix + " --volume /work/helm-chart/:/app/helm-chart/ alpine/helm:2.16.9 upgrade " + testNetwork +
			" /app/helm-chart/ --install --wait --kubeconfig /tmp/kube_config --set KUBEDEV_TAG=asdf" +
			" --set A=${A} --set BIN=${BIN_AS_BASE64}",
	}, lines)

	require.Contains(t, fake.Calls[0].Stdin, "kind: ClusterRoleBinding")
	require.Equal(t, `{"auths": {"secret": true}}`, fake.Calls[1].Env["DOCKER_AUTH_CONFIG"])
	require.True(t, fake.Calls[3].Capture)
	require.Equal(t, "eA==", fake.Calls[4].Env["BIN_AS_BASE64"])
	require.NotContains(t, fake.Calls[4].Env, "BIN")
}

func TestBootstrapStepFailureAborts(t *testing.T) {
	b, fake, _ := newTestBootstrapper(func(c exectest.Call) exectest.Response {
		if strings.Contains(c.String(), "create secret") {
			return exectest.Response{ExitCode: 1}
		}
		return tillerReady(c)
	})
	err := b.Bootstrap(Options{ImagePullSecrets: "foo-creds"})
	require.ErrorContains(t, err, "image pull secret")
	require.Len(t, fake.Calls, 2)
}

func TestBootstrapTillerTimeout(t *testing.T) {
	b, fake, fc := newTestBootstrapper(func(c exectest.Call) exectest.Response {
		if strings.Contains(c.String(), "get deployments") {
			return exectest.Response{Stdout: `{"status": {"availableReplicas": 0}}`}
		}
		return exectest.Response{}
	})
	start := fc.Now()
	err := b.Bootstrap(Options{ImagePullSecrets: "foo-creds"})
	require.ErrorContains(t, err, "did not become ready")
	require.LessOrEqual(t, fc.Since(start), TillerTimeout+watcher.DefaultInterval)
	require.Equal(t, -1, fake.Index(toolPrefix, "--volume /work/helm-chart/"))
}

func TestWaitForDeploymentUndecodable(t *testing.T) {
	calls := 0
	b, _, _ := newTestBootstrapper(func(exectest.Call) exectest.Response {
		calls++
		if calls < 3 {
			return exectest.Response{Stdout: "not json {"}
		}
		return exectest.Response{Stdout: `{"status": {"availableReplicas": 1}}`}
	})
	require.True(t, b.WaitForDeployment("kube-system", "tiller-deploy", time.Minute))
	require.Equal(t, 3, calls)
}

func TestDeployKubeContext(t *testing.T) {
	b, fake, _ := newTestBootstrapper(nil)
	require.NoError(t, b.Deploy(DeployOptions{Release: "rel", Tag: "t", KubeContext: "ctx"}))
	require.Contains(t, fake.Lines()[0], "--kubeconfig /tmp/kube_config --kube-context ctx --set KUBEDEV_TAG=t")
}

func TestCreatePullSecretRequiresName(t *testing.T) {
	b, fake, _ := newTestBootstrapper(nil)
	require.Error(t, b.CreatePullSecret("", "", false))
	require.Empty(t, fake.Calls)
}

func TestStartDaemon(t *testing.T) {
	r, fake := exectest.NewRunner(func(c exectest.Call) exectest.Response {
		if c.HasPrefix("docker", "create") {
			return exectest.Response{Stdout: "daemon-id"}
		}
		return exectest.Response{}
	})
	c := StartDaemon(docker.New(r), testNetwork, "key123", "foo-service-foo-job", "apiVersion: v1\n")
	require.True(t, c.IsStarted())
	require.Equal(t, DaemonName, c.Name())

	create := fake.Find("docker", "create")
	require.Len(t, create, 1)
	require.Equal(t,
		"docker create --network "+testNetwork+" --name kubedev-run-cronjob-api --rm"+
			" --env KUBEDEV_SYSTEMTEST_DAEMON_APIKEY=key123"+
			" --env KUBEDEV_SYSTEMTEST_DAEMON_CRONJOB=foo-service-foo-job"+
			" --env KUBEDEV_SYSTEMTEST_DAEMON_KUBECONFIG=${KUBEDEV_SYSTEMTEST_DAEMON_KUBECONFIG}"+
			" danielkun/kubedev-systemtest-daemon:v0.01",
		create[0].String(),
	)
	require.Equal(t, "apiVersion: v1\n", create[0].Env[DaemonKubeconfigVar])

	require.Equal(t, map[string]string{
		DaemonAPIKeyVar:   "key123",
		DaemonEndpointVar: "http://kubedev-run-cronjob-api:5000/execute",
	}, HarnessVariables("key123"))
}
