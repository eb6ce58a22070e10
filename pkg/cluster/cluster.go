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
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"

	"sigs.k8s.io/kubedev/pkg/config"
	"sigs.k8s.io/kubedev/pkg/exec"
	"sigs.k8s.io/kubedev/pkg/watcher"
)

const (
	KubectlImage = "bitnami/kubectl:1.18"
	HelmImage    = "alpine/helm:2.16.9"

	// KubeconfigMount is where the kubeconfig is mounted in tool containers
	KubeconfigMount = "/tmp/kube_config"
	chartMount      = "/app/helm-chart/"

	// TillerTimeout bounds the wait for tiller to become available
	TillerTimeout = 600 * time.Second
)

// Bootstrapper prepares a freshly created cluster and deploys the
// application's chart into it. kubectl and helm run in containers on
// the run network, as the cluster API is only reachable from there.
type Bootstrapper struct {
	runner *exec.Runner
	poller *watcher.Poller

	// Network is the docker network the cluster is attached to
	Network string
	// Kubeconfig is the daemon-visible host path of the rewritten kubeconfig
	Kubeconfig string
	// Chart is the daemon-visible host path of the helm chart
	Chart string
}

// New returns a bootstrapper
func New(r *exec.Runner, p *watcher.Poller, network, kubeconfig, chart string) *Bootstrapper {
	return &Bootstrapper{runner: r, poller: p, Network: network, Kubeconfig: kubeconfig, Chart: chart}
}

// DeployOptions parametrize the helm release of the application
type DeployOptions struct {
	Release string
	Tag     string
	// KubeContext is passed to helm when not empty
	KubeContext string
	// SetEnvs become --set NAME=${TARGET} arguments
	SetEnvs []config.PreparedEnv
	// Env is added to the environment of the helm invocation
	Env map[string]string
}

// Options configure Bootstrap
type Options struct {
	ImagePullSecrets string
	// DockerAuthConfig holds the registry credentials when HasDockerAuthConfig is set
	DockerAuthConfig    string
	HasDockerAuthConfig bool
	Deploy              DeployOptions
}

func (b *Bootstrapper) toolCommand(image string, volumes ...string) *exec.Cmd {
	cmd := exec.Command(
		"docker", "run", "-i", "--rm", "--network", b.Network,
		"--volume", fmt.Sprintf("%s:%s", b.Kubeconfig, KubeconfigMount),
	)
	for _, v := range volumes {
		cmd.Add("--volume", v)
	}
	return cmd.Add(image)
}

func (b *Bootstrapper) kubectl(args ...string) *exec.Cmd {
	return b.toolCommand(KubectlImage).Add("--kubeconfig", KubeconfigMount).Add(args...)
}

// Apply applies a manifest, piped to kubectl
func (b *Bootstrapper) Apply(manifest string) error {
	if err := b.runner.Check(b.kubectl("apply", "-f", "-").WithStdin(manifest)); err != nil {
		return fmt.Errorf("applying manifest: %w", err)
	}
	return nil
}

// CreatePullSecret stores the registry credentials as a docker config
// secret. The credentials only travel through the environment.
func (b *Bootstrapper) CreatePullSecret(name, dockerAuthConfig string, ok bool) error {
	if name == "" {
		return errors.New("no image pull secret name defined")
	}
	const authVar = "DOCKER_AUTH_CONFIG"
	cmd := b.toolCommand(KubectlImage).
		Add("--kubeconfig", KubeconfigMount, "create", "secret", "generic", name,
			"--type", string(corev1.SecretTypeDockerConfigJson)).
		AddRef(fmt.Sprintf("--from-literal=%s=%s", corev1.DockerConfigJsonKey, exec.EnvRef(authVar)))
	if ok {
		cmd.WithEnv(map[string]string{authVar: dockerAuthConfig})
	} else {
		logrus.Warnf("${%s} is not set, the image pull secret %s will be empty", authVar, name)
	}
	if err := b.runner.Check(cmd); err != nil {
		return fmt.Errorf("creating image pull secret: %w", err)
	}
	return nil
}

// HelmInit installs tiller bound to its service account
func (b *Bootstrapper) HelmInit() error {
	cmd := b.toolCommand(HelmImage).Add("--kubeconfig", KubeconfigMount, "init", "--service-account", TillerServiceAccount)
	if err := b.runner.Check(cmd); err != nil {
		return fmt.Errorf("initializing helm: %w", err)
	}
	return nil
}

// WaitForDeployment polls until the deployment reports an available
// replica or the timeout expires
func (b *Bootstrapper) WaitForDeployment(namespace, name string, timeout time.Duration) bool {
	return b.poller.Poll(timeout, func() (bool, string) {
		out, code, err := b.runner.Output(
			b.kubectl("--namespace", namespace, "get", "deployments", name, "-o", "json"),
		)
		if err != nil {
			return false, err.Error()
		}
		if code != 0 {
			return false, fmt.Sprintf("kubectl exited with status %d: %s", code, out)
		}
		return watcher.DeploymentAvailable(out), out
	})
}

// Deploy installs or upgrades the application chart
func (b *Bootstrapper) Deploy(opts DeployOptions) error {
	cmd := b.toolCommand(HelmImage, fmt.Sprintf("%s:%s", b.Chart, chartMount)).
		Add("upgrade", opts.Release, chartMount, "--install", "--wait", "--kubeconfig", KubeconfigMount)
	if opts.KubeContext != "" {
		cmd.Add("--kube-context", opts.KubeContext)
	}
	cmd.Add("--set", "KUBEDEV_TAG="+opts.Tag)
	for _, e := range opts.SetEnvs {
		cmd.Add("--set").AddRef(fmt.Sprintf("%s=%s", e.Name, exec.EnvRef(e.Target)))
	}
	cmd.WithEnv(opts.Env)
	if err := b.runner.Check(cmd); err != nil {
		return fmt.Errorf("deploying release %s: %w", opts.Release, err)
	}
	return nil
}

// Bootstrap prepares the cluster and deploys the application. Every
// step is fatal.
func (b *Bootstrapper) Bootstrap(opts Options) error {
	manifest, err := RBACManifest()
	if err != nil {
		return err
	}
	if err := b.Apply(manifest); err != nil {
		return err
	}
	if err := b.CreatePullSecret(opts.ImagePullSecrets, opts.DockerAuthConfig, opts.HasDockerAuthConfig); err != nil {
		return err
	}
	if err := b.HelmInit(); err != nil {
		return err
	}
	logrus.Infof("Waiting %s for the tiller deployment to become ready...", TillerTimeout)
	if !b.WaitForDeployment(TillerNamespace, TillerDeployment, TillerTimeout) {
		return fmt.Errorf("tiller deployment did not become ready within %s", TillerTimeout)
	}
	return b.Deploy(opts.Deploy)
}
