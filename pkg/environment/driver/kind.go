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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"k8s.io/client-go/tools/clientcmd"

	"sigs.k8s.io/kubedev/pkg/config"
	"sigs.k8s.io/kubedev/pkg/docker"
	"sigs.k8s.io/kubedev/pkg/exec"
	"sigs.k8s.io/kubedev/pkg/run"
)

// KindWait is how long kind waits for the control plane to become ready
const KindWait = "10m"

// KindCluster is a single node kubernetes-in-docker cluster attached to
// the network of the run
type KindCluster struct {
	runner    *exec.Runner
	docker    *docker.Client
	workspace config.Workspace

	kubeconfigPath    string
	kubeconfigContent string
}

// Provision creates the cluster. Containers on the run network reach
// the API server by the control plane container name, so the server
// address kind writes to the kubeconfig is replaced with it.
func (k *KindCluster) Provision(rc run.Context) error {
	path := rc.KubeconfigPath()
	if err := os.MkdirAll(k.workspace.Path(filepath.Dir(path)), os.FileMode(0o755)); err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}

	create := exec.Command(
		"kind", "create", "cluster", "--kubeconfig", path, "--wait", KindWait, "--name", rc.ClusterName(),
	).WithEnv(map[string]string{"KIND_EXPERIMENTAL_DOCKER_NETWORK": rc.Network()})
	if err := k.runner.Check(create); err != nil {
		return fmt.Errorf("creating kind cluster: %w", err)
	}

	content, err := RewriteKubeconfig(k.workspace.Path(path), rc.ControlPlaneServer())
	if err != nil {
		return fmt.Errorf("rewriting kubeconfig: %w", err)
	}
	k.kubeconfigPath = path
	k.kubeconfigContent = content
	return nil
}

// Destroy deletes the cluster and the network kind created for it
func (k *KindCluster) Destroy(rc run.Context) error {
	var errs []error
	if err := k.runner.Check(exec.Command("kind", "delete", "cluster", "--name", rc.ClusterName())); err != nil {
		errs = append(errs, fmt.Errorf("deleting kind cluster: %w", err))
	}
	if err := k.docker.RemoveNetwork(rc.Network()); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (k *KindCluster) Kubeconfig() (path, content string) {
	return k.kubeconfigPath, k.kubeconfigContent
}

// RewriteKubeconfig points every cluster of the kubeconfig at server,
// saves it back and returns the new content
func RewriteKubeconfig(path, server string) (string, error) {
	cfg, err := clientcmd.LoadFromFile(path)
	if err != nil {
		return "", fmt.Errorf("loading %s: %w", path, err)
	}
	if len(cfg.Clusters) == 0 {
		return "", fmt.Errorf("no clusters defined in %s", path)
	}
	for name, cluster := range cfg.Clusters {
		logrus.Debugf("Pointing cluster %s to %s (was %s)", name, server, cluster.Server)
		cluster.Server = server
	}
	if err := clientcmd.WriteToFile(*cfg, path); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	data, err := clientcmd.Write(*cfg)
	if err != nil {
		return "", fmt.Errorf("serializing kubeconfig: %w", err)
	}
	return string(data), nil
}
