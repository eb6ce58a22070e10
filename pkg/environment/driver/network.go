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
	"sigs.k8s.io/kubedev/pkg/docker"
	"sigs.k8s.io/kubedev/pkg/run"
)

// Network is a plain docker bridge network
type Network struct {
	docker *docker.Client
}

func (n *Network) Provision(rc run.Context) error {
	return n.docker.CreateNetwork(rc.Network())
}

func (n *Network) Destroy(rc run.Context) error {
	return n.docker.RemoveNetwork(rc.Network())
}

func (n *Network) Kubeconfig() (path, content string) {
	return "", ""
}
