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

package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Project is the kubedev project descriptor (kubedev.json)
type Project struct {
	Name             string                 `yaml:"name"`
	Description      string                 `yaml:"description"`
	ImagePullSecrets string                 `yaml:"imagePullSecrets"`
	ImageRegistry    string                 `yaml:"imageRegistry"`
	HelmReleaseName  string                 `yaml:"helmReleaseName"`
	UsedFrameworks   []string               `yaml:"usedFrameworks"`
	RequiredEnvs     map[string]RequiredEnv `yaml:"required-envs"`
	Deployments      map[string]App         `yaml:"deployments"`
	CronJobs         map[string]App         `yaml:"cronjobs"`
	Generic          map[string]App         `yaml:"generic"`
}

// App is one deployable unit of the project
type App struct {
	Ports          map[string]Port        `yaml:"ports"`
	RequiredEnvs   map[string]RequiredEnv `yaml:"required-envs"`
	Volumes        Volumes                `yaml:"volumes"`
	UsedFrameworks []string               `yaml:"usedFrameworks"`
	SystemTest     *SystemTest            `yaml:"systemTest"`
}

type Port struct {
	Container string `yaml:"container"`
	Service   string `yaml:"service"`
	Dev       string `yaml:"dev"`
}

type Volumes struct {
	Dev map[string]VolumeSpec `yaml:"dev"`
}

// RequiredEnv declares an environment variable an app needs at build
// and/or container time
type RequiredEnv struct {
	Documentation string `yaml:"documentation"`
	Build         *bool  `yaml:"build"`
	Container     *bool  `yaml:"container"`
	Transform     string `yaml:"transform"`
}

// VolumeSpec maps a host path (or inline content) into a container. In
// the descriptor it is either a plain container path or an object.
type VolumeSpec struct {
	Path     string `yaml:"path"`
	Content  string `yaml:"content"`
	Base64   string `yaml:"base64"`
	ReadOnly bool   `yaml:"readOnly"`

	hasContent bool
	hasBase64  bool
}

func (v *VolumeSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		v.Path = node.Value
		return nil
	case yaml.MappingNode:
		type plain VolumeSpec
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*v = VolumeSpec(p)
		for i := 0; i+1 < len(node.Content); i += 2 {
			switch node.Content[i].Value {
			case "content":
				v.hasContent = true
			case "base64":
				v.hasBase64 = true
			}
		}
		if v.Path == "" {
			return NewError("volume specification does not contain required \"path\" attribute")
		}
		return nil
	default:
		return NewError(
			"volume specification must either be a string, or an object with a \"path\" property (line %d)", node.Line,
		)
	}
}

// SystemTest is the systemTest node of an app
type SystemTest struct {
	Variables     map[string]string `yaml:"variables"`
	TestContainer TestContainer     `yaml:"testContainer"`
	Services      Services          `yaml:"services"`
}

type TestContainer struct {
	BuildArgs map[string]string `yaml:"buildArgs"`
	Variables map[string]string `yaml:"variables"`
}

// ServiceSpec is a backing service started next to the harness
type ServiceSpec struct {
	Hostname  string            `yaml:"hostname"`
	Ports     []string          `yaml:"ports"`
	Variables map[string]string `yaml:"variables"`
}

// NamedService is a service keyed by its image reference, either a
// literal image or an {appName} back-reference
type NamedService struct {
	Ref  string
	Spec ServiceSpec
}

// Services keeps the services in declaration order
type Services []NamedService

func (s *Services) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("systemTest.services must be a map (line %d)", node.Line)
	}
	res := make(Services, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var spec ServiceSpec
		if err := node.Content[i+1].Decode(&spec); err != nil {
			return fmt.Errorf("decoding service %s: %w", node.Content[i].Value, err)
		}
		res = append(res, NamedService{Ref: node.Content[i].Value, Spec: spec})
	}
	*s = res
	return nil
}
