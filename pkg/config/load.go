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
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the descriptor file name looked up in the working directory
const DefaultFile = "kubedev.json"

const (
	SectionDeployments = "deployments"
	SectionCronJobs    = "cronjobs"
	SectionGeneric     = "generic"
)

// Load reads a project descriptor. JSON documents are parsed as YAML,
// which keeps the declaration order of the system test services.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project descriptor: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a project descriptor
func Parse(data []byte) (*Project, error) {
	p := &Project{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing project descriptor: %w", err)
	}
	if p.Name == "" {
		return nil, NewError("the field name is required in the project descriptor")
	}
	return p, nil
}

// AppDefinition is an app together with the descriptor section it is
// declared in
type AppDefinition struct {
	Name    string
	Section string
	App
}

// LookupApp finds an app in any section of the descriptor. Names in
// later sections shadow earlier ones.
func (p *Project) LookupApp(name string) (AppDefinition, bool) {
	var (
		res   AppDefinition
		found bool
	)
	for _, s := range []struct {
		name string
		apps map[string]App
	}{
		{SectionDeployments, p.Deployments},
		{SectionCronJobs, p.CronJobs},
		{SectionGeneric, p.Generic},
	} {
		if app, ok := s.apps[name]; ok {
			res = AppDefinition{Name: name, Section: s.name, App: app}
			found = true
		}
	}
	return res, found
}

// AppNames returns the sorted names of all apps
func (p *Project) AppNames() []string {
	all := map[string]struct{}{}
	for _, apps := range []map[string]App{p.Deployments, p.CronJobs, p.Generic} {
		for k := range apps {
			all[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(all))
}

// GlobalVariables are passed to every helm invocation
func (p *Project) GlobalVariables() map[string]string {
	return map[string]string{
		"KUBEDEV_PROJECT_NAME":        p.Name,
		"KUBEDEV_PROJECT_DESCRIPTION": p.Description,
		"KUBEDEV_IMAGEPULLSECRETS":    p.ImagePullSecrets,
		"KUBEDEV_IMAGEREGISTRY":       p.ImageRegistry,
	}
}

// ReleaseName is the helm release of the project outside system tests
func (p *Project) ReleaseName() string {
	if p.HelmReleaseName != "" {
		return p.HelmReleaseName
	}
	return p.Name
}
