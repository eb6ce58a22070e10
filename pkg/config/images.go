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
	"slices"
)

// ImageDescriptor is the resolved build and run information of one app
type ImageDescriptor struct {
	// AppName is the collapsed {project}-{app} name
	AppName          string
	ImageName        string
	ImageNameTagless string
	BuildPath        string
	Ports            map[string]Port
	Volumes          map[string]VolumeSpec
	BuildEnvs        map[string]RequiredEnv
	ContainerEnvs    map[string]RequiredEnv
	UsedFrameworks   []string
}

// WithTag returns the image name with tag replaced
func (i ImageDescriptor) WithTag(tag string) string {
	return fmt.Sprintf("%s:%s", i.ImageNameTagless, tag)
}

// Images resolves the image descriptors of all deployments and cron jobs
func (p *Project) Images(e Env) map[string]ImageDescriptor {
	images := map[string]ImageDescriptor{}
	globalBuild := filterEnvs(p.RequiredEnvs, true, false)
	globalContainer := filterEnvs(p.RequiredEnvs, false, true)
	tag := ImageTag(e)

	for _, apps := range []map[string]App{p.Deployments, p.CronJobs} {
		for key, app := range apps {
			name := CollapseNames(p.Name, key)
			volumes := app.Volumes.Dev
			if volumes == nil {
				volumes = map[string]VolumeSpec{}
			}
			ports := app.Ports
			if ports == nil {
				ports = map[string]Port{}
			}
			images[key] = ImageDescriptor{
				AppName:          name,
				ImageName:        fmt.Sprintf("%s/%s:%s", p.ImageRegistry, name, tag),
				ImageNameTagless: fmt.Sprintf("%s/%s", p.ImageRegistry, name),
				BuildPath:        BuildPath(p.Name, key),
				Ports:            ports,
				Volumes:          volumes,
				BuildEnvs:        mergeEnvs(globalBuild, filterEnvs(app.RequiredEnvs, true, false)),
				ContainerEnvs:    mergeEnvs(globalContainer, filterEnvs(app.RequiredEnvs, false, true)),
				UsedFrameworks:   append(slices.Clone(p.UsedFrameworks), app.UsedFrameworks...),
			}
		}
	}
	return images
}

// ImageTag is {commit}_{branch} inside GitLab CI and "none" elsewhere
func ImageTag(e Env) string {
	commit, okCommit := e.LookupEnv("CI_COMMIT_SHORT_SHA")
	branch, okBranch := e.LookupEnv("CI_COMMIT_REF_NAME")
	if okCommit && okBranch {
		return fmt.Sprintf("%s_%s", commit, branch)
	}
	return "none"
}

// CollapseNames joins project and app name, unless they are the same
func CollapseNames(first, second string) string {
	if first == second {
		return first
	}
	return fmt.Sprintf("%s-%s", first, second)
}

// BuildPath is the docker build context of an app
func BuildPath(project, app string) string {
	if project == app {
		return "./"
	}
	return fmt.Sprintf("./%s/", app)
}
