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

package run

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// WorkDir is the working-directory relative path where transient
// artifacts of a run are stored
const WorkDir = ".kubedev"

// ControlPlanePort is the API server port of a kind control-plane node
const ControlPlanePort = 6443

// AppType is the kind of application a system test runs for. It decides
// whether the run gets a plain docker network or a kind cluster.
type AppType int

const (
	// Deployment apps are tested on a bare docker network
	Deployment AppType = iota + 1
	// CronJob apps are deployed into an ephemeral kind cluster
	CronJob
)

func (t AppType) String() string {
	switch t {
	case Deployment:
		return "deployment"
	case CronJob:
		return "cron-job"
	default:
		return fmt.Sprintf("AppType(%d)", int(t))
	}
}

// AppTypeFromSection maps the descriptor section an app is declared in
// to its type
func AppTypeFromSection(section string) (AppType, error) {
	switch section {
	case "deployments":
		return Deployment, nil
	case "cronjobs":
		return CronJob, nil
	default:
		return 0, fmt.Errorf("can not run system tests for app type %s", section)
	}
}

// TagGenerator produces the random identifiers used to namespace the
// resources of a run
type TagGenerator interface {
	Tag() string
}

// UUIDTags generates tags from the first group of a random UUID
type UUIDTags struct{}

func (UUIDTags) Tag() string {
	s := uuid.NewString()
	if i := strings.IndexByte(s, '-'); i > 0 {
		return s[:i]
	}
	return s
}

// Context holds the names of everything one system test run creates.
// It lives for a single invocation and is never persisted.
type Context struct {
	Project string
	App     string
	Tag     string
}

// NewContext creates a run context with a fresh tag
func NewContext(project, app string, tags TagGenerator) Context {
	return Context{Project: project, App: app, Tag: tags.Tag()}
}

// HarnessImage is the tag of the locally built test harness image
func (c Context) HarnessImage() string {
	return fmt.Sprintf("local-%s-system-tests-%s", c.App, c.Tag)
}

// Network is the docker network all containers of the run attach to
func (c Context) Network() string {
	return c.HarnessImage()
}

// ReleaseName is the helm release the app is deployed as
func (c Context) ReleaseName() string {
	return c.HarnessImage()
}

// TestContainer is the name of the harness container
func (c Context) TestContainer() string {
	return fmt.Sprintf("%s-system-tests-%s", c.App, c.Tag)
}

// ClusterName is the name of the kind cluster of cron job runs
func (c Context) ClusterName() string {
	return fmt.Sprintf("kind-%s-%s", c.Project, c.Tag)
}

// KubeconfigPath is where kind writes the cluster credentials
func (c Context) KubeconfigPath() string {
	return filepath.Join(WorkDir, fmt.Sprintf("kind_config_%s-%s", c.Project, c.Tag))
}

// ControlPlaneServer is the API server address reachable from containers
// on the run's network
func (c Context) ControlPlaneServer() string {
	return fmt.Sprintf("https://%s-control-plane:%d", c.ClusterName(), ControlPlanePort)
}

// Result is the outcome of a system test run
type Result struct {
	Passed bool
	// Err is the earliest fatal error, nil when the harness decided the result
	Err error
}

// ExitCode returns the process exit status for the result
func (r Result) ExitCode() int {
	if r.Passed {
		return 0
	}
	return 1
}
