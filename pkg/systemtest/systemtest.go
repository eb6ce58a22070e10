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

package systemtest

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"sigs.k8s.io/kubedev/pkg/cluster"
	"sigs.k8s.io/kubedev/pkg/config"
	"sigs.k8s.io/kubedev/pkg/docker"
	"sigs.k8s.io/kubedev/pkg/environment"
	"sigs.k8s.io/kubedev/pkg/environment/driver"
	"sigs.k8s.io/kubedev/pkg/exec"
	"sigs.k8s.io/kubedev/pkg/git"
	"sigs.k8s.io/kubedev/pkg/run"
	"sigs.k8s.io/kubedev/pkg/watcher"
)

// ChartDir is the helm chart of the project, relative to the workspace
const ChartDir = "helm-chart/"

// State is a step of a system test run
type State int

const (
	Validating State = iota
	Building
	Provisioning
	StartingServices
	BootstrappingCluster
	RunningHarness
	Passed
	Failed
	CollectingDiagnostics
	RemovingContainers
	DestroyingNetwork
	Done
)

func (s State) String() string {
	return [...]string{
		"validating", "building", "provisioning", "starting services", "bootstrapping cluster",
		"running harness", "passed", "failed", "collecting diagnostics", "removing containers",
		"destroying network", "done",
	}[s]
}

// Options configure a SystemTest
type Options struct {
	Workspace config.Workspace
	Env       config.Env
	Tags      run.TagGenerator
	Poller    *watcher.Poller
}

// SystemTest runs the system tests of the apps of a project
type SystemTest struct {
	project   *config.Project
	runner    *exec.Runner
	docker    *docker.Client
	env       config.Env
	workspace config.Workspace
	tags      run.TagGenerator
	poller    *watcher.Poller
	repo      *git.Repository

	// OnTransition is called whenever the run enters a new state
	OnTransition func(State)
}

// New returns a system test runner for the project
func New(project *config.Project, runner *exec.Runner, opts Options) *SystemTest {
	st := &SystemTest{
		project:   project,
		runner:    runner,
		docker:    docker.New(runner),
		env:       opts.Env,
		workspace: opts.Workspace,
		tags:      opts.Tags,
		poller:    opts.Poller,
		repo:      git.NewRepository(opts.Workspace.Path(".")),
	}
	if st.env == nil {
		st.env = config.OSEnv{}
	}
	if st.tags == nil {
		st.tags = run.UUIDTags{}
	}
	if st.poller == nil {
		st.poller = watcher.NewPoller()
	}
	return st
}

func (st *SystemTest) transition(s State) {
	logrus.Debugf("System test state: %s", s)
	if st.OnTransition != nil {
		st.OnTransition(s)
	}
}

// Run runs the system tests of appName. Configuration errors are
// returned as errors before anything is created. Every other failure
// is reported in the result, after everything that was created has
// been torn down.
func (st *SystemTest) Run(appName string) (run.Result, error) {
	st.transition(Validating)
	if _, err := config.EnsureDockerConfig(st.env); err != nil {
		logrus.Warnf("Unable to store docker config: %v", err)
	}
	p, err := newPlan(st.project, appName, st.env)
	if err != nil {
		return run.Result{}, err
	}

	rc := run.NewContext(st.project.Name, appName, st.tags)
	lock, err := acquireLock(st.workspace)
	if err != nil {
		return run.Result{Err: err}, nil
	}
	defer releaseLock(lock)

	res := st.execute(p, rc)
	st.transition(Done)
	if res.Passed {
		logrus.Info("System tests succeeded! 🌟🎉🥳")
	} else {
		if res.Err != nil {
			logrus.Errorf("System test run aborted: %v", res.Err)
		}
		logrus.Error("System tests failed! The logs of the services and the system test have been printed above.")
	}
	return res, nil
}

func (st *SystemTest) execute(p *plan, rc run.Context) (res run.Result) {
	cleanup := &cleanupStack{}
	defer cleanup.run()
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("System test run panicked: %v", r)
			res = run.Result{Err: fmt.Errorf("system test run panicked: %v", r)}
		}
	}()

	st.transition(Building)
	harness := &HarnessRunner{docker: st.docker, env: st.env}
	if err := harness.Build(rc, p.definition.TestContainer, st.repo.ImageLabels()); err != nil {
		return run.Result{Err: err}
	}
	if p.appType == run.CronJob {
		tag := p.image.WithTag(rc.Tag)
		if err := buildImage(st.docker, p.image, rc.Tag, st.env, nil); err != nil {
			return run.Result{Err: fmt.Errorf("building app image: %w", err)}
		}
		if err := st.docker.Push(tag); err != nil {
			return run.Result{Err: err}
		}
	}

	st.transition(Provisioning)
	env, err := environment.New(p.appType, driver.Options{
		Runner: st.runner, Docker: st.docker, Workspace: st.workspace,
	})
	if err != nil {
		return run.Result{Err: err}
	}
	cleanup.push("destroy environment", func() error {
		st.transition(DestroyingNetwork)
		return env.Destroy(rc)
	})
	if err := env.Provision(rc); err != nil {
		return run.Result{Err: err}
	}

	started := []run.StartedContainer{}
	cleanup.push("remove containers", func() error {
		return st.removeContainers(started, res.Passed)
	})

	st.transition(StartingServices)
	orchestrator := &ServiceOrchestrator{docker: st.docker, env: st.env, workspace: st.workspace}
	started = append(started, orchestrator.Start(rc.Network(), p.services)...)

	harnessVars := p.harnessVars
	kubeconfigHostPath := ""
	if env.HasCluster() {
		st.transition(BootstrappingCluster)
		kubeconfigPath, kubeconfigContent := env.Kubeconfig()
		kubeconfigHostPath, err = st.workspace.HostPath(kubeconfigPath)
		if err != nil {
			return run.Result{Err: err}
		}

		apiKey := st.tags.Tag()
		harnessVars = merge(harnessVars, cluster.HarnessVariables(apiKey))
		started = append(started, cluster.StartDaemon(
			st.docker, rc.Network(), apiKey, p.image.AppName, kubeconfigContent,
		))

		if err := st.bootstrap(rc, kubeconfigHostPath); err != nil {
			return run.Result{Err: err}
		}
	}

	st.transition(RunningHarness)
	logrus.Info("🚀🚀🚀 Preparation completed, system tests are starting now")
	passed, err := harness.Run(rc, p.image, harnessVars, kubeconfigHostPath)
	if err != nil {
		return run.Result{Err: err}
	}
	if passed {
		st.transition(Passed)
	} else {
		st.transition(Failed)
		logrus.Error("^^^ See logs of the system test above.")
	}
	return run.Result{Passed: passed}
}

func (st *SystemTest) bootstrap(rc run.Context, kubeconfig string) error {
	chart, err := st.workspace.HostPath(ChartDir)
	if err != nil {
		return err
	}
	b := cluster.New(st.runner, st.poller, rc.Network(), kubeconfig, chart)

	prepared, extra := config.PrepareEnvs(st.project.AllContainerEnvs(), st.env)
	deployEnv := merge(st.project.GlobalVariables(), extra)
	for _, pe := range prepared {
		if pe.Name != pe.Target {
			continue
		}
		if v, ok := st.env.LookupEnv(pe.Name); ok {
			deployEnv[pe.Name] = v
		}
	}
	auth, hasAuth := st.env.LookupEnv("DOCKER_AUTH_CONFIG")

	return b.Bootstrap(cluster.Options{
		ImagePullSecrets:    st.project.ImagePullSecrets,
		DockerAuthConfig:    auth,
		HasDockerAuthConfig: hasAuth,
		Deploy: cluster.DeployOptions{
			Release:     rc.ReleaseName(),
			Tag:         rc.Tag,
			KubeContext: st.env.Getenv("KUBEDEV_KUBECONTEXT"),
			SetEnvs:     prepared,
			Env:         deployEnv,
		},
	})
}

// removeContainers removes every created container, in the order they
// were started. When the tests did not pass their logs are dumped first.
func (st *SystemTest) removeContainers(started []run.StartedContainer, passed bool) error {
	if !passed {
		st.transition(CollectingDiagnostics)
	}
	st.transition(RemovingContainers)
	var errs []error
	for _, c := range started {
		id, ok := c.ID()
		if !ok {
			continue
		}
		if !passed {
			if err := st.docker.Logs(id); err != nil {
				logrus.Warnf("Fetching logs of %s: %v", c.Name(), err)
			}
			logrus.Errorf("^^^ See logs of the service %q above", c.Name())
		}
		if err := st.docker.Remove(id); err != nil {
			errs = append(errs, fmt.Errorf("removing %s: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}
