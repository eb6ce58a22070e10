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

package docker

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/sirupsen/logrus"

	"sigs.k8s.io/kubedev/pkg/exec"
	"sigs.k8s.io/kubedev/pkg/run"
)

// Client drives the docker command line
type Client struct {
	runner *exec.Runner
}

// New returns a client running docker through r
func New(r *exec.Runner) *Client {
	return &Client{runner: r}
}

// ValidateImage checks that ref parses as an image reference
func ValidateImage(ref string) error {
	if _, err := name.ParseReference(ref, name.WeakValidation); err != nil {
		return fmt.Errorf("invalid image reference %q: %w", ref, err)
	}
	return nil
}

// RemoveIfExists force-removes the container name. Failures are ignored,
// the container may legitimately not exist.
func (c *Client) RemoveIfExists(containerName string) {
	if _, err := c.runner.Execute(exec.Command("docker", "rm", "--force", containerName)); err != nil {
		logrus.Debugf("removing %s: %v", containerName, err)
	}
}

// CreateDetached creates a self-removing container on network and starts
// it. Any container of the same name is removed first. env is added to
// the environment of the docker client, for args referencing it.
//
// A failed create yields a container that was not started and has no
// id. A failed start yields a container which has an id but is not
// started, so teardown still removes it.
func (c *Client) CreateDetached(
	network, containerName, image string, args []exec.Arg, env map[string]string,
) run.StartedContainer {
	logrus.Infof("Running detached: %s (image: %s)", containerName, image)
	if err := ValidateImage(image); err != nil {
		logrus.Error(err)
		return run.NotStarted(containerName)
	}
	c.RemoveIfExists(containerName)

	create := exec.Command("docker", "create", "--network", network, "--name", containerName, "--rm").
		AddArgs(args...).
		Add(image).
		WithEnv(env)
	out, code, err := c.runner.Output(create)
	if err != nil {
		logrus.Errorf("Creating container %s: %v", containerName, err)
		return run.NotStarted(containerName)
	}
	id := strings.TrimSpace(out)
	logrus.Infof("> %s", id)
	if code != 0 || id == "" {
		logrus.Errorf("Creating container %s exited with status %d", containerName, code)
		return run.NotStarted(containerName)
	}

	if err := c.runner.Check(exec.Command("docker", "start", id)); err != nil {
		logrus.Errorf("Starting container %s: %v", containerName, err)
		return run.CreatedNotStarted(id, containerName)
	}
	return run.Started(id, containerName)
}

// Remove force-removes the container with the given id
func (c *Client) Remove(id string) error {
	return c.runner.Check(exec.Command("docker", "rm", "--force", id))
}

// Logs dumps the logs of a container to the output streams
func (c *Client) Logs(id string) error {
	return c.runner.Check(exec.Command("docker", "logs", id))
}

// BuildArg is a --build-arg whose value is read from the environment
// variable Target
type BuildArg struct {
	Name   string
	Target string
}

// BuildOptions describe an image build
type BuildOptions struct {
	Tag       string
	Context   string
	BuildArgs []BuildArg
	// Env is added to the environment of the build
	Env    map[string]string
	Labels map[string]string
}

// Build builds an image. Build argument values never appear on the
// command line, they are expanded from the build environment.
func (c *Client) Build(opts BuildOptions) error {
	if _, err := name.NewTag(opts.Tag, name.WeakValidation); err != nil {
		return fmt.Errorf("invalid image tag %q: %w", opts.Tag, err)
	}
	cmd := exec.Command("docker", "build", "-t", opts.Tag)
	for _, k := range slices.Sorted(maps.Keys(opts.Labels)) {
		cmd.Add("--label", fmt.Sprintf("%s=%s", k, opts.Labels[k]))
	}
	for _, arg := range opts.BuildArgs {
		cmd.Add("--build-arg").AddRef(fmt.Sprintf("%s=%s", arg.Name, exec.EnvRef(arg.Target)))
	}
	cmd.Add(opts.Context).WithEnv(opts.Env)
	if err := c.runner.Check(cmd); err != nil {
		return fmt.Errorf("building image %s: %w", opts.Tag, err)
	}
	return nil
}

// Push pushes an image to its registry
func (c *Client) Push(image string) error {
	if err := ValidateImage(image); err != nil {
		return err
	}
	if err := c.runner.Check(exec.Command("docker", "push", image)); err != nil {
		return fmt.Errorf("pushing image %s: %w", image, err)
	}
	return nil
}

// CreateNetwork creates a bridge network
func (c *Client) CreateNetwork(network string) error {
	if err := c.runner.Check(exec.Command("docker", "network", "create", network)); err != nil {
		return fmt.Errorf("creating network %s: %w", network, err)
	}
	return nil
}

// RemoveNetwork removes a network
func (c *Client) RemoveNetwork(network string) error {
	if err := c.runner.Check(exec.Command("docker", "network", "rm", network)); err != nil {
		return fmt.Errorf("removing network %s: %w", network, err)
	}
	return nil
}

// RunInteractive runs a container in the foreground on network and
// returns its exit status
func (c *Client) RunInteractive(
	network, containerName, image string, args []exec.Arg, env map[string]string,
) (int, error) {
	cmd := exec.Command(
		"docker", "run", "--rm", "--network", network, "--name", containerName, "--interactive",
	).AddArgs(args...).Add(image).WithEnv(env)
	return c.runner.Execute(cmd)
}
