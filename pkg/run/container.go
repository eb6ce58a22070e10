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

// StartedContainer records the outcome of starting one detached
// container. Every container with an id must be removed at teardown,
// whether or not it managed to start.
type StartedContainer struct {
	id      string
	name    string
	started bool
}

// Started returns a container that was created and is running
func Started(id, name string) StartedContainer {
	return StartedContainer{id: id, name: name, started: true}
}

// CreatedNotStarted returns a container that exists but failed to start
func CreatedNotStarted(id, name string) StartedContainer {
	return StartedContainer{id: id, name: name}
}

// NotStarted returns a container that could not even be created
func NotStarted(name string) StartedContainer {
	return StartedContainer{name: name}
}

// ID returns the container id, if the container was created
func (c StartedContainer) ID() (string, bool) {
	return c.id, c.id != ""
}

// Name is the logical name (and docker hostname) of the container
func (c StartedContainer) Name() string {
	return c.name
}

func (c StartedContainer) IsStarted() bool {
	return c.started
}

// NeedsRemoval reports whether teardown has to remove the container
func (c StartedContainer) NeedsRemoval() bool {
	return c.id != ""
}
