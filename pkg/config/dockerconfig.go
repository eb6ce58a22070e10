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
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"sigs.k8s.io/release-utils/util"
)

// EnsureDockerConfig stores $DOCKER_AUTH_CONFIG as the docker client
// configuration when running in CI and no configuration exists yet.
// Returns true when the file was written.
func EnsureDockerConfig(e Env) (bool, error) {
	if !IsCI(e) {
		return false, nil
	}
	auth, okAuth := e.LookupEnv("DOCKER_AUTH_CONFIG")
	home, okHome := e.LookupEnv("HOME")
	if !okAuth || !okHome {
		return false, nil
	}

	path := filepath.Join(home, ".docker", "config.json")
	if util.Exists(path) {
		return false, nil
	}
	logrus.Warnf("CI environment detected and no docker config found, storing ${DOCKER_AUTH_CONFIG} to %s", path)
	if err := os.MkdirAll(filepath.Dir(path), os.FileMode(0o700)); err != nil {
		return false, fmt.Errorf("creating docker config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(auth), os.FileMode(0o600)); err != nil {
		return false, fmt.Errorf("writing docker config: %w", err)
	}
	return true, nil
}
