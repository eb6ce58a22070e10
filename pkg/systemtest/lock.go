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
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"sigs.k8s.io/kubedev/pkg/config"
	"sigs.k8s.io/kubedev/pkg/run"
)

// LockFile guards the work directory against concurrent runs
const LockFile = "systemtest.lock"

// acquireLock takes the work directory lock without waiting. A lock held
// by another run is an error.
func acquireLock(ws config.Workspace) (*flock.Flock, error) {
	dir := ws.Path(run.WorkDir)
	if err := os.MkdirAll(dir, os.FileMode(0o755)); err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}
	fl := flock.New(filepath.Join(dir, LockFile))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("another system test is running in %s", dir)
	}
	return fl, nil
}

func releaseLock(fl *flock.Flock) {
	if err := fl.Close(); err != nil {
		logrus.Debugf("releasing lock %s: %v", fl.Path(), err)
	}
}
