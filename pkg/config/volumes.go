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
	"encoding/base64"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"sigs.k8s.io/kubedev/pkg/exec"
	"sigs.k8s.io/kubedev/pkg/run"
)

// Workspace resolves host paths of volume mounts
type Workspace struct {
	// Dir is the project directory, the process working directory if empty
	Dir string
	// Translate converts an absolute host path into the form the docker
	// daemon expects. Nil keeps the path unchanged.
	Translate func(string) (string, error)
}

// NewWorkspace returns a workspace for dir. Under WSL host paths are
// translated to windows paths with wslpath.
func NewWorkspace(dir string, runner *exec.Runner) Workspace {
	w := Workspace{Dir: dir}
	if IsWSL() {
		w.Translate = func(p string) (string, error) {
			out, code, err := runner.Output(exec.Command("wslpath", "-aw", p))
			if err != nil {
				return "", err
			}
			if code != 0 {
				return "", fmt.Errorf("wslpath exited with %d", code)
			}
			return strings.TrimRight(out, "\r\n"), nil
		}
	}
	return w
}

// IsWSL reports whether the process runs in the windows subsystem for linux
func IsWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "Microsoft")
}

// Path returns p relative to the workspace
func (w Workspace) Path(p string) string {
	if filepath.IsAbs(p) || w.Dir == "" {
		return p
	}
	return filepath.Join(w.Dir, p)
}

// HostPath returns the absolute, daemon-visible form of p
func (w Workspace) HostPath(p string) (string, error) {
	abs, err := filepath.Abs(w.Path(p))
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", p, err)
	}
	if w.Translate == nil {
		return abs, nil
	}
	return w.Translate(abs)
}

// VolumeArgs returns the --volume arguments for the given volume
// mappings, sorted by host path. Inline content is written to the
// work directory and mounted from there.
func (w Workspace) VolumeArgs(volumes map[string]VolumeSpec) ([]string, error) {
	args := []string{}
	for _, hostPath := range slices.Sorted(maps.Keys(volumes)) {
		spec := volumes[hostPath]
		source := hostPath
		switch {
		case spec.hasContent:
			p, err := w.writeTemp(hostPath, []byte(spec.Content))
			if err != nil {
				return nil, err
			}
			source = p
		case spec.hasBase64:
			data, err := base64.StdEncoding.DecodeString(spec.Base64)
			if err != nil {
				return nil, NewError("volume %s: invalid base64 content: %v", hostPath, err)
			}
			p, err := w.writeTemp(hostPath, data)
			if err != nil {
				return nil, err
			}
			source = p
		}

		abs, err := w.HostPath(source)
		if err != nil {
			return nil, err
		}
		mount := fmt.Sprintf("%s:%s", abs, spec.Path)
		if spec.ReadOnly {
			mount += ":ro"
		}
		args = append(args, "--volume", mount)
	}
	return args, nil
}

func (w Workspace) writeTemp(key string, data []byte) (string, error) {
	rel := filepath.Join(run.WorkDir, "temp_"+key)
	p := w.Path(rel)
	if err := os.MkdirAll(filepath.Dir(p), os.FileMode(0o755)); err != nil {
		return "", fmt.Errorf("creating work directory: %w", err)
	}
	if err := os.WriteFile(p, data, os.FileMode(0o600)); err != nil {
		return "", fmt.Errorf("writing volume content: %w", err)
	}
	return rel, nil
}
