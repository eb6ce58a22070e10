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
	"maps"
	"slices"
)

// TransformBase64 marks variables that are base64 encoded before they
// are handed to a container
const TransformBase64 = "base64"

// IsBase64 reports whether the variable is base64 encoded on injection
func (r RequiredEnv) IsBase64() bool {
	return r.Transform == TransformBase64
}

// TargetName is the name the variable's value is exposed as in the
// subprocess environment
func (r RequiredEnv) TargetName(name string) string {
	if r.IsBase64() {
		return name + "_AS_BASE64"
	}
	return name
}

func use(flag *bool, want bool) bool {
	if flag == nil {
		return want
	}
	return want && *flag
}

func filterEnvs(envs map[string]RequiredEnv, build, container bool) map[string]RequiredEnv {
	res := map[string]RequiredEnv{}
	for k, v := range envs {
		if use(v.Build, build) || use(v.Container, container) {
			res[k] = v
		}
	}
	return res
}

func mergeEnvs(envs ...map[string]RequiredEnv) map[string]RequiredEnv {
	res := map[string]RequiredEnv{}
	for _, e := range envs {
		maps.Copy(res, e)
	}
	return res
}

// AllContainerEnvs returns the global container envs merged with those of
// every deployment
func (p *Project) AllContainerEnvs() map[string]RequiredEnv {
	res := filterEnvs(p.RequiredEnvs, false, true)
	for _, key := range slices.Sorted(maps.Keys(p.Deployments)) {
		maps.Copy(res, filterEnvs(p.Deployments[key].RequiredEnvs, false, true))
	}
	return res
}

// PreparedEnv is a required variable with the name its value is
// forwarded under
type PreparedEnv struct {
	Name   string
	Target string
}

// PrepareEnvs sorts the variables by name and computes their target
// names. The returned map holds the encoded values of base64 variables,
// to be added to the subprocess environment. Plain variables are
// inherited from the process environment unchanged.
func PrepareEnvs(envs map[string]RequiredEnv, e Env) ([]PreparedEnv, map[string]string) {
	prepared := make([]PreparedEnv, 0, len(envs))
	extra := map[string]string{}
	for _, name := range slices.Sorted(maps.Keys(envs)) {
		req := envs[name]
		target := req.TargetName(name)
		prepared = append(prepared, PreparedEnv{Name: name, Target: target})
		if req.IsBase64() {
			extra[target] = base64.StdEncoding.EncodeToString([]byte(e.Getenv(name)))
		}
	}
	return prepared, extra
}
