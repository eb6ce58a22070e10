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
	"os"
	"strings"

	"sigs.k8s.io/release-utils/env"
)

// Env gives access to the environment of the kubedev process
type Env interface {
	Getenv(name string) string
	LookupEnv(name string) (string, bool)
	Environ() map[string]string
}

// OSEnv reads the real process environment
type OSEnv struct{}

func (OSEnv) Getenv(name string) string {
	return env.Default(name, "")
}

func (OSEnv) LookupEnv(name string) (string, bool) {
	if !env.IsSet(name) {
		return "", false
	}
	return os.Getenv(name), true
}

func (OSEnv) Environ() map[string]string {
	res := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		res[k] = v
	}
	return res
}

// MapEnv is an environment backed by a map
type MapEnv map[string]string

func (m MapEnv) Getenv(name string) string {
	return m[name]
}

func (m MapEnv) LookupEnv(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func (m MapEnv) Environ() map[string]string {
	res := make(map[string]string, len(m))
	for k, v := range m {
		res[k] = v
	}
	return res
}

// IsCI reports whether kubedev runs inside a CI pipeline
func IsCI(e Env) bool {
	_, ok := e.LookupEnv("CI")
	return ok
}
