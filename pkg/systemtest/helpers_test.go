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
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"sigs.k8s.io/kubedev/pkg/config"
	"sigs.k8s.io/kubedev/pkg/exec"
	"sigs.k8s.io/kubedev/pkg/exec/exectest"
	"sigs.k8s.io/kubedev/pkg/watcher"
)

const testDescriptor = `{
  "name": "foo-service",
  "description": "foo",
  "imagePullSecrets": "foo-creds",
  "imageRegistry": "foo-registry",
  "deployments": {
    "foo-deploy": {
      "ports": {"http": {"container": "8081", "service": "8082", "dev": "8083"}},
      "required-envs": {
        "FOO_SERVICE_DEPLOY_ENV1": {"documentation": "overridden by the service"},
        "FOO_SERVICE_DEPLOY_ENV2": {"documentation": "forwarded"},
        "FOO_SERVICE_BINARY": {"documentation": "binary", "transform": "base64", "build": false}
      },
      "volumes": {"dev": {"data": "/app/data"}},
      "systemTest": {
        "variables": {"GLOBAL_VAR": "global"},
        "testContainer": {
          "buildArgs": {"FOO_DEPLOY_BUILD_ARG": "asdf"},
          "variables": {"TEST_VAR": "test"}
        },
        "services": {
          "{foo-deploy}": {
            "hostname": "foo-deploy-test",
            "ports": [8081],
            "variables": {"FOO_SERVICE_DEPLOY_ENV1": "override"}
          },
          "redis:6": {
            "hostname": "redis-${REDIS_SUFFIX}",
            "ports": ["6379"],
            "variables": {"REDIS_SUFFIX": "test"}
          }
        }
      }
    },
    "foo-untested": {}
  },
  "cronjobs": {
    "foo-job": {
      "required-envs": {
        "A": {"documentation": "a"},
        "B": {"documentation": "b"}
      },
      "systemTest": {
        "testContainer": {"buildArgs": {"FOO_JOB_BUILD_ARG": "asdf"}},
        "services": {
          "postgres:13": {"hostname": "postgres-test", "ports": [5432]}
        }
      }
    }
  },
  "generic": {
    "foo-tool": {"systemTest": {}}
  }
}`

const kindKubeconfig = `apiVersion: v1
kind: Config
clusters:
- cluster:
    server: https://127.0.0.1:39627
  name: kind-kind-foo-service-asdf
contexts:
- context:
    cluster: kind-kind-foo-service-asdf
    user: kind-kind-foo-service-asdf
  name: kind-kind-foo-service-asdf
current-context: kind-kind-foo-service-asdf
users:
- name: kind-kind-foo-service-asdf
  user:
    token: abc
`

const binaryValue = "bin\x00\"'$ä"

type sequenceTags struct {
	mu   sync.Mutex
	tags []string
}

func (s *sequenceTags) Tag() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tags[0]
	s.tags = s.tags[1:]
	return t
}

type testRun struct {
	dir     string
	fake    *exectest.Fake
	st      *SystemTest
	clock   *clocktesting.FakeClock
	states  []State
	harness int
}

// defaultHandler answers like a healthy docker daemon. Created containers
// get the id {name}-id.
func (tr *testRun) defaultHandler(c exectest.Call) exectest.Response {
	switch {
	case c.HasPrefix("docker", "create"):
		for i, a := range c.Argv {
			if a == "--name" {
				return exectest.Response{Stdout: c.Argv[i+1] + "-id\n"}
			}
		}
	case c.HasPrefix("kind", "create"):
		if err := os.WriteFile(filepath.Join(tr.dir, c.Argv[4]), []byte(kindKubeconfig), os.FileMode(0o600)); err != nil {
			return exectest.Response{Err: err}
		}
	case strings.Contains(c.String(), "get deployments tiller-deploy"):
		return exectest.Response{Stdout: `{"status": {"availableReplicas": 1}}`}
	case c.HasPrefix("docker", "run", "--rm"):
		return exectest.Response{ExitCode: tr.harness}
	}
	return exectest.Response{}
}

func newTestRun(t *testing.T, env config.MapEnv, handler func(*testRun, exectest.Call) exectest.Response) *testRun {
	p, err := config.Parse([]byte(testDescriptor))
	require.NoError(t, err)

	tr := &testRun{dir: t.TempDir()}
	if handler == nil {
		handler = (*testRun).defaultHandler
	}
	var r *exec.Runner
	r, tr.fake = exectest.NewRunner(func(c exectest.Call) exectest.Response {
		return handler(tr, c)
	})
	tr.clock = clocktesting.NewFakeClock(time.Now())

	if env == nil {
		env = config.MapEnv{}
	}
	tr.st = New(p, r, Options{
		Workspace: config.Workspace{Dir: tr.dir},
		Env:       env,
		Tags:      &sequenceTags{tags: []string{"asdf", "key"}},
		Poller:    &watcher.Poller{Clock: tr.clock, Interval: watcher.DefaultInterval},
	})
	tr.st.OnTransition = func(s State) { tr.states = append(tr.states, s) }
	return tr
}

func testEnv() config.MapEnv {
	return config.MapEnv{
		"A":                       "a",
		"B":                       "b",
		"FOO_SERVICE_DEPLOY_ENV1": "one",
		"FOO_SERVICE_DEPLOY_ENV2": "two",
		"FOO_SERVICE_BINARY":      binaryValue,
		"DOCKER_AUTH_CONFIG":      `{"auths": {}}`,
	}
}

// requireOrder checks that a call starting with each prefix exists and
// that their first occurrences are in the given order
func requireOrder(t *testing.T, fake *exectest.Fake, prefixes ...string) {
	t.Helper()
	last := -1
	for _, p := range prefixes {
		i := fake.Index(p)
		require.NotEqual(t, -1, i, "no call starting with %q in:\n%s", p, strings.Join(fake.Lines(), "\n"))
		require.Greater(t, i, last, "%q is out of order in:\n%s", p, strings.Join(fake.Lines(), "\n"))
		last = i
	}
}

// removals counts the docker rm calls for each id
func removals(fake *exectest.Fake) map[string]int {
	res := map[string]int{}
	for _, c := range fake.Find("docker", "rm", "--force") {
		id := c.Argv[3]
		if strings.HasSuffix(id, "-id") {
			res[id]++
		}
	}
	return res
}
