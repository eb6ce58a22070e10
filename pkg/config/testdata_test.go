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

const testDescriptor = `{
  "name": "foo-service",
  "description": "This is a sample service generated by kubedev.",
  "imagePullSecrets": "foo-creds",
  "imageRegistry": "foo-registry",
  "usedFrameworks": ["python"],
  "required-envs": {
    "FOO_SERVICE_GLOBAL_ENV1": {
      "documentation": "Test env var #1 global"
    },
    "FOO_SERVICE_GLOBAL_BUILD": {
      "documentation": "only used at build time",
      "container": false
    }
  },
  "deployments": {
    "foo-deploy": {
      "ports": {
        "http": {"container": "8081", "service": "8082", "dev": "8083"}
      },
      "required-envs": {
        "FOO_SERVICE_DEPLOY_ENV1": {"documentation": "Test env var #1 deploy"},
        "FOO_SERVICE_DEPLOY_SECRET": {"documentation": "binary", "transform": "base64", "build": false}
      },
      "volumes": {
        "dev": {
          "host_dir": "/app/data",
          "inline.json": {"path": "/app/settings.json", "content": "{\"a\": 1}", "readOnly": true}
        }
      },
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
            "variables": {"FOO_SERVICE_DEPLOY_ENV1": "overridden"}
          },
          "redis:6": {
            "hostname": "redis-${REDIS_SUFFIX}",
            "ports": [6379],
            "variables": {"REDIS_SUFFIX": "test"}
          },
          "postgres:13": {
            "hostname": "postgres-test",
            "ports": ["5432:5432"]
          }
        }
      }
    }
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
    "foo-tool": {}
  }
}`
