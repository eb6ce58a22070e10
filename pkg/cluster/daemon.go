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

package cluster

import (
	"sigs.k8s.io/kubedev/pkg/docker"
	"sigs.k8s.io/kubedev/pkg/exec"
	"sigs.k8s.io/kubedev/pkg/run"
)

const (
	DaemonName  = "kubedev-run-cronjob-api"
	DaemonImage = "danielkun/kubedev-systemtest-daemon:v0.01"
	// DaemonEndpoint triggers a run of the cron job under test
	DaemonEndpoint = "http://kubedev-run-cronjob-api:5000/execute"

	DaemonAPIKeyVar     = "KUBEDEV_SYSTEMTEST_DAEMON_APIKEY"
	DaemonCronJobVar    = "KUBEDEV_SYSTEMTEST_DAEMON_CRONJOB"
	DaemonKubeconfigVar = "KUBEDEV_SYSTEMTEST_DAEMON_KUBECONFIG"
	DaemonEndpointVar   = "KUBEDEV_SYSTEMTEST_DAEMON_ENDPOINT"
)

// StartDaemon starts the sidecar that lets the harness trigger the cron
// job on demand. The kubeconfig is handed over through the environment.
func StartDaemon(d *docker.Client, network, apiKey, cronJob, kubeconfig string) run.StartedContainer {
	return d.CreateDetached(network, DaemonName, DaemonImage, []exec.Arg{
		exec.Lit("--env"), exec.Lit(DaemonAPIKeyVar + "=" + apiKey),
		exec.Lit("--env"), exec.Lit(DaemonCronJobVar + "=" + cronJob),
		exec.Lit("--env"), exec.Ref(DaemonKubeconfigVar + "=" + exec.EnvRef(DaemonKubeconfigVar)),
	}, map[string]string{DaemonKubeconfigVar: kubeconfig})
}

// HarnessVariables are the variables the harness needs to reach the daemon
func HarnessVariables(apiKey string) map[string]string {
	return map[string]string{
		DaemonAPIKeyVar:   apiKey,
		DaemonEndpointVar: DaemonEndpoint,
	}
}
