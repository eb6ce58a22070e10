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

package watcher

import (
	"time"

	"github.com/sirupsen/logrus"
	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/utils/clock"
	"sigs.k8s.io/yaml"
)

// DefaultInterval is the delay between two probes
const DefaultInterval = time.Second

// Probe checks a condition once. It returns whether the condition holds
// and a description of the observed status for diagnostics.
type Probe func() (ready bool, status string)

// Poller waits for a condition with a bounded timeout
type Poller struct {
	Clock    clock.Clock
	Interval time.Duration
}

// NewPoller returns a poller on the real clock
func NewPoller() *Poller {
	return &Poller{
		Clock:    clock.RealClock{},
		Interval: DefaultInterval,
	}
}

// Poll runs probe until it reports ready or the timeout has elapsed.
// The deadline is checked after each probe, so Poll returns within
// timeout plus one interval. On timeout the last observed status is
// logged and false is returned.
func (p *Poller) Poll(timeout time.Duration, probe Probe) bool {
	start := p.Clock.Now()
	for {
		ready, status := probe()
		if ready {
			return true
		}
		if p.Clock.Since(start) > timeout {
			logrus.Errorf("Condition not met within %s, last status:\n%s", timeout, status)
			return false
		}
		p.Clock.Sleep(p.Interval)
	}
}

// DeploymentAvailable reports whether a deployment description, as
// printed by kubectl get -o json, has at least one available replica.
// Output that does not decode is treated as not available.
func DeploymentAvailable(output string) bool {
	d := appsv1.Deployment{}
	if err := yaml.Unmarshal([]byte(output), &d); err != nil {
		logrus.Debugf("decoding deployment status: %v", err)
		return false
	}
	return d.Status.AvailableReplicas > 0
}
