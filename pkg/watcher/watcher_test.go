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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

func newTestPoller() (*Poller, *clocktesting.FakeClock) {
	fc := clocktesting.NewFakeClock(time.Date(2022, time.March, 1, 0, 0, 0, 0, time.UTC))
	return &Poller{Clock: fc, Interval: DefaultInterval}, fc
}

func TestPollSucceeds(t *testing.T) {
	p, fc := newTestPoller()
	start := fc.Now()
	calls := 0
	ok := p.Poll(10*time.Second, func() (bool, string) {
		calls++
		return calls == 3, "waiting"
	})
	require.True(t, ok)
	require.Equal(t, 3, calls)
	require.Equal(t, 2*time.Second, fc.Since(start))
}

func TestPollReadyImmediately(t *testing.T) {
	p, fc := newTestPoller()
	start := fc.Now()
	require.True(t, p.Poll(0, func() (bool, string) { return true, "" }))
	require.Zero(t, fc.Since(start))
}

func TestPollTimesOut(t *testing.T) {
	for _, timeout := range []time.Duration{0, time.Second, 5 * time.Second, 600 * time.Second} {
		p, fc := newTestPoller()
		start := fc.Now()
		calls := 0
		ok := p.Poll(timeout, func() (bool, string) {
			calls++
			return false, "not yet"
		})
		require.False(t, ok)
		elapsed := fc.Since(start)
		require.Greater(t, elapsed, timeout)
		require.LessOrEqual(t, elapsed, timeout+p.Interval)
		require.Equal(t, int(elapsed/p.Interval)+1, calls)
	}
}

func TestPollSucceedsAtDeadline(t *testing.T) {
	p, fc := newTestPoller()
	start := fc.Now()
	ok := p.Poll(3*time.Second, func() (bool, string) {
		return fc.Since(start) >= 3*time.Second, ""
	})
	require.True(t, ok)
}

func TestDeploymentAvailable(t *testing.T) {
	for _, tc := range []struct {
		output string
		expect bool
	}{
		{`{"status": {"availableReplicas": 1}}`, true},
		{`{"kind": "Deployment", "status": {"availableReplicas": 2, "replicas": 2}}`, true},
		{`{"status": {"availableReplicas": 0}}`, false},
		{`{"status": {}}`, false},
		{`{}`, false},
		{``, false},
		{`Error from server (NotFound): deployments.apps "tiller-deploy" not found`, false},
		{`{"status": `, false},
	} {
		require.Equal(t, tc.expect, DeploymentAvailable(tc.output), tc.output)
	}
}
