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

	"github.com/sirupsen/logrus"
)

type cleanupAction struct {
	name string
	fn   func() error
}

// cleanupStack holds the teardown actions of the resources created so
// far. Actions run in reverse registration order. A failing or panicking
// action is logged and does not prevent the others from running.
type cleanupStack struct {
	actions []cleanupAction
}

func (s *cleanupStack) push(name string, fn func() error) {
	s.actions = append(s.actions, cleanupAction{name: name, fn: fn})
}

func (s *cleanupStack) run() {
	for i := len(s.actions) - 1; i >= 0; i-- {
		a := s.actions[i]
		if err := runProtected(a.fn); err != nil {
			logrus.Warnf("Cleanup step %q failed: %v", a.name, err)
		}
	}
	s.actions = nil
}

func runProtected(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
