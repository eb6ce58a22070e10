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
	"errors"
	"fmt"
)

// Error is a problem with the project descriptor. Configuration errors
// are detected before any resource is provisioned.
type Error struct {
	msg string
}

// NewError creates a configuration error
func NewError(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.msg
}

// IsConfigError reports whether err is, or wraps, a configuration error
func IsConfigError(err error) bool {
	var cerr *Error
	return errors.As(err, &cerr)
}
