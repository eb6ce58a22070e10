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
	"strings"
)

// ExpandVariables substitutes $NAME and ${NAME} in text with values from
// vars, falling back to the process environment. "$$" is a literal
// dollar sign. Unknown names and malformed placeholders are
// configuration errors.
func ExpandVariables(text string, e Env, vars map[string]string) (string, error) {
	lookup := func(name string) (string, bool) {
		if v, ok := vars[name]; ok {
			return v, true
		}
		return e.LookupEnv(name)
	}

	var sb strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] != '$' {
			sb.WriteByte(text[i])
			continue
		}
		if i+1 >= len(text) {
			return "", NewError("invalid placeholder at the end of %q", text)
		}

		var name string
		switch {
		case text[i+1] == '$':
			sb.WriteByte('$')
			i++
			continue
		case text[i+1] == '{':
			end := strings.IndexByte(text[i+2:], '}')
			if end < 0 {
				return "", NewError("unterminated placeholder in %q", text)
			}
			name = text[i+2 : i+2+end]
			if !isIdentifier(name) {
				return "", NewError("invalid placeholder ${%s} in %q", name, text)
			}
			i += end + 2
		default:
			j := i + 1
			for j < len(text) && isIdentChar(text[j], j == i+1) {
				j++
			}
			name = text[i+1 : j]
			if name == "" {
				return "", NewError("invalid placeholder in %q", text)
			}
			i = j - 1
		}

		v, ok := lookup(name)
		if !ok {
			return "", NewError("variable %s used in %q is not defined", name, text)
		}
		sb.WriteString(v)
	}
	return sb.String(), nil
}

func isIdentChar(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentChar(s[i], i == 0) {
			return false
		}
	}
	return true
}
