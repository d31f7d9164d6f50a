// Copyright 2025 The braingate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import "fmt"

// ConfigurationError reports an invalid or malformed configuration value.
// It is raised during resolution, before any network activity.
type ConfigurationError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid configuration field %q (value %q): %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid configuration field %q (value %q)", e.Field, e.Value)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
