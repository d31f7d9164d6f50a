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

// Package config resolves the effective engine configuration for a request.
//
// Configuration is layered: per-request overrides take precedence over the
// named preset, which takes precedence over process-wide defaults. Presets
// and defaults are sourced from the environment once at startup and are
// immutable afterwards.
package config

import "fmt"

// APIType identifies the upstream provider protocol.
type APIType string

const (
	APITypeAzure     APIType = "azure"
	APITypeOpenAI    APIType = "openai"
	APITypeGroq      APIType = "groq"
	APITypeOllama    APIType = "ollama"
	APITypeAnthropic APIType = "anthropic"
	APITypeGemini    APIType = "gemini"
)

// Validate checks that the API type is one of the supported providers.
func (t APIType) Validate() error {
	switch t {
	case APITypeAzure, APITypeOpenAI, APITypeGroq, APITypeOllama, APITypeAnthropic, APITypeGemini:
		return nil
	default:
		return fmt.Errorf("unsupported api type: %q", string(t))
	}
}

// EffectiveConfig is the fully resolved configuration for a single request.
// Every field has a concrete value after resolution.
type EffectiveConfig struct {
	APIType     APIType
	APIKey      string
	BaseURL     string
	APIVersion  string
	Model       string
	Temperature float64
	MaxTokens   int
	Vision      bool
}

// Validate checks field constraints after resolution.
func (c *EffectiveConfig) Validate() error {
	if err := c.APIType.Validate(); err != nil {
		return &ConfigurationError{Field: "api_type", Value: string(c.APIType), Err: err}
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return &ConfigurationError{
			Field: "temperature",
			Value: fmt.Sprintf("%v", c.Temperature),
			Err:   fmt.Errorf("must be between 0 and 2"),
		}
	}
	if c.MaxTokens <= 0 {
		return &ConfigurationError{
			Field: "max_tokens",
			Value: fmt.Sprintf("%d", c.MaxTokens),
			Err:   fmt.Errorf("must be positive"),
		}
	}
	return nil
}
