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

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// Overrides is the typed view of a per-request override map.
// Unknown keys are rejected during decoding.
type Overrides struct {
	APIType     *string  `mapstructure:"api_type"`
	APIKey      *string  `mapstructure:"api_key"`
	BaseURL     *string  `mapstructure:"base_url"`
	APIVersion  *string  `mapstructure:"api_version"`
	Model       *string  `mapstructure:"model"`
	Temperature *float64 `mapstructure:"temperature"`
	MaxTokens   *int     `mapstructure:"max_tokens"`
	Vision      *bool    `mapstructure:"vision_enabled"`
}

// Resolver resolves effective configurations from the preset and default
// layers captured at construction time.
type Resolver struct {
	presets  map[string]Preset
	defaults Preset
}

// NewResolver builds a resolver from the current environment.
func NewResolver() *Resolver {
	return &Resolver{
		presets:  LoadPresets(),
		defaults: LoadDefaults(),
	}
}

// NewResolverWithPresets builds a resolver from explicit layers.
func NewResolverWithPresets(presets map[string]Preset, defaults Preset) *Resolver {
	return &Resolver{presets: presets, defaults: defaults}
}

// Presets returns the known preset ids.
func (r *Resolver) Presets() []string {
	ids := make([]string, 0, len(r.presets))
	for id := range r.presets {
		ids = append(ids, id)
	}
	return ids
}

// Resolve produces the effective configuration for a request.
// Precedence per field: override > preset > default. An unknown preset id
// falls back to the default layer alone.
func (r *Resolver) Resolve(preset string, overrides map[string]any) (*EffectiveConfig, error) {
	raw := r.defaults
	if preset != "" {
		if p, ok := r.presets[preset]; ok {
			raw = p.merge(r.defaults)
		} else {
			slog.Warn("Unknown preset, using defaults", "preset", preset)
		}
	}

	cfg, err := parsePreset(raw)
	if err != nil {
		return nil, err
	}

	if len(overrides) > 0 {
		if err := applyOverrides(cfg, overrides); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parsePreset converts raw string values into a typed config.
// Malformed numerics surface as ConfigurationError.
func parsePreset(p Preset) (*EffectiveConfig, error) {
	cfg := &EffectiveConfig{
		APIType:    APIType(p.APIType),
		APIKey:     p.APIKey,
		BaseURL:    p.BaseURL,
		APIVersion: p.APIVersion,
		Model:      p.Model,
	}

	temperature, err := strconv.ParseFloat(p.Temperature, 64)
	if err != nil {
		return nil, &ConfigurationError{Field: "temperature", Value: p.Temperature, Err: err}
	}
	cfg.Temperature = temperature

	maxTokens, err := strconv.Atoi(p.MaxTokens)
	if err != nil {
		return nil, &ConfigurationError{Field: "max_tokens", Value: p.MaxTokens, Err: err}
	}
	cfg.MaxTokens = maxTokens

	if p.Vision != "" {
		vision, err := strconv.ParseBool(p.Vision)
		if err != nil {
			return nil, &ConfigurationError{Field: "vision_enabled", Value: p.Vision, Err: err}
		}
		cfg.Vision = vision
	}

	return cfg, nil
}

// applyOverrides decodes the override map and overlays set fields onto cfg.
func applyOverrides(cfg *EffectiveConfig, overrides map[string]any) error {
	expanded, _ := ExpandEnvVarsInData(overrides).(map[string]any)
	if expanded == nil {
		expanded = overrides
	}

	var ov Overrides
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &ov,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to build override decoder: %w", err)
	}

	if err := decoder.Decode(expanded); err != nil {
		return &ConfigurationError{
			Field: "overrides",
			Value: fmt.Sprintf("%v", overrides),
			Err:   err,
		}
	}

	if ov.APIType != nil {
		cfg.APIType = APIType(*ov.APIType)
	}
	if ov.APIKey != nil {
		cfg.APIKey = *ov.APIKey
	}
	if ov.BaseURL != nil {
		cfg.BaseURL = *ov.BaseURL
	}
	if ov.APIVersion != nil {
		cfg.APIVersion = *ov.APIVersion
	}
	if ov.Model != nil {
		cfg.Model = *ov.Model
	}
	if ov.Temperature != nil {
		cfg.Temperature = *ov.Temperature
	}
	if ov.MaxTokens != nil {
		cfg.MaxTokens = *ov.MaxTokens
	}
	if ov.Vision != nil {
		cfg.Vision = *ov.Vision
	}

	return nil
}
