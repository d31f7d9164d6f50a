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

import "os"

// Preset holds the raw environment values for one named model preset.
// An empty field means the variable was not set and the default applies.
type Preset struct {
	APIType     string
	APIKey      string
	BaseURL     string
	APIVersion  string
	Model       string
	Temperature string
	MaxTokens   string
	Vision      string
}

// presetPrefixes maps preset ids to their environment variable prefix.
var presetPrefixes = map[string]string{
	"gpt-4o":      "GPT_4O",
	"gpt-4o-mini": "GPT_4O_MINI",
	"gpt-4.1":     "GPT_41",
	"o4-mini":     "O4_MINI",
}

// Built-in fallbacks applied when the corresponding DEFAULT_* variable
// is unset.
const (
	fallbackAPIType     = "azure"
	fallbackAPIVersion  = "2024-06-01"
	fallbackModel       = "gpt-4o"
	fallbackTemperature = "0.7"
	fallbackMaxTokens   = "4000"
)

func presetFromEnv(prefix string) Preset {
	return Preset{
		APIType:     os.Getenv(prefix + "_API_TYPE"),
		APIKey:      os.Getenv(prefix + "_API_KEY"),
		BaseURL:     os.Getenv(prefix + "_BASE_URL"),
		APIVersion:  os.Getenv(prefix + "_API_VERSION"),
		Model:       os.Getenv(prefix + "_MODEL"),
		Temperature: os.Getenv(prefix + "_TEMPERATURE"),
		MaxTokens:   os.Getenv(prefix + "_MAX_TOKENS"),
		Vision:      os.Getenv(prefix + "_VISION_ENABLED"),
	}
}

// LoadPresets reads all known presets from the environment.
func LoadPresets() map[string]Preset {
	presets := make(map[string]Preset, len(presetPrefixes))
	for id, prefix := range presetPrefixes {
		presets[id] = presetFromEnv(prefix)
	}
	return presets
}

// LoadDefaults reads the process-wide default layer from the environment,
// applying built-in fallbacks for unset variables.
func LoadDefaults() Preset {
	defaults := presetFromEnv("DEFAULT")
	if defaults.APIType == "" {
		defaults.APIType = fallbackAPIType
	}
	if defaults.APIVersion == "" {
		defaults.APIVersion = fallbackAPIVersion
	}
	if defaults.Model == "" {
		defaults.Model = fallbackModel
	}
	if defaults.Temperature == "" {
		defaults.Temperature = fallbackTemperature
	}
	if defaults.MaxTokens == "" {
		defaults.MaxTokens = fallbackMaxTokens
	}
	return defaults
}

// merge overlays non-empty fields of p onto base.
func (p Preset) merge(base Preset) Preset {
	out := base
	if p.APIType != "" {
		out.APIType = p.APIType
	}
	if p.APIKey != "" {
		out.APIKey = p.APIKey
	}
	if p.BaseURL != "" {
		out.BaseURL = p.BaseURL
	}
	if p.APIVersion != "" {
		out.APIVersion = p.APIVersion
	}
	if p.Model != "" {
		out.Model = p.Model
	}
	if p.Temperature != "" {
		out.Temperature = p.Temperature
	}
	if p.MaxTokens != "" {
		out.MaxTokens = p.MaxTokens
	}
	if p.Vision != "" {
		out.Vision = p.Vision
	}
	return out
}
