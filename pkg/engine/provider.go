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

package engine

import (
	"context"
	"fmt"

	"github.com/minionhq/braingate/pkg/config"
	"github.com/minionhq/braingate/pkg/tool"
)

// Request is a single completion request to a provider.
type Request struct {
	System      string
	Prompt      string
	Tools       []tool.Definition
	Temperature float64
	MaxTokens   int
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is a provider's response to a Request.
type Completion struct {
	Text         string
	FinishReason string
	Usage        Usage
}

// Provider is one upstream model API.
type Provider interface {
	// Name returns the provider identifier for logs.
	Name() string

	// Complete performs a single completion call.
	Complete(ctx context.Context, req *Request) (*Completion, error)

	// Close releases provider resources.
	Close() error
}

// newProvider selects a provider implementation from the resolved config.
func newProvider(cfg *config.EffectiveConfig) (Provider, error) {
	switch cfg.APIType {
	case config.APITypeAzure, config.APITypeOpenAI, config.APITypeGroq, config.APITypeOllama:
		return newOpenAICompat(cfg)
	case config.APITypeAnthropic:
		return newAnthropic(cfg)
	case config.APITypeGemini:
		return newGemini(cfg)
	default:
		return nil, fmt.Errorf("unsupported api type: %q", string(cfg.APIType))
	}
}
