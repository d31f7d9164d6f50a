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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minionhq/braingate/pkg/config"
	"github.com/minionhq/braingate/pkg/httpclient"
)

const (
	openaiDefaultBaseURL = "https://api.openai.com/v1"
	groqDefaultBaseURL   = "https://api.groq.com/openai/v1"
	ollamaDefaultBaseURL = "http://localhost:11434/v1"

	openaiDefaultTimeout = 120 * time.Second
)

// openaiCompat speaks the OpenAI chat-completions protocol. Azure, Groq
// and Ollama expose the same wire format behind different URLs and auth.
type openaiCompat struct {
	httpClient *httpclient.Client
	apiType    config.APIType
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
}

func newOpenAICompat(cfg *config.EffectiveConfig) (*openaiCompat, error) {
	if cfg.APIKey == "" && cfg.APIType != config.APITypeOllama {
		return nil, fmt.Errorf("api key is required for %s", cfg.APIType)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		switch cfg.APIType {
		case config.APITypeOpenAI:
			baseURL = openaiDefaultBaseURL
		case config.APITypeGroq:
			baseURL = groqDefaultBaseURL
		case config.APITypeOllama:
			baseURL = ollamaDefaultBaseURL
		case config.APITypeAzure:
			return nil, fmt.Errorf("base url is required for azure")
		}
	}

	return &openaiCompat{
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: openaiDefaultTimeout}),
			httpclient.WithHeaderParser(httpclient.ParseOpenAIHeaders),
		),
		apiType:    cfg.APIType,
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		apiVersion: cfg.APIVersion,
		model:      cfg.Model,
	}, nil
}

func (c *openaiCompat) Name() string {
	return string(c.apiType)
}

// chatMessage is one message in the chat-completions format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Tools       []chatTool    `json:"tools,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// buildRequest assembles the wire request without sending it.
func (c *openaiCompat) buildRequest(req *Request) *chatRequest {
	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	var tools []chatTool
	for _, def := range req.Tools {
		tools = append(tools, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}

	temperature := req.Temperature
	return &chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   req.MaxTokens,
		Tools:       tools,
	}
}

// completionsURL returns the endpoint for this deployment. Azure routes
// through per-deployment paths with an api-version query parameter.
func (c *openaiCompat) completionsURL() string {
	if c.apiType == config.APITypeAzure {
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			c.baseURL, c.model, c.apiVersion)
	}
	return c.baseURL + "/chat/completions"
}

func (c *openaiCompat) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiType == config.APITypeAzure {
		req.Header.Set("api-key", c.apiKey)
		return
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *openaiCompat) Complete(ctx context.Context, req *Request) (*Completion, error) {
	apiReq := c.buildRequest(req)

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.completionsURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			bodyBytes, _ := io.ReadAll(resp.Body)
			if len(bodyBytes) > 0 {
				return nil, fmt.Errorf("request failed: %w - response: %s", err, string(bodyBytes))
			}
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("%s API error: %s", c.apiType, apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", c.apiType)
	}

	choice := apiResp.Choices[0]
	return &Completion{
		Text:         choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage:        apiResp.Usage,
	}, nil
}

func (c *openaiCompat) Close() error {
	return nil
}
