// Package llm asks an OpenAI-compatible model for a second opinion on
// answers the automatic marker rejected. Suggestions are advisory: only a
// grader can turn one into an override.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/bandscore/internal/llm/prompts"
	"github.com/pavelanni/bandscore/internal/model"
)

// Suggestion is the model's proposed override for one question.
type Suggestion struct {
	Number     int               `json:"number"`
	Verdict    model.ManualGrade `json:"verdict"`
	Confidence float64           `json:"confidence"`
	Reason     string            `json:"reason"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.PromptVariant
}

// New creates a new LLM client. An unknown variant falls back to standard.
func New(baseURL, apiKey, modelName, variant string) (*Client, error) {
	if err := prompts.Load(prompts.Templates); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	v := prompts.PromptVariant(variant)
	if !prompts.IsValidVariant(variant) {
		slog.Warn("unknown prompt variant, using standard", "variant", variant)
		v = prompts.PromptStandard
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: v,
	}, nil
}

// Suggest asks the model whether the candidate's answer to q deserves
// credit despite not matching any accepted answer.
func (c *Client) Suggest(ctx context.Context, q model.NumberedQuestion, accepted []string, answer model.Answer) (*Suggestion, error) {
	prompt, err := prompts.BuildSuggestPrompt(c.variant, prompts.SuggestData{
		QuestionType: string(q.GroupType),
		Prompt:       q.Prompt(),
		Accepted:     accepted,
		Answer:       strings.Join(answer.Parts, " | "),
	})
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "question", q.Number, "raw", raw)

	s, err := parseSuggestion(raw)
	if err != nil {
		return nil, err
	}
	s.Number = q.Number
	return s, nil
}

func parseSuggestion(raw string) (*Suggestion, error) {
	var out struct {
		Verdict    string  `json:"verdict"`
		Confidence float64 `json:"confidence"`
		Reason     string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}

	g := model.ManualGrade(strings.ToLower(strings.TrimSpace(out.Verdict)))
	if g != model.GradeCorrect && g != model.GradeIncorrect {
		return nil, fmt.Errorf("LLM returned verdict %q", out.Verdict)
	}
	return &Suggestion{
		Verdict:    g,
		Confidence: min(max(out.Confidence, 0), 1),
		Reason:     strings.TrimSpace(out.Reason),
	}, nil
}
