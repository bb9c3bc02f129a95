// Package ai wraps the hosted Gemini model behind the two call shapes the
// pipeline needs: a tiny free-text generation for stage-1 classification
// and a schema-constrained JSON generation for stage-2 extraction. The
// client is constructed explicitly and injected, not a package-level
// singleton, so the pipeline stays testable with fakes.
package ai

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"
)

// DefaultModel is cost-tuned: both inference stages run on every inbound
// message that survives the pre-filter.
const DefaultModel = "gemini-2.5-flash-lite"

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	log.Printf("[Gemini] initialized with model: %s", model)
	return &GeminiClient{client: client, model: model}, nil
}

// GenerateText runs a single-turn completion with a small output cap.
// Used by stage 1, where the whole answer is one word.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string, maxTokens int32) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate text: %w", err)
	}

	return resp.Text(), nil
}

// taskExtractionSchema constrains stage-2 output. The model must return
// is_task and confidence; the task object is present only when is_task.
var taskExtractionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"is_task": {
			Type:        genai.TypeBoolean,
			Description: "Whether the message contains an actionable task for the recipient",
		},
		"confidence": {
			Type:        genai.TypeNumber,
			Description: "Confidence score between 0.0 and 1.0",
		},
		"task": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"title": {
					Type:        genai.TypeString,
					Description: "Concise, actionable task title (under 80 characters)",
				},
				"description": {
					Type: genai.TypeString,
				},
				"due_date": {
					Type:        genai.TypeString,
					Description: "ISO 8601 deadline resolved from relative date language, if any",
				},
				"priority": {
					Type: genai.TypeString,
					Enum: []string{"low", "medium", "high"},
				},
				"reasoning": {
					Type:        genai.TypeString,
					Description: "Short explanation of why this is a task",
				},
			},
			Required: []string{"title", "priority"},
		},
	},
	Required: []string{"is_task", "confidence"},
}

// GenerateTaskExtraction runs the structured stage-2 call and returns the
// raw JSON document, validated against the extraction schema by the API.
func (c *GeminiClient) GenerateTaskExtraction(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    taskExtractionSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini structured output: %w", err)
	}

	return []byte(resp.Text()), nil
}
