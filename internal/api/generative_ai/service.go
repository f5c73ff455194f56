package generativeAI

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// AIClient wraps the Gemini client with the small surface the pipeline
// needs: plain text generation and JSON-shaped generation.
type AIClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewAIClient(ctx context.Context, apiKey, model string, temperature float32) (*AIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &AIClient{
		client:      client,
		model:       model,
		temperature: temperature,
	}, nil
}

// GenerateContent sends a single prompt and returns the raw response text.
func (ai *AIClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](ai.temperature)}
	result, err := ai.client.Models.GenerateContent(ctx, ai.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	var txt string
	for _, candidate := range result.Candidates {
		if candidate.Content != nil && len(candidate.Content.Parts) > 0 {
			txt = candidate.Content.Parts[0].Text
			break
		}
	}
	if txt == "" {
		return "", fmt.Errorf("no valid content in AI response")
	}
	return txt, nil
}

// GenerateJSON sends a prompt that asks for a strict JSON object and
// unmarshals the cleaned response text into out. The response MIME type
// steers the model toward bare JSON; the cleaner still handles models that
// wrap it in fences anyway.
func (ai *AIClient) GenerateJSON(ctx context.Context, prompt string, out any) error {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](ai.temperature),
		ResponseMIMEType: "application/json",
	}
	result, err := ai.client.Models.GenerateContent(ctx, ai.model, genai.Text(prompt), config)
	if err != nil {
		return fmt.Errorf("failed to generate content: %w", err)
	}

	var txt string
	for _, candidate := range result.Candidates {
		if candidate.Content != nil && len(candidate.Content.Parts) > 0 {
			txt = candidate.Content.Parts[0].Text
			break
		}
	}
	if txt == "" {
		return fmt.Errorf("no valid content in AI response")
	}

	jsonStr := CleanJSONResponse(txt)
	if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
		return fmt.Errorf("failed to parse AI response JSON: %w", err)
	}
	return nil
}

// CleanJSONResponse strips markdown fences and any explanatory text around
// the first JSON object in a model response.
func CleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	// Remove markdown code block markers
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	if strings.HasSuffix(response, "```") {
		response = strings.TrimSuffix(response, "```")
	}
	response = strings.TrimSpace(response)

	// Look for the first { and last } to extract the JSON object
	firstBrace := strings.Index(response, "{")
	if firstBrace == -1 {
		return response
	}
	lastBrace := strings.LastIndex(response, "}")
	if lastBrace == -1 || lastBrace <= firstBrace {
		return response
	}
	return strings.TrimSpace(response[firstBrace : lastBrace+1])
}
