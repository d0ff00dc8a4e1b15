package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-voicebot-be/pkg/llm"
)

type GeminiProvider struct {
	ApiKey    string
	ModelName string
	Client    *http.Client
}

var _ llm.LLMProvider = &GeminiProvider{}

func NewGeminiProvider(apiKey, modelName string) *GeminiProvider {
	if modelName == "" {
		modelName = "gemini-2.5-flash-lite"
	}
	return &GeminiProvider{
		ApiKey:    apiKey,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type geminiChatPart struct {
	Text string `json:"text"`
}

type geminiChatContent struct {
	Parts []geminiChatPart `json:"parts"`
	Role  string           `json:"role"`
}

type geminiChatRequest struct {
	Contents []geminiChatContent `json:"contents"`
}

type geminiChatCandidate struct {
	Content *geminiChatContent `json:"content"`
}

type geminiChatResponse struct {
	Candidates []geminiChatCandidate `json:"candidates"`
}

func (g *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := &llm.Options{}
	for _, opt := range opts {
		opt(options)
	}

	// Gemini has no dedicated system role on the v1 REST surface; system
	// instructions travel as the leading user turn. Assistant maps to "model".
	contents := make([]geminiChatContent, 0, len(history))
	for _, msg := range history {
		role := "user"
		if msg.Role == llm.RoleAssistant || msg.Role == "model" {
			role = "model"
		}
		contents = append(contents, geminiChatContent{
			Parts: []geminiChatPart{{Text: msg.Content}},
			Role:  role,
		})
	}

	payload := geminiChatRequest{
		Contents: contents,
	}
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	model := g.ModelName
	if options.Model != "" {
		model = options.Model
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1/models/%s:generateContent",
		model,
	)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(payloadJson))
	if err != nil {
		return "", err
	}

	req.Header.Set("x-goog-api-key", g.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := g.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf(
			"status error, got status %d. with response body %s",
			res.StatusCode,
			string(resBody),
		)
	}

	var geminiRes geminiChatResponse
	err = json.Unmarshal(resBody, &geminiRes)
	if err != nil {
		return "", err
	}

	if len(geminiRes.Candidates) == 0 || geminiRes.Candidates[0].Content == nil || len(geminiRes.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	return geminiRes.Candidates[0].Content.Parts[0].Text, nil
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return g.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}
