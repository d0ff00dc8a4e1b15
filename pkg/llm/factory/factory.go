package factory

import (
	"fmt"

	"ai-voicebot-be/pkg/llm"
	"ai-voicebot-be/pkg/llm/gemini"
	"ai-voicebot-be/pkg/llm/ollama"
)

func NewLLMProvider(providerType, modelName, baseURL, geminiApiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "gemini":
		if geminiApiKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return gemini.NewGeminiProvider(geminiApiKey, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
