package ai

import (
	"fmt"

	"assistant-backend/pkg/gemini"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "gemini", "ollama" or "auto"

	// Gemini config
	GeminiAPIKey string
	GeminiModel  string

	// Ollama config
	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3", "mistral"
}

// NewLanguageModel creates a LanguageModel based on the config.
// This is the factory function - switch AI provider by changing config.Provider.
// "auto" wires both providers behind the fallback router.
func NewLanguageModel(cfg Config) (LanguageModel, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return gemini.NewService(cfg.GeminiAPIKey, cfg.GeminiModel), nil

	case ProviderOllama:
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil

	default:
		ollama := NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel)
		if cfg.GeminiAPIKey != "" {
			return NewFallbackService(gemini.NewService(cfg.GeminiAPIKey, cfg.GeminiModel), ollama), nil
		}
		return ollama, nil
	}
}
