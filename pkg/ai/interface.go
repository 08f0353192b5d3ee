package ai

import "context"

// LanguageModel is the interface for text completion providers.
// Implement this interface to add new providers (Gemini, Ollama, OpenAI, etc.)
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
