package ai

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/rs/zerolog/log"
)

// FallbackService routes completions across providers:
// Gemini first (better quality), Ollama when Gemini hits quota or transport
// errors, and a final Gemini retry when Ollama itself is unreachable.
type FallbackService struct {
	gemini LanguageModel
	ollama *OllamaService
}

// NewFallbackService creates a new fallback service with both providers
func NewFallbackService(gemini LanguageModel, ollama *OllamaService) *FallbackService {
	return &FallbackService{
		gemini: gemini,
		ollama: ollama,
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(net.Error); ok {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}

	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
	}

	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// Complete tries Gemini first, falls back to Ollama on quota/connection errors
func (f *FallbackService) Complete(ctx context.Context, prompt string) (string, error) {
	if f.gemini != nil {
		result, err := f.gemini.Complete(ctx, prompt)
		if err == nil {
			return result, nil
		}

		if isQuotaError(err) {
			log.Warn().Err(err).Msg("gemini quota exhausted, falling back to ollama")
		} else {
			log.Warn().Err(err).Msg("gemini error, falling back to ollama")
		}
	}

	if f.ollama != nil {
		result, err := f.ollama.Complete(ctx, prompt)
		if err == nil {
			return result, nil
		}

		// Ollama unreachable, give Gemini one more chance
		if isConnectionError(err) && f.gemini != nil {
			log.Warn().Err(err).Msg("ollama connection failed, retrying gemini")
			return f.gemini.Complete(ctx, prompt)
		}

		return "", fmt.Errorf("ollama completion failed: %w", err)
	}

	return "", fmt.Errorf("no AI provider available")
}
