package chroma

import (
	"context"
	"fmt"
	"os"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
	"github.com/rs/zerolog/log"
)

const collectionName = "conversations"

// Client wraps the Chroma collection holding conversation embeddings used for
// semantic retrieval of past turns.
type Client struct {
	client     chroma.Client
	collection chroma.Collection
}

type Config struct {
	APIKey       string
	Tenant       string
	Database     string
	GeminiAPIKey string
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}

	// The Gemini embedding function reads its key from the environment
	if cfg.GeminiAPIKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	}

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	var client chroma.Client
	if cfg.Database != "" && cfg.Tenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.APIKey),
			chroma.WithDatabaseAndTenant(cfg.Database, cfg.Tenant),
		)
	} else if cfg.Tenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.APIKey),
			chroma.WithTenant(cfg.Tenant),
		)
	} else {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.APIKey),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		context.Background(),
		collectionName,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info().Str("collection", collectionName).Msg("initialized chroma client")

	return &Client{client: client, collection: collection}, nil
}

// AddConversation indexes one turn (message + response) under the user.
func (c *Client) AddConversation(ctx context.Context, conversationID, userID, message, response string) error {
	text := fmt.Sprintf("User: %s\nAssistant: %s", message, response)
	if len(text) > 10000 {
		// Embedding models have token limits
		text = text[:10000]
	}

	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"user_id":         userID,
		"conversation_id": conversationID,
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = c.collection.Add(
		ctx,
		chroma.WithIDs(chroma.DocumentID(conversationID)),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(text),
	)
	if err != nil {
		return fmt.Errorf("failed to add conversation embedding: %w", err)
	}
	return nil
}

// Search returns the ids of the user's stored turns most similar to the query.
func (c *Client) Search(ctx context.Context, userID, query string, limit int) ([]string, error) {
	where := chroma.EqString("user_id", userID)

	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(where),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	if results == nil || results.CountGroups() == 0 {
		return []string{}, nil
	}

	idGroups := results.GetIDGroups()
	if len(idGroups) == 0 || len(idGroups[0]) == 0 {
		return []string{}, nil
	}

	ids := make([]string, 0, len(idGroups[0]))
	for _, id := range idGroups[0] {
		ids = append(ids, string(id))
	}
	return ids, nil
}

// Delete removes stored turns by conversation id.
func (c *Client) Delete(ctx context.Context, conversationIDs ...string) error {
	for _, id := range conversationIDs {
		if err := c.collection.Delete(ctx, chroma.WithIDsDelete(chroma.DocumentID(id))); err != nil {
			return fmt.Errorf("failed to delete embedding %s: %w", id, err)
		}
	}
	return nil
}
