package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/smartgarden/backend/pkg/config"
	"github.com/smartgarden/backend/pkg/retry"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

const (
	PlantsCollection = "plants"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	err := retry.Do(context.Background(), retry.DefaultConfig(), "Typesense", func(ctx context.Context) error {
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		ok, err := client.Health(healthCtx, 2*time.Second)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("typesense reported unhealthy")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// PlantsSchema is the collection layout for indexed plant records
func PlantsSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: PlantsCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "user_id", Type: "string", Facet: pointer.True()},
			{Name: "name", Type: "string"},
			{Name: "type", Type: "string", Optional: pointer.True()},
			{Name: "common_names", Type: "string[]", Optional: pointer.True()},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}
}

// InitSchema ensures the plants collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	if _, err := c.client.Collection(PlantsCollection).Retrieve(ctx); err == nil {
		return nil
	}

	if _, err := c.client.Collections().Create(ctx, PlantsSchema()); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", PlantsCollection, err)
	}

	log.Info().Str("collection", PlantsCollection).Msg("created Typesense collection")
	return nil
}
