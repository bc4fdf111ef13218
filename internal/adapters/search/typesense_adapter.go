package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartgarden/backend/internal/domain/entities"
	"github.com/smartgarden/backend/internal/domain/providers"
	tsclient "github.com/smartgarden/backend/internal/infrastructure/clients/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

const defaultSearchLimit = 20

// TypesenseAdapter implements plant name search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

// Ensure TypesenseAdapter implements PlantSearchIndex
var _ providers.PlantSearchIndex = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// Index upserts a plant record
func (a *TypesenseAdapter) Index(ctx context.Context, record *entities.PlantRecord) error {
	_, err := a.client.Client().Collection(tsclient.PlantsCollection).Documents().Upsert(ctx, buildPlantDocument(record))
	if err != nil {
		return fmt.Errorf("failed to index plant %s: %w", record.ID, err)
	}
	return nil
}

// Remove deletes a plant record from the index
func (a *TypesenseAdapter) Remove(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(tsclient.PlantsCollection).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove plant %s from index: %w", id, err)
	}
	return nil
}

// Search returns IDs of the user's plants matching query
func (a *TypesenseAdapter) Search(ctx context.Context, userID, query string, limit int) ([]string, error) {
	result, err := a.client.Client().Collection(tsclient.PlantsCollection).Documents().Search(ctx, buildSearchParams(userID, query, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to search plants: %w", err)
	}

	ids := []string{}
	if result.Hits == nil {
		return ids, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if id, ok := (*hit.Document)["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func buildPlantDocument(record *entities.PlantRecord) map[string]interface{} {
	doc := map[string]interface{}{
		"id":         record.ID,
		"user_id":    record.UserID,
		"name":       record.Name,
		"type":       record.Type,
		"created_at": record.CreatedAt.Unix(),
	}
	if top, ok := record.Classification.Top(); ok {
		names := uniqueLower(append([]string{top.Name}, top.Details.CommonNames...))
		doc["common_names"] = names
	}
	return doc
}

func buildSearchParams(userID, query string, limit int) *api.SearchCollectionParams {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	q := strings.TrimSpace(query)
	if q == "" {
		q = "*"
	}
	return &api.SearchCollectionParams{
		Q:        pointer.String(q),
		QueryBy:  pointer.String("name,common_names,type"),
		FilterBy: pointer.String(fmt.Sprintf("user_id:=%s", escapeFilterValue(userID))),
		PerPage:  pointer.Int(limit),
	}
}

// escapeFilterValue wraps a value in backticks so ids with special characters filter literally
func escapeFilterValue(v string) string {
	return "`" + strings.ReplaceAll(v, "`", "") + "`"
}

func uniqueLower(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
