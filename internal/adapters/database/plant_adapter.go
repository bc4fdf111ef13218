package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/smartgarden/backend/internal/domain/entities"
	"github.com/smartgarden/backend/internal/domain/repositories"
	"github.com/smartgarden/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/smartgarden/backend/pkg/errors"
)

const plantsTable = "plants"

var plantColumns = []interface{}{
	"id", "user_id", "name", "type", "image", "watering_frequency", "last_watered",
	"is_plant", "classification", "plant_health", "recognition", "created_at", "updated_at",
}

// PlantAdapter implements PlantRepository on PostgreSQL
type PlantAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// Ensure PlantAdapter implements PlantRepository
var _ repositories.PlantRepository = (*PlantAdapter)(nil)

// NewPlantAdapter creates a new plant adapter
func NewPlantAdapter(client *postgres.Client) repositories.PlantRepository {
	return &PlantAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a plant record
func (a *PlantAdapter) Create(ctx context.Context, record *entities.PlantRecord) error {
	isPlant, err := json.Marshal(record.IsPlant)
	if err != nil {
		return apperrors.NewInternalError("failed to encode is_plant", err)
	}
	classification, err := json.Marshal(record.Classification)
	if err != nil {
		return apperrors.NewInternalError("failed to encode classification", err)
	}
	health, err := marshalNullable(record.PlantHealth)
	if err != nil {
		return apperrors.NewInternalError("failed to encode plant_health", err)
	}
	recognition, err := json.Marshal(record.Recognition)
	if err != nil {
		return apperrors.NewInternalError("failed to encode recognition", err)
	}

	row := goqu.Record{
		"id":                 record.ID,
		"user_id":            record.UserID,
		"name":               record.Name,
		"type":               record.Type,
		"image":              record.Image,
		"watering_frequency": record.WateringFrequency,
		"last_watered":       record.LastWatered,
		"is_plant":           string(isPlant),
		"classification":     string(classification),
		"plant_health":       health,
		"recognition":        string(recognition),
		"created_at":         record.CreatedAt,
		"updated_at":         record.UpdatedAt,
	}

	query, args, err := a.db.Insert(plantsTable).Prepared(true).Rows(row).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create plant", err)
	}
	return nil
}

// GetByID retrieves a plant record by ID
func (a *PlantAdapter) GetByID(ctx context.Context, id string) (*entities.PlantRecord, error) {
	query, args, err := a.db.Select(plantColumns...).
		From(plantsTable).
		Prepared(true).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	record, err := scanPlant(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("plant with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get plant", err)
	}
	return record, nil
}

// ListByUser retrieves a user's plants oldest first
func (a *PlantAdapter) ListByUser(ctx context.Context, userID string) ([]*entities.PlantRecord, error) {
	query, args, err := a.db.Select(plantColumns...).
		From(plantsTable).
		Prepared(true).
		Where(goqu.Ex{"user_id": userID}).
		Order(goqu.I("created_at").Asc(), goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list plants", err)
	}
	defer rows.Close()

	records := []*entities.PlantRecord{}
	for rows.Next() {
		record, err := scanPlant(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan plant", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate plants", err)
	}
	return records, nil
}

// Update writes the user-editable fields and the health assessment
func (a *PlantAdapter) Update(ctx context.Context, record *entities.PlantRecord) error {
	health, err := marshalNullable(record.PlantHealth)
	if err != nil {
		return apperrors.NewInternalError("failed to encode plant_health", err)
	}

	record.UpdatedAt = time.Now().UTC()

	query, args, err := a.db.Update(plantsTable).
		Prepared(true).
		Set(goqu.Record{
			"name":               record.Name,
			"type":               record.Type,
			"watering_frequency": record.WateringFrequency,
			"last_watered":       record.LastWatered,
			"plant_health":       health,
			"updated_at":         record.UpdatedAt,
		}).
		Where(goqu.Ex{"id": record.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update plant", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("plant with id %s not found", record.ID))
	}
	return nil
}

// Delete removes a plant record
func (a *PlantAdapter) Delete(ctx context.Context, id string) (bool, error) {
	query, args, err := a.db.Delete(plantsTable).
		Prepared(true).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to delete plant", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return rowsAffected > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlant(row rowScanner) (*entities.PlantRecord, error) {
	record := &entities.PlantRecord{}
	var isPlant, classification, recognition []byte
	var health sql.NullString

	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.Name,
		&record.Type,
		&record.Image,
		&record.WateringFrequency,
		&record.LastWatered,
		&isPlant,
		&classification,
		&health,
		&recognition,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(isPlant, &record.IsPlant); err != nil {
		return nil, fmt.Errorf("decode is_plant: %w", err)
	}
	if err := json.Unmarshal(classification, &record.Classification); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}
	if len(recognition) > 0 {
		if err := json.Unmarshal(recognition, &record.Recognition); err != nil {
			return nil, fmt.Errorf("decode recognition: %w", err)
		}
	}
	if health.Valid && health.String != "" && health.String != "null" {
		record.PlantHealth = &entities.PlantHealth{}
		if err := json.Unmarshal([]byte(health.String), record.PlantHealth); err != nil {
			return nil, fmt.Errorf("decode plant_health: %w", err)
		}
	}
	return record, nil
}

func marshalNullable(health *entities.PlantHealth) (sql.NullString, error) {
	if health == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(health)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
