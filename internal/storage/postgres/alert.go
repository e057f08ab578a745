package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"neargrid/internal/domain"
)

type AlertStore struct {
	db *sqlx.DB
}

func NewAlertStore(db *sqlx.DB) *AlertStore {
	return &AlertStore{db: db}
}

// List returns every alert, newest first.
func (s *AlertStore) List(ctx context.Context) ([]domain.AlertRecord, error) {
	query := `
		SELECT id, title, category, severity, description, lat, lng, author_name, created_at
		FROM alerts
		ORDER BY created_at DESC NULLS LAST, id`

	var rows []alertRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query); err != nil {
		return nil, fmt.Errorf("select alerts: %w", err)
	}

	alerts := make([]domain.AlertRecord, 0, len(rows))
	for _, r := range rows {
		alerts = append(alerts, r.toDomain())
	}
	return alerts, nil
}

// Insert writes a new alert and returns its store-assigned id.
func (s *AlertStore) Insert(ctx context.Context, draft domain.AlertDraft) (string, error) {
	query := `
		INSERT INTO alerts (title, category, severity, description, lat, lng, author_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	var id string
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		draft.Title,
		string(draft.Category),
		string(draft.Severity),
		draft.Description,
		draft.Location.Lat,
		draft.Location.Lng,
		draft.AuthorName,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert alert: %w", err)
	}

	return id, nil
}
