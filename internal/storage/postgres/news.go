package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"neargrid/internal/domain"
)

type NewsStore struct {
	db *sqlx.DB
}

func NewNewsStore(db *sqlx.DB) *NewsStore {
	return &NewsStore{db: db}
}

// List returns every news item, newest first.
func (s *NewsStore) List(ctx context.Context) ([]domain.NewsRecord, error) {
	query := `
		SELECT id, title, description, image_url, reporter_name, lat, lng, created_at
		FROM news
		ORDER BY created_at DESC NULLS LAST, id`

	var rows []newsRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query); err != nil {
		return nil, fmt.Errorf("select news: %w", err)
	}

	news := make([]domain.NewsRecord, 0, len(rows))
	for _, r := range rows {
		news = append(news, r.toDomain())
	}
	return news, nil
}

func (s *NewsStore) Insert(ctx context.Context, draft domain.NewsDraft) (string, error) {
	query := `
		INSERT INTO news (title, description, image_url, reporter_name, lat, lng)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id string
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		draft.Title,
		draft.Description,
		draft.ImageURL,
		draft.ReporterName,
		draft.Location.Lat,
		draft.Location.Lng,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert news: %w", err)
	}

	return id, nil
}
