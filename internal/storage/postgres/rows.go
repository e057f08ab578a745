package postgres

import (
	"database/sql"
	"time"

	"neargrid/internal/domain"
)

type alertRow struct {
	ID          string          `db:"id"`
	Title       string          `db:"title"`
	Category    string          `db:"category"`
	Severity    string          `db:"severity"`
	Description sql.NullString  `db:"description"`
	Lat         sql.NullFloat64 `db:"lat"`
	Lng         sql.NullFloat64 `db:"lng"`
	AuthorName  string          `db:"author_name"`
	CreatedAt   sql.NullTime    `db:"created_at"`
}

func (r alertRow) toDomain() domain.AlertRecord {
	return domain.AlertRecord{
		ID:          r.ID,
		Title:       r.Title,
		Category:    domain.Category(r.Category),
		Severity:    domain.Severity(r.Severity),
		Description: nullString(r.Description),
		Location:    coordinates(r.Lat, r.Lng),
		CreatedAt:   nullTime(r.CreatedAt),
		AuthorName:  r.AuthorName,
	}
}

type newsRow struct {
	ID           string          `db:"id"`
	Title        string          `db:"title"`
	Description  sql.NullString  `db:"description"`
	ImageURL     sql.NullString  `db:"image_url"`
	ReporterName string          `db:"reporter_name"`
	Lat          sql.NullFloat64 `db:"lat"`
	Lng          sql.NullFloat64 `db:"lng"`
	CreatedAt    sql.NullTime    `db:"created_at"`
}

func (r newsRow) toDomain() domain.NewsRecord {
	return domain.NewsRecord{
		ID:           r.ID,
		Title:        r.Title,
		Description:  nullString(r.Description),
		ImageURL:     nullString(r.ImageURL),
		ReporterName: r.ReporterName,
		Location:     coordinates(r.Lat, r.Lng),
		CreatedAt:    nullTime(r.CreatedAt),
	}
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func coordinates(lat, lng sql.NullFloat64) *domain.Coordinates {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
}
