package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aym-n/SneakByte/pkg/repositories/models"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ratings (
	bot_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	rating INTEGER NOT NULL,
	games_played INTEGER NOT NULL
);
`

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens a SQLite-backed repository. Use ":memory:" for a
// store that lives only as long as the process.
func NewSQLiteRepository(ctx context.Context, path string) (Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %v", err)
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) GetRating(ctx context.Context, botID string) (*models.BotRating, error) {
	q := `
	SELECT name, rating, games_played FROM ratings WHERE bot_id = ?;
	`
	rating := &models.BotRating{BotID: botID}
	if err := r.db.QueryRowContext(ctx, q, botID).Scan(&rating.Name, &rating.Rating, &rating.GamesPlayed); err != nil {
		if err == sql.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan rating: %v", err)
	}
	return rating, nil
}

func (r *SQLiteRepository) SaveRating(ctx context.Context, rating *models.BotRating) error {
	q := `
	INSERT OR REPLACE INTO ratings (bot_id, name, rating, games_played)
	VALUES (?, ?, ?, ?);
	`
	_, err := r.db.ExecContext(ctx, q, rating.BotID, rating.Name, rating.Rating, rating.GamesPlayed)
	if err != nil {
		return fmt.Errorf("failed to insert rating: %v", err)
	}
	return nil
}

func (r *SQLiteRepository) ListRatings(ctx context.Context) ([]*models.BotRating, error) {
	q := `
	SELECT bot_id, name, rating, games_played FROM ratings ORDER BY rating DESC;
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %v", err)
	}
	defer rows.Close()

	var results []*models.BotRating
	for rows.Next() {
		rating := &models.BotRating{}
		if err := rows.Scan(&rating.BotID, &rating.Name, &rating.Rating, &rating.GamesPlayed); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %v", err)
		}
		results = append(results, rating)
	}
	return results, rows.Err()
}
