package repositories

import (
	"context"
	"fmt"

	"github.com/aym-n/SneakByte/pkg/repositories/models"
	"github.com/jackc/pgx/v5"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ratings (
	bot_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	rating INTEGER NOT NULL,
	games_played INTEGER NOT NULL
);
`

type PostgresRepository struct {
	conn *pgx.Conn
}

// NewPostgresRepository creates a Postgres-backed repository. The caller is
// responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string) (Repository, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if _, err := conn.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %v", err)
	}

	return &PostgresRepository{
		conn: conn,
	}, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	return r.conn.Close(ctx)
}

func (r *PostgresRepository) GetRating(ctx context.Context, botID string) (*models.BotRating, error) {
	q := `
	SELECT name, rating, games_played FROM ratings WHERE bot_id = $1;
	`
	rating := &models.BotRating{BotID: botID}
	if err := r.conn.QueryRow(ctx, q, botID).Scan(&rating.Name, &rating.Rating, &rating.GamesPlayed); err != nil {
		if err == pgx.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan rating: %v", err)
	}
	return rating, nil
}

func (r *PostgresRepository) SaveRating(ctx context.Context, rating *models.BotRating) error {
	q := `
	INSERT INTO ratings (bot_id, name, rating, games_played) VALUES ($1, $2, $3, $4)
	ON CONFLICT (bot_id) DO UPDATE SET name = $2, rating = $3, games_played = $4;
	`
	_, err := r.conn.Exec(ctx, q, rating.BotID, rating.Name, rating.Rating, rating.GamesPlayed)
	if err != nil {
		return fmt.Errorf("failed to insert rating: %v", err)
	}
	return nil
}

func (r *PostgresRepository) ListRatings(ctx context.Context) ([]*models.BotRating, error) {
	q := `
	SELECT bot_id, name, rating, games_played FROM ratings ORDER BY rating DESC;
	`
	rows, err := r.conn.Query(ctx, q)
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
