package repositories

import (
	"context"

	"github.com/aym-n/SneakByte/pkg/repositories/models"
)

// Repository stores bot ratings. The default backend is in-memory for the
// process lifetime; a Postgres backend is available for deployments that
// want durable ratings.
type Repository interface {
	Close(ctx context.Context) error
	// GetRating returns the stored rating for a bot, or ErrNotFound.
	GetRating(ctx context.Context, botID string) (*models.BotRating, error)
	// SaveRating creates or replaces a bot's rating row.
	SaveRating(ctx context.Context, rating *models.BotRating) error
	// ListRatings returns all ratings, highest first.
	ListRatings(ctx context.Context) ([]*models.BotRating, error)
}
