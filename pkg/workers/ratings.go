package workers

import (
	"context"
	"time"

	"github.com/aym-n/SneakByte/pkg/log"
	"github.com/aym-n/SneakByte/pkg/queue"
	"github.com/aym-n/SneakByte/pkg/ratings"
	"github.com/aym-n/SneakByte/pkg/registry"
	"github.com/aym-n/SneakByte/pkg/repositories"
	"github.com/aym-n/SneakByte/pkg/repositories/models"
)

// Match result winners as declared by the rule engine.
const (
	WinnerPlayer1 = "Player 1"
	WinnerPlayer2 = "Player 2"
	WinnerTie     = "tie"
)

// MatchResult is a completed game with the rule engine's declared winner.
type MatchResult struct {
	Winner string
	Reason string
	Bot1   registry.BotRecord
	Bot2   registry.BotRecord
}

// RatingsWorker drains completed match results from a queue and applies them
// to the stored Elo ratings.
type RatingsWorker struct {
	results    queue.Queue
	repository repositories.Repository
	interval   time.Duration
}

type NewRatingsWorkerOptions struct {
	Results    queue.Queue
	Repository repositories.Repository
	Interval   time.Duration
}

// NewRatingsWorker creates a new RatingsWorker.
func NewRatingsWorker(opts NewRatingsWorkerOptions) *RatingsWorker {
	return &RatingsWorker{
		results:    opts.Results,
		repository: opts.Repository,
		interval:   opts.Interval,
	}
}

// Start processes results until the context is cancelled.
func (w *RatingsWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processResults(ctx)
		}
	}
}

func (w *RatingsWorker) processResults(ctx context.Context) {
	pending, err := w.results.ReadAllMessages()
	if err != nil {
		log.Error("Failed to read match results: %v", err)
		return
	}
	for _, item := range pending {
		result, ok := item.(*MatchResult)
		if !ok {
			log.Error("Unexpected item in results queue: %T", item)
			continue
		}
		if err := w.recordResult(ctx, result); err != nil {
			log.Error("Failed to record match result: %v", err)
		}
	}
}

func (w *RatingsWorker) recordResult(ctx context.Context, result *MatchResult) error {
	rating1, err := w.loadOrDefault(ctx, result.Bot1)
	if err != nil {
		return err
	}
	rating2, err := w.loadOrDefault(ctx, result.Bot2)
	if err != nil {
		return err
	}

	// An unrecognized winner string counts as a draw.
	score1 := ratings.ResultDraw
	switch result.Winner {
	case WinnerPlayer1:
		score1 = ratings.ResultWin
	case WinnerPlayer2:
		score1 = ratings.ResultLoss
	}

	new1, new2 := ratings.RateMatch(
		float64(rating1.Rating), float64(rating2.Rating),
		score1, rating1.GamesPlayed, rating2.GamesPlayed,
	)

	rating1.Rating = new1
	rating1.GamesPlayed++
	rating2.Rating = new2
	rating2.GamesPlayed++

	if err := w.repository.SaveRating(ctx, rating1); err != nil {
		return err
	}
	if err := w.repository.SaveRating(ctx, rating2); err != nil {
		return err
	}

	log.Info("Rated match %s vs %s (%s): %d, %d", rating1.Name, rating2.Name, result.Winner, new1, new2)
	return nil
}

func (w *RatingsWorker) loadOrDefault(ctx context.Context, bot registry.BotRecord) (*models.BotRating, error) {
	rating, err := w.repository.GetRating(ctx, bot.ID)
	if err == nil {
		rating.Name = bot.Name
		return rating, nil
	}
	if !repositories.IsNotFound(err) {
		return nil, err
	}
	return &models.BotRating{
		BotID:  bot.ID,
		Name:   bot.Name,
		Rating: ratings.DefaultRating,
	}, nil
}
