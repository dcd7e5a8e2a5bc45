package ratings

import "math"

const (
	// DefaultRating is the starting rating for a bot with no recorded games.
	DefaultRating = 800

	// Results for RateMatch.
	ResultWin  = 1.0
	ResultDraw = 0.5
	ResultLoss = 0.0
)

// ExpectedScore returns the expected score of player A against player B,
// between 0 and 1.
func ExpectedScore(ratingA, ratingB float64) float64 {
	return 1 / (1 + math.Pow(10, (ratingB-ratingA)/400))
}

// DynamicK returns a K-factor tuned to a player's rating, experience, and
// recent volatility. Inexperienced or streaky players move faster; high-rated
// players are more stable.
func DynamicK(rating float64, gamesPlayed int, recentWinRate float64) float64 {
	// Base K drops as games increase.
	experienceFactor := math.Max(10, 40-float64(gamesPlayed)*0.6)

	var ratingFactor float64
	switch {
	case rating >= 2400:
		ratingFactor = 10
	case rating >= 1800:
		ratingFactor = 20
	default:
		ratingFactor = 30
	}

	// Extreme recent win rates inflate K.
	volatilityFactor := 1 + math.Pow(math.Abs(recentWinRate-0.5), 1.1)*2.2

	k := math.Min(40, math.Max(math.Max(10, experienceFactor*volatilityFactor), ratingFactor))
	return math.Round(k)
}

// UpdateRating applies one match result to a rating.
func UpdateRating(rating, expected, actual, k float64) float64 {
	return rating + k*(actual-expected)
}

// RateMatch rates a match between two players. resultA is player A's score:
// 1 for a win, 0.5 for a draw, 0 for a loss.
func RateMatch(ratingA, ratingB, resultA float64, gamesA, gamesB int) (newRatingA, newRatingB int) {
	resultB := 1 - resultA
	expectedA := ExpectedScore(ratingA, ratingB)
	expectedB := ExpectedScore(ratingB, ratingA)

	kA := DynamicK(ratingA, gamesA, 0.5)
	kB := DynamicK(ratingB, gamesB, 0.5)

	newRatingA = int(math.Round(UpdateRating(ratingA, expectedA, resultA, kA)))
	newRatingB = int(math.Round(UpdateRating(ratingB, expectedB, resultB, kB)))
	return newRatingA, newRatingB
}
