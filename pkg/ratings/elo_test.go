package ratings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedScore(t *testing.T) {
	tests := []struct {
		name    string
		ratingA float64
		ratingB float64
		want    float64
	}{
		{
			name:    "equal ratings",
			ratingA: 800,
			ratingB: 800,
			want:    0.5,
		},
		{
			name:    "400 points ahead",
			ratingA: 1200,
			ratingB: 800,
			want:    10.0 / 11.0,
		},
		{
			name:    "400 points behind",
			ratingA: 800,
			ratingB: 1200,
			want:    1.0 / 11.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ExpectedScore(tt.ratingA, tt.ratingB), 1e-9)
		})
	}
}

func TestDynamicK(t *testing.T) {
	tests := []struct {
		name          string
		rating        float64
		gamesPlayed   int
		recentWinRate float64
		want          float64
	}{
		{
			name:          "new player moves fast",
			rating:        800,
			gamesPlayed:   0,
			recentWinRate: 0.5,
			want:          40,
		},
		{
			name:          "experienced player settles at rating floor",
			rating:        800,
			gamesPlayed:   100,
			recentWinRate: 0.5,
			want:          30,
		},
		{
			name:          "experienced master is stable",
			rating:        2500,
			gamesPlayed:   100,
			recentWinRate: 0.5,
			want:          10,
		},
		{
			name:          "streaky veteran speeds back up",
			rating:        2500,
			gamesPlayed:   100,
			recentWinRate: 1.0,
			want:          20,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DynamicK(tt.rating, tt.gamesPlayed, tt.recentWinRate))
		})
	}
}

func TestRateMatch(t *testing.T) {
	tests := []struct {
		name    string
		ratingA float64
		ratingB float64
		resultA float64
		gamesA  int
		gamesB  int
		wantA   int
		wantB   int
	}{
		{
			name:    "even match win",
			ratingA: 800,
			ratingB: 800,
			resultA: ResultWin,
			wantA:   820,
			wantB:   780,
		},
		{
			name:    "even match draw",
			ratingA: 800,
			ratingB: 800,
			resultA: ResultDraw,
			wantA:   800,
			wantB:   800,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotA, gotB := RateMatch(tt.ratingA, tt.ratingB, tt.resultA, tt.gamesA, tt.gamesB)
			assert.Equal(t, tt.wantA, gotA)
			assert.Equal(t, tt.wantB, gotB)
		})
	}
}

func TestRateMatch_Conserving(t *testing.T) {
	// With equal K factors a rated match moves both players by the same
	// amount in opposite directions.
	a, b := RateMatch(1000, 900, ResultWin, 0, 0)
	assert.Equal(t, 1000+900, a+b)
}

func TestUpdateRating_UpsetMovesMore(t *testing.T) {
	underdog := UpdateRating(800, ExpectedScore(800, 1200), ResultWin, 20)
	favorite := UpdateRating(800, ExpectedScore(800, 800), ResultWin, 20)
	assert.Greater(t, underdog, favorite)
}
