package models

// BotRating is a bot's Elo standing.
type BotRating struct {
	BotID       string `json:"botId"`
	Name        string `json:"name"`
	Rating      int    `json:"rating"`
	GamesPlayed int    `json:"gamesPlayed"`
}
