package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aym-n/SneakByte/pkg/log"
	"github.com/aym-n/SneakByte/pkg/messages"
	"github.com/aym-n/SneakByte/pkg/registry"
	"github.com/aym-n/SneakByte/pkg/repositories"
)

func HandleListBots(botRegistry *registry.BotRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bots := make([]messages.BotSummary, 0)
		for _, record := range botRegistry.Snapshot() {
			bots = append(bots, messages.BotSummary{
				ID:   record.ID,
				Name: record.Name,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if err := json.NewEncoder(w).Encode(bots); err != nil {
			log.Error("failed to encode bot list: %v", err)
			http.Error(w, "Failed to encode bot list", http.StatusInternalServerError)
			return
		}
	}
}

func HandleListRatings(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ratings, err := repository.ListRatings(r.Context())
		if err != nil {
			log.Error("failed to list ratings: %v", err)
			http.Error(w, "Failed to list ratings", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if err := json.NewEncoder(w).Encode(ratings); err != nil {
			log.Error("failed to encode ratings: %v", err)
			http.Error(w, "Failed to encode ratings", http.StatusInternalServerError)
			return
		}
	}
}
