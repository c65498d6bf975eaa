package controllers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"

	"hotline/models"
	"hotline/services"
)

// FeedbackStore is the persistence surface the feedback endpoint writes to.
type FeedbackStore interface {
	SaveFeedback(messageID int64, rating int, comment string) error
}

// Controller handles the HTTP surface of the hotline service.
type Controller struct {
	chatbot        *services.Chatbot
	ranker         *services.RelevanceRanker
	trending       *services.TrendingService
	feedback       FeedbackStore
	discordService *services.DiscordService
}

// NewController creates a new controller instance. feedback and trending may
// be nil when persistence is disabled; the matching endpoints then report the
// feature as unavailable.
func NewController(
	chatbot *services.Chatbot,
	ranker *services.RelevanceRanker,
	trending *services.TrendingService,
	feedback FeedbackStore,
	discordService *services.DiscordService,
) *Controller {
	return &Controller{
		chatbot:        chatbot,
		ranker:         ranker,
		trending:       trending,
		feedback:       feedback,
		discordService: discordService,
	}
}

// StartServices starts all background services (Discord bot, etc.)
func (c *Controller) StartServices(enableDiscord bool) error {
	if enableDiscord && c.discordService.IsEnabled() {
		if err := c.discordService.Start(); err != nil {
			log.Printf("Failed to start Discord gateway: %v", err)
			return err
		}
	} else if enableDiscord && !c.discordService.IsEnabled() {
		log.Printf("Discord gateway requested but not configured (missing DISCORD_BOT_TOKEN)")
	} else {
		log.Printf("Discord gateway disabled via command line flag")
	}

	return nil
}

// StopServices stops all background services
func (c *Controller) StopServices() error {
	if c.discordService != nil {
		return c.discordService.Stop()
	}
	return nil
}

// generateSessionID mints a fresh session identifier for clients that did not
// send one.
func (c *Controller) generateSessionID() string {
	return uuid.New().String()
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{
		Error:  message,
		Status: models.StatusError,
	})
}
