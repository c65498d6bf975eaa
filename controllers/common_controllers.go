package controllers

import (
	"net/http"
)

// HealthHandler reports service liveness.
func (c *Controller) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "hotline",
	})
}

// StatusHandler reports the status of each subsystem.
func (c *Controller) StatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chatbot": c.chatbot.GetStatus(),
		"discord": c.discordService.GetStatus(),
	})
}
