package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"hotline/models"
)

// FeedbackHandler attaches a user rating to a stored assistant message.
func (c *Controller) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	if c.feedback == nil {
		writeError(w, http.StatusServiceUnavailable, "Feedback storage is not enabled")
		return
	}

	var req models.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	// -1 is the sentinel for an exchange that was never persisted
	if req.MessageID <= 0 {
		writeError(w, http.StatusBadRequest, "A valid message_id is required")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}

	if err := c.feedback.SaveFeedback(req.MessageID, req.Rating, req.Comment); err != nil {
		log.Printf("Failed to save feedback for message %d: %v", req.MessageID, err)
		writeError(w, http.StatusInternalServerError, "Failed to save feedback")
		return
	}

	writeJSON(w, http.StatusOK, models.StatusResponse{
		Success: true,
		Message: "Feedback saved",
	})
}

// TrendingHandler returns the current trending questions, most frequent
// first. Query parameters: limit (default 10) and source (default "user").
func (c *Controller) TrendingHandler(w http.ResponseWriter, r *http.Request) {
	if c.trending == nil {
		writeError(w, http.StatusServiceUnavailable, "Trending analysis is not enabled")
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "user"
	}

	// force_update recomputes synchronously instead of waiting for the next
	// exchange's background refresh
	if v := r.URL.Query().Get("force_update"); v == "true" || v == "1" {
		c.trending.Refresh(r.Context(), source)
	}

	trending, err := c.trending.Top(limit, source)
	if err != nil {
		log.Printf("Failed to load trending questions: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load trending questions")
		return
	}
	if trending == nil {
		trending = []models.TrendingQuestion{}
	}

	writeJSON(w, http.StatusOK, trending)
}
