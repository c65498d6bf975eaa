package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"hotline/models"
)

// ChatHandler runs one question through the full pipeline and returns the
// answer with its parts, timings and persistence ID.
func (c *Controller) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Question cannot be empty")
		return
	}
	if strings.TrimSpace(req.KnowledgeBase) == "" {
		writeError(w, http.StatusBadRequest, "Knowledge base path is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = c.generateSessionID()
	}

	response, err := c.chatbot.ProcessQuestion(r.Context(), req)
	if err != nil {
		log.Printf("Chat request failed for session %s: %v", req.SessionID, err)
		writeError(w, http.StatusInternalServerError, "Failed to process question")
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// ClearHistoryHandler empties the conversation history of a session.
func (c *Controller) ClearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ClearHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	if !c.chatbot.ClearHistory(req.SessionID) {
		writeJSON(w, http.StatusOK, models.StatusResponse{
			Success: false,
			Message: "Session not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, models.StatusResponse{
		Success: true,
		Message: "History cleared",
	})
}
