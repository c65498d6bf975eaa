package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"hotline/models"
)

// RAGHandler runs retrieval only: it returns the document context that would
// be fed to the generator for a question, without generating an answer.
func (c *Controller) RAGHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RAGRequest
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

	result, err := c.ranker.Retrieve(r.Context(), req.Question, req.KnowledgeBase, 1)
	if err != nil {
		log.Printf("Retrieval failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Retrieval failed")
		return
	}

	writeJSON(w, http.StatusOK, models.RAGResponse{
		Context:   result.Context,
		FilesUsed: result.FilesUsed,
	})
}
