package models

// ChatMessage is a single message in a conversation, in the wire format the
// generation backend expects.
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest represents an incoming chat request
type ChatRequest struct {
	Question      string `json:"question"`
	KnowledgeBase string `json:"knowledge_base"`
	SessionID     string `json:"session_id"`
	Model         string `json:"model,omitempty"`
	MaxTokens     int    `json:"max_tokens,omitempty"`
	Source        string `json:"source,omitempty"` // "user" or "admin"
}

// ChatResponse represents the response from the chat pipeline
type ChatResponse struct {
	Answer       string           `json:"answer"`
	FilesUsed    []string         `json:"files_used"`
	MessageParts []string         `json:"message_parts"`
	Performance  map[string]int64 `json:"performance"`   // per-stage timings, milliseconds
	TypingDelays []int            `json:"typing_delays"` // one delay per part, milliseconds
	MessageID    int64            `json:"message_id"`
}

// ClearHistoryRequest asks for a session's conversation history to be emptied.
type ClearHistoryRequest struct {
	SessionID string `json:"session_id"`
}
