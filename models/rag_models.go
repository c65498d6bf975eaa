package models

// Chunk is a fixed-size slice of a source document. Chunks exist only for
// scoring; the retrieval context is always built from whole documents.
type Chunk struct {
	DocumentName string
	Text         string
	Index        int
}

// KnowledgeBase holds the loaded content of one document directory: the full
// text of every document plus the ordered chunk sequence derived from them.
type KnowledgeBase struct {
	Path      string
	FileTexts map[string]string
	Chunks    []Chunk
}

// ScoredDocument pairs a document name with its best relevance score.
type ScoredDocument struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// RetrievalResult is the outcome of ranking a question against a knowledge
// base: the retrieved document names in descending-score order and the
// concatenation of their full texts.
type RetrievalResult struct {
	Documents []ScoredDocument
	FilesUsed []string
	Context   string
}

// RAGRequest represents a retrieval-only request
type RAGRequest struct {
	Question      string `json:"question"`
	KnowledgeBase string `json:"knowledge_base"`
}

// RAGResponse represents the retrieval-only response
type RAGResponse struct {
	Context   string   `json:"context"`
	FilesUsed []string `json:"files_used"`
}
