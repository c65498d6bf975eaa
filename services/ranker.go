package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"hotline/models"
)

// ChunkScorer scores (query, passage) pairs for relevance. The production
// implementation calls an external cross-encoder service; tests substitute
// a fake.
type ChunkScorer interface {
	Score(ctx context.Context, pairs [][2]string) ([]float64, error)
}

// ScorerClient talks to the cross-encoder scoring service over HTTP. The
// service accepts a batch of pairs and returns one score per pair, in order.
type ScorerClient struct {
	url        string
	httpClient *http.Client
}

// NewScorerClient creates a scorer client for the given endpoint.
func NewScorerClient(url string, timeout time.Duration) *ScorerClient {
	return &ScorerClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type scoreRequest struct {
	Pairs [][2]string `json:"pairs"`
}

type scoreResponse struct {
	Scores []float64 `json:"scores"`
}

// Score submits one batch of (query, passage) pairs and returns the
// parallel score slice.
func (s *ScorerClient) Score(ctx context.Context, pairs [][2]string) ([]float64, error) {
	jsonData, err := json.Marshal(scoreRequest{Pairs: pairs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach scorer at %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("scorer returned status %d: %s", resp.StatusCode, string(body))
	}

	var scoreResp scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&scoreResp); err != nil {
		return nil, fmt.Errorf("failed to decode scorer response: %w", err)
	}

	if len(scoreResp.Scores) != len(pairs) {
		return nil, fmt.Errorf("scorer returned %d scores for %d pairs", len(scoreResp.Scores), len(pairs))
	}

	return scoreResp.Scores, nil
}

// Warmup issues a dummy scoring call so the first real request does not pay
// the model load cost. Failures are reported, not fatal.
func (s *ScorerClient) Warmup(ctx context.Context) error {
	_, err := s.Score(ctx, [][2]string{{"", ""}})
	return err
}

// RelevanceRanker selects the documents most relevant to a question by
// scoring every chunk of the knowledge base against it.
type RelevanceRanker struct {
	cache  *KnowledgeBaseCache
	scorer ChunkScorer
}

// NewRelevanceRanker creates a ranker over the given cache and scorer.
func NewRelevanceRanker(cache *KnowledgeBaseCache, scorer ChunkScorer) *RelevanceRanker {
	return &RelevanceRanker{cache: cache, scorer: scorer}
}

// Retrieve scores every chunk of the knowledge base against the question and
// returns the top-k documents. The context holds the full text of each
// retrieved document, not just the matching chunk: a single strong chunk
// pulls in its whole file so the prompt never sees a mid-document cut.
// Scorer failures propagate to the caller; retrieval has no fallback.
func (r *RelevanceRanker) Retrieve(ctx context.Context, question, kbPath string, k int) (*models.RetrievalResult, error) {
	if k <= 0 {
		k = 1
	}

	kb, err := r.cache.Load(kbPath)
	if err != nil {
		return nil, err
	}

	if len(kb.Chunks) == 0 {
		return &models.RetrievalResult{FilesUsed: []string{}}, nil
	}

	pairs := make([][2]string, len(kb.Chunks))
	for i, chunk := range kb.Chunks {
		pairs[i] = [2]string{question, chunk.Text}
	}

	scores, err := r.scorer.Score(ctx, pairs)
	if err != nil {
		return nil, fmt.Errorf("chunk scoring failed: %w", err)
	}

	// Stable sort keeps original chunk order for equal scores
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	if k > len(order) {
		k = len(order)
	}

	result := &models.RetrievalResult{FilesUsed: []string{}}
	seen := make(map[string]bool)
	var contexts []string

	for _, idx := range order[:k] {
		name := kb.Chunks[idx].DocumentName
		if seen[name] {
			continue
		}
		seen[name] = true
		result.Documents = append(result.Documents, models.ScoredDocument{Name: name, Score: scores[idx]})
		result.FilesUsed = append(result.FilesUsed, name)
		contexts = append(contexts, kb.FileTexts[name])
	}

	result.Context = joinContexts(contexts)
	return result, nil
}

func joinContexts(contexts []string) string {
	out := ""
	for i, c := range contexts {
		if i > 0 {
			out += "\n\n"
		}
		out += c
	}
	return out
}
