package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"hotline/models"
)

// applications are the product areas trending questions get bucketed into.
var applications = []string{"GLPI", "Teams", "Outlook", "VPN", "Autre"}

// TrendingStore is the persistence surface the trending analysis needs.
type TrendingStore interface {
	QuestionsFromToday(source string) ([]string, error)
	SaveTrending(questions []models.TrendingQuestion, source string) error
	Trending(limit int, source string) ([]models.TrendingQuestion, error)
}

// TrendingService groups the day's user questions into recurring themes. The
// grouping itself is delegated to the generation model; when the model is
// unreachable or returns garbage, a plain frequency count takes over.
type TrendingService struct {
	store     TrendingStore
	completer Completer
	model     string
}

// NewTrendingService creates the trending analyzer.
func NewTrendingService(store TrendingStore, completer Completer, model string) *TrendingService {
	return &TrendingService{store: store, completer: completer, model: model}
}

const trendingPrompt = "Vous analysez les questions posées aujourd'hui à une hotline technique. " +
	"Regroupez les questions qui portent sur le même sujet, reformulez chaque groupe en une question représentative, " +
	"et classez chaque groupe dans une des applications suivantes : %s. " +
	"Répondez uniquement avec un tableau JSON de la forme " +
	"[{\"question\": \"...\", \"count\": N, \"application\": \"...\"}] sans aucun autre texte."

// Refresh recomputes today's trending questions for a source and persists the
// result. It is called fire-and-forget after each exchange, so every failure
// is logged and swallowed.
func (t *TrendingService) Refresh(ctx context.Context, source string) {
	questions, err := t.store.QuestionsFromToday(source)
	if err != nil {
		log.Printf("Trending refresh skipped, cannot load today's questions: %v", err)
		return
	}
	if len(questions) == 0 {
		return
	}

	trending, err := t.groupWithModel(ctx, questions)
	if err != nil {
		log.Printf("Model-based trending grouping failed, using frequency count: %v", err)
		trending = groupByFrequency(questions)
	}
	for i := range trending {
		trending[i].Source = source
	}

	if err := t.store.SaveTrending(trending, source); err != nil {
		log.Printf("Failed to save trending questions: %v", err)
	}
}

// Top returns the current trending questions for a source, most frequent
// first.
func (t *TrendingService) Top(limit int, source string) ([]models.TrendingQuestion, error) {
	if limit <= 0 {
		limit = 10
	}
	return t.store.Trending(limit, source)
}

// groupWithModel asks the generation model to cluster the questions and
// parses its JSON reply. Models wrap JSON in prose often enough that the
// array is extracted by bracket matching rather than decoded directly.
func (t *TrendingService) groupWithModel(ctx context.Context, questions []string) ([]models.TrendingQuestion, error) {
	messages := []models.ChatMessage{
		{Role: models.RoleSystem, Content: fmt.Sprintf(trendingPrompt, strings.Join(applications, ", "))},
		{Role: models.RoleUser, Content: strings.Join(questions, "\n")},
	}

	reply, err := t.completer.Complete(ctx, t.model, messages, 1000)
	if err != nil {
		return nil, err
	}

	payload, err := extractJSONArray(reply)
	if err != nil {
		return nil, err
	}

	var trending []models.TrendingQuestion
	if err := json.Unmarshal([]byte(payload), &trending); err != nil {
		return nil, fmt.Errorf("failed to decode trending groups: %w", err)
	}

	kept := trending[:0]
	for _, q := range trending {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		if q.Count <= 0 {
			q.Count = 1
		}
		if q.Application == "" {
			q.Application = "Autre"
		}
		kept = append(kept, q)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("trending reply contained no usable groups")
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Count > kept[j].Count
	})
	return kept, nil
}

// extractJSONArray returns the first top-level JSON array in the reply.
func extractJSONArray(reply string) (string, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON array in trending reply")
	}
	return reply[start : end+1], nil
}

// groupByFrequency counts exact duplicates after whitespace and case
// normalization. It cannot merge paraphrases, which is why it is only the
// fallback.
func groupByFrequency(questions []string) []models.TrendingQuestion {
	counts := make(map[string]int)
	originals := make(map[string]string)
	order := make([]string, 0, len(questions))

	for _, q := range questions {
		key := strings.ToLower(strings.TrimSpace(q))
		if key == "" {
			continue
		}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
			originals[key] = strings.TrimSpace(q)
		}
		counts[key]++
	}

	trending := make([]models.TrendingQuestion, 0, len(order))
	for _, key := range order {
		trending = append(trending, models.TrendingQuestion{
			Question:    originals[key],
			Count:       counts[key],
			Application: "Autre",
		})
	}
	sort.SliceStable(trending, func(i, j int) bool {
		return trending[i].Count > trending[j].Count
	})
	return trending
}
