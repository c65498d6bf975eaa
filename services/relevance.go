package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"hotline/models"
)

// Verdict is the two-valued outcome of the relevance check.
type Verdict int

const (
	// NotRelevant means the retrieved documents were not used in the answer
	// (or the check could not be performed).
	NotRelevant Verdict = iota
	// Relevant means the retrieved documents overlap with the question.
	Relevant
)

// affirmativeToken is the verifier reply fragment counted as a yes.
const affirmativeToken = "oui"

// verifierPrompt constrains the verifier to a bare oui/non reply.
const verifierPrompt = "Vous êtes un évaluateur qui analyse si les documents fournis permettent de répondre à une question.\n" +
	"Votre tâche est de déterminer si le contexte contient suffisamment d'informations pour répondre à la question posée.\n" +
	"Répondez uniquement par \"oui\" ou \"non\".\n\n" +
	"Si le contexte contient des informations directement liées à la question, même partielles, répondez \"oui\".\n" +
	"Si le contexte ne contient aucune information pertinente pour répondre à la question, répondez \"non\"."

// RelevanceGate asks a verification model whether the retrieved context was
// actually useful for the question. Its verdict controls whether document
// citations are shown; it never fails a request.
type RelevanceGate struct {
	completer Completer
	model     string
	maxTokens int
}

// NewRelevanceGate creates a gate backed by the given (typically lighter)
// verification model.
func NewRelevanceGate(completer Completer, model string, maxTokens int) *RelevanceGate {
	if maxTokens <= 0 {
		maxTokens = 10
	}
	return &RelevanceGate{completer: completer, model: model, maxTokens: maxTokens}
}

// Check classifies whether the context's concepts overlap with the question.
// A failed verifier call degrades to NotRelevant: no verdict means no
// citations, never a failed request.
func (g *RelevanceGate) Check(ctx context.Context, question, context_ string) Verdict {
	messages := []models.ChatMessage{
		{Role: models.RoleSystem, Content: verifierPrompt},
		{Role: models.RoleUser, Content: fmt.Sprintf("Contexte:\n%s\n\nQuestion: %s", context_, question)},
	}

	reply, err := g.completer.Complete(ctx, g.model, messages, g.maxTokens)
	if err != nil {
		log.Printf("Relevance check failed, treating documents as not relevant: %v", err)
		return NotRelevant
	}

	return parseVerdict(reply)
}

// parseVerdict maps a free-form verifier reply to a Verdict. The heuristic
// is deliberately fuzzy: any reply containing the affirmative token counts,
// which keeps the check robust to chatty models at the cost of false
// positives on replies that merely contain the substring.
func parseVerdict(reply string) Verdict {
	if strings.Contains(strings.ToLower(reply), affirmativeToken) {
		return Relevant
	}
	return NotRelevant
}
