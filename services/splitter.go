package services

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	"hotline/models"
)

// Splitting limits. Lengths count runes, not bytes, so accented text does
// not split earlier than plain text. Answers below ShortAnswerThreshold are
// never fragmented.
const (
	ShortAnswerThreshold = 400
	DefaultMinParts      = 2
	DefaultMaxParts      = 5
)

// boldSpan matches inline emphasis. Spans are swapped for opaque
// placeholders before sentence splitting so a cut can never land inside one.
var boldSpan = regexp.MustCompile(`\*\*[^*]+\*\*`)

// sentenceEnd marks sentence boundaries: terminal punctuation followed by
// whitespace.
var sentenceEnd = regexp.MustCompile(`[.!?]+\s+`)

// MessageSplitter decomposes a long answer into 2-5 self-contained parts for
// staged delivery. The deterministic algorithm is the reference codepath;
// the model-assisted variant always falls back to it.
type MessageSplitter struct {
	completer Completer // optional, enables model-assisted splitting
	model     string
}

// NewMessageSplitter creates a deterministic-only splitter.
func NewMessageSplitter() *MessageSplitter {
	return &MessageSplitter{}
}

// NewModelAssistedSplitter creates a splitter that first asks the given
// model to place the separators itself.
func NewModelAssistedSplitter(completer Completer, model string) *MessageSplitter {
	return &MessageSplitter{completer: completer, model: model}
}

// Split decomposes text into ordered parts. Short inputs come back unchanged
// as a single part. Longer inputs are split on the explicit section
// separator when the generator provided one, otherwise on sentence
// boundaries. Splitting an already-short input is the identity.
func (s *MessageSplitter) Split(text string, minParts, maxParts int) []string {
	minParts, maxParts = normalizeBounds(minParts, maxParts)

	if utf8.RuneCountInString(text) < ShortAnswerThreshold {
		return []string{text}
	}

	if strings.Contains(text, SectionSeparator) {
		parts := splitOnSeparator(text)
		if len(parts) > 0 {
			if len(parts) > maxParts {
				parts = mergeParts(parts, maxParts)
			}
			// Fewer parts than the target is acceptable as long as
			// something non-empty remains
			return parts
		}
	}

	return s.splitDeterministic(text, minParts, maxParts)
}

// SplitWithModel asks the generation model to insert the separators, then
// validates the result. Any call failure or out-of-bounds part count with
// nothing salvageable falls back to the deterministic algorithm.
func (s *MessageSplitter) SplitWithModel(ctx context.Context, text string, minParts, maxParts int) []string {
	minParts, maxParts = normalizeBounds(minParts, maxParts)

	if utf8.RuneCountInString(text) < ShortAnswerThreshold {
		return []string{text}
	}
	if strings.Contains(text, SectionSeparator) || s.completer == nil {
		return s.Split(text, minParts, maxParts)
	}

	target := targetParts(utf8.RuneCountInString(text), minParts, maxParts)
	instruction := fmt.Sprintf(
		"Découpe le texte suivant en %d parties autonomes en insérant exactement %d fois le token '%s' sur une ligne seule, "+
			"sans modifier, résumer ni reformuler le texte. Réponds uniquement avec le texte découpé.",
		target, target-1, SectionSeparator)

	messages := []models.ChatMessage{
		{Role: models.RoleSystem, Content: instruction},
		{Role: models.RoleUser, Content: text},
	}

	reply, err := s.completer.Complete(ctx, s.model, messages, len(text)+256)
	if err != nil {
		log.Printf("Model-assisted split failed, using deterministic split: %v", err)
		return s.splitDeterministic(text, minParts, maxParts)
	}

	parts := splitOnSeparator(reply)
	if len(parts) == 0 {
		return s.splitDeterministic(text, minParts, maxParts)
	}
	if len(parts) > maxParts {
		parts = mergeParts(parts, maxParts)
	}
	if len(parts) < minParts {
		return s.splitDeterministic(text, minParts, maxParts)
	}
	return parts
}

// JoinForStorage reassembles parts into the single string persisted as the
// message content, keeping the separators visible.
func JoinForStorage(parts []string) string {
	return strings.Join(parts, "\n"+SectionSeparator+"\n")
}

// splitDeterministic cuts on sentence boundaries, protecting bold spans and
// distributing sentences as evenly as possible over the target part count.
func (s *MessageSplitter) splitDeterministic(text string, minParts, maxParts int) []string {
	target := targetParts(utf8.RuneCountInString(text), minParts, maxParts)

	protected, spans := protectBoldSpans(text)
	sentences := splitSentences(protected)
	if len(sentences) == 0 {
		return []string{text}
	}
	if target > len(sentences) {
		target = len(sentences)
	}

	parts := make([]string, 0, target)
	base := len(sentences) / target
	extra := len(sentences) % target
	idx := 0
	for p := 0; p < target; p++ {
		n := base
		if p < extra {
			n++
		}
		part := strings.TrimSpace(strings.Join(sentences[idx:idx+n], " "))
		parts = append(parts, restoreBoldSpans(part, spans))
		idx += n
	}
	return parts
}

// targetParts picks a part count from rune-length bands, clamped to the
// bounds.
func targetParts(length, minParts, maxParts int) int {
	var target int
	switch {
	case length < 1200:
		target = 2
	case length < 2000:
		target = 3
	case length < 3000:
		target = 4
	default:
		target = 5
	}
	if target < minParts {
		target = minParts
	}
	if target > maxParts {
		target = maxParts
	}
	return target
}

// splitOnSeparator splits on the explicit section token, trimming whitespace
// and dropping empty fragments.
func splitOnSeparator(text string) []string {
	raw := strings.Split(text, SectionSeparator)
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// mergeParts reduces parts down to max by grouping adjacent parts as evenly
// as possible, preserving order.
func mergeParts(parts []string, max int) []string {
	if len(parts) <= max {
		return parts
	}

	merged := make([]string, 0, max)
	base := len(parts) / max
	extra := len(parts) % max
	idx := 0
	for g := 0; g < max; g++ {
		n := base
		if g < extra {
			n++
		}
		merged = append(merged, strings.Join(parts[idx:idx+n], "\n\n"))
		idx += n
	}
	return merged
}

// splitSentences returns the text's sentences, each keeping its terminal
// punctuation. Input with no sentence boundary comes back as one piece.
func splitSentences(text string) []string {
	var sentences []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		sentence := strings.TrimSpace(text[last:loc[1]])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// protectBoldSpans replaces every bold span with an opaque placeholder that
// contains no sentence punctuation, and returns the ordered span list.
func protectBoldSpans(text string) (string, []string) {
	var spans []string
	protected := boldSpan.ReplaceAllStringFunc(text, func(span string) string {
		spans = append(spans, span)
		return fmt.Sprintf("\x00B%d\x00", len(spans)-1)
	})
	return protected, spans
}

// restoreBoldSpans swaps the placeholders back for the original spans.
func restoreBoldSpans(text string, spans []string) string {
	for i, span := range spans {
		text = strings.ReplaceAll(text, fmt.Sprintf("\x00B%d\x00", i), span)
	}
	return text
}

func normalizeBounds(minParts, maxParts int) (int, int) {
	if minParts <= 0 {
		minParts = DefaultMinParts
	}
	if maxParts <= 0 {
		maxParts = DefaultMaxParts
	}
	if maxParts < minParts {
		maxParts = minParts
	}
	return minParts, maxParts
}
