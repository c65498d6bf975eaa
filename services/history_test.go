package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotline/models"
)

func TestAppendExchangeKeepsTurnOrder(t *testing.T) {
	store := NewMemorySessionStore()
	store.AppendExchange("s1", "q1", "a1")
	store.AppendExchange("s1", "q2", "a2")

	history := store.History("s1")
	require.Len(t, history, 4)
	assert.Equal(t, models.ChatMessage{Role: models.RoleUser, Content: "q1"}, history[0])
	assert.Equal(t, models.ChatMessage{Role: models.RoleAssistant, Content: "a1"}, history[1])
	assert.Equal(t, models.ChatMessage{Role: models.RoleUser, Content: "q2"}, history[2])
	assert.Equal(t, models.ChatMessage{Role: models.RoleAssistant, Content: "a2"}, history[3])
}

func TestHistoryReturnsCopy(t *testing.T) {
	store := NewMemorySessionStore()
	store.AppendExchange("s1", "q1", "a1")

	history := store.History("s1")
	history[0].Content = "mutated"

	assert.Equal(t, "q1", store.History("s1")[0].Content)
}

func TestClearUnknownSession(t *testing.T) {
	store := NewMemorySessionStore()
	assert.False(t, store.Clear("never-seen"))
}

func TestClearEmptiesButKeepsSession(t *testing.T) {
	store := NewMemorySessionStore()
	store.AppendExchange("s1", "q1", "a1")

	assert.True(t, store.Clear("s1"))
	assert.Empty(t, store.History("s1"))
	// A second clear still succeeds because the session entry remains
	assert.True(t, store.Clear("s1"))
}

func TestWindowBoundsHistory(t *testing.T) {
	var history []models.ChatMessage
	for i := 0; i < 20; i++ {
		history = append(history,
			models.ChatMessage{Role: models.RoleUser, Content: fmt.Sprintf("q%d", i)},
			models.ChatMessage{Role: models.RoleAssistant, Content: fmt.Sprintf("a%d", i)},
		)
	}

	window := Window(history, 10)
	require.Len(t, window, 10)
	assert.Equal(t, "q15", window[0].Content)
	assert.Equal(t, "a19", window[9].Content)
}

func TestWindowDropsLeadingAssistantTurn(t *testing.T) {
	// An odd cut leaves an assistant turn first
	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: "q0"},
		{Role: models.RoleAssistant, Content: "a0"},
		{Role: models.RoleUser, Content: "q1"},
		{Role: models.RoleAssistant, Content: "a1"},
		{Role: models.RoleUser, Content: "q2"},
		{Role: models.RoleAssistant, Content: "a2"},
	}

	window := Window(history, 5)
	require.Len(t, window, 4)
	assert.Equal(t, "q1", window[0].Content)
	assert.Equal(t, models.RoleUser, window[0].Role)
}

func TestWindowDiscardsUnpairedTail(t *testing.T) {
	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: "q0"},
		{Role: models.RoleAssistant, Content: "a0"},
		{Role: models.RoleUser, Content: "dangling"},
	}

	window := Window(history, 10)
	require.Len(t, window, 2)
	assert.Equal(t, "a0", window[1].Content)
}

func TestWindowAlternationAlwaysValid(t *testing.T) {
	// Malformed history with doubled roles must not leak broken pairs
	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: "q0"},
		{Role: models.RoleUser, Content: "q1"},
		{Role: models.RoleAssistant, Content: "a1"},
		{Role: models.RoleAssistant, Content: "a2"},
	}

	window := Window(history, 10)
	for i := 0; i < len(window); i += 2 {
		assert.Equal(t, models.RoleUser, window[i].Role)
		assert.Equal(t, models.RoleAssistant, window[i+1].Role)
	}
}

func TestWindowEmptyHistory(t *testing.T) {
	assert.Empty(t, Window(nil, 10))
}
