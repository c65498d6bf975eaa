package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotline/models"
)

// fakeTrendingStore records saves in memory.
type fakeTrendingStore struct {
	today    []string
	todayErr error
	saved    map[string][]models.TrendingQuestion
}

func newFakeTrendingStore(today ...string) *fakeTrendingStore {
	return &fakeTrendingStore{
		today: today,
		saved: make(map[string][]models.TrendingQuestion),
	}
}

func (f *fakeTrendingStore) QuestionsFromToday(source string) ([]string, error) {
	return f.today, f.todayErr
}

func (f *fakeTrendingStore) SaveTrending(questions []models.TrendingQuestion, source string) error {
	f.saved[source] = questions
	return nil
}

func (f *fakeTrendingStore) Trending(limit int, source string) ([]models.TrendingQuestion, error) {
	saved := f.saved[source]
	if len(saved) > limit {
		saved = saved[:limit]
	}
	return saved, nil
}

func TestRefreshGroupsWithModel(t *testing.T) {
	store := newFakeTrendingStore(
		"le vpn ne marche pas",
		"impossible de se connecter au vpn",
		"comment installer teams ?",
	)
	completer := &fakeCompleter{replies: []string{
		"Voici le regroupement demandé :\n" +
			`[{"question": "Problèmes de connexion VPN", "count": 2, "application": "VPN"},` +
			` {"question": "Installation de Teams", "count": 1, "application": "Teams"}]`,
	}}
	svc := NewTrendingService(store, completer, "test-model")

	svc.Refresh(context.Background(), "user")

	saved := store.saved["user"]
	require.Len(t, saved, 2)
	assert.Equal(t, "Problèmes de connexion VPN", saved[0].Question)
	assert.Equal(t, 2, saved[0].Count)
	assert.Equal(t, "VPN", saved[0].Application)
	assert.Equal(t, "user", saved[0].Source)
}

func TestRefreshFallsBackToFrequencyCount(t *testing.T) {
	store := newFakeTrendingStore(
		"le vpn ne marche pas",
		"Le VPN ne marche pas",
		"comment installer teams ?",
	)
	completer := &fakeCompleter{errs: []error{fmt.Errorf("backend down")}}
	svc := NewTrendingService(store, completer, "test-model")

	svc.Refresh(context.Background(), "user")

	saved := store.saved["user"]
	require.Len(t, saved, 2)
	// Case-insensitive duplicates collapse and sort first
	assert.Equal(t, "le vpn ne marche pas", saved[0].Question)
	assert.Equal(t, 2, saved[0].Count)
	assert.Equal(t, "Autre", saved[0].Application)
}

func TestRefreshFallsBackOnGarbageReply(t *testing.T) {
	store := newFakeTrendingStore("question unique")
	completer := &fakeCompleter{replies: []string{"je ne peux pas produire de JSON"}}
	svc := NewTrendingService(store, completer, "test-model")

	svc.Refresh(context.Background(), "user")

	saved := store.saved["user"]
	require.Len(t, saved, 1)
	assert.Equal(t, 1, saved[0].Count)
}

func TestRefreshNoQuestionsNoSave(t *testing.T) {
	store := newFakeTrendingStore()
	completer := &fakeCompleter{}
	svc := NewTrendingService(store, completer, "test-model")

	svc.Refresh(context.Background(), "user")

	assert.Empty(t, store.saved)
	assert.Empty(t, completer.calls)
}

func TestRefreshStoreFailureIsSwallowed(t *testing.T) {
	store := newFakeTrendingStore()
	store.todayErr = fmt.Errorf("database locked")
	svc := NewTrendingService(store, &fakeCompleter{}, "test-model")

	svc.Refresh(context.Background(), "user")
	assert.Empty(t, store.saved)
}

func TestExtractJSONArray(t *testing.T) {
	payload, err := extractJSONArray(`Bien sûr ! [{"question": "q", "count": 1}] Voilà.`)
	require.NoError(t, err)
	assert.Equal(t, `[{"question": "q", "count": 1}]`, payload)

	_, err = extractJSONArray("pas de tableau ici")
	assert.Error(t, err)
}

func TestGroupByFrequencyOrdering(t *testing.T) {
	trending := groupByFrequency([]string{"a", "b", "b", "c", "b", "a"})
	require.Len(t, trending, 3)
	assert.Equal(t, "b", trending[0].Question)
	assert.Equal(t, 3, trending[0].Count)
	assert.Equal(t, "a", trending[1].Question)
	assert.Equal(t, 2, trending[1].Count)
}

func TestTopDelegatesToStore(t *testing.T) {
	store := newFakeTrendingStore()
	store.saved["user"] = []models.TrendingQuestion{
		{Question: "q1", Count: 5},
		{Question: "q2", Count: 2},
	}
	svc := NewTrendingService(store, &fakeCompleter{}, "test-model")

	top, err := svc.Top(1, "user")
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "q1", top[0].Question)
}
