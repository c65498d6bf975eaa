package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKnowledgeBase(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoadChunksReconstructDocument(t *testing.T) {
	text := strings.Repeat("a", ChunkSize) + strings.Repeat("b", ChunkSize) + "tail"
	dir := writeKnowledgeBase(t, map[string]string{"guide.txt": text})

	cache := NewKnowledgeBaseCache()
	kb, err := cache.Load(dir)
	require.NoError(t, err)

	require.Len(t, kb.Chunks, 3)
	var rebuilt strings.Builder
	for i, chunk := range kb.Chunks {
		assert.Equal(t, "guide.txt", chunk.DocumentName)
		assert.Equal(t, i, chunk.Index)
		rebuilt.WriteString(chunk.Text)
	}
	assert.Equal(t, text, rebuilt.String())
	assert.Equal(t, text, kb.FileTexts["guide.txt"])
}

func TestLoadChunkLengths(t *testing.T) {
	dir := writeKnowledgeBase(t, map[string]string{
		"doc.txt": strings.Repeat("x", ChunkSize+5),
	})

	cache := NewKnowledgeBaseCache()
	kb, err := cache.Load(dir)
	require.NoError(t, err)

	require.Len(t, kb.Chunks, 2)
	assert.Len(t, kb.Chunks[0].Text, ChunkSize)
	assert.Len(t, kb.Chunks[1].Text, 5)
}

func TestLoadChunksCountRunesNotBytes(t *testing.T) {
	// Two-byte runes: byte-based slicing would cut mid-rune and halve the
	// chunk capacity
	text := strings.Repeat("é", ChunkSize+5)
	dir := writeKnowledgeBase(t, map[string]string{"accents.txt": text})

	cache := NewKnowledgeBaseCache()
	kb, err := cache.Load(dir)
	require.NoError(t, err)

	require.Len(t, kb.Chunks, 2)
	assert.Equal(t, ChunkSize, utf8.RuneCountInString(kb.Chunks[0].Text))
	assert.Equal(t, 5, utf8.RuneCountInString(kb.Chunks[1].Text))
	for _, chunk := range kb.Chunks {
		assert.True(t, utf8.ValidString(chunk.Text))
	}
	assert.Equal(t, text, kb.Chunks[0].Text+kb.Chunks[1].Text)
}

func TestLoadIgnoresNonTextFiles(t *testing.T) {
	dir := writeKnowledgeBase(t, map[string]string{
		"doc.txt":    "content",
		"image.png":  "binary",
		"notes.md":   "markdown",
		"backup.txt": "more content",
	})

	cache := NewKnowledgeBaseCache()
	kb, err := cache.Load(dir)
	require.NoError(t, err)

	assert.Len(t, kb.FileTexts, 2)
	assert.Contains(t, kb.FileTexts, "doc.txt")
	assert.Contains(t, kb.FileTexts, "backup.txt")
}

func TestLoadReadsDiskOnlyOnce(t *testing.T) {
	dir := writeKnowledgeBase(t, map[string]string{"doc.txt": "content"})

	cache := NewKnowledgeBaseCache()
	first, err := cache.Load(dir)
	require.NoError(t, err)
	second, err := cache.Load(dir)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, cache.LoadCount())
}

func TestLoadMissingDirectoryFails(t *testing.T) {
	cache := NewKnowledgeBaseCache()
	_, err := cache.Load(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.Equal(t, 0, cache.LoadCount())
}
