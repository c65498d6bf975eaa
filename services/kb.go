package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"hotline/models"
)

// ChunkSize is the fixed slice length, in runes, used when cutting documents
// into scoring chunks. No overlap between consecutive chunks. Counting runes
// keeps accented text from shifting cut points and never splits mid-rune.
const ChunkSize = 2000

// KnowledgeBaseCache loads a directory of text documents once per path and
// serves the cached chunked form afterwards. There is no invalidation: a
// changed knowledge base requires a restart.
type KnowledgeBaseCache struct {
	mu    sync.Mutex
	cache map[string]*models.KnowledgeBase
	loads int // number of filesystem loads, for tests and status
}

// NewKnowledgeBaseCache creates an empty cache.
func NewKnowledgeBaseCache() *KnowledgeBaseCache {
	return &KnowledgeBaseCache{
		cache: make(map[string]*models.KnowledgeBase),
	}
}

// Load returns the knowledge base for the given directory path, reading the
// filesystem only on the first call for that path.
func (c *KnowledgeBaseCache) Load(path string) (*models.KnowledgeBase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if kb, ok := c.cache[path]; ok {
		return kb, nil
	}

	kb, err := c.loadFromDisk(path)
	if err != nil {
		return nil, err
	}

	c.cache[path] = kb
	c.loads++
	return kb, nil
}

// LoadCount reports how many times the filesystem has been read.
func (c *KnowledgeBaseCache) LoadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

func (c *KnowledgeBaseCache) loadFromDisk(path string) (*models.KnowledgeBase, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base directory %s: %w", path, err)
	}

	kb := &models.KnowledgeBase{
		Path:      path,
		FileTexts: make(map[string]string),
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}

		fullPath := filepath.Join(path, entry.Name())
		data, err := os.ReadFile(fullPath)
		if err != nil {
			// One unreadable file must not fail the whole load
			log.Printf("Could not read %s: %v", fullPath, err)
			continue
		}

		text := string(data)
		kb.FileTexts[entry.Name()] = text

		runes := []rune(text)
		for i, idx := 0, 0; i < len(runes); i, idx = i+ChunkSize, idx+1 {
			end := i + ChunkSize
			if end > len(runes) {
				end = len(runes)
			}
			kb.Chunks = append(kb.Chunks, models.Chunk{
				DocumentName: entry.Name(),
				Text:         string(runes[i:end]),
				Index:        idx,
			})
		}
	}

	log.Printf("Loaded %d files and %d chunks from %s", len(kb.FileTexts), len(kb.Chunks), path)
	return kb, nil
}
