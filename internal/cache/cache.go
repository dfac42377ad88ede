// Package cache stores rendered layout artifacts on disk so identical
// schemas and display options skip the layout pass across runs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const indexVersion = "2"

// Cache is a size-bounded artifact store with an on-disk JSON index
type Cache struct {
	mu       sync.RWMutex
	dir      string
	index    *Index
	maxSize  int64
	maxAge   time.Duration
	strategy EvictionStrategy
	stats    Stats
	logger   *slog.Logger
}

// Index tracks all cached entries
type Index struct {
	Version string            `json:"version"`
	Entries map[string]*Entry `json:"entries"`
	Updated time.Time         `json:"updated"`
}

// Entry is a single cached artifact
type Entry struct {
	Key         string    `json:"key"`
	Hash        string    `json:"hash"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	Created     time.Time `json:"created"`
	LastAccess  time.Time `json:"last_access"`
	AccessCount int       `json:"access_count"`
}

// Stats tracks cache effectiveness
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	TotalSize  int64 `json:"total_size"`
	EntryCount int   `json:"entry_count"`
}

// EvictionStrategy defines how entries are chosen for removal
type EvictionStrategy int

const (
	// LRU removes least recently used entries
	LRU EvictionStrategy = iota
	// FIFO removes oldest entries first
	FIFO
)

// Config holds cache configuration
type Config struct {
	Dir      string           // default: $XDG_CACHE_HOME/voyager
	MaxSize  int64            // bytes; <= 0 means unbounded
	MaxAge   time.Duration    // <= 0 means entries never expire
	Strategy EvictionStrategy // default: LRU
	Logger   *slog.Logger
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return Config{
		Dir:      filepath.Join(dir, "voyager"),
		MaxSize:  64 << 20,
		MaxAge:   7 * 24 * time.Hour,
		Strategy: LRU,
	}
}

// New opens or creates a cache in config.Dir
func New(config Config) (*Cache, error) {
	if config.Dir == "" {
		def := DefaultConfig()
		config.Dir = def.Dir
	}
	if err := os.MkdirAll(filepath.Join(config.Dir, "artifacts"), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Cache{
		dir:      config.Dir,
		maxSize:  config.MaxSize,
		maxAge:   config.MaxAge,
		strategy: config.Strategy,
		logger:   logger.With("component", "cache"),
		index:    newIndex(),
	}
	if err := c.loadIndex(); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.Warn("starting with an empty index", "err", err)
		c.index = newIndex()
	}
	return c, nil
}

func newIndex() *Index {
	return &Index{
		Version: indexVersion,
		Entries: make(map[string]*Entry),
		Updated: time.Now(),
	}
}

// Get returns the artifact stored under key
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index.Entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if c.isExpired(entry) {
		c.removeLocked(key, entry)
		c.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.Path)
	if err != nil {
		c.logger.Debug("dropping entry with unreadable artifact", "key", key, "err", err)
		c.removeLocked(key, entry)
		c.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	entry.AccessCount++
	c.stats.Hits++
	return data, true
}

// Put stores data under key, evicting entries when over MaxSize
func (c *Cache) Put(key string, data []byte) error {
	hash := hashBytes(data)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.index.Entries[key]; ok {
		if existing.Hash == hash {
			return nil
		}
		c.removeLocked(key, existing)
	}

	size := int64(len(data))
	c.evictLocked(size)

	path := filepath.Join(c.dir, "artifacts", fmt.Sprintf("%s_%s", sanitizeKey(key), hash[:8]))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	now := time.Now()
	c.index.Entries[key] = &Entry{
		Key:        key,
		Hash:       hash,
		Path:       path,
		Size:       size,
		Created:    now,
		LastAccess: now,
	}
	c.stats.TotalSize += size
	c.stats.EntryCount = len(c.index.Entries)
	c.index.Updated = now

	return c.saveIndexLocked()
}

// Delete removes an entry
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index.Entries[key]
	if !ok {
		return nil
	}
	c.removeLocked(key, entry)
	return c.saveIndexLocked()
}

// Clear removes every entry
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	artifacts := filepath.Join(c.dir, "artifacts")
	if err := os.RemoveAll(artifacts); err != nil {
		return fmt.Errorf("clear artifacts: %w", err)
	}
	if err := os.MkdirAll(artifacts, 0o755); err != nil {
		return fmt.Errorf("recreate artifacts directory: %w", err)
	}

	c.index = newIndex()
	c.stats = Stats{}
	return c.saveIndexLocked()
}

// GetStats returns a snapshot of the cache statistics
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Close persists the index
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveIndexLocked()
}

// Key derives a cache key from inputs
func Key(inputs ...string) string {
	h := sha256.New()
	for _, input := range inputs {
		h.Write([]byte(input))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// KeyFromFiles derives a key from file contents
func KeyFromFiles(files ...string) (string, error) {
	h := sha256.New()
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.dir, "index.json"))
	if err != nil {
		return err
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return err
	}
	if index.Version != indexVersion || index.Entries == nil {
		return fmt.Errorf("index version %q not supported", index.Version)
	}

	c.index = &index
	for _, entry := range index.Entries {
		c.stats.TotalSize += entry.Size
	}
	c.stats.EntryCount = len(index.Entries)
	return nil
}

// saveIndexLocked writes the index. Caller must hold c.mu.
func (c *Cache) saveIndexLocked() error {
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, "index.json"), data, 0o644)
}

func (c *Cache) isExpired(entry *Entry) bool {
	if c.maxAge <= 0 {
		return false
	}
	return time.Since(entry.Created) > c.maxAge
}

// evictLocked frees room for needed bytes. Caller must hold c.mu.
func (c *Cache) evictLocked(needed int64) {
	if c.maxSize <= 0 {
		return
	}

	for c.stats.TotalSize+needed > c.maxSize && len(c.index.Entries) > 0 {
		var victimKey string
		var victim *Entry
		for key, entry := range c.index.Entries {
			if victim == nil || c.older(entry, victim) {
				victimKey, victim = key, entry
			}
		}
		c.removeLocked(victimKey, victim)
		c.stats.Evictions++
	}
}

func (c *Cache) older(a, b *Entry) bool {
	if c.strategy == FIFO {
		return a.Created.Before(b.Created)
	}
	return a.LastAccess.Before(b.LastAccess)
}

func (c *Cache) removeLocked(key string, entry *Entry) {
	if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("failed to remove artifact", "path", entry.Path, "err", err)
	}
	delete(c.index.Entries, key)
	c.stats.TotalSize -= entry.Size
	c.stats.EntryCount = len(c.index.Entries)
	c.index.Updated = time.Now()
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func sanitizeKey(key string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	sanitized := replacer.Replace(key)
	if len(sanitized) > 64 {
		sanitized = sanitized[:64]
	}
	return sanitized
}
