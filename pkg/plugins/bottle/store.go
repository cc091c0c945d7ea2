package bottle

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Bottle is one drifting message waiting to be picked up.
type Bottle struct {
	ID      string    `json:"id"`
	Sender  string    `json:"sender"`
	SelfID  string    `json:"self_id"`
	Text    string    `json:"text"`
	ThrewAt time.Time `json:"threw_at"`
}

// Store keeps bottles as one JSON file each under a base directory, with an
// in-memory index. Writes go to disk immediately so a restart loses nothing.
type Store struct {
	baseDir string
	mu      sync.RWMutex
	items   map[string]*Bottle
}

func NewStore(baseDir string) *Store {
	os.MkdirAll(baseDir, 0755)
	return &Store{baseDir: baseDir, items: make(map[string]*Bottle)}
}

// Load reads every bottle file back into the index.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		var b Bottle
		if err := json.Unmarshal(data, &b); err != nil {
			continue
		}
		if b.ID == "" {
			b.ID = entry.Name()[:len(entry.Name())-5]
		}
		s.items[b.ID] = &b
	}
	return nil
}

// Throw persists a new bottle and returns it.
func (s *Store) Throw(sender, selfID, text string) (*Bottle, error) {
	b := &Bottle{
		ID:      uuid.NewString(),
		Sender:  sender,
		SelfID:  selfID,
		Text:    text,
		ThrewAt: time.Now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal bottle: %w", err)
	}
	path := filepath.Join(s.baseDir, b.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("write bottle: %w", err)
	}
	s.items[b.ID] = b
	return b, nil
}

// Pick removes and returns a random bottle, or nil when the sea is empty.
func (s *Store) Pick() *Bottle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return nil
	}
	n := rand.Intn(len(s.items))
	for id, b := range s.items {
		if n == 0 {
			delete(s.items, id)
			os.Remove(filepath.Join(s.baseDir, id+".json"))
			return b
		}
		n--
	}
	return nil
}

// Count reports how many bottles are adrift.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
