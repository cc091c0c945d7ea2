// Package msgstore persists every message event to sqlite. The store is
// also read by the prefetch tool to download received media.
package msgstore

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/grvsrs/onebus/pkg/onebot"
)

//go:embed schema.sql
var schema string

// Store is the sqlite-backed message archive.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the archive at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("msgstore: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("msgstore: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// SaveMessage archives one message event, including a media row per
// image or record segment that carried a URL.
func (s *Store) SaveMessage(e *onebot.MessageEvent) error {
	segments, err := json.Marshal(e.Message)
	if err != nil {
		return fmt.Errorf("msgstore: encode segments: %w", err)
	}

	source := e.UserID.String()
	if e.IsGroup() {
		source = e.GroupID.String()
	}

	_, err = s.db.Exec(
		`INSERT INTO messages (message_id, time, type, source, target, sender_id, nickname, card, raw, segments)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.MessageID.String(), e.Time, e.MessageType, source, e.SelfID(),
		e.UserID.String(), e.Sender.Nickname, e.Sender.Card, e.RawMessage, string(segments),
	)
	if err != nil {
		return fmt.Errorf("msgstore: insert message: %w", err)
	}

	for _, seg := range e.Message {
		if seg.Type != "image" && seg.Type != "record" {
			continue
		}
		url := seg.Data["url"]
		if url == "" {
			continue
		}
		if _, err := s.db.Exec(
			`INSERT INTO media (message_id, type, url) VALUES (?, ?, ?)`,
			e.MessageID.String(), seg.Type, url,
		); err != nil {
			return fmt.Errorf("msgstore: insert media: %w", err)
		}
	}
	return nil
}

// Count reports how many messages are archived.
func (s *Store) Count() (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

// MediaURL is one downloadable attachment reference.
type MediaURL struct {
	MessageID string
	Type      string
	URL       string
}

// MediaURLs lists archived attachment URLs of one type, newest first.
func (s *Store) MediaURLs(mediaType string, limit int) ([]MediaURL, error) {
	rows, err := s.db.Query(
		`SELECT message_id, type, url FROM media WHERE type = ? ORDER BY id DESC LIMIT ?`,
		mediaType, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("msgstore: query media: %w", err)
	}
	defer rows.Close()

	var out []MediaURL
	for rows.Next() {
		var m MediaURL
		if err := rows.Scan(&m.MessageID, &m.Type, &m.URL); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
