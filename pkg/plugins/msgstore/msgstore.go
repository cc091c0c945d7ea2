package msgstore

import (
	"github.com/google/uuid"

	"github.com/grvsrs/onebus/pkg/bot"
	"github.com/grvsrs/onebus/pkg/logger"
	"github.com/grvsrs/onebus/pkg/onebot"
	"github.com/grvsrs/onebus/pkg/onebus"
)

var pluginID = uuid.MustParse("318f9313-4c2b-47a1-9ee3-b5c63f059a24")

// DefaultPath is used when the config names no archive file.
const DefaultPath = "messages.db"

// Saver is the archiving plugin.
type Saver struct {
	path  string
	store *Store
}

// NewSaver creates a saver writing to path (empty means DefaultPath).
func NewSaver(path string) *Saver {
	if path == "" {
		path = DefaultPath
	}
	return &Saver{path: path}
}

// Init opens the archive.
func (s *Saver) Init() error {
	store, err := Open(s.path)
	if err != nil {
		return err
	}
	s.store = store
	return nil
}

// Info implements onebus.Plugin.
func (s *Saver) Info() onebus.PluginInfo {
	return onebus.PluginInfo{
		Name:    "msgstore",
		Author:  "onebus",
		Version: "v0.1.0",
		Desc:    "sqlite message archive",
		ID:      pluginID,
	}
}

// Load implements onebus.Plugin.
func (s *Saver) Load(events <-chan onebot.Event, _ *bot.Registry) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if s.store != nil {
			defer s.store.Close()
		}
		for ev := range events {
			m, ok := ev.(*onebot.MessageEvent)
			if !ok || s.store == nil {
				continue
			}
			if err := s.store.SaveMessage(m); err != nil {
				logger.ErrorCF("msgstore", "archive failed", map[string]interface{}{
					"message_id": m.MessageID.String(), "error": err.Error(),
				})
			}
		}
	}()
	return done
}
