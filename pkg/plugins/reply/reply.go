// Package reply answers chat messages with a chat-completion backend.
// Every private message is answered; group messages are answered when they
// address the bot by nickname, with a short follow-up window per group so
// a conversation keeps flowing without repeating the nickname.
package reply

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/grvsrs/onebus/pkg/bot"
	"github.com/grvsrs/onebus/pkg/config"
	"github.com/grvsrs/onebus/pkg/logger"
	"github.com/grvsrs/onebus/pkg/onebot"
	"github.com/grvsrs/onebus/pkg/onebus"
)

var pluginID = uuid.MustParse("467c481f-56ab-4d12-8111-0eab92990f46")

// followUpWindow keeps a group conversation open after the last trigger.
const followUpWindow = 30 * time.Second

const defaultModel = "gpt-4o-mini"

// Replier is the chat-completion plugin.
type Replier struct {
	cfg    config.ReplyConfig
	client openai.Client

	// last trigger time per group id
	groupSeen map[string]time.Time
}

// New creates a replier from its config block.
func New(cfg config.ReplyConfig) *Replier {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Replier{
		cfg:       cfg,
		client:    openai.NewClient(opts...),
		groupSeen: map[string]time.Time{},
	}
}

// Init implements onebus.Plugin.
func (r *Replier) Init() error { return nil }

// Info implements onebus.Plugin.
func (r *Replier) Info() onebus.PluginInfo {
	return onebus.PluginInfo{
		Name:    "reply",
		Author:  "onebus",
		Version: "v0.1.0",
		Desc:    "chat-completion replies",
		ID:      pluginID,
	}
}

// Load implements onebus.Plugin.
func (r *Replier) Load(events <-chan onebot.Event, bots *bot.Registry) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			m, ok := ev.(*onebot.MessageEvent)
			if !ok {
				continue
			}
			b, ok := bots.Lookup(m.SelfID())
			if !ok {
				continue
			}
			if r.shouldReply(m, b.Config()) {
				go r.respond(m, b)
			}
		}
	}()
	return done
}

func (r *Replier) shouldReply(m *onebot.MessageEvent, cfg config.BotConfig) bool {
	if m.IsPrivate() {
		return true
	}
	group := m.GroupID.String()
	if last, ok := r.groupSeen[group]; ok && time.Since(last) < followUpWindow {
		r.groupSeen[group] = time.Now()
		return true
	}
	for _, nick := range cfg.Nicknames {
		if nick != "" && strings.Contains(m.RawMessage, nick) {
			r.groupSeen[group] = time.Now()
			return true
		}
	}
	return false
}

func (r *Replier) respond(m *onebot.MessageEvent, b *bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	completion, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(r.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a friendly chat companion. Answer briefly, in the language of the message."),
			openai.UserMessage(m.PlainText()),
		},
	})
	if err != nil {
		logger.ErrorCF("reply", "completion failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(completion.Choices) == 0 {
		return
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return
	}
	if _, err := b.SendByMessageEvent(ctx, m, []onebot.Segment{onebot.Text(text)}); err != nil {
		logger.WarnCF("reply", "send failed", map[string]interface{}{"error": err.Error()})
	}
}
