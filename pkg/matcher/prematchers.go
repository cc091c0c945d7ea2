package matcher

import (
	"strings"

	"github.com/grvsrs/onebus/pkg/config"
	"github.com/grvsrs/onebus/pkg/onebot"
)

// stripTextPrefix removes prefix from the first text segment of the event
// copy. The segment slice is replaced, never mutated in place: sibling
// matchers dispatching the same event share the original backing array.
func stripTextPrefix(e *onebot.MessageEvent, prefix string) {
	for i, seg := range e.Message {
		if seg.Type != "text" {
			continue
		}
		text := strings.TrimLeft(seg.Data["text"], " ")
		data := map[string]string{"text": strings.TrimLeft(strings.TrimPrefix(text, prefix), " ")}

		msg := make([]onebot.Segment, len(e.Message))
		copy(msg, e.Message)
		msg[i] = onebot.Segment{Type: "text", Data: data}
		e.Message = msg
		return
	}
}

// ToMe passes private messages through unchanged. Group messages pass only
// when the bot is addressed: an @-mention of the bot (the mention segment
// is removed) or a configured nickname prefix (the prefix is stripped).
func ToMe() PreMatcher[onebot.MessageEvent] {
	return func(e *onebot.MessageEvent, cfg config.BotConfig) bool {
		if e.IsPrivate() {
			return true
		}
		for i, seg := range e.Message {
			if seg.Type == "at" && seg.Data["qq"] == e.SelfID() {
				e.Message = append(append([]onebot.Segment{}, e.Message[:i]...), e.Message[i+1:]...)
				return true
			}
		}
		text := e.PlainText()
		for _, nick := range cfg.Nicknames {
			if nick != "" && strings.HasPrefix(text, nick) {
				stripTextPrefix(e, nick)
				return true
			}
		}
		return false
	}
}

// CommandStart requires one of the configured command prefixes and strips
// it before the rule stage. An empty configured prefix matches everything.
func CommandStart() PreMatcher[onebot.MessageEvent] {
	return func(e *onebot.MessageEvent, cfg config.BotConfig) bool {
		text := e.PlainText()
		for _, start := range cfg.CommandStarts {
			if strings.HasPrefix(text, start) {
				if start != "" {
					stripTextPrefix(e, start)
				}
				return true
			}
		}
		return false
	}
}

// OnCommand requires the first word of the (already prefix-stripped) text
// to equal one of the given commands, and strips it so the handler sees
// only the arguments.
func OnCommand(commands ...string) PreMatcher[onebot.MessageEvent] {
	return func(e *onebot.MessageEvent, cfg config.BotConfig) bool {
		text := e.PlainText()
		word, _, _ := strings.Cut(text, " ")
		for _, cmd := range commands {
			if word == cmd {
				stripTextPrefix(e, cmd)
				return true
			}
		}
		return false
	}
}
