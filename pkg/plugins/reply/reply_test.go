package reply

import (
	"testing"
	"time"

	"github.com/grvsrs/onebus/pkg/config"
	"github.com/grvsrs/onebus/pkg/onebot"
)

func groupMsg(group, raw string) *onebot.MessageEvent {
	return &onebot.MessageEvent{
		Self:        "123",
		MessageType: onebot.MessageGroup,
		GroupID:     onebot.ID(group),
		UserID:      "456",
		RawMessage:  raw,
	}
}

// TestShouldReply verifies the trigger rules: private always, group on
// nickname, and the follow-up window after a trigger.
func TestShouldReply(t *testing.T) {
	r := New(config.ReplyConfig{APIKey: "test"})
	cfg := config.BotConfig{BotID: "123", Nicknames: []string{"robo"}}

	t.Run("private always", func(t *testing.T) {
		m := &onebot.MessageEvent{Self: "123", MessageType: onebot.MessagePrivate, UserID: "456", RawMessage: "hi"}
		if !r.shouldReply(m, cfg) {
			t.Error("private message not answered")
		}
	})

	t.Run("group needs nickname", func(t *testing.T) {
		if r.shouldReply(groupMsg("g1", "hello all"), cfg) {
			t.Error("unaddressed group message answered")
		}
		if !r.shouldReply(groupMsg("g1", "robo what time is it"), cfg) {
			t.Error("nickname mention not answered")
		}
	})

	t.Run("follow-up window", func(t *testing.T) {
		// The nickname trigger above opened g1; a bare follow-up passes.
		if !r.shouldReply(groupMsg("g1", "and tomorrow?"), cfg) {
			t.Error("follow-up inside the window not answered")
		}
		// Other groups are unaffected.
		if r.shouldReply(groupMsg("g2", "and tomorrow?"), cfg) {
			t.Error("follow-up leaked into another group")
		}
	})

	t.Run("window expires", func(t *testing.T) {
		r.groupSeen["g1"] = time.Now().Add(-followUpWindow - time.Second)
		if r.shouldReply(groupMsg("g1", "still there?"), cfg) {
			t.Error("expired window still answering")
		}
	})
}
