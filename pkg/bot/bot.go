// Package bot defines the live handle for one connected gateway identity,
// the copy-on-write registry those handles are published through, and the
// control-plane actions that mutate the registry.
package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/grvsrs/onebus/pkg/config"
	"github.com/grvsrs/onebus/pkg/onebot"
)

// CallTimeout bounds how long a response-expecting call waits before it is
// resolved with an explicit no-response error.
const CallTimeout = 30 * time.Second

// ErrCallTimeout reports that no correlated response arrived in time.
var ErrCallTimeout = errors.New("bot: api call timed out waiting for response")

// ErrQueueFull reports that the connection's outbound queue rejected a call.
var ErrQueueFull = errors.New("bot: outbound call queue is full")

// Bot is the addressable representation of one connected identity. It is
// created by the connection that performed the handshake and published via
// the registry; handler bodies use it to issue calls back over the same
// socket.
type Bot struct {
	ID          string
	ConnectTime int64

	mu  sync.RWMutex
	cfg config.BotConfig

	api         chan<- onebot.Payload
	pending     *Pending
	callTimeout time.Duration
}

// New binds a handle to a connection's outbound queue and correlation
// table.
func New(id string, cfg config.BotConfig, api chan<- onebot.Payload, pending *Pending) *Bot {
	return &Bot{
		ID:          id,
		ConnectTime: time.Now().Unix(),
		cfg:         cfg,
		api:         api,
		pending:     pending,
		callTimeout: CallTimeout,
	}
}

// Config returns the bot's current effective config.
func (b *Bot) Config() config.BotConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg
}

// SetConfig swaps the runtime config in place. Identity continuity is
// preserved; only behavior parameters change.
func (b *Bot) SetConfig(cfg config.BotConfig) {
	b.mu.Lock()
	b.cfg = cfg
	b.mu.Unlock()
}

// Pending exposes the correlation table to the owning connection.
func (b *Bot) Pending() *Pending { return b.pending }

func (b *Bot) submit(p onebot.Payload) error {
	select {
	case b.api <- p:
		return nil
	default:
		return ErrQueueFull
	}
}

// Call queues a fire-and-forget command. It confirms submission to the
// outbound queue only; no response is awaited.
func (b *Bot) Call(c onebot.Call) error {
	return b.submit(onebot.NewPayload(c, ""))
}

// CallResp queues a command tagged with a fresh correlation token and
// blocks until the matching response arrives, the timeout elapses, or ctx
// is cancelled. Concurrent callers never observe each other's responses.
func (b *Bot) CallResp(ctx context.Context, c onebot.Call) (*onebot.Resp, error) {
	token := uuid.NewString()
	ch := b.pending.Register(token)

	if err := b.submit(onebot.NewPayload(c, token)); err != nil {
		b.pending.Cancel(token)
		return nil, err
	}

	timer := time.NewTimer(b.callTimeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		return &resp, nil
	case <-timer.C:
		b.pending.Cancel(token)
		return nil, ErrCallTimeout
	case <-ctx.Done():
		b.pending.Cancel(token)
		return nil, ctx.Err()
	}
}

// --- convenience wrappers: thin call sites over Call/CallResp ---

// SendPrivateMsg sends a private message and returns the new message id.
func (b *Bot) SendPrivateMsg(ctx context.Context, userID string, msg []onebot.Segment) (*onebot.Resp, error) {
	return b.CallResp(ctx, onebot.SendMsg{MessageType: onebot.MessagePrivate, UserID: userID, Message: msg})
}

// SendGroupMsg sends a group message and returns the new message id.
func (b *Bot) SendGroupMsg(ctx context.Context, groupID string, msg []onebot.Segment) (*onebot.Resp, error) {
	return b.CallResp(ctx, onebot.SendMsg{MessageType: onebot.MessageGroup, GroupID: groupID, Message: msg})
}

// SendByMessageEvent routes a reply back to wherever the event came from.
func (b *Bot) SendByMessageEvent(ctx context.Context, ev *onebot.MessageEvent, msg []onebot.Segment) (*onebot.Resp, error) {
	if ev.IsGroup() {
		return b.SendGroupMsg(ctx, ev.GroupID.String(), msg)
	}
	return b.SendPrivateMsg(ctx, ev.UserID.String(), msg)
}

// GetLoginInfo fetches the bot's own account info.
func (b *Bot) GetLoginInfo(ctx context.Context) (onebot.LoginInfo, error) {
	resp, err := b.CallResp(ctx, onebot.GetLoginInfo{})
	if err != nil {
		return onebot.LoginInfo{}, err
	}
	return resp.AsLoginInfo()
}

// GetFriendList fetches the friend roster.
func (b *Bot) GetFriendList(ctx context.Context) ([]onebot.FriendItem, error) {
	resp, err := b.CallResp(ctx, onebot.GetFriendList{})
	if err != nil {
		return nil, err
	}
	return resp.AsFriendList()
}

// GetGroupList fetches the joined-group roster.
func (b *Bot) GetGroupList(ctx context.Context) ([]onebot.GroupItem, error) {
	resp, err := b.CallResp(ctx, onebot.GetGroupList{})
	if err != nil {
		return nil, err
	}
	return resp.AsGroupList()
}

// GetImage resolves a received image file.
func (b *Bot) GetImage(ctx context.Context, file string) (onebot.FileData, error) {
	resp, err := b.CallResp(ctx, onebot.GetImage{File: file})
	if err != nil {
		return onebot.FileData{}, err
	}
	return resp.AsFile()
}

// DeleteMsg recalls a message. Fire-and-forget.
func (b *Bot) DeleteMsg(messageID int64) error {
	return b.Call(onebot.DeleteMsg{MessageID: messageID})
}

// SetGroupKick removes a group member. Fire-and-forget.
func (b *Bot) SetGroupKick(groupID, userID string, rejectAddRequest bool) error {
	return b.Call(onebot.SetGroupKick{GroupID: groupID, UserID: userID, RejectAddRequest: rejectAddRequest})
}

// SetGroupBan mutes a group member. Fire-and-forget.
func (b *Bot) SetGroupBan(groupID, userID string, duration int64) error {
	return b.Call(onebot.SetGroupBan{GroupID: groupID, UserID: userID, Duration: duration})
}

// SetGroupName renames a group. Fire-and-forget.
func (b *Bot) SetGroupName(groupID, name string) error {
	return b.Call(onebot.SetGroupName{GroupID: groupID, GroupName: name})
}

// SetFriendAddRequest answers a friend request. Fire-and-forget.
func (b *Bot) SetFriendAddRequest(flag string, approve bool, remark string) error {
	return b.Call(onebot.SetFriendAddRequest{Flag: flag, Approve: approve, Remark: remark})
}

// SetGroupAddRequest answers a group join request. Fire-and-forget.
func (b *Bot) SetGroupAddRequest(flag, subType string, approve bool, reason string) error {
	return b.Call(onebot.SetGroupAddRequest{Flag: flag, SubType: subType, Approve: approve, Reason: reason})
}
