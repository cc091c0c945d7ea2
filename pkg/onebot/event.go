// Package onebot defines the OneBot 11 wire catalog: inbound events,
// message segments, outbound api calls and their responses. Pure data,
// no connection or dispatch logic.
package onebot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Event categories, matching the wire-level post_type discriminator plus
// the internal lifecycle category.
const (
	CategoryMessage   = "message"
	CategoryNotice    = "notice"
	CategoryRequest   = "request"
	CategoryMeta      = "meta_event"
	CategoryLifecycle = "lifecycle"
)

// ErrUnclassified reports a frame that carries no recognizable post_type.
// Such frames are dropped by the connection layer, never propagated.
var ErrUnclassified = errors.New("onebot: unclassified event frame")

// ErrNoSelfID reports a decoded event without an originating bot identity.
var ErrNoSelfID = errors.New("onebot: event carries no self_id")

// Event is a normalized inbound occurrence. Every wire-decoded event
// resolves the identity of the bot that produced it.
type Event interface {
	SelfID() string
	Category() string
}

// ID normalizes gateway identifiers: OneBot implementations send both JSON
// numbers and strings for user/group/message ids.
type ID string

func (i *ID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*i = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*i = ID(v)
		return nil
	}
	var v json.Number
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("onebot: id is neither string nor number: %w", err)
	}
	*i = ID(v.String())
	return nil
}

func (i ID) String() string { return string(i) }

// Int returns the id as int64, or 0 when it is not numeric.
func (i ID) Int() int64 {
	n, err := strconv.ParseInt(string(i), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Sender describes the account a message came from.
type Sender struct {
	UserID   ID     `json:"user_id"`
	Nickname string `json:"nickname"`
	Card     string `json:"card,omitempty"`
	Sex      string `json:"sex,omitempty"`
	Age      int32  `json:"age,omitempty"`
	Role     string `json:"role,omitempty"`
	Title    string `json:"title,omitempty"`
}

// Message sub-types.
const (
	MessagePrivate = "private"
	MessageGroup   = "group"
)

// MessageEvent is a private or group chat message.
type MessageEvent struct {
	Time        int64     `json:"time"`
	Self        ID        `json:"self_id"`
	PostType    string    `json:"post_type"`
	MessageType string    `json:"message_type"`
	SubType     string    `json:"sub_type,omitempty"`
	MessageID   ID        `json:"message_id"`
	UserID      ID        `json:"user_id"`
	GroupID     ID        `json:"group_id,omitempty"`
	Message     []Segment `json:"message"`
	RawMessage  string    `json:"raw_message"`
	Sender      Sender    `json:"sender"`
}

func (e *MessageEvent) SelfID() string   { return string(e.Self) }
func (e *MessageEvent) Category() string { return CategoryMessage }

// IsPrivate reports whether the message came from a private chat.
func (e *MessageEvent) IsPrivate() bool { return e.MessageType == MessagePrivate }

// IsGroup reports whether the message came from a group chat.
func (e *MessageEvent) IsGroup() bool { return e.MessageType == MessageGroup }

// PlainText concatenates the text segments of the message.
func (e *MessageEvent) PlainText() string {
	var b strings.Builder
	for _, seg := range e.Message {
		if seg.Type == "text" {
			b.WriteString(seg.Data["text"])
		}
	}
	return strings.TrimSpace(b.String())
}

// NoticeEvent is a gateway-side notification (group member change, recall,
// poke and friends).
type NoticeEvent struct {
	Time       int64  `json:"time"`
	Self       ID     `json:"self_id"`
	PostType   string `json:"post_type"`
	NoticeType string `json:"notice_type"`
	SubType    string `json:"sub_type,omitempty"`
	UserID     ID     `json:"user_id,omitempty"`
	GroupID    ID     `json:"group_id,omitempty"`
	OperatorID ID     `json:"operator_id,omitempty"`
	MessageID  ID     `json:"message_id,omitempty"`
}

func (e *NoticeEvent) SelfID() string   { return string(e.Self) }
func (e *NoticeEvent) Category() string { return CategoryNotice }

// RequestEvent is a friend-add or group-join request awaiting approval.
type RequestEvent struct {
	Time        int64  `json:"time"`
	Self        ID     `json:"self_id"`
	PostType    string `json:"post_type"`
	RequestType string `json:"request_type"`
	SubType     string `json:"sub_type,omitempty"`
	UserID      ID     `json:"user_id"`
	GroupID     ID     `json:"group_id,omitempty"`
	Comment     string `json:"comment,omitempty"`
	Flag        string `json:"flag"`
}

func (e *RequestEvent) SelfID() string   { return string(e.Self) }
func (e *RequestEvent) Category() string { return CategoryRequest }

// MetaEvent is protocol housekeeping: heartbeat and gateway lifecycle.
type MetaEvent struct {
	Time          int64  `json:"time"`
	Self          ID     `json:"self_id"`
	PostType      string `json:"post_type"`
	MetaEventType string `json:"meta_event_type"`
	SubType       string `json:"sub_type,omitempty"`
	Interval      int64  `json:"interval,omitempty"`
}

func (e *MetaEvent) SelfID() string   { return string(e.Self) }
func (e *MetaEvent) Category() string { return CategoryMeta }

// IsHeartbeat reports whether this meta event is a heartbeat.
func (e *MetaEvent) IsHeartbeat() bool { return e.MetaEventType == "heartbeat" }

// DecodeEvent classifies a raw inbound frame by post_type and decodes it
// into the matching event type. Frames without a post_type yield
// ErrUnclassified; frames without a self_id yield ErrNoSelfID.
func DecodeEvent(frame []byte) (Event, error) {
	postType := gjson.GetBytes(frame, "post_type")
	if !postType.Exists() {
		return nil, ErrUnclassified
	}

	var ev Event
	switch postType.String() {
	case CategoryMessage:
		ev = &MessageEvent{}
	case CategoryNotice:
		ev = &NoticeEvent{}
	case CategoryRequest:
		ev = &RequestEvent{}
	case CategoryMeta:
		ev = &MetaEvent{}
	default:
		return nil, fmt.Errorf("%w: post_type %q", ErrUnclassified, postType.String())
	}

	if err := json.Unmarshal(frame, ev); err != nil {
		return nil, fmt.Errorf("onebot: decode %s event: %w", postType.String(), err)
	}
	if ev.SelfID() == "" {
		return nil, ErrNoSelfID
	}
	return ev, nil
}

// IsAPIResp reports whether a raw frame is a call response rather than an
// event. Responses carry status/retcode and never a post_type.
func IsAPIResp(frame []byte) bool {
	return !gjson.GetBytes(frame, "post_type").Exists() &&
		gjson.GetBytes(frame, "retcode").Exists()
}
