package onebot

// Call is one member of the closed set of outbound OneBot api commands.
// Each variant is a params struct; Action() names the remote operation.
// Everything is routed through a single generic entry point on the bot
// handle, so the variants carry no logic of their own.
type Call interface {
	Action() string
}

// Payload is the wire form of an outbound call. Echo carries the
// correlation token for response-expecting calls and is empty for
// fire-and-forget calls.
type Payload struct {
	Action string `json:"action"`
	Params Call   `json:"params"`
	Echo   string `json:"echo,omitempty"`
}

// NewPayload wraps a call for transmission.
func NewPayload(c Call, echo string) Payload {
	return Payload{Action: c.Action(), Params: c, Echo: echo}
}

// --- response-expecting calls ---

// SendMsg sends a message to a user or group.
type SendMsg struct {
	MessageType string    `json:"message_type,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	GroupID     string    `json:"group_id,omitempty"`
	Message     []Segment `json:"message"`
	AutoEscape  bool      `json:"auto_escape,omitempty"`
}

func (SendMsg) Action() string { return "send_msg" }

// GetMsg fetches a message by id.
type GetMsg struct {
	MessageID int64 `json:"message_id"`
}

func (GetMsg) Action() string { return "get_msg" }

// GetLoginInfo fetches the bot's own account info.
type GetLoginInfo struct{}

func (GetLoginInfo) Action() string { return "get_login_info" }

// GetStrangerInfo fetches profile info for an arbitrary account.
type GetStrangerInfo struct {
	UserID  string `json:"user_id"`
	NoCache bool   `json:"no_cache,omitempty"`
}

func (GetStrangerInfo) Action() string { return "get_stranger_info" }

// GetFriendList fetches the friend roster.
type GetFriendList struct{}

func (GetFriendList) Action() string { return "get_friend_list" }

// GetGroupInfo fetches info for one group.
type GetGroupInfo struct {
	GroupID string `json:"group_id"`
	NoCache bool   `json:"no_cache,omitempty"`
}

func (GetGroupInfo) Action() string { return "get_group_info" }

// GetGroupList fetches the joined-group roster.
type GetGroupList struct{}

func (GetGroupList) Action() string { return "get_group_list" }

// GetGroupMemberInfo fetches one group member's info.
type GetGroupMemberInfo struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
	NoCache bool   `json:"no_cache,omitempty"`
}

func (GetGroupMemberInfo) Action() string { return "get_group_member_info" }

// GetGroupMemberList fetches all members of a group.
type GetGroupMemberList struct {
	GroupID string `json:"group_id"`
}

func (GetGroupMemberList) Action() string { return "get_group_member_list" }

// GetImage resolves a received image file to a local path.
type GetImage struct {
	File string `json:"file"`
}

func (GetImage) Action() string { return "get_image" }

// GetStatus fetches the gateway's running status.
type GetStatus struct{}

func (GetStatus) Action() string { return "get_status" }

// GetVersionInfo fetches the gateway's version info.
type GetVersionInfo struct{}

func (GetVersionInfo) Action() string { return "get_version_info" }

// --- fire-and-forget calls ---

// DeleteMsg recalls a sent message.
type DeleteMsg struct {
	MessageID int64 `json:"message_id"`
}

func (DeleteMsg) Action() string { return "delete_msg" }

// SendLike sends profile likes to a user.
type SendLike struct {
	UserID string `json:"user_id"`
	Times  int    `json:"times"`
}

func (SendLike) Action() string { return "send_like" }

// SetGroupKick removes a member from a group.
type SetGroupKick struct {
	GroupID          string `json:"group_id"`
	UserID           string `json:"user_id"`
	RejectAddRequest bool   `json:"reject_add_request,omitempty"`
}

func (SetGroupKick) Action() string { return "set_group_kick" }

// SetGroupBan mutes a member for a duration in seconds.
type SetGroupBan struct {
	GroupID  string `json:"group_id"`
	UserID   string `json:"user_id"`
	Duration int64  `json:"duration"`
}

func (SetGroupBan) Action() string { return "set_group_ban" }

// SetGroupWholeBan mutes or unmutes the whole group.
type SetGroupWholeBan struct {
	GroupID string `json:"group_id"`
	Enable  bool   `json:"enable"`
}

func (SetGroupWholeBan) Action() string { return "set_group_whole_ban" }

// SetGroupCard sets a member's group display name.
type SetGroupCard struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
	Card    string `json:"card"`
}

func (SetGroupCard) Action() string { return "set_group_card" }

// SetGroupName renames a group.
type SetGroupName struct {
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
}

func (SetGroupName) Action() string { return "set_group_name" }

// SetGroupLeave exits a group.
type SetGroupLeave struct {
	GroupID   string `json:"group_id"`
	IsDismiss bool   `json:"is_dismiss,omitempty"`
}

func (SetGroupLeave) Action() string { return "set_group_leave" }

// SetFriendAddRequest answers a friend request.
type SetFriendAddRequest struct {
	Flag    string `json:"flag"`
	Approve bool   `json:"approve"`
	Remark  string `json:"remark,omitempty"`
}

func (SetFriendAddRequest) Action() string { return "set_friend_add_request" }

// SetGroupAddRequest answers a group join/invite request.
type SetGroupAddRequest struct {
	Flag    string `json:"flag"`
	SubType string `json:"sub_type"`
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

func (SetGroupAddRequest) Action() string { return "set_group_add_request" }
