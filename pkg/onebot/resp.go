package onebot

import "encoding/json"

// Resp is a correlated api call response. Echo holds the token the call
// was tagged with; Data is decoded lazily by the typed accessors since its
// shape depends on the action.
type Resp struct {
	Status  string          `json:"status"`
	RetCode int64           `json:"retcode"`
	Data    json.RawMessage `json:"data"`
	Echo    string          `json:"echo"`
}

// OK reports whether the gateway accepted the call.
func (r *Resp) OK() bool { return r.Status == "ok" || r.Status == "async" }

// DecodeResp parses a raw response frame.
func DecodeResp(frame []byte) (*Resp, error) {
	var r Resp
	if err := json.Unmarshal(frame, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// MessageIDData is the payload of a send_msg response.
type MessageIDData struct {
	MessageID ID `json:"message_id"`
}

// LoginInfo is the payload of a get_login_info response.
type LoginInfo struct {
	UserID   ID     `json:"user_id"`
	Nickname string `json:"nickname"`
}

// FriendItem is one entry of a get_friend_list response.
type FriendItem struct {
	UserID   ID     `json:"user_id"`
	Nickname string `json:"nickname"`
	Remark   string `json:"remark,omitempty"`
}

// GroupItem is one entry of a get_group_list response.
type GroupItem struct {
	GroupID        ID     `json:"group_id"`
	GroupName      string `json:"group_name"`
	MemberCount    int32  `json:"member_count,omitempty"`
	MaxMemberCount int32  `json:"max_member_count,omitempty"`
}

// FileData is the payload of a get_image / get_record response.
type FileData struct {
	File string `json:"file"`
}

// AsMessageID decodes the response data as a sent-message id.
func (r *Resp) AsMessageID() (MessageIDData, error) {
	var d MessageIDData
	err := json.Unmarshal(r.Data, &d)
	return d, err
}

// AsLoginInfo decodes the response data as login info.
func (r *Resp) AsLoginInfo() (LoginInfo, error) {
	var d LoginInfo
	err := json.Unmarshal(r.Data, &d)
	return d, err
}

// AsFriendList decodes the response data as a friend roster.
func (r *Resp) AsFriendList() ([]FriendItem, error) {
	var d []FriendItem
	err := json.Unmarshal(r.Data, &d)
	return d, err
}

// AsGroupList decodes the response data as a group roster.
func (r *Resp) AsGroupList() ([]GroupItem, error) {
	var d []GroupItem
	err := json.Unmarshal(r.Data, &d)
	return d, err
}

// AsFile decodes the response data as a resolved file.
func (r *Resp) AsFile() (FileData, error) {
	var d FileData
	err := json.Unmarshal(r.Data, &d)
	return d, err
}
