// Copyright 2026 Tedrolin

package wechatpc

// Opcodes of the WeChat PC hook protocol. Client-to-server requests use
// the 1xxx range, server-to-client pushes use the 2xxx range.
const (
	OpcodeOpenSession   = 1001
	OpcodeGetFriendList = 1002
	OpcodeSendText      = 1003
	OpcodeAtRoomMember  = 1004

	OpcodeFriendList     = 2001
	OpcodeLoginQRCode    = 2002
	OpcodeLoginStatus    = 2003
	OpcodeMessageReceive = 2005
)

// Contact is a single roster record. Chat rooms share the same record
// shape as friends; they are distinguished by an "@chatroom" suffix in
// the wxid. RoomWxidList carries the member ids of unnamed rooms as a
// "^G"-delimited string.
type Contact struct {
	Wxid         string `json:"wxid"`
	Username     string `json:"username,omitempty"`
	Nickname     string `json:"nickname,omitempty"`
	RoomWxidList string `json:"roomWxidList,omitempty"`
	HeadURL      string `json:"headUrl,omitempty"`
}

// ImageFile carries inline image bytes of an image message, encoded as a
// base64 data URI.
type ImageFile struct {
	Base64Content string `json:"base64Content,omitempty"`
}

// Message is a single inbound chat event. RoomID is empty for direct
// chats. IsOwner is a tri-state flag: the hook server omits it for
// events authored by the local account, so absence means owned.
type Message struct {
	Wxid      string     `json:"wxid"`
	RoomID    string     `json:"roomId,omitempty"`
	IsOwner   *int       `json:"isOwner,omitempty"`
	MsgType   int        `json:"msgType"`
	Content   string     `json:"content"`
	ImageFile *ImageFile `json:"imageFile,omitempty"`
}

// Owned reports whether the event was authored by the local account.
// Such events are echoes of our own sends and must be discarded.
func (m *Message) Owned() bool {
	return m.IsOwner == nil || *m.IsOwner == 1
}

// FriendListEvent is the payload of an OpcodeFriendList push.
type FriendListEvent struct {
	FriendList []Contact `json:"friendList"`
}

// QRCodeEvent is the payload of an OpcodeLoginQRCode push.
type QRCodeEvent struct {
	LoginQRCode string `json:"loginQrcode"`
}

// LoginStatusEvent is the payload of an OpcodeLoginStatus push.
// Status 1 means logged in, 0 means the account logged out.
type LoginStatusEvent struct {
	LoginStatus int    `json:"loginStatus"`
	Wxid        string `json:"wxid,omitempty"`
}
