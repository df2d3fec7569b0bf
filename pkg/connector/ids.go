// Copyright 2026 Tedrolin

package connector

import (
	"strings"

	"github.com/rs/xid"
	"maunium.net/go/mautrix/bridgev2/networkid"
)

// MakePortalID creates a networkid.PortalID from a WeChat chat id
// (friend wxid for direct chats, room wxid for groups).
func MakePortalID(chatID string) networkid.PortalID {
	return networkid.PortalID(chatID)
}

// ParsePortalID extracts the WeChat chat id from a PortalID.
func ParsePortalID(portalID networkid.PortalID) string {
	return string(portalID)
}

// MakeUserID creates a networkid.UserID from a wxid.
func MakeUserID(wxid string) networkid.UserID {
	return networkid.UserID(wxid)
}

// ParseUserID extracts the wxid from a networkid.UserID.
func ParseUserID(userID networkid.UserID) string {
	return string(userID)
}

// MakeUserLoginID creates a UserLoginID from the account's own wxid.
func MakeUserLoginID(wxid string) networkid.UserLoginID {
	return networkid.UserLoginID(wxid)
}

// MakeMessageID mints a fresh message id. The hook protocol does not
// carry platform message ids, so the bridge assigns its own.
func MakeMessageID() networkid.MessageID {
	return networkid.MessageID(xid.New().String())
}

// IsRoomWxid reports whether a wxid identifies a chat room rather than
// a friend.
func IsRoomWxid(wxid string) bool {
	return strings.Contains(wxid, "@chatroom")
}

// makePortalKey creates a networkid.PortalKey from a WeChat chat id.
func makePortalKey(chatID string) networkid.PortalKey {
	return networkid.PortalKey{
		ID: MakePortalID(chatID),
	}
}
