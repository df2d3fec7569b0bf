// Copyright 2026 Tedrolin
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"

	"go.mau.fi/util/ptr"
	"maunium.net/go/mautrix/bridgev2"
	"maunium.net/go/mautrix/bridgev2/database"
	"maunium.net/go/mautrix/bridgev2/networkid"

	"github.com/tedrolin/mautrix-wechatpc/pkg/connector/msgconv"
)

// GetChatInfo resolves a portal's chat through the roster directory.
func (w *WeChatClient) GetChatInfo(ctx context.Context, portal *bridgev2.Portal) (*bridgev2.ChatInfo, error) {
	chatID := ParsePortalID(portal.ID)
	entry, err := w.directory.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		// Messages can arrive from chats the roster does not list yet,
		// for example a brand new group. Bridge them under the raw id
		// until the next refresh fills in the name.
		entry = &ChatEntry{ID: chatID, Name: chatID, IsGroup: IsRoomWxid(chatID)}
	}
	return w.chatEntryToChatInfo(entry), nil
}

func (w *WeChatClient) chatEntryToChatInfo(entry *ChatEntry) *bridgev2.ChatInfo {
	if !entry.IsGroup {
		return &bridgev2.ChatInfo{
			Name: ptr.Ptr(entry.Name),
			Type: ptr.Ptr(database.RoomTypeDM),
			Members: &bridgev2.ChatMemberList{
				IsFull:      true,
				OtherUserID: MakeUserID(entry.ID),
			},
		}
	}
	members := &bridgev2.ChatMemberList{
		// The roster only lists members for rooms that needed a
		// synthesized name, so membership is usually unknown.
		IsFull: false,
	}
	roomType := database.RoomTypeDefault
	if len(entry.MemberIDs) > 0 {
		roomType = database.RoomTypeGroupDM
		members.MemberMap = make(map[networkid.UserID]bridgev2.ChatMember, len(entry.MemberIDs))
		for _, wxid := range entry.MemberIDs {
			userID := MakeUserID(wxid)
			members.MemberMap[userID] = bridgev2.ChatMember{
				EventSender: bridgev2.EventSender{Sender: userID},
			}
		}
	}
	return &bridgev2.ChatInfo{
		Name:    ptr.Ptr(entry.Name),
		Type:    ptr.Ptr(roomType),
		Members: members,
	}
}

// GetUserInfo resolves a ghost's profile from the roster.
func (w *WeChatClient) GetUserInfo(ctx context.Context, ghost *bridgev2.Ghost) (*bridgev2.UserInfo, error) {
	wxid := ParseUserID(ghost.ID)
	contact, ok := w.directory.Contact(wxid)
	if !ok {
		if err := w.directory.Refresh(ctx); err != nil {
			w.log.Debug().Err(err).Str("wxid", wxid).Msg("Roster refresh for unknown ghost failed")
		}
		contact, ok = w.directory.Contact(wxid)
	}
	name := w.connector.Config.FormatDisplayname(DisplaynameParams{
		Username: contact.Username,
		Nickname: contact.Nickname,
		Wxid:     wxid,
	})
	info := &bridgev2.UserInfo{
		Name:        ptr.Ptr(name),
		Identifiers: []string{"wechat:" + wxid},
	}
	if ok && contact.HeadURL != "" {
		avatarURL := contact.HeadURL
		info.Avatar = &bridgev2.Avatar{
			ID: networkid.AvatarID(avatarURL),
			Get: func(ctx context.Context) ([]byte, error) {
				return msgconv.FetchURL(avatarURL)
			},
		}
	}
	return info, nil
}
