// Copyright 2026 Tedrolin
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"fmt"

	"maunium.net/go/mautrix/bridgev2"
	"maunium.net/go/mautrix/bridgev2/database"
	"maunium.net/go/mautrix/event"
)

// quoteTruncateLimit is the maximum rune length of quoted text embedded
// in an outgoing reply.
const quoteTruncateLimit = 50

// HandleMatrixMessage relays a Matrix message to WeChat. Only text-like
// messages can cross; replies are rendered as an at-mention of the
// quoted author with the truncated quote inlined.
func (w *WeChatClient) HandleMatrixMessage(ctx context.Context, msg *bridgev2.MatrixMessage) (*bridgev2.MatrixMessageResponse, error) {
	if !w.IsLoggedIn() {
		return nil, bridgev2.ErrNotLoggedIn
	}
	chatID := ParsePortalID(msg.Portal.ID)

	switch msg.Content.MsgType {
	case event.MsgText, event.MsgNotice, event.MsgEmote:
	default:
		w.log.Debug().
			Str("msg_type", string(msg.Content.MsgType)).
			Msg("Dropping unsupported outgoing message type")
		return nil, fmt.Errorf("%w: %s", bridgev2.ErrUnsupportedMessageType, msg.Content.MsgType)
	}

	text := msg.Content.Body
	var err error
	if meta := replyMetadata(msg); meta != nil {
		text = processQuoteText(meta.Text, quoteTruncateLimit) + "\n\n" + text
		err = w.transport.AtRoomMember(ctx, chatID, meta.SenderWxid, meta.SenderName, text)
	} else {
		err = w.transport.SendText(ctx, chatID, text)
	}
	if err != nil {
		return nil, err
	}

	return &bridgev2.MatrixMessageResponse{
		DB: &database.Message{
			ID:       MakeMessageID(),
			SenderID: MakeUserID(w.wxid),
			Metadata: &MessageMetadata{
				SenderWxid: w.wxid,
				Text:       text,
			},
		},
	}, nil
}

// replyMetadata extracts the stored metadata of the message being
// replied to, if any.
func replyMetadata(msg *bridgev2.MatrixMessage) *MessageMetadata {
	if msg.ReplyTo == nil {
		return nil
	}
	meta, _ := msg.ReplyTo.Metadata.(*MessageMetadata)
	return meta
}

// processQuoteText truncates quoted text to limit runes, marking the
// cut with an ellipsis, and wraps the result in corner brackets.
func processQuoteText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) > limit {
		text = string(runes[:limit]) + "…"
	}
	return "「" + text + "」"
}
