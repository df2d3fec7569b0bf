// Copyright 2026 Tedrolin
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix/bridgev2"
	"maunium.net/go/mautrix/bridgev2/networkid"
	"maunium.net/go/mautrix/bridgev2/simplevent"
	"maunium.net/go/mautrix/event"

	"github.com/tedrolin/mautrix-wechatpc/pkg/connector/msgconv"
	"github.com/tedrolin/mautrix-wechatpc/pkg/wechatpc"
)

func (w *WeChatClient) handleMessageFrame(payload json.RawMessage) {
	var msg wechatpc.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		w.log.Warn().Err(err).Msg("Failed to parse message event")
		return
	}
	w.handleMessage(&msg)
}

// handleMessage normalizes one inbound event and queues a remote event
// per resulting message. Events without a sender and the account's own
// echoes are discarded.
func (w *WeChatClient) handleMessage(msg *wechatpc.Message) {
	if msg.Wxid == "" {
		w.log.Debug().Msg("Dropping message without sender")
		return
	}
	if msg.Owned() {
		w.log.Debug().Str("sender", msg.Wxid).Msg("Dropping own echo")
		return
	}

	chatID := msg.RoomID
	if chatID == "" {
		chatID = msg.Wxid
	}
	senderName := msg.Wxid
	if contact, ok := w.directory.Contact(msg.Wxid); ok {
		senderName = resolveContactName(contact)
	}

	parts := w.conv.Convert(msg)
	for _, part := range parts {
		part := part
		id := MakeMessageID()
		w.eventSender.QueueRemoteEvent(w.userLogin, &simplevent.Message[*msgconv.Message]{
			EventMeta: simplevent.EventMeta{
				Type:      bridgev2.RemoteEventMessage,
				PortalKey: makePortalKey(chatID),
				LogContext: func(c zerolog.Context) zerolog.Context {
					return c.
						Str("message_id", string(id)).
						Str("sender", msg.Wxid).
						Int("msg_type", msg.MsgType)
				},
				Sender:       bridgev2.EventSender{Sender: MakeUserID(msg.Wxid)},
				CreatePortal: true,
				Timestamp:    time.Now(),
			},
			ID:                 id,
			Data:               part,
			ConvertMessageFunc: w.makeConvertFunc(msg.Wxid, senderName),
		})
	}
}

// makeConvertFunc binds sender attribution into the conversion so the
// stored message metadata can reconstruct outgoing quoted replies.
func (w *WeChatClient) makeConvertFunc(senderWxid, senderName string) func(
	ctx context.Context, portal *bridgev2.Portal, intent bridgev2.MatrixAPI, data *msgconv.Message,
) (*bridgev2.ConvertedMessage, error) {
	return func(ctx context.Context, portal *bridgev2.Portal, intent bridgev2.MatrixAPI, data *msgconv.Message) (*bridgev2.ConvertedMessage, error) {
		converted, err := w.convertToMatrix(ctx, portal, intent, data)
		if err != nil {
			return nil, err
		}
		for _, part := range converted.Parts {
			part.DBMetadata = &MessageMetadata{
				SenderWxid: senderWxid,
				SenderName: senderName,
				Text:       data.Text,
			}
		}
		return converted, nil
	}
}

// htmlTagRe strips markup for the plaintext fallback body of formatted
// messages.
var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

func (w *WeChatClient) convertToMatrix(ctx context.Context, portal *bridgev2.Portal, intent bridgev2.MatrixAPI, data *msgconv.Message) (*bridgev2.ConvertedMessage, error) {
	var content *event.MessageEventContent
	switch data.Kind {
	case msgconv.KindText:
		content = makeTextContent(data.Text)
	case msgconv.KindImage, msgconv.KindAnimation:
		var err error
		content, err = uploadAttachment(ctx, portal, intent, data)
		if err != nil {
			return nil, err
		}
	case msgconv.KindLink:
		content = makeLinkContent(data)
	case msgconv.KindLocation:
		content = makeLocationContent(data)
	default:
		content = makeTextContent(data.Text)
	}

	part := &bridgev2.ConvertedMessagePart{
		ID:      networkid.PartID(""),
		Type:    event.EventMessage,
		Content: content,
	}
	if data.Flags.OfficialAccount || data.Flags.QuotedReply {
		part.Extra = map[string]any{}
		if data.Flags.OfficialAccount {
			part.Extra["com.wechatpc.official_account"] = true
		}
		if data.Flags.QuotedReply {
			part.Extra["com.wechatpc.quoted_reply"] = true
		}
	}
	return &bridgev2.ConvertedMessage{
		Parts: []*bridgev2.ConvertedMessagePart{part},
	}, nil
}

// makeTextContent renders normalized text. Decoded push digests embed
// anchor markup, so text containing an anchor is sent as formatted HTML
// with a tag-stripped plaintext body.
func makeTextContent(text string) *event.MessageEventContent {
	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    text,
	}
	if strings.Contains(text, "<a href=") {
		content.Format = event.FormatHTML
		content.FormattedBody = text
		content.Body = html.UnescapeString(htmlTagRe.ReplaceAllString(text, ""))
	}
	return content
}

func uploadAttachment(ctx context.Context, portal *bridgev2.Portal, intent bridgev2.MatrixAPI, data *msgconv.Message) (*event.MessageEventContent, error) {
	att := data.Attachment
	if att == nil {
		return makeTextContent(data.Text), nil
	}
	url, file, err := intent.UploadMedia(ctx, portal.MXID, att.Data, att.FileName, att.MimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload media: %w", err)
	}
	body := att.FileName
	if data.Text != "" {
		body = data.Text
	}
	content := &event.MessageEventContent{
		MsgType:  event.MsgImage,
		Body:     body,
		FileName: att.FileName,
		Info: &event.FileInfo{
			MimeType: att.MimeType,
			Size:     len(att.Data),
		},
	}
	if file != nil {
		content.File = file
	} else {
		content.URL = url
	}
	return content, nil
}

// makeLinkContent renders a shared link as an anchor with the optional
// official-account attribution ahead of it.
func makeLinkContent(data *msgconv.Message) *event.MessageEventContent {
	link := data.Link
	body := data.Text + link.Title + "\n" + link.Description + "\n" + link.URL
	formatted := html.EscapeString(data.Text) + fmt.Sprintf(
		`<a href="%s">%s</a><br>%s`,
		html.EscapeString(link.URL), html.EscapeString(link.Title), html.EscapeString(link.Description))
	return &event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          body,
		Format:        event.FormatHTML,
		FormattedBody: strings.ReplaceAll(formatted, "\n", "<br>"),
	}
}

func makeLocationContent(data *msgconv.Message) *event.MessageEventContent {
	name := data.Text
	if name == "" {
		name = "Location"
	}
	return &event.MessageEventContent{
		MsgType: event.MsgLocation,
		Body:    name,
		GeoURI:  fmt.Sprintf("geo:%.6f,%.6f", data.Location.Latitude, data.Location.Longitude),
	}
}
