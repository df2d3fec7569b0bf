// Copyright 2026 Tedrolin

package connector

import (
	"context"
	"strings"
	"testing"

	"maunium.net/go/mautrix/bridgev2"
	"maunium.net/go/mautrix/bridgev2/simplevent"
	"maunium.net/go/mautrix/event"

	"github.com/tedrolin/mautrix-wechatpc/pkg/connector/msgconv"
	"github.com/tedrolin/mautrix-wechatpc/pkg/wechatpc"
)

func intPtr(v int) *int { return &v }

func TestHandleMessage_DropsOwnEchoes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		msg  wechatpc.Message
	}{
		{"absent isOwner means owned", wechatpc.Message{Wxid: "wxid_alice", MsgType: 1, Content: "hi"}},
		{"explicit owner", wechatpc.Message{Wxid: "wxid_alice", IsOwner: intPtr(1), MsgType: 1, Content: "hi"}},
		{"no sender", wechatpc.Message{IsOwner: intPtr(0), MsgType: 1, Content: "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w, _, sender := newTestClient()
			w.handleMessage(&tt.msg)
			if got := sender.Events(); len(got) != 0 {
				t.Errorf("expected no events, got %d", len(got))
			}
		})
	}
}

func TestHandleMessage_DirectChat(t *testing.T) {
	t.Parallel()
	w, _, sender := newTestClient()
	w.handleMessage(&wechatpc.Message{
		Wxid:    "wxid_alice",
		IsOwner: intPtr(0),
		MsgType: 1,
		Content: "[OK] hi",
	})
	events := sender.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	evt, ok := events[0].(*simplevent.Message[*msgconv.Message])
	if !ok {
		t.Fatalf("unexpected event type %T", events[0])
	}
	if string(evt.PortalKey.ID) != "wxid_alice" {
		t.Errorf("portal: got %q, want sender wxid", evt.PortalKey.ID)
	}
	if string(evt.Sender.Sender) != "wxid_alice" {
		t.Errorf("sender: got %q", evt.Sender.Sender)
	}
	if evt.ID == "" {
		t.Error("expected minted message id")
	}
	if evt.Data.Text != "👌 hi" {
		t.Errorf("text: got %q, want %q", evt.Data.Text, "👌 hi")
	}
}

func TestHandleMessage_GroupChatUsesRoomPortal(t *testing.T) {
	t.Parallel()
	w, _, sender := newTestClient()
	w.handleMessage(&wechatpc.Message{
		Wxid:    "wxid_alice",
		RoomID:  "123@chatroom",
		IsOwner: intPtr(0),
		MsgType: 1,
		Content: "hi all",
	})
	events := sender.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	evt := events[0].(*simplevent.Message[*msgconv.Message])
	if string(evt.PortalKey.ID) != "123@chatroom" {
		t.Errorf("portal: got %q, want room id", evt.PortalKey.ID)
	}
	if string(evt.Sender.Sender) != "wxid_alice" {
		t.Errorf("sender: got %q", evt.Sender.Sender)
	}
}

func TestMakeConvertFunc_SetsMetadata(t *testing.T) {
	t.Parallel()
	w, _, _ := newTestClient()
	convert := w.makeConvertFunc("wxid_alice", "Alice")
	converted, err := convert(context.Background(), nil, nil, msgconv.Text("the words"))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(converted.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(converted.Parts))
	}
	meta, ok := converted.Parts[0].DBMetadata.(*MessageMetadata)
	if !ok {
		t.Fatalf("unexpected metadata type %T", converted.Parts[0].DBMetadata)
	}
	if meta.SenderWxid != "wxid_alice" || meta.SenderName != "Alice" || meta.Text != "the words" {
		t.Errorf("metadata: got %+v", meta)
	}
}

func TestConvertToMatrix_PlainText(t *testing.T) {
	t.Parallel()
	w, _, _ := newTestClient()
	converted, err := w.convertToMatrix(context.Background(), nil, nil, msgconv.Text("plain words"))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	content := converted.Parts[0].Content
	if content.MsgType != event.MsgText || content.Body != "plain words" {
		t.Errorf("content: got %+v", content)
	}
	if content.Format != "" {
		t.Errorf("plain text should not be formatted, got %q", content.Format)
	}
}

func TestConvertToMatrix_AnchoredText(t *testing.T) {
	t.Parallel()
	w, _, _ := newTestClient()
	text := `<a href="https://e.com/1">Headline</a>` + "\ndigest"
	converted, err := w.convertToMatrix(context.Background(), nil, nil, msgconv.Text(text))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	content := converted.Parts[0].Content
	if content.Format != event.FormatHTML {
		t.Fatalf("expected HTML format, got %q", content.Format)
	}
	if content.FormattedBody != text {
		t.Errorf("formatted body: got %q", content.FormattedBody)
	}
	if content.Body != "Headline\ndigest" {
		t.Errorf("stripped body: got %q", content.Body)
	}
}

func TestConvertToMatrix_Location(t *testing.T) {
	t.Parallel()
	w, _, _ := newTestClient()
	converted, err := w.convertToMatrix(context.Background(), nil, nil, &msgconv.Message{
		Kind:     msgconv.KindLocation,
		Text:     "人民广场",
		Location: &msgconv.GeoPoint{Latitude: 31.230391, Longitude: 121.473701},
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	content := converted.Parts[0].Content
	if content.MsgType != event.MsgLocation {
		t.Errorf("msg type: got %v", content.MsgType)
	}
	if content.GeoURI != "geo:31.230391,121.473701" {
		t.Errorf("geo uri: got %q", content.GeoURI)
	}
	if content.Body != "人民广场" {
		t.Errorf("body: got %q", content.Body)
	}
}

func TestConvertToMatrix_Link(t *testing.T) {
	t.Parallel()
	w, _, _ := newTestClient()
	converted, err := w.convertToMatrix(context.Background(), nil, nil, &msgconv.Message{
		Kind: msgconv.KindLink,
		Text: "\n转发自公众号【新闻号(id: gh_1)】\n\n",
		Link: &msgconv.LinkPreview{
			Title:       "Headline",
			Description: "A summary",
			URL:         "https://e.com/1",
		},
		Flags: msgconv.Flags{OfficialAccount: true},
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	part := converted.Parts[0]
	if part.Content.Format != event.FormatHTML {
		t.Fatalf("expected HTML format")
	}
	if want := `<a href="https://e.com/1">Headline</a>`; !strings.Contains(part.Content.FormattedBody, want) {
		t.Errorf("formatted body %q missing %q", part.Content.FormattedBody, want)
	}
	if !strings.Contains(part.Content.Body, "https://e.com/1") {
		t.Errorf("plain body %q missing url", part.Content.Body)
	}
	if part.Extra["com.wechatpc.official_account"] != true {
		t.Errorf("extra: got %v", part.Extra)
	}
}

func TestConvertToMatrix_QuotedReplyFlag(t *testing.T) {
	t.Parallel()
	w, _, _ := newTestClient()
	msg := msgconv.Text("「Alice:\nhi」\n----------------\nyes")
	msg.Flags.QuotedReply = true
	converted, err := w.convertToMatrix(context.Background(), nil, nil, msg)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if converted.Parts[0].Extra["com.wechatpc.quoted_reply"] != true {
		t.Errorf("extra: got %v", converted.Parts[0].Extra)
	}
}

func TestGetCapabilities_RoomFeatures(t *testing.T) {
	t.Parallel()
	w, _, _ := newTestClient()
	features := w.GetCapabilities(context.Background(), &bridgev2.Portal{})
	if features.Reply != event.CapLevelFullySupported {
		t.Error("replies should be supported")
	}
	if len(features.File) != 0 {
		t.Error("no outgoing file kinds are supported by the hook protocol")
	}
	if features.Edit == event.CapLevelFullySupported {
		t.Error("edits are not supported by the hook protocol")
	}
}
