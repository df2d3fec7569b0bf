// Copyright 2026 Tedrolin

package connector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"maunium.net/go/mautrix/bridgev2"
	"maunium.net/go/mautrix/bridgev2/database"
	"maunium.net/go/mautrix/bridgev2/networkid"
	"maunium.net/go/mautrix/event"
)

func matrixMessage(portalID string, content *event.MessageEventContent) *bridgev2.MatrixMessage {
	return &bridgev2.MatrixMessage{
		MatrixEventBase: bridgev2.MatrixEventBase[*event.MessageEventContent]{
			Event:   &event.Event{},
			Content: content,
			Portal: &bridgev2.Portal{
				Portal: &database.Portal{
					PortalKey: networkid.PortalKey{ID: networkid.PortalID(portalID)},
				},
			},
		},
	}
}

func TestHandleMatrixMessage_Text(t *testing.T) {
	t.Parallel()
	w, transport, _ := newTestClient()
	w.markLoggedIn()

	msg := matrixMessage("wxid_alice", &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    "hello there",
	})
	resp, err := w.HandleMatrixMessage(context.Background(), msg)
	if err != nil {
		t.Fatalf("HandleMatrixMessage: %v", err)
	}
	sent := transport.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(sent))
	}
	if sent[0].Op != "sendtext" || sent[0].Wxid != "wxid_alice" || sent[0].Content != "hello there" {
		t.Errorf("sent frame: got %+v", sent[0])
	}
	if resp.DB == nil || resp.DB.ID == "" {
		t.Fatal("expected minted message id in response")
	}
	if string(resp.DB.SenderID) != "wxid_self" {
		t.Errorf("sender id: got %q", resp.DB.SenderID)
	}
	meta, ok := resp.DB.Metadata.(*MessageMetadata)
	if !ok || meta.Text != "hello there" {
		t.Errorf("metadata: got %+v", resp.DB.Metadata)
	}
}

func TestHandleMatrixMessage_Reply(t *testing.T) {
	t.Parallel()
	w, transport, _ := newTestClient()
	w.markLoggedIn()

	msg := matrixMessage("123@chatroom", &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    "I agree",
	})
	msg.ReplyTo = &database.Message{
		Metadata: &MessageMetadata{
			SenderWxid: "wxid_alice",
			SenderName: "Alice",
			Text:       "original thought",
		},
	}
	if _, err := w.HandleMatrixMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMatrixMessage: %v", err)
	}
	sent := transport.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(sent))
	}
	frame := sent[0]
	if frame.Op != "atmember" {
		t.Fatalf("expected at-mention send, got %+v", frame)
	}
	if frame.RoomID != "123@chatroom" || frame.Wxid != "wxid_alice" || frame.Nickname != "Alice" {
		t.Errorf("mention target: got %+v", frame)
	}
	want := "「original thought」\n\nI agree"
	if frame.Content != want {
		t.Errorf("content: got %q, want %q", frame.Content, want)
	}
}

func TestHandleMatrixMessage_NotLoggedIn(t *testing.T) {
	t.Parallel()
	w, _, _ := newTestClient()
	msg := matrixMessage("wxid_alice", &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    "hi",
	})
	if _, err := w.HandleMatrixMessage(context.Background(), msg); !errors.Is(err, bridgev2.ErrNotLoggedIn) {
		t.Errorf("got %v, want ErrNotLoggedIn", err)
	}
}

func TestHandleMatrixMessage_UnsupportedType(t *testing.T) {
	t.Parallel()
	w, transport, _ := newTestClient()
	w.markLoggedIn()
	msg := matrixMessage("wxid_alice", &event.MessageEventContent{
		MsgType: event.MsgImage,
		Body:    "photo.jpg",
	})
	if _, err := w.HandleMatrixMessage(context.Background(), msg); err == nil {
		t.Error("expected error for unsupported message type")
	}
	if len(transport.Sent()) != 0 {
		t.Error("nothing should be sent for unsupported types")
	}
}

func TestHandleMatrixMessage_SendFailure(t *testing.T) {
	t.Parallel()
	w, transport, _ := newTestClient()
	w.markLoggedIn()
	transport.sendErr = errors.New("socket closed")
	msg := matrixMessage("wxid_alice", &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    "hi",
	})
	if _, err := w.HandleMatrixMessage(context.Background(), msg); err == nil {
		t.Error("expected transport error to propagate")
	}
}

func TestProcessQuoteText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"short", "hello", 50, "「hello」"},
		{"exact limit", strings.Repeat("a", 50), 50, "「" + strings.Repeat("a", 50) + "」"},
		{"truncated", strings.Repeat("a", 51), 50, "「" + strings.Repeat("a", 50) + "…」"},
		{"cjk runes counted not bytes", strings.Repeat("好", 51), 50, "「" + strings.Repeat("好", 50) + "…」"},
		{"empty", "", 50, "「」"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := processQuoteText(tt.in, tt.limit); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
