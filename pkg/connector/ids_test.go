// Copyright 2026 Tedrolin

package connector

import "testing"

func TestPortalIDRoundTrip(t *testing.T) {
	t.Parallel()
	for _, chatID := range []string{"wxid_alice", "123@chatroom"} {
		if got := ParsePortalID(MakePortalID(chatID)); got != chatID {
			t.Errorf("round trip %q: got %q", chatID, got)
		}
	}
}

func TestUserIDRoundTrip(t *testing.T) {
	t.Parallel()
	if got := ParseUserID(MakeUserID("wxid_bob")); got != "wxid_bob" {
		t.Errorf("got %q, want %q", got, "wxid_bob")
	}
}

func TestIsRoomWxid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		wxid string
		want bool
	}{
		{"123456@chatroom", true},
		{"wxid_alice", false},
		{"", false},
		{"alice@chatroom_suffix", true},
	}
	for _, tt := range tests {
		if got := IsRoomWxid(tt.wxid); got != tt.want {
			t.Errorf("IsRoomWxid(%q): got %v, want %v", tt.wxid, got, tt.want)
		}
	}
}

func TestMakeMessageID(t *testing.T) {
	t.Parallel()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := string(MakeMessageID())
		if id == "" {
			t.Fatal("empty message id")
		}
		if seen[id] {
			t.Fatalf("duplicate message id %q", id)
		}
		seen[id] = true
	}
}

func TestMakePortalKey(t *testing.T) {
	t.Parallel()
	key := makePortalKey("123@chatroom")
	if string(key.ID) != "123@chatroom" {
		t.Errorf("key id: got %q", key.ID)
	}
	if key.Receiver != "" {
		t.Errorf("key receiver should be empty, got %q", key.Receiver)
	}
}
