// Copyright 2026 Tedrolin

package connector

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix/bridgev2"

	"github.com/tedrolin/mautrix-wechatpc/pkg/connector/msgconv"
	"github.com/tedrolin/mautrix-wechatpc/pkg/wechatpc"
)

// mockEventSender captures queued remote events for test assertions.
type mockEventSender struct {
	mu     sync.Mutex
	events []bridgev2.RemoteEvent
}

func (m *mockEventSender) QueueRemoteEvent(_ *bridgev2.UserLogin, evt bridgev2.RemoteEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockEventSender) Events() []bridgev2.RemoteEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]bridgev2.RemoteEvent, len(m.events))
	copy(cp, m.events)
	return cp
}

// sentFrame records one outbound call on the fake transport.
type sentFrame struct {
	Op       string
	Wxid     string
	RoomID   string
	Nickname string
	Content  string
}

// fakeTransport is an in-memory transport that records outbound calls
// and lets tests feed inbound frames through registered handlers.
type fakeTransport struct {
	mu       sync.Mutex
	sent     []sentFrame
	handlers map[int][]wechatpc.HandlerFunc
	sendErr  error
	done     chan struct{}
	once     sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		handlers: make(map[int][]wechatpc.HandlerFunc),
		done:     make(chan struct{}),
	}
}

func (f *fakeTransport) AddHandler(opcode int, fn wechatpc.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[opcode] = append(f.handlers[opcode], fn)
}

func (f *fakeTransport) Deliver(opcode int, payload json.RawMessage) {
	f.mu.Lock()
	handlers := f.handlers[opcode]
	f.mu.Unlock()
	for _, fn := range handlers {
		fn(payload)
	}
}

func (f *fakeTransport) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return nil
	}
}

func (f *fakeTransport) Close() error {
	f.once.Do(func() {
		close(f.done)
	})
	return nil
}

func (f *fakeTransport) record(frame sentFrame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeTransport) Sent() []sentFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]sentFrame, len(f.sent))
	copy(cp, f.sent)
	return cp
}

func (f *fakeTransport) Open(context.Context) error {
	return f.record(sentFrame{Op: "open"})
}

func (f *fakeTransport) GetFriendList(context.Context) error {
	return f.record(sentFrame{Op: "friendlist"})
}

func (f *fakeTransport) SendText(_ context.Context, wxid, content string) error {
	return f.record(sentFrame{Op: "sendtext", Wxid: wxid, Content: content})
}

func (f *fakeTransport) AtRoomMember(_ context.Context, roomID, wxid, nickname, content string) error {
	return f.record(sentFrame{Op: "atmember", RoomID: roomID, Wxid: wxid, Nickname: nickname, Content: content})
}

// newTestClient builds a WeChatClient wired to a fake transport and a
// mock event sender, with the bridge itself left out.
func newTestClient() (*WeChatClient, *fakeTransport, *mockEventSender) {
	wc := &WeChatConnector{
		Config: Config{
			URI:                  "ws://localhost:0/wechat",
			RosterRefreshMinutes: 10,
		},
	}
	transport := newFakeTransport()
	sender := &mockEventSender{}
	w := &WeChatClient{
		connector:   wc,
		userLogin:   &bridgev2.UserLogin{},
		eventSender: sender,
		transport:   transport,
		conv:        msgconv.New(zerolog.Nop()),
		wxid:        "wxid_self",
		loggedIn:    make(chan struct{}),
		stopChan:    make(chan struct{}),
		log:         zerolog.Nop(),
	}
	w.directory = NewDirectory(zerolog.Nop(), w.requestRoster)
	return w, transport, sender
}
