// Copyright 2026 Tedrolin
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix/bridgev2"
	"maunium.net/go/mautrix/bridgev2/networkid"
	"maunium.net/go/mautrix/bridgev2/simplevent"
	"maunium.net/go/mautrix/bridgev2/status"
	"maunium.net/go/mautrix/event"

	"github.com/tedrolin/mautrix-wechatpc/pkg/connector/msgconv"
	"github.com/tedrolin/mautrix-wechatpc/pkg/wechatpc"
)

// remoteEventSender is an interface for queuing remote events. This
// allows tests to inject a mock instead of requiring a full
// bridgev2.Bridge.
type remoteEventSender interface {
	QueueRemoteEvent(login *bridgev2.UserLogin, evt bridgev2.RemoteEvent)
}

// bridgeEventSender is the production implementation that delegates to
// the bridge.
type bridgeEventSender struct {
	bridge *bridgev2.Bridge
}

func (b *bridgeEventSender) QueueRemoteEvent(login *bridgev2.UserLogin, evt bridgev2.RemoteEvent) {
	b.bridge.QueueRemoteEvent(login, evt)
}

// transport is the subset of the hook client used by the connector.
// *wechatpc.Client is the production implementation; tests inject a
// fake.
type transport interface {
	AddHandler(opcode int, fn wechatpc.HandlerFunc)
	Run(ctx context.Context) error
	Close() error
	Open(ctx context.Context) error
	GetFriendList(ctx context.Context) error
	SendText(ctx context.Context, wxid, content string) error
	AtRoomMember(ctx context.Context, roomID, wxid, nickname, content string) error
}

// reconnectDelay spaces out reconnection attempts after the hook server
// drops the connection.
const reconnectDelay = 5 * time.Second

// SessionState tracks where the connection is in its lifecycle. The
// hook server can log an account out and back in without the WebSocket
// ever closing, so login state is independent of connection state.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnectedUnauthenticated
	StateAwaitingLogin
	StateLoggedIn
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnectedUnauthenticated:
		return "connected-unauthenticated"
	case StateAwaitingLogin:
		return "awaiting-login"
	case StateLoggedIn:
		return "logged-in"
	default:
		return "unknown"
	}
}

// WeChatClient represents the single WeChat account connection behind a
// user login.
type WeChatClient struct {
	connector   *WeChatConnector
	userLogin   *bridgev2.UserLogin
	eventSender remoteEventSender

	transport transport
	conv      *msgconv.Converter
	directory *Directory
	wxid      string

	stateMu  sync.Mutex
	state    SessionState
	loggedIn chan struct{}

	// onQR, when set, receives login QR code URLs in addition to the
	// terminal rendering. Used by the QR login flow.
	onQR func(url string)

	rosterOnce sync.Once
	stopOnce   sync.Once
	stopChan   chan struct{}
	log        zerolog.Logger
}

var _ bridgev2.NetworkAPI = (*WeChatClient)(nil)

// NewWeChatClient creates a new client from an existing user login.
func NewWeChatClient(login *bridgev2.UserLogin, connector *WeChatConnector) *WeChatClient {
	log := login.Log.With().Str("component", "wechat_client").Logger()
	w := &WeChatClient{
		connector:   connector,
		userLogin:   login,
		eventSender: &bridgeEventSender{bridge: connector.Bridge},
		conv:        msgconv.New(log.With().Str("component", "msgconv").Logger()),
		loggedIn:    make(chan struct{}),
		stopChan:    make(chan struct{}),
		log:         log,
	}
	w.directory = NewDirectory(log.With().Str("component", "directory").Logger(), w.requestRoster)
	if meta, ok := login.Metadata.(*UserLoginMetadata); ok && meta != nil {
		w.wxid = meta.Wxid
	}
	return w
}

func (w *WeChatClient) requestRoster(ctx context.Context) error {
	if w.transport == nil {
		return ErrRosterUnavailable
	}
	return w.transport.GetFriendList(ctx)
}

func (w *WeChatClient) setState(s SessionState) {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	if w.state == s {
		return
	}
	w.log.Debug().
		Stringer("from", w.state).
		Stringer("to", s).
		Msg("Session state changed")
	w.state = s
}

// State returns the current session state.
func (w *WeChatClient) State() SessionState {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.state
}

// Connect implements bridgev2.NetworkAPI. It does not return an error;
// connection problems are reported via BridgeState.
func (w *WeChatClient) Connect(ctx context.Context) {
	w.setState(StateConnecting)

	uri := w.connector.Config.URI
	if w.connector.Config.AppID != "" && w.connector.Config.AppKey != "" {
		uri = wechatpc.BuildSignedURI(uri, w.connector.Config.AppID, w.connector.Config.AppKey, time.Now())
	}

	w.log.Info().Str("uri", w.connector.Config.URI).Msg("Connecting to hook server")
	client, err := wechatpc.Dial(ctx, uri, w.log.With().Str("component", "wechatpc").Logger())
	if err != nil {
		w.setState(StateDisconnected)
		w.log.Error().Err(err).Msg("Failed to connect to hook server")
		w.userLogin.BridgeState.Send(status.BridgeState{
			StateEvent: status.StateTransientDisconnect,
			Error:      "wechat-connect-failed",
			Message:    "Failed to connect to the WeChat hook server",
		})
		return
	}
	w.adoptTransport(client)
	w.setState(StateConnectedUnauthenticated)

	go w.runTransport()
	w.rosterOnce.Do(func() {
		go w.rosterLoop()
	})

	if err := w.transport.Open(ctx); err != nil {
		w.log.Error().Err(err).Msg("Failed to open hook session")
		w.userLogin.BridgeState.Send(status.BridgeState{
			StateEvent: status.StateTransientDisconnect,
			Error:      "wechat-open-failed",
			Message:    "Failed to open the WeChat hook session",
		})
	}
}

// adoptTransport wires the inbound handlers onto a connected transport.
func (w *WeChatClient) adoptTransport(t transport) {
	w.transport = t
	t.AddHandler(wechatpc.OpcodeFriendList, w.handleFriendList)
	t.AddHandler(wechatpc.OpcodeLoginQRCode, w.handleQRCode)
	t.AddHandler(wechatpc.OpcodeLoginStatus, w.handleLoginStatus)
	t.AddHandler(wechatpc.OpcodeMessageReceive, w.handleMessageFrame)
}

func (w *WeChatClient) runTransport() {
	err := w.transport.Run(context.Background())
	select {
	case <-w.stopChan:
		return
	default:
	}
	w.log.Warn().Err(err).Msg("Hook server connection lost, reconnecting")
	w.setState(StateDisconnected)
	w.userLogin.BridgeState.Send(status.BridgeState{
		StateEvent: status.StateTransientDisconnect,
		Error:      "wechat-disconnected",
		Message:    "Hook server connection lost, reconnecting",
	})
	for {
		select {
		case <-w.stopChan:
			return
		case <-time.After(reconnectDelay):
		}
		w.Connect(context.Background())
		if w.State() != StateDisconnected {
			return
		}
	}
}

// rosterLoop periodically requests a fresh roster regardless of cache
// state so renames and new chats made in the native client are picked
// up.
func (w *WeChatClient) rosterLoop() {
	interval := time.Duration(w.connector.Config.RosterRefreshMinutes) * time.Minute
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.log.Debug().Msg("Requesting periodic roster refresh")
			if err := w.transport.GetFriendList(context.Background()); err != nil {
				w.log.Warn().Err(err).Msg("Periodic roster refresh failed")
			}
		}
	}
}

func (w *WeChatClient) handleFriendList(payload json.RawMessage) {
	var evt wechatpc.FriendListEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		w.log.Warn().Err(err).Msg("Failed to parse friend list event")
		return
	}
	w.directory.SetRoster(evt.FriendList)
	w.syncChats(context.Background())
}

func (w *WeChatClient) handleQRCode(payload json.RawMessage) {
	var evt wechatpc.QRCodeEvent
	if err := json.Unmarshal(payload, &evt); err != nil || evt.LoginQRCode == "" {
		return
	}
	w.setState(StateAwaitingLogin)
	w.log.Info().Msg("Login QR code issued\n" + renderLoginQR(evt.LoginQRCode))
	if w.onQR != nil {
		w.onQR(evt.LoginQRCode)
	}
}

func (w *WeChatClient) handleLoginStatus(payload json.RawMessage) {
	var evt wechatpc.LoginStatusEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		w.log.Warn().Err(err).Msg("Failed to parse login status event")
		return
	}
	switch evt.LoginStatus {
	case 1:
		w.log.Info().Msg("Login success")
		if evt.Wxid != "" && evt.Wxid != w.wxid {
			w.wxid = evt.Wxid
			if meta, ok := w.userLogin.Metadata.(*UserLoginMetadata); ok && meta != nil {
				meta.Wxid = evt.Wxid
				if err := w.userLogin.Save(context.Background()); err != nil {
					w.log.Warn().Err(err).Msg("Failed to save login metadata")
				}
			}
		}
		w.markLoggedIn()
		w.userLogin.BridgeState.Send(status.BridgeState{
			StateEvent: status.StateConnected,
		})
		go func() {
			if err := w.transport.GetFriendList(context.Background()); err != nil {
				w.log.Warn().Err(err).Msg("Initial roster request failed")
			}
		}()
	case 0:
		w.log.Info().Msg("WeChat account logged out")
		w.markLoggedOut()
		w.userLogin.BridgeState.Send(status.BridgeState{
			StateEvent: status.StateBadCredentials,
			Error:      "wechat-logged-out",
			Message:    "WeChat account logged out, scan a new QR code to log back in",
		})
	}
}

func (w *WeChatClient) markLoggedIn() {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	w.state = StateLoggedIn
	select {
	case <-w.loggedIn:
	default:
		close(w.loggedIn)
	}
}

func (w *WeChatClient) markLoggedOut() {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	// A fresh login can happen on the same connection, so this returns
	// to unauthenticated rather than disconnected.
	w.state = StateConnectedUnauthenticated
	w.loggedIn = make(chan struct{})
}

// WaitForLogin blocks until the account reaches the logged-in state.
func (w *WeChatClient) WaitForLogin(ctx context.Context) error {
	w.stateMu.Lock()
	loggedIn := w.loggedIn
	w.stateMu.Unlock()
	select {
	case <-loggedIn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// syncChats queues a resync event per directory entry so the bridge
// creates or updates the corresponding rooms.
func (w *WeChatClient) syncChats(ctx context.Context) {
	chats, err := w.directory.List(ctx)
	if err != nil {
		w.log.Warn().Err(err).Msg("Failed to list chats for sync")
		return
	}
	w.log.Info().Int("count", len(chats)).Msg("Syncing chats")
	for _, entry := range chats {
		entry := entry
		w.eventSender.QueueRemoteEvent(w.userLogin, &simplevent.ChatResync{
			EventMeta: simplevent.EventMeta{
				Type:      bridgev2.RemoteEventChatResync,
				PortalKey: makePortalKey(entry.ID),
				LogContext: func(c zerolog.Context) zerolog.Context {
					return c.Str("chat_id", entry.ID).Str("chat_name", entry.Name)
				},
				CreatePortal: true,
			},
			ChatInfo: w.chatEntryToChatInfo(entry),
		})
	}
}

// Disconnect closes the transport and stops the background loops.
func (w *WeChatClient) Disconnect() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	if w.transport != nil {
		_ = w.transport.Close()
	}
	w.setState(StateDisconnected)
}

// IsLoggedIn reports whether the WeChat account is currently logged in
// on the hook server.
func (w *WeChatClient) IsLoggedIn() bool {
	return w.State() == StateLoggedIn
}

func (w *WeChatClient) LogoutRemote(ctx context.Context) {
	// The hook protocol has no logout request; dropping the connection
	// is the closest equivalent.
	w.Disconnect()
}

// IsThisUser reports whether the given network user id is the logged-in
// account.
func (w *WeChatClient) IsThisUser(_ context.Context, userID networkid.UserID) bool {
	return w.wxid != "" && string(userID) == w.wxid
}

// GetCapabilities describes what can be sent towards WeChat. The hook
// protocol only has text send primitives, so no file kinds are
// declared even though inbound images are bridged.
func (w *WeChatClient) GetCapabilities(_ context.Context, _ *bridgev2.Portal) *event.RoomFeatures {
	return &event.RoomFeatures{
		MaxTextLength: 4096,
		Reply:         event.CapLevelFullySupported,
	}
}
