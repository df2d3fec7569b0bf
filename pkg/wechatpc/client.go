// Copyright 2026 Tedrolin
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package wechatpc is a client for the WeChat PC hook server. The server
// exposes a single WebSocket endpoint; both directions speak JSON frames
// of the form {"opcode": N, ...payload}.
package wechatpc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// HandlerFunc receives the raw payload of an inbound frame. Handlers run
// on the read loop goroutine, strictly one at a time and in delivery
// order; a handler that blocks stalls the whole loop.
type HandlerFunc func(payload json.RawMessage)

// Client is a connection to the hook server. It is safe for concurrent
// sends; inbound dispatch is single-threaded.
type Client struct {
	conn *websocket.Conn
	log  zerolog.Logger

	writeMu sync.Mutex

	handlerMu sync.RWMutex
	handlers  map[int][]HandlerFunc

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the hook server at uri. The caller must start Run to
// begin receiving pushes.
func Dial(ctx context.Context, uri string, log zerolog.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial hook server: %w", err)
	}
	return &Client{
		conn:     conn,
		log:      log,
		handlers: make(map[int][]HandlerFunc),
		done:     make(chan struct{}),
	}, nil
}

// BuildSignedURI appends the signed query string required by hook
// servers configured with an app id/key pair. The hash is the SHA-256
// digest of "app_id=<id>&timestamp=<ts>&app_key=<key>" where ts is the
// given time in milliseconds.
func BuildSignedURI(uri, appID, appKey string, now time.Time) string {
	ts := now.UnixMilli()
	sum := sha256.Sum256(fmt.Appendf(nil, "app_id=%s&timestamp=%d&app_key=%s", appID, ts, appKey))
	return fmt.Sprintf("%s?app_id=%s&timestamp=%d&hash=%s", uri, appID, ts, hex.EncodeToString(sum[:]))
}

// AddHandler registers fn for the given inbound opcode. Multiple
// handlers per opcode run in registration order.
func (c *Client) AddHandler(opcode int, fn HandlerFunc) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.handlers[opcode] = append(c.handlers[opcode], fn)
}

// Run reads frames until the connection closes or ctx is cancelled.
// Handlers are invoked synchronously so events are processed in
// delivery order.
func (c *Client) Run(ctx context.Context) error {
	defer c.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			return fmt.Errorf("hook server read failed: %w", err)
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	var head struct {
		Opcode int `json:"opcode"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		c.log.Warn().Err(err).Msg("Discarding unparseable frame")
		return
	}
	c.handlerMu.RLock()
	handlers := c.handlers[head.Opcode]
	c.handlerMu.RUnlock()
	if len(handlers) == 0 {
		c.log.Trace().Int("opcode", head.Opcode).Msg("No handler for opcode")
		return
	}
	for _, fn := range handlers {
		fn(json.RawMessage(data))
	}
}

// Close shuts down the connection. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// request is the client-to-server frame shape. All requests share one
// flat field set; unused fields are omitted.
type request struct {
	Opcode   int    `json:"opcode"`
	Wxid     string `json:"wxid,omitempty"`
	RoomID   string `json:"roomId,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Content  string `json:"content,omitempty"`
}

func (c *Client) send(ctx context.Context, req request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("hook server write failed (opcode %d): %w", req.Opcode, err)
	}
	return nil
}

// Open starts a session on the hook server. The server answers with a
// login QR code push if no account is logged in, or a login status push
// if one already is.
func (c *Client) Open(ctx context.Context) error {
	return c.send(ctx, request{Opcode: OpcodeOpenSession})
}

// GetFriendList requests the full roster. The roster arrives
// asynchronously as an OpcodeFriendList push.
func (c *Client) GetFriendList(ctx context.Context) error {
	return c.send(ctx, request{Opcode: OpcodeGetFriendList})
}

// SendText sends a plain text message to a friend or chat room.
func (c *Client) SendText(ctx context.Context, wxid, content string) error {
	return c.send(ctx, request{Opcode: OpcodeSendText, Wxid: wxid, Content: content})
}

// AtRoomMember sends a text message into a chat room mentioning one
// member by wxid and display name.
func (c *Client) AtRoomMember(ctx context.Context, roomID, wxid, nickname, content string) error {
	return c.send(ctx, request{
		Opcode:   OpcodeAtRoomMember,
		RoomID:   roomID,
		Wxid:     wxid,
		Nickname: nickname,
		Content:  content,
	})
}
