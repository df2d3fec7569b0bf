// Copyright 2026 Tedrolin
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"maunium.net/go/mautrix/bridgev2"
	"maunium.net/go/mautrix/bridgev2/database"

	"github.com/tedrolin/mautrix-wechatpc/pkg/wechatpc"
)

const (
	LoginFlowIDQR = "qr"

	LoginStepIDQR       = "fi.mau.wechatpc.qr"
	LoginStepIDComplete = "fi.mau.wechatpc.complete"
)

// qrWaitTimeout bounds how long login waits for the hook server to
// issue the first QR code.
const qrWaitTimeout = 30 * time.Second

func (wc *WeChatConnector) GetLoginFlows() []bridgev2.LoginFlow {
	return []bridgev2.LoginFlow{{
		Name:        "QR code",
		Description: "Scan a QR code with the WeChat mobile app",
		ID:          LoginFlowIDQR,
	}}
}

func (wc *WeChatConnector) CreateLogin(_ context.Context, user *bridgev2.User, flowID string) (bridgev2.LoginProcess, error) {
	if flowID != LoginFlowIDQR {
		return nil, fmt.Errorf("unknown login flow ID %q", flowID)
	}
	return &QRLogin{
		user:      user,
		connector: wc,
		log:       user.Log.With().Str("component", "wechat_login").Logger(),
		qrChan:    make(chan string, 4),
		doneChan:  make(chan string, 1),
	}, nil
}

// QRLogin drives a QR code login over a provisional hook connection.
// The connection is torn down once the scan succeeds; the real client
// reconnects through the normal path afterwards.
type QRLogin struct {
	user      *bridgev2.User
	connector *WeChatConnector
	log       zerolog.Logger

	client   *wechatpc.Client
	qrChan   chan string
	doneChan chan string
}

var _ bridgev2.LoginProcessDisplayAndWait = (*QRLogin)(nil)

func (q *QRLogin) Start(ctx context.Context) (*bridgev2.LoginStep, error) {
	cfg := &q.connector.Config
	uri := cfg.URI
	if cfg.AppID != "" && cfg.AppKey != "" {
		uri = wechatpc.BuildSignedURI(uri, cfg.AppID, cfg.AppKey, time.Now())
	}
	client, err := wechatpc.Dial(ctx, uri, q.log.With().Str("component", "wechatpc").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to hook server: %w", err)
	}
	q.client = client
	client.AddHandler(wechatpc.OpcodeLoginQRCode, q.handleQRCode)
	client.AddHandler(wechatpc.OpcodeLoginStatus, q.handleLoginStatus)
	go func() {
		if err := client.Run(context.Background()); err != nil {
			q.log.Debug().Err(err).Msg("Provisional login connection closed")
		}
	}()
	if err := client.Open(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to open hook session: %w", err)
	}

	timer := time.NewTimer(qrWaitTimeout)
	defer timer.Stop()
	var qrURL string
	select {
	case qrURL = <-q.qrChan:
	case wxid := <-q.doneChan:
		// Already logged in on the hook server, no scan needed.
		return q.finishLogin(ctx, wxid)
	case <-timer.C:
		_ = client.Close()
		return nil, fmt.Errorf("timed out waiting for login QR code")
	case <-ctx.Done():
		_ = client.Close()
		return nil, ctx.Err()
	}

	return &bridgev2.LoginStep{
		Type:         bridgev2.LoginStepTypeDisplayAndWait,
		StepID:       LoginStepIDQR,
		Instructions: "Scan the QR code with the WeChat mobile app",
		DisplayAndWaitParams: &bridgev2.LoginDisplayAndWaitParams{
			Type: bridgev2.LoginDisplayTypeQR,
			Data: qrURL,
		},
	}, nil
}

func (q *QRLogin) handleQRCode(payload json.RawMessage) {
	var evt wechatpc.QRCodeEvent
	if err := json.Unmarshal(payload, &evt); err != nil || evt.LoginQRCode == "" {
		return
	}
	q.log.Info().Msg("Login QR code issued\n" + renderLoginQR(evt.LoginQRCode))
	select {
	case q.qrChan <- evt.LoginQRCode:
	default:
	}
}

func (q *QRLogin) handleLoginStatus(payload json.RawMessage) {
	var evt wechatpc.LoginStatusEvent
	if err := json.Unmarshal(payload, &evt); err != nil || evt.LoginStatus != 1 {
		return
	}
	select {
	case q.doneChan <- evt.Wxid:
	default:
	}
}

// Wait blocks until the QR code is scanned and the hook server reports
// a successful login.
func (q *QRLogin) Wait(ctx context.Context) (*bridgev2.LoginStep, error) {
	select {
	case wxid := <-q.doneChan:
		return q.finishLogin(ctx, wxid)
	case <-ctx.Done():
		q.Cancel()
		return nil, ctx.Err()
	}
}

func (q *QRLogin) finishLogin(ctx context.Context, wxid string) (*bridgev2.LoginStep, error) {
	if q.client != nil {
		_ = q.client.Close()
		q.client = nil
	}
	if wxid == "" {
		return nil, fmt.Errorf("hook server reported login without a wxid")
	}
	ul, err := q.user.NewLogin(ctx, &database.UserLogin{
		ID:         MakeUserLoginID(wxid),
		RemoteName: wxid,
		Metadata: &UserLoginMetadata{
			URI:  q.connector.Config.URI,
			Wxid: wxid,
		},
	}, &bridgev2.NewLoginParams{
		DeleteOnConflict: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save new login: %w", err)
	}
	ul.Client.Connect(ctx)
	return &bridgev2.LoginStep{
		Type:         bridgev2.LoginStepTypeComplete,
		StepID:       LoginStepIDComplete,
		Instructions: fmt.Sprintf("Successfully logged in as %s", wxid),
		CompleteParams: &bridgev2.LoginCompleteParams{
			UserLoginID: ul.ID,
			UserLogin:   ul,
		},
	}, nil
}

func (q *QRLogin) Cancel() {
	if q.client != nil {
		_ = q.client.Close()
		q.client = nil
	}
}

// renderLoginQR renders a QR code as a terminal-friendly block string.
// On encoding failure the raw URL is returned so the user can still
// act on it.
func renderLoginQR(data string) string {
	qr, err := qrcode.New(data, qrcode.Low)
	if err != nil {
		return data
	}
	return qr.ToSmallString(false)
}
