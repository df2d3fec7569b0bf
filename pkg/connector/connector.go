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
)

// WeChatConnector implements bridgev2.NetworkConnector for the WeChat
// PC hook protocol.
type WeChatConnector struct {
	Bridge *bridgev2.Bridge
	Config Config
}

var _ bridgev2.NetworkConnector = (*WeChatConnector)(nil)

func (wc *WeChatConnector) Init(bridge *bridgev2.Bridge) {
	wc.Bridge = bridge
}

func (wc *WeChatConnector) Start(ctx context.Context) error {
	if wc.Config.URI == "" {
		return fmt.Errorf("wechatpc uri not found in config")
	}
	if err := wc.Config.PostProcess(); err != nil {
		return fmt.Errorf("failed to post-process config: %w", err)
	}
	return nil
}

func (wc *WeChatConnector) LoadUserLogin(_ context.Context, login *bridgev2.UserLogin) error {
	login.Client = NewWeChatClient(login, wc)
	return nil
}

func (wc *WeChatConnector) GetName() bridgev2.BridgeName {
	return bridgev2.BridgeName{
		DisplayName:      "WeChat",
		NetworkURL:       "https://www.wechat.com",
		NetworkIcon:      "mxc://maunium.net/wechat",
		NetworkID:        "wechatpc",
		BeeperBridgeType: "wechatpc",
		DefaultPort:      29321,
	}
}

func (wc *WeChatConnector) GetDBMetaTypes() database.MetaTypes {
	return database.MetaTypes{
		UserLogin: func() any {
			return &UserLoginMetadata{}
		},
		Message: func() any {
			return &MessageMetadata{}
		},
	}
}

func (wc *WeChatConnector) GetCapabilities() *bridgev2.NetworkGeneralCapabilities {
	return &bridgev2.NetworkGeneralCapabilities{
		DisappearingMessages: false,
		AggressiveUpdateInfo: false,
	}
}

func (wc *WeChatConnector) GetBridgeInfoVersion() (info, capabilities int) {
	return 1, 1
}

// UserLoginMetadata stores WeChat-specific login data.
type UserLoginMetadata struct {
	// URI is the hook server endpoint this login connected through.
	URI string `json:"uri"`
	// Wxid is the logged-in account's own id, used for echo checks.
	Wxid string `json:"wxid"`
}

// MessageMetadata stores the rendered text and author of a bridged
// message so outgoing quoted replies can reconstruct the quote.
type MessageMetadata struct {
	SenderWxid string `json:"sender_wxid"`
	SenderName string `json:"sender_name"`
	Text       string `json:"text"`
}
