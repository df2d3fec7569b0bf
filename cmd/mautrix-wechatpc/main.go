// Copyright 2026 Tedrolin
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Command mautrix-wechatpc is a Matrix-WeChat bridge built on the
// mautrix bridgev2 framework. It talks to a WeChat PC hook server over
// a WebSocket, decodes the hook's raw message events into normalized
// Matrix messages, and relays Matrix text back into WeChat.
package main

import (
	"maunium.net/go/mautrix/bridgev2/matrix/mxmain"

	"github.com/tedrolin/mautrix-wechatpc/pkg/connector"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var m = mxmain.BridgeMain{
	Name:        "mautrix-wechatpc",
	URL:         "https://github.com/tedrolin/mautrix-wechatpc",
	Description: "A Matrix-WeChat PC hook bridge",
	Version:     "0.1.0",

	Connector: &connector.WeChatConnector{},
}

func main() {
	m.Run()
}
