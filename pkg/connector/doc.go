// Copyright 2026 Tedrolin
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package connector implements a Matrix-WeChat bridge using the mautrix
// bridgev2 framework, speaking the WeChat PC hook protocol over a
// WebSocket.
//
// # Core Types
//
// [WeChatConnector] implements [bridgev2.NetworkConnector] and manages
// the bridge lifecycle and configuration.
//
// [WeChatClient] represents one WeChat account connection. It owns the
// hook transport, a session state machine that tracks login separately
// from connectivity, the roster [Directory], and the inbound and
// outbound message paths.
//
// [Directory] caches contacts and chat rooms delivered by the hook
// server. The roster arrives asynchronously, so refreshes block until
// delivery and concurrent refreshes coalesce into one fetch.
//
// # Message Decoding
//
// Raw hook events are normalized by the msgconv sub-package before they
// touch Matrix. The decoder is total: undecodable payloads degrade to
// text carrying the raw content instead of being dropped.
package connector
