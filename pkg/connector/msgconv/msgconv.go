// Copyright 2026 Tedrolin
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package msgconv decodes raw WeChat PC hook events into a closed set of
// normalized message variants.
//
// The decoder is total: every input produces a defined outcome, and all
// internal failures degrade to a text fallback carrying the original raw
// content instead of dropping the event. The single documented exception
// is the file-transfer-started notice (appmsg type 74), which produces
// zero messages on purpose.
package msgconv

import (
	"encoding/xml"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/tedrolin/mautrix-wechatpc/pkg/wechatpc"
)

// Converter turns raw inbound events into normalized messages.
type Converter struct {
	log   zerolog.Logger
	fetch FetchFunc
}

// New creates a Converter with the default HTTP fetcher.
func New(log zerolog.Logger) *Converter {
	return &Converter{log: log, fetch: fetchURL}
}

// SetFetcher overrides the remote image fetcher. Used by tests.
func (c *Converter) SetFetcher(fetch FetchFunc) {
	c.fetch = fetch
}

type handlerFunc func(c *Converter, msg *wechatpc.Message) []*Message

// typeHandlers is the live dispatch table keyed by the platform's
// numeric message kind. Only plain text and images are decoded today;
// every other kind falls through to a raw-text fallback. The remaining
// handlers below exist behind the same contract and can be wired in by
// adding an entry here.
var typeHandlers = map[int]handlerFunc{
	1: (*Converter).TextMessage,
	3: (*Converter).ImageMessage,
}

// Convert normalizes one inbound event. It never panics and never
// returns an error; undecodable input comes back as a text message
// holding the raw content.
func (c *Converter) Convert(msg *wechatpc.Message) []*Message {
	handler, ok := typeHandlers[msg.MsgType]
	if !ok {
		return []*Message{Text(msg.Content)}
	}
	return handler(c, msg)
}

// TextMessage handles plain text (kind 1): bracket-emoji tokens are
// substituted before wrapping.
func (c *Converter) TextMessage(msg *wechatpc.Message) []*Message {
	return []*Message{Text(ReplaceEmoji(msg.Content))}
}

// imageFallbackText is emitted when an image event carries no usable
// inline bytes.
const imageFallbackText = "Image received. Please check it on your phone."

// ImageMessage handles images (kind 3). Inline base64 bytes are decoded
// and wrapped with a sniffed MIME type; without usable bytes the user is
// pointed at the native client instead.
func (c *Converter) ImageMessage(msg *wechatpc.Message) []*Message {
	if msg.ImageFile != nil && msg.ImageFile.Base64Content != "" {
		data, err := decodeInlineImage(msg.ImageFile.Base64Content)
		if err == nil {
			return []*Message{wrapImage(data, "", "")}
		}
		c.log.Warn().Err(err).Msg("Failed to decode inline image")
	}
	return []*Message{Text(imageFallbackText)}
}

// pushMailXML is the document shape of a mail notice.
type pushMailXML struct {
	XMLName  xml.Name `xml:"msg"`
	PushMail struct {
		Content struct {
			Subject string `xml:"subject"`
			Sender  string `xml:"sender"`
		} `xml:"content"`
		WapLink string `xml:"waplink"`
	} `xml:"pushmail"`
}

// MailMessage renders a mail notice (sender, subject, link) as text.
func (c *Converter) MailMessage(content string) []*Message {
	var doc pushMailXML
	if err := xml.Unmarshal([]byte(content), &doc); err != nil {
		return []*Message{Text(content)}
	}
	return []*Message{Text("发件人: " + doc.PushMail.Content.Sender +
		"\n标题：" + doc.PushMail.Content.Subject +
		"\n地址:" + doc.PushMail.WapLink)}
}

// contactCardXML is the document shape of an official-account card.
// All interesting fields live in attributes on the root element.
type contactCardXML struct {
	XMLName    xml.Name `xml:"msg"`
	HeadImgURL string   `xml:"smallheadimgurl,attr"`
	Nickname   string   `xml:"nickname,attr"`
	CertInfo   string   `xml:"certinfo,attr"`
}

// ContactCardMessage renders an official-account recommendation card as
// an image with the account name and description as caption. If either
// parsing or the avatar fetch fails, no message is produced.
func (c *Converter) ContactCardMessage(content string) []*Message {
	var doc contactCardXML
	if err := xml.Unmarshal([]byte(content), &doc); err != nil {
		return nil
	}
	caption := "\n 公众号: " + doc.Nickname + "\n简介: " + doc.CertInfo
	data, err := c.fetch(doc.HeadImgURL)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to fetch contact card avatar")
		return nil
	}
	return []*Message{wrapImage(data, doc.Nickname, caption)}
}

// VoiceNotice renders the fixed check-your-client notice for voice
// messages, whose audio never reaches the hook server.
func (c *Converter) VoiceNotice() []*Message {
	return []*Message{Text("您有一条语音消息，请在微信客户端查看")}
}

// VideoNotice renders the fixed check-your-client notice for video
// messages.
func (c *Converter) VideoNotice() []*Message {
	return []*Message{Text("您有一条视频消息，请在微信客户端查看")}
}

// locationXML is the document shape of a location share.
type locationXML struct {
	XMLName  xml.Name `xml:"msg"`
	Location struct {
		X       string `xml:"x,attr"`
		Y       string `xml:"y,attr"`
		POIName string `xml:"poiname,attr"`
	} `xml:"location"`
}

// LocationMessage decodes a shared location into coordinates plus the
// point-of-interest name. Missing coordinates degrade to a text notice.
func (c *Converter) LocationMessage(content string) []*Message {
	const fallback = "📌位置获取失败，请在微信客户端查看"
	var doc locationXML
	if err := xml.Unmarshal([]byte(content), &doc); err != nil {
		return []*Message{Text(fallback)}
	}
	if doc.Location.X == "" || doc.Location.Y == "" {
		return []*Message{Text(fallback)}
	}
	lat, latErr := strconv.ParseFloat(doc.Location.X, 64)
	long, longErr := strconv.ParseFloat(doc.Location.Y, 64)
	if latErr != nil || longErr != nil {
		return []*Message{Text(fallback)}
	}
	return []*Message{{
		Kind:     KindLocation,
		Text:     doc.Location.POIName,
		Location: &GeoPoint{Latitude: lat, Longitude: long},
	}}
}
