// Copyright 2026 Tedrolin

package msgconv

import (
	"encoding/xml"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// appmsg discriminant values observed in the wild. The value space is
// owned by WeChat; unknown values fall back to raw text.
const (
	appMsgLink        = 5  // shared link or official-account push, split by showtype
	appMsgFileDone    = 6  // file-transfer-completed notice
	appMsgSticker     = 8  // third-party sticker, not forwardable
	appMsgSport       = 21 // WeChat Sport like notice
	appMsgMiniProgram = 33 // mini-program share card
	appMsgUnsupported = 51 // client-too-old card, may carry a video feed teaser
	appMsgQuote       = 57 // quoted reply
	appMsgLive        = 63 // live-stream card
	appMsgFileStart   = 74 // file-transfer-started notice, intentionally silent
)

// appMsgXML is the typed shape of a type-49 payload. Pointer fields
// distinguish absent elements from zero values; the absent-means-skip
// policy of the decoder depends on that.
type appMsgXML struct {
	XMLName xml.Name  `xml:"msg"`
	App     appMsgApp `xml:"appmsg"`
}

type appMsgApp struct {
	Type              *int    `xml:"type"`
	ShowType          *int    `xml:"showtype"`
	Title             *string `xml:"title"`
	Des               *string `xml:"des"`
	URL               *string `xml:"url"`
	ThumbURL          *string `xml:"thumburl"`
	SourceUsername    *string `xml:"sourceusername"`
	SourceDisplayName *string `xml:"sourcedisplayname"`

	MMReader   *mmReaderXML   `xml:"mmreader"`
	WeAppInfo  *weAppInfoXML  `xml:"weappinfo"`
	FinderFeed *finderFeedXML `xml:"finderFeed"`
	FinderLive *finderLiveXML `xml:"finderLive"`
	ReferMsg   *referMsgXML   `xml:"refermsg"`
}

type mmReaderXML struct {
	Category struct {
		Items []pushItemXML `xml:"item"`
	} `xml:"category"`
}

type pushItemXML struct {
	Title  *string `xml:"title"`
	URL    *string `xml:"url"`
	Digest *string `xml:"digest"`
	Cover  *string `xml:"cover"`
}

type weAppInfoXML struct {
	Username     string `xml:"username"`
	AppID        string `xml:"appid"`
	PagePath     string `xml:"pagepath"`
	WeAppIconURL string `xml:"weappiconurl"`
}

type finderFeedXML struct {
	Nickname  string `xml:"nickname"`
	Desc      string `xml:"desc"`
	MediaList struct {
		Media struct {
			CoverURL string `xml:"coverUrl"`
		} `xml:"media"`
	} `xml:"mediaList"`
}

type finderLiveXML struct {
	Nickname     string `xml:"nickname"`
	Desc         string `xml:"desc"`
	FinderLiveID string `xml:"finderLiveID"`
	Media        struct {
		CoverURL string `xml:"coverUrl"`
	} `xml:"media"`
}

type referMsgXML struct {
	Type        *int    `xml:"type"`
	DisplayName *string `xml:"displayname"`
	Content     *string `xml:"content"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// chksmRe matches the tracking-parameter suffix appended to
// official-account article URLs.
var chksmRe = regexp.MustCompile(`chksm=(.*?)#`)

// digestCaptionLimit is the caption length above which the tracking
// suffix is stripped before attaching to a cover image.
const digestCaptionLimit = 800

// AppMessage decodes a type-49 rich-content payload. The output per
// discriminant is fixed; any top-level extraction failure degrades to a
// single text message holding the raw payload, and only the
// file-transfer-started notice (74) yields zero messages by design.
func (c *Converter) AppMessage(raw string) []*Message {
	var doc appMsgXML
	if err := xml.Unmarshal([]byte(raw), &doc); err != nil || doc.App.Type == nil {
		return []*Message{Text(raw)}
	}

	switch *doc.App.Type {
	case appMsgLink:
		if doc.App.ShowType == nil {
			return []*Message{Text(raw)}
		}
		switch *doc.App.ShowType {
		case 0:
			return c.linkMessage(&doc.App)
		case 1:
			return c.pushDigest(&doc.App)
		default:
			return nil
		}
	case appMsgFileDone:
		return []*Message{Text(fmt.Sprintf(
			"接收到一个文件\n文件名: %s\n请到微信客户端查看", str(doc.App.Title)))}
	case appMsgSticker:
		return []*Message{Text("接收到一个不支持的表情\n请到微信客户端查看")}
	case appMsgSport:
		return []*Message{Text("🏃" + str(doc.App.Title))}
	case appMsgMiniProgram:
		return c.miniProgram(&doc.App)
	case appMsgUnsupported:
		return c.finderFeed(&doc.App)
	case appMsgQuote:
		return c.quotedReply(&doc.App, raw)
	case appMsgLive:
		return c.finderLive(&doc.App)
	case appMsgFileStart:
		// First of the two file-transfer notices. The completed notice
		// (type 6) is the one worth relaying.
		return nil
	default:
		return []*Message{Text(raw)}
	}
}

// linkMessage handles showtype 0: a link shared in a conversation,
// possibly forwarded from an official account. Title and URL are
// mandatory; without them nothing is emitted.
func (c *Converter) linkMessage(app *appMsgApp) []*Message {
	if app.Title == nil || app.URL == nil {
		return nil
	}
	msg := &Message{
		Kind: KindLink,
		Link: &LinkPreview{
			Title:       *app.Title,
			Description: str(app.Des),
			URL:         *app.URL,
			ImageURL:    str(app.ThumbURL),
		},
	}
	if app.SourceUsername != nil && app.SourceDisplayName != nil {
		msg.Text = fmt.Sprintf("\n转发自公众号【%s(id: %s)】\n\n",
			*app.SourceDisplayName, *app.SourceUsername)
		msg.Flags.OfficialAccount = true
	}
	return []*Message{msg}
}

// pushDigest handles showtype 1: an official-account push with one or
// more article items. Items render as HTML-escaped titles and digests,
// anchor-wrapped when a URL is present, concatenated into one message.
// With a cover image the text becomes the caption of an image message;
// without one it stays text.
func (c *Converter) pushDigest(app *appMsgApp) []*Message {
	var items []pushItemXML
	if app.MMReader != nil {
		items = app.MMReader.Category.Items
	}

	var cover string
	var sb strings.Builder
	for _, item := range items {
		if item.Title == nil || *item.Title == "" {
			continue
		}
		if cover == "" && item.Cover != nil {
			cover = strings.ReplaceAll(*item.Cover, "\n", "")
		}
		title := html.EscapeString(*item.Title)
		if item.URL != nil && *item.URL != "" {
			sb.WriteString(fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(*item.URL), title))
		} else {
			sb.WriteString(title)
		}
		if item.Digest != nil && *item.Digest != "" {
			sb.WriteString("\n" + html.EscapeString(*item.Digest))
		}
		sb.WriteString("\n\n")
	}
	content := sb.String()

	if cover == "" {
		return []*Message{Text(content)}
	}

	content = "\n" + content
	if len([]rune(content)) >= digestCaptionLimit {
		content = chksmRe.ReplaceAllString(content, "")
	}
	data, err := c.fetch(cover)
	if err != nil {
		c.log.Warn().Err(err).Str("url", cover).Msg("Failed to fetch push cover, degrading to text")
		return []*Message{Text(content)}
	}
	return []*Message{wrapImage(data, "", content)}
}

// miniProgram handles type 33: a mini-program share card rendered as
// the app icon with an identifying caption. A failed icon fetch emits
// nothing.
func (c *Converter) miniProgram(app *appMsgApp) []*Message {
	var info weAppInfoXML
	if app.WeAppInfo != nil {
		info = *app.WeAppInfo
	}
	name := str(app.Des)
	caption := fmt.Sprintf("小程序: %s\n分享: %s\n\nAppid: %s\nUsername: %s\nPath: %s",
		name, str(app.Title), info.AppID, info.Username, info.PagePath)
	data, err := c.fetch(info.WeAppIconURL)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to fetch mini-program icon, dropping card")
		return nil
	}
	return []*Message{wrapImage(data, name, caption)}
}

// finderFeed handles type 51: an unsupported-version card that may
// carry a short-video-feed teaser. With a cover the teaser becomes an
// image; otherwise the raw card title is emitted as text.
func (c *Converter) finderFeed(app *appMsgApp) []*Message {
	var feed finderFeedXML
	if app.FinderFeed != nil {
		feed = *app.FinderFeed
	}
	cover := feed.MediaList.Media.CoverURL
	if cover == "" {
		return []*Message{Text(str(app.Title))}
	}
	caption := fmt.Sprintf("视频号: %s\n内容: %s\n", feed.Nickname, feed.Desc)
	data, err := c.fetch(cover)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to fetch feed cover, degrading to text")
		return []*Message{Text(caption)}
	}
	return []*Message{wrapImage(data, "", caption)}
}

// quotedReply handles type 57. Text quotes are rendered inline; any
// other quoted kind gets an unsupported placeholder followed by the new
// text. Missing refermsg fields are a top-level failure and fall back
// to the raw payload.
func (c *Converter) quotedReply(app *appMsgApp, raw string) []*Message {
	if app.Title == nil || app.ReferMsg == nil ||
		app.ReferMsg.Type == nil || app.ReferMsg.DisplayName == nil || app.ReferMsg.Content == nil {
		return []*Message{Text(raw)}
	}
	var text string
	if *app.ReferMsg.Type == 1 {
		text = fmt.Sprintf("「%s:\n%s」\n----------------\n%s",
			*app.ReferMsg.DisplayName, *app.ReferMsg.Content, *app.Title)
	} else {
		text = fmt.Sprintf("「%s:\n系统消息：被引用的消息不是文本，暂不支持展示」\n\n%s",
			*app.ReferMsg.DisplayName, *app.Title)
	}
	msg := Text(text)
	msg.Flags.QuotedReply = true
	return []*Message{msg}
}

// finderLive handles type 63: a live-stream card rendered as the cover
// image with author, description and live id as caption.
func (c *Converter) finderLive(app *appMsgApp) []*Message {
	var live finderLiveXML
	if app.FinderLive != nil {
		live = *app.FinderLive
	}
	caption := fmt.Sprintf("视频号: %s\n内容: %s\nliveId: %s",
		live.Nickname, live.Desc, live.FinderLiveID)
	data, err := c.fetch(live.Media.CoverURL)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to fetch live cover, degrading to text")
		return []*Message{Text(caption)}
	}
	return []*Message{wrapImage(data, "", caption)}
}
