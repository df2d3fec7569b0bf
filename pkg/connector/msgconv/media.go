// Copyright 2026 Tedrolin

package msgconv

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.mau.fi/util/exmime"
)

// FetchFunc retrieves remote bytes by URL. The default implementation
// uses http.Get; tests inject a fake.
type FetchFunc func(url string) ([]byte, error)

// maxFetchSize caps remote thumbnail downloads (8 MiB).
const maxFetchSize = 8 << 20

// FetchURL is the default fetcher. It is exported for callers outside
// the decoder that need the same size-capped HTTP download, such as
// avatar syncing.
func FetchURL(url string) ([]byte, error) {
	return fetchURL(url)
}

func fetchURL(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", url, err)
	}
	return data, nil
}

// decodeInlineImage decodes the base64Content field of an image event.
// The hook server sends it as a data URI, but bare base64 is accepted
// too.
func decodeInlineImage(content string) ([]byte, error) {
	if idx := strings.Index(content, ";base64,"); idx >= 0 {
		content = content[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode inline image: %w", err)
	}
	return data, nil
}

// wrapImage builds an image or animation message from raw bytes. The
// MIME type is sniffed from the content; anything gif-like becomes an
// animation. An empty filename gets a generic name with an extension
// derived from the sniffed type.
func wrapImage(data []byte, fileName, caption string) *Message {
	mime := http.DetectContentType(data)
	kind := KindImage
	if strings.Contains(mime, "gif") {
		kind = KindAnimation
	}
	if fileName == "" {
		fileName = "image" + exmime.ExtensionFromMimetype(mime)
	}
	return &Message{
		Kind: kind,
		Text: caption,
		Attachment: &Attachment{
			Data:     data,
			MimeType: mime,
			FileName: fileName,
		},
	}
}
