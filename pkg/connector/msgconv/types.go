// Copyright 2026 Tedrolin

package msgconv

// Kind is the closed set of normalized message variants.
type Kind int

const (
	KindText Kind = iota
	KindImage
	KindAnimation
	KindLink
	KindLocation
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindAnimation:
		return "animation"
	case KindLink:
		return "link"
	case KindLocation:
		return "location"
	default:
		return "unknown"
	}
}

// Attachment holds decoded binary content with its sniffed MIME type.
type Attachment struct {
	Data     []byte
	MimeType string
	FileName string
}

// LinkPreview holds the attributes of a shared link.
type LinkPreview struct {
	Title       string
	Description string
	URL         string
	ImageURL    string
}

// GeoPoint holds the coordinates of a location message.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// Flags carries vendor-specific markers preserved from the source
// payload.
type Flags struct {
	// OfficialAccount marks content forwarded from an official account.
	OfficialAccount bool
	// QuotedReply marks a rendered quoted-reply message.
	QuotedReply bool
}

// Message is a single normalized message. Exactly one Kind is set;
// Attachment is present only for image and animation kinds. Author and
// chat attribution is added by the connector, not here.
type Message struct {
	Kind       Kind
	Text       string
	Attachment *Attachment
	Link       *LinkPreview
	Location   *GeoPoint
	Flags      Flags
}

// Text wraps plain text as a normalized text message.
func Text(text string) *Message {
	return &Message{Kind: KindText, Text: text}
}
