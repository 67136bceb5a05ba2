package translate

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// defaultImageMediaType is used when a base64 source declares no media type and
// the data cannot be sniffed.
const defaultImageMediaType = "image/jpeg"

// sniffLen is the base64 prefix length decoded for content sniffing (512 bytes).
const sniffLen = 684

// imageURLPart is the chat-completions image content part.
type imageURLPart struct {
	Type     string   `json:"type"`
	ImageURL imageURL `json:"image_url"`
}

type imageURL struct {
	URL string `json:"url"`
}

// imageURLFor returns the URL an image block is forwarded as, or "" when the block
// carries no usable location. Base64 sources become data URLs.
func imageURLFor(b ImageBlock) string {
	switch b.Source.Type {
	case "base64":
		if b.Source.Data != "" {
			mediaType := b.Source.MediaType
			if mediaType == "" {
				mediaType = detectImageMediaType(b.Source.Data)
			}
			return "data:" + mediaType + ";base64," + b.Source.Data
		}
	case "url":
		if b.Source.URL != "" {
			return b.Source.URL
		}
	}
	return b.URL
}

// toImageURLPart converts an image block. The boolean is false when the block has
// no URL to convert to.
func toImageURLPart(b ImageBlock) (imageURLPart, bool) {
	url := imageURLFor(b)
	if url == "" {
		return imageURLPart{}, false
	}
	return imageURLPart{
		Type:     "image_url",
		ImageURL: imageURL{URL: url},
	}, true
}

// detectImageMediaType sniffs the media type of base64 image data, falling back to
// image/jpeg for anything that is not recognizably an image.
func detectImageMediaType(data string) string {
	prefix := data
	if len(prefix) > sniffLen {
		prefix = prefix[:sniffLen]
	}

	decoded, err := base64.StdEncoding.DecodeString(prefix)
	if err != nil {
		return defaultImageMediaType
	}

	if detected := http.DetectContentType(decoded); strings.HasPrefix(detected, "image/") {
		return detected
	}
	return defaultImageMediaType
}
