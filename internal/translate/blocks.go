package translate

import "github.com/tidwall/gjson"

// Block is one element of a message content array. The set of variants is closed:
// TextBlock, ToolUseBlock, ToolResultBlock, ImageBlock and OtherBlock, the latter
// being the single fallback for every type the rewriter does not act on.
type Block interface {
	// JSON returns the block as received, minus any cache_control member.
	JSON() []byte

	block()
}

// TextBlock is {"type":"text","text":...}.
type TextBlock struct {
	Text string
	raw  []byte
}

// ToolUseBlock is an assistant request to call a tool.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input gjson.Result
	raw   []byte
}

// ToolResultBlock answers the tool_use block with the same id.
type ToolResultBlock struct {
	ToolUseID string
	Content   gjson.Result
	// ContentText is an alternative text payload some clients send instead of content.
	ContentText gjson.Result
	raw         []byte
}

// ImageBlock carries an image either inline or by reference.
type ImageBlock struct {
	Source ImageSource
	// URL is a top-level url some clients put on the block instead of a source.
	URL string
	raw []byte
}

// ImageSource is the source of an ImageBlock.
type ImageSource struct {
	Type      string
	MediaType string
	Data      string
	URL       string
}

// OtherBlock is any block the rewriter passes through, including non-object items.
type OtherBlock struct {
	Type string
	raw  []byte
}

func (b TextBlock) JSON() []byte       { return b.raw }
func (b ToolUseBlock) JSON() []byte    { return b.raw }
func (b ToolResultBlock) JSON() []byte { return b.raw }
func (b ImageBlock) JSON() []byte      { return b.raw }
func (b OtherBlock) JSON() []byte      { return b.raw }

func (TextBlock) block()       {}
func (ToolUseBlock) block()    {}
func (ToolResultBlock) block() {}
func (ImageBlock) block()      {}
func (OtherBlock) block()      {}

// parseBlock decodes one content item into its variant.
func parseBlock(v gjson.Result) Block {
	raw := stripCacheControl(v)
	if !v.IsObject() {
		return OtherBlock{raw: raw}
	}

	typ := v.Get("type").String()
	switch typ {
	case "text":
		return TextBlock{
			Text: v.Get("text").String(),
			raw:  raw,
		}

	case "tool_use":
		return ToolUseBlock{
			ID:    v.Get("id").String(),
			Name:  v.Get("name").String(),
			Input: v.Get("input"),
			raw:   raw,
		}

	case "tool_result":
		return ToolResultBlock{
			ToolUseID:   v.Get("tool_use_id").String(),
			Content:     v.Get("content"),
			ContentText: v.Get("content_text"),
			raw:         raw,
		}

	case "image":
		source := v.Get("source")
		return ImageBlock{
			Source: ImageSource{
				Type:      source.Get("type").String(),
				MediaType: source.Get("media_type").String(),
				Data:      source.Get("data").String(),
				URL:       source.Get("url").String(),
			},
			URL: v.Get("url").String(),
			raw: raw,
		}

	default:
		return OtherBlock{Type: typ, raw: raw}
	}
}
