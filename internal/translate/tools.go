package translate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// toolCall is the chat-completions tool call descriptor.
type toolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function toolCallFunction `json:"function"`
}

type toolCallFunction struct {
	Name string `json:"name"`
	// Arguments is JSON text, not an object.
	Arguments string `json:"arguments"`
}

// toolMessage is the chat-completions message carrying one tool result.
type toolMessage struct {
	Role       string `json:"role"`
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
}

// toToolCall converts a tool_use block into a tool call descriptor. A block without
// an id gets a generated one because the backend requires it.
func toToolCall(b ToolUseBlock) toolCall {
	id := b.ID
	if id == "" {
		id = newToolCallID()
	}
	return toolCall{
		ID:   id,
		Type: "function",
		Function: toolCallFunction{
			Name:      b.Name,
			Arguments: toolArguments(b.Input),
		},
	}
}

// toolArguments serializes a tool_use input. Objects and arrays are emitted with
// spaced separators in their original key order; a string input is already
// serialized and passes through; other scalars use their JSON literal.
func toolArguments(input gjson.Result) string {
	switch {
	case !input.Exists() || input.Type == gjson.Null:
		return "{}"
	case input.Type == gjson.String:
		return input.Str
	case input.IsObject() || input.IsArray():
		return string(appendJSON(nil, input, spacedStyle, ""))
	default:
		return input.Raw
	}
}

// toToolMessage converts a tool_result block into a role:tool message.
func toToolMessage(b ToolResultBlock) toolMessage {
	return toolMessage{
		Role:       "tool",
		ToolCallID: b.ToolUseID,
		Content:    flattenToolResult(b),
	}
}

// flattenToolResult reduces tool_result content to the plain string the backend
// expects. Lists keep only their text blocks, joined by newlines.
func flattenToolResult(b ToolResultBlock) string {
	content := b.Content
	switch {
	case content.Type == gjson.String:
		return content.Str

	case content.IsArray():
		var texts []string
		for _, item := range content.Array() {
			if item.Type == gjson.String {
				texts = append(texts, item.Str)
				continue
			}
			if item.Get("type").String() == "text" {
				texts = append(texts, item.Get("text").String())
			}
		}
		return strings.Join(texts, "\n")

	case content.IsObject():
		if text := content.Get("text"); text.Exists() {
			return text.String()
		}
		return string(appendJSON(nil, content, compactStyle, ""))

	case !content.Exists() || content.Type == gjson.Null:
		return b.ContentText.String()

	default:
		return content.Raw
	}
}

// existingToolCalls returns the tool calls a message already carries in
// chat-completions form, and their ids.
func existingToolCalls(msg gjson.Result) ([][]byte, []string) {
	calls := msg.Get("tool_calls")
	if !calls.IsArray() {
		return nil, nil
	}

	var raws [][]byte
	var ids []string
	for _, call := range calls.Array() {
		raws = append(raws, stripCacheControl(call))
		if id := call.Get("id").String(); id != "" {
			ids = append(ids, id)
		}
	}
	return raws, ids
}

// marshalCompact encodes v as compact JSON without HTML escaping.
func marshalCompact(v any) ([]byte, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return []byte(strings.TrimSuffix(sb.String(), "\n")), nil
}

// newToolCallID generates a chat-completions style tool call id (call_<8 hex>).
func newToolCallID() string {
	return fmt.Sprintf("call_%s", uuid.New().String()[:8])
}
