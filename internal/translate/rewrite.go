package translate

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// pendingSet holds the tool call ids of the most recent assistant message. Only
// those ids may be answered by the next user message.
type pendingSet map[string]struct{}

func (p pendingSet) has(id string) bool {
	_, ok := p[id]
	return ok
}

// rewriteMessages runs the single forward pass over messages and returns the
// rewritten array.
func rewriteMessages(messages gjson.Result, stats *Stats) ([]byte, error) {
	var out [][]byte
	var pending pendingSet

	for i, msg := range messages.Array() {
		stats.MessagesIn++

		if !msg.IsObject() {
			out = append(out, []byte(msg.Raw))
			continue
		}

		var rewritten [][]byte
		var err error
		switch msg.Get("role").String() {
		case "assistant":
			rewritten, pending, err = rewriteAssistant(msg, stats)
		case "user":
			rewritten, err = rewriteUser(msg, pending, stats)
			// Tool results are only valid directly after their assistant turn.
			pending = nil
		default:
			rewritten = [][]byte{stripCacheControl(msg)}
		}
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}

		out = append(out, rewritten...)
	}

	stats.MessagesOut = len(out)
	return joinRaw(out), nil
}

// rewriteAssistant moves tool_use blocks into tool_calls. It returns the rewritten
// message and the pending set it introduces, which replaces any previous one.
func rewriteAssistant(msg gjson.Result, stats *Stats) ([][]byte, pendingSet, error) {
	out := stripCacheControl(msg)
	existing, existingIDs := existingToolCalls(msg)

	pending := make(pendingSet, len(existingIDs))
	for _, id := range existingIDs {
		pending[id] = struct{}{}
	}

	content := msg.Get("content")
	if !content.IsArray() {
		return [][]byte{out}, pending, nil
	}

	var texts []string
	var calls []toolCall
	for _, item := range content.Array() {
		switch b := parseBlock(item).(type) {
		case ToolUseBlock:
			call := toToolCall(b)
			calls = append(calls, call)
			pending[call.ID] = struct{}{}
		case TextBlock:
			texts = append(texts, b.Text)
		}
	}

	if len(calls) == 0 {
		return [][]byte{out}, pending, nil
	}
	stats.ToolCalls += len(calls)

	toolCalls := existing
	for _, call := range calls {
		raw, err := marshalCompact(call)
		if err != nil {
			return nil, nil, fmt.Errorf("encode tool call %s: %w", call.ID, err)
		}
		toolCalls = append(toolCalls, raw)
	}

	// The backend requires content to be a string or null next to tool_calls.
	contentRaw := []byte("null")
	if len(texts) > 0 {
		var err error
		contentRaw, err = marshalCompact(strings.Join(texts, " "))
		if err != nil {
			return nil, nil, fmt.Errorf("encode content: %w", err)
		}
	}

	out, err := sjson.SetRawBytes(out, "content", contentRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("set content: %w", err)
	}
	out, err = sjson.SetRawBytes(out, "tool_calls", joinRaw(toolCalls))
	if err != nil {
		return nil, nil, fmt.Errorf("set tool_calls: %w", err)
	}

	return [][]byte{out}, pending, nil
}

// rewriteUser converts answerable tool_result blocks into role:tool messages
// appended after the user message, drops the orphaned ones and converts images.
// A user message left without content is dropped; its tool messages are not.
func rewriteUser(msg gjson.Result, pending pendingSet, stats *Stats) ([][]byte, error) {
	content := msg.Get("content")
	if !content.IsArray() {
		return [][]byte{stripCacheControl(msg)}, nil
	}

	var kept [][]byte
	var tools [][]byte
	for _, item := range content.Array() {
		switch b := parseBlock(item).(type) {
		case ToolResultBlock:
			if !pending.has(b.ToolUseID) {
				stats.OrphanedResults++
				continue
			}
			raw, err := marshalCompact(toToolMessage(b))
			if err != nil {
				return nil, fmt.Errorf("encode tool result %s: %w", b.ToolUseID, err)
			}
			tools = append(tools, raw)
			stats.ToolResults++

		case ImageBlock:
			part, ok := toImageURLPart(b)
			if !ok {
				kept = append(kept, b.JSON())
				continue
			}
			raw, err := marshalCompact(part)
			if err != nil {
				return nil, fmt.Errorf("encode image: %w", err)
			}
			kept = append(kept, raw)
			stats.Images++

		default:
			kept = append(kept, b.JSON())
		}
	}

	var out [][]byte
	if len(kept) > 0 {
		user, err := sjson.SetRawBytes(stripCacheControl(msg), "content", joinRaw(kept))
		if err != nil {
			return nil, fmt.Errorf("set content: %w", err)
		}
		out = append(out, user)
	} else {
		stats.DroppedMessages++
	}

	return append(out, tools...), nil
}
