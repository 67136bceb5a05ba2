package translate

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestToolArguments(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  string
	}{
		{"object", `{"input": {"x": 1}}`, `{"x": 1}`},
		{"key order preserved", `{"input": {"b": 1, "a": {"d": [1, 2], "c": null}}}`, `{"b": 1, "a": {"d": [1, 2], "c": null}}`},
		{"compact source", `{"input":{"path":"a.go","lines":[1,2]}}`, `{"path": "a.go", "lines": [1, 2]}`},
		{"number literal kept", `{"input": {"n": 1.50}}`, `{"n": 1.50}`},
		{"string escapes kept", `{"input": {"s": "a\"bé"}}`, `{"s": "a\"bé"}`},
		{"string input", `{"input": "{\"already\": true}"}`, `{"already": true}`},
		{"number input", `{"input": 42}`, `42`},
		{"bool input", `{"input": true}`, `true`},
		{"array input", `{"input": [1, "a"]}`, `[1, "a"]`},
		{"empty object", `{"input": {}}`, `{}`},
		{"missing input", `{}`, `{}`},
		{"null input", `{"input": null}`, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := gjson.Get(tt.block, "input")
			if got := toolArguments(input); got != tt.want {
				t.Errorf("toolArguments() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFlattenToolResult(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  string
	}{
		{"string", `{"content": "ok"}`, "ok"},
		{"text blocks", `{"content": [{"type": "text", "text": "a"}, {"type": "text", "text": "b"}]}`, "a\nb"},
		{"non-text blocks skipped", `{"content": [{"type": "image", "source": {}}, {"type": "text", "text": "only"}]}`, "only"},
		{"bare strings in list", `{"content": ["x", "y"]}`, "x\ny"},
		{"object with text", `{"content": {"type": "text", "text": "single"}}`, "single"},
		{"object without text", `{"content": {"exit_code": 0}}`, `{"exit_code":0}`},
		{"content_text fallback", `{"content_text": "from content_text"}`, "from content_text"},
		{"number", `{"content": 3}`, "3"},
		{"nothing", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ToolResultBlock{
				Content:     gjson.Get(tt.block, "content"),
				ContentText: gjson.Get(tt.block, "content_text"),
			}
			if got := flattenToolResult(b); got != tt.want {
				t.Errorf("flattenToolResult() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseBlock(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"text", `{"type": "text", "text": "hi"}`, "TextBlock"},
		{"tool_use", `{"type": "tool_use", "id": "a"}`, "ToolUseBlock"},
		{"tool_result", `{"type": "tool_result", "tool_use_id": "a"}`, "ToolResultBlock"},
		{"image", `{"type": "image", "source": {"type": "url", "url": "u"}}`, "ImageBlock"},
		{"unknown", `{"type": "document"}`, "OtherBlock"},
		{"untyped", `{"text": "no type"}`, "OtherBlock"},
		{"scalar", `"plain"`, "OtherBlock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			switch parseBlock(gjson.Parse(tt.raw)).(type) {
			case TextBlock:
				got = "TextBlock"
			case ToolUseBlock:
				got = "ToolUseBlock"
			case ToolResultBlock:
				got = "ToolResultBlock"
			case ImageBlock:
				got = "ImageBlock"
			case OtherBlock:
				got = "OtherBlock"
			}
			if got != tt.want {
				t.Errorf("parseBlock() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseBlock_StripsCacheControl(t *testing.T) {
	b := parseBlock(gjson.Parse(`{"type": "document", "cache_control": {"type": "ephemeral"}, "source": {"cache_control": 1, "data": "x"}}`))

	if got, want := string(b.JSON()), `{"type":"document","source":{"data":"x"}}`; got != want {
		t.Errorf("JSON() = %s, want %s", got, want)
	}
}
