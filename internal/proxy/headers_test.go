package proxy

import (
	"net/http"
	"testing"
)

func TestOutboundHeaders(t *testing.T) {
	in := http.Header{
		"Host":                    {"localhost:4001"},
		"Content-Length":          {"123"},
		"Accept-Encoding":         {"gzip, br"},
		"Anthropic-Beta":          {"prompt-caching-2024-07-31"},
		"Anthropic-Beta-Features": {"x"},
		"Anthropic-Version":       {"2023-06-01"},
		"Authorization":           {"Bearer sk-local"},
		"X-Custom":                {"a", "b"},
	}

	out := outboundHeaders(in)

	for _, denied := range []string{"Host", "Content-Length", "Accept-Encoding", "Anthropic-Beta", "Anthropic-Beta-Features"} {
		if _, ok := out[denied]; ok {
			t.Errorf("%s was forwarded", denied)
		}
	}
	for _, kept := range []string{"Anthropic-Version", "Authorization"} {
		if out.Get(kept) != in.Get(kept) {
			t.Errorf("%s = %q, want %q", kept, out.Get(kept), in.Get(kept))
		}
	}
	if got := out.Values("X-Custom"); len(got) != 2 {
		t.Errorf("X-Custom = %v, want both values", got)
	}

	out["X-Custom"][0] = "changed"
	if in["X-Custom"][0] != "a" {
		t.Error("outboundHeaders shares value slices with its input")
	}
}

func TestCopyResponseHeaders(t *testing.T) {
	src := http.Header{
		"Content-Type":      {"application/json"},
		"Content-Length":    {"9999"},
		"Content-Encoding":  {"gzip"},
		"Transfer-Encoding": {"chunked"},
		"X-Litellm-Model":   {"claude-sonnet-4"},
	}
	dst := http.Header{}

	copyResponseHeaders(dst, src, 42)

	if got := dst.Get("Content-Length"); got != "42" {
		t.Errorf("Content-Length = %q, want 42", got)
	}
	for _, denied := range []string{"Content-Encoding", "Transfer-Encoding"} {
		if dst.Get(denied) != "" {
			t.Errorf("%s was relayed", denied)
		}
	}
	for _, kept := range []string{"Content-Type", "X-Litellm-Model"} {
		if dst.Get(kept) != src.Get(kept) {
			t.Errorf("%s = %q, want %q", kept, dst.Get(kept), src.Get(kept))
		}
	}
}
