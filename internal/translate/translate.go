package translate

import (
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Stats describes what Translate changed in a request.
type Stats struct {
	// MalformedInput is set when the body was not a JSON object and was replaced
	// by an empty one.
	MalformedInput bool
	RemovedFields  []string

	MessagesIn  int
	MessagesOut int

	ToolCalls       int
	ToolResults     int
	OrphanedResults int
	Images          int
	DroppedMessages int
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("removed_fields", s.RemovedFields),
		slog.Int("messages_in", s.MessagesIn),
		slog.Int("messages_out", s.MessagesOut),
		slog.Int("tool_calls", s.ToolCalls),
		slog.Int("tool_results", s.ToolResults),
		slog.Int("orphaned_results", s.OrphanedResults),
		slog.Int("images", s.Images),
		slog.Int("dropped_messages", s.DroppedMessages),
	)
}

// Changed reports whether Translate did anything beyond re-encoding.
func (s Stats) Changed() bool {
	return s.MalformedInput ||
		len(s.RemovedFields) > 0 ||
		s.MessagesIn != s.MessagesOut ||
		s.ToolCalls > 0 ||
		s.ToolResults > 0 ||
		s.OrphanedResults > 0 ||
		s.Images > 0
}

// Translate rewrites a client request body into a backend request body.
//
// Translate holds no state between calls and is safe for concurrent use. Input
// problems never produce an error: a body that is not a JSON object is treated as
// an empty one. An error means the rewrite itself failed.
func Translate(body []byte) ([]byte, Stats, error) {
	var stats Stats

	body, stats.MalformedInput = normalizeEnvelope(body)

	body, removed, err := stripEnvelope(body)
	if err != nil {
		return nil, stats, err
	}
	stats.RemovedFields = removed

	messages := gjson.GetBytes(body, "messages")
	if !messages.IsArray() {
		return body, stats, nil
	}

	rewritten, err := rewriteMessages(messages, &stats)
	if err != nil {
		return nil, stats, fmt.Errorf("rewrite messages: %w", err)
	}

	body, err = sjson.SetRawBytes(body, "messages", rewritten)
	if err != nil {
		return nil, stats, fmt.Errorf("set messages: %w", err)
	}

	return body, stats, nil
}
