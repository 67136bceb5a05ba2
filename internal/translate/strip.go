package translate

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DeniedFields lists the top-level request fields the backend rejects or
// mishandles. They are removed unconditionally.
var DeniedFields = []string{
	"tool_choice",
	"thinking",
	"reasoning_effort",
	"extended_thinking",
	"budget_tokens",
	"metadata",
	"stream_options",
}

// cacheControlKey is the prompt caching hint the backend does not support.
const cacheControlKey = "cache_control"

// emptyEnvelope replaces bodies that are not a JSON object.
var emptyEnvelope = []byte("{}")

// normalizeEnvelope returns body when it is a JSON object, and an empty object
// otherwise. The boolean reports whether the body had to be replaced.
func normalizeEnvelope(body []byte) ([]byte, bool) {
	if len(body) == 0 {
		return emptyEnvelope, false
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return emptyEnvelope, true
	}
	return body, false
}

// stripCacheControl returns a compact copy of v without any cache_control member.
func stripCacheControl(v gjson.Result) []byte {
	return appendJSON(nil, v, compactStyle, cacheControlKey)
}

// Strip removes the denied top-level fields and every cache_control hint found in
// system or in messages. It returns the rewritten body and the names of the
// removed fields. Strip is idempotent.
func Strip(body []byte) ([]byte, []string, error) {
	body, _ = normalizeEnvelope(body)
	return stripEnvelope(body)
}

// stripEnvelope is Strip for a body already known to be a JSON object.
func stripEnvelope(body []byte) ([]byte, []string, error) {
	var removed []string
	for _, field := range DeniedFields {
		found := false
		// Duplicate keys are legal JSON; remove all of them.
		for gjson.GetBytes(body, field).Exists() {
			var err error
			body, err = sjson.DeleteBytes(body, field)
			if err != nil {
				return nil, nil, fmt.Errorf("delete field %s: %w", field, err)
			}
			found = true
		}
		if found {
			removed = append(removed, field)
		}
	}

	for _, field := range []string{"system", "messages"} {
		value := gjson.GetBytes(body, field)
		if !value.Exists() {
			continue
		}
		var err error
		body, err = sjson.SetRawBytes(body, field, stripCacheControl(value))
		if err != nil {
			return nil, nil, fmt.Errorf("strip %s from %s: %w", cacheControlKey, field, err)
		}
	}

	return body, removed, nil
}
