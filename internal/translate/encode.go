package translate

import "github.com/tidwall/gjson"

// jsonStyle selects the separators used when re-emitting JSON.
type jsonStyle struct {
	comma string
	colon string
}

var (
	// compactStyle is used for everything forwarded to the backend.
	compactStyle = jsonStyle{comma: ",", colon: ":"}

	// spacedStyle matches the separators tool arguments carry in chat-completions
	// traffic, e.g. {"x": 1, "y": [1, 2]}.
	spacedStyle = jsonStyle{comma: ", ", colon: ": "}
)

// appendJSON re-emits v onto dst in document order. Object members named dropKey
// are omitted at every depth. Scalars are copied verbatim from the source, so
// number literals and string escapes survive unchanged.
func appendJSON(dst []byte, v gjson.Result, style jsonStyle, dropKey string) []byte {
	switch {
	case v.IsObject():
		dst = append(dst, '{')
		first := true
		v.ForEach(func(key, value gjson.Result) bool {
			if dropKey != "" && key.Str == dropKey {
				return true
			}
			if !first {
				dst = append(dst, style.comma...)
			}
			first = false
			dst = append(dst, key.Raw...)
			dst = append(dst, style.colon...)
			dst = appendJSON(dst, value, style, dropKey)
			return true
		})
		return append(dst, '}')

	case v.IsArray():
		dst = append(dst, '[')
		first := true
		v.ForEach(func(_, value gjson.Result) bool {
			if !first {
				dst = append(dst, style.comma...)
			}
			first = false
			dst = appendJSON(dst, value, style, dropKey)
			return true
		})
		return append(dst, ']')

	case !v.Exists():
		return append(dst, "null"...)

	default:
		return append(dst, v.Raw...)
	}
}

// joinRaw builds a JSON array from already-encoded elements.
func joinRaw(items [][]byte) []byte {
	size := 2
	for _, item := range items {
		size += len(item) + 1
	}

	out := make([]byte, 0, size)
	out = append(out, '[')
	for i, item := range items {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, item...)
	}
	return append(out, ']')
}
