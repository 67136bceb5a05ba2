package proxy

import (
	"net/http"
	"strconv"
	"strings"
)

// deniedRequestHeaders are never forwarded to the backend. Host and Content-Length
// are recomputed by the transport. Accept-Encoding is left to the transport so it
// can decompress the response transparently before it is relayed.
var deniedRequestHeaders = map[string]struct{}{
	"host":            {},
	"content-length":  {},
	"accept-encoding": {},
}

// anthropicBetaPrefix matches anthropic-beta and its variants.
const anthropicBetaPrefix = "anthropic-beta"

// deniedResponseHeaders are stale once the backend body has been buffered and decoded.
var deniedResponseHeaders = map[string]struct{}{
	"transfer-encoding": {},
	"content-encoding":  {},
	"content-length":    {},
}

// outboundHeaders returns the headers forwarded to the backend.
func outboundHeaders(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for key, values := range in {
		lower := strings.ToLower(key)
		if _, denied := deniedRequestHeaders[lower]; denied {
			continue
		}
		if strings.HasPrefix(lower, anthropicBetaPrefix) {
			continue
		}
		out[key] = append([]string(nil), values...)
	}
	return out
}

// copyResponseHeaders copies backend response headers onto dst and sets a
// Content-Length matching the relayed body.
func copyResponseHeaders(dst, src http.Header, bodyLen int) {
	for key, values := range src {
		if _, denied := deniedResponseHeaders[strings.ToLower(key)]; denied {
			continue
		}
		dst[key] = append([]string(nil), values...)
	}
	dst.Set("Content-Length", strconv.Itoa(bodyLen))
}
