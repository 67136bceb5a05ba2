// Package translate rewrites Anthropic-style chat requests into the dialect accepted
// by OpenAI-style chat-completions backends.
//
// A request is handled in two passes over the raw JSON body:
//
//   - Field stripping: a fixed deny-list of top-level fields the backend rejects
//     (tool_choice, thinking, reasoning_effort, ...) is removed, and every
//     cache_control hint is removed from system and from the messages.
//
//   - Message rewriting: a single forward pass over messages. Assistant tool_use
//     blocks become tool_calls; user tool_result blocks become role:tool messages,
//     but only when they answer a tool call of the immediately preceding assistant
//     message. Results that cannot be paired are dropped, as the backend rejects
//     them. Image blocks become image_url parts.
//
// Fields the translator does not recognize are kept byte-for-byte. Translate never
// fails on bad input: an empty or unparseable body is forwarded as an empty object.
package translate
