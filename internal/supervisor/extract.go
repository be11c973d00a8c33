package supervisor

import "strings"

// The completion endpoint's response shape is not under our control: across
// server versions the assistant text has been observed under choices[],
// message/delta objects, plain top-level fields, chunked content arrays and
// nested reasoning substructures. Extraction is a recursive case analysis
// over that union; the first non-empty string in priority order wins.

// messageKeys are the text-bearing fields checked on message-like objects,
// in priority order.
var messageKeys = []string{"content", "reasoning_content", "reasoning", "text"}

// extractText pulls the assistant text out of a decoded completion document.
func extractText(doc map[string]any) (string, bool) {
	if choices, ok := doc["choices"].([]any); ok {
		for _, c := range choices {
			choice, ok := c.(map[string]any)
			if !ok {
				continue
			}
			for _, key := range []string{"message", "delta"} {
				if msg, ok := choice[key].(map[string]any); ok {
					if s, ok := messageText(msg); ok {
						return s, true
					}
				}
			}
			if s, ok := textFromValue(choice["text"]); ok {
				return s, true
			}
		}
	}
	if msg, ok := doc["message"].(map[string]any); ok {
		if s, ok := messageText(msg); ok {
			return s, true
		}
	}
	for _, key := range []string{"content", "text", "response"} {
		if s, ok := textFromValue(doc[key]); ok {
			return s, true
		}
	}
	return "", false
}

// messageText checks the known text-bearing fields of a message object.
func messageText(msg map[string]any) (string, bool) {
	for _, key := range messageKeys {
		if s, ok := textFromValue(msg[key]); ok {
			return s, true
		}
	}
	return "", false
}

// textFromValue unwraps a content value: a plain string, an array of
// heterogeneous chunks, or an object carrying one of the known keys.
func textFromValue(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		if strings.TrimSpace(val) != "" {
			return val, true
		}
	case []any:
		var parts []string
		for _, item := range val {
			if s, ok := textFromValue(item); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n"), true
		}
	case map[string]any:
		return messageText(val)
	}
	return "", false
}
