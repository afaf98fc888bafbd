package feishu

import "encoding/json"

// extractTextBody parses the JSON content of a Feishu text message,
// {"text":"..."}, and returns the text field. Malformed content returns ""
// so the caller drops the message.
func extractTextBody(raw string) string {
	if raw == "" {
		return ""
	}
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return ""
	}
	return parsed.Text
}

// textContent builds the JSON content payload for an outbound text message.
func textContent(text string) string {
	payload, _ := json.Marshal(map[string]string{"text": text})
	return string(payload)
}

// deref safely dereferences a string pointer.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
