package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// replyInstructions is appended to every agent's system prompt.
const replyInstructions = `

When you have the final answer, respond with only a JSON object of the form
{"answer": "<your answer in markdown>", "followups": ["<short follow-up question>", ...]}
with up to three followups. Do not wrap it in any other text.`

// parseReply decodes a structured reply, tolerating a surrounding markdown
// code fence. It returns the reply and its normalized JSON text.
func parseReply(content string) (*Reply, string, error) {
	text := stripCodeFence(content)
	if !strings.HasPrefix(text, "{") {
		return nil, "", fmt.Errorf("%w: not a JSON object", ErrMalformedReply)
	}

	var raw struct {
		Answer    *string  `json:"answer"`
		Followups []string `json:"followups"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrMalformedReply, err)
	}
	if raw.Answer == nil {
		return nil, "", fmt.Errorf("%w: missing answer", ErrMalformedReply)
	}

	reply := &Reply{Answer: *raw.Answer, Followups: raw.Followups}
	if reply.Followups == nil {
		reply.Followups = []string{}
	}

	normalized, err := json.Marshal(reply)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrMalformedReply, err)
	}

	return reply, string(normalized), nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop the info string, e.g. "json"
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DecodeReply extracts the answer from stored assistant text. ok is false
// when the text is not a structured reply.
func DecodeReply(text string) (answer string, ok bool) {
	reply, _, err := parseReply(text)
	if err != nil {
		return "", false
	}
	return reply.Answer, true
}
