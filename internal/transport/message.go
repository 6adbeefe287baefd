// Package transport carries chat messages between the bot and its
// messaging platform: inbound webhook payloads, outbound batched sends,
// and picture up/downloads.
package transport

import "strings"

// MaxBodyLength is the platform's per-message text limit. Longer bodies
// are split across messages, preferring newline boundaries.
const MaxBodyLength = 1500

// Message is one outbound chat message.
type Message struct {
	Body     string
	Keyboard []string // suggested reply labels, shown on the last chunk
	PicURL   string   // set for picture messages, Body ignored
}

// SplitBody breaks a body into chunks of at most MaxBodyLength runes,
// cutting at the last newline inside the window when one exists.
func SplitBody(body string) []string {
	runes := []rune(body)
	if len(runes) <= MaxBodyLength {
		return []string{body}
	}

	var chunks []string
	for len(runes) > MaxBodyLength {
		cut := MaxBodyLength
		if idx := strings.LastIndex(string(runes[:MaxBodyLength]), "\n"); idx > 0 {
			cut = len([]rune(string(runes[:MaxBodyLength])[:idx]))
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
		for len(runes) > 0 && runes[0] == '\n' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// Expand splits over-long text messages into multiple messages. Keyboards
// ride on the final chunk so follow-up suggestions appear after the full
// text.
func Expand(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.PicURL != "" {
			out = append(out, msg)
			continue
		}
		chunks := SplitBody(msg.Body)
		for i, chunk := range chunks {
			expanded := Message{Body: chunk}
			if i == len(chunks)-1 {
				expanded.Keyboard = msg.Keyboard
			}
			out = append(out, expanded)
		}
	}
	return out
}
