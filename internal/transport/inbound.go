package transport

import (
	"encoding/json"
	"fmt"
	"io"
)

// InboundType tags the inbound payload variants the bot reacts to.
type InboundType string

const (
	InboundText          InboundType = "text"
	InboundPicture       InboundType = "picture"
	InboundStartChatting InboundType = "start-chatting"
)

// Inbound is one message received on the webhook.
type Inbound struct {
	Type      InboundType `json:"type"`
	FromUser  string      `json:"from"`
	ChatID    string      `json:"chatId"`
	Body      string      `json:"body,omitempty"`
	PicURL    string      `json:"picUrl,omitempty"`
	FirstName string      `json:"firstName,omitempty"`
	LastName  string      `json:"lastName,omitempty"`
	GroupChat bool        `json:"groupChat,omitempty"`
}

type inboundEnvelope struct {
	Messages []Inbound `json:"messages"`
}

// DecodeInbound parses a webhook request body into its messages.
func DecodeInbound(r io.Reader) ([]Inbound, error) {
	var envelope inboundEnvelope
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode inbound payload: %w", err)
	}
	return envelope.Messages, nil
}
