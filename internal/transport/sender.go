package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Batch limits imposed by the messaging platform.
const (
	maxBatchSize      = 25
	maxPerUserInBatch = 5
)

// Sender delivers outbound messages to one user.
type Sender interface {
	Send(ctx context.Context, toUserID, chatID string, msgs []Message) error
}

// HTTPSender posts message batches to the platform's send endpoint,
// honoring the per-batch and per-user limits and pacing batches with a
// rate limiter.
type HTTPSender struct {
	endpoint    string
	botUsername string
	apiKey      string
	client      *http.Client
	limiter     *rate.Limiter
}

// NewHTTPSender creates a sender for the platform endpoint authenticated
// with the bot's credentials.
func NewHTTPSender(endpoint, botUsername, apiKey string) *HTTPSender {
	return &HTTPSender{
		endpoint:    endpoint,
		botUsername: botUsername,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: 30 * time.Second},
		// One batch per second keeps bursts inside the platform's quota.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

type outboundMessage struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	To       string   `json:"to"`
	ChatID   string   `json:"chatId,omitempty"`
	Body     string   `json:"body,omitempty"`
	PicURL   string   `json:"picUrl,omitempty"`
	Keyboard []string `json:"keyboards,omitempty"`
}

type outboundEnvelope struct {
	Messages []outboundMessage `json:"messages"`
}

// Send expands, batches and posts the messages. Over-long bodies are
// split first; batches never exceed maxBatchSize messages or
// maxPerUserInBatch messages for the recipient.
func (s *HTTPSender) Send(ctx context.Context, toUserID, chatID string, msgs []Message) error {
	if s == nil {
		return fmt.Errorf("sender is not configured")
	}

	expanded := Expand(msgs)
	batchLimit := maxPerUserInBatch
	if batchLimit > maxBatchSize {
		batchLimit = maxBatchSize
	}

	for start := 0; start < len(expanded); start += batchLimit {
		end := start + batchLimit
		if end > len(expanded) {
			end = len(expanded)
		}
		if err := s.postBatch(ctx, toUserID, chatID, expanded[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *HTTPSender) postBatch(ctx context.Context, toUserID, chatID string, msgs []Message) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for send slot: %w", err)
	}

	envelope := outboundEnvelope{Messages: make([]outboundMessage, 0, len(msgs))}
	for _, msg := range msgs {
		out := outboundMessage{
			ID:       uuid.NewString(),
			Type:     "text",
			To:       toUserID,
			ChatID:   chatID,
			Body:     msg.Body,
			Keyboard: msg.Keyboard,
		}
		if msg.PicURL != "" {
			out.Type = "picture"
			out.Body = ""
			out.PicURL = msg.PicURL
		}
		envelope.Messages = append(envelope.Messages, out)
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode outbound batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.botUsername, s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post outbound batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("send rejected with status %d", resp.StatusCode)
	}
	return nil
}
