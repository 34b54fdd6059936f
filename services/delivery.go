package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// MessageRef identifies a delivered message for later thread creation or
// result edits.
type MessageRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// DeliverySink posts content to the end-user channel. Delivery is
// best-effort: failures are logged by callers and never roll back a
// committed state transition.
type DeliverySink interface {
	PostMessage(ctx context.Context, channelID, content string) (*MessageRef, error)
	CreateThread(ctx context.Context, ref *MessageRef, name string) (string, error)
}

// --- Log sink ---

// LogSink writes deliveries to the process log. It is the default sink when
// no webhook is configured, and useful in development.
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) PostMessage(_ context.Context, channelID, content string) (*MessageRef, error) {
	log.Printf("[deliver] channel=%s %s", channelID, content)
	return &MessageRef{ChannelID: channelID, MessageID: uuid.NewString()}, nil
}

func (s *LogSink) CreateThread(_ context.Context, ref *MessageRef, name string) (string, error) {
	log.Printf("[deliver] thread %q under message %s", name, ref.MessageID)
	return uuid.NewString(), nil
}

// --- Webhook sink ---

// WebhookSink forwards deliveries to an external chat bridge over HTTP.
type WebhookSink struct {
	url    string
	client *http.Client
}

func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type webhookRequest struct {
	Kind      string `json:"kind"` // "message" or "thread"
	ChannelID string `json:"channel_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Content   string `json:"content,omitempty"`
}

type webhookResponse struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`
}

func (s *WebhookSink) post(ctx context.Context, req webhookRequest) (*webhookResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	var body webhookResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return &body, nil
}

func (s *WebhookSink) PostMessage(ctx context.Context, channelID, content string) (*MessageRef, error) {
	body, err := s.post(ctx, webhookRequest{Kind: "message", ChannelID: channelID, Content: content})
	if err != nil {
		return nil, err
	}
	messageID := body.MessageID
	if messageID == "" {
		messageID = uuid.NewString()
	}
	return &MessageRef{ChannelID: channelID, MessageID: messageID}, nil
}

func (s *WebhookSink) CreateThread(ctx context.Context, ref *MessageRef, name string) (string, error) {
	body, err := s.post(ctx, webhookRequest{Kind: "thread", ChannelID: ref.ChannelID, MessageID: ref.MessageID, Name: name})
	if err != nil {
		return "", err
	}
	if body.ThreadID == "" {
		return uuid.NewString(), nil
	}
	return body.ThreadID, nil
}

// --- Fan-out ---

// MultiSink delivers to every sink; the first sink is authoritative for the
// returned refs, later sinks are fire-and-forget mirrors.
type MultiSink struct {
	sinks []DeliverySink
}

func NewMultiSink(sinks ...DeliverySink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) PostMessage(ctx context.Context, channelID, content string) (*MessageRef, error) {
	if len(m.sinks) == 0 {
		return nil, fmt.Errorf("no delivery sinks configured")
	}

	ref, err := m.sinks[0].PostMessage(ctx, channelID, content)
	for _, sink := range m.sinks[1:] {
		if _, mirrorErr := sink.PostMessage(ctx, channelID, content); mirrorErr != nil {
			log.Printf("Mirror delivery failed: %v", mirrorErr)
		}
	}
	return ref, err
}

func (m *MultiSink) CreateThread(ctx context.Context, ref *MessageRef, name string) (string, error) {
	if len(m.sinks) == 0 {
		return "", fmt.Errorf("no delivery sinks configured")
	}

	threadID, err := m.sinks[0].CreateThread(ctx, ref, name)
	for _, sink := range m.sinks[1:] {
		if _, mirrorErr := sink.CreateThread(ctx, ref, name); mirrorErr != nil {
			log.Printf("Mirror thread creation failed: %v", mirrorErr)
		}
	}
	return threadID, err
}
