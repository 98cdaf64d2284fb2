package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/pack1703/packchat/internal/core"
)

// mentionPattern matches the assistant handles that summon a reply.
var mentionPattern = regexp.MustCompile(`(?i)@(solyn|ai|assistant)`)

// MentionHandler receives messages that mention the assistant. Handlers run
// on a background goroutine and must not block indefinitely.
type MentionHandler interface {
	HandleMention(ctx context.Context, msg *core.Message) error
}

// NopMentionHandler discards mentions. Used when no assistant is configured.
type NopMentionHandler struct{}

func (NopMentionHandler) HandleMention(context.Context, *core.Message) error { return nil }

// WebhookMentionHandler forwards mentioned messages to an external assistant
// endpoint as JSON. The assistant is expected to respond out of band by
// posting its reply as a system message.
type WebhookMentionHandler struct {
	URL    string
	Client *http.Client
}

// NewWebhookMentionHandler builds a handler posting to url.
func NewWebhookMentionHandler(url string) *WebhookMentionHandler {
	return &WebhookMentionHandler{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type mentionPayload struct {
	MessageID  string `json:"messageId"`
	ChannelID  string `json:"channelId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
}

func (w *WebhookMentionHandler) HandleMention(ctx context.Context, msg *core.Message) error {
	body, err := json.Marshal(mentionPayload{
		MessageID:  msg.ID,
		ChannelID:  msg.ChannelID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Content:    msg.Content,
	})
	if err != nil {
		return fmt.Errorf("encode mention: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mention request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver mention: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("deliver mention: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// dispatchMention hands a message to the configured handler with a bounded
// deadline. Failures are logged and dropped: the message itself already
// landed, the assistant just will not answer.
func (h *Hub) dispatchMention(msg *core.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := h.mentions.HandleMention(ctx, msg); err != nil {
		h.log.Warn().Err(err).Str("channel_id", msg.ChannelID).Msg("mention dispatch failed")
	}
}
