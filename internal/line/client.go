package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"highnoon/pkg/logx"
)

const DefaultAPIBase = "https://api.line.me"

// MaxMulticastRecipients is the platform limit on recipients per multicast
// call.
const MaxMulticastRecipients = 500

// Config carries the channel credentials.
type Config struct {
	ChannelSecret      string
	ChannelAccessToken string
	APIBase            string // override for tests
}

// Client is a minimal LINE Messaging API client covering the calls this bot
// makes. Transport failures and non-2xx statuses are reported as errors; the
// caller decides whether they matter.
type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func NewClient(cfg Config, log logx.Logger) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log.With(logx.String("component", "line")),
	}
}

// ChannelSecret exposes the secret for webhook signature validation.
func (c *Client) ChannelSecret() string { return c.cfg.ChannelSecret }

// Reply answers one webhook event using its reply token.
func (c *Client) Reply(ctx context.Context, replyToken string, texts ...string) error {
	body := map[string]any{
		"replyToken": replyToken,
		"messages":   textMessages(texts),
	}
	return c.post(ctx, "/v2/bot/message/reply", body, "")
}

// Push sends messages to a single recipient.
func (c *Client) Push(ctx context.Context, to string, texts ...string) error {
	body := map[string]any{
		"to":       to,
		"messages": textMessages(texts),
	}
	return c.post(ctx, "/v2/bot/message/push", body, "")
}

// Multicast sends messages to up to MaxMulticastRecipients recipients.
// Chunking to that limit is the notifier's job; oversized batches are
// rejected here so the limit cannot be violated silently.
func (c *Client) Multicast(ctx context.Context, to []string, texts ...string) error {
	if len(to) == 0 {
		return nil
	}
	if len(to) > MaxMulticastRecipients {
		return fmt.Errorf("line: multicast batch of %d exceeds limit %d", len(to), MaxMulticastRecipients)
	}
	body := map[string]any{
		"to":       to,
		"messages": textMessages(texts),
	}
	return c.post(ctx, "/v2/bot/message/multicast", body, uuid.NewString())
}

// Broadcast sends messages to every friend of the bot.
func (c *Client) Broadcast(ctx context.Context, texts ...string) error {
	body := map[string]any{
		"messages": textMessages(texts),
	}
	return c.post(ctx, "/v2/bot/message/broadcast", body, uuid.NewString())
}

// ShowLoadingAnimation displays the typing indicator in a 1:1 chat.
// Best-effort: callers usually ignore the error.
func (c *Client) ShowLoadingAnimation(ctx context.Context, chatID string, seconds int) error {
	if seconds <= 0 {
		seconds = 20
	}
	body := map[string]any{
		"chatId":         chatID,
		"loadingSeconds": seconds,
	}
	return c.post(ctx, "/v2/bot/chat/loading/start", body, "")
}

func (c *Client) post(ctx context.Context, path string, body any, retryKey string) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBase+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.ChannelAccessToken)
	if retryKey != "" {
		// Lets the platform dedupe a retried delivery call.
		req.Header.Set("X-Line-Retry-Key", retryKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("line: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.Warn("api call failed",
			logx.String("path", path),
			logx.Int("status", resp.StatusCode),
			logx.String("body", string(detail)))
		return fmt.Errorf("line: %s: status %d", path, resp.StatusCode)
	}
	return nil
}

func textMessages(texts []string) []TextMessage {
	msgs := make([]TextMessage, 0, len(texts))
	for _, t := range texts {
		msgs = append(msgs, NewTextMessage(t))
	}
	return msgs
}
