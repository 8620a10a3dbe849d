package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// ChannelConfig is one alert channel entry from alerts.json.
type ChannelConfig struct {
	// Type selects the payload shape: telegram, slack, discord, or
	// generic (raw JSON notification POST).
	Type string `json:"type"`
	// URL is the webhook endpoint. For telegram it is optional; the
	// bot API URL is derived from Token.
	URL string `json:"url,omitempty"`
	// Token and ChatID are telegram bot credentials.
	Token  string `json:"token,omitempty"`
	ChatID string `json:"chat_id,omitempty"`
	// Enabled defaults to true.
	Enabled *bool `json:"enabled,omitempty"`
}

type channelsDocument struct {
	Channels []ChannelConfig `json:"channels"`
}

// LoadChannels reads alert channel definitions from the given JSON file.
// A missing file means no channels.
func LoadChannels(path string) ([]ChannelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading alert channels: %w", err)
	}
	var doc channelsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding alert channels: %w", err)
	}
	return doc.Channels, nil
}

// BuildSinks turns channel configs into sinks, skipping disabled and
// malformed entries with a log line instead of failing startup.
func BuildSinks(channels []ChannelConfig) []Sink {
	var sinks []Sink
	for _, ch := range channels {
		if ch.Enabled != nil && !*ch.Enabled {
			continue
		}
		sink, err := newWebhookSink(ch)
		if err != nil {
			log.Warn("skipping alert channel: %v", err)
			continue
		}
		sinks = append(sinks, sink)
	}
	return sinks
}

// webhookSink posts notifications to a single webhook endpoint.
type webhookSink struct {
	name   string
	url    string
	chatID string
	encode func(n Notification, chatID string) ([]byte, error)
	client *http.Client
}

func newWebhookSink(ch ChannelConfig) (*webhookSink, error) {
	s := &webhookSink{
		name:   ch.Type,
		url:    ch.URL,
		chatID: ch.ChatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	switch ch.Type {
	case "telegram":
		if ch.Token == "" || ch.ChatID == "" {
			return nil, fmt.Errorf("telegram channel requires token and chat_id")
		}
		if s.url == "" {
			s.url = "https://api.telegram.org/bot" + ch.Token + "/sendMessage"
		}
		s.encode = encodeTelegram
	case "slack":
		s.encode = encodeSlack
	case "discord":
		s.encode = encodeDiscord
	case "generic":
		s.encode = encodeGeneric
	default:
		return nil, fmt.Errorf("unknown alert channel type %q", ch.Type)
	}

	if s.url == "" {
		return nil, fmt.Errorf("%s channel requires a url", ch.Type)
	}
	return s, nil
}

func (s *webhookSink) Name() string { return s.name }

func (s *webhookSink) Send(ctx context.Context, n Notification) error {
	body, err := s.encode(n, s.chatID)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

func encodeTelegram(n Notification, chatID string) ([]byte, error) {
	return json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    n.Text(),
	})
}

func encodeSlack(n Notification, _ string) ([]byte, error) {
	return json.Marshal(map[string]string{"text": n.Text()})
}

func encodeDiscord(n Notification, _ string) ([]byte, error) {
	return json.Marshal(map[string]string{"content": n.Text()})
}

func encodeGeneric(n Notification, _ string) ([]byte, error) {
	return json.Marshal(n)
}
