package chatops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go-fundadmin/internal/config"
	"go-fundadmin/internal/features/automation"

	"go.uber.org/zap"
)

// ChatService delivers engine messages to Slack and Teams incoming
// webhooks.
type ChatService struct {
	slackURL string
	teamsURL string
	client   *http.Client
	logger   *zap.Logger
}

func NewChatService(cfg *config.Config, logger *zap.Logger) automation.ChatSender {
	return &ChatService{
		slackURL: cfg.SlackWebhookURL,
		teamsURL: cfg.TeamsWebhookURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

func (s *ChatService) Send(ctx context.Context, msg automation.ChatMessage) error {
	switch msg.Channel {
	case "slack":
		return s.sendSlack(ctx, msg)
	case "teams":
		return s.sendTeams(ctx, msg)
	case "both":
		slackErr := s.sendSlack(ctx, msg)
		teamsErr := s.sendTeams(ctx, msg)
		if slackErr != nil && teamsErr != nil {
			return fmt.Errorf("slack: %v; teams: %v", slackErr, teamsErr)
		}
		// Partial delivery counts as success; the missing leg is logged.
		if slackErr != nil {
			s.logger.Warn("slack delivery failed", zap.Error(slackErr))
		}
		if teamsErr != nil {
			s.logger.Warn("teams delivery failed", zap.Error(teamsErr))
		}
		return nil
	default:
		return fmt.Errorf("unknown chat channel: %s", msg.Channel)
	}
}

func (s *ChatService) sendSlack(ctx context.Context, msg automation.ChatMessage) error {
	if s.slackURL == "" {
		return fmt.Errorf("slack webhook not configured")
	}

	text := fmt.Sprintf("*%s*\n%s", msg.Title, msg.Message)
	if msg.ActionURL != "" {
		text += fmt.Sprintf("\n<%s|Open>", msg.ActionURL)
	}
	payload := map[string]interface{}{"text": text}
	if msg.Priority == "urgent" {
		payload["text"] = ":rotating_light: " + text
	}

	return s.post(ctx, s.slackURL, payload)
}

func (s *ChatService) sendTeams(ctx context.Context, msg automation.ChatMessage) error {
	if s.teamsURL == "" {
		return fmt.Errorf("teams webhook not configured")
	}

	color := "0076D7"
	if msg.Priority == "urgent" {
		color = "D70000"
	}
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": color,
		"summary":    msg.Title,
		"title":      msg.Title,
		"text":       msg.Message,
	}
	if msg.ActionURL != "" {
		payload["potentialAction"] = []map[string]interface{}{{
			"@type":   "OpenUri",
			"name":    "Open",
			"targets": []map[string]string{{"os": "default", "uri": msg.ActionURL}},
		}}
	}

	return s.post(ctx, s.teamsURL, payload)
}

func (s *ChatService) post(ctx context.Context, url string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
