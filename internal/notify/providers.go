package notify

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildShoutrrrURL assembles a Shoutrrr URL from structured provider fields.
func BuildShoutrrrURL(serviceType string, fields map[string]string) (string, error) {
	switch serviceType {
	case "telegram":
		return buildTelegramURL(fields)
	case "discord":
		return buildDiscordURL(fields)
	case "slack":
		return buildSlackURL(fields)
	case "gotify":
		return buildGotifyURL(fields)
	case "generic":
		return buildGenericURL(fields)
	default:
		return "", fmt.Errorf("unknown provider: %s", serviceType)
	}
}

// telegram://botToken@telegram?chats=chatID[&topic=threadID]
func buildTelegramURL(f map[string]string) (string, error) {
	token := strings.TrimSpace(f["bot_token"])
	chatID := strings.TrimSpace(f["chat_id"])
	if token == "" || chatID == "" {
		return "", fmt.Errorf("telegram: bot_token and chat_id are required")
	}

	params := url.Values{}
	params.Set("chats", chatID)
	if tid := strings.TrimSpace(f["thread_id"]); tid != "" {
		params.Set("topic", tid)
	}
	return fmt.Sprintf("telegram://%s@telegram?%s", token, params.Encode()), nil
}

// discord://token@webhookID, from https://discord.com/api/webhooks/{id}/{token}
func buildDiscordURL(f map[string]string) (string, error) {
	webhookURL := strings.TrimRight(strings.TrimSpace(f["webhook_url"]), "/")
	if webhookURL == "" {
		return "", fmt.Errorf("discord: webhook_url is required")
	}
	parts := strings.Split(webhookURL, "/")
	if len(parts) < 2 || parts[len(parts)-1] == "" || parts[len(parts)-2] == "" {
		return "", fmt.Errorf("discord: could not extract webhook id and token")
	}
	token := parts[len(parts)-1]
	id := parts[len(parts)-2]

	u := fmt.Sprintf("discord://%s@%s", token, id)
	if name := f["username"]; name != "" {
		u += "?" + url.Values{"username": {name}}.Encode()
	}
	return u, nil
}

// slack://hook:T/B/X@webhook, from https://hooks.slack.com/services/T/B/X
func buildSlackURL(f map[string]string) (string, error) {
	webhookURL := strings.TrimSpace(f["webhook_url"])
	const prefix = "https://hooks.slack.com/services/"
	if !strings.HasPrefix(webhookURL, prefix) {
		return "", fmt.Errorf("slack: webhook_url must start with %s", prefix)
	}
	tokens := strings.Trim(strings.TrimPrefix(webhookURL, prefix), "/")
	if strings.Count(tokens, "/") != 2 {
		return "", fmt.Errorf("slack: webhook_url must contain three token segments")
	}

	u := fmt.Sprintf("slack://hook:%s@webhook", tokens)
	if ch := f["channel"]; ch != "" {
		u += "?" + url.Values{"channel": {ch}}.Encode()
	}
	return u, nil
}

// gotify://host/token
func buildGotifyURL(f map[string]string) (string, error) {
	host := strings.TrimSpace(f["host"])
	token := strings.TrimSpace(f["token"])
	if host == "" || token == "" {
		return "", fmt.Errorf("gotify: host and token are required")
	}
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	return fmt.Sprintf("gotify://%s/%s", strings.TrimRight(host, "/"), token), nil
}

// generic+https://example.com/path
func buildGenericURL(f map[string]string) (string, error) {
	webhookURL := strings.TrimSpace(f["webhook_url"])
	if webhookURL == "" {
		return "", fmt.Errorf("generic: webhook_url is required")
	}
	switch {
	case strings.HasPrefix(webhookURL, "generic+"), strings.HasPrefix(webhookURL, "generic://"):
		return webhookURL, nil
	case strings.HasPrefix(webhookURL, "https://"), strings.HasPrefix(webhookURL, "http://"):
		return "generic+" + webhookURL, nil
	default:
		return "generic+https://" + webhookURL, nil
	}
}
