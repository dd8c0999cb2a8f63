package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/taskhive-dev/taskhive/internal/models"
	"github.com/taskhive-dev/taskhive/internal/types"
)

type DiscordWebhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbed struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Color       int                   `json:"color"`
	Fields      []DiscordWebhookField `json:"fields"`
	Timestamp   string                `json:"timestamp"`
}

type DiscordWebhookRequest struct {
	Username string         `json:"username"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields"`
	Timestamp int64        `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

const (
	ColorGreen  = 65280    // #00FF00 - created
	ColorBlue   = 255      // #0000FF - updated / moved / assigned
	ColorRed    = 16711680 // #FF0000 - deleted

	Username = "Taskhive"
)

func colorFor(action string) int {
	switch action {
	case types.ActionCreated:
		return ColorGreen
	case types.ActionDeleted:
		return ColorRed
	default:
		return ColorBlue
	}
}

func slackColorFor(action string) string {
	switch action {
	case types.ActionCreated:
		return "good"
	case types.ActionDeleted:
		return "danger"
	default:
		return "#439FE0"
	}
}

// NotifyActivity posts an audit-worthy mutation to the board's configured
// webhooks, if any. Callers run it in a goroutine; failures are logged and
// never reach the mutation path.
func NotifyActivity(board models.Board, actor string, action string, details string) {
	if board.DiscordWebhook == "" && board.SlackWebhook == "" {
		return
	}

	if board.DiscordWebhook != "" {
		if err := sendDiscordActivity(board, actor, action, details); err != nil {
			log.Printf("Discord webhook for board %d failed: %v", board.ID, err)
		}
	}

	if board.SlackWebhook != "" {
		if err := sendSlackActivity(board, actor, action, details); err != nil {
			log.Printf("Slack webhook for board %d failed: %v", board.ID, err)
		}
	}
}

func sendDiscordActivity(board models.Board, actor string, action string, details string) error {
	payload := DiscordWebhookRequest{
		Username: Username,
		Embeds: []DiscordEmbed{
			{
				Title:       fmt.Sprintf("Board %s: %s", strings.ToUpper(board.Name), action),
				Description: details,
				Color:       colorFor(action),
				Fields: []DiscordWebhookField{
					{Name: "By", Value: actor, Inline: true},
					{Name: "Action", Value: action, Inline: true},
				},
				Timestamp: time.Now().Format(time.RFC3339),
			},
		},
	}

	return postJSON(board.DiscordWebhook, payload)
}

func sendSlackActivity(board models.Board, actor string, action string, details string) error {
	payload := SlackWebhookRequest{
		Username: Username,
		Text:     fmt.Sprintf("Activity on board *%s*", strings.ToUpper(board.Name)),
		Attachments: []SlackAttachment{
			{
				Color: slackColorFor(action),
				Title: details,
				Fields: []SlackField{
					{Title: "By", Value: actor, Short: true},
					{Title: "Action", Value: action, Short: true},
				},
				Timestamp: time.Now().Unix(),
			},
		},
	}

	return postJSON(board.SlackWebhook, payload)
}

func postJSON(url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
