package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SlackNotifier posts run results to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// slackPayload is the incoming-webhook body: the title as plain text plus one
// attachment carrying the run figures as short fields
type slackPayload struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Fallback string       `json:"fallback"`
	Color    string       `json:"color"`
	Title    string       `json:"title,omitempty"`
	Text     string       `json:"text,omitempty"`
	Fields   []slackField `json:"fields,omitempty"`
	Footer   string       `json:"footer"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewSlackNotifier creates a notifier posting to webhookURL. An empty URL disables it.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// SlackColor returns the attachment color bar for a notification type
func SlackColor(t NotificationType) string {
	switch t {
	case NotifySuccess:
		return "good"
	case NotifyWarning:
		return "warning"
	case NotifyError:
		return "danger"
	default:
		return "#439FE0"
	}
}

func buildSlackPayload(n Notification) slackPayload {
	att := slackAttachment{
		Fallback: n.Title + ": " + n.Message,
		Color:    SlackColor(n.Type),
		Footer:   "loadspike",
	}
	if n.RunID != "" {
		att.Title = "Run " + n.RunID
	}

	// Figures replace the one-line summary when present
	if len(n.Fields) == 0 {
		att.Text = n.Message
	}
	for _, f := range n.Fields {
		att.Fields = append(att.Fields, slackField{Title: f.Label, Value: f.Value, Short: true})
	}

	return slackPayload{Text: n.Title, Attachments: []slackAttachment{att}}
}

// Send posts n to the webhook
func (s *SlackNotifier) Send(n Notification) error {
	if s.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildSlackPayload(n))
	if err != nil {
		return fmt.Errorf("encoding slack payload: %w", err)
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
