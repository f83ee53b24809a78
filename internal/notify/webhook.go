package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// WebhookNotifier posts text messages to a chat webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// NewWebhookNotifier constructs a notifier.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Notify sends msg to the webhook.
func (n *WebhookNotifier) Notify(ctx context.Context, msg ReportMessage) error {
	if n == nil || n.url == "" {
		return errors.New("webhook notifier: empty url")
	}
	body, err := json.Marshal(webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: formatReportMessage(msg)},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notifier: status %d", resp.StatusCode)
	}
	return nil
}

func formatReportMessage(msg ReportMessage) string {
	var b strings.Builder
	b.WriteString("[Late Fee Report]\n")
	if msg.BranchID != "" {
		fmt.Fprintf(&b, "Branch: %s\n", msg.BranchID)
	}
	if msg.RunID != "" {
		fmt.Fprintf(&b, "Report: %s\n", msg.RunID)
	}
	if msg.InputName != "" {
		fmt.Fprintf(&b, "Input: %s\n", msg.InputName)
	}
	fmt.Fprintf(&b, "Records: %d\n", msg.RecordCount)
	fmt.Fprintf(&b, "Patrons: %d\n", msg.PatronCount)
	if msg.TotalFees != "" {
		fmt.Fprintf(&b, "Total: %s\n", msg.TotalFees)
	}
	if msg.ReportURL != "" {
		fmt.Fprintf(&b, "Report URL: %s\n", msg.ReportURL)
	}
	if len(msg.Meta) > 0 {
		keys := make([]string, 0, len(msg.Meta))
		for k := range msg.Meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, msg.Meta[k])
		}
	}
	return strings.TrimSpace(b.String())
}
