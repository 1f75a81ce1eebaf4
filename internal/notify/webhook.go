// Package notify delivers owner notifications to a configured webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Event struct {
	UserID    uuid.UUID `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	RelatedID uuid.UUID `json:"related_id"`
}

type WebhookNotifier struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

func NewWebhookNotifier(url string, log zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log.With().Str("component", "notify").Logger(),
	}
}

// ContractGenerated posts a contract_generated event. Delivery is
// best-effort; a missing webhook URL disables it entirely.
func (n *WebhookNotifier) ContractGenerated(ctx context.Context, userID, contractID uuid.UUID, clientName string) error {
	if n.url == "" {
		return nil
	}

	event := Event{
		UserID:    userID,
		Type:      "contract_generated",
		Message:   fmt.Sprintf("Contrato gerado para %s. Aguardando assinatura.", clientName),
		RelatedID: contractID,
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
	}
	n.log.Debug().Str("type", event.Type).Str("contract_id", contractID.String()).Msg("notification delivered")
	return nil
}
