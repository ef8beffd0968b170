// Package alert delivers trend alerts to an external webhook.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/linkscope/audit-cli/internal/model"
)

// Config configures alert delivery.
type Config struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`

	// MinSeverity suppresses alerts below this severity. Empty sends all.
	MinSeverity model.Severity `yaml:"min_severity" mapstructure:"min_severity"`
}

// Alerter posts alerts to the configured webhook.
type Alerter struct {
	cfg    Config
	client *http.Client
}

// New creates an Alerter.
func New(cfg Config) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendAlerts delivers alerts to the webhook URL, skipping those below the
// configured minimum severity. Returns the number successfully sent;
// delivery failures are logged, never fatal.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []model.Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, al := range alerts {
		if a.cfg.MinSeverity != "" && al.Severity.Rank() > a.cfg.MinSeverity.Rank() {
			continue
		}
		if err := a.sendWebhook(ctx, al); err != nil {
			zap.L().Error("alert: failed to send",
				zap.String("type", string(al.Type)),
				zap.String("platform", string(al.Platform)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("alert: sent",
			zap.String("type", string(al.Type)),
			zap.String("severity", string(al.Severity)),
			zap.String("platform", string(al.Platform)),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, al model.Alert) error {
	payload, err := json.Marshal(al)
	if err != nil {
		return eris.Wrap(err, "alert: marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "alert: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "alert: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("alert: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
