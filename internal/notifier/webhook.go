package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WebhookNotifier posts run events as JSON, throttled so a burst of runs
// cannot flood the receiving endpoint.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebhook builds a webhook notifier limited to ratePerMinute deliveries.
func NewWebhook(url string, ratePerMinute int) *WebhookNotifier {
	if ratePerMinute <= 0 {
		ratePerMinute = 30
	}
	return &WebhookNotifier{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), 1),
	}
}

func (w *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	if w.url == "" {
		zap.L().Debug("notifier: webhook not configured, skipping")
		return nil
	}
	if err := w.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "notifier: webhook rate wait")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return eris.Wrap(err, "notifier: marshal event")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notifier: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notifier: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("notifier: webhook returned status %d", resp.StatusCode)
	}
	zap.L().Info("notifier: webhook delivered",
		zap.String("run_id", event.RunID),
		zap.String("kind", event.Kind),
	)
	return nil
}
