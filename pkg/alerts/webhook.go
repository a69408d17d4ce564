package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/mfreeman451/firmwave/pkg/config"
	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/models"
	"github.com/mfreeman451/firmwave/pkg/notify"
)

var (
	ErrWebhookCooldown   = errors.New("alert is within cooldown period")
	errWebhookDisabled   = errors.New("webhook alerter is disabled")
	errInvalidJSON       = errors.New("invalid JSON generated")
	errWebhookStatus     = errors.New("webhook returned non-2xx status")
	errTemplateParse     = errors.New("template parsing failed")
	errTemplateExecution = errors.New("template execution failed")
)

const webhookTimeout = 10 * time.Second

type AlertLevel string

const (
	Info    AlertLevel = "info"
	Warning AlertLevel = "warning"
	Error   AlertLevel = "error"
)

type WebhookAlert struct {
	Level     AlertLevel     `json:"level"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Timestamp string         `json:"timestamp"`
	DeviceID  string         `json:"device_id"`
	Details   map[string]any `json:"details,omitempty"`
}

// WebhookAlerter posts alerts to one webhook. As a notify.Sink it turns
// device updates into offline, error and recovery alerts.
type WebhookAlerter struct {
	config     *config.WebhookConfig
	client     *http.Client
	logger     logger.Logger
	tmpl       *template.Template
	bufferPool *sync.Pool

	mu             sync.Mutex
	lastAlertTimes map[string]time.Time
	// outstanding is the title of the last offline or error alert per device.
	outstanding map[string]string
	now         func() time.Time
}

var (
	_ AlertService = (*WebhookAlerter)(nil)
	_ notify.Sink  = (*WebhookAlerter)(nil)
)

// NewWebhookAlerter parses the optional template up front so a bad template
// fails at startup rather than on the first alert.
func NewWebhookAlerter(cfg *config.WebhookConfig, log logger.Logger) (*WebhookAlerter, error) {
	w := &WebhookAlerter{
		config: cfg,
		client: &http.Client{
			Timeout: webhookTimeout,
		},
		logger:         log.WithComponent("alerts"),
		lastAlertTimes: make(map[string]time.Time),
		outstanding:    make(map[string]string),
		now:            time.Now,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}

	text := cfg.Template
	if text == "" && cfg.Format == config.WebhookFormatDiscord {
		text = DiscordTemplate
	}

	if text != "" {
		tmpl, err := template.New("webhook").Funcs(w.templateFuncs()).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errTemplateParse, err)
		}

		w.tmpl = tmpl
	}

	return w, nil
}

func (*WebhookAlerter) Name() string { return "webhook" }

func (w *WebhookAlerter) IsEnabled() bool {
	return w.config.Enabled
}

// Publish alerts on device state transitions: OFFLINE is a warning, ERROR
// status or CRITICAL health an error, and a degraded device coming back
// ONLINE and HEALTHY a recovery. Repeats of the outstanding alert and other
// events are ignored.
func (w *WebhookAlerter) Publish(ctx context.Context, event *models.Event) error {
	if event.Name != models.EventDeviceUpdate || !w.IsEnabled() {
		return nil
	}

	device, ok := event.Data.(*models.Device)
	if !ok || device == nil {
		return nil
	}

	alert := w.alertFor(device)
	if alert == nil {
		return nil
	}

	err := w.Alert(ctx, alert)
	if errors.Is(err, ErrWebhookCooldown) {
		w.logger.Debug().Str("mac", device.MAC).Str("title", alert.Title).Msg("Alert suppressed by cooldown")

		return nil
	}

	return err
}

func (w *WebhookAlerter) alertFor(device *models.Device) *WebhookAlert {
	w.mu.Lock()
	defer w.mu.Unlock()

	alert := &WebhookAlert{
		DeviceID: device.MAC,
		Details: map[string]any{
			"name":      device.Name,
			"status":    string(device.Status),
			"health":    string(device.Health),
			"last_seen": device.LastSeen.UTC().Format(time.RFC3339),
		},
	}

	switch {
	case device.Status == models.StatusOffline:
		alert.Level = Warning
		alert.Title = "Device Offline"
		alert.Message = fmt.Sprintf("Device '%s' (%s) stopped reporting", device.Name, device.MAC)
	case device.Status == models.StatusError || device.Health == models.HealthCritical:
		alert.Level = Error
		alert.Title = "Device Error"
		alert.Message = fmt.Sprintf("Device '%s' (%s) reports %s / %s", device.Name, device.MAC, device.Status, device.Health)
	case device.Status == models.StatusOnline && device.Health == models.HealthHealthy:
		if _, ok := w.outstanding[device.MAC]; !ok {
			return nil
		}

		delete(w.outstanding, device.MAC)

		alert.Level = Info
		alert.Title = "Device Recovered"
		alert.Message = fmt.Sprintf("Device '%s' (%s) is back online", device.Name, device.MAC)

		return alert
	default:
		return nil
	}

	if w.outstanding[device.MAC] == alert.Title {
		return nil
	}

	w.outstanding[device.MAC] = alert.Title

	return alert
}

func (w *WebhookAlerter) Alert(ctx context.Context, alert *WebhookAlert) error {
	if !w.IsEnabled() {
		return errWebhookDisabled
	}

	if err := w.checkCooldown(alert.Title + "/" + alert.DeviceID); err != nil {
		return err
	}

	if alert.Timestamp == "" {
		alert.Timestamp = w.now().UTC().Format(time.RFC3339)
	}

	payload, err := w.preparePayload(alert)
	if err != nil {
		return fmt.Errorf("failed to prepare payload: %w", err)
	}

	if err := w.sendRequest(ctx, payload); err != nil {
		return err
	}

	w.logger.Info().Str("mac", alert.DeviceID).Str("title", alert.Title).Msg("Alert sent")

	return nil
}

func (w *WebhookAlerter) checkCooldown(key string) error {
	cooldown := time.Duration(w.config.Cooldown)
	if cooldown <= 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()

	if last, exists := w.lastAlertTimes[key]; exists && now.Sub(last) < cooldown {
		return ErrWebhookCooldown
	}

	w.lastAlertTimes[key] = now

	return nil
}

func (w *WebhookAlerter) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"json": func(v interface{}) (string, error) {
			b, err := json.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("JSON marshaling failed: %w", err)
			}

			return string(b), nil
		},
	}
}

func (w *WebhookAlerter) preparePayload(alert *WebhookAlert) ([]byte, error) {
	if w.tmpl == nil {
		payload, err := json.Marshal(alert)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal alert: %w", err)
		}

		return payload, nil
	}

	buf := w.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer w.bufferPool.Put(buf)

	if err := w.tmpl.Execute(buf, map[string]interface{}{
		"alert": alert,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", errTemplateExecution, err)
	}

	if !json.Valid(buf.Bytes()) {
		return nil, errInvalidJSON
	}

	return append([]byte(nil), buf.Bytes()...), nil
}

func (w *WebhookAlerter) sendRequest(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	w.setHeaders(req)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Failed to close webhook response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("%w: status=%d body=%s", errWebhookStatus, resp.StatusCode, body)
	}

	return nil
}

func (w *WebhookAlerter) setHeaders(req *http.Request) {
	hasContentType := false

	for _, header := range w.config.Headers {
		if strings.EqualFold(header.Key, "content-type") {
			hasContentType = true
		}

		req.Header.Set(header.Key, header.Value)
	}

	if !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}
}
