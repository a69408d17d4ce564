package alerts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreeman451/firmwave/pkg/config"
	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/models"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type receiver struct {
	mu      sync.Mutex
	bodies  [][]byte
	headers []http.Header
	status  int
}

func newReceiver(t *testing.T) (*receiver, *httptest.Server) {
	t.Helper()

	rcv := &receiver{status: http.StatusNoContent}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		rcv.mu.Lock()
		rcv.bodies = append(rcv.bodies, body)
		rcv.headers = append(rcv.headers, r.Header.Clone())
		status := rcv.status
		rcv.mu.Unlock()

		w.WriteHeader(status)
	}))

	t.Cleanup(srv.Close)

	return rcv, srv
}

func (r *receiver) alerts(t *testing.T) []WebhookAlert {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]WebhookAlert, 0, len(r.bodies))

	for _, body := range r.bodies {
		var alert WebhookAlert
		require.NoError(t, json.Unmarshal(body, &alert))

		out = append(out, alert)
	}

	return out
}

func deviceEvent(status models.DeviceStatus, health models.Health) *models.Event {
	return &models.Event{
		Name: models.EventDeviceUpdate,
		Data: &models.Device{
			MAC:      "AA:00:00:00:00:01",
			Name:     "Roof",
			Status:   status,
			Health:   health,
			LastSeen: base,
		},
	}
}

func newAlerter(t *testing.T, cfg *config.WebhookConfig) *WebhookAlerter {
	t.Helper()

	w, err := NewWebhookAlerter(cfg, logger.NewTestLogger())
	require.NoError(t, err)

	w.now = func() time.Time { return base }

	return w
}

func TestPublishAlertsOnTransitions(t *testing.T) {
	rcv, srv := newReceiver(t)
	w := newAlerter(t, &config.WebhookConfig{Enabled: true, URL: srv.URL})
	ctx := context.Background()

	events := []*models.Event{
		deviceEvent(models.StatusOnline, models.HealthHealthy),
		deviceEvent(models.StatusOffline, models.HealthHealthy),
		deviceEvent(models.StatusOffline, models.HealthHealthy),
		deviceEvent(models.StatusOnline, models.HealthHealthy),
		deviceEvent(models.StatusOnline, models.HealthCritical),
		deviceEvent(models.StatusOnline, models.HealthHealthy),
		{Name: models.EventLogUpdate, Data: &models.DebugLog{Message: "ignored"}},
	}

	for _, event := range events {
		require.NoError(t, w.Publish(ctx, event))
	}

	got := rcv.alerts(t)
	require.Len(t, got, 4)

	assert.Equal(t, "Device Offline", got[0].Title)
	assert.Equal(t, Warning, got[0].Level)
	assert.Equal(t, "AA:00:00:00:00:01", got[0].DeviceID)
	assert.Equal(t, base.Format(time.RFC3339), got[0].Timestamp)
	assert.Equal(t, "Roof", got[0].Details["name"])

	assert.Equal(t, "Device Recovered", got[1].Title)
	assert.Equal(t, Info, got[1].Level)
	assert.Equal(t, "Device Error", got[2].Title)
	assert.Equal(t, Error, got[2].Level)
	assert.Equal(t, "Device Recovered", got[3].Title)

	assert.Equal(t, "application/json", rcv.headers[0].Get("Content-Type"))
}

func TestCooldownSuppressesRepeats(t *testing.T) {
	rcv, srv := newReceiver(t)
	w := newAlerter(t, &config.WebhookConfig{Enabled: true, URL: srv.URL, Cooldown: config.Duration(time.Hour)})
	ctx := context.Background()

	alert := &WebhookAlert{Level: Warning, Title: "Device Offline", DeviceID: "AA:00:00:00:00:01"}

	require.NoError(t, w.Alert(ctx, alert))
	require.ErrorIs(t, w.Alert(ctx, alert), ErrWebhookCooldown)

	other := &WebhookAlert{Level: Warning, Title: "Device Offline", DeviceID: "AA:00:00:00:00:02"}
	require.NoError(t, w.Alert(ctx, other))

	w.now = func() time.Time { return base.Add(2 * time.Hour) }
	require.NoError(t, w.Alert(ctx, alert))

	assert.Len(t, rcv.alerts(t), 3)
}

func TestDiscordTemplate(t *testing.T) {
	rcv, srv := newReceiver(t)

	w, err := NewDiscordWebhook(srv.URL, 0, logger.NewTestLogger())
	require.NoError(t, err)

	require.NoError(t, w.Publish(context.Background(), deviceEvent(models.StatusError, models.HealthWarning)))

	rcv.mu.Lock()
	defer rcv.mu.Unlock()

	require.Len(t, rcv.bodies, 1)

	var payload struct {
		Embeds []struct {
			Title  string `json:"title"`
			Color  int    `json:"color"`
			Fields []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"fields"`
		} `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal(rcv.bodies[0], &payload))
	require.Len(t, payload.Embeds, 1)
	assert.Equal(t, "Device Error", payload.Embeds[0].Title)
	assert.Equal(t, 15158332, payload.Embeds[0].Color)
	assert.Equal(t, "Device", payload.Embeds[0].Fields[0].Name)
	assert.Equal(t, "AA:00:00:00:00:01", payload.Embeds[0].Fields[0].Value)
}

func TestCustomHeadersAndFailures(t *testing.T) {
	rcv, srv := newReceiver(t)
	rcv.status = http.StatusBadGateway

	w := newAlerter(t, &config.WebhookConfig{
		Enabled: true,
		URL:     srv.URL,
		Headers: []config.WebhookHeader{{Key: "Authorization", Value: "Bearer token"}},
	})

	err := w.Alert(context.Background(), &WebhookAlert{Title: "Device Offline", DeviceID: "AA:00:00:00:00:01"})
	require.ErrorIs(t, err, errWebhookStatus)

	assert.Equal(t, "Bearer token", rcv.headers[0].Get("Authorization"))

	disabled := newAlerter(t, &config.WebhookConfig{URL: srv.URL})
	require.ErrorIs(t, disabled.Alert(context.Background(), &WebhookAlert{}), errWebhookDisabled)
	require.NoError(t, disabled.Publish(context.Background(), deviceEvent(models.StatusOffline, models.HealthHealthy)))
}

func TestBadTemplateFailsAtConstruction(t *testing.T) {
	_, err := NewWebhookAlerter(&config.WebhookConfig{Enabled: true, Template: "{{"}, logger.NewTestLogger())
	require.ErrorIs(t, err, errTemplateParse)
}
