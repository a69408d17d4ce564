package notify

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/models"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := NewHub(logger.NewTestLogger())
	require.NoError(t, hub.Start(context.Background()))

	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		_ = hub.Stop(context.Background())
		srv.Close()
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, hub *Hub, url string, want int) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.Clients() == want }, 2*time.Second, 10*time.Millisecond)

	return conn
}

func TestHubBroadcastsEnvelope(t *testing.T) {
	hub, url := startHub(t)

	a := dial(t, hub, url, 1)
	b := dial(t, hub, url, 2)

	device := &models.Device{MAC: "AA:00:00:00:00:01", Status: models.StatusUpdating}
	require.NoError(t, hub.Publish(context.Background(), &models.Event{Name: models.EventDeviceUpdate, Data: device}))

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var envelope struct {
			Event string        `json:"event"`
			Data  models.Device `json:"data"`
		}

		require.NoError(t, json.Unmarshal(raw, &envelope))
		assert.Equal(t, models.EventDeviceUpdate, envelope.Event)
		assert.Equal(t, "AA:00:00:00:00:01", envelope.Data.MAC)
		assert.Equal(t, models.StatusUpdating, envelope.Data.Status)
	}
}

func TestHubUnregistersClosedClient(t *testing.T) {
	hub, url := startHub(t)

	conn := dial(t, hub, url, 1)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubStopDisconnectsClients(t *testing.T) {
	hub, url := startHub(t)

	conn := dial(t, hub, url, 1)
	require.NoError(t, hub.Stop(context.Background()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	assert.ErrorIs(t, hub.Publish(context.Background(), &models.Event{Name: models.EventLogUpdate}), errHubNotRunning)
}
