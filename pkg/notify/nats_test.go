package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/models"
)

func runNATSServer(t *testing.T) *server.Server {
	t.Helper()

	srv, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1})
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	t.Cleanup(srv.Shutdown)

	return srv
}

func TestNATSSinkPublishesOnEventSubjects(t *testing.T) {
	srv := runNATSServer(t)

	sink, err := NewNATSSink(srv.ClientURL(), "fleet", logger.NewTestLogger())
	require.NoError(t, err)

	t.Cleanup(func() { _ = sink.Stop(context.Background()) })

	sub, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)

	t.Cleanup(sub.Close)

	msgs := make(chan *nats.Msg, 4)
	_, err = sub.ChanSubscribe("fleet.>", msgs)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	ctx := context.Background()
	require.NoError(t, sink.Publish(ctx, &models.Event{
		Name: models.EventDeviceUpdate,
		Data: &models.Device{MAC: "AA:00:00:00:00:01"},
	}))
	require.NoError(t, sink.Publish(ctx, &models.Event{
		Name: models.EventLogUpdate,
		Data: &models.DebugLog{DeviceID: "AA:00:00:00:00:01", Message: "hello"},
	}))

	var subjects []string

	for i := 0; i < 2; i++ {
		select {
		case msg := <-msgs:
			subjects = append(subjects, msg.Subject)

			var envelope map[string]interface{}
			require.NoError(t, json.Unmarshal(msg.Data, &envelope))
			assert.Contains(t, envelope, "event")
			assert.Contains(t, envelope, "data")
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for NATS message")
		}
	}

	assert.ElementsMatch(t, []string{"fleet.device.update", "fleet.log.update"}, subjects)
}

func TestNATSSinkSubject(t *testing.T) {
	sink := &NATSSink{prefix: DefaultSubjectPrefix}

	tests := []struct {
		event   string
		want    string
		wantErr bool
	}{
		{event: models.EventDeviceUpdate, want: "firmwave.device.update"},
		{event: models.EventLogUpdate, want: "firmwave.log.update"},
		{event: "firmware-update", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			got, err := sink.Subject(tt.event)
			if tt.wantErr {
				require.ErrorIs(t, err, errUnknownEvent)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewNATSSinkConnectFailure(t *testing.T) {
	_, err := NewNATSSink("nats://127.0.0.1:1", "", logger.NewTestLogger())
	require.ErrorIs(t, err, errNATSConnect)
}
