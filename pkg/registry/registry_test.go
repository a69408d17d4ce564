package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mfreeman451/firmwave/pkg/db"
	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/models"
	"github.com/mfreeman451/firmwave/pkg/notify"
)

func newTestRegistry(t *testing.T) (*Registry, *notify.MockNotifier) {
	t.Helper()

	ctrl := gomock.NewController(t)

	store, err := db.New(context.Background(), filepath.Join(t.TempDir(), "registry.db"), logger.NewTestLogger())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	notifier := notify.NewMockNotifier(ctrl)

	return New(store, notifier, logger.NewTestLogger()), notifier
}

func ptr[T any](v T) *T { return &v }

func TestUpsertNormalizesAndNotifies(t *testing.T) {
	reg, notifier := newTestRegistry(t)

	notifier.EXPECT().DeviceUpdated(gomock.Any()).Do(func(d *models.Device) {
		assert.Equal(t, "AA:BB:CC:DD:EE:FF", d.MAC)
	})

	device, err := reg.Upsert(context.Background(), &models.DeviceSignal{MAC: "  aa:bb:cc:dd:ee:ff "})
	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", device.MAC)
	assert.Equal(t, models.StatusOnline, device.Status)
	assert.False(t, device.LastSeen.IsZero())
}

func TestUpsertValidation(t *testing.T) {
	reg, _ := newTestRegistry(t)

	tests := []struct {
		name   string
		signal *models.DeviceSignal
		want   error
	}{
		{name: "nil", signal: nil, want: ErrInvalidMAC},
		{name: "blank mac", signal: &models.DeviceSignal{MAC: "   "}, want: ErrInvalidMAC},
		{name: "bad status", signal: &models.DeviceSignal{MAC: "AA", Status: ptr(models.DeviceStatus("ASLEEP"))}, want: ErrInvalidStatus},
		{name: "bad health", signal: &models.DeviceSignal{MAC: "AA", Health: ptr(models.Health("FINE"))}, want: ErrInvalidHealth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Upsert(context.Background(), tt.signal)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHeartbeatResolvesUpdating(t *testing.T) {
	reg, notifier := newTestRegistry(t)
	ctx := context.Background()

	notifier.EXPECT().DeviceUpdated(gomock.Any()).Times(3)

	_, err := reg.Upsert(ctx, &models.DeviceSignal{MAC: "AA:00:00:00:00:01"})
	require.NoError(t, err)

	device, err := reg.SetStatus(ctx, "aa:00:00:00:00:01", models.StatusUpdating)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUpdating, device.Status)

	device, err = reg.Upsert(ctx, &models.DeviceSignal{MAC: "AA:00:00:00:00:01", Version: ptr("2.0.0")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnline, device.Status)
	assert.Equal(t, "2.0.0", device.Version)
}

func TestTouchUnknownDevice(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Touch(context.Background(), "AA:00:00:00:00:02", time.Time{})
	require.ErrorIs(t, err, db.ErrDeviceNotFound)

	_, err = reg.Touch(context.Background(), "", time.Time{})
	require.ErrorIs(t, err, ErrInvalidMAC)
}

func TestMarkOfflineNotifiesOnlyOnTransition(t *testing.T) {
	reg, notifier := newTestRegistry(t)
	ctx := context.Background()

	// One for the upsert, one for the single transition.
	notifier.EXPECT().DeviceUpdated(gomock.Any()).Times(2)

	_, err := reg.Upsert(ctx, &models.DeviceSignal{MAC: "AA:00:00:00:00:03"})
	require.NoError(t, err)

	changed, err := reg.MarkOffline(ctx, "AA:00:00:00:00:03")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = reg.MarkOffline(ctx, "AA:00:00:00:00:03")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestUpdateValidation(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Update(ctx, "AA:00:00:00:00:04", &models.DeviceEdit{})
	require.ErrorIs(t, err, ErrEmptyEdit)

	_, err = reg.Update(ctx, "AA:00:00:00:00:04", &models.DeviceEdit{Name: ptr("")})
	require.ErrorIs(t, err, ErrEmptyName)

	_, err = reg.Update(ctx, "AA:00:00:00:00:04", &models.DeviceEdit{Status: ptr(models.DeviceStatus("GONE"))})
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = reg.Update(ctx, "AA:00:00:00:00:04", &models.DeviceEdit{Name: ptr("Shed")})
	require.ErrorIs(t, err, db.ErrDeviceNotFound)
}

func TestDeleteAndSummary(t *testing.T) {
	reg, notifier := newTestRegistry(t)
	ctx := context.Background()

	notifier.EXPECT().DeviceUpdated(gomock.Any()).AnyTimes()

	for _, mac := range []string{"AA:00:00:00:00:05", "AA:00:00:00:00:06", "AA:00:00:00:00:07"} {
		_, err := reg.Upsert(ctx, &models.DeviceSignal{MAC: mac})
		require.NoError(t, err)
	}

	_, err := reg.SetStatus(ctx, "AA:00:00:00:00:06", models.StatusError)
	require.NoError(t, err)

	require.NoError(t, reg.Delete(ctx, "aa:00:00:00:00:07"))
	require.ErrorIs(t, reg.Delete(ctx, "AA:00:00:00:00:07"), db.ErrDeviceNotFound)

	summary, err := reg.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalDevices)
	assert.Equal(t, 1, summary.Online)
	assert.Equal(t, 1, summary.Error)
	assert.Equal(t, 0, summary.Offline)
}

func TestMarkStaleOfflineNotifiesEach(t *testing.T) {
	reg, notifier := newTestRegistry(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-10 * time.Minute)

	var offline []*models.Device

	gomock.InOrder(
		notifier.EXPECT().DeviceUpdated(gomock.Any()),
		notifier.EXPECT().DeviceUpdated(gomock.Any()).Do(func(d *models.Device) {
			offline = append(offline, d)
		}),
		notifier.EXPECT().DeviceUpdated(gomock.Any()).Do(func(d *models.Device) {
			assert.Equal(t, models.StatusOnline, d.Status)
		}),
	)

	_, err := reg.Upsert(ctx, &models.DeviceSignal{MAC: "AA:00:00:00:00:08", SeenAt: past})
	require.NoError(t, err)

	changed, err := reg.MarkStaleOffline(ctx, time.Now().UTC().Add(-2*time.Minute))
	require.NoError(t, err)
	require.Len(t, changed, 1)
	require.Len(t, offline, 1)
	assert.Equal(t, models.StatusOffline, offline[0].Status)

	_, err = reg.Upsert(ctx, &models.DeviceSignal{MAC: "AA:00:00:00:00:08"})
	require.NoError(t, err)
}
