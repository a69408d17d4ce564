// Package registry owns device identity, status and liveness bookkeeping.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/mfreeman451/firmwave/pkg/db"
	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/models"
	"github.com/mfreeman451/firmwave/pkg/notify"
)

// Registry is the device registry service. Every committed change to a
// device row is announced through the notifier.
type Registry struct {
	store    db.Service
	notifier notify.Notifier
	logger   logger.Logger
	now      func() time.Time
}

var _ Service = (*Registry)(nil)

func New(store db.Service, notifier notify.Notifier, log logger.Logger) *Registry {
	return &Registry{
		store:    store,
		notifier: notifier,
		logger:   log.WithComponent("registry"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Upsert records a liveness-bearing signal, creating the device on first
// contact.
func (r *Registry) Upsert(ctx context.Context, signal *models.DeviceSignal) (*models.Device, error) {
	normalized, err := r.normalize(signal)
	if err != nil {
		return nil, err
	}

	device, err := r.store.UpsertDevice(ctx, normalized)
	if err != nil {
		return nil, err
	}

	r.notifier.DeviceUpdated(device)

	return device, nil
}

// Touch refreshes liveness of a device that already exists. Unknown devices
// yield db.ErrDeviceNotFound.
func (r *Registry) Touch(ctx context.Context, mac string, seenAt time.Time) (*models.Device, error) {
	mac = models.NormalizeMAC(mac)
	if mac == "" {
		return nil, ErrInvalidMAC
	}

	if seenAt.IsZero() {
		seenAt = r.now()
	}

	device, err := r.store.TouchDevice(ctx, mac, seenAt)
	if err != nil {
		return nil, err
	}

	r.notifier.DeviceUpdated(device)

	return device, nil
}

func (r *Registry) Get(ctx context.Context, mac string) (*models.Device, error) {
	return r.store.GetDevice(ctx, models.NormalizeMAC(mac))
}

func (r *Registry) List(ctx context.Context) ([]models.DeviceSummary, error) {
	return r.store.ListDevices(ctx)
}

func (r *Registry) ListByStatus(ctx context.Context, status models.DeviceStatus) ([]models.Device, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	return r.store.ListDevicesByStatus(ctx, status)
}

// Update applies an operator edit of name and/or status.
func (r *Registry) Update(ctx context.Context, mac string, edit *models.DeviceEdit) (*models.Device, error) {
	if edit == nil || (edit.Name == nil && edit.Status == nil) {
		return nil, ErrEmptyEdit
	}

	if edit.Status != nil && !edit.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *edit.Status)
	}

	if edit.Name != nil && *edit.Name == "" {
		return nil, ErrEmptyName
	}

	device, err := r.store.UpdateDevice(ctx, models.NormalizeMAC(mac), edit)
	if err != nil {
		return nil, err
	}

	r.notifier.DeviceUpdated(device)

	return device, nil
}

func (r *Registry) SetStatus(ctx context.Context, mac string, status models.DeviceStatus) (*models.Device, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	device, err := r.store.SetDeviceStatus(ctx, models.NormalizeMAC(mac), status)
	if err != nil {
		return nil, err
	}

	r.notifier.DeviceUpdated(device)

	return device, nil
}

// MarkOffline is idempotent; only an actual transition is announced.
func (r *Registry) MarkOffline(ctx context.Context, mac string) (bool, error) {
	device, changed, err := r.store.MarkOffline(ctx, models.NormalizeMAC(mac))
	if err != nil {
		return false, err
	}

	if changed {
		r.notifier.DeviceUpdated(device)
	}

	return changed, nil
}

// MarkStaleOffline transitions every device silent since before cutoff and
// returns those that changed.
func (r *Registry) MarkStaleOffline(ctx context.Context, cutoff time.Time) ([]models.Device, error) {
	changed, err := r.store.MarkStaleOffline(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	for i := range changed {
		r.logger.Info().
			Str("mac", changed[i].MAC).
			Time("last_seen", changed[i].LastSeen).
			Msg("Device went offline")

		r.notifier.DeviceUpdated(&changed[i])
	}

	return changed, nil
}

// Delete removes the device and everything it owns.
func (r *Registry) Delete(ctx context.Context, mac string) error {
	mac = models.NormalizeMAC(mac)

	if err := r.store.DeleteDevice(ctx, mac); err != nil {
		return err
	}

	r.logger.Info().Str("mac", mac).Msg("Device deleted")

	return nil
}

// Summary returns per-status device totals.
func (r *Registry) Summary(ctx context.Context) (*models.FleetStatus, error) {
	counts, err := r.store.CountDevicesByStatus(ctx)
	if err != nil {
		return nil, err
	}

	status := &models.FleetStatus{
		Online:     counts[models.StatusOnline],
		Offline:    counts[models.StatusOffline],
		Updating:   counts[models.StatusUpdating],
		Error:      counts[models.StatusError],
		LastUpdate: r.now(),
	}

	for _, n := range counts {
		status.TotalDevices += n
	}

	return status, nil
}

func (r *Registry) normalize(signal *models.DeviceSignal) (*models.DeviceSignal, error) {
	if signal == nil {
		return nil, ErrInvalidMAC
	}

	out := *signal
	out.MAC = models.NormalizeMAC(signal.MAC)

	if out.MAC == "" {
		return nil, ErrInvalidMAC
	}

	if out.Status != nil && !out.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *out.Status)
	}

	if out.Health != nil && !out.Health.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHealth, *out.Health)
	}

	if out.SeenAt.IsZero() {
		out.SeenAt = r.now()
	}

	return &out, nil
}
