/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package firmware stores firmware artifacts and pushes OTA commands to
// devices.
package firmware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mfreeman451/firmwave/pkg/config"
	"github.com/mfreeman451/firmwave/pkg/db"
	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/models"
	"github.com/mfreeman451/firmwave/pkg/registry"
)

const (
	// FilesPath is the URL prefix devices download blobs from.
	FilesPath = "/firmware/files/"

	defaultWorkers        = 4
	defaultPublishTimeout = 5 * time.Second

	// OTA timestamps use millisecond ISO-8601 in UTC, which the device
	// firmware parses.
	otaTimestampLayout = "2006-01-02T15:04:05.000Z"
)

// Distributor uploads firmware artifacts and deploys them to devices.
type Distributor struct {
	store          db.Service
	registry       registry.Service
	publisher      Publisher
	blobs          *BlobStore
	logger         logger.Logger
	publicURL      string
	maxSize        int64
	allowed        map[string]struct{}
	broadcastAll   bool
	workers        int
	publishTimeout time.Duration
	now            func() time.Time
}

var _ Service = (*Distributor)(nil)

func New(
	cfg *config.FirmwareConfig,
	publishTimeout time.Duration,
	store db.Service,
	reg registry.Service,
	publisher Publisher,
	log logger.Logger) (*Distributor, error) {
	blobs, err := NewBlobStore(cfg.Dir)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	workers := cfg.DeployWorkers
	if workers <= 0 {
		workers = defaultWorkers
	}

	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}

	return &Distributor{
		store:          store,
		registry:       reg,
		publisher:      publisher,
		blobs:          blobs,
		logger:         log.WithComponent("firmware"),
		publicURL:      strings.TrimRight(cfg.PublicURL, "/"),
		maxSize:        cfg.MaxSize,
		allowed:        allowed,
		broadcastAll:   cfg.BroadcastAll,
		workers:        workers,
		publishTimeout: publishTimeout,
		now:            func() time.Time { return time.Now().UTC() },
	}, nil
}

// Upload validates and stores one firmware binary and records it.
func (d *Distributor) Upload(ctx context.Context, filename, version string, r io.Reader) (*models.Firmware, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if r == nil || filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, ErrMissingFile
	}

	version = strings.TrimSpace(version)
	if version == "" {
		return nil, ErrMissingVersion
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := d.allowed[ext]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrExtensionNotAllowed, ext)
	}

	id := uuid.New().String()
	blob := id + ext

	size, err := d.blobs.Save(blob, r, d.maxSize)
	if err != nil {
		return nil, err
	}

	if size == 0 {
		_ = d.blobs.Remove(blob)

		return nil, ErrMissingFile
	}

	fw := &models.Firmware{
		ID:         id,
		Filename:   filename,
		Version:    version,
		Size:       size,
		Path:       d.blobs.Path(blob),
		URL:        d.publicURL + FilesPath + blob,
		UploadedAt: d.now(),
	}

	if err := d.store.InsertFirmware(ctx, fw); err != nil {
		if rmErr := d.blobs.Remove(blob); rmErr != nil {
			d.logger.Warn().Err(rmErr).Str("blob", blob).Msg("Failed to remove orphaned firmware file")
		}

		return nil, err
	}

	d.logger.Info().
		Str("id", fw.ID).
		Str("filename", fw.Filename).
		Str("version", fw.Version).
		Int64("size", fw.Size).
		Msg("Firmware uploaded")

	return fw, nil
}

func (d *Distributor) List(ctx context.Context) ([]models.Firmware, error) {
	return d.store.ListFirmware(ctx)
}

// Open returns a stored blob by its file name.
func (d *Distributor) Open(name string) (*os.File, error) {
	return d.blobs.Open(name)
}

// Deploy sends an OTA command for firmwareID to each device in deviceIDs,
// or to every ONLINE device when deviceIDs is empty. A failure for one
// device is reported in its result entry and never aborts the others.
func (d *Distributor) Deploy(ctx context.Context, firmwareID string, deviceIDs []string) (*models.DeploymentResult, error) {
	firmwareID = strings.TrimSpace(firmwareID)
	if firmwareID == "" {
		return nil, ErrMissingFirmwareID
	}

	fw, err := d.store.GetFirmware(ctx, firmwareID)
	if err != nil {
		return nil, err
	}

	cmd := &models.OTACommand{
		URL:       fw.URL,
		Version:   fw.Version,
		Timestamp: d.now().Format(otaTimestampLayout),
	}

	var results []models.DeviceDeployResult

	switch {
	case len(deviceIDs) > 0:
		results = d.deployTargets(ctx, cmd, deviceIDs, true)
	case d.broadcastAll:
		results, err = d.deployBroadcast(ctx, cmd)
	default:
		results, err = d.deployOnline(ctx, cmd)
	}

	if err != nil {
		return nil, err
	}

	result := &models.DeploymentResult{
		FirmwareID: fw.ID,
		Filename:   fw.Filename,
		Version:    fw.Version,
		URL:        fw.URL,
		Total:      len(results),
		Results:    results,
	}

	for i := range results {
		if results[i].Status == models.DeploySent {
			result.Sent++
		} else {
			result.Failed++
		}
	}

	d.logger.Info().
		Str("firmware_id", fw.ID).
		Str("version", fw.Version).
		Int("total", result.Total).
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Msg("Firmware deployment finished")

	return result, nil
}

func (d *Distributor) deployOnline(ctx context.Context, cmd *models.OTACommand) ([]models.DeviceDeployResult, error) {
	devices, err := d.registry.ListByStatus(ctx, models.StatusOnline)
	if err != nil {
		return nil, err
	}

	macs := make([]string, len(devices))
	for i := range devices {
		macs[i] = devices[i].MAC
	}

	return d.deployTargets(ctx, cmd, macs, false), nil
}

// deployBroadcast publishes once on the broadcast topic and marks every
// ONLINE device as updating.
func (d *Distributor) deployBroadcast(ctx context.Context, cmd *models.OTACommand) ([]models.DeviceDeployResult, error) {
	devices, err := d.registry.ListByStatus(ctx, models.StatusOnline)
	if err != nil {
		return nil, err
	}

	pubCtx, cancel := context.WithTimeout(ctx, d.publishTimeout)
	pubErr := d.publisher.PublishOTA(pubCtx, "", cmd)
	cancel()

	results := make([]models.DeviceDeployResult, len(devices))

	for i := range devices {
		results[i] = models.DeviceDeployResult{DeviceID: devices[i].MAC, Status: models.DeploySent}

		if pubErr != nil {
			results[i].Status = models.DeployFailed
			results[i].Error = pubErr.Error()

			continue
		}

		d.markUpdating(ctx, devices[i].MAC)
	}

	if pubErr != nil {
		d.logger.Error().Err(pubErr).Msg("Failed to broadcast OTA command")
	}

	return results, nil
}

// deployTargets fans the per-device work out over a bounded worker pool.
// Results keep the order of macs.
func (d *Distributor) deployTargets(
	ctx context.Context, cmd *models.OTACommand, macs []string, lookup bool) []models.DeviceDeployResult {
	results := make([]models.DeviceDeployResult, len(macs))
	if len(macs) == 0 {
		return results
	}

	indexes := make(chan int, d.workers)

	var wg sync.WaitGroup

	workers := d.workers
	if workers > len(macs) {
		workers = len(macs)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range indexes {
				results[i] = d.deployOne(ctx, cmd, macs[i], lookup)
			}
		}()
	}

	for i := range macs {
		indexes <- i
	}

	close(indexes)
	wg.Wait()

	return results
}

func (d *Distributor) deployOne(ctx context.Context, cmd *models.OTACommand, mac string, lookup bool) models.DeviceDeployResult {
	mac = models.NormalizeMAC(mac)
	result := models.DeviceDeployResult{DeviceID: mac}

	if err := ctx.Err(); err != nil {
		return failed(result, err)
	}

	if lookup {
		if _, err := d.registry.Get(ctx, mac); err != nil {
			if errors.Is(err, db.ErrDeviceNotFound) {
				err = errDeviceNotFound
			}

			return failed(result, err)
		}
	}

	pubCtx, cancel := context.WithTimeout(ctx, d.publishTimeout)
	defer cancel()

	if err := d.publisher.PublishOTA(pubCtx, mac, cmd); err != nil {
		d.logger.Warn().Err(err).Str("mac", mac).Msg("Failed to publish OTA command")

		return failed(result, err)
	}

	d.markUpdating(ctx, mac)

	result.Status = models.DeploySent

	return result
}

// markUpdating records that a command went out. The publish already
// happened, so a failure here is logged and the entry stays "sent".
func (d *Distributor) markUpdating(ctx context.Context, mac string) {
	if _, err := d.registry.SetStatus(ctx, mac, models.StatusUpdating); err != nil {
		d.logger.Error().Err(err).Str("mac", mac).Msg("Failed to mark device as updating")
	}
}

func failed(result models.DeviceDeployResult, err error) models.DeviceDeployResult {
	result.Status = models.DeployFailed
	result.Error = err.Error()

	return result
}
