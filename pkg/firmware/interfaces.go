package firmware

import (
	"context"
	"io"
	"os"

	"github.com/mfreeman451/firmwave/pkg/models"
)

//go:generate mockgen -destination=mock_firmware.go -package=firmware github.com/mfreeman451/firmwave/pkg/firmware Publisher

// Publisher delivers an OTA command to one device, or to every device
// listening on the broadcast topic when mac is empty.
type Publisher interface {
	PublishOTA(ctx context.Context, mac string, cmd *models.OTACommand) error
}

// Service is the firmware distributor as used by the HTTP API.
type Service interface {
	Upload(ctx context.Context, filename, version string, r io.Reader) (*models.Firmware, error)
	List(ctx context.Context) ([]models.Firmware, error)
	Open(name string) (*os.File, error)
	Deploy(ctx context.Context, firmwareID string, deviceIDs []string) (*models.DeploymentResult, error)
}
