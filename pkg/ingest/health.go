package ingest

import "github.com/mfreeman451/firmwave/pkg/models"

const (
	criticalBatteryPercent = 20
	warningTemperatureC    = 80
)

// CalculateHealth derives a health indicator from the optional battery and
// temperature readings of a status message.
func CalculateHealth(battery, temperature Number) models.Health {
	if battery.Valid && battery.Value < criticalBatteryPercent {
		return models.HealthCritical
	}

	if temperature.Valid && temperature.Value > warningTemperatureC {
		return models.HealthWarning
	}

	return models.HealthHealthy
}
