package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mfreeman451/firmwave/pkg/ingest"
	"github.com/mfreeman451/firmwave/pkg/models"
	"github.com/mfreeman451/firmwave/pkg/telemetry"
)

func (s *APIServer) postWeather(w http.ResponseWriter, r *http.Request) {
	var req ingest.SensorPayload
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, err, "Failed to process weather data")
		return
	}

	result, err := s.ingest.RecordWeather(r.Context(), &req)
	if err != nil {
		s.writeError(w, err, "Failed to process weather data")
		return
	}

	resp := WeatherPostResponse{
		Success: true,
		Device: WeatherDeviceRef{
			MAC:    result.Device.MAC,
			Name:   result.Device.Name,
			Status: result.Device.Status,
		},
		MeasurementsSaved: len(result.Measurements),
	}

	for i := range result.Measurements {
		m := &result.Measurements[i]
		reading := &WeatherReading{Value: m.Value, Unit: m.Unit}

		switch m.Type {
		case models.MeasurementTemperature:
			resp.Data.Temperature = reading
		case models.MeasurementHumidity:
			resp.Data.Humidity = reading
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// queryPeriod turns the optional period parameter into the start of its
// window. A zero time means no period was given.
func (s *APIServer) queryPeriod(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("period")
	if raw == "" {
		return time.Time{}, nil
	}

	window, ok := models.PeriodWindow(raw)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", errInvalidPeriod, raw)
	}

	return s.now().Add(-window), nil
}

// getWeather returns the latest samples, or with period=day|week|month every
// sample in that window oldest first.
func (s *APIServer) getWeather(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		s.writeError(w, err, "Failed to fetch weather data")
		return
	}

	since, err := s.queryPeriod(r)
	if err != nil {
		s.writeError(w, err, "Failed to fetch weather data")
		return
	}

	mac := r.URL.Query().Get("mac")
	if mac != "" {
		if _, err := s.registry.Get(r.Context(), mac); err != nil {
			s.writeError(w, err, "Failed to fetch weather data")
			return
		}
	}

	var samples []models.WeatherSample

	if since.IsZero() {
		samples, err = s.telemetry.WeatherReadings(r.Context(), mac, limit)
	} else {
		samples, err = s.telemetry.WeatherHistory(r.Context(), mac, since)
	}

	if err != nil {
		s.writeError(w, err, "Failed to fetch weather data")
		return
	}

	s.writeJSON(w, http.StatusOK, WeatherListResponse{Count: len(samples), Data: samples})
}

// getMeasurements filters by deviceId or mac (both are the device MAC; an
// unknown mac is a 404), type, period and limit.
func (s *APIServer) getMeasurements(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		s.writeError(w, err, "Failed to fetch measurements")
		return
	}

	since, err := s.queryPeriod(r)
	if err != nil {
		s.writeError(w, err, "Failed to fetch measurements")
		return
	}

	params := r.URL.Query()
	q := &models.MeasurementQuery{DeviceID: params.Get("deviceId"), Since: since, Limit: limit}

	if q.DeviceID == "" && params.Get("mac") != "" {
		device, err := s.registry.Get(r.Context(), params.Get("mac"))
		if err != nil {
			s.writeError(w, err, "Failed to fetch measurements")
			return
		}

		q.DeviceID = device.MAC
	}

	if kind := params.Get("type"); kind != "" {
		q.Types = []string{kind}
	}

	measurements, err := s.telemetry.Measurements(r.Context(), q)
	if err != nil {
		s.writeError(w, err, "Failed to fetch measurements")
		return
	}

	s.writeJSON(w, http.StatusOK, MeasurementsResponse{
		Count:        len(measurements),
		Measurements: measurements,
		Statistics:   telemetry.Stats(measurements),
	})
}

func (s *APIServer) postMeasurements(w http.ResponseWriter, r *http.Request) {
	var req ingest.MeasurementsPayload
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, err, "Failed to save measurements")
		return
	}

	stored, err := s.ingest.RecordMeasurements(r.Context(), &req)
	if err != nil {
		s.writeError(w, err, "Failed to save measurements")
		return
	}

	s.writeJSON(w, http.StatusOK, MeasurementsPostResponse{Success: true, Count: len(stored), Measurements: stored})
}

func (s *APIServer) getLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		s.writeError(w, err, "Failed to fetch logs")
		return
	}

	logs, err := s.telemetry.Logs(r.Context(), r.URL.Query().Get("deviceId"), limit)
	if err != nil {
		s.writeError(w, err, "Failed to fetch logs")
		return
	}

	s.writeJSON(w, http.StatusOK, logs)
}

func (s *APIServer) clearLogs(w http.ResponseWriter, r *http.Request) {
	n, err := s.telemetry.ClearLogs(r.Context())
	if err != nil {
		s.writeError(w, err, "Failed to clear logs")
		return
	}

	s.writeJSON(w, http.StatusOK, ClearResponse{Message: "All logs cleared successfully", Deleted: n})
}

func (s *APIServer) clearMeasurements(w http.ResponseWriter, r *http.Request) {
	n, err := s.telemetry.ClearMeasurements(r.Context())
	if err != nil {
		s.writeError(w, err, "Failed to clear measurements")
		return
	}

	s.writeJSON(w, http.StatusOK, ClearResponse{Message: "All measurements cleared successfully", Deleted: n})
}
