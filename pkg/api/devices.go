package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mfreeman451/firmwave/pkg/ingest"
	"github.com/mfreeman451/firmwave/pkg/models"
	"github.com/mfreeman451/firmwave/pkg/registry"
)

// getDevices runs the liveness sweep, then lists every device with its
// log and measurement counts.
func (s *APIServer) getDevices(w http.ResponseWriter, r *http.Request) {
	if s.sweeper != nil {
		if _, err := s.sweeper.Sweep(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("Liveness sweep failed before listing devices")
		}
	}

	devices, err := s.registry.List(r.Context())
	if err != nil {
		s.writeError(w, err, "Failed to fetch devices")
		return
	}

	s.writeJSON(w, http.StatusOK, devices)
}

func (s *APIServer) registerDevice(w http.ResponseWriter, r *http.Request) {
	var req ingest.RegisterPayload
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, err, "Failed to create/update device")
		return
	}

	device, err := s.ingest.RegisterDevice(r.Context(), &req)
	if err != nil {
		s.writeError(w, err, "Failed to create/update device")
		return
	}

	s.writeJSON(w, http.StatusOK, device)
}

// getDevice returns one device with its latest logs and measurements.
func (s *APIServer) getDevice(w http.ResponseWriter, r *http.Request) {
	mac := mux.Vars(r)["id"]

	device, err := s.registry.Get(r.Context(), mac)
	if err != nil {
		s.writeError(w, err, "Failed to fetch device")
		return
	}

	logs, err := s.telemetry.Logs(r.Context(), device.MAC, deviceDetailLogs)
	if err != nil {
		s.writeError(w, err, "Failed to fetch device")
		return
	}

	measurements, err := s.telemetry.Measurements(r.Context(), &models.MeasurementQuery{
		DeviceID: device.MAC,
		Limit:    deviceDetailMeasurements,
	})
	if err != nil {
		s.writeError(w, err, "Failed to fetch device")
		return
	}

	s.writeJSON(w, http.StatusOK, models.DeviceDetail{
		Device:       *device,
		DebugLogs:    logs,
		Measurements: measurements,
	})
}

func (s *APIServer) updateDevice(w http.ResponseWriter, r *http.Request) {
	var req DeviceEditRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, err, "Failed to update device")
		return
	}

	edit := &models.DeviceEdit{}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		name := strings.TrimSpace(*req.Name)
		edit.Name = &name
	}

	if req.Status != nil && strings.TrimSpace(*req.Status) != "" {
		status, ok := models.ParseDeviceStatus(*req.Status)
		if !ok {
			s.writeError(w, registry.ErrInvalidStatus, "Failed to update device")
			return
		}

		edit.Status = &status
	}

	var (
		device *models.Device
		err    error
	)

	if edit.Name == nil && edit.Status == nil {
		device, err = s.registry.Get(r.Context(), mux.Vars(r)["id"])
	} else {
		device, err = s.registry.Update(r.Context(), mux.Vars(r)["id"], edit)
	}

	if err != nil {
		s.writeError(w, err, "Failed to update device")
		return
	}

	s.writeJSON(w, http.StatusOK, device)
}

func (s *APIServer) deleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err, "Failed to delete device")
		return
	}

	s.writeJSON(w, http.StatusOK, MessageResponse{Message: "Device deleted successfully"})
}
