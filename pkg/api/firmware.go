package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mfreeman451/firmwave/pkg/firmware"
)

func (s *APIServer) listFirmware(w http.ResponseWriter, r *http.Request) {
	list, err := s.firmware.List(r.Context())
	if err != nil {
		s.writeError(w, err, "Failed to fetch firmware")
		return
	}

	s.writeJSON(w, http.StatusOK, list)
}

// uploadFirmware accepts a multipart form with a "firmware" file part and a
// "version" field.
func (s *APIServer) uploadFirmware(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadLimit+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, fmt.Errorf("%w: limit is %d bytes", firmware.ErrFileTooLarge, s.uploadLimit), "Upload failed")
			return
		}

		s.writeError(w, fmt.Errorf("%w: %w", errInvalidForm, err), "Upload failed")

		return
	}

	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to remove multipart temp files")
		}
	}()

	file, header, err := r.FormFile("firmware")
	if err != nil {
		s.writeError(w, firmware.ErrMissingFile, "Upload failed")
		return
	}

	defer func() { _ = file.Close() }()

	fw, err := s.firmware.Upload(r.Context(), header.Filename, r.FormValue("version"), file)
	if err != nil {
		s.writeError(w, err, "Upload failed")
		return
	}

	s.writeJSON(w, http.StatusOK, fw)
}

func (s *APIServer) deployFirmware(w http.ResponseWriter, r *http.Request) {
	var req DeployRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, err, "Deploy failed")
		return
	}

	ids := req.DeviceIDs
	if id := strings.TrimSpace(req.DeviceID); id != "" {
		ids = append(ids, id)
	}

	result, err := s.firmware.Deploy(r.Context(), req.FirmwareID, ids)
	if err != nil {
		s.writeError(w, err, "Deploy failed")
		return
	}

	s.writeJSON(w, http.StatusOK, DeployResponse{
		Message:          fmt.Sprintf("Sent to %d of %d devices", result.Sent, result.Total),
		DeploymentResult: result,
	})
}

// serveFirmwareFile serves a stored binary to devices fetching an OTA
// update. Range requests are honored.
func (s *APIServer) serveFirmwareFile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	f, err := s.firmware.Open(name)
	if err != nil {
		s.writeError(w, err, "Failed to read firmware")
		return
	}

	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		s.writeError(w, err, "Failed to read firmware")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, name, info.ModTime(), f)
}
