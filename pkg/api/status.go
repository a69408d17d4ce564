package api

import (
	"net/http"
	"time"
)

func (s *APIServer) getStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.registry.Summary(r.Context())
	if err != nil {
		s.writeError(w, err, "Failed to fetch system status")
		return
	}

	s.writeJSON(w, http.StatusOK, status)
}

// getHealth checks the database and reports row counts.
func (s *APIServer) getHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fail := func(err error) {
		s.logger.Error().Err(err).Msg("Health check failed")

		resp := HealthResponse{Error: "Database connection failed"}
		if s.debug {
			resp.Error = err.Error()
		}

		s.writeJSON(w, http.StatusInternalServerError, resp)
	}

	if err := s.health.Ping(ctx); err != nil {
		fail(err)
		return
	}

	summary, err := s.registry.Summary(ctx)
	if err != nil {
		fail(err)
		return
	}

	measurements, err := s.health.CountMeasurements(ctx)
	if err != nil {
		fail(err)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Success: true,
		Database: DatabaseHealth{
			Connected:   true,
			CurrentTime: time.Now().UTC().Format(time.RFC3339Nano),
			Counts: HealthCounts{
				Devices:      summary.TotalDevices,
				Measurements: measurements,
			},
		},
	})
}
