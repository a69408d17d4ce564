package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mfreeman451/firmwave/pkg/config"
	"github.com/mfreeman451/firmwave/pkg/db"
	"github.com/mfreeman451/firmwave/pkg/firmware"
	"github.com/mfreeman451/firmwave/pkg/ingest"
	"github.com/mfreeman451/firmwave/pkg/liveness"
	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/models"
	"github.com/mfreeman451/firmwave/pkg/notify"
	"github.com/mfreeman451/firmwave/pkg/registry"
	"github.com/mfreeman451/firmwave/pkg/telemetry"
)

const (
	stationMAC = "24:6F:28:AB:CD:EF"
	uploadMax  = 64
)

var errDatabaseDown = errors.New("database is locked")

type testServer struct {
	api       *APIServer
	store     *db.DB
	router    *ingest.Router
	publisher *firmware.MockPublisher
}

func newTestServer(t *testing.T, options ...func(*APIServer)) *testServer {
	t.Helper()

	ctx := context.Background()
	tmp := t.TempDir()
	log := logger.NewTestLogger()

	store, err := db.New(ctx, filepath.Join(tmp, "api.db"), log)
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	ctrl := gomock.NewController(t)

	notifier := notify.NewMockNotifier(ctrl)
	notifier.EXPECT().DeviceUpdated(gomock.Any()).AnyTimes()
	notifier.EXPECT().LogAppended(gomock.Any()).AnyTimes()

	reg := registry.New(store, notifier, log)
	tel := telemetry.New(store, notifier, 0, log)
	router := ingest.NewRouter(reg, tel, time.Second, log)
	publisher := firmware.NewMockPublisher(ctrl)

	dist, err := firmware.New(&config.FirmwareConfig{
		Dir:               filepath.Join(tmp, "blobs"),
		MaxSize:           uploadMax,
		AllowedExtensions: []string{".bin"},
		PublicURL:         "http://fw.local:3000",
		DeployWorkers:     2,
	}, time.Second, store, reg, publisher, log)
	require.NoError(t, err)

	monitor, err := liveness.New(reg, 2*time.Minute, time.Minute, log)
	require.NoError(t, err)

	opts := []func(*APIServer){
		WithRegistry(reg),
		WithTelemetry(tel),
		WithIngestor(router),
		WithFirmware(dist),
		WithSweeper(monitor),
		WithHealthChecker(store),
		WithUploadLimit(uploadMax),
	}

	return &testServer{
		api:       NewAPIServer(log, append(opts, options...)...),
		store:     store,
		router:    router,
		publisher: publisher,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	ts.api.ServeHTTP(rec, req)

	return rec
}

func (ts *testServer) upload(t *testing.T, filename, version string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	if version != "" {
		require.NoError(t, mw.WriteField("version", version))
	}

	if filename != "" {
		part, err := mw.CreateFormFile("firmware", filename)
		require.NoError(t, err)

		_, err = part.Write(content)
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/firmware/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	ts.api.ServeHTTP(rec, req)

	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestDeviceLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/devices", map[string]string{"mac": "aa:bb:cc:dd:ee:ff", "name": "Roof"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var device models.Device
	decode(t, rec, &device)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", device.MAC)
	assert.Equal(t, "Roof", device.Name)
	assert.Equal(t, models.StatusOnline, device.Status)

	rec = ts.do(t, http.MethodGet, "/api/devices", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []models.DeviceSummary
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Zero(t, list[0].Count.DebugLogs)

	rec = ts.do(t, http.MethodGet, "/api/devices/AA:BB:CC:DD:EE:FF", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail models.DeviceDetail
	decode(t, rec, &detail)
	assert.Equal(t, "Roof", detail.Name)
	assert.Empty(t, detail.DebugLogs)

	rec = ts.do(t, http.MethodPut, "/api/devices/AA:BB:CC:DD:EE:FF", map[string]string{"status": "BOGUS"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/devices/AA:BB:CC:DD:EE:FF", map[string]string{"name": "Garden", "status": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &device)
	assert.Equal(t, "Garden", device.Name)
	assert.Equal(t, models.StatusOnline, device.Status)

	rec = ts.do(t, http.MethodPut, "/api/devices/AA:BB:CC:DD:EE:FF", map[string]string{"name": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &device)
	assert.Equal(t, "Garden", device.Name)

	rec = ts.do(t, http.MethodDelete, "/api/devices/AA:BB:CC:DD:EE:FF", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var msg MessageResponse
	decode(t, rec, &msg)
	assert.Equal(t, "Device deleted successfully", msg.Message)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/devices/AA:BB:CC:DD:EE:FF", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/devices/AA:BB:CC:DD:EE:FF", nil).Code)
	assert.Equal(t, http.StatusNotFound,
		ts.do(t, http.MethodPut, "/api/devices/AA:BB:CC:DD:EE:FF", map[string]string{"name": "x"}).Code)
}

func TestRegisterDeviceRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/devices", map[string]string{"name": "no mac"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Error)
	assert.Empty(t, resp.Details)

	req := httptest.NewRequest(http.MethodPost, "/api/devices", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	ts.api.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWeatherAndMeasurements(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/weather", map[string]interface{}{
		"mac":         stationMAC,
		"temperature": 21.5,
		"humidity":    "40",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var posted WeatherPostResponse
	decode(t, rec, &posted)
	assert.True(t, posted.Success)
	assert.Equal(t, 2, posted.MeasurementsSaved)
	assert.Equal(t, "ESP32_Meteo_CDEF", posted.Device.Name)
	require.NotNil(t, posted.Data.Temperature)
	assert.InDelta(t, 21.5, posted.Data.Temperature.Value, 0.0001)
	assert.Equal(t, models.UnitCelsius, posted.Data.Temperature.Unit)
	require.NotNil(t, posted.Data.Humidity)
	assert.Equal(t, models.UnitPercent, posted.Data.Humidity.Unit)

	rec = ts.do(t, http.MethodPost, "/api/weather", map[string]interface{}{"mac": stationMAC, "temperature": "n/a"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/weather?mac="+url.QueryEscape(stationMAC), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var weather WeatherListResponse
	decode(t, rec, &weather)
	require.Equal(t, 1, weather.Count)
	assert.Len(t, weather.Data[0].Data, 2)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/weather?mac=00:00:00:00:00:00", nil).Code)

	rec = ts.do(t, http.MethodPost, "/api/measurements", map[string]interface{}{
		"mac": stationMAC,
		"measurements": []map[string]interface{}{
			{"type": "pressure", "value": 1013.2, "unit": "hPa"},
			{"type": "", "value": 1},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var saved MeasurementsPostResponse
	decode(t, rec, &saved)
	assert.True(t, saved.Success)
	assert.Equal(t, 1, saved.Count)

	rec = ts.do(t, http.MethodPost, "/api/measurements", map[string]interface{}{
		"mac":          "00:00:00:00:00:00",
		"measurements": []map[string]interface{}{{"type": "pressure", "value": 1}},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/measurements?mac="+url.QueryEscape(stationMAC)+"&type=temperature", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var measurements MeasurementsResponse
	decode(t, rec, &measurements)
	assert.Equal(t, 1, measurements.Count)
	require.Contains(t, measurements.Statistics, "temperature")
	assert.Equal(t, 1, measurements.Statistics["temperature"].Count)

	rec = ts.do(t, http.MethodGet, "/api/measurements?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &measurements)
	assert.Equal(t, 2, measurements.Count)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/measurements?limit=abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/measurements?mac=00:00:00:00:00:00", nil).Code)
}

func TestWeatherStationLocation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/weather", map[string]interface{}{
		"mac":         stationMAC,
		"temperature": 21.5,
		"humidity":    "abc",
		"lat":         -34.6,
		"lon":         -58.4,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var posted WeatherPostResponse
	decode(t, rec, &posted)
	assert.Equal(t, 1, posted.MeasurementsSaved)
	assert.Nil(t, posted.Data.Humidity)

	// A later post without coordinates keeps the stored location.
	rec = ts.do(t, http.MethodPost, "/api/weather", map[string]interface{}{"mac": stationMAC, "temperature": 22})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/devices", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var devices []models.DeviceSummary
	decode(t, rec, &devices)
	require.Len(t, devices, 1)
	require.NotNil(t, devices[0].Latitude)
	require.NotNil(t, devices[0].Longitude)
	assert.InDelta(t, -34.6, *devices[0].Latitude, 0.0001)
	assert.InDelta(t, -58.4, *devices[0].Longitude, 0.0001)
}

func TestWeatherHistoryAndClear(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/devices", map[string]string{"mac": stationMAC}).Code)

	now := time.Now().UTC()
	ts.api.now = func() time.Time { return now }

	for _, age := range []time.Duration{10 * 24 * time.Hour, time.Hour, 3 * 24 * time.Hour} {
		_, err := ts.store.InsertMeasurements(ctx, stationMAC, []models.Reading{
			{Type: models.MeasurementTemperature, Value: 20, Unit: models.UnitCelsius},
			{Type: models.MeasurementHumidity, Value: 50, Unit: models.UnitPercent},
		}, now.Add(-age))
		require.NoError(t, err)
	}

	rec := ts.do(t, http.MethodGet, "/api/weather?period=week&mac="+url.QueryEscape(stationMAC), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var weather WeatherListResponse
	decode(t, rec, &weather)
	require.Equal(t, 2, weather.Count)
	assert.True(t, weather.Data[0].Timestamp.Before(weather.Data[1].Timestamp))
	assert.WithinDuration(t, now.Add(-3*24*time.Hour), weather.Data[0].Timestamp, time.Millisecond)

	rec = ts.do(t, http.MethodGet, "/api/weather?period=month", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &weather)
	assert.Equal(t, 3, weather.Count)

	rec = ts.do(t, http.MethodGet, "/api/measurements?period=week", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var measurements MeasurementsResponse
	decode(t, rec, &measurements)
	assert.Equal(t, 4, measurements.Count)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/weather?period=year", nil).Code)

	rec = ts.do(t, http.MethodDelete, "/api/measurements", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cleared ClearResponse
	decode(t, rec, &cleared)
	assert.Equal(t, int64(6), cleared.Deleted)

	rec = ts.do(t, http.MethodGet, "/api/measurements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &measurements)
	assert.Equal(t, 0, measurements.Count)
}

func TestLogs(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/devices", map[string]string{"mac": stationMAC}).Code)
	require.NoError(t, ts.router.HandleMessage(ctx, ingest.TopicDebug,
		[]byte(`{"mac":"`+stationMAC+`","level":"warn","message":"low battery"}`)))

	rec := ts.do(t, http.MethodGet, "/api/logs?deviceId="+url.QueryEscape(stationMAC), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var logs []models.DebugLog
	decode(t, rec, &logs)
	require.Len(t, logs, 1)
	assert.Equal(t, "low battery", logs[0].Message)

	rec = ts.do(t, http.MethodDelete, "/api/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cleared ClearResponse
	decode(t, rec, &cleared)
	assert.Equal(t, "All logs cleared successfully", cleared.Message)
	assert.Equal(t, int64(1), cleared.Deleted)

	decode(t, ts.do(t, http.MethodGet, "/api/logs", nil), &logs)
	assert.Empty(t, logs)
}

func TestFirmwareUploadDeployAndServe(t *testing.T) {
	ts := newTestServer(t)
	binary := []byte("\xe9\x05\x02\x20station-image")

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/devices", map[string]string{"mac": stationMAC}).Code)

	rec := ts.upload(t, "station.bin", "3.0.1", binary)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var fw models.Firmware
	decode(t, rec, &fw)
	assert.Equal(t, "3.0.1", fw.Version)
	assert.Equal(t, int64(len(binary)), fw.Size)

	var list []models.Firmware
	decode(t, ts.do(t, http.MethodGet, "/api/firmware", nil), &list)
	require.Len(t, list, 1)
	assert.Equal(t, fw.ID, list[0].ID)

	u, err := url.Parse(fw.URL)
	require.NoError(t, err)

	rec = ts.do(t, http.MethodGet, u.Path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, binary, rec.Body.Bytes())

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, firmware.FilesPath+"missing.bin", nil).Code)

	ts.publisher.EXPECT().
		PublishOTA(gomock.Any(), stationMAC, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, cmd *models.OTACommand) error {
			assert.Equal(t, fw.URL, cmd.URL)
			assert.Equal(t, "3.0.1", cmd.Version)

			return nil
		})

	rec = ts.do(t, http.MethodPost, "/api/firmware/deploy", map[string]string{"firmwareId": fw.ID, "deviceId": stationMAC})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var deployed DeployResponse
	decode(t, rec, &deployed)
	assert.Equal(t, "Sent to 1 of 1 devices", deployed.Message)
	require.NotNil(t, deployed.DeploymentResult)
	assert.Equal(t, 1, deployed.Sent)

	var device models.Device
	decode(t, ts.do(t, http.MethodGet, "/api/devices/"+stationMAC, nil), &device)
	assert.Equal(t, models.StatusUpdating, device.Status)

	rec = ts.do(t, http.MethodPost, "/api/firmware/deploy", map[string]string{"firmwareId": "nope", "deviceId": stationMAC})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/firmware/deploy", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFirmwareUploadRejects(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name     string
		filename string
		version  string
		content  []byte
	}{
		{name: "no file", version: "1"},
		{name: "no version", filename: "a.bin", content: []byte("x")},
		{name: "bad extension", filename: "a.exe", version: "1", content: []byte("x")},
		{name: "too large", filename: "a.bin", version: "1", content: make([]byte, uploadMax+1)},
		{name: "far too large", filename: "a.bin", version: "1", content: make([]byte, uploadMax+multipartOverhead)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.upload(t, tt.filename, tt.version, tt.content)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	var list []models.Firmware
	decode(t, ts.do(t, http.MethodGet, "/api/firmware/upload", nil), &list)
	assert.Empty(t, list)
}

func TestStatusAndHealth(t *testing.T) {
	ts := newTestServer(t)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/weather",
		map[string]interface{}{"mac": stationMAC, "temperature": 20}).Code)

	var status models.FleetStatus
	decode(t, ts.do(t, http.MethodGet, "/api/status", nil), &status)
	assert.Equal(t, 1, status.TotalDevices)
	assert.Equal(t, 1, status.Online)

	rec := ts.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	decode(t, rec, &health)
	assert.True(t, health.Success)
	assert.True(t, health.Database.Connected)
	assert.NotEmpty(t, health.Database.CurrentTime)
	assert.Equal(t, HealthCounts{Devices: 1, Measurements: 1}, health.Database.Counts)
}

func TestHealthReportsDatabaseFailure(t *testing.T) {
	checker := NewMockHealthChecker(gomock.NewController(t))
	checker.EXPECT().Ping(gomock.Any()).Return(errDatabaseDown)

	ts := newTestServer(t, WithHealthChecker(checker))

	rec := ts.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var health HealthResponse
	decode(t, rec, &health)
	assert.False(t, health.Success)
	assert.Equal(t, "Database connection failed", health.Error)
}

func TestListDevicesSurvivesSweepFailure(t *testing.T) {
	sweeper := NewMockSweeper(gomock.NewController(t))
	sweeper.EXPECT().Sweep(gomock.Any()).Return(0, errDatabaseDown)

	ts := newTestServer(t, WithSweeper(sweeper))

	rec := ts.do(t, http.MethodGet, "/api/devices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestServerErrorsHideDetailsUnlessDebug(t *testing.T) {
	for _, debug := range []bool{false, true} {
		ingestor := NewMockIngestor(gomock.NewController(t))
		ingestor.EXPECT().RegisterDevice(gomock.Any(), gomock.Any()).Return(nil, errDatabaseDown)

		ts := newTestServer(t, WithIngestor(ingestor), WithDebug(debug))

		rec := ts.do(t, http.MethodPost, "/api/devices", map[string]string{"mac": stationMAC})
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp ErrorResponse
		decode(t, rec, &resp)
		assert.Equal(t, "Failed to create/update device", resp.Error)

		if debug {
			assert.Equal(t, errDatabaseDown.Error(), resp.Details)
		} else {
			assert.Empty(t, resp.Details)
		}
	}
}

func TestPreflightAndCORS(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodOptions, "/api/firmware/deploy", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = ts.do(t, http.MethodGet, "/api/status", nil)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStopBeforeStart(t *testing.T) {
	ts := newTestServer(t)

	require.NoError(t, ts.api.Stop(context.Background()))

	done := make(chan error, 1)

	go func() { done <- ts.api.Start("127.0.0.1:0") }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start kept serving after Stop")
	}
}

func TestStartAndStop(t *testing.T) {
	ts := newTestServer(t)

	done := make(chan error, 1)

	go func() { done <- ts.api.Start("127.0.0.1:0") }()

	// Give Serve a moment to register its listener before shutting down.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, ts.api.Stop(context.Background()))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestStartReportsListenError(t *testing.T) {
	ts := newTestServer(t)

	require.Error(t, ts.api.Start("127.0.0.1:-1"))
}
