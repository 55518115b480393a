package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tandem/pkg/logger"
	"tandem/pkg/models"
	"tandem/service"
	"tandem/storage"
)

type stubManager struct {
	res storage.RidesResult
}

func (m *stubManager) App(context.Context, string) *service.App { return nil }
func (m *stubManager) PublicRides(context.Context) storage.RidesResult { return m.res }
func (m *stubManager) Close()                                          {}

func TestRidesEndpoint(t *testing.T) {
	svc := &stubManager{res: storage.RidesResult{
		Rides:  []*models.Ride{{ID: "2", DriverName: "Sarah Johnson"}, {ID: "1", DriverName: "Mike Parker"}},
		Source: storage.SourceBackend,
	}}
	r := NewRouter(svc, logger.Nop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rides", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "backend", w.Header().Get("X-Rides-Source"))

	var body struct {
		Source string         `json:"source"`
		Rides  []*models.Ride `json:"rides"`
		Error  string         `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Rides, 2)
	assert.Equal(t, "Sarah Johnson", body.Rides[0].DriverName)
	assert.Empty(t, body.Error)
}

func TestRidesEndpointReportsFallback(t *testing.T) {
	svc := &stubManager{res: storage.RidesResult{
		Rides:  []*models.Ride{},
		Source: storage.SourceEmpty,
		Err:    errors.New("connection refused"),
	}}
	r := NewRouter(svc, logger.Nop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rides", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "empty", w.Header().Get("X-Rides-Source"))
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestHealthAndMetrics(t *testing.T) {
	r := NewRouter(&stubManager{}, logger.Nop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
