package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNOAAClient_Observations(t *testing.T) {
	responses := map[string]string{
		"water_level":       `{"data":[{"t":"2025-06-01 12:00","v":"1.842","q":"v"}]}`,
		"wind":              `{"data":[{"t":"2025-06-01 12:00","s":"14.2","d":"230"}]}`,
		"air_pressure":      `{"data":[{"t":"2025-06-01 12:00","v":"1002.1"}]}`,
		"water_temperature": `{"error":{"message":"No data was found."}}`,
	}

	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		product := r.URL.Query().Get("product")
		requested = append(requested, product)
		assert.Equal(t, "8771450", r.URL.Query().Get("station"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "gmt", r.URL.Query().Get("time_zone"))
		w.Write([]byte(responses[product]))
	}))
	defer srv.Close()

	c := NewNOAAClient(srv.URL, 5*time.Second, clockwork.NewRealClock(), discardLogger())
	obs, err := c.Observations(context.Background(), "8771450", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	assert.Len(t, requested, 4, "one request per product")
	require.Len(t, obs, 4)

	byKind := make(map[domain.MeasurementKind]RawObservation)
	for _, o := range obs {
		byKind[o.Kind] = o
	}
	assert.InEpsilon(t, 1.842, byKind[domain.KindWaterLevel].Value, 1e-9)
	assert.Equal(t, "m", byKind[domain.KindWaterLevel].Unit)
	assert.InEpsilon(t, 14.2, byKind[domain.KindWindSpeed].Value, 1e-9)
	assert.InEpsilon(t, 230.0, byKind[domain.KindWindDirection].Value, 1e-9)
	assert.InEpsilon(t, 1002.1, byKind[domain.KindAirPressure].Value, 1e-9)

	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, want, byKind[domain.KindWaterLevel].Timestamp)
}

func TestNOAAClient_WindowBoundsFromClock(t *testing.T) {
	now := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	since := now.Add(-time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20250601 13:30", r.URL.Query().Get("begin_date"))
		assert.Equal(t, "20250601 14:30", r.URL.Query().Get("end_date"))
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewNOAAClient(srv.URL, 5*time.Second, clockwork.NewFakeClockAt(now), discardLogger())
	_, err := c.Observations(context.Background(), "8771450", since)
	require.NoError(t, err)
}

func TestNOAAClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewNOAAClient(srv.URL, 5*time.Second, clockwork.NewRealClock(), discardLogger())
	_, err := c.Observations(context.Background(), "8771450", time.Now().Add(-time.Hour))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
}

func TestNOAAClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse all connections

	c := NewNOAAClient(srv.URL, time.Second, clockwork.NewRealClock(), discardLogger())
	_, err := c.Observations(context.Background(), "8771450", time.Now().Add(-time.Hour))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
}

func TestNOAAClient_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := NewNOAAClient(srv.URL, 5*time.Second, clockwork.NewRealClock(), discardLogger())
	_, err := c.Observations(context.Background(), "8771450", time.Now().Add(-time.Hour))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderDataMalformed))
}

func TestNOAAClient_SkipsBadRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("product") == "water_level" {
			w.Write([]byte(`{"data":[
				{"t":"not a time","v":"1.0"},
				{"t":"2025-06-01 12:06","v":"not a number"},
				{"t":"2025-06-01 12:12","v":"2.5"}
			]}`))
			return
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewNOAAClient(srv.URL, 5*time.Second, clockwork.NewRealClock(), discardLogger())
	obs, err := c.Observations(context.Background(), "8771450", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 2.5, obs[0].Value)
}
