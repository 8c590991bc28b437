package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
)

const usgsPayload = `{
  "value": {
    "timeSeries": [
      {
        "variable": {
          "variableCode": [{"value": "00065"}],
          "unit": {"unitCode": "ft"}
        },
        "values": [{"value": [
          {"value": "10.0", "dateTime": "2025-06-01T12:00:00Z"},
          {"value": "-999999", "dateTime": "2025-06-01T12:15:00Z"},
          {"value": "11.5", "dateTime": "2025-06-01T12:30:00Z"}
        ]}]
      },
      {
        "variable": {
          "variableCode": [{"value": "00060"}],
          "unit": {"unitCode": "ft3/s"}
        },
        "values": [{"value": [
          {"value": "820", "dateTime": "2025-06-01T12:00:00Z"}
        ]}]
      },
      {
        "variable": {
          "variableCode": [{"value": "00010"}],
          "unit": {"unitCode": "degC"}
        },
        "values": [{"value": [
          {"value": "21.5", "dateTime": "2025-06-01T12:00:00Z"}
        ]}]
      }
    ]
  }
}`

func TestUSGSClient_Observations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "08077637", r.URL.Query().Get("sites"))
		assert.Equal(t, "00065,00060", r.URL.Query().Get("parameterCd"))
		w.Write([]byte(usgsPayload))
	}))
	defer srv.Close()

	c := NewUSGSClient(srv.URL, 5*time.Second, discardLogger())
	obs, err := c.Observations(context.Background(), "08077637", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	// Two gauge heights (sentinel filtered), one discharge; the
	// unrequested 00010 series is ignored.
	require.Len(t, obs, 3)

	assert.Equal(t, domain.KindWaterLevel, obs[0].Kind)
	assert.InEpsilon(t, 10.0*0.3048, obs[0].Value, 1e-9, "feet converted to meters")
	assert.Equal(t, "m", obs[0].Unit)

	assert.Equal(t, domain.KindWaterLevel, obs[1].Kind)
	assert.InEpsilon(t, 11.5*0.3048, obs[1].Value, 1e-9)

	assert.Equal(t, domain.KindDischarge, obs[2].Kind)
	assert.Equal(t, 820.0, obs[2].Value)
	assert.Equal(t, "ft3/s", obs[2].Unit)
}

func TestUSGSClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewUSGSClient(srv.URL, 5*time.Second, discardLogger())
	_, err := c.Observations(context.Background(), "08077637", time.Now().Add(-time.Hour))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
}

func TestUSGSClient_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	c := NewUSGSClient(srv.URL, 5*time.Second, discardLogger())
	_, err := c.Observations(context.Background(), "08077637", time.Now().Add(-time.Hour))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderDataMalformed))
}

func TestUSGSClient_EmptySeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"value":{"timeSeries":[]}}`))
	}))
	defer srv.Close()

	c := NewUSGSClient(srv.URL, 5*time.Second, discardLogger())
	obs, err := c.Observations(context.Background(), "08077637", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, obs)
}
