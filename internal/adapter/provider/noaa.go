package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
)

const noaaTimeLayout = "2006-01-02 15:04"

// noaaProduct maps a CO-OPS product name to how its records become
// observations. Wind is the odd one out: a single record carries both
// speed ("s") and direction ("d").
var noaaProducts = []string{"water_level", "wind", "air_pressure", "water_temperature"}

// NOAAClient fetches observations from the NOAA CO-OPS Tides and
// Currents API (metric units, GMT).
type NOAAClient struct {
	baseURL    string
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewNOAAClient creates a CO-OPS client with a per-call timeout. The
// clock bounds the request window's end.
func NewNOAAClient(baseURL string, timeout time.Duration, clock clockwork.Clock, logger *slog.Logger) *NOAAClient {
	if baseURL == "" {
		baseURL = "https://api.tidesandcurrents.noaa.gov/api/prod/datagetter"
	}
	return &NOAAClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		clock:      clock,
		logger:     logger,
	}
}

func (c *NOAAClient) Name() string { return "noaa" }

// Observations queries each configured CO-OPS product for the station.
// A failing product fails the whole call: the ingestion adapter owns
// retry and partial-failure policy, not the client.
func (c *NOAAClient) Observations(ctx context.Context, stationID string, since time.Time) ([]RawObservation, error) {
	var out []RawObservation
	for _, product := range noaaProducts {
		obs, err := c.fetchProduct(ctx, stationID, product, since)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", product, err)
		}
		out = append(out, obs...)
	}
	return out, nil
}

func (c *NOAAClient) fetchProduct(ctx context.Context, stationID, product string, since time.Time) ([]RawObservation, error) {
	params := url.Values{
		"station":    {stationID},
		"product":    {product},
		"begin_date": {since.UTC().Format("20060102 15:04")},
		"end_date":   {c.clock.Now().UTC().Format("20060102 15:04")},
		"datum":      {"MLLW"},
		"units":      {"metric"},
		"time_zone":  {"gmt"},
		"format":     {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrProviderUnavailable, resp.StatusCode, body)
	}

	var payload noaaResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode %s payload: %v", domain.ErrProviderDataMalformed, product, err)
	}
	if payload.Error.Message != "" {
		// CO-OPS reports "no data" through an error envelope; treat it
		// as an empty window, not a failure.
		c.logger.Debug("noaa returned no data", "station", stationID, "product", product, "message", payload.Error.Message)
		return nil, nil
	}

	return c.mapRecords(stationID, product, payload.Data), nil
}

func (c *NOAAClient) mapRecords(stationID, product string, records []noaaRecord) []RawObservation {
	var out []RawObservation
	for _, rec := range records {
		ts, err := time.ParseInLocation(noaaTimeLayout, rec.Time, time.UTC)
		if err != nil {
			c.logger.Warn("skipping noaa record with bad timestamp",
				"station", stationID, "product", product, "time", rec.Time)
			continue
		}

		switch product {
		case "wind":
			if v, ok := parseNOAAValue(rec.Speed); ok {
				out = append(out, RawObservation{Kind: domain.KindWindSpeed, Value: v, Unit: "m/s", Timestamp: ts})
			}
			if v, ok := parseNOAAValue(rec.Direction); ok {
				out = append(out, RawObservation{Kind: domain.KindWindDirection, Value: v, Unit: "degrees", Timestamp: ts})
			}
		default:
			v, ok := parseNOAAValue(rec.Value)
			if !ok {
				continue
			}
			switch product {
			case "water_level":
				out = append(out, RawObservation{Kind: domain.KindWaterLevel, Value: v, Unit: "m", Timestamp: ts})
			case "air_pressure":
				out = append(out, RawObservation{Kind: domain.KindAirPressure, Value: v, Unit: "mb", Timestamp: ts})
			case "water_temperature":
				out = append(out, RawObservation{Kind: domain.KindWaterTemperature, Value: v, Unit: "celsius", Timestamp: ts})
			}
		}
	}
	return out
}

func parseNOAAValue(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// CO-OPS wire types. Water level and met products share the envelope;
// wind records use "s"/"d" instead of "v".
type noaaResponse struct {
	Data  []noaaRecord `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type noaaRecord struct {
	Time      string `json:"t"`
	Value     string `json:"v"`
	Speed     string `json:"s"`
	Direction string `json:"d"`
	Quality   string `json:"q"`
}
