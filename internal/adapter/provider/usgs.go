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

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
)

const (
	usgsParamGaugeHeight = "00065" // feet
	usgsParamDischarge   = "00060" // cubic feet per second

	// usgsNoData is the USGS sentinel for a missing measurement.
	usgsNoData = "-999999"

	feetToMeters = 0.3048
)

// USGSClient fetches observations from the USGS Instantaneous Values
// water service.
type USGSClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewUSGSClient creates a USGS IV client with a per-call timeout.
func NewUSGSClient(baseURL string, timeout time.Duration, logger *slog.Logger) *USGSClient {
	if baseURL == "" {
		baseURL = "https://waterservices.usgs.gov/nwis/iv/"
	}
	return &USGSClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *USGSClient) Name() string { return "usgs" }

func (c *USGSClient) Observations(ctx context.Context, stationID string, since time.Time) ([]RawObservation, error) {
	params := url.Values{
		"format":      {"json"},
		"sites":       {stationID},
		"startDT":     {since.UTC().Format(time.RFC3339)},
		"parameterCd": {usgsParamGaugeHeight + "," + usgsParamDischarge},
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

	var payload usgsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", domain.ErrProviderDataMalformed, err)
	}

	return c.mapSeries(stationID, payload.Value.TimeSeries), nil
}

func (c *USGSClient) mapSeries(stationID string, series []usgsTimeSeries) []RawObservation {
	var out []RawObservation
	for _, ts := range series {
		if len(ts.Variable.VariableCode) == 0 || len(ts.Values) == 0 {
			continue
		}

		var kind domain.MeasurementKind
		var unit string
		convert := 1.0
		switch ts.Variable.VariableCode[0].Value {
		case usgsParamGaugeHeight:
			kind, unit, convert = domain.KindWaterLevel, "m", feetToMeters
		case usgsParamDischarge:
			kind, unit = domain.KindDischarge, ts.Variable.Unit.UnitCode
		default:
			continue
		}

		for _, v := range ts.Values[0].Value {
			if v.Value == usgsNoData {
				continue
			}
			val, err := strconv.ParseFloat(v.Value, 64)
			if err != nil {
				c.logger.Warn("skipping usgs record with bad value",
					"station", stationID, "param", ts.Variable.VariableCode[0].Value, "value", v.Value)
				continue
			}
			when, err := time.Parse(time.RFC3339, v.DateTime)
			if err != nil {
				c.logger.Warn("skipping usgs record with bad timestamp",
					"station", stationID, "time", v.DateTime)
				continue
			}
			out = append(out, RawObservation{
				Kind:      kind,
				Value:     val * convert,
				Unit:      unit,
				Timestamp: when.UTC(),
			})
		}
	}
	return out
}

// USGS IV wire types, trimmed to the fields the mapper reads.
type usgsResponse struct {
	Value struct {
		TimeSeries []usgsTimeSeries `json:"timeSeries"`
	} `json:"value"`
}

type usgsTimeSeries struct {
	Variable struct {
		VariableCode []struct {
			Value string `json:"value"`
		} `json:"variableCode"`
		Unit struct {
			UnitCode string `json:"unitCode"`
		} `json:"unit"`
	} `json:"variable"`
	Values []struct {
		Value []struct {
			Value    string `json:"value"`
			DateTime string `json:"dateTime"`
		} `json:"value"`
	} `json:"values"`
}
