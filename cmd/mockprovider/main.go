// Command mockprovider serves synthetic NOAA CO-OPS and USGS IV
// payloads for local development. Point the monitor at it:
//
//	go run ./cmd/mockprovider -addr :9000 -scenario storm
//	NOAA_BASE_URL=http://localhost:9000/noaa \
//	USGS_BASE_URL=http://localhost:9000/usgs \
//	go run ./cmd/monitor
//
// The calm scenario keeps every location below the alert threshold; the
// storm scenario pushes water level, waves, and wind past the hazard
// thresholds so the full alert lifecycle can be exercised end to end.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"
)

type scenario struct {
	waterLevel       float64 // meters
	windSpeed        float64 // m/s
	windDirection    float64 // degrees
	airPressure      float64 // mb
	waterTemperature float64 // celsius
	gaugeHeightFt    float64 // feet, USGS 00065
	dischargeCFS     float64 // cubic feet per second, USGS 00060
}

var scenarios = map[string]scenario{
	"calm": {
		waterLevel:       0.4,
		windSpeed:        4.0,
		windDirection:    120,
		airPressure:      1015,
		waterTemperature: 18,
		gaugeHeightFt:    1.5,
		dischargeCFS:     220,
	},
	"storm": {
		waterLevel:       7.0,
		windSpeed:        30.0,
		windDirection:    200,
		airPressure:      980,
		waterTemperature: 21,
		gaugeHeightFt:    23.0,
		dischargeCFS:     4800,
	},
}

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	name := flag.String("scenario", "calm", "data scenario: calm or storm")
	flag.Parse()

	sc, ok := scenarios[*name]
	if !ok {
		log.Fatalf("unknown scenario %q", *name)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /noaa", noaaHandler(sc))
	mux.HandleFunc("GET /usgs", usgsHandler(sc))

	log.Printf("mock provider listening on %s (scenario %s)", *addr, *name)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

// sampleTimes returns one timestamp per six minutes over the past hour,
// matching the CO-OPS observation cadence.
func sampleTimes() []time.Time {
	now := time.Now().UTC().Truncate(6 * time.Minute)
	times := make([]time.Time, 0, 10)
	for i := 9; i >= 0; i-- {
		times = append(times, now.Add(-time.Duration(i)*6*time.Minute))
	}
	return times
}

// wobble adds a small deterministic oscillation so consecutive samples
// differ without leaving the scenario's regime.
func wobble(base float64, t time.Time, amplitude float64) float64 {
	phase := float64(t.Unix()%3600) / 3600 * 2 * math.Pi
	return base + amplitude*math.Sin(phase)
}

func noaaHandler(sc scenario) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product := r.URL.Query().Get("product")

		type record struct {
			T string `json:"t"`
			V string `json:"v,omitempty"`
			S string `json:"s,omitempty"`
			D string `json:"d,omitempty"`
		}
		var records []record
		for _, t := range sampleTimes() {
			rec := record{T: t.Format("2006-01-02 15:04")}
			switch product {
			case "water_level":
				rec.V = fmt.Sprintf("%.3f", wobble(sc.waterLevel, t, 0.2))
			case "wind":
				rec.S = fmt.Sprintf("%.1f", wobble(sc.windSpeed, t, 1.5))
				rec.D = fmt.Sprintf("%.0f", sc.windDirection)
			case "air_pressure":
				rec.V = fmt.Sprintf("%.1f", wobble(sc.airPressure, t, 1.0))
			case "water_temperature":
				rec.V = fmt.Sprintf("%.1f", wobble(sc.waterTemperature, t, 0.3))
			default:
				writeJSON(w, map[string]any{
					"error": map[string]string{"message": "No data was found for " + product},
				})
				return
			}
			records = append(records, rec)
		}

		writeJSON(w, map[string]any{"data": records})
	}
}

func usgsHandler(sc scenario) http.HandlerFunc {
	series := func(code, unit string, base, amplitude float64) map[string]any {
		type point struct {
			Value    string `json:"value"`
			DateTime string `json:"dateTime"`
		}
		var points []point
		for _, t := range sampleTimes() {
			points = append(points, point{
				Value:    fmt.Sprintf("%.2f", wobble(base, t, amplitude)),
				DateTime: t.Format(time.RFC3339),
			})
		}
		return map[string]any{
			"variable": map[string]any{
				"variableCode": []map[string]string{{"value": code}},
				"unit":         map[string]string{"unitCode": unit},
			},
			"values": []map[string]any{{"value": points}},
		}
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"value": map[string]any{
				"timeSeries": []map[string]any{
					series("00065", "ft", sc.gaugeHeightFt, 0.4),
					series("00060", "ft3/s", sc.dischargeCFS, 30),
				},
			},
		})
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
