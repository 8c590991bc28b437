// Package domain models coastal monitoring data: locations, sensor
// readings, feature vectors, risk assessments, and hazard alerts.
//
// # Data Sources
//
// Readings originate from public observation networks. The NOAA CO-OPS
// Tides and Currents API supplies water level (product "water_level")
// and meteorological observations (wind speed "s", wind direction "d",
// air pressure "p"). The USGS Instantaneous Values service supplies
// gauge height (parameter 00065, reported in feet and converted to
// meters) and discharge (parameter 00060). Provider adapters map these
// into the canonical Reading schema; everything above the adapters is
// provider-agnostic.
//
// # Quality Flags
//
// Each reading carries a quality flag assigned at ingestion:
//
//	ok      value within the operational range for its kind
//	suspect parseable but outside the operational range
//	missing a required kind had no observation within the window
//
// Operational ranges follow the validation table of the monitoring
// deployment (e.g. water level −10..20 m, wind speed 0..100 m/s).
// Suspect readings are stored but excluded from feature assembly.
//
// # ID Generation
//
// Reading IDs are deterministic SHA-256 hashes of
// location|kind|timestamp|source. This makes ingestion idempotent under
// retry: re-ingesting the same observation produces the same ID and the
// store treats the insert as a no-op. See [ReadingID]. Assessments and
// alerts use random UUIDs since they are never re-derived from source
// data.
//
// # Risk Bands
//
// Model scores in [0,1] are discretized with fixed, configurable band
// edges. The defaults:
//
//	low < 0.30 ≤ medium < 0.60 ≤ high < 0.80 ≤ critical
//
// # Hazard Classification
//
// The hazard type of an alert is derived from the dominant feature of
// the triggering assessment: water level above 5 m indicates coastal
// flooding, wave height above 8 m high waves, wind speed above 25 m/s
// storm surge; anything else is a general hazard.
package domain
