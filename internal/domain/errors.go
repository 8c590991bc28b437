package domain

import "errors"

// Error taxonomy for the pipeline. Components wrap these sentinels with
// fmt.Errorf("...: %w", ...) so callers can branch with errors.Is.
var (
	// ErrProviderUnavailable marks a transient provider failure
	// (network error, timeout, 5xx). Retried with bounded backoff.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrProviderDataMalformed marks a record the provider returned but
	// the adapter cannot parse. Permanent for that record: logged and
	// skipped, never retried.
	ErrProviderDataMalformed = errors.New("provider data malformed")

	// ErrInsufficientData means too many required features were absent
	// to assemble a feature vector. Scoring is skipped for the cycle.
	ErrInsufficientData = errors.New("insufficient data for feature assembly")

	// ErrSchemaMismatch means the model's declared input schema does not
	// match the assembled feature set.
	ErrSchemaMismatch = errors.New("model schema mismatch")

	// ErrModelLoadFailure means no model could be produced for the
	// requested version identifier.
	ErrModelLoadFailure = errors.New("model load failure")

	// ErrModelInferenceFailure means a model invocation failed or timed
	// out. The pipeline never invents a score in its place.
	ErrModelInferenceFailure = errors.New("model inference failure")
)
