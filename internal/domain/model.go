package domain

import "context"

// Model is the single capability a risk model must expose. Anything
// that can turn a feature vector into a probability plugs into the
// pipeline; internal structure (heuristic, linear artifact, remote
// service) is the implementation's business.
type Model interface {
	// Version identifies the model for audit trails on assessments.
	Version() string

	// FeatureSchema declares the feature names the model consumes. The
	// scorer validates it against the assembled vector before invoking
	// Score, failing fast with ErrSchemaMismatch on drift.
	FeatureSchema() []string

	// Score returns a risk probability in [0,1] for the vector.
	Score(ctx context.Context, fv FeatureVector) (float64, error)
}
