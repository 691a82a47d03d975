package medal

import "github.com/pkg/errors"

// Error kinds for the failures a run can hit. Wrapped errors carry context;
// callers classify with errors.Cause.
var (
	// ErrMissingInput is the cause when an input location is absent or
	// unreadable.
	ErrMissingInput = errors.New("missing or unreadable input")

	// ErrCredentials is the cause when fetching keys from the secret store
	// fails.
	ErrCredentials = errors.New("credential retrieval failed")

	// ErrSchemaMismatch is the cause when a union or join finds the columns
	// it needs absent or in disagreement.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrSnapshotUnavailable is the cause when a versioned read refers to
	// data files that vacuum has deleted, or to a version the log never had.
	ErrSnapshotUnavailable = errors.New("snapshot unavailable")

	// ErrQuality is the cause when the quality stage runs in strict mode
	// and any metric is nonzero.
	ErrQuality = errors.New("quality check failed")
)
