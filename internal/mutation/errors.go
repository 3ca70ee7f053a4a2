package mutation

import "errors"

// The failure taxonomy. Every kind is handled the same way by the executor
// (rollback plus a transient banner); they only differ for logging.
var (
	// ErrAlreadyInDesiredState is returned when a remove would take a counter
	// below zero, which means local state is out of sync with the server.
	ErrAlreadyInDesiredState = errors.New("entity already in desired state")
	// ErrNetworkFailure wraps errors from a mutation call that never completed.
	ErrNetworkFailure = errors.New("mutation request failed")
	// ErrServerRejected is returned when the server refused the mutation.
	ErrServerRejected = errors.New("mutation rejected by server")
	// ErrInFlight is returned when a control is activated while its previous
	// activation is still submitting. Nothing is changed.
	ErrInFlight = errors.New("mutation already in flight")
)
