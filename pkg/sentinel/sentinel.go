package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into
// client-visible conditions.
//
// - ErrNotFound: record does not exist in the store
// - ErrConflict: unique constraint violated (duplicate event id)
// - ErrUnavailable: backing store or broker temporarily unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
