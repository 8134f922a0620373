package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput covers out-of-range trust factors, malformed hostnames,
	// unknown statuses and other admin input rejected before touching storage.
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden signals an authenticated caller without the required role.
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	// ErrRateLimited is surfaced to the content path as "too many requests".
	ErrRateLimited = errors.New("rate limited")
	// ErrRecomputeCooldown rejects a trust-graph recompute attempted inside
	// the cooldown window of the previous run.
	ErrRecomputeCooldown = errors.New("trust recompute within cooldown window")
	// ErrSelfInteraction rejects edges where both endpoints are the same
	// account. Self-loops would let an account inflate its own degree.
	ErrSelfInteraction = errors.New("self interaction not recorded")
	// ErrInvalidTransition rejects cluster status changes outside the
	// allowed lifecycle graph.
	ErrInvalidTransition = errors.New("invalid cluster status transition")
)
