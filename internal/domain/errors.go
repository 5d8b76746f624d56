package domain

import "fmt"

// VenueErrorKind is the discriminated error taxonomy of spec §4.1. No
// caller matches on error strings; they switch on Kind.
type VenueErrorKind string

const (
	ErrTransientNetwork           VenueErrorKind = "transient_network"
	ErrAuthFailed                 VenueErrorKind = "auth_failed"
	ErrSubscribeRejected          VenueErrorKind = "subscribe_rejected"
	ErrMessageMalformed           VenueErrorKind = "message_malformed"
	ErrRateLimited                VenueErrorKind = "rate_limited"
	ErrServerOverloaded           VenueErrorKind = "server_overloaded"
	ErrServiceUnavailable         VenueErrorKind = "service_temporarily_unavailable"
	ErrOrderAlreadyFilledCanceled VenueErrorKind = "order_already_filled_or_canceled"
	ErrOrderNotFound              VenueErrorKind = "order_not_found"
	ErrNotionalBelowMinimum       VenueErrorKind = "notional_below_minimum"
	ErrPrecisionBelowMinimum      VenueErrorKind = "precision_below_minimum"
	ErrInFlightModLimitExceeded   VenueErrorKind = "in_progress_modification_limit_exceeded"
	ErrMarginInsufficient         VenueErrorKind = "margin_insufficient"
	ErrInvalidArgument            VenueErrorKind = "invalid_argument"
	ErrUnknown                    VenueErrorKind = "unknown"
)

// Disposition classifies how a VenueError should propagate, per spec §7.
type Disposition string

const (
	DispositionLocal    Disposition = "local"
	DispositionBudgeted Disposition = "budgeted"
	DispositionFatal    Disposition = "fatal"
)

var dispositions = map[VenueErrorKind]Disposition{
	ErrTransientNetwork:           DispositionLocal,
	ErrMessageMalformed:           DispositionLocal,
	ErrRateLimited:                DispositionLocal,
	ErrOrderAlreadyFilledCanceled: DispositionLocal,
	ErrNotionalBelowMinimum:       DispositionLocal,
	ErrOrderNotFound:              DispositionLocal,
	ErrAuthFailed:                 DispositionBudgeted,
	ErrSubscribeRejected:          DispositionBudgeted,
	ErrServerOverloaded:           DispositionBudgeted,
	ErrServiceUnavailable:         DispositionBudgeted,
	ErrInFlightModLimitExceeded:   DispositionBudgeted,
	ErrPrecisionBelowMinimum:      DispositionBudgeted,
	ErrMarginInsufficient:         DispositionFatal,
	ErrInvalidArgument:            DispositionLocal,
	ErrUnknown:                    DispositionLocal,
}

// VenueError is the typed error every adapter and order-entry call
// returns instead of signalling "fill" or "reject" via exception text.
type VenueError struct {
	Kind    VenueErrorKind
	Venue   string
	Op      string
	Detail  string
	wrapped error
}

func NewVenueError(kind VenueErrorKind, venue, op, detail string, wrapped error) *VenueError {
	return &VenueError{Kind: kind, Venue: venue, Op: op, Detail: detail, wrapped: wrapped}
}

func (e *VenueError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s[%s] %s: %v", e.Venue, e.Op, e.Kind, e.Detail, e.wrapped)
	}
	return fmt.Sprintf("%s: %s[%s] %s", e.Venue, e.Op, e.Kind, e.Detail)
}

func (e *VenueError) Unwrap() error { return e.wrapped }

// Disposition returns how this error should propagate per spec §7.
func (e *VenueError) Disposition() Disposition {
	if d, ok := dispositions[e.Kind]; ok {
		return d
	}
	return DispositionLocal
}

// AsVenueError unwraps err into a *VenueError if possible.
func AsVenueError(err error) (*VenueError, bool) {
	ve, ok := err.(*VenueError)
	return ve, ok
}
