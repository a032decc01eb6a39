package domain

import (
	"errors"
	"fmt"
)

// RejectReason classifies why a command was refused. Rejections never mutate state.
type RejectReason string

const (
	ReasonNotAlive          RejectReason = "not_alive"
	ReasonAlreadyBusy       RejectReason = "already_busy"
	ReasonWrongPhase        RejectReason = "wrong_phase"
	ReasonInvalidTarget     RejectReason = "invalid_target"
	ReasonInsufficientFunds RejectReason = "insufficient_funds"
	ReasonDuplicateOffer    RejectReason = "duplicate_offer"
	ReasonSessionClosed     RejectReason = "session_closed"
	ReasonWrongRole         RejectReason = "wrong_role"
	ReasonNoTask            RejectReason = "no_task"
	ReasonInvalidAmount     RejectReason = "invalid_amount"
	ReasonMeetingLimit      RejectReason = "meeting_limit"
	ReasonUnknownPlayer     RejectReason = "unknown_player"
	ReasonBadRequest        RejectReason = "bad_request"
)

// RejectError is returned for every refused command. errors.Is matches on Reason,
// so callers compare against the Err* sentinels regardless of Detail.
type RejectError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return string(e.Reason) + ": " + e.Detail
}

// Is reports whether target is a RejectError with the same reason.
func (e *RejectError) Is(target error) bool {
	var other *RejectError
	if !errors.As(target, &other) {
		return false
	}
	return other.Reason == e.Reason
}

var (
	ErrNotAlive          = &RejectError{Reason: ReasonNotAlive}
	ErrAlreadyBusy       = &RejectError{Reason: ReasonAlreadyBusy}
	ErrWrongPhase        = &RejectError{Reason: ReasonWrongPhase}
	ErrInvalidTarget     = &RejectError{Reason: ReasonInvalidTarget}
	ErrInsufficientFunds = &RejectError{Reason: ReasonInsufficientFunds}
	ErrDuplicateOffer    = &RejectError{Reason: ReasonDuplicateOffer}
	ErrSessionClosed     = &RejectError{Reason: ReasonSessionClosed}
	ErrWrongRole         = &RejectError{Reason: ReasonWrongRole}
	ErrNoTask            = &RejectError{Reason: ReasonNoTask}
	ErrInvalidAmount     = &RejectError{Reason: ReasonInvalidAmount}
	ErrMeetingLimit      = &RejectError{Reason: ReasonMeetingLimit}
	ErrUnknownPlayer     = &RejectError{Reason: ReasonUnknownPlayer}
	ErrBadRequest        = &RejectError{Reason: ReasonBadRequest}
)

// Reject builds a RejectError with a formatted detail message.
func Reject(reason RejectReason, format string, args ...any) error {
	return &RejectError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the reject reason from err, or "" if err is not a rejection.
func ReasonOf(err error) RejectReason {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}
