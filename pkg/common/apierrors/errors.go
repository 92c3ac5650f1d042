package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure class across the voting pipeline. Codes are part
// of the HTTP contract and must stay stable.
type Code string

const (
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeVoterNotFound          Code = "VOTER_NOT_FOUND"
	CodeNotEligible            Code = "NOT_ELIGIBLE"
	CodeElectionNotActive      Code = "ELECTION_NOT_ACTIVE"
	CodeThrottled              Code = "THROTTLED"
	CodeOtpNotFound            Code = "OTP_NOT_FOUND"
	CodeOtpExpired             Code = "OTP_EXPIRED"
	CodeOtpAlreadyUsed         Code = "OTP_ALREADY_USED"
	CodeLocked                 Code = "LOCKED"
	CodeSessionNotFound        Code = "SESSION_NOT_FOUND"
	CodeSessionExpired         Code = "SESSION_EXPIRED"
	CodeSessionAlreadyRedeemed Code = "SESSION_ALREADY_REDEEMED"
	CodeAlreadyVoted           Code = "ALREADY_VOTED"
	CodeElectionClosed         Code = "ELECTION_CLOSED"
	CodeDeliveryFailed         Code = "DELIVERY_FAILED"
	CodeServiceUnavailable     Code = "SERVICE_UNAVAILABLE"
)

// Error is a domain failure with a stable code and HTTP status. Two Errors
// match under errors.Is when their codes match, so services can wrap the
// package sentinels with request-specific detail.
type Error struct {
	Code    Code   `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrValidation             = &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: "invalid request"}
	ErrVoterNotFound          = &Error{Code: CodeVoterNotFound, Status: http.StatusNotFound, Message: "voter is not registered for this election"}
	ErrNotEligible            = &Error{Code: CodeNotEligible, Status: http.StatusConflict, Message: "voter is not eligible to vote in this election"}
	ErrElectionNotActive      = &Error{Code: CodeElectionNotActive, Status: http.StatusConflict, Message: "election is not currently accepting votes"}
	ErrThrottled              = &Error{Code: CodeThrottled, Status: http.StatusTooManyRequests, Message: "too many code requests, try again later"}
	ErrOtpNotFound            = &Error{Code: CodeOtpNotFound, Status: http.StatusNotFound, Message: "no matching verification code"}
	ErrOtpExpired             = &Error{Code: CodeOtpExpired, Status: http.StatusGone, Message: "verification code has expired"}
	ErrOtpAlreadyUsed         = &Error{Code: CodeOtpAlreadyUsed, Status: http.StatusConflict, Message: "verification code was already used"}
	ErrLocked                 = &Error{Code: CodeLocked, Status: http.StatusLocked, Message: "verification temporarily locked after repeated failures"}
	ErrSessionNotFound        = &Error{Code: CodeSessionNotFound, Status: http.StatusUnauthorized, Message: "unknown voting session"}
	ErrSessionExpired         = &Error{Code: CodeSessionExpired, Status: http.StatusGone, Message: "voting session has expired"}
	ErrSessionAlreadyRedeemed = &Error{Code: CodeSessionAlreadyRedeemed, Status: http.StatusConflict, Message: "voting session was already redeemed"}
	ErrAlreadyVoted           = &Error{Code: CodeAlreadyVoted, Status: http.StatusConflict, Message: "a ballot was already cast for this voter"}
	ErrElectionClosed         = &Error{Code: CodeElectionClosed, Status: http.StatusConflict, Message: "election voting window is closed"}
	ErrDeliveryFailed         = &Error{Code: CodeDeliveryFailed, Status: http.StatusBadGateway, Message: "code stored but delivery failed, request again to retry"}
	ErrServiceUnavailable     = &Error{Code: CodeServiceUnavailable, Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"}
)

// WithMessage returns a copy of base carrying a request-specific message.
func WithMessage(base *Error, message string) *Error {
	return &Error{Code: base.Code, Status: base.Status, Message: message}
}

// Wrap returns a copy of base with an underlying cause attached. The cause is
// for logs; the marshalled response stays non-leaking.
func Wrap(base *Error, cause error) *Error {
	return &Error{Code: base.Code, Status: base.Status, Message: base.Message, cause: cause}
}

// WriteJSON renders err as a structured error response. Unknown errors are
// surfaced as SERVICE_UNAVAILABLE without leaking internals.
func WriteJSON(w http.ResponseWriter, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = ErrServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(map[string]interface{}{"error": apiErr})
}
