package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWrapMatchesSentinel(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	wrapped := Wrap(ErrServiceUnavailable, cause)

	if !errors.Is(wrapped, ErrServiceUnavailable) {
		t.Fatal("wrapped error must match its sentinel")
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("wrapped error must expose its cause via Unwrap")
	}
	if errors.Is(wrapped, ErrOtpNotFound) {
		t.Fatal("errors with different codes must not match")
	}
}

func TestWithMessageKeepsCodeAndStatus(t *testing.T) {
	custom := WithMessage(ErrValidation, "mobile must be a valid phone number")

	if !errors.Is(custom, ErrValidation) {
		t.Fatal("customized error must match its sentinel")
	}
	if custom.Status != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", custom.Status)
	}
	if custom.Message == ErrValidation.Message {
		t.Fatal("expected the custom message to replace the default")
	}
}

func TestWriteJSONStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   Code
	}{
		{ErrValidation, http.StatusBadRequest, CodeValidation},
		{ErrVoterNotFound, http.StatusNotFound, CodeVoterNotFound},
		{ErrThrottled, http.StatusTooManyRequests, CodeThrottled},
		{ErrOtpExpired, http.StatusGone, CodeOtpExpired},
		{ErrLocked, http.StatusLocked, CodeLocked},
		{ErrSessionNotFound, http.StatusUnauthorized, CodeSessionNotFound},
		{ErrAlreadyVoted, http.StatusConflict, CodeAlreadyVoted},
		{ErrDeliveryFailed, http.StatusBadGateway, CodeDeliveryFailed},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteJSON(rec, tc.err)

			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rec.Code)
			}

			var body struct {
				Error struct {
					Code    Code   `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("response is not JSON: %v", err)
			}
			if body.Error.Code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, body.Error.Code)
			}
		})
	}
}

func TestWriteJSONHidesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, fmt.Errorf("pq: relation does not exist"))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "relation") {
		t.Fatal("internal error detail must not leak into the response")
	}
}

func TestWrapDoesNotLeakCauseInBody(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, Wrap(ErrServiceUnavailable, fmt.Errorf("dial tcp 10.0.0.5:5432")))

	if strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Fatal("wrapped cause must stay out of the marshalled response")
	}
}
