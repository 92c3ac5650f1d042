package events

import (
	"context"
)

// Audit event types emitted by the voting pipeline.
const (
	TypeOtpIssued   = "otp.issued"
	TypeOtpVerified = "otp.verified"
	TypeBallotCast  = "ballot.cast"
)

// Publisher emits audit events. Implementations must not require callers to
// retry; a failed publish is logged and dropped rather than blocking the
// voting path.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data map[string]interface{}) error
	Close() error
}

// Nop is a Publisher that discards everything. Used in tests and when Kafka
// is not configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, eventType string, data map[string]interface{}) error {
	return nil
}

func (Nop) Close() error { return nil }
