package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/campuspulse/platform/pkg/common/apierrors"
	"github.com/campuspulse/platform/pkg/common/events"
	"github.com/campuspulse/platform/pkg/common/logger"
	"github.com/campuspulse/platform/pkg/common/models"
	"github.com/campuspulse/platform/pkg/observability/metrics"
	"github.com/campuspulse/platform/pkg/registry"
	"github.com/google/uuid"
)

var mobilePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// Store is the durable record of outstanding codes. Implementations must
// guarantee single-writer-wins semantics for MarkUsed.
type Store interface {
	CreateSuperseding(ctx context.Context, input CreateOtpInput) (models.OtpRecord, error)
	GetLatest(ctx context.Context, mobile string) (models.OtpRecord, error)
	MarkUsed(ctx context.Context, id uuid.UUID) (bool, error)
}

// Registry is the external voter registry, read-only to this core.
type Registry interface {
	GetElection(ctx context.Context, id string) (models.Election, error)
	GetVoter(ctx context.Context, mobile, electionID string) (models.Voter, error)
}

// SessionIssuer mints a voting session once a code is redeemed.
type SessionIssuer interface {
	Issue(ctx context.Context, voterID uuid.UUID, electionID string) (models.VotingSession, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type FailureTracker interface {
	Locked(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context, key string) error
}

type Options struct {
	CodeLength int
	TTL        time.Duration
}

type Service struct {
	store      Store
	registry   Registry
	sessions   SessionIssuer
	gateway    Gateway
	limiter    RateLimiter
	failures   FailureTracker
	publisher  events.Publisher
	codeLength int
	ttl        time.Duration
}

func NewService(store Store, reg Registry, sessions SessionIssuer, gateway Gateway, limiter RateLimiter, failures FailureTracker, publisher events.Publisher, opts Options) *Service {
	return &Service{
		store:      store,
		registry:   reg,
		sessions:   sessions,
		gateway:    gateway,
		limiter:    limiter,
		failures:   failures,
		publisher:  publisher,
		codeLength: opts.CodeLength,
		ttl:        opts.TTL,
	}
}

// RequestOtp issues a fresh code for the mobile+election pair, superseding
// any outstanding code, and hands it to the SMS gateway. The code itself is
// never part of the response.
func (s *Service) RequestOtp(ctx context.Context, mobile, electionID string) (models.SendOtpResponse, error) {
	normalized, err := NormalizeMobile(mobile)
	if err != nil {
		return models.SendOtpResponse{}, apierrors.WithMessage(apierrors.ErrValidation, "mobile must be a valid phone number")
	}
	if electionID == "" {
		return models.SendOtpResponse{}, apierrors.WithMessage(apierrors.ErrValidation, "election_id is required")
	}

	election, err := s.registry.GetElection(ctx, electionID)
	if errors.Is(err, registry.ErrElectionNotFound) {
		return models.SendOtpResponse{}, apierrors.ErrElectionNotActive
	}
	if err != nil {
		return models.SendOtpResponse{}, apierrors.Wrap(apierrors.ErrServiceUnavailable, err)
	}
	if !election.AcceptingVotes(time.Now()) {
		return models.SendOtpResponse{}, apierrors.ErrElectionNotActive
	}

	voter, err := s.registry.GetVoter(ctx, normalized, electionID)
	if errors.Is(err, registry.ErrVoterNotFound) {
		return models.SendOtpResponse{}, apierrors.ErrVoterNotFound
	}
	if err != nil {
		return models.SendOtpResponse{}, apierrors.Wrap(apierrors.ErrServiceUnavailable, err)
	}
	if !voter.Eligible {
		return models.SendOtpResponse{}, apierrors.ErrNotEligible
	}

	allowed, err := s.limiter.Allow(ctx, normalized)
	if err != nil {
		return models.SendOtpResponse{}, apierrors.Wrap(apierrors.ErrServiceUnavailable, err)
	}
	if !allowed {
		return models.SendOtpResponse{}, apierrors.ErrThrottled
	}

	code, err := generateCode(s.codeLength)
	if err != nil {
		return models.SendOtpResponse{}, apierrors.Wrap(apierrors.ErrServiceUnavailable, err)
	}

	record, err := s.store.CreateSuperseding(ctx, CreateOtpInput{
		Mobile:     normalized,
		ElectionID: electionID,
		Code:       code,
		Expiry:     time.Now().Add(s.ttl),
	})
	if err != nil {
		return models.SendOtpResponse{}, apierrors.Wrap(apierrors.ErrServiceUnavailable, err)
	}

	s.publish(ctx, events.TypeOtpIssued, map[string]interface{}{
		"otp_id":      record.ID.String(),
		"mobile":      normalized,
		"election_id": electionID,
	})
	metrics.IncOtpIssued()

	resp := models.SendOtpResponse{VoterName: voter.DisplayName, ElectionID: electionID}

	message := fmt.Sprintf("Your %s voting code is %s. It expires in %d minutes.", election.Name, code, int(s.ttl.Minutes()))
	if err := s.gateway.Send(ctx, normalized, message); err != nil {
		// The stored code stays consumable; the client may retry issuance.
		logger.Log.WithError(err).WithField("otp_id", record.ID).Warn("sms delivery failed")
		metrics.IncOtpDeliveryFail()
		return resp, apierrors.Wrap(apierrors.ErrDeliveryFailed, err)
	}

	return resp, nil
}

// VerifyOtp redeems a code exactly once and converts it into a voting
// session. Concurrent verifiers race on the conditional status update;
// exactly one wins.
func (s *Service) VerifyOtp(ctx context.Context, mobile, code string) (models.VerifyOtpResponse, error) {
	normalized, err := NormalizeMobile(mobile)
	if err != nil {
		return models.VerifyOtpResponse{}, apierrors.WithMessage(apierrors.ErrValidation, "mobile must be a valid phone number")
	}

	locked, err := s.failures.Locked(ctx, normalized)
	if err != nil {
		return models.VerifyOtpResponse{}, apierrors.Wrap(apierrors.ErrServiceUnavailable, err)
	}
	if locked {
		metrics.IncOtpRejected()
		return models.VerifyOtpResponse{}, apierrors.ErrLocked
	}

	record, err := s.store.GetLatest(ctx, normalized)
	if errors.Is(err, ErrOtpNotFound) {
		metrics.IncOtpRejected()
		return models.VerifyOtpResponse{}, apierrors.ErrOtpNotFound
	}
	if err != nil {
		return models.VerifyOtpResponse{}, apierrors.Wrap(apierrors.ErrServiceUnavailable, err)
	}

	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) != 1 {
		if _, ferr := s.failures.RecordFailure(ctx, normalized); ferr != nil {
			logger.Log.WithError(ferr).Warn("failed to record otp failure")
		}
		metrics.IncOtpRejected()
		return models.VerifyOtpResponse{}, apierrors.ErrOtpNotFound
	}

	if time.Now().After(record.Expiry) {
		// Left to be swept; an expired code never transitions to USED.
		metrics.IncOtpRejected()
		return models.VerifyOtpResponse{}, apierrors.ErrOtpExpired
	}

	won, err := s.store.MarkUsed(ctx, record.ID)
	if err != nil {
		return models.VerifyOtpResponse{}, apierrors.Wrap(apierrors.ErrServiceUnavailable, err)
	}
	if !won {
		metrics.IncOtpRejected()
		return models.VerifyOtpResponse{}, apierrors.ErrOtpAlreadyUsed
	}

	if err := s.failures.Clear(ctx, normalized); err != nil {
		logger.Log.WithError(err).Warn("failed to clear otp failure counter")
	}

	// Past the MarkUsed win the code is spent. If the voter lookup or the
	// session mint below fails, the caller recovers by requesting a fresh
	// code; issuance stays retryable within the send limit.
	voter, err := s.registry.GetVoter(ctx, normalized, record.ElectionID)
	if err != nil {
		return models.VerifyOtpResponse{}, apierrors.Wrap(apierrors.ErrServiceUnavailable, err)
	}

	session, err := s.sessions.Issue(ctx, voter.ID, record.ElectionID)
	if err != nil {
		return models.VerifyOtpResponse{}, apierrors.Wrap(apierrors.ErrServiceUnavailable, err)
	}

	s.publish(ctx, events.TypeOtpVerified, map[string]interface{}{
		"mobile":      normalized,
		"election_id": record.ElectionID,
	})
	metrics.IncOtpVerified()

	return models.VerifyOtpResponse{SessionToken: session.Token}, nil
}

func (s *Service) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if err := s.publisher.Publish(ctx, eventType, data); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).Warn("audit publish failed")
	}
}

// NormalizeMobile strips separators and validates an E.164-style number.
func NormalizeMobile(raw string) (string, error) {
	normalized := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))
	if !mobilePattern.MatchString(normalized) {
		return "", fmt.Errorf("invalid mobile number")
	}
	return normalized, nil
}

func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0') + byte(n.Int64())
	}
	return string(digits), nil
}
