package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/campuspulse/platform/pkg/common/apierrors"
	"github.com/campuspulse/platform/pkg/common/models"
	"github.com/google/uuid"
)

const tokenBytes = 32

// Store is the durable session registry.
type Store interface {
	Create(ctx context.Context, session models.VotingSession) error
	GetByToken(ctx context.Context, token string) (models.VotingSession, error)
}

type Service struct {
	store Store
	ttl   time.Duration
}

func NewService(store Store, ttl time.Duration) *Service {
	return &Service{store: store, ttl: ttl}
}

// Issue mints an unguessable single-redemption token binding the voter to
// the election for one ballot-casting attempt.
func (s *Service) Issue(ctx context.Context, voterID uuid.UUID, electionID string) (models.VotingSession, error) {
	token, err := newToken()
	if err != nil {
		return models.VotingSession{}, err
	}

	now := time.Now().UTC()
	session := models.VotingSession{
		Token:      token,
		ElectionID: electionID,
		VoterID:    voterID,
		IssuedAt:   now,
		Expiry:     now.Add(s.ttl),
		Redeemed:   false,
	}

	if err := s.store.Create(ctx, session); err != nil {
		return models.VotingSession{}, err
	}
	return session, nil
}

// Validate is side-effect-free. Expiry is a wall-clock comparison at the
// moment of use, not a stored state.
func (s *Service) Validate(ctx context.Context, token string) (models.VotingSession, error) {
	session, err := s.store.GetByToken(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return models.VotingSession{}, apierrors.ErrSessionNotFound
	}
	if err != nil {
		return models.VotingSession{}, apierrors.Wrap(apierrors.ErrServiceUnavailable, err)
	}

	if session.Redeemed {
		return models.VotingSession{}, apierrors.ErrSessionAlreadyRedeemed
	}
	if time.Now().After(session.Expiry) {
		return models.VotingSession{}, apierrors.ErrSessionExpired
	}

	return session, nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
