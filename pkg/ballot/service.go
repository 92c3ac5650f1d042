package ballot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/campuspulse/platform/pkg/common/apierrors"
	"github.com/campuspulse/platform/pkg/common/events"
	"github.com/campuspulse/platform/pkg/common/logger"
	"github.com/campuspulse/platform/pkg/common/models"
	"github.com/campuspulse/platform/pkg/observability/metrics"
	"github.com/google/uuid"
)

// Recorder commits a ballot, the ledger entry, and the session redemption
// atomically.
type Recorder interface {
	Record(ctx context.Context, token, electionID string, voterID uuid.UUID, choice string) (models.Ballot, error)
}

// SessionValidator resolves a session token server-side; client-held state is
// never trusted.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (models.VotingSession, error)
}

type ElectionGetter interface {
	GetElection(ctx context.Context, id string) (models.Election, error)
}

type Service struct {
	recorder  Recorder
	sessions  SessionValidator
	registry  ElectionGetter
	publisher events.Publisher
}

func NewService(recorder Recorder, sessions SessionValidator, reg ElectionGetter, publisher events.Publisher) *Service {
	return &Service{recorder: recorder, sessions: sessions, registry: reg, publisher: publisher}
}

// CastVote validates the session, checks the election window, and records
// the anonymized ballot. After commit, no stored structure holds both the
// voter identity and the ballot choice.
func (s *Service) CastVote(ctx context.Context, token, choice string) (models.CastVoteResponse, error) {
	if choice == "" {
		return models.CastVoteResponse{}, apierrors.WithMessage(apierrors.ErrValidation, "choice is required")
	}

	sess, err := s.sessions.Validate(ctx, token)
	if err != nil {
		metrics.IncVotesRejected()
		return models.CastVoteResponse{}, err
	}

	election, err := s.registry.GetElection(ctx, sess.ElectionID)
	if err != nil {
		metrics.IncVotesRejected()
		return models.CastVoteResponse{}, apierrors.Wrap(apierrors.ErrServiceUnavailable, err)
	}
	if !election.AcceptingVotes(time.Now()) {
		metrics.IncVotesRejected()
		return models.CastVoteResponse{}, apierrors.ErrElectionClosed
	}

	recorded, err := s.recorder.Record(ctx, token, sess.ElectionID, sess.VoterID, choice)
	if errors.Is(err, ErrAlreadyVoted) {
		metrics.IncVotesRejected()
		return models.CastVoteResponse{}, apierrors.ErrAlreadyVoted
	}
	if errors.Is(err, ErrSessionAlreadyRedeemed) {
		metrics.IncVotesRejected()
		return models.CastVoteResponse{}, apierrors.ErrSessionAlreadyRedeemed
	}
	if err != nil {
		return models.CastVoteResponse{}, apierrors.Wrap(apierrors.ErrServiceUnavailable, err)
	}

	receipt := Receipt(recorded)

	// Audit carries election and receipt only; never the voter.
	if err := s.publisher.Publish(ctx, events.TypeBallotCast, map[string]interface{}{
		"election_id": recorded.ElectionID,
		"receipt":     receipt,
	}); err != nil {
		logger.Log.WithError(err).Warn("audit publish failed")
	}
	metrics.IncBallotsCast()

	return models.CastVoteResponse{Receipt: receipt}, nil
}

// Receipt derives an opaque proof of participation from the ballot row. It
// reveals neither the choice nor any voter correlation.
func Receipt(b models.Ballot) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d:%s", b.ID, b.ElectionID, b.CastAt.UnixNano(), b.Nonce)))
	return hex.EncodeToString(sum[:])
}
