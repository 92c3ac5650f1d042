package models

import (
	"time"

	"github.com/google/uuid"
)

// OTP lifecycle states. An OTP record only ever moves UNUSED -> USED; a
// reissue for the same mobile marks the prior UNUSED record USED so it can
// never be redeemed afterwards.
const (
	OtpStatusUnused = "UNUSED"
	OtpStatusUsed   = "USED"
)

// Election lifecycle states as published by the campus registry.
const (
	ElectionStatusDraft    = "draft"
	ElectionStatusActive   = "active"
	ElectionStatusArchived = "archived"
)

// OtpRecord is a single one-time code issued to a registered mobile number.
type OtpRecord struct {
	ID         uuid.UUID `json:"id"`
	Mobile     string    `json:"mobile"`
	ElectionID string    `json:"election_id"`
	Code       string    `json:"-"`
	Expiry     time.Time `json:"expiry"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Voter is a read-only view of an entry in the campus voter registry.
type Voter struct {
	ID          uuid.UUID              `json:"id"`
	Mobile      string                 `json:"mobile"`
	DisplayName string                 `json:"display_name"`
	ElectionID  string                 `json:"election_id"`
	Eligible    bool                   `json:"eligible"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Election is a read-only view of an election published by the registry.
type Election struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Status   string                 `json:"status"`
	StartsAt time.Time              `json:"starts_at"`
	EndsAt   time.Time              `json:"ends_at"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// AcceptingVotes reports whether the election window is open at the given
// instant. Expiry is a wall-clock comparison at the moment of use.
func (e Election) AcceptingVotes(now time.Time) bool {
	return e.Status == ElectionStatusActive &&
		!now.Before(e.StartsAt) &&
		now.Before(e.EndsAt)
}

// VotingSession is the single-redemption token minted by a successful OTP
// verification. It is the only structure binding a voter to an election and
// it is never joined to a ballot.
type VotingSession struct {
	Token      string    `json:"token"`
	ElectionID string    `json:"election_id"`
	VoterID    uuid.UUID `json:"voter_id"`
	IssuedAt   time.Time `json:"issued_at"`
	Expiry     time.Time `json:"expiry"`
	Redeemed   bool      `json:"redeemed"`
}

// Ballot carries no voter, session, or mobile reference. That absence is the
// unlinkability guarantee, not an optimization.
type Ballot struct {
	ID         uuid.UUID `json:"id"`
	ElectionID string    `json:"election_id"`
	Choice     string    `json:"choice"`
	CastAt     time.Time `json:"cast_at"`
	Nonce      string    `json:"nonce"`
}

// VoterLedgerEntry records only that a voter voted, never what they voted.
type VoterLedgerEntry struct {
	ElectionID string    `json:"election_id"`
	VoterID    uuid.UUID `json:"voter_id"`
	VotedAt    time.Time `json:"voted_at"`
}

// HTTP request/response shapes

type SendOtpRequest struct {
	Mobile     string `json:"mobile"`
	ElectionID string `json:"election_id"`
}

type SendOtpResponse struct {
	VoterName  string `json:"voter_name"`
	ElectionID string `json:"election_id"`
}

type VerifyOtpRequest struct {
	Mobile string `json:"mobile"`
	Code   string `json:"code"`
}

type VerifyOtpResponse struct {
	SessionToken string `json:"session_token"`
}

type CastVoteRequest struct {
	SessionToken string `json:"session_token"`
	Choice       string `json:"choice"`
}

type CastVoteResponse struct {
	Receipt string `json:"receipt"`
}

// Event is the envelope published on the audit topic. Ballot events carry
// only election id and receipt; identity-side events never carry choices.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}
