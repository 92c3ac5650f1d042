package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	otpIssued       atomic.Int64
	otpVerified     atomic.Int64
	otpRejected     atomic.Int64
	otpDeliveryFail atomic.Int64
	ballotsCast     atomic.Int64
	votesRejected   atomic.Int64
)

func IncOtpIssued()       { otpIssued.Add(1) }
func IncOtpVerified()     { otpVerified.Add(1) }
func IncOtpRejected()     { otpRejected.Add(1) }
func IncOtpDeliveryFail() { otpDeliveryFail.Add(1) }
func IncBallotsCast()     { ballotsCast.Add(1) }
func IncVotesRejected()   { votesRejected.Add(1) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP campuspulse_voting_otp_issued_total Number of one-time codes issued.\n")
	fmt.Fprintf(w, "# TYPE campuspulse_voting_otp_issued_total counter\n")
	fmt.Fprintf(w, "campuspulse_voting_otp_issued_total %d\n", otpIssued.Load())

	fmt.Fprintf(w, "# HELP campuspulse_voting_otp_verified_total Number of one-time codes verified successfully.\n")
	fmt.Fprintf(w, "# TYPE campuspulse_voting_otp_verified_total counter\n")
	fmt.Fprintf(w, "campuspulse_voting_otp_verified_total %d\n", otpVerified.Load())

	fmt.Fprintf(w, "# HELP campuspulse_voting_otp_rejected_total Number of verification attempts rejected.\n")
	fmt.Fprintf(w, "# TYPE campuspulse_voting_otp_rejected_total counter\n")
	fmt.Fprintf(w, "campuspulse_voting_otp_rejected_total %d\n", otpRejected.Load())

	fmt.Fprintf(w, "# HELP campuspulse_voting_otp_delivery_failed_total Number of SMS deliveries that failed after retries.\n")
	fmt.Fprintf(w, "# TYPE campuspulse_voting_otp_delivery_failed_total counter\n")
	fmt.Fprintf(w, "campuspulse_voting_otp_delivery_failed_total %d\n", otpDeliveryFail.Load())

	fmt.Fprintf(w, "# HELP campuspulse_voting_ballots_cast_total Number of ballots committed.\n")
	fmt.Fprintf(w, "# TYPE campuspulse_voting_ballots_cast_total counter\n")
	fmt.Fprintf(w, "campuspulse_voting_ballots_cast_total %d\n", ballotsCast.Load())

	fmt.Fprintf(w, "# HELP campuspulse_voting_votes_rejected_total Number of cast attempts rejected.\n")
	fmt.Fprintf(w, "# TYPE campuspulse_voting_votes_rejected_total counter\n")
	fmt.Fprintf(w, "campuspulse_voting_votes_rejected_total %d\n", votesRejected.Load())
}
