package audit

import (
	"time"

	"github.com/google/uuid"
)

// Report summarizes one audit run. It never carries hashes or emails.
type Report struct {
	RunID    uuid.UUID `json:"run_id"`
	Total    int       `json:"total"`
	Modern   int       `json:"modern"`
	Legacy   int       `json:"legacy"`
	Unknown  int       `json:"unknown"`
	Flagged  int       `json:"flagged"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Duration is how long the run took.
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Complete reports whether every stored credential is already modern.
func (r *Report) Complete() bool {
	return r.Legacy == 0 && r.Unknown == 0
}

// Recommendations lists follow-up actions for the operator.
func (r *Report) Recommendations() []string {
	var recs []string
	if r.Legacy > 0 {
		recs = append(recs,
			"Keep hybrid verification enabled so legacy accounts upgrade on their next login.",
			"Consider forcing a password reset for legacy accounts (run with -flag-legacy).",
			"Monitor credential.verify.total{format=legacy} to track remaining legacy logins.",
		)
	}
	if r.Unknown > 0 {
		recs = append(recs, "Investigate accounts with unrecognized credential formats; they cannot sign in with a password.")
	}
	return recs
}

func (r *Report) fields() map[string]interface{} {
	return map[string]interface{}{
		"total":   r.Total,
		"modern":  r.Modern,
		"legacy":  r.Legacy,
		"unknown": r.Unknown,
		"flagged": r.Flagged,
	}
}
