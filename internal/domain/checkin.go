package domain

import "time"

type CheckInStatus string

const (
	CheckInPendingVerification CheckInStatus = "PENDING_VERIFICATION"
	CheckInVerifiedComplete    CheckInStatus = "VERIFIED_COMPLETE"
	CheckInVerifiedIncomplete  CheckInStatus = "VERIFIED_INCOMPLETE"
	CheckInDisputed            CheckInStatus = "DISPUTED"
	CheckInResolvedComplete    CheckInStatus = "RESOLVED_COMPLETE"
	CheckInResolvedIncomplete  CheckInStatus = "RESOLVED_INCOMPLETE"
)

// IsComplete reports whether the status counts as a completed day.
func (s CheckInStatus) IsComplete() bool {
	return s == CheckInVerifiedComplete || s == CheckInResolvedComplete
}

// IsTerminal reports whether the row is immutable to resubmission. Only a
// dispute can move a terminal check-in.
func (s CheckInStatus) IsTerminal() bool {
	return s != CheckInPendingVerification
}

type ProofKind string

const (
	ProofText  ProofKind = "TEXT"
	ProofLink  ProofKind = "LINK"
	ProofImage ProofKind = "IMAGE"
)

// Proof is the discriminated proof payload attached to a check-in.
type Proof struct {
	Kind  ProofKind `json:"kind"`
	Value string    `json:"value"`
}

func (p Proof) Validate() error {
	switch p.Kind {
	case ProofText, ProofLink, ProofImage:
	default:
		return ValidationError{Msg: "proof kind must be TEXT, LINK or IMAGE"}
	}
	if p.Value == "" {
		return ValidationError{Msg: "proof value is required"}
	}
	return nil
}

// CheckIn is a per-day proof submission tied to one participant within one
// oath. (OathID, UserID, DueDate) is unique; resubmission for the same day
// updates the existing row.
type CheckIn struct {
	ID           string        `json:"id"`
	OathID       string        `json:"oathId"`
	UserID       string        `json:"userId"`
	DueDate      time.Time     `json:"dueDate"`
	Proof        Proof         `json:"proof"`
	Status       CheckInStatus `json:"status"`
	VerifierNote string        `json:"verifierNote,omitempty"`
	SubmittedAt  time.Time     `json:"submittedAt"`
	VerifiedAt   *time.Time    `json:"verifiedAt,omitempty"`
}

// DayOf buckets a timestamp into its UTC calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ProofEvent is an accepted-submission event from an external proof source.
type ProofEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Timestamp time.Time `json:"timestamp"`
}
