package domain

import "time"

type DisputeStatus string

const (
	DisputePending  DisputeStatus = "PENDING"
	DisputeResolved DisputeStatus = "RESOLVED"
)

type DisputeOutcome string

const (
	OutcomeComplete   DisputeOutcome = "COMPLETE"
	OutcomeIncomplete DisputeOutcome = "INCOMPLETE"
)

// Dispute is a peer-arbitrated appeal of a VERIFIED_INCOMPLETE check-in.
// There is at most one dispute per check-in, and it is terminal once
// resolved.
type Dispute struct {
	ID         string          `json:"id"`
	CheckInID  string          `json:"checkInId"`
	DisputerID string          `json:"disputerId"`
	JudgeID    string          `json:"judgeId"`
	Reason     string          `json:"reason"`
	Status     DisputeStatus   `json:"status"`
	Outcome    *DisputeOutcome `json:"outcome,omitempty"`
	JudgeNotes string          `json:"judgeNotes,omitempty"`
	ResolvedAt *time.Time      `json:"resolvedAt,omitempty"`
	CDate      time.Time       `json:"cdate"`
}
