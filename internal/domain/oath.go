package domain

import "time"

type OathType string

const (
	OathDaily  OathType = "DAILY"
	OathWeekly OathType = "WEEKLY"
	OathCustom OathType = "CUSTOM"
)

func (t OathType) Valid() bool {
	return t == OathDaily || t == OathWeekly || t == OathCustom
}

// OathStatus is monotone: PENDING -> ACTIVE -> COMPLETED. CANCELLED is
// terminal and reachable from PENDING only.
type OathStatus string

const (
	OathPending   OathStatus = "PENDING"
	OathActive    OathStatus = "ACTIVE"
	OathCancelled OathStatus = "CANCELLED"
	OathCompleted OathStatus = "COMPLETED"
)

// Oath is a staked commitment contract between one or more participants with
// a deadline and a verification criterion.
type Oath struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Type               OathType   `json:"type"`
	Status             OathStatus `json:"status"`
	StartDate          time.Time  `json:"startDate"`
	EndDate            time.Time  `json:"endDate"`
	StakeAmount        int64      `json:"stakeAmount"`
	Currency           Currency   `json:"currencyType"`
	VerificationPrompt string     `json:"verificationPrompt"`
	CDate              time.Time  `json:"cdate"`

	Participants []Participant `json:"participants,omitempty"`
}

type ParticipantStatus string

const (
	ParticipantInvited  ParticipantStatus = "INVITED"
	ParticipantAccepted ParticipantStatus = "ACCEPTED"
	ParticipantDeclined ParticipantStatus = "DECLINED"
)

// Participant is one user's membership within one oath. StakePaid flips only
// after that user's stake has actually been debited.
type Participant struct {
	OathID       string            `json:"oathId"`
	UserID       string            `json:"userId"`
	Status       ParticipantStatus `json:"status"`
	StakeAmount  int64             `json:"stakeAmount"`
	StakePaid    bool              `json:"stakePaid"`
	SuccessCount int               `json:"successCount"`
	FailureCount int               `json:"failureCount"`
	DisputesWon  int               `json:"disputesWon"`
	DisputesLost int               `json:"disputesLost"`
	JoinedAt     time.Time         `json:"joinedAt"`
}

// Payout is one settlement credit issued when an oath completes.
type Payout struct {
	UserID   string   `json:"userId"`
	Amount   int64    `json:"amount"`
	Currency Currency `json:"currency"`
}
