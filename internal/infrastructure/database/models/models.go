package models

import (
	"time"
)

type User struct {
	ID          string    `json:"id" gorm:"primaryKey;type:text"`
	Email       string    `json:"email" gorm:"type:text;uniqueIndex"`
	DisplayName string    `json:"displayName" gorm:"type:text"`
	Gems        int64     `json:"gems" gorm:"not null;default:0"`
	Credits     float64   `json:"credits" gorm:"type:numeric;not null;default:0"`
	ProofHandle *string   `json:"proofHandle,omitempty" gorm:"type:text;index"`
	CDate       time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate       time.Time `json:"mdate" gorm:"autoUpdateTime"`
}

type LedgerEntry struct {
	ID       string    `json:"id" gorm:"primaryKey;type:text"`
	UserID   string    `json:"userId" gorm:"type:text;index;not null"`
	User     User      `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
	OathID   string    `json:"oathId" gorm:"type:text;index"`
	Kind     string    `json:"kind" gorm:"type:text;not null"`
	Amount   int64     `json:"amount" gorm:"not null"`
	Currency string    `json:"currency" gorm:"type:text;not null"`
	CDate    time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Oath struct {
	ID                 string    `json:"id" gorm:"primaryKey;type:text"`
	Title              string    `json:"title" gorm:"type:text;not null"`
	Description        string    `json:"description" gorm:"type:text"`
	Type               string    `json:"type" gorm:"type:text;not null"`
	Status             string    `json:"status" gorm:"type:text;index;not null"`
	StartDate          time.Time `json:"startDate" gorm:"type:timestamp with time zone;not null"`
	EndDate            time.Time `json:"endDate" gorm:"type:timestamp with time zone;not null"`
	StakeAmount        int64     `json:"stakeAmount" gorm:"not null"`
	Currency           string    `json:"currencyType" gorm:"column:currency_type;type:text;not null"`
	VerificationPrompt string    `json:"verificationPrompt" gorm:"type:text"`
	CDate              time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate              time.Time `json:"mdate" gorm:"autoUpdateTime"`

	Participants []OathParticipant `json:"participants" gorm:"foreignKey:OathID;constraint:OnDelete:CASCADE;"`
}

type OathParticipant struct {
	ID           string    `json:"id" gorm:"primaryKey;type:text"`
	OathID       string    `json:"oathId" gorm:"type:text;uniqueIndex:idx_participant_oath_user;not null"`
	UserID       string    `json:"userId" gorm:"type:text;uniqueIndex:idx_participant_oath_user;index;not null"`
	User         User      `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
	Status       string    `json:"status" gorm:"type:text;not null"`
	StakeAmount  int64     `json:"stakeAmount" gorm:"not null"`
	StakePaid    bool      `json:"stakePaid" gorm:"not null;default:false"`
	SuccessCount int       `json:"successCount" gorm:"not null;default:0"`
	FailureCount int       `json:"failureCount" gorm:"not null;default:0"`
	DisputesWon  int       `json:"disputesWon" gorm:"not null;default:0"`
	DisputesLost int       `json:"disputesLost" gorm:"not null;default:0"`
	JoinedAt     time.Time `json:"joinedAt" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type CheckIn struct {
	ID           string     `json:"id" gorm:"primaryKey;type:text"`
	OathID       string     `json:"oathId" gorm:"type:text;uniqueIndex:idx_checkin_oath_user_day;not null"`
	Oath         Oath       `json:"-" gorm:"foreignKey:OathID;constraint:OnDelete:CASCADE;"`
	UserID       string     `json:"userId" gorm:"type:text;uniqueIndex:idx_checkin_oath_user_day;index;not null"`
	DueDate      time.Time  `json:"dueDate" gorm:"type:timestamp with time zone;uniqueIndex:idx_checkin_oath_user_day;not null"`
	ProofKind    string     `json:"proofKind" gorm:"type:text;not null"`
	ProofValue   string     `json:"proofValue" gorm:"type:text;not null"`
	Status       string     `json:"status" gorm:"type:text;index;not null"`
	VerifierNote string     `json:"verifierNote" gorm:"type:text"`
	SubmittedAt  time.Time  `json:"submittedAt" gorm:"type:timestamp with time zone;not null"`
	VerifiedAt   *time.Time `json:"verifiedAt,omitempty" gorm:"type:timestamp with time zone"`
}

type Dispute struct {
	ID         string     `json:"id" gorm:"primaryKey;type:text"`
	CheckInID  string     `json:"checkInId" gorm:"type:text;uniqueIndex;not null"`
	CheckIn    CheckIn    `json:"-" gorm:"foreignKey:CheckInID;constraint:OnDelete:CASCADE;"`
	DisputerID string     `json:"disputerId" gorm:"type:text;index;not null"`
	JudgeID    string     `json:"judgeId" gorm:"type:text;index;not null"`
	Reason     string     `json:"reason" gorm:"type:text;not null"`
	Status     string     `json:"status" gorm:"type:text;index;not null"`
	Outcome    *string    `json:"outcome,omitempty" gorm:"type:text"`
	JudgeNotes string     `json:"judgeNotes" gorm:"type:text"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty" gorm:"type:timestamp with time zone"`
	CDate      time.Time  `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Friendship struct {
	ID          string    `json:"id" gorm:"primaryKey;type:text"`
	InitiatorID string    `json:"initiatorId" gorm:"type:text;uniqueIndex:idx_friendship_pair;not null"`
	ReceiverID  string    `json:"receiverId" gorm:"type:text;uniqueIndex:idx_friendship_pair;not null"`
	Status      string    `json:"status" gorm:"type:text;not null"`
	CDate       time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Notification struct {
	ID         string    `json:"id" gorm:"primaryKey;type:text"`
	Type       string    `json:"type" gorm:"type:text;not null"`
	SenderID   string    `json:"senderId" gorm:"type:text"`
	ReceiverID string    `json:"receiverId" gorm:"type:text;index;not null"`
	Title      string    `json:"title" gorm:"type:text"`
	Message    string    `json:"message" gorm:"type:text"`
	ActionURL  string    `json:"actionUrl" gorm:"type:text"`
	Read       bool      `json:"read" gorm:"not null;default:false"`
	CDate      time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
