package usecase

import (
	"context"
	"time"

	"github.com/oathbound/oathbound/internal/domain"
)

// LedgerRepository reads escrow totals. Balance mutations happen inside the
// oath repository's transactions, never through this port.
type LedgerRepository interface {
	TotalStaked(ctx context.Context, oathID string) (int64, error)
}

// UserRepository defines account lookups.
type UserRepository interface {
	Get(ctx context.Context, id string) (domain.User, error)
	FindByProofHandle(ctx context.Context, handle string) ([]domain.User, error)
	// ListActiveProofHandles returns the distinct proof-source handles of
	// accepted participants in active daily oaths.
	ListActiveProofHandles(ctx context.Context) ([]string, error)
}

// AcceptResult reports what an acceptance changed.
type AcceptResult struct {
	Participant domain.Participant
	AllAccepted bool
	Activated   bool
}

// Settlement is the outcome of settling one expired oath.
type Settlement struct {
	Oath    domain.Oath
	Payouts []domain.Payout
}

// OathRepository defines persistence for oaths and their participants. The
// compound operations (Create, Accept, Decline, Settle) are each a single
// transaction.
type OathRepository interface {
	Create(ctx context.Context, oath domain.Oath, participants []domain.Participant) (domain.Oath, error)
	Get(ctx context.Context, id string) (domain.Oath, error)
	ListForUser(ctx context.Context, userID string, status domain.OathStatus) ([]domain.Oath, error)
	ListInvitations(ctx context.Context, userID string) ([]domain.Oath, error)
	ListActiveDailyForUser(ctx context.Context, userID string) ([]domain.Oath, error)
	Accept(ctx context.Context, oathID, userID string, now time.Time) (AcceptResult, error)
	Decline(ctx context.Context, oathID, userID string) error
	ActivateDue(ctx context.Context, now time.Time) ([]domain.Oath, error)
	ListExpired(ctx context.Context, now time.Time) ([]string, error)
	Settle(ctx context.Context, oathID string, now time.Time) (Settlement, error)
}

// CheckInRepository defines persistence for check-ins. Verify and AutoVerify
// perform the status flip and the participant counter mutation in one
// transaction keyed on the row's prior status.
type CheckInRepository interface {
	Submit(ctx context.Context, checkIn domain.CheckIn) (domain.CheckIn, error)
	Verify(ctx context.Context, id string, complete bool, note string, now time.Time) (domain.CheckIn, error)
	AutoVerify(ctx context.Context, checkIn domain.CheckIn) (domain.CheckIn, bool, error)
	Get(ctx context.Context, id string) (domain.CheckIn, error)
	ListForOath(ctx context.Context, oathID, userID string) ([]domain.CheckIn, error)
}

// DisputeRepository defines persistence for disputes. Open and Resolve are
// transactional and guarded against double execution.
type DisputeRepository interface {
	Open(ctx context.Context, dispute domain.Dispute) (domain.Dispute, error)
	Get(ctx context.Context, id string) (domain.Dispute, error)
	Resolve(ctx context.Context, id string, outcome domain.DisputeOutcome, notes string, now time.Time) (domain.Dispute, error)
	ListPendingForJudge(ctx context.Context, judgeID string) ([]domain.Dispute, error)
}

// FriendshipOracle answers whether two users share an accepted friendship.
type FriendshipOracle interface {
	AreFriends(ctx context.Context, userA, userB string) (bool, error)
}

// ProofSource fetches the latest accepted event for an external handle.
// A nil event means the source has nothing for that handle.
type ProofSource interface {
	FetchLatestAcceptedEvent(ctx context.Context, handle string) (*domain.ProofEvent, error)
}

// Notifier delivers fire-and-forget notifications. Implementations log
// failures instead of returning them.
type Notifier interface {
	Notify(ctx context.Context, notification domain.Notification)
}

// StateStore keeps small poller state, e.g. the last seen external event id
// per handle. Get returns "" when the key is absent.
type StateStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
