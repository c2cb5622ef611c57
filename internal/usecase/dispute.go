package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oathbound/oathbound/internal/domain"
)

type DisputeUsecase struct {
	repo     DisputeRepository
	checkins CheckInRepository
	oaths    OathRepository
	notifier Notifier
	now      func() time.Time
}

func NewDisputeUsecase(
	repo DisputeRepository,
	checkins CheckInRepository,
	oaths OathRepository,
	notifier Notifier,
) *DisputeUsecase {
	return &DisputeUsecase{
		repo:     repo,
		checkins: checkins,
		oaths:    oaths,
		notifier: notifier,
		now:      time.Now,
	}
}

// Open files a dispute against a VERIFIED_INCOMPLETE check-in. Only the
// check-in's owner may dispute, only on a two-party oath, and only once per
// check-in; the other participant becomes the judge.
func (uc *DisputeUsecase) Open(ctx context.Context, checkInID, disputerID, reason string) (domain.Dispute, error) {
	ctx, span := tracer.Start(ctx, "Dispute.Usecase.Open")
	defer span.End()

	if reason == "" {
		return domain.Dispute{}, domain.ValidationError{Msg: "a dispute reason is required"}
	}

	checkIn, err := uc.checkins.Get(ctx, checkInID)
	if err != nil {
		return domain.Dispute{}, err
	}
	if checkIn.UserID != disputerID {
		return domain.Dispute{}, domain.NotAuthorizedError{Msg: "only the check-in owner can dispute it"}
	}
	if checkIn.Status != domain.CheckInVerifiedIncomplete {
		return domain.Dispute{}, domain.NotEligibleError{Msg: "only check-ins verified incomplete can be disputed"}
	}

	oath, err := uc.oaths.Get(ctx, checkIn.OathID)
	if err != nil {
		return domain.Dispute{}, err
	}
	if len(oath.Participants) != 2 {
		return domain.Dispute{}, domain.NotEligibleError{Msg: "disputes are only available on two-party oaths"}
	}
	judgeID := ""
	for _, p := range oath.Participants {
		if p.UserID != disputerID {
			judgeID = p.UserID
		}
	}
	if judgeID == "" {
		return domain.Dispute{}, domain.NotEligibleError{Msg: "no judge available for this dispute"}
	}

	dispute, err := uc.repo.Open(ctx, domain.Dispute{
		ID:         uuid.NewString(),
		CheckInID:  checkInID,
		DisputerID: disputerID,
		JudgeID:    judgeID,
		Reason:     reason,
		Status:     domain.DisputePending,
	})
	if err != nil {
		return domain.Dispute{}, err
	}

	uc.notifier.Notify(ctx, domain.Notification{
		Type:       domain.NotificationDisputeOpened,
		SenderID:   disputerID,
		ReceiverID: judgeID,
		Title:      "Dispute Requires Your Judgment",
		Message:    fmt.Sprintf("A verification in %q has been disputed", oath.Title),
		ActionURL:  "/dispute/" + dispute.ID,
	})

	return dispute, nil
}

// Resolve lets the judge settle a pending dispute. Ruling COMPLETE reverses
// the original accounting (failure -1, success +1, disputesWon +1); ruling
// INCOMPLETE confirms it and increments disputesLost. The PENDING -> RESOLVED
// flip is the guard that makes each dispute resolvable at most once.
func (uc *DisputeUsecase) Resolve(ctx context.Context, disputeID, judgeID string, complete bool, notes string) (domain.Dispute, error) {
	ctx, span := tracer.Start(ctx, "Dispute.Usecase.Resolve")
	defer span.End()

	dispute, err := uc.repo.Get(ctx, disputeID)
	if err != nil {
		return domain.Dispute{}, err
	}
	if dispute.JudgeID != judgeID {
		return domain.Dispute{}, domain.NotAuthorizedError{Msg: "only the assigned judge can resolve this dispute"}
	}
	if dispute.Status != domain.DisputePending {
		return domain.Dispute{}, domain.ConflictError{Msg: "dispute already resolved"}
	}

	outcome := domain.OutcomeIncomplete
	if complete {
		outcome = domain.OutcomeComplete
	}

	resolved, err := uc.repo.Resolve(ctx, disputeID, outcome, notes, uc.now())
	if err != nil {
		return domain.Dispute{}, err
	}

	uc.notifier.Notify(ctx, domain.Notification{
		Type:       domain.NotificationDisputeResolved,
		SenderID:   judgeID,
		ReceiverID: resolved.DisputerID,
		Title:      "Dispute Resolved",
		Message:    fmt.Sprintf("Your dispute has been resolved: %s", outcome),
		ActionURL:  "/checkin/" + resolved.CheckInID,
	})

	return resolved, nil
}

func (uc *DisputeUsecase) Get(ctx context.Context, id string) (domain.Dispute, error) {
	return uc.repo.Get(ctx, id)
}

func (uc *DisputeUsecase) ListPendingForJudge(ctx context.Context, judgeID string) ([]domain.Dispute, error) {
	return uc.repo.ListPendingForJudge(ctx, judgeID)
}
