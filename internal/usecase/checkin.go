package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/oathbound/oathbound/internal/domain"
)

const lastSeenKeyPrefix = "proofsource:lastseen:"

type CheckInUsecase struct {
	repo     CheckInRepository
	oaths    OathRepository
	users    UserRepository
	source   ProofSource
	state    StateStore
	proofURL func(slug string) string
	now      func() time.Time
}

func NewCheckInUsecase(
	repo CheckInRepository,
	oaths OathRepository,
	users UserRepository,
	source ProofSource,
	state StateStore,
	proofURL func(slug string) string,
) *CheckInUsecase {
	return &CheckInUsecase{
		repo:     repo,
		oaths:    oaths,
		users:    users,
		source:   source,
		state:    state,
		proofURL: proofURL,
		now:      time.Now,
	}
}

// Submit records a manual proof submission for one UTC day. The row is
// upserted on (oath, user, day); a day that has already been verified is
// immutable and yields a conflict.
func (uc *CheckInUsecase) Submit(ctx context.Context, oathID, userID string, day time.Time, proof domain.Proof) (domain.CheckIn, error) {
	ctx, span := tracer.Start(ctx, "CheckIn.Usecase.Submit")
	defer span.End()

	if err := proof.Validate(); err != nil {
		return domain.CheckIn{}, err
	}

	oath, err := uc.oaths.Get(ctx, oathID)
	if err != nil {
		return domain.CheckIn{}, err
	}
	if oath.Status != domain.OathActive {
		return domain.CheckIn{}, domain.NotEligibleError{Msg: "oath is not currently active"}
	}
	participant, ok := findParticipant(oath.Participants, userID)
	if !ok || participant.Status != domain.ParticipantAccepted {
		return domain.CheckIn{}, domain.NotEligibleError{Msg: "user is not an accepted participant of this oath"}
	}

	now := uc.now()
	if day.IsZero() {
		day = now
	}

	return uc.repo.Submit(ctx, domain.CheckIn{
		ID:          uuid.NewString(),
		OathID:      oathID,
		UserID:      userID,
		DueDate:     domain.DayOf(day),
		Proof:       proof,
		Status:      domain.CheckInPendingVerification,
		SubmittedAt: now,
	})
}

// Verify settles a pending check-in as complete or incomplete. The status
// flip and the counter increment are one transaction guarded on the row
// still being PENDING_VERIFICATION, so the counter moves exactly once.
func (uc *CheckInUsecase) Verify(ctx context.Context, checkInID string, complete bool, note string) (domain.CheckIn, error) {
	return uc.repo.Verify(ctx, checkInID, complete, note, uc.now())
}

// AutoVerify records an external proof event as a completed check-in for the
// event's UTC day. Re-delivery of the same event, or any later event on an
// already-complete day, is a no-op.
func (uc *CheckInUsecase) AutoVerify(ctx context.Context, oathID, userID string, event domain.ProofEvent) (domain.CheckIn, error) {
	now := uc.now()
	verifiedAt := now
	checkIn, counted, err := uc.repo.AutoVerify(ctx, domain.CheckIn{
		ID:           uuid.NewString(),
		OathID:       oathID,
		UserID:       userID,
		DueDate:      domain.DayOf(event.Timestamp),
		Proof:        domain.Proof{Kind: domain.ProofLink, Value: uc.proofURL(event.Slug)},
		Status:       domain.CheckInVerifiedComplete,
		VerifierNote: "Auto-verified via accepted submission: " + event.Title,
		SubmittedAt:  event.Timestamp,
		VerifiedAt:   &verifiedAt,
	})
	if err != nil {
		return domain.CheckIn{}, err
	}
	if counted {
		slog.InfoContext(ctx, "auto-verified check-in",
			slog.String("oath", oathID),
			slog.String("user", userID),
			slog.String("day", checkIn.DueDate.Format("2006-01-02")),
			slog.String("module", "proofsource"),
		)
	}
	return checkIn, nil
}

// HandleProofEvent fans one external event out to every active daily oath of
// every local user carrying the handle. Returns the number of oaths processed
// and the number that failed. Per-oath failures are logged, not propagated.
func (uc *CheckInUsecase) HandleProofEvent(ctx context.Context, handle string, event domain.ProofEvent) (int, int, error) {
	users, err := uc.users.FindByProofHandle(ctx, handle)
	if err != nil {
		return 0, 0, err
	}

	processed, failed := 0, 0
	for _, user := range users {
		oaths, err := uc.oaths.ListActiveDailyForUser(ctx, user.ID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to list oaths for proof event",
				slog.String("user", user.ID),
				slog.String("error", err.Error()),
				slog.String("module", "proofsource"),
			)
			failed++
			continue
		}
		for _, oath := range oaths {
			if _, err := uc.AutoVerify(ctx, oath.ID, user.ID, event); err != nil {
				slog.ErrorContext(ctx, "auto-verify failed",
					slog.String("oath", oath.ID),
					slog.String("user", user.ID),
					slog.String("error", err.Error()),
					slog.String("module", "proofsource"),
				)
				failed++
				continue
			}
			processed++
		}
	}
	return processed, failed, nil
}

// CheckNow fetches the latest accepted event for each participant of one
// daily oath on demand. One participant's proof-source failure does not
// block the others.
func (uc *CheckInUsecase) CheckNow(ctx context.Context, oathID string) ([]string, error) {
	oath, err := uc.oaths.Get(ctx, oathID)
	if err != nil {
		return nil, err
	}
	if oath.Status != domain.OathActive {
		return nil, domain.NotEligibleError{Msg: "oath is not currently active"}
	}
	if oath.Type != domain.OathDaily {
		return nil, domain.NotEligibleError{Msg: "proof-source check is only available for daily oaths"}
	}

	var processed []string
	for _, participant := range oath.Participants {
		if participant.Status != domain.ParticipantAccepted {
			continue
		}
		user, err := uc.users.Get(ctx, participant.UserID)
		if err != nil || user.ProofHandle == nil || *user.ProofHandle == "" {
			continue
		}

		event, err := uc.source.FetchLatestAcceptedEvent(ctx, *user.ProofHandle)
		if err != nil {
			slog.ErrorContext(ctx, "proof source fetch failed",
				slog.String("handle", *user.ProofHandle),
				slog.String("error", err.Error()),
				slog.String("module", "proofsource"),
			)
			continue
		}
		if event == nil {
			continue
		}

		if _, err := uc.AutoVerify(ctx, oath.ID, user.ID, *event); err != nil {
			slog.ErrorContext(ctx, "auto-verify failed",
				slog.String("oath", oath.ID),
				slog.String("user", user.ID),
				slog.String("error", err.Error()),
				slog.String("module", "proofsource"),
			)
			continue
		}
		processed = append(processed, user.ID)
	}
	return processed, nil
}

// PollProofSources walks every handle currently attached to an active daily
// oath, skipping handles whose latest event was already seen. Errors are
// logged per handle; the next scheduled tick retries.
func (uc *CheckInUsecase) PollProofSources(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "CheckIn.Usecase.PollProofSources")
	defer span.End()

	handles, err := uc.users.ListActiveProofHandles(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list proof handles",
			slog.String("error", err.Error()),
			slog.String("module", "proofsource"),
		)
		return
	}

	for _, handle := range handles {
		event, err := uc.source.FetchLatestAcceptedEvent(ctx, handle)
		if err != nil {
			slog.ErrorContext(ctx, "proof source fetch failed",
				slog.String("handle", handle),
				slog.String("error", err.Error()),
				slog.String("module", "proofsource"),
			)
			continue
		}
		if event == nil {
			continue
		}

		lastSeen, err := uc.state.Get(ctx, lastSeenKeyPrefix+handle)
		if err != nil {
			slog.WarnContext(ctx, "poller state read failed",
				slog.String("handle", handle),
				slog.String("error", err.Error()),
				slog.String("module", "proofsource"),
			)
		}
		if lastSeen == event.ID {
			continue
		}

		_, failed, err := uc.HandleProofEvent(ctx, handle, *event)
		if err != nil {
			slog.ErrorContext(ctx, "proof event handling failed",
				slog.String("handle", handle),
				slog.String("error", err.Error()),
				slog.String("module", "proofsource"),
			)
			continue
		}
		// Do not mark the event seen while any fan-out target failed, so
		// the next tick delivers it again. AutoVerify is idempotent for the
		// oaths that already succeeded.
		if failed > 0 {
			continue
		}

		if err := uc.state.Set(ctx, lastSeenKeyPrefix+handle, event.ID); err != nil {
			slog.WarnContext(ctx, "poller state write failed",
				slog.String("handle", handle),
				slog.String("error", err.Error()),
				slog.String("module", "proofsource"),
			)
		}
	}
}

func (uc *CheckInUsecase) Get(ctx context.Context, id string) (domain.CheckIn, error) {
	return uc.repo.Get(ctx, id)
}

func (uc *CheckInUsecase) ListForOath(ctx context.Context, oathID, userID string) ([]domain.CheckIn, error) {
	return uc.repo.ListForOath(ctx, oathID, userID)
}
