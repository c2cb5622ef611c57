package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/oathbound/oathbound/internal/domain"
)

var tracer = otel.Tracer("usecase")

// CreateOathInput is the validated input for creating an oath.
type CreateOathInput struct {
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Type               domain.OathType `json:"type"`
	StartDate          time.Time       `json:"startDate"`
	EndDate            time.Time       `json:"endDate"`
	StakeAmount        int64           `json:"stakeAmount"`
	Currency           domain.Currency `json:"currencyType"`
	VerificationPrompt string          `json:"verificationPrompt"`
	InviteeIDs         []string        `json:"inviteeIds"`
}

type OathUsecase struct {
	repo     OathRepository
	users    UserRepository
	ledger   LedgerRepository
	friends  FriendshipOracle
	notifier Notifier
	now      func() time.Time
}

func NewOathUsecase(
	repo OathRepository,
	users UserRepository,
	ledger LedgerRepository,
	friends FriendshipOracle,
	notifier Notifier,
) *OathUsecase {
	return &OathUsecase{
		repo:     repo,
		users:    users,
		ledger:   ledger,
		friends:  friends,
		notifier: notifier,
		now:      time.Now,
	}
}

func (uc *OathUsecase) validate(input CreateOathInput) error {
	if input.Title == "" || input.Description == "" {
		return domain.ValidationError{Msg: "title and description are required"}
	}
	if !input.Type.Valid() {
		return domain.ValidationError{Msg: "type must be DAILY, WEEKLY or CUSTOM"}
	}
	if !input.Currency.Valid() {
		return domain.ValidationError{Msg: "currencyType must be GEMS or REAL_MONEY"}
	}
	if input.StakeAmount < 0 {
		return domain.ValidationError{Msg: "stake amount must not be negative"}
	}
	if !input.EndDate.After(input.StartDate) {
		return domain.ValidationError{Msg: "end date must be after start date"}
	}
	return nil
}

// CreateSolo creates a single-participant oath. The creator is accepted and
// debited immediately; the oath activates at once when its start has passed.
func (uc *OathUsecase) CreateSolo(ctx context.Context, creatorID string, input CreateOathInput) (domain.Oath, error) {
	if err := uc.validate(input); err != nil {
		return domain.Oath{}, err
	}

	if _, err := uc.users.Get(ctx, creatorID); err != nil {
		return domain.Oath{}, err
	}

	now := uc.now()
	status := domain.OathPending
	if !input.StartDate.After(now) {
		status = domain.OathActive
	}

	oath := uc.buildOath(input, status)
	participants := []domain.Participant{{
		OathID:      oath.ID,
		UserID:      creatorID,
		Status:      domain.ParticipantAccepted,
		StakeAmount: input.StakeAmount,
		StakePaid:   true,
	}}

	return uc.repo.Create(ctx, oath, participants)
}

// Create creates a multi-party oath. Every invitee must share an accepted
// friendship with the creator. The creator's stake is debited in the same
// transaction that persists the oath; invitees stay INVITED and unpaid.
func (uc *OathUsecase) Create(ctx context.Context, creatorID string, input CreateOathInput) (domain.Oath, error) {
	ctx, span := tracer.Start(ctx, "Oath.Usecase.Create")
	defer span.End()

	if err := uc.validate(input); err != nil {
		return domain.Oath{}, err
	}

	invitees := make([]string, 0, len(input.InviteeIDs))
	for _, id := range input.InviteeIDs {
		if id != creatorID {
			invitees = append(invitees, id)
		}
	}
	if len(invitees) == 0 {
		return domain.Oath{}, domain.ValidationError{Msg: "at least one invitee is required"}
	}

	creator, err := uc.users.Get(ctx, creatorID)
	if err != nil {
		return domain.Oath{}, err
	}

	for _, id := range invitees {
		ok, err := uc.friends.AreFriends(ctx, creatorID, id)
		if err != nil {
			return domain.Oath{}, err
		}
		if !ok {
			return domain.Oath{}, domain.NotEligibleError{Msg: "oaths can only be created with friends"}
		}
	}

	oath := uc.buildOath(input, domain.OathPending)
	participants := make([]domain.Participant, 0, len(invitees)+1)
	participants = append(participants, domain.Participant{
		OathID:      oath.ID,
		UserID:      creatorID,
		Status:      domain.ParticipantAccepted,
		StakeAmount: input.StakeAmount,
		StakePaid:   true,
	})
	for _, id := range invitees {
		participants = append(participants, domain.Participant{
			OathID:      oath.ID,
			UserID:      id,
			Status:      domain.ParticipantInvited,
			StakeAmount: input.StakeAmount,
		})
	}

	created, err := uc.repo.Create(ctx, oath, participants)
	if err != nil {
		return domain.Oath{}, err
	}

	for _, id := range invitees {
		uc.notifier.Notify(ctx, domain.Notification{
			Type:       domain.NotificationOathInvite,
			SenderID:   creatorID,
			ReceiverID: id,
			Title:      "New Oath Invitation",
			Message:    fmt.Sprintf("%s invited you to %q", creator.DisplayName, created.Title),
			ActionURL:  "/oath/" + created.ID,
		})
	}

	return created, nil
}

func (uc *OathUsecase) buildOath(input CreateOathInput, status domain.OathStatus) domain.Oath {
	prompt := input.VerificationPrompt
	if prompt == "" {
		prompt = fmt.Sprintf("Verify that the user completed their commitment for: %s. %s", input.Title, input.Description)
	}
	return domain.Oath{
		ID:                 uuid.NewString(),
		Title:              input.Title,
		Description:        input.Description,
		Type:               input.Type,
		Status:             status,
		StartDate:          input.StartDate,
		EndDate:            input.EndDate,
		StakeAmount:        input.StakeAmount,
		Currency:           input.Currency,
		VerificationPrompt: prompt,
	}
}

// Accept accepts an invitation. The stake debit and the INVITED -> ACCEPTED
// flip are one transaction; an insufficient balance leaves the participant
// INVITED. When the last participant accepts and the start has passed, the
// oath activates in the same transaction.
func (uc *OathUsecase) Accept(ctx context.Context, oathID, userID string) (AcceptResult, error) {
	ctx, span := tracer.Start(ctx, "Oath.Usecase.Accept")
	defer span.End()

	oath, err := uc.repo.Get(ctx, oathID)
	if err != nil {
		return AcceptResult{}, err
	}

	participant, ok := findParticipant(oath.Participants, userID)
	if !ok {
		return AcceptResult{}, domain.NotFoundError{Resource: "oath invitation"}
	}
	switch participant.Status {
	case domain.ParticipantAccepted:
		return AcceptResult{}, domain.ConflictError{Msg: "oath already accepted"}
	case domain.ParticipantDeclined:
		return AcceptResult{}, domain.NotEligibleError{Msg: "invitation is no longer valid"}
	}
	if oath.Status != domain.OathPending {
		return AcceptResult{}, domain.NotEligibleError{Msg: "oath is no longer accepting participants"}
	}

	result, err := uc.repo.Accept(ctx, oathID, userID, uc.now())
	if err != nil {
		return AcceptResult{}, err
	}

	if result.AllAccepted {
		for _, p := range oath.Participants {
			if p.UserID == userID {
				continue
			}
			uc.notifier.Notify(ctx, domain.Notification{
				Type:       domain.NotificationOathStarted,
				SenderID:   userID,
				ReceiverID: p.UserID,
				Title:      "Oath Fully Accepted",
				Message:    fmt.Sprintf("Everyone has accepted %q", oath.Title),
				ActionURL:  "/oath/" + oath.ID,
			})
		}
	}

	return result, nil
}

// Decline declines an invitation and cancels the whole oath.
func (uc *OathUsecase) Decline(ctx context.Context, oathID, userID string) error {
	oath, err := uc.repo.Get(ctx, oathID)
	if err != nil {
		return err
	}

	participant, ok := findParticipant(oath.Participants, userID)
	if !ok {
		return domain.NotFoundError{Resource: "oath invitation"}
	}
	if participant.Status != domain.ParticipantInvited {
		return domain.NotEligibleError{Msg: "invitation cannot be declined"}
	}

	return uc.repo.Decline(ctx, oathID, userID)
}

func (uc *OathUsecase) Get(ctx context.Context, id string) (domain.Oath, error) {
	return uc.repo.Get(ctx, id)
}

func (uc *OathUsecase) ListForUser(ctx context.Context, userID string, status domain.OathStatus) ([]domain.Oath, error) {
	return uc.repo.ListForUser(ctx, userID, status)
}

func (uc *OathUsecase) ListInvitations(ctx context.Context, userID string) ([]domain.Oath, error) {
	return uc.repo.ListInvitations(ctx, userID)
}

// TotalStaked reports the total debited into an oath's escrow so far.
func (uc *OathUsecase) TotalStaked(ctx context.Context, oathID string) (int64, error) {
	return uc.ledger.TotalStaked(ctx, oathID)
}

// SweepDeadlines activates pending oaths whose start has passed with all
// participants accepted, and settles active oaths past their deadline.
// Per-oath failures are logged and do not abort the sweep.
func (uc *OathUsecase) SweepDeadlines(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "Oath.Usecase.SweepDeadlines")
	defer span.End()

	now := uc.now()

	activated, err := uc.repo.ActivateDue(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "deadline sweep: activation failed",
			slog.String("error", err.Error()),
			slog.String("module", "sweep"),
		)
	}
	for _, oath := range activated {
		slog.InfoContext(ctx, "oath activated",
			slog.String("oath", oath.ID),
			slog.String("module", "sweep"),
		)
	}

	expired, err := uc.repo.ListExpired(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "deadline sweep: expired listing failed",
			slog.String("error", err.Error()),
			slog.String("module", "sweep"),
		)
		return
	}
	for _, oathID := range expired {
		s, err := uc.repo.Settle(ctx, oathID, now)
		if err != nil {
			slog.ErrorContext(ctx, "deadline sweep: settlement failed",
				slog.String("oath", oathID),
				slog.String("error", err.Error()),
				slog.String("module", "sweep"),
			)
			continue
		}
		for _, payout := range s.Payouts {
			uc.notifier.Notify(ctx, domain.Notification{
				Type:       domain.NotificationOathSettled,
				ReceiverID: payout.UserID,
				Title:      "Oath Settled",
				Message:    fmt.Sprintf("%q has ended; %d %s paid out to you", s.Oath.Title, payout.Amount, payout.Currency),
				ActionURL:  "/oath/" + s.Oath.ID,
			})
		}
		slog.InfoContext(ctx, "oath settled",
			slog.String("oath", s.Oath.ID),
			slog.Int("payouts", len(s.Payouts)),
			slog.String("module", "sweep"),
		)
	}
}

func findParticipant(participants []domain.Participant, userID string) (domain.Participant, bool) {
	for _, p := range participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return domain.Participant{}, false
}
