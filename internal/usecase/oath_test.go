package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oathbound/oathbound/internal/domain"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func validInput(invitees ...string) CreateOathInput {
	return CreateOathInput{
		Title:       "Morning runs",
		Description: "Run 5k every day",
		Type:        domain.OathDaily,
		StartDate:   fixedNow().Add(-time.Hour),
		EndDate:     fixedNow().Add(7 * 24 * time.Hour),
		StakeAmount: 50,
		Currency:    domain.CurrencyGems,
		InviteeIDs:  invitees,
	}
}

func newOathFixture(t *testing.T) (*OathUsecase, *fakeLedger, *fakeOaths, *fakeNotifier) {
	t.Helper()
	ledger := newFakeLedger()
	ledger.balances["alice"] = 100
	ledger.balances["bob"] = 100
	oaths := newFakeOaths(ledger)
	users := newFakeUsers(
		domain.User{ID: "alice", DisplayName: "Alice"},
		domain.User{ID: "bob", DisplayName: "Bob"},
	)
	notifier := &fakeNotifier{}
	uc := NewOathUsecase(oaths, users, ledger, newFakeFriends([2]string{"alice", "bob"}), notifier)
	uc.now = fixedNow
	return uc, ledger, oaths, notifier
}

func TestCreateOathDebitsCreatorOnly(t *testing.T) {
	uc, ledger, _, notifier := newOathFixture(t)

	oath, err := uc.Create(context.Background(), "alice", validInput("bob"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if ledger.balances["alice"] != 50 {
		t.Fatalf("expected alice balance 50 got %d", ledger.balances["alice"])
	}
	if ledger.balances["bob"] != 100 {
		t.Fatalf("expected bob balance untouched got %d", ledger.balances["bob"])
	}
	if oath.Status != domain.OathPending {
		t.Fatalf("expected PENDING got %s", oath.Status)
	}

	var invited *domain.Participant
	for i, p := range oath.Participants {
		if p.UserID == "bob" {
			invited = &oath.Participants[i]
		}
	}
	if invited == nil || invited.Status != domain.ParticipantInvited || invited.StakePaid {
		t.Fatalf("expected bob INVITED and unpaid, got %+v", invited)
	}

	invites := notifier.byType(domain.NotificationOathInvite)
	if len(invites) != 1 || invites[0].ReceiverID != "bob" {
		t.Fatalf("expected one invite notification to bob, got %+v", invites)
	}
}

func TestCreateOathRequiresFriendship(t *testing.T) {
	ledger := newFakeLedger()
	ledger.balances["alice"] = 100
	oaths := newFakeOaths(ledger)
	users := newFakeUsers(domain.User{ID: "alice"}, domain.User{ID: "mallory"})
	uc := NewOathUsecase(oaths, users, ledger, newFakeFriends(), &fakeNotifier{})
	uc.now = fixedNow

	_, err := uc.Create(context.Background(), "alice", validInput("mallory"))
	if !errors.Is(err, domain.ErrNotEligible) {
		t.Fatalf("expected NotEligible got %v", err)
	}
	if ledger.balances["alice"] != 100 {
		t.Fatalf("expected no debit, balance %d", ledger.balances["alice"])
	}
}

func TestCreateOathRejectsSelfOnlyInvite(t *testing.T) {
	uc, _, _, _ := newOathFixture(t)

	_, err := uc.Create(context.Background(), "alice", validInput("alice"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ValidationError got %v", err)
	}
}

func TestCreateSoloActivatesWhenStartPassed(t *testing.T) {
	uc, ledger, _, _ := newOathFixture(t)

	oath, err := uc.CreateSolo(context.Background(), "alice", validInput())
	if err != nil {
		t.Fatalf("create solo failed: %v", err)
	}
	if oath.Status != domain.OathActive {
		t.Fatalf("expected ACTIVE got %s", oath.Status)
	}
	if ledger.balances["alice"] != 50 {
		t.Fatalf("expected stake debited, balance %d", ledger.balances["alice"])
	}
}

func TestAcceptDebitsStakeAndActivates(t *testing.T) {
	uc, ledger, _, notifier := newOathFixture(t)

	oath, err := uc.Create(context.Background(), "alice", validInput("bob"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	result, err := uc.Accept(context.Background(), oath.ID, "bob")
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if !result.AllAccepted || !result.Activated {
		t.Fatalf("expected full acceptance and activation, got %+v", result)
	}
	if ledger.balances["bob"] != 50 {
		t.Fatalf("expected bob balance 50 got %d", ledger.balances["bob"])
	}

	staked, _ := uc.TotalStaked(context.Background(), oath.ID)
	if staked != 100 {
		t.Fatalf("expected escrow 100 got %d", staked)
	}

	started := notifier.byType(domain.NotificationOathStarted)
	if len(started) != 1 || started[0].ReceiverID != "alice" {
		t.Fatalf("expected start notification to alice, got %+v", started)
	}
}

func TestAcceptInsufficientFundsLeavesInvited(t *testing.T) {
	uc, ledger, oaths, _ := newOathFixture(t)
	ledger.balances["bob"] = 10

	oath, err := uc.Create(context.Background(), "alice", validInput("bob"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = uc.Accept(context.Background(), oath.ID, "bob")
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected InsufficientFunds got %v", err)
	}

	if ledger.balances["bob"] != 10 {
		t.Fatalf("expected bob balance untouched got %d", ledger.balances["bob"])
	}
	stored, _ := oaths.Get(context.Background(), oath.ID)
	p, _ := findParticipant(stored.Participants, "bob")
	if p.Status != domain.ParticipantInvited || p.StakePaid {
		t.Fatalf("expected bob still INVITED and unpaid, got %+v", p)
	}
}

func TestAcceptTwiceConflicts(t *testing.T) {
	uc, _, _, _ := newOathFixture(t)

	oath, _ := uc.Create(context.Background(), "alice", validInput("bob"))
	if _, err := uc.Accept(context.Background(), oath.ID, "bob"); err != nil {
		t.Fatalf("first accept failed: %v", err)
	}

	_, err := uc.Accept(context.Background(), oath.ID, "bob")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected Conflict got %v", err)
	}
}

func TestDeclineCancelsOath(t *testing.T) {
	uc, _, oaths, _ := newOathFixture(t)

	oath, _ := uc.Create(context.Background(), "alice", validInput("bob"))
	if err := uc.Decline(context.Background(), oath.ID, "bob"); err != nil {
		t.Fatalf("decline failed: %v", err)
	}

	stored, _ := oaths.Get(context.Background(), oath.ID)
	if stored.Status != domain.OathCancelled {
		t.Fatalf("expected CANCELLED got %s", stored.Status)
	}
}

func TestSweepSettlesExpiredOathOnce(t *testing.T) {
	uc, ledger, oaths, notifier := newOathFixture(t)

	input := validInput("bob")
	oath, _ := uc.Create(context.Background(), "alice", input)
	if _, err := uc.Accept(context.Background(), oath.ID, "bob"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	// bob failed a day; the oath is past its deadline
	stored := oaths.oaths[oath.ID]
	findFakeParticipant(stored, "bob").FailureCount = 1
	stored.EndDate = fixedNow().Add(-time.Hour)

	uc.SweepDeadlines(context.Background())

	if stored.Status != domain.OathCompleted {
		t.Fatalf("expected COMPLETED got %s", stored.Status)
	}
	if ledger.balances["alice"] != 150 {
		t.Fatalf("expected alice to win the pot, balance %d", ledger.balances["alice"])
	}
	if ledger.balances["bob"] != 50 {
		t.Fatalf("expected bob to lose the stake, balance %d", ledger.balances["bob"])
	}

	settled := notifier.byType(domain.NotificationOathSettled)
	if len(settled) != 1 || settled[0].ReceiverID != "alice" {
		t.Fatalf("expected one settlement notification to alice, got %+v", settled)
	}

	// second sweep sees no expired oaths and pays nothing again
	uc.SweepDeadlines(context.Background())
	if ledger.balances["alice"] != 150 {
		t.Fatalf("expected settlement to be idempotent, balance %d", ledger.balances["alice"])
	}
}

func TestSweepRefundsWhenNobodyWins(t *testing.T) {
	uc, ledger, oaths, _ := newOathFixture(t)

	oath, _ := uc.Create(context.Background(), "alice", validInput("bob"))
	if _, err := uc.Accept(context.Background(), oath.ID, "bob"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	stored := oaths.oaths[oath.ID]
	findFakeParticipant(stored, "alice").FailureCount = 2
	findFakeParticipant(stored, "bob").FailureCount = 1
	stored.EndDate = fixedNow().Add(-time.Hour)

	uc.SweepDeadlines(context.Background())

	if ledger.balances["alice"] != 100 || ledger.balances["bob"] != 100 {
		t.Fatalf("expected both stakes refunded, got alice=%d bob=%d",
			ledger.balances["alice"], ledger.balances["bob"])
	}
}

func TestSweepActivatesDuePendingOath(t *testing.T) {
	uc, _, oaths, _ := newOathFixture(t)

	input := validInput("bob")
	input.StartDate = fixedNow().Add(time.Hour)
	input.EndDate = fixedNow().Add(8 * 24 * time.Hour)
	oath, _ := uc.Create(context.Background(), "alice", input)
	if _, err := uc.Accept(context.Background(), oath.ID, "bob"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	stored := oaths.oaths[oath.ID]
	if stored.Status != domain.OathPending {
		t.Fatalf("expected oath to stay PENDING before its start, got %s", stored.Status)
	}

	uc.now = func() time.Time { return fixedNow().Add(2 * time.Hour) }
	uc.SweepDeadlines(context.Background())

	if stored.Status != domain.OathActive {
		t.Fatalf("expected ACTIVE after sweep got %s", stored.Status)
	}
}
