package repository

import (
	"testing"
	"time"

	"github.com/oathbound/oathbound/internal/domain"
	"github.com/oathbound/oathbound/internal/infrastructure/database/models"
)

func participantRow(userID string, joined time.Time, stake int64, failures int) models.OathParticipant {
	return models.OathParticipant{
		UserID:       userID,
		Status:       string(domain.ParticipantAccepted),
		StakeAmount:  stake,
		StakePaid:    true,
		FailureCount: failures,
		JoinedAt:     joined,
	}
}

func sum(payouts []domain.Payout) int64 {
	var total int64
	for _, p := range payouts {
		total += p.Amount
	}
	return total
}

func TestSplitPotEvenSplit(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	winners := []models.OathParticipant{
		participantRow("a", t0, 50, 0),
		participantRow("b", t0.Add(time.Minute), 50, 0),
	}

	payouts := splitPot(100, winners, winners, domain.CurrencyGems)
	if len(payouts) != 2 {
		t.Fatalf("expected 2 payouts got %d", len(payouts))
	}
	for _, p := range payouts {
		if p.Amount != 50 {
			t.Fatalf("expected 50 each, got %+v", payouts)
		}
	}
	if sum(payouts) != 100 {
		t.Fatalf("pot not conserved: %d", sum(payouts))
	}
}

func TestSplitPotRemainderGoesToEarliestJoiners(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	winners := []models.OathParticipant{
		participantRow("late", t0.Add(time.Hour), 0, 0),
		participantRow("early", t0, 0, 0),
		participantRow("mid", t0.Add(time.Minute), 0, 0),
	}

	payouts := splitPot(100, winners, winners, domain.CurrencyGems)
	if sum(payouts) != 100 {
		t.Fatalf("pot not conserved: %d", sum(payouts))
	}

	byUser := map[string]int64{}
	for _, p := range payouts {
		byUser[p.UserID] = p.Amount
	}
	if byUser["early"] != 34 || byUser["mid"] != 33 || byUser["late"] != 33 {
		t.Fatalf("expected remainder to the earliest joiner, got %v", byUser)
	}
}

func TestSplitPotRefundsWhenNoWinners(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	paid := []models.OathParticipant{
		participantRow("a", t0, 60, 1),
		participantRow("b", t0.Add(time.Minute), 40, 2),
	}

	payouts := splitPot(100, nil, paid, domain.CurrencyGems)
	byUser := map[string]int64{}
	for _, p := range payouts {
		byUser[p.UserID] = p.Amount
	}
	if byUser["a"] != 60 || byUser["b"] != 40 {
		t.Fatalf("expected own stakes refunded, got %v", byUser)
	}
}

func TestSplitPotSkipsZeroAmounts(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	winners := []models.OathParticipant{participantRow("a", t0, 0, 0)}

	payouts := splitPot(0, winners, winners, domain.CurrencyGems)
	if len(payouts) != 0 {
		t.Fatalf("expected no zero payouts, got %+v", payouts)
	}
}
