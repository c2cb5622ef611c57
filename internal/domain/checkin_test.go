package domain

import (
	"errors"
	"testing"
	"time"
)

func TestDayOfBucketsToUTCMidnight(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{
			time.Date(2025, 6, 15, 23, 59, 59, 0, time.UTC),
			time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			// local June 16th morning is still June 15th in UTC
			time.Date(2025, 6, 16, 7, 0, 0, 0, tokyo),
			time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		got := DayOf(tc.in)
		if !got.Equal(tc.want) {
			t.Fatalf("DayOf(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestProofValidate(t *testing.T) {
	if err := (Proof{Kind: ProofText, Value: "done"}).Validate(); err != nil {
		t.Fatalf("expected valid proof, got %v", err)
	}
	if err := (Proof{Kind: "VIDEO", Value: "x"}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown kind, got %v", err)
	}
	if err := (Proof{Kind: ProofLink}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty value, got %v", err)
	}
}

func TestCheckInStatusPredicates(t *testing.T) {
	complete := []CheckInStatus{CheckInVerifiedComplete, CheckInResolvedComplete}
	for _, s := range complete {
		if !s.IsComplete() {
			t.Fatalf("expected %s to count as complete", s)
		}
	}
	if CheckInVerifiedIncomplete.IsComplete() || CheckInDisputed.IsComplete() {
		t.Fatalf("incomplete statuses must not count as complete")
	}

	if CheckInPendingVerification.IsTerminal() {
		t.Fatalf("pending rows are mutable")
	}
	for _, s := range []CheckInStatus{
		CheckInVerifiedComplete, CheckInVerifiedIncomplete,
		CheckInDisputed, CheckInResolvedComplete, CheckInResolvedIncomplete,
	} {
		if !s.IsTerminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
}
