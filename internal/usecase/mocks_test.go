package usecase

import (
	"context"
	"time"

	"github.com/oathbound/oathbound/internal/domain"
)

// In-memory fakes implementing the repository ports with the same contracts
// as the gorm implementations, so the usecases can be exercised without a
// database.

type fakeLedger struct {
	balances map[string]int64
	staked   map[string]int64
	entries  []domain.LedgerEntry
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: map[string]int64{},
		staked:   map[string]int64{},
	}
}

func (l *fakeLedger) Debit(ctx context.Context, userID string, amount int64, currency domain.Currency, oathID string) error {
	if l.balances[userID] < amount {
		return domain.InsufficientFundsError{Currency: currency, Need: amount, Have: l.balances[userID]}
	}
	l.balances[userID] -= amount
	l.staked[oathID] += amount
	l.entries = append(l.entries, domain.LedgerEntry{
		UserID: userID, OathID: oathID, Kind: domain.LedgerDebit, Amount: amount, Currency: currency,
	})
	return nil
}

func (l *fakeLedger) Credit(ctx context.Context, userID string, amount int64, currency domain.Currency, oathID string) error {
	l.balances[userID] += amount
	l.entries = append(l.entries, domain.LedgerEntry{
		UserID: userID, OathID: oathID, Kind: domain.LedgerCredit, Amount: amount, Currency: currency,
	})
	return nil
}

func (l *fakeLedger) TotalStaked(ctx context.Context, oathID string) (int64, error) {
	return l.staked[oathID], nil
}

type fakeUsers struct {
	users   map[string]domain.User
	handles []string
}

func newFakeUsers(users ...domain.User) *fakeUsers {
	f := &fakeUsers{users: map[string]domain.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Get(ctx context.Context, id string) (domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.NotFoundError{Resource: "user"}
	}
	return u, nil
}

func (f *fakeUsers) FindByProofHandle(ctx context.Context, handle string) ([]domain.User, error) {
	var result []domain.User
	for _, u := range f.users {
		if u.ProofHandle != nil && *u.ProofHandle == handle {
			result = append(result, u)
		}
	}
	return result, nil
}

func (f *fakeUsers) ListActiveProofHandles(ctx context.Context) ([]string, error) {
	return f.handles, nil
}

type fakeOaths struct {
	ledger *fakeLedger
	oaths  map[string]*domain.Oath
}

func newFakeOaths(ledger *fakeLedger) *fakeOaths {
	return &fakeOaths{ledger: ledger, oaths: map[string]*domain.Oath{}}
}

func (f *fakeOaths) Create(ctx context.Context, oath domain.Oath, participants []domain.Participant) (domain.Oath, error) {
	for _, p := range participants {
		if p.StakePaid {
			if err := f.ledger.Debit(ctx, p.UserID, p.StakeAmount, oath.Currency, oath.ID); err != nil {
				return domain.Oath{}, err
			}
		}
	}
	oath.Participants = participants
	f.oaths[oath.ID] = &oath
	return oath, nil
}

func (f *fakeOaths) Get(ctx context.Context, id string) (domain.Oath, error) {
	oath, ok := f.oaths[id]
	if !ok {
		return domain.Oath{}, domain.NotFoundError{Resource: "oath"}
	}
	return *oath, nil
}

func (f *fakeOaths) ListForUser(ctx context.Context, userID string, status domain.OathStatus) ([]domain.Oath, error) {
	var result []domain.Oath
	for _, oath := range f.oaths {
		if status != "" && oath.Status != status {
			continue
		}
		for _, p := range oath.Participants {
			if p.UserID == userID && p.Status == domain.ParticipantAccepted {
				result = append(result, *oath)
			}
		}
	}
	return result, nil
}

func (f *fakeOaths) ListInvitations(ctx context.Context, userID string) ([]domain.Oath, error) {
	var result []domain.Oath
	for _, oath := range f.oaths {
		if oath.Status != domain.OathPending {
			continue
		}
		for _, p := range oath.Participants {
			if p.UserID == userID && p.Status == domain.ParticipantInvited {
				result = append(result, *oath)
			}
		}
	}
	return result, nil
}

func (f *fakeOaths) ListActiveDailyForUser(ctx context.Context, userID string) ([]domain.Oath, error) {
	var result []domain.Oath
	for _, oath := range f.oaths {
		if oath.Status != domain.OathActive || oath.Type != domain.OathDaily {
			continue
		}
		for _, p := range oath.Participants {
			if p.UserID == userID && p.Status == domain.ParticipantAccepted {
				result = append(result, *oath)
			}
		}
	}
	return result, nil
}

func (f *fakeOaths) Accept(ctx context.Context, oathID, userID string, now time.Time) (AcceptResult, error) {
	oath := f.oaths[oathID]
	var idx = -1
	for i, p := range oath.Participants {
		if p.UserID == userID {
			idx = i
		}
	}
	if idx < 0 {
		return AcceptResult{}, domain.NotFoundError{Resource: "oath invitation"}
	}

	if err := f.ledger.Debit(ctx, userID, oath.Participants[idx].StakeAmount, oath.Currency, oathID); err != nil {
		return AcceptResult{}, err
	}
	oath.Participants[idx].Status = domain.ParticipantAccepted
	oath.Participants[idx].StakePaid = true

	result := AcceptResult{Participant: oath.Participants[idx], AllAccepted: true}
	for _, p := range oath.Participants {
		if p.Status != domain.ParticipantAccepted {
			result.AllAccepted = false
		}
	}
	if result.AllAccepted && !oath.StartDate.After(now) {
		oath.Status = domain.OathActive
		result.Activated = true
	}
	return result, nil
}

func (f *fakeOaths) Decline(ctx context.Context, oathID, userID string) error {
	oath := f.oaths[oathID]
	for i, p := range oath.Participants {
		if p.UserID == userID {
			oath.Participants[i].Status = domain.ParticipantDeclined
		}
	}
	oath.Status = domain.OathCancelled
	return nil
}

func (f *fakeOaths) ActivateDue(ctx context.Context, now time.Time) ([]domain.Oath, error) {
	var activated []domain.Oath
	for _, oath := range f.oaths {
		if oath.Status != domain.OathPending || oath.StartDate.After(now) {
			continue
		}
		ready := true
		for _, p := range oath.Participants {
			if p.Status != domain.ParticipantAccepted {
				ready = false
			}
		}
		if ready {
			oath.Status = domain.OathActive
			activated = append(activated, *oath)
		}
	}
	return activated, nil
}

func (f *fakeOaths) ListExpired(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	for id, oath := range f.oaths {
		if oath.Status == domain.OathActive && oath.EndDate.Before(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeOaths) Settle(ctx context.Context, oathID string, now time.Time) (Settlement, error) {
	oath := f.oaths[oathID]
	if oath.Status != domain.OathActive {
		return Settlement{}, domain.ConflictError{Msg: "oath already settled"}
	}
	oath.Status = domain.OathCompleted

	var pot int64
	var winners, paid []domain.Participant
	for _, p := range oath.Participants {
		if !p.StakePaid {
			continue
		}
		pot += p.StakeAmount
		paid = append(paid, p)
		if p.Status == domain.ParticipantAccepted && p.FailureCount == 0 {
			winners = append(winners, p)
		}
	}

	var payouts []domain.Payout
	if len(winners) == 0 {
		for _, p := range paid {
			payouts = append(payouts, domain.Payout{UserID: p.UserID, Amount: p.StakeAmount, Currency: oath.Currency})
		}
	} else {
		share := pot / int64(len(winners))
		remainder := pot % int64(len(winners))
		for i, w := range winners {
			amount := share
			if int64(i) < remainder {
				amount++
			}
			payouts = append(payouts, domain.Payout{UserID: w.UserID, Amount: amount, Currency: oath.Currency})
		}
	}
	for _, payout := range payouts {
		f.ledger.Credit(ctx, payout.UserID, payout.Amount, oath.Currency, oathID)
	}
	return Settlement{Oath: *oath, Payouts: payouts}, nil
}

func findFakeParticipant(oath *domain.Oath, userID string) *domain.Participant {
	for i, p := range oath.Participants {
		if p.UserID == userID {
			return &oath.Participants[i]
		}
	}
	return nil
}

type fakeCheckIns struct {
	oaths         *fakeOaths
	rows          map[string]*domain.CheckIn
	autoVerifyErr error
}

func newFakeCheckIns(oaths *fakeOaths) *fakeCheckIns {
	return &fakeCheckIns{oaths: oaths, rows: map[string]*domain.CheckIn{}}
}

func dayKey(oathID, userID string, day time.Time) string {
	return oathID + "|" + userID + "|" + day.Format("2006-01-02")
}

func (f *fakeCheckIns) find(oathID, userID string, day time.Time) *domain.CheckIn {
	return f.rows[dayKey(oathID, userID, day)]
}

func (f *fakeCheckIns) Submit(ctx context.Context, checkIn domain.CheckIn) (domain.CheckIn, error) {
	key := dayKey(checkIn.OathID, checkIn.UserID, checkIn.DueDate)
	existing, ok := f.rows[key]
	if !ok {
		row := checkIn
		f.rows[key] = &row
		return row, nil
	}
	if existing.Status.IsTerminal() {
		return domain.CheckIn{}, domain.ConflictError{Msg: "check-in for this day is already verified"}
	}
	existing.Proof = checkIn.Proof
	existing.SubmittedAt = checkIn.SubmittedAt
	return *existing, nil
}

func (f *fakeCheckIns) Verify(ctx context.Context, id string, complete bool, note string, now time.Time) (domain.CheckIn, error) {
	for _, row := range f.rows {
		if row.ID != id {
			continue
		}
		if row.Status != domain.CheckInPendingVerification {
			return domain.CheckIn{}, domain.NotEligibleError{Msg: "check-in is already verified"}
		}
		row.Status = domain.CheckInVerifiedIncomplete
		counter := func(p *domain.Participant) { p.FailureCount++ }
		if complete {
			row.Status = domain.CheckInVerifiedComplete
			counter = func(p *domain.Participant) { p.SuccessCount++ }
		}
		row.VerifierNote = note
		row.VerifiedAt = &now
		counter(findFakeParticipant(f.oaths.oaths[row.OathID], row.UserID))
		return *row, nil
	}
	return domain.CheckIn{}, domain.NotFoundError{Resource: "check-in"}
}

func (f *fakeCheckIns) AutoVerify(ctx context.Context, checkIn domain.CheckIn) (domain.CheckIn, bool, error) {
	if f.autoVerifyErr != nil {
		return domain.CheckIn{}, false, f.autoVerifyErr
	}
	key := dayKey(checkIn.OathID, checkIn.UserID, checkIn.DueDate)
	participant := findFakeParticipant(f.oaths.oaths[checkIn.OathID], checkIn.UserID)

	existing, ok := f.rows[key]
	if !ok {
		row := checkIn
		f.rows[key] = &row
		participant.SuccessCount++
		return row, true, nil
	}

	switch existing.Status {
	case domain.CheckInPendingVerification:
		existing.Status = checkIn.Status
		existing.Proof = checkIn.Proof
		participant.SuccessCount++
		return *existing, true, nil
	case domain.CheckInVerifiedIncomplete:
		existing.Status = checkIn.Status
		existing.Proof = checkIn.Proof
		participant.SuccessCount++
		participant.FailureCount--
		return *existing, true, nil
	default:
		return *existing, false, nil
	}
}

func (f *fakeCheckIns) Get(ctx context.Context, id string) (domain.CheckIn, error) {
	for _, row := range f.rows {
		if row.ID == id {
			return *row, nil
		}
	}
	return domain.CheckIn{}, domain.NotFoundError{Resource: "check-in"}
}

func (f *fakeCheckIns) ListForOath(ctx context.Context, oathID, userID string) ([]domain.CheckIn, error) {
	var result []domain.CheckIn
	for _, row := range f.rows {
		if row.OathID != oathID {
			continue
		}
		if userID != "" && row.UserID != userID {
			continue
		}
		result = append(result, *row)
	}
	return result, nil
}

type fakeDisputes struct {
	checkIns *fakeCheckIns
	disputes map[string]*domain.Dispute
}

func newFakeDisputes(checkIns *fakeCheckIns) *fakeDisputes {
	return &fakeDisputes{checkIns: checkIns, disputes: map[string]*domain.Dispute{}}
}

func (f *fakeDisputes) Open(ctx context.Context, dispute domain.Dispute) (domain.Dispute, error) {
	for _, d := range f.disputes {
		if d.CheckInID == dispute.CheckInID {
			return domain.Dispute{}, domain.ConflictError{Msg: "check-in is already under dispute"}
		}
	}
	for _, row := range f.checkIns.rows {
		if row.ID == dispute.CheckInID {
			if row.Status != domain.CheckInVerifiedIncomplete {
				return domain.Dispute{}, domain.ConflictError{Msg: "check-in is already under dispute"}
			}
			row.Status = domain.CheckInDisputed
		}
	}
	row := dispute
	f.disputes[dispute.ID] = &row
	return row, nil
}

func (f *fakeDisputes) Get(ctx context.Context, id string) (domain.Dispute, error) {
	d, ok := f.disputes[id]
	if !ok {
		return domain.Dispute{}, domain.NotFoundError{Resource: "dispute"}
	}
	return *d, nil
}

func (f *fakeDisputes) Resolve(ctx context.Context, id string, outcome domain.DisputeOutcome, notes string, now time.Time) (domain.Dispute, error) {
	d := f.disputes[id]
	if d.Status != domain.DisputePending {
		return domain.Dispute{}, domain.ConflictError{Msg: "dispute already resolved"}
	}
	d.Status = domain.DisputeResolved
	d.Outcome = &outcome
	d.JudgeNotes = notes
	d.ResolvedAt = &now

	for _, row := range f.checkIns.rows {
		if row.ID != d.CheckInID {
			continue
		}
		participant := findFakeParticipant(f.checkIns.oaths.oaths[row.OathID], d.DisputerID)
		if outcome == domain.OutcomeComplete {
			row.Status = domain.CheckInResolvedComplete
			participant.SuccessCount++
			participant.FailureCount--
			participant.DisputesWon++
		} else {
			row.Status = domain.CheckInResolvedIncomplete
			participant.DisputesLost++
		}
	}
	return *d, nil
}

func (f *fakeDisputes) ListPendingForJudge(ctx context.Context, judgeID string) ([]domain.Dispute, error) {
	var result []domain.Dispute
	for _, d := range f.disputes {
		if d.JudgeID == judgeID && d.Status == domain.DisputePending {
			result = append(result, *d)
		}
	}
	return result, nil
}

type fakeFriends struct {
	pairs map[string]bool
}

func newFakeFriends(pairs ...[2]string) *fakeFriends {
	f := &fakeFriends{pairs: map[string]bool{}}
	for _, p := range pairs {
		f.pairs[p[0]+":"+p[1]] = true
		f.pairs[p[1]+":"+p[0]] = true
	}
	return f
}

func (f *fakeFriends) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	return f.pairs[userA+":"+userB], nil
}

type fakeNotifier struct {
	sent []domain.Notification
}

func (f *fakeNotifier) Notify(ctx context.Context, notification domain.Notification) {
	f.sent = append(f.sent, notification)
}

func (f *fakeNotifier) byType(t string) []domain.Notification {
	var result []domain.Notification
	for _, n := range f.sent {
		if n.Type == t {
			result = append(result, n)
		}
	}
	return result
}

type fakeSource struct {
	events map[string]*domain.ProofEvent
	calls  int
}

func (f *fakeSource) FetchLatestAcceptedEvent(ctx context.Context, handle string) (*domain.ProofEvent, error) {
	f.calls++
	return f.events[handle], nil
}

type fakeState struct {
	values map[string]string
}

func newFakeState() *fakeState {
	return &fakeState{values: map[string]string{}}
}

func (f *fakeState) Get(ctx context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeState) Set(ctx context.Context, key, value string) error {
	f.values[key] = value
	return nil
}
