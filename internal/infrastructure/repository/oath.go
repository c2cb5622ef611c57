package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oathbound/oathbound/internal/domain"
	"github.com/oathbound/oathbound/internal/infrastructure/database/models"
	"github.com/oathbound/oathbound/internal/usecase"
)

type OathRepository struct {
	db *gorm.DB
}

func NewOathRepository(db *gorm.DB) *OathRepository {
	return &OathRepository{db: db}
}

// Create persists an oath with its participant rows. Participants marked
// StakePaid are debited in the same transaction, so a failed debit leaves
// nothing behind.
func (r *OathRepository) Create(ctx context.Context, oath domain.Oath, participants []domain.Participant) (domain.Oath, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range participants {
			if p.StakePaid {
				if err := debitTx(tx, p.UserID, p.StakeAmount, oath.Currency, oath.ID); err != nil {
					return err
				}
			}
		}

		model := oathToModel(oath)
		if err := tx.Create(&model).Error; err != nil {
			return errors.Wrap(err, "oath insert failed")
		}

		for _, p := range participants {
			row := participantToModel(p)
			row.ID = uuid.NewString()
			row.OathID = oath.ID
			if err := tx.Create(&row).Error; err != nil {
				return errors.Wrap(err, "participant insert failed")
			}
		}
		return nil
	})
	if err != nil {
		return domain.Oath{}, err
	}
	return r.Get(ctx, oath.ID)
}

func (r *OathRepository) Get(ctx context.Context, id string) (domain.Oath, error) {
	var oath models.Oath
	err := r.db.WithContext(ctx).Take(&oath, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Oath{}, domain.NotFoundError{Resource: "oath"}
		}
		return domain.Oath{}, errors.Wrap(err, "OathRepository.Get failed")
	}

	var participants []models.OathParticipant
	err = r.db.WithContext(ctx).
		Where("oath_id = ?", id).
		Order("joined_at ASC").
		Find(&participants).Error
	if err != nil {
		return domain.Oath{}, errors.Wrap(err, "participant load failed")
	}

	return oathToDomain(oath, participants), nil
}

func (r *OathRepository) ListForUser(ctx context.Context, userID string, status domain.OathStatus) ([]domain.Oath, error) {
	query := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.Model(&models.OathParticipant{}).
			Select("oath_id").
			Where("user_id = ? AND status = ?", userID, string(domain.ParticipantAccepted))).
		Order("cdate DESC")
	if status != "" {
		query = query.Where("status = ?", string(status))
	}

	var oaths []models.Oath
	if err := query.Find(&oaths).Error; err != nil {
		return nil, errors.Wrap(err, "OathRepository.ListForUser failed")
	}
	return r.withParticipants(ctx, oaths)
}

func (r *OathRepository) ListInvitations(ctx context.Context, userID string) ([]domain.Oath, error) {
	var oaths []models.Oath
	err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.OathPending)).
		Where("id IN (?)", r.db.Model(&models.OathParticipant{}).
			Select("oath_id").
			Where("user_id = ? AND status = ?", userID, string(domain.ParticipantInvited))).
		Order("cdate DESC").
		Find(&oaths).Error
	if err != nil {
		return nil, errors.Wrap(err, "OathRepository.ListInvitations failed")
	}
	return r.withParticipants(ctx, oaths)
}

func (r *OathRepository) ListActiveDailyForUser(ctx context.Context, userID string) ([]domain.Oath, error) {
	var oaths []models.Oath
	err := r.db.WithContext(ctx).
		Where("status = ? AND type = ?", string(domain.OathActive), string(domain.OathDaily)).
		Where("id IN (?)", r.db.Model(&models.OathParticipant{}).
			Select("oath_id").
			Where("user_id = ? AND status = ?", userID, string(domain.ParticipantAccepted))).
		Find(&oaths).Error
	if err != nil {
		return nil, errors.Wrap(err, "OathRepository.ListActiveDailyForUser failed")
	}
	return r.withParticipants(ctx, oaths)
}

// Accept flips one INVITED participant to ACCEPTED. The stake debit, the
// flip, and a possible PENDING -> ACTIVE transition of the oath are a single
// transaction; a crash or an insufficient balance leaves everything as it
// was.
func (r *OathRepository) Accept(ctx context.Context, oathID, userID string, now time.Time) (usecase.AcceptResult, error) {
	var result usecase.AcceptResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var oath models.Oath
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&oath, "id = ?", oathID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFoundError{Resource: "oath"}
			}
			return errors.Wrap(err, "oath lock failed")
		}
		if oath.Status != string(domain.OathPending) {
			return domain.NotEligibleError{Msg: "oath is no longer accepting participants"}
		}

		var participant models.OathParticipant
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("oath_id = ? AND user_id = ?", oathID, userID).
			Take(&participant).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFoundError{Resource: "oath invitation"}
			}
			return errors.Wrap(err, "participant lock failed")
		}
		switch participant.Status {
		case string(domain.ParticipantAccepted):
			return domain.ConflictError{Msg: "oath already accepted"}
		case string(domain.ParticipantDeclined):
			return domain.NotEligibleError{Msg: "invitation is no longer valid"}
		}

		if err := debitTx(tx, userID, participant.StakeAmount, domain.Currency(oath.Currency), oathID); err != nil {
			return err
		}

		err = tx.Model(&participant).Updates(map[string]any{
			"status":     string(domain.ParticipantAccepted),
			"stake_paid": true,
		}).Error
		if err != nil {
			return errors.Wrap(err, "participant update failed")
		}

		var remaining int64
		err = tx.Model(&models.OathParticipant{}).
			Where("oath_id = ? AND status <> ?", oathID, string(domain.ParticipantAccepted)).
			Count(&remaining).Error
		if err != nil {
			return errors.Wrap(err, "participant count failed")
		}

		result.AllAccepted = remaining == 0
		if result.AllAccepted && !oath.StartDate.After(now) {
			err = tx.Model(&oath).Update("status", string(domain.OathActive)).Error
			if err != nil {
				return errors.Wrap(err, "oath activation failed")
			}
			result.Activated = true
		}

		result.Participant = participantToDomain(participant)
		result.Participant.Status = domain.ParticipantAccepted
		result.Participant.StakePaid = true
		return nil
	})
	if err != nil {
		return usecase.AcceptResult{}, err
	}
	return result, nil
}

// Decline marks an invitation DECLINED and cancels the whole oath.
func (r *OathRepository) Decline(ctx context.Context, oathID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.OathParticipant{}).
			Where("oath_id = ? AND user_id = ? AND status = ?", oathID, userID, string(domain.ParticipantInvited)).
			Update("status", string(domain.ParticipantDeclined))
		if res.Error != nil {
			return errors.Wrap(res.Error, "participant decline failed")
		}
		if res.RowsAffected == 0 {
			var participant models.OathParticipant
			err := tx.Where("oath_id = ? AND user_id = ?", oathID, userID).Take(&participant).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFoundError{Resource: "oath invitation"}
			}
			if err != nil {
				return errors.Wrap(err, "participant lookup failed")
			}
			return domain.NotEligibleError{Msg: "invitation cannot be declined"}
		}

		err := tx.Model(&models.Oath{}).
			Where("id = ? AND status = ?", oathID, string(domain.OathPending)).
			Update("status", string(domain.OathCancelled)).Error
		if err != nil {
			return errors.Wrap(err, "oath cancellation failed")
		}
		return nil
	})
}

// ActivateDue flips PENDING oaths to ACTIVE once their start has passed and
// every participant has accepted.
func (r *OathRepository) ActivateDue(ctx context.Context, now time.Time) ([]domain.Oath, error) {
	var activated []domain.Oath

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var oaths []models.Oath
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status = ? AND start_date <= ?", string(domain.OathPending), now).
			Where("NOT EXISTS (SELECT 1 FROM oath_participants WHERE oath_participants.oath_id = oaths.id AND oath_participants.status <> ?)",
				string(domain.ParticipantAccepted)).
			Find(&oaths).Error
		if err != nil {
			return errors.Wrap(err, "due oath query failed")
		}

		for _, oath := range oaths {
			err := tx.Model(&models.Oath{}).
				Where("id = ?", oath.ID).
				Update("status", string(domain.OathActive)).Error
			if err != nil {
				return errors.Wrap(err, "oath activation failed")
			}
			oath.Status = string(domain.OathActive)
			activated = append(activated, oathToDomain(oath, nil))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activated, nil
}

// ListExpired returns the ids of ACTIVE oaths past their deadline.
func (r *OathRepository) ListExpired(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Oath{}).
		Where("status = ? AND end_date < ?", string(domain.OathActive), now).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "OathRepository.ListExpired failed")
	}
	return ids, nil
}

// Settle completes one expired oath and pays out its escrowed pot. The
// ACTIVE -> COMPLETED flip is the guard: a concurrent sweep loses the
// conditional update and rolls back, so a pot is paid exactly once.
// Participants who never failed a day split the pot; when nobody qualifies,
// every paid participant is refunded their own stake.
func (r *OathRepository) Settle(ctx context.Context, oathID string, now time.Time) (usecase.Settlement, error) {
	var settlement usecase.Settlement

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Oath{}).
			Where("id = ? AND status = ? AND end_date < ?", oathID, string(domain.OathActive), now).
			Update("status", string(domain.OathCompleted))
		if res.Error != nil {
			return errors.Wrap(res.Error, "oath completion failed")
		}
		if res.RowsAffected == 0 {
			return domain.ConflictError{Msg: "oath already settled"}
		}

		var oath models.Oath
		if err := tx.Take(&oath, "id = ?", oathID).Error; err != nil {
			return errors.Wrap(err, "oath load failed")
		}

		var participants []models.OathParticipant
		err := tx.Where("oath_id = ?", oathID).
			Order("joined_at ASC").
			Find(&participants).Error
		if err != nil {
			return errors.Wrap(err, "participant load failed")
		}

		currency := domain.Currency(oath.Currency)
		var pot int64
		var paid, winners []models.OathParticipant
		for _, p := range participants {
			if !p.StakePaid {
				continue
			}
			pot += p.StakeAmount
			paid = append(paid, p)
			if p.Status == string(domain.ParticipantAccepted) && p.FailureCount == 0 {
				winners = append(winners, p)
			}
		}

		payouts := splitPot(pot, winners, paid, currency)
		for _, payout := range payouts {
			if err := creditTx(tx, payout.UserID, payout.Amount, currency, oathID); err != nil {
				return err
			}
		}

		settlement = usecase.Settlement{
			Oath:    oathToDomain(oath, participants),
			Payouts: payouts,
		}
		settlement.Oath.Status = domain.OathCompleted
		return nil
	})
	if err != nil {
		return usecase.Settlement{}, err
	}
	return settlement, nil
}

// splitPot divides the pot equally among winners, handing the integer
// remainder out one unit at a time in join order. With no winners each paid
// participant gets their own stake back.
func splitPot(pot int64, winners, paid []models.OathParticipant, currency domain.Currency) []domain.Payout {
	if len(winners) == 0 {
		payouts := make([]domain.Payout, 0, len(paid))
		for _, p := range paid {
			if p.StakeAmount == 0 {
				continue
			}
			payouts = append(payouts, domain.Payout{UserID: p.UserID, Amount: p.StakeAmount, Currency: currency})
		}
		return payouts
	}

	sort.SliceStable(winners, func(i, j int) bool {
		return winners[i].JoinedAt.Before(winners[j].JoinedAt)
	})

	share := pot / int64(len(winners))
	remainder := pot % int64(len(winners))
	payouts := make([]domain.Payout, 0, len(winners))
	for i, w := range winners {
		amount := share
		if int64(i) < remainder {
			amount++
		}
		if amount == 0 {
			continue
		}
		payouts = append(payouts, domain.Payout{UserID: w.UserID, Amount: amount, Currency: currency})
	}
	return payouts
}

func (r *OathRepository) withParticipants(ctx context.Context, oaths []models.Oath) ([]domain.Oath, error) {
	if len(oaths) == 0 {
		return []domain.Oath{}, nil
	}

	ids := make([]string, 0, len(oaths))
	for _, o := range oaths {
		ids = append(ids, o.ID)
	}

	var participants []models.OathParticipant
	err := r.db.WithContext(ctx).
		Where("oath_id IN ?", ids).
		Order("joined_at ASC").
		Find(&participants).Error
	if err != nil {
		return nil, errors.Wrap(err, "participant load failed")
	}

	byOath := make(map[string][]models.OathParticipant, len(oaths))
	for _, p := range participants {
		byOath[p.OathID] = append(byOath[p.OathID], p)
	}

	result := make([]domain.Oath, 0, len(oaths))
	for _, o := range oaths {
		result = append(result, oathToDomain(o, byOath[o.ID]))
	}
	return result, nil
}

func oathToModel(o domain.Oath) models.Oath {
	return models.Oath{
		ID:                 o.ID,
		Title:              o.Title,
		Description:        o.Description,
		Type:               string(o.Type),
		Status:             string(o.Status),
		StartDate:          o.StartDate,
		EndDate:            o.EndDate,
		StakeAmount:        o.StakeAmount,
		Currency:           string(o.Currency),
		VerificationPrompt: o.VerificationPrompt,
	}
}

func oathToDomain(o models.Oath, participants []models.OathParticipant) domain.Oath {
	oath := domain.Oath{
		ID:                 o.ID,
		Title:              o.Title,
		Description:        o.Description,
		Type:               domain.OathType(o.Type),
		Status:             domain.OathStatus(o.Status),
		StartDate:          o.StartDate,
		EndDate:            o.EndDate,
		StakeAmount:        o.StakeAmount,
		Currency:           domain.Currency(o.Currency),
		VerificationPrompt: o.VerificationPrompt,
		CDate:              o.CDate,
	}
	for _, p := range participants {
		oath.Participants = append(oath.Participants, participantToDomain(p))
	}
	return oath
}

func participantToModel(p domain.Participant) models.OathParticipant {
	return models.OathParticipant{
		OathID:       p.OathID,
		UserID:       p.UserID,
		Status:       string(p.Status),
		StakeAmount:  p.StakeAmount,
		StakePaid:    p.StakePaid,
		SuccessCount: p.SuccessCount,
		FailureCount: p.FailureCount,
		DisputesWon:  p.DisputesWon,
		DisputesLost: p.DisputesLost,
	}
}

func participantToDomain(p models.OathParticipant) domain.Participant {
	return domain.Participant{
		OathID:       p.OathID,
		UserID:       p.UserID,
		Status:       domain.ParticipantStatus(p.Status),
		StakeAmount:  p.StakeAmount,
		StakePaid:    p.StakePaid,
		SuccessCount: p.SuccessCount,
		FailureCount: p.FailureCount,
		DisputesWon:  p.DisputesWon,
		DisputesLost: p.DisputesLost,
		JoinedAt:     p.JoinedAt,
	}
}
