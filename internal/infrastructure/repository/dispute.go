package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/oathbound/oathbound/internal/domain"
	"github.com/oathbound/oathbound/internal/infrastructure/database/models"
)

type DisputeRepository struct {
	db *gorm.DB
}

func NewDisputeRepository(db *gorm.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Open files a dispute against a failed check-in and freezes the check-in as
// DISPUTED. The conditional check-in update doubles as the guard: when the
// row is no longer VERIFIED_INCOMPLETE someone already disputed or resolved
// it.
func (r *DisputeRepository) Open(ctx context.Context, dispute domain.Dispute) (domain.Dispute, error) {
	model := disputeToModel(dispute)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CheckIn{}).
			Where("id = ? AND status = ?", dispute.CheckInID, string(domain.CheckInVerifiedIncomplete)).
			Update("status", string(domain.CheckInDisputed))
		if res.Error != nil {
			return errors.Wrap(res.Error, "check-in freeze failed")
		}
		if res.RowsAffected == 0 {
			return domain.ConflictError{Msg: "check-in is already under dispute"}
		}

		if err := tx.Create(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ConflictError{Msg: "check-in is already under dispute"}
			}
			return errors.Wrap(err, "dispute insert failed")
		}
		return nil
	})
	if err != nil {
		return domain.Dispute{}, err
	}
	return r.Get(ctx, model.ID)
}

func (r *DisputeRepository) Get(ctx context.Context, id string) (domain.Dispute, error) {
	var model models.Dispute
	err := r.db.WithContext(ctx).Take(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Dispute{}, domain.NotFoundError{Resource: "dispute"}
		}
		return domain.Dispute{}, errors.Wrap(err, "DisputeRepository.Get failed")
	}
	return disputeToDomain(model), nil
}

// Resolve records the judge's verdict, moves the check-in to its resolved
// state and settles the disputer's counters, all in one transaction. The
// conditional update on PENDING makes the second resolution of the same
// dispute fail with a conflict.
func (r *DisputeRepository) Resolve(ctx context.Context, id string, outcome domain.DisputeOutcome, notes string, now time.Time) (domain.Dispute, error) {
	var model models.Dispute

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Dispute{}).
			Where("id = ? AND status = ?", id, string(domain.DisputePending)).
			Updates(map[string]any{
				"status":      string(domain.DisputeResolved),
				"outcome":     string(outcome),
				"judge_notes": notes,
				"resolved_at": now,
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "dispute resolution failed")
		}
		if res.RowsAffected == 0 {
			err := tx.Take(&model, "id = ?", id).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFoundError{Resource: "dispute"}
			}
			if err != nil {
				return errors.Wrap(err, "dispute lookup failed")
			}
			return domain.ConflictError{Msg: "dispute already resolved"}
		}

		if err := tx.Take(&model, "id = ?", id).Error; err != nil {
			return errors.Wrap(err, "dispute reload failed")
		}

		var checkIn models.CheckIn
		if err := tx.Take(&checkIn, "id = ?", model.CheckInID).Error; err != nil {
			return errors.Wrap(err, "check-in load failed")
		}

		checkInStatus := domain.CheckInResolvedIncomplete
		if outcome == domain.OutcomeComplete {
			checkInStatus = domain.CheckInResolvedComplete
		}
		err := tx.Model(&models.CheckIn{}).
			Where("id = ?", model.CheckInID).
			Updates(map[string]any{
				"status":      string(checkInStatus),
				"verified_at": now,
			}).Error
		if err != nil {
			return errors.Wrap(err, "check-in resolution failed")
		}

		counters := map[string]any{"disputes_lost": gorm.Expr("disputes_lost + 1")}
		if outcome == domain.OutcomeComplete {
			// the original failure verdict is reversed
			counters = map[string]any{
				"disputes_won":  gorm.Expr("disputes_won + 1"),
				"success_count": gorm.Expr("success_count + 1"),
				"failure_count": gorm.Expr("failure_count - 1"),
			}
		}
		err = tx.Model(&models.OathParticipant{}).
			Where("oath_id = ? AND user_id = ?", checkIn.OathID, model.DisputerID).
			UpdateColumns(counters).Error
		if err != nil {
			return errors.Wrap(err, "counter update failed")
		}
		return nil
	})
	if err != nil {
		return domain.Dispute{}, err
	}
	return disputeToDomain(model), nil
}

func (r *DisputeRepository) ListPendingForJudge(ctx context.Context, judgeID string) ([]domain.Dispute, error) {
	var rows []models.Dispute
	err := r.db.WithContext(ctx).
		Where("judge_id = ? AND status = ?", judgeID, string(domain.DisputePending)).
		Order("cdate ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "DisputeRepository.ListPendingForJudge failed")
	}

	result := make([]domain.Dispute, 0, len(rows))
	for _, row := range rows {
		result = append(result, disputeToDomain(row))
	}
	return result, nil
}

func disputeToModel(d domain.Dispute) models.Dispute {
	model := models.Dispute{
		ID:         d.ID,
		CheckInID:  d.CheckInID,
		DisputerID: d.DisputerID,
		JudgeID:    d.JudgeID,
		Reason:     d.Reason,
		Status:     string(d.Status),
		JudgeNotes: d.JudgeNotes,
		ResolvedAt: d.ResolvedAt,
	}
	if d.Outcome != nil {
		outcome := string(*d.Outcome)
		model.Outcome = &outcome
	}
	return model
}

func disputeToDomain(d models.Dispute) domain.Dispute {
	dispute := domain.Dispute{
		ID:         d.ID,
		CheckInID:  d.CheckInID,
		DisputerID: d.DisputerID,
		JudgeID:    d.JudgeID,
		Reason:     d.Reason,
		Status:     domain.DisputeStatus(d.Status),
		JudgeNotes: d.JudgeNotes,
		ResolvedAt: d.ResolvedAt,
		CDate:      d.CDate,
	}
	if d.Outcome != nil {
		outcome := domain.DisputeOutcome(*d.Outcome)
		dispute.Outcome = &outcome
	}
	return dispute
}
