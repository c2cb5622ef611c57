package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oathbound/oathbound/internal/domain"
	"github.com/oathbound/oathbound/internal/infrastructure/database/models"
)

type CheckInRepository struct {
	db *gorm.DB
}

func NewCheckInRepository(db *gorm.DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

// Submit inserts the day's check-in, or refreshes the proof on an existing
// row that is still awaiting verification. A row any verifier or dispute has
// already touched is immutable to resubmission.
func (r *CheckInRepository) Submit(ctx context.Context, checkIn domain.CheckIn) (domain.CheckIn, error) {
	model := checkInToModel(checkIn)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
		if res.Error != nil {
			return errors.Wrap(res.Error, "check-in insert failed")
		}
		if res.RowsAffected == 1 {
			return nil
		}

		var existing models.CheckIn
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("oath_id = ? AND user_id = ? AND due_date = ?", checkIn.OathID, checkIn.UserID, checkIn.DueDate).
			Take(&existing).Error
		if err != nil {
			return errors.Wrap(err, "check-in lookup failed")
		}
		if domain.CheckInStatus(existing.Status).IsTerminal() {
			return domain.ConflictError{Msg: "check-in for this day is already verified"}
		}

		err = tx.Model(&existing).Updates(map[string]any{
			"proof_kind":   model.ProofKind,
			"proof_value":  model.ProofValue,
			"submitted_at": model.SubmittedAt,
		}).Error
		if err != nil {
			return errors.Wrap(err, "check-in update failed")
		}
		existing.ProofKind = string(checkIn.Proof.Kind)
		existing.ProofValue = checkIn.Proof.Value
		existing.SubmittedAt = checkIn.SubmittedAt
		model = existing
		return nil
	})
	if err != nil {
		return domain.CheckIn{}, err
	}
	return checkInToDomain(model), nil
}

// Verify settles a pending check-in and bumps the matching participant
// counter in the same transaction. The conditional update on the prior
// PENDING_VERIFICATION status makes a racing second verifier lose cleanly.
func (r *CheckInRepository) Verify(ctx context.Context, id string, complete bool, note string, now time.Time) (domain.CheckIn, error) {
	var model models.CheckIn

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		status := domain.CheckInVerifiedIncomplete
		counter := "failure_count"
		if complete {
			status = domain.CheckInVerifiedComplete
			counter = "success_count"
		}

		res := tx.Model(&models.CheckIn{}).
			Where("id = ? AND status = ?", id, string(domain.CheckInPendingVerification)).
			Updates(map[string]any{
				"status":        string(status),
				"verifier_note": note,
				"verified_at":   now,
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "check-in verification failed")
		}
		if res.RowsAffected == 0 {
			err := tx.Take(&model, "id = ?", id).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFoundError{Resource: "check-in"}
			}
			if err != nil {
				return errors.Wrap(err, "check-in lookup failed")
			}
			return domain.NotEligibleError{Msg: "check-in is already verified"}
		}

		if err := tx.Take(&model, "id = ?", id).Error; err != nil {
			return errors.Wrap(err, "check-in reload failed")
		}

		err := tx.Model(&models.OathParticipant{}).
			Where("oath_id = ? AND user_id = ?", model.OathID, model.UserID).
			UpdateColumn(counter, gorm.Expr(counter+" + 1")).Error
		if err != nil {
			return errors.Wrap(err, "counter update failed")
		}
		return nil
	})
	if err != nil {
		return domain.CheckIn{}, err
	}
	return checkInToDomain(model), nil
}

// AutoVerify records an externally verified check-in for the day. It creates
// the row when the day is empty, upgrades a pending or failed row, and
// leaves completed, disputed and resolved rows alone. The returned bool
// reports whether the success counter moved.
func (r *CheckInRepository) AutoVerify(ctx context.Context, checkIn domain.CheckIn) (domain.CheckIn, bool, error) {
	model := checkInToModel(checkIn)
	counted := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
		if res.Error != nil {
			return errors.Wrap(res.Error, "check-in insert failed")
		}
		if res.RowsAffected == 1 {
			counted = true
			return bumpCounters(tx, model.OathID, model.UserID, 1, 0)
		}

		var existing models.CheckIn
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("oath_id = ? AND user_id = ? AND due_date = ?", checkIn.OathID, checkIn.UserID, checkIn.DueDate).
			Take(&existing).Error
		if err != nil {
			return errors.Wrap(err, "check-in lookup failed")
		}

		switch domain.CheckInStatus(existing.Status) {
		case domain.CheckInPendingVerification:
			if err := autoUpgrade(tx, &existing, model); err != nil {
				return err
			}
			counted = true
			if err := bumpCounters(tx, model.OathID, model.UserID, 1, 0); err != nil {
				return err
			}
		case domain.CheckInVerifiedIncomplete:
			if err := autoUpgrade(tx, &existing, model); err != nil {
				return err
			}
			counted = true
			if err := bumpCounters(tx, model.OathID, model.UserID, 1, -1); err != nil {
				return err
			}
		default:
			// already complete, or in dispute machinery
		}
		model = existing
		return nil
	})
	if err != nil {
		return domain.CheckIn{}, false, err
	}
	return checkInToDomain(model), counted, nil
}

func autoUpgrade(tx *gorm.DB, existing *models.CheckIn, incoming models.CheckIn) error {
	err := tx.Model(existing).Updates(map[string]any{
		"status":        incoming.Status,
		"proof_kind":    incoming.ProofKind,
		"proof_value":   incoming.ProofValue,
		"verifier_note": incoming.VerifierNote,
		"verified_at":   incoming.VerifiedAt,
	}).Error
	if err != nil {
		return errors.Wrap(err, "check-in upgrade failed")
	}
	existing.Status = incoming.Status
	existing.ProofKind = incoming.ProofKind
	existing.ProofValue = incoming.ProofValue
	existing.VerifierNote = incoming.VerifierNote
	existing.VerifiedAt = incoming.VerifiedAt
	return nil
}

func bumpCounters(tx *gorm.DB, oathID, userID string, success, failure int) error {
	updates := map[string]any{}
	if success != 0 {
		updates["success_count"] = gorm.Expr("success_count + ?", success)
	}
	if failure != 0 {
		updates["failure_count"] = gorm.Expr("failure_count + ?", failure)
	}
	if len(updates) == 0 {
		return nil
	}
	err := tx.Model(&models.OathParticipant{}).
		Where("oath_id = ? AND user_id = ?", oathID, userID).
		UpdateColumns(updates).Error
	return errors.Wrap(err, "counter update failed")
}

func (r *CheckInRepository) Get(ctx context.Context, id string) (domain.CheckIn, error) {
	var model models.CheckIn
	err := r.db.WithContext(ctx).Take(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CheckIn{}, domain.NotFoundError{Resource: "check-in"}
		}
		return domain.CheckIn{}, errors.Wrap(err, "CheckInRepository.Get failed")
	}
	return checkInToDomain(model), nil
}

func (r *CheckInRepository) ListForOath(ctx context.Context, oathID, userID string) ([]domain.CheckIn, error) {
	query := r.db.WithContext(ctx).Where("oath_id = ?", oathID)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var rows []models.CheckIn
	if err := query.Order("due_date DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "CheckInRepository.ListForOath failed")
	}

	result := make([]domain.CheckIn, 0, len(rows))
	for _, row := range rows {
		result = append(result, checkInToDomain(row))
	}
	return result, nil
}

func checkInToModel(c domain.CheckIn) models.CheckIn {
	return models.CheckIn{
		ID:           c.ID,
		OathID:       c.OathID,
		UserID:       c.UserID,
		DueDate:      c.DueDate,
		ProofKind:    string(c.Proof.Kind),
		ProofValue:   c.Proof.Value,
		Status:       string(c.Status),
		VerifierNote: c.VerifierNote,
		SubmittedAt:  c.SubmittedAt,
		VerifiedAt:   c.VerifiedAt,
	}
}

func checkInToDomain(c models.CheckIn) domain.CheckIn {
	return domain.CheckIn{
		ID:      c.ID,
		OathID:  c.OathID,
		UserID:  c.UserID,
		DueDate: c.DueDate,
		Proof: domain.Proof{
			Kind:  domain.ProofKind(c.ProofKind),
			Value: c.ProofValue,
		},
		Status:       domain.CheckInStatus(c.Status),
		VerifierNote: c.VerifierNote,
		SubmittedAt:  c.SubmittedAt,
		VerifiedAt:   c.VerifiedAt,
	}
}
