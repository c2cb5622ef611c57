package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/oathbound/oathbound/internal/domain"
	"github.com/oathbound/oathbound/internal/infrastructure/database/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Get(ctx context.Context, id string) (domain.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Take(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.NotFoundError{Resource: "user"}
		}
		return domain.User{}, errors.Wrap(err, "UserRepository.Get failed")
	}
	return userToDomain(user), nil
}

func (r *UserRepository) FindByProofHandle(ctx context.Context, handle string) ([]domain.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Where("proof_handle = ?", handle).Find(&users).Error
	if err != nil {
		return nil, errors.Wrap(err, "UserRepository.FindByProofHandle failed")
	}
	result := make([]domain.User, 0, len(users))
	for _, u := range users {
		result = append(result, userToDomain(u))
	}
	return result, nil
}

// ListActiveProofHandles returns the distinct proof-source handles of
// accepted participants in active daily oaths.
func (r *UserRepository) ListActiveProofHandles(ctx context.Context) ([]string, error) {
	var handles []string
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Distinct("users.proof_handle").
		Joins("JOIN oath_participants ON oath_participants.user_id = users.id").
		Joins("JOIN oaths ON oaths.id = oath_participants.oath_id").
		Where("users.proof_handle IS NOT NULL AND users.proof_handle <> ''").
		Where("oath_participants.status = ?", string(domain.ParticipantAccepted)).
		Where("oaths.status = ? AND oaths.type = ?", string(domain.OathActive), string(domain.OathDaily)).
		Pluck("users.proof_handle", &handles).Error
	if err != nil {
		return nil, errors.Wrap(err, "UserRepository.ListActiveProofHandles failed")
	}
	return handles, nil
}

func userToDomain(u models.User) domain.User {
	return domain.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Gems:        u.Gems,
		Credits:     u.Credits,
		ProofHandle: u.ProofHandle,
	}
}
