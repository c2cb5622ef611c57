package repository

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/oathbound/oathbound/internal/infrastructure/database/models"
)

const friendshipAccepted = "ACCEPTED"

type FriendshipRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewFriendshipRepository(db *gorm.DB) *FriendshipRepository {
	return &FriendshipRepository{
		db:    db,
		cache: cache.New(5*time.Minute, 10*time.Minute),
	}
}

// AreFriends reports whether an accepted friendship exists between the two
// users, in either direction. Positive answers are cached; a missing or
// pending friendship is re-checked every time so a fresh acceptance is
// picked up immediately.
func (r *FriendshipRepository) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	key := pairKey(userA, userB)
	if _, ok := r.cache.Get(key); ok {
		return true, nil
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("status = ?", friendshipAccepted).
		Where("(initiator_id = ? AND receiver_id = ?) OR (initiator_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "friendship lookup failed")
	}

	if count > 0 {
		r.cache.Set(key, true, cache.DefaultExpiration)
		return true, nil
	}
	return false, nil
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}
