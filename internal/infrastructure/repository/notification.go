package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/oathbound/oathbound/internal/domain"
	"github.com/oathbound/oathbound/internal/infrastructure/database/models"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, notification domain.Notification) error {
	model := models.Notification{
		ID:         notification.ID,
		Type:       notification.Type,
		SenderID:   notification.SenderID,
		ReceiverID: notification.ReceiverID,
		Title:      notification.Title,
		Message:    notification.Message,
		ActionURL:  notification.ActionURL,
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	return errors.Wrap(err, "notification insert failed")
}

func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	query := r.db.WithContext(ctx).Where("receiver_id = ?", userID)
	if unreadOnly {
		query = query.Where("read = false")
	}

	var rows []models.Notification
	if err := query.Order("cdate DESC").Limit(100).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "NotificationRepository.ListForUser failed")
	}

	result := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.Notification{
			ID:         row.ID,
			Type:       row.Type,
			SenderID:   row.SenderID,
			ReceiverID: row.ReceiverID,
			Title:      row.Title,
			Message:    row.Message,
			ActionURL:  row.ActionURL,
			Read:       row.Read,
			CDate:      row.CDate,
		})
	}
	return result, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND receiver_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return errors.Wrap(res.Error, "notification update failed")
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "notification"}
	}
	return nil
}
