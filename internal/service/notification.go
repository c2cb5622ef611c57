package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oathbound/oathbound/internal/domain"
)

type NotificationStore interface {
	Create(ctx context.Context, notification domain.Notification) error
	ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// NotificationService persists notifications and fans them out over redis
// pub/sub for realtime delivery. Delivery is fire-and-forget: failures are
// logged and never bubble into the state transition that produced the
// notification.
type NotificationService struct {
	store NotificationStore
	rdb   *redis.Client
}

func NewNotificationService(store NotificationStore, redisClient *redis.Client) *NotificationService {
	return &NotificationService{
		store: store,
		rdb:   redisClient,
	}
}

func (s *NotificationService) Notify(ctx context.Context, notification domain.Notification) {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}

	if err := s.store.Create(ctx, notification); err != nil {
		slog.ErrorContext(
			ctx, "Failed to persist notification",
			slog.String("error", err.Error()),
			slog.String("type", notification.Type),
			slog.String("module", "notification"),
		)
	}

	event := domain.Event{
		Type:      notification.Type,
		Recipient: notification.ReceiverID,
		Body:      notification,
	}
	jsonstr, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(
			ctx, "Failed to marshal notification event",
			slog.String("error", err.Error()),
			slog.String("module", "notification"),
		)
		return
	}

	err = s.rdb.Publish(ctx, channelFor(notification.ReceiverID), jsonstr).Err()
	if err != nil {
		slog.ErrorContext(
			ctx, "Failed to publish notification event",
			slog.String("error", err.Error()),
			slog.String("module", "notification"),
		)
	}
}

// ListForUser returns a user's notification inbox, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	return s.store.ListForUser(ctx, userID, unreadOnly)
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.store.MarkRead(ctx, userID, id)
}

// Realtime bridges redis pub/sub to a websocket session. It subscribes to
// the user channels received on input and forwards decoded events to output
// until ctx is done.
func (s *NotificationService) Realtime(ctx context.Context, input chan []string, output chan domain.Event) {
	pubsub := s.rdb.Subscribe(ctx)
	defer pubsub.Close()

	var subscribed []string

	for {
		select {
		case <-ctx.Done():
			return
		case users, ok := <-input:
			if !ok {
				return
			}
			if len(subscribed) > 0 {
				if err := pubsub.Unsubscribe(ctx, subscribed...); err != nil {
					slog.ErrorContext(
						ctx, "Failed to unsubscribe",
						slog.String("error", err.Error()),
						slog.String("module", "notification"),
					)
				}
			}
			subscribed = subscribed[:0]
			for _, user := range users {
				subscribed = append(subscribed, channelFor(user))
			}
			if len(subscribed) > 0 {
				if err := pubsub.Subscribe(ctx, subscribed...); err != nil {
					slog.ErrorContext(
						ctx, "Failed to subscribe",
						slog.String("error", err.Error()),
						slog.String("module", "notification"),
					)
				}
			}
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.ErrorContext(
					ctx, "Failed to decode notification event",
					slog.String("error", err.Error()),
					slog.String("module", "notification"),
				)
				continue
			}
			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

func channelFor(userID string) string {
	return "notifications:" + userID
}
