package services

import (
	"context"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

type NotificationService struct {
	*Env
}

func NewNotificationService(env *Env) *NotificationService {
	return &NotificationService{Env: env}
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	ns, err := s.Store.ListNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ns == nil {
		ns = []models.Notification{}
	}
	return ns, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID string, id int) error {
	return fromStore(s.Store.MarkNotificationRead(ctx, id, userID), "Notification")
}

func (s *NotificationService) Delete(ctx context.Context, userID string, id int) error {
	return fromStore(s.Store.DeleteNotification(ctx, id, userID), "Notification")
}
