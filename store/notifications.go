package store

import (
	"context"
	"time"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

func (s *MySQLStore) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	notifs := []models.Notification{}
	err := s.db.SelectContext(ctx, &notifs, `SELECT id, user_id, message, is_read, created_at
		FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	return notifs, err
}

func (s *MySQLStore) MarkNotificationRead(ctx context.Context, id int, userID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.notificationExists(ctx, id, userID)
	}
	return nil
}

func (s *MySQLStore) notificationExists(ctx context.Context, id int, userID string) error {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notifications WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQLStore) CreateNotification(ctx context.Context, userID, key, message string) (bool, error) {
	var dedup *string
	if key != "" {
		dedup = &key
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO notifications (user_id, dedup_key, message, is_read, created_at) VALUES (?, ?, ?, FALSE, ?)`,
		userID, dedup, message, time.Now().UTC())
	if isDuplicate(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *MySQLStore) DeleteNotification(ctx context.Context, id int, userID string) error {
	return affectedOne(s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID))
}
