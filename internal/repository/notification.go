package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/sowerhq/sower/internal/domain"
)

// CreateNotification inserts a new in-app notification.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, type, title, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		n.UserID, n.Type, n.Title, n.Message, n.Metadata,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return domain.Internal(err, "notification.create", "failed to create notification")
	}
	return nil
}

// ListNotifications returns a donor's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int32) ([]domain.Notification, error) {
	query := `
		SELECT id, user_id, type, title, message, metadata, read, created_at
		FROM notifications
		WHERE user_id = $1`
	if unreadOnly {
		query += ` AND read = false`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, domain.Internal(err, "notification.list", "failed to list notifications")
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Metadata, &n.Read, &n.CreatedAt); err != nil {
			return nil, domain.Internal(err, "notification.list", "failed to scan notification")
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks one notification as read. The user filter
// keeps donors from acknowledging each other's notifications.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return false, domain.Internal(err, "notification.mark_read", "failed to mark notification read")
	}
	return tag.RowsAffected() > 0, nil
}

// MarkAllNotificationsRead marks every unread notification for a user as read.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET read = true WHERE user_id = $1 AND read = false`,
		userID)
	if err != nil {
		return 0, domain.Internal(err, "notification.mark_all_read", "failed to mark notifications read")
	}
	return tag.RowsAffected(), nil
}

// CountUnreadNotifications returns how many unread notifications a user has.
func (s *Store) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM notifications WHERE user_id = $1 AND read = false`,
		userID).Scan(&count)
	if err != nil {
		return 0, domain.Internal(err, "notification.count_unread", "failed to count unread notifications")
	}
	return count, nil
}
