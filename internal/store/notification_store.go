package store

import (
	"context"
	"fmt"
)

type NotificationStore struct {
	db DB
}

type NotificationInput struct {
	ID      string
	UserID  string
	Type    string
	Title   string
	Message string
	Payload string
}

type notificationRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Type      string `db:"type"`
	Title     string `db:"title"`
	Message   string `db:"message"`
	Payload   string `db:"payload"`
	Read      bool   `db:"read"`
	CreatedAt any    `db:"created_at"`
}

func NewNotificationStore(db DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Create(ctx context.Context, input NotificationInput) error {
	query := `
		INSERT INTO notifications (id, user_id, type, title, message, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		input.ID, input.UserID, input.Type, input.Title, input.Message, input.Payload,
	)
	return err
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]map[string]any, error) {
	var rows []notificationRow
	query := `
		SELECT id, user_id, type, title, message, payload, read, created_at
		FROM notifications
		WHERE user_id = $1
	`
	if unreadOnly {
		query += " AND NOT read"
	}
	query += " ORDER BY created_at DESC LIMIT $2 OFFSET $3"
	if err := s.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]any{
			"id":         row.ID,
			"type":       row.Type,
			"title":      row.Title,
			"message":    row.Message,
			"payload":    row.Payload,
			"read":       row.Read,
			"created_at": row.CreatedAt,
		})
	}
	return out, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, userID, notificationID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("notification %s not found", notificationID)
	}
	return nil
}
