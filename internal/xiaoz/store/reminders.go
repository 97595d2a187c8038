package store

import (
	"context"
	"fmt"

	"github.com/mzwei/xiaoz/internal/xiaoz/reminder"
)

// SaveReminder inserts a reminder row.
func (s *Store) SaveReminder(ctx context.Context, r reminder.Reminder) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, owner, content, due_at, display_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.Owner, r.Content, r.DueAt, r.DisplayText, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save reminder: %w", err)
	}
	return nil
}

// UpdateReminder rewrites content, due time and display text for an existing
// reminder row.
func (s *Store) UpdateReminder(ctx context.Context, r reminder.Reminder) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE reminders SET content = ?, due_at = ?, display_text = ?
		WHERE id = ?
	`, r.Content, r.DueAt, r.DisplayText, r.ID)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	return nil
}

// DeleteReminder removes a reminder row by ID. Deleting a missing row is not
// an error.
func (s *Store) DeleteReminder(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM reminders WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	return nil
}

// ListReminders returns all persisted reminders in insertion order, for the
// startup reload into the in-memory store.
func (s *Store) ListReminders(ctx context.Context) ([]reminder.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, content, due_at, display_text, created_at
		FROM reminders
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	var out []reminder.Reminder
	for rows.Next() {
		var r reminder.Reminder
		if err := rows.Scan(&r.ID, &r.Owner, &r.Content, &r.DueAt, &r.DisplayText, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminders: %w", err)
	}
	return out, nil
}

// Compile-time check that Store satisfies the reminder persistence hook.
var _ reminder.Persistence = (*Store)(nil)
