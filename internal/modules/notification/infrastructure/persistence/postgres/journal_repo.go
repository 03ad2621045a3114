package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/attendify/notify-agent/internal/modules/notification/domain"
)

type journalRow struct {
	ID         string    `db:"id"`
	Message    string    `db:"message"`
	Timestamp  string    `db:"raw_timestamp"`
	Status     string    `db:"status"`
	ReceivedAt time.Time `db:"received_at"`
}

// JournalEntry is one persisted live frame.
type JournalEntry struct {
	Notification domain.Notification `json:"notification"`
	ReceivedAt   time.Time           `json:"receivedAt"`
}

// PgJournalRepository appends live feed frames to notification_journal.
type PgJournalRepository struct {
	db *sqlx.DB
}

func NewPgJournalRepository(db *sqlx.DB) *PgJournalRepository {
	return &PgJournalRepository{db: db}
}

// Append stores n. A frame whose id is already journaled is ignored.
func (r *PgJournalRepository) Append(ctx context.Context, n domain.Notification, receivedAt time.Time) error {
	query := `
		INSERT INTO notification_journal (id, message, raw_timestamp, status, received_at)
		VALUES (:id, :message, :raw_timestamp, :status, :received_at)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.NamedExecContext(ctx, query, journalRow{
		ID:         string(n.ID),
		Message:    n.Message,
		Timestamp:  n.Timestamp.Raw(),
		Status:     string(n.Status),
		ReceivedAt: receivedAt.UTC(),
	})
	return err
}

// Recent returns the newest journaled frames by arrival time.
func (r *PgJournalRepository) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	query := `
		SELECT id, message, raw_timestamp, status, received_at
		FROM notification_journal
		ORDER BY received_at DESC
		LIMIT $1
	`
	var rows []journalRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, err
	}

	entries := make([]JournalEntry, 0, len(rows))
	for _, row := range rows {
		ts, err := domain.ParseTimestamp(row.Timestamp)
		if err != nil {
			return nil, err
		}
		entries = append(entries, JournalEntry{
			Notification: domain.Notification{
				ID:        domain.ID(row.ID),
				Message:   row.Message,
				Timestamp: ts,
				Status:    domain.Status(row.Status),
			},
			ReceivedAt: row.ReceivedAt,
		})
	}
	return entries, nil
}

// Count returns how many frames have been journaled.
func (r *PgJournalRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notification_journal`)
	return count, err
}
