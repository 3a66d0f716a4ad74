package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"chat-app/internal/models"
)

// MessageRepository persists direct messages and answers conversation queries.
type MessageRepository interface {
	Append(ctx context.Context, draft models.MessageDraft) (models.Message, error)
	ListConversation(ctx context.Context, userA, userB int) ([]models.Message, error)
	ListCounterparts(ctx context.Context, excludeUserID int) ([]models.User, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, sender_id, receiver_id, text, attachment_kind, attachment_url, attachment_file_name, attachment_content_type, created_at`

type messageRow struct {
	ID                    int64          `db:"id"`
	SenderID              int            `db:"sender_id"`
	ReceiverID            int            `db:"receiver_id"`
	Text                  string         `db:"text"`
	AttachmentKind        sql.NullString `db:"attachment_kind"`
	AttachmentURL         sql.NullString `db:"attachment_url"`
	AttachmentFileName    sql.NullString `db:"attachment_file_name"`
	AttachmentContentType sql.NullString `db:"attachment_content_type"`
	CreatedAt             time.Time      `db:"created_at"`
}

func (r messageRow) toModel() models.Message {
	msg := models.Message{
		ID:         r.ID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		Text:       r.Text,
		CreatedAt:  r.CreatedAt,
	}
	if r.AttachmentURL.Valid {
		msg.Attachment = &models.Attachment{
			Kind:        models.AttachmentKind(r.AttachmentKind.String),
			URL:         r.AttachmentURL.String,
			FileName:    r.AttachmentFileName.String,
			ContentType: r.AttachmentContentType.String,
		}
	}
	return msg
}

func nullable(s string, valid bool) sql.NullString {
	return sql.NullString{String: s, Valid: valid}
}

// Append stores a new message. The database assigns id and created_at.
func (r *MessageRepo) Append(ctx context.Context, draft models.MessageDraft) (models.Message, error) {
	att := draft.Attachment
	hasAtt := att != nil
	if att == nil {
		att = &models.Attachment{}
	}

	var row messageRow
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (sender_id, receiver_id, text, attachment_kind, attachment_url, attachment_file_name, attachment_content_type)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+messageColumns,
		draft.SenderID, draft.ReceiverID, draft.Text,
		nullable(string(att.Kind), hasAtt), nullable(att.URL, hasAtt), nullable(att.FileName, hasAtt), nullable(att.ContentType, hasAtt)).
		StructScan(&row)
	if err != nil {
		return models.Message{}, err
	}
	return row.toModel(), nil
}

// ListConversation returns every message exchanged between two users, in
// either direction, oldest first. Ties on created_at fall back to id.
func (r *MessageRepo) ListConversation(ctx context.Context, userA, userB int) ([]models.Message, error) {
	low, high := orderedPair(userA, userB)

	var rows []messageRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+messageColumns+`
        FROM messages
        WHERE LEAST(sender_id, receiver_id) = $1 AND GREATEST(sender_id, receiver_id) = $2
        ORDER BY created_at ASC, id ASC`, low, high)
	if err != nil {
		return nil, err
	}

	msgs := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.toModel())
	}
	return msgs, nil
}

// ListCounterparts returns all active users except the given one, whether
// or not they have exchanged messages.
func (r *MessageRepo) ListCounterparts(ctx context.Context, excludeUserID int) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+publicUserColumns+`
        FROM users
        WHERE id <> $1 AND is_active = TRUE
        ORDER BY full_name ASC, id ASC`, excludeUserID)
	return users, err
}

func orderedPair(a, b int) (int, int) {
	if a <= b {
		return a, b
	}
	return b, a
}
