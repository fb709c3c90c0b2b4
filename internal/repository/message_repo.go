package repository

import (
	"context"

	"github.com/ekinaydin/intrachat/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create persists a message and returns the canonical row with the
// server-assigned id and timestamp. The returned record is what the
// sender's client treats as authoritative.
func (r *MessageRepository) Create(
	ctx context.Context,
	senderID int64,
	receiverID int64,
	text string,
	isGroup bool,
) (*models.ChatMessage, error) {
	query := `
		INSERT INTO messages (sender_id, receiver_id, text, is_group, is_read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, sender_id, receiver_id, text, is_group, is_read, created_at
	`

	var message models.ChatMessage
	err := r.db.QueryRow(ctx, query, senderID, receiverID, text, isGroup).Scan(
		&message.ID,
		&message.SenderID,
		&message.ReceiverID,
		&message.Text,
		&message.IsGroup,
		&message.IsRead,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListConversation returns the full one-to-one history between two users in
// both directions, ascending. Conversation selection always fetches the
// whole history; there is no pagination on this path.
func (r *MessageRepository) ListConversation(
	ctx context.Context,
	currentUserID int64,
	otherUserID int64,
) ([]models.ChatMessage, error) {
	query := `
		SELECT id, sender_id, receiver_id, text, is_group, is_read, created_at
		FROM messages
		WHERE NOT is_group
		  AND ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, query, currentUserID, otherUserID)
}

// ListGroup returns the full history of a group, ascending.
func (r *MessageRepository) ListGroup(ctx context.Context, groupID int64) ([]models.ChatMessage, error) {
	query := `
		SELECT id, sender_id, receiver_id, text, is_group, is_read, created_at
		FROM messages
		WHERE is_group AND receiver_id = $1
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, query, groupID)
}

// MarkRead flips every unread one-to-one message from otherID to readerID.
// Marking nothing is a no-op, not an error, which makes the call idempotent.
func (r *MessageRepository) MarkRead(ctx context.Context, readerID int64, otherID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_read = TRUE
		WHERE NOT is_group
		  AND receiver_id = $1
		  AND sender_id = $2
		  AND is_read = FALSE
	`, readerID, otherID)
	return err
}

func (r *MessageRepository) Delete(ctx context.Context, messageID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID)
	return err
}

func (r *MessageRepository) list(ctx context.Context, query string, args ...any) ([]models.ChatMessage, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		if err := rows.Scan(
			&message.ID,
			&message.SenderID,
			&message.ReceiverID,
			&message.Text,
			&message.IsGroup,
			&message.IsRead,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
