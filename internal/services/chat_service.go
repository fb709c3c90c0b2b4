package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/ekinaydin/intrachat/internal/models"
	"github.com/ekinaydin/intrachat/internal/registry"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidToken     = errors.New("invalid token")
	ErrForbidden        = errors.New("forbidden")
	ErrGroupNotFound    = errors.New("group not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyMember    = errors.New("already a member")
	ErrAlreadyAdmin     = errors.New("already an admin")
	ErrMustDemoteFirst  = errors.New("member is an admin and must be demoted first")
	ErrLastAdmin        = errors.New("group must keep at least one admin")
	ErrCannotRemoveSelf = errors.New("cannot remove yourself from the group")
)

type messageStore interface {
	Create(ctx context.Context, senderID, receiverID int64, text string, isGroup bool) (*models.ChatMessage, error)
	ListConversation(ctx context.Context, currentUserID, otherUserID int64) ([]models.ChatMessage, error)
	ListGroup(ctx context.Context, groupID int64) ([]models.ChatMessage, error)
	MarkRead(ctx context.Context, readerID, otherID int64) error
}

type groupReader interface {
	GetByID(ctx context.Context, groupID int64) (*models.Group, error)
}

// ChatService is the delivery engine: it persists messages and fans them out
// to connected recipients through the connection registry.
type ChatService struct {
	messageRepo messageStore
	groupRepo   groupReader
	registry    registry.Registry
}

func NewChatService(
	messageRepo messageStore,
	groupRepo groupReader,
	reg registry.Registry,
) *ChatService {
	return &ChatService{
		messageRepo: messageRepo,
		groupRepo:   groupRepo,
		registry:    reg,
	}
}

// Send validates, persists, then pushes the message to every connected
// recipient. Offline recipients are skipped silently; they recover the
// message from history on their next fetch. The sender is never pushed its
// own message — the returned record is the only self-echo.
func (s *ChatService) Send(
	ctx context.Context,
	senderID int64,
	receiverID int64,
	text string,
	isGroup bool,
) (*models.ChatMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || receiverID <= 0 {
		return nil, ErrInvalidInput
	}

	message, err := s.messageRepo.Create(ctx, senderID, receiverID, trimmed, isGroup)
	if err != nil {
		return nil, err
	}

	recipients := []int64{receiverID}
	if isGroup {
		group, err := s.groupRepo.GetByID(ctx, receiverID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrGroupNotFound
			}
			return nil, err
		}
		recipients = group.Recipients(senderID)
	}

	event := models.PushEvent{
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
		Text:       message.Text,
		IsGroup:    message.IsGroup,
	}
	for _, recipientID := range recipients {
		s.registry.Push(recipientID, event)
	}

	return message, nil
}

// History returns the full ordered history of a conversation, ascending by
// timestamp. Selection always refetches everything.
func (s *ChatService) History(
	ctx context.Context,
	currentUserID int64,
	otherID int64,
	isGroup bool,
) ([]models.ChatMessage, error) {
	if otherID <= 0 {
		return nil, ErrInvalidInput
	}
	if isGroup {
		return s.messageRepo.ListGroup(ctx, otherID)
	}
	return s.messageRepo.ListConversation(ctx, currentUserID, otherID)
}

// MarkRead flips every unread one-to-one message from senderID to readerID.
// Idempotent; marking nothing is fine. Group conversations carry no
// per-member read state, so this is never called for them.
func (s *ChatService) MarkRead(ctx context.Context, readerID int64, senderID int64) error {
	if senderID <= 0 {
		return ErrInvalidInput
	}
	return s.messageRepo.MarkRead(ctx, readerID, senderID)
}
