package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ekinaydin/intrachat/internal/models"
	"github.com/ekinaydin/intrachat/internal/registry"
)

type stubMessageStore struct {
	nextID       int64
	created      []models.ChatMessage
	createErr    error
	conversation []models.ChatMessage
	groupHistory []models.ChatMessage
	lastReader   int64
	lastOther    int64
	markCalls    int
}

func (s *stubMessageStore) Create(_ context.Context, senderID, receiverID int64, text string, isGroup bool) (*models.ChatMessage, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.nextID++
	message := models.ChatMessage{
		ID:         s.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		IsGroup:    isGroup,
		CreatedAt:  time.Now().UTC(),
	}
	s.created = append(s.created, message)
	return &message, nil
}

func (s *stubMessageStore) ListConversation(_ context.Context, currentUserID, otherUserID int64) ([]models.ChatMessage, error) {
	s.lastReader = currentUserID
	s.lastOther = otherUserID
	return s.conversation, nil
}

func (s *stubMessageStore) ListGroup(_ context.Context, groupID int64) ([]models.ChatMessage, error) {
	s.lastOther = groupID
	return s.groupHistory, nil
}

func (s *stubMessageStore) MarkRead(_ context.Context, readerID, otherID int64) error {
	s.lastReader = readerID
	s.lastOther = otherID
	s.markCalls++
	return nil
}

type stubGroupReader struct {
	group *models.Group
	err   error
}

func (s *stubGroupReader) GetByID(_ context.Context, _ int64) (*models.Group, error) {
	return s.group, s.err
}

func drainEvent(t *testing.T, h *registry.Handle) models.PushEvent {
	t.Helper()
	select {
	case frame := <-h.Frames():
		var event models.PushEvent
		if err := json.Unmarshal(frame, &event); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("expected a pushed frame")
		return models.PushEvent{}
	}
}

func assertNoEvent(t *testing.T, h *registry.Handle) {
	t.Helper()
	select {
	case frame := <-h.Frames():
		t.Fatalf("expected no frame, got %s", frame)
	default:
	}
}

func TestSendPersistsAndPushesToConnectedRecipient(t *testing.T) {
	store := &stubMessageStore{}
	reg := registry.NewMemoryRegistry()
	service := NewChatService(store, &stubGroupReader{}, reg)

	sender := registry.NewHandle(1)
	receiver := registry.NewHandle(2)
	reg.Register(1, sender)
	reg.Register(2, receiver)

	message, err := service.Send(context.Background(), 1, 2, "hello", false)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if message.ID == 0 || message.Text != "hello" || message.IsGroup {
		t.Fatalf("unexpected stored message: %+v", message)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected exactly one persisted message, got %d", len(store.created))
	}

	event := drainEvent(t, receiver)
	if event.SenderID != 1 || event.ReceiverID != 2 || event.Text != "hello" || event.IsGroup {
		t.Fatalf("unexpected event: %+v", event)
	}

	// The sender's echo is the synchronous response, never the stream.
	assertNoEvent(t, sender)
}

func TestSendToOfflineRecipientStillPersists(t *testing.T) {
	store := &stubMessageStore{}
	service := NewChatService(store, &stubGroupReader{}, registry.NewMemoryRegistry())

	message, err := service.Send(context.Background(), 1, 2, "hello", false)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if message == nil || len(store.created) != 1 {
		t.Fatal("expected the message to be persisted despite the push miss")
	}
}

func TestSendGroupFansOutToEveryoneButSender(t *testing.T) {
	store := &stubMessageStore{}
	groups := &stubGroupReader{
		group: &models.Group{ID: 10, Name: "ops", Admins: []int64{1}, Members: []int64{2, 3}},
	}
	reg := registry.NewMemoryRegistry()
	service := NewChatService(store, groups, reg)

	handles := map[int64]*registry.Handle{}
	for _, userID := range []int64{1, 2, 3} {
		h := registry.NewHandle(userID)
		handles[userID] = h
		reg.Register(userID, h)
	}

	if _, err := service.Send(context.Background(), 1, 10, "standup", true); err != nil {
		t.Fatalf("Send: %v", err)
	}

	for _, userID := range []int64{2, 3} {
		event := drainEvent(t, handles[userID])
		if event.ReceiverID != 10 || !event.IsGroup || event.SenderID != 1 {
			t.Fatalf("unexpected event for user %d: %+v", userID, event)
		}
		assertNoEvent(t, handles[userID])
	}
	assertNoEvent(t, handles[1])
}

func TestSendRejectsEmptyTextAndMissingReceiver(t *testing.T) {
	store := &stubMessageStore{}
	service := NewChatService(store, &stubGroupReader{}, registry.NewMemoryRegistry())

	if _, err := service.Send(context.Background(), 1, 2, "   ", false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank text, got %v", err)
	}
	if _, err := service.Send(context.Background(), 1, 0, "hello", false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing receiver, got %v", err)
	}
	if len(store.created) != 0 {
		t.Fatalf("expected nothing persisted, got %d", len(store.created))
	}
}

func TestSendToUnknownGroupFails(t *testing.T) {
	service := NewChatService(&stubMessageStore{}, &stubGroupReader{err: pgx.ErrNoRows}, registry.NewMemoryRegistry())

	if _, err := service.Send(context.Background(), 1, 99, "hello", true); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestHistoryDispatchesByConversationKind(t *testing.T) {
	store := &stubMessageStore{
		conversation: []models.ChatMessage{{ID: 1, SenderID: 2, ReceiverID: 1, Text: "hi"}},
		groupHistory: []models.ChatMessage{{ID: 2, SenderID: 3, ReceiverID: 10, Text: "yo", IsGroup: true}},
	}
	service := NewChatService(store, &stubGroupReader{}, registry.NewMemoryRegistry())

	direct, err := service.History(context.Background(), 1, 2, false)
	if err != nil || len(direct) != 1 || direct[0].Text != "hi" {
		t.Fatalf("unexpected one-to-one history: %v %v", direct, err)
	}
	if store.lastReader != 1 || store.lastOther != 2 {
		t.Fatalf("unexpected conversation lookup: %d %d", store.lastReader, store.lastOther)
	}

	group, err := service.History(context.Background(), 1, 10, true)
	if err != nil || len(group) != 1 || !group[0].IsGroup {
		t.Fatalf("unexpected group history: %v %v", group, err)
	}

	if _, err := service.History(context.Background(), 1, 0, false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing other id, got %v", err)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	store := &stubMessageStore{}
	service := NewChatService(store, &stubGroupReader{}, registry.NewMemoryRegistry())

	if err := service.MarkRead(context.Background(), 1, 2); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := service.MarkRead(context.Background(), 1, 2); err != nil {
		t.Fatalf("MarkRead (second call): %v", err)
	}
	if store.markCalls != 2 || store.lastReader != 1 || store.lastOther != 2 {
		t.Fatalf("unexpected mark calls: %d reader=%d other=%d", store.markCalls, store.lastReader, store.lastOther)
	}
}
