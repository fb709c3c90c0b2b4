package chatclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ekinaydin/intrachat/internal/models"
)

type stubAPI struct {
	history   []models.ChatMessage
	sendErr   error
	nextID    int64
	sent      []models.ChatMessage
	markCalls []int64
}

func (s *stubAPI) History(_ context.Context, _ int64, _ bool) ([]models.ChatMessage, error) {
	return s.history, nil
}

func (s *stubAPI) Send(_ context.Context, receiverID int64, text string, isGroup bool) (*models.ChatMessage, error) {
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	s.nextID++
	message := models.ChatMessage{
		ID:         s.nextID,
		SenderID:   1,
		ReceiverID: receiverID,
		Text:       text,
		IsGroup:    isGroup,
		CreatedAt:  time.Now().UTC(),
	}
	s.sent = append(s.sent, message)
	return &message, nil
}

func (s *stubAPI) MarkRead(_ context.Context, senderID int64) error {
	s.markCalls = append(s.markCalls, senderID)
	return nil
}

type stubDirectory struct {
	users  map[int64]*models.User
	groups map[int64]*models.Group
}

func (s *stubDirectory) UserByID(_ context.Context, id int64) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (s *stubDirectory) GroupByID(_ context.Context, id int64) (*models.Group, error) {
	group, ok := s.groups[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return group, nil
}

func newTestController(api *stubAPI, directory *stubDirectory) *Controller {
	if directory == nil {
		directory = &stubDirectory{}
	}
	return NewController(1, api, directory)
}

func TestSelectInstallsHistoryAndFlagsReads(t *testing.T) {
	api := &stubAPI{history: []models.ChatMessage{
		{ID: 1, SenderID: 2, ReceiverID: 1, Text: "hi"},
		{ID: 2, SenderID: 1, ReceiverID: 2, Text: "hey"},
		{ID: 3, SenderID: 2, ReceiverID: 1, Text: "there?"},
	}}
	controller := newTestController(api, nil)

	target := Target{Kind: TargetUser, ID: 2, Name: "ayşe"}
	if err := controller.Select(context.Background(), target); err != nil {
		t.Fatalf("Select: %v", err)
	}

	messages := controller.Messages()
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if !messages[0].IsRead || !messages[2].IsRead {
		t.Fatal("expected the counterpart's messages flagged read locally")
	}
	if messages[1].IsRead {
		t.Fatal("expected own outbound message untouched")
	}
	if len(api.markCalls) != 1 || api.markCalls[0] != 2 {
		t.Fatalf("expected one markRead for sender 2, got %v", api.markCalls)
	}

	chats := controller.ActiveChats()
	if len(chats) != 1 || !chats[0].same(target) {
		t.Fatalf("expected the selection at the front of the chat list, got %v", chats)
	}
}

func TestSelectGroupNeverMarksRead(t *testing.T) {
	api := &stubAPI{history: []models.ChatMessage{
		{ID: 1, SenderID: 2, ReceiverID: 10, Text: "standup", IsGroup: true},
	}}
	controller := newTestController(api, nil)

	if err := controller.Select(context.Background(), Target{Kind: TargetGroup, ID: 10, Name: "ops"}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(api.markCalls) != 0 {
		t.Fatalf("expected no markRead for a group, got %v", api.markCalls)
	}
	if controller.Messages()[0].IsRead {
		t.Fatal("group messages carry no read state")
	}
}

func TestSendReplacesOptimisticEntry(t *testing.T) {
	api := &stubAPI{}
	controller := newTestController(api, nil)
	if err := controller.Select(context.Background(), Target{Kind: TargetUser, ID: 2, Name: "ayşe"}); err != nil {
		t.Fatalf("Select: %v", err)
	}

	stored, err := controller.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	messages := controller.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected exactly one entry after reconciliation, got %d", len(messages))
	}
	if messages[0].ID != stored.ID || messages[0].Pending || messages[0].CorrelationID != "" {
		t.Fatalf("expected the stored record in place of the optimistic entry, got %+v", messages[0])
	}
}

func TestSendFailureRollsBackOptimisticEntry(t *testing.T) {
	api := &stubAPI{sendErr: errors.New("boom")}
	controller := newTestController(api, nil)
	if err := controller.Select(context.Background(), Target{Kind: TargetUser, ID: 2}); err != nil {
		t.Fatalf("Select: %v", err)
	}

	if _, err := controller.Send(context.Background(), "hello"); err == nil {
		t.Fatal("expected the send error")
	}
	if len(controller.Messages()) != 0 {
		t.Fatalf("expected the optimistic entry rolled back, got %v", controller.Messages())
	}
}

func TestSendRequiresSelectionAndText(t *testing.T) {
	controller := newTestController(&stubAPI{}, nil)

	if _, err := controller.Send(context.Background(), "hello"); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if err := controller.Select(context.Background(), Target{Kind: TargetUser, ID: 2}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := controller.Send(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestSendMovesTargetToFront(t *testing.T) {
	api := &stubAPI{}
	controller := newTestController(api, nil)
	controller.SetChats([]Target{
		{Kind: TargetUser, ID: 3, Name: "mehmet"},
		{Kind: TargetUser, ID: 2, Name: "ayşe"},
	})

	if err := controller.Select(context.Background(), Target{Kind: TargetUser, ID: 2, Name: "ayşe"}); err != nil {
		t.Fatalf("Select: %v", err)
	}

	chats := controller.ActiveChats()
	if len(chats) != 2 || chats[0].ID != 2 || chats[1].ID != 3 {
		t.Fatalf("expected [2 3], got %v", chats)
	}
}

func TestInboundEventForUnknownChatJoinsFront(t *testing.T) {
	api := &stubAPI{}
	directory := &stubDirectory{users: map[int64]*models.User{4: {ID: 4, Username: "zeynep"}}}
	controller := newTestController(api, directory)
	controller.SetChats([]Target{{Kind: TargetUser, ID: 2, Name: "ayşe"}})

	controller.HandleEvent(context.Background(), models.PushEvent{SenderID: 4, ReceiverID: 1, Text: "selam"})

	chats := controller.ActiveChats()
	if len(chats) != 2 || chats[0].ID != 4 || chats[0].Name != "zeynep" {
		t.Fatalf("expected the resolved sender at the front, got %v", chats)
	}
	messages := controller.Messages()
	if len(messages) != 1 || messages[0].Text != "selam" || messages[0].IsRead {
		t.Fatalf("unexpected message state: %v", messages)
	}
	if controller.Unread(chats[0]) != 1 {
		t.Fatalf("expected one unread, got %d", controller.Unread(chats[0]))
	}
}

func TestInboundEventDroppedWhenUnresolvable(t *testing.T) {
	controller := newTestController(&stubAPI{}, &stubDirectory{})

	controller.HandleEvent(context.Background(), models.PushEvent{SenderID: 9, ReceiverID: 1, Text: "??"})

	if len(controller.ActiveChats()) != 0 || len(controller.Messages()) != 0 {
		t.Fatal("expected the unresolvable event dropped")
	}
}

func TestInboundEventForSelectedChatIsReadImmediately(t *testing.T) {
	api := &stubAPI{}
	controller := newTestController(api, nil)
	target := Target{Kind: TargetUser, ID: 2, Name: "ayşe"}
	if err := controller.Select(context.Background(), target); err != nil {
		t.Fatalf("Select: %v", err)
	}
	api.markCalls = nil

	controller.HandleEvent(context.Background(), models.PushEvent{SenderID: 2, ReceiverID: 1, Text: "hi"})

	messages := controller.Messages()
	if len(messages) != 1 || !messages[0].IsRead {
		t.Fatalf("expected the inbound message displayed as read, got %v", messages)
	}
	if len(api.markCalls) != 1 || api.markCalls[0] != 2 {
		t.Fatalf("expected markRead for the sender, got %v", api.markCalls)
	}
	if controller.Unread(target) != 0 {
		t.Fatalf("expected no unread for the open conversation, got %d", controller.Unread(target))
	}
}

func TestUnreadDerivesFromMessageSet(t *testing.T) {
	directory := &stubDirectory{
		users:  map[int64]*models.User{2: {ID: 2, Username: "ayşe"}},
		groups: map[int64]*models.Group{10: {ID: 10, Name: "ops"}},
	}
	controller := newTestController(&stubAPI{}, directory)

	controller.HandleEvent(context.Background(), models.PushEvent{SenderID: 2, ReceiverID: 1, Text: "one"})
	controller.HandleEvent(context.Background(), models.PushEvent{SenderID: 2, ReceiverID: 1, Text: "two"})
	controller.HandleEvent(context.Background(), models.PushEvent{SenderID: 2, ReceiverID: 10, Text: "group", IsGroup: true})

	user := Target{Kind: TargetUser, ID: 2}
	if got := controller.Unread(user); got != 2 {
		t.Fatalf("expected 2 unread, got %d", got)
	}
	if got := controller.Unread(Target{Kind: TargetGroup, ID: 10}); got != 0 {
		t.Fatalf("group conversations never count unread, got %d", got)
	}
}

func TestEveryUpdateReplacesTheSliceWholesale(t *testing.T) {
	directory := &stubDirectory{users: map[int64]*models.User{2: {ID: 2, Username: "ayşe"}}}
	controller := newTestController(&stubAPI{}, directory)

	controller.HandleEvent(context.Background(), models.PushEvent{SenderID: 2, ReceiverID: 1, Text: "one"})
	first := controller.Messages()
	controller.HandleEvent(context.Background(), models.PushEvent{SenderID: 2, ReceiverID: 1, Text: "two"})
	second := controller.Messages()

	if len(first) != 1 || len(second) != 2 {
		t.Fatalf("unexpected lengths: %d %d", len(first), len(second))
	}
	first[0].Text = "mutated"
	if second[0].Text != "one" {
		t.Fatal("expected earlier snapshots isolated from later state")
	}
}
